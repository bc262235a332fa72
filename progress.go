package Gotrends

import (
	"fmt"
	"io"
	"strconv"
)

// ProgressReporter 每处理完一个切片回调一次
type ProgressReporter interface {
	Report(done, total int)
}

// NopProgress 不输出进度
type NopProgress struct{}

func (NopProgress) Report(int, int) {}

// TerminalProgress 在终端同一行刷新完成百分比
type TerminalProgress struct {
	w io.Writer
}

func NewTerminalProgress(w io.Writer) *TerminalProgress {
	return &TerminalProgress{w: w}
}

func (p *TerminalProgress) Report(done, total int) {
	if total <= 0 {
		return
	}
	pct := strconv.FormatFloat(float64(done)/float64(total)*100, 'f', -1, 64)
	if len(pct) > 5 {
		pct = pct[:5]
	}
	fmt.Fprintf(p.w, "\r%s%% Done ", pct)
}

// Finish 换行结束进度显示
func (p *TerminalProgress) Finish() {
	fmt.Fprintln(p.w)
}
