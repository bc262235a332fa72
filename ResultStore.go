package Gotrends

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ResultStore 按切片读取逐像素的检测结果，返回与切片像素行优先一一对应的记录
type ResultStore interface {
	QueryChip(h, v int, chip Chip) ([]ChangeRecord, error)
}

// JSONResultStore 读取 PyCCD 的JSON输出，每个切片一个文件：
// H<hh>V<vv>_<ulx>_<uly>.json，内容为像素对象数组
type JSONResultStore struct {
	Dir string
}

// NewJSONResultStore 创建JSON结果读取器
func NewJSONResultStore(dir string) *JSONResultStore {
	return &JSONResultStore{Dir: dir}
}

type pixelResult struct {
	X            *float64      `json:"x"`
	Y            *float64      `json:"y"`
	ChangeModels []changeModel `json:"change_models"`
}

type changeModel struct {
	StartDay          *float64 `json:"start_day"`
	EndDay            *float64 `json:"end_day"`
	BreakDay          *float64 `json:"break_day"`
	Label             string   `json:"label"`
	CurveQA           int      `json:"curve_qa"`
	ChangeProbability float64  `json:"change_probability"`
	ObservationCount  int      `json:"observation_count"`
}

// ChipFileName 切片结果文件名
func ChipFileName(h, v int, chip Chip) string {
	ul := chip.UpperLeft()
	return fmt.Sprintf("H%02dV%02d_%d_%d.json", h, v, int64(ul[0]), int64(ul[1]))
}

func (s *JSONResultStore) QueryChip(h, v int, chip Chip) ([]ChangeRecord, error) {
	path := filepath.Join(s.Dir, ChipFileName(h, v, chip))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ResultStoreError{Path: path, Chip: chip.ID, Err: err}
	}

	var pixels []pixelResult
	if err := json.Unmarshal(data, &pixels); err != nil {
		return nil, &ResultStoreError{Path: path, Chip: chip.ID, Err: err}
	}

	records, err := alignPixels(chip, pixels)
	if err != nil {
		return nil, &ResultStoreError{Path: path, Chip: chip.ID, Err: err}
	}
	return records, nil
}

// alignPixels 按像素坐标放回行优先位置，数量不符或重复都视为错误
func alignPixels(chip Chip, pixels []pixelResult) ([]ChangeRecord, error) {
	n := chip.PixelCount()
	if len(pixels) != n {
		return nil, fmt.Errorf("expected %d pixels, got %d", n, len(pixels))
	}

	records := make([]ChangeRecord, n)
	seen := make([]bool, n)

	for i, p := range pixels {
		if p.X == nil || p.Y == nil {
			return nil, fmt.Errorf("pixel %d has no coordinates", i)
		}
		idx, ok := chip.PixelIndex(*p.X, *p.Y)
		if !ok {
			return nil, fmt.Errorf("pixel (%v, %v) is outside chip %s", *p.X, *p.Y, chip.ID)
		}
		if seen[idx] {
			return nil, fmt.Errorf("duplicate pixel (%v, %v)", *p.X, *p.Y)
		}
		seen[idx] = true
		records[idx] = toChangeRecord(p.ChangeModels)
	}
	return records, nil
}

func toChangeRecord(models []changeModel) ChangeRecord {
	rec := ChangeRecord{Segments: make([]ChangeSegment, 0, len(models))}
	for _, m := range models {
		rec.Segments = append(rec.Segments, ChangeSegment{
			Start:             ordinalField(m.StartDay),
			End:               ordinalField(m.EndDay),
			Break:             ordinalField(m.BreakDay),
			Label:             m.Label,
			CurveQA:           m.CurveQA,
			ChangeProbability: m.ChangeProbability,
			ObservationCount:  m.ObservationCount,
		})
	}
	return rec
}

func ordinalField(day *float64) time.Time {
	if day == nil {
		return time.Time{}
	}
	return FromOrdinal(int64(*day))
}
