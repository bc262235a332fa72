package Gotrends

import (
	"time"
)

// Interval 半开时间区间 [Start, End)
type Interval struct {
	Start time.Time
	End   time.Time
}

// Valid 起止时间都存在且 Start < End。零值时间表示缺失，因此序数日 1 (0001-01-01) 也视为缺失
func (iv Interval) Valid() bool {
	return !iv.Start.IsZero() && !iv.End.IsZero() && iv.Start.Before(iv.End)
}

// Overlaps max(startA,startB) < min(endA,endB)，端点相接不算相交
func (iv Interval) Overlaps(other Interval) bool {
	if !iv.Valid() || !other.Valid() {
		return false
	}

	start := iv.Start
	if other.Start.After(start) {
		start = other.Start
	}
	end := iv.End
	if other.End.Before(end) {
		end = other.End
	}
	return start.Before(end)
}

// ChangeSegment 单个像素时间序列上检测出的一个时间段
type ChangeSegment struct {
	Start time.Time
	End   time.Time
	Label string

	Break             time.Time // 可为空
	CurveQA           int
	ChangeProbability float64
	ObservationCount  int
}

// Interval 时间段区间
func (s ChangeSegment) Interval() Interval {
	return Interval{Start: s.Start, End: s.End}
}

// Valid 字段缺失或顺序颠倒的时间段视为无效
func (s ChangeSegment) Valid() bool {
	return s.Interval().Valid()
}

// ChangeRecord 单个像素的全部检测结果，Segments 保持检测顺序
type ChangeRecord struct {
	Segments []ChangeSegment
}

// Empty 没有任何时间段，表示算法无覆盖
func (r ChangeRecord) Empty() bool {
	return len(r.Segments) == 0
}

var ordinalEpoch = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)

// FromOrdinal 公历序数日(0001-01-01 为 1)转时间，非正数返回零值
func FromOrdinal(day int64) time.Time {
	if day <= 0 {
		return time.Time{}
	}
	return ordinalEpoch.AddDate(0, 0, int(day-1))
}

// ToOrdinal 时间转公历序数日
func ToOrdinal(t time.Time) int64 {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return (day.Unix()-ordinalEpoch.Unix())/86400 + 1
}
