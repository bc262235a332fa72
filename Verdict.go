package Gotrends

// Expectation 参考数据给出的期望变化：时间区间及可选的地类
type Expectation struct {
	Interval Interval
	Class    string // 为空时只要求时间重叠
}

// ValidityCriterion 不依赖参考数据时的通用有效性判据
type ValidityCriterion struct {
	Window Interval
}

// Validate 判定像素检测结果与期望是否一致。
//
// 没有任何时间段时直接通过：观测不足导致的无覆盖不视为与参考数据矛盾。
// 否则任一时间段满足 [start,end) 与期望区间相交、且地类匹配（期望未指定地类时不比较）即通过。
// 字段缺失或顺序错误的时间段按不匹配处理，不报错。
func Validate(record ChangeRecord, exp Expectation) bool {
	if record.Empty() {
		return true
	}
	return MatchingSegment(record, exp) >= 0
}

// MatchingSegment 返回第一个满足期望的时间段下标，没有则返回 -1
func MatchingSegment(record ChangeRecord, exp Expectation) int {
	for i, seg := range record.Segments {
		if !seg.Valid() || !seg.Interval().Overlaps(exp.Interval) {
			continue
		}
		if exp.Class != "" && seg.Label != exp.Class {
			continue
		}
		return i
	}
	return -1
}

// ValidateUnconditional 仅检查时间段本身：至少有一个时间段，且有时间段与有效窗口相交。
// 与 Validate 不同，空记录判为不通过。
func ValidateUnconditional(record ChangeRecord, crit ValidityCriterion) bool {
	if record.Empty() {
		return false
	}
	for _, seg := range record.Segments {
		if seg.Valid() && seg.Interval().Overlaps(crit.Window) {
			return true
		}
	}
	return false
}
