package Gotrends

// ExpectationSource 根据参考栅格像素值给出期望
type ExpectationSource interface {
	Expect(referenceValue float64) (Expectation, bool)
}

// FixedExpectation 所有参考像素使用同一期望
type FixedExpectation Expectation

func (f FixedExpectation) Expect(float64) (Expectation, bool) {
	return Expectation(f), true
}

// ClassTable 参考栅格值到期望的映射
type ClassTable struct {
	entries     map[float64]Expectation
	fallback    Expectation
	hasFallback bool
}

// NewClassTable 创建空映射表
func NewClassTable() *ClassTable {
	return &ClassTable{entries: make(map[float64]Expectation)}
}

func (t *ClassTable) Set(value float64, exp Expectation) {
	t.entries[value] = exp
}

// SetFallback 未登记的参考值使用的期望
func (t *ClassTable) SetFallback(exp Expectation) {
	t.fallback = exp
	t.hasFallback = true
}

func (t *ClassTable) Expect(value float64) (Expectation, bool) {
	if exp, ok := t.entries[value]; ok {
		return exp, true
	}
	if t.hasFallback {
		return t.fallback, true
	}
	return Expectation{}, false
}

// Len 已登记的参考值数量
func (t *ClassTable) Len() int {
	return len(t.entries)
}
