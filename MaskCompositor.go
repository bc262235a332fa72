package Gotrends

// ReferenceMask 参考数据掩膜，按切片行优先展平，true 表示参考数据记录了变化
type ReferenceMask []bool

// NewReferenceMask 参考值 > 0 的位置置为 true
func NewReferenceMask(values []float64) ReferenceMask {
	mask := make(ReferenceMask, len(values))
	for i, v := range values {
		mask[i] = v > 0
	}
	return mask
}

// FullMask 全部为 true 的掩膜
func FullMask(n int) ReferenceMask {
	mask := make(ReferenceMask, n)
	for i := range mask {
		mask[i] = true
	}
	return mask
}

// Any 是否存在 true
func (m ReferenceMask) Any() bool {
	for _, b := range m {
		if b {
			return true
		}
	}
	return false
}

// Count true 的数量
func (m ReferenceMask) Count() int {
	n := 0
	for _, b := range m {
		if b {
			n++
		}
	}
	return n
}

// Positions 所有 true 位置的绝对下标，升序
func (m ReferenceMask) Positions() []int {
	positions := make([]int, 0, m.Count())
	for i, b := range m {
		if b {
			positions = append(positions, i)
		}
	}
	return positions
}

// Select 按掩膜抽取与 true 位置对应的元素，保持相对顺序
func Select[T any](m ReferenceMask, values []T) ([]T, error) {
	if len(values) != len(m) {
		return nil, &LengthMismatchError{What: "masked values", Want: len(m), Got: len(values)}
	}
	out := make([]T, 0, m.Count())
	for _, pos := range m.Positions() {
		out = append(out, values[pos])
	}
	return out, nil
}

// OutputMask 输出掩膜，1 = 变化已验证，0 = 其他
type OutputMask []byte

// Any 是否存在非零值
func (m OutputMask) Any() bool {
	for _, b := range m {
		if b != 0 {
			return true
		}
	}
	return false
}

// Sum 波段和
func (m OutputMask) Sum() int {
	n := 0
	for _, b := range m {
		n += int(b)
	}
	return n
}

// Compose 把只对应 true 位置的稀疏判定序列按绝对下标还原到完整掩膜上。
// 掩膜为 false 的位置输出 0；判定序列长度必须等于掩膜中 true 的数量。
func Compose(mask ReferenceMask, verdicts []bool) (OutputMask, error) {
	positions := mask.Positions()
	if len(verdicts) != len(positions) {
		return nil, &LengthMismatchError{What: "verdicts", Want: len(positions), Got: len(verdicts)}
	}

	out := make(OutputMask, len(mask))
	for i, pos := range positions {
		if verdicts[i] {
			out[pos] = 1
		}
	}
	return out, nil
}
