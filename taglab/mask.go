package taglab

// Mask is a binary raster aligned with a blob's bounding box, stored row-major.
type Mask struct {
	Width  int
	Height int
	bits   []bool
}

// NewMask creates empty mask of given size
func NewMask(width, height int) *Mask {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Mask{
		Width:  width,
		Height: height,
		bits:   make([]bool, width*height),
	}
}

// NewFilledMask creates mask with every pixel set
func NewFilledMask(width, height int) *Mask {
	m := NewMask(width, height)
	for i := range m.bits {
		m.bits[i] = true
	}
	return m
}

// At returns pixel value. Out of range pixels are unset.
func (m *Mask) At(x, y int) bool {
	if m == nil || x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.bits[y*m.Width+x]
}

// Set sets pixel value. Out of range pixels are ignored.
func (m *Mask) Set(x, y int, value bool) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	m.bits[y*m.Width+x] = value
}

// Count returns number of set pixels
func (m *Mask) Count() int {
	if m == nil {
		return 0
	}
	n := 0
	for _, b := range m.bits {
		if b {
			n++
		}
	}
	return n
}

// Copy returns deep copy of mask
func (m *Mask) Copy() *Mask {
	if m == nil {
		return nil
	}
	return &Mask{
		Width:  m.Width,
		Height: m.Height,
		bits:   append([]bool(nil), m.bits...),
	}
}

// RLE encodes mask as alternating run lengths, starting with an unset run.
func (m *Mask) RLE() []int {
	runs := make([]int, 0, 8)
	current := false
	length := 0
	for _, b := range m.bits {
		if b != current {
			runs = append(runs, length)
			current = b
			length = 0
		}
		length++
	}
	runs = append(runs, length)
	return runs
}

// MaskFromRLE decodes run lengths produced by RLE
func MaskFromRLE(width, height int, runs []int) *Mask {
	m := NewMask(width, height)
	idx := 0
	value := false
	for _, run := range runs {
		for i := 0; i < run && idx < len(m.bits); i++ {
			m.bits[idx] = value
			idx++
		}
		value = !value
	}
	return m
}
