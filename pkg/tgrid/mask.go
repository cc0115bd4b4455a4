package tgrid

// A Mask is a binary grid, same shape as the raster it was derived
// from. Morphology here uses the 8-connected 3x3 structuring element
// throughout; out-of-bounds neighbors are treated as a copy of the
// nearest edge pixel, so an all-true mask survives opening intact.
type Mask struct {
	stride int
	bits   []bool
}

func NewMask(w, h int) *Mask {
	return &Mask{
		stride: w,
		bits:   make([]bool, w*h),
	}
}

func (m *Mask) Set(x, y int, v bool) { m.bits[m.stride*y+x] = v }
func (m *Mask) Get(x, y int) bool    { return m.bits[m.stride*y+x] }
func (m *Mask) Dx() int              { return m.stride }
func (m *Mask) Dy() int              { return len(m.bits) / m.stride }

func (m *Mask) Count() int {
	n := 0
	for _, b := range m.bits {
		if b {
			n++
		}
	}
	return n
}

// CoveragePct is the percentage of set pixels, in [0,100].
func (m *Mask) CoveragePct() float64 {
	return 100.0 * float64(m.Count()) / float64(len(m.bits))
}

func (m *Mask) Fill(v bool) {
	for i := range m.bits {
		m.bits[i] = v
	}
}

// Open is binary opening: erode then dilate, iters times each.
func (m *Mask) Open(iters int) *Mask {
	out := m
	for i := 0; i < iters; i++ {
		out = out.erode()
	}
	for i := 0; i < iters; i++ {
		out = out.dilate()
	}
	return out
}

// Close is binary closing: dilate then erode, iters times each.
func (m *Mask) Close(iters int) *Mask {
	out := m
	for i := 0; i < iters; i++ {
		out = out.dilate()
	}
	for i := 0; i < iters; i++ {
		out = out.erode()
	}
	return out
}

func (m1 *Mask) erode() *Mask {
	return m1.morph(func(all bool, v bool) bool { return all && v })
}

func (m1 *Mask) dilate() *Mask {
	return m1.morph(func(any bool, v bool) bool { return any || v })
}

func (m1 *Mask) morph(combine func(acc, v bool) bool) *Mask {
	width := m1.Dx()
	height := m1.Dy()
	m2 := NewMask(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			acc := m1.Get(x, y)
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					acc = combine(acc, m1.Get(clamp(x+dx, width), clamp(y+dy, height)))
				}
			}
			m2.Set(x, y, acc)
		}
	}
	return m2
}
