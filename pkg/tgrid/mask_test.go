package tgrid

import "testing"

func TestOpenRemovesSpeckle(t *testing.T) {
	m := NewMask(9, 9)
	m.Set(4, 4, true) // isolated pixel

	out := m.Open(1)
	if out.Count() != 0 {
		t.Errorf("opening should remove an isolated pixel, %d left", out.Count())
	}
	if m.Count() != 1 {
		t.Errorf("Open mutated its input")
	}
}

func TestOpenKeepsBlock(t *testing.T) {
	m := NewMask(9, 9)
	for y := 2; y < 7; y++ {
		for x := 2; x < 7; x++ {
			m.Set(x, y, true)
		}
	}
	out := m.Open(1)
	if !out.Get(4, 4) {
		t.Errorf("opening removed the interior of a solid block")
	}
}

func TestCloseFillsHole(t *testing.T) {
	m := NewMask(9, 9)
	for y := 1; y < 8; y++ {
		for x := 1; x < 8; x++ {
			m.Set(x, y, true)
		}
	}
	m.Set(4, 4, false) // pinhole

	out := m.Close(1)
	if !out.Get(4, 4) {
		t.Errorf("closing should fill a one-pixel hole")
	}
}

func TestMorphologyPreservesExtremes(t *testing.T) {
	all := NewMask(6, 4)
	all.Fill(true)
	if got := all.Open(2).Close(2).CoveragePct(); got != 100.0 {
		t.Errorf("all-true mask should survive cleanup, coverage %v", got)
	}

	none := NewMask(6, 4)
	if got := none.Open(2).Close(2).CoveragePct(); got != 0.0 {
		t.Errorf("all-false mask should stay empty, coverage %v", got)
	}
}

func TestCoveragePct(t *testing.T) {
	m := NewMask(4, 4)
	m.Set(0, 0, true)
	m.Set(1, 0, true)
	if got := m.CoveragePct(); got != 12.5 {
		t.Errorf("coverage: got %v, want 12.5", got)
	}
}
