package embedding

import "testing"

func TestMeanPool(t *testing.T) {
	hidden := []float32{
		1, 2,
		3, 4,
		100, 100, // masked out
	}
	got := MeanPool(hidden, []int64{1, 1, 0}, 2)
	if got[0] != 2 || got[1] != 3 {
		t.Errorf("MeanPool = %v, want [2 3]", got)
	}
}

func TestMeanPool_emptyMask(t *testing.T) {
	got := MeanPool([]float32{1, 2, 3, 4}, []int64{0, 0}, 2)
	if got[0] != 0 || got[1] != 0 {
		t.Errorf("MeanPool = %v, want zeros", got)
	}
}
