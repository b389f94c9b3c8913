package utils

import (
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"length mismatch", []float32{1, 0}, []float32{1}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
		{"empty", nil, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CosineSimilarity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEuclideanDistance(t *testing.T) {
	got := EuclideanDistance([]float32{0, 0}, []float32{3, 4})
	if math.Abs(got-5) > 1e-9 {
		t.Errorf("EuclideanDistance() = %v, want 5", got)
	}
	if !math.IsInf(EuclideanDistance([]float32{1}, []float32{1, 2}), 1) {
		t.Error("length mismatch should yield +Inf")
	}
}

func TestTopKByScore(t *testing.T) {
	items := []ScoredItem[string]{
		{Item: "a", Score: 0.3},
		{Item: "b", Score: 0.9},
		{Item: "c", Score: 0.5},
		{Item: "d", Score: 0.1},
	}

	top := TopKByScore(items, 2)
	if len(top) != 2 {
		t.Fatalf("expected 2 items, got %d", len(top))
	}
	if top[0].Item != "b" || top[1].Item != "c" {
		t.Errorf("unexpected ordering: %v", top)
	}

	all := TopKByScore(items, 10)
	if len(all) != 4 || all[0].Item != "b" || all[3].Item != "d" {
		t.Errorf("k > n should return all items sorted: %v", all)
	}

	if TopKByScore(items, 0) != nil {
		t.Error("k = 0 should return nil")
	}
}
