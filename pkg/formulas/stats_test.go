package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMean(t *testing.T) {
	tests := []struct {
		name     string
		data     []float64
		expected float64
	}{
		{"empty", []float64{}, 0},
		{"single", []float64{0.02}, 0.02},
		{"mixed", []float64{0.01, 0.00, -0.02}, -0.01 / 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Mean(tt.data), 1e-12)
		})
	}
}

func TestGeometricMean(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, 0.0, GeometricMean(nil))
	})

	t.Run("three returns", func(t *testing.T) {
		expected := math.Pow(1.01*0.98*1.03, 1.0/3) - 1
		assert.InDelta(t, expected, GeometricMean([]float64{0.01, -0.02, 0.03}), 1e-12)
	})

	t.Run("constant returns equal the return", func(t *testing.T) {
		assert.InDelta(t, 0.005, GeometricMean([]float64{0.005, 0.005, 0.005, 0.005}), 1e-12)
	})
}

func TestSquaredDeviation(t *testing.T) {
	assert.InDelta(t, 0.0, SquaredDeviation(nil, 1), 1e-12)
	assert.InDelta(t, 2.0, SquaredDeviation([]float64{1, 2, 3}, 2), 1e-12)
}

func TestBelow(t *testing.T) {
	assert.Equal(t, []float64{-0.02, 0.0}, Below([]float64{0.01, -0.02, 0.0}, 0.005))
	assert.Empty(t, Below([]float64{0.01, 0.02}, 0.01))
}
