package model

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"landbid/game"
)

func TestStatic(t *testing.T) {
	t.Run("rejects wrong length", func(t *testing.T) {
		_, err := NewStatic([]float64{1})
		require.ErrorIs(t, err, ErrBadOutput)
	})

	t.Run("returns a copy", func(t *testing.T) {
		scores := make([]float64, game.NumActions)
		scores[3] = 0.5
		s, err := NewStatic(scores)
		require.NoError(t, err)
		got, err := s.Score(nil, nil)
		require.NoError(t, err)
		got[3] = 9
		again, err := s.Score(nil, nil)
		require.NoError(t, err)
		require.Equal(t, 0.5, again[3])
	})
}

func TestUniform(t *testing.T) {
	scores, err := Uniform{Players: 4}.Score(nil, nil)
	require.NoError(t, err)
	require.Len(t, scores, game.NumActions)
	for _, s := range scores {
		require.Equal(t, 0.25, s)
	}
}

func TestValues(t *testing.T) {
	features := make([]float32, 3*game.NumRegions)
	for i := 0; i < game.NumRegions; i++ {
		features[2*game.NumRegions+i] = float32(game.MinValue + i)
	}
	scores, err := Values{}.Score(features, nil)
	require.NoError(t, err)
	best := 0
	for i, s := range scores {
		if s > scores[best] {
			best = i
		}
	}
	require.Equal(t, game.ActionIndex(10, 2), best)

	_, err = Values{}.Score(nil, nil)
	require.Error(t, err)
}

func TestDecode(t *testing.T) {
	t.Run("accepts float32 and float64", func(t *testing.T) {
		f32 := make([]float32, game.NumActions)
		f32[1] = 0.5
		got, err := decode(f32)
		require.NoError(t, err)
		require.Equal(t, 0.5, got[1])

		f64 := make([]float64, game.NumActions)
		got, err = decode(f64)
		require.NoError(t, err)
		require.Len(t, got, game.NumActions)
	})

	t.Run("rejects other shapes and types", func(t *testing.T) {
		_, err := decode(make([]float32, 10))
		require.ErrorIs(t, err, ErrBadOutput)
		_, err = decode([]int64{1})
		require.ErrorIs(t, err, ErrBadOutput)
	})
}

func TestNormalize(t *testing.T) {
	labels := []float64{0, 0.5, 1}
	norm := Normalize(labels, 2)
	require.InDeltaSlice(t, []float64{-2, 0, 2}, norm, 1e-9)
	denormalize(norm, 2)
	require.InDeltaSlice(t, labels, norm, 1e-9)
}

func TestLoad(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.onnx"), DefaultInputs(), 2)
	require.Error(t, err)

	_, err = New(filepath.Join(t.TempDir(), "missing.onnx"), DefaultInputs(), 2)
	require.Error(t, err)

	s, err := New("uniform", DefaultInputs(), 2)
	require.NoError(t, err)
	require.IsType(t, Uniform{}, s)
}
