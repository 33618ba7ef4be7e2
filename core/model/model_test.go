package model

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseEstimatorState(t *testing.T) {
	var e BaseEstimator
	assert.False(t, e.IsFitted())

	e.SetFitted()
	assert.True(t, e.IsFitted())

	e.Reset()
	assert.False(t, e.IsFitted())
}

type savedModel struct {
	Name   string    `json:"name"`
	Leaves []float64 `json:"leaves"`
}

func TestSaveLoadRoundTrip(t *testing.T) {
	in := savedModel{Name: "booster", Leaves: []float64{0.1, -0.2}}

	var buf bytes.Buffer
	require.NoError(t, SaveModelToWriter(in, &buf))

	var out savedModel
	require.NoError(t, LoadModelFromReader(&out, &buf))
	assert.Equal(t, in, out)

	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, SaveModel(in, path))

	var fromFile savedModel
	require.NoError(t, LoadModel(&fromFile, path))
	assert.Equal(t, in, fromFile)
}

func TestLoadModelMissingFile(t *testing.T) {
	var out savedModel
	err := LoadModel(&out, filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
