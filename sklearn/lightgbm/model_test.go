package lightgbm

import (
	"bytes"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// handTree: feature 0 <= 1.5 goes left (leaf -1); otherwise category of
// feature 1 in {2, 4} gives +2, anything else +3.
func handTree() Tree {
	return Tree{
		ShrinkageRate: 0.5,
		NumLeaves:     3,
		Nodes: []Node{
			{NodeID: 0, ParentID: -1, LeftChild: 1, RightChild: 2, NodeType: NumericalNode, SplitFeature: 0, Threshold: 1.5, Gain: 3},
			{NodeID: 1, ParentID: 0, LeftChild: -1, RightChild: -1, NodeType: LeafNode, LeafValue: -2},
			{NodeID: 2, ParentID: 0, LeftChild: 3, RightChild: 4, NodeType: CategoricalNode, SplitFeature: 1, Categories: []int{2, 4}, Gain: 1},
			{NodeID: 3, ParentID: 2, LeftChild: -1, RightChild: -1, NodeType: LeafNode, LeafValue: 4},
			{NodeID: 4, ParentID: 2, LeftChild: -1, RightChild: -1, NodeType: LeafNode, LeafValue: 6},
		},
	}
}

func TestTreePredict(t *testing.T) {
	tree := handTree()
	tests := []struct {
		name     string
		features []float64
		want     float64
	}{
		{"numeric left", []float64{1, 2}, -1},
		{"category in set", []float64{2, 4}, 2},
		{"category not in set", []float64{2, 3}, 3},
		{"non-integer category goes right", []float64{2, 2.5}, 3},
		{"NaN goes right by default", []float64{math.NaN(), 2}, 2},
		{"NaN category goes right", []float64{5, math.NaN()}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tree.Predict(tt.features), 1e-12)
		})
	}
}

func TestModelPredictAndImportance(t *testing.T) {
	m := NewModel()
	m.Objective = BinaryLogistic
	m.NumFeatures = 2
	m.InitScore = 0.25
	m.Trees = []Tree{handTree()}

	X := mat.NewDense(2, 2, []float64{1, 2, 2, 4})
	pred, err := m.Predict(X)
	require.NoError(t, err)
	assert.InDelta(t, 1/(1+math.Exp(0.75)), pred.At(0, 0), 1e-12)
	assert.InDelta(t, 1/(1+math.Exp(-2.25)), pred.At(1, 0), 1e-12)

	_, err = m.Predict(mat.NewDense(1, 3, nil))
	assert.Error(t, err)

	gain := m.GetFeatureImportance(ImportanceGain)
	assert.InDeltaSlice(t, []float64{0.75, 0.25}, gain, 1e-12)
	split := m.GetFeatureImportance(ImportanceSplit)
	assert.InDeltaSlice(t, []float64{0.5, 0.5}, split, 1e-12)
}

func TestModelPersistence(t *testing.T) {
	X, y := separableData(60)
	trainer := NewTrainer(TrainingParams{NumIterations: 10, NumLeaves: 4, MinDataInLeaf: 1})
	require.NoError(t, trainer.Fit(X, y))
	model := trainer.GetModel()
	model.FeatureNames = []string{"x1", "x2"}

	t.Run("writer round trip", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, model.Save(&buf))

		loaded, err := LoadModel(&buf)
		require.NoError(t, err)
		assert.Equal(t, model.FeatureNames, loaded.FeatureNames)
		assert.Equal(t, len(model.Trees), len(loaded.Trees))

		want, err := model.Predict(X)
		require.NoError(t, err)
		got, err := loaded.Predict(X)
		require.NoError(t, err)
		assert.True(t, mat.EqualApprox(want, got, 1e-12))
	})

	t.Run("file round trip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "model.json")
		require.NoError(t, model.SaveToFile(path))
		loaded, err := LoadModelFromFile(path)
		require.NoError(t, err)
		assert.Equal(t, model.InitScore, loaded.InitScore)
	})

	t.Run("rejects broken links", func(t *testing.T) {
		bad := `{"num_features": 1, "trees": [{"nodes": [{"left_child": 0, "right_child": 5}]}]}`
		_, err := LoadModel(strings.NewReader(bad))
		assert.Error(t, err)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := LoadModel(strings.NewReader("not json"))
		assert.Error(t, err)
	})
}

func TestPredictor(t *testing.T) {
	X, y := separableData(40)
	trainer := NewTrainer(TrainingParams{NumIterations: 5, NumLeaves: 4, MinDataInLeaf: 1})
	require.NoError(t, trainer.Fit(X, y))
	model := trainer.GetModel()

	// a batch above the parallel threshold
	big := mat.NewDense(2000, 2, nil)
	for i := 0; i < 2000; i++ {
		big.Set(i, 0, float64(i%100)/100)
		big.Set(i, 1, float64(i%5)/5)
	}

	seq := NewPredictor(model)
	seq.SetNumThreads(1)
	par := NewPredictor(model)

	a, err := seq.Predict(big)
	require.NoError(t, err)
	b, err := par.Predict(big)
	require.NoError(t, err)
	assert.True(t, mat.Equal(a, b))

	raw, err := par.PredictRaw(big)
	require.NoError(t, err)
	assert.InDelta(t, 1/(1+math.Exp(-raw.At(7, 0))), a.At(7, 0), 1e-12)

	t.Run("best iteration truncates", func(t *testing.T) {
		model.BestIteration = 1
		defer func() { model.BestIteration = 0 }()
		p, err := NewPredictor(model).PredictRaw(X)
		require.NoError(t, err)
		assert.InDelta(t, model.PredictRawSingle(X.RawRowView(0), 1), p.At(0, 0), 1e-12)
	})

	_, err = par.Predict(mat.NewDense(1, 5, nil))
	assert.Error(t, err)
}
