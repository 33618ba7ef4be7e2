package lightgbm

import (
	"io"
	"math"

	coremodel "github.com/YuminosukeSato/bankloan/core/model"
	"github.com/YuminosukeSato/bankloan/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// NodeType represents the type of a tree node
type NodeType int

const (
	// LeafNode represents a terminal node with a value
	LeafNode NodeType = iota
	// NumericalNode represents a node with numerical split
	NumericalNode
	// CategoricalNode represents a node with categorical split
	CategoricalNode
)

// Node represents a single node in a decision tree
type Node struct {
	// Node identification
	NodeID     int      `json:"node_id"`
	ParentID   int      `json:"parent_id"`   // -1 for root
	LeftChild  int      `json:"left_child"`  // -1 if leaf
	RightChild int      `json:"right_child"` // -1 if leaf
	NodeType   NodeType `json:"node_type"`
	Depth      int      `json:"depth"`

	// Split information (for non-leaf nodes)
	SplitFeature int     `json:"split_feature"`
	Threshold    float64 `json:"threshold"`            // go left when value <= Threshold
	Categories   []int   `json:"categories,omitempty"` // go left when value is one of these codes
	DefaultLeft  bool    `json:"default_left"`         // direction for NaN
	Gain         float64 `json:"gain"`

	// Leaf information (for leaf nodes)
	LeafValue float64 `json:"leaf_value"`
	LeafCount int     `json:"leaf_count"`

	// Statistics
	InternalCount int     `json:"internal_count"`
	SumHessian    float64 `json:"sum_hessian"`
}

// IsLeaf returns true if the node is a leaf node
func (n *Node) IsLeaf() bool {
	return n.LeftChild == -1 && n.RightChild == -1
}

// goesLeft reports the routing decision for a single feature value.
func (n *Node) goesLeft(v float64) bool {
	if math.IsNaN(v) {
		return n.DefaultLeft
	}
	if n.NodeType == CategoricalNode {
		if v < 0 || v != math.Trunc(v) {
			return false
		}
		code := int(v)
		for _, c := range n.Categories {
			if c == code {
				return true
			}
		}
		return false
	}
	return v <= n.Threshold
}

// Tree represents a single decision tree in the ensemble
type Tree struct {
	TreeIndex     int     `json:"tree_index"`
	NumLeaves     int     `json:"num_leaves"`
	MaxDepth      int     `json:"max_depth"`
	ShrinkageRate float64 `json:"shrinkage"`
	Nodes         []Node  `json:"nodes"`
}

// Predict makes a prediction for a single sample using this tree
func (t *Tree) Predict(features []float64) float64 {
	if len(t.Nodes) == 0 {
		return 0
	}
	node := &t.Nodes[0]
	for !node.IsLeaf() {
		if node.goesLeft(features[node.SplitFeature]) {
			node = &t.Nodes[node.LeftChild]
		} else {
			node = &t.Nodes[node.RightChild]
		}
	}
	return node.LeafValue * t.ShrinkageRate
}

// ObjectiveType represents the objective function type
type ObjectiveType string

const (
	RegressionL2   ObjectiveType = "regression"
	BinaryLogistic ObjectiveType = "binary"
)

// Model represents a complete boosted ensemble.
type Model struct {
	Objective    ObjectiveType `json:"objective"`
	NumIteration int           `json:"num_iteration"`
	LearningRate float64       `json:"learning_rate"`
	NumLeaves    int           `json:"num_leaves"`
	MaxDepth     int           `json:"max_depth"`

	Trees []Tree `json:"trees"`

	NumFeatures         int      `json:"num_features"`
	FeatureNames        []string `json:"feature_names,omitempty"`
	CategoricalFeatures []int    `json:"categorical_features,omitempty"`

	Parameters    map[string]interface{} `json:"parameters,omitempty"`
	BestIteration int                    `json:"best_iteration"`

	// InitScore is the raw score every prediction starts from
	// (log-odds of the training prevalence for the binary objective).
	InitScore float64 `json:"init_score"`
}

// NewModel creates a new empty model
func NewModel() *Model {
	return &Model{
		Trees:        make([]Tree, 0),
		Parameters:   make(map[string]interface{}),
		LearningRate: 0.1,
		NumLeaves:    31,
		MaxDepth:     -1,
	}
}

// PredictRawSingle returns the untransformed ensemble score for one sample
// using the first numIteration trees (-1 for all).
func (m *Model) PredictRawSingle(features []float64, numIteration int) float64 {
	if numIteration < 0 || numIteration > len(m.Trees) {
		numIteration = len(m.Trees)
	}
	score := m.InitScore
	for i := 0; i < numIteration; i++ {
		score += m.Trees[i].Predict(features)
	}
	return score
}

// PredictSingle returns the transformed prediction: a probability of the
// positive class for the binary objective, the raw score otherwise.
func (m *Model) PredictSingle(features []float64, numIteration int) float64 {
	raw := m.PredictRawSingle(features, numIteration)
	if m.Objective == BinaryLogistic {
		return errors.Sigmoid(raw)
	}
	return raw
}

// Predict makes predictions for a batch of samples. The result is n×1.
func (m *Model) Predict(X mat.Matrix) (mat.Matrix, error) {
	rows, cols := X.Dims()
	if cols != m.NumFeatures {
		return nil, errors.NewDimensionError("Model.Predict", m.NumFeatures, cols, 1)
	}
	out := mat.NewDense(rows, 1, nil)
	features := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(features, i, X)
		out.Set(i, 0, m.PredictSingle(features, -1))
	}
	return out, nil
}

// Importance types accepted by GetFeatureImportance.
const (
	ImportanceGain  = "gain"
	ImportanceSplit = "split"
)

// GetFeatureImportance sums split gain (or split counts) per feature over
// all trees and normalises the result to sum to 1.
func (m *Model) GetFeatureImportance(importanceType string) []float64 {
	importance := make([]float64, m.NumFeatures)

	for _, tree := range m.Trees {
		for _, node := range tree.Nodes {
			if node.IsLeaf() {
				continue
			}
			switch importanceType {
			case ImportanceSplit:
				importance[node.SplitFeature]++
			default:
				importance[node.SplitFeature] += node.Gain
			}
		}
	}

	total := 0.0
	for _, v := range importance {
		total += v
	}
	if total > 0 {
		for i := range importance {
			importance[i] /= total
		}
	}

	return importance
}

// Save writes the model as indented JSON.
func (m *Model) Save(w io.Writer) error {
	return coremodel.SaveModelToWriter(m, w)
}

// SaveToFile saves the model as JSON.
func (m *Model) SaveToFile(filepath string) error {
	return coremodel.SaveModel(m, filepath)
}

// LoadModel reads a model written by Save.
func LoadModel(r io.Reader) (*Model, error) {
	m := NewModel()
	if err := coremodel.LoadModelFromReader(m, r); err != nil {
		return nil, err
	}
	if err := m.check(); err != nil {
		return nil, err
	}
	return m, nil
}

// LoadModelFromFile reads a model written by SaveToFile.
func LoadModelFromFile(filepath string) (*Model, error) {
	m := NewModel()
	if err := coremodel.LoadModel(m, filepath); err != nil {
		return nil, err
	}
	if err := m.check(); err != nil {
		return nil, err
	}
	return m, nil
}

// check validates node links so a corrupted file cannot loop or index out
// of range during prediction.
func (m *Model) check() error {
	if m.NumFeatures <= 0 {
		return errors.NewValueError("LoadModel", "model has no features")
	}
	for ti, tree := range m.Trees {
		if len(tree.Nodes) == 0 {
			return errors.NewValueError("LoadModel", "empty tree")
		}
		for ni, node := range tree.Nodes {
			if node.IsLeaf() {
				continue
			}
			if node.LeftChild <= ni || node.RightChild <= ni ||
				node.LeftChild >= len(tree.Nodes) || node.RightChild >= len(tree.Nodes) {
				return errors.Newf("LoadModel: tree %d node %d has invalid children", ti, ni)
			}
			if node.SplitFeature < 0 || node.SplitFeature >= m.NumFeatures {
				return errors.Newf("LoadModel: tree %d node %d splits on feature %d", ti, ni, node.SplitFeature)
			}
		}
	}
	return nil
}
