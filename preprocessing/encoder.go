// Package preprocessing は学習前のデータ変換を提供します。
package preprocessing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bankloan/core/model"
	"github.com/YuminosukeSato/bankloan/dataset"
	"github.com/YuminosukeSato/bankloan/pkg/errors"
	"github.com/YuminosukeSato/bankloan/pkg/log"
)

// OrdinalEncoder は予測変数を設計行列に変換するエンコーダ
// 数値列はそのまま、カテゴリ列は水準の順番（0始まり）を整数コードとして出力する。
// 勾配ブースティングはカテゴリ列をネイティブに分割するため、one-hot展開は行わない。
type OrdinalEncoder struct {
	model.BaseEstimator

	// Columns は設計行列の列順に並んだ予測変数名
	Columns []string

	// Categories はカテゴリ列ごとの水準（Fit時のスキーマから固定）
	Categories map[string][]string

	codes map[string]map[string]int
}

// NewOrdinalEncoder は新しいOrdinalEncoderを作成する
//
// 使用例:
//
//	enc := preprocessing.NewOrdinalEncoder()
//	if err := enc.Fit(train); err != nil { ... }
//	X, err := enc.Transform(test)
func NewOrdinalEncoder() *OrdinalEncoder {
	return &OrdinalEncoder{}
}

// Fit はフレームのスキーマから水準→コード表を作る。
// スキーマは分割前に固定されているので、訓練・テストで同じ表になる。
func (e *OrdinalEncoder) Fit(f *dataset.Frame) error {
	schema := f.Schema()
	if schema == nil {
		return errors.NewValueError("OrdinalEncoder.Fit", "frame is not recoded")
	}

	e.Columns = f.Predictors()
	e.Categories = make(map[string][]string)
	e.codes = make(map[string]map[string]int)
	for _, col := range e.Columns {
		levels := schema.Levels(col)
		if levels == nil {
			continue
		}
		e.Categories[col] = levels
		table := make(map[string]int, len(levels))
		for i, l := range levels {
			table[l] = i
		}
		e.codes[col] = table
	}
	e.SetFitted()

	log.GetLoggerWithName("preprocessing").Debug("OrdinalEncoder fitted",
		log.ModelNameKey, "OrdinalEncoder",
		log.FeaturesKey, len(e.Columns),
		log.CategoricalKey, len(e.Categories),
	)
	return nil
}

// Transform は設計行列 (n_samples × n_predictors) を返す
func (e *OrdinalEncoder) Transform(f *dataset.Frame) (*mat.Dense, error) {
	if !e.IsFitted() {
		return nil, errors.NewNotFittedError("OrdinalEncoder", "Transform")
	}
	n := f.Nrow()
	if n == 0 {
		return nil, errors.NewModelError("OrdinalEncoder.Transform", "empty data", errors.ErrEmptyData)
	}

	X := mat.NewDense(n, len(e.Columns), nil)
	for j, col := range e.Columns {
		table, categorical := e.codes[col]
		if !categorical {
			for i, v := range f.Floats(col) {
				if math.IsNaN(v) {
					return nil, errors.NewSchemaError(col, i, "NaN", "missing numeric value")
				}
				X.Set(i, j, v)
			}
			continue
		}
		for i, v := range f.Strings(col) {
			code, ok := table[v]
			if !ok {
				return nil, errors.NewValueError("OrdinalEncoder.Transform",
					fmt.Sprintf("column %s: unknown level %q", col, v))
			}
			X.Set(i, j, float64(code))
		}
	}
	return X, nil
}

// FitTransform はFitとTransformを同時に実行する
func (e *OrdinalEncoder) FitTransform(f *dataset.Frame) (*mat.Dense, error) {
	if err := e.Fit(f); err != nil {
		return nil, err
	}
	return e.Transform(f)
}

// FeatureNames は設計行列の列名を返す
func (e *OrdinalEncoder) FeatureNames() []string {
	return append([]string(nil), e.Columns...)
}

// CategoricalIndices はカテゴリ列の列番号を返す
func (e *OrdinalEncoder) CategoricalIndices() []int {
	var idx []int
	for j, col := range e.Columns {
		if _, ok := e.codes[col]; ok {
			idx = append(idx, j)
		}
	}
	return idx
}

// InverseCategory はコードを水準名に戻す
func (e *OrdinalEncoder) InverseCategory(col string, code int) (string, error) {
	levels, ok := e.Categories[col]
	if !ok {
		return "", errors.NewValueError("OrdinalEncoder.InverseCategory", "not a categorical column: "+col)
	}
	if code < 0 || code >= len(levels) {
		return "", errors.NewValueError("OrdinalEncoder.InverseCategory",
			fmt.Sprintf("column %s: code %d out of range", col, code))
	}
	return levels[code], nil
}

// GetParams はエンコーダのパラメータを返す
func (e *OrdinalEncoder) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"columns":    e.Columns,
		"categories": e.Categories,
	}
}
