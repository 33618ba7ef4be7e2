// Package model は推定器（Estimator）の共通インターフェースと学習状態を定義します。
package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を行う
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Scorer はスコアを計算できるモデルのインターフェース
type Scorer interface {
	// Score は分類器なら正解率を返す
	Score(X, y mat.Matrix) (float64, error)
}

// Classifier は二値分類器のインターフェース。
// チューニングや最終学習はこのインターフェース越しに分類器を扱う。
type Classifier interface {
	Fitter
	Predictor
	Scorer

	// PredictProba は各クラスの確率を (n_samples, n_classes) で返す
	PredictProba(X mat.Matrix) (mat.Matrix, error)

	// Classes は学習時に観測したクラスラベルを返す
	Classes() []int

	// IsFitted は学習済みかどうかを返す
	IsFitted() bool
}

// ParameterGetter はハイパーパラメータを公開するモデルのインターフェース
type ParameterGetter interface {
	GetParams() map[string]interface{}
}

// ParameterSetter はハイパーパラメータの変更を許すモデルのインターフェース
type ParameterSetter interface {
	SetParams(params map[string]interface{}) error
}

// Tunable はグリッドサーチで扱えるモデル
type Tunable interface {
	Classifier
	ParameterGetter
	ParameterSetter
}
