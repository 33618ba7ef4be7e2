// Package metrics は二値分類モデルの評価指標を提供します。
//
// 入力は *mat.VecDense で、ラベルは 0（No）/ 1（Yes）、
// スコアは陽性クラス（Yes）の確率です。
package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bankloan/pkg/errors"
)

// logLossEps は log(0) を避けるためのクリッピング幅
const logLossEps = 1e-15

// validatePair は空ベクトルと長さの不一致を検査する
func validatePair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	if yTrue == nil || yPred == nil || yTrue.Len() == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}
	n := yTrue.Len()
	if yPred.Len() != n {
		return 0, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return n, nil
}

// validateBinaryLabels はラベルが 0/1 のみであることを検査する
func validateBinaryLabels(op string, yTrue *mat.VecDense) (nPos, nNeg int, err error) {
	for i := 0; i < yTrue.Len(); i++ {
		switch yTrue.AtVec(i) {
		case 1:
			nPos++
		case 0:
			nNeg++
		default:
			return 0, 0, errors.NewValueError(op, "labels must be 0 or 1")
		}
	}
	return nPos, nNeg, nil
}

// AUC はROC曲線下面積を Mann-Whitney U 統計量として計算する。
// 同順位のスコアには平均順位を与えるため、全て同じスコアなら 0.5 になる。
// 片方のクラスしか存在しない場合は UndefinedMetricWarning を出して 0.5 を返す。
func AUC(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := validatePair("AUC", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	nPos, nNeg, err := validateBinaryLabels("AUC", yTrue)
	if err != nil {
		return 0, err
	}
	if nPos == 0 || nNeg == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("roc_auc", "only one class present in y_true", 0.5))
		return 0.5, nil
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return yPred.AtVec(idx[a]) < yPred.AtVec(idx[b]) })

	// 平均順位（1始まり）での陽性順位和
	var rankSum float64
	for i := 0; i < n; {
		j := i
		for j+1 < n && yPred.AtVec(idx[j+1]) == yPred.AtVec(idx[i]) {
			j++
		}
		avgRank := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			if yTrue.AtVec(idx[k]) == 1 {
				rankSum += avgRank
			}
		}
		i = j + 1
	}

	p, q := float64(nPos), float64(nNeg)
	return (rankSum - p*(p+1)/2) / (p * q), nil
}

// AUCMatrix は行列形式の入力に対してAUCを計算する。先頭列のみを使う。
func AUCMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	yt, yp, err := firstColumns("AUCMatrix", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return AUC(yt, yp)
}

func firstColumns(op string, yTrue, yPred mat.Matrix) (*mat.VecDense, *mat.VecDense, error) {
	if yTrue == nil || yPred == nil {
		return nil, nil, errors.NewValueError(op, "nil matrix")
	}
	if d, ok := yTrue.(*mat.Dense); ok && d.IsEmpty() {
		return nil, nil, errors.NewValueError(op, "empty matrix")
	}
	if d, ok := yPred.(*mat.Dense); ok && d.IsEmpty() {
		return nil, nil, errors.NewValueError(op, "empty matrix")
	}
	rTrue, cTrue := yTrue.Dims()
	rPred, cPred := yPred.Dims()
	if rTrue == 0 || cTrue == 0 || cPred == 0 {
		return nil, nil, errors.NewValueError(op, "empty matrix")
	}
	if rTrue != rPred {
		return nil, nil, errors.NewDimensionError(op, rTrue, rPred, 0)
	}
	yt := mat.NewVecDense(rTrue, nil)
	yp := mat.NewVecDense(rTrue, nil)
	for i := 0; i < rTrue; i++ {
		yt.SetVec(i, yTrue.At(i, 0))
		yp.SetVec(i, yPred.At(i, 0))
	}
	return yt, yp, nil
}

// BinaryLogLoss は二値交差エントロピー（mn_log_loss）を計算する。
// 予測確率は [eps, 1-eps] にクリップされる。
func BinaryLogLoss(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := validatePair("BinaryLogLoss", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if _, _, err := validateBinaryLabels("BinaryLogLoss", yTrue); err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < n; i++ {
		p := errors.ClipValue(yPred.AtVec(i), logLossEps, 1-logLossEps)
		if yTrue.AtVec(i) == 1 {
			sum -= math.Log(p)
		} else {
			sum -= math.Log(1 - p)
		}
	}
	return sum / float64(n), nil
}

// ClassificationError は誤分類率を計算する
func ClassificationError(yTrue, yPred *mat.VecDense) (float64, error) {
	acc, err := accuracy("ClassificationError", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return 1 - acc, nil
}

// Accuracy は正解率を計算する
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	return accuracy("Accuracy", yTrue, yPred)
}

func accuracy(op string, yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := validatePair(op, yTrue, yPred)
	if err != nil {
		return 0, err
	}
	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}
