package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bankloan/pkg/errors"
)

// ROC はROC曲線の点列。Thresholds[i] 以上のスコアを陽性とみなしたときの
// 偽陽性率・真陽性率が FPR[i], TPR[i] に入る。
// 先頭は (0, 0)（閾値 +Inf）、末尾は (1, 1)。
type ROC struct {
	Thresholds []float64
	FPR        []float64
	TPR        []float64
}

// ROCCurve はスコアの降順に閾値を動かしてROC曲線を作る。同じスコアは1点にまとめる。
func ROCCurve(yTrue, score *mat.VecDense) (*ROC, error) {
	n, err := validatePair("ROCCurve", yTrue, score)
	if err != nil {
		return nil, err
	}
	nPos, nNeg, err := validateBinaryLabels("ROCCurve", yTrue)
	if err != nil {
		return nil, err
	}
	if nPos == 0 || nNeg == 0 {
		return nil, errors.Wrap(errors.ErrSingleClass, "ROCCurve")
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return score.AtVec(idx[a]) > score.AtVec(idx[b]) })

	roc := &ROC{
		Thresholds: []float64{math.Inf(1)},
		FPR:        []float64{0},
		TPR:        []float64{0},
	}
	var tp, fp float64
	for i := 0; i < n; i++ {
		if yTrue.AtVec(idx[i]) == 1 {
			tp++
		} else {
			fp++
		}
		if i+1 < n && score.AtVec(idx[i+1]) == score.AtVec(idx[i]) {
			continue
		}
		roc.Thresholds = append(roc.Thresholds, score.AtVec(idx[i]))
		roc.FPR = append(roc.FPR, fp/float64(nNeg))
		roc.TPR = append(roc.TPR, tp/float64(nPos))
	}
	return roc, nil
}

// Area は台形公式で曲線下面積を返す。AUC と一致する。
func (r *ROC) Area() float64 {
	var area float64
	for i := 1; i < len(r.FPR); i++ {
		area += (r.FPR[i] - r.FPR[i-1]) * (r.TPR[i] + r.TPR[i-1]) / 2
	}
	return area
}

// youdenTol は J の同点判定の許容幅。TPR, FPR は割り算の結果なので
// 数学的に等しい J が丸め誤差でずれる。
const youdenTol = 1e-12

// YoudenThreshold は J = TPR - FPR を最大にする閾値と、そのときの J を返す。
// 同点の場合はより高い閾値（先に現れる点）を選ぶ。
func YoudenThreshold(yTrue, score *mat.VecDense) (threshold, j float64, err error) {
	roc, err := ROCCurve(yTrue, score)
	if err != nil {
		return 0, 0, err
	}
	best := -1
	j = math.Inf(-1)
	for i := 1; i < len(roc.Thresholds); i++ {
		if v := roc.TPR[i] - roc.FPR[i]; v > j+youdenTol {
			j, best = v, i
		}
	}
	return roc.Thresholds[best], j, nil
}

// ConfusionMatrix は2×2の混同行列。
type ConfusionMatrix struct {
	TP, FP, TN, FN int
}

// NewConfusionMatrix はクラスラベル（0/1）同士から混同行列を作る。
// positive は陽性とみなすラベル値。
func NewConfusionMatrix(yTrue, yPred *mat.VecDense, positive float64) (*ConfusionMatrix, error) {
	n, err := validatePair("ConfusionMatrix", yTrue, yPred)
	if err != nil {
		return nil, err
	}
	if _, _, err := validateBinaryLabels("ConfusionMatrix", yTrue); err != nil {
		return nil, err
	}
	if _, _, err := validateBinaryLabels("ConfusionMatrix", yPred); err != nil {
		return nil, err
	}

	cm := &ConfusionMatrix{}
	for i := 0; i < n; i++ {
		actual := yTrue.AtVec(i) == positive
		predicted := yPred.AtVec(i) == positive
		switch {
		case actual && predicted:
			cm.TP++
		case !actual && predicted:
			cm.FP++
		case actual && !predicted:
			cm.FN++
		default:
			cm.TN++
		}
	}
	return cm, nil
}

// Total は全件数
func (c *ConfusionMatrix) Total() int { return c.TP + c.FP + c.TN + c.FN }

// Accuracy は (TP+TN)/N
func (c *ConfusionMatrix) Accuracy() float64 {
	return errors.SafeDivide(float64(c.TP+c.TN), float64(c.Total()))
}

// Sensitivity（再現率）は TP/(TP+FN)
func (c *ConfusionMatrix) Sensitivity() float64 {
	return errors.SafeDivide(float64(c.TP), float64(c.TP+c.FN))
}

// Specificity は TN/(TN+FP)
func (c *ConfusionMatrix) Specificity() float64 {
	return errors.SafeDivide(float64(c.TN), float64(c.TN+c.FP))
}

// Precision は TP/(TP+FP)
func (c *ConfusionMatrix) Precision() float64 {
	return errors.SafeDivide(float64(c.TP), float64(c.TP+c.FP))
}

// F1 は適合率と再現率の調和平均
func (c *ConfusionMatrix) F1() float64 {
	p, r := c.Precision(), c.Sensitivity()
	return errors.SafeDivide(2*p*r, p+r)
}

// Kappa は Cohen's kappa
func (c *ConfusionMatrix) Kappa() float64 {
	n := float64(c.Total())
	if n == 0 {
		return 0
	}
	po := float64(c.TP+c.TN) / n
	pe := (float64(c.TP+c.FP)*float64(c.TP+c.FN) + float64(c.TN+c.FN)*float64(c.TN+c.FP)) / (n * n)
	return errors.SafeDivide(po-pe, 1-pe)
}

// MCC は Matthews 相関係数
func (c *ConfusionMatrix) MCC() float64 {
	tp, fp, tn, fn := float64(c.TP), float64(c.FP), float64(c.TN), float64(c.FN)
	den := math.Sqrt((tp + fp) * (tp + fn) * (tn + fp) * (tn + fn))
	return errors.SafeDivide(tp*tn-fp*fn, den)
}

// Dense は [[TN, FP], [FN, TP]] の順（行: 実測 0/1、列: 予測 0/1）で返す
func (c *ConfusionMatrix) Dense() *mat.Dense {
	return mat.NewDense(2, 2, []float64{
		float64(c.TN), float64(c.FP),
		float64(c.FN), float64(c.TP),
	})
}
