package metrics

import (
	"sort"

	"gonum.org/v1/gonum/mat"
)

// AveragePrecision はスコア降順に並べたときの、各陽性位置での適合率の平均を計算する。
// 陽性が1件も無ければ 0 を返す。
func AveragePrecision(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := validatePair("AveragePrecision", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	nPos, _, err := validateBinaryLabels("AveragePrecision", yTrue)
	if err != nil {
		return 0, err
	}
	if nPos == 0 {
		return 0, nil
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return yPred.AtVec(idx[a]) > yPred.AtVec(idx[b]) })

	var hits, sum float64
	for k, i := range idx {
		if yTrue.AtVec(i) == 1 {
			hits++
			sum += hits / float64(k+1)
		}
	}
	return sum / float64(nPos), nil
}
