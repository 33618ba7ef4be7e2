package preprocessing

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/bankloan/dataset"
	"github.com/YuminosukeSato/bankloan/pkg/errors"
)

func syntheticFrame(t *testing.T, n int) *dataset.Frame {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, dataset.Synthetic(&buf, n, 3))
	raw, err := dataset.ReadCSV(&buf)
	require.NoError(t, err)
	f, err := dataset.Recode(raw)
	require.NoError(t, err)
	return f
}

func TestOrdinalEncoder(t *testing.T) {
	f := syntheticFrame(t, 30)

	enc := NewOrdinalEncoder()
	X, err := enc.FitTransform(f)
	require.NoError(t, err)

	r, c := X.Dims()
	assert.Equal(t, 30, r)
	assert.Equal(t, 12, c)
	assert.Equal(t, f.Predictors(), enc.FeatureNames())

	// ZIP.Code, Education, Securities.Account, CD.Account, Online, CreditCard
	assert.Equal(t, []int{3, 6, 8, 9, 10, 11}, enc.CategoricalIndices())

	edu := f.Strings(dataset.ColEducation)
	for i := 0; i < r; i++ {
		level, err := enc.InverseCategory(dataset.ColEducation, int(X.At(i, 6)))
		require.NoError(t, err)
		assert.Equal(t, edu[i], level)
	}

	income := f.Floats(dataset.ColIncome)
	for i := 0; i < r; i++ {
		assert.Equal(t, income[i], X.At(i, 2))
	}
}

func TestOrdinalEncoderSharedLevelsAcrossSubsets(t *testing.T) {
	f := syntheticFrame(t, 60)
	train, err := f.Subset([]int{0, 1, 2, 3, 4, 5})
	require.NoError(t, err)
	test, err := f.Subset([]int{50, 51, 52})
	require.NoError(t, err)

	enc := NewOrdinalEncoder()
	require.NoError(t, enc.Fit(train))

	_, err = enc.Transform(test)
	assert.NoError(t, err)
	assert.Equal(t, f.Levels(dataset.ColZIPCode), enc.Categories[dataset.ColZIPCode])
}

func TestOrdinalEncoderNotFitted(t *testing.T) {
	f := syntheticFrame(t, 5)

	_, err := NewOrdinalEncoder().Transform(f)
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))
}

func TestOrdinalEncoderRejectsRawFrame(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, dataset.Synthetic(&buf, 5, 3))
	raw, err := dataset.ReadCSV(strings.NewReader(buf.String()))
	require.NoError(t, err)

	assert.Error(t, NewOrdinalEncoder().Fit(raw))
}

func TestInverseCategoryErrors(t *testing.T) {
	enc := NewOrdinalEncoder()
	require.NoError(t, enc.Fit(syntheticFrame(t, 5)))

	_, err := enc.InverseCategory(dataset.ColIncome, 0)
	assert.Error(t, err)
	_, err = enc.InverseCategory(dataset.ColEducation, 3)
	assert.Error(t, err)
}
