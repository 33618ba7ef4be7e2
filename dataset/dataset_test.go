package dataset

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/bankloan/pkg/errors"
)

const header = "ID,Age,Experience,Income,ZIP.Code,Family,CCAvg,Education,Mortgage,Personal.Loan,Securities.Account,CD.Account,Online,CreditCard\n"

func loadRecoded(t *testing.T, body string) *Frame {
	t.Helper()
	raw, err := ReadCSV(strings.NewReader(body))
	require.NoError(t, err)
	f, err := Recode(raw)
	require.NoError(t, err)
	return f
}

func TestReadAndRecode(t *testing.T) {
	body := header +
		"1,25,1,49,91107,4,1.60,1,0,0,1,0,0,0\n" +
		"2,45,19,34,90089,3,1.50,2,0,1,1,0,0,0\n" +
		"3,39,15,11,94720,1,1.00,3,0,0,0,1,1,1\n"

	f := loadRecoded(t, body)

	assert.Equal(t, 3, f.Nrow())
	assert.Equal(t, []string{"Undergrad", "Graduate", "Phd"}, f.Strings(ColEducation))
	assert.Equal(t, []string{"Yes", "Yes", "No"}, f.Strings(ColSecurities))
	assert.Equal(t, []string{"No", "Yes", "No"}, f.Strings(ColLabel))
	assert.Equal(t, []float64{1.6, 1.5, 1.0}, f.Floats(ColCCAvg))

	y, err := f.Label()
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 0}, y)

	assert.Equal(t, []string{"No", "Yes"}, f.Levels(ColLabel))
	assert.Equal(t, []string{"90089", "91107", "94720"}, f.Levels(ColZIPCode))
	assert.True(t, f.Schema().IsCategorical(ColCreditCard))
	assert.False(t, f.Schema().IsCategorical(ColIncome))
}

func TestPredictorsExcludeIDAndLabel(t *testing.T) {
	f := &Frame{}
	preds := f.Predictors()

	assert.Len(t, preds, 12)
	assert.NotContains(t, preds, ColID)
	assert.NotContains(t, preds, ColLabel)
	assert.Equal(t, ColAge, preds[0])
	assert.Equal(t, ColCreditCard, preds[len(preds)-1])
}

func TestReadCSVNormalisesHeaders(t *testing.T) {
	body := "ID,Age,Experience,Income,ZIP Code,Family,CCAvg,Education,Mortgage,Personal Loan,Securities Account,CD Account,Online,CreditCard\n" +
		"1,25,1,49,91107,4,1/60,1,0,0,1,0,0,0\n" +
		"2,45,19,34,90089,3,1/50,2,0,1,1,0,0,0\n"

	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	defer errors.SetWarningHandler(nil)

	f := loadRecoded(t, body)

	assert.Equal(t, []float64{1.6, 1.5}, f.Floats(ColCCAvg))
	require.Len(t, warnings, 1)
	var dcw *errors.DataConversionWarning
	require.True(t, errors.As(warnings[0], &dcw))
	assert.Equal(t, ColCCAvg, dcw.Column)
}

func TestRecodeErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantCol string
		wantRow int
	}{
		{
			name:    "unknown education code",
			body:    header + "1,25,1,49,91107,4,1.6,4,0,0,1,0,0,0\n2,25,1,49,91107,4,1.6,1,0,1,1,0,0,0\n",
			wantCol: ColEducation,
			wantRow: 0,
		},
		{
			name:    "label outside 0/1",
			body:    header + "1,25,1,49,91107,4,1.6,1,0,0,1,0,0,0\n2,25,1,49,91107,4,1.6,1,0,2,1,0,0,0\n",
			wantCol: ColLabel,
			wantRow: 1,
		},
		{
			name:    "single class",
			body:    header + "1,25,1,49,91107,4,1.6,1,0,0,1,0,0,0\n2,25,1,49,91107,4,1.6,1,0,0,1,0,0,0\n",
			wantCol: ColLabel,
			wantRow: -1,
		},
		{
			name:    "non numeric income",
			body:    header + "1,25,1,abc,91107,4,1.6,1,0,0,1,0,0,0\n2,25,1,49,91107,4,1.6,1,0,1,1,0,0,0\n",
			wantCol: ColIncome,
			wantRow: 0,
		},
		{
			name:    "missing zip code",
			body:    header + "1,25,1,49,91107,4,1.6,1,0,0,1,0,0,0\n2,25,1,49,NA,4,1.6,1,0,1,1,0,0,0\n",
			wantCol: ColZIPCode,
			wantRow: 1,
		},
		{
			name:    "missing income",
			body:    header + "1,25,1,NA,91107,4,1.6,1,0,0,1,0,0,0\n2,25,1,49,91107,4,1.6,1,0,1,1,0,0,0\n",
			wantCol: ColIncome,
			wantRow: 0,
		},
		{
			name:    "NaN mortgage",
			body:    header + "1,25,1,49,91107,4,1.6,1,0,0,1,0,0,0\n2,25,1,49,91107,4,1.6,1,NaN,1,1,0,0,0\n",
			wantCol: ColMortgage,
			wantRow: 1,
		},
		{
			name:    "infinite CCAvg",
			body:    header + "1,25,1,49,91107,4,Inf,1,0,0,1,0,0,0\n2,25,1,49,91107,4,1.6,1,0,1,1,0,0,0\n",
			wantCol: ColCCAvg,
			wantRow: 0,
		},
		{
			name:    "missing label",
			body:    header + "1,25,1,49,91107,4,1.6,1,0,NA,1,0,0,0\n2,25,1,49,91107,4,1.6,1,0,1,1,0,0,0\n",
			wantCol: ColLabel,
			wantRow: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := ReadCSV(strings.NewReader(tt.body))
			require.NoError(t, err)

			_, err = Recode(raw)
			var se *errors.SchemaError
			require.True(t, errors.As(err, &se), "got %v", err)
			assert.Equal(t, tt.wantCol, se.Column)
			assert.Equal(t, tt.wantRow, se.Row)
		})
	}
}

func TestRecodeMissingZIPIsNotALevel(t *testing.T) {
	body := header +
		"1,25,1,49,91107,4,1.6,1,0,0,1,0,0,0\n" +
		"2,25,1,49,NA,4,1.6,1,0,1,1,0,0,0\n"
	raw, err := ReadCSV(strings.NewReader(body))
	require.NoError(t, err)

	f, err := Recode(raw)
	require.Error(t, err)
	assert.Nil(t, f)
	assert.Contains(t, err.Error(), "missing value")
}

func TestReadCSVMissingColumn(t *testing.T) {
	body := "ID,Age,Experience,Income,Family,CCAvg,Education,Mortgage,Personal.Loan,Securities.Account,CD.Account,Online,CreditCard\n" +
		"1,25,1,49,4,1.6,1,0,0,1,0,0,0\n"

	_, err := ReadCSV(strings.NewReader(body))
	var se *errors.SchemaError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, ColZIPCode, se.Column)
}

func TestReadCSVEmpty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(header))
	assert.Error(t, err)
}

func TestRecodeIsIdempotent(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Synthetic(&buf, 50, 7))
	once := loadRecoded(t, buf.String())

	twice, err := Recode(once)
	require.NoError(t, err)

	for _, col := range []string{ColEducation, ColLabel, ColZIPCode, ColOnline} {
		assert.Equal(t, once.Strings(col), twice.Strings(col), col)
		assert.Equal(t, once.Levels(col), twice.Levels(col), col)
	}
	assert.Equal(t, once.Floats(ColIncome), twice.Floats(ColIncome))
}

func TestSubsetKeepsSchema(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Synthetic(&buf, 40, 1))
	f := loadRecoded(t, buf.String())

	sub, err := f.Subset([]int{0, 2, 4})
	require.NoError(t, err)

	assert.Equal(t, 3, sub.Nrow())
	assert.Same(t, f.Schema(), sub.Schema())
	assert.Equal(t, f.Levels(ColZIPCode), sub.Levels(ColZIPCode))
}

func TestWithPredictions(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Synthetic(&buf, 3, 1))
	f := loadRecoded(t, buf.String())

	out, err := f.WithPredictions([]float64{0.1, 0.9, 0.5}, []string{"No", "Yes", "No"})
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float64{0.9, 0.1, 0.5}, out.Floats(ColPredNo), 1e-12)
	assert.Equal(t, []string{"No", "Yes", "No"}, out.Strings(ColPredClass))
	assert.Equal(t, f.Nrow(), out.Nrow())

	var csvOut bytes.Buffer
	require.NoError(t, out.WriteCSV(&csvOut))
	assert.Contains(t, strings.SplitN(csvOut.String(), "\n", 2)[0], ColPredYes)

	_, err = f.WithPredictions([]float64{0.1}, []string{"No"})
	assert.Error(t, err)
}

func TestSyntheticDeterministic(t *testing.T) {
	var a, b bytes.Buffer
	require.NoError(t, Synthetic(&a, 100, 42))
	require.NoError(t, Synthetic(&b, 100, 42))
	assert.Equal(t, a.String(), b.String())

	f := loadRecoded(t, a.String())
	assert.Equal(t, 100, f.Nrow())
}
