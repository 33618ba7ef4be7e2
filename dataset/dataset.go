// Package dataset loads the bank-customer CSV and recodes it into the
// categorical form the model expects.
//
// A Frame wraps a gota DataFrame together with a Schema that fixes the level
// set of every categorical column. The schema is built once, before the
// train/test split, so every subset shares the same categories.
package dataset

import (
	"io"
	"os"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/YuminosukeSato/bankloan/pkg/errors"
)

// Column names in their normalised (dotted) form.
const (
	ColID          = "ID"
	ColAge         = "Age"
	ColExperience  = "Experience"
	ColIncome      = "Income"
	ColZIPCode     = "ZIP.Code"
	ColFamily      = "Family"
	ColCCAvg       = "CCAvg"
	ColEducation   = "Education"
	ColMortgage    = "Mortgage"
	ColLabel       = "Personal.Loan"
	ColSecurities  = "Securities.Account"
	ColCDAccount   = "CD.Account"
	ColOnline      = "Online"
	ColCreditCard  = "CreditCard"
	ColPredNo      = ".pred_No"
	ColPredYes     = ".pred_Yes"
	ColPredClass   = ".pred_class"
	LevelNo        = "No"
	LevelYes       = "Yes"
	LevelUndergrad = "Undergrad"
	LevelGraduate  = "Graduate"
	LevelPhd       = "Phd"
)

// Columns lists every expected input column in file order.
var Columns = []string{
	ColID, ColAge, ColExperience, ColIncome, ColZIPCode, ColFamily, ColCCAvg,
	ColEducation, ColMortgage, ColLabel, ColSecurities, ColCDAccount,
	ColOnline, ColCreditCard,
}

var numericColumns = map[string]bool{
	ColAge: true, ColExperience: true, ColIncome: true,
	ColFamily: true, ColCCAvg: true, ColMortgage: true,
}

// Frame is a recoded (or raw, before Recode) customer table.
type Frame struct {
	df     dataframe.DataFrame
	schema *Schema
}

// LoadCSV reads the CSV file at path.
func LoadCSV(path string) (*Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV parses a CSV stream. All columns are read as strings; header
// names are normalised ("Personal Loan" becomes "Personal.Loan") and every
// expected column must be present. The returned frame is raw: call Recode
// before using it.
func ReadCSV(r io.Reader) (*Frame, error) {
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return nil, errors.Wrap(df.Err, "read csv")
	}
	if df.Nrow() == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "read csv")
	}

	for _, name := range df.Names() {
		if norm := normaliseName(name); norm != name {
			df = df.Rename(norm, name)
			if df.Err != nil {
				return nil, errors.Wrapf(df.Err, "rename column %q", name)
			}
		}
	}

	present := make(map[string]bool, df.Ncol())
	for _, name := range df.Names() {
		present[name] = true
	}
	for _, col := range Columns {
		if !present[col] {
			return nil, errors.NewSchemaError(col, -1, "", "missing column")
		}
	}

	return &Frame{df: df.Select(Columns)}, nil
}

func normaliseName(name string) string {
	name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
	return strings.Join(strings.Fields(name), ".")
}

// DataFrame exposes the underlying gota frame.
func (f *Frame) DataFrame() dataframe.DataFrame { return f.df }

// Schema returns the level sets fixed by Recode, or nil for a raw frame.
func (f *Frame) Schema() *Schema { return f.schema }

// Nrow returns the number of rows.
func (f *Frame) Nrow() int { return f.df.Nrow() }

// Recoded reports whether Recode has been applied.
func (f *Frame) Recoded() bool { return f.schema != nil }

// Strings returns a column as strings.
func (f *Frame) Strings(col string) []string { return f.df.Col(col).Records() }

// Floats returns a numeric column.
func (f *Frame) Floats(col string) []float64 { return f.df.Col(col).Float() }

// Predictors lists the predictor columns in file order (ID and the label
// are excluded).
func (f *Frame) Predictors() []string {
	out := make([]string, 0, len(Columns)-2)
	for _, c := range Columns {
		if c != ColID && c != ColLabel {
			out = append(out, c)
		}
	}
	return out
}

// Levels returns the fixed level set of a categorical column.
func (f *Frame) Levels(col string) []string {
	if f.schema == nil {
		return nil
	}
	return f.schema.Levels(col)
}

// Label returns Personal.Loan as 0 (No) / 1 (Yes).
func (f *Frame) Label() ([]float64, error) {
	if !f.Recoded() {
		return nil, errors.NewNotFittedError("Frame", "Label")
	}
	recs := f.Strings(ColLabel)
	y := make([]float64, len(recs))
	for i, v := range recs {
		switch v {
		case LevelYes:
			y[i] = 1
		case LevelNo:
		default:
			return nil, errors.NewSchemaError(ColLabel, i, v, "label must be No or Yes")
		}
	}
	return y, nil
}

// Subset returns the rows at indices, sharing the schema.
func (f *Frame) Subset(indices []int) (*Frame, error) {
	if len(indices) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "subset")
	}
	sub := f.df.Subset(indices)
	if sub.Err != nil {
		return nil, errors.Wrap(sub.Err, "subset")
	}
	return &Frame{df: sub, schema: f.schema}, nil
}

// WithPredictions returns a copy with .pred_No, .pred_Yes and .pred_class
// appended. probYes holds P(Yes) per row.
func (f *Frame) WithPredictions(probYes []float64, class []string) (*Frame, error) {
	n := f.Nrow()
	if len(probYes) != n {
		return nil, errors.NewDimensionError("WithPredictions", n, len(probYes), 0)
	}
	if len(class) != n {
		return nil, errors.NewDimensionError("WithPredictions", n, len(class), 0)
	}
	probNo := make([]float64, n)
	for i, p := range probYes {
		probNo[i] = 1 - p
	}

	df := f.df.Mutate(series.New(probNo, series.Float, ColPredNo)).
		Mutate(series.New(probYes, series.Float, ColPredYes)).
		Mutate(series.New(class, series.String, ColPredClass))
	if df.Err != nil {
		return nil, errors.Wrap(df.Err, "append predictions")
	}
	return &Frame{df: df, schema: f.schema}, nil
}

// WriteCSV writes the frame with a header row.
func (f *Frame) WriteCSV(w io.Writer) error {
	return errors.Wrap(f.df.WriteCSV(w), "write csv")
}
