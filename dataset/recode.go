package dataset

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/go-gota/gota/series"

	"github.com/YuminosukeSato/bankloan/pkg/errors"
)

var (
	yesNo = map[string]string{"0": LevelNo, "1": LevelYes}

	education = map[string]string{
		"1": LevelUndergrad,
		"2": LevelGraduate,
		"3": LevelPhd,
	}

	// fixed level tables; ZIP.Code levels come from the data
	fixedLevels = map[string][]string{
		ColLabel:      {LevelNo, LevelYes},
		ColEducation:  {LevelUndergrad, LevelGraduate, LevelPhd},
		ColSecurities: {LevelNo, LevelYes},
		ColCDAccount:  {LevelNo, LevelYes},
		ColOnline:     {LevelNo, LevelYes},
		ColCreditCard: {LevelNo, LevelYes},
	}

	codeTables = map[string]map[string]string{
		ColLabel:      yesNo,
		ColEducation:  education,
		ColSecurities: yesNo,
		ColCDAccount:  yesNo,
		ColOnline:     yesNo,
		ColCreditCard: yesNo,
	}
)

// Schema records the kind of every predictor and the ordered level set of
// every categorical column (the label included).
type Schema struct {
	levels map[string][]string
}

// Levels returns the ordered levels of col, or nil for a numeric column.
func (s *Schema) Levels(col string) []string {
	return s.levels[col]
}

// IsCategorical reports whether col has a level set.
func (s *Schema) IsCategorical(col string) bool {
	_, ok := s.levels[col]
	return ok
}

// Recode maps the integer codes to their categories and parses numeric
// columns. Already recoded level strings pass through unchanged, so Recode
// is idempotent. The label must contain both classes.
func Recode(f *Frame) (*Frame, error) {
	df := f.df
	schema := &Schema{levels: make(map[string][]string, len(fixedLevels)+1)}

	for _, col := range Columns {
		// gota stores NA cells as NaN and prints them as "NaN"
		if col != ColID {
			if i := firstMissing(df.Col(col)); i >= 0 {
				return nil, errors.NewSchemaError(col, i, "NA", "missing value")
			}
		}
		recs := df.Col(col).Records()
		switch {
		case numericColumns[col]:
			vals, err := parseNumeric(col, recs)
			if err != nil {
				return nil, err
			}
			df = df.Mutate(series.New(vals, series.Float, col))

		case col == ColZIPCode:
			zips := make([]string, len(recs))
			for i, v := range recs {
				v = strings.TrimSpace(v)
				if v == "" {
					return nil, errors.NewSchemaError(col, i, v, "missing value")
				}
				zips[i] = v
			}
			schema.levels[col] = distinctSorted(zips)
			df = df.Mutate(series.New(zips, series.String, col))

		case codeTables[col] != nil:
			vals, err := mapCodes(col, recs, codeTables[col], fixedLevels[col])
			if err != nil {
				return nil, err
			}
			schema.levels[col] = fixedLevels[col]
			df = df.Mutate(series.New(vals, series.String, col))
		}
		if df.Err != nil {
			return nil, errors.Wrapf(df.Err, "recode %s", col)
		}
	}

	out := &Frame{df: df, schema: schema}
	y, err := out.Label()
	if err != nil {
		return nil, err
	}
	var pos int
	for _, v := range y {
		if v == 1 {
			pos++
		}
	}
	if pos == 0 || pos == len(y) {
		return nil, errors.NewSchemaError(ColLabel, -1, "", "label must contain both No and Yes")
	}
	return out, nil
}

func mapCodes(col string, recs []string, table map[string]string, levels []string) ([]string, error) {
	valid := make(map[string]bool, len(levels))
	for _, l := range levels {
		valid[l] = true
	}
	out := make([]string, len(recs))
	for i, raw := range recs {
		v := strings.TrimSpace(raw)
		if valid[v] {
			out[i] = v
			continue
		}
		// "1.0" style codes from spreadsheets
		if f, err := strconv.ParseFloat(v, 64); err == nil && f == float64(int(f)) {
			v = strconv.Itoa(int(f))
		}
		level, ok := table[v]
		if !ok {
			return nil, errors.NewSchemaError(col, i, raw, "unknown code")
		}
		out[i] = level
	}
	return out, nil
}

func parseNumeric(col string, recs []string) ([]float64, error) {
	out := make([]float64, len(recs))
	warned := false
	for i, raw := range recs {
		v := strings.TrimSpace(raw)
		// Some exports of this dataset write CCAvg as "1/60" for 1.60.
		if strings.Count(v, "/") == 1 {
			v = strings.Replace(v, "/", ".", 1)
			if !warned {
				errors.Warn(errors.NewDataConversionWarning(col, "string", "float64",
					"decimal separator '/' read as '.'"))
				warned = true
			}
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, errors.NewSchemaError(col, i, raw, "not a number")
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, errors.NewSchemaError(col, i, raw, "not a finite number")
		}
		out[i] = f
	}
	return out, nil
}

// firstMissing returns the row of the first NA cell in s, or -1.
func firstMissing(s series.Series) int {
	for i, na := range s.IsNaN() {
		if na {
			return i
		}
	}
	return -1
}

func distinctSorted(vals []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range vals {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
