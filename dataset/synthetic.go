package dataset

import (
	"encoding/csv"
	"io"
	"math"
	"math/rand/v2"
	"strconv"

	"github.com/YuminosukeSato/bankloan/pkg/errors"
)

// Synthetic writes n rows of a customer table with the same columns and
// coding as the bank CSV. Loan uptake depends mostly on income, card spend,
// education and CD accounts, so a tree model separates the classes well.
// Output is deterministic for a given seed.
func Synthetic(w io.Writer, n int, seed uint64) error {
	if n < 2 {
		return errors.NewValidationError("n", "need at least two rows", n)
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	zips := []string{"91107", "90089", "94720", "94112", "91330", "92121", "95054", "90277"}

	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return errors.Wrap(err, "write header")
	}

	bit := func(p float64) int {
		if rng.Float64() < p {
			return 1
		}
		return 0
	}

	for i := 0; i < n; i++ {
		age := 23 + rng.IntN(45)
		exp := age - 23 - rng.IntN(3)
		income := 8 + rng.IntN(200)
		family := 1 + rng.IntN(4)
		ccavg := math.Round(rng.Float64()*float64(income)/20*10) / 10
		edu := 1 + rng.IntN(3)
		mortgage := 0
		if rng.Float64() < 0.3 {
			mortgage = 75 + rng.IntN(400)
		}
		cd := bit(0.06)

		z := -9 + 0.05*float64(income) + 0.6*ccavg + 1.2*float64(edu-1) + 0.5*float64(family) + 2.5*float64(cd)
		loan := bit(1 / (1 + math.Exp(-z)))

		// keep both classes present in tiny samples
		if i == 0 {
			loan = 0
		} else if i == 1 {
			loan = 1
		}

		rec := []string{
			strconv.Itoa(i + 1),
			strconv.Itoa(age),
			strconv.Itoa(exp),
			strconv.Itoa(income),
			zips[rng.IntN(len(zips))],
			strconv.Itoa(family),
			strconv.FormatFloat(ccavg, 'f', 2, 64),
			strconv.Itoa(edu),
			strconv.Itoa(mortgage),
			strconv.Itoa(loan),
			strconv.Itoa(bit(0.1)),
			strconv.Itoa(cd),
			strconv.Itoa(bit(0.6)),
			strconv.Itoa(bit(0.3)),
		}
		if err := cw.Write(rec); err != nil {
			return errors.Wrapf(err, "write row %d", i)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush csv")
}
