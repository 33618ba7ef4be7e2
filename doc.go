// Package bankloan predicts personal-loan uptake from a bank's customer
// table with gradient-boosted trees.
//
// The module is organised the way a scikit-learn style library is:
//
//   - dataset: CSV ingestion and recoding into categorical levels (gota)
//   - preprocessing: ordinal encoding of predictors into a design matrix
//   - sklearn/lightgbm: histogram-based boosted trees with native
//     categorical splits and an LGBMClassifier front end
//   - sklearn/model_selection: stratified split, bootstrap resamples,
//     Latin-hypercube grids and parallel grid tuning
//   - metrics: ROC AUC, log loss, accuracy, ROC curves and confusion matrices
//   - report: gonum/plot figures, console tables and the YAML run summary
//   - analysis: the end-to-end study; cmd/bankloan is its CLI
//
// # Quick Start
//
//	bankloan analyze --data UniversalBank.csv --out-dir out
//
// or, from Go:
//
//	cfg := config.Default()
//	cfg.Data = "UniversalBank.csv"
//	res, err := analysis.Run(ctx, cfg, log.GetLoggerWithName("analysis"))
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res.Best.ID, res.TestMetrics)
//
// # Error Handling
//
// Errors are built on github.com/cockroachdb/errors and carry stack
// traces. Typed errors (NotFittedError, DimensionError, ValidationError,
// SchemaError) can be matched with errors.As; warnings such as
// ConvergenceWarning are routed to the zerolog logger.
package bankloan
