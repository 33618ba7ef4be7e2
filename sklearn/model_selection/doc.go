// Package model_selection provides resampling and hyperparameter search for
// the boosted-tree classifier.
//
// The pieces compose in the order an analysis uses them:
//
//	split, _ := model_selection.TrainTestSplit(y, 0.75, 123, true)
//	boots, _ := model_selection.Bootstraps(yTrain, 25, 123, true)
//	space := model_selection.DefaultSpace().Finalize(nPredictors)
//	grid, _ := model_selection.LatinHypercube(space, 30, 123)
//	res, _ := model_selection.TuneGrid(ctx, model_selection.TuneConfig{
//	    X: XTrain, Y: yTrain, Resamples: boots, Grid: grid, NewModel: newClassifier,
//	})
//	best, _ := res.SelectBest(metrics.RocAUC)
//	final, _ := model_selection.FinalizeParams(newClassifier(), best)
//
// Candidate configurations are named "Preprocessor1_ModelNN" and resamples
// "BootstrapNN", zero-padded to the width of the largest index.
package model_selection
