// Package lightgbm provides a pure Go gradient boosting decision tree
// implementation in the style of LightGBM, focused on binary classification.
//
// Features:
//   - Histogram-based split finding on pre-binned features
//   - Leaf-wise (best-first) growth bounded by num_leaves and max_depth
//   - Native categorical splits on integer category codes
//   - Row bagging and per-tree column sampling from a seeded PCG stream
//   - scikit-learn style classifier with builder options
//   - JSON model persistence
//
// # scikit-learn Compatible API
//
//	clf := lightgbm.NewLGBMClassifier().
//	    WithNumIterations(1000).
//	    WithMaxDepth(6).
//	    WithLearningRate(0.05).
//	    WithCategoricalFeatures([]int{3, 6, 8, 9, 10, 11})
//
//	if err := clf.Fit(XTrain, yTrain); err != nil {
//	    return err
//	}
//	proba, _ := clf.PredictProba(XTest)   // n×2: P(0), P(1)
//	labels, _ := clf.PredictWithThreshold(XTest, 0.866, 0)
//
// Labels must be 0 and 1 and both must be present.
//
// # Tuning Names
//
// SetParams accepts the boosted-tree tuning names as aliases:
//
//	trees          → n_estimators
//	tree_depth     → max_depth
//	min_n          → min_child_weight (minimum hessian sum per leaf)
//	loss_reduction → min_split_gain
//	sample_size    → subsample (with subsample_freq = 1)
//	mtry           → columns per tree (colsample_bytree = mtry / n_features)
//	learn_rate     → learning_rate
//
// # Low-level Training
//
//	params := lightgbm.DefaultTrainingParams()
//	params.NumIterations = 200
//	trainer := lightgbm.NewTrainer(params).
//	    WithCallbacks(lightgbm.LogEvaluation(logger, 50))
//	if err := trainer.Fit(X, y); err != nil {
//	    return err
//	}
//	model := trainer.GetModel()
//
// # Persistence
//
//	if err := model.SaveToFile("model.json"); err != nil {
//	    return err
//	}
//	loaded, err := lightgbm.LoadModelFromFile("model.json")
//
// Prediction parallelises over rows with core/parallel once a batch is
// large enough; set NumThreads to 1 for sequential prediction.
package lightgbm
