// Package hyperion implements a dimensionality-reduction and classification
// pipeline for hyperspectral remote-sensing imagery.
//
// Each dataset is processed as a linear pipeline: the spectral cube is
// flattened to a sample-by-band table, standardized, reduced to a small set
// of independent components with FastICA, and classified with a multiclass
// gradient-boosted decision-tree ensemble trained with validation-based
// early stopping. The full-cube predictions are reshaped back into a 2D
// classification map and rendered next to the ground truth.
//
// # Packages
//
//   - preprocessing: StandardScaler for per-band standardization
//   - decomposition: FastICA independent component analysis
//   - modelselection: seeded stratified train/test splitting
//   - gbdt: histogram-based gradient-boosted tree classifier
//   - metrics: accuracy, confusion matrix, per-class classification report
//   - hsi: spectral cube and label map types, dataset loading
//   - render: side-by-side label map rendering
//   - pipeline: per-dataset orchestration
//   - core/model: shared estimator state and interfaces
//   - pkg/errors, pkg/log: error taxonomy and structured logging
//
// # Quick Start
//
//	p := pipeline.New(pipeline.DefaultConfig(), hsi.NewNpyLoader(), render.NewPlotRenderer("."))
//	res, err := p.Run(pipeline.Dataset{
//	    Name:      "pavia_university",
//	    CubePath:  "data/pavia_university.npy",
//	    LabelPath: "data/pavia_university_gt.npy",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%s accuracy: %.2f%%\n", res.Dataset, res.TestAccuracy*100)
package hyperion
