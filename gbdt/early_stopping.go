package gbdt

import "math"

// earlyStopping tracks the best validation score seen so far and signals
// when the configured number of rounds has passed without improvement.
type earlyStopping struct {
	rounds          int
	minimize        bool
	bestScore       float64
	bestIteration   int
	roundsNoImprove int
	enabled         bool
}

// newEarlyStopping creates a handler that stops after rounds iterations
// without improvement of the monitored metric. A non-positive rounds value
// disables early stopping.
func newEarlyStopping(rounds int, metric string) *earlyStopping {
	if rounds <= 0 {
		return &earlyStopping{enabled: false}
	}

	minimize := true
	switch metric {
	case "accuracy", "auc", "precision", "recall", "f1":
		minimize = false
	}

	best := math.Inf(1)
	if !minimize {
		best = math.Inf(-1)
	}
	return &earlyStopping{
		rounds:    rounds,
		minimize:  minimize,
		bestScore: best,
		enabled:   true,
	}
}

// update records the score for an iteration and reports whether training
// should stop.
func (es *earlyStopping) update(iteration int, score float64) bool {
	if !es.enabled {
		return false
	}

	improved := score > es.bestScore
	if es.minimize {
		improved = score < es.bestScore
	}

	if improved {
		es.bestScore = score
		es.bestIteration = iteration
		es.roundsNoImprove = 0
	} else {
		es.roundsNoImprove++
	}
	return es.roundsNoImprove >= es.rounds
}
