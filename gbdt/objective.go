package gbdt

import "math"

// hessian floor keeps leaf values finite for saturated probabilities
const minHessian = 1e-16

// softmaxObjective implements the multiclass cross-entropy (log-loss)
// objective with a softmax link. Raw scores are laid out sample-major:
// raw[i*numClass+c] is the score of class c for sample i.
type softmaxObjective struct {
	numClass int
}

// stableSoftmax writes softmax(logits) into out, shifting by the maximum
// logit for numerical stability.
func stableSoftmax(logits, out []float64) {
	maxLogit := logits[0]
	for _, v := range logits[1:] {
		if v > maxLogit {
			maxLogit = v
		}
	}
	sum := 0.0
	for i, v := range logits {
		out[i] = math.Exp(v - maxLogit)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
}

// gradients fills grad and hess (both sample-major, length n*numClass)
// from the current raw scores: grad = p - 1{y=c}, hess = p(1-p).
func (o *softmaxObjective) gradients(y []int, raw, grad, hess []float64) {
	k := o.numClass
	probs := make([]float64, k)
	for i := range y {
		offset := i * k
		stableSoftmax(raw[offset:offset+k], probs)
		for c := 0; c < k; c++ {
			p := probs[c]
			g := p
			if y[i] == c {
				g = p - 1
			}
			grad[offset+c] = g
			h := p * (1 - p)
			if h < minHessian {
				h = minHessian
			}
			hess[offset+c] = h
		}
	}
}

// logLoss returns the mean multiclass cross-entropy of the current raw
// scores against the targets.
func (o *softmaxObjective) logLoss(y []int, raw []float64) float64 {
	k := o.numClass
	probs := make([]float64, k)
	total := 0.0
	for i := range y {
		offset := i * k
		stableSoftmax(raw[offset:offset+k], probs)
		p := probs[y[i]]
		if p < 1e-15 {
			p = 1e-15
		}
		total += -math.Log(p)
	}
	return total / float64(len(y))
}
