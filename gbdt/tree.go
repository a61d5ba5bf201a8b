package gbdt

// treeNode is one node of a fitted regression tree. Internal nodes route
// on x[feature] <= threshold; leaves carry the shrunken Newton step.
type treeNode struct {
	feature   int
	threshold float64
	left      int
	right     int
	value     float64
	leaf      bool
}

// tree is a single regression tree of the ensemble, stored as a flat node
// slice with the root at index 0.
type tree struct {
	nodes []treeNode
}

// predict walks the tree for one sample's raw feature vector.
func (t *tree) predict(x []float64) float64 {
	idx := 0
	for {
		node := &t.nodes[idx]
		if node.leaf {
			return node.value
		}
		if x[node.feature] <= node.threshold {
			idx = node.left
		} else {
			idx = node.right
		}
	}
}

// Model is a fitted gradient-boosted tree ensemble. Trees are stored
// iteration-major: the tree for class c of iteration i sits at
// i*NumClass + c.
type Model struct {
	NumClass      int
	NumFeatures   int
	BestIteration int
	trees         []tree
}

// NumTrees returns the total number of trees kept in the model.
func (m *Model) NumTrees() int {
	return len(m.trees)
}

// PredictRaw accumulates the per-class raw scores for one sample.
func (m *Model) PredictRaw(x []float64) []float64 {
	raw := make([]float64, m.NumClass)
	for i, tr := range m.trees {
		raw[i%m.NumClass] += tr.predict(x)
	}
	return raw
}
