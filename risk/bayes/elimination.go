package bayes

import (
	"fmt"
	"sort"
)

// Query computes the posterior distribution of node given hard evidence
// (node name -> state name) by variable elimination. The result is indexed
// like the node's states. A queried node that is itself evidence yields a
// point mass on the observed state.
func Query(n *Network, node string, evidence map[string]string) ([]float64, error) {
	nd, ok := n.Node(node)
	if !ok {
		return nil, fmt.Errorf("%w: %s in network %s", ErrUnknownNode, node, n.Name)
	}
	q := n.index[node]

	observed := make(map[int]int, len(evidence))
	for name, state := range evidence {
		s, err := n.StateIndex(name, state)
		if err != nil {
			return nil, err
		}
		observed[n.index[name]] = s
	}
	if s, ok := observed[q]; ok {
		out := make([]float64, len(nd.States))
		out[s] = 1
		return out, nil
	}

	factors := make([]*factor, 0, len(n.Nodes))
	for i := range n.Nodes {
		f := cptFactor(n, i)
		for v, s := range observed {
			f = f.reduce(v, s)
		}
		factors = append(factors, f)
	}

	hidden := map[int]bool{}
	for i := range n.Nodes {
		if _, ok := observed[i]; !ok && i != q {
			hidden[i] = true
		}
	}
	for len(hidden) > 0 {
		v := minDegree(hidden, factors)
		delete(hidden, v)

		var joint *factor
		rest := factors[:0:0]
		for _, f := range factors {
			if !f.has(v) {
				rest = append(rest, f)
				continue
			}
			if joint == nil {
				joint = f
			} else {
				joint = product(joint, f)
			}
		}
		if joint != nil {
			rest = append(rest, joint.sumOut(v))
		}
		factors = rest
	}

	result := &factor{values: []float64{1}}
	for _, f := range factors {
		result = product(result, f)
	}
	if len(result.vars) != 1 || result.vars[0] != q {
		return nil, fmt.Errorf("network %s: elimination left variables %v, want only %s", n.Name, result.vars, node)
	}
	total := 0.0
	for _, p := range result.values {
		total += p
	}
	if total <= 0 {
		return nil, fmt.Errorf("network %s: evidence %v has zero probability", n.Name, evidence)
	}
	out := make([]float64, len(result.values))
	for i, p := range result.values {
		out[i] = p / total
	}
	return out, nil
}

// minDegree picks the hidden variable with the fewest neighbours in the
// interaction graph of the current factors. Ties go to the lowest index.
func minDegree(hidden map[int]bool, factors []*factor) int {
	candidates := make([]int, 0, len(hidden))
	for v := range hidden {
		candidates = append(candidates, v)
	}
	sort.Ints(candidates)

	best, bestDegree := -1, -1
	for _, v := range candidates {
		neighbours := map[int]bool{}
		for _, f := range factors {
			if !f.has(v) {
				continue
			}
			for _, u := range f.vars {
				if u != v {
					neighbours[u] = true
				}
			}
		}
		if bestDegree < 0 || len(neighbours) < bestDegree {
			best, bestDegree = v, len(neighbours)
		}
	}
	return best
}
