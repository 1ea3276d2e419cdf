package bayes

import (
	"fmt"
	"math"
)

// cptTolerance bounds how far a CPT row may sum away from 1.
const cptTolerance = 1e-9

// Node is one discrete variable of a network. CPT has one row per parent
// configuration, in row-major order of the parents' states (the last parent
// varies fastest), and one column per state.
type Node struct {
	Name    string      `yaml:"name"`
	States  []string    `yaml:"states"`
	Parents []string    `yaml:"parents,omitempty"`
	CPT     [][]float64 `yaml:"cpt"`
}

// Network is a discrete Bayesian network definition. Definitions held by the
// Store are shared and must not be mutated; use Clone for a private copy.
type Network struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Nodes       []Node `yaml:"nodes"`

	index map[string]int
}

// Validate checks the structure and probabilities of the network and builds
// its node index. The first violation is returned.
func (n *Network) Validate() error {
	if n.Name == "" {
		return fmt.Errorf("network: name must not be empty")
	}
	if len(n.Nodes) == 0 {
		return fmt.Errorf("network %s: at least one node is required", n.Name)
	}
	index := make(map[string]int, len(n.Nodes))
	for i, node := range n.Nodes {
		if node.Name == "" {
			return fmt.Errorf("network %s: nodes[%d]: name must not be empty", n.Name, i)
		}
		if _, dup := index[node.Name]; dup {
			return fmt.Errorf("network %s: duplicate node %s", n.Name, node.Name)
		}
		index[node.Name] = i
	}
	for _, node := range n.Nodes {
		prefix := fmt.Sprintf("network %s: node %s", n.Name, node.Name)
		if len(node.States) == 0 {
			return fmt.Errorf("%s: states must not be empty", prefix)
		}
		seen := map[string]bool{}
		for _, s := range node.States {
			if seen[s] {
				return fmt.Errorf("%s: duplicate state %q", prefix, s)
			}
			seen[s] = true
		}
		rows := 1
		for _, p := range node.Parents {
			pi, ok := index[p]
			if !ok {
				return fmt.Errorf("%s: unknown parent %s", prefix, p)
			}
			rows *= len(n.Nodes[pi].States)
		}
		if len(node.CPT) != rows {
			return fmt.Errorf("%s: cpt must have %d rows, got %d", prefix, rows, len(node.CPT))
		}
		for r, row := range node.CPT {
			if len(row) != len(node.States) {
				return fmt.Errorf("%s: cpt row %d must have %d columns, got %d", prefix, r, len(node.States), len(row))
			}
			sum := 0.0
			for _, p := range row {
				if p < 0 || math.IsNaN(p) {
					return fmt.Errorf("%s: cpt row %d holds invalid probability %f", prefix, r, p)
				}
				sum += p
			}
			if math.Abs(sum-1) > cptTolerance {
				return fmt.Errorf("%s: cpt row %d must sum to 1, got %f", prefix, r, sum)
			}
		}
	}
	n.index = index
	if _, err := n.TopologicalOrder(); err != nil {
		n.index = nil
		return err
	}
	return nil
}

// TopologicalOrder returns node indices with every parent before its
// children, ties broken by definition order. Cycles are an error.
func (n *Network) TopologicalOrder() ([]int, error) {
	indegree := make([]int, len(n.Nodes))
	children := make([][]int, len(n.Nodes))
	for i, node := range n.Nodes {
		for _, p := range node.Parents {
			pi := n.index[p]
			children[pi] = append(children[pi], i)
			indegree[i]++
		}
	}
	order := make([]int, 0, len(n.Nodes))
	done := make([]bool, len(n.Nodes))
	for len(order) < len(n.Nodes) {
		next := -1
		for i := range n.Nodes {
			if !done[i] && indegree[i] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			return nil, fmt.Errorf("network %s: parent links form a cycle", n.Name)
		}
		done[next] = true
		order = append(order, next)
		for _, c := range children[next] {
			indegree[c]--
		}
	}
	return order, nil
}

// Node looks up a node by name. The network must have been validated.
func (n *Network) Node(name string) (*Node, bool) {
	i, ok := n.index[name]
	if !ok {
		return nil, false
	}
	return &n.Nodes[i], true
}

// StateIndex returns the position of state among the node's states.
func (n *Network) StateIndex(node, state string) (int, error) {
	nd, ok := n.Node(node)
	if !ok {
		return 0, fmt.Errorf("%w: %s in network %s", ErrUnknownNode, node, n.Name)
	}
	for i, s := range nd.States {
		if s == state {
			return i, nil
		}
	}
	return 0, fmt.Errorf("network %s: node %s has no state %q", n.Name, node, state)
}

// Clone returns a deep copy that shares nothing with n.
func (n *Network) Clone() *Network {
	c := &Network{Name: n.Name, Description: n.Description, Nodes: make([]Node, len(n.Nodes))}
	for i, node := range n.Nodes {
		cpt := make([][]float64, len(node.CPT))
		for r, row := range node.CPT {
			cpt[r] = append([]float64(nil), row...)
		}
		c.Nodes[i] = Node{
			Name:    node.Name,
			States:  append([]string(nil), node.States...),
			Parents: append([]string(nil), node.Parents...),
			CPT:     cpt,
		}
	}
	if n.index != nil {
		c.index = make(map[string]int, len(n.index))
		for k, v := range n.index {
			c.index[k] = v
		}
	}
	return c
}
