package bayes

import (
	"context"
	"fmt"
	"sort"

	"github.com/inference-sim/collision-risk/risk/scene"
	"github.com/inference-sim/collision-risk/risk/situation"
	"github.com/sirupsen/logrus"
)

// Task is one vehicle to run a model for.
type Task struct {
	VehicleID int
	Role      situation.RoleTag
	Model     string
	Location  scene.Location
	// Features is handed unchanged to the model's evidence rules.
	Features any
}

func (t Task) result() Result {
	return Result{VehicleID: t.VehicleID, Model: t.Model, Role: t.Role}
}

// NodePosterior is the inferred distribution of one output node, with
// states in definition order.
type NodePosterior struct {
	Node   string
	States []StateProb
}

// Prob returns the probability of state, 0 if the state is unknown.
func (p NodePosterior) Prob(state string) float64 {
	for _, s := range p.States {
		if s.State == state {
			return s.Prob
		}
	}
	return 0
}

// Result is the inference outcome for one task. When Err is set the other
// outputs are empty.
type Result struct {
	VehicleID int
	Model     string
	Role      situation.RoleTag
	Outputs   []NodePosterior
	Evidence  map[string]string
	Err       error
}

// Output looks up the posterior of an output node.
func (r Result) Output(node string) (NodePosterior, bool) {
	for _, o := range r.Outputs {
		if o.Node == node {
			return o, true
		}
	}
	return NodePosterior{}, false
}

// Engine runs maneuver inference for a batch of tasks on a worker pool.
type Engine struct {
	store *Store
	pool  *Pool
	hops  int
}

// NewEngine creates an engine. hops > 0 limits the front-vehicle tasks to
// the hops nearest to the ego.
func NewEngine(store *Store, pool *Pool, hops int) *Engine {
	return &Engine{store: store, pool: pool, hops: hops}
}

// Infer filters the tasks by interaction hops and runs them on the pool,
// blocking until every task has finished. Per-task failures are reported in
// Result.Err; the returned error is only set for pool-level failures.
func (e *Engine) Infer(ctx context.Context, ego scene.Location, tasks []Task) ([]Result, error) {
	tasks = FilterInteractionHops(ego, tasks, e.hops)
	if len(tasks) == 0 {
		return nil, nil
	}
	return e.pool.Run(ctx, tasks, e.Run)
}

// Run performs inference for one task on a private copy of its network.
func (e *Engine) Run(t Task) Result {
	res := t.result()
	def, err := e.store.Load(t.Model)
	if err != nil {
		res.Err = err
		return res
	}
	rules, err := LookupRuleSet(t.Model)
	if err != nil {
		res.Err = err
		return res
	}
	net := def.Clone()

	var queries []string
	candidates := make(map[string][]StateProb, len(net.Nodes))
	for _, node := range net.Nodes {
		rule, ok := rules.Rules[node.Name]
		if !ok {
			res.Err = fmt.Errorf("%w: no evidence rule for %s in %s", ErrUnknownNode, node.Name, t.Model)
			return res
		}
		ev, err := rule(t.Features)
		if err != nil {
			res.Err = fmt.Errorf("evidence for %s: %w", node.Name, err)
			return res
		}
		if err := checkOutcomes(node, ev.Outcomes); err != nil {
			res.Err = err
			return res
		}
		if ev.Output {
			queries = append(queries, node.Name)
		}
		candidates[node.Name] = ev.Outcomes
	}

	evidence := FilterEvidence(candidates)
	outputs := make([]NodePosterior, 0, len(queries))
	for _, q := range queries {
		probs, err := Query(net, q, evidence)
		if err != nil {
			res.Err = err
			return res
		}
		node, _ := net.Node(q)
		post := NodePosterior{Node: q, States: make([]StateProb, len(probs))}
		for i, p := range probs {
			post.States[i] = StateProb{State: node.States[i], Prob: p}
		}
		outputs = append(outputs, post)
	}
	res.Outputs = outputs
	res.Evidence = evidence
	logrus.Debugf("vehicle %d %s: evidence %v outputs %v", t.VehicleID, t.Model, evidence, outputs)
	return res
}

// checkOutcomes requires the rule to report exactly the node's states, in
// any order.
func checkOutcomes(node Node, outcomes []StateProb) error {
	if len(outcomes) != len(node.States) {
		return fmt.Errorf("node %s: rule reported %d outcomes for %d states", node.Name, len(outcomes), len(node.States))
	}
	want := make(map[string]bool, len(node.States))
	for _, s := range node.States {
		want[s] = true
	}
	for _, o := range outcomes {
		if !want[o.State] {
			return fmt.Errorf("node %s: rule reported unknown state %q", node.Name, o.State)
		}
		delete(want, o.State)
	}
	return nil
}

// FilterInteractionHops keeps at most hops front-vehicle tasks, the ones
// nearest to the ego. Other tasks pass through. hops <= 0 disables the
// filter. Front tasks come first, by distance, followed by the rest in their
// original order.
func FilterInteractionHops(ego scene.Location, tasks []Task, hops int) []Task {
	if hops <= 0 {
		return tasks
	}
	var front, rest []Task
	for _, t := range tasks {
		if t.Role == situation.RoleFront {
			front = append(front, t)
		} else {
			rest = append(rest, t)
		}
	}
	if len(front) == 0 {
		return tasks
	}
	sort.SliceStable(front, func(i, j int) bool {
		return ego.Distance(front[i].Location) < ego.Distance(front[j].Location)
	})
	if len(front) > hops {
		front = front[:hops]
	}
	return append(front, rest...)
}
