package bayes

// factor is a table over a set of discrete variables. Values are stored in
// row-major order of vars: the last variable varies fastest.
type factor struct {
	vars   []int
	card   []int
	values []float64
}

func (f *factor) has(v int) bool {
	return f.pos(v) >= 0
}

func (f *factor) pos(v int) int {
	for i, x := range f.vars {
		if x == v {
			return i
		}
	}
	return -1
}

// strides returns the row-major stride of every variable.
func (f *factor) strides() []int {
	s := make([]int, len(f.vars))
	acc := 1
	for i := len(f.vars) - 1; i >= 0; i-- {
		s[i] = acc
		acc *= f.card[i]
	}
	return s
}

// cptFactor turns node i of the network into a factor over (parents..., i).
func cptFactor(n *Network, i int) *factor {
	node := n.Nodes[i]
	f := &factor{}
	for _, p := range node.Parents {
		pi := n.index[p]
		f.vars = append(f.vars, pi)
		f.card = append(f.card, len(n.Nodes[pi].States))
	}
	f.vars = append(f.vars, i)
	f.card = append(f.card, len(node.States))
	for _, row := range node.CPT {
		f.values = append(f.values, row...)
	}
	return f
}

// reduce fixes variable v to state s and drops it from the factor.
func (f *factor) reduce(v, s int) *factor {
	p := f.pos(v)
	if p < 0 {
		return f
	}
	out := &factor{}
	for i := range f.vars {
		if i != p {
			out.vars = append(out.vars, f.vars[i])
			out.card = append(out.card, f.card[i])
		}
	}
	out.values = make([]float64, size(out.card))
	strides := f.strides()
	assign := make([]int, len(f.vars))
	for idx := range out.values {
		rem := idx
		for i := len(f.vars) - 1; i >= 0; i-- {
			if i == p {
				assign[i] = s
				continue
			}
			assign[i] = rem % f.card[i]
			rem /= f.card[i]
		}
		off := 0
		for i, a := range assign {
			off += a * strides[i]
		}
		out.values[idx] = f.values[off]
	}
	return out
}

// product multiplies two factors over the union of their variables.
func product(a, b *factor) *factor {
	out := &factor{vars: append([]int(nil), a.vars...), card: append([]int(nil), a.card...)}
	for i, v := range b.vars {
		if !a.has(v) {
			out.vars = append(out.vars, v)
			out.card = append(out.card, b.card[i])
		}
	}
	out.values = make([]float64, size(out.card))
	as, bs := a.strides(), b.strides()
	apos := make([]int, len(out.vars))
	bpos := make([]int, len(out.vars))
	for i, v := range out.vars {
		apos[i], bpos[i] = a.pos(v), b.pos(v)
	}
	assign := make([]int, len(out.vars))
	for idx := range out.values {
		ao, bo := 0, 0
		for i := range out.vars {
			if apos[i] >= 0 {
				ao += assign[i] * as[apos[i]]
			}
			if bpos[i] >= 0 {
				bo += assign[i] * bs[bpos[i]]
			}
		}
		out.values[idx] = a.values[ao] * b.values[bo]
		for i := len(assign) - 1; i >= 0; i-- {
			assign[i]++
			if assign[i] < out.card[i] {
				break
			}
			assign[i] = 0
		}
	}
	return out
}

// sumOut marginalizes variable v away.
func (f *factor) sumOut(v int) *factor {
	p := f.pos(v)
	if p < 0 {
		return f
	}
	out := &factor{}
	for i := range f.vars {
		if i != p {
			out.vars = append(out.vars, f.vars[i])
			out.card = append(out.card, f.card[i])
		}
	}
	out.values = make([]float64, size(out.card))
	outStrides := out.strides()
	assign := make([]int, len(f.vars))
	for _, val := range f.values {
		off, j := 0, 0
		for i, a := range assign {
			if i == p {
				continue
			}
			off += a * outStrides[j]
			j++
		}
		out.values[off] += val
		for i := len(assign) - 1; i >= 0; i-- {
			assign[i]++
			if assign[i] < f.card[i] {
				break
			}
			assign[i] = 0
		}
	}
	return out
}

func size(card []int) int {
	n := 1
	for _, c := range card {
		n *= c
	}
	return n
}
