package backend

// Arg is one normalized entry of a minibatch (inputs, labels or
// auxiliary data). Dataset entries have variable arity: a field may be
// a single tensor, an ordered sequence of tensors, or empty. ArgOf
// normalizes all three into one calling convention before loss and
// metric functions see them.
type Arg struct {
	vals []Tensor
}

// ArgOf builds an Arg from a raw batch field. An empty slice becomes
// the explicit absent marker; everything else is kept in order.
func ArgOf(vals ...Tensor) Arg {
	if len(vals) == 0 {
		return Arg{}
	}
	out := make([]Tensor, len(vals))
	copy(out, vals)
	return Arg{vals: out}
}

// Absent reports whether the entry carried no data.
func (a Arg) Absent() bool { return len(a.vals) == 0 }

// Single returns the bare element when the entry holds exactly one
// tensor. This is the unwrapped form of a single-element list.
func (a Arg) Single() (Tensor, bool) {
	if len(a.vals) == 1 {
		return a.vals[0], true
	}
	return nil, false
}

// Values returns all tensors of the entry in order.
func (a Arg) Values() []Tensor { return a.vals }

// Detach returns an Arg whose tensors are all detached.
func (a Arg) Detach() Arg {
	if a.Absent() {
		return Arg{}
	}
	out := make([]Tensor, len(a.vals))
	for i, v := range a.vals {
		out[i] = v.Detach()
	}
	return Arg{vals: out}
}
