package rule

// Base provides the bookkeeping every rule needs. Embed it in a
// rule struct and register operations in the constructor:
//
//	r := &Branching{}
//	r.Base = rule.NewBase[*snapshot.Snapshot]("branching", r)
//	r.Check("checkDefaultBranchIsMain", r.checkDefaultBranchIsMain)
type Base[S any] struct {
	id      string
	name    string
	ops     []Operation[S]
	options map[string]Options
}

// NewBase creates a Base whose display name is derived from the
// type name of owner.
func NewBase[S any](id string, owner any) *Base[S] {
	return NewNamedBase[S](id, DisplayName(TypeName(owner)))
}

// NewNamedBase creates a Base with an explicit display name.
func NewNamedBase[S any](id, name string) *Base[S] {
	return &Base[S]{
		id:      id,
		name:    name,
		options: make(map[string]Options),
	}
}

// ID returns the rule identifier.
func (b *Base[S]) ID() string { return b.id }

// Name returns the rule display name.
func (b *Base[S]) Name() string { return b.name }

// Operations returns a copy of the registered operations in
// declaration order.
func (b *Base[S]) Operations() []Operation[S] {
	out := make([]Operation[S], len(b.ops))
	copy(out, b.ops)
	return out
}

// Options returns the options declared for name.
func (b *Base[S]) Options(name string) (Options, bool) {
	o, ok := b.options[name]
	return o, ok
}

// Check registers a check operation. If opts is given its first
// element is recorded as the check's options. The zero Base is
// ready to use.
func (b *Base[S]) Check(
	name string, fn CheckFunc[S], opts ...Options,
) *Base[S] {
	b.ops = append(b.ops, Operation[S]{Name: name, Check: fn})
	if len(opts) > 0 {
		if b.options == nil {
			b.options = make(map[string]Options)
		}
		b.options[name] = opts[0]
	}
	return b
}

// Fix registers a repair operation.
func (b *Base[S]) Fix(name string, fn FixFunc[S]) *Base[S] {
	b.ops = append(b.ops, Operation[S]{Name: name, Fix: fn})
	return b
}

// Metric registers a metric operation.
func (b *Base[S]) Metric(name string, fn MetricFunc[S]) *Base[S] {
	b.ops = append(b.ops, Operation[S]{Name: name, Metric: fn})
	return b
}
