package value

// Some wraps a present optional value. None (scalar.go) is
// the absent case; there is no separate "Option" wrapper type for None
// since None is itself a complete, shareable value.
type Some struct {
	Inner Value
}

func NewSome(v Value) *Some { return &Some{Inner: v} }

func (*Some) Type() string     { return "Some" }
func (s *Some) String() string { return "Some(" + s.Inner.String() + ")" }

func (s *Some) Equal(o Value) (bool, error) {
	os, ok := o.(*Some)
	if !ok {
		return false, nil
	}
	if s == os {
		return true, nil
	}
	eq, ok := s.Inner.(HasEqual)
	if !ok {
		return false, &TypeError{Op: "equality", Left: s.Inner.Type()}
	}
	return eq.Equal(os.Inner)
}

// Left and Right are the two cases of an either-value.
// Left(a) == Right(b) is always false regardless of a and b's contents;
// ordering between a Left and a Right is an error.
type Left struct {
	Inner Value
}

func NewLeft(v Value) *Left { return &Left{Inner: v} }

func (*Left) Type() string     { return "Left" }
func (l *Left) String() string { return "Left(" + l.Inner.String() + ")" }

func (l *Left) Equal(o Value) (bool, error) {
	ol, ok := o.(*Left)
	if !ok {
		return false, nil
	}
	if l == ol {
		return true, nil
	}
	eq, ok := l.Inner.(HasEqual)
	if !ok {
		return false, &TypeError{Op: "equality", Left: l.Inner.Type()}
	}
	return eq.Equal(ol.Inner)
}

type Right struct {
	Inner Value
}

func NewRight(v Value) *Right { return &Right{Inner: v} }

func (*Right) Type() string     { return "Right" }
func (r *Right) String() string { return "Right(" + r.Inner.String() + ")" }

func (r *Right) Equal(o Value) (bool, error) {
	or, ok := o.(*Right)
	if !ok {
		return false, nil
	}
	if r == or {
		return true, nil
	}
	eq, ok := r.Inner.(HasEqual)
	if !ok {
		return false, &TypeError{Op: "equality", Left: r.Inner.Type()}
	}
	return eq.Equal(or.Inner)
}
