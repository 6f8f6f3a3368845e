// Package expect routes inbound messages to the handlers waiting for them.
//
// A Registry keeps two ordered lists of expectations. Once-expectations are
// consumed by their first match; whenever-expectations stay registered and
// fire on every match. Dispatch checks the once-list first and fires at most
// one handler per message.
package expect

import "slices"

// Expectation pairs a predicate with the handler run when it matches.
type Expectation[M any] interface {
	Matches(msg M) bool
	Handle(msg M)
}

// Func adapts a pair of functions to Expectation.
type Func[M any] struct {
	Match func(M) bool
	Fn    func(M)
}

// Matches reports whether msg satisfies the predicate.
func (f Func[M]) Matches(msg M) bool { return f.Match(msg) }

// Handle runs the handler.
func (f Func[M]) Handle(msg M) { f.Fn(msg) }

// Registry holds once and whenever expectations. It is not safe for
// concurrent use; the owner serializes access.
type Registry[M any] struct {
	once     []Expectation[M]
	whenever []Expectation[M]
}

// NewRegistry returns an empty Registry.
func NewRegistry[M any]() *Registry[M] {
	return &Registry[M]{}
}

// RegisterOnce appends e to the once-list.
func (r *Registry[M]) RegisterOnce(e Expectation[M]) {
	r.once = append(r.once, e)
}

// RegisterWhenever appends e to the whenever-list.
func (r *Registry[M]) RegisterWhenever(e Expectation[M]) {
	r.whenever = append(r.whenever, e)
}

// Once is shorthand for RegisterOnce(Func{match, fn}).
func (r *Registry[M]) Once(match func(M) bool, fn func(M)) {
	r.RegisterOnce(Func[M]{Match: match, Fn: fn})
}

// Whenever is shorthand for RegisterWhenever(Func{match, fn}).
func (r *Registry[M]) Whenever(match func(M) bool, fn func(M)) {
	r.RegisterWhenever(Func[M]{Match: match, Fn: fn})
}

// Dispatch hands msg to the first matching once-expectation, or failing
// that to the first matching whenever-expectation. It reports whether any
// handler consumed the message.
//
// A matched once-expectation is removed before its handler runs, so the
// handler may register new expectations without seeing msg again.
func (r *Registry[M]) Dispatch(msg M) bool {
	for i, e := range r.once {
		if e.Matches(msg) {
			r.once = slices.Delete(r.once, i, i+1)
			e.Handle(msg)
			return true
		}
	}

	for _, e := range r.whenever {
		if e.Matches(msg) {
			e.Handle(msg)
			return true
		}
	}
	return false
}

// Len returns the sizes of the once and whenever lists.
func (r *Registry[M]) Len() (once, whenever int) {
	return len(r.once), len(r.whenever)
}
