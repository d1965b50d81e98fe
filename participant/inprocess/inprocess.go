// Package inprocess implements tcc.Participant over plain Go closures, for
// callers whose TCC participants live in the same process as the
// coordinator (e.g. local wallet or inventory services embedded in the
// same binary). Grounded on the teacher's functional-option constructor
// idiom (store/postgres.PoolConfig's Option pattern): Try/Confirm/Cancel
// default to no-ops and are overridden one at a time via With* options,
// rather than forcing every caller to implement a three-method interface
// for operations it doesn't need (e.g. a read-only participant that only
// ever rejects Try and never needs Confirm).
package inprocess

import (
	"context"

	"github.com/Dorico-Dynamics/txova-tcc/tcc"
)

// Func is the shape shared by Try, Confirm, and Cancel.
type Func func(ctx context.Context, txID string) error

func noop(context.Context, string) error { return nil }

// Participant implements tcc.Participant by dispatching to closures
// supplied at construction time.
type Participant struct {
	id      string
	tryFn   Func
	confirm Func
	cancel  Func
}

// Option configures a Participant.
type Option func(*Participant)

// WithTry overrides the Try behavior. The default accepts unconditionally.
func WithTry(fn Func) Option {
	return func(p *Participant) { p.tryFn = fn }
}

// WithConfirm overrides the Confirm behavior. The default is a no-op.
func WithConfirm(fn Func) Option {
	return func(p *Participant) { p.confirm = fn }
}

// WithCancel overrides the Cancel behavior. The default is a no-op.
func WithCancel(fn Func) Option {
	return func(p *Participant) { p.cancel = fn }
}

// New creates a Participant identified by id. By default Try accepts
// unconditionally and Confirm/Cancel are no-ops; use the With* options to
// wire real behavior.
func New(id string, opts ...Option) *Participant {
	p := &Participant{id: id, tryFn: noop, confirm: noop, cancel: noop}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ tcc.Participant = (*Participant)(nil)

func (p *Participant) ID() string { return p.id }

func (p *Participant) Try(ctx context.Context, txID string) error {
	return p.tryFn(ctx, txID)
}

func (p *Participant) Confirm(ctx context.Context, txID string) error {
	return p.confirm(ctx, txID)
}

func (p *Participant) Cancel(ctx context.Context, txID string) error {
	return p.cancel(ctx, txID)
}
