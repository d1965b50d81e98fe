package txmanager

import (
	"sync"

	"github.com/Dorico-Dynamics/txova-tcc/tcc"
)

// registry is the in-process participantId -> Participant mapping
// described in spec.md §4.5, guarded by a RWMutex per SPEC_FULL.md §5's
// "reader-friendly mutual exclusion" mapping — StartTransaction only ever
// reads a snapshot, Register is the rare writer.
type registry struct {
	mu           sync.RWMutex
	participants map[string]tcc.Participant
}

func newRegistry() *registry {
	return &registry{participants: make(map[string]tcc.Participant)}
}

// register adds p, failing with CodeDuplicateParticipant if its ID is
// already present and CodeInvalidParticipant if the ID is empty.
func (r *registry) register(p tcc.Participant) error {
	id := p.ID()
	if id == "" {
		return tcc.New(tcc.CodeInvalidParticipant, "participant id must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.participants[id]; exists {
		return tcc.Newf(tcc.CodeDuplicateParticipant, "participant %q is already registered", id)
	}
	r.participants[id] = p
	return nil
}

// snapshot returns the currently registered participants. The returned
// slice is safe to range over without holding the registry lock.
func (r *registry) snapshot() []tcc.Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]tcc.Participant, 0, len(r.participants))
	for _, p := range r.participants {
		out = append(out, p)
	}
	return out
}

// get returns the participant registered under id, if any.
func (r *registry) get(id string) (tcc.Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.participants[id]
	return p, ok
}

// ids returns the registered participant ids, for aggregate-status
// evaluation against a transaction's recorded participant set.
func (r *registry) ids() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.participants))
	for id := range r.participants {
		out = append(out, id)
	}
	return out
}
