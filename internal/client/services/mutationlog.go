package services

import "github.com/dmitrijs2005/joboost/internal/client/models"

// statusEntry tracks the optimistic status changes of one application.
type statusEntry struct {
	acked    models.Status // last status the Gateway holds, as far as we know
	ackedSeq uint64
	first    uint64 // sequence that opened the entry
	latest   uint64 // sequence of the newest intent
	target   models.Status
	done     bool // newest intent has settled
	inflight int
}

// mutationLog records optimistic status intents per application. Every
// intent gets a sequence number; only the newest intent of an application
// may change what is displayed when its response arrives.
//
// mutationLog is not safe for concurrent use; the synchronizer guards it.
type mutationLog struct {
	seq     uint64
	entries map[string]*statusEntry
}

func newMutationLog() *mutationLog {
	return &mutationLog{entries: map[string]*statusEntry{}}
}

// begin records the intent to move id from its displayed status current to
// target and returns the intent's sequence number.
func (l *mutationLog) begin(id string, current, target models.Status) uint64 {
	l.seq++
	e, ok := l.entries[id]
	if !ok {
		e = &statusEntry{acked: current, first: l.seq}
		l.entries[id] = e
	}
	e.latest = l.seq
	e.target = target
	e.done = false
	e.inflight++
	return l.seq
}

// succeed settles intent seq as accepted with status. It reports whether
// seq is still the newest intent for id.
func (l *mutationLog) succeed(id string, seq uint64, status models.Status) bool {
	e, ok := l.lookup(id, seq)
	if !ok {
		return false
	}
	if seq > e.ackedSeq {
		e.acked = status
		e.ackedSeq = seq
	}
	latest := seq == e.latest
	if latest {
		e.done = true
	}
	l.settle(id, e)
	return latest
}

// fail settles intent seq as rejected. When seq is the newest intent it
// returns the status to restore and true.
func (l *mutationLog) fail(id string, seq uint64) (models.Status, bool) {
	e, ok := l.lookup(id, seq)
	if !ok {
		return "", false
	}
	latest := seq == e.latest
	if latest {
		e.done = true
	}
	revert := e.acked
	l.settle(id, e)
	return revert, latest
}

// lookup returns the entry seq belongs to. Intents issued before the entry
// was forgotten have no entry.
func (l *mutationLog) lookup(id string, seq uint64) (*statusEntry, bool) {
	e, ok := l.entries[id]
	if !ok || seq < e.first {
		return nil, false
	}
	return e, true
}

func (l *mutationLog) settle(id string, e *statusEntry) {
	e.inflight--
	if e.inflight <= 0 {
		delete(l.entries, id)
	}
}

// pending returns the newest unsettled intent for id.
func (l *mutationLog) pending(id string) (models.Status, bool) {
	e, ok := l.entries[id]
	if !ok || e.done {
		return "", false
	}
	return e.target, true
}

// rebase replaces the acknowledged status of id with a fresh server value.
func (l *mutationLog) rebase(id string, status models.Status) {
	if e, ok := l.entries[id]; ok {
		e.acked = status
	}
}

// forget drops every intent for id. Responses still in flight for it are
// then treated as stale.
func (l *mutationLog) forget(id string) {
	delete(l.entries, id)
}

func (l *mutationLog) reset() {
	l.entries = map[string]*statusEntry{}
}
