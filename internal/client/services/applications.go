package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/joboost/internal/client/client"
	"github.com/dmitrijs2005/joboost/internal/client/models"
	"github.com/dmitrijs2005/joboost/internal/common"
	"github.com/dmitrijs2005/joboost/internal/logging"
)

// ApplicationClient is the part of the Gateway the synchronizer talks to.
type ApplicationClient interface {
	ListApplications(ctx context.Context) ([]models.Application, error)
	GetApplication(ctx context.Context, id string) (*models.Application, error)
	CreateApplication(ctx context.Context, fields models.ApplicationFields) (*models.Application, error)
	UpdateApplication(ctx context.Context, id string, fields models.ApplicationFields) (*models.Application, error)
	UpdateApplicationStatus(ctx context.Context, id string, status models.Status) error
	DeleteApplication(ctx context.Context, id string) error
	Stats(ctx context.Context) (*models.Stats, error)
}

type removal struct {
	app   models.Application
	index int
}

// ApplicationSynchronizer owns the in-memory application collection. The
// flat list and the board are both derived from the same ordered slice, so
// they always agree.
type ApplicationSynchronizer struct {
	client ApplicationClient
	log    logging.Logger

	mu        sync.Mutex
	order     []string
	records   map[string]models.Application
	mutations *mutationLog
	removing  map[string]removal
}

func NewApplicationSynchronizer(c ApplicationClient, log logging.Logger) *ApplicationSynchronizer {
	if log == nil {
		log = logging.Nop()
	}
	return &ApplicationSynchronizer{
		client:    c,
		log:       log.With("component", "applications"),
		records:   map[string]models.Application{},
		mutations: newMutationLog(),
		removing:  map[string]removal{},
	}
}

// Load replaces the collection with the Gateway's. Status changes still in
// flight stay visible and deletes still in flight stay hidden.
func (s *ApplicationSynchronizer) Load(ctx context.Context) error {
	apps, err := s.client.ListApplications(ctx)
	if err != nil {
		return &SyncError{Op: "load", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.order = s.order[:0]
	s.records = make(map[string]models.Application, len(apps))
	for _, a := range apps {
		if _, ok := s.removing[a.ID]; ok {
			continue
		}
		if _, dup := s.records[a.ID]; dup {
			continue
		}
		s.mutations.rebase(a.ID, a.Status)
		if target, ok := s.mutations.pending(a.ID); ok {
			a.Status = target
		}
		s.order = append(s.order, a.ID)
		s.records[a.ID] = a
	}
	s.log.Debug(ctx, "applications loaded", "count", len(s.order))
	return nil
}

// Add creates an application on the Gateway and inserts it at the top of
// the collection once the Gateway has assigned its id.
func (s *ApplicationSynchronizer) Add(ctx context.Context, fields models.ApplicationFields) (*models.Application, error) {
	if err := fields.ValidateNew(); err != nil {
		return nil, &SyncError{Op: "add", Err: err}
	}
	a, err := s.client.CreateApplication(ctx, fields)
	if err != nil {
		return nil, &SyncError{Op: "add", Err: err}
	}

	s.mu.Lock()
	if _, exists := s.records[a.ID]; !exists {
		s.order = append([]string{a.ID}, s.order...)
	}
	s.records[a.ID] = *a
	s.mu.Unlock()

	out := *a
	return &out, nil
}

// Update edits the fields of an application. It is applied only after the
// Gateway accepts it. A status change still in flight keeps its status.
func (s *ApplicationSynchronizer) Update(ctx context.Context, id string, fields models.ApplicationFields) (*models.Application, error) {
	if fields.Status != "" && !fields.Status.Valid() {
		return nil, &SyncError{Op: "update", ID: id, Err: fmt.Errorf("%w: unknown status %q", common.ErrValidation, fields.Status)}
	}
	a, err := s.client.UpdateApplication(ctx, id, fields)
	if err != nil {
		return nil, &SyncError{Op: "update", ID: id, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.removing[id]; ok {
		out := *a
		return &out, nil
	}
	s.mutations.rebase(id, a.Status)
	if target, ok := s.mutations.pending(id); ok {
		a.Status = target
	}
	if _, exists := s.records[id]; !exists {
		s.order = append([]string{id}, s.order...)
	}
	s.records[id] = *a
	out := *a
	return &out, nil
}

// Fetch refreshes one application from the Gateway.
func (s *ApplicationSynchronizer) Fetch(ctx context.Context, id string) (*models.Application, error) {
	a, err := s.client.GetApplication(ctx, id)
	if err != nil {
		return nil, &SyncError{Op: "fetch", ID: id, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.removing[id]; !ok {
		s.mutations.rebase(id, a.Status)
		if target, ok := s.mutations.pending(id); ok {
			a.Status = target
		}
		if _, exists := s.records[id]; !exists {
			s.order = append([]string{id}, s.order...)
		}
		s.records[id] = *a
	}
	out := *a
	return &out, nil
}

// ChangeStatus moves an application to status. The change is visible
// immediately and sent to the Gateway. If the Gateway rejects the newest
// intent the status reverts to the last acknowledged one and the error is
// returned. Responses to superseded intents are discarded and return nil,
// except authorization failures, which are always returned.
func (s *ApplicationSynchronizer) ChangeStatus(ctx context.Context, id string, status models.Status) error {
	if !status.Valid() {
		return &SyncError{Op: "change status", ID: id, Err: fmt.Errorf("%w: unknown status %q", common.ErrValidation, status)}
	}

	s.mu.Lock()
	a, ok := s.records[id]
	if !ok {
		s.mu.Unlock()
		return &SyncError{Op: "change status", ID: id, Err: common.ErrNotFound}
	}
	if _, inflight := s.mutations.pending(id); a.Status == status && !inflight {
		s.mu.Unlock()
		return nil
	}
	seq := s.mutations.begin(id, a.Status, status)
	a.Status = status
	s.records[id] = a
	s.mu.Unlock()

	err := s.client.UpdateApplicationStatus(ctx, id, status)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err == nil {
		if !s.mutations.succeed(id, seq, status) {
			s.log.Debug(ctx, "discarded stale status ack", "application_id", id, "status", status)
		}
		return nil
	}

	revert, latest := s.mutations.fail(id, seq)
	if !latest {
		s.log.Debug(ctx, "discarded stale status failure", "application_id", id, "status", status, "error", err)
		// The session is gone; the caller must hear about it either way.
		if errors.Is(err, client.ErrUnauthorized) {
			return &SyncError{Op: "change status", ID: id, Err: err}
		}
		return nil
	}
	if a, ok := s.records[id]; ok {
		a.Status = revert
		s.records[id] = a
	} else if rm, ok := s.removing[id]; ok {
		// Hidden by a delete in flight; a failed delete restores this copy.
		rm.app.Status = revert
		s.removing[id] = rm
	}
	s.log.Warn(ctx, "status change reverted", "application_id", id, "status", status, "reverted_to", revert, "error", err)
	return &SyncError{Op: "change status", ID: id, Err: err}
}

// Delete removes an application immediately and asks the Gateway to delete
// it. On failure the record is restored at its former position. A Gateway
// answer of not found counts as deleted.
func (s *ApplicationSynchronizer) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	a, ok := s.records[id]
	if !ok {
		s.mu.Unlock()
		return &SyncError{Op: "delete", ID: id, Err: common.ErrNotFound}
	}
	idx := s.indexLocked(id)
	s.order = append(s.order[:idx], s.order[idx+1:]...)
	delete(s.records, id)
	s.removing[id] = removal{app: a, index: idx}
	s.mu.Unlock()

	err := s.client.DeleteApplication(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	rm, tracked := s.removing[id]
	delete(s.removing, id)

	if err == nil || errors.Is(err, common.ErrNotFound) {
		s.mutations.forget(id)
		return nil
	}

	if _, exists := s.records[id]; tracked && !exists {
		pos := min(rm.index, len(s.order))
		s.order = append(s.order[:pos], append([]string{id}, s.order[pos:]...)...)
		s.records[id] = rm.app
	}
	s.log.Warn(ctx, "delete reverted", "application_id", id, "error", err)
	return &SyncError{Op: "delete", ID: id, Err: err}
}

// Reorder moves an application to position index within its status column.
// It is local only and is lost on the next Load.
func (s *ApplicationSynchronizer) Reorder(id string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.records[id]
	if !ok {
		return &SyncError{Op: "reorder", ID: id, Err: common.ErrNotFound}
	}

	// Positions in s.order held by the column, and the column's ids.
	var slots []int
	var column []string
	for i, oid := range s.order {
		if s.records[oid].Status == a.Status {
			slots = append(slots, i)
			if oid != id {
				column = append(column, oid)
			}
		}
	}
	index = max(0, min(index, len(column)))
	column = append(column[:index], append([]string{id}, column[index:]...)...)

	for i, pos := range slots {
		s.order[pos] = column[i]
	}
	return nil
}

// List returns the applications in display order.
func (s *ApplicationSynchronizer) List() []models.Application {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Application, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.records[id])
	}
	return out
}

// Board groups the applications into one column per status, in pipeline
// order. Empty columns are included.
func (s *ApplicationSynchronizer) Board() []models.Column {
	s.mu.Lock()
	defer s.mu.Unlock()

	cols := make([]models.Column, len(models.Statuses))
	index := make(map[models.Status]int, len(models.Statuses))
	for i, st := range models.Statuses {
		cols[i] = models.Column{Status: st, Applications: []models.Application{}}
		index[st] = i
	}
	for _, id := range s.order {
		a := s.records[id]
		if i, ok := index[a.Status]; ok {
			cols[i].Applications = append(cols[i].Applications, a)
		}
	}
	return cols
}

// Get returns the local copy of an application.
func (s *ApplicationSynchronizer) Get(id string) (models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.records[id]
	if !ok {
		return models.Application{}, common.ErrNotFound
	}
	return a, nil
}

// Stats counts the local applications per status.
func (s *ApplicationSynchronizer) Stats() models.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	var st models.Stats
	for _, id := range s.order {
		st.Add(s.records[id].Status)
	}
	return st
}

// ServerStats returns the Gateway's counts.
func (s *ApplicationSynchronizer) ServerStats(ctx context.Context) (*models.Stats, error) {
	st, err := s.client.Stats(ctx)
	if err != nil {
		return nil, &SyncError{Op: "stats", Err: err}
	}
	return st, nil
}

// Reset drops the collection. Called when the session ends.
func (s *ApplicationSynchronizer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	s.records = map[string]models.Application{}
	s.mutations.reset()
	s.removing = map[string]removal{}
}

func (s *ApplicationSynchronizer) indexLocked(id string) int {
	for i, oid := range s.order {
		if oid == id {
			return i
		}
	}
	return -1
}
