// Package store is the durable client store: the session token and the
// cached user, persisted across restarts of the client.
//
// The two values form a single slot. Save and Clear touch both keys in one
// transaction, and Load never reports one without the other.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/joboost/internal/client/models"
	"github.com/dmitrijs2005/joboost/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/joboost/internal/common"
	"github.com/dmitrijs2005/joboost/internal/dbx"
)

// ErrNoSession is returned by SaveUser when no token is stored.
var ErrNoSession = errors.New("no stored session")

// SessionStore persists the (token, user) pair.
//
// Load returns ("", nil, nil) when nothing usable is stored.
type SessionStore interface {
	Load(ctx context.Context) (string, *models.User, error)
	Save(ctx context.Context, token string, user models.User) error
	SaveUser(ctx context.Context, user models.User) error
	Clear(ctx context.Context) error
}

// SQLiteSessionStore keeps the session in the metadata table.
type SQLiteSessionStore struct {
	db *sql.DB
}

func NewSQLiteSessionStore(db *sql.DB) *SQLiteSessionStore {
	return &SQLiteSessionStore{db: db}
}

// Load reads token and user together. A token without a readable user is
// treated as no session at all, and the leftover key is removed.
func (s *SQLiteSessionStore) Load(ctx context.Context) (string, *models.User, error) {
	var (
		token string
		user  *models.User
		stale bool
	)

	err := dbx.WithTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)

		rawToken, err := repo.Get(ctx, common.TokenKey)
		if errors.Is(err, common.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		rawUser, err := repo.Get(ctx, common.UserKey)
		if errors.Is(err, common.ErrNotFound) {
			stale = true
			return nil
		}
		if err != nil {
			return err
		}

		var u models.User
		if err := json.Unmarshal(rawUser, &u); err != nil || len(rawToken) == 0 {
			stale = true
			return nil
		}

		token, user = string(rawToken), &u
		return nil
	})
	if err != nil {
		return "", nil, fmt.Errorf("load session: %w", err)
	}

	if stale {
		if err := s.Clear(ctx); err != nil {
			return "", nil, err
		}
	}
	return token, user, nil
}

func (s *SQLiteSessionStore) Save(ctx context.Context, token string, user models.User) error {
	rawUser, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}

	err = dbx.WithTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, common.TokenKey, []byte(token)); err != nil {
			return err
		}
		return repo.Set(ctx, common.UserKey, rawUser)
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// SaveUser replaces the cached user, keeping the stored token.
func (s *SQLiteSessionStore) SaveUser(ctx context.Context, user models.User) error {
	rawUser, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}

	err = dbx.WithTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if _, err := repo.Get(ctx, common.TokenKey); err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return ErrNoSession
			}
			return err
		}
		return repo.Set(ctx, common.UserKey, rawUser)
	})
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func (s *SQLiteSessionStore) Clear(ctx context.Context) error {
	err := dbx.WithTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		return metadata.NewSQLiteRepository(tx).Delete(ctx, common.TokenKey, common.UserKey)
	})
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// MemoryStore is a process-local SessionStore.
type MemoryStore struct {
	mu    sync.Mutex
	token string
	user  *models.User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(ctx context.Context) (string, *models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" || m.user == nil {
		return "", nil, nil
	}
	u := *m.user
	return m.token, &u, nil
}

func (m *MemoryStore) Save(ctx context.Context, token string, user models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token, m.user = token, &user
	return nil
}

func (m *MemoryStore) SaveUser(ctx context.Context, user models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" {
		return fmt.Errorf("save user: %w", ErrNoSession)
	}
	m.user = &user
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token, m.user = "", nil
	return nil
}
