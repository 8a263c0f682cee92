package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/joboost/internal/client/models"
	"github.com/dmitrijs2005/joboost/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/joboost/internal/common"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) (*SQLiteSessionStore, *metadata.SQLiteRepository) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s", filepath.Join(t.TempDir(), "joboost.db"))
	db, err := OpenDatabase(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLiteSessionStore(db), metadata.NewSQLiteRepository(db)
}

func sampleUser() models.User {
	return models.User{ID: "u1", Name: "Ann", Email: "ann@example.com", Plan: models.PlanFree, Credits: models.PlanCredits(models.PlanFree)}
}

func TestOpenDatabase_MigrationsAreIdempotent(t *testing.T) {
	dsn := fmt.Sprintf("file:%s", filepath.Join(t.TempDir(), "joboost.db"))
	ctx := context.Background()

	db, err := OpenDatabase(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = OpenDatabase(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestSQLiteSessionStore_EmptyLoad(t *testing.T) {
	s, _ := openStore(t)

	token, user, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Empty(t, token)
	require.Nil(t, user)
}

func TestSQLiteSessionStore_SaveLoadClear(t *testing.T) {
	s, repo := openStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "t1", sampleUser()))

	token, user, err := s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "t1", token)
	require.Empty(t, cmp.Diff(sampleUser(), *user))

	require.NoError(t, s.Clear(ctx))

	_, err = repo.Get(ctx, common.TokenKey)
	require.ErrorIs(t, err, common.ErrNotFound)
	_, err = repo.Get(ctx, common.UserKey)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestSQLiteSessionStore_SurvivesReopen(t *testing.T) {
	dsn := fmt.Sprintf("file:%s", filepath.Join(t.TempDir(), "joboost.db"))
	ctx := context.Background()

	db, err := OpenDatabase(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, NewSQLiteSessionStore(db).Save(ctx, "t1", sampleUser()))
	require.NoError(t, db.Close())

	db, err = OpenDatabase(ctx, dsn)
	require.NoError(t, err)
	defer db.Close()

	token, user, err := NewSQLiteSessionStore(db).Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "t1", token)
	require.Equal(t, "u1", user.ID)
}

func TestSQLiteSessionStore_TokenWithoutUserIsDropped(t *testing.T) {
	s, repo := openStore(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, common.TokenKey, []byte("orphan")))

	token, user, err := s.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, token)
	require.Nil(t, user)

	_, err = repo.Get(ctx, common.TokenKey)
	require.ErrorIs(t, err, common.ErrNotFound, "orphan token must be removed")
}

func TestSQLiteSessionStore_CorruptUserIsDropped(t *testing.T) {
	s, repo := openStore(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, common.TokenKey, []byte("t1")))
	require.NoError(t, repo.Set(ctx, common.UserKey, []byte("{not json")))

	token, user, err := s.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, token)
	require.Nil(t, user)
}

func TestSQLiteSessionStore_SaveUser(t *testing.T) {
	s, _ := openStore(t)
	ctx := context.Background()

	require.ErrorIs(t, s.SaveUser(ctx, sampleUser()), ErrNoSession)

	require.NoError(t, s.Save(ctx, "t1", sampleUser()))
	updated := sampleUser()
	updated.Plan = models.PlanPro
	require.NoError(t, s.SaveUser(ctx, updated))

	token, user, err := s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "t1", token)
	require.Equal(t, models.PlanPro, user.Plan)
}

func TestSQLiteSessionStore_SaveIsAtomic(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO metadata").WithArgs(common.TokenKey, sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO metadata").WithArgs(common.UserKey, sqlmock.AnyArg()).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err = NewSQLiteSessionStore(db).Save(context.Background(), "t1", sampleUser())
	require.ErrorContains(t, err, "save session")
	require.NoError(t, mock.ExpectationsWereMet(), "token write must be rolled back with the user write")
}

func TestMemoryStore(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	token, user, err := m.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, token)
	require.Nil(t, user)

	require.ErrorIs(t, m.SaveUser(ctx, sampleUser()), ErrNoSession)

	require.NoError(t, m.Save(ctx, "t1", sampleUser()))
	token, user, err = m.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "t1", token)
	user.Name = "mutated"

	_, again, _ := m.Load(ctx)
	require.Equal(t, "Ann", again.Name, "Load must return a copy")

	require.NoError(t, m.Clear(ctx))
	token, _, _ = m.Load(ctx)
	require.Empty(t, token)
}
