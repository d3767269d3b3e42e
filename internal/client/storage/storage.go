// Package storage bootstraps the local session database and exposes the
// persisted credential through TokenStore.
package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/dmitrijs2005/trainctl/internal/client/migrations"
	"github.com/dmitrijs2005/trainctl/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/trainctl/internal/common"
	"github.com/dmitrijs2005/trainctl/internal/dbx"
	"github.com/dmitrijs2005/trainctl/internal/filex"
)

// Storage owns the SQLite handle and the repositories built on it.
type Storage struct {
	DB     *sql.DB
	Tokens *TokenStore
}

// Open opens (creating if needed) the database at dsn and migrates it. A
// plain file path may start with ~/ and its directory is created on demand;
// "file:" URIs and ":memory:" are passed through untouched.
func Open(ctx context.Context, dsn string) (*Storage, error) {
	if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		path, err := filex.ExpandHome(dsn)
		if err != nil {
			return nil, err
		}
		if err := filex.EnsureParentDir(path); err != nil {
			return nil, err
		}
		dsn = path
	}

	db, err := dbx.OpenSQLite(ctx, dsn, migrations.Migrations)
	if err != nil {
		return nil, err
	}
	return New(db), nil
}

// New wraps an already migrated database.
func New(db *sql.DB) *Storage {
	return &Storage{
		DB:     db,
		Tokens: NewTokenStore(db),
	}
}

func (s *Storage) Close() error {
	return s.DB.Close()
}

// TokenStore persists the bearer credential together with the time it was
// written. Both keys always change in one transaction.
type TokenStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewTokenStore(db *sql.DB) *TokenStore {
	return &TokenStore{db: db, now: time.Now}
}

// Load returns the stored credential, or "" when none is stored.
func (s *TokenStore) Load(ctx context.Context) (string, error) {
	v, err := metadata.NewSQLiteRepository(s.db).Get(ctx, common.TokenMetadataKey)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

// SavedAt reports when the current credential was stored.
func (s *TokenStore) SavedAt(ctx context.Context) (time.Time, bool, error) {
	v, err := metadata.NewSQLiteRepository(s.db).Get(ctx, common.TokenSavedAtMetadataKey)
	if err != nil || v == nil {
		return time.Time{}, false, err
	}
	t, err := time.Parse(time.RFC3339, string(v))
	if err != nil {
		return time.Time{}, false, nil
	}
	return t, true, nil
}

// Save replaces the stored credential.
func (s *TokenStore) Save(ctx context.Context, token string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, common.TokenMetadataKey, []byte(token)); err != nil {
			return err
		}
		stamp := s.now().UTC().Format(time.RFC3339)
		return repo.Set(ctx, common.TokenSavedAtMetadataKey, []byte(stamp))
	})
}

// Delete wipes the local session state, the credential included. Deleting
// nothing is not an error.
func (s *TokenStore) Delete(ctx context.Context) error {
	return metadata.NewSQLiteRepository(s.db).Clear(ctx)
}
