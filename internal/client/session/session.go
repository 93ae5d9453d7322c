// Package session persists the authenticated identity of the console
// (username, role and bearer token) between runs.
package session

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/gfsdash/internal/client/models"
	"github.com/dmitrijs2005/gfsdash/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gfsdash/internal/dbx"
)

// Namespace is the metadata namespace holding the session fields.
const Namespace = "session"

const (
	keyToken    = "token"
	keyUsername = "username"
	keyRole     = "role"
)

type Session struct {
	Username string
	Role     models.Role
	Token    string
}

// Complete reports whether every field is present and the role is known.
func (s Session) Complete() bool {
	return s.Username != "" && s.Token != "" && s.Role.Valid()
}

// Store is the persistence boundary for Session. It makes no network calls.
type Store interface {
	Save(ctx context.Context, s Session) error
	// Load returns ok=false when any field is missing.
	Load(ctx context.Context) (Session, bool, error)
	Clear(ctx context.Context) error
}

// SQLiteStore keeps the three session fields as independent rows of the
// metadata table.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Save writes all three fields in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, sess Session) error {
	if !sess.Complete() {
		return fmt.Errorf("save session: incomplete session for %q", sess.Username)
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx, Namespace)

		if err := repo.Set(ctx, keyToken, sess.Token); err != nil {
			return err
		}
		if err := repo.Set(ctx, keyUsername, sess.Username); err != nil {
			return err
		}
		return repo.Set(ctx, keyRole, string(sess.Role))
	})
}

func (s *SQLiteStore) Load(ctx context.Context) (Session, bool, error) {
	fields, err := metadata.NewSQLiteRepository(s.db, Namespace).List(ctx)
	if err != nil {
		return Session{}, false, fmt.Errorf("load session: %w", err)
	}

	sess := Session{
		Username: fields[keyUsername],
		Role:     models.Role(fields[keyRole]),
		Token:    fields[keyToken],
	}
	if !sess.Complete() {
		return Session{}, false, nil
	}
	return sess, true, nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	if err := metadata.NewSQLiteRepository(s.db, Namespace).Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
