package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cgsmith/user-service/pkg/database"
)

// executor abstracts *sql.DB and *sql.Tx so repositories can run either
// standalone or inside a transaction opened by Atomic.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// postgresStore implements Store on top of PostgreSQL
type postgresStore struct {
	db   *database.Postgres
	exec executor
	inTx bool

	users          UserRepository
	tokens         TokenRepository
	twoFactor      TwoFactorRepository
	sessions       SessionRepository
	socialAccounts SocialAccountRepository
}

// NewStore creates a Store backed by the given PostgreSQL connection
func NewStore(db *database.Postgres) Store {
	return newStore(db, db.DB, false)
}

func newStore(db *database.Postgres, exec executor, inTx bool) *postgresStore {
	return &postgresStore{
		db:             db,
		exec:           exec,
		inTx:           inTx,
		users:          &userRepository{exec: exec},
		tokens:         &tokenRepository{exec: exec},
		twoFactor:      &twoFactorRepository{exec: exec},
		sessions:       &sessionRepository{exec: exec},
		socialAccounts: &socialAccountRepository{exec: exec},
	}
}

func (s *postgresStore) Users() UserRepository                   { return s.users }
func (s *postgresStore) Tokens() TokenRepository                 { return s.tokens }
func (s *postgresStore) TwoFactor() TwoFactorRepository          { return s.twoFactor }
func (s *postgresStore) Sessions() SessionRepository             { return s.sessions }
func (s *postgresStore) SocialAccounts() SocialAccountRepository { return s.socialAccounts }

// Atomic runs fn inside a transaction at the requested isolation level.
// Nested calls reuse the surrounding transaction.
func (s *postgresStore) Atomic(ctx context.Context, level sql.IsolationLevel, fn func(Store) error) error {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, level)
	if err != nil {
		return err
	}

	txStore := newStore(s.db, tx, true)

	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
