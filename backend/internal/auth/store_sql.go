package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// SQLStore keeps accounts in the "accounts" and "auth_tokens" tables.
type SQLStore struct {
	db *sqlx.DB
}

func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Insert(ctx context.Context, a Account) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO accounts (uid, email, password_hash, email_verified, created_at)
		VALUES (:uid, :email, :password_hash, :email_verified, :created_at)`, a)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}

	return nil
}

func (s *SQLStore) ByEmail(ctx context.Context, email string) (Account, error) {
	return s.one(ctx, `SELECT uid, email, password_hash, email_verified, created_at FROM accounts WHERE email = ?`, email)
}

func (s *SQLStore) ByUID(ctx context.Context, uid string) (Account, error) {
	return s.one(ctx, `SELECT uid, email, password_hash, email_verified, created_at FROM accounts WHERE uid = ?`, uid)
}

func (s *SQLStore) one(ctx context.Context, query string, arg string) (Account, error) {
	var a Account

	err := s.db.GetContext(ctx, &a, s.db.Rebind(query), arg)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrUserNotFound
	}

	if err != nil {
		return Account{}, fmt.Errorf("get account: %w", err)
	}

	return a, nil
}

func (s *SQLStore) UpdateEmail(ctx context.Context, uid, email string, verified bool) error {
	return s.exec(ctx, `UPDATE accounts SET email = ?, email_verified = ? WHERE uid = ?`, email, verified, uid)
}

func (s *SQLStore) UpdatePassword(ctx context.Context, uid, hash string) error {
	return s.exec(ctx, `UPDATE accounts SET password_hash = ? WHERE uid = ?`, hash, uid)
}

func (s *SQLStore) SetVerified(ctx context.Context, uid string) error {
	return s.exec(ctx, `UPDATE accounts SET email_verified = ? WHERE uid = ?`, true, uid)
}

func (s *SQLStore) Delete(ctx context.Context, uid string) error {
	return s.exec(ctx, `DELETE FROM accounts WHERE uid = ?`, uid)
}

// exec runs a single-row statement; no affected row means ErrUserNotFound.
func (s *SQLStore) exec(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}

	if n == 0 {
		return ErrUserNotFound
	}

	return nil
}

func (s *SQLStore) PutToken(ctx context.Context, t Token) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO auth_tokens (token, uid, kind, expires_at)
		VALUES (:token, :uid, :kind, :expires_at)`, t)
	if err != nil {
		return fmt.Errorf("insert token: %w", err)
	}

	return nil
}

func (s *SQLStore) TakeToken(ctx context.Context, token, kind string) (Token, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return Token{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var t Token

	err = tx.GetContext(ctx, &t, tx.Rebind(`SELECT token, uid, kind, expires_at FROM auth_tokens WHERE token = ? AND kind = ?`), token, kind)
	if errors.Is(err, sql.ErrNoRows) {
		return Token{}, ErrInvalidToken
	}

	if err != nil {
		return Token{}, fmt.Errorf("get token: %w", err)
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM auth_tokens WHERE token = ?`), token); err != nil {
		return Token{}, fmt.Errorf("delete token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Token{}, fmt.Errorf("commit: %w", err)
	}

	return t, nil
}
