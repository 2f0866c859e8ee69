package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"time"
)

const codeExpiry = 15 * time.Minute

// CodeStore manages one-time sign-in codes in SQLite.
type CodeStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewCodeStore creates a code store.
func NewCodeStore(db *sql.DB) *CodeStore {
	return &CodeStore{db: db, now: time.Now}
}

// Create generates a new six-digit code for target (an email or phone).
func (s *CodeStore) Create(ctx context.Context, target string) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", fmt.Errorf("generating code: %w", err)
	}

	now := s.now().UTC()
	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO auth_otps (target, code, expires_at, created_at) VALUES (?, ?, ?, ?)",
		target, code, now.Add(codeExpiry), now,
	); err != nil {
		return "", fmt.Errorf("storing code: %w", err)
	}

	return code, nil
}

// Validate checks the newest code issued to target. A code verifies once.
func (s *CodeStore) Validate(ctx context.Context, target, code string) error {
	var id int64
	var stored string
	var used int
	var expiresAt time.Time

	err := s.db.QueryRowContext(ctx,
		"SELECT id, code, used, expires_at FROM auth_otps WHERE target = ? ORDER BY id DESC LIMIT 1",
		target,
	).Scan(&id, &stored, &used, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: no code issued", ErrInvalidCode)
	}
	if err != nil {
		return fmt.Errorf("querying code: %w", err)
	}

	if stored != code {
		return ErrInvalidCode
	}
	if used != 0 {
		return fmt.Errorf("%w: code already used", ErrInvalidCode)
	}
	if s.now().After(expiresAt) {
		return fmt.Errorf("%w: code expired", ErrInvalidCode)
	}

	if _, err := s.db.ExecContext(ctx, "UPDATE auth_otps SET used = 1 WHERE id = ?", id); err != nil {
		return fmt.Errorf("marking code used: %w", err)
	}
	return nil
}

// Cleanup removes expired codes.
func (s *CodeStore) Cleanup(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM auth_otps WHERE expires_at < ?",
		s.now().UTC(),
	); err != nil {
		return fmt.Errorf("cleaning up codes: %w", err)
	}
	return nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
