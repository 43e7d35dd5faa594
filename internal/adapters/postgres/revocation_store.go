package postgres

import (
	"context"
	"time"

	apperrors "github.com/xnome/dashboard/internal/errors"
)

// RevocationStore denylists session token ids in the revoked_tokens table.
type RevocationStore struct {
	db  DB
	now func() time.Time
}

// NewRevocationStore creates a Postgres revocation store.
func NewRevocationStore(db DB) *RevocationStore {
	return &RevocationStore{db: db, now: time.Now}
}

// Revoke records tokenID and prunes rows whose tokens have expired.
func (s *RevocationStore) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	if tokenID == "" || !until.After(s.now()) {
		return nil
	}
	if _, err := s.db.Exec(ctx, `DELETE FROM revoked_tokens WHERE expires_at <= $1`, s.now()); err != nil {
		return apperrors.MapDBError(err)
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO revoked_tokens (token_id, expires_at) VALUES ($1, $2)
		ON CONFLICT (token_id) DO UPDATE SET expires_at = EXCLUDED.expires_at`,
		tokenID, until)
	return apperrors.MapDBError(err)
}

func (s *RevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}
	var revoked bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM revoked_tokens WHERE token_id = $1 AND expires_at > $2)`,
		tokenID, s.now()).Scan(&revoked)
	if err != nil {
		return false, apperrors.MapDBError(err)
	}
	return revoked, nil
}
