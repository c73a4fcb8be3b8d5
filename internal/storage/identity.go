package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"darpsim/internal/auth"
)

// IdentityStore persists issued operator/viewer tokens so a restarted
// control-plane process can recognize tokens issued before it came up,
// mirroring the teacher's IdentityStore (internal/storage/identity.go)
// adapted to this module's own auth.Identity.
type IdentityStore struct {
	pool *pgxpool.Pool
}

func NewIdentityStore(pool *pgxpool.Pool) *IdentityStore {
	return &IdentityStore{pool: pool}
}

func (s *IdentityStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS identities (
	id TEXT PRIMARY KEY,
	role TEXT NOT NULL,
	token TEXT UNIQUE NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	expires_at TIMESTAMPTZ
);
`)
	return err
}

func (s *IdentityStore) Save(ctx context.Context, ident auth.Identity, ttl time.Duration) (auth.Identity, error) {
	var expires *time.Time
	if ttl > 0 {
		t := time.Now().Add(ttl)
		expires = &t
	}
	_, err := s.pool.Exec(ctx, `
INSERT INTO identities (id, role, token, expires_at)
VALUES ($1,$2,$3,$4)
ON CONFLICT (id) DO UPDATE SET role = EXCLUDED.role, token = EXCLUDED.token, expires_at = EXCLUDED.expires_at
`, ident.ID, string(ident.Role), ident.Token, expires)
	if err != nil {
		return auth.Identity{}, err
	}
	ident.ExpiresAt = expires
	return ident, nil
}

func (s *IdentityStore) Lookup(ctx context.Context, token string) (auth.Identity, bool, error) {
	var ident auth.Identity
	var role string
	var expires *time.Time
	err := s.pool.QueryRow(ctx, `
SELECT id, role, token, expires_at FROM identities WHERE token = $1
`, token).Scan(&ident.ID, &role, &ident.Token, &expires)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return auth.Identity{}, false, nil
		}
		return auth.Identity{}, false, err
	}
	ident.Role = auth.Role(role)
	if expires != nil && expires.Before(time.Now()) {
		return auth.Identity{}, false, nil
	}
	ident.ExpiresAt = expires
	return ident, true, nil
}

func (s *IdentityStore) All(ctx context.Context) ([]auth.Identity, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, role, token FROM identities`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []auth.Identity
	for rows.Next() {
		var ident auth.Identity
		var role string
		if err := rows.Scan(&ident.ID, &role, &ident.Token); err != nil {
			return nil, err
		}
		ident.Role = auth.Role(role)
		out = append(out, ident)
	}
	return out, rows.Err()
}
