package postgres

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/JIVTESH28/facewatch/internal/gallery"
)

// IdentityRepository mirrors the in-memory gallery to PostgreSQL. The web
// layer writes through after every successful gallery mutation; the gallery
// itself never touches the store.
type IdentityRepository struct {
	pool *Pool
}

// NewIdentityRepository creates a repository over the pool.
func NewIdentityRepository(pool *Pool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

// Save upserts one enrolled identity.
func (r *IdentityRepository) Save(ctx context.Context, rec gallery.EnrolledIdentity) error {
	query := `
		INSERT INTO identities (id, name, embedding, dim, enrolled_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
		    embedding = EXCLUDED.embedding,
		    dim = EXCLUDED.dim,
		    enrolled_at = EXCLUDED.enrolled_at
	`

	_, err := r.pool.Exec(ctx, query,
		rec.ID, rec.Name, pgvector.NewVector(rec.Embedding), len(rec.Embedding), rec.EnrolledAt)
	if err != nil {
		return fmt.Errorf("save identity: %w", err)
	}
	return nil
}

// LoadAll returns every stored identity in enrollment order, used to seed the
// gallery at startup.
func (r *IdentityRepository) LoadAll(ctx context.Context) ([]gallery.EnrolledIdentity, error) {
	query := `
		SELECT id, name, embedding, enrolled_at
		FROM identities
		ORDER BY enrolled_at, id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query identities: %w", err)
	}
	defer rows.Close()

	var out []gallery.EnrolledIdentity
	for rows.Next() {
		var rec gallery.EnrolledIdentity
		var vec pgvector.Vector
		if err := rows.Scan(&rec.ID, &rec.Name, &vec, &rec.EnrolledAt); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		rec.Embedding = vec.Slice()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return out, nil
}

// DeleteAll removes every stored identity and returns the count removed.
func (r *IdentityRepository) DeleteAll(ctx context.Context) (int, error) {
	res, err := r.pool.Exec(ctx, `DELETE FROM identities`)
	if err != nil {
		return 0, fmt.Errorf("delete identities: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete identities: %w", err)
	}
	return int(n), nil
}

// Count returns the number of stored identities.
func (r *IdentityRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM identities`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count identities: %w", err)
	}
	return n, nil
}
