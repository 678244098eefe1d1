package subject

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicq/clinicq/internal/domain/scheduling"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const cols = `id, kind, name, phone, owner_id, company, created_at, updated_at`

func scanSubject(row pgx.Row) (*Subject, error) {
	var s Subject
	err := row.Scan(&s.ID, &s.Kind, &s.Name, &s.Phone, &s.OwnerID, &s.Company, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: subject", scheduling.ErrNotFound)
	}
	return &s, err
}

func (r *repoPG) Create(ctx context.Context, s *Subject) error {
	s.ID = uuid.New()
	return r.pool.QueryRow(ctx, `
		INSERT INTO subject (id, kind, name, phone, owner_id, company)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at, updated_at`,
		s.ID, s.Kind, s.Name, s.Phone, s.OwnerID, s.Company).
		Scan(&s.CreatedAt, &s.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Subject, error) {
	return scanSubject(r.pool.QueryRow(ctx, `SELECT `+cols+` FROM subject WHERE id = $1`, id))
}

func (r *repoPG) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Subject, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+cols+` FROM subject WHERE owner_id = $1 ORDER BY created_at`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Subject
	for rows.Next() {
		s, err := scanSubject(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}
