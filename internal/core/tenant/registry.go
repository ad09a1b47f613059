package tenant

import (
	"context"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Getter looks up one distribution.
type Getter interface {
	// GetByID retrieves a distribution by id.
	GetByID(ctx context.Context, tenantID ID) (*Distribution, error)
}

// Registry provides access to distribution records.
type Registry interface {
	Getter

	// ListActive returns all active distributions.
	ListActive(ctx context.Context) ([]*Distribution, error)

	// ListAll returns all distributions.
	ListAll(ctx context.Context) ([]*Distribution, error)

	// Create inserts a new distribution and populates its ID.
	Create(ctx context.Context, in CreateInput) (*Distribution, error)

	// UpdateStatus changes the distribution status.
	UpdateStatus(ctx context.Context, tenantID ID, status Status) error
}

// Resolve loads an active distribution or returns a sentinel error.
func Resolve(ctx context.Context, r Getter, tenantID ID) (*Distribution, error) {
	d, err := r.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if !d.IsActive() {
		return nil, ErrTenantNotActive
	}
	return d, nil
}

// PostgresRegistry implements Registry on the ledger database.
type PostgresRegistry struct {
	pool *pgxpool.Pool
}

func NewPostgresRegistry(pool *pgxpool.Pool) *PostgresRegistry {
	return &PostgresRegistry{pool: pool}
}

const distributionColumns = `id, code, name, status, created_at, updated_at`

func (r *PostgresRegistry) GetByID(ctx context.Context, tenantID ID) (*Distribution, error) {
	var d Distribution
	err := pgxscan.Get(ctx, r.pool, &d, `
		SELECT `+distributionColumns+`
		FROM distributions
		WHERE id = $1
	`, tenantID)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("get distribution by id: %w", err)
	}
	return &d, nil
}

func (r *PostgresRegistry) ListActive(ctx context.Context) ([]*Distribution, error) {
	var out []*Distribution
	err := pgxscan.Select(ctx, r.pool, &out, `
		SELECT `+distributionColumns+`
		FROM distributions
		WHERE status = $1
		ORDER BY code
	`, StatusActive)
	if err != nil {
		return nil, fmt.Errorf("list active distributions: %w", err)
	}
	return out, nil
}

func (r *PostgresRegistry) ListAll(ctx context.Context) ([]*Distribution, error) {
	var out []*Distribution
	err := pgxscan.Select(ctx, r.pool, &out, `
		SELECT `+distributionColumns+`
		FROM distributions
		ORDER BY code
	`)
	if err != nil {
		return nil, fmt.Errorf("list distributions: %w", err)
	}
	return out, nil
}

func (r *PostgresRegistry) Create(ctx context.Context, in CreateInput) (*Distribution, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var d Distribution
	err := pgxscan.Get(ctx, r.pool, &d, `
		INSERT INTO distributions (code, name, status)
		VALUES ($1, $2, $3)
		RETURNING `+distributionColumns,
		in.Code, in.Name, StatusActive)
	if err != nil {
		return nil, fmt.Errorf("create distribution: %w", err)
	}
	return &d, nil
}

func (r *PostgresRegistry) UpdateStatus(ctx context.Context, tenantID ID, status Status) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE distributions
		SET status = $2, updated_at = NOW()
		WHERE id = $1
	`, tenantID, status)
	if err != nil {
		return fmt.Errorf("update distribution status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTenantNotFound
	}
	return nil
}

var _ Registry = (*PostgresRegistry)(nil)
