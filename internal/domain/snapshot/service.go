package snapshot

import (
	"context"
	"fmt"
	"time"

	"distledger/internal/core/apperror"
	"distledger/internal/core/entity"
	"distledger/internal/core/id"
	"distledger/internal/core/tenant"
	"distledger/internal/core/tx"
	"distledger/internal/core/types"
	"distledger/internal/domain"
	"distledger/internal/domain/catalogs/product"
	"distledger/pkg/logger"
)

// Service provides the snapshot lifecycle: create, edit while draft,
// post, revert and delete.
type Service struct {
	repo      Repository
	products  product.Reader
	txManager tx.Manager
	hooks     *domain.HookRegistry[*Snapshot]
}

// NewService creates a new snapshot service.
func NewService(repo Repository, products product.Reader, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		products:  products,
		txManager: txManager,
		hooks:     domain.NewHookRegistry[*Snapshot](),
	}
}

// Hooks returns the hook registry for registering callbacks.
func (s *Service) Hooks() *domain.HookRegistry[*Snapshot] {
	return s.hooks
}

// Create stores a snapshot. A missing breakdown is derived from the product
// pack size and missing pricing from the catalogue. A second snapshot for the
// same (kind, tenant, product, date) fails with DUPLICATE_ENTRY.
func (s *Service) Create(ctx context.Context, snap *Snapshot) error {
	if snap.Status == "" {
		snap.Status = entity.StatusDraft
	}
	if err := snap.Validate(ctx); err != nil {
		return err
	}
	if err := s.complete(ctx, snap); err != nil {
		return err
	}
	if snap.IsPosted() && snap.PostedAt == nil {
		snap.MarkPosted(snap.CreatedBy, time.Now())
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		created, err := s.repo.Insert(ctx, snap)
		if err != nil {
			return fmt.Errorf("insert snapshot: %w", err)
		}
		if !created {
			return DuplicateError(snap)
		}
		return s.hooks.Run(ctx, domain.AfterCreate, snap)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "snapshot created",
		"id", snap.ID,
		"kind", snap.Kind,
		"product_id", snap.ProductID,
		"date", snap.Date.Format(time.DateOnly),
		"quantity", snap.Quantity,
		"status", snap.Status)
	return nil
}

// GetByID retrieves a snapshot.
func (s *Service) GetByID(ctx context.Context, kind Kind, tenantID tenant.ID, snapshotID id.ID) (*Snapshot, error) {
	if !kind.IsValid() {
		return nil, apperror.NewFieldValidation("kind", "kind must be opening or closing")
	}
	return s.repo.GetByID(ctx, kind, tenantID, snapshotID)
}

// List returns a page of snapshots of one kind.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Snapshot], error) {
	if err := filter.Validate(); err != nil {
		return domain.ListResult[*Snapshot]{}, err
	}
	return s.repo.List(ctx, filter)
}

// Update edits a draft snapshot. Lifecycle fields are kept from storage.
func (s *Service) Update(ctx context.Context, snap *Snapshot) error {
	if err := snap.Validate(ctx); err != nil {
		return err
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetForUpdate(ctx, snap.Kind, snap.TenantID, snap.ID)
		if err != nil {
			return err
		}
		if current.IsPosted() {
			return apperror.NewDocumentPosted(current.entityName(), current.ID.String())
		}

		snap.Lifecycle = current.Lifecycle
		snap.CreatedAt = current.CreatedAt
		snap.CreatedBy = current.CreatedBy
		if snap.Breakdown.IsZero() || snap.Pricing.IsZero() {
			if err := s.complete(ctx, snap); err != nil {
				return err
			}
		}

		if err := s.repo.Update(ctx, snap); err != nil {
			return fmt.Errorf("update snapshot: %w", err)
		}
		return s.hooks.Run(ctx, domain.AfterUpdate, snap)
	})
}

// Post flips a draft snapshot to posted. Stock is not touched.
func (s *Service) Post(ctx context.Context, kind Kind, tenantID tenant.ID, snapshotID id.ID, actor string) (*Snapshot, error) {
	snap, err := s.transition(ctx, kind, tenantID, snapshotID, domain.AfterPost, func(snap *Snapshot) error {
		if snap.IsPosted() {
			return apperror.NewDocumentPosted(snap.entityName(), snap.ID.String())
		}
		snap.MarkPosted(actor, time.Now())
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "snapshot posted", "id", snap.ID, "kind", kind, "actor", actor)
	return snap, nil
}

// Revert returns a posted snapshot to draft.
func (s *Service) Revert(ctx context.Context, kind Kind, tenantID tenant.ID, snapshotID id.ID) (*Snapshot, error) {
	snap, err := s.transition(ctx, kind, tenantID, snapshotID, domain.AfterRevert, func(snap *Snapshot) error {
		if !snap.IsPosted() {
			return apperror.NewDocumentNotPosted(snap.entityName(), snap.ID.String())
		}
		snap.MarkDraft()
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "snapshot reverted", "id", snap.ID, "kind", kind)
	return snap, nil
}

// Delete removes a draft snapshot.
func (s *Service) Delete(ctx context.Context, kind Kind, tenantID tenant.ID, snapshotID id.ID) error {
	if !kind.IsValid() {
		return apperror.NewFieldValidation("kind", "kind must be opening or closing")
	}
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		snap, err := s.repo.GetForUpdate(ctx, kind, tenantID, snapshotID)
		if err != nil {
			return err
		}
		if snap.IsPosted() {
			return apperror.NewDocumentPosted(snap.entityName(), snap.ID.String())
		}
		if err := s.repo.Delete(ctx, kind, tenantID, snapshotID); err != nil {
			return err
		}
		return s.hooks.Run(ctx, domain.AfterDelete, snap)
	})
}

// FindPosted returns the posted snapshot of a product on a day, or nil.
func (s *Service) FindPosted(ctx context.Context, kind Kind, tenantID tenant.ID, productID id.ID, date time.Time) (*Snapshot, error) {
	return s.repo.FindPosted(ctx, kind, tenantID, productID, domain.TruncateDay(date))
}

// ProductsWithSnapshots lists products having any snapshot in the tenant.
func (s *Service) ProductsWithSnapshots(ctx context.Context, tenantID tenant.ID) ([]id.ID, error) {
	return s.repo.ProductsWithSnapshots(ctx, tenantID)
}

func (s *Service) transition(
	ctx context.Context,
	kind Kind,
	tenantID tenant.ID,
	snapshotID id.ID,
	event domain.HookEvent,
	apply func(*Snapshot) error,
) (*Snapshot, error) {
	if !kind.IsValid() {
		return nil, apperror.NewFieldValidation("kind", "kind must be opening or closing")
	}

	var snap *Snapshot
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		snap, err = s.repo.GetForUpdate(ctx, kind, tenantID, snapshotID)
		if err != nil {
			return err
		}
		if err := apply(snap); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, snap); err != nil {
			return fmt.Errorf("update snapshot: %w", err)
		}
		return s.hooks.Run(ctx, event, snap)
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// complete fills breakdown and pricing from the product.
func (s *Service) complete(ctx context.Context, snap *Snapshot) error {
	p, err := s.products.GetByID(ctx, snap.ProductID)
	if err != nil {
		return err
	}
	if snap.Breakdown.IsZero() {
		snap.Breakdown = types.NewBreakdown(snap.Quantity, p.PiecesPerPack)
	}
	if snap.Pricing.IsZero() {
		snap.Pricing = p.DefaultPricing()
	}
	return nil
}

// DuplicateError reports a second snapshot of the same kind for (tenant, product, date).
func DuplicateError(snap *Snapshot) error {
	return apperror.NewDuplicate(snap.entityName(), "date", snap.Date.Format(time.DateOnly)).
		WithDetail("productId", snap.ProductID.String())
}
