package stock

import (
	"context"
	"fmt"

	"distledger/internal/core/apperror"
	"distledger/internal/core/id"
	"distledger/internal/core/tenant"
	"distledger/internal/core/tx"
	"distledger/internal/domain"
	"distledger/internal/domain/catalogs/product"
	"distledger/pkg/logger"
)

// Service provides stock record operations.
type Service struct {
	repo      Repository
	products  product.Reader
	txManager tx.Manager
	hooks     *domain.HookRegistry[*Record]
}

// NewService creates a new stock service.
func NewService(repo Repository, products product.Reader, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		products:  products,
		txManager: txManager,
		hooks:     domain.NewHookRegistry[*Record](),
	}
}

// Hooks returns the hook registry for registering callbacks.
func (s *Service) Hooks() *domain.HookRegistry[*Record] {
	return s.hooks
}

// Create inserts a record. Zero pricing is filled from the product catalogue.
func (s *Service) Create(ctx context.Context, rec *Record) error {
	if err := rec.Validate(ctx); err != nil {
		return err
	}

	p, err := s.products.GetByID(ctx, rec.ProductID)
	if err != nil {
		return err
	}
	if rec.Pricing.IsZero() {
		rec.Pricing = p.DefaultPricing()
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, rec); err != nil {
			return fmt.Errorf("create stock record: %w", err)
		}
		return s.hooks.Run(ctx, domain.AfterCreate, rec)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "stock record created",
		"id", rec.ID,
		"product_id", rec.ProductID,
		"quantity", rec.Quantity)
	return nil
}

// GetByID retrieves a record.
func (s *Service) GetByID(ctx context.Context, tenantID tenant.ID, recordID id.ID) (*Record, error) {
	return s.repo.GetByID(ctx, tenantID, recordID)
}

// List returns a page of records.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Record], error) {
	if err := filter.Validate(); err != nil {
		return domain.ListResult[*Record]{}, err
	}
	return s.repo.List(ctx, filter)
}

// Adjust changes a record's quantity by mode. The row is locked for the
// duration of the enclosing transaction.
func (s *Service) Adjust(
	ctx context.Context,
	tenantID tenant.ID,
	recordID id.ID,
	delta int64,
	mode AdjustMode,
	opts AdjustOptions,
) (*AdjustResult, error) {
	var result *AdjustResult

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		rec, err := s.repo.GetForUpdate(ctx, tenantID, recordID)
		if err != nil {
			return err
		}

		next, shortage, err := Apply(rec.ProductID, rec.Quantity, delta, mode, opts.AllowShortage)
		if err != nil {
			return err
		}

		previous := rec.Quantity
		rec.Quantity = next
		if err := s.repo.UpdateQuantity(ctx, rec); err != nil {
			return fmt.Errorf("update stock record: %w", err)
		}
		if err := s.hooks.Run(ctx, domain.AfterUpdate, rec); err != nil {
			return err
		}

		result = &AdjustResult{Record: rec, Previous: previous, Shortage: shortage}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Shortage > 0 {
		logger.Warn(ctx, "stock shortage absorbed",
			"id", recordID,
			"product_id", result.Record.ProductID,
			"requested", delta,
			"available", result.Previous,
			"shortage", result.Shortage)
	}
	logger.Debug(ctx, "stock adjusted",
		"id", recordID,
		"mode", mode,
		"delta", delta,
		"quantity", result.Record.Quantity)

	return result, nil
}

// Delete removes a record.
func (s *Service) Delete(ctx context.Context, tenantID tenant.ID, recordID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		rec, err := s.repo.GetForUpdate(ctx, tenantID, recordID)
		if err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, tenantID, recordID); err != nil {
			return err
		}
		return s.hooks.Run(ctx, domain.AfterDelete, rec)
	})
}

// Candidates returns every record of a product, for Resolve.
func (s *Service) Candidates(ctx context.Context, tenantID tenant.ID, productID id.ID) ([]*Record, error) {
	return s.repo.ListByProduct(ctx, tenantID, productID)
}

// ResolveFor resolves q against candidates, which must hold every record of
// q.ProductID. An explicit StockRecordID outside the set is loaded so that a
// record of another product is reported as such rather than as missing.
func (s *Service) ResolveFor(ctx context.Context, tenantID tenant.ID, candidates []*Record, q ResolveQuery) (*Record, error) {
	if q.StockRecordID != nil {
		found := false
		for _, c := range candidates {
			if c.ID == *q.StockRecordID {
				found = true
				break
			}
		}
		if !found {
			rec, err := s.repo.GetByID(ctx, tenantID, *q.StockRecordID)
			if err != nil {
				return nil, err
			}
			candidates = append(candidates[:len(candidates):len(candidates)], rec)
		}
	}
	return Resolve(candidates, q)
}

// Aggregate returns the current Store total for a product.
func (s *Service) Aggregate(ctx context.Context, tenantID tenant.ID, productID id.ID) (int64, error) {
	return s.repo.SumQuantity(ctx, tenantID, productID)
}

// ListForConversion returns every record with stock on hand.
func (s *Service) ListForConversion(ctx context.Context, tenantID tenant.ID) ([]*Record, error) {
	if id.IsNil(tenantID) {
		return nil, apperror.NewFieldValidation("tenantId", "tenant is required")
	}
	return s.repo.ListInStock(ctx, tenantID)
}
