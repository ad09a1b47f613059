package receipt

import (
	"context"
	"fmt"
	"time"

	"distledger/internal/core/apperror"
	"distledger/internal/core/entity"
	"distledger/internal/core/id"
	"distledger/internal/core/numerator"
	"distledger/internal/core/tenant"
	"distledger/internal/core/tx"
	"distledger/internal/domain"
	"distledger/internal/domain/catalogs/product"
	"distledger/internal/domain/documents"
	"distledger/internal/domain/stock"
	"distledger/pkg/logger"
)

// Service provides business operations for receipts.
type Service struct {
	repo      Repository
	stock     *stock.Service
	products  product.Reader
	numerator numerator.Generator
	txManager tx.Manager
	hooks     *domain.HookRegistry[*Receipt]
}

// NewService creates a new receipt service.
func NewService(
	repo Repository,
	stockService *stock.Service,
	products product.Reader,
	numerator numerator.Generator,
	txManager tx.Manager,
) *Service {
	return &Service{
		repo:      repo,
		stock:     stockService,
		products:  products,
		numerator: numerator,
		txManager: txManager,
		hooks:     domain.NewHookRegistry[*Receipt](),
	}
}

// Hooks returns the hook registry for registering callbacks.
func (s *Service) Hooks() *domain.HookRegistry[*Receipt] {
	return s.hooks
}

// Create stores a new draft receipt with its items.
func (s *Service) Create(ctx context.Context, doc *Receipt) error {
	doc.Lifecycle = entity.Lifecycle{Status: entity.StatusDraft}
	if err := doc.Validate(ctx); err != nil {
		return err
	}
	if err := s.fillPricing(ctx, doc); err != nil {
		return err
	}

	if err := documents.AssignNumber(ctx, s.numerator, &doc.Document, NumberPrefix); err != nil {
		return err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create document: %w", err)
		}
		if err := s.repo.SaveItems(ctx, doc.ID, doc.Items); err != nil {
			return fmt.Errorf("save items: %w", err)
		}
		return s.hooks.Run(ctx, domain.AfterCreate, doc)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "receipt created",
		"id", doc.ID,
		"number", doc.Number,
		"items", len(doc.Items))
	return nil
}

// GetByID retrieves a receipt with items.
func (s *Service) GetByID(ctx context.Context, tenantID tenant.ID, docID id.ID) (*Receipt, error) {
	doc, err := s.repo.GetByID(ctx, tenantID, docID)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.GetItems(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}
	doc.Items = items

	return doc, nil
}

// Update replaces header fields and the whole item set of a draft.
func (s *Service) Update(ctx context.Context, doc *Receipt) error {
	if err := doc.Validate(ctx); err != nil {
		return err
	}
	if err := s.fillPricing(ctx, doc); err != nil {
		return err
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetForUpdate(ctx, doc.TenantID, doc.ID)
		if err != nil {
			return err
		}
		if err := current.CanModify("receipt"); err != nil {
			return err
		}

		// lifecycle and provenance are not client-editable
		doc.Lifecycle = current.Lifecycle
		doc.CreatedAt = current.CreatedAt
		doc.CreatedBy = current.CreatedBy
		if doc.Number == "" {
			doc.Number = current.Number
		}

		if err := s.repo.Update(ctx, doc); err != nil {
			return fmt.Errorf("update document: %w", err)
		}
		if err := s.repo.SaveItems(ctx, doc.ID, doc.Items); err != nil {
			return fmt.Errorf("save items: %w", err)
		}
		return s.hooks.Run(ctx, domain.AfterUpdate, doc)
	})
}

// Post creates one stock record per item and marks the receipt posted,
// all in one transaction.
func (s *Service) Post(ctx context.Context, tenantID tenant.ID, docID id.ID, actor string) (*Receipt, error) {
	var doc *Receipt

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.repo.GetForUpdate(ctx, tenantID, docID)
		if err != nil {
			return err
		}
		if doc.IsPosted() {
			return apperror.NewDocumentPosted("receipt", docID.String())
		}

		doc.Items, err = s.repo.GetItems(ctx, docID)
		if err != nil {
			return fmt.Errorf("get items: %w", err)
		}
		if len(doc.Items) == 0 {
			return apperror.NewFieldValidation("items", "cannot post a receipt without items")
		}

		doc.MarkPosted(actor, time.Now())

		records, err := s.stockRecords(ctx, doc)
		if err != nil {
			return err
		}
		for i, rec := range records {
			if err := s.stock.Create(ctx, rec); err != nil {
				return fmt.Errorf("line %d: %w", doc.Items[i].LineNo, err)
			}
		}

		if err := s.repo.Update(ctx, doc); err != nil {
			return fmt.Errorf("mark posted: %w", err)
		}
		return s.hooks.Run(ctx, domain.AfterPost, doc)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "receipt posted",
		"id", doc.ID,
		"number", doc.Number,
		"quantity", documents.TotalQuantity(doc.Items))
	return doc, nil
}

// Delete removes a draft receipt with its items.
func (s *Service) Delete(ctx context.Context, tenantID tenant.ID, docID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		doc, err := s.repo.GetForUpdate(ctx, tenantID, docID)
		if err != nil {
			return err
		}
		if err := doc.CanModify("receipt"); err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, tenantID, docID); err != nil {
			return err
		}
		return s.hooks.Run(ctx, domain.AfterDelete, doc)
	})
}

// List returns a page of receipt headers.
func (s *Service) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Receipt], error) {
	if err := filter.Validate(); err != nil {
		return domain.ListResult[*Receipt]{}, err
	}
	return s.repo.List(ctx, filter)
}

// SumQuantities sums received quantities of a product for the query window.
func (s *Service) SumQuantities(ctx context.Context, q domain.MovementQuery) (int64, error) {
	if id.IsNil(q.TenantID) {
		return 0, apperror.NewFieldValidation("tenantId", "tenant is required")
	}
	return s.repo.SumQuantities(ctx, q)
}

// ProductsWithMovements lists products appearing on any receipt of the tenant.
func (s *Service) ProductsWithMovements(ctx context.Context, tenantID tenant.ID) ([]id.ID, error) {
	return s.repo.ProductsWithMovements(ctx, tenantID)
}

// fillPricing checks product references and copies catalogue pricing onto
// items that carry none.
// stockRecords builds and checks every line's record before any is written,
// so a bad line cannot leave earlier lines' stock behind.
func (s *Service) stockRecords(ctx context.Context, doc *Receipt) ([]*stock.Record, error) {
	products, err := product.RequireAll(ctx, s.products, documents.ProductIDs(doc.Items))
	if err != nil {
		return nil, err
	}
	records := make([]*stock.Record, len(doc.Items))
	for i, item := range doc.Items {
		rec := doc.StockRecord(item)
		if rec.Pricing.IsZero() {
			rec.Pricing = products[item.ProductID].DefaultPricing()
		}
		if err := rec.Validate(ctx); err != nil {
			return nil, fmt.Errorf("line %d: %w", item.LineNo, err)
		}
		records[i] = rec
	}
	return records, nil
}

func (s *Service) fillPricing(ctx context.Context, doc *Receipt) error {
	products, err := product.RequireAll(ctx, s.products, documents.ProductIDs(doc.Items))
	if err != nil {
		return err
	}
	for i := range doc.Items {
		item := &doc.Items[i]
		if item.Pricing.IsZero() {
			item.Pricing = products[item.ProductID].DefaultPricing()
		}
	}
	return nil
}
