package issue

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

// PostOptions tunes a single posting.
type PostOptions struct {
	// AllowShortage overrides the document flag for this call.
	AllowShortage bool
}

// Service provides business operations for issues.
type Service struct {
	repo      Repository
	stock     *stock.Service
	products  product.Reader
	numerator numerator.Generator
	txManager tx.Manager
	hooks     *domain.HookRegistry[*Issue]
}

// NewService creates a new issue service.
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
		hooks:     domain.NewHookRegistry[*Issue](),
	}
}

// Hooks returns the hook registry for registering callbacks.
func (s *Service) Hooks() *domain.HookRegistry[*Issue] {
	return s.hooks
}

// Create stores a new draft issue with its items.
func (s *Service) Create(ctx context.Context, doc *Issue) error {
	doc.Lifecycle = entity.Lifecycle{Status: entity.StatusDraft}
	if err := doc.Validate(ctx); err != nil {
		return err
	}
	if _, err := product.RequireAll(ctx, s.products, documents.ProductIDs(doc.Items)); err != nil {
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

	logger.Info(ctx, "issue created",
		"id", doc.ID,
		"number", doc.Number,
		"items", len(doc.Items))
	return nil
}

// GetByID retrieves an issue with items.
func (s *Service) GetByID(ctx context.Context, tenantID tenant.ID, docID id.ID) (*Issue, error) {
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
func (s *Service) Update(ctx context.Context, doc *Issue) error {
	if err := doc.Validate(ctx); err != nil {
		return err
	}
	if _, err := product.RequireAll(ctx, s.products, documents.ProductIDs(doc.Items)); err != nil {
		return err
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetForUpdate(ctx, doc.TenantID, doc.ID)
		if err != nil {
			return err
		}
		if err := current.CanModify("issue"); err != nil {
			return err
		}

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

// Post resolves a stock record for every item, decrements it and marks the
// issue posted. Without a shortage override, any line short of stock fails
// the whole posting with INSUFFICIENT_STOCK before a record is touched.
func (s *Service) Post(ctx context.Context, tenantID tenant.ID, docID id.ID, actor string, opts PostOptions) (*Issue, error) {
	var doc *Issue

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.repo.GetForUpdate(ctx, tenantID, docID)
		if err != nil {
			return err
		}
		if doc.IsPosted() {
			return apperror.NewDocumentPosted("issue", docID.String())
		}

		doc.Items, err = s.repo.GetItems(ctx, docID)
		if err != nil {
			return fmt.Errorf("get items: %w", err)
		}
		if len(doc.Items) == 0 {
			return apperror.NewFieldValidation("items", "cannot post an issue without items")
		}

		allowShortage := opts.AllowShortage || doc.AllowShortage

		if err := s.plan(ctx, doc, allowShortage); err != nil {
			return err
		}

		for i := range doc.Items {
			item := &doc.Items[i]
			res, err := s.stock.Adjust(ctx, tenantID, *item.ResolvedRecordID, item.Quantity,
				stock.ModeSubtract, stock.AdjustOptions{AllowShortage: allowShortage})
			if err != nil {
				return fmt.Errorf("line %d: %w", item.LineNo, err)
			}
			item.ShortageQty = res.Shortage
		}

		if err := s.repo.SaveItems(ctx, doc.ID, doc.Items); err != nil {
			return fmt.Errorf("save items: %w", err)
		}

		doc.MarkPosted(actor, time.Now())
		if err := s.repo.Update(ctx, doc); err != nil {
			return fmt.Errorf("mark posted: %w", err)
		}
		return s.hooks.Run(ctx, domain.AfterPost, doc)
	})
	if err != nil {
		return nil, err
	}

	if shortage := doc.TotalShortage(); shortage > 0 {
		logger.Warn(ctx, "issue posted with shortage",
			"id", doc.ID,
			"number", doc.Number,
			"shortage", shortage)
	}
	logger.Info(ctx, "issue posted",
		"id", doc.ID,
		"number", doc.Number,
		"quantity", documents.TotalQuantity(doc.Items))
	return doc, nil
}

// plan resolves every line against a running view of the candidate records,
// so several lines drawing on one record see each other's decrements.
func (s *Service) plan(ctx context.Context, doc *Issue, allowShortage bool) error {
	candidates := make(map[id.ID][]*stock.Record)

	for i := range doc.Items {
		item := &doc.Items[i]

		set, ok := candidates[item.ProductID]
		if !ok {
			var err error
			set, err = s.stock.Candidates(ctx, doc.TenantID, item.ProductID)
			if err != nil {
				return fmt.Errorf("load stock for line %d: %w", item.LineNo, err)
			}
			candidates[item.ProductID] = set
		}

		rec, err := s.stock.ResolveFor(ctx, doc.TenantID, set, item.ResolveQuery())
		if err != nil {
			return err
		}

		next, _, err := stock.Apply(rec.ProductID, rec.Quantity, item.Quantity, stock.ModeSubtract, allowShortage)
		if err != nil {
			if appErr, ok := apperror.AsAppError(err); ok {
				appErr.WithDetail("lineNo", item.LineNo)
			}
			return err
		}
		rec.Quantity = next

		recordID := rec.ID
		item.ResolvedRecordID = &recordID
		item.UnitCost = rec.UnitCost
	}
	return nil
}

// Delete removes a draft issue with its items.
func (s *Service) Delete(ctx context.Context, tenantID tenant.ID, docID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		doc, err := s.repo.GetForUpdate(ctx, tenantID, docID)
		if err != nil {
			return err
		}
		if err := doc.CanModify("issue"); err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, tenantID, docID); err != nil {
			return err
		}
		return s.hooks.Run(ctx, domain.AfterDelete, doc)
	})
}

// List returns a page of issue headers.
func (s *Service) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Issue], error) {
	if err := filter.Validate(); err != nil {
		return domain.ListResult[*Issue]{}, err
	}
	return s.repo.List(ctx, filter)
}

// SumQuantities sums issued quantities of a product for the query window.
func (s *Service) SumQuantities(ctx context.Context, q domain.MovementQuery) (int64, error) {
	if id.IsNil(q.TenantID) {
		return 0, apperror.NewFieldValidation("tenantId", "tenant is required")
	}
	return s.repo.SumQuantities(ctx, q)
}

// ProductsWithMovements lists products appearing on any issue of the tenant.
func (s *Service) ProductsWithMovements(ctx context.Context, tenantID tenant.ID) ([]id.ID, error) {
	return s.repo.ProductsWithMovements(ctx, tenantID)
}
