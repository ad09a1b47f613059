package entity

import (
	"context"
	"fmt"
	"time"

	"distledger/internal/core/apperror"
	"distledger/internal/core/tenant"
)

// Status is the draft/posted lifecycle state shared by receipts, issues and snapshots.
type Status string

const (
	StatusDraft  Status = "draft"
	StatusPosted Status = "posted"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	return s == StatusDraft || s == StatusPosted
}

// ParseStatus converts user input to a Status. Empty input yields "".
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case "":
		return "", nil
	case StatusDraft, StatusPosted:
		return Status(s), nil
	default:
		return "", apperror.NewFieldValidation("status", fmt.Sprintf("unknown status %q", s))
	}
}

// Lifecycle carries the posting state of a document.
type Lifecycle struct {
	Status   Status     `db:"status" json:"status"`
	PostedBy string     `db:"posted_by" json:"postedBy,omitempty"`
	PostedAt *time.Time `db:"posted_at" json:"postedAt,omitempty"`
}

// IsPosted returns true once the document has been posted.
func (l *Lifecycle) IsPosted() bool {
	return l.Status == StatusPosted
}

// MarkPosted flips the document to posted.
func (l *Lifecycle) MarkPosted(actor string, at time.Time) {
	l.Status = StatusPosted
	l.PostedBy = actor
	at = at.UTC()
	l.PostedAt = &at
}

// MarkDraft returns a posted document to draft. Only snapshots use it.
func (l *Lifecycle) MarkDraft() {
	l.Status = StatusDraft
	l.PostedBy = ""
	l.PostedAt = nil
}

// Document is the base type for stock-moving documents (receipts and issues).
type Document struct {
	BaseDocument
	Lifecycle

	// Number is the reference number (bilty number for receipts)
	Number string `db:"number" json:"number"`

	// Date is the business date; reconciliation buckets movements by it
	Date time.Time `db:"date" json:"date"`

	Comment string `db:"comment" json:"comment,omitempty"`
}

// NewDocument creates a draft document for a tenant.
func NewDocument(tenantID tenant.ID) Document {
	return Document{
		BaseDocument: NewBaseDocument(tenantID),
		Lifecycle:    Lifecycle{Status: StatusDraft},
		Date:         time.Now().UTC(),
	}
}

// Validate implements Validatable.
func (d *Document) Validate(ctx context.Context) error {
	if err := d.BaseDocument.Validate(ctx); err != nil {
		return err
	}
	if d.Date.IsZero() {
		return apperror.NewFieldValidation("date", "date is required")
	}
	return nil
}

// CanModify rejects edits and deletes of posted documents.
func (d *Document) CanModify(entity string) error {
	if d.IsPosted() {
		return apperror.NewDocumentPosted(entity, d.ID.String())
	}
	return nil
}

// DocumentHeader exposes the shared header to generic document stores.
func (d *Document) DocumentHeader() *Document {
	return d
}
