// Package audit records ledger lifecycle events (creation, edits, posting,
// reverts, deletes) by subscribing to the services' hook registries.
package audit

import (
	"context"
	"fmt"
	"time"

	appctx "distledger/internal/core/context"
	"distledger/internal/core/id"
	"distledger/internal/core/tenant"
	"distledger/internal/domain"
)

// Action is the audited operation.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionPost   Action = "post"
	ActionRevert Action = "revert"
)

var hookActions = map[domain.HookEvent]Action{
	domain.AfterCreate: ActionCreate,
	domain.AfterUpdate: ActionUpdate,
	domain.AfterDelete: ActionDelete,
	domain.AfterPost:   ActionPost,
	domain.AfterRevert: ActionRevert,
}

// Entry is one audit log line.
type Entry struct {
	ID         id.ID
	TenantID   tenant.ID
	EntityType string
	EntityID   id.ID
	Action     Action
	Actor      string
	Changes    map[string]any
	CreatedAt  time.Time
}

// Writer persists entries. Writes happen inside the operation's transaction.
type Writer interface {
	Write(ctx context.Context, entry Entry) error
}

// Subject is what an entity contributes to its audit entry.
type Subject struct {
	TenantID   tenant.ID
	EntityType string
	EntityID   id.ID
	Changes    map[string]any
}

// Attach subscribes w to the given events of hooks. With no events every
// known event is recorded.
func Attach[T any](w Writer, hooks *domain.HookRegistry[T], describe func(T) Subject, events ...domain.HookEvent) {
	if len(events) == 0 {
		events = []domain.HookEvent{
			domain.AfterCreate, domain.AfterUpdate, domain.AfterDelete,
			domain.AfterPost, domain.AfterRevert,
		}
	}
	for _, event := range events {
		action, ok := hookActions[event]
		if !ok {
			panic(fmt.Sprintf("audit: unknown hook event %q", event))
		}
		hooks.On(event, func(ctx context.Context, entity T) error {
			s := describe(entity)
			return w.Write(ctx, Entry{
				ID:         id.New(),
				TenantID:   s.TenantID,
				EntityType: s.EntityType,
				EntityID:   s.EntityID,
				Action:     action,
				Actor:      appctx.GetActorID(ctx),
				Changes:    s.Changes,
				CreatedAt:  time.Now().UTC(),
			})
		})
	}
}
