package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/klauspost/compress/zstd"

	"distledger/internal/core/id"
	"distledger/internal/core/tenant"
	"distledger/internal/domain/audit"
)

const auditTable = "sys_audit"

// CompressionAlgo specifies how the changes payload is stored.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// DefaultCompressThreshold is the payload size above which changes are compressed.
const DefaultCompressThreshold = 8 * 1024

// AuditRow is a sys_audit row.
type AuditRow struct {
	ID                id.ID           `db:"id"`
	TenantID          tenant.ID       `db:"tenant_id"`
	EntityType        string          `db:"entity_type"`
	EntityID          id.ID           `db:"entity_id"`
	Action            string          `db:"action"`
	Actor             string          `db:"actor"`
	Changes           json.RawMessage `db:"changes"`
	ChangesCompressed []byte          `db:"changes_compressed"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo"`
	CreatedAt         time.Time       `db:"created_at"`
}

// AuditLog implements audit.Writer on sys_audit.
type AuditLog struct {
	txManager         *TxManager
	builder           squirrel.StatementBuilderType
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

var _ audit.Writer = (*AuditLog)(nil)

// NewAuditLog creates an audit log. threshold <= 0 uses DefaultCompressThreshold.
func NewAuditLog(txManager *TxManager, threshold int) (*AuditLog, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	if threshold <= 0 {
		threshold = DefaultCompressThreshold
	}
	return &AuditLog{
		txManager:         txManager,
		builder:           squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: threshold,
	}, nil
}

// Write implements audit.Writer. It joins the caller's transaction.
func (l *AuditLog) Write(ctx context.Context, e audit.Entry) error {
	row, err := l.encode(e)
	if err != nil {
		return err
	}

	sql, args, err := l.insertQuery(row).ToSql()
	if err != nil {
		return fmt.Errorf("build audit insert: %w", err)
	}
	if _, err := l.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (l *AuditLog) insertQuery(row AuditRow) squirrel.InsertBuilder {
	return l.builder.Insert(auditTable).
		Columns("id", "tenant_id", "entity_type", "entity_id", "action", "actor",
			"changes", "changes_compressed", "compression_algo", "created_at").
		Values(row.ID, row.TenantID, row.EntityType, row.EntityID, row.Action, row.Actor,
			row.Changes, row.ChangesCompressed, row.CompressionAlgo, row.CreatedAt)
}

func (l *AuditLog) encode(e audit.Entry) (AuditRow, error) {
	if id.IsNil(e.ID) {
		e.ID = id.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	changes, err := json.Marshal(e.Changes)
	if err != nil {
		return AuditRow{}, fmt.Errorf("marshal audit changes: %w", err)
	}

	row := AuditRow{
		ID:              e.ID,
		TenantID:        e.TenantID,
		EntityType:      e.EntityType,
		EntityID:        e.EntityID,
		Action:          string(e.Action),
		Actor:           e.Actor,
		Changes:         changes,
		CompressionAlgo: CompressionNone,
		CreatedAt:       e.CreatedAt,
	}
	if len(changes) > l.compressThreshold {
		row.ChangesCompressed = l.encoder.EncodeAll(changes, nil)
		row.Changes = nil
		row.CompressionAlgo = CompressionZstd
	}
	return row, nil
}

func (l *AuditLog) decode(row *AuditRow) error {
	if row.CompressionAlgo != CompressionZstd || len(row.ChangesCompressed) == 0 {
		return nil
	}
	plain, err := l.decoder.DecodeAll(row.ChangesCompressed, nil)
	if err != nil {
		return fmt.Errorf("decompress changes: %w", err)
	}
	row.Changes = plain
	row.ChangesCompressed = nil
	return nil
}

// History returns the newest entries for an entity of a tenant.
func (l *AuditLog) History(ctx context.Context, tenantID tenant.ID, entityType string, entityID id.ID, limit int) ([]AuditRow, error) {
	if limit <= 0 {
		limit = 50
	}
	sql, args, err := l.builder.
		Select("id", "tenant_id", "entity_type", "entity_id", "action", "actor",
			"changes", "changes_compressed", "compression_algo", "created_at").
		From(auditTable).
		Where(squirrel.Eq{"tenant_id": tenantID, "entity_type": entityType, "entity_id": entityID}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build audit query: %w", err)
	}

	rows, err := l.txManager.GetQuerier(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []AuditRow
	for rows.Next() {
		var r AuditRow
		if err := rows.Scan(
			&r.ID, &r.TenantID, &r.EntityType, &r.EntityID, &r.Action, &r.Actor,
			&r.Changes, &r.ChangesCompressed, &r.CompressionAlgo, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if err := l.decode(&r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
