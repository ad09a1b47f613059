package document_repo

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"distledger/internal/core/apperror"
	"distledger/internal/core/entity"
	"distledger/internal/core/id"
	"distledger/internal/domain"
	"distledger/internal/domain/documents/issue"
	"distledger/internal/domain/documents/receipt"
)

func receiptRepo() *Repo[*receipt.Receipt, receipt.Item] {
	return New[receipt.Receipt, *receipt.Receipt, receipt.Item](nil, ReceiptTables,
		func() *receipt.Receipt { return &receipt.Receipt{} })
}

func TestRepo_Columns(t *testing.T) {
	r := receiptRepo()

	assert.Contains(t, r.headerCols, "number")
	assert.Contains(t, r.headerCols, "status")
	assert.Contains(t, r.headerCols, "tenant_id")
	assert.NotContains(t, r.headerCols, "items")
	assert.Contains(t, r.itemCols, "document_id")
	assert.Contains(t, r.itemCols, "unit_cost")
}

func TestRepo_SumQuery(t *testing.T) {
	r := receiptRepo()
	tenantID, productID := id.New(), id.New()
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 31, 15, 0, 0, 0, time.UTC)

	sql, args, err := r.sumQuery(domain.MovementQuery{
		TenantID:  tenantID,
		ProductID: productID,
		From:      from,
		To:        &to,
		Status:    domain.MovementPosted,
	}).ToSql()
	require.NoError(t, err)

	assert.Equal(t, "SELECT COALESCE(SUM(i.quantity), 0) FROM doc_receipt_items i"+
		" JOIN doc_receipts d ON d.id = i.document_id"+
		" WHERE d.tenant_id = $1 AND i.product_id = $2 AND d.date >= $3 AND d.date <= $4 AND d.status = $5", sql)
	assert.Equal(t, []any{tenantID.String(), productID.String(), from, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), "posted"}, args)
}

func TestRepo_SumQuery_AllStatusesOpenEnded(t *testing.T) {
	r := New[issue.Issue, *issue.Issue, issue.Item](nil, IssueTables, func() *issue.Issue { return &issue.Issue{} })

	sql, args, err := r.sumQuery(domain.MovementQuery{
		TenantID:  id.New(),
		ProductID: id.New(),
		From:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Status:    domain.MovementAll,
	}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "FROM doc_issue_items i JOIN doc_issues d")
	assert.NotContains(t, sql, "d.status")
	assert.NotContains(t, sql, "d.date <=")
	assert.Len(t, args, 3)
}

func TestRepo_UpdateQuery(t *testing.T) {
	r := receiptRepo()
	doc := receipt.New(id.New())
	doc.Number = "RCP-202403-000001"
	doc.Version = 3

	sql, args, err := r.updateQuery(doc).ToSql()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(sql, "UPDATE doc_receipts SET "))
	assert.Contains(t, sql, "version = version + 1")
	assert.Contains(t, sql, "updated_at = NOW()")
	assert.True(t, strings.HasSuffix(sql, "WHERE id = $"+strconv.Itoa(len(args)-2)+" AND tenant_id = $"+strconv.Itoa(len(args)-1)+" AND version = $"+strconv.Itoa(len(args))))

	set := sql[:strings.Index(sql, " WHERE ")]
	for _, col := range []string{"created_at =", "created_by =", "tenant_id =", " id ="} {
		assert.NotContains(t, set, col)
	}
	assert.Equal(t, 3, args[len(args)-1])
}

func TestRepo_ListQuery(t *testing.T) {
	r := receiptRepo()
	tenantID := id.New()
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	sql, args, err := r.listQuery(domain.ListFilter{
		TenantID: tenantID,
		Status:   entity.StatusDraft,
		DateFrom: &from,
		Search:   "ghee",
	}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "FROM doc_receipts WHERE tenant_id = $1 AND status = $2 AND date >= $3")
	assert.Contains(t, sql, "number ILIKE $4")
	assert.Contains(t, sql, "EXISTS (SELECT 1 FROM doc_receipt_items i JOIN products p ON p.id = i.product_id"+
		" WHERE i.document_id = doc_receipts.id AND (p.name ILIKE $5 OR p.code ILIKE $6))")
	assert.Equal(t, []any{tenantID.String(), "draft", from, "%ghee%", "%ghee%", "%ghee%"}, args)
}

func TestParseOrderBy(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "", want: "date DESC"},
		{in: "number", want: "number ASC"},
		{in: "-created_at", want: "created_at DESC"},
		{in: "+date", want: "date ASC"},
		{in: "tenant_id; DROP TABLE x", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseOrderBy(tt.in)
			if tt.wantErr {
				assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRepo_ItemRow(t *testing.T) {
	r := receiptRepo()
	docID := id.New()
	item := receipt.Item{ProductID: id.New(), Quantity: 12, LineNo: 1, DocumentID: id.New()}

	row := r.itemRow(docID, item)
	require.Len(t, row, len(r.itemCols))

	for i, col := range r.itemCols {
		switch col {
		case "document_id":
			assert.Equal(t, docID, row[i])
		case "line_id":
			assert.False(t, id.IsNil(row[i].(id.ID)))
		case "quantity":
			assert.Equal(t, int64(12), row[i])
		case "product_id":
			assert.Equal(t, item.ProductID, row[i])
		}
	}
}
