package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"distledger/internal/core/apperror"
	"distledger/internal/core/id"
	"distledger/internal/core/numerator"
	"distledger/internal/core/tenant"
	"distledger/internal/core/tx"
	"distledger/internal/domain/catalogs/product"
	"distledger/internal/domain/documents/issue"
	"distledger/internal/domain/documents/receipt"
	"distledger/internal/domain/reports"
	"distledger/internal/domain/snapshot"
	"distledger/internal/domain/stock"
	"distledger/internal/infrastructure/http/v1/handlers"
	"distledger/internal/infrastructure/http/v1/middleware"
	"distledger/pkg/logger"
)

type api struct {
	t         *testing.T
	handler   http.Handler
	tenantID  id.ID
	suspended id.ID
	product   *product.Product
}

func newAPI(t *testing.T) *api {
	t.Helper()
	p := &product.Product{ID: id.New(), Code: "GH-1", Name: "Ghee 1kg", PiecesPerPack: 12, Active: true}
	products := product.NewMemoryReader(p)
	gen := numerator.NewMemoryGenerator()
	txm := tx.Passthrough{}

	stockSvc := stock.NewService(stock.NewMemoryRepository(products), products, txm)
	receipts := receipt.NewService(receipt.NewMemoryRepository(products), stockSvc, products, gen, txm)
	issues := issue.NewService(issue.NewMemoryRepository(products), stockSvc, products, gen, txm)
	snapshots := snapshot.NewService(snapshot.NewMemoryRepository(products), products, txm)

	active := &tenant.Distribution{ID: id.New(), Code: "LHR", Name: "Lahore Central", Status: tenant.StatusActive}
	suspended := &tenant.Distribution{ID: id.New(), Code: "KHI", Name: "Karachi", Status: tenant.StatusSuspended}
	registry := tenant.NewMemoryRegistry(active, suspended)

	router := NewRouter(RouterConfig{
		Logger:    logger.Nop(),
		Tenants:   registry,
		Stock:     stockSvc,
		Receipts:  receipts,
		Issues:    issues,
		Snapshots: snapshots,
		Converter: snapshot.NewConverter(stockSvc, snapshots, nil),
		Reports:   reports.NewService(reports.NewServiceSource(stockSvc, receipts, issues, snapshots), products, registry),
		HealthChecks: map[string]handlers.Check{
			"database": func(context.Context) error { return nil },
		},
	})

	return &api{t: t, handler: router, tenantID: active.ID, suspended: suspended.ID, product: p}
}

func (a *api) do(method, path string, body any, out any) int {
	a.t.Helper()
	return a.doAs(a.tenantID.String(), method, path, body, out)
}

func (a *api) doAs(tenantHeader, method, path string, body any, out any) int {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tenantHeader != "" {
		req.Header.Set(middleware.TenantHeader, tenantHeader)
	}
	req.Header.Set(middleware.HeaderActorID, "clerk-7")

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	if out != nil && rec.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

type errorBody struct {
	Code    string         `json:"code"`
	Details map[string]any `json:"details"`
}

func TestHealth(t *testing.T) {
	a := newAPI(t)

	assert.Equal(t, http.StatusOK, a.doAs("", http.MethodGet, "/health/live", nil, nil))

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	assert.Equal(t, http.StatusOK, a.doAs("", http.MethodGet, "/health/ready", nil, &body))
	assert.Equal(t, "healthy", body.Checks["database"])
}

func TestHealth_NotReady(t *testing.T) {
	router := NewRouter(RouterConfig{
		Logger:  logger.Nop(),
		Tenants: tenant.NewMemoryRegistry(),
		HealthChecks: map[string]handlers.Check{
			"redis": func(context.Context) error { return errors.New("connection refused") },
		},
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestTenantMiddleware(t *testing.T) {
	a := newAPI(t)
	var body errorBody

	assert.Equal(t, http.StatusBadRequest, a.doAs("", http.MethodGet, "/api/v1/stock", nil, &body))
	assert.Equal(t, apperror.CodeValidation, body.Code)

	assert.Equal(t, http.StatusBadRequest, a.doAs("nope", http.MethodGet, "/api/v1/stock", nil, &body))

	assert.Equal(t, http.StatusNotFound, a.doAs(id.New().String(), http.MethodGet, "/api/v1/stock", nil, &body))
	assert.Equal(t, apperror.CodeNotFound, body.Code)

	assert.Equal(t, http.StatusForbidden, a.doAs(a.suspended.String(), http.MethodGet, "/api/v1/stock", nil, &body))
	assert.Equal(t, apperror.CodeForbidden, body.Code)
}

func TestReceiptIssueAndReport(t *testing.T) {
	a := newAPI(t)
	pid := a.product.ID.String()
	month := time.Now().UTC().Format("2006-01")
	today := time.Now().UTC().Format("2006-01-02")

	var rcp struct {
		ID     string `json:"id"`
		Number string `json:"number"`
		Status string `json:"status"`
	}
	code := a.do(http.MethodPost, "/api/v1/receipts", map[string]any{
		"date":  today,
		"items": []map[string]any{{"productId": pid, "quantity": 100, "unitCost": "12.50"}},
	}, &rcp)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "draft", rcp.Status)
	assert.NotEmpty(t, rcp.Number)

	require.Equal(t, http.StatusOK, a.do(http.MethodPost, "/api/v1/receipts/"+rcp.ID+"/post", nil, &rcp))
	assert.Equal(t, "posted", rcp.Status)

	var body errorBody
	assert.Equal(t, http.StatusUnprocessableEntity, a.do(http.MethodPost, "/api/v1/receipts/"+rcp.ID+"/post", nil, &body))
	assert.Equal(t, apperror.CodeDocumentPosted, body.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, a.do(http.MethodDelete, "/api/v1/receipts/"+rcp.ID, nil, &body))

	var iss struct {
		ID string `json:"id"`
	}
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/api/v1/issues", map[string]any{
		"date":  today,
		"items": []map[string]any{{"productId": pid, "quantity": 130}},
	}, &iss))

	assert.Equal(t, http.StatusUnprocessableEntity, a.do(http.MethodPost, "/api/v1/issues/"+iss.ID+"/post", nil, &body))
	assert.Equal(t, apperror.CodeInsufficientStock, body.Code)

	var posted struct {
		Status        string `json:"status"`
		TotalShortage int64  `json:"totalShortage"`
	}
	require.Equal(t, http.StatusOK, a.do(http.MethodPost, "/api/v1/issues/"+iss.ID+"/post?allowShortage=true", nil, &posted))
	assert.Equal(t, "posted", posted.Status)
	assert.Equal(t, int64(30), posted.TotalShortage)

	var report struct {
		Rows []struct {
			ProductCode string `json:"productCode"`
			TenantName  string `json:"tenantName"`
			In          int64  `json:"in"`
			Out         int64  `json:"out"`
		} `json:"rows"`
	}
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/v1/reports/reconciliation?month="+month, nil, &report))
	require.Len(t, report.Rows, 1)
	row := report.Rows[0]
	assert.Equal(t, "GH-1", row.ProductCode)
	assert.Equal(t, "Lahore Central", row.TenantName)
	assert.Equal(t, int64(100), row.In)
	assert.Equal(t, int64(130), row.Out)
}

func TestStockAdjust(t *testing.T) {
	a := newAPI(t)

	var rec struct {
		ID       string `json:"id"`
		Quantity int64  `json:"quantity"`
	}
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/api/v1/stock", map[string]any{
		"productId": a.product.ID.String(), "quantity": 10, "batchNumber": "B-1",
	}, &rec))

	var res struct {
		Previous int64 `json:"previous"`
		Record   struct {
			Quantity int64 `json:"quantity"`
		} `json:"record"`
	}
	require.Equal(t, http.StatusOK, a.do(http.MethodPost, "/api/v1/stock/"+rec.ID+"/adjust",
		map[string]any{"delta": 4, "mode": "subtract"}, &res))
	assert.Equal(t, int64(10), res.Previous)
	assert.Equal(t, int64(6), res.Record.Quantity)

	var body errorBody
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/api/v1/stock/"+rec.ID+"/adjust",
		map[string]any{"delta": 4, "mode": "multiply"}, &body))

	assert.Equal(t, http.StatusNoContent, a.do(http.MethodDelete, "/api/v1/stock/"+rec.ID, nil, nil))
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/api/v1/stock/"+rec.ID, nil, &body))
}

func TestSnapshotLifecycle(t *testing.T) {
	a := newAPI(t)
	pid := a.product.ID.String()
	base := "/api/v1/snapshots/closing"

	var snap struct {
		ID       string `json:"id"`
		Status   string `json:"status"`
		Cartons  int64  `json:"cartons"`
		Pieces   int64  `json:"pieces"`
		Quantity int64  `json:"quantity"`
	}
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, base,
		map[string]any{"productId": pid, "date": "2024-03-31", "quantity": 30}, &snap))
	assert.Equal(t, "draft", snap.Status)
	assert.Equal(t, int64(2), snap.Cartons)
	assert.Equal(t, int64(6), snap.Pieces)

	var body errorBody
	assert.Equal(t, http.StatusConflict, a.do(http.MethodPost, base,
		map[string]any{"productId": pid, "date": "2024-03-31", "quantity": 5}, &body))
	assert.Equal(t, apperror.CodeDuplicate, body.Code)

	require.Equal(t, http.StatusOK, a.do(http.MethodPut, base+"/"+snap.ID,
		map[string]any{"productId": pid, "date": "2024-03-31", "quantity": 24}, &snap))
	assert.Equal(t, int64(2), snap.Cartons)
	assert.Equal(t, int64(0), snap.Pieces)

	require.Equal(t, http.StatusOK, a.do(http.MethodPost, base+"/"+snap.ID+"/post", nil, &snap))
	assert.Equal(t, "posted", snap.Status)
	assert.Equal(t, http.StatusUnprocessableEntity, a.do(http.MethodDelete, base+"/"+snap.ID, nil, &body))

	require.Equal(t, http.StatusOK, a.do(http.MethodPost, base+"/"+snap.ID+"/revert", nil, &snap))
	assert.Equal(t, "draft", snap.Status)
	assert.Equal(t, http.StatusNoContent, a.do(http.MethodDelete, base+"/"+snap.ID, nil, nil))

	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/api/v1/snapshots/weekly", nil, &body))
}

func TestConvert(t *testing.T) {
	a := newAPI(t)
	pid := a.product.ID.String()
	for i, qty := range []int{10, 20} {
		require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/api/v1/stock", map[string]any{
			"productId": pid, "quantity": qty, "batchNumber": fmt.Sprintf("B-%d", i), "unitCost": 10 * (i + 1),
		}, nil))
	}

	var res struct {
		Created int `json:"created"`
	}
	require.Equal(t, http.StatusOK, a.do(http.MethodPost, "/api/v1/snapshots/opening/convert",
		map[string]any{"date": "2024-04-01"}, &res))
	assert.Equal(t, 1, res.Created)

	var list struct {
		Items []struct {
			Quantity int64  `json:"quantity"`
			UnitCost string `json:"unitCost"`
			Status   string `json:"status"`
		} `json:"items"`
		TotalCount int64 `json:"totalCount"`
	}
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/v1/snapshots/opening?month=2024-04", nil, &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, int64(30), list.Items[0].Quantity)
	assert.Equal(t, "16.6667", list.Items[0].UnitCost)
	assert.Equal(t, "draft", list.Items[0].Status)
}

func TestConvertChunkedBody(t *testing.T) {
	a := newAPI(t)
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/api/v1/stock", map[string]any{
		"productId": a.product.ID.String(), "quantity": 5, "unitCost": 10,
	}, nil))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/snapshots/opening/convert",
		strings.NewReader(`{"date":"2024-05-01","status":"posted"}`))
	req.ContentLength = -1
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.TenantHeader, a.tenantID.String())
	req.Header.Set(middleware.HeaderActorID, "clerk-7")
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var list struct {
		Items []struct {
			Status string `json:"status"`
		} `json:"items"`
	}
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/v1/snapshots/opening?month=2024-05", nil, &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, "posted", list.Items[0].Status)
}

func TestConvertEmptyBody(t *testing.T) {
	a := newAPI(t)

	var res struct {
		Created int `json:"created"`
	}
	assert.Equal(t, http.StatusOK, a.do(http.MethodPost, "/api/v1/snapshots/closing/convert", nil, &res))
	assert.Zero(t, res.Created)

	var body errorBody
	require.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/api/v1/snapshots/closing/convert",
		map[string]any{"status": "archived"}, &body))
	assert.Equal(t, apperror.CodeValidation, body.Code)
}
