package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"distledger/internal/core/id"
	"distledger/pkg/logger"
)

// ProductsChannel is notified by the products trigger with the changed id.
const ProductsChannel = "products_changed"

// Invalidator drops cached products.
type Invalidator interface {
	Invalidate(ctx context.Context, productIDs ...id.ID) error
}

// ProductListener evicts cached products on PostgreSQL NOTIFY.
type ProductListener struct {
	pool   *pgxpool.Pool
	target Invalidator

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// NewProductListener creates a listener; call Start to begin.
func NewProductListener(pool *pgxpool.Pool, target Invalidator) *ProductListener {
	return &ProductListener{pool: pool, target: target}
}

// Start launches the LISTEN loop. Calling it twice is a no-op.
func (l *ProductListener) Start(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		return
	}
	l.ctx, l.cancel = context.WithCancel(ctx)
	l.started = true

	l.wg.Add(1)
	go l.listenLoop()
	logger.Info(l.ctx, "product cache listener started")
}

// Stop cancels the loop and waits for it to exit.
func (l *ProductListener) Stop() {
	l.mu.Lock()
	if !l.started {
		l.mu.Unlock()
		return
	}
	cancel := l.cancel
	l.started = false
	l.mu.Unlock()

	cancel()
	l.wg.Wait()
	logger.Info(context.Background(), "product cache listener stopped")
}

func (l *ProductListener) listenLoop() {
	defer l.wg.Done()

	for l.ctx.Err() == nil {
		conn, err := l.pool.Acquire(l.ctx)
		if err != nil {
			logger.Error(l.ctx, "failed to acquire connection for LISTEN", "error", err)
			l.sleep(time.Second)
			continue
		}

		if _, err = conn.Exec(l.ctx, "LISTEN "+ProductsChannel); err != nil {
			logger.Error(l.ctx, "failed to LISTEN", "channel", ProductsChannel, "error", err)
			conn.Release()
			l.sleep(time.Second)
			continue
		}

		l.wait(conn)
		conn.Release()
	}
}

func (l *ProductListener) wait(conn *pgxpool.Conn) {
	for {
		ctx, cancel := context.WithTimeout(l.ctx, 30*time.Second)
		n, err := conn.Conn().WaitForNotification(ctx)
		cancel()

		if err != nil {
			if l.ctx.Err() != nil {
				return
			}
			if pgconn.Timeout(err) {
				continue
			}
			logger.Warn(l.ctx, "notification wait failed, reconnecting", "error", err)
			return
		}
		l.handle(l.ctx, n.Payload)
	}
}

// handle evicts the product named by payload. Unparseable payloads are
// dropped; the TTL still bounds staleness.
func (l *ProductListener) handle(ctx context.Context, payload string) {
	pid, err := id.Parse(strings.TrimSpace(payload))
	if err != nil {
		logger.Warn(ctx, "ignoring products notification", "payload", payload)
		return
	}
	if err := l.target.Invalidate(ctx, pid); err != nil {
		logger.Error(ctx, "product cache invalidation failed", "product_id", pid, "error", err)
		return
	}
	logger.Debug(ctx, "product evicted", "product_id", pid)
}

func (l *ProductListener) sleep(d time.Duration) {
	select {
	case <-l.ctx.Done():
	case <-time.After(d):
	}
}
