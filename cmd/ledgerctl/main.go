// Package main provides the operator CLI for the ledger.
// Usage: ledgerctl migrate
//        ledgerctl distribution create --code LHR --name "Lahore Central"
//        ledgerctl product upsert --code GH-1 --name "Ghee 1kg" --ppp 12
//        ledgerctl convert --tenant <uuid> --kind opening --date 2024-04-01
//        ledgerctl reconcile --tenant <uuid> --month 2024-03
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"distledger/internal/core/entity"
	"distledger/internal/core/id"
	corenumerator "distledger/internal/core/numerator"
	"distledger/internal/core/tenant"
	"distledger/internal/domain"
	"distledger/internal/domain/catalogs/product"
	"distledger/internal/domain/documents/issue"
	"distledger/internal/domain/documents/receipt"
	"distledger/internal/domain/reports"
	"distledger/internal/domain/snapshot"
	"distledger/internal/domain/stock"
	"distledger/internal/infrastructure/cache"
	"distledger/internal/infrastructure/config"
	"distledger/internal/infrastructure/numerator"
	"distledger/internal/infrastructure/storage/postgres"
	"distledger/internal/infrastructure/storage/postgres/catalog_repo"
	"distledger/internal/infrastructure/storage/postgres/report_repo"
	"distledger/internal/infrastructure/storage/postgres/snapshot_repo"
	"distledger/internal/infrastructure/storage/postgres/stock_repo"
	"distledger/pkg/logger"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()
	args := os.Args[2:]

	switch os.Args[1] {
	case "migrate":
		migrate(args)
	case "distribution":
		distribution(ctx, args)
	case "product":
		products(ctx, args)
	case "convert":
		convert(ctx, args)
	case "reconcile":
		reconcile(ctx, args)
	case "sequence":
		sequence(ctx, args)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Distribution Ledger CLI

Usage:
  ledgerctl <command> [options]

Commands:
  migrate [up|down|status]                 Run goose migrations
  distribution create|list|suspend|activate Manage distributions
  product upsert|list                      Manage the product catalogue
  convert                                  Aggregate stock into snapshots
  reconcile                                Print the reconciliation report
  sequence set                             Reset a document counter
  help                                     Show this help

Environment Variables:
  DATABASE_URL     Connection string (required)
  MIGRATIONS_DIR   Goose migrations directory (default db/migrations)
  REDIS_ADDR       Enables the cross-process conversion lock

Examples:
  ledgerctl distribution create --code LHR --name "Lahore Central"
  ledgerctl distribution suspend <tenant-uuid>
  ledgerctl product upsert --code GH-1 --name "Ghee 1kg" --ppp 12 --cost 12.50
  ledgerctl product list --search ghee
  ledgerctl convert --tenant <uuid> --kind closing --date 2024-03-31 --status posted
  ledgerctl reconcile --tenant <uuid> --month 2024-03 --status all
  ledgerctl sequence set --tenant <uuid> --doc receipt --month 2024-03 --value 100`)
}

// --- environment ---

type env struct {
	cfg  *config.Config
	pool *postgres.Pool
	txm  *postgres.TxManager
}

func connect(ctx context.Context) *env {
	cfg, err := config.Load()
	if err != nil {
		fail("invalid configuration: %v", err)
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Development: true})
	if err == nil {
		logger.SetDefault(log)
	}

	poolCfg := postgres.DefaultPoolConfig(cfg.Database.URL)
	poolCfg.MaxConns = 4
	poolCfg.MinConns = 0
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		fail("connecting to database: %v", err)
	}

	txm := postgres.NewTxManager(pool)
	txm.SetStatementTimeout(cfg.Database.StatementTimeout)
	return &env{cfg: cfg, pool: pool, txm: txm}
}

func (e *env) Close() {
	e.pool.Close()
}

func (e *env) registry() *tenant.PostgresRegistry {
	return tenant.NewPostgresRegistry(e.pool.Pool)
}

func (e *env) products() *catalog_repo.ProductRepo {
	return catalog_repo.NewProductRepo(e.txm)
}

func (e *env) stock() *stock.Service {
	return stock.NewService(stock_repo.NewStockRepo(e.txm), e.products(), e.txm)
}

func (e *env) snapshots() *snapshot.Service {
	return snapshot.NewService(snapshot_repo.NewSnapshotRepo(e.txm), e.products(), e.txm)
}

// requireTenant parses --tenant and checks the distribution is active.
func (e *env) requireTenant(ctx context.Context, args []string) tenant.ID {
	raw := flagValue(args, "--tenant")
	if raw == "" {
		fail("--tenant is required")
	}
	tenantID, err := id.Parse(raw)
	if err != nil {
		fail("invalid tenant id %q", raw)
	}
	if _, err := tenant.Resolve(ctx, e.registry(), tenantID); err != nil {
		fail("tenant %s: %v", tenantID, err)
	}
	return tenantID
}

// --- migrate ---

func migrate(args []string) {
	cfg, err := config.Load()
	if err != nil {
		fail("invalid configuration: %v", err)
	}

	command := "up"
	if len(args) > 0 {
		command = args[0]
	}
	switch command {
	case "up", "down", "status", "reset":
	default:
		fail("unknown migrate command %q", command)
	}

	fmt.Printf("Running goose %s in %s...\n", command, cfg.Database.MigrationsDir)
	cmd := exec.Command("goose", "-dir", cfg.Database.MigrationsDir, "postgres", cfg.Database.URL, command)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		fail("migrations failed: %v", err)
	}
	fmt.Println("✓ Done")
}

// --- distribution ---

func distribution(ctx context.Context, args []string) {
	if len(args) == 0 {
		fail("usage: ledgerctl distribution create|list|suspend|activate")
	}

	e := connect(ctx)
	defer e.Close()
	registry := e.registry()

	switch args[0] {
	case "create":
		in := tenant.CreateInput{
			Code: flagValue(args, "--code"),
			Name: flagValue(args, "--name"),
		}
		d, err := registry.Create(ctx, in)
		if err != nil {
			fail("creating distribution: %v", err)
		}
		fmt.Printf("✓ Distribution '%s' created\n", d.Code)
		fmt.Printf("  ID: %s\n", d.ID)
		fmt.Printf("  Name: %s\n", d.Name)

	case "list":
		all, err := registry.ListAll(ctx)
		if err != nil {
			fail("listing distributions: %v", err)
		}
		if len(all) == 0 {
			fmt.Println("No distributions found")
			return
		}
		fmt.Printf("%-36s %-10s %-30s %-10s\n", "ID", "CODE", "NAME", "STATUS")
		fmt.Println(strings.Repeat("-", 90))
		for _, d := range all {
			fmt.Printf("%-36s %-10s %-30s %-10s\n", d.ID, truncate(d.Code, 10), truncate(d.Name, 30), d.Status)
		}

	case "suspend", "activate":
		if len(args) < 2 {
			fail("usage: ledgerctl distribution %s <tenant-uuid>", args[0])
		}
		tenantID, err := id.Parse(args[1])
		if err != nil {
			fail("invalid tenant id %q", args[1])
		}
		status := tenant.StatusActive
		if args[0] == "suspend" {
			status = tenant.StatusSuspended
		}
		if err := registry.UpdateStatus(ctx, tenantID, status); err != nil {
			fail("%v", err)
		}
		fmt.Printf("✓ Distribution '%s' %s\n", tenantID, status)

	default:
		fail("unknown distribution command %q", args[0])
	}
}

// --- product ---

func products(ctx context.Context, args []string) {
	if len(args) == 0 {
		fail("usage: ledgerctl product upsert|list")
	}

	e := connect(ctx)
	defer e.Close()
	repo := e.products()

	switch args[0] {
	case "upsert":
		p := &product.Product{
			Code:   flagValue(args, "--code"),
			Name:   flagValue(args, "--name"),
			Active: !hasFlag(args, "--inactive"),
		}
		if v := flagValue(args, "--ppp"); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				fail("invalid --ppp %q", v)
			}
			p.PiecesPerPack = n
		}
		p.UnitCost = decimalFlag(args, "--cost")
		p.TradePrice = decimalFlag(args, "--trade")
		p.RetailPrice = decimalFlag(args, "--retail")

		if err := repo.Upsert(ctx, p); err != nil {
			fail("saving product: %v", err)
		}
		fmt.Printf("✓ Product '%s' saved (%s)\n", p.Code, p.ID)

	case "list":
		limit := 50
		if v := flagValue(args, "--limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				fail("invalid --limit %q", v)
			}
			limit = n
		}
		list, err := repo.List(ctx, flagValue(args, "--search"), limit)
		if err != nil {
			fail("listing products: %v", err)
		}
		fmt.Printf("%-36s %-12s %-30s %6s %12s\n", "ID", "CODE", "NAME", "PPP", "UNIT_COST")
		fmt.Println(strings.Repeat("-", 100))
		for _, p := range list {
			fmt.Printf("%-36s %-12s %-30s %6d %12s\n",
				p.ID, truncate(p.Code, 12), truncate(p.Name, 30), p.PiecesPerPack, p.UnitCost.StringFixed(2))
		}

	default:
		fail("unknown product command %q", args[0])
	}
}

// --- convert ---

func convert(ctx context.Context, args []string) {
	e := connect(ctx)
	defer e.Close()

	tenantID := e.requireTenant(ctx, args)
	kind, err := snapshot.ParseKind(flagValue(args, "--kind"))
	if err != nil {
		fail("%v", err)
	}
	status, err := entity.ParseStatus(flagValue(args, "--status"))
	if err != nil {
		fail("%v", err)
	}

	opts := snapshot.ConvertOptions{Kind: kind, Status: status, Actor: "ledgerctl"}
	if v := flagValue(args, "--date"); v != "" {
		opts.Date, err = time.Parse(time.DateOnly, v)
		if err != nil {
			fail("invalid --date %q, want YYYY-MM-DD", v)
		}
	}

	var locker snapshot.Locker = snapshot.NoopLocker{}
	if e.cfg.Redis.Enabled() {
		rdb, err := cache.NewRedisClient(ctx, e.cfg.Redis.Addr, e.cfg.Redis.Password, e.cfg.Redis.DB)
		if err != nil {
			fail("connecting to redis: %v", err)
		}
		defer func() { _ = rdb.Close() }()
		locker = cache.NewRedisLocker(rdb, e.cfg.Redis.LockTTL)
	}

	converter := snapshot.NewConverter(e.stock(), e.snapshots(), locker)
	created, err := converter.ConvertFromStocks(ctx, tenantID, opts)
	if err != nil {
		fail("conversion failed: %v", err)
	}
	fmt.Printf("✓ %d %s snapshot(s) created\n", created, kind)
}

// --- reconcile ---

func reconcile(ctx context.Context, args []string) {
	e := connect(ctx)
	defer e.Close()

	q := reports.ReconciliationQuery{TenantID: e.requireTenant(ctx, args)}

	month := flagValue(args, "--month")
	if month == "" {
		q.Month = domain.MonthOf(time.Now())
	} else {
		m, err := domain.ParseMonth(month)
		if err != nil {
			fail("%v", err)
		}
		q.Month = m
	}
	status, err := domain.ParseMovementStatus(flagValue(args, "--status"))
	if err != nil {
		fail("%v", err)
	}
	q.MovementStatus = status

	for _, raw := range flagValues(args, "--product") {
		pid, err := id.Parse(raw)
		if err != nil {
			fail("invalid product id %q", raw)
		}
		q.ProductIDs = append(q.ProductIDs, pid)
	}

	svc := reports.NewService(report_repo.NewReportRepo(e.txm), e.products(), e.registry())
	rows, err := svc.Build(ctx, q)
	if err != nil {
		fail("building report: %v", err)
	}
	if len(rows) == 0 {
		fmt.Println("No activity")
		return
	}

	fmt.Printf("%-12s %-30s %10s %10s %10s %10s %10s %-8s\n",
		"CODE", "PRODUCT", "OPENING", "IN", "OUT", "CLOSING", "AVAILABLE", "SOURCE")
	fmt.Println(strings.Repeat("-", 110))
	for _, r := range rows {
		fmt.Printf("%-12s %-30s %10d %10d %10d %10s %10s %-8s\n",
			truncate(r.ProductCode, 12), truncate(r.ProductName, 30),
			r.Opening, r.In, r.Out, optional(r.Closing), optional(r.Available), r.OpeningSource)
	}
}

// --- sequence ---

func sequence(ctx context.Context, args []string) {
	if len(args) == 0 || args[0] != "set" {
		fail("usage: ledgerctl sequence set --tenant <uuid> --doc receipt|issue --month YYYY-MM --value N")
	}

	e := connect(ctx)
	defer e.Close()
	tenantID := e.requireTenant(ctx, args)

	var prefix string
	switch flagValue(args, "--doc") {
	case "receipt":
		prefix = receipt.NumberPrefix
	case "issue":
		prefix = issue.NumberPrefix
	default:
		fail("--doc must be receipt or issue")
	}

	month, err := domain.ParseMonth(flagValue(args, "--month"))
	if err != nil {
		fail("%v", err)
	}
	value, err := strconv.ParseInt(flagValue(args, "--value"), 10, 64)
	if err != nil || value < 0 {
		fail("--value must be a non-negative integer")
	}

	svc := numerator.New(e.pool.Pool)
	if err := svc.SetNextNumber(ctx, tenantID, corenumerator.DefaultConfig(prefix), month.Start(), value); err != nil {
		fail("%v", err)
	}
	fmt.Printf("✓ %s counter for %04d-%02d set to %d\n", prefix, month.Year, month.Month, value)
}

// --- helpers ---

func flagValue(args []string, name string) string {
	for i := 0; i < len(args); i++ {
		if args[i] == name && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func flagValues(args []string, name string) []string {
	var out []string
	for i := 0; i < len(args); i++ {
		if args[i] == name && i+1 < len(args) {
			out = append(out, args[i+1])
			i++
		}
	}
	return out
}

func hasFlag(args []string, name string) bool {
	for _, a := range args {
		if a == name {
			return true
		}
	}
	return false
}

func decimalFlag(args []string, name string) decimal.Decimal {
	v := flagValue(args, name)
	if v == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		fail("invalid %s %q", name, v)
	}
	return d
}

func optional(v *int64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatInt(*v, 10)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func fail(format string, a ...any) {
	fmt.Printf("Error: "+format+"\n", a...)
	os.Exit(1)
}
