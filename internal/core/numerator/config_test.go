package numerator

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Format(t *testing.T) {
	period := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"monthly", DefaultConfig("RCP"), "RCP-202403-000007"},
		{"yearly", Config{Prefix: "ISS", PadWidth: 4, ResetPeriod: ResetYear}, "ISS-2024-0007"},
		{"never", Config{Prefix: "X", ResetPeriod: ResetNever}, "X-000007"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.Format(period, 7))
		})
	}
}

func TestMemoryGenerator_PerTenantAndMonth(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGenerator()
	cfg := DefaultConfig("RCP")
	t1, t2 := uuid.New(), uuid.New()
	march := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	april := march.AddDate(0, 1, 0)

	n, err := g.GetNextNumber(ctx, t1, cfg, nil, march)
	require.NoError(t, err)
	assert.Equal(t, "RCP-202403-000001", n)

	n, _ = g.GetNextNumber(ctx, t1, cfg, nil, march)
	assert.Equal(t, "RCP-202403-000002", n)

	n, _ = g.GetNextNumber(ctx, t2, cfg, nil, march)
	assert.Equal(t, "RCP-202403-000001", n)

	n, _ = g.GetNextNumber(ctx, t1, cfg, nil, april)
	assert.Equal(t, "RCP-202404-000001", n)

	require.NoError(t, g.SetNextNumber(ctx, t1, cfg, march, 99))
	n, _ = g.GetNextNumber(ctx, t1, cfg, nil, march)
	assert.Equal(t, "RCP-202403-000100", n)
}
