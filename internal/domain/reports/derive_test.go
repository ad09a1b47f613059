package reports

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"distledger/internal/core/apperror"
	"distledger/internal/core/id"
	"distledger/internal/domain"
)

func qty(v int64) *int64 { return &v }

var (
	march = domain.Month{Year: 2024, Month: time.March}
	// during April: March is a closed past month
	inApril = time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)
	inMarch = time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)
)

func TestDerive(t *testing.T) {
	tests := []struct {
		name          string
		in            Inputs
		wantOpening   int64
		wantSource    OpeningSource
		wantClosing   *int64
		wantAvailable *int64
		wantClosed    bool
	}{
		{
			name:        "opening snapshot, past month, no closing",
			in:          Inputs{Month: march, Now: inApril, OpeningAtStart: qty(100), In: 50, Out: 30},
			wantOpening: 100, wantSource: OpeningFromSnapshot,
			wantClosing: qty(120),
		},
		{
			name: "opening snapshot beats prior closing",
			in: Inputs{Month: march, Now: inApril, OpeningAtStart: qty(100), ClosingBeforeStart: qty(90),
				Aggregate: 7, ReceiptsSinceStart: 5},
			wantOpening: 100, wantSource: OpeningFromSnapshot,
			wantClosing: qty(100),
		},
		{
			name:        "prior closing",
			in:          Inputs{Month: march, Now: inApril, ClosingBeforeStart: qty(90), In: 10},
			wantOpening: 90, wantSource: OpeningFromPriorClosing,
			wantClosing: qty(100),
		},
		{
			name: "derived opening",
			in: Inputs{Month: march, Now: inMarch, Aggregate: 80, ReceiptsSinceStart: 20, IssuesSinceStart: 5,
				In: 20, Out: 5},
			wantOpening: 65, wantSource: OpeningDerived,
			wantAvailable: qty(80),
		},
		{
			name:        "posted closing wins",
			in:          Inputs{Month: march, Now: inMarch, OpeningAtStart: qty(10), ClosingAtEnd: qty(3), Aggregate: 50},
			wantOpening: 10, wantSource: OpeningFromSnapshot,
			wantClosing: qty(3), wantClosed: true,
		},
		{
			name:        "current month reports available",
			in:          Inputs{Month: march, Now: inMarch, OpeningAtStart: qty(10), In: 4, Aggregate: 14},
			wantOpening: 10, wantSource: OpeningFromSnapshot,
			wantAvailable: qty(14),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := Derive(tt.in)
			assert.Equal(t, tt.wantOpening, row.Opening)
			assert.Equal(t, tt.wantSource, row.OpeningSource)
			assert.Equal(t, tt.wantClosing, row.Closing)
			assert.Equal(t, tt.wantAvailable, row.Available)
			assert.Equal(t, tt.wantClosed, row.IsClosed)
			assert.False(t, row.Closing != nil && row.Available != nil)
		})
	}
}

func TestRow_IsZero(t *testing.T) {
	assert.True(t, Derive(Inputs{Month: march, Now: inApril}).IsZero())
	assert.True(t, Derive(Inputs{Month: march, Now: inMarch}).IsZero())
	assert.False(t, Derive(Inputs{Month: march, Now: inApril, In: 1, Out: 1}).IsZero())
	assert.False(t, Derive(Inputs{Month: march, Now: inMarch, Aggregate: 1, ReceiptsSinceStart: 1}).IsZero())
}

func TestReconciliationQuery_Validate(t *testing.T) {
	q := ReconciliationQuery{TenantID: id.New(), Month: domain.Month{Year: 2024, Month: time.May}, Now: inApril}
	err := q.Validate()
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	q.Month = march
	require.NoError(t, q.Validate())
	assert.Equal(t, domain.MovementPosted, q.MovementStatus)

	q.MovementStatus = "drafts"
	assert.Error(t, q.Validate())

	assert.Error(t, (&ReconciliationQuery{Month: march}).Validate())
	assert.Error(t, (&ReconciliationQuery{TenantID: id.New()}).Validate())
}
