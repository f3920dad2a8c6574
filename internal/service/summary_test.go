package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/olegmakarov/gigflow-backend/internal/models"
)

// fleetViews собирает витрины из трёх заказов: открытый в production с
// застрявшим escrow, завершённый с оценкой клиента и отменённый.
func fleetViews(t *testing.T) []*OrderView {
	t.Helper()

	stale := testNow.Add(-5 * 24 * time.Hour)
	kickoff := testNow.Add(24 * time.Hour)

	production := &models.Order{
		ID: 1, OrderNumber: "GF-A", FreelancerID: 7, ClientName: "Acme",
		WorkflowStatus: models.WorkflowStatusInProgress,
		CurrencyCode:   "USD", TotalAmount: 2000,
		KickoffAt: &kickoff,
		CreatedAt: testNow.Add(-20 * 24 * time.Hour),
		Requirements: []models.RequirementForm{
			{ID: 1, OrderID: 1, Status: models.RequirementStatusPending, RequestedAt: &stale},
		},
		Revisions: []models.Revision{
			{ID: 1, OrderID: 1, RoundNumber: 1, Status: models.RevisionStatusRequested},
		},
		Payouts: []models.Payout{
			{ID: 1, OrderID: 1, Amount: 500.00, Status: models.PayoutStatusAtRisk, CreatedAt: testNow.Add(-time.Hour)},
			{ID: 2, OrderID: 1, Amount: 700.00, Status: models.PayoutStatusPending, CreatedAt: testNow.Add(-2 * time.Hour)},
		},
	}

	completed := &models.Order{
		ID: 2, OrderNumber: "GF-B", FreelancerID: 7, ClientName: "Globex",
		WorkflowStatus: models.WorkflowStatusCompleted,
		CurrencyCode:   "USD", TotalAmount: 1500,
		CreatedAt: testNow.Add(-40 * 24 * time.Hour),
		Metadata:  json.RawMessage(`{"csat_score":5}`),
		Requirements: []models.RequirementForm{
			{ID: 2, OrderID: 2, Status: models.RequirementStatusReceived},
		},
		Revisions: []models.Revision{
			{ID: 2, OrderID: 2, RoundNumber: 1, Status: models.RevisionStatusApproved},
		},
		Payouts: []models.Payout{
			{ID: 3, OrderID: 2, Amount: 1500.00, Status: models.PayoutStatusReleased, CreatedAt: testNow.Add(-10 * 24 * time.Hour)},
		},
	}

	cancelled := &models.Order{
		ID: 3, OrderNumber: "GF-C", FreelancerID: 7, ClientName: "Initech",
		WorkflowStatus: models.WorkflowStatusCancelled,
		CurrencyCode:   "USD", TotalAmount: 800,
		CreatedAt: testNow.Add(-60 * 24 * time.Hour),
	}

	return []*OrderView{
		BuildOrderView(production, testNow),
		BuildOrderView(completed, testNow),
		BuildOrderView(cancelled, testNow),
	}
}

func TestBuildPipelineSummaryCounts(t *testing.T) {
	summary := BuildPipelineSummary(fleetViews(t), testNow)

	assert.Equal(t, 3, summary.TotalOrders)
	assert.Equal(t, 1, summary.OpenOrders)
	assert.Equal(t, 2, summary.ClosedOrders)

	assert.Equal(t, 1, summary.StageCounts[models.PipelineStageProduction])
	assert.Equal(t, 1, summary.StageCounts[models.PipelineStageCompleted])
	assert.Equal(t, 1, summary.StageCounts[models.PipelineStageCancelled])

	// Все стадии присутствуют в карте, даже пустые.
	for _, stage := range models.AllPipelineStages {
		_, ok := summary.StageCounts[stage]
		assert.True(t, ok, "стадия %s должна присутствовать", stage)
	}
}

func TestBuildPipelineSummaryMoney(t *testing.T) {
	summary := BuildPipelineSummary(fleetViews(t), testNow)

	assert.Equal(t, "USD", summary.CurrencyCode)
	assert.Equal(t, 4300.00, summary.TotalValue)
	assert.Equal(t, 2000.00, summary.OpenValue)
	assert.Equal(t, 1500.00, summary.CompletedValue)
	assert.InDelta(t, 1433.33, summary.AvgOrderValue, 0.001)
}

func TestBuildPipelineSummaryEscrow(t *testing.T) {
	summary := BuildPipelineSummary(fleetViews(t), testNow)

	assert.Equal(t, 2700.00, summary.Escrow.TotalFunded)
	assert.Equal(t, 1500.00, summary.Escrow.ReleasedValue)
	// at_risk (held) и pending (funded) ещё не дошли до фрилансера.
	assert.Equal(t, 1200.00, summary.Escrow.Outstanding)

	assert.Equal(t, 1, summary.Escrow.StatusCounts[models.EscrowStatusHeld])
	assert.Equal(t, 500.00, summary.Escrow.StatusAmounts[models.EscrowStatusHeld])
	assert.Equal(t, 1, summary.Escrow.StatusCounts[models.EscrowStatusFunded])
	assert.Equal(t, 1, summary.Escrow.StatusCounts[models.EscrowStatusReleased])
}

func TestBuildPipelineSummaryRequirementsAndRevisions(t *testing.T) {
	summary := BuildPipelineSummary(fleetViews(t), testNow)

	assert.Equal(t, 1, summary.Requirements.PendingClient)
	assert.Equal(t, 1, summary.Requirements.Submitted)
	assert.Equal(t, 1, summary.Requirements.Overdue)

	assert.Equal(t, 1, summary.Revisions.Active)
	assert.Equal(t, 1, summary.Revisions.Completed)
	assert.Equal(t, 0, summary.Revisions.AwaitingReview)
}

func TestBuildPipelineSummaryHealth(t *testing.T) {
	summary := BuildPipelineSummary(fleetViews(t), testNow)

	if assert.NotNil(t, summary.Health.CSATAverage) {
		assert.Equal(t, 5.00, *summary.Health.CSATAverage)
	}
	assert.Equal(t, 1, summary.Health.KickoffScheduled)
	assert.Equal(t, 0, summary.Health.DeliveryDueSoon)
}

func TestBuildPipelineSummaryEmpty(t *testing.T) {
	summary := BuildPipelineSummary(nil, testNow)

	assert.Equal(t, 0, summary.TotalOrders)
	assert.Equal(t, 0.0, summary.AvgOrderValue)
	assert.Nil(t, summary.Health.CSATAverage)
	assert.Equal(t, "", summary.CurrencyCode)
	// Пустая выборка всё равно даёт полный набор стадий.
	assert.Len(t, summary.StageCounts, len(models.AllPipelineStages))
}
