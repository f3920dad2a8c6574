package service

import (
	"time"

	"github.com/olegmakarov/gigflow-backend/internal/models"
)

// PipelineSummary сводка по всему портфелю заказов. Считается за один проход
// без мутации исходных витрин; округление применяется один раз на выходе.
type PipelineSummary struct {
	StageCounts map[string]int `json:"stage_counts"`

	TotalOrders  int `json:"total_orders"`
	OpenOrders   int `json:"open_orders"`
	ClosedOrders int `json:"closed_orders"`

	// Валюта первой витрины в выборке; кросс-валютной конвертации нет,
	// это задокументированное ограничение сводки.
	CurrencyCode   string  `json:"currency_code"`
	TotalValue     float64 `json:"total_value"`
	AvgOrderValue  float64 `json:"avg_order_value"`
	OpenValue      float64 `json:"open_value"`
	CompletedValue float64 `json:"completed_value"`

	Requirements RequirementSummary `json:"requirements"`
	Revisions    RevisionSummary    `json:"revisions"`
	Escrow       EscrowSummary      `json:"escrow"`
	Health       HealthSummary      `json:"health"`
}

// RequirementSummary счётчики анкет по производным статусам.
type RequirementSummary struct {
	PendingClient int `json:"pending_client"`
	Submitted     int `json:"submitted"`
	Approved      int `json:"approved"`
	NeedsRevision int `json:"needs_revision"`
	Overdue       int `json:"overdue"`
}

// RevisionSummary счётчики правок.
type RevisionSummary struct {
	Active         int `json:"active"`
	AwaitingReview int `json:"awaiting_review"`
	Completed      int `json:"completed"`
	Declined       int `json:"declined"`
}

// EscrowSummary счётчики и суммы по escrow статусам.
type EscrowSummary struct {
	StatusCounts  map[string]int     `json:"status_counts"`
	StatusAmounts map[string]float64 `json:"status_amounts"`
	TotalFunded   float64            `json:"total_funded"`
	Outstanding   float64            `json:"outstanding"`
	ReleasedValue float64            `json:"released_value"`
}

// HealthSummary агрегированные индикаторы здоровья портфеля.
type HealthSummary struct {
	CSATAverage      *float64 `json:"csat_average"`
	KickoffScheduled int      `json:"kickoff_scheduled"`
	DeliveryDueSoon  int      `json:"delivery_due_soon"`
}

// BuildPipelineSummary сворачивает витрины заказов в одну сводку.
func BuildPipelineSummary(views []*OrderView, now time.Time) *PipelineSummary {
	summary := &PipelineSummary{
		StageCounts: make(map[string]int, len(models.AllPipelineStages)),
		Escrow: EscrowSummary{
			StatusCounts:  make(map[string]int),
			StatusAmounts: make(map[string]float64),
		},
	}
	for _, stage := range models.AllPipelineStages {
		summary.StageCounts[stage] = 0
	}

	// Накопление в полной точности; округление внизу, один раз.
	var totalValue, openValue, completedValue float64
	var outstanding, releasedValue, totalFunded float64
	var csatSum float64
	var csatSamples int

	for _, view := range views {
		summary.TotalOrders++
		summary.StageCounts[view.PipelineStage]++

		if summary.CurrencyCode == "" {
			summary.CurrencyCode = view.CurrencyCode
		}

		totalValue += view.TotalAmount
		if view.StatusType == models.StatusTypeOpen {
			summary.OpenOrders++
			openValue += view.TotalAmount
		} else {
			summary.ClosedOrders++
		}
		if view.StatusType == models.StatusTypeCompleted {
			completedValue += view.TotalAmount
		}

		for _, req := range view.Requirements {
			switch req.DerivedStatus {
			case models.RequirementUIStatusPendingClient:
				summary.Requirements.PendingClient++
			case models.RequirementUIStatusSubmitted:
				summary.Requirements.Submitted++
			case models.RequirementUIStatusApproved:
				summary.Requirements.Approved++
			case models.RequirementUIStatusNeedsRevision:
				summary.Requirements.NeedsRevision++
			}
			// Просрочка учитывается только по ещё не сданным анкетам.
			if req.Overdue && req.DerivedStatus != models.RequirementUIStatusSubmitted && req.DerivedStatus != models.RequirementUIStatusApproved {
				summary.Requirements.Overdue++
			}
		}

		for _, rev := range view.Revisions {
			switch rev.DerivedStatus {
			case models.RevisionUIStatusOpen:
				summary.Revisions.Active++
			case models.RevisionUIStatusSubmitted:
				summary.Revisions.AwaitingReview++
			case models.RevisionUIStatusApproved:
				summary.Revisions.Completed++
			case models.RevisionUIStatusDeclined:
				summary.Revisions.Declined++
			}
		}

		for _, cp := range view.Escrow {
			summary.Escrow.StatusCounts[cp.EscrowStatus]++
			summary.Escrow.StatusAmounts[cp.EscrowStatus] += cp.Amount
			totalFunded += cp.Amount
			if _, ok := outstandingEscrowStatuses[cp.EscrowStatus]; ok {
				outstanding += cp.Amount
			}
			if cp.EscrowStatus == models.EscrowStatusReleased {
				releasedValue += cp.Amount
			}
		}

		if view.Metadata.CSATScore != nil {
			csatSum += *view.Metadata.CSATScore
			csatSamples++
		}

		metrics := ComputeOrderMetrics(view, now)
		summary.Health.KickoffScheduled += metrics.KickoffScheduled
		summary.Health.DeliveryDueSoon += metrics.DeliveryDueSoon
	}

	summary.TotalValue = Round2(totalValue)
	summary.OpenValue = Round2(openValue)
	summary.CompletedValue = Round2(completedValue)
	if summary.TotalOrders > 0 {
		summary.AvgOrderValue = Round2(totalValue / float64(summary.TotalOrders))
	}

	summary.Escrow.TotalFunded = Round2(totalFunded)
	summary.Escrow.Outstanding = Round2(outstanding)
	summary.Escrow.ReleasedValue = Round2(releasedValue)
	for status, amount := range summary.Escrow.StatusAmounts {
		summary.Escrow.StatusAmounts[status] = Round2(amount)
	}

	if csatSamples > 0 {
		avg := Round2(csatSum / float64(csatSamples))
		summary.Health.CSATAverage = &avg
	}

	return summary
}
