package service

import (
	"time"

	"github.com/olegmakarov/gigflow-backend/internal/models"
)

// OrderMetrics скалярные индикаторы здоровья одного заказа.
type OrderMetrics struct {
	PendingRequirements int     `json:"pending_requirements"`
	OverdueRequirements int     `json:"overdue_requirements"`
	OpenRevisions       int     `json:"open_revisions"`
	OutstandingEscrow   float64 `json:"outstanding_escrow"`
	KickoffScheduled    int     `json:"kickoff_scheduled"`
	DeliveryDueSoon     int     `json:"delivery_due_soon"`
}

// Производные статусы правок, считающиеся открытыми.
var openRevisionStatuses = map[string]struct{}{
	"requested":   {},
	"open":        {},
	"in_progress": {},
	"submitted":   {},
	"declined":    {},
}

// Escrow статусы, средства по которым ещё не дошли до фрилансера.
var outstandingEscrowStatuses = map[string]struct{}{
	models.EscrowStatusFunded:         {},
	models.EscrowStatusPendingRelease: {},
	models.EscrowStatusHeld:           {},
	models.EscrowStatusDisputed:       {},
}

// ComputeOrderMetrics чистая функция витрины заказа.
func ComputeOrderMetrics(view *OrderView, now time.Time) OrderMetrics {
	var m OrderMetrics

	for _, req := range view.Requirements {
		if req.DerivedStatus == models.RequirementUIStatusPendingClient || req.DerivedStatus == models.RequirementUIStatusInProgress {
			m.PendingRequirements++
			if req.Overdue {
				m.OverdueRequirements++
			}
		}
	}

	for _, rev := range view.Revisions {
		if _, ok := openRevisionStatuses[rev.DerivedStatus]; ok {
			m.OpenRevisions++
		}
	}

	var outstanding float64
	for _, cp := range view.Escrow {
		if _, ok := outstandingEscrowStatuses[cp.EscrowStatus]; ok {
			outstanding += cp.Amount
		}
	}
	m.OutstandingEscrow = Round2(outstanding)

	if view.KickoffStatus == models.KickoffStatusScheduled {
		m.KickoffScheduled = 1
	}

	if view.DueAt != nil && !view.DueAt.Before(now) && view.DueAt.Sub(now) <= deliveryDueSoonWindow {
		m.DeliveryDueSoon = 1
	}

	return m
}
