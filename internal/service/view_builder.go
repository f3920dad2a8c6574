package service

import (
	"sort"
	"time"

	"github.com/olegmakarov/gigflow-backend/internal/models"
)

// Окно, после которого незакрытая анкета считается просроченной,
// и окно "скоро дедлайн" для сдачи работы.
const (
	requirementOverdueAfter = 3 * 24 * time.Hour
	deliveryDueSoonWindow   = 3 * 24 * time.Hour
)

// OrderView полная витрина заказа: канонические поля плюс производные,
// пересчитываемые на каждом чтении. Никакие производные значения из
// хранилища не переиспользуются.
type OrderView struct {
	models.Order

	PipelineStage string `json:"pipeline_stage"`
	StatusType    string `json:"status_type"`
	IntakeStatus  string `json:"intake_status"`
	KickoffStatus string `json:"kickoff_status"`

	Metadata models.OrderMetadata `json:"metadata"`

	Requirements []RequirementFormView `json:"requirements"`
	Revisions    []RevisionView        `json:"revisions"`
	Escrow       []PayoutView          `json:"escrow_checkpoints"`
}

// RequirementFormView анкета с производным UI-статусом.
type RequirementFormView struct {
	models.RequirementForm

	DerivedStatus string `json:"derived_status"`
	Overdue       bool   `json:"overdue"`
}

// RevisionView раунд правок с производным UI-статусом.
type RevisionView struct {
	models.Revision

	DerivedStatus string `json:"derived_status"`
}

// PayoutView escrow-чекпоинт с производным escrow статусом.
type PayoutView struct {
	models.Payout

	EscrowStatus string                `json:"escrow_status"`
	Meta         models.PayoutMetadata `json:"metadata"`
}

// RequirementUIStatus отображает канонический статус анкеты в UI-статус.
func RequirementUIStatus(status string) string {
	switch status {
	case models.RequirementStatusPending:
		return models.RequirementUIStatusPendingClient
	case models.RequirementStatusReceived:
		return models.RequirementUIStatusSubmitted
	case models.RequirementStatusWaived:
		return models.RequirementUIStatusApproved
	default:
		return models.RequirementUIStatusPendingClient
	}
}

// RevisionUIStatus отображает канонический статус правки в UI-статус.
func RevisionUIStatus(status string) string {
	switch status {
	case models.RevisionStatusRequested, models.RevisionStatusInProgress:
		return models.RevisionUIStatusOpen
	case models.RevisionStatusSubmitted:
		return models.RevisionUIStatusSubmitted
	case models.RevisionStatusApproved:
		return models.RevisionUIStatusApproved
	case models.RevisionStatusRejected:
		return models.RevisionUIStatusDeclined
	default:
		return models.RevisionUIStatusOpen
	}
}

// requirementIsOverdue: анкета ещё не закрыта и запрошена более 3 дней назад.
func requirementIsOverdue(derivedStatus string, requestedAt *time.Time, now time.Time) bool {
	if derivedStatus != models.RequirementUIStatusPendingClient && derivedStatus != models.RequirementUIStatusInProgress {
		return false
	}
	if requestedAt == nil {
		return false
	}
	return now.Sub(*requestedAt) > requirementOverdueAfter
}

// BuildOrderView собирает витрину заказа из канонической записи и жадно
// загруженных дочерних записей. Порядок разрешения производных значений:
// явный валидный override в metadata → структурный вывод из связанных
// записей → дефолт по enum.
func BuildOrderView(order *models.Order, now time.Time) *OrderView {
	meta := ParseOrderMetadata(order.Metadata)

	view := &OrderView{Order: *order}

	// Стадия воронки: валидный override важнее прямого отображения.
	if meta.PipelineStage != nil {
		if _, ok := models.ValidPipelineStages[*meta.PipelineStage]; ok {
			view.PipelineStage = *meta.PipelineStage
		}
	}
	if view.PipelineStage == "" {
		view.PipelineStage = models.WorkflowStatusToPipelineStage(order.WorkflowStatus)
	}

	switch order.WorkflowStatus {
	case models.WorkflowStatusCompleted:
		view.StatusType = models.StatusTypeCompleted
	case models.WorkflowStatusCancelled:
		view.StatusType = models.StatusTypeCancelled
	default:
		view.StatusType = models.StatusTypeOpen
	}

	view.Requirements = buildRequirementViews(order.Requirements, now)
	view.Revisions = buildRevisionViews(order.Revisions)
	view.Escrow = buildPayoutViews(order.Payouts)

	view.IntakeStatus = resolveIntakeStatus(meta, view.Requirements)
	view.KickoffStatus = resolveKickoffStatus(meta, order.KickoffAt, now)

	// Вычисленный итог escrow попадает в metadata, если нет явного override.
	if len(view.Escrow) > 0 && meta.EscrowTotalOverride == nil {
		var total float64
		for _, cp := range view.Escrow {
			total += cp.Amount
		}
		total = Round2(total)
		meta.EscrowTotal = &total
	}
	if meta.EscrowCurrency == nil {
		currency := order.CurrencyCode
		meta.EscrowCurrency = &currency
	}

	view.Metadata = meta
	return view
}

func resolveIntakeStatus(meta models.OrderMetadata, requirements []RequirementFormView) string {
	if meta.IntakeStatus != nil {
		if _, ok := models.ValidIntakeStatuses[*meta.IntakeStatus]; ok {
			return *meta.IntakeStatus
		}
	}

	if len(requirements) == 0 {
		return models.IntakeStatusNotStarted
	}

	var pending, received int
	for _, req := range requirements {
		switch req.Status {
		case models.RequirementStatusPending:
			pending++
		case models.RequirementStatusReceived:
			received++
		}
	}
	if pending == 0 && received > 0 {
		return models.IntakeStatusCompleted
	}
	return models.IntakeStatusInProgress
}

func resolveKickoffStatus(meta models.OrderMetadata, kickoffAt *time.Time, now time.Time) string {
	if meta.KickoffStatus != nil {
		if _, ok := models.ValidKickoffStatuses[*meta.KickoffStatus]; ok {
			return *meta.KickoffStatus
		}
	}

	if kickoffAt == nil {
		return models.KickoffStatusNotScheduled
	}
	if meta.KickoffCompletedAt != nil {
		return models.KickoffStatusCompleted
	}
	if kickoffAt.Before(now) {
		return models.KickoffStatusNeedsReschedule
	}
	return models.KickoffStatusScheduled
}

// buildRequirementViews сортирует анкеты по requested/created (свежие первыми).
func buildRequirementViews(requirements []models.RequirementForm, now time.Time) []RequirementFormView {
	views := make([]RequirementFormView, 0, len(requirements))
	for _, req := range requirements {
		derived := RequirementUIStatus(req.Status)
		views = append(views, RequirementFormView{
			RequirementForm: req,
			DerivedStatus:   derived,
			Overdue:         requirementIsOverdue(derived, req.RequestedAt, now),
		})
	}
	sort.SliceStable(views, func(i, j int) bool {
		return requirementSortKey(views[i].RequirementForm).After(requirementSortKey(views[j].RequirementForm))
	})
	return views
}

func requirementSortKey(req models.RequirementForm) time.Time {
	if req.RequestedAt != nil {
		return *req.RequestedAt
	}
	return req.CreatedAt
}

// buildRevisionViews сортирует правки по номеру раунда (старший первым).
func buildRevisionViews(revisions []models.Revision) []RevisionView {
	views := make([]RevisionView, 0, len(revisions))
	for _, rev := range revisions {
		views = append(views, RevisionView{
			Revision:      rev,
			DerivedStatus: RevisionUIStatus(rev.Status),
		})
	}
	sort.SliceStable(views, func(i, j int) bool {
		return views[i].RoundNumber > views[j].RoundNumber
	})
	return views
}

// buildPayoutViews сортирует чекпоинты хронологически.
func buildPayoutViews(payouts []models.Payout) []PayoutView {
	views := make([]PayoutView, 0, len(payouts))
	for _, p := range payouts {
		views = append(views, PayoutView{
			Payout:       p,
			EscrowStatus: models.PayoutStatusToEscrowStatus(p.Status),
			Meta:         ParsePayoutMetadata(p.Metadata),
		})
	}
	sort.SliceStable(views, func(i, j int) bool {
		return views[i].CreatedAt.Before(views[j].CreatedAt)
	})
	return views
}
