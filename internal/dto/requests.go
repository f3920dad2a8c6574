package dto

import (
	"encoding/json"
	"time"

	"github.com/olegmakarov/gigflow-backend/internal/service"
)

// OrderMetadataPatch частичный патч произвольных полей заказа.
// Все поля опциональны; отсутствующее поле не трогает сохранённое значение.
type OrderMetadataPatch struct {
	PipelineStage       *string     `json:"pipeline_stage"`
	IntakeStatus        *string     `json:"intake_status"`
	KickoffStatus       *string     `json:"kickoff_status"`
	KickoffCompletedAt  *string     `json:"kickoff_completed_at"`
	Tags                interface{} `json:"tags"`
	CSATScore           *float64    `json:"csat_score"`
	LastContactAt       *string     `json:"last_contact_at"`
	NextFollowupAt      *string     `json:"next_followup_at"`
	EscrowTotalOverride *float64    `json:"escrow_total_override"`
	EscrowCurrency      *string     `json:"escrow_currency"`
}

func (p *OrderMetadataPatch) toInput() (service.MetadataInput, error) {
	var in service.MetadataInput
	if p == nil {
		return in, nil
	}
	in.PipelineStage = p.PipelineStage
	in.IntakeStatus = p.IntakeStatus
	in.KickoffStatus = p.KickoffStatus
	in.Tags = p.Tags
	in.CSATScore = p.CSATScore
	in.EscrowTotalOverride = p.EscrowTotalOverride
	in.EscrowCurrency = p.EscrowCurrency

	var err error
	if in.KickoffCompletedAt, err = parseOptionalDate(p.KickoffCompletedAt); err != nil {
		return in, err
	}
	if in.LastContactAt, err = parseOptionalDate(p.LastContactAt); err != nil {
		return in, err
	}
	if in.NextFollowupAt, err = parseOptionalDate(p.NextFollowupAt); err != nil {
		return in, err
	}
	return in, nil
}

// CreateOrderRequest тело запроса создания заказа.
type CreateOrderRequest struct {
	ClientID        *int64                   `json:"client_id"`
	ClientName      string                   `json:"client_name" binding:"required"`
	ClientEmail     *string                  `json:"client_email"`
	ClientCompany   *string                  `json:"client_company"`
	CatalogItemID   *int64                   `json:"catalog_item_id"`
	OrderNumber     string                   `json:"order_number"`
	PipelineStage   string                   `json:"pipeline_stage"`
	WorkflowStatus  string                   `json:"workflow_status"`
	CurrencyCode    string                   `json:"currency_code"`
	TotalAmount     float64                  `json:"total_amount"`
	ProgressPercent int                      `json:"progress_percent"`
	SubmittedAt     *string                  `json:"submitted_at"`
	KickoffAt       *string                  `json:"kickoff_at"`
	DueAt           *string                  `json:"due_at"`
	CompletedAt     *string                  `json:"completed_at"`
	Metadata        *OrderMetadataPatch      `json:"metadata"`
	Requirements    []RequirementFormRequest `json:"requirements"`
	Revisions       []RevisionRequest        `json:"revisions"`
	Escrow          []PayoutRequest          `json:"escrow"`
}

// ToInput переводит запрос в параметры сервиса. Владелец заказа берётся
// из контекста авторизации, а не из тела запроса.
func (r *CreateOrderRequest) ToInput(freelancerID int64) (service.CreateOrderInput, error) {
	in := service.CreateOrderInput{
		FreelancerID:    freelancerID,
		ClientID:        r.ClientID,
		ClientName:      r.ClientName,
		ClientEmail:     r.ClientEmail,
		ClientCompany:   r.ClientCompany,
		CatalogItemID:   r.CatalogItemID,
		OrderNumber:     r.OrderNumber,
		PipelineStage:   r.PipelineStage,
		WorkflowStatus:  r.WorkflowStatus,
		CurrencyCode:    r.CurrencyCode,
		TotalAmount:     r.TotalAmount,
		ProgressPercent: r.ProgressPercent,
	}

	var err error
	if in.SubmittedAt, err = parseOptionalDate(r.SubmittedAt); err != nil {
		return in, err
	}
	if in.KickoffAt, err = parseOptionalDate(r.KickoffAt); err != nil {
		return in, err
	}
	if in.DueAt, err = parseOptionalDate(r.DueAt); err != nil {
		return in, err
	}
	if in.CompletedAt, err = parseOptionalDate(r.CompletedAt); err != nil {
		return in, err
	}
	if in.Metadata, err = r.Metadata.toInput(); err != nil {
		return in, err
	}

	for i := range r.Requirements {
		child, err := r.Requirements[i].ToInput()
		if err != nil {
			return in, err
		}
		in.Requirements = append(in.Requirements, child)
	}
	for i := range r.Revisions {
		child, err := r.Revisions[i].ToInput()
		if err != nil {
			return in, err
		}
		in.Revisions = append(in.Revisions, child)
	}
	for i := range r.Escrow {
		child, err := r.Escrow[i].ToInput()
		if err != nil {
			return in, err
		}
		in.Escrow = append(in.Escrow, child)
	}
	return in, nil
}

// UpdateOrderRequest тело частичного обновления заказа.
type UpdateOrderRequest struct {
	PipelineStage   *string             `json:"pipeline_stage"`
	WorkflowStatus  *string             `json:"workflow_status"`
	ClientName      *string             `json:"client_name"`
	ClientEmail     *string             `json:"client_email"`
	ClientCompany   *string             `json:"client_company"`
	TotalAmount     *float64            `json:"total_amount"`
	CurrencyCode    *string             `json:"currency_code"`
	SubmittedAt     *string             `json:"submitted_at"`
	KickoffAt       *string             `json:"kickoff_at"`
	DueAt           *string             `json:"due_at"`
	CompletedAt     *string             `json:"completed_at"`
	ProgressPercent *int                `json:"progress_percent"`
	Metadata        *OrderMetadataPatch `json:"metadata"`
}

func (r *UpdateOrderRequest) ToInput(orderID, actorID int64) (service.UpdateOrderInput, error) {
	in := service.UpdateOrderInput{
		OrderID:         orderID,
		ActorID:         actorID,
		PipelineStage:   r.PipelineStage,
		WorkflowStatus:  r.WorkflowStatus,
		ClientName:      r.ClientName,
		ClientEmail:     r.ClientEmail,
		ClientCompany:   r.ClientCompany,
		TotalAmount:     r.TotalAmount,
		CurrencyCode:    r.CurrencyCode,
		ProgressPercent: r.ProgressPercent,
	}

	var err error
	if in.SubmittedAt, err = parseOptionalDate(r.SubmittedAt); err != nil {
		return in, err
	}
	if in.KickoffAt, err = parseOptionalDate(r.KickoffAt); err != nil {
		return in, err
	}
	if in.DueAt, err = parseOptionalDate(r.DueAt); err != nil {
		return in, err
	}
	if in.CompletedAt, err = parseOptionalDate(r.CompletedAt); err != nil {
		return in, err
	}
	if in.Metadata, err = r.Metadata.toInput(); err != nil {
		return in, err
	}
	return in, nil
}

// RequirementFormRequest тело создания или обновления анкеты требований.
type RequirementFormRequest struct {
	Title       string          `json:"title"`
	Status      string          `json:"status"`
	Priority    string          `json:"priority"`
	Questions   json.RawMessage `json:"questions"`
	Responses   json.RawMessage `json:"responses"`
	RequestedAt *string         `json:"requested_at"`
	DueAt       *string         `json:"due_at"`
	ReceivedAt  *string         `json:"received_at"`
}

func (r *RequirementFormRequest) ToInput() (service.RequirementFormInput, error) {
	in := service.RequirementFormInput{
		Title:     r.Title,
		Status:    r.Status,
		Priority:  r.Priority,
		Questions: r.Questions,
		Responses: r.Responses,
	}
	var err error
	if in.RequestedAt, err = parseOptionalDate(r.RequestedAt); err != nil {
		return in, err
	}
	if in.DueAt, err = parseOptionalDate(r.DueAt); err != nil {
		return in, err
	}
	if in.ReceivedAt, err = parseOptionalDate(r.ReceivedAt); err != nil {
		return in, err
	}
	return in, nil
}

// RevisionRequest тело создания или обновления раунда правок.
type RevisionRequest struct {
	RoundNumber *int    `json:"round_number"`
	Status      string  `json:"status"`
	Severity    string  `json:"severity"`
	Summary     *string `json:"summary"`
	RequestedAt *string `json:"requested_at"`
	ResolvedAt  *string `json:"resolved_at"`
}

func (r *RevisionRequest) ToInput() (service.RevisionInput, error) {
	in := service.RevisionInput{
		RoundNumber: r.RoundNumber,
		Status:      r.Status,
		Severity:    r.Severity,
		Summary:     r.Summary,
	}
	var err error
	if in.RequestedAt, err = parseOptionalDate(r.RequestedAt); err != nil {
		return in, err
	}
	if in.ResolvedAt, err = parseOptionalDate(r.ResolvedAt); err != nil {
		return in, err
	}
	return in, nil
}

// PayoutRequest тело создания или обновления escrow-чекпоинта.
// Статус можно задать либо полем status, либо производным escrow_status.
type PayoutRequest struct {
	MilestoneLabel   string   `json:"milestone_label"`
	Amount           *float64 `json:"amount"`
	CurrencyCode     string   `json:"currency_code"`
	Status           string   `json:"status"`
	EscrowStatus     string   `json:"escrow_status"`
	ExpectedAt       *string  `json:"expected_at"`
	ReleasedAt       *string  `json:"released_at"`
	RiskNote         *string  `json:"risk_note"`
	RequiresApproval *bool    `json:"requires_approval"`
	CSATThreshold    *float64 `json:"csat_threshold"`
	PayoutReference  *string  `json:"payout_reference"`
	ReleasedBy       *string  `json:"released_by"`
}

func (r *PayoutRequest) ToInput() (service.PayoutInput, error) {
	in := service.PayoutInput{
		MilestoneLabel:   r.MilestoneLabel,
		Amount:           r.Amount,
		CurrencyCode:     r.CurrencyCode,
		Status:           r.Status,
		EscrowStatus:     r.EscrowStatus,
		RiskNote:         r.RiskNote,
		RequiresApproval: r.RequiresApproval,
		CSATThreshold:    r.CSATThreshold,
		PayoutReference:  r.PayoutReference,
		ReleasedBy:       r.ReleasedBy,
	}
	var err error
	if in.ExpectedAt, err = parseOptionalDate(r.ExpectedAt); err != nil {
		return in, err
	}
	if in.ReleasedAt, err = parseOptionalDate(r.ReleasedAt); err != nil {
		return in, err
	}
	return in, nil
}

// ListOrdersQuery query-параметры списка заказов.
type ListOrdersQuery struct {
	CreatedAfter *string `form:"created_after"`
}

func (q *ListOrdersQuery) CreatedAfterTime() (*time.Time, error) {
	return parseOptionalDate(q.CreatedAfter)
}

func parseOptionalDate(raw *string) (*time.Time, error) {
	if raw == nil {
		return nil, nil
	}
	return service.NormalizeDate(*raw)
}
