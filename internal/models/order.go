package models

import (
	"encoding/json"
	"time"
)

// Order описывает один заказ между фрилансером и клиентом.
// Канонические поля хранятся в колонках, остальное — в metadata (JSONB).
type Order struct {
	ID              int64      `db:"id" json:"id"`
	OrderNumber     string     `db:"order_number" json:"order_number"`
	FreelancerID    int64      `db:"freelancer_id" json:"freelancer_id"`
	ClientID        *int64     `db:"client_id" json:"client_id,omitempty"`
	ClientName      string     `db:"client_name" json:"client_name"`
	ClientEmail     *string    `db:"client_email" json:"client_email,omitempty"`
	ClientCompany   *string    `db:"client_company" json:"client_company,omitempty"`
	CatalogItemID   *int64     `db:"catalog_item_id" json:"catalog_item_id,omitempty"`
	WorkflowStatus  string     `db:"workflow_status" json:"workflow_status"`
	CurrencyCode    string     `db:"currency_code" json:"currency_code"`
	TotalAmount     float64    `db:"total_amount" json:"total_amount"`
	ProgressPercent int        `db:"progress_percent" json:"progress_percent"`
	SubmittedAt     *time.Time `db:"submitted_at" json:"submitted_at,omitempty"`
	KickoffAt       *time.Time `db:"kickoff_at" json:"kickoff_at,omitempty"`
	DueAt           *time.Time `db:"due_at" json:"due_at,omitempty"`
	CompletedAt     *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	// Сырой metadata-бэг: парсится нормализатором на каждом чтении,
	// производные значения внутри не считаются достоверными.
	Metadata  json.RawMessage `db:"metadata" json:"-"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`

	// Лёгкие проекции связанных сущностей (заполняются репозиторием).
	Freelancer  *FreelancerRef  `json:"freelancer,omitempty"`
	CatalogItem *CatalogItemRef `json:"catalog_item,omitempty"`

	// Дочерние записи (жадно загружаются репозиторием).
	Requirements []RequirementForm `json:"-"`
	Revisions    []Revision        `json:"-"`
	Payouts      []Payout          `json:"-"`
}

// OrderMetadata типизированный metadata-бэг заказа.
// Каждый известный ключ представлен явным опциональным полем: nil — ключ
// отсутствует, значение — ключ задан. Слияние всегда по ключам целиком.
type OrderMetadata struct {
	PipelineStage       *string    `json:"pipeline_stage,omitempty"`
	IntakeStatus        *string    `json:"intake_status,omitempty"`
	KickoffStatus       *string    `json:"kickoff_status,omitempty"`
	KickoffCompletedAt  *time.Time `json:"kickoff_completed_at,omitempty"`
	Tags                []string   `json:"tags,omitempty"`
	CSATScore           *float64   `json:"csat_score,omitempty"`
	LastContactAt       *time.Time `json:"last_contact_at,omitempty"`
	NextFollowupAt      *time.Time `json:"next_followup_at,omitempty"`
	EscrowTotal         *float64   `json:"escrow_total,omitempty"`
	EscrowTotalOverride *float64   `json:"escrow_total_override,omitempty"`
	EscrowCurrency      *string    `json:"escrow_currency,omitempty"`
}

// FreelancerRef лёгкая проекция фрилансера для витрины заказа.
type FreelancerRef struct {
	ID          int64   `db:"id" json:"id"`
	DisplayName string  `db:"display_name" json:"display_name"`
	Email       *string `db:"email" json:"email,omitempty"`
}

// CatalogItemRef лёгкая проекция позиции каталога услуг.
type CatalogItemRef struct {
	ID    int64  `db:"id" json:"id"`
	Title string `db:"title" json:"title"`
}

// RequirementForm анкета требований клиента (дочерняя запись заказа).
type RequirementForm struct {
	ID          int64           `db:"id" json:"id"`
	OrderID     int64           `db:"order_id" json:"order_id"`
	Title       string          `db:"title" json:"title"`
	Status      string          `db:"status" json:"status"`
	Priority    string          `db:"priority" json:"priority"`
	Questions   json.RawMessage `db:"questions" json:"questions,omitempty"`
	Responses   json.RawMessage `db:"responses" json:"responses,omitempty"`
	RequestedAt *time.Time      `db:"requested_at" json:"requested_at,omitempty"`
	DueAt       *time.Time      `db:"due_at" json:"due_at,omitempty"`
	ReceivedAt  *time.Time      `db:"received_at" json:"received_at,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// Revision один раунд правок по заказу.
type Revision struct {
	ID          int64      `db:"id" json:"id"`
	OrderID     int64      `db:"order_id" json:"order_id"`
	RoundNumber int        `db:"round_number" json:"round_number"`
	Status      string     `db:"status" json:"status"`
	Severity    string     `db:"severity" json:"severity"`
	Summary     *string    `db:"summary" json:"summary,omitempty"`
	RequestedAt *time.Time `db:"requested_at" json:"requested_at,omitempty"`
	ResolvedAt  *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// Payout escrow-чекпоинт: одна веха и её выплата.
type Payout struct {
	ID             int64           `db:"id" json:"id"`
	OrderID        int64           `db:"order_id" json:"order_id"`
	MilestoneLabel string          `db:"milestone_label" json:"milestone_label"`
	Amount         float64         `db:"amount" json:"amount"`
	CurrencyCode   string          `db:"currency_code" json:"currency_code"`
	Status         string          `db:"status" json:"status"`
	ExpectedAt     *time.Time      `db:"expected_at" json:"expected_at,omitempty"`
	ReleasedAt     *time.Time      `db:"released_at" json:"released_at,omitempty"`
	RiskNote       *string         `db:"risk_note" json:"risk_note,omitempty"`
	Metadata       json.RawMessage `db:"metadata" json:"-"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// PayoutMetadata типизированный metadata-бэг чекпоинта.
type PayoutMetadata struct {
	RequiresApproval *bool    `json:"requires_approval,omitempty"`
	CSATThreshold    *float64 `json:"csat_threshold,omitempty"`
	PayoutReference  *string  `json:"payout_reference,omitempty"`
	ReleasedBy       *string  `json:"released_by,omitempty"`
}
