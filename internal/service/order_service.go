package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/olegmakarov/gigflow-backend/internal/logger"
	"github.com/olegmakarov/gigflow-backend/internal/models"
	"github.com/olegmakarov/gigflow-backend/internal/pkg/apperror"
	"github.com/olegmakarov/gigflow-backend/internal/repository"
)

// OrderRepository описывает взаимодействие сервиса с хранилищем заказов.
// Все операции записи выполняются в одной транзакции на вызов.
type OrderRepository interface {
	FindOrderByID(ctx context.Context, id int64) (*models.Order, error)
	ListOrders(ctx context.Context, filter repository.OrderFilter) ([]models.Order, error)
	CreateOrder(ctx context.Context, order *models.Order, requirements []models.RequirementForm, revisions []models.Revision, payouts []models.Payout) error
	UpdateOrder(ctx context.Context, order *models.Order) error

	FindRequirementFormByID(ctx context.Context, id int64) (*models.RequirementForm, error)
	CreateRequirementForm(ctx context.Context, form *models.RequirementForm) error
	UpdateRequirementForm(ctx context.Context, form *models.RequirementForm) error

	FindRevisionByID(ctx context.Context, id int64) (*models.Revision, error)
	CreateRevision(ctx context.Context, revision *models.Revision) error
	UpdateRevision(ctx context.Context, revision *models.Revision) error
	MaxRevisionRound(ctx context.Context, orderID int64) (int, error)

	FindPayoutByID(ctx context.Context, id int64) (*models.Payout, error)
	CreatePayout(ctx context.Context, payout *models.Payout) error
	UpdatePayout(ctx context.Context, payout *models.Payout) error
}

// OrderService содержит бизнес-логику конвейера заказов.
type OrderService struct {
	repo OrderRepository
}

// NewOrderService создаёт новый сервис заказов.
func NewOrderService(repo OrderRepository) *OrderService {
	return &OrderService{repo: repo}
}

// MetadataInput поля metadata-патча, общие для создания и обновления заказа.
type MetadataInput struct {
	PipelineStage       *string
	IntakeStatus        *string
	KickoffStatus       *string
	KickoffCompletedAt  *time.Time
	Tags                interface{}
	CSATScore           *float64
	LastContactAt       *time.Time
	NextFollowupAt      *time.Time
	EscrowTotalOverride *float64
	EscrowCurrency      *string
}

// CreateOrderInput описывает входные данные создания заказа.
type CreateOrderInput struct {
	FreelancerID    int64
	ClientID        *int64
	ClientName      string
	ClientEmail     *string
	ClientCompany   *string
	CatalogItemID   *int64
	OrderNumber     string
	PipelineStage   string
	WorkflowStatus  string
	CurrencyCode    string
	TotalAmount     float64
	ProgressPercent int
	SubmittedAt     *time.Time
	KickoffAt       *time.Time
	DueAt           *time.Time
	CompletedAt     *time.Time
	Metadata        MetadataInput
	Requirements    []RequirementFormInput
	Revisions       []RevisionInput
	Escrow          []PayoutInput
}

// UpdateOrderInput описывает частичное обновление заказа.
// Любое из полей может быть задано независимо от остальных.
type UpdateOrderInput struct {
	OrderID         int64
	ActorID         int64
	PipelineStage   *string
	WorkflowStatus  *string
	ClientName      *string
	ClientEmail     *string
	ClientCompany   *string
	TotalAmount     *float64
	CurrencyCode    *string
	SubmittedAt     *time.Time
	KickoffAt       *time.Time
	DueAt           *time.Time
	CompletedAt     *time.Time
	ProgressPercent *int
	Metadata        MetadataInput
}

// RequirementFormInput входные данные анкеты требований.
type RequirementFormInput struct {
	Title       string
	Status      string
	Priority    string
	Questions   json.RawMessage
	Responses   json.RawMessage
	RequestedAt *time.Time
	DueAt       *time.Time
	ReceivedAt  *time.Time
}

// RevisionInput входные данные раунда правок.
type RevisionInput struct {
	RoundNumber *int
	Status      string
	Severity    string
	Summary     *string
	RequestedAt *time.Time
	ResolvedAt  *time.Time
}

// PayoutInput входные данные escrow-чекпоинта. Статус можно задать либо
// каноническим payout статусом, либо производным escrow статусом; явный
// payout статус имеет приоритет.
type PayoutInput struct {
	MilestoneLabel   string
	Amount           *float64
	CurrencyCode     string
	Status           string
	EscrowStatus     string
	ExpectedAt       *time.Time
	ReleasedAt       *time.Time
	RiskNote         *string
	RequiresApproval *bool
	CSATThreshold    *float64
	PayoutReference  *string
	ReleasedBy       *string
}

// generateOrderNumber выпускает короткий случайный номер заказа.
// Уникальность гарантирует ограничение в базе, повторных попыток здесь нет.
func generateOrderNumber() string {
	token := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return "GF-" + token
}

// buildMetadataPatch нормализует поля metadata-патча. Один и тот же набор
// полей используется при создании и при обновлении заказа.
func buildMetadataPatch(in MetadataInput) (models.OrderMetadata, error) {
	var patch models.OrderMetadata

	if in.PipelineStage != nil {
		if _, ok := models.ValidPipelineStages[*in.PipelineStage]; !ok {
			return patch, apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("некорректная стадия воронки %q", *in.PipelineStage))
		}
		patch.PipelineStage = in.PipelineStage
	}
	if in.IntakeStatus != nil {
		if _, ok := models.ValidIntakeStatuses[*in.IntakeStatus]; !ok {
			return patch, apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("некорректный статус сбора требований %q", *in.IntakeStatus))
		}
		patch.IntakeStatus = in.IntakeStatus
	}
	if in.KickoffStatus != nil {
		if _, ok := models.ValidKickoffStatuses[*in.KickoffStatus]; !ok {
			return patch, apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("некорректный статус kickoff %q", *in.KickoffStatus))
		}
		patch.KickoffStatus = in.KickoffStatus
	}
	patch.KickoffCompletedAt = in.KickoffCompletedAt
	patch.LastContactAt = in.LastContactAt
	patch.NextFollowupAt = in.NextFollowupAt

	if in.Tags != nil {
		tags, err := NormalizeTags(in.Tags)
		if err != nil {
			return patch, err
		}
		patch.Tags = tags
	}

	csat, err := NormalizeCSAT(in.CSATScore)
	if err != nil {
		return patch, err
	}
	patch.CSATScore = csat

	if in.EscrowTotalOverride != nil {
		total, err := NormalizeAmount(*in.EscrowTotalOverride)
		if err != nil {
			return patch, err
		}
		patch.EscrowTotalOverride = &total
	}
	if in.EscrowCurrency != nil {
		currency, err := NormalizeCurrency(*in.EscrowCurrency)
		if err != nil {
			return patch, err
		}
		patch.EscrowCurrency = &currency
	}

	return patch, nil
}

// CreateOrder создаёт заказ вместе с вложенными дочерними записями в одной
// транзакции и возвращает пересобранную витрину.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*OrderView, error) {
	if in.FreelancerID == 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "freelancer_id обязателен")
	}
	if strings.TrimSpace(in.ClientName) == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "имя клиента не может быть пустым")
	}

	stage := in.PipelineStage
	if stage == "" {
		stage = models.PipelineStageInquiry
	}
	if _, ok := models.ValidPipelineStages[stage]; !ok {
		return nil, apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("некорректная стадия воронки %q", stage))
	}

	// Явно заданный канонический статус важнее вывода из стадии.
	workflowStatus := in.WorkflowStatus
	if workflowStatus != "" {
		if _, ok := models.ValidWorkflowStatuses[workflowStatus]; !ok {
			return nil, apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("некорректный статус заказа %q", workflowStatus))
		}
	} else {
		workflowStatus = models.PipelineStageToWorkflowStatus(stage)
	}

	currency, err := NormalizeCurrency(in.CurrencyCode)
	if err != nil {
		return nil, err
	}
	amount, err := NormalizeAmount(in.TotalAmount)
	if err != nil {
		return nil, err
	}
	if in.ProgressPercent < 0 || in.ProgressPercent > 100 {
		return nil, apperror.New(apperror.ErrCodeValidation, "прогресс должен быть в диапазоне 0-100")
	}

	patch, err := buildMetadataPatch(in.Metadata)
	if err != nil {
		return nil, err
	}

	// Фиксированные дефолты поверх которых ложится патч вызывающего.
	intakeDefault := models.IntakeStatusNotStarted
	kickoffDefault := models.KickoffStatusNotScheduled
	escrowTotal := amount
	escrowCurrency := currency
	defaults := models.OrderMetadata{
		IntakeStatus:   &intakeDefault,
		KickoffStatus:  &kickoffDefault,
		EscrowTotal:    &escrowTotal,
		EscrowCurrency: &escrowCurrency,
	}
	meta := MergeOrderMetadata(defaults, patch)

	rawMeta, err := MarshalOrderMetadata(meta)
	if err != nil {
		return nil, err
	}

	orderNumber := strings.TrimSpace(in.OrderNumber)
	if orderNumber == "" {
		orderNumber = generateOrderNumber()
	}

	order := &models.Order{
		OrderNumber:     orderNumber,
		FreelancerID:    in.FreelancerID,
		ClientID:        in.ClientID,
		ClientName:      strings.TrimSpace(in.ClientName),
		ClientEmail:     in.ClientEmail,
		ClientCompany:   in.ClientCompany,
		CatalogItemID:   in.CatalogItemID,
		WorkflowStatus:  workflowStatus,
		CurrencyCode:    currency,
		TotalAmount:     amount,
		ProgressPercent: in.ProgressPercent,
		SubmittedAt:     in.SubmittedAt,
		KickoffAt:       in.KickoffAt,
		DueAt:           in.DueAt,
		CompletedAt:     in.CompletedAt,
		Metadata:        rawMeta,
	}

	requirements, err := s.buildRequirementForms(in.Requirements)
	if err != nil {
		return nil, err
	}
	revisions, err := s.buildNestedRevisions(in.Revisions)
	if err != nil {
		return nil, err
	}
	payouts, err := s.buildPayouts(in.Escrow)
	if err != nil {
		return nil, err
	}

	if err := s.repo.CreateOrder(ctx, order, requirements, revisions, payouts); err != nil {
		return nil, err
	}

	logger.Log.WithFields(logrus.Fields{
		"order_id":      order.ID,
		"order_number":  order.OrderNumber,
		"freelancer_id": order.FreelancerID,
	}).Info("заказ создан")

	return s.GetOrderView(ctx, order.ID)
}

// UpdateOrder применяет частичное обновление и возвращает свежую витрину.
func (s *OrderService) UpdateOrder(ctx context.Context, in UpdateOrderInput) (*OrderView, error) {
	order, err := s.repo.FindOrderByID(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if order.FreelancerID != in.ActorID {
		return nil, apperror.ErrForbidden
	}

	// Явный канонический статус важнее стадии, если заданы оба.
	switch {
	case in.WorkflowStatus != nil:
		if _, ok := models.ValidWorkflowStatuses[*in.WorkflowStatus]; !ok {
			return nil, apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("некорректный статус заказа %q", *in.WorkflowStatus))
		}
		order.WorkflowStatus = *in.WorkflowStatus
	case in.PipelineStage != nil:
		if _, ok := models.ValidPipelineStages[*in.PipelineStage]; !ok {
			return nil, apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("некорректная стадия воронки %q", *in.PipelineStage))
		}
		order.WorkflowStatus = models.PipelineStageToWorkflowStatus(*in.PipelineStage)
	}

	if in.ClientName != nil {
		if strings.TrimSpace(*in.ClientName) == "" {
			return nil, apperror.New(apperror.ErrCodeValidation, "имя клиента не может быть пустым")
		}
		order.ClientName = strings.TrimSpace(*in.ClientName)
	}
	if in.ClientEmail != nil {
		order.ClientEmail = in.ClientEmail
	}
	if in.ClientCompany != nil {
		order.ClientCompany = in.ClientCompany
	}
	if in.TotalAmount != nil {
		amount, err := NormalizeAmount(*in.TotalAmount)
		if err != nil {
			return nil, err
		}
		order.TotalAmount = amount
	}
	if in.CurrencyCode != nil {
		currency, err := NormalizeCurrency(*in.CurrencyCode)
		if err != nil {
			return nil, err
		}
		order.CurrencyCode = currency
	}
	if in.SubmittedAt != nil {
		order.SubmittedAt = in.SubmittedAt
	}
	if in.KickoffAt != nil {
		order.KickoffAt = in.KickoffAt
	}
	if in.DueAt != nil {
		order.DueAt = in.DueAt
	}
	if in.CompletedAt != nil {
		order.CompletedAt = in.CompletedAt
	}
	if in.ProgressPercent != nil {
		if *in.ProgressPercent < 0 || *in.ProgressPercent > 100 {
			return nil, apperror.New(apperror.ErrCodeValidation, "прогресс должен быть в диапазоне 0-100")
		}
		order.ProgressPercent = *in.ProgressPercent
	}

	// Полный объект metadata собирается до какой-либо записи.
	patch, err := buildMetadataPatch(in.Metadata)
	if err != nil {
		return nil, err
	}
	merged := MergeOrderMetadata(ParseOrderMetadata(order.Metadata), patch)
	rawMeta, err := MarshalOrderMetadata(merged)
	if err != nil {
		return nil, err
	}
	order.Metadata = rawMeta

	if err := s.repo.UpdateOrder(ctx, order); err != nil {
		return nil, err
	}

	logger.Log.WithFields(logrus.Fields{
		"order_id":        order.ID,
		"workflow_status": order.WorkflowStatus,
	}).Info("заказ обновлён")

	return s.GetOrderView(ctx, order.ID)
}

// GetOrderView возвращает витрину одного заказа.
func (s *OrderService) GetOrderView(ctx context.Context, id int64) (*OrderView, error) {
	order, err := s.repo.FindOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return BuildOrderView(order, time.Now()), nil
}

// ListOrderViews возвращает витрины заказов по фильтру, свежие первыми.
func (s *OrderService) ListOrderViews(ctx context.Context, filter repository.OrderFilter) ([]*OrderView, error) {
	orders, err := s.repo.ListOrders(ctx, filter)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	views := make([]*OrderView, 0, len(orders))
	for i := range orders {
		views = append(views, BuildOrderView(&orders[i], now))
	}
	return views, nil
}

// PipelineSummary строит сводку по заказам, попавшим под фильтр.
// Чистое чтение: безопасно выполняется параллельно с любыми другими чтениями.
func (s *OrderService) PipelineSummary(ctx context.Context, filter repository.OrderFilter) (*PipelineSummary, error) {
	views, err := s.ListOrderViews(ctx, filter)
	if err != nil {
		return nil, err
	}
	return BuildPipelineSummary(views, time.Now()), nil
}

// CreateRequirementForm добавляет анкету требований к заказу и возвращает
// пересобранную витрину вместе с производным представлением анкеты.
func (s *OrderService) CreateRequirementForm(ctx context.Context, orderID, actorID int64, in RequirementFormInput) (*OrderView, *RequirementFormView, error) {
	order, err := s.repo.FindOrderByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if order.FreelancerID != actorID {
		return nil, nil, apperror.ErrForbidden
	}

	forms, err := s.buildRequirementForms([]RequirementFormInput{in})
	if err != nil {
		return nil, nil, err
	}
	form := &forms[0]
	form.OrderID = orderID

	if err := s.repo.CreateRequirementForm(ctx, form); err != nil {
		return nil, nil, err
	}
	return s.rebuildViewWithRequirement(ctx, orderID, form.ID)
}

// UpdateRequirementForm обновляет анкету и возвращает витрину заказа.
func (s *OrderService) UpdateRequirementForm(ctx context.Context, orderID, formID, actorID int64, in RequirementFormInput) (*OrderView, *RequirementFormView, error) {
	order, err := s.repo.FindOrderByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if order.FreelancerID != actorID {
		return nil, nil, apperror.ErrForbidden
	}

	form, err := s.repo.FindRequirementFormByID(ctx, formID)
	if err != nil {
		return nil, nil, err
	}
	if form.OrderID != orderID {
		return nil, nil, repository.ErrRequirementFormNotFound
	}

	if in.Title != "" {
		form.Title = in.Title
	}
	if in.Status != "" {
		if _, ok := models.ValidRequirementStatuses[in.Status]; !ok {
			return nil, nil, apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("некорректный статус анкеты %q", in.Status))
		}
		form.Status = in.Status
	}
	if in.Priority != "" {
		if _, ok := models.ValidPriorities[in.Priority]; !ok {
			return nil, nil, apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("некорректный приоритет %q", in.Priority))
		}
		form.Priority = in.Priority
	}
	if in.Questions != nil {
		form.Questions = in.Questions
	}
	if in.Responses != nil {
		form.Responses = in.Responses
	}
	if in.RequestedAt != nil {
		form.RequestedAt = in.RequestedAt
	}
	if in.DueAt != nil {
		form.DueAt = in.DueAt
	}
	if in.ReceivedAt != nil {
		form.ReceivedAt = in.ReceivedAt
	}

	if err := s.repo.UpdateRequirementForm(ctx, form); err != nil {
		return nil, nil, err
	}
	return s.rebuildViewWithRequirement(ctx, orderID, form.ID)
}

// CreateRevision добавляет раунд правок. Номер раунда без явного значения
// берётся как максимум по заказу плюс один.
func (s *OrderService) CreateRevision(ctx context.Context, orderID, actorID int64, in RevisionInput) (*OrderView, *RevisionView, error) {
	order, err := s.repo.FindOrderByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if order.FreelancerID != actorID {
		return nil, nil, apperror.ErrForbidden
	}

	revision, err := buildRevision(in)
	if err != nil {
		return nil, nil, err
	}
	revision.OrderID = orderID

	if in.RoundNumber == nil {
		maxRound, err := s.repo.MaxRevisionRound(ctx, orderID)
		if err != nil {
			return nil, nil, err
		}
		revision.RoundNumber = maxRound + 1
	}

	if err := s.repo.CreateRevision(ctx, revision); err != nil {
		return nil, nil, err
	}
	return s.rebuildViewWithRevision(ctx, orderID, revision.ID)
}

// UpdateRevision обновляет раунд правок.
func (s *OrderService) UpdateRevision(ctx context.Context, orderID, revisionID, actorID int64, in RevisionInput) (*OrderView, *RevisionView, error) {
	order, err := s.repo.FindOrderByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if order.FreelancerID != actorID {
		return nil, nil, apperror.ErrForbidden
	}

	revision, err := s.repo.FindRevisionByID(ctx, revisionID)
	if err != nil {
		return nil, nil, err
	}
	if revision.OrderID != orderID {
		return nil, nil, repository.ErrRevisionNotFound
	}

	if in.Status != "" {
		if _, ok := models.ValidRevisionStatuses[in.Status]; !ok {
			return nil, nil, apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("некорректный статус правки %q", in.Status))
		}
		revision.Status = in.Status
	}
	if in.Severity != "" {
		if _, ok := models.ValidPriorities[in.Severity]; !ok {
			return nil, nil, apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("некорректная серьёзность %q", in.Severity))
		}
		revision.Severity = in.Severity
	}
	if in.RoundNumber != nil {
		revision.RoundNumber = *in.RoundNumber
	}
	if in.Summary != nil {
		revision.Summary = in.Summary
	}
	if in.RequestedAt != nil {
		revision.RequestedAt = in.RequestedAt
	}
	if in.ResolvedAt != nil {
		revision.ResolvedAt = in.ResolvedAt
	}

	if err := s.repo.UpdateRevision(ctx, revision); err != nil {
		return nil, nil, err
	}
	return s.rebuildViewWithRevision(ctx, orderID, revision.ID)
}

// CreatePayout добавляет escrow-чекпоинт к заказу.
func (s *OrderService) CreatePayout(ctx context.Context, orderID, actorID int64, in PayoutInput) (*OrderView, *PayoutView, error) {
	order, err := s.repo.FindOrderByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if order.FreelancerID != actorID {
		return nil, nil, apperror.ErrForbidden
	}

	payouts, err := s.buildPayouts([]PayoutInput{in})
	if err != nil {
		return nil, nil, err
	}
	payout := &payouts[0]
	payout.OrderID = orderID

	if err := s.repo.CreatePayout(ctx, payout); err != nil {
		return nil, nil, err
	}
	return s.rebuildViewWithPayout(ctx, orderID, payout.ID)
}

// UpdatePayout обновляет escrow-чекпоинт.
func (s *OrderService) UpdatePayout(ctx context.Context, orderID, payoutID, actorID int64, in PayoutInput) (*OrderView, *PayoutView, error) {
	order, err := s.repo.FindOrderByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if order.FreelancerID != actorID {
		return nil, nil, apperror.ErrForbidden
	}

	payout, err := s.repo.FindPayoutByID(ctx, payoutID)
	if err != nil {
		return nil, nil, err
	}
	if payout.OrderID != orderID {
		return nil, nil, repository.ErrPayoutNotFound
	}

	status, err := resolvePayoutStatus(in, "")
	if err != nil {
		return nil, nil, err
	}
	if status != "" {
		payout.Status = status
	}
	if in.MilestoneLabel != "" {
		payout.MilestoneLabel = in.MilestoneLabel
	}
	if in.Amount != nil {
		amount, err := NormalizeAmount(*in.Amount)
		if err != nil {
			return nil, nil, err
		}
		payout.Amount = amount
	}
	if in.CurrencyCode != "" {
		currency, err := NormalizeCurrency(in.CurrencyCode)
		if err != nil {
			return nil, nil, err
		}
		payout.CurrencyCode = currency
	}
	if in.ExpectedAt != nil {
		payout.ExpectedAt = in.ExpectedAt
	}
	if in.ReleasedAt != nil {
		payout.ReleasedAt = in.ReleasedAt
	}
	if in.RiskNote != nil {
		payout.RiskNote = in.RiskNote
	}

	meta := ParsePayoutMetadata(payout.Metadata)
	if in.RequiresApproval != nil {
		meta.RequiresApproval = in.RequiresApproval
	}
	if in.CSATThreshold != nil {
		threshold, err := NormalizeCSAT(in.CSATThreshold)
		if err != nil {
			return nil, nil, err
		}
		meta.CSATThreshold = threshold
	}
	if in.PayoutReference != nil {
		meta.PayoutReference = in.PayoutReference
	}
	if in.ReleasedBy != nil {
		meta.ReleasedBy = in.ReleasedBy
	}
	rawMeta, err := json.Marshal(meta)
	if err != nil {
		return nil, nil, fmt.Errorf("payout metadata: marshal %w", err)
	}
	payout.Metadata = rawMeta

	if err := s.repo.UpdatePayout(ctx, payout); err != nil {
		return nil, nil, err
	}
	return s.rebuildViewWithPayout(ctx, orderID, payout.ID)
}

// buildRequirementForms валидирует вложенные анкеты и проставляет дефолты.
func (s *OrderService) buildRequirementForms(inputs []RequirementFormInput) ([]models.RequirementForm, error) {
	forms := make([]models.RequirementForm, 0, len(inputs))
	for _, in := range inputs {
		status := in.Status
		if status == "" {
			status = models.RequirementStatusPending
		}
		if _, ok := models.ValidRequirementStatuses[status]; !ok {
			return nil, apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("некорректный статус анкеты %q", status))
		}
		priority := in.Priority
		if priority == "" {
			priority = models.PriorityMedium
		}
		if _, ok := models.ValidPriorities[priority]; !ok {
			return nil, apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("некорректный приоритет %q", priority))
		}
		forms = append(forms, models.RequirementForm{
			Title:       in.Title,
			Status:      status,
			Priority:    priority,
			Questions:   in.Questions,
			Responses:   in.Responses,
			RequestedAt: in.RequestedAt,
			DueAt:       in.DueAt,
			ReceivedAt:  in.ReceivedAt,
		})
	}
	return forms, nil
}

// buildNestedRevisions валидирует вложенные правки; номера раундов без
// явного значения нумеруются последовательно с единицы.
func (s *OrderService) buildNestedRevisions(inputs []RevisionInput) ([]models.Revision, error) {
	revisions := make([]models.Revision, 0, len(inputs))
	nextRound := 1
	for _, in := range inputs {
		revision, err := buildRevision(in)
		if err != nil {
			return nil, err
		}
		if in.RoundNumber == nil {
			revision.RoundNumber = nextRound
		}
		if revision.RoundNumber >= nextRound {
			nextRound = revision.RoundNumber + 1
		}
		revisions = append(revisions, *revision)
	}
	return revisions, nil
}

func buildRevision(in RevisionInput) (*models.Revision, error) {
	status := in.Status
	if status == "" {
		status = models.RevisionStatusRequested
	}
	if _, ok := models.ValidRevisionStatuses[status]; !ok {
		return nil, apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("некорректный статус правки %q", status))
	}
	severity := in.Severity
	if severity == "" {
		severity = models.PriorityMedium
	}
	if _, ok := models.ValidPriorities[severity]; !ok {
		return nil, apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("некорректная серьёзность %q", severity))
	}
	revision := &models.Revision{
		Status:      status,
		Severity:    severity,
		Summary:     in.Summary,
		RequestedAt: in.RequestedAt,
		ResolvedAt:  in.ResolvedAt,
	}
	if in.RoundNumber != nil {
		revision.RoundNumber = *in.RoundNumber
	}
	return revision, nil
}

// resolvePayoutStatus выбирает канонический статус выплаты из пары
// status/escrow_status. Пустой результат означает "поле не задано".
func resolvePayoutStatus(in PayoutInput, fallback string) (string, error) {
	if in.Status != "" {
		if _, ok := models.ValidPayoutStatuses[in.Status]; !ok {
			return "", apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("некорректный статус выплаты %q", in.Status))
		}
		return in.Status, nil
	}
	if in.EscrowStatus != "" {
		if _, ok := models.ValidEscrowStatuses[in.EscrowStatus]; !ok {
			return "", apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("некорректный escrow статус %q", in.EscrowStatus))
		}
		return models.EscrowStatusToPayoutStatus(in.EscrowStatus), nil
	}
	return fallback, nil
}

// buildPayouts валидирует вложенные чекпоинты.
func (s *OrderService) buildPayouts(inputs []PayoutInput) ([]models.Payout, error) {
	payouts := make([]models.Payout, 0, len(inputs))
	for _, in := range inputs {
		status, err := resolvePayoutStatus(in, models.PayoutStatusPending)
		if err != nil {
			return nil, err
		}
		var amount float64
		if in.Amount != nil {
			amount, err = NormalizeAmount(*in.Amount)
			if err != nil {
				return nil, err
			}
		}
		currency, err := NormalizeCurrency(in.CurrencyCode)
		if err != nil {
			return nil, err
		}
		threshold, err := NormalizeCSAT(in.CSATThreshold)
		if err != nil {
			return nil, err
		}
		meta := models.PayoutMetadata{
			RequiresApproval: in.RequiresApproval,
			CSATThreshold:    threshold,
			PayoutReference:  in.PayoutReference,
			ReleasedBy:       in.ReleasedBy,
		}
		rawMeta, err := json.Marshal(meta)
		if err != nil {
			return nil, fmt.Errorf("payout metadata: marshal %w", err)
		}
		payouts = append(payouts, models.Payout{
			MilestoneLabel: in.MilestoneLabel,
			Amount:         amount,
			CurrencyCode:   currency,
			Status:         status,
			ExpectedAt:     in.ExpectedAt,
			ReleasedAt:     in.ReleasedAt,
			RiskNote:       in.RiskNote,
			Metadata:       rawMeta,
		})
	}
	return payouts, nil
}

// rebuildViewWithRequirement перечитывает заказ и находит анкету в витрине.
func (s *OrderService) rebuildViewWithRequirement(ctx context.Context, orderID, formID int64) (*OrderView, *RequirementFormView, error) {
	view, err := s.GetOrderView(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	for i := range view.Requirements {
		if view.Requirements[i].ID == formID {
			return view, &view.Requirements[i], nil
		}
	}
	return view, nil, repository.ErrRequirementFormNotFound
}

// rebuildViewWithRevision перечитывает заказ и находит правку в витрине.
func (s *OrderService) rebuildViewWithRevision(ctx context.Context, orderID, revisionID int64) (*OrderView, *RevisionView, error) {
	view, err := s.GetOrderView(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	for i := range view.Revisions {
		if view.Revisions[i].ID == revisionID {
			return view, &view.Revisions[i], nil
		}
	}
	return view, nil, repository.ErrRevisionNotFound
}

// rebuildViewWithPayout перечитывает заказ и находит чекпоинт в витрине.
func (s *OrderService) rebuildViewWithPayout(ctx context.Context, orderID, payoutID int64) (*OrderView, *PayoutView, error) {
	view, err := s.GetOrderView(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	for i := range view.Escrow {
		if view.Escrow[i].ID == payoutID {
			return view, &view.Escrow[i], nil
		}
	}
	return view, nil, repository.ErrPayoutNotFound
}
