package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/olegmakarov/gigflow-backend/internal/models"
	"github.com/olegmakarov/gigflow-backend/internal/pkg/apperror"
	"github.com/olegmakarov/gigflow-backend/internal/repository"
)

// mockOrderRepository реализует OrderRepository в памяти.
type mockOrderRepository struct {
	orders       map[int64]*models.Order
	requirements map[int64]*models.RequirementForm
	revisions    map[int64]*models.Revision
	payouts      map[int64]*models.Payout
	nextID       int64
}

func newMockOrderRepository() *mockOrderRepository {
	return &mockOrderRepository{
		orders:       make(map[int64]*models.Order),
		requirements: make(map[int64]*models.RequirementForm),
		revisions:    make(map[int64]*models.Revision),
		payouts:      make(map[int64]*models.Payout),
	}
}

func (m *mockOrderRepository) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *mockOrderRepository) FindOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	order, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}

	clone := *order
	clone.Requirements = nil
	clone.Revisions = nil
	clone.Payouts = nil
	for _, form := range m.requirements {
		if form.OrderID == id {
			clone.Requirements = append(clone.Requirements, *form)
		}
	}
	for _, rev := range m.revisions {
		if rev.OrderID == id {
			clone.Revisions = append(clone.Revisions, *rev)
		}
	}
	for _, p := range m.payouts {
		if p.OrderID == id {
			clone.Payouts = append(clone.Payouts, *p)
		}
	}
	return &clone, nil
}

func (m *mockOrderRepository) ListOrders(ctx context.Context, filter repository.OrderFilter) ([]models.Order, error) {
	var orders []models.Order
	for id, order := range m.orders {
		if filter.OwnerID != nil && order.FreelancerID != *filter.OwnerID {
			continue
		}
		if filter.CreatedAfter != nil && !order.CreatedAt.After(*filter.CreatedAfter) {
			continue
		}
		clone, _ := m.FindOrderByID(ctx, id)
		orders = append(orders, *clone)
	}
	return orders, nil
}

func (m *mockOrderRepository) CreateOrder(ctx context.Context, order *models.Order, requirements []models.RequirementForm, revisions []models.Revision, payouts []models.Payout) error {
	now := time.Now()
	order.ID = m.id()
	order.CreatedAt = now
	order.UpdatedAt = now
	m.orders[order.ID] = order

	for i := range requirements {
		requirements[i].OrderID = order.ID
		form := requirements[i]
		_ = m.CreateRequirementForm(ctx, &form)
	}
	for i := range revisions {
		revisions[i].OrderID = order.ID
		rev := revisions[i]
		_ = m.CreateRevision(ctx, &rev)
	}
	for i := range payouts {
		payouts[i].OrderID = order.ID
		p := payouts[i]
		_ = m.CreatePayout(ctx, &p)
	}
	return nil
}

func (m *mockOrderRepository) UpdateOrder(ctx context.Context, order *models.Order) error {
	if _, ok := m.orders[order.ID]; !ok {
		return repository.ErrOrderNotFound
	}
	order.UpdatedAt = time.Now()
	m.orders[order.ID] = order
	return nil
}

func (m *mockOrderRepository) FindRequirementFormByID(ctx context.Context, id int64) (*models.RequirementForm, error) {
	form, ok := m.requirements[id]
	if !ok {
		return nil, repository.ErrRequirementFormNotFound
	}
	clone := *form
	return &clone, nil
}

func (m *mockOrderRepository) CreateRequirementForm(ctx context.Context, form *models.RequirementForm) error {
	form.ID = m.id()
	form.CreatedAt = time.Now()
	form.UpdatedAt = form.CreatedAt
	clone := *form
	m.requirements[form.ID] = &clone
	return nil
}

func (m *mockOrderRepository) UpdateRequirementForm(ctx context.Context, form *models.RequirementForm) error {
	if _, ok := m.requirements[form.ID]; !ok {
		return repository.ErrRequirementFormNotFound
	}
	clone := *form
	m.requirements[form.ID] = &clone
	return nil
}

func (m *mockOrderRepository) FindRevisionByID(ctx context.Context, id int64) (*models.Revision, error) {
	rev, ok := m.revisions[id]
	if !ok {
		return nil, repository.ErrRevisionNotFound
	}
	clone := *rev
	return &clone, nil
}

func (m *mockOrderRepository) CreateRevision(ctx context.Context, revision *models.Revision) error {
	revision.ID = m.id()
	revision.CreatedAt = time.Now()
	revision.UpdatedAt = revision.CreatedAt
	clone := *revision
	m.revisions[revision.ID] = &clone
	return nil
}

func (m *mockOrderRepository) UpdateRevision(ctx context.Context, revision *models.Revision) error {
	if _, ok := m.revisions[revision.ID]; !ok {
		return repository.ErrRevisionNotFound
	}
	clone := *revision
	m.revisions[revision.ID] = &clone
	return nil
}

func (m *mockOrderRepository) MaxRevisionRound(ctx context.Context, orderID int64) (int, error) {
	maxRound := 0
	for _, rev := range m.revisions {
		if rev.OrderID == orderID && rev.RoundNumber > maxRound {
			maxRound = rev.RoundNumber
		}
	}
	return maxRound, nil
}

func (m *mockOrderRepository) FindPayoutByID(ctx context.Context, id int64) (*models.Payout, error) {
	p, ok := m.payouts[id]
	if !ok {
		return nil, repository.ErrPayoutNotFound
	}
	clone := *p
	return &clone, nil
}

func (m *mockOrderRepository) CreatePayout(ctx context.Context, payout *models.Payout) error {
	payout.ID = m.id()
	payout.CreatedAt = time.Now()
	payout.UpdatedAt = payout.CreatedAt
	clone := *payout
	m.payouts[payout.ID] = &clone
	return nil
}

func (m *mockOrderRepository) UpdatePayout(ctx context.Context, payout *models.Payout) error {
	if _, ok := m.payouts[payout.ID]; !ok {
		return repository.ErrPayoutNotFound
	}
	clone := *payout
	m.payouts[payout.ID] = &clone
	return nil
}

func TestOrderService_CreateOrderDefaults(t *testing.T) {
	repo := newMockOrderRepository()
	service := NewOrderService(repo)
	ctx := context.Background()

	view, err := service.CreateOrder(ctx, CreateOrderInput{
		FreelancerID: 7,
		ClientName:   "  Acme  ",
		CurrencyCode: "eur",
		TotalAmount:  1500.999,
	})
	if err != nil {
		t.Fatalf("create вернул ошибку: %v", err)
	}

	if !strings.HasPrefix(view.OrderNumber, "GF-") || len(view.OrderNumber) != 11 {
		t.Fatalf("ожидался сгенерированный номер вида GF-XXXXXXXX, получили %q", view.OrderNumber)
	}
	if view.ClientName != "Acme" {
		t.Fatalf("имя клиента должно быть обрезано, получили %q", view.ClientName)
	}
	if view.CurrencyCode != "EUR" {
		t.Fatalf("валюта должна быть в верхнем регистре, получили %q", view.CurrencyCode)
	}
	if view.TotalAmount != 1501.00 {
		t.Fatalf("сумма должна округляться до 2 знаков, получили %v", view.TotalAmount)
	}
	if view.WorkflowStatus != models.WorkflowStatusAwaitingRequirements {
		t.Fatalf("стадия inquiry должна давать awaiting_requirements, получили %q", view.WorkflowStatus)
	}
	if view.PipelineStage != models.PipelineStageInquiry {
		t.Fatalf("ожидалась стадия inquiry, получили %q", view.PipelineStage)
	}
	if view.IntakeStatus != models.IntakeStatusNotStarted {
		t.Fatalf("intake по умолчанию not_started, получили %q", view.IntakeStatus)
	}
	if view.Metadata.EscrowTotal == nil || *view.Metadata.EscrowTotal != 1501.00 {
		t.Fatalf("escrow_total по умолчанию равен сумме заказа, получили %v", view.Metadata.EscrowTotal)
	}
}

func TestOrderService_CreateOrderFromDeliveryStage(t *testing.T) {
	repo := newMockOrderRepository()
	service := NewOrderService(repo)
	ctx := context.Background()

	view, err := service.CreateOrder(ctx, CreateOrderInput{
		FreelancerID:  7,
		ClientName:    "Globex",
		PipelineStage: models.PipelineStageDelivery,
	})
	if err != nil {
		t.Fatalf("create вернул ошибку: %v", err)
	}

	// delivery отображается в ready_for_payout, и обратный проход по
	// статусу возвращает delivery.
	if view.WorkflowStatus != models.WorkflowStatusReadyForPayout {
		t.Fatalf("ожидался ready_for_payout, получили %q", view.WorkflowStatus)
	}
	if view.PipelineStage != models.PipelineStageDelivery {
		t.Fatalf("стадия должна восстановиться как delivery, получили %q", view.PipelineStage)
	}
}

func TestOrderService_CreateOrderValidation(t *testing.T) {
	repo := newMockOrderRepository()
	service := NewOrderService(repo)
	ctx := context.Background()

	cases := []struct {
		name string
		in   CreateOrderInput
	}{
		{"без фрилансера", CreateOrderInput{ClientName: "Acme"}},
		{"пустое имя клиента", CreateOrderInput{FreelancerID: 7, ClientName: "   "}},
		{"неизвестная стадия", CreateOrderInput{FreelancerID: 7, ClientName: "Acme", PipelineStage: "warp"}},
		{"неизвестный статус", CreateOrderInput{FreelancerID: 7, ClientName: "Acme", WorkflowStatus: "done"}},
		{"плохая валюта", CreateOrderInput{FreelancerID: 7, ClientName: "Acme", CurrencyCode: "доллар"}},
		{"отрицательная сумма", CreateOrderInput{FreelancerID: 7, ClientName: "Acme", TotalAmount: -5}},
		{"прогресс вне диапазона", CreateOrderInput{FreelancerID: 7, ClientName: "Acme", ProgressPercent: 150}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.CreateOrder(ctx, tc.in)
			if !apperror.IsValidation(err) {
				t.Fatalf("ожидалась ошибка валидации, получили %v", err)
			}
		})
	}
}

func TestOrderService_UpdateOrderOwnership(t *testing.T) {
	repo := newMockOrderRepository()
	service := NewOrderService(repo)
	ctx := context.Background()

	view, err := service.CreateOrder(ctx, CreateOrderInput{FreelancerID: 7, ClientName: "Acme"})
	if err != nil {
		t.Fatalf("create вернул ошибку: %v", err)
	}

	_, err = service.UpdateOrder(ctx, UpdateOrderInput{OrderID: view.ID, ActorID: 99})
	if !apperror.IsForbidden(err) {
		t.Fatalf("чужой заказ должен давать forbidden, получили %v", err)
	}
}

func TestOrderService_UpdateOrderStagePrecedence(t *testing.T) {
	repo := newMockOrderRepository()
	service := NewOrderService(repo)
	ctx := context.Background()

	view, err := service.CreateOrder(ctx, CreateOrderInput{FreelancerID: 7, ClientName: "Acme"})
	if err != nil {
		t.Fatalf("create вернул ошибку: %v", err)
	}

	stage := models.PipelineStageProduction
	status := models.WorkflowStatusPaused
	updated, err := service.UpdateOrder(ctx, UpdateOrderInput{
		OrderID:        view.ID,
		ActorID:        7,
		PipelineStage:  &stage,
		WorkflowStatus: &status,
	})
	if err != nil {
		t.Fatalf("update вернул ошибку: %v", err)
	}

	// Канонический статус побеждает стадию при одновременной подаче.
	if updated.WorkflowStatus != models.WorkflowStatusPaused {
		t.Fatalf("ожидался paused, получили %q", updated.WorkflowStatus)
	}
	if updated.PipelineStage != models.PipelineStageOnHold {
		t.Fatalf("paused должен отображаться в on_hold, получили %q", updated.PipelineStage)
	}
}

func TestOrderService_UpdateOrderMetadataMerge(t *testing.T) {
	repo := newMockOrderRepository()
	service := NewOrderService(repo)
	ctx := context.Background()

	score := 4.5
	view, err := service.CreateOrder(ctx, CreateOrderInput{
		FreelancerID: 7,
		ClientName:   "Acme",
		Metadata:     MetadataInput{Tags: []interface{}{"logo"}, CSATScore: &score},
	})
	if err != nil {
		t.Fatalf("create вернул ошибку: %v", err)
	}

	newScore := 3.0
	updated, err := service.UpdateOrder(ctx, UpdateOrderInput{
		OrderID:  view.ID,
		ActorID:  7,
		Metadata: MetadataInput{CSATScore: &newScore},
	})
	if err != nil {
		t.Fatalf("update вернул ошибку: %v", err)
	}

	if updated.Metadata.CSATScore == nil || *updated.Metadata.CSATScore != 3.0 {
		t.Fatalf("оценка должна обновиться, получили %v", updated.Metadata.CSATScore)
	}
	if len(updated.Metadata.Tags) != 1 || updated.Metadata.Tags[0] != "logo" {
		t.Fatalf("незатронутые ключи metadata должны сохраниться, получили %v", updated.Metadata.Tags)
	}
}

func TestOrderService_CreateRevisionAutoRound(t *testing.T) {
	repo := newMockOrderRepository()
	service := NewOrderService(repo)
	ctx := context.Background()

	two := 2
	view, err := service.CreateOrder(ctx, CreateOrderInput{
		FreelancerID: 7,
		ClientName:   "Acme",
		Revisions: []RevisionInput{
			{Status: models.RevisionStatusApproved},
			{RoundNumber: &two, Status: models.RevisionStatusSubmitted},
		},
	})
	if err != nil {
		t.Fatalf("create вернул ошибку: %v", err)
	}

	_, revision, err := service.CreateRevision(ctx, view.ID, 7, RevisionInput{})
	if err != nil {
		t.Fatalf("create revision вернул ошибку: %v", err)
	}

	if revision.RoundNumber != 3 {
		t.Fatalf("ожидался раунд 3 (max+1), получили %d", revision.RoundNumber)
	}
	if revision.Status != models.RevisionStatusRequested {
		t.Fatalf("статус по умолчанию requested, получили %q", revision.Status)
	}
	if revision.DerivedStatus != models.RevisionUIStatusOpen {
		t.Fatalf("производный статус новой правки open, получили %q", revision.DerivedStatus)
	}
}

func TestOrderService_CreateRequirementRebuildsView(t *testing.T) {
	repo := newMockOrderRepository()
	service := NewOrderService(repo)
	ctx := context.Background()

	view, err := service.CreateOrder(ctx, CreateOrderInput{FreelancerID: 7, ClientName: "Acme"})
	if err != nil {
		t.Fatalf("create вернул ошибку: %v", err)
	}
	if view.IntakeStatus != models.IntakeStatusNotStarted {
		t.Fatalf("intake нового заказа not_started, получили %q", view.IntakeStatus)
	}

	// Сохранённый при создании дефолт intake остаётся в metadata и после
	// добавления анкеты, пока его явно не перезапишут.
	rebuilt, form, err := service.CreateRequirementForm(ctx, view.ID, 7, RequirementFormInput{Title: "Бриф"})
	if err != nil {
		t.Fatalf("create requirement вернул ошибку: %v", err)
	}
	if form.DerivedStatus != models.RequirementUIStatusPendingClient {
		t.Fatalf("новая анкета должна быть pending_client, получили %q", form.DerivedStatus)
	}
	if len(rebuilt.Requirements) != 1 {
		t.Fatalf("витрина должна пересобраться с анкетой, получили %d", len(rebuilt.Requirements))
	}

	_, _, err = service.CreateRequirementForm(ctx, view.ID, 42, RequirementFormInput{Title: "Чужой"})
	if !apperror.IsForbidden(err) {
		t.Fatalf("чужой заказ должен давать forbidden, получили %v", err)
	}
}

func TestOrderService_PayoutEscrowStatusInput(t *testing.T) {
	repo := newMockOrderRepository()
	service := NewOrderService(repo)
	ctx := context.Background()

	view, err := service.CreateOrder(ctx, CreateOrderInput{FreelancerID: 7, ClientName: "Acme"})
	if err != nil {
		t.Fatalf("create вернул ошибку: %v", err)
	}

	amount := 500.0
	// Чекпоинт можно создать производным escrow статусом.
	_, payout, err := service.CreatePayout(ctx, view.ID, 7, PayoutInput{
		MilestoneLabel: "Аванс",
		Amount:         &amount,
		EscrowStatus:   models.EscrowStatusHeld,
	})
	if err != nil {
		t.Fatalf("create payout вернул ошибку: %v", err)
	}
	if payout.Status != models.PayoutStatusOnHold {
		t.Fatalf("held должен отображаться в on_hold, получили %q", payout.Status)
	}
	if payout.EscrowStatus != models.EscrowStatusHeld {
		t.Fatalf("производный escrow статус держится как held, получили %q", payout.EscrowStatus)
	}

	// Явный канонический статус побеждает escrow статус.
	_, payout, err = service.UpdatePayout(ctx, view.ID, payout.ID, 7, PayoutInput{
		Status:       models.PayoutStatusReleased,
		EscrowStatus: models.EscrowStatusDisputed,
	})
	if err != nil {
		t.Fatalf("update payout вернул ошибку: %v", err)
	}
	if payout.Status != models.PayoutStatusReleased {
		t.Fatalf("канонический статус должен победить, получили %q", payout.Status)
	}
}

func TestOrderService_PayoutAmountZeroed(t *testing.T) {
	repo := newMockOrderRepository()
	service := NewOrderService(repo)
	ctx := context.Background()

	view, err := service.CreateOrder(ctx, CreateOrderInput{FreelancerID: 7, ClientName: "Acme"})
	if err != nil {
		t.Fatalf("create вернул ошибку: %v", err)
	}

	amount := 250.0
	_, payout, err := service.CreatePayout(ctx, view.ID, 7, PayoutInput{
		MilestoneLabel: "Аванс",
		Amount:         &amount,
	})
	if err != nil {
		t.Fatalf("create payout вернул ошибку: %v", err)
	}

	// Запрос без поля amount сумму не трогает.
	_, payout, err = service.UpdatePayout(ctx, view.ID, payout.ID, 7, PayoutInput{
		Status: models.PayoutStatusScheduled,
	})
	if err != nil {
		t.Fatalf("update payout вернул ошибку: %v", err)
	}
	if payout.Amount != 250.0 {
		t.Fatalf("сумма без поля amount должна сохраняться, получили %v", payout.Amount)
	}

	// Явный ноль обнуляет сумму чекпоинта.
	zero := 0.0
	_, payout, err = service.UpdatePayout(ctx, view.ID, payout.ID, 7, PayoutInput{Amount: &zero})
	if err != nil {
		t.Fatalf("update payout вернул ошибку: %v", err)
	}
	if payout.Amount != 0 {
		t.Fatalf("явный ноль должен обнулять сумму, получили %v", payout.Amount)
	}
}

func TestOrderService_ChildScopedToOrder(t *testing.T) {
	repo := newMockOrderRepository()
	service := NewOrderService(repo)
	ctx := context.Background()

	first, err := service.CreateOrder(ctx, CreateOrderInput{
		FreelancerID: 7,
		ClientName:   "Acme",
		Revisions:    []RevisionInput{{}},
	})
	if err != nil {
		t.Fatalf("create вернул ошибку: %v", err)
	}
	second, err := service.CreateOrder(ctx, CreateOrderInput{FreelancerID: 7, ClientName: "Globex"})
	if err != nil {
		t.Fatalf("create вернул ошибку: %v", err)
	}

	revisionID := first.Revisions[0].ID
	_, _, err = service.UpdateRevision(ctx, second.ID, revisionID, 7, RevisionInput{})
	if err != repository.ErrRevisionNotFound {
		t.Fatalf("правка чужого заказа должна давать not found, получили %v", err)
	}
}
