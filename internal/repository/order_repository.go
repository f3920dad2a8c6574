package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/olegmakarov/gigflow-backend/internal/models"
)

// OrderRepository отвечает за заказы и их дочерние записи.
type OrderRepository struct {
	db *sqlx.DB
}

// Ошибки уровня репозитория.
var (
	ErrOrderNotFound           = errors.New("order not found")
	ErrRequirementFormNotFound = errors.New("requirement form not found")
	ErrRevisionNotFound        = errors.New("revision not found")
	ErrPayoutNotFound          = errors.New("payout not found")
	ErrDuplicateOrderNumber    = errors.New("duplicate order number")
)

// OrderFilter параметры выборки заказов.
type OrderFilter struct {
	OwnerID      *int64
	CreatedAfter *time.Time
}

// NewOrderRepository создаёт новый экземпляр.
func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

const orderColumns = `
	o.id, o.order_number, o.freelancer_id, o.client_id, o.client_name, o.client_email,
	o.client_company, o.catalog_item_id, o.workflow_status, o.currency_code, o.total_amount,
	o.progress_percent, o.submitted_at, o.kickoff_at, o.due_at, o.completed_at,
	o.metadata, o.created_at, o.updated_at
`

// FindOrderByID возвращает заказ с жадно загруженными дочерними записями и
// лёгкими проекциями фрилансера и позиции каталога.
func (r *OrderRepository) FindOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	order, err := r.scanOrderRow(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.loadChildren(ctx, []*models.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *OrderRepository) scanOrderRow(ctx context.Context, id int64) (*models.Order, error) {
	query := `
		SELECT ` + orderColumns + `,
		       f.id AS "freelancer.id", f.display_name AS "freelancer.display_name", f.email AS "freelancer.email"
		FROM orders o
		JOIN freelancers f ON f.id = o.freelancer_id
		WHERE o.id = $1
	`
	row := r.db.QueryRowxContext(ctx, query, id)

	var order models.Order
	var freelancer models.FreelancerRef
	if err := row.Scan(
		&order.ID, &order.OrderNumber, &order.FreelancerID, &order.ClientID, &order.ClientName,
		&order.ClientEmail, &order.ClientCompany, &order.CatalogItemID, &order.WorkflowStatus,
		&order.CurrencyCode, &order.TotalAmount, &order.ProgressPercent, &order.SubmittedAt,
		&order.KickoffAt, &order.DueAt, &order.CompletedAt, &order.Metadata,
		&order.CreatedAt, &order.UpdatedAt,
		&freelancer.ID, &freelancer.DisplayName, &freelancer.Email,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("order repository: get by id %w", err)
	}
	order.Freelancer = &freelancer

	if order.CatalogItemID != nil {
		var item models.CatalogItemRef
		itemQuery := `SELECT id, title FROM catalog_items WHERE id = $1`
		if err := r.db.GetContext(ctx, &item, itemQuery, *order.CatalogItemID); err == nil {
			order.CatalogItem = &item
		}
	}

	return &order, nil
}

// ListOrders возвращает заказы по фильтру, новые первыми, с дочерними
// записями, загруженными пачкой на каждую таблицу (без N+1 на заказ).
func (r *OrderRepository) ListOrders(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders o WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if filter.OwnerID != nil {
		query += fmt.Sprintf(" AND o.freelancer_id = $%d", argPos)
		args = append(args, *filter.OwnerID)
		argPos++
	}
	if filter.CreatedAfter != nil {
		query += fmt.Sprintf(" AND o.created_at > $%d", argPos)
		args = append(args, *filter.CreatedAfter)
		argPos++
	}
	query += " ORDER BY o.created_at DESC"

	var orders []models.Order
	if err := r.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, fmt.Errorf("order repository: list %w", err)
	}

	refs := make([]*models.Order, len(orders))
	for i := range orders {
		refs[i] = &orders[i]
	}
	if err := r.loadChildren(ctx, refs); err != nil {
		return nil, err
	}
	return orders, nil
}

// loadChildren загружает дочерние записи одним запросом на таблицу.
func (r *OrderRepository) loadChildren(ctx context.Context, orders []*models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, len(orders))
	byID := make(map[int64]*models.Order, len(orders))
	for i, order := range orders {
		ids[i] = order.ID
		byID[order.ID] = order
	}

	var requirements []models.RequirementForm
	reqQuery := `
		SELECT id, order_id, title, status, priority, questions, responses,
		       requested_at, due_at, received_at, created_at, updated_at
		FROM requirement_forms WHERE order_id = ANY($1)
	`
	if err := r.db.SelectContext(ctx, &requirements, reqQuery, pq.Array(ids)); err != nil {
		return fmt.Errorf("order repository: load requirement forms %w", err)
	}
	for _, req := range requirements {
		parent := byID[req.OrderID]
		parent.Requirements = append(parent.Requirements, req)
	}

	var revisions []models.Revision
	revQuery := `
		SELECT id, order_id, round_number, status, severity, summary,
		       requested_at, resolved_at, created_at, updated_at
		FROM revisions WHERE order_id = ANY($1)
	`
	if err := r.db.SelectContext(ctx, &revisions, revQuery, pq.Array(ids)); err != nil {
		return fmt.Errorf("order repository: load revisions %w", err)
	}
	for _, rev := range revisions {
		parent := byID[rev.OrderID]
		parent.Revisions = append(parent.Revisions, rev)
	}

	var payouts []models.Payout
	payoutQuery := `
		SELECT id, order_id, milestone_label, amount, currency_code, status,
		       expected_at, released_at, risk_note, metadata, created_at, updated_at
		FROM payouts WHERE order_id = ANY($1)
	`
	if err := r.db.SelectContext(ctx, &payouts, payoutQuery, pq.Array(ids)); err != nil {
		return fmt.Errorf("order repository: load payouts %w", err)
	}
	for _, p := range payouts {
		parent := byID[p.OrderID]
		parent.Payouts = append(parent.Payouts, p)
	}

	return nil
}

// CreateOrder сохраняет заказ и вложенные дочерние записи в одной транзакции.
func (r *OrderRepository) CreateOrder(ctx context.Context, order *models.Order, requirements []models.RequirementForm, revisions []models.Revision, payouts []models.Payout) error {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("order repository: begin tx %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	query := `
		INSERT INTO orders (order_number, freelancer_id, client_id, client_name, client_email,
			client_company, catalog_item_id, workflow_status, currency_code, total_amount,
			progress_percent, submitted_at, kickoff_at, due_at, completed_at, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, created_at, updated_at
	`
	if err = tx.QueryRowxContext(
		ctx, query,
		order.OrderNumber, order.FreelancerID, order.ClientID, order.ClientName, order.ClientEmail,
		order.ClientCompany, order.CatalogItemID, order.WorkflowStatus, order.CurrencyCode,
		order.TotalAmount, order.ProgressPercent, order.SubmittedAt, order.KickoffAt,
		order.DueAt, order.CompletedAt, order.Metadata,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			err = ErrDuplicateOrderNumber
			return err
		}
		err = fmt.Errorf("order repository: insert order %w", err)
		return err
	}

	for i := range requirements {
		requirements[i].OrderID = order.ID
		if err = insertRequirementForm(ctx, tx, &requirements[i]); err != nil {
			return err
		}
	}
	for i := range revisions {
		revisions[i].OrderID = order.ID
		if err = insertRevision(ctx, tx, &revisions[i]); err != nil {
			return err
		}
	}
	for i := range payouts {
		payouts[i].OrderID = order.ID
		if err = insertPayout(ctx, tx, &payouts[i]); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("order repository: commit %w", err)
	}
	return nil
}

// UpdateOrder перезаписывает канонические поля и metadata заказа.
func (r *OrderRepository) UpdateOrder(ctx context.Context, order *models.Order) error {
	query := `
		UPDATE orders SET
			client_id = $2, client_name = $3, client_email = $4, client_company = $5,
			catalog_item_id = $6, workflow_status = $7, currency_code = $8, total_amount = $9,
			progress_percent = $10, submitted_at = $11, kickoff_at = $12, due_at = $13,
			completed_at = $14, metadata = $15, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.ExecContext(
		ctx, query,
		order.ID, order.ClientID, order.ClientName, order.ClientEmail, order.ClientCompany,
		order.CatalogItemID, order.WorkflowStatus, order.CurrencyCode, order.TotalAmount,
		order.ProgressPercent, order.SubmittedAt, order.KickoffAt, order.DueAt,
		order.CompletedAt, order.Metadata,
	)
	if err != nil {
		return fmt.Errorf("order repository: update order %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// FindRequirementFormByID возвращает анкету по идентификатору.
func (r *OrderRepository) FindRequirementFormByID(ctx context.Context, id int64) (*models.RequirementForm, error) {
	var form models.RequirementForm
	query := `
		SELECT id, order_id, title, status, priority, questions, responses,
		       requested_at, due_at, received_at, created_at, updated_at
		FROM requirement_forms WHERE id = $1
	`
	if err := r.db.GetContext(ctx, &form, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrRequirementFormNotFound
		}
		return nil, fmt.Errorf("order repository: get requirement form %w", err)
	}
	return &form, nil
}

// CreateRequirementForm сохраняет новую анкету.
func (r *OrderRepository) CreateRequirementForm(ctx context.Context, form *models.RequirementForm) error {
	return insertRequirementForm(ctx, r.db, form)
}

// UpdateRequirementForm перезаписывает анкету.
func (r *OrderRepository) UpdateRequirementForm(ctx context.Context, form *models.RequirementForm) error {
	query := `
		UPDATE requirement_forms SET
			title = $2, status = $3, priority = $4, questions = $5, responses = $6,
			requested_at = $7, due_at = $8, received_at = $9, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		form.ID, form.Title, form.Status, form.Priority, form.Questions, form.Responses,
		form.RequestedAt, form.DueAt, form.ReceivedAt,
	)
	if err != nil {
		return fmt.Errorf("order repository: update requirement form %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrRequirementFormNotFound
	}
	return nil
}

// FindRevisionByID возвращает правку по идентификатору.
func (r *OrderRepository) FindRevisionByID(ctx context.Context, id int64) (*models.Revision, error) {
	var revision models.Revision
	query := `
		SELECT id, order_id, round_number, status, severity, summary,
		       requested_at, resolved_at, created_at, updated_at
		FROM revisions WHERE id = $1
	`
	if err := r.db.GetContext(ctx, &revision, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrRevisionNotFound
		}
		return nil, fmt.Errorf("order repository: get revision %w", err)
	}
	return &revision, nil
}

// CreateRevision сохраняет новый раунд правок.
func (r *OrderRepository) CreateRevision(ctx context.Context, revision *models.Revision) error {
	return insertRevision(ctx, r.db, revision)
}

// UpdateRevision перезаписывает раунд правок.
func (r *OrderRepository) UpdateRevision(ctx context.Context, revision *models.Revision) error {
	query := `
		UPDATE revisions SET
			round_number = $2, status = $3, severity = $4, summary = $5,
			requested_at = $6, resolved_at = $7, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		revision.ID, revision.RoundNumber, revision.Status, revision.Severity,
		revision.Summary, revision.RequestedAt, revision.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("order repository: update revision %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrRevisionNotFound
	}
	return nil
}

// MaxRevisionRound возвращает максимальный номер раунда по заказу (0, если правок нет).
func (r *OrderRepository) MaxRevisionRound(ctx context.Context, orderID int64) (int, error) {
	var maxRound int
	query := `SELECT COALESCE(MAX(round_number), 0) FROM revisions WHERE order_id = $1`
	if err := r.db.GetContext(ctx, &maxRound, query, orderID); err != nil {
		return 0, fmt.Errorf("order repository: max revision round %w", err)
	}
	return maxRound, nil
}

// FindPayoutByID возвращает чекпоинт по идентификатору.
func (r *OrderRepository) FindPayoutByID(ctx context.Context, id int64) (*models.Payout, error) {
	var payout models.Payout
	query := `
		SELECT id, order_id, milestone_label, amount, currency_code, status,
		       expected_at, released_at, risk_note, metadata, created_at, updated_at
		FROM payouts WHERE id = $1
	`
	if err := r.db.GetContext(ctx, &payout, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrPayoutNotFound
		}
		return nil, fmt.Errorf("order repository: get payout %w", err)
	}
	return &payout, nil
}

// CreatePayout сохраняет новый чекпоинт.
func (r *OrderRepository) CreatePayout(ctx context.Context, payout *models.Payout) error {
	return insertPayout(ctx, r.db, payout)
}

// UpdatePayout перезаписывает чекпоинт.
func (r *OrderRepository) UpdatePayout(ctx context.Context, payout *models.Payout) error {
	query := `
		UPDATE payouts SET
			milestone_label = $2, amount = $3, currency_code = $4, status = $5,
			expected_at = $6, released_at = $7, risk_note = $8, metadata = $9, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		payout.ID, payout.MilestoneLabel, payout.Amount, payout.CurrencyCode, payout.Status,
		payout.ExpectedAt, payout.ReleasedAt, payout.RiskNote, payout.Metadata,
	)
	if err != nil {
		return fmt.Errorf("order repository: update payout %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrPayoutNotFound
	}
	return nil
}

// execer общий контракт *sqlx.DB и *sqlx.Tx для вставок.
type execer interface {
	QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
}

func insertRequirementForm(ctx context.Context, q execer, form *models.RequirementForm) error {
	query := `
		INSERT INTO requirement_forms (order_id, title, status, priority, questions, responses,
			requested_at, due_at, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`
	if err := q.QueryRowxContext(ctx, query,
		form.OrderID, form.Title, form.Status, form.Priority, form.Questions, form.Responses,
		form.RequestedAt, form.DueAt, form.ReceivedAt,
	).Scan(&form.ID, &form.CreatedAt, &form.UpdatedAt); err != nil {
		return fmt.Errorf("order repository: insert requirement form %w", err)
	}
	return nil
}

func insertRevision(ctx context.Context, q execer, revision *models.Revision) error {
	query := `
		INSERT INTO revisions (order_id, round_number, status, severity, summary, requested_at, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	if err := q.QueryRowxContext(ctx, query,
		revision.OrderID, revision.RoundNumber, revision.Status, revision.Severity,
		revision.Summary, revision.RequestedAt, revision.ResolvedAt,
	).Scan(&revision.ID, &revision.CreatedAt, &revision.UpdatedAt); err != nil {
		return fmt.Errorf("order repository: insert revision %w", err)
	}
	return nil
}

func insertPayout(ctx context.Context, q execer, payout *models.Payout) error {
	query := `
		INSERT INTO payouts (order_id, milestone_label, amount, currency_code, status,
			expected_at, released_at, risk_note, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`
	if err := q.QueryRowxContext(ctx, query,
		payout.OrderID, payout.MilestoneLabel, payout.Amount, payout.CurrencyCode, payout.Status,
		payout.ExpectedAt, payout.ReleasedAt, payout.RiskNote, payout.Metadata,
	).Scan(&payout.ID, &payout.CreatedAt, &payout.UpdatedAt); err != nil {
		return fmt.Errorf("order repository: insert payout %w", err)
	}
	return nil
}

// isUniqueViolation распознаёт нарушение уникального ограничения PostgreSQL.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
