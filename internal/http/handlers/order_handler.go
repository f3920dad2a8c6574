package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/olegmakarov/gigflow-backend/internal/dto"
	"github.com/olegmakarov/gigflow-backend/internal/http/handlers/common"
	"github.com/olegmakarov/gigflow-backend/internal/pkg/apperror"
	"github.com/olegmakarov/gigflow-backend/internal/repository"
	"github.com/olegmakarov/gigflow-backend/internal/service"
)

// OrderHandler обслуживает CRUD заказов и их дочерних сущностей.
type OrderHandler struct {
	orders *service.OrderService
}

// NewOrderHandler создаёт новый хэндлер.
func NewOrderHandler(orders *service.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// CreateOrder обрабатывает POST /orders.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	freelancerID, err := common.CurrentFreelancerID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.CreateOrderRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	input, err := req.ToInput(freelancerID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	view, err := h.orders.CreateOrder(c.Request.Context(), input)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	common.RespondJSON(c, http.StatusCreated, view)
}

// ListOrders обрабатывает GET /orders.
// Возвращает заказы только текущего фрилансера, новые первыми.
func (h *OrderHandler) ListOrders(c *gin.Context) {
	freelancerID, err := common.CurrentFreelancerID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var query dto.ListOrdersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	createdAfter, err := query.CreatedAfterTime()
	if err != nil {
		respondServiceError(c, err)
		return
	}

	views, err := h.orders.ListOrderViews(c.Request.Context(), repository.OrderFilter{
		OwnerID:      &freelancerID,
		CreatedAfter: createdAfter,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	common.RespondJSON(c, http.StatusOK, gin.H{"orders": views, "total": len(views)})
}

// GetOrder обрабатывает GET /orders/:id.
func (h *OrderHandler) GetOrder(c *gin.Context) {
	freelancerID, err := common.CurrentFreelancerID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	orderID, err := common.ParseIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	view, err := h.orders.GetOrderView(c.Request.Context(), orderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if view.FreelancerID != freelancerID {
		common.RespondForbidden(c, "заказ принадлежит другому фрилансеру")
		return
	}

	common.RespondJSON(c, http.StatusOK, view)
}

// UpdateOrder обрабатывает PATCH /orders/:id.
func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	freelancerID, err := common.CurrentFreelancerID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	orderID, err := common.ParseIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.UpdateOrderRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	input, err := req.ToInput(orderID, freelancerID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	view, err := h.orders.UpdateOrder(c.Request.Context(), input)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	common.RespondJSON(c, http.StatusOK, view)
}

// CreateRequirement обрабатывает POST /orders/:id/requirements.
func (h *OrderHandler) CreateRequirement(c *gin.Context) {
	freelancerID, orderID, ok := h.orderScope(c)
	if !ok {
		return
	}

	var req dto.RequirementFormRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	input, err := req.ToInput()
	if err != nil {
		respondServiceError(c, err)
		return
	}

	view, form, err := h.orders.CreateRequirementForm(c.Request.Context(), orderID, freelancerID, input)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	common.RespondJSON(c, http.StatusCreated, gin.H{"order": view, "requirement": form})
}

// UpdateRequirement обрабатывает PATCH /orders/:id/requirements/:formID.
func (h *OrderHandler) UpdateRequirement(c *gin.Context) {
	freelancerID, orderID, ok := h.orderScope(c)
	if !ok {
		return
	}

	formID, err := common.ParseIDParam(c, "formID")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.RequirementFormRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	input, err := req.ToInput()
	if err != nil {
		respondServiceError(c, err)
		return
	}

	view, form, err := h.orders.UpdateRequirementForm(c.Request.Context(), orderID, formID, freelancerID, input)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	common.RespondJSON(c, http.StatusOK, gin.H{"order": view, "requirement": form})
}

// CreateRevision обрабатывает POST /orders/:id/revisions.
func (h *OrderHandler) CreateRevision(c *gin.Context) {
	freelancerID, orderID, ok := h.orderScope(c)
	if !ok {
		return
	}

	var req dto.RevisionRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	input, err := req.ToInput()
	if err != nil {
		respondServiceError(c, err)
		return
	}

	view, revision, err := h.orders.CreateRevision(c.Request.Context(), orderID, freelancerID, input)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	common.RespondJSON(c, http.StatusCreated, gin.H{"order": view, "revision": revision})
}

// UpdateRevision обрабатывает PATCH /orders/:id/revisions/:revisionID.
func (h *OrderHandler) UpdateRevision(c *gin.Context) {
	freelancerID, orderID, ok := h.orderScope(c)
	if !ok {
		return
	}

	revisionID, err := common.ParseIDParam(c, "revisionID")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.RevisionRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	input, err := req.ToInput()
	if err != nil {
		respondServiceError(c, err)
		return
	}

	view, revision, err := h.orders.UpdateRevision(c.Request.Context(), orderID, revisionID, freelancerID, input)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	common.RespondJSON(c, http.StatusOK, gin.H{"order": view, "revision": revision})
}

// CreateEscrow обрабатывает POST /orders/:id/escrow.
func (h *OrderHandler) CreateEscrow(c *gin.Context) {
	freelancerID, orderID, ok := h.orderScope(c)
	if !ok {
		return
	}

	var req dto.PayoutRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	input, err := req.ToInput()
	if err != nil {
		respondServiceError(c, err)
		return
	}

	view, payout, err := h.orders.CreatePayout(c.Request.Context(), orderID, freelancerID, input)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	common.RespondJSON(c, http.StatusCreated, gin.H{"order": view, "escrow": payout})
}

// UpdateEscrow обрабатывает PATCH /orders/:id/escrow/:payoutID.
func (h *OrderHandler) UpdateEscrow(c *gin.Context) {
	freelancerID, orderID, ok := h.orderScope(c)
	if !ok {
		return
	}

	payoutID, err := common.ParseIDParam(c, "payoutID")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.PayoutRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	input, err := req.ToInput()
	if err != nil {
		respondServiceError(c, err)
		return
	}

	view, payout, err := h.orders.UpdatePayout(c.Request.Context(), orderID, payoutID, freelancerID, input)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	common.RespondJSON(c, http.StatusOK, gin.H{"order": view, "escrow": payout})
}

// orderScope извлекает текущего фрилансера и идентификатор заказа из запроса.
func (h *OrderHandler) orderScope(c *gin.Context) (freelancerID, orderID int64, ok bool) {
	freelancerID, err := common.CurrentFreelancerID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return 0, 0, false
	}

	orderID, err = common.ParseIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return 0, 0, false
	}

	return freelancerID, orderID, true
}

// respondServiceError транслирует ошибки сервиса и репозитория в HTTP-ответ.
func respondServiceError(c *gin.Context, err error) {
	if appErr, ok := apperror.AsAppError(err); ok {
		common.RespondError(c, appErr.HTTPStatus, appErr.Message)
		return
	}

	switch {
	case errors.Is(err, repository.ErrOrderNotFound):
		common.RespondNotFound(c, "заказ не найден")
	case errors.Is(err, repository.ErrRequirementFormNotFound):
		common.RespondNotFound(c, "анкета требований не найдена")
	case errors.Is(err, repository.ErrRevisionNotFound):
		common.RespondNotFound(c, "раунд правок не найден")
	case errors.Is(err, repository.ErrPayoutNotFound):
		common.RespondNotFound(c, "escrow-чекпоинт не найден")
	case errors.Is(err, repository.ErrDuplicateOrderNumber):
		common.RespondError(c, http.StatusConflict, "номер заказа уже занят")
	default:
		common.RespondInternalError(c, "")
	}
}
