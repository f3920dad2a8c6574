package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/olegmakarov/gigflow-backend/internal/dto"
	"github.com/olegmakarov/gigflow-backend/internal/http/handlers/common"
	"github.com/olegmakarov/gigflow-backend/internal/repository"
	"github.com/olegmakarov/gigflow-backend/internal/service"
)

// PipelineHandler обслуживает агрегированную сводку воронки заказов.
type PipelineHandler struct {
	orders *service.OrderService
}

// NewPipelineHandler создаёт новый хэндлер.
func NewPipelineHandler(orders *service.OrderService) *PipelineHandler {
	return &PipelineHandler{orders: orders}
}

// Summary обрабатывает GET /pipeline/summary.
// Сводка считается по всем заказам текущего фрилансера за один проход.
func (h *PipelineHandler) Summary(c *gin.Context) {
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

	summary, err := h.orders.PipelineSummary(c.Request.Context(), repository.OrderFilter{
		OwnerID:      &freelancerID,
		CreatedAfter: createdAfter,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	common.RespondJSON(c, http.StatusOK, summary)
}
