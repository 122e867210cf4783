package handler

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"mealmail/internal/domain"
	"mealmail/internal/export"
	"mealmail/internal/service"
)

// exportBatchSize is the page size used while collecting orders for export.
const exportBatchSize = 200

// OrderHandler serves processed orders.
type OrderHandler struct {
	orderService service.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderService service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// List handles GET /api/v1/orders
func (h *OrderHandler) List(c *gin.Context) {
	offset, limit := parsePagination(c)
	orders, total, err := h.orderService.ListOrders(c.Request.Context(), offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondPaginated(c, orders, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// GetByID handles GET /api/v1/orders/:id
func (h *OrderHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid order ID")
		return
	}
	order, err := h.orderService.GetOrder(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, order)
}

// ExportCSV handles GET /api/v1/orders/export/csv
func (h *OrderHandler) ExportCSV(c *gin.Context) {
	orders, err := h.allOrders(c)
	if err != nil {
		HandleError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, orders); err != nil {
		HandleError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+export.BuildFilename("orders", "csv", time.Now())+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// ExportXLSX handles GET /api/v1/orders/export/xlsx
func (h *OrderHandler) ExportXLSX(c *gin.Context) {
	orders, err := h.allOrders(c)
	if err != nil {
		HandleError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, orders); err != nil {
		HandleError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+export.BuildFilename("orders", "xlsx", time.Now())+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (h *OrderHandler) allOrders(c *gin.Context) ([]domain.EnhancedOrder, error) {
	var all []domain.EnhancedOrder
	for offset := 0; ; offset += exportBatchSize {
		page, total, err := h.orderService.ListOrders(c.Request.Context(), offset, exportBatchSize)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) == 0 || offset+len(page) >= total {
			return all, nil
		}
	}
}
