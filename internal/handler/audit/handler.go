package audit

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mzalewski/secadmin-api/internal/handler"
	"github.com/mzalewski/secadmin-api/internal/model"
	auditsvc "github.com/mzalewski/secadmin-api/internal/service/audit"
)

type Handler struct {
	svc *auditsvc.Service
}

func NewHandler(svc *auditsvc.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	audit := r.Group("/audit")
	{
		audit.GET("", h.List)
		audit.GET("/actions", h.Actions)
	}
}

type listResponse struct {
	Entries []*model.AuditLog `json:"entries"`
	Total   int64             `json:"total"`
	Page    int               `json:"page"`
}

func (h *Handler) List(c *gin.Context) {
	var filter model.AuditLogFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	entries, total, err := h.svc.List(c.Request.Context(), &filter)
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(listResponse{
		Entries: entries,
		Total:   total,
		Page:    page,
	}))
}

// Actions returns the distinct action names present in the log, for filter
// dropdowns.
func (h *Handler) Actions(c *gin.Context) {
	actions, err := h.svc.Actions(c.Request.Context())
	if err != nil {
		handler.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(actions))
}
