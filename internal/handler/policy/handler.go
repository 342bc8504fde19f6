package policy

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mzalewski/secadmin-api/internal/handler"
	"github.com/mzalewski/secadmin-api/internal/middleware"
	"github.com/mzalewski/secadmin-api/internal/model"
	"github.com/mzalewski/secadmin-api/internal/service/audit"
	policysvc "github.com/mzalewski/secadmin-api/internal/service/policy"
)

type Handler struct {
	svc     *policysvc.Service
	auditor *audit.Service
}

func NewHandler(svc *policysvc.Service, auditor *audit.Service) *Handler {
	return &Handler{svc: svc, auditor: auditor}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	policy := r.Group("/policy")
	{
		policy.GET("", h.Get)
		policy.PUT("", h.Update)
	}
}

func (h *Handler) Get(c *gin.Context) {
	p, err := h.svc.Get(c.Request.Context())
	if err != nil {
		handler.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(p))
}

// Update replaces the active policy. Changes take effect on the next policy
// read; nothing is cached per process.
func (h *Handler) Update(c *gin.Context) {
	var req model.UpdatePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	p, err := h.svc.Save(c.Request.Context(), &req)
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	username := model.AuditActorUnknown
	if claims := middleware.CurrentClaims(c); claims != nil {
		username = claims.Username
	}
	h.auditor.Append(c.Request.Context(), username, model.AuditActionPolicyChange, "password policy updated")

	c.JSON(http.StatusOK, handler.NewSuccessResponse(p))
}
