package content

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mzalewski/secadmin-api/internal/handler"
	"github.com/mzalewski/secadmin-api/internal/middleware"
	usersvc "github.com/mzalewski/secadmin-api/internal/service/user"
	"github.com/mzalewski/secadmin-api/pkg/security"
)

// Handler serves the protected content viewer: a licence-key unlock step and
// a Vigenere transform over the unlocked material.
type Handler struct {
	svc    *usersvc.Service
	cipher *security.VigenereCipher
}

func NewHandler(svc *usersvc.Service) *Handler {
	return &Handler{
		svc:    svc,
		cipher: security.NewVigenereCipher(),
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	content := r.Group("/content")
	{
		content.POST("/unlock", h.Unlock)
		content.POST("/encrypt", h.Encrypt)
		content.POST("/decrypt", h.Decrypt)
	}
}

type unlockRequest struct {
	LicenceKey string `json:"licence_key" binding:"required"`
}

type transformRequest struct {
	Text string `json:"text" binding:"required"`
	Key  string `json:"key" binding:"required,alpha"`
}

type transformResponse struct {
	Result string `json:"result"`
}

func (h *Handler) Unlock(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("no active session"))
		return
	}

	var req unlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	if err := h.svc.UnlockContent(c.Request.Context(), user.Username, req.LicenceKey); err != nil {
		handler.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse("content unlocked"))
}

func (h *Handler) Encrypt(c *gin.Context) {
	h.transform(c, false)
}

func (h *Handler) Decrypt(c *gin.Context) {
	h.transform(c, true)
}

func (h *Handler) transform(c *gin.Context, decrypt bool) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("no active session"))
		return
	}
	if !user.ContentUnlocked {
		c.JSON(http.StatusForbidden, handler.NewErrorResponse("content viewer is locked, submit a licence key first"))
		return
	}

	var req transformRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	var result string
	if decrypt {
		result = h.cipher.Decrypt(req.Text, req.Key)
	} else {
		result = h.cipher.Encrypt(req.Text, req.Key)
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(transformResponse{Result: result}))
}
