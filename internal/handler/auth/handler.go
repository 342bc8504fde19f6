package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mzalewski/secadmin-api/internal/handler"
	"github.com/mzalewski/secadmin-api/internal/middleware"
	"github.com/mzalewski/secadmin-api/internal/model"
	"github.com/mzalewski/secadmin-api/internal/service/audit"
	authsvc "github.com/mzalewski/secadmin-api/internal/service/auth"
	"github.com/mzalewski/secadmin-api/internal/service/session"
	usersvc "github.com/mzalewski/secadmin-api/internal/service/user"
	"github.com/mzalewski/secadmin-api/pkg/apperror"
	"github.com/mzalewski/secadmin-api/pkg/recaptcha"
)

type Handler struct {
	authSvc  *authsvc.Service
	userSvc  *usersvc.Service
	sessions *session.Service
	auditor  *audit.Service
	captcha  recaptcha.Verifier
}

func NewHandler(
	authSvc *authsvc.Service,
	userSvc *usersvc.Service,
	sessions *session.Service,
	auditor *audit.Service,
	captcha recaptcha.Verifier,
) *Handler {
	return &Handler{
		authSvc:  authSvc,
		userSvc:  userSvc,
		sessions: sessions,
		auditor:  auditor,
		captcha:  captcha,
	}
}

func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	auth := r.Group("/auth")
	{
		auth.POST("/login", h.Login)
		auth.POST("/otp", h.CompleteOTP)
		auth.POST("/register", h.Register)
	}
}

func (h *Handler) RegisterGuardedRoutes(r *gin.RouterGroup) {
	auth := r.Group("/auth")
	{
		auth.POST("/logout", h.Logout)
		auth.POST("/change-password", h.ChangePassword)
	}
	r.GET("/me", h.Me)
}

// Login runs stage one of authentication. The captcha gate sits before any
// account lookup so bots never reach the credential path.
func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	if h.captcha.Enabled() && !h.captcha.Verify(c.Request.Context(), req.CaptchaToken) {
		handler.WriteError(c, apperror.CaptchaFailed())
		return
	}

	outcome, err := h.authSvc.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(outcome))
}

// CompleteOTP runs stage two against a pending challenge.
func (h *Handler) CompleteOTP(c *gin.Context) {
	var req model.OTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	outcome, err := h.authSvc.CompleteOTP(c.Request.Context(), req.ChallengeID, req.Answer)
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(outcome))
}

func (h *Handler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	if h.captcha.Enabled() && !h.captcha.Verify(c.Request.Context(), req.CaptchaToken) {
		handler.WriteError(c, apperror.CaptchaFailed())
		return
	}

	user, err := h.userSvc.Register(c.Request.Context(), &req)
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(user))
}

func (h *Handler) Logout(c *gin.Context) {
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("no active session"))
		return
	}

	if err := h.sessions.Destroy(c.Request.Context(), claims.SessionID); err != nil {
		handler.WriteError(c, err)
		return
	}

	h.auditor.Append(c.Request.Context(), claims.Username, model.AuditActionLogout, "signed out")
	c.JSON(http.StatusOK, handler.NewSuccessResponse("logged out successfully"))
}

func (h *Handler) ChangePassword(c *gin.Context) {
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("no active session"))
		return
	}

	var req model.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	if err := h.userSvc.ChangePassword(c.Request.Context(), claims.Username, req.OldPassword, req.NewPassword); err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse("password changed"))
}

func (h *Handler) Me(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("no active session"))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(user))
}
