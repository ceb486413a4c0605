package api

import (
	"net/http"

	"sprout_prelaunch/internal/mailer"
	"sprout_prelaunch/internal/repository"
	"sprout_prelaunch/internal/service"
	"sprout_prelaunch/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
)

type signupRoutes struct {
	ss   service.SignupServiceI
	mail *mailer.Client
	repo *repository.Repository
}

func NewSignupRoutes(handler *gin.RouterGroup, ss service.SignupServiceI, mail *mailer.Client, repo *repository.Repository) {
	r := &signupRoutes{ss: ss, mail: mail, repo: repo}

	handler.POST("/signup", r.SignUp)
	handler.POST("/email/send", r.SendEmail)
	handler.GET("/health", r.Health)
}

type SignupRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	UserType        string `json:"user_type"`
	ReferralCode    string `json:"referral_code"`
}

// SignUp runs the signup workflow. Workflow outcomes, including
// validation failures and benign duplicates, come back as 200 with the
// success flag; only a malformed body is a 400.
func (r *signupRoutes) SignUp(c *gin.Context) {
	log := logger.Logger()

	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("failed to bind signup request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	result := r.ss.SignUp(c.Request.Context(), service.SignupInput{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		UserType:        req.UserType,
		ReferralCode:    req.ReferralCode,
	})

	c.JSON(http.StatusOK, result)
}

type SendEmailRequest struct {
	To         string `json:"to"`
	Name       string `json:"name"`
	TemplateID int64  `json:"template_id"`
}

func (r *signupRoutes) SendEmail(c *gin.Context) {
	log := logger.Logger()

	var req SendEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("failed to bind send email request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request"})
		return
	}

	if req.To == "" || req.Name == "" || req.TemplateID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Missing required parameters: to, name, template_id",
		})
		return
	}

	result := r.mail.SendTemplate(c.Request.Context(), req.To, req.Name, req.TemplateID)
	if !result.Success {
		c.JSON(http.StatusInternalServerError, result)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (r *signupRoutes) Health(c *gin.Context) {
	if err := r.repo.Ping(c.Request.Context()); err != nil {
		logger.Logger().Error("health check db ping failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
