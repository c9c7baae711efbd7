package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	chainAuth "github.com/MrEthical07/chainAuth"
	"github.com/MrEthical07/chainAuth/metrics/export/prometheus"
	"github.com/MrEthical07/chainAuth/middleware"
)

// Handler wires HTTP routes to the authentication engine.
type Handler struct {
	engine  *chainAuth.Engine
	logger  logrus.FieldLogger
	origins []string
	now     func() time.Time
}

// Option customizes a Handler.
type Option func(*Handler)

// WithLogger sets the logger used for request and failure logging.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithAllowedOrigins sets the origins allowed to make credentialed
// cross-origin requests. "*" allows any origin.
func WithAllowedOrigins(origins ...string) Option {
	return func(h *Handler) {
		h.origins = append([]string(nil), origins...)
	}
}

func NewHandler(engine *chainAuth.Engine, opts ...Option) *Handler {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	h := &Handler{
		engine:  engine,
		logger:  logger,
		origins: []string{"http://localhost:5173"},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(requestLogger(h.logger), corsMiddleware(h.origins))

	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		auth.POST("/register/step1", h.registerStep1)
		auth.POST("/register/step2", h.registerStep2)
		auth.POST("/register/step3", h.registerStep3)
		auth.POST("/resend-otp", h.resendOTP)
		auth.POST("/login", h.login)
		auth.POST("/verify-wallet", h.verifyWallet)
		auth.GET("/challenge", h.challenge)
		auth.GET("/me", sessionGuard(h.engine), h.me)

		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"success":   true,
				"message":   "Auth3 Server is running",
				"timestamp": h.now().UTC().Format(time.RFC3339Nano),
			})
		})
	}

	router.GET("/metrics", gin.WrapH(prometheus.NewPrometheusExporter(h.engine).Handler()))

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Route not found"})
	})
}

type registerStep1Request struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type registerStep2Request struct {
	UserID string `json:"userId"`
	OTP    string `json:"otp"`
}

type registerStep3Request struct {
	UserID        string `json:"userId"`
	WalletAddress string `json:"walletAddress"`
	SignedMessage string `json:"signedMessage"`
	Signature     string `json:"signature"`
	WalletType    string `json:"walletType"`
}

type resendOTPRequest struct {
	UserID string `json:"userId"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type verifyWalletRequest struct {
	TempToken     string `json:"tempToken"`
	WalletAddress string `json:"walletAddress"`
	SignedMessage string `json:"signedMessage"`
	Signature     string `json:"signature"`
}

func (h *Handler) registerStep1(c *gin.Context) {
	var req registerStep1Request
	if !h.bind(c, &req) {
		return
	}

	res, err := h.engine.RegisterBasicInfo(h.requestContext(c), chainAuth.RegisterRequest{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil && !(res != nil && errors.Is(err, chainAuth.ErrOTPDelivery)) {
		h.fail(c, "register step 1", err)
		return
	}

	message := "OTP sent to your email"
	if !res.EmailDelivered {
		h.logger.WithError(err).WithField("user_id", res.UserID).Warn("otp email not delivered")
		message = "Account created but the verification email could not be sent. Please request a new OTP."
	}
	c.JSON(http.StatusCreated, gin.H{
		"success":        true,
		"message":        message,
		"userId":         res.UserID,
		"email":          res.Email,
		"emailDelivered": res.EmailDelivered,
	})
}

func (h *Handler) registerStep2(c *gin.Context) {
	var req registerStep2Request
	if !h.bind(c, &req) {
		return
	}

	if err := h.engine.ConfirmEmail(h.requestContext(c), req.UserID, req.OTP); err != nil {
		h.fail(c, "register step 2", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Email verified successfully. Please connect your wallet.",
		"userId":  req.UserID,
	})
}

func (h *Handler) registerStep3(c *gin.Context) {
	var req registerStep3Request
	if !h.bind(c, &req) {
		return
	}

	user, err := h.engine.BindWallet(h.requestContext(c), chainAuth.BindWalletRequest{
		UserID:        req.UserID,
		WalletAddress: req.WalletAddress,
		SignedMessage: req.SignedMessage,
		Signature:     req.Signature,
		WalletType:    req.WalletType,
	})
	if err != nil {
		h.fail(c, "register step 3", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Registration complete! You can now login.",
		"user":    user,
	})
}

func (h *Handler) resendOTP(c *gin.Context) {
	var req resendOTPRequest
	if !h.bind(c, &req) {
		return
	}

	if err := h.engine.ResendOTP(h.requestContext(c), req.UserID); err != nil {
		h.fail(c, "resend otp", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "New OTP sent to your email"})
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if !h.bind(c, &req) {
		return
	}

	res, err := h.engine.Login(h.requestContext(c), req.Username, req.Password)
	if err != nil {
		h.fail(c, "login", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"message":       "Credentials verified. Please verify with your wallet.",
		"tempToken":     res.TempToken,
		"walletAddress": res.WalletAddress,
		"walletType":    res.WalletType,
		"userId":        res.UserID,
	})
}

func (h *Handler) verifyWallet(c *gin.Context) {
	var req verifyWalletRequest
	if !h.bind(c, &req) {
		return
	}

	res, err := h.engine.VerifyWallet(h.requestContext(c), chainAuth.VerifyWalletRequest{
		TempToken:     req.TempToken,
		WalletAddress: req.WalletAddress,
		SignedMessage: req.SignedMessage,
		Signature:     req.Signature,
	})
	if err != nil {
		h.fail(c, "verify wallet", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "Login successful",
		"token":     res.Token,
		"expiresAt": res.ExpiresAt.UTC().Format(time.RFC3339),
		"user":      res.User,
	})
}

func (h *Handler) challenge(c *gin.Context) {
	ch, err := h.engine.SignatureChallenge(chainAuth.ChallengeRequest{
		Purpose:       chainAuth.ChallengePurpose(c.DefaultQuery("purpose", string(chainAuth.PurposeLogin))),
		UserID:        c.Query("userId"),
		WalletType:    c.Query("walletType"),
		WalletAddress: c.Query("walletAddress"),
	})
	if err != nil {
		h.fail(c, "challenge", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    ch.Message,
		"walletType": ch.WalletType,
		"network":    ch.Network,
		"provider":   ch.Provider,
		"issuedAt":   ch.IssuedAt.UnixMilli(),
	})
}

func (h *Handler) me(c *gin.Context) {
	info, ok := middleware.SessionFromContext(c.Request.Context())
	if !ok {
		h.fail(c, "me", chainAuth.ErrMissingSessionToken)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": info.User})
}

// bind decodes the JSON body. Malformed bodies answer like missing fields.
func (h *Handler) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.logger.WithError(err).WithField("path", c.FullPath()).Debug("malformed request body")
		c.JSON(http.StatusBadRequest, middleware.NewErrorBody(chainAuth.ErrMissingFields))
		return false
	}
	return true
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	status := middleware.StatusCode(err)
	if status >= http.StatusInternalServerError {
		h.logger.WithError(err).WithField("op", op).Error("request failed")
	}
	c.JSON(status, middleware.NewErrorBody(err))
}

func (h *Handler) requestContext(c *gin.Context) context.Context {
	ctx := chainAuth.WithClientIP(c.Request.Context(), c.ClientIP())
	return chainAuth.WithUserAgent(ctx, c.Request.UserAgent())
}
