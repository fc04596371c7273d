package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rongwang/expenses-server/internal/accesscontrol"
	"github.com/rongwang/expenses-server/internal/models"
	"github.com/rongwang/expenses-server/internal/service"
	"github.com/rongwang/expenses-server/internal/utils"
)

// Handler holds the API handlers and their dependencies
type Handler struct {
	svc    service.Service
	ac     *accesscontrol.AccessControl
	logger *utils.Logger
}

// NewHandler creates a new API handler
func NewHandler(svc service.Service, ac *accesscontrol.AccessControl, logger *utils.Logger) *Handler {
	return &Handler{
		svc:    svc,
		ac:     ac,
		logger: logger.Named("api"),
	}
}

// SetupRoutes registers all API routes on the router
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.POST("/users/:username/auth_token", h.IssueAuthToken)

	router.GET("/expenses/:username", h.ListExpenses)
	router.GET("/expenses/:username/:id", h.GetExpense)
	router.POST("/expenses/:username", h.CreateExpense)
	router.PUT("/expenses/:username/:id", h.UpdateExpense)
	router.DELETE("/expenses/:username/:id", h.DeleteExpense)

	router.GET("/accounts/:username", h.AccountBalances)

	router.POST("/mobiles/:username", h.RegisterMobile)
	router.GET("/mobiles/:username", h.ListMobiles)
}

// IssueAuthToken handles POST /users/:username/auth_token
func (h *Handler) IssueAuthToken(c *gin.Context) {
	var req models.AuthTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Password is required")
		return
	}

	token, err := h.ac.Authenticate(c.Request.Context(), c.Param("username"), req.Password)
	if err != nil {
		unauthorized(c, "Invalid username or password")
		return
	}

	c.JSON(http.StatusOK, models.AuthTokenResponse{AuthToken: token})
}

// ListExpenses handles GET /expenses/:username
func (h *Handler) ListExpenses(c *gin.Context) {
	username := c.Param("username")
	if !h.authorize(c, username, accesscontrol.VerbRead) {
		return
	}

	transactions, err := h.svc.ListExpenses(c.Request.Context(), username)
	if err != nil {
		h.serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.ExpensesResponse{
		Status:       "success",
		Transactions: transactions,
	})
}

// GetExpense handles GET /expenses/:username/:id
func (h *Handler) GetExpense(c *gin.Context) {
	username := c.Param("username")
	if !h.authorize(c, username, accesscontrol.VerbRead) {
		return
	}

	tx, err := h.svc.GetExpense(c.Request.Context(), username, c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			notFound(c)
			return
		}
		h.serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.ExpenseResponse{
		Status:      "success",
		Transaction: *tx,
	})
}

// CreateExpense handles POST /expenses/:username
func (h *Handler) CreateExpense(c *gin.Context) {
	username := c.Param("username")
	if !h.authorize(c, username, accesscontrol.VerbCreate) {
		return
	}

	var req models.ExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid expense data")
		return
	}

	tx, err := h.svc.CreateExpense(c.Request.Context(), username, req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidExpense) {
			badRequest(c, err.Error())
			return
		}
		h.serverError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.ExpenseResponse{
		Status:      "success",
		Transaction: *tx,
	})
}

// UpdateExpense handles PUT /expenses/:username/:id
func (h *Handler) UpdateExpense(c *gin.Context) {
	username := c.Param("username")
	if !h.authorize(c, username, accesscontrol.VerbUpdate) {
		return
	}

	var req models.ExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid expense data")
		return
	}

	tx, err := h.svc.UpdateExpense(c.Request.Context(), username, c.Param("id"), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidExpense):
			badRequest(c, err.Error())
		case errors.Is(err, service.ErrNotFound):
			notFound(c)
		default:
			h.serverError(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, models.ExpenseResponse{
		Status:      "success",
		Transaction: *tx,
	})
}

// DeleteExpense handles DELETE /expenses/:username/:id
func (h *Handler) DeleteExpense(c *gin.Context) {
	username := c.Param("username")
	if !h.authorize(c, username, accesscontrol.VerbDelete) {
		return
	}

	if err := h.svc.DeleteExpense(c.Request.Context(), username, c.Param("id")); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			notFound(c)
			return
		}
		h.serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.StatusResponse{Status: "success"})
}

// AccountBalances handles GET /accounts/:username?filter=a,b,c
func (h *Handler) AccountBalances(c *gin.Context) {
	username := c.Param("username")
	if !h.authorize(c, username, accesscontrol.VerbRead) {
		return
	}

	var filter []string
	if raw := c.Query("filter"); raw != "" {
		filter = strings.Split(raw, ",")
	}

	balances, err := h.svc.AccountBalances(c.Request.Context(), username, filter)
	if err != nil {
		// ledger.ErrAggregation and any other failure are
		// infrastructure faults; an empty ledger is not an error.
		h.serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.BalancesResponse{
		Status:   "success",
		Balances: balances,
	})
}

// RegisterMobile handles POST /mobiles/:username
func (h *Handler) RegisterMobile(c *gin.Context) {
	username := c.Param("username")
	if !h.authorize(c, username, accesscontrol.VerbCreate) {
		return
	}

	var req models.RegisterMobileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Registration id is required")
		return
	}

	if _, err := h.svc.RegisterMobile(c.Request.Context(), username, req); err != nil {
		h.serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.StatusResponse{Status: "success"})
}

// ListMobiles handles GET /mobiles/:username
func (h *Handler) ListMobiles(c *gin.Context) {
	username := c.Param("username")
	if !h.authorize(c, username, accesscontrol.VerbRead) {
		return
	}

	mobiles, err := h.svc.ListMobiles(c.Request.Context(), username)
	if err != nil {
		h.serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.MobilesResponse{
		Status:  "success",
		Mobiles: mobiles,
	})
}

// authorize checks the auth_token query parameter against the token
// store for the given verb. On denial it writes the 401 response and
// returns false. Each handler passes its own verb so that per-verb
// policy can be added without touching the call sites.
func (h *Handler) authorize(c *gin.Context, username string, verb accesscontrol.Verb) bool {
	token := c.Query("auth_token")

	if err := h.ac.Authorize(c.Request.Context(), username, token, verb); err != nil {
		unauthorized(c, "Operation not authorized")
		return false
	}

	return true
}

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
		Status:  "error",
		Code:    "UNAUTHORIZED",
		Message: message,
	})
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{
		Status:  "error",
		Code:    "BAD_REQUEST",
		Message: message,
	})
}

func notFound(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusNotFound, models.ErrorResponse{
		Status:  "error",
		Code:    "NOT_FOUND",
		Message: "Expense not found",
	})
}

// serverError logs the failure and answers with a generic 500; error
// detail never reaches the client.
func (h *Handler) serverError(c *gin.Context, err error) {
	h.logger.Error("%s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse{
		Status:  "error",
		Code:    "INTERNAL_ERROR",
		Message: "Internal server error",
	})
}
