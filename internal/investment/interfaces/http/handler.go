// Package http 投资账本 HTTP 接口层
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pkg/response"
	"github.com/wyfcoding/wealthservice/internal/investment/application"
	"github.com/wyfcoding/wealthservice/internal/investment/domain"
	membershipdomain "github.com/wyfcoding/wealthservice/internal/membership/domain"
	"github.com/wyfcoding/wealthservice/pkg/logger"
)

// InvestmentHandler 投资账本 HTTP 处理器
type InvestmentHandler struct {
	app *application.Service
}

// NewInvestmentHandler 创建 HTTP 处理器实例
func NewInvestmentHandler(app *application.Service) *InvestmentHandler {
	return &InvestmentHandler{app: app}
}

// RegisterRoutes 注册路由
func (h *InvestmentHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1/investments")
	{
		api.POST("/tiers/resolve", h.ResolveTier)
		api.POST("/requests", h.CreateRequest)
		api.POST("/requests/:id/approve", h.ApproveRequest)
		api.POST("/requests/:id/reject", h.RejectRequest)
		api.POST("/returns", h.CreateReturn)
		api.POST("/returns/:id/approve", h.ApproveReturn)
		api.POST("/returns/:id/reject", h.RejectReturn)
		api.POST("/returns/:id/paid", h.MarkReturnPaid)
		api.POST("/topup", h.Topup)
		api.POST("/transfer", h.Transfer)
		api.GET("/customers/:customer_id/summary", h.GetSummary)
		api.GET("/customers/:customer_id/requests", h.ListRequests)
		api.GET("/customers/:customer_id/transactions", h.ListTransactions)
		api.GET("/customers/:customer_id/positions", h.ListPositions)
		api.GET("/customers/:customer_id/returns", h.ListReturns)
	}
}

type resolveTierRequest struct {
	Amount string `json:"amount" binding:"required"`
	Risk   string `json:"risk_tolerance" binding:"required"`
}

// ResolveTier 档位试算
func (h *InvestmentHandler) ResolveTier(c *gin.Context) {
	var req resolveTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid amount", "")
		return
	}

	resolution, err := h.app.ResolveTier(c.Request.Context(), amount, domain.RiskTolerance(req.Risk))
	if err != nil {
		h.fail(c, "tier resolution failed", err)
		return
	}
	response.Success(c, gin.H{
		"tier": resolution.TierName,
		"rate": resolution.Rate,
	})
}

type createRequestRequest struct {
	CustomerID      string `json:"customer_id" binding:"required"`
	Amount          string `json:"amount" binding:"required"`
	RiskTolerance   string `json:"risk_tolerance" binding:"required"`
	RequestedPeriod string `json:"requested_period"`
}

// CreateRequest 创建投资申请
func (h *InvestmentHandler) CreateRequest(c *gin.Context) {
	var req createRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid amount", "")
		return
	}

	result, err := h.app.CreateInvestmentRequest(c.Request.Context(), application.CreateRequestCommand{
		CustomerID:      req.CustomerID,
		Amount:          amount,
		RiskTolerance:   domain.RiskTolerance(req.RiskTolerance),
		RequestedPeriod: req.RequestedPeriod,
	})
	if err != nil {
		h.fail(c, "investment request failed", err)
		return
	}
	response.Success(c, result)
}

type reviewRequest struct {
	ReviewerID string `json:"reviewer_id" binding:"required"`
	Reason     string `json:"reason"`
}

// ApproveRequest 审批通过投资申请
func (h *InvestmentHandler) ApproveRequest(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	result, err := h.app.ApproveInvestmentRequest(c.Request.Context(), c.Param("id"), req.ReviewerID)
	if err != nil {
		h.fail(c, "investment approval failed", err)
		return
	}
	response.Success(c, result)
}

// RejectRequest 审批拒绝投资申请
func (h *InvestmentHandler) RejectRequest(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	result, err := h.app.RejectInvestmentRequest(c.Request.Context(), c.Param("id"), req.ReviewerID, req.Reason)
	if err != nil {
		h.fail(c, "investment rejection failed", err)
		return
	}
	response.Success(c, result)
}

type createReturnRequest struct {
	CustomerID    string `json:"customer_id" binding:"required"`
	PositionTxnID string `json:"position_txn_id" binding:"required"`
	Type          string `json:"type" binding:"required"`
	Amount        string `json:"amount" binding:"required"`
}

// CreateReturn 创建回款申请
func (h *InvestmentHandler) CreateReturn(c *gin.Context) {
	var req createReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid amount", "")
		return
	}

	result, err := h.app.CreateReturnRequest(c.Request.Context(), application.CreateReturnCommand{
		CustomerID:    req.CustomerID,
		PositionTxnID: req.PositionTxnID,
		Type:          domain.ReturnType(req.Type),
		Amount:        amount,
	})
	if err != nil {
		h.fail(c, "return request failed", err)
		return
	}
	response.Success(c, result)
}

type approveReturnRequest struct {
	ReviewerID       string `json:"reviewer_id" binding:"required"`
	ApprovedAmount   string `json:"approved_amount"`
	PaymentMethod    string `json:"payment_method"`
	PaymentReference string `json:"payment_reference"`
}

// ApproveReturn 审批通过回款申请
func (h *InvestmentHandler) ApproveReturn(c *gin.Context) {
	var req approveReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	cmd := application.ApproveReturnCommand{
		ReturnID:         c.Param("id"),
		ReviewerID:       req.ReviewerID,
		PaymentMethod:    req.PaymentMethod,
		PaymentReference: req.PaymentReference,
	}
	if req.ApprovedAmount != "" {
		amount, err := decimal.NewFromString(req.ApprovedAmount)
		if err != nil {
			response.ErrorWithStatus(c, http.StatusBadRequest, "invalid approved_amount", "")
			return
		}
		cmd.ApprovedAmount = &amount
	}

	result, err := h.app.ApproveReturnRequest(c.Request.Context(), cmd)
	if err != nil {
		h.fail(c, "return approval failed", err)
		return
	}
	response.Success(c, result)
}

// RejectReturn 审批拒绝回款申请
func (h *InvestmentHandler) RejectReturn(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	result, err := h.app.RejectReturnRequest(c.Request.Context(), c.Param("id"), req.ReviewerID, req.Reason)
	if err != nil {
		h.fail(c, "return rejection failed", err)
		return
	}
	response.Success(c, result)
}

// MarkReturnPaid 放款终态登记
func (h *InvestmentHandler) MarkReturnPaid(c *gin.Context) {
	result, err := h.app.MarkReturnPaid(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "mark paid failed", err)
		return
	}
	response.Success(c, result)
}

type topupRequest struct {
	SubscriptionID string `json:"subscription_id" binding:"required"`
	Amount         string `json:"amount" binding:"required"`
	CreatedBy      string `json:"created_by"`
}

// Topup 券商余额充值
func (h *InvestmentHandler) Topup(c *gin.Context) {
	var req topupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid amount", "")
		return
	}

	txn, err := h.app.Topup(c.Request.Context(), application.TopupCommand{
		SubscriptionID: req.SubscriptionID,
		Amount:         amount,
		CreatedBy:      req.CreatedBy,
	})
	if err != nil {
		h.fail(c, "topup failed", err)
		return
	}
	response.Success(c, txn)
}

type transferRequest struct {
	SourceSubscriptionID string `json:"source_subscription_id" binding:"required"`
	DestSubscriptionID   string `json:"dest_subscription_id" binding:"required"`
	Amount               string `json:"amount" binding:"required"`
	CreatedBy            string `json:"created_by"`
}

// Transfer 余额划转
func (h *InvestmentHandler) Transfer(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid amount", "")
		return
	}

	txn, err := h.app.Transfer(c.Request.Context(), application.TransferCommand{
		SourceSubscriptionID: req.SourceSubscriptionID,
		DestSubscriptionID:   req.DestSubscriptionID,
		Amount:               amount,
		CreatedBy:            req.CreatedBy,
	})
	if err != nil {
		h.fail(c, "transfer failed", err)
		return
	}
	response.Success(c, txn)
}

// GetSummary 查询客户投资汇总
func (h *InvestmentHandler) GetSummary(c *gin.Context) {
	summary, err := h.app.GetSummary(c.Request.Context(), c.Param("customer_id"))
	if err != nil {
		h.fail(c, "summary lookup failed", err)
		return
	}
	response.Success(c, summary)
}

// ListRequests 查询客户全部投资申请
func (h *InvestmentHandler) ListRequests(c *gin.Context) {
	reqs, err := h.app.ListRequests(c.Request.Context(), c.Param("customer_id"))
	if err != nil {
		h.fail(c, "request list failed", err)
		return
	}
	response.Success(c, reqs)
}

// ListTransactions 查询客户全部资金流水
func (h *InvestmentHandler) ListTransactions(c *gin.Context) {
	txns, err := h.app.ListTransactions(c.Request.Context(), c.Param("customer_id"))
	if err != nil {
		h.fail(c, "transaction list failed", err)
		return
	}
	response.Success(c, txns)
}

// ListPositions 查询客户全部持仓
func (h *InvestmentHandler) ListPositions(c *gin.Context) {
	positions, err := h.app.ListPositions(c.Request.Context(), c.Param("customer_id"))
	if err != nil {
		h.fail(c, "position list failed", err)
		return
	}
	response.Success(c, positions)
}

// ListReturns 查询客户全部回款申请
func (h *InvestmentHandler) ListReturns(c *gin.Context) {
	reqs, err := h.app.ListReturnRequests(c.Request.Context(), c.Param("customer_id"))
	if err != nil {
		h.fail(c, "return list failed", err)
		return
	}
	response.Success(c, reqs)
}

// fail 按错误类型映射 HTTP 状态码
func (h *InvestmentHandler) fail(c *gin.Context, msg string, err error) {
	logger.Error(c.Request.Context(), msg, "error", err)

	switch {
	case errors.Is(err, domain.ErrNotFound) || errors.Is(err, membershipdomain.ErrNotFound):
		response.ErrorWithStatus(c, http.StatusNotFound, err.Error(), "")
	case errors.Is(err, domain.ErrNoTierForAmount) ||
		errors.Is(err, domain.ErrNoActiveService) ||
		errors.Is(err, domain.ErrInvalidServiceTarget):
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
	case errors.Is(err, domain.ErrInsufficientPrincipal) ||
		errors.Is(err, membershipdomain.ErrInsufficientBalance):
		response.ErrorWithStatus(c, http.StatusUnprocessableEntity, err.Error(), "")
	case errors.Is(err, domain.ErrRequestClosed):
		response.ErrorWithStatus(c, http.StatusConflict, err.Error(), "")
	default:
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
	}
}
