// Package http 服务订阅 HTTP 接口层
package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pkg/response"
	catalogdomain "github.com/wyfcoding/wealthservice/internal/catalog/domain"
	kycapp "github.com/wyfcoding/wealthservice/internal/kyc/application"
	kycdomain "github.com/wyfcoding/wealthservice/internal/kyc/domain"
	"github.com/wyfcoding/wealthservice/internal/membership/application"
	"github.com/wyfcoding/wealthservice/internal/membership/domain"
	"github.com/wyfcoding/wealthservice/pkg/logger"
)

// MembershipHandler 服务订阅 HTTP 处理器
type MembershipHandler struct {
	app *application.Service
}

// NewMembershipHandler 创建 HTTP 处理器实例
func NewMembershipHandler(app *application.Service) *MembershipHandler {
	return &MembershipHandler{app: app}
}

// RegisterRoutes 注册路由
func (h *MembershipHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		api.POST("/services/apply", h.Apply)
		api.POST("/services/apply/slip", h.ApplyWithSlip)
		api.POST("/services/apply/gateway", h.ApplyWithGateway)
		api.POST("/services/:id/approve", h.ApproveService)
		api.POST("/services/:id/reject", h.RejectService)
		api.GET("/services/:id", h.GetSubscription)
		api.GET("/customers/:customer_id/subscriptions", h.ListSubscriptions)
		api.GET("/customers/:customer_id/payments", h.ListPayments)
		api.POST("/payments/:id/slip", h.SubmitSlip)
		api.POST("/payments/:id/approve", h.ApprovePayment)
		api.POST("/payments/:id/reject", h.RejectPayment)
		api.POST("/payments/:id/confirm", h.ConfirmGateway)
		api.POST("/renewals", h.Renew)
		api.POST("/renewals/slip", h.RenewWithSlip)
		api.POST("/renewals/:id/approve", h.ApproveRenewal)
		api.POST("/subscriptions/expiry-sweep", h.ExpirySweep)
	}
}

type profileRequest struct {
	FullName          string `json:"full_name"`
	IDNumber          string `json:"id_number"`
	DateOfBirth       string `json:"date_of_birth"`
	Nationality       string `json:"nationality"`
	Occupation        string `json:"occupation"`
	AnnualIncome      string `json:"annual_income"`
	SourceOfFunds     string `json:"source_of_funds"`
	TradingExperience string `json:"trading_experience"`
}

type documentRequest struct {
	Type       string `json:"type" binding:"required"`
	StorageRef string `json:"storage_ref" binding:"required"`
	Checksum   string `json:"checksum"`
}

type addressRequest struct {
	Line1      string `json:"line1" binding:"required"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type applyRequest struct {
	CustomerID     string            `json:"customer_id" binding:"required"`
	ServiceType    string            `json:"service_type" binding:"required"`
	KYC            *profileRequest   `json:"kyc"`
	Documents      []documentRequest `json:"documents"`
	Address        *addressRequest   `json:"address"`
	DurationMonths int               `json:"duration_months"`
	Fee            string            `json:"fee"`
	Currency       string            `json:"currency"`
	PackageID      string            `json:"package_id"`
}

// Apply 申请服务
func (h *MembershipHandler) Apply(c *gin.Context) {
	var req applyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	cmd := application.ApplyCommand{
		CustomerID:     req.CustomerID,
		ServiceType:    catalogdomain.ServiceType(req.ServiceType),
		DurationMonths: req.DurationMonths,
		Currency:       req.Currency,
		PackageID:      req.PackageID,
	}
	if req.KYC != nil {
		profile, err := toProfile(req.KYC)
		if err != nil {
			response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
			return
		}
		cmd.KYC = profile
	}
	if req.Fee != "" {
		fee, err := decimal.NewFromString(req.Fee)
		if err != nil {
			response.ErrorWithStatus(c, http.StatusBadRequest, "invalid fee", "")
			return
		}
		cmd.Fee = &fee
	}
	cmd.Documents = toDocuments(req.Documents)
	cmd.Address = toAddress(req.Address)

	result, err := h.app.Apply(c.Request.Context(), cmd)
	if err != nil {
		h.fail(c, "service application failed", err)
		return
	}
	response.Success(c, result)
}

type slipApplyRequest struct {
	CustomerID string          `json:"customer_id" binding:"required"`
	PackageID  string          `json:"package_id" binding:"required"`
	Amount     string          `json:"amount" binding:"required"`
	Reference  string          `json:"reference" binding:"required"`
	Filename   string          `json:"filename"`
	Address    *addressRequest `json:"address"`
}

// ApplyWithSlip 携带支付凭证申请订阅服务
func (h *MembershipHandler) ApplyWithSlip(c *gin.Context) {
	var req slipApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid amount", "")
		return
	}

	result, err := h.app.ApplyWithPaymentSlip(c.Request.Context(), application.SlipApplyCommand{
		CustomerID: req.CustomerID,
		PackageID:  req.PackageID,
		Slip: application.PaymentSlip{
			Amount:    amount,
			Reference: req.Reference,
			Filename:  req.Filename,
		},
		Address: toAddress(req.Address),
	})
	if err != nil {
		h.fail(c, "slip application failed", err)
		return
	}
	response.Success(c, result)
}

type gatewayApplyRequest struct {
	CustomerID string          `json:"customer_id" binding:"required"`
	PackageID  string          `json:"package_id" binding:"required"`
	ReturnURL  string          `json:"return_url"`
	CancelURL  string          `json:"cancel_url"`
	Address    *addressRequest `json:"address"`
}

// ApplyWithGateway 网关支付申请订阅服务
func (h *MembershipHandler) ApplyWithGateway(c *gin.Context) {
	var req gatewayApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	result, err := h.app.ApplyWithGateway(c.Request.Context(), application.GatewayApplyCommand{
		CustomerID: req.CustomerID,
		PackageID:  req.PackageID,
		ReturnURL:  req.ReturnURL,
		CancelURL:  req.CancelURL,
		Address:    toAddress(req.Address),
	})
	if err != nil {
		h.fail(c, "gateway application failed", err)
		return
	}
	response.Success(c, result)
}

type reviewRequest struct {
	ReviewerID string `json:"reviewer_id" binding:"required"`
	Reason     string `json:"reason"`
	Notes      string `json:"notes"`
}

// ApproveService 审批通过服务申请
func (h *MembershipHandler) ApproveService(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	result, err := h.app.ApproveService(c.Request.Context(), c.Param("id"), req.ReviewerID)
	if err != nil {
		h.fail(c, "service approval failed", err)
		return
	}
	response.Success(c, result)
}

// RejectService 审批拒绝服务申请
func (h *MembershipHandler) RejectService(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	sub, err := h.app.RejectService(c.Request.Context(), c.Param("id"), req.ReviewerID, req.Reason)
	if err != nil {
		h.fail(c, "service rejection failed", err)
		return
	}
	response.Success(c, sub)
}

// GetSubscription 查询订阅
func (h *MembershipHandler) GetSubscription(c *gin.Context) {
	sub, err := h.app.GetSubscription(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "subscription lookup failed", err)
		return
	}
	response.Success(c, sub)
}

// ListSubscriptions 查询客户全部订阅
func (h *MembershipHandler) ListSubscriptions(c *gin.Context) {
	subs, err := h.app.ListSubscriptions(c.Request.Context(), c.Param("customer_id"))
	if err != nil {
		h.fail(c, "subscription list failed", err)
		return
	}
	response.Success(c, subs)
}

// ListPayments 查询客户全部支付记录
func (h *MembershipHandler) ListPayments(c *gin.Context) {
	payments, err := h.app.ListPayments(c.Request.Context(), c.Param("customer_id"))
	if err != nil {
		h.fail(c, "payment list failed", err)
		return
	}
	response.Success(c, payments)
}

type slipSubmitRequest struct {
	Reference string `json:"reference" binding:"required"`
	Filename  string `json:"filename"`
}

// SubmitSlip 补交支付凭证
func (h *MembershipHandler) SubmitSlip(c *gin.Context) {
	var req slipSubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	payment, err := h.app.SubmitPaymentSlip(c.Request.Context(), c.Param("id"), req.Reference, req.Filename)
	if err != nil {
		h.fail(c, "slip submission failed", err)
		return
	}
	response.Success(c, payment)
}

type paymentReviewRequest struct {
	AdminID string `json:"admin_id" binding:"required"`
	Notes   string `json:"notes"`
	Reason  string `json:"reason"`
}

// ApprovePayment 审批通过支付
func (h *MembershipHandler) ApprovePayment(c *gin.Context) {
	var req paymentReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	payment, err := h.app.ApprovePayment(c.Request.Context(), c.Param("id"), req.AdminID, req.Notes)
	if err != nil {
		h.fail(c, "payment approval failed", err)
		return
	}
	response.Success(c, payment)
}

// RejectPayment 审批拒绝支付
func (h *MembershipHandler) RejectPayment(c *gin.Context) {
	var req paymentReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	payment, err := h.app.RejectPayment(c.Request.Context(), c.Param("id"), req.AdminID, req.Reason)
	if err != nil {
		h.fail(c, "payment rejection failed", err)
		return
	}
	response.Success(c, payment)
}

// ConfirmGateway 回查网关支付结果
func (h *MembershipHandler) ConfirmGateway(c *gin.Context) {
	payment, err := h.app.ConfirmGatewayPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "gateway confirmation failed", err)
		return
	}
	response.Success(c, payment)
}

type renewRequest struct {
	CustomerID string `json:"customer_id" binding:"required"`
	PackageID  string `json:"package_id" binding:"required"`
	ReturnURL  string `json:"return_url"`
	CancelURL  string `json:"cancel_url"`
	Amount     string `json:"amount"`
	Reference  string `json:"reference"`
	Filename   string `json:"filename"`
}

// Renew 网关支付续期
func (h *MembershipHandler) Renew(c *gin.Context) {
	var req renewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	result, err := h.app.Renew(c.Request.Context(), application.RenewCommand{
		CustomerID: req.CustomerID,
		PackageID:  req.PackageID,
		ReturnURL:  req.ReturnURL,
		CancelURL:  req.CancelURL,
	})
	if err != nil {
		h.fail(c, "renewal failed", err)
		return
	}
	response.Success(c, result)
}

// RenewWithSlip 凭证续期
func (h *MembershipHandler) RenewWithSlip(c *gin.Context) {
	var req renewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid amount", "")
		return
	}

	result, err := h.app.RenewWithSlip(c.Request.Context(), application.RenewCommand{
		CustomerID: req.CustomerID,
		PackageID:  req.PackageID,
	}, application.PaymentSlip{
		Amount:    amount,
		Reference: req.Reference,
		Filename:  req.Filename,
	})
	if err != nil {
		h.fail(c, "renewal with slip failed", err)
		return
	}
	response.Success(c, result)
}

// ApproveRenewal 审批通过续期
func (h *MembershipHandler) ApproveRenewal(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	result, err := h.app.ApproveRenewal(c.Request.Context(), c.Param("id"), req.ReviewerID)
	if err != nil {
		h.fail(c, "renewal approval failed", err)
		return
	}
	response.Success(c, result)
}

// ExpirySweep 到期清理，由外部调度器触发
func (h *MembershipHandler) ExpirySweep(c *gin.Context) {
	result, err := h.app.ExpirySweep(c.Request.Context(), time.Now())
	if err != nil {
		h.fail(c, "expiry sweep failed", err)
		return
	}
	response.Success(c, result)
}

// fail 按错误类型映射 HTTP 状态码
func (h *MembershipHandler) fail(c *gin.Context, msg string, err error) {
	logger.Error(c.Request.Context(), msg, "error", err)

	switch {
	case errors.Is(err, domain.ErrNotFound) || errors.Is(err, kycdomain.ErrRecordNotFound) ||
		errors.Is(err, catalogdomain.ErrPackageNotFound):
		response.ErrorWithStatus(c, http.StatusNotFound, err.Error(), "")
	case errors.Is(err, catalogdomain.ErrUnsupportedService) ||
		errors.Is(err, domain.ErrAmountMismatch) ||
		errors.Is(err, domain.ErrMissingKYC):
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
	case errors.Is(err, domain.ErrPaymentIncomplete) ||
		errors.Is(err, domain.ErrNoPendingReview) ||
		errors.Is(err, domain.ErrNothingToRenew) ||
		errors.Is(err, domain.ErrPaymentClosed) ||
		errors.Is(err, kycdomain.ErrReviewClosed):
		response.ErrorWithStatus(c, http.StatusConflict, err.Error(), "")
	default:
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
	}
}

func toProfile(req *profileRequest) (*kycdomain.Profile, error) {
	income := decimal.Zero
	if req.AnnualIncome != "" {
		parsed, err := decimal.NewFromString(req.AnnualIncome)
		if err != nil {
			return nil, errors.New("invalid annual_income")
		}
		income = parsed
	}
	return &kycdomain.Profile{
		FullName:          req.FullName,
		IDNumber:          req.IDNumber,
		DateOfBirth:       req.DateOfBirth,
		Nationality:       req.Nationality,
		Occupation:        req.Occupation,
		AnnualIncome:      income,
		SourceOfFunds:     req.SourceOfFunds,
		TradingExperience: req.TradingExperience,
	}, nil
}

func toDocuments(reqs []documentRequest) []kycapp.AttachmentInput {
	if len(reqs) == 0 {
		return nil
	}
	docs := make([]kycapp.AttachmentInput, 0, len(reqs))
	for _, d := range reqs {
		docs = append(docs, kycapp.AttachmentInput{
			Type:       kycdomain.DocumentType(d.Type),
			StorageRef: d.StorageRef,
			Checksum:   d.Checksum,
		})
	}
	return docs
}

func toAddress(req *addressRequest) *application.AddressInput {
	if req == nil {
		return nil
	}
	return &application.AddressInput{
		Line1:      req.Line1,
		Line2:      req.Line2,
		City:       req.City,
		State:      req.State,
		PostalCode: req.PostalCode,
		Country:    req.Country,
	}
}
