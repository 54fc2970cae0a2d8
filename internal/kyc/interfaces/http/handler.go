// Package http 身份核验 HTTP 接口层
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/pkg/response"
	"github.com/wyfcoding/wealthservice/internal/kyc/application"
	"github.com/wyfcoding/wealthservice/internal/kyc/domain"
	"github.com/wyfcoding/wealthservice/pkg/logger"
)

// KYCHandler 身份核验 HTTP 处理器
// 核验记录的创建走服务申请流程，这里只暴露审核与查询。
type KYCHandler struct {
	app *application.Service
}

// NewKYCHandler 创建 HTTP 处理器实例
func NewKYCHandler(app *application.Service) *KYCHandler {
	return &KYCHandler{app: app}
}

// RegisterRoutes 注册路由
func (h *KYCHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1/kyc")
	{
		api.POST("/verifications/:id/approve", h.Approve)
		api.POST("/verifications/:id/reject", h.Reject)
		api.GET("/customers/:customer_id/verifications", h.ListVerifications)
		api.GET("/customers/:customer_id/documents", h.ListDocuments)
	}
}

type reviewRequest struct {
	ReviewerID string `json:"reviewer_id" binding:"required"`
	Reason     string `json:"reason"`
}

// Approve 审核通过核验记录
func (h *KYCHandler) Approve(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	record, err := h.app.Approve(c.Request.Context(), c.Param("id"), req.ReviewerID)
	if err != nil {
		h.fail(c, "verification approval failed", err)
		return
	}
	response.Success(c, record)
}

// Reject 审核拒绝核验记录
func (h *KYCHandler) Reject(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	record, err := h.app.Reject(c.Request.Context(), c.Param("id"), req.ReviewerID, req.Reason)
	if err != nil {
		h.fail(c, "verification rejection failed", err)
		return
	}
	response.Success(c, record)
}

// ListVerifications 查询客户全部核验记录
func (h *KYCHandler) ListVerifications(c *gin.Context) {
	records, err := h.app.ListByCustomer(c.Request.Context(), c.Param("customer_id"))
	if err != nil {
		h.fail(c, "verification list failed", err)
		return
	}
	response.Success(c, records)
}

// ListDocuments 查询客户全部证件材料
func (h *KYCHandler) ListDocuments(c *gin.Context) {
	docs, err := h.app.ListDocuments(c.Request.Context(), c.Param("customer_id"))
	if err != nil {
		h.fail(c, "document list failed", err)
		return
	}
	response.Success(c, docs)
}

// fail 按错误类型映射 HTTP 状态码
func (h *KYCHandler) fail(c *gin.Context, msg string, err error) {
	logger.Error(c.Request.Context(), msg, "error", err)

	switch {
	case errors.Is(err, domain.ErrRecordNotFound):
		response.ErrorWithStatus(c, http.StatusNotFound, err.Error(), "")
	case errors.Is(err, domain.ErrReviewClosed):
		response.ErrorWithStatus(c, http.StatusConflict, err.Error(), "")
	default:
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
	}
}
