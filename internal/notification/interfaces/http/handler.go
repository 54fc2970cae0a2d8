// Package http 通知 HTTP 接口层
package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/pkg/response"
	"github.com/wyfcoding/wealthservice/internal/notification/application"
	"github.com/wyfcoding/wealthservice/internal/notification/domain"
	"github.com/wyfcoding/wealthservice/pkg/logger"
)

// NotificationHandler 通知 HTTP 处理器
type NotificationHandler struct {
	app *application.Service
}

// NewNotificationHandler 创建 HTTP 处理器实例
func NewNotificationHandler(app *application.Service) *NotificationHandler {
	return &NotificationHandler{app: app}
}

// RegisterRoutes 注册路由
func (h *NotificationHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1/notifications")
	{
		api.POST("", h.Send)
		api.GET("/customers/:customer_id", h.History)
	}
}

type sendRequest struct {
	CustomerID string `json:"customer_id" binding:"required"`
	Type       string `json:"type"`
	Target     string `json:"target"`
	Subject    string `json:"subject" binding:"required"`
	Content    string `json:"content" binding:"required"`
}

// Send 手工发送通知
func (h *NotificationHandler) Send(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	notification, err := h.app.Send(c.Request.Context(), application.SendCommand{
		CustomerID: req.CustomerID,
		Type:       domain.NotificationType(req.Type),
		Target:     req.Target,
		Subject:    req.Subject,
		Content:    req.Content,
	})
	if err != nil {
		logger.Error(c.Request.Context(), "notification send failed", "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}
	response.Success(c, notification)
}

// History 查询客户通知历史
func (h *NotificationHandler) History(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	notifications, total, err := h.app.History(c.Request.Context(), c.Param("customer_id"), limit, offset)
	if err != nil {
		logger.Error(c.Request.Context(), "notification history failed", "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}
	response.Success(c, gin.H{
		"total": total,
		"items": notifications,
	})
}
