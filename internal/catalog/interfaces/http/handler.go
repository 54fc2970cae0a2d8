// Package http 服务目录 HTTP 接口层
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/pkg/response"
	"github.com/wyfcoding/wealthservice/internal/catalog/application"
	"github.com/wyfcoding/wealthservice/internal/catalog/domain"
	"github.com/wyfcoding/wealthservice/pkg/logger"
)

// CatalogHandler 服务目录 HTTP 处理器
type CatalogHandler struct {
	app *application.Service
}

// NewCatalogHandler 创建 HTTP 处理器实例
func NewCatalogHandler(app *application.Service) *CatalogHandler {
	return &CatalogHandler{app: app}
}

// RegisterRoutes 注册路由
func (h *CatalogHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1/catalog")
	{
		api.GET("/packages", h.ListPackages)
		api.GET("/packages/:id", h.GetPackage)
		api.GET("/policies/:service_type", h.GetPolicy)
	}
}

// ListPackages 查询在售定价套餐
func (h *CatalogHandler) ListPackages(c *gin.Context) {
	packages, err := h.app.ListPackages(c.Request.Context())
	if err != nil {
		h.fail(c, "package list failed", err)
		return
	}
	response.Success(c, packages)
}

// GetPackage 查询单个定价套餐
func (h *CatalogHandler) GetPackage(c *gin.Context) {
	pkg, err := h.app.GetPackage(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "package lookup failed", err)
		return
	}
	response.Success(c, pkg)
}

// GetPolicy 查询服务准入策略
func (h *CatalogHandler) GetPolicy(c *gin.Context) {
	policy, err := h.app.Resolve(c.Request.Context(), domain.ServiceType(c.Param("service_type")))
	if err != nil {
		h.fail(c, "policy lookup failed", err)
		return
	}
	response.Success(c, policy)
}

// fail 按错误类型映射 HTTP 状态码
func (h *CatalogHandler) fail(c *gin.Context, msg string, err error) {
	logger.Error(c.Request.Context(), msg, "error", err)

	switch {
	case errors.Is(err, domain.ErrPackageNotFound):
		response.ErrorWithStatus(c, http.StatusNotFound, err.Error(), "")
	case errors.Is(err, domain.ErrUnsupportedService):
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
	default:
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
	}
}
