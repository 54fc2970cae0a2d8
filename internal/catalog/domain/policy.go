// Package domain 服务准入目录领域层
// 1) 定义服务类型与准入策略（所需审核等级、字段、文件、付费与审批要求）
// 2) 定义定价套餐
// 3) 实现纯内存的策略查表，未配置的服务类型一律硬失败
package domain

import (
	"encoding/json"
	"errors"

	"github.com/shopspring/decimal"
	kycdomain "github.com/wyfcoding/wealthservice/internal/kyc/domain"
	"gorm.io/gorm"
)

// ServiceType 服务类型
type ServiceType string

const (
	ServiceMembership    ServiceType = "MEMBERSHIP"              // 会员订阅
	ServiceStockPicks    ServiceType = "STOCK_PICKS"             // 荐股服务
	ServiceIntlBrokerage ServiceType = "INTERNATIONAL_BROKERAGE" // 跨境券商
	ServiceGuaranteed    ServiceType = "GUARANTEED_RETURNS"      // 保本理财
)

var (
	// ErrUnsupportedService 服务类型未在目录中配置，属于致命配置错误，永不兜底
	ErrUnsupportedService = errors.New("unsupported service type")
	// ErrPackageNotFound 定价套餐不存在或未启用
	ErrPackageNotFound = errors.New("pricing package not found")
)

// ServicePolicy 服务准入策略，持久化于 service_requirements 表
// 字段与文件清单以 JSON 文本存储
type ServicePolicy struct {
	gorm.Model
	ServiceType ServiceType `gorm:"column:service_type;type:varchar(40);uniqueIndex;not null"`
	// 所需审核等级，空串表示无需身份审核
	RequiredLevel string `gorm:"column:required_level;type:varchar(20)"`
	// 所需提交字段，JSON 数组
	RequiredFieldsJSON string `gorm:"column:required_fields;type:varchar(512)"`
	// 所需文件类型，JSON 数组
	RequiredDocsJSON      string `gorm:"column:required_docs;type:varchar(512)"`
	RequiresPayment       bool   `gorm:"column:requires_payment;not null;default:false"`
	RequiresAdminApproval bool   `gorm:"column:requires_admin_approval;not null;default:false"`
	SubscriptionBased     bool   `gorm:"column:subscription_based;not null;default:false"`
	AutoApprove           bool   `gorm:"column:auto_approve;not null;default:false"`
}

// TableName 表名
func (ServicePolicy) TableName() string { return "service_requirements" }

// NeedsVerification 是否需要身份审核
func (p *ServicePolicy) NeedsVerification() bool {
	return p.RequiredLevel != ""
}

// Level 所需审核等级；NeedsVerification 为 false 时无意义
func (p *ServicePolicy) Level() kycdomain.Level {
	return kycdomain.Level(p.RequiredLevel)
}

// RequiredFields 解析所需字段清单
func (p *ServicePolicy) RequiredFields() []string {
	if p.RequiredFieldsJSON == "" {
		return nil
	}
	var fields []string
	if err := json.Unmarshal([]byte(p.RequiredFieldsJSON), &fields); err != nil {
		return nil
	}
	return fields
}

// RequiredDocs 解析所需文件类型清单
func (p *ServicePolicy) RequiredDocs() []kycdomain.DocumentType {
	if p.RequiredDocsJSON == "" {
		return nil
	}
	var docs []kycdomain.DocumentType
	if err := json.Unmarshal([]byte(p.RequiredDocsJSON), &docs); err != nil {
		return nil
	}
	return docs
}

// PricingPackage 定价套餐，持久化于 pricing_packages 表
type PricingPackage struct {
	gorm.Model
	PackageID      string          `gorm:"column:package_id;type:varchar(32);uniqueIndex;not null"`
	ServiceType    ServiceType     `gorm:"column:service_type;type:varchar(40);index;not null"`
	Name           string          `gorm:"column:name;type:varchar(100);not null"`
	DurationMonths int             `gorm:"column:duration_months;not null"`
	Fee            decimal.Decimal `gorm:"column:fee;type:decimal(32,18);not null"`
	Currency       string          `gorm:"column:currency;type:varchar(10);not null;default:'USD'"`
	Active         bool            `gorm:"column:active;not null;default:true"`
	SortOrder      int             `gorm:"column:sort_order;not null;default:0"`
}

// TableName 表名
func (PricingPackage) TableName() string { return "pricing_packages" }

// Catalog 纯内存策略查表，从持久化行构建，查找无副作用
type Catalog struct {
	policies map[ServiceType]*ServicePolicy
}

// NewCatalog 由策略行构建查表
func NewCatalog(policies []*ServicePolicy) *Catalog {
	m := make(map[ServiceType]*ServicePolicy, len(policies))
	for _, p := range policies {
		m[p.ServiceType] = p
	}
	return &Catalog{policies: m}
}

// Resolve 查找服务准入策略；未配置即 ErrUnsupportedService
func (c *Catalog) Resolve(serviceType ServiceType) (*ServicePolicy, error) {
	policy, ok := c.policies[serviceType]
	if !ok {
		return nil, ErrUnsupportedService
	}
	return policy, nil
}

// DefaultFee 在套餐清单中查找 (服务类型, 时长) 的目录价
// 套餐须已按 sort_order 升序排列；找不到返回 ErrPackageNotFound。
func DefaultFee(packages []*PricingPackage, serviceType ServiceType, months int) (decimal.Decimal, error) {
	for _, pkg := range packages {
		if pkg.Active && pkg.ServiceType == serviceType && pkg.DurationMonths == months {
			return pkg.Fee, nil
		}
	}
	return decimal.Zero, ErrPackageNotFound
}
