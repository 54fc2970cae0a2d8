package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	kycdomain "github.com/wyfcoding/wealthservice/internal/kyc/domain"
)

func TestCatalogResolve(t *testing.T) {
	catalog := NewCatalog([]*ServicePolicy{
		{ServiceType: ServiceMembership, RequiresPayment: true, SubscriptionBased: true},
		{ServiceType: ServiceStockPicks, RequiredLevel: "ADVANCED"},
	})

	t.Run("已配置的服务返回策略", func(t *testing.T) {
		policy, err := catalog.Resolve(ServiceStockPicks)
		require.NoError(t, err)
		assert.Equal(t, ServiceStockPicks, policy.ServiceType)
		assert.True(t, policy.NeedsVerification())
		assert.Equal(t, kycdomain.LevelAdvanced, policy.Level())
	})

	t.Run("未配置的服务硬失败", func(t *testing.T) {
		_, err := catalog.Resolve(ServiceGuaranteed)
		assert.ErrorIs(t, err, ErrUnsupportedService)
	})

	t.Run("无等级要求即无需审核", func(t *testing.T) {
		policy, err := catalog.Resolve(ServiceMembership)
		require.NoError(t, err)
		assert.False(t, policy.NeedsVerification())
	})
}

func TestServicePolicyRequirementLists(t *testing.T) {
	policy := &ServicePolicy{
		RequiredFieldsJSON: `["full_name","id_number"]`,
		RequiredDocsJSON:   `["ID_FRONT","ID_BACK"]`,
	}
	assert.Equal(t, []string{"full_name", "id_number"}, policy.RequiredFields())
	assert.Equal(t, []kycdomain.DocumentType{kycdomain.DocIDFront, kycdomain.DocIDBack}, policy.RequiredDocs())

	empty := &ServicePolicy{}
	assert.Nil(t, empty.RequiredFields())
	assert.Nil(t, empty.RequiredDocs())
}

func TestDefaultFee(t *testing.T) {
	packages := []*PricingPackage{
		{PackageID: "PKG-MEM-1M", ServiceType: ServiceMembership, DurationMonths: 1, Fee: decimal.RequireFromString("99.99"), Active: true},
		{PackageID: "PKG-MEM-6M", ServiceType: ServiceMembership, DurationMonths: 6, Fee: decimal.RequireFromString("549.99"), Active: true},
		{PackageID: "PKG-MEM-OLD", ServiceType: ServiceMembership, DurationMonths: 3, Fee: decimal.RequireFromString("249.99"), Active: false},
	}

	fee, err := DefaultFee(packages, ServiceMembership, 6)
	require.NoError(t, err)
	assert.True(t, fee.Equal(decimal.RequireFromString("549.99")))

	_, err = DefaultFee(packages, ServiceMembership, 3)
	assert.ErrorIs(t, err, ErrPackageNotFound, "停用套餐不参与定价")

	_, err = DefaultFee(packages, ServiceStockPicks, 1)
	assert.ErrorIs(t, err, ErrPackageNotFound)
}
