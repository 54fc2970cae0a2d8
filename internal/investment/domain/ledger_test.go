package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReducePrincipalMonotonic(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	position := NewFundPosition("TXN-1", "CUST-1", "SUB-G1", "INV-1", dec("75000"), dec("0.19"), 12, "USD", start)

	require.True(t, position.IsPosition())
	assert.True(t, position.PrincipalRemaining.Equal(position.PrincipalOriginal))

	require.NoError(t, position.ReducePrincipal(dec("30000")))
	assert.True(t, position.PrincipalRemaining.Equal(dec("45000")))
	assert.False(t, position.Closed())

	// 超额扣减失败且不作变更
	err := position.ReducePrincipal(dec("45000.01"))
	assert.ErrorIs(t, err, ErrInsufficientPrincipal)
	assert.True(t, position.PrincipalRemaining.Equal(dec("45000")))

	require.NoError(t, position.ReducePrincipal(dec("45000")))
	assert.True(t, position.Closed())
}

func TestReturnRequestLifecycle(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	ret := &ReturnRequest{ReturnID: "RET-1", Status: ReturnPending, RequestedAmount: dec("100")}

	// pending 不可直接放款
	assert.ErrorIs(t, ret.MarkPaid(now), ErrRequestClosed)

	require.NoError(t, ret.Approve("ADMIN-1", dec("90"), "BANK_TRANSFER", "WIRE-1"))
	assert.Equal(t, ReturnApproved, ret.Status)
	assert.True(t, ret.ApprovedAmount.Equal(dec("90")))

	// 终态不可再审批
	assert.ErrorIs(t, ret.Approve("ADMIN-2", dec("90"), "", ""), ErrRequestClosed)
	assert.ErrorIs(t, ret.Reject("ADMIN-2", "late"), ErrRequestClosed)

	require.NoError(t, ret.MarkPaid(now))
	assert.Equal(t, ReturnPaid, ret.Status)
	assert.ErrorIs(t, ret.MarkPaid(now), ErrRequestClosed)
}
