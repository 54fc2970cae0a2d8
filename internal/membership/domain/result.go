package domain

import (
	kycdomain "github.com/wyfcoding/wealthservice/internal/kyc/domain"
)

// ApplicationStatus 申请结果标签
// already_active 是成功变体而非错误。
type ApplicationStatus string

const (
	StatusAlreadyActive        ApplicationStatus = "already_active"
	StatusActivated            ApplicationStatus = "activated"
	StatusPendingPayment       ApplicationStatus = "pending_payment"
	StatusPendingAdminApproval ApplicationStatus = "pending_admin_approval"
	StatusPendingReview        ApplicationStatus = "pending_review"
)

// ApplicationResult 申请/审批的标签联合结果
// 各分支填充的字段不同：支付分支带 Payment，审核分支带 Verification，
// 网关分支额外带 PaymentURL。
type ApplicationResult struct {
	Status       ApplicationStatus
	Subscription *ServiceSubscription
	Payment      *Payment
	Verification *kycdomain.VerificationRecord
	PaymentURL   string
}

// SweepResult 到期清理结果
type SweepResult struct {
	ExpiredCount    int
	SubscriptionIDs []string
}
