package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func approvedRecord(id string, level Level, createdAt time.Time) *VerificationRecord {
	r := NewVerificationRecord(id, "cust-1", level, Profile{FullName: "Test User"}, true)
	r.CreatedAt = createdAt
	return r
}

func TestBestQualifying(t *testing.T) {
	now := time.Now()

	t.Run("picks most recent record meeting required level", func(t *testing.T) {
		records := []*VerificationRecord{
			approvedRecord("KYC-3", LevelBasic, now),
			approvedRecord("KYC-2", LevelAdvanced, now.Add(-time.Hour)),
			approvedRecord("KYC-1", LevelBrokerage, now.Add(-2*time.Hour)),
		}

		best := BestQualifying(records, LevelAdvanced)
		require.NotNil(t, best)
		assert.Equal(t, "KYC-2", best.RecordID)
	})

	t.Run("higher level qualifies for lower requirement", func(t *testing.T) {
		records := []*VerificationRecord{
			approvedRecord("KYC-1", LevelBrokerage, now),
		}

		best := BestQualifying(records, LevelBasic)
		require.NotNil(t, best)
		assert.Equal(t, "KYC-1", best.RecordID)
	})

	t.Run("falls back to most recent approved of any level", func(t *testing.T) {
		records := []*VerificationRecord{
			approvedRecord("KYC-2", LevelBasic, now),
			approvedRecord("KYC-1", LevelAdvanced, now.Add(-time.Hour)),
		}

		best := BestQualifying(records, LevelBrokerage)
		require.NotNil(t, best)
		assert.Equal(t, "KYC-2", best.RecordID)
	})

	t.Run("nil when no approved records exist", func(t *testing.T) {
		assert.Nil(t, BestQualifying(nil, LevelBasic))
	})
}

func TestLevelAtLeast(t *testing.T) {
	assert.True(t, LevelBrokerage.AtLeast(LevelBasic))
	assert.True(t, LevelAdvanced.AtLeast(LevelAdvanced))
	assert.False(t, LevelBasic.AtLeast(LevelAdvanced))
}

func TestVerificationRecordTransitions(t *testing.T) {
	t.Run("approve pending record", func(t *testing.T) {
		r := NewVerificationRecord("KYC-1", "cust-1", LevelBasic, Profile{}, false)
		require.Equal(t, StatusPending, r.Status)

		err := r.Approve("admin-1")
		require.NoError(t, err)
		assert.Equal(t, StatusApproved, r.Status)
		assert.Equal(t, "admin-1", r.ReviewerID)
		assert.NotNil(t, r.ReviewedAt)
	})

	t.Run("reject pending record is terminal", func(t *testing.T) {
		r := NewVerificationRecord("KYC-1", "cust-1", LevelBasic, Profile{}, false)

		err := r.Reject("admin-1", "document illegible")
		require.NoError(t, err)
		assert.Equal(t, StatusRejected, r.Status)
		assert.Equal(t, "document illegible", r.RejectReason)

		assert.ErrorIs(t, r.Approve("admin-2"), ErrReviewClosed)
	})

	t.Run("approval is one way", func(t *testing.T) {
		r := NewVerificationRecord("KYC-1", "cust-1", LevelBasic, Profile{}, true)
		assert.Equal(t, StatusApproved, r.Status)

		assert.ErrorIs(t, r.Approve("admin-1"), ErrReviewClosed)
		assert.ErrorIs(t, r.Reject("admin-1", "late"), ErrReviewClosed)
	})

	t.Run("clone creates fresh pending record", func(t *testing.T) {
		source := NewVerificationRecord("KYC-1", "cust-1", LevelBrokerage, Profile{FullName: "Test User", IDNumber: "A123"}, true)

		clone := CloneForReview("KYC-2", source, LevelAdvanced)
		assert.Equal(t, StatusPending, clone.Status)
		assert.Equal(t, LevelAdvanced, clone.Level)
		assert.Equal(t, "Test User", clone.FullName)
		assert.Equal(t, "A123", clone.IDNumber)
		// 蓝本保持不变
		assert.Equal(t, StatusApproved, source.Status)
	})
}

func TestFilterByTypes(t *testing.T) {
	docs := []*Document{
		NewDocument("DOC-1", "cust-1", "KYC-1", DocIDFront, "s3://a", "c1"),
		NewDocument("DOC-2", "cust-1", "KYC-1", DocSelfie, "s3://b", "c2"),
		NewDocument("DOC-3", "cust-1", "KYC-1", DocBankStatement, "s3://c", "c3"),
	}

	filtered := FilterByTypes(docs, []DocumentType{DocIDFront, DocBankStatement})
	require.Len(t, filtered, 2)
	assert.Equal(t, DocIDFront, filtered[0].Type)
	assert.Equal(t, DocBankStatement, filtered[1].Type)

	assert.Nil(t, FilterByTypes(docs, nil))
}
