package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDedupKey_PrefersContentHash(t *testing.T) {
	hash := "infohash-abc"
	candidate := &ReleaseCandidate{GUID: "guid-1", ContentHash: &hash}
	assert.Equal(t, "infohash-abc", candidate.DedupKey())
}

func TestDedupKey_FallsBackToGUID(t *testing.T) {
	candidate := &ReleaseCandidate{GUID: "guid-1"}
	assert.Equal(t, "guid-1", candidate.DedupKey())

	empty := ""
	candidate.ContentHash = &empty
	assert.Equal(t, "guid-1", candidate.DedupKey(), "empty hash is treated as absent")
}

func TestReject_ClearsApprovedAndAccumulates(t *testing.T) {
	eval := &ReleaseEvaluation{GUID: "guid-1", Approved: true}

	eval.Reject(RejectionQualityNotAllowed, "not allowed")
	eval.Reject(RejectionSizeOutOfBounds, "too big")

	assert.False(t, eval.Approved)
	assert.Len(t, eval.Rejections, 2)
	assert.True(t, eval.HasRejection(RejectionQualityNotAllowed))
	assert.True(t, eval.HasRejection(RejectionSizeOutOfBounds))
	assert.False(t, eval.HasRejection(RejectionBlocklisted))
}

func TestCacheEntryExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	entry := &CacheEntry{ExpiresAt: now.Add(time.Hour)}

	assert.False(t, entry.Expired(now))
	assert.False(t, entry.Expired(now.Add(59*time.Minute)))
	// Expiry boundary is exclusive of liveness
	assert.True(t, entry.Expired(now.Add(time.Hour)))
	assert.True(t, entry.Expired(now.Add(2*time.Hour)))
}
