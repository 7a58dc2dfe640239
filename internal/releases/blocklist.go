package releases

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fixturefox/fixturefox/internal/models"
	"github.com/fixturefox/fixturefox/internal/repositories"
)

// Blocklist is the durable never-re-approve ledger. Entries are append-only;
// removal is an external operator action, never performed by the engine.
// A positive blocklist hit overrides any approved evaluation.
type Blocklist struct {
	repo   repositories.BlocklistRepository
	logger *logrus.Logger
}

// NewBlocklist creates a blocklist over the given repository
func NewBlocklist(repo repositories.BlocklistRepository, logger *logrus.Logger) *Blocklist {
	return &Blocklist{repo: repo, logger: logger}
}

// Add appends a rejection record. The key is the release's content hash
// when available, the guid otherwise.
func (b *Blocklist) Add(ctx context.Context, key string, sourceID int64, reason, message string) error {
	record := &models.RejectionRecord{
		Key:       key,
		SourceID:  sourceID,
		Reason:    reason,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
	if err := b.repo.Create(ctx, record); err != nil {
		return err
	}
	b.logger.WithFields(logrus.Fields{
		"key":       key,
		"source_id": sourceID,
		"reason":    reason,
	}).Info("Release blocklisted")
	return nil
}

// Contains reports whether the (key, source) pair has ever been blocked
func (b *Blocklist) Contains(ctx context.Context, key string, sourceID int64) (bool, error) {
	return b.repo.Contains(ctx, key, sourceID)
}

// ContainsCandidate checks a candidate by its preferred dedup key
func (b *Blocklist) ContainsCandidate(ctx context.Context, candidate *models.ReleaseCandidate) (bool, error) {
	return b.Contains(ctx, candidate.DedupKey(), candidate.SourceID)
}
