package imports

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fixturefox/fixturefox/internal/models"
	"github.com/fixturefox/fixturefox/internal/testutil"
)

func newTestPendingManager(repo *testutil.MockPendingImportRepository) *PendingManager {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewPendingManager(repo, logger)
}

func TestQueue_PersistsPendingDecision(t *testing.T) {
	repo := new(testutil.MockPendingImportRepository)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(p *models.PendingImport) bool {
		return p.State == models.ImportStatePending && p.Confidence == 60
	})).Return(nil)

	eventID := int64(4)
	file := &models.ImportCandidate{Path: "/downloads/a.mkv", Quality: models.QualityWEBDL1080p}
	decision := &models.ImportDecision{
		Action:     models.ImportActionPending,
		EventID:    &eventID,
		Confidence: 60,
	}

	pending, err := newTestPendingManager(repo).Queue(context.Background(), file, decision)

	require.NoError(t, err)
	assert.Equal(t, models.ImportStatePending, pending.State)
	assert.Equal(t, &eventID, pending.SuggestedEventID)
	repo.AssertExpectations(t)
}

func TestQueue_RejectsAutoDecision(t *testing.T) {
	repo := new(testutil.MockPendingImportRepository)

	file := &models.ImportCandidate{Path: "/downloads/a.mkv"}
	decision := &models.ImportDecision{Action: models.ImportActionAuto, Confidence: 95}

	_, err := newTestPendingManager(repo).Queue(context.Background(), file, decision)

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	repo.AssertNotCalled(t, "Create")
}

func TestClaim_ReturnsClaimedImport(t *testing.T) {
	claimed := &models.PendingImport{ID: 9, State: models.ImportStateImporting}
	repo := new(testutil.MockPendingImportRepository)
	repo.On("Claim", mock.Anything, int64(9), mock.Anything).Return(claimed, nil)

	result, err := newTestPendingManager(repo).Claim(context.Background(), 9)

	require.NoError(t, err)
	assert.Equal(t, models.ImportStateImporting, result.State)
}

func TestClaim_SecondClaimFails(t *testing.T) {
	repo := new(testutil.MockPendingImportRepository)
	repo.On("Claim", mock.Anything, int64(9), mock.Anything).Return(nil, models.ErrImportAlreadyClaimed)

	_, err := newTestPendingManager(repo).Claim(context.Background(), 9)

	assert.ErrorIs(t, err, models.ErrImportAlreadyClaimed)
}

func TestComplete_TransitionsFromImporting(t *testing.T) {
	repo := new(testutil.MockPendingImportRepository)
	repo.On("Transition", mock.Anything, int64(9),
		models.ImportStateImporting, models.ImportStateCompleted, mock.Anything).Return(nil)

	err := newTestPendingManager(repo).Complete(context.Background(), 9)

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestReject_TerminalStateCannotTransition(t *testing.T) {
	repo := new(testutil.MockPendingImportRepository)
	repo.On("Transition", mock.Anything, int64(9),
		models.ImportStateImporting, models.ImportStateRejected, mock.Anything).
		Return(models.ErrImportStateTerminal)

	err := newTestPendingManager(repo).Reject(context.Background(), 9)

	assert.ErrorIs(t, err, models.ErrImportStateTerminal)
}
