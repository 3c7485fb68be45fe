package services

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/you/incidentsvc/domain"
	"github.com/you/incidentsvc/internal/mocks"
)

// createValidDraft creates a draft that passes the default form rules
func createValidDraft(t *testing.T) domain.DraftReport {
	t.Helper()

	return domain.DraftReport{
		DisasterType: domain.DisasterFlood,
		FullName:     "A B",
		Phone:        "+919876543210",
		Location:     "Area, City, State",
		Description:  "water level rising near the bridge",
	}
}

// createDraftWithImage attaches a small PNG to a valid draft
func createDraftWithImage(t *testing.T) domain.DraftReport {
	t.Helper()

	draft := createValidDraft(t)
	draft.Image = &domain.ImageUpload{
		Filename:    "photo.png",
		ContentType: "image/png",
		Data:        pngBytes(),
	}
	return draft
}

// pngBytes returns a payload that sniffs as image/png
func pngBytes() []byte {
	return append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)
}

// challengeMocks bundles the collaborators of a ChallengeService
type challengeMocks struct {
	provider *mocks.MockOTPProvider
	guard    *mocks.MockAntiAutomationGuard
	slots    *mocks.MockVerifierSlot
}

func newChallengeMocks() *challengeMocks {
	return &challengeMocks{
		provider: mocks.NewMockOTPProvider(),
		guard:    mocks.NewMockAntiAutomationGuard(),
		slots:    mocks.NewMockVerifierSlot(),
	}
}

// createChallengeServiceForTest creates a ChallengeService over the given mocks
func createChallengeServiceForTest(t *testing.T, m *challengeMocks) *ChallengeService {
	t.Helper()

	return NewChallengeService(m.provider, m.guard, m.slots, zaptest.NewLogger(t))
}

// createTestContext creates a context for testing with timeout
func createTestContext(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}
