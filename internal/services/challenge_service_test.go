package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you/incidentsvc/domain"
)

func TestChallengeService_Issue(t *testing.T) {
	tests := []struct {
		name          string
		setupMocks    func(m *challengeMocks)
		expectedError error
		validate      func(t *testing.T, m *challengeMocks, s *domain.VerificationSession)
	}{
		{
			name:       "issues and holds verifier",
			setupMocks: func(m *challengeMocks) {},
			validate: func(t *testing.T, m *challengeMocks, s *domain.VerificationSession) {
				assert.Equal(t, domain.ChallengeIssued, s.State)
				assert.NotEmpty(t, s.Handle)
				require.NotNil(t, s.Lease)
				assert.True(t, m.slots.Held("web"))
				assert.False(t, s.ExpiresAt.IsZero())
			},
		},
		{
			name: "captcha rejected",
			setupMocks: func(m *challengeMocks) {
				m.guard.VerifyFunc = func(ctx context.Context, token string) error {
					return domain.ErrCaptchaFailed
				}
			},
			expectedError: domain.ErrCaptchaFailed,
			validate: func(t *testing.T, m *challengeMocks, s *domain.VerificationSession) {
				assert.Equal(t, domain.ChallengeNotStarted, s.State)
				assert.Zero(t, m.provider.IssuedCount())
			},
		},
		{
			name: "verifier unavailable",
			setupMocks: func(m *challengeMocks) {
				m.slots.AcquireFunc = func(ctx context.Context, scope string) (*domain.VerifierLease, error) {
					return nil, domain.ErrVerifierSlotTaken
				}
			},
			expectedError: domain.ErrVerifierSlotTaken,
		},
		{
			name: "provider failure releases the verifier",
			setupMocks: func(m *challengeMocks) {
				m.provider.IssueChallengeFunc = func(ctx context.Context, phone, token string) (*domain.IssuedChallenge, error) {
					return nil, errors.New("sms gateway down")
				}
			},
			expectedError: domain.ErrChallengeIssue,
			validate: func(t *testing.T, m *challengeMocks, s *domain.VerificationSession) {
				assert.False(t, m.slots.Held("web"))
				assert.Len(t, m.slots.Released, 1)
				assert.Nil(t, s.Lease)
				assert.Empty(t, s.Handle)
			},
		},
		{
			name: "throttled provider keeps its reason",
			setupMocks: func(m *challengeMocks) {
				m.provider.IssueChallengeFunc = func(ctx context.Context, phone, token string) (*domain.IssuedChallenge, error) {
					return nil, &domain.ChallengeIssueError{Reason: "rate limited", Err: domain.ErrResendThrottled}
				}
			},
			expectedError: domain.ErrResendThrottled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newChallengeMocks()
			tt.setupMocks(m)
			svc := createChallengeServiceForTest(t, m)
			session := domain.NewVerificationSession("+919876543210", "web", "captcha-token")

			handle, err := svc.Issue(createTestContext(t), session)

			if tt.expectedError != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.expectedError)
				assert.ErrorIs(t, err, domain.ErrChallengeIssue)
				var issueErr *domain.ChallengeIssueError
				require.ErrorAs(t, err, &issueErr)
				assert.True(t, issueErr.Retryable())
				assert.Empty(t, handle)
			} else {
				require.NoError(t, err)
				assert.Equal(t, session.Handle, handle)
			}
			if tt.validate != nil {
				tt.validate(t, m, session)
			}
		})
	}
}

func TestChallengeService_IssuePreconditions(t *testing.T) {
	svc := createChallengeServiceForTest(t, newChallengeMocks())
	ctx := createTestContext(t)

	_, err := svc.Issue(ctx, nil)
	assert.ErrorIs(t, err, domain.ErrPrecondition)

	_, err = svc.Issue(ctx, domain.NewVerificationSession("", "web", ""))
	assert.ErrorIs(t, err, domain.ErrPrecondition)

	confirmed := domain.NewVerificationSession("+919876543210", "web", "")
	confirmed.State = domain.ChallengeConfirmed
	_, err = svc.Issue(ctx, confirmed)
	assert.ErrorIs(t, err, domain.ErrPrecondition)
}

func TestChallengeService_ConfirmIsSingleUse(t *testing.T) {
	m := newChallengeMocks()
	svc := createChallengeServiceForTest(t, m)
	ctx := createTestContext(t)
	session := domain.NewVerificationSession("+919876543210", "web", "tok")

	handle, err := svc.Issue(ctx, session)
	require.NoError(t, err)

	require.NoError(t, svc.Confirm(ctx, session, "123456"))
	assert.True(t, session.IsConfirmed())
	assert.Nil(t, session.Lease)
	assert.False(t, m.slots.Held("web"))

	err = svc.ConfirmHandle(ctx, session, handle, "123456")
	assert.ErrorIs(t, err, domain.ErrExpiredChallenge)
}

func TestChallengeService_ResendInvalidatesPreviousHandle(t *testing.T) {
	m := newChallengeMocks()
	svc := createChallengeServiceForTest(t, m)
	ctx := createTestContext(t)
	session := domain.NewVerificationSession("+919876543210", "web", "tok-1")

	first, err := svc.Issue(ctx, session)
	require.NoError(t, err)

	second, err := svc.Resend(ctx, session, "tok-2")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.Equal(t, "tok-2", session.AntiAutomationToken)
	assert.Equal(t, 1, session.Resends)
	assert.Contains(t, m.provider.Discarded, first)

	// The pre-resend handle is dead even with the right code
	assert.ErrorIs(t, svc.ConfirmHandle(ctx, session, first, "123456"), domain.ErrExpiredChallenge)
	// The resend keeps the verifier it already holds
	assert.Empty(t, m.slots.Released)
	assert.True(t, m.slots.Held("web"))

	require.NoError(t, svc.ConfirmHandle(ctx, session, second, "123456"))
}

func TestChallengeService_FailedResendKeepsCurrentChallenge(t *testing.T) {
	tests := []struct {
		name       string
		setupMocks func(m *challengeMocks)
		expected   error
	}{
		{
			name: "throttled",
			setupMocks: func(m *challengeMocks) {
				m.provider.IssueChallengeFunc = func(ctx context.Context, phone, token string) (*domain.IssuedChallenge, error) {
					return nil, &domain.ChallengeIssueError{Reason: "rate limited", Err: domain.ErrResendThrottled}
				}
			},
			expected: domain.ErrResendThrottled,
		},
		{
			name: "captcha rejected",
			setupMocks: func(m *challengeMocks) {
				m.guard.VerifyFunc = func(ctx context.Context, token string) error {
					return domain.ErrCaptchaFailed
				}
			},
			expected: domain.ErrCaptchaFailed,
		},
		{
			name: "sms gateway down",
			setupMocks: func(m *challengeMocks) {
				m.provider.IssueChallengeFunc = func(ctx context.Context, phone, token string) (*domain.IssuedChallenge, error) {
					return nil, errors.New("sms gateway down")
				}
			},
			expected: domain.ErrChallengeIssue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newChallengeMocks()
			svc := createChallengeServiceForTest(t, m)
			ctx := createTestContext(t)
			session := domain.NewVerificationSession("+919876543210", "web", "tok-1")

			first, err := svc.Issue(ctx, session)
			require.NoError(t, err)
			lease := session.Lease
			expiresAt := session.ExpiresAt

			tt.setupMocks(m)
			_, err = svc.Resend(ctx, session, "tok-2")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.expected)
			assert.NotErrorIs(t, err, domain.ErrPrecondition)

			assert.Equal(t, domain.ChallengeIssued, session.State)
			assert.Equal(t, first, session.Handle)
			assert.Same(t, lease, session.Lease)
			assert.Equal(t, expiresAt, session.ExpiresAt)
			assert.Zero(t, session.Resends)
			assert.Empty(t, m.provider.Discarded)
			assert.Empty(t, m.slots.Released)
			assert.True(t, m.slots.Held("web"))

			require.NoError(t, svc.Confirm(ctx, session, "123456"))
			assert.False(t, m.slots.Held("web"))
		})
	}
}

func TestChallengeService_Confirm(t *testing.T) {
	tests := []struct {
		name          string
		code          string
		setupMocks    func(m *challengeMocks)
		expectedError error
		expectedState domain.ChallengeState
	}{
		{
			name:          "correct code",
			code:          "123456",
			setupMocks:    func(m *challengeMocks) {},
			expectedState: domain.ChallengeConfirmed,
		},
		{
			name:          "wrong code",
			code:          "000000",
			setupMocks:    func(m *challengeMocks) {},
			expectedError: domain.ErrInvalidCode,
			expectedState: domain.ChallengeFailed,
		},
		{
			name:          "blank code",
			code:          "   ",
			setupMocks:    func(m *challengeMocks) {},
			expectedError: domain.ErrInvalidCode,
			expectedState: domain.ChallengeFailed,
		},
		{
			name: "provider reports too many attempts",
			code: "111111",
			setupMocks: func(m *challengeMocks) {
				m.provider.ConfirmChallengeFunc = func(ctx context.Context, h domain.ChallengeHandle, code string) error {
					return domain.ErrTooManyAttempts
				}
			},
			expectedError: domain.ErrTooManyAttempts,
			expectedState: domain.ChallengeFailed,
		},
		{
			name: "provider transport error is wrapped",
			code: "123456",
			setupMocks: func(m *challengeMocks) {
				m.provider.ConfirmChallengeFunc = func(ctx context.Context, h domain.ChallengeHandle, code string) error {
					return errors.New("connection reset")
				}
			},
			expectedState: domain.ChallengeFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newChallengeMocks()
			tt.setupMocks(m)
			svc := createChallengeServiceForTest(t, m)
			ctx := createTestContext(t)
			session := domain.NewVerificationSession("+919876543210", "web", "tok")
			_, err := svc.Issue(ctx, session)
			require.NoError(t, err)

			err = svc.Confirm(ctx, session, tt.code)

			switch {
			case tt.expectedError != nil:
				assert.ErrorIs(t, err, tt.expectedError)
			case tt.expectedState == domain.ChallengeConfirmed:
				assert.NoError(t, err)
			default:
				assert.Error(t, err)
			}
			assert.Equal(t, tt.expectedState, session.State)
		})
	}
}

func TestChallengeService_FailedConfirmCanRetry(t *testing.T) {
	svc := createChallengeServiceForTest(t, newChallengeMocks())
	ctx := createTestContext(t)
	session := domain.NewVerificationSession("+919876543210", "web", "tok")
	_, err := svc.Issue(ctx, session)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Confirm(ctx, session, "999999"), domain.ErrInvalidCode)
	assert.True(t, session.HasOutstandingChallenge())
	assert.NoError(t, svc.Confirm(ctx, session, "123456"))
}

func TestChallengeService_ConfirmWithoutChallenge(t *testing.T) {
	svc := createChallengeServiceForTest(t, newChallengeMocks())
	session := domain.NewVerificationSession("+919876543210", "web", "tok")

	err := svc.Confirm(createTestContext(t), session, "123456")
	assert.ErrorIs(t, err, domain.ErrPrecondition)
}

func TestChallengeService_ConfirmAfterExpiry(t *testing.T) {
	m := newChallengeMocks()
	svc := createChallengeServiceForTest(t, m)
	ctx := createTestContext(t)
	session := domain.NewVerificationSession("+919876543210", "web", "tok")
	_, err := svc.Issue(ctx, session)
	require.NoError(t, err)

	svc.now = func() time.Time { return session.ExpiresAt.Add(time.Second) }

	assert.ErrorIs(t, svc.Confirm(ctx, session, "123456"), domain.ErrExpiredChallenge)
	assert.Equal(t, domain.ChallengeFailed, session.State)
}

func TestChallengeService_Release(t *testing.T) {
	m := newChallengeMocks()
	svc := createChallengeServiceForTest(t, m)
	ctx := createTestContext(t)
	session := domain.NewVerificationSession("+919876543210", "web", "tok")
	handle, err := svc.Issue(ctx, session)
	require.NoError(t, err)

	svc.Release(ctx, session)
	svc.Release(ctx, session)

	assert.Equal(t, domain.ChallengeNotStarted, session.State)
	assert.Empty(t, session.Handle)
	assert.Nil(t, session.Lease)
	assert.False(t, m.slots.Held("web"))
	assert.Equal(t, []domain.ChallengeHandle{handle}, m.provider.Discarded)
	assert.ErrorIs(t, svc.ConfirmHandle(ctx, session, handle, "123456"), domain.ErrPrecondition)
}
