package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/you/incidentsvc/domain"
)

type Config struct {
	Length       int
	TTL          time.Duration
	MaxAttempts  int
	ResendWindow time.Duration
	// TestNumbers maps phone numbers to fixed codes; no SMS is sent and no throttle applies
	TestNumbers map[string]string
}

// RedisProvider implements domain.OTPProvider with codes stored in Redis and delivered by SMS
type RedisProvider struct {
	notificationSvc domain.NotificationService
	redisClient     *redis.Client
	config          Config
	logger          *zap.Logger
}

// NewRedisProvider creates a new Redis-based OTP provider
func NewRedisProvider(notificationSvc domain.NotificationService, redisClient *redis.Client, config Config, logger *zap.Logger) *RedisProvider {
	if config.Length <= 0 {
		config.Length = 6
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisProvider{
		notificationSvc: notificationSvc,
		redisClient:     redisClient,
		config:          config,
		logger:          logger,
	}
}

func codeKey(h domain.ChallengeHandle) string     { return fmt.Sprintf("otp:code:%s", h) }
func attemptsKey(h domain.ChallengeHandle) string { return fmt.Sprintf("otp:att:%s", h) }
func resendKey(phone string) string               { return fmt.Sprintf("otp:res:%s", phone) }
func currentKey(phone string) string              { return fmt.Sprintf("otp:cur:%s", phone) }

// IssueChallenge generates a code for phone and sends it. Once the SMS is out, any earlier
// handle for the same phone stops being confirmable.
func (s *RedisProvider) IssueChallenge(ctx context.Context, phone, antiAutomationToken string) (*domain.IssuedChallenge, error) {
	code, isTestNumber := s.config.TestNumbers[phone]

	if !isTestNumber {
		// Check resend throttle
		if canResend, waitTime, err := s.CanResend(ctx, phone); err != nil {
			return nil, &domain.ChallengeIssueError{Reason: "could not check resend window", Err: err}
		} else if !canResend {
			return nil, &domain.ChallengeIssueError{
				Reason: fmt.Sprintf("rate limited, retry in %d seconds", waitTime),
				Err:    domain.ErrResendThrottled,
			}
		}

		var err error
		if code, err = s.generateSecureCode(); err != nil {
			return nil, fmt.Errorf("failed to generate OTP code: %w", err)
		}
	}

	handle := domain.ChallengeHandle(uuid.NewString())

	_, err := s.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, codeKey(handle), code, s.config.TTL)
		pipe.Set(ctx, attemptsKey(handle), 0, s.config.TTL)
		if !isTestNumber {
			pipe.Set(ctx, resendKey(phone), 1, s.config.ResendWindow)
		}
		return nil
	})
	if err != nil {
		return nil, &domain.ChallengeIssueError{Reason: "otp store unavailable", Err: err}
	}

	if isTestNumber {
		s.logger.Debug("test number challenge issued", zap.String("phone", domain.MaskPhone(phone)))
	} else {
		message := fmt.Sprintf("Your verification code is: %s. Valid for %d minutes.", code, int(s.config.TTL.Minutes()))
		if err := s.notificationSvc.SendSMS(ctx, phone, message); err != nil {
			// Clean up Redis entries if SMS fails; the previous code stays valid
			s.redisClient.Del(ctx, codeKey(handle), attemptsKey(handle), resendKey(phone))
			return nil, &domain.ChallengeIssueError{Reason: "failed to send OTP SMS", Err: err}
		}
	}

	// Only now that the new code is out does the previous one stop being confirmable
	prev, err := s.redisClient.GetSet(ctx, currentKey(phone), string(handle)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		s.logger.Warn("failed to record current challenge", zap.String("phone", domain.MaskPhone(phone)), zap.Error(err))
	}
	s.redisClient.Expire(ctx, currentKey(phone), s.config.TTL)
	if prev != "" && prev != string(handle) {
		s.redisClient.Del(ctx, codeKey(domain.ChallengeHandle(prev)), attemptsKey(domain.ChallengeHandle(prev)))
	}

	return &domain.IssuedChallenge{
		Handle:    handle,
		ExpiresAt: time.Now().Add(s.config.TTL),
	}, nil
}

// ConfirmChallenge checks code against the handle. A correct code consumes the handle.
func (s *RedisProvider) ConfirmChallenge(ctx context.Context, handle domain.ChallengeHandle, code string) error {
	storedCode, err := s.redisClient.Get(ctx, codeKey(handle)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.ErrExpiredChallenge
	}
	if err != nil {
		return fmt.Errorf("failed to get OTP from Redis: %w", err)
	}

	// Increment attempts counter atomically
	attempts, err := s.redisClient.Incr(ctx, attemptsKey(handle)).Result()
	if err != nil {
		return fmt.Errorf("failed to increment attempts: %w", err)
	}
	if attempts > int64(s.config.MaxAttempts) {
		s.redisClient.Del(ctx, codeKey(handle), attemptsKey(handle))
		return domain.ErrTooManyAttempts
	}

	if subtle.ConstantTimeCompare([]byte(storedCode), []byte(code)) != 1 {
		return domain.ErrInvalidCode
	}

	// Only the caller that deletes the code wins; a concurrent confirm sees it already consumed
	deleted, err := s.redisClient.Del(ctx, codeKey(handle)).Result()
	if err != nil {
		return fmt.Errorf("failed to consume OTP: %w", err)
	}
	if deleted == 0 {
		return domain.ErrExpiredChallenge
	}
	s.redisClient.Del(ctx, attemptsKey(handle))
	return nil
}

// DiscardChallenge removes the handle's code
func (s *RedisProvider) DiscardChallenge(ctx context.Context, handle domain.ChallengeHandle) error {
	return s.redisClient.Del(ctx, codeKey(handle), attemptsKey(handle)).Err()
}

// CanResend reports whether a new code may be sent to phone, and otherwise how many seconds to wait
func (s *RedisProvider) CanResend(ctx context.Context, phone string) (bool, int64, error) {
	ttl, err := s.redisClient.TTL(ctx, resendKey(phone)).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to check resend TTL: %w", err)
	}

	// If TTL <= 0, key doesn't exist or has expired - can resend
	if ttl <= 0 {
		return true, 0, nil
	}
	return false, int64(ttl.Seconds()), nil
}

// generateSecureCode generates a cryptographically secure OTP code
func (s *RedisProvider) generateSecureCode() (string, error) {
	digits := make([]byte, s.config.Length)
	for i := range digits {
		num, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("failed to generate random digit: %w", err)
		}
		digits[i] = byte('0' + num.Int64())
	}
	return string(digits), nil
}

var _ domain.OTPProvider = (*RedisProvider)(nil)
