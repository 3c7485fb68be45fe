package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/you/incidentsvc/domain"
)

// DefaultVerifyURL is Google's reCAPTCHA siteverify endpoint
const DefaultVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

type siteVerifyResponse struct {
	Success    bool     `json:"success"`
	Hostname   string   `json:"hostname"`
	ErrorCodes []string `json:"error-codes"`
}

// RecaptchaGuard verifies client tokens against the reCAPTCHA siteverify API
type RecaptchaGuard struct {
	secret    string
	verifyURL string
	client    *http.Client
	logger    *zap.Logger
}

// NewRecaptchaGuard creates a guard for the given server secret
func NewRecaptchaGuard(secret, verifyURL string, timeout time.Duration, logger *zap.Logger) *RecaptchaGuard {
	if verifyURL == "" {
		verifyURL = DefaultVerifyURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecaptchaGuard{
		secret:    secret,
		verifyURL: verifyURL,
		client:    &http.Client{Timeout: timeout},
		logger:    logger,
	}
}

// Verify returns domain.ErrCaptchaFailed when the token is missing or rejected
func (g *RecaptchaGuard) Verify(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%w: missing token", domain.ErrCaptchaFailed)
	}

	form := url.Values{}
	form.Set("secret", g.secret)
	form.Set("response", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build siteverify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: siteverify unreachable: %v", domain.ErrCaptchaFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: siteverify status %d: %s", domain.ErrCaptchaFailed, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result siteVerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("%w: decode siteverify response: %v", domain.ErrCaptchaFailed, err)
	}
	if !result.Success {
		g.logger.Info("captcha rejected", zap.Strings("error_codes", result.ErrorCodes))
		return fmt.Errorf("%w: %s", domain.ErrCaptchaFailed, strings.Join(result.ErrorCodes, ","))
	}
	return nil
}

var _ domain.AntiAutomationGuard = (*RecaptchaGuard)(nil)
