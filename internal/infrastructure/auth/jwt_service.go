package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/you/incidentsvc/domain"
)

// JWTServiceImpl implements domain.AdminTokenService with HS256 tokens carrying an "admin" claim
type JWTServiceImpl struct {
	secretKey []byte
	issuer    string
	tokenTTL  time.Duration
	now       func() time.Time
}

// NewJWTService creates a new JWT service
func NewJWTService(secretKey string, issuer string, tokenTTL time.Duration) *JWTServiceImpl {
	if tokenTTL <= 0 {
		tokenTTL = 12 * time.Hour
	}
	return &JWTServiceImpl{
		secretKey: []byte(secretKey),
		issuer:    issuer,
		tokenTTL:  tokenTTL,
		now:       time.Now,
	}
}

// generateJTI creates a unique JWT ID
func (j *JWTServiceImpl) generateJTI() string {
	bytes := make([]byte, 16)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// GenerateAdminToken implements domain.AdminTokenService
func (j *JWTServiceImpl) GenerateAdminToken(subject string) (string, error) {
	now := j.now()
	claims := jwt.MapClaims{
		"sub":   subject,
		"admin": true,
		"iss":   j.issuer,
		"iat":   now.Unix(),
		"exp":   now.Add(j.tokenTTL).Unix(),
		"jti":   j.generateJTI(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secretKey)
}

// ValidateAdminToken implements domain.AdminTokenService. A valid token without admin: true
// yields domain.ErrNotAdmin.
func (j *JWTServiceImpl) ValidateAdminToken(tokenString string) (*domain.AdminClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	}
	if j.issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.issuer))
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return j.secretKey, nil
	}, opts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, domain.ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, domain.ErrTokenMalformed
		default:
			return nil, domain.ErrTokenInvalid
		}
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, domain.ErrTokenMalformed
	}

	subject, _ := claims.GetSubject()
	admin, _ := claims["admin"].(bool)
	if !admin {
		return nil, domain.ErrNotAdmin
	}

	adminClaims := &domain.AdminClaims{Subject: subject, Admin: true}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		adminClaims.IssuedAt = iat.Unix()
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		adminClaims.ExpiresAt = exp.Unix()
	}
	return adminClaims, nil
}

var _ domain.AdminTokenService = (*JWTServiceImpl)(nil)
