package services

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/you/incidentsvc/domain"
)

// ValidatorConfig enumerates which fields are required and which format checks apply
type ValidatorConfig struct {
	AllowedTypes      []domain.DisasterType
	RequireFullName   bool
	NameLettersOnly   bool
	PhoneCountryCode  string
	PhoneDigits       int
	StrictLocation    bool
	MaxDescriptionLen int
}

// DefaultValidatorConfig mirrors the verified report form
func DefaultValidatorConfig() ValidatorConfig {
	return ValidatorConfig{
		AllowedTypes:      domain.DefaultDisasterTypes,
		RequireFullName:   true,
		NameLettersOnly:   true,
		PhoneCountryCode:  "91",
		PhoneDigits:       10,
		MaxDescriptionLen: 2000,
	}
}

// FormValidator checks drafts before any network call is made. It is pure and safe for concurrent use.
type FormValidator struct {
	config       ValidatorConfig
	allowed      map[domain.DisasterType]struct{}
	phonePattern *regexp.Regexp
}

// NewFormValidator creates a validator for the given rules
func NewFormValidator(config ValidatorConfig) *FormValidator {
	if len(config.AllowedTypes) == 0 {
		config.AllowedTypes = domain.DefaultDisasterTypes
	}
	if config.PhoneDigits <= 0 {
		config.PhoneDigits = 10
	}
	allowed := make(map[domain.DisasterType]struct{}, len(config.AllowedTypes))
	for _, t := range config.AllowedTypes {
		allowed[t] = struct{}{}
	}
	pattern := fmt.Sprintf(`^\+%s\d{%d}$`, regexp.QuoteMeta(config.PhoneCountryCode), config.PhoneDigits)

	return &FormValidator{
		config:       config,
		allowed:      allowed,
		phonePattern: regexp.MustCompile(pattern),
	}
}

// Validate returns the normalized draft, or a *domain.ValidationError for the first failing field
func (v *FormValidator) Validate(draft domain.DraftReport) (domain.DraftReport, error) {
	d := draft.Normalized()

	if d.DisasterType == "" {
		return d, invalid("disasterType", "is required")
	}
	if _, ok := v.allowed[d.DisasterType]; !ok {
		return d, invalid("disasterType", fmt.Sprintf("must be one of %s", v.allowedList()))
	}

	if d.FullName == "" {
		if v.config.RequireFullName {
			return d, invalid("fullName", "is required")
		}
	} else if v.config.NameLettersOnly && !lettersAndSpaces(d.FullName) {
		return d, invalid("fullName", "may only contain letters and spaces")
	}

	if d.Phone == "" {
		return d, invalid("phone", "is required")
	}
	d.Phone = v.NormalizePhone(d.Phone)
	if !v.phonePattern.MatchString(d.Phone) {
		return d, invalid("phone", fmt.Sprintf("must be in +%s%s format", v.config.PhoneCountryCode, strings.Repeat("X", v.config.PhoneDigits)))
	}

	if d.Location == "" {
		return d, invalid("location", "is required")
	}
	if v.config.StrictLocation && !areaCityState(d.Location) {
		return d, invalid("location", "must be in \"area, city, state\" format")
	}

	if v.config.MaxDescriptionLen > 0 && len([]rune(d.Description)) > v.config.MaxDescriptionLen {
		return d, invalid("description", fmt.Sprintf("must be at most %d characters", v.config.MaxDescriptionLen))
	}

	return d, nil
}

// NormalizePhone strips everything but digits and re-prefixes the country code
func (v *FormValidator) NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}
	if len(digits) == v.config.PhoneDigits {
		return "+" + v.config.PhoneCountryCode + digits
	}
	return "+" + digits
}

func (v *FormValidator) allowedList() string {
	names := make([]string, len(v.config.AllowedTypes))
	for i, t := range v.config.AllowedTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

func invalid(field, reason string) error {
	return &domain.ValidationError{Field: field, Reason: reason}
}

func lettersAndSpaces(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// areaCityState accepts exactly three non-empty comma-separated segments
func areaCityState(location string) bool {
	parts := strings.Split(location, ",")
	if len(parts) != 3 {
		return false
	}
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			return false
		}
	}
	return true
}
