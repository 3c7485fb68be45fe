package services

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you/incidentsvc/domain"
)

func TestFormValidator_Validate(t *testing.T) {
	strict := DefaultValidatorConfig()
	strict.StrictLocation = true

	relaxedName := DefaultValidatorConfig()
	relaxedName.RequireFullName = false
	relaxedName.NameLettersOnly = false

	tests := []struct {
		name          string
		config        ValidatorConfig
		mutate        func(d *domain.DraftReport)
		expectedField string
	}{
		{
			name:   "valid draft",
			config: DefaultValidatorConfig(),
			mutate: func(d *domain.DraftReport) {},
		},
		{
			name:          "missing disaster type",
			config:        DefaultValidatorConfig(),
			mutate:        func(d *domain.DraftReport) { d.DisasterType = "" },
			expectedField: "disasterType",
		},
		{
			name:          "unknown disaster type",
			config:        DefaultValidatorConfig(),
			mutate:        func(d *domain.DraftReport) { d.DisasterType = "Meteor" },
			expectedField: "disasterType",
		},
		{
			name:          "missing full name",
			config:        DefaultValidatorConfig(),
			mutate:        func(d *domain.DraftReport) { d.FullName = "   " },
			expectedField: "fullName",
		},
		{
			name:          "digits in full name",
			config:        DefaultValidatorConfig(),
			mutate:        func(d *domain.DraftReport) { d.FullName = "R2 D2" },
			expectedField: "fullName",
		},
		{
			name:   "non-latin letters in full name",
			config: DefaultValidatorConfig(),
			mutate: func(d *domain.DraftReport) { d.FullName = "José Müller" },
		},
		{
			name:   "name optional when not required",
			config: relaxedName,
			mutate: func(d *domain.DraftReport) { d.FullName = "" },
		},
		{
			name:   "punctuation allowed when letters-only is off",
			config: relaxedName,
			mutate: func(d *domain.DraftReport) { d.FullName = "A. B-C" },
		},
		{
			name:          "missing phone",
			config:        DefaultValidatorConfig(),
			mutate:        func(d *domain.DraftReport) { d.Phone = "" },
			expectedField: "phone",
		},
		{
			name:          "phone too short",
			config:        DefaultValidatorConfig(),
			mutate:        func(d *domain.DraftReport) { d.Phone = "+9198765" },
			expectedField: "phone",
		},
		{
			name:          "wrong country code",
			config:        DefaultValidatorConfig(),
			mutate:        func(d *domain.DraftReport) { d.Phone = "+449876543210" },
			expectedField: "phone",
		},
		{
			name:          "letters only phone",
			config:        DefaultValidatorConfig(),
			mutate:        func(d *domain.DraftReport) { d.Phone = "call me" },
			expectedField: "phone",
		},
		{
			name:          "missing location",
			config:        DefaultValidatorConfig(),
			mutate:        func(d *domain.DraftReport) { d.Location = "" },
			expectedField: "location",
		},
		{
			name:   "free text location accepted when not strict",
			config: DefaultValidatorConfig(),
			mutate: func(d *domain.DraftReport) { d.Location = "near the old bridge" },
		},
		{
			name:          "free text location rejected when strict",
			config:        strict,
			mutate:        func(d *domain.DraftReport) { d.Location = "near the old bridge" },
			expectedField: "location",
		},
		{
			name:          "empty segment rejected when strict",
			config:        strict,
			mutate:        func(d *domain.DraftReport) { d.Location = "Andheri, , Maharashtra" },
			expectedField: "location",
		},
		{
			name:   "three segments accepted when strict",
			config: strict,
			mutate: func(d *domain.DraftReport) {},
		},
		{
			name:   "description is optional",
			config: DefaultValidatorConfig(),
			mutate: func(d *domain.DraftReport) { d.Description = "" },
		},
		{
			name: "description too long",
			config: ValidatorConfig{
				PhoneCountryCode:  "91",
				PhoneDigits:       10,
				MaxDescriptionLen: 5,
			},
			mutate:        func(d *domain.DraftReport) { d.Description = "too long" },
			expectedField: "description",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft := createValidDraft(t)
			tt.mutate(&draft)

			_, err := NewFormValidator(tt.config).Validate(draft)

			if tt.expectedField == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidDraft))

			var vErr *domain.ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tt.expectedField, vErr.Field)
			assert.NotEmpty(t, vErr.Reason)
		})
	}
}

func TestFormValidator_FailFastOrder(t *testing.T) {
	// Every required field is missing; the first one in form order is reported
	_, err := NewFormValidator(DefaultValidatorConfig()).Validate(domain.DraftReport{})

	var vErr *domain.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "disasterType", vErr.Field)
}

func TestFormValidator_Normalizes(t *testing.T) {
	draft := domain.DraftReport{
		DisasterType: " Flood",
		FullName:     " Asha Rao ",
		Phone:        "98765 43210",
		Location:     " Andheri, Mumbai, Maharashtra ",
		Description:  " water rising ",
	}

	got, err := NewFormValidator(DefaultValidatorConfig()).Validate(draft)
	require.NoError(t, err)

	want := domain.DraftReport{
		DisasterType: domain.DisasterFlood,
		FullName:     "Asha Rao",
		Phone:        "+919876543210",
		Location:     "Andheri, Mumbai, Maharashtra",
		Description:  "water rising",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("normalized draft mismatch (-want +got):\n%s", diff)
	}
}

func TestFormValidator_NormalizePhone(t *testing.T) {
	v := NewFormValidator(DefaultValidatorConfig())

	tests := []struct {
		in   string
		want string
	}{
		{"+919876543210", "+919876543210"},
		{"+91 98765-43210", "+919876543210"},
		{"9876543210", "+919876543210"},
		{"(987) 654 3210", "+919876543210"},
		{"919876543210", "+919876543210"},
		{"12345", "+12345"},
		{"no digits", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, v.NormalizePhone(tt.in))
		})
	}
}

func TestFormValidator_PhoneRejectedRegardlessOfOtherFields(t *testing.T) {
	v := NewFormValidator(DefaultValidatorConfig())
	badPhones := []string{"+91987654321", "+9198765432101", "+1 555 0100", "000", "+91abcdefghij"}

	for _, phone := range badPhones {
		draft := createValidDraft(t)
		draft.Phone = phone

		_, err := v.Validate(draft)

		var vErr *domain.ValidationError
		if assert.True(t, errors.As(err, &vErr), "phone %q should be rejected", phone) {
			assert.Equal(t, "phone", vErr.Field)
		}
	}
}
