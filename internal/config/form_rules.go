package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FormRules configures which report fields are required and how strictly they are checked.
// Different report screens share one validator and differ only in these rules.
type FormRules struct {
	AllowedTypes      []string `yaml:"allowedTypes"`
	RequireFullName   bool     `yaml:"requireFullName"`
	NameLettersOnly   bool     `yaml:"nameLettersOnly"`
	PhoneCountryCode  string   `yaml:"phoneCountryCode"`
	PhoneDigits       int      `yaml:"phoneDigits"`
	StrictLocation    bool     `yaml:"strictLocation"`
	MaxDescriptionLen int      `yaml:"maxDescriptionLength"`
}

// DefaultFormRules returns the rules of the verified report form
func DefaultFormRules() FormRules {
	return FormRules{
		AllowedTypes:      []string{"Flood", "Fire", "Earthquake", "Accident", "Cyclone", "Other"},
		RequireFullName:   true,
		NameLettersOnly:   true,
		PhoneCountryCode:  "91",
		PhoneDigits:       10,
		StrictLocation:    false,
		MaxDescriptionLen: 2000,
	}
}

func loadFormRules(path string) (FormRules, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return FormRules{}, fmt.Errorf("could not read form rules file: %w", err)
	}

	var config struct {
		Rules FormRules `yaml:"formRules"`
	}
	config.Rules = DefaultFormRules()
	if err := yaml.Unmarshal(bytes, &config); err != nil {
		return FormRules{}, fmt.Errorf("could not parse form rules yaml: %w", err)
	}
	return config.Rules, nil
}
