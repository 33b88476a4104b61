package errors

import (
	"testing"
)

func TestErrorCodeTaxonomy(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		phase    string
		category string
	}{
		{"MC001", MC001, "modecheck", "binding"},
		{"MC004", MC004, "modecheck", "determinism"},
		{"MC007", MC007, "modecheck", "overload"},

		{"FC002", FC002, "foreign", "operation"},
		{"FC003", FC003, "foreign", "arity"},
		{"FC004", FC004, "foreign", "type"},

		{"UNB001", UNB001, "unbranch", "control"},
		{"UNB004", UNB004, "unbranch", "control"},

		{"PS001", PS001, "procspec", "identity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, exists := GetErrorInfo(tt.code)
			if !exists {
				t.Fatalf("Error code %s not found in registry", tt.code)
			}
			if info.Code != tt.code {
				t.Errorf("Code mismatch: got %s, want %s", info.Code, tt.code)
			}
			if info.Phase != tt.phase {
				t.Errorf("Phase mismatch for %s: got %s, want %s", tt.code, info.Phase, tt.phase)
			}
			if info.Category != tt.category {
				t.Errorf("Category mismatch for %s: got %s, want %s", tt.code, info.Category, tt.category)
			}
		})
	}
}

func TestErrorPhaseCheckers(t *testing.T) {
	tests := []struct {
		name        string
		code        string
		isModecheck bool
		isForeign   bool
		isUnbranch  bool
		isProcspec  bool
	}{
		{"Modecheck error", MC001, true, false, false, false},
		{"Foreign error", FC001, false, true, false, false},
		{"Unbranch error", UNB001, false, false, true, false},
		{"Procspec error", PS001, false, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsModecheckError(tt.code); got != tt.isModecheck {
				t.Errorf("IsModecheckError(%s) = %v, want %v", tt.code, got, tt.isModecheck)
			}
			if got := IsForeignError(tt.code); got != tt.isForeign {
				t.Errorf("IsForeignError(%s) = %v, want %v", tt.code, got, tt.isForeign)
			}
			if got := IsUnbranchError(tt.code); got != tt.isUnbranch {
				t.Errorf("IsUnbranchError(%s) = %v, want %v", tt.code, got, tt.isUnbranch)
			}
			if got := IsProcspecError(tt.code); got != tt.isProcspec {
				t.Errorf("IsProcspecError(%s) = %v, want %v", tt.code, got, tt.isProcspec)
			}
		})
	}
}

func TestAllErrorCodesInRegistry(t *testing.T) {
	allCodes := []string{
		MC001, MC002, MC003, MC004, MC005, MC006, MC007, MC008,
		FC001, FC002, FC003, FC004, FC005, FC006,
		UNB001, UNB002, UNB003, UNB004,
		PS001,
	}

	for _, code := range allCodes {
		t.Run(code, func(t *testing.T) {
			if _, exists := GetErrorInfo(code); !exists {
				t.Errorf("Error code %s is defined but not in registry", code)
			}
		})
	}

	if len(ErrorRegistry) < len(allCodes) {
		t.Errorf("Registry has %d codes, expected at least %d", len(ErrorRegistry), len(allCodes))
	}
}

func TestErrorInfoConsistency(t *testing.T) {
	validPhases := map[string]bool{
		"modecheck": true, "foreign": true, "unbranch": true, "procspec": true,
	}
	for code, info := range ErrorRegistry {
		if info.Code != code {
			t.Errorf("Code mismatch in registry: key=%s, info.Code=%s", code, info.Code)
		}
		if len(code) < 4 || len(code) > 6 {
			t.Errorf("Invalid code format: %s", code)
		}
		if !validPhases[info.Phase] {
			t.Errorf("Invalid phase for %s: %s", code, info.Phase)
		}
		if info.Description == "" {
			t.Errorf("Empty description for %s", code)
		}
	}
}
