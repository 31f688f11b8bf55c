package companyengine

import (
	"strings"
	"testing"
)

func TestValidateRule_Valid(t *testing.T) {
	testCases := []struct {
		name       string
		expression string
	}{
		{"Large claim", `Adjudication.totalClaimable > 5000.0`},
		{"Out-of-network dental", `!Claim.isInNetwork && Benefit.benefitName == "Dental"`},
		{strings.Repeat("n", 100), `true`},
		{"Long expression", strings.Repeat(" ", 4000) + `true`},
	}

	for _, tc := range testCases {
		if err := ValidateRule(tc.name, tc.expression); err != nil {
			t.Errorf("ValidateRule(%q) returned error: %v", tc.name, err)
		}
	}
}

func TestValidateRule_Invalid(t *testing.T) {
	testCases := []struct {
		label      string
		name       string
		expression string
		mention    string
	}{
		{"Empty name", "", `true`, "empty"},
		{"Padded name", " Large claim", `true`, "whitespace"},
		{"Long name", strings.Repeat("n", 101), `true`, "100"},
		{"Control character", "Large\nclaim", `true`, "control"},
		{"Empty expression", "Large claim", "", "empty"},
		{"Blank expression", "Large claim", "   ", "empty"},
		{"Long expression", "Large claim", strings.Repeat("x", 4097), "4096"},
	}

	for _, tc := range testCases {
		t.Run(tc.label, func(t *testing.T) {
			err := ValidateRule(tc.name, tc.expression)
			if err == nil {
				t.Fatal("ValidateRule() should return error")
			}
			if !strings.Contains(err.Error(), tc.mention) {
				t.Errorf("error %q should mention %q", err.Error(), tc.mention)
			}
		})
	}
}

func TestValidateCompanyName(t *testing.T) {
	if err := ValidateCompanyName("Acme Health Ltd."); err != nil {
		t.Errorf("ValidateCompanyName() returned error: %v", err)
	}

	for _, name := range []string{"", "Acme ", strings.Repeat("a", 101)} {
		if err := ValidateCompanyName(name); err == nil {
			t.Errorf("ValidateCompanyName(%q) should return error", name)
		}
	}
}
