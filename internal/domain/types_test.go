package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestComplexityMultipliers(t *testing.T) {
	tests := []struct {
		name     string
		value    ComplexityLevel
		expected string
	}{
		{"Standard", ComplexityStandard, "1"},
		{"Moderate", ComplexityModerate, "1.3"},
		{"High", ComplexityHigh, "1.6"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.value.IsValid() {
				t.Fatalf("Expected %s to be valid", tt.value)
			}
			if !tt.value.Multiplier().Equal(decimal.RequireFromString(tt.expected)) {
				t.Errorf("Expected %s, got %s", tt.expected, tt.value.Multiplier())
			}
		})
	}
}

func TestUrgencyMultipliers(t *testing.T) {
	tests := []struct {
		name     string
		value    UrgencyLevel
		expected string
	}{
		{"Routine", UrgencyRoutine, "1"},
		{"Urgent", UrgencyUrgent, "1.2"},
		{"Emergency", UrgencyEmergency, "1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.value.Multiplier().Equal(decimal.RequireFromString(tt.expected)) {
				t.Errorf("Expected %s, got %s", tt.expected, tt.value.Multiplier())
			}
		})
	}
}

func TestCategoryDiscountFractions(t *testing.T) {
	tests := []struct {
		name      string
		value     PatientCategory
		expected  string
		surcharge bool
	}{
		{"General", CategoryGeneral, "0", false},
		{"Senior citizen", CategorySeniorCitizen, "0.10", false},
		{"Employee", CategoryEmployee, "0.50", false},
		{"Corporate", CategoryCorporate, "0.15", false},
		{"Insurance", CategoryInsurance, "0.20", false},
		{"Emergency", CategoryEmergency, "-0.25", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.value.DiscountFraction().Equal(decimal.RequireFromString(tt.expected)) {
				t.Errorf("Expected %s, got %s", tt.expected, tt.value.DiscountFraction())
			}
			if tt.value.IsSurcharge() != tt.surcharge {
				t.Errorf("Expected surcharge=%v", tt.surcharge)
			}
		})
	}

	if len(AllPatientCategories) != 6 {
		t.Errorf("Expected 6 categories, got %d", len(AllPatientCategories))
	}
}

func TestUnknownEnumValues(t *testing.T) {
	if ComplexityLevel("Extreme").IsValid() {
		t.Error("Extreme should not be a valid complexity")
	}
	if !ComplexityLevel("Extreme").Multiplier().IsZero() {
		t.Error("unknown complexity should have a zero multiplier")
	}
	if UrgencyLevel("Whenever").IsValid() {
		t.Error("Whenever should not be a valid urgency")
	}
	if PatientCategory("VIP").IsValid() {
		t.Error("VIP should not be a valid category")
	}
}

func TestParseEnums(t *testing.T) {
	tests := []struct {
		input   string
		want    PatientCategory
		wantErr bool
	}{
		{"SeniorCitizen", CategorySeniorCitizen, false},
		{"senior citizen", CategorySeniorCitizen, false},
		{"SENIOR_CITIZEN", CategorySeniorCitizen, false},
		{" corporate ", CategoryCorporate, false},
		{"vip", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePatientCategory(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePatientCategory(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParsePatientCategory(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}

	if c, err := ParseComplexityLevel("moderate"); err != nil || c != ComplexityModerate {
		t.Errorf("ParseComplexityLevel(moderate) = %q, %v", c, err)
	}
	if _, err := ParseComplexityLevel("Extreme"); err != ErrInvalidComplexity {
		t.Errorf("expected ErrInvalidComplexity, got %v", err)
	}
	if u, err := ParseUrgencyLevel("EMERGENCY"); err != nil || u != UrgencyEmergency {
		t.Errorf("ParseUrgencyLevel(EMERGENCY) = %q, %v", u, err)
	}
}

func TestPackageStatus(t *testing.T) {
	tests := []struct {
		status   PackageStatus
		terminal bool
	}{
		{PackageActive, false},
		{PackageCompleted, true},
		{PackageUnderutilized, true},
		{PackageExceeded, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if !tt.status.IsValid() {
				t.Errorf("Expected %s to be valid", tt.status)
			}
			if tt.status.IsTerminal() != tt.terminal {
				t.Errorf("Expected terminal=%v for %s", tt.terminal, tt.status)
			}
			fields := tt.status.LogFields()
			if fields["package_status"] != string(tt.status) {
				t.Errorf("unexpected log fields %v", fields)
			}
		})
	}
}
