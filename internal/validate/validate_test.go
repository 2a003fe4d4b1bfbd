package validate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateLegalName(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		domainLabel string
		wantOK      bool
	}{
		{"known legal form", "Example GmbH", "example", true},
		{"fuzzy matches domain", "Examples", "example", true},
		{"too short", "Ex", "example", false},
		{"navigation noise", "Cookie Settings Menu", "example", false},
		{"long digit run rejected", "1234567 Holdings GmbH", "example", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ValidateLegalName(tt.input, tt.domainLabel)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestValidateLegalForm(t *testing.T) {
	form, ok := ValidateLegalForm("gmbh", "DE")
	assert.True(t, ok)
	assert.Equal(t, "GmbH", form)

	_, ok = ValidateLegalForm("Ltd", "DE")
	assert.False(t, ok)
}

func TestValidatePostalCode(t *testing.T) {
	code, ok := ValidatePostalCode("10115", "DE")
	assert.True(t, ok)
	assert.Equal(t, "10115", code)

	_, ok = ValidatePostalCode("ABCDE", "DE")
	assert.False(t, ok)

	code, ok = ValidatePostalCode("SW1A 1AA", "GB")
	assert.True(t, ok)
	assert.Equal(t, "SW1A 1AA", code)
}

func TestValidateStreet(t *testing.T) {
	_, ok := ValidateStreet("Musterstraße 12")
	assert.True(t, ok)

	_, ok = ValidateStreet("No house number here")
	assert.False(t, ok)
}

func TestValidatePhone(t *testing.T) {
	formatted, ok := ValidatePhone("+49 30 1234567", "DE")
	assert.True(t, ok)
	assert.Contains(t, formatted, "+49")

	_, ok = ValidatePhone("not-a-phone", "DE")
	assert.False(t, ok)
}

func TestValidateEmail(t *testing.T) {
	ctx := context.Background()

	email, ok := ValidateEmail(ctx, "Info@Example.DE", false, true)
	assert.True(t, ok)
	assert.Equal(t, "info@example.de", email)

	_, ok = ValidateEmail(ctx, "not-an-email", false, true)
	assert.False(t, ok)

	_, ok = ValidateEmail(ctx, "someone@example.com", false, true)
	assert.False(t, ok, "placeholder domain must be rejected")

	_, ok = ValidateEmail(ctx, "john.doe@acme.de", false, false)
	assert.False(t, ok, "personal-looking address rejected off the legal page")

	_, ok = ValidateEmail(ctx, "john.doe@acme.de", false, true)
	assert.True(t, ok, "personal-looking address allowed on the legal page")
}

func TestValidateVATID(t *testing.T) {
	vat, ok := ValidateVATID("de 123456789")
	assert.True(t, ok)
	assert.Equal(t, "DE123456789", vat)

	_, ok = ValidateVATID("not a vat")
	assert.False(t, ok)
}

func TestValidateRegistrationNumber(t *testing.T) {
	num, ok := ValidateRegistrationNumber("HRB 12345", "Amtsgericht Munich")
	assert.True(t, ok)
	assert.Equal(t, "HRB 12345", num)

	_, ok = ValidateRegistrationNumber("HRB 12345", "")
	assert.False(t, ok, "registration number without a register court is rejected")
}

func TestValidatePersonName(t *testing.T) {
	name, ok := ValidatePersonName("Dr. Maria Schmidt")
	assert.True(t, ok)
	assert.Equal(t, "Maria Schmidt", name)

	_, ok = ValidatePersonName("GmbH")
	assert.False(t, ok)

	_, ok = ValidatePersonName("Contact 2024")
	assert.False(t, ok)
}

func TestFuzzyRatio(t *testing.T) {
	assert.Equal(t, 1.0, FuzzyRatio("example", "example"))
	assert.Equal(t, 1.0, FuzzyRatio("", ""))
	assert.Less(t, FuzzyRatio("example", "totally-different"), 0.5)
}
