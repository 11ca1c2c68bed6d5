package auth

import (
	"regexp"
	"strings"

	"github.com/example/ceremic-storefront/internal/backend"
)

var (
	emailPattern   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern   = regexp.MustCompile(`^\d{10}$`)
	pincodePattern = regexp.MustCompile(`^\d{6}$`)
)

// ValidationError is a field-level form problem caught before any
// request is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

type SignupForm struct {
	Username    string
	PhoneNumber string
	Email       string
	Address     string
	Pincode     string
}

// Validate reports the first problem in form order: required fields
// first, then email, phone and pincode formats.
func (f SignupForm) Validate() error {
	required := []struct{ field, value, label string }{
		{"username", f.Username, "Username"},
		{"phoneNumber", f.PhoneNumber, "Phone number"},
		{"email", f.Email, "Email"},
		{"address", f.Address, "Address"},
		{"pincode", f.Pincode, "Pincode"},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &ValidationError{Field: r.field, Message: r.label + " is required"}
		}
	}
	if !emailPattern.MatchString(f.Email) {
		return &ValidationError{Field: "email", Message: "Please enter a valid email address"}
	}
	if err := validatePhone(f.PhoneNumber); err != nil {
		return err
	}
	if !pincodePattern.MatchString(strings.TrimSpace(f.Pincode)) {
		return &ValidationError{Field: "pincode", Message: "Please enter a valid 6-digit pincode"}
	}
	return nil
}

// normalized is the form as sent: fields trimmed, phone reduced to digits.
func (f SignupForm) normalized() backend.User {
	return backend.User{
		Username:    strings.TrimSpace(f.Username),
		PhoneNumber: backend.DigitsOnly(f.PhoneNumber),
		Email:       strings.TrimSpace(f.Email),
		Address:     strings.TrimSpace(f.Address),
		Pincode:     strings.TrimSpace(f.Pincode),
	}
}

// ValidateLogin checks the phone number typed into the login form.
func ValidateLogin(phoneNumber string) error {
	if strings.TrimSpace(phoneNumber) == "" {
		return &ValidationError{Field: "phoneNumber", Message: "Phone number is required"}
	}
	return validatePhone(phoneNumber)
}

func validatePhone(phoneNumber string) error {
	if !phonePattern.MatchString(backend.DigitsOnly(phoneNumber)) {
		return &ValidationError{Field: "phoneNumber", Message: "Please enter a valid 10-digit phone number"}
	}
	return nil
}
