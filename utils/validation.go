package utils

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// FieldValidationError represents a validation error for a specific field
type FieldValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldValidationErrors represents multiple field validation errors
type FieldValidationErrors []FieldValidationError

// Error implements the error interface
func (e FieldValidationErrors) Error() string {
	var messages []string
	for _, err := range e {
		messages = append(messages, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return strings.Join(messages, "; ")
}

var (
	emailRegex   = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	htmlTagRegex = regexp.MustCompile(`<[^>]*>`)
	jsEventRegex = regexp.MustCompile(`on\w+="[^"]*"`)
)

// SanitizeString removes HTML tags and inline handlers from free text
func SanitizeString(input string) string {
	sanitized := htmlTagRegex.ReplaceAllString(input, "")
	sanitized = jsEventRegex.ReplaceAllString(sanitized, "")
	return strings.TrimSpace(html.UnescapeString(sanitized))
}

// ValidateEmail checks if the email is valid
func ValidateEmail(email string) (bool, string) {
	if !emailRegex.MatchString(strings.TrimSpace(email)) {
		return false, "Invalid email format. Please enter a valid email address"
	}
	return true, ""
}

// FormatPhoneNumber formats and validates an Indian phone number
func FormatPhoneNumber(phone string) (string, error) {
	// Remove all non-digit characters
	phone = strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)

	// Remove leading '0' or '91' if present
	if len(phone) == 11 && strings.HasPrefix(phone, "0") {
		phone = phone[1:]
	}
	if len(phone) == 12 && strings.HasPrefix(phone, "91") {
		phone = phone[2:]
	}

	if len(phone) != 10 {
		return "", fmt.Errorf("phone number must be exactly 10 digits")
	}
	if phone[0] < '6' || phone[0] > '9' {
		return "", fmt.Errorf("phone number must start with 6, 7, 8, or 9")
	}
	return phone, nil
}

// ValidatePhone checks if the phone number is valid and returns it formatted
func ValidatePhone(phone string) (bool, string) {
	formatted, err := FormatPhoneNumber(phone)
	if err != nil {
		return false, err.Error()
	}
	return true, formatted
}

// ValidateStringLength validates string length
func ValidateStringLength(str string, min, max int) error {
	length := len(strings.TrimSpace(str))
	if length < min {
		return fmt.Errorf("must be at least %d characters long", min)
	}
	if length > max {
		return fmt.Errorf("must not exceed %d characters", max)
	}
	return nil
}

// ValidateAmount checks a rupee amount is positive with at most two decimals
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("amount must be greater than zero")
	}
	if !amount.Equal(amount.Round(2)) {
		return fmt.Errorf("amount must have at most two decimal places")
	}
	if amount.GreaterThan(decimal.NewFromInt(9999999999)) {
		return fmt.Errorf("amount is too large")
	}
	return nil
}

// ValidatePercentage checks a rate lies between 0 and 100
func ValidatePercentage(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("rate must be between 0 and 100")
	}
	return nil
}
