package utils

import (
	"regexp"
	"strings"
)

var (
	ifscRegex          = regexp.MustCompile(`^[A-Z]{4}0[A-Z0-9]{6}$`)
	accountNumberRegex = regexp.MustCompile(`^[0-9]{9,18}$`)
	holderNameRegex    = regexp.MustCompile(`^[a-zA-Z\s.'&\-]+$`)
)

// NormalizeIFSC uppercases and trims an IFSC code
func NormalizeIFSC(ifsc string) string {
	return strings.ToUpper(strings.TrimSpace(ifsc))
}

// ValidateIFSC checks the 11 character Indian Financial System Code format
func ValidateIFSC(ifsc string) bool {
	return ifscRegex.MatchString(NormalizeIFSC(ifsc))
}

// ValidateAccountNumber checks a bank account number is 9 to 18 digits
func ValidateAccountNumber(number string) bool {
	return accountNumberRegex.MatchString(strings.TrimSpace(number))
}

// ValidateBankDetails validates payout bank fields according to business rules
func ValidateBankDetails(holderName, accountNumber, ifsc string) []FieldValidationError {
	errs := []FieldValidationError{}

	holderName = strings.TrimSpace(holderName)
	if holderName == "" {
		errs = append(errs, FieldValidationError{"account_holder_name", "Account holder name is required"})
	} else {
		if len(holderName) > 120 {
			errs = append(errs, FieldValidationError{"account_holder_name", "Account holder name must not exceed 120 characters"})
		}
		if !holderNameRegex.MatchString(holderName) {
			errs = append(errs, FieldValidationError{"account_holder_name", "Account holder name contains invalid characters"})
		}
	}

	if strings.TrimSpace(accountNumber) == "" {
		errs = append(errs, FieldValidationError{"bank_account_number", "Bank account number is required"})
	} else if !ValidateAccountNumber(accountNumber) {
		errs = append(errs, FieldValidationError{"bank_account_number", "Bank account number must be 9 to 18 digits"})
	}

	if strings.TrimSpace(ifsc) == "" {
		errs = append(errs, FieldValidationError{"bank_ifsc", "IFSC is required"})
	} else if !ValidateIFSC(ifsc) {
		errs = append(errs, FieldValidationError{"bank_ifsc", "IFSC must look like ABCD0123456"})
	}

	return errs
}
