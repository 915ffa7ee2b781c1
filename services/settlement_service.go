package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Govind-619/Tutorix/gateway"
	"github.com/Govind-619/Tutorix/metrics"
	"github.com/Govind-619/Tutorix/models"
	"github.com/Govind-619/Tutorix/utils"
	"gorm.io/gorm"
)

// SettingsInput is a partial update of a coaching's payment settings. The key
// secret is write-only: it is sealed before storage and never returned.
type SettingsInput struct {
	OnlinePaymentsEnabled *bool   `json:"online_payments_enabled"`
	UseOwnGateway         *bool   `json:"use_own_gateway"`
	RazorpayKeyID         *string `json:"razorpay_key_id"`
	RazorpayKeySecret     *string `json:"razorpay_key_secret"`
	AccountHolderName     *string `json:"account_holder_name"`
	BankAccountNumber     *string `json:"bank_account_number"`
	BankIFSC              *string `json:"bank_ifsc" binding:"omitempty,ifsc"`
	BusinessEmail         *string `json:"business_email" binding:"omitempty,email"`
	BusinessPhone         *string `json:"business_phone" binding:"omitempty,indian_phone"`
	BusinessType          *string `json:"business_type"`
}

// SettingsView is what admins see of the settings
type SettingsView struct {
	models.PaymentSettings
	BankAccountMasked string `json:"bank_account_masked,omitempty"`
	HasKeySecret      bool   `json:"has_key_secret"`
}

// SettlementService manages gateway settings and the coaching's Route linked
// account for payouts
type SettlementService struct {
	db      *gorm.DB
	gw      gateway.Gateway
	secrets *utils.SecretBox
	now     func() time.Time
}

// NewSettlementService creates a new SettlementService
func NewSettlementService(db *gorm.DB, gw gateway.Gateway, secrets *utils.SecretBox) *SettlementService {
	return &SettlementService{db: db, gw: gw, secrets: secrets, now: time.Now}
}

func view(settings *models.PaymentSettings) *SettingsView {
	return &SettingsView{
		PaymentSettings:   *settings,
		BankAccountMasked: settings.MaskedAccountNumber(),
		HasKeySecret:      settings.RazorpayKeySecretSealed != "",
	}
}

// GetSettings returns the coaching's payment settings
func (s *SettlementService) GetSettings(ctx context.Context, coachingID, userID uint) (*SettingsView, error) {
	if _, err := requireFeeAdmin(ctx, s.db, coachingID, userID); err != nil {
		return nil, err
	}
	settings, err := loadSettings(ctx, s.db, coachingID)
	if err != nil {
		return nil, err
	}
	return view(settings), nil
}

// UpdateSettings applies a partial update. Changing bank details clears any
// earlier bank verification.
func (s *SettlementService) UpdateSettings(ctx context.Context, coachingID, userID uint, in SettingsInput) (*SettingsView, error) {
	if _, err := requireFeeAdmin(ctx, s.db, coachingID, userID); err != nil {
		return nil, err
	}
	settings, err := loadSettings(ctx, s.db, coachingID)
	if err != nil {
		return nil, err
	}

	var fieldErrs utils.FieldValidationErrors
	if in.OnlinePaymentsEnabled != nil {
		settings.OnlinePaymentsEnabled = *in.OnlinePaymentsEnabled
	}
	if in.UseOwnGateway != nil {
		settings.UseOwnGateway = *in.UseOwnGateway
	}
	if in.RazorpayKeyID != nil {
		settings.RazorpayKeyID = strings.TrimSpace(*in.RazorpayKeyID)
	}
	if in.RazorpayKeySecret != nil {
		secret := strings.TrimSpace(*in.RazorpayKeySecret)
		if secret == "" {
			settings.RazorpayKeySecretSealed = ""
		} else {
			sealed, err := s.secrets.Seal(secret)
			if err != nil {
				return nil, fmt.Errorf("failed to seal key secret: %v", err)
			}
			settings.RazorpayKeySecretSealed = sealed
		}
	}

	bankChanged := false
	if in.AccountHolderName != nil {
		bankChanged = bankChanged || settings.AccountHolderName != *in.AccountHolderName
		settings.AccountHolderName = utils.SanitizeString(*in.AccountHolderName)
	}
	if in.BankAccountNumber != nil {
		number := strings.TrimSpace(*in.BankAccountNumber)
		bankChanged = bankChanged || settings.BankAccountNumber != number
		settings.BankAccountNumber = number
	}
	if in.BankIFSC != nil {
		ifsc := utils.NormalizeIFSC(*in.BankIFSC)
		bankChanged = bankChanged || settings.BankIFSC != ifsc
		settings.BankIFSC = ifsc
	}
	if bankChanged {
		fieldErrs = append(fieldErrs, utils.ValidateBankDetails(settings.AccountHolderName, settings.BankAccountNumber, settings.BankIFSC)...)
		settings.BankVerificationID = ""
		settings.BankVerificationStatus = ""
	}

	if in.BusinessEmail != nil {
		email := strings.TrimSpace(*in.BusinessEmail)
		if ok, msg := utils.ValidateEmail(email); email != "" && !ok {
			fieldErrs = append(fieldErrs, utils.FieldValidationError{Field: "business_email", Message: msg})
		}
		settings.BusinessEmail = email
	}
	if in.BusinessPhone != nil {
		phone := strings.TrimSpace(*in.BusinessPhone)
		if phone != "" {
			ok, formatted := utils.ValidatePhone(phone)
			if !ok {
				fieldErrs = append(fieldErrs, utils.FieldValidationError{Field: "business_phone", Message: formatted})
			} else {
				phone = formatted
			}
		}
		settings.BusinessPhone = phone
	}
	if in.BusinessType != nil {
		settings.BusinessType = strings.TrimSpace(*in.BusinessType)
	}

	if settings.UseOwnGateway && (settings.RazorpayKeyID == "" || settings.RazorpayKeySecretSealed == "") {
		fieldErrs = append(fieldErrs, utils.FieldValidationError{Field: "razorpay_key_id", Message: "Key id and secret are required to use your own gateway account"})
	}
	if len(fieldErrs) > 0 {
		return nil, utils.BadRequestError("Invalid payment settings", fieldErrs)
	}

	if err := s.db.WithContext(ctx).Save(settings).Error; err != nil {
		utils.LogError("Failed to save payment settings for coaching %d: %v", coachingID, err)
		return nil, err
	}
	utils.LogInfo("Payment settings updated for coaching %d by user %d (online=%t own_gateway=%t)",
		coachingID, userID, settings.OnlinePaymentsEnabled, settings.UseOwnGateway)
	return view(settings), nil
}

// CreateLinkedAccount registers the coaching's bank account as a Route linked
// account so collected fees are transferred to it
func (s *SettlementService) CreateLinkedAccount(ctx context.Context, coachingID, userID uint) (*SettingsView, error) {
	if _, err := requireFeeAdmin(ctx, s.db, coachingID, userID); err != nil {
		return nil, err
	}
	settings, err := loadSettings(ctx, s.db, coachingID)
	if err != nil {
		return nil, err
	}
	if settings.UseOwnGateway {
		return nil, utils.InvalidStateError("Linked accounts are only used when collecting through the platform gateway")
	}
	if settings.LinkedAccountID != "" {
		return nil, utils.InvalidStateError("A linked account already exists for this coaching")
	}
	if errs := utils.ValidateBankDetails(settings.AccountHolderName, settings.BankAccountNumber, settings.BankIFSC); len(errs) > 0 {
		return nil, utils.BadRequestError("Bank details are incomplete", utils.FieldValidationErrors(errs))
	}
	if settings.BusinessEmail == "" || settings.BusinessPhone == "" {
		return nil, utils.BadRequestError("Business email and phone are required", nil)
	}

	var coaching models.Coaching
	if err := s.db.WithContext(ctx).First(&coaching, coachingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFoundError("Coaching not found")
		}
		return nil, err
	}

	businessType := settings.BusinessType
	if businessType == "" {
		businessType = "individual"
	}
	account, err := s.gw.CreateLinkedAccount(ctx, gateway.LinkedAccountRequest{
		Email:         settings.BusinessEmail,
		Phone:         settings.BusinessPhone,
		LegalName:     coaching.Name,
		BusinessType:  businessType,
		ReferenceID:   fmt.Sprintf("coaching_%d", coachingID),
		ContactName:   settings.AccountHolderName,
		AccountNumber: settings.BankAccountNumber,
		IFSC:          settings.BankIFSC,
	})
	if err != nil {
		return nil, s.gatewayFailure("create_linked_account", coachingID, err)
	}

	status := account.Status
	if status == "" {
		status = models.LinkedAccountCreated
	}
	now := s.now()
	settings.LinkedAccountID = account.ID
	settings.LinkedAccountStatus = status
	settings.LinkedAccountUpdatedAt = &now
	if err := s.db.WithContext(ctx).Save(settings).Error; err != nil {
		utils.LogError("Linked account %s created but not stored for coaching %d: %v", account.ID, coachingID, err)
		return nil, err
	}
	utils.LogInfo("Linked account %s created for coaching %d with status %s", account.ID, coachingID, status)
	return view(settings), nil
}

// RefreshLinkedAccountStatus pulls the linked account's status from the gateway
func (s *SettlementService) RefreshLinkedAccountStatus(ctx context.Context, coachingID, userID uint) (*SettingsView, error) {
	if _, err := requireFeeAdmin(ctx, s.db, coachingID, userID); err != nil {
		return nil, err
	}
	settings, err := loadSettings(ctx, s.db, coachingID)
	if err != nil {
		return nil, err
	}
	if settings.LinkedAccountID == "" {
		return nil, utils.InvalidStateError("No linked account exists for this coaching")
	}

	account, err := s.gw.FetchLinkedAccount(ctx, settings.LinkedAccountID)
	if err != nil {
		return nil, s.gatewayFailure("fetch_linked_account", coachingID, err)
	}
	now := s.now()
	if account.Status != settings.LinkedAccountStatus {
		utils.LogInfo("Linked account %s for coaching %d moved from %s to %s", settings.LinkedAccountID, coachingID, settings.LinkedAccountStatus, account.Status)
	}
	settings.LinkedAccountStatus = account.Status
	settings.LinkedAccountUpdatedAt = &now
	if err := s.db.WithContext(ctx).Save(settings).Error; err != nil {
		return nil, err
	}
	return view(settings), nil
}

// DeleteLinkedAccount removes the linked account at the gateway and forgets it
func (s *SettlementService) DeleteLinkedAccount(ctx context.Context, coachingID, userID uint) (*SettingsView, error) {
	if _, err := requireFeeAdmin(ctx, s.db, coachingID, userID); err != nil {
		return nil, err
	}
	settings, err := loadSettings(ctx, s.db, coachingID)
	if err != nil {
		return nil, err
	}
	if settings.LinkedAccountID == "" {
		return nil, utils.InvalidStateError("No linked account exists for this coaching")
	}

	if err := s.gw.DeleteLinkedAccount(ctx, settings.LinkedAccountID); err != nil {
		return nil, s.gatewayFailure("delete_linked_account", coachingID, err)
	}
	utils.LogInfo("Linked account %s deleted for coaching %d by user %d", settings.LinkedAccountID, coachingID, userID)

	now := s.now()
	settings.LinkedAccountID = ""
	settings.LinkedAccountStatus = ""
	settings.LinkedAccountUpdatedAt = &now
	if err := s.db.WithContext(ctx).Save(settings).Error; err != nil {
		return nil, err
	}
	return view(settings), nil
}

// VerifyBankAccount starts a penny-drop validation of the stored bank account
func (s *SettlementService) VerifyBankAccount(ctx context.Context, coachingID, userID uint) (*SettingsView, error) {
	if _, err := requireFeeAdmin(ctx, s.db, coachingID, userID); err != nil {
		return nil, err
	}
	settings, err := loadSettings(ctx, s.db, coachingID)
	if err != nil {
		return nil, err
	}
	if errs := utils.ValidateBankDetails(settings.AccountHolderName, settings.BankAccountNumber, settings.BankIFSC); len(errs) > 0 {
		return nil, utils.BadRequestError("Bank details are incomplete", utils.FieldValidationErrors(errs))
	}

	result, err := s.gw.ValidateBankAccount(ctx, gateway.BankValidationRequest{
		AccountHolderName: settings.AccountHolderName,
		AccountNumber:     settings.BankAccountNumber,
		IFSC:              settings.BankIFSC,
		ReferenceID:       fmt.Sprintf("bank_%d_%d", coachingID, s.now().Unix()),
	})
	if err != nil {
		return nil, s.gatewayFailure("validate_bank_account", coachingID, err)
	}

	settings.BankVerificationID = result.ID
	settings.BankVerificationStatus = bankVerificationStatus(result)
	if err := s.db.WithContext(ctx).Save(settings).Error; err != nil {
		return nil, err
	}
	utils.LogInfo("Bank verification %s for coaching %d is %s", result.ID, coachingID, settings.BankVerificationStatus)
	return view(settings), nil
}

func bankVerificationStatus(v *gateway.BankValidation) string {
	switch {
	case v.Status == "completed" && v.AccountStatus == "active":
		return models.BankVerificationCompleted
	case v.Status == "failed" || v.AccountStatus == "invalid":
		return models.BankVerificationFailed
	default:
		return models.BankVerificationPending
	}
}

func (s *SettlementService) gatewayFailure(op string, coachingID uint, err error) error {
	metrics.GatewayErrorsTotal.WithLabelValues(op).Inc()
	utils.LogError("Gateway %s failed for coaching %d: %v", op, coachingID, err)
	return utils.GatewayError(utils.ErrGatewayUnavailable, err)
}
