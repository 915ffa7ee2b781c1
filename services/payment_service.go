package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Govind-619/Tutorix/gateway"
	"github.com/Govind-619/Tutorix/metrics"
	"github.com/Govind-619/Tutorix/models"
	"github.com/Govind-619/Tutorix/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentNotifier is told about payments once they are committed
type PaymentNotifier interface {
	PaymentsReceived(ctx context.Context, payments []models.FeePayment)
}

// PaymentOptions configures a PaymentService
type PaymentOptions struct {
	// Platform key pair, used unless a coaching collects on its own account
	KeyID     string
	KeySecret string
	Secrets   *utils.SecretBox
	Notifier  PaymentNotifier
	Now       func() time.Time
}

// PaymentService creates gateway orders and reconciles verified payments onto
// fee records
type PaymentService struct {
	db       *gorm.DB
	gw       gateway.Gateway
	keyID    string
	secret   string
	secrets  *utils.SecretBox
	notifier PaymentNotifier
	now      func() time.Time
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(db *gorm.DB, gw gateway.Gateway, opts PaymentOptions) *PaymentService {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &PaymentService{
		db:       db,
		gw:       gw,
		keyID:    opts.KeyID,
		secret:   opts.KeySecret,
		secrets:  opts.Secrets,
		notifier: opts.Notifier,
		now:      now,
	}
}

// Prefill is the contact data the checkout form opens with
type Prefill struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
}

// OrderResult is returned to the client to open checkout
type OrderResult struct {
	InternalOrderID string          `json:"internal_order_id"`
	OrderID         string          `json:"order_id"`
	Amount          decimal.Decimal `json:"amount"`
	AmountPaise     int64           `json:"amount_paise"`
	Currency        string          `json:"currency"`
	Key             string          `json:"key"`
	RecordIDs       []uint          `json:"record_ids"`
	Prefill         Prefill         `json:"prefill"`
}

// VerifyInput is what checkout hands back after a successful payment
type VerifyInput struct {
	OrderID   string `json:"razorpay_order_id" binding:"required"`
	PaymentID string `json:"razorpay_payment_id" binding:"required"`
	Signature string `json:"razorpay_signature" binding:"required"`
}

// RecordCredit reports what a verification did to one record
type RecordCredit struct {
	RecordID   uint                   `json:"record_id"`
	Credited   decimal.Decimal        `json:"credited"`
	PaidAmount decimal.Decimal        `json:"paid_amount"`
	Balance    decimal.Decimal        `json:"balance"`
	Status     models.FeeRecordStatus `json:"status"`
}

// VerifyResult is the outcome of a verification
type VerifyResult struct {
	AlreadyProcessed bool           `json:"already_processed"`
	OrderID          string         `json:"order_id"`
	PaymentID        string         `json:"payment_id"`
	Records          []RecordCredit `json:"records"`
}

// OnlinePayment is a gateway payment with its refund position
type OnlinePayment struct {
	models.FeePayment
	Refunded   decimal.Decimal `json:"refunded"`
	Refundable decimal.Decimal `json:"refundable"`
}

// PublicConfig is what the client needs before offering online payment
type PublicConfig struct {
	Key      string `json:"key"`
	Enabled  bool   `json:"enabled"`
	Currency string `json:"currency"`
}

// credentials resolves the key pair a coaching collects on
func (s *PaymentService) credentials(settings *models.PaymentSettings) (gateway.Credentials, error) {
	if !settings.HasOwnCredentials() {
		return gateway.Credentials{KeyID: s.keyID, KeySecret: s.secret}, nil
	}
	if s.secrets == nil {
		return gateway.Credentials{}, errors.New("no secret box configured for coaching credentials")
	}
	secret, err := s.secrets.Open(settings.RazorpayKeySecretSealed)
	if err != nil {
		return gateway.Credentials{}, fmt.Errorf("failed to open coaching secret: %v", err)
	}
	return gateway.Credentials{KeyID: settings.RazorpayKeyID, KeySecret: secret}, nil
}

// pinnedCredentials resolves the key pair an order or payment was made on.
// Settings may have switched accounts or rotated keys since; the platform key
// and the coaching's stored key are the only ones that can be resolved.
func (s *PaymentService) pinnedCredentials(settings *models.PaymentSettings, keyID string) (gateway.Credentials, error) {
	switch {
	case keyID == "":
		return s.credentials(settings)
	case keyID == s.keyID:
		return gateway.Credentials{KeyID: s.keyID, KeySecret: s.secret}, nil
	case keyID == settings.RazorpayKeyID && settings.RazorpayKeySecretSealed != "":
		if s.secrets == nil {
			return gateway.Credentials{}, errors.New("no secret box configured for coaching credentials")
		}
		secret, err := s.secrets.Open(settings.RazorpayKeySecretSealed)
		if err != nil {
			return gateway.Credentials{}, fmt.Errorf("failed to open coaching secret: %v", err)
		}
		return gateway.Credentials{KeyID: keyID, KeySecret: secret}, nil
	}
	utils.LogError("Gateway key %s of coaching %d is no longer configured", keyID, settings.CoachingID)
	return gateway.Credentials{}, utils.InvalidStateError("The gateway account this payment was made on is no longer configured")
}

func (s *PaymentService) prefill(ctx context.Context, userID uint) Prefill {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return Prefill{}
	}
	return Prefill{Name: user.Name, Email: user.Email, Contact: user.Phone}
}

// CreateOrder creates a gateway order for one record. amount defaults to the
// record's balance; a smaller amount makes a partial payment.
func (s *PaymentService) CreateOrder(ctx context.Context, coachingID, recordID, userID uint, amount *decimal.Decimal) (*OrderResult, error) {
	utils.LogInfo("Creating payment order for record %d in coaching %d by user %d", recordID, coachingID, userID)

	record, err := loadRecord(ctx, s.db, coachingID, recordID)
	if err != nil {
		return nil, err
	}
	if err := canPay(ctx, s.db, record, userID); err != nil {
		return nil, err
	}
	if err := checkPayable(record); err != nil {
		return nil, err
	}

	settings, err := loadSettings(ctx, s.db, coachingID)
	if err != nil {
		return nil, err
	}
	if !settings.OnlinePaymentsEnabled {
		return nil, utils.InvalidStateError("Online payments are not enabled for this coaching")
	}

	balance := record.Balance()
	payable := balance
	if amount != nil {
		payable = amount.Round(2)
	}
	if !payable.IsPositive() {
		return nil, utils.InvalidStateError("Payment amount must be greater than zero")
	}
	if payable.GreaterThan(balance) {
		return nil, utils.InvalidStateError(fmt.Sprintf("Payment amount exceeds the balance of %s", balance.StringFixed(2)))
	}

	internalID := uuid.New().String()
	receipt := fmt.Sprintf("fee_%d_%s", record.ID, internalID[:8])
	order, err := s.createGatewayOrder(ctx, settings, internalID, receipt, payable, []uint{record.ID}, false, userID)
	if err != nil {
		return nil, err
	}
	order.RecordID = &record.ID
	if err := s.db.WithContext(ctx).Create(order).Error; err != nil {
		utils.LogError("Failed to store payment order %s: %v", order.RazorpayOrderID, err)
		return nil, err
	}

	metrics.OrdersCreatedTotal.WithLabelValues("single").Inc()
	utils.LogInfo("Created payment order %s (%s) for record %d, amount %s", order.ID, order.RazorpayOrderID, record.ID, payable.StringFixed(2))
	return s.orderResult(ctx, order, userID)
}

// CreateMultiOrder creates one gateway order covering the full balance of
// several records
func (s *PaymentService) CreateMultiOrder(ctx context.Context, coachingID, userID uint, recordIDs []uint) (*OrderResult, error) {
	ids := distinct(recordIDs)
	if len(ids) == 0 {
		return nil, utils.BadRequestError("At least one fee record is required", nil)
	}
	if len(ids) > utils.MaxMultiPayRecords {
		return nil, utils.BadRequestError(fmt.Sprintf("At most %d fee records can be paid together", utils.MaxMultiPayRecords), nil)
	}
	utils.LogInfo("Creating multi-pay order for %d records in coaching %d by user %d", len(ids), coachingID, userID)

	var records []models.FeeRecord
	if err := s.db.WithContext(ctx).
		Preload("Member").
		Where("coaching_id = ? AND id IN ?", coachingID, ids).
		Find(&records).Error; err != nil {
		return nil, err
	}
	if len(records) != len(ids) {
		return nil, utils.NotFoundError("One or more fee records were not found")
	}

	total := decimal.Zero
	for i := range records {
		if err := canPay(ctx, s.db, &records[i], userID); err != nil {
			return nil, err
		}
		if err := checkPayable(&records[i]); err != nil {
			return nil, err
		}
		total = total.Add(records[i].Balance())
	}
	if !total.IsPositive() {
		return nil, utils.InvalidStateError("Nothing is due on the selected fee records")
	}

	settings, err := loadSettings(ctx, s.db, coachingID)
	if err != nil {
		return nil, err
	}
	if !settings.OnlinePaymentsEnabled {
		return nil, utils.InvalidStateError("Online payments are not enabled for this coaching")
	}

	internalID := uuid.New().String()
	receipt := fmt.Sprintf("multi_%s", internalID[:8])
	order, err := s.createGatewayOrder(ctx, settings, internalID, receipt, total, ids, true, userID)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		order.Records = append(order.Records, models.PaymentOrderRecord{OrderID: order.ID, RecordID: id})
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(order).Error
	})
	if err != nil {
		utils.LogError("Failed to store multi-pay order %s: %v", order.RazorpayOrderID, err)
		return nil, err
	}

	metrics.OrdersCreatedTotal.WithLabelValues("multi").Inc()
	utils.LogInfo("Created multi-pay order %s (%s) over records %v, amount %s", order.ID, order.RazorpayOrderID, ids, total.StringFixed(2))
	return s.orderResult(ctx, order, userID)
}

func (s *PaymentService) createGatewayOrder(ctx context.Context, settings *models.PaymentSettings, internalID, receipt string, amount decimal.Decimal, recordIDs []uint, multi bool, userID uint) (*models.PaymentOrder, error) {
	creds, err := s.credentials(settings)
	if err != nil {
		return nil, err
	}
	paise := gateway.ToPaise(amount)
	req := gateway.OrderRequest{
		Credentials: creds,
		AmountPaise: paise,
		Currency:    utils.Currency,
		Receipt:     receipt,
		Notes: map[string]string{
			"internal_order_id": internalID,
			"coaching_id":       fmt.Sprint(settings.CoachingID),
			"record_ids":        joinIDs(recordIDs),
		},
	}
	if settings.RoutesToLinkedAccount() {
		req.Transfers = []gateway.Transfer{{
			Account:     settings.LinkedAccountID,
			AmountPaise: paise,
			Notes:       map[string]string{"internal_order_id": internalID},
		}}
	}

	remote, err := s.gw.CreateOrder(ctx, req)
	if err != nil {
		metrics.GatewayErrorsTotal.WithLabelValues("create_order").Inc()
		utils.LogError("Gateway order creation failed for coaching %d: %v", settings.CoachingID, err)
		return nil, utils.GatewayError(utils.ErrGatewayUnavailable, err)
	}

	return &models.PaymentOrder{
		ID:              internalID,
		CoachingID:      settings.CoachingID,
		UserID:          userID,
		RazorpayOrderID: remote.ID,
		Amount:          amount,
		AmountPaise:     paise,
		Receipt:         receipt,
		IsMulti:         multi,
		GatewayKeyID:    creds.KeyID,
		Status:          models.OrderStatusCreated,
	}, nil
}

func (s *PaymentService) orderResult(ctx context.Context, order *models.PaymentOrder, userID uint) (*OrderResult, error) {
	return &OrderResult{
		InternalOrderID: order.ID,
		OrderID:         order.RazorpayOrderID,
		Amount:          order.Amount,
		AmountPaise:     order.AmountPaise,
		Currency:        utils.Currency,
		Key:             order.GatewayKeyID,
		RecordIDs:       order.RecordIDs(),
		Prefill:         s.prefill(ctx, userID),
	}, nil
}

// VerifyPayment checks the checkout signature for a single-record order and
// credits the record
func (s *PaymentService) VerifyPayment(ctx context.Context, coachingID, recordID uint, in VerifyInput, userID uint) (*VerifyResult, error) {
	record, err := loadRecord(ctx, s.db, coachingID, recordID)
	if err != nil {
		return nil, err
	}
	if err := canPay(ctx, s.db, record, userID); err != nil {
		return nil, err
	}
	order, err := s.findOrder(ctx, coachingID, in.OrderID)
	if err != nil {
		return nil, err
	}
	if order.IsMulti || order.RecordID == nil || *order.RecordID != record.ID {
		return nil, utils.InvalidStateError("Payment order does not belong to this fee record")
	}
	if err := s.checkSignature(ctx, order, in, userID); err != nil {
		metrics.PaymentsVerifiedTotal.WithLabelValues("single", "signature_invalid").Inc()
		return nil, err
	}
	return s.credit(ctx, order, in.PaymentID, userID)
}

// VerifyMultiPayment checks the checkout signature for a bundle order and
// splits the paid amount over its records
func (s *PaymentService) VerifyMultiPayment(ctx context.Context, coachingID uint, in VerifyInput, userID uint) (*VerifyResult, error) {
	order, err := s.findOrder(ctx, coachingID, in.OrderID)
	if err != nil {
		return nil, err
	}
	if !order.IsMulti {
		return nil, utils.InvalidStateError("Payment order is not a multi-pay order")
	}
	if order.UserID != userID {
		if _, err := requireFeeAdmin(ctx, s.db, coachingID, userID); err != nil {
			return nil, utils.ForbiddenError(utils.ErrNoAccess)
		}
	}
	if err := s.checkSignature(ctx, order, in, userID); err != nil {
		metrics.PaymentsVerifiedTotal.WithLabelValues("multi", "signature_invalid").Inc()
		return nil, err
	}
	return s.credit(ctx, order, in.PaymentID, userID)
}

func (s *PaymentService) findOrder(ctx context.Context, coachingID uint, razorpayOrderID string) (*models.PaymentOrder, error) {
	var order models.PaymentOrder
	err := s.db.WithContext(ctx).
		Preload("Records").
		Where("razorpay_order_id = ? AND coaching_id = ?", razorpayOrderID, coachingID).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NotFoundError("Payment order not found")
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *PaymentService) checkSignature(ctx context.Context, order *models.PaymentOrder, in VerifyInput, userID uint) error {
	settings, err := loadSettings(ctx, s.db, order.CoachingID)
	if err != nil {
		return err
	}
	creds, err := s.pinnedCredentials(settings, order.GatewayKeyID)
	if err != nil {
		return err
	}
	if !gateway.VerifyPaymentSignature(in.OrderID, in.PaymentID, in.Signature, creds.KeySecret) {
		metrics.SignatureFailuresTotal.WithLabelValues("checkout").Inc()
		utils.LogSecurity("payment_signature_invalid",
			"coaching_id", order.CoachingID,
			"order_id", in.OrderID,
			"payment_id", in.PaymentID,
			"user_id", userID,
		)
		return utils.SignatureInvalidError("Payment verification failed")
	}
	return nil
}

// credit records a captured payment against the order's records. It is
// idempotent per gateway payment id: a payment that was already credited,
// including by a concurrent call that won the race on the unique index, is
// reported as already processed.
func (s *PaymentService) credit(ctx context.Context, order *models.PaymentOrder, paymentID string, userID uint) (*VerifyResult, error) {
	kind := "single"
	if order.IsMulti {
		kind = "multi"
	}

	if done, err := s.alreadyCredited(ctx, order, paymentID); err != nil || done != nil {
		if done != nil {
			metrics.PaymentsVerifiedTotal.WithLabelValues(kind, "already_processed").Inc()
		}
		return done, err
	}

	now := s.now()
	var payments []models.FeePayment
	result := &VerifyResult{OrderID: order.RazorpayOrderID, PaymentID: paymentID}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var records []models.FeeRecord
		if err := tx.Where("id IN ? AND coaching_id = ?", order.RecordIDs(), order.CoachingID).
			Find(&records).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return utils.NotFoundError(utils.ErrRecordNotFound)
		}

		var shares []Allocation
		if order.IsMulti {
			shares = AllocatePayment(order.Amount, records)
			if covered := totalBalance(records); order.Amount.GreaterThan(covered) {
				utils.LogWarn("Order %s paid %s but records only owed %s; surplus credited to record %d",
					order.RazorpayOrderID, order.Amount.StringFixed(2), covered.StringFixed(2), shares[len(shares)-1].RecordID)
			}
		} else {
			shares = []Allocation{{RecordID: records[0].ID, Amount: order.Amount}}
		}

		byID := make(map[uint]*models.FeeRecord, len(records))
		for i := range records {
			byID[records[i].ID] = &records[i]
		}

		for _, share := range shares {
			record := byID[share.RecordID]
			payment := models.FeePayment{
				CoachingID:        order.CoachingID,
				RecordID:          record.ID,
				Amount:            share.Amount,
				Mode:              models.ModeRazorpay,
				RazorpayPaymentID: &paymentID,
				RazorpayOrderID:   &order.RazorpayOrderID,
				PaymentOrderID:    &order.ID,
				GatewayKeyID:      order.GatewayKeyID,
				PaidByUserID:      userID,
				PaidAt:            now,
			}
			if err := tx.Create(&payment).Error; err != nil {
				return err
			}
			payments = append(payments, payment)

			record.Credit(share.Amount, now)
			if err := saveBalance(tx, record); err != nil {
				return err
			}
			result.Records = append(result.Records, creditOf(record, share.Amount))
		}

		return tx.Model(&models.PaymentOrder{}).
			Where("id = ?", order.ID).
			Updates(map[string]interface{}{
				"status":              models.OrderStatusPaid,
				"razorpay_payment_id": paymentID,
				"failure_reason":      "",
			}).Error
	})
	if err != nil {
		if isDuplicateKey(err) {
			utils.LogInfo("Payment %s was credited concurrently, reporting as already processed", paymentID)
			metrics.PaymentsVerifiedTotal.WithLabelValues(kind, "already_processed").Inc()
			return s.processedResult(ctx, order, paymentID)
		}
		utils.LogError("Failed to credit payment %s for order %s: %v", paymentID, order.RazorpayOrderID, err)
		return nil, err
	}

	metrics.PaymentsVerifiedTotal.WithLabelValues(kind, "credited").Inc()
	metrics.AmountCollectedRupees.Add(order.Amount.InexactFloat64())
	utils.LogInfo("Payment %s credited %s over %d record(s) for order %s", paymentID, order.Amount.StringFixed(2), len(payments), order.RazorpayOrderID)

	if s.notifier != nil {
		s.notifier.PaymentsReceived(ctx, payments)
	}
	return result, nil
}

func (s *PaymentService) alreadyCredited(ctx context.Context, order *models.PaymentOrder, paymentID string) (*VerifyResult, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.FeePayment{}).
		Where("razorpay_payment_id = ?", paymentID).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	utils.LogInfo("Payment %s already processed for order %s", paymentID, order.RazorpayOrderID)
	return s.processedResult(ctx, order, paymentID)
}

func (s *PaymentService) processedResult(ctx context.Context, order *models.PaymentOrder, paymentID string) (*VerifyResult, error) {
	var payments []models.FeePayment
	if err := s.db.WithContext(ctx).
		Where("razorpay_payment_id = ?", paymentID).
		Order("id").
		Find(&payments).Error; err != nil {
		return nil, err
	}
	result := &VerifyResult{AlreadyProcessed: true, OrderID: order.RazorpayOrderID, PaymentID: paymentID}
	for _, p := range payments {
		var record models.FeeRecord
		if err := s.db.WithContext(ctx).First(&record, p.RecordID).Error; err != nil {
			return nil, err
		}
		result.Records = append(result.Records, creditOf(&record, p.Amount))
	}
	return result, nil
}

// MarkOrderFailed records that checkout for an order was cancelled or failed.
// It is best effort: problems are logged and false is returned, never an error.
func (s *PaymentService) MarkOrderFailed(ctx context.Context, coachingID uint, internalOrderID, reason string, userID uint) bool {
	var order models.PaymentOrder
	err := s.db.WithContext(ctx).
		Where("id = ? AND coaching_id = ?", internalOrderID, coachingID).
		First(&order).Error
	if err != nil {
		utils.LogWarn("Could not load order %s to mark failed: %v", internalOrderID, err)
		return false
	}
	if order.UserID != userID {
		if _, err := requireFeeAdmin(ctx, s.db, coachingID, userID); err != nil {
			utils.LogWarn("User %d may not mark order %s failed", userID, internalOrderID)
			return false
		}
	}
	return s.failOrder(ctx, s.db.Where("id = ?", order.ID), reason)
}

func (s *PaymentService) failOrder(ctx context.Context, scope *gorm.DB, reason string) bool {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "checkout cancelled"
	}
	if len(reason) > 255 {
		reason = reason[:255]
	}
	res := scope.WithContext(ctx).
		Model(&models.PaymentOrder{}).
		Where("status = ?", models.OrderStatusCreated).
		Updates(map[string]interface{}{
			"status":         models.OrderStatusFailed,
			"failure_reason": reason,
		})
	if res.Error != nil {
		utils.LogWarn("Failed to mark order failed: %v", res.Error)
		return false
	}
	if res.RowsAffected == 0 {
		return false
	}
	metrics.OrdersFailedTotal.Inc()
	utils.LogInfo("Marked payment order failed: %s", reason)
	return true
}

// ListOnlinePayments lists gateway payments on a record with what can still
// be refunded
func (s *PaymentService) ListOnlinePayments(ctx context.Context, coachingID, recordID, userID uint) ([]OnlinePayment, error) {
	if _, err := requireFeeAdmin(ctx, s.db, coachingID, userID); err != nil {
		return nil, err
	}
	if _, err := loadRecord(ctx, s.db, coachingID, recordID); err != nil {
		return nil, err
	}
	var payments []models.FeePayment
	if err := s.db.WithContext(ctx).
		Preload("Refunds").
		Where("record_id = ? AND mode = ?", recordID, models.ModeRazorpay).
		Order("paid_at DESC").
		Find(&payments).Error; err != nil {
		return nil, err
	}
	out := make([]OnlinePayment, 0, len(payments))
	for _, p := range payments {
		out = append(out, OnlinePayment{FeePayment: p, Refunded: p.RefundedAmount(), Refundable: p.Refundable()})
	}
	return out, nil
}

// ListFailedOrders lists failed orders for a record together with orders
// left in CREATED longer than the abandonment window
func (s *PaymentService) ListFailedOrders(ctx context.Context, coachingID, recordID, userID uint) ([]models.PaymentOrder, error) {
	record, err := loadRecord(ctx, s.db, coachingID, recordID)
	if err != nil {
		return nil, err
	}
	if err := canView(ctx, s.db, record, userID); err != nil {
		return nil, err
	}

	abandonedBefore := s.now().Add(-utils.AbandonedOrderAfter)
	bundled := s.db.Model(&models.PaymentOrderRecord{}).Select("order_id").Where("record_id = ?", recordID)

	var orders []models.PaymentOrder
	err = s.db.WithContext(ctx).
		Preload("Records").
		Where("coaching_id = ?", coachingID).
		Where(s.db.Where("record_id = ?", recordID).Or("id IN (?)", bundled)).
		Where(s.db.Where("status = ?", models.OrderStatusFailed).
			Or("status = ? AND created_at < ?", models.OrderStatusCreated, abandonedBefore)).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// SimulatedPayment is a checkout result signed the way the gateway signs it
type SimulatedPayment struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

// SimulatePayment signs a fake payment for a CREATED order with the
// credentials the order was created under. Only for test mode deployments.
func (s *PaymentService) SimulatePayment(ctx context.Context, razorpayOrderID string) (*SimulatedPayment, error) {
	var order models.PaymentOrder
	err := s.db.WithContext(ctx).Where("razorpay_order_id = ?", razorpayOrderID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NotFoundError("Payment order not found")
	}
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderStatusCreated {
		return nil, utils.InvalidStateError(fmt.Sprintf("Payment order is %s", order.Status))
	}
	settings, err := loadSettings(ctx, s.db, order.CoachingID)
	if err != nil {
		return nil, err
	}
	creds, err := s.pinnedCredentials(settings, order.GatewayKeyID)
	if err != nil {
		return nil, err
	}
	paymentID := "pay_test_" + strings.TrimPrefix(razorpayOrderID, "order_")
	return &SimulatedPayment{
		OrderID:   razorpayOrderID,
		PaymentID: paymentID,
		Signature: gateway.SignPayment(razorpayOrderID, paymentID, creds.KeySecret),
	}, nil
}

// PublicConfig returns the key the client opens checkout with
func (s *PaymentService) PublicConfig(ctx context.Context, coachingID uint) (*PublicConfig, error) {
	settings, err := loadSettings(ctx, s.db, coachingID)
	if err != nil {
		return nil, err
	}
	key := s.keyID
	if settings.HasOwnCredentials() {
		key = settings.RazorpayKeyID
	}
	return &PublicConfig{Key: key, Enabled: settings.OnlinePaymentsEnabled, Currency: utils.Currency}, nil
}

func checkPayable(record *models.FeeRecord) error {
	switch record.Status {
	case models.FeeStatusPaid:
		return utils.InvalidStateError(fmt.Sprintf("Fee record %d is already paid", record.ID))
	case models.FeeStatusWaived:
		return utils.InvalidStateError(fmt.Sprintf("Fee record %d has been waived", record.ID))
	}
	if !record.Balance().IsPositive() {
		return utils.InvalidStateError(fmt.Sprintf("Nothing is due on fee record %d", record.ID))
	}
	return nil
}

// saveBalance writes only the columns a payment or refund changes
func saveBalance(tx *gorm.DB, record *models.FeeRecord) error {
	return tx.Model(&models.FeeRecord{}).
		Where("id = ?", record.ID).
		Updates(map[string]interface{}{
			"paid_amount": record.PaidAmount,
			"status":      record.Status,
			"paid_at":     record.PaidAt,
		}).Error
}

func creditOf(record *models.FeeRecord, credited decimal.Decimal) RecordCredit {
	return RecordCredit{
		RecordID:   record.ID,
		Credited:   credited,
		PaidAmount: record.PaidAmount,
		Balance:    record.Balance(),
		Status:     record.Status,
	}
}

func totalBalance(records []models.FeeRecord) decimal.Decimal {
	total := decimal.Zero
	for i := range records {
		total = total.Add(records[i].Balance())
	}
	return total
}

func distinct(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func joinIDs(ids []uint) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ",")
}
