package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Govind-619/Tutorix/gateway"
	"github.com/Govind-619/Tutorix/models"
	"github.com/Govind-619/Tutorix/testutil"
	"github.com/Govind-619/Tutorix/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestVerifyPayment_PartialThenFull(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	coachingID := env.fx.Coaching.ID
	student := env.fx.Student.UserID
	testutil.EnableOnlinePayments(t, env.db, coachingID)
	record := testutil.CreateTestRecord(t, env.db, coachingID, env.fx.Student.ID, testutil.Money("1000"), day(2024, time.January, 10))

	env.expectOrder("order_A", 60000)
	first := testutil.Money("600")
	order, err := env.payments.CreateOrder(ctx, coachingID, record.ID, student, &first)
	require.NoError(t, err)
	assert.Equal(t, "order_A", order.OrderID)
	assert.Equal(t, int64(60000), order.AmountPaise)
	assert.Equal(t, platformKey, order.Key)
	assert.Equal(t, "student@brightminds.test", order.Prefill.Email)

	res, err := env.payments.VerifyPayment(ctx, coachingID, record.ID, signed("order_A", "pay_A"), student)
	require.NoError(t, err)
	assert.False(t, res.AlreadyProcessed)

	got := testutil.ReloadRecord(t, env.db, record.ID)
	assert.True(t, testutil.Money("600").Equal(got.PaidAmount))
	assert.Equal(t, models.FeeStatusPartiallyPaid, got.Status)
	assert.Nil(t, got.PaidAt)

	env.expectOrder("order_B", 40000)
	_, err = env.payments.CreateOrder(ctx, coachingID, record.ID, student, nil)
	require.NoError(t, err)
	_, err = env.payments.VerifyPayment(ctx, coachingID, record.ID, signed("order_B", "pay_B"), student)
	require.NoError(t, err)

	got = testutil.ReloadRecord(t, env.db, record.ID)
	assert.True(t, testutil.Money("1000").Equal(got.PaidAmount))
	assert.Equal(t, models.FeeStatusPaid, got.Status)
	assert.NotNil(t, got.PaidAt)

	var orders []models.PaymentOrder
	require.NoError(t, env.db.Find(&orders).Error)
	for _, o := range orders {
		assert.Equal(t, models.OrderStatusPaid, o.Status)
	}
	env.gw.AssertExpectations(t)
}

func TestVerifyPayment_ReplayIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	coachingID := env.fx.Coaching.ID
	student := env.fx.Student.UserID
	testutil.EnableOnlinePayments(t, env.db, coachingID)
	record := testutil.CreateTestRecord(t, env.db, coachingID, env.fx.Student.ID, testutil.Money("1000"), day(2024, time.January, 10))

	env.expectOrder("order_R", 100000)
	_, err := env.payments.CreateOrder(ctx, coachingID, record.ID, student, nil)
	require.NoError(t, err)

	in := signed("order_R", "pay_R")
	_, err = env.payments.VerifyPayment(ctx, coachingID, record.ID, in, student)
	require.NoError(t, err)

	again, err := env.payments.VerifyPayment(ctx, coachingID, record.ID, in, student)
	require.NoError(t, err)
	assert.True(t, again.AlreadyProcessed)
	require.Len(t, again.Records, 1)
	assert.True(t, testutil.Money("1000").Equal(again.Records[0].Credited))

	got := testutil.ReloadRecord(t, env.db, record.ID)
	assert.True(t, testutil.Money("1000").Equal(got.PaidAmount))

	var count int64
	env.db.Model(&models.FeePayment{}).Where("razorpay_payment_id = ?", "pay_R").Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestVerifyPayment_TamperedSignature(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	coachingID := env.fx.Coaching.ID
	student := env.fx.Student.UserID
	testutil.EnableOnlinePayments(t, env.db, coachingID)
	record := testutil.CreateTestRecord(t, env.db, coachingID, env.fx.Student.ID, testutil.Money("500"), day(2024, time.January, 10))

	env.expectOrder("order_T", 50000)
	_, err := env.payments.CreateOrder(ctx, coachingID, record.ID, student, nil)
	require.NoError(t, err)

	in := signed("order_T", "pay_T")
	sig := []byte(in.Signature)
	if sig[0] == 'a' {
		sig[0] = 'b'
	} else {
		sig[0] = 'a'
	}
	in.Signature = string(sig)

	_, err = env.payments.VerifyPayment(ctx, coachingID, record.ID, in, student)
	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrSignatureInvalid))

	got := testutil.ReloadRecord(t, env.db, record.ID)
	assert.True(t, got.PaidAmount.IsZero())
	assert.Equal(t, models.FeeStatusPending, got.Status)

	var order models.PaymentOrder
	require.NoError(t, env.db.Where("razorpay_order_id = ?", "order_T").First(&order).Error)
	assert.Equal(t, models.OrderStatusCreated, order.Status)

	var count int64
	env.db.Model(&models.FeePayment{}).Count(&count)
	assert.Zero(t, count)
}

func TestVerifyPayment_SignatureForAnotherPayment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	coachingID := env.fx.Coaching.ID
	student := env.fx.Student.UserID
	testutil.EnableOnlinePayments(t, env.db, coachingID)
	record := testutil.CreateTestRecord(t, env.db, coachingID, env.fx.Student.ID, testutil.Money("500"), day(2024, time.January, 10))

	env.expectOrder("order_X", 50000)
	_, err := env.payments.CreateOrder(ctx, coachingID, record.ID, student, nil)
	require.NoError(t, err)

	in := signed("order_X", "pay_other")
	in.PaymentID = "pay_X"
	_, err = env.payments.VerifyPayment(ctx, coachingID, record.ID, in, student)
	assert.True(t, errors.Is(err, utils.ErrSignatureInvalid))
}

func TestVerifyPayment_OrderOfAnotherRecord(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	coachingID := env.fx.Coaching.ID
	student := env.fx.Student.UserID
	testutil.EnableOnlinePayments(t, env.db, coachingID)
	first := testutil.CreateTestRecord(t, env.db, coachingID, env.fx.Student.ID, testutil.Money("500"), day(2024, time.January, 10))
	second := testutil.CreateTestRecord(t, env.db, coachingID, env.fx.Student.ID, testutil.Money("500"), day(2024, time.February, 10))

	env.expectOrder("order_1", 50000)
	_, err := env.payments.CreateOrder(ctx, coachingID, first.ID, student, nil)
	require.NoError(t, err)

	_, err = env.payments.VerifyPayment(ctx, coachingID, second.ID, signed("order_1", "pay_1"), student)
	assert.True(t, errors.Is(err, utils.ErrInvalidState))
	assert.True(t, testutil.ReloadRecord(t, env.db, second.ID).PaidAmount.IsZero())
}

func TestCreateOrder_Rejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	coachingID := env.fx.Coaching.ID
	student := env.fx.Student.UserID
	record := testutil.CreateTestRecord(t, env.db, coachingID, env.fx.Student.ID, testutil.Money("500"), day(2024, time.January, 10))

	t.Run("online payments disabled", func(t *testing.T) {
		_, err := env.payments.CreateOrder(ctx, coachingID, record.ID, student, nil)
		assert.True(t, errors.Is(err, utils.ErrInvalidState))
	})

	testutil.EnableOnlinePayments(t, env.db, coachingID)

	t.Run("outsider", func(t *testing.T) {
		_, err := env.payments.CreateOrder(ctx, coachingID, record.ID, env.fx.Outsider.ID, nil)
		assert.True(t, errors.Is(err, utils.ErrForbidden))
	})

	t.Run("amount above balance", func(t *testing.T) {
		amount := testutil.Money("500.01")
		_, err := env.payments.CreateOrder(ctx, coachingID, record.ID, student, &amount)
		assert.True(t, errors.Is(err, utils.ErrInvalidState))
	})

	t.Run("zero amount", func(t *testing.T) {
		amount := decimal.Zero
		_, err := env.payments.CreateOrder(ctx, coachingID, record.ID, student, &amount)
		assert.True(t, errors.Is(err, utils.ErrInvalidState))
	})

	t.Run("unknown record", func(t *testing.T) {
		_, err := env.payments.CreateOrder(ctx, coachingID, 9999, student, nil)
		assert.True(t, errors.Is(err, utils.ErrNotFound))
	})

	t.Run("paid record", func(t *testing.T) {
		require.NoError(t, env.db.Model(&models.FeeRecord{}).Where("id = ?", record.ID).
			Updates(map[string]interface{}{"paid_amount": testutil.Money("500"), "status": models.FeeStatusPaid}).Error)
		_, err := env.payments.CreateOrder(ctx, coachingID, record.ID, student, nil)
		assert.True(t, errors.Is(err, utils.ErrInvalidState))
	})

	t.Run("waived record", func(t *testing.T) {
		waived := testutil.CreateTestRecord(t, env.db, coachingID, env.fx.Student.ID, testutil.Money("500"), day(2024, time.March, 10))
		require.NoError(t, env.db.Model(&models.FeeRecord{}).Where("id = ?", waived.ID).Update("status", models.FeeStatusWaived).Error)
		_, err := env.payments.CreateOrder(ctx, coachingID, waived.ID, student, nil)
		assert.True(t, errors.Is(err, utils.ErrInvalidState))
	})

	env.gw.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
}

func TestCreateOrder_ParentAndAdminMayPay(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	coachingID := env.fx.Coaching.ID
	testutil.EnableOnlinePayments(t, env.db, coachingID)
	record := testutil.CreateTestRecord(t, env.db, coachingID, env.fx.Student.ID, testutil.Money("500"), day(2024, time.January, 10))

	env.expectOrder("order_parent", 50000)
	_, err := env.payments.CreateOrder(ctx, coachingID, record.ID, env.fx.Parent.ID, nil)
	require.NoError(t, err)

	env.expectOrder("order_admin", 50000)
	_, err = env.payments.CreateOrder(ctx, coachingID, record.ID, env.fx.Admin.UserID, nil)
	require.NoError(t, err)
}

func TestCreateOrder_GatewayFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	coachingID := env.fx.Coaching.ID
	testutil.EnableOnlinePayments(t, env.db, coachingID)
	record := testutil.CreateTestRecord(t, env.db, coachingID, env.fx.Student.ID, testutil.Money("500"), day(2024, time.January, 10))

	env.gw.On("CreateOrder", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset")).Once()

	_, err := env.payments.CreateOrder(ctx, coachingID, record.ID, env.fx.Student.UserID, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrGateway))
	appErr := utils.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, 502, appErr.Code)

	var count int64
	env.db.Model(&models.PaymentOrder{}).Count(&count)
	assert.Zero(t, count)
}

func TestCreateOrder_RoutesToLinkedAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	coachingID := env.fx.Coaching.ID
	require.NoError(t, env.db.Create(&models.PaymentSettings{
		CoachingID:            coachingID,
		OnlinePaymentsEnabled: true,
		LinkedAccountID:       "acc_linked",
		LinkedAccountStatus:   models.LinkedAccountActivated,
	}).Error)
	record := testutil.CreateTestRecord(t, env.db, coachingID, env.fx.Student.ID, testutil.Money("750"), day(2024, time.January, 10))

	env.gw.On("CreateOrder", mock.Anything, mock.MatchedBy(func(req gateway.OrderRequest) bool {
		return len(req.Transfers) == 1 &&
			req.Transfers[0].Account == "acc_linked" &&
			req.Transfers[0].AmountPaise == 75000 &&
			req.Credentials.KeyID == platformKey
	})).Return(&gateway.Order{ID: "order_route"}, nil).Once()

	_, err := env.payments.CreateOrder(ctx, coachingID, record.ID, env.fx.Student.UserID, nil)
	require.NoError(t, err)
	env.gw.AssertExpectations(t)
}

func TestVerifyPayment_OwnGatewaySecret(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	coachingID := env.fx.Coaching.ID
	sealed, err := env.secrets.Seal("coaching_secret")
	require.NoError(t, err)
	require.NoError(t, env.db.Create(&models.PaymentSettings{
		CoachingID:              coachingID,
		OnlinePaymentsEnabled:   true,
		UseOwnGateway:           true,
		RazorpayKeyID:           "rzp_test_coaching",
		RazorpayKeySecretSealed: sealed,
	}).Error)
	record := testutil.CreateTestRecord(t, env.db, coachingID, env.fx.Student.ID, testutil.Money("500"), day(2024, time.January, 10))
	student := env.fx.Student.UserID

	env.gw.On("CreateOrder", mock.Anything, mock.MatchedBy(func(req gateway.OrderRequest) bool {
		return req.Credentials.KeyID == "rzp_test_coaching" && req.Credentials.KeySecret == "coaching_secret" && len(req.Transfers) == 0
	})).Return(&gateway.Order{ID: "order_own"}, nil).Once()

	order, err := env.payments.CreateOrder(ctx, coachingID, record.ID, student, nil)
	require.NoError(t, err)
	assert.Equal(t, "rzp_test_coaching", order.Key)

	// platform secret no longer verifies
	_, err = env.payments.VerifyPayment(ctx, coachingID, record.ID, signed("order_own", "pay_own"), student)
	assert.True(t, errors.Is(err, utils.ErrSignatureInvalid))

	in := VerifyInput{OrderID: "order_own", PaymentID: "pay_own", Signature: gateway.SignPayment("order_own", "pay_own", "coaching_secret")}
	_, err = env.payments.VerifyPayment(ctx, coachingID, record.ID, in, student)
	require.NoError(t, err)
	assert.Equal(t, models.FeeStatusPaid, testutil.ReloadRecord(t, env.db, record.ID).Status)
}

func TestVerifyPayment_KeepsOrderCredentialsAfterSwitch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	coachingID := env.fx.Coaching.ID
	testutil.EnableOnlinePayments(t, env.db, coachingID)
	record := testutil.CreateTestRecord(t, env.db, coachingID, env.fx.Student.ID, testutil.Money("800"), day(2024, time.January, 10))
	student := env.fx.Student.UserID

	env.expectOrder("order_switch", 80000)
	order, err := env.payments.CreateOrder(ctx, coachingID, record.ID, student, nil)
	require.NoError(t, err)
	assert.Equal(t, platformKey, order.Key)

	// the coaching moves to its own account while checkout is open
	sealed, err := env.secrets.Seal("coaching_secret")
	require.NoError(t, err)
	require.NoError(t, env.db.Model(&models.PaymentSettings{}).Where("coaching_id = ?", coachingID).Updates(map[string]interface{}{
		"use_own_gateway":            true,
		"razorpay_key_id":            "rzp_test_coaching",
		"razorpay_key_secret_sealed": sealed,
	}).Error)

	res, err := env.payments.VerifyPayment(ctx, coachingID, record.ID, signed("order_switch", "pay_switch"), student)
	require.NoError(t, err)
	assert.False(t, res.AlreadyProcessed)
	got := testutil.ReloadRecord(t, env.db, record.ID)
	assert.True(t, testutil.Money("800").Equal(got.PaidAmount))

	var payment models.FeePayment
	require.NoError(t, env.db.Where("razorpay_payment_id = ?", "pay_switch").First(&payment).Error)
	assert.Equal(t, platformKey, payment.GatewayKeyID)

	// the refund goes back through the account that collected it
	env.gw.On("Refund", mock.Anything, mock.MatchedBy(func(req gateway.RefundRequest) bool {
		return req.Credentials.KeyID == platformKey && req.Credentials.KeySecret == platformSecret
	})).Return(&gateway.Refund{ID: "rfnd_switch", PaymentID: "pay_switch", Status: "processed"}, nil).Once()
	_, err = env.refunds.InitiateOnlineRefund(ctx, coachingID, record.ID, RefundInput{PaymentID: payment.ID}, env.fx.Admin.UserID)
	require.NoError(t, err)
	env.gw.AssertExpectations(t)
}

func TestVerifyPayment_RotatedKeyRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	coachingID := env.fx.Coaching.ID
	sealed, err := env.secrets.Seal("coaching_secret")
	require.NoError(t, err)
	require.NoError(t, env.db.Create(&models.PaymentSettings{
		CoachingID:              coachingID,
		OnlinePaymentsEnabled:   true,
		UseOwnGateway:           true,
		RazorpayKeyID:           "rzp_test_old",
		RazorpayKeySecretSealed: sealed,
	}).Error)
	record := testutil.CreateTestRecord(t, env.db, coachingID, env.fx.Student.ID, testutil.Money("500"), day(2024, time.January, 10))
	student := env.fx.Student.UserID

	env.expectOrder("order_rotated", 50000)
	_, err = env.payments.CreateOrder(ctx, coachingID, record.ID, student, nil)
	require.NoError(t, err)

	require.NoError(t, env.db.Model(&models.PaymentSettings{}).Where("coaching_id = ?", coachingID).
		Update("razorpay_key_id", "rzp_test_new").Error)

	in := VerifyInput{OrderID: "order_rotated", PaymentID: "pay_rotated", Signature: gateway.SignPayment("order_rotated", "pay_rotated", "coaching_secret")}
	_, err = env.payments.VerifyPayment(ctx, coachingID, record.ID, in, student)
	assert.True(t, errors.Is(err, utils.ErrInvalidState))
	assert.True(t, testutil.ReloadRecord(t, env.db, record.ID).PaidAmount.IsZero())
}

func TestVerifyPayment_LosesRaceOnUniqueIndex(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	coachingID := env.fx.Coaching.ID
	student := env.fx.Student.UserID
	testutil.EnableOnlinePayments(t, env.db, coachingID)
	record := testutil.CreateTestRecord(t, env.db, coachingID, env.fx.Student.ID, testutil.Money("800"), day(2024, time.January, 10))

	env.expectOrder("order_race", 80000)
	_, err := env.payments.CreateOrder(ctx, coachingID, record.ID, student, nil)
	require.NoError(t, err)

	// a concurrent confirmation commits right after the duplicate check ran
	fired := false
	require.NoError(t, env.db.Callback().Query().After("gorm:query").Register("test:concurrent_credit", func(db *gorm.DB) {
		if fired || db.Statement.Table != "fee_payments" {
			return
		}
		if _, ok := db.Statement.Dest.(*int64); !ok {
			return
		}
		fired = true
		seedOnlinePayment(t, db.Session(&gorm.Session{NewDB: true}), record, "pay_race", "800")
	}))

	res, err := env.payments.VerifyPayment(ctx, coachingID, record.ID, signed("order_race", "pay_race"), student)
	require.NoError(t, err)
	require.True(t, fired)
	assert.True(t, res.AlreadyProcessed)
	require.Len(t, res.Records, 1)
	assert.True(t, testutil.Money("800").Equal(res.Records[0].Credited))

	got := testutil.ReloadRecord(t, env.db, record.ID)
	assert.True(t, testutil.Money("800").Equal(got.PaidAmount), "paid %s", got.PaidAmount)
	assert.Equal(t, models.FeeStatusPaid, got.Status)

	var count int64
	env.db.Model(&models.FeePayment{}).Where("razorpay_payment_id = ?", "pay_race").Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestMultiPay_SplitsByDueDate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	coachingID := env.fx.Coaching.ID
	student := env.fx.Student.UserID
	testutil.EnableOnlinePayments(t, env.db, coachingID)

	// created out of due date order so ids do not match allocation order
	feb := testutil.CreateTestRecord(t, env.db, coachingID, env.fx.Student.ID, testutil.Money("500"), day(2024, time.February, 1))
	jan := testutil.CreateTestRecord(t, env.db, coachingID, env.fx.Student.ID, testutil.Money("300"), day(2024, time.January, 1))

	order := models.PaymentOrder{
		ID:              "6f1c1f1e-0000-4000-8000-000000000001",
		CoachingID:      coachingID,
		UserID:          student,
		RazorpayOrderID: "order_multi",
		Amount:          testutil.Money("600"),
		AmountPaise:     60000,
		IsMulti:         true,
		Status:          models.OrderStatusCreated,
		Records: []models.PaymentOrderRecord{
			{RecordID: feb.ID},
			{RecordID: jan.ID},
		},
	}
	require.NoError(t, env.db.Create(&order).Error)

	res, err := env.payments.VerifyMultiPayment(ctx, coachingID, signed("order_multi", "pay_multi"), student)
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Equal(t, jan.ID, res.Records[0].RecordID)
	assert.Equal(t, feb.ID, res.Records[1].RecordID)

	gotJan := testutil.ReloadRecord(t, env.db, jan.ID)
	gotFeb := testutil.ReloadRecord(t, env.db, feb.ID)
	assert.True(t, testutil.Money("300").Equal(gotJan.PaidAmount))
	assert.Equal(t, models.FeeStatusPaid, gotJan.Status)
	assert.True(t, testutil.Money("300").Equal(gotFeb.PaidAmount))
	assert.Equal(t, models.FeeStatusPartiallyPaid, gotFeb.Status)

	var payments []models.FeePayment
	require.NoError(t, env.db.Where("razorpay_payment_id = ?", "pay_multi").Find(&payments).Error)
	assert.Len(t, payments, 2)
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	assert.True(t, testutil.Money("600").Equal(total))

	again, err := env.payments.VerifyMultiPayment(ctx, coachingID, signed("order_multi", "pay_multi"), student)
	require.NoError(t, err)
	assert.True(t, again.AlreadyProcessed)
	assert.True(t, testutil.Money("300").Equal(testutil.ReloadRecord(t, env.db, feb.ID).PaidAmount))
}

func TestMultiPay_CreateAndVerify(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	coachingID := env.fx.Coaching.ID
	student := env.fx.Student.UserID
	testutil.EnableOnlinePayments(t, env.db, coachingID)
	a := testutil.CreateTestRecord(t, env.db, coachingID, env.fx.Student.ID, testutil.Money("300"), day(2024, time.January, 1))
	b := testutil.CreateTestRecord(t, env.db, coachingID, env.fx.Student.ID, testutil.Money("500"), day(2024, time.February, 1))

	env.expectOrder("order_bundle", 80000)
	order, err := env.payments.CreateMultiOrder(ctx, coachingID, student, []uint{b.ID, a.ID, b.ID})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{a.ID, b.ID}, order.RecordIDs)

	var mapped int64
	env.db.Model(&models.PaymentOrderRecord{}).Where("order_id = ?", order.InternalOrderID).Count(&mapped)
	assert.Equal(t, int64(2), mapped)

	_, err = env.payments.VerifyMultiPayment(ctx, coachingID, signed("order_bundle", "pay_bundle"), student)
	require.NoError(t, err)
	assert.Equal(t, models.FeeStatusPaid, testutil.ReloadRecord(t, env.db, a.ID).Status)
	assert.Equal(t, models.FeeStatusPaid, testutil.ReloadRecord(t, env.db, b.ID).Status)
}

func TestMultiPay_RejectsPaidRecord(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	coachingID := env.fx.Coaching.ID
	testutil.EnableOnlinePayments(t, env.db, coachingID)
	a := testutil.CreateTestRecord(t, env.db, coachingID, env.fx.Student.ID, testutil.Money("300"), day(2024, time.January, 1))
	b := testutil.CreateTestRecord(t, env.db, coachingID, env.fx.Student.ID, testutil.Money("500"), day(2024, time.February, 1))
	require.NoError(t, env.db.Model(&models.FeeRecord{}).Where("id = ?", b.ID).
		Updates(map[string]interface{}{"paid_amount": testutil.Money("500"), "status": models.FeeStatusPaid}).Error)

	_, err := env.payments.CreateMultiOrder(ctx, coachingID, env.fx.Student.UserID, []uint{a.ID, b.ID})
	assert.True(t, errors.Is(err, utils.ErrInvalidState))

	_, err = env.payments.CreateMultiOrder(ctx, coachingID, env.fx.Student.UserID, nil)
	assert.True(t, errors.Is(err, utils.ErrValidation))

	_, err = env.payments.CreateMultiOrder(ctx, coachingID, env.fx.Student.UserID, []uint{a.ID, 4242})
	assert.True(t, errors.Is(err, utils.ErrNotFound))
}

func TestMarkOrderFailed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	coachingID := env.fx.Coaching.ID
	student := env.fx.Student.UserID
	testutil.EnableOnlinePayments(t, env.db, coachingID)
	record := testutil.CreateTestRecord(t, env.db, coachingID, env.fx.Student.ID, testutil.Money("500"), day(2024, time.January, 10))

	env.expectOrder("order_F", 50000)
	order, err := env.payments.CreateOrder(ctx, coachingID, record.ID, student, nil)
	require.NoError(t, err)

	assert.False(t, env.payments.MarkOrderFailed(ctx, coachingID, order.InternalOrderID, "cancelled", env.fx.Outsider.ID))
	assert.False(t, env.payments.MarkOrderFailed(ctx, coachingID, "no-such-order", "cancelled", student))
	assert.True(t, env.payments.MarkOrderFailed(ctx, coachingID, order.InternalOrderID, "user closed checkout", student))
	assert.False(t, env.payments.MarkOrderFailed(ctx, coachingID, order.InternalOrderID, "again", student), "only CREATED orders can fail")

	var stored models.PaymentOrder
	require.NoError(t, env.db.First(&stored, "id = ?", order.InternalOrderID).Error)
	assert.Equal(t, models.OrderStatusFailed, stored.Status)
	assert.Equal(t, "user closed checkout", stored.FailureReason)

	// a valid signature still credits a failed order
	_, err = env.payments.VerifyPayment(ctx, coachingID, record.ID, signed("order_F", "pay_F"), student)
	require.NoError(t, err)
	assert.Equal(t, models.FeeStatusPaid, testutil.ReloadRecord(t, env.db, record.ID).Status)
}

func TestListFailedOrders(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	coachingID := env.fx.Coaching.ID
	student := env.fx.Student.UserID
	testutil.EnableOnlinePayments(t, env.db, coachingID)
	record := testutil.CreateTestRecord(t, env.db, coachingID, env.fx.Student.ID, testutil.Money("500"), day(2024, time.January, 10))

	env.expectOrder("order_failed", 50000)
	failed, err := env.payments.CreateOrder(ctx, coachingID, record.ID, student, nil)
	require.NoError(t, err)
	env.payments.MarkOrderFailed(ctx, coachingID, failed.InternalOrderID, "bank declined", student)

	env.expectOrder("order_pending", 50000)
	_, err = env.payments.CreateOrder(ctx, coachingID, record.ID, student, nil)
	require.NoError(t, err)

	orders, err := env.payments.ListFailedOrders(ctx, coachingID, record.ID, student)
	require.NoError(t, err)
	require.Len(t, orders, 1, "fresh CREATED orders are not abandoned yet")
	assert.Equal(t, "order_failed", orders[0].RazorpayOrderID)

	later := NewPaymentService(env.db, env.gw, PaymentOptions{
		KeyID: platformKey, KeySecret: platformSecret,
		Now:   func() time.Time { return time.Now().Add(time.Hour) },
	})
	orders, err = later.ListFailedOrders(ctx, coachingID, record.ID, student)
	require.NoError(t, err)
	assert.Len(t, orders, 2)

	_, err = env.payments.ListFailedOrders(ctx, coachingID, record.ID, env.fx.Outsider.ID)
	assert.True(t, errors.Is(err, utils.ErrForbidden))
}

func TestListOnlinePayments(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	coachingID := env.fx.Coaching.ID
	record := testutil.CreateTestRecord(t, env.db, coachingID, env.fx.Student.ID, testutil.Money("500"), day(2024, time.January, 10))
	payment := seedOnlinePayment(t, env.db, record, "pay_L", "500")
	require.NoError(t, env.db.Create(&models.FeePayment{
		CoachingID: coachingID, RecordID: record.ID, Amount: testutil.Money("10"),
		Mode:       models.ModeCash, PaidAt: time.Now(),
	}).Error)
	seedRefund(t, env.db, payment, "100")

	list, err := env.payments.ListOnlinePayments(ctx, coachingID, record.ID, env.fx.Admin.UserID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, testutil.Money("100").Equal(list[0].Refunded))
	assert.True(t, testutil.Money("400").Equal(list[0].Refundable))

	_, err = env.payments.ListOnlinePayments(ctx, coachingID, record.ID, env.fx.Student.UserID)
	assert.True(t, errors.Is(err, utils.ErrForbidden))
}

func TestPublicConfig(t *testing.T) {
	env := newTestEnv(t)
	cfg, err := env.payments.PublicConfig(context.Background(), env.fx.Coaching.ID)
	require.NoError(t, err)
	assert.Equal(t, platformKey, cfg.Key)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "INR", cfg.Currency)
}

func TestIsDuplicateKey(t *testing.T) {
	assert.True(t, isDuplicateKey(gorm.ErrDuplicatedKey))
	assert.True(t, isDuplicateKey(errors.New("UNIQUE constraint failed: fee_payments.record_id")))
	assert.True(t, isDuplicateKey(errors.New(`ERROR: duplicate key value violates unique constraint "idx_payment_gateway_record"`)))
	assert.False(t, isDuplicateKey(errors.New("connection refused")))
	assert.False(t, isDuplicateKey(nil))
}

// seedOnlinePayment records a captured gateway payment and credits the record
func seedOnlinePayment(t *testing.T, db *gorm.DB, record models.FeeRecord, paymentID, amount string) models.FeePayment {
	t.Helper()
	pid := paymentID
	payment := models.FeePayment{
		CoachingID:        record.CoachingID,
		RecordID:          record.ID,
		Amount:            testutil.Money(amount),
		Mode:              models.ModeRazorpay,
		RazorpayPaymentID: &pid,
		PaidAt:            time.Now(),
	}
	require.NoError(t, db.Create(&payment).Error)
	current := testutil.ReloadRecord(t, db, record.ID)
	current.Credit(payment.Amount, payment.PaidAt)
	require.NoError(t, saveBalance(db, &current))
	return payment
}

// seedRefund records an earlier refund and debits the record
func seedRefund(t *testing.T, db *gorm.DB, payment models.FeePayment, amount string) {
	t.Helper()
	refund := models.FeeRefund{
		PaymentID:  payment.ID,
		RecordID:   payment.RecordID,
		Amount:     testutil.Money(amount),
		Mode:       models.ModeRazorpay,
		RefundedAt: time.Now(),
	}
	require.NoError(t, db.Create(&refund).Error)
	current := testutil.ReloadRecord(t, db, payment.RecordID)
	current.Debit(refund.Amount)
	require.NoError(t, saveBalance(db, &current))
}

func TestSimulatePayment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	coachingID := env.fx.Coaching.ID
	student := env.fx.Student.UserID
	testutil.EnableOnlinePayments(t, env.db, coachingID)
	record := testutil.CreateTestRecord(t, env.db, coachingID, env.fx.Student.ID, testutil.Money("500"), day(2024, time.January, 10))

	env.expectOrder("order_S", 50000)
	_, err := env.payments.CreateOrder(ctx, coachingID, record.ID, student, nil)
	require.NoError(t, err)

	sim, err := env.payments.SimulatePayment(ctx, "order_S")
	require.NoError(t, err)
	assert.Equal(t, "pay_test_S", sim.PaymentID)

	_, err = env.payments.VerifyPayment(ctx, coachingID, record.ID, VerifyInput{
		OrderID:   sim.OrderID,
		PaymentID: sim.PaymentID,
		Signature: sim.Signature,
	}, student)
	require.NoError(t, err)

	_, err = env.payments.SimulatePayment(ctx, "order_S")
	assert.ErrorIs(t, err, utils.ErrInvalidState, "a paid order cannot be simulated again")
	_, err = env.payments.SimulatePayment(ctx, "order_missing")
	assert.ErrorIs(t, err, utils.ErrNotFound)
}
