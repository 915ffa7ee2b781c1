package services

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Govind-619/Tutorix/models"
	"github.com/Govind-619/Tutorix/testutil"
	"github.com/Govind-619/Tutorix/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestReceipt(t *testing.T) {
	env := newTestEnv(t)
	svc := NewReceiptService(env.db)
	ctx := context.Background()
	record := testutil.CreateTestRecord(t, env.db, env.fx.Coaching.ID, env.fx.Student.ID, testutil.Money("500"), day(2024, time.January, 10))
	payment := seedOnlinePayment(t, env.db, record, "pay_receipt", "500")

	pdf, name, err := svc.Receipt(ctx, env.fx.Coaching.ID, record.ID, payment.ID, env.fx.Student.UserID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
	assert.Contains(t, name, "receipt_")

	_, _, err = svc.Receipt(ctx, env.fx.Coaching.ID, record.ID, payment.ID, env.fx.Outsider.ID)
	assert.True(t, errors.Is(err, utils.ErrForbidden))

	other := testutil.CreateTestRecord(t, env.db, env.fx.Coaching.ID, env.fx.Student.ID, testutil.Money("500"), day(2024, time.February, 10))
	_, _, err = svc.Receipt(ctx, env.fx.Coaching.ID, other.ID, payment.ID, env.fx.Student.UserID)
	assert.True(t, errors.Is(err, utils.ErrNotFound))
}

func TestCollectionReport(t *testing.T) {
	env := newTestEnv(t)
	svc := NewReceiptService(env.db)
	ctx := context.Background()
	record := testutil.CreateTestRecord(t, env.db, env.fx.Coaching.ID, env.fx.Student.ID, testutil.Money("1000"), day(2024, time.January, 10))
	online := seedOnlinePayment(t, env.db, record, "pay_report", "600")
	seedRefund(t, env.db, online, "100")
	require.NoError(t, env.db.Create(&models.FeePayment{
		CoachingID: env.fx.Coaching.ID, RecordID: record.ID, Amount: testutil.Money("200"),
		Mode:       models.ModeCash, PaidAt: time.Now(),
	}).Error)

	from := time.Now().Add(-24 * time.Hour)
	to := time.Now().Add(24 * time.Hour)
	data, summary, err := svc.CollectionReport(ctx, env.fx.Coaching.ID, env.fx.Admin.UserID, from, to)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.Equal(t, 2, summary.Payments)
	assert.True(t, testutil.Money("800").Equal(summary.Collected))
	assert.True(t, testutil.Money("600").Equal(summary.Online))
	assert.True(t, testutil.Money("200").Equal(summary.Offline))
	assert.True(t, testutil.Money("100").Equal(summary.Refunded))
	assert.True(t, testutil.Money("700").Equal(summary.NetReceived))

	_, _, err = svc.CollectionReport(ctx, env.fx.Coaching.ID, env.fx.Admin.UserID, to, from)
	assert.True(t, errors.Is(err, utils.ErrValidation))

	_, _, err = svc.CollectionReport(ctx, env.fx.Coaching.ID, env.fx.Student.UserID, from, to)
	assert.True(t, errors.Is(err, utils.ErrForbidden))
}

func TestNotifier_EmailsMemberAndParent(t *testing.T) {
	env := newTestEnv(t)
	mailer := new(MockMailer)
	mailer.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	notifier := NewNotifier(env.db, mailer)
	payments := NewPaymentService(env.db, env.gw, PaymentOptions{
		KeyID: platformKey, KeySecret: platformSecret, Notifier: notifier,
	})

	ctx := context.Background()
	testutil.EnableOnlinePayments(t, env.db, env.fx.Coaching.ID)
	record := testutil.CreateTestRecord(t, env.db, env.fx.Coaching.ID, env.fx.Student.ID, testutil.Money("500"), day(2024, time.January, 10))
	env.expectOrder("order_N", 50000)
	_, err := payments.CreateOrder(ctx, env.fx.Coaching.ID, record.ID, env.fx.Student.UserID, nil)
	require.NoError(t, err)
	_, err = payments.VerifyPayment(ctx, env.fx.Coaching.ID, record.ID, signed("order_N", "pay_N"), env.fx.Student.UserID)
	require.NoError(t, err)
	notifier.Wait()

	assert.ElementsMatch(t, []string{"student@brightminds.test", "parent@brightminds.test"}, mailer.sent)
	mailer.AssertCalled(t, "Send", "student@brightminds.test", "Payment received - Bright Minds", mock.Anything,
		mock.MatchedBy(func(a []utils.Attachment) bool { return len(a) == 1 && len(a[0].Data) > 0 }))
}

func TestNotifier_MailFailureDoesNotFailPayment(t *testing.T) {
	env := newTestEnv(t)
	mailer := new(MockMailer)
	mailer.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down"))
	notifier := NewNotifier(env.db, mailer)
	payments := NewPaymentService(env.db, env.gw, PaymentOptions{
		KeyID: platformKey, KeySecret: platformSecret, Notifier: notifier,
	})

	ctx := context.Background()
	testutil.EnableOnlinePayments(t, env.db, env.fx.Coaching.ID)
	record := testutil.CreateTestRecord(t, env.db, env.fx.Coaching.ID, env.fx.Student.ID, testutil.Money("500"), day(2024, time.January, 10))
	env.expectOrder("order_M", 50000)
	_, err := payments.CreateOrder(ctx, env.fx.Coaching.ID, record.ID, env.fx.Student.UserID, nil)
	require.NoError(t, err)

	_, err = payments.VerifyPayment(ctx, env.fx.Coaching.ID, record.ID, signed("order_M", "pay_M"), env.fx.Student.UserID)
	require.NoError(t, err)
	assert.Equal(t, models.FeeStatusPaid, testutil.ReloadRecord(t, env.db, record.ID).Status)
	notifier.Wait()
	mailer.AssertCalled(t, "Send", "student@brightminds.test", mock.Anything, mock.Anything, mock.Anything)
}

func TestNotifier_SlowMailDoesNotHoldVerification(t *testing.T) {
	env := newTestEnv(t)
	release := make(chan time.Time)
	mailer := new(MockMailer)
	mailer.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		WaitUntil(release).Return(nil)
	notifier := NewNotifier(env.db, mailer)
	payments := NewPaymentService(env.db, env.gw, PaymentOptions{
		KeyID: platformKey, KeySecret: platformSecret, Notifier: notifier,
	})

	ctx, cancel := context.WithCancel(context.Background())
	testutil.EnableOnlinePayments(t, env.db, env.fx.Coaching.ID)
	record := testutil.CreateTestRecord(t, env.db, env.fx.Coaching.ID, env.fx.Student.ID, testutil.Money("500"), day(2024, time.January, 10))
	env.expectOrder("order_S", 50000)
	_, err := payments.CreateOrder(ctx, env.fx.Coaching.ID, record.ID, env.fx.Student.UserID, nil)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := payments.VerifyPayment(ctx, env.fx.Coaching.ID, record.ID, signed("order_S", "pay_S"), env.fx.Student.UserID)
		done <- err
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("verification waited on the mail server")
	}

	// the request is over; receipts still go out
	cancel()
	close(release)
	notifier.Wait()
	assert.ElementsMatch(t, []string{"student@brightminds.test", "parent@brightminds.test"}, mailer.sent)
}
