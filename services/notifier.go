package services

import (
	"context"
	"fmt"
	"html"
	"sync"

	"github.com/Govind-619/Tutorix/models"
	"github.com/Govind-619/Tutorix/utils"
	"gorm.io/gorm"
)

// Notifier emails payment receipts. Delivery is best effort and runs in the
// background: failures are logged and never reach the payment flow.
type Notifier struct {
	db       *gorm.DB
	mailer   utils.Mailer
	receipts *ReceiptService
	wg       sync.WaitGroup
}

// NewNotifier creates a new Notifier
func NewNotifier(db *gorm.DB, mailer utils.Mailer) *Notifier {
	return &Notifier{db: db, mailer: mailer, receipts: NewReceiptService(db)}
}

// PaymentsReceived queues one receipt per payment to the member and, for
// wards, to the parent. It returns before any mail is sent; the sends outlive
// the caller's request context.
func (n *Notifier) PaymentsReceived(ctx context.Context, payments []models.FeePayment) {
	if n.mailer == nil || len(payments) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		for _, p := range payments {
			if err := n.send(ctx, p.ID); err != nil {
				utils.LogWarn("Receipt email for payment %d not sent: %v", p.ID, err)
			}
		}
	}()
}

// Wait blocks until queued receipts have been sent or given up on
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func (n *Notifier) send(ctx context.Context, paymentID uint) error {
	data, err := n.receipts.load(ctx, paymentID)
	if err != nil {
		return err
	}

	recipients := []string{}
	if data.Payer.Email != "" {
		recipients = append(recipients, data.Payer.Email)
	}
	if parentID := data.Record.Member.ParentUserID; parentID != nil {
		var parent models.User
		if err := n.db.WithContext(ctx).First(&parent, *parentID).Error; err == nil && parent.Email != "" {
			recipients = append(recipients, parent.Email)
		}
	}
	if len(recipients) == 0 {
		return fmt.Errorf("no recipient email on file")
	}

	var attachments []utils.Attachment
	pdf, err := renderReceipt(data)
	if err != nil {
		utils.LogWarn("Receipt PDF for payment %d not rendered: %v", paymentID, err)
	} else {
		attachments = append(attachments, utils.Attachment{Name: receiptFilename(&data.Payment), Data: pdf})
	}

	subject := fmt.Sprintf("Payment received - %s", data.Coaching.Name)
	body := fmt.Sprintf(`<p>Dear %s,</p>
<p>We have received <b>%s</b> towards <b>%s</b>.</p>
<p>Balance due: %s</p>
<p>Regards,<br>%s</p>`,
		html.EscapeString(data.Payer.Name),
		rupees(data.Payment.Amount),
		html.EscapeString(data.Record.Title),
		rupees(data.Record.Balance()),
		html.EscapeString(data.Coaching.Name),
	)

	for _, to := range recipients {
		if err := n.mailer.Send(to, subject, body, attachments...); err != nil {
			return fmt.Errorf("send to %s: %v", to, err)
		}
	}
	utils.LogInfo("Receipt for payment %d emailed to %d recipient(s)", paymentID, len(recipients))
	return nil
}
