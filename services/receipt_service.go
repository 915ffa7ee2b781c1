package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Govind-619/Tutorix/models"
	"github.com/Govind-619/Tutorix/utils"
	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx"
	"gorm.io/gorm"
)

// ReceiptService renders payment receipts and collection reports
type ReceiptService struct {
	db *gorm.DB
}

// NewReceiptService creates a new ReceiptService
func NewReceiptService(db *gorm.DB) *ReceiptService {
	return &ReceiptService{db: db}
}

// receiptData is everything printed on one receipt
type receiptData struct {
	Coaching models.Coaching
	Payer    models.User
	Record   models.FeeRecord
	Payment  models.FeePayment
}

func (s *ReceiptService) load(ctx context.Context, paymentID uint) (*receiptData, error) {
	var data receiptData
	db := s.db.WithContext(ctx)
	if err := db.Preload("Refunds").First(&data.Payment, paymentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFoundError("Payment not found")
		}
		return nil, err
	}
	if err := db.Preload("Member.User").First(&data.Record, data.Payment.RecordID).Error; err != nil {
		return nil, err
	}
	if err := db.First(&data.Coaching, data.Record.CoachingID).Error; err != nil {
		return nil, err
	}
	data.Payer = data.Record.Member.User
	return &data, nil
}

// Receipt renders the PDF receipt of one payment on a record
func (s *ReceiptService) Receipt(ctx context.Context, coachingID, recordID, paymentID, userID uint) ([]byte, string, error) {
	record, err := loadRecord(ctx, s.db, coachingID, recordID)
	if err != nil {
		return nil, "", err
	}
	if err := canView(ctx, s.db, record, userID); err != nil {
		return nil, "", err
	}
	data, err := s.load(ctx, paymentID)
	if err != nil {
		return nil, "", err
	}
	if data.Payment.RecordID != record.ID {
		return nil, "", utils.NotFoundError("Payment not found for this fee record")
	}
	pdf, err := renderReceipt(data)
	if err != nil {
		return nil, "", err
	}
	utils.LogInfo("Receipt generated for payment %d on record %d", paymentID, recordID)
	return pdf, receiptFilename(&data.Payment), nil
}

func receiptFilename(p *models.FeePayment) string {
	return fmt.Sprintf("receipt_%d_%s.pdf", p.ID, p.PaidAt.Format("20060102"))
}

func rupees(d decimal.Decimal) string {
	return "Rs. " + d.StringFixed(2)
}

func renderReceipt(data *receiptData) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	// Header
	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(100, 10, data.Coaching.Name)
	pdf.SetFont("Arial", "", 11)
	pdf.Ln(8)
	if data.Coaching.Address != "" {
		pdf.Cell(100, 7, data.Coaching.Address)
		pdf.Ln(7)
	}
	pdf.Cell(100, 7, fmt.Sprintf("Email: %s | Phone: %s", data.Coaching.ContactEmail, data.Coaching.ContactPhone))
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(100, 10, "FEE RECEIPT")
	pdf.Ln(12)
	pdf.SetFont("Arial", "", 11)
	pdf.Cell(70, 7, fmt.Sprintf("Receipt No: %d", data.Payment.ID))
	pdf.Cell(70, 7, "Date: "+data.Payment.PaidAt.Format("02 Jan 2006 15:04"))
	pdf.Ln(7)
	pdf.Cell(70, 7, "Mode: "+string(data.Payment.Mode))
	if data.Payment.RazorpayPaymentID != nil {
		pdf.Cell(70, 7, "Transaction: "+*data.Payment.RazorpayPaymentID)
	}
	pdf.Ln(10)

	// Received from
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(100, 8, "Received From:")
	pdf.Ln(7)
	pdf.SetFont("Arial", "", 11)
	pdf.Cell(100, 7, data.Payer.Name)
	pdf.Ln(6)
	pdf.Cell(100, 7, data.Payer.Email)
	pdf.Ln(10)

	// Fee breakdown
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(110, 8, "Description", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 8, "Amount", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 11)
	rows := [][2]string{
		{data.Record.Title, rupees(data.Record.BaseAmount)},
		{"Discount", "- " + rupees(data.Record.DiscountAmount)},
		{"Fine", rupees(data.Record.FineAmount)},
		{"Total Fee", rupees(data.Record.FinalAmount)},
	}
	for _, row := range rows {
		pdf.CellFormat(110, 8, row[0], "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 8, row[1], "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	// Totals
	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 13)
	pdf.CellFormat(110, 10, "Amount Received:", "", 0, "L", false, 0, "")
	pdf.CellFormat(40, 10, rupees(data.Payment.Amount), "", 1, "R", false, 0, "")
	if refunded := data.Payment.RefundedAmount(); refunded.IsPositive() {
		pdf.SetFont("Arial", "", 11)
		pdf.CellFormat(110, 8, "Refunded:", "", 0, "L", false, 0, "")
		pdf.CellFormat(40, 8, rupees(refunded), "", 1, "R", false, 0, "")
	}
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(110, 8, "Balance Due:", "", 0, "L", false, 0, "")
	pdf.CellFormat(40, 8, rupees(data.Record.Balance()), "", 1, "R", false, 0, "")
	pdf.CellFormat(110, 8, "Due Date:", "", 0, "L", false, 0, "")
	pdf.CellFormat(40, 8, data.Record.DueDate.Format("02 Jan 2006"), "", 1, "R", false, 0, "")

	pdf.Ln(10)
	pdf.SetFont("Arial", "I", 10)
	pdf.Cell(0, 10, "This is a computer generated receipt and needs no signature.")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render receipt: %v", err)
	}
	return buf.Bytes(), nil
}

// CollectionSummary totals a collection report
type CollectionSummary struct {
	Payments    int             `json:"payments"`
	Collected   decimal.Decimal `json:"collected"`
	Refunded    decimal.Decimal `json:"refunded"`
	NetReceived decimal.Decimal `json:"net_received"`
	Online      decimal.Decimal `json:"online"`
	Offline     decimal.Decimal `json:"offline"`
}

// CollectionReport builds an XLSX sheet of payments received between from
// and to (inclusive of from, exclusive of to)
func (s *ReceiptService) CollectionReport(ctx context.Context, coachingID, userID uint, from, to time.Time) ([]byte, *CollectionSummary, error) {
	if _, err := requireFeeAdmin(ctx, s.db, coachingID, userID); err != nil {
		return nil, nil, err
	}
	if !to.After(from) {
		return nil, nil, utils.BadRequestError("Report end date must be after the start date", nil)
	}

	var coaching models.Coaching
	if err := s.db.WithContext(ctx).First(&coaching, coachingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, utils.NotFoundError("Coaching not found")
		}
		return nil, nil, err
	}

	var payments []models.FeePayment
	if err := s.db.WithContext(ctx).
		Preload("Refunds").
		Where("coaching_id = ? AND paid_at >= ? AND paid_at < ?", coachingID, from, to).
		Order("paid_at").
		Find(&payments).Error; err != nil {
		return nil, nil, err
	}

	recordIDs := make([]uint, 0, len(payments))
	for _, p := range payments {
		recordIDs = append(recordIDs, p.RecordID)
	}
	records := map[uint]models.FeeRecord{}
	if len(recordIDs) > 0 {
		var list []models.FeeRecord
		if err := s.db.WithContext(ctx).Preload("Member.User").Where("id IN ?", distinct(recordIDs)).Find(&list).Error; err != nil {
			return nil, nil, err
		}
		for _, r := range list {
			records[r.ID] = r
		}
	}

	summary := &CollectionSummary{
		Collected: decimal.Zero, Refunded: decimal.Zero, NetReceived: decimal.Zero,
		Online:    decimal.Zero, Offline: decimal.Zero,
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Collections")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create sheet: %v", err)
	}

	bold := xlsx.NewStyle()
	font := xlsx.DefaultFont()
	font.Bold = true
	bold.Font = *font

	titleRow := sheet.AddRow()
	titleRow.AddCell().SetString(coaching.Name + " - Fee Collections")
	titleRow.Cells[0].SetStyle(bold)
	periodRow := sheet.AddRow()
	periodRow.AddCell().SetString(fmt.Sprintf("Period: %s to %s", from.Format("02 Jan 2006"), to.Add(-time.Second).Format("02 Jan 2006")))
	sheet.AddRow() // spacing

	headers := []string{"Receipt No", "Date", "Student", "Fee", "Mode", "Transaction", "Amount", "Refunded", "Net"}
	headerRow := sheet.AddRow()
	for _, h := range headers {
		cell := headerRow.AddCell()
		cell.SetString(h)
		cell.SetStyle(bold)
	}

	for _, p := range payments {
		record := records[p.RecordID]
		refunded := p.RefundedAmount()
		net := p.Amount.Sub(refunded)

		row := sheet.AddRow()
		row.AddCell().SetInt(int(p.ID))
		row.AddCell().SetString(p.PaidAt.Format("2006-01-02 15:04"))
		row.AddCell().SetString(record.Member.User.Name)
		row.AddCell().SetString(record.Title)
		row.AddCell().SetString(string(p.Mode))
		txn := ""
		if p.RazorpayPaymentID != nil {
			txn = *p.RazorpayPaymentID
		}
		row.AddCell().SetString(txn)
		row.AddCell().SetFloat(p.Amount.InexactFloat64())
		row.AddCell().SetFloat(refunded.InexactFloat64())
		row.AddCell().SetFloat(net.InexactFloat64())

		summary.Payments++
		summary.Collected = summary.Collected.Add(p.Amount)
		summary.Refunded = summary.Refunded.Add(refunded)
		if p.Mode == models.ModeRazorpay {
			summary.Online = summary.Online.Add(p.Amount)
		} else {
			summary.Offline = summary.Offline.Add(p.Amount)
		}
	}
	summary.NetReceived = summary.Collected.Sub(summary.Refunded)

	sheet.AddRow() // spacing
	summaryRow := sheet.AddRow()
	summaryRow.AddCell().SetString("Summary")
	summaryRow.Cells[0].SetStyle(bold)
	summaryData := [][]string{
		{"Payments", fmt.Sprintf("%d", summary.Payments)},
		{"Collected", summary.Collected.StringFixed(2)},
		{"Online", summary.Online.StringFixed(2)},
		{"Offline", summary.Offline.StringFixed(2)},
		{"Refunded", summary.Refunded.StringFixed(2)},
		{"Net Received", summary.NetReceived.StringFixed(2)},
	}
	for _, data := range summaryData {
		row := sheet.AddRow()
		row.AddCell().SetString(data[0])
		row.AddCell().SetString(data[1])
	}

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return nil, nil, fmt.Errorf("failed to write report: %v", err)
	}
	utils.LogInfo("Collection report for coaching %d: %d payments, net %s", coachingID, summary.Payments, summary.NetReceived.StringFixed(2))
	return buf.Bytes(), summary, nil
}
