package controllers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Govind-619/Tutorix/services"
	"github.com/Govind-619/Tutorix/utils"
	"github.com/gin-gonic/gin"
)

const (
	contentTypePDF  = "application/pdf"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	dateLayout      = "2006-01-02"
)

// ReceiptController serves payment receipts and collection reports
type ReceiptController struct {
	receipts *services.ReceiptService
}

// NewReceiptController creates a new ReceiptController
func NewReceiptController(receipts *services.ReceiptService) *ReceiptController {
	return &ReceiptController{receipts: receipts}
}

// GET /coaching/:coachingId/fee/records/:recordId/payments/:paymentId/receipt
func (rc *ReceiptController) Receipt(c *gin.Context) {
	coachingID, userID, ok := scope(c)
	if !ok {
		return
	}
	recordID, ok := pathID(c, "recordId")
	if !ok {
		return
	}
	paymentID, ok := pathID(c, "paymentId")
	if !ok {
		return
	}

	pdf, filename, err := rc.receipts.Receipt(c.Request.Context(), coachingID, recordID, paymentID, userID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, contentTypePDF, pdf)
}

// GET /coaching/:coachingId/fee/reports/collections?from=2024-01-01&to=2024-01-31
//
// Both dates are inclusive. format=json returns only the summary.
func (rc *ReceiptController) CollectionReport(c *gin.Context) {
	coachingID, userID, ok := scope(c)
	if !ok {
		return
	}
	from, err := time.ParseInLocation(dateLayout, c.Query("from"), time.Local)
	if err != nil {
		utils.BadRequest(c, "from must be a date like 2024-01-31", nil)
		return
	}
	to, err := time.ParseInLocation(dateLayout, c.Query("to"), time.Local)
	if err != nil {
		utils.BadRequest(c, "to must be a date like 2024-01-31", nil)
		return
	}

	report, summary, err := rc.receipts.CollectionReport(c.Request.Context(), coachingID, userID, from, to.AddDate(0, 0, 1))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if c.Query("format") == "json" {
		utils.Success(c, "Collection summary generated", summary)
		return
	}
	filename := fmt.Sprintf("collections_%s_%s.xlsx", from.Format("20060102"), to.Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, contentTypeXLSX, report)
}
