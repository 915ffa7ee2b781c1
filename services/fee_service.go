package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Govind-619/Tutorix/models"
	"github.com/Govind-619/Tutorix/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StructureInput creates a fee structure
type StructureInput struct {
	Name      string               `json:"name" binding:"required,max=120"`
	Amount    decimal.Decimal      `json:"amount" binding:"money"`
	Cycle     models.FeeCycle      `json:"cycle" binding:"required"`
	TaxType   models.TaxType       `json:"tax_type"`
	GSTRate   decimal.Decimal      `json:"gst_rate"`
	LineItems []models.FeeLineItem `json:"line_items"`
}

// StructureUpdate edits a fee structure. Only Name and line item labels may
// change once the structure is assigned.
type StructureUpdate struct {
	Name      *string               `json:"name"`
	Amount    *decimal.Decimal      `json:"amount"`
	Cycle     *models.FeeCycle      `json:"cycle"`
	TaxType   *models.TaxType       `json:"tax_type"`
	GSTRate   *decimal.Decimal      `json:"gst_rate"`
	LineItems *[]models.FeeLineItem `json:"line_items"`
}

// AssignInput assigns a structure to a member
type AssignInput struct {
	MemberID       uint             `json:"member_id" binding:"required"`
	FeeStructureID uint             `json:"fee_structure_id" binding:"required"`
	CustomAmount   *decimal.Decimal `json:"custom_amount"`
	DiscountAmount decimal.Decimal  `json:"discount_amount"`
	StartDate      time.Time        `json:"start_date" binding:"required"`
	EndDate        *time.Time       `json:"end_date"`
}

// RecordInput generates one payable record from an assignment
type RecordInput struct {
	Title      string          `json:"title"`
	DueDate    time.Time       `json:"due_date" binding:"required"`
	FineAmount decimal.Decimal `json:"fine_amount"`
}

// RecordFilter narrows ListRecords
type RecordFilter struct {
	MemberID uint
	Status   models.FeeRecordStatus
	Offset   int
	Limit    int
}

// FeeService manages the fee catalogue: structures, assignments and records
type FeeService struct {
	db *gorm.DB
}

// NewFeeService creates a new FeeService
func NewFeeService(db *gorm.DB) *FeeService {
	return &FeeService{db: db}
}

func validateStructure(amount decimal.Decimal, cycle models.FeeCycle, taxType models.TaxType, gst decimal.Decimal, items []models.FeeLineItem) utils.FieldValidationErrors {
	var errs utils.FieldValidationErrors
	if err := utils.ValidateAmount(amount); err != nil {
		errs = append(errs, utils.FieldValidationError{Field: "amount", Message: err.Error()})
	}
	if !cycle.Valid() {
		errs = append(errs, utils.FieldValidationError{Field: "cycle", Message: "Unknown billing cycle"})
	}
	if !taxType.Valid() {
		errs = append(errs, utils.FieldValidationError{Field: "tax_type", Message: "Unknown tax type"})
	}
	if err := utils.ValidatePercentage(gst); err != nil {
		errs = append(errs, utils.FieldValidationError{Field: "gst_rate", Message: err.Error()})
	}
	if taxType == models.TaxNone && !gst.IsZero() {
		errs = append(errs, utils.FieldValidationError{Field: "gst_rate", Message: "GST rate requires a tax type"})
	}
	if len(items) > 0 {
		sum := decimal.Zero
		for i, item := range items {
			if strings.TrimSpace(item.Label) == "" {
				errs = append(errs, utils.FieldValidationError{Field: fmt.Sprintf("line_items[%d].label", i), Message: "Label is required"})
			}
			if item.Amount.IsNegative() {
				errs = append(errs, utils.FieldValidationError{Field: fmt.Sprintf("line_items[%d].amount", i), Message: "Amount cannot be negative"})
			}
			sum = sum.Add(item.Amount)
		}
		if !sum.Equal(amount) {
			errs = append(errs, utils.FieldValidationError{Field: "line_items", Message: "Line items must add up to the amount"})
		}
	}
	return errs
}

func sanitizeItems(items []models.FeeLineItem) []models.FeeLineItem {
	out := make([]models.FeeLineItem, len(items))
	for i, item := range items {
		out[i] = models.FeeLineItem{Label: utils.SanitizeString(item.Label), Amount: item.Amount}
	}
	return out
}

// CreateStructure adds a fee structure to the coaching's catalogue
func (s *FeeService) CreateStructure(ctx context.Context, coachingID, userID uint, in StructureInput) (*models.FeeStructure, error) {
	if _, err := requireFeeAdmin(ctx, s.db, coachingID, userID); err != nil {
		return nil, err
	}
	if in.TaxType == "" {
		in.TaxType = models.TaxNone
	}
	if errs := validateStructure(in.Amount, in.Cycle, in.TaxType, in.GSTRate, in.LineItems); len(errs) > 0 {
		return nil, utils.BadRequestError("Invalid fee structure", errs)
	}

	structure := models.FeeStructure{
		CoachingID: coachingID,
		Name:       utils.SanitizeString(in.Name),
		Amount:     in.Amount,
		Cycle:      in.Cycle,
		TaxType:    in.TaxType,
		GSTRate:    in.GSTRate,
		LineItems:  sanitizeItems(in.LineItems),
	}
	if err := s.db.WithContext(ctx).Create(&structure).Error; err != nil {
		utils.LogError("Failed to create fee structure for coaching %d: %v", coachingID, err)
		return nil, err
	}
	utils.LogInfo("Fee structure %d (%s) created in coaching %d", structure.ID, structure.Name, coachingID)
	return &structure, nil
}

// ListStructures lists the coaching's fee structures
func (s *FeeService) ListStructures(ctx context.Context, coachingID, userID uint) ([]models.FeeStructure, error) {
	if _, err := requireRole(ctx, s.db, coachingID, userID, models.RoleAdmin, models.RoleTeacher); err != nil {
		return nil, err
	}
	var structures []models.FeeStructure
	if err := s.db.WithContext(ctx).
		Where("coaching_id = ?", coachingID).
		Order("name").
		Find(&structures).Error; err != nil {
		return nil, err
	}
	return structures, nil
}

func (s *FeeService) loadStructure(ctx context.Context, coachingID, structureID uint) (*models.FeeStructure, error) {
	var structure models.FeeStructure
	err := s.db.WithContext(ctx).
		Where("id = ? AND coaching_id = ?", structureID, coachingID).
		First(&structure).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NotFoundError("Fee structure not found")
	}
	if err != nil {
		return nil, err
	}
	return &structure, nil
}

func (s *FeeService) assignmentCount(ctx context.Context, structureID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.FeeAssignment{}).
		Where("fee_structure_id = ?", structureID).
		Count(&count).Error
	return count, err
}

// UpdateStructure edits a structure. Money terms are frozen once any member
// is assigned to it.
func (s *FeeService) UpdateStructure(ctx context.Context, coachingID, structureID, userID uint, in StructureUpdate) (*models.FeeStructure, error) {
	if _, err := requireFeeAdmin(ctx, s.db, coachingID, userID); err != nil {
		return nil, err
	}
	structure, err := s.loadStructure(ctx, coachingID, structureID)
	if err != nil {
		return nil, err
	}
	assigned, err := s.assignmentCount(ctx, structure.ID)
	if err != nil {
		return nil, err
	}

	moneyChanged := in.Amount != nil || in.Cycle != nil || in.TaxType != nil || in.GSTRate != nil
	if in.LineItems != nil {
		items := *in.LineItems
		if len(items) != len(structure.LineItems) {
			moneyChanged = true
		} else {
			for i := range items {
				if !items[i].Amount.Equal(structure.LineItems[i].Amount) {
					moneyChanged = true
				}
			}
		}
	}
	if moneyChanged && assigned > 0 {
		return nil, utils.InvalidStateError("Fee structure is assigned; only its name and line item labels can change")
	}

	if in.Name != nil {
		name := utils.SanitizeString(*in.Name)
		if err := utils.ValidateStringLength(name, 1, 120); err != nil {
			return nil, utils.BadRequestError("Name "+err.Error(), nil)
		}
		structure.Name = name
	}
	if in.Amount != nil {
		structure.Amount = *in.Amount
	}
	if in.Cycle != nil {
		structure.Cycle = *in.Cycle
	}
	if in.TaxType != nil {
		structure.TaxType = *in.TaxType
	}
	if in.GSTRate != nil {
		structure.GSTRate = *in.GSTRate
	}
	if in.LineItems != nil {
		structure.LineItems = sanitizeItems(*in.LineItems)
	}
	if errs := validateStructure(structure.Amount, structure.Cycle, structure.TaxType, structure.GSTRate, structure.LineItems); len(errs) > 0 {
		return nil, utils.BadRequestError("Invalid fee structure", errs)
	}

	if err := s.db.WithContext(ctx).Save(structure).Error; err != nil {
		return nil, err
	}
	utils.LogInfo("Fee structure %d updated in coaching %d", structure.ID, coachingID)
	return structure, nil
}

// DeleteStructure removes a structure nobody is assigned to
func (s *FeeService) DeleteStructure(ctx context.Context, coachingID, structureID, userID uint) error {
	if _, err := requireFeeAdmin(ctx, s.db, coachingID, userID); err != nil {
		return err
	}
	structure, err := s.loadStructure(ctx, coachingID, structureID)
	if err != nil {
		return err
	}
	assigned, err := s.assignmentCount(ctx, structure.ID)
	if err != nil {
		return err
	}
	if assigned > 0 {
		return utils.InvalidStateError("Fee structure is assigned and cannot be deleted")
	}
	if err := s.db.WithContext(ctx).Delete(structure).Error; err != nil {
		return err
	}
	utils.LogInfo("Fee structure %d deleted from coaching %d", structure.ID, coachingID)
	return nil
}

// AssignFee binds a structure to a member of the coaching
func (s *FeeService) AssignFee(ctx context.Context, coachingID, userID uint, in AssignInput) (*models.FeeAssignment, error) {
	if _, err := requireFeeAdmin(ctx, s.db, coachingID, userID); err != nil {
		return nil, err
	}
	structure, err := s.loadStructure(ctx, coachingID, in.FeeStructureID)
	if err != nil {
		return nil, err
	}
	var member models.CoachingMember
	err = s.db.WithContext(ctx).Where("id = ? AND coaching_id = ?", in.MemberID, coachingID).First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NotFoundError("Member not found")
	}
	if err != nil {
		return nil, err
	}

	if in.CustomAmount != nil {
		if err := utils.ValidateAmount(*in.CustomAmount); err != nil {
			return nil, utils.BadRequestError("Custom amount "+err.Error(), nil)
		}
	}
	if in.DiscountAmount.IsNegative() {
		return nil, utils.BadRequestError("Discount cannot be negative", nil)
	}
	if in.DiscountAmount.GreaterThan(structure.PayableAmount(in.CustomAmount)) {
		return nil, utils.BadRequestError("Discount cannot exceed the fee amount", nil)
	}
	if in.EndDate != nil && in.EndDate.Before(in.StartDate) {
		return nil, utils.BadRequestError("End date must be after the start date", nil)
	}

	assignment := models.FeeAssignment{
		CoachingID:     coachingID,
		MemberID:       member.ID,
		FeeStructureID: structure.ID,
		CustomAmount:   in.CustomAmount,
		DiscountAmount: in.DiscountAmount,
		StartDate:      in.StartDate,
		EndDate:        in.EndDate,
	}
	if err := s.db.WithContext(ctx).Create(&assignment).Error; err != nil {
		return nil, err
	}
	assignment.FeeStructure = *structure
	utils.LogInfo("Fee structure %d assigned to member %d in coaching %d", structure.ID, member.ID, coachingID)
	return &assignment, nil
}

// GenerateRecord creates one payable record from an assignment. The final
// amount is base - discount + fine, where base is the custom or structure
// amount with GST added for tax-exclusive structures.
func (s *FeeService) GenerateRecord(ctx context.Context, coachingID, assignmentID, userID uint, in RecordInput) (*models.FeeRecord, error) {
	if _, err := requireFeeAdmin(ctx, s.db, coachingID, userID); err != nil {
		return nil, err
	}
	var assignment models.FeeAssignment
	err := s.db.WithContext(ctx).
		Preload("FeeStructure").
		Where("id = ? AND coaching_id = ?", assignmentID, coachingID).
		First(&assignment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NotFoundError("Fee assignment not found")
	}
	if err != nil {
		return nil, err
	}
	if in.FineAmount.IsNegative() {
		return nil, utils.BadRequestError("Fine cannot be negative", nil)
	}
	if in.DueDate.Before(assignment.StartDate) {
		return nil, utils.BadRequestError("Due date is before the assignment starts", nil)
	}
	if assignment.EndDate != nil && in.DueDate.After(*assignment.EndDate) {
		return nil, utils.InvalidStateError("Fee assignment has ended")
	}

	base := assignment.FeeStructure.PayableAmount(assignment.CustomAmount)
	final := base.Sub(assignment.DiscountAmount).Add(in.FineAmount)
	if !final.IsPositive() {
		return nil, utils.BadRequestError("Final amount must be greater than zero", nil)
	}
	title := utils.SanitizeString(in.Title)
	if title == "" {
		title = fmt.Sprintf("%s - %s", assignment.FeeStructure.Name, in.DueDate.Format("Jan 2006"))
	}

	record := models.FeeRecord{
		CoachingID:     coachingID,
		AssignmentID:   assignment.ID,
		MemberID:       assignment.MemberID,
		Title:          title,
		BaseAmount:     base,
		DiscountAmount: assignment.DiscountAmount,
		FineAmount:     in.FineAmount,
		FinalAmount:    final,
		PaidAmount:     decimal.Zero,
		Status:         models.FeeStatusPending,
		DueDate:        in.DueDate,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, err
	}
	utils.LogInfo("Fee record %d generated for member %d, final amount %s", record.ID, record.MemberID, final.StringFixed(2))
	return &record, nil
}

// ListRecords lists records. Staff see every record in the coaching; other
// members see their own and their wards' records.
func (s *FeeService) ListRecords(ctx context.Context, coachingID, userID uint, filter RecordFilter) ([]models.FeeRecord, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.FeeRecord{}).Where("fee_records.coaching_id = ?", coachingID)

	if _, err := requireRole(ctx, s.db, coachingID, userID, models.RoleAdmin, models.RoleTeacher); err != nil {
		if !errors.Is(err, utils.ErrForbidden) {
			return nil, 0, err
		}
		payable := s.db.Model(&models.CoachingMember{}).
			Select("id").
			Where("coaching_id = ? AND (user_id = ? OR parent_user_id = ?)", coachingID, userID, userID)
		var count int64
		if err := payable.Session(&gorm.Session{}).Count(&count).Error; err != nil {
			return nil, 0, err
		}
		if count == 0 {
			return nil, 0, utils.ForbiddenError(utils.ErrNoAccess)
		}
		query = query.Where("member_id IN (?)", payable)
	}

	if filter.MemberID != 0 {
		query = query.Where("member_id = ?", filter.MemberID)
	}
	if filter.Status != "" {
		if !filter.Status.Valid() {
			return nil, 0, utils.BadRequestError("Unknown status filter", nil)
		}
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = utils.DefaultPaginationLimit
	}
	var records []models.FeeRecord
	if err := query.Order("due_date ASC, id ASC").Offset(filter.Offset).Limit(limit).Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// GetRecord returns one record with its payments and refunds
func (s *FeeService) GetRecord(ctx context.Context, coachingID, recordID, userID uint) (*models.FeeRecord, error) {
	record, err := loadRecord(ctx, s.db, coachingID, recordID)
	if err != nil {
		return nil, err
	}
	if err := canView(ctx, s.db, record, userID); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).
		Preload("Refunds").
		Where("record_id = ?", record.ID).
		Order("paid_at").
		Find(&record.Payments).Error; err != nil {
		return nil, err
	}
	return record, nil
}
