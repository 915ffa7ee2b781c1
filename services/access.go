package services

import (
	"context"
	"errors"
	"strings"

	"github.com/Govind-619/Tutorix/models"
	"github.com/Govind-619/Tutorix/utils"
	"gorm.io/gorm"
)

// membership loads the caller's membership in a coaching. Callers that are not
// members get Forbidden, never NotFound, so coaching ids cannot be probed.
func membership(ctx context.Context, db *gorm.DB, coachingID, userID uint) (*models.CoachingMember, error) {
	var member models.CoachingMember
	err := db.WithContext(ctx).
		Where("coaching_id = ? AND user_id = ?", coachingID, userID).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ForbiddenError(utils.ErrNoAccess)
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// requireRole checks the caller holds one of roles in the coaching
func requireRole(ctx context.Context, db *gorm.DB, coachingID, userID uint, roles ...models.Role) (*models.CoachingMember, error) {
	member, err := membership(ctx, db, coachingID, userID)
	if err != nil {
		return nil, err
	}
	if !models.HasAnyRole(member.Role, roles...) {
		utils.LogWarn("User %d with role %s denied in coaching %d", userID, member.Role, coachingID)
		return nil, utils.ForbiddenError(utils.ErrAdminOnly)
	}
	return member, nil
}

func requireFeeAdmin(ctx context.Context, db *gorm.DB, coachingID, userID uint) (*models.CoachingMember, error) {
	return requireRole(ctx, db, coachingID, userID, models.FeeAdminRoles...)
}

// loadRecord fetches a record scoped to its coaching, with its member
func loadRecord(ctx context.Context, db *gorm.DB, coachingID, recordID uint) (*models.FeeRecord, error) {
	var record models.FeeRecord
	err := db.WithContext(ctx).
		Preload("Member").
		Where("id = ? AND coaching_id = ?", recordID, coachingID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NotFoundError(utils.ErrRecordNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// canPay reports whether userID may pay for record: the member itself, the
// member's parent, or a fee admin of the coaching.
func canPay(ctx context.Context, db *gorm.DB, record *models.FeeRecord, userID uint) error {
	if record.Member.IsPayer(userID) {
		return nil
	}
	_, err := requireFeeAdmin(ctx, db, record.CoachingID, userID)
	if err != nil && errors.Is(err, utils.ErrForbidden) {
		return utils.ForbiddenError(utils.ErrNoAccess)
	}
	return err
}

// canView additionally admits any staff member of the coaching
func canView(ctx context.Context, db *gorm.DB, record *models.FeeRecord, userID uint) error {
	if record.Member.IsPayer(userID) {
		return nil
	}
	_, err := requireRole(ctx, db, record.CoachingID, userID, models.RoleAdmin, models.RoleTeacher)
	if err != nil && errors.Is(err, utils.ErrForbidden) {
		return utils.ForbiddenError(utils.ErrNoAccess)
	}
	return err
}

// loadSettings returns the coaching's payment settings, or a disabled
// zero value when none were saved yet
func loadSettings(ctx context.Context, db *gorm.DB, coachingID uint) (*models.PaymentSettings, error) {
	var settings models.PaymentSettings
	err := db.WithContext(ctx).Where("coaching_id = ?", coachingID).First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.PaymentSettings{CoachingID: coachingID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// isDuplicateKey recognises a unique constraint violation across drivers
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
