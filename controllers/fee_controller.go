package controllers

import (
	"strconv"

	"github.com/Govind-619/Tutorix/models"
	"github.com/Govind-619/Tutorix/services"
	"github.com/Govind-619/Tutorix/utils"
	"github.com/gin-gonic/gin"
)

// FeeController serves the fee catalogue: structures, assignments and records
type FeeController struct {
	fees *services.FeeService
}

// NewFeeController creates a new FeeController
func NewFeeController(fees *services.FeeService) *FeeController {
	return &FeeController{fees: fees}
}

// POST /coaching/:coachingId/fee/structures
func (fc *FeeController) CreateStructure(c *gin.Context) {
	coachingID, userID, ok := scope(c)
	if !ok {
		return
	}
	var req services.StructureInput
	if !bindJSON(c, &req) {
		return
	}
	structure, err := fc.fees.CreateStructure(c.Request.Context(), coachingID, userID, req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Fee structure created", structure)
}

// GET /coaching/:coachingId/fee/structures
func (fc *FeeController) ListStructures(c *gin.Context) {
	coachingID, userID, ok := scope(c)
	if !ok {
		return
	}
	structures, err := fc.fees.ListStructures(c.Request.Context(), coachingID, userID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Fee structures retrieved", structures)
}

// PATCH /coaching/:coachingId/fee/structures/:id
func (fc *FeeController) UpdateStructure(c *gin.Context) {
	coachingID, userID, ok := scope(c)
	if !ok {
		return
	}
	structureID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req services.StructureUpdate
	if !bindJSON(c, &req) {
		return
	}
	structure, err := fc.fees.UpdateStructure(c.Request.Context(), coachingID, structureID, userID, req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Fee structure updated", structure)
}

// DELETE /coaching/:coachingId/fee/structures/:id
func (fc *FeeController) DeleteStructure(c *gin.Context) {
	coachingID, userID, ok := scope(c)
	if !ok {
		return
	}
	structureID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := fc.fees.DeleteStructure(c.Request.Context(), coachingID, structureID, userID); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Fee structure deleted", nil)
}

// POST /coaching/:coachingId/fee/assignments
func (fc *FeeController) AssignFee(c *gin.Context) {
	coachingID, userID, ok := scope(c)
	if !ok {
		return
	}
	var req services.AssignInput
	if !bindJSON(c, &req) {
		return
	}
	assignment, err := fc.fees.AssignFee(c.Request.Context(), coachingID, userID, req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Fee assigned", assignment)
}

// POST /coaching/:coachingId/fee/assignments/:id/records
func (fc *FeeController) GenerateRecord(c *gin.Context) {
	coachingID, userID, ok := scope(c)
	if !ok {
		return
	}
	assignmentID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req services.RecordInput
	if !bindJSON(c, &req) {
		return
	}
	record, err := fc.fees.GenerateRecord(c.Request.Context(), coachingID, assignmentID, userID, req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Fee record generated", record)
}

// GET /coaching/:coachingId/fee/records
func (fc *FeeController) ListRecords(c *gin.Context) {
	coachingID, userID, ok := scope(c)
	if !ok {
		return
	}
	pagination := utils.NewPagination(c)
	filter := services.RecordFilter{
		Status: models.FeeRecordStatus(c.Query("status")),
		Offset: pagination.Offset,
		Limit:  pagination.Limit,
	}
	if raw := c.Query("member_id"); raw != "" {
		memberID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			utils.BadRequest(c, "Invalid member_id", nil)
			return
		}
		filter.MemberID = uint(memberID)
	}

	records, total, err := fc.fees.ListRecords(c.Request.Context(), coachingID, userID, filter)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	pagination.SetTotal(total)
	utils.SendPaginatedResponse(c, "Fee records retrieved", records, pagination)
}

// GET /coaching/:coachingId/fee/records/:recordId
func (fc *FeeController) GetRecord(c *gin.Context) {
	coachingID, userID, ok := scope(c)
	if !ok {
		return
	}
	recordID, ok := pathID(c, "recordId")
	if !ok {
		return
	}
	record, err := fc.fees.GetRecord(c.Request.Context(), coachingID, recordID, userID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Fee record retrieved", gin.H{
		"record":  record,
		"balance": record.Balance(),
	})
}
