package utils

import "time"

// Application constants
const (
	// Application name
	AppName = "Tutorix"

	// Currency used for every gateway order
	Currency = "INR"

	// JWT token expiration
	JWTExpiration = 24 * time.Hour

	// Orders left in CREATED state longer than this are reported as abandoned
	AbandonedOrderAfter = 30 * time.Minute

	// Default pagination limit
	DefaultPaginationLimit = 10

	// Maximum pagination limit
	MaxPaginationLimit = 100

	// Maximum number of records in one multi-pay bundle
	MaxMultiPayRecords = 24
)

// Error messages
const (
	ErrUnauthorized       = "Please login for access"
	ErrInternalServer     = "Internal server error"
	ErrGatewayUnavailable = "Payment gateway is unavailable, please try again"
	ErrNoAccess           = "You do not have access to this fee record"
	ErrAdminOnly          = "Only coaching admins can perform this action"
	ErrRecordNotFound     = "Fee record not found"
	ErrTooManyRequests    = "Too many requests, please slow down"
)

// Context keys set by the auth middleware
const (
	ContextUserID    = "userID"
	ContextRequestID = "RequestID"
)
