package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	auditdomain "github.com/smallbiznis/ecoscape/internal/audit/domain"
	authdomain "github.com/smallbiznis/ecoscape/internal/auth/domain"
	"github.com/smallbiznis/ecoscape/internal/authorization"
	customerdomain "github.com/smallbiznis/ecoscape/internal/customer/domain"
	maintenancedomain "github.com/smallbiznis/ecoscape/internal/maintenance/domain"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrRateLimited    = errors.New("rate_limited")
	ErrInternal       = errors.New("internal_error")
)

const (
	messageValidationFailed = "Validation failed"
	messageForbidden        = "Access denied. Admin privileges required."
	messageInternal         = "internal server error"
)

// fieldRule ties a domain validation sentinel to the field it rejects.
type fieldRule struct {
	err     error
	field   string
	message string
}

var fieldRules = []fieldRule{
	{customerdomain.ErrInvalidName, "name", "Name must be at least 2 characters"},
	{customerdomain.ErrInvalidEmail, "email", "Please enter a valid email"},
	{customerdomain.ErrInvalidPhone, "phone", "Phone number is required"},
	{customerdomain.ErrInvalidAddress, "address", "Street address, city, state and ZIP code are required"},
	{customerdomain.ErrInvalidStatus, "status", "Invalid customer status"},
	{customerdomain.ErrInvalidLoyaltyStatus, "loyaltyStatus", "Invalid loyalty status"},
	{customerdomain.ErrInvalidReferralSource, "referralSource", "Invalid referral source"},
	{customerdomain.ErrInvalidPreferences, "preferences", "Invalid preferences"},
	{customerdomain.ErrInvalidAmount, "amount", "Amounts must not be negative"},
	{customerdomain.ErrInvalidDateRange, "startDate", "startDate must not be after endDate"},
	{customerdomain.ErrInvalidID, "id", "Invalid customer ID"},
	{customerdomain.ErrInvalidReferrer, "referredBy", "Referring customer not found"},
	{customerdomain.ErrInvalidReferrerID, "referredBy", "Invalid referring customer ID"},

	{maintenancedomain.ErrInvalidID, "id", "Invalid maintenance request ID"},
	{maintenancedomain.ErrInvalidCustomer, "customerId", "Valid customer ID is required"},
	{maintenancedomain.ErrInvalidServiceType, "serviceType", "Invalid service type"},
	{maintenancedomain.ErrInvalidDescription, "description", "Description must be at least 10 characters"},
	{maintenancedomain.ErrInvalidPriority, "priority", "Invalid priority"},
	{maintenancedomain.ErrInvalidStatus, "status", "Invalid status"},
	{maintenancedomain.ErrInvalidAssignee, "assignedTo", "Invalid assignee"},
	{maintenancedomain.ErrInvalidCost, "cost", "Costs must not be negative"},
	{maintenancedomain.ErrInvalidNote, "message", "Note message is required"},
	{maintenancedomain.ErrInvalidDateRange, "startDate", "startDate must not be after endDate"},

	{authdomain.ErrInvalidEmail, "email", "Please enter a valid email"},
	{authdomain.ErrInvalidName, "name", "Name must be at least 2 characters"},
	{authdomain.ErrInvalidRole, "role", "Invalid role"},
	{authdomain.ErrWeakPassword, "password", "Password must be at least 6 characters"},

	{auditdomain.ErrInvalidPageToken, "page_token", "invalid page token"},
	{auditdomain.ErrInvalidTimeRange, "start_at", "invalid time range"},
	{auditdomain.ErrInvalidAction, "action", "invalid action"},
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, payload)
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "Invalid request body")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorResponse) {
	if err == nil {
		return http.StatusInternalServerError, errorResponse{Message: messageInternal, Code: "internal_error"}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorResponse{
			Message: messageValidationFailed,
			Code:    "validation_error",
			Errors:  vErr.Errors,
		}
	}

	if rule, ok := lookupFieldRule(err); ok {
		code := rule.err.Error()
		message := messageValidationFailed
		if errors.Is(err, customerdomain.ErrInvalidReferrer) || errors.Is(err, customerdomain.ErrInvalidReferrerID) {
			message = rule.message
		}
		return http.StatusBadRequest, errorResponse{
			Message: message,
			Code:    code,
			Errors:  []ValidationError{{Field: rule.field, Code: code, Message: rule.message}},
		}
	}

	switch {
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, errorResponse{Message: "Invalid request", Code: "invalid_request"}
	case errors.Is(err, authdomain.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorResponse{Message: "Invalid credentials", Code: "invalid_credentials"}
	case errors.Is(err, authdomain.ErrTokenExpired):
		return http.StatusUnauthorized, errorResponse{Message: "Token has expired", Code: "token_expired"}
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrInvalidToken),
		errors.Is(err, authorization.ErrInvalidActor):
		return http.StatusUnauthorized, errorResponse{Message: "Token is not valid", Code: "unauthorized"}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorResponse{Message: messageForbidden, Code: "forbidden"}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorResponse{
			Message: "Too many login attempts, please try again later",
			Code:    "rate_limited",
		}
	case errors.Is(err, customerdomain.ErrDuplicateEmail),
		errors.Is(err, authdomain.ErrUserExists):
		return http.StatusConflict, errorResponse{Message: "Customer with this email already exists", Code: "duplicate_email"}
	case errors.Is(err, customerdomain.ErrHasActiveWork):
		return http.StatusConflict, errorResponse{
			Message: "Cannot delete customer with active maintenance requests",
			Code:    "has_active_work",
		}
	case errors.Is(err, maintenancedomain.ErrNotDeletable):
		return http.StatusConflict, errorResponse{
			Message: "Only pending or cancelled maintenance requests can be deleted",
			Code:    "not_deletable",
		}
	case errors.Is(err, customerdomain.ErrConflict),
		errors.Is(err, maintenancedomain.ErrConflict):
		return http.StatusConflict, errorResponse{Message: "The record was changed concurrently, please retry", Code: "conflict"}
	case errors.Is(err, customerdomain.ErrNotFound),
		errors.Is(err, maintenancedomain.ErrCustomerNotFound):
		return http.StatusNotFound, errorResponse{Message: "Customer not found", Code: "not_found"}
	case errors.Is(err, maintenancedomain.ErrNotFound):
		return http.StatusNotFound, errorResponse{Message: "Maintenance request not found", Code: "not_found"}
	case errors.Is(err, authdomain.ErrUserNotFound):
		return http.StatusNotFound, errorResponse{Message: "User not found", Code: "not_found"}
	case errors.Is(err, ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, errorResponse{Message: "Not found", Code: "not_found"}
	default:
		return http.StatusInternalServerError, errorResponse{Message: messageInternal, Code: "internal_error"}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func lookupFieldRule(err error) (fieldRule, bool) {
	for _, rule := range fieldRules {
		if errors.Is(err, rule.err) {
			return rule, true
		}
	}
	return fieldRule{}, false
}

// classifyErrorForLog feeds the request logger with a stable error type and code.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	switch {
	case status == http.StatusBadRequest:
		return "validation_error", payload.Code
	case status == http.StatusUnauthorized:
		return "unauthorized", payload.Code
	case status == http.StatusForbidden:
		return "forbidden", payload.Code
	case status == http.StatusNotFound:
		return "not_found", payload.Code
	case status == http.StatusConflict:
		return "conflict", payload.Code
	case status == http.StatusTooManyRequests:
		return "rate_limited", payload.Code
	default:
		return "internal_error", payload.Code
	}
}
