package utils

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gdeltnews/internal/shared/errors"
	"gdeltnews/internal/shared/requestid"
)

// APIResponse represents a standard API response structure. Data and Error
// serialize as explicit nulls so the envelope shape is stable.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Error   *ErrorInfo  `json:"error"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// ErrorInfo represents error information in API response
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Meta carries per-request envelope metadata. RequestID and Timestamp are
// always present; the remaining fields are set by the article endpoints.
type Meta struct {
	RequestID   string `json:"request_id"`
	Timestamp   string `json:"timestamp"`
	CountryCode string `json:"country_code,omitempty"`
	DaysBack    int    `json:"days_back,omitempty"`
	Total       *int   `json:"total,omitempty"`
	Partial     bool   `json:"partial,omitempty"`
}

// NewMeta builds the baseline meta block for the request.
func NewMeta(c *gin.Context) *Meta {
	return &Meta{
		RequestID: requestid.FromContext(c.Request.Context()),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// SuccessResponse sends a successful response with the given payload and meta.
func SuccessResponse(c *gin.Context, statusCode int, data interface{}, meta *Meta) {
	if meta == nil {
		meta = NewMeta(c)
	}
	c.JSON(statusCode, APIResponse{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

// ErrorResponse sends an error response with custom status code and message
func ErrorResponse(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, APIResponse{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
		Meta: NewMeta(c),
	})
}

// ErrorResponseWithError sends an error response based on error type
func ErrorResponseWithError(c *gin.Context, err error) {
	var statusCode int
	var errorInfo ErrorInfo

	if appErr := errors.GetAppError(err); appErr != nil {
		statusCode = appErr.Code
		errorInfo = ErrorInfo{
			Code:    string(appErr.Type),
			Message: appErr.Message,
			Details: appErr.Details,
		}
	} else {
		// Do not expose internal error details to prevent information leakage
		statusCode = http.StatusInternalServerError
		errorInfo = ErrorInfo{
			Code:    string(errors.ErrorTypeInternal),
			Message: "Internal server error occurred",
		}
	}

	c.JSON(statusCode, APIResponse{
		Success: false,
		Error:   &errorInfo,
		Meta:    NewMeta(c),
	})
}
