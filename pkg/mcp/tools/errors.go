package tools

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/chingu-voyages/member-demographics/pkg/apperrors"
)

// ErrorResponse represents a structured error in tool results.
// Returned as a successful tool result so the error details reach the
// client instead of being swallowed by the transport.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// NewErrorResult creates a tool result containing a structured error.
// Use this for errors the caller can fix (unknown attribute, illegal
// filter value). Warehouse failures are returned as Go errors.
func NewErrorResult(code, message string) *mcp.CallToolResult {
	return NewErrorResultWithDetails(code, message, nil)
}

// NewErrorResultWithDetails creates an error result with additional context.
func NewErrorResultWithDetails(code, message string, details any) *mcp.CallToolResult {
	resp := ErrorResponse{
		Error:   true,
		Code:    code,
		Message: message,
		Details: details,
	}
	jsonBytes, _ := json.Marshal(resp)
	result := mcp.NewToolResultText(string(jsonBytes))
	result.IsError = true
	return result
}

// serviceErrorResult converts a member service error. Caller errors and a
// cold cache become error results; anything else stays a Go error.
func serviceErrorResult(op string, err error) (*mcp.CallToolResult, error) {
	if apperrors.IsClientError(err) || errors.Is(err, apperrors.ErrCacheUnavailable) {
		return NewErrorResult(apperrors.Code(err), err.Error()), nil
	}
	return nil, fmt.Errorf("%s: %w", op, err)
}
