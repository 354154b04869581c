package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/chingu-voyages/member-demographics/pkg/apperrors"
	"github.com/chingu-voyages/member-demographics/pkg/models"
)

func arguments(req mcp.CallToolRequest) map[string]any {
	args, _ := req.Params.Arguments.(map[string]any)
	return args
}

// getOptionalString extracts an optional string argument from the request.
func getOptionalString(req mcp.CallToolRequest, key string) string {
	val, _ := arguments(req)[key].(string)
	return strings.TrimSpace(val)
}

// getOptionalFloat extracts an optional number argument from the request.
func getOptionalFloat(req mcp.CallToolRequest, key string) (float64, bool) {
	val, ok := arguments(req)[key].(float64)
	return val, ok
}

// getAttribute resolves the required "attribute" argument.
func getAttribute(req mcp.CallToolRequest) (models.Attribute, error) {
	name := getOptionalString(req, "attribute")
	if name == "" {
		return 0, fmt.Errorf("%w: attribute is required", apperrors.ErrUnknownAttribute)
	}
	attr, ok := models.LookupAttribute(name)
	if !ok {
		return 0, fmt.Errorf("%w: %q", apperrors.ErrUnknownAttribute, name)
	}
	return attr, nil
}

// getFilterRequest decodes the include and exclude arguments through the
// same JSON path as the HTTP body, so integer values keep their type.
func getFilterRequest(req mcp.CallToolRequest) (*models.FilterRequest, error) {
	args := arguments(req)
	body := make(map[string]any, 2)
	for _, key := range []string{"include", "exclude"} {
		if v, ok := args[key]; ok && v != nil {
			body[key] = v
		}
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidFilter, err)
	}
	return models.DecodeFilterRequest(data)
}

// getPage reads the optional limit and offset arguments.
func getPage(req mcp.CallToolRequest) (models.Page, error) {
	page := models.DefaultPage()
	if v, ok := getOptionalFloat(req, "limit"); ok {
		n, err := nonNegativeInt(v, "limit")
		if err != nil {
			return page, err
		}
		page.Limit = n
	}
	if v, ok := getOptionalFloat(req, "offset"); ok {
		n, err := nonNegativeInt(v, "offset")
		if err != nil {
			return page, err
		}
		page.Offset = &n
	}
	return page, nil
}

func nonNegativeInt(v float64, name string) (uint64, error) {
	if v < 0 || v > math.MaxInt64 || v != math.Trunc(v) {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer, got %v", apperrors.ErrInvalidPagination, name, v)
	}
	return uint64(v), nil
}

// jsonResult marshals v into a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
