package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/chingu-voyages/member-demographics/pkg/models"
	"github.com/chingu-voyages/member-demographics/pkg/services"
)

// MemberToolDeps contains the dependencies of the member query tools.
type MemberToolDeps struct {
	Members services.MemberService
	Logger  *zap.Logger
}

// MemberToolNames lists the tools registered by RegisterMemberTools.
var MemberToolNames = []string{
	"list_attributes",
	"unique_values",
	"count_values",
	"filter_members",
	"country_counts",
}

var attributeDescription = "Attribute name, case-insensitive (one of: " +
	strings.Join(models.AttributeNames(), ", ") + ")"

const filterDescription = `Object mapping attribute names to arrays of values, ` +
	`e.g. {"Gender": ["FEMALE"], "Voyage_Signup_ids": [45]}. Integer attributes take numbers, ` +
	`the rest take strings. Values must be known values of the attribute (see unique_values).`

// RegisterMemberTools adds the member query tools to the MCP server.
func RegisterMemberTools(s *server.MCPServer, deps *MemberToolDeps) {
	registerListAttributesTool(s, deps)
	registerUniqueValuesTool(s, deps)
	registerCountValuesTool(s, deps)
	registerFilterMembersTool(s, deps)
	registerCountryCountsTool(s, deps)
}

func registerListAttributesTool(s *server.MCPServer, deps *MemberToolDeps) {
	tool := mcp.NewTool(
		"list_attributes",
		mcp.WithDescription("List the member attributes that can be counted and filtered, with their column, kind (scalar or list) and value type."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(deps.Members.Attributes())
	})
}

func registerUniqueValuesTool(s *server.MCPServer, deps *MemberToolDeps) {
	tool := mcp.NewTool(
		"unique_values",
		mcp.WithDescription("Return the sorted distinct non-null values of one attribute. List attributes are flattened."),
		mcp.WithString(
			"attribute",
			mcp.Required(),
			mcp.Description(attributeDescription),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		attr, err := getAttribute(req)
		if err != nil {
			return serviceErrorResult("unique_values", err)
		}
		resp, err := deps.Members.UniqueValues(ctx, attr)
		if err != nil {
			return serviceErrorResult("unique_values", err)
		}
		return jsonResult(resp)
	})
}

func registerCountValuesTool(s *server.MCPServer, deps *MemberToolDeps) {
	tool := mcp.NewTool(
		"count_values",
		mcp.WithDescription("Count members per value of one attribute, optionally restricted to signups between two dates (inclusive). List attributes count each element."),
		mcp.WithString(
			"attribute",
			mcp.Required(),
			mcp.Description(attributeDescription),
		),
		mcp.WithString(
			"start_date",
			mcp.Description("Optional - first day, YYYY-MM-DD. Requires end_date."),
		),
		mcp.WithString(
			"end_date",
			mcp.Description("Optional - last day, YYYY-MM-DD. Requires start_date."),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		attr, err := getAttribute(req)
		if err != nil {
			return serviceErrorResult("count_values", err)
		}
		dates, err := models.ParseDateRange(getOptionalString(req, "start_date"), getOptionalString(req, "end_date"))
		if err != nil {
			return serviceErrorResult("count_values", err)
		}
		resp, err := deps.Members.CountByValue(ctx, attr, dates)
		if err != nil {
			return serviceErrorResult("count_values", err)
		}
		return jsonResult(resp)
	})
}

func registerFilterMembersTool(s *server.MCPServer, deps *MemberToolDeps) {
	tool := mcp.NewTool(
		"filter_members",
		mcp.WithDescription("Return member rows matching every include and no exclude filter, ordered by id. An attribute may not appear in both."),
		mcp.WithObject(
			"include",
			mcp.Description("Optional - "+filterDescription),
		),
		mcp.WithObject(
			"exclude",
			mcp.Description("Optional - "+filterDescription),
		),
		mcp.WithNumber(
			"limit",
			mcp.Description(fmt.Sprintf("Max rows to return (default: %d)", models.DefaultWindowLimit)),
		),
		mcp.WithNumber(
			"offset",
			mcp.Description("Rows to skip before the first returned row"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		page, err := getPage(req)
		if err != nil {
			return serviceErrorResult("filter_members", err)
		}
		filter, err := getFilterRequest(req)
		if err != nil {
			return serviceErrorResult("filter_members", err)
		}
		resp, err := deps.Members.FilterMembers(ctx, filter, page)
		if err != nil {
			return serviceErrorResult("filter_members", err)
		}
		deps.Logger.Debug("filter_members returned rows", zap.Int("rows", resp.RowCount))
		return jsonResult(resp)
	})
}

func registerCountryCountsTool(s *server.MCPServer, deps *MemberToolDeps) {
	tool := mcp.NewTool(
		"country_counts",
		mcp.WithDescription("Count members matching the include/exclude filters per country code."),
		mcp.WithObject(
			"include",
			mcp.Description("Optional - "+filterDescription),
		),
		mcp.WithObject(
			"exclude",
			mcp.Description("Optional - "+filterDescription),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		filter, err := getFilterRequest(req)
		if err != nil {
			return serviceErrorResult("country_counts", err)
		}
		resp, err := deps.Members.CountryCounts(ctx, filter)
		if err != nil {
			return serviceErrorResult("country_counts", err)
		}
		return jsonResult(resp)
	})
}
