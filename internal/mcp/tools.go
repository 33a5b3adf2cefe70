package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"sleepwise/internal/apperr"
	"sleepwise/internal/validation"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

func (s *Server) registerTools() {
	// get_profile
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_profile",
		Description: "Get the stored profile (name, gender, age, height, weight) of the current user",
	}, s.handleGetProfile)

	// submit_insight
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "submit_insight",
		Description: "Submit one night of health metrics and get the predicted sleep quality",
	}, s.handleSubmitInsight)

	// list_insights
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_insights",
		Description: "List stored sleep insights, 100 per page, oldest first",
	}, s.handleListInsights)
}

type emptyInput struct{}

type submitInsightInput struct {
	SleepDuration    *float64 `json:"sleepDuration" jsonschema:"hours slept, greater than 0"`
	PhysicalActivity *float64 `json:"physicalActivity" jsonschema:"minutes of physical activity, whole number"`
	RestingHeartrate *float64 `json:"restingHeartrate,omitempty" jsonschema:"resting heart rate in bpm, 30 to 200"`
	DailySteps       *float64 `json:"dailySteps,omitempty" jsonschema:"steps walked that day"`
	StressLevel      *float64 `json:"stressLevel,omitempty" jsonschema:"self-reported stress, 1 to 10"`
	Gender           *string  `json:"gender,omitempty" jsonschema:"Male or Female; defaults to the profile"`
	Age              *float64 `json:"age,omitempty" jsonschema:"age in years; defaults to the profile"`
	Height           *float64 `json:"height,omitempty" jsonschema:"height in cm; defaults to the profile"`
	Weight           *float64 `json:"weight,omitempty" jsonschema:"weight in kg; defaults to the profile"`
}

type listInsightsInput struct {
	Key string `json:"key,omitempty" jsonschema:"lastKey of the previous page; empty for the first page"`
}

func (s *Server) handleGetProfile(ctx context.Context, req *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
	p, err := s.profiles.Get(ctx, s.identity.ID)
	if err != nil {
		return nil, nil, s.toolError("get_profile", err)
	}
	return nil, p, nil
}

func (s *Server) handleSubmitInsight(ctx context.Context, req *mcp.CallToolRequest, input submitInsightInput) (*mcp.CallToolResult, any, error) {
	// 与 HTTP 入口走同一套校验
	body, err := json.Marshal(input)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode input: %w", err)
	}
	m, err := validation.ParseHealthMetrics(body)
	if err != nil {
		return nil, nil, s.toolError("submit_insight", err)
	}
	in, err := s.insights.Submit(ctx, s.identity.ID, m)
	if err != nil {
		return nil, nil, s.toolError("submit_insight", err)
	}
	return nil, in, nil
}

func (s *Server) handleListInsights(ctx context.Context, req *mcp.CallToolRequest, input listInsightsInput) (*mcp.CallToolResult, any, error) {
	page, err := s.insights.List(ctx, s.identity.ID, input.Key)
	if err != nil {
		return nil, nil, s.toolError("list_insights", err)
	}
	if len(page.Results) == 0 {
		return nil, map[string]any{"message": "No insights found.", "lastKey": nil}, nil
	}
	return nil, page, nil
}

// toolError 只把通用信息和校验项交给助手，完整错误写日志
func (s *Server) toolError(tool string, err error) error {
	s.logger.Warn("MCP tool failed",
		zap.String("tool", tool),
		zap.String("kind", apperr.KindOf(err).String()),
		zap.Error(err),
	)
	msg := apperr.PublicMessage(err)
	issues := apperr.IssuesOf(err)
	if len(issues) == 0 {
		return errors.New(msg)
	}
	parts := make([]string, 0, len(issues))
	for _, is := range issues {
		if is.Field == "" {
			parts = append(parts, is.Reason)
			continue
		}
		parts = append(parts, is.Field+": "+is.Reason)
	}
	return fmt.Errorf("%s: %s", msg, strings.Join(parts, "; "))
}
