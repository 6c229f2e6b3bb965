package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sheeehy/lena/pkg/day"
	"github.com/sheeehy/lena/pkg/storage"
)

var (
	listMemoriesToolName    = "list_memories"
	listMemoriesDescription = "List the memories on the lena timeline. Optionally restrict to a calendar year. Memories are ordered by date, most recently added first within a day."

	getDayToolName    = "get_day"
	getDayDescription = "Get a single day of the lena timeline by its ISO date (YYYY-MM-DD), including every memory recorded on it."
)

// ListMemoriesInput represents the input arguments for the list_memories tool.
type ListMemoriesInput struct {
	Year int `json:"year,omitempty" jsonschema:"optional calendar year to filter by, e.g. 2023"`
}

// ListMemoriesOutput represents the structured output of list_memories.
type ListMemoriesOutput struct {
	Memories []day.Memory `json:"memories"`
}

// GetDayInput represents the input arguments for the get_day tool.
type GetDayInput struct {
	Date string `json:"date" jsonschema:"the ISO date of the day, e.g. 2023-06-01"`
}

// GetDayOutput represents the structured output of get_day.
type GetDayOutput struct {
	Day day.Record `json:"day"`
}

func (s *Server) handleListMemories(ctx context.Context, _ *mcp.CallToolRequest, input ListMemoriesInput) (*mcp.CallToolResult, ListMemoriesOutput, error) {
	memories, err := s.config.Storer.List(ctx)
	if err != nil {
		s.config.Logger.Error("mcp list memories failed", slog.Any("error", err))
		return errorResult(fmt.Sprintf("Listing memories failed: %v", err)), ListMemoriesOutput{}, nil
	}

	if input.Year != 0 {
		memories = storage.FilterYear(memories, input.Year)
	}
	if memories == nil {
		memories = []day.Memory{}
	}

	output := ListMemoriesOutput{Memories: memories}
	return textResult(output), output, nil
}

func (s *Server) handleGetDay(ctx context.Context, _ *mcp.CallToolRequest, input GetDayInput) (*mcp.CallToolResult, GetDayOutput, error) {
	if input.Date == "" {
		return errorResult("date is required"), GetDayOutput{}, nil
	}
	date, err := day.ParseKey(input.Date)
	if err != nil {
		return errorResult(err.Error()), GetDayOutput{}, nil
	}

	memories, err := s.config.Storer.List(ctx)
	if err != nil {
		s.config.Logger.Error("mcp get day failed", slog.Any("error", err))
		return errorResult(fmt.Sprintf("Listing memories failed: %v", err)), GetDayOutput{}, nil
	}

	output := GetDayOutput{Day: day.Record{
		Date:     day.Key(date),
		Memories: storage.FilterDate(memories, day.Key(date)),
	}}
	return textResult(output), output, nil
}

func textResult(v any) *mcp.CallToolResult {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to serialize results: %v", err))
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
	}
}
