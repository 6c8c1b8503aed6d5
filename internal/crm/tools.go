package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"

	"github.com/mpreiss/dealbot/pkg/provider/llm"
)

// PipelineStages is the fixed stage enumeration of the sales pipeline.
var PipelineStages = []string{
	"Lead", "Qualified", "Demo", "Contract Out", "Won", "Lost", "Revisit",
}

// ToolResult is the outcome of one tool invocation, handed back to the
// model as data. Failures inside a tool never escape as errors — they are
// encoded with IsError set so the model can react.
type ToolResult struct {
	// ID is the correlation token of the invocation this result answers.
	ID string

	// Content is the JSON-serialized result payload (indented for model
	// consumption), or a short diagnostic when IsError is set.
	Content string

	// IsError marks a failed invocation.
	IsError bool
}

// tool pairs an LLM-facing schema with the handler that executes it.
// Each handler owns its own argument validation.
type tool struct {
	definition llm.ToolDefinition
	run        func(ctx context.Context, args string) (any, error)
}

// Executor owns the tool catalog and dispatches invocations to the Attio
// client. Safe for concurrent use.
type Executor struct {
	client *Client
	tools  map[string]tool
	order  []string
}

// NewExecutor creates an Executor over the given client.
func NewExecutor(client *Client) *Executor {
	e := &Executor{
		client: client,
		tools:  make(map[string]tool),
	}
	e.register(listDealsTool(client))
	e.register(getDealTool(client))
	e.register(searchDealsTool(client))
	e.register(listStagesTool(client))
	e.register(pipelineSummaryTool(client))
	return e
}

func (e *Executor) register(t tool) {
	e.tools[t.definition.Name] = t
	e.order = append(e.order, t.definition.Name)
}

// Catalog returns the tool definitions advertised to the model, in
// registration order. The result is rebuilt per call; callers may mutate it.
func (e *Executor) Catalog() []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, 0, len(e.order))
	for _, name := range e.order {
		defs = append(defs, e.tools[name].definition)
	}
	return defs
}

// Execute runs the invocation and returns its result. Unknown tool names
// and handler failures come back as error results, never as panics or
// errors crossing the loop boundary.
func (e *Executor) Execute(ctx context.Context, call llm.ToolCall) ToolResult {
	t, ok := e.tools[call.Name]
	if !ok {
		return errorResult(call.ID, fmt.Sprintf("unknown tool: %s", call.Name))
	}

	args := call.Arguments
	if args == "" {
		args = "{}"
	}
	out, err := t.run(ctx, args)
	if err != nil {
		slog.Warn("tool execution failed", "tool", call.Name, "err", err)
		return errorResult(call.ID, err.Error())
	}

	content, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return errorResult(call.ID, fmt.Sprintf("encode result: %v", err))
	}
	return ToolResult{ID: call.ID, Content: string(content)}
}

func errorResult(id, diag string) ToolResult {
	content, _ := json.MarshalIndent(map[string]string{"error": diag}, "", "  ")
	return ToolResult{ID: id, Content: string(content), IsError: true}
}

// ── Tool variants ─────────────────────────────────────────────────────────────

// listDealsArgs is the JSON-decoded input for the "list_deals" tool.
type listDealsArgs struct {
	Stage string `json:"stage"`
	Limit int    `json:"limit"`
}

func listDealsTool(c *Client) tool {
	return tool{
		definition: llm.ToolDefinition{
			Name:        "list_deals",
			Description: "List deals from the Attio CRM sales pipeline. Can filter by stage. Returns deal names, values, stages, and other key information.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"stage": map[string]any{
						"type":        "string",
						"description": "Filter by pipeline stage.",
						"enum":        PipelineStages,
					},
					"limit": map[string]any{
						"type":        "integer",
						"description": "Maximum number of deals to return (default 20, max 100)",
						"default":     20,
					},
				},
				"required": []string{},
			},
		},
		run: func(ctx context.Context, args string) (any, error) {
			var a listDealsArgs
			if err := json.Unmarshal([]byte(args), &a); err != nil {
				return nil, fmt.Errorf("parse arguments: %w", err)
			}
			if a.Stage != "" && !slices.Contains(PipelineStages, a.Stage) {
				return nil, fmt.Errorf("unknown stage %q; valid stages: %v", a.Stage, PipelineStages)
			}
			records, err := c.ListDeals(ctx, a.Stage, a.Limit)
			if err != nil {
				return nil, err
			}
			return map[string]any{"data": records}, nil
		},
	}
}

// getDealArgs is the JSON-decoded input for the "get_deal" tool.
type getDealArgs struct {
	DealID string `json:"deal_id"`
}

func getDealTool(c *Client) tool {
	return tool{
		definition: llm.ToolDefinition{
			Name:        "get_deal",
			Description: "Get detailed information about a specific deal by its ID.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"deal_id": map[string]any{
						"type":        "string",
						"description": "The unique ID of the deal to retrieve",
					},
				},
				"required": []string{"deal_id"},
			},
		},
		run: func(ctx context.Context, args string) (any, error) {
			var a getDealArgs
			if err := json.Unmarshal([]byte(args), &a); err != nil {
				return nil, fmt.Errorf("parse arguments: %w", err)
			}
			if a.DealID == "" {
				return nil, fmt.Errorf("deal_id is required")
			}
			records, err := c.GetDeal(ctx, a.DealID)
			if err != nil {
				return nil, err
			}
			return map[string]any{"data": records}, nil
		},
	}
}

// searchDealsArgs is the JSON-decoded input for the "search_deals" tool.
type searchDealsArgs struct {
	Query string `json:"query"`
}

func searchDealsTool(c *Client) tool {
	return tool{
		definition: llm.ToolDefinition{
			Name:        "search_deals",
			Description: "Search for deals in Attio CRM by company/deal name.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "The company or deal name to search for",
					},
				},
				"required": []string{"query"},
			},
		},
		run: func(ctx context.Context, args string) (any, error) {
			var a searchDealsArgs
			if err := json.Unmarshal([]byte(args), &a); err != nil {
				return nil, fmt.Errorf("parse arguments: %w", err)
			}
			if a.Query == "" {
				return nil, fmt.Errorf("query is required")
			}
			records, err := c.SearchDeals(ctx, a.Query)
			if err != nil {
				return nil, err
			}
			return map[string]any{"data": records}, nil
		},
	}
}

func listStagesTool(c *Client) tool {
	return tool{
		definition: llm.ToolDefinition{
			Name:        "list_pipeline_stages",
			Description: "List all pipeline stages/statuses currently in use, to understand the sales process.",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
				"required":   []string{},
			},
		},
		run: func(ctx context.Context, _ string) (any, error) {
			records, err := c.fetchPage(ctx)
			if err != nil {
				return nil, err
			}
			return map[string]any{"stages": StageList(records)}, nil
		},
	}
}

func pipelineSummaryTool(c *Client) tool {
	return tool{
		definition: llm.ToolDefinition{
			Name:        "get_pipeline_summary",
			Description: "Get a summary of the entire pipeline showing deal counts and total values by stage.",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
				"required":   []string{},
			},
		},
		run: func(ctx context.Context, _ string) (any, error) {
			records, err := c.fetchPage(ctx)
			if err != nil {
				return nil, err
			}
			return map[string]any{"pipeline_summary": Summarize(records)}, nil
		},
	}
}
