package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/openai/openai-go"

	"github.com/tailored-agentic-units/percept/core/config"
	"github.com/tailored-agentic-units/percept/observability"
	"github.com/tailored-agentic-units/percept/tools"
)

const defaultMaxIterations = 10

// Model abstracts the tool-calling completion endpoint for testability.
// The default implementation is *Client.
type Model interface {
	Tools(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, defs []openai.ChatCompletionToolParam) (*openai.ChatCompletion, error)
}

// Loop is the default Runner: a think/act cycle that asks the model for
// the next action, dispatches requested tool calls against the session's
// frame buffer, feeds results back, and repeats until the model produces
// a final text response. Each turn starts from the submitted input plus
// the agent instructions; conversation memory lives in the transcript,
// not in the runtime.
type Loop struct {
	model         Model
	registry      *tools.Registry
	instructions  string
	maxIterations int
}

// NewLoop creates a Loop bound to the given model and capability set.
func NewLoop(model Model, registry *tools.Registry, cfg config.AgentConfig) *Loop {
	maxIterations := cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = defaultMaxIterations
	}
	return &Loop{
		model:         model,
		registry:      registry,
		instructions:  cfg.Instructions,
		maxIterations: maxIterations,
	}
}

// Run executes the tool loop for one turn. Tool execution errors propagate
// uncaught: the enclosing scheduler owns turn-failure handling.
func (l *Loop) Run(ctx context.Context, tc ToolContext, input string) (*Result, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage(input),
	}
	if l.instructions != "" {
		messages = append([]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(l.instructions),
		}, messages...)
	}

	defs := toolDefinitions(l.registry)
	result := &Result{}

	for iteration := 0; iteration < l.maxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		completion, err := l.model.Tools(ctx, messages, defs)
		if err != nil {
			return result, fmt.Errorf("agent call failed: %w", err)
		}
		if len(completion.Choices) == 0 {
			return result, ErrEmptyResponse
		}

		msg := completion.Choices[0].Message
		result.Iterations = iteration + 1

		if len(msg.ToolCalls) == 0 {
			result.FinalOutput = msg.Content
			return result, nil
		}

		messages = append(messages, msg.ToParam())

		for _, call := range msg.ToolCalls {
			record, toolMsg, err := l.dispatch(ctx, tc, call, iteration+1)
			if err != nil {
				return result, err
			}
			result.ToolCalls = append(result.ToolCalls, record)
			messages = append(messages, toolMsg)
		}
	}

	return result, ErrMaxIterations
}

// dispatch executes one requested tool call and reports its lifecycle to
// the step recorder.
func (l *Loop) dispatch(ctx context.Context, tc ToolContext, call openai.ChatCompletionMessageToolCall, iteration int) (ToolCallRecord, openai.ChatCompletionMessageParamUnion, error) {
	record := ToolCallRecord{Iteration: iteration}
	record.ID = call.ID
	record.Name = call.Function.Name
	record.Arguments = call.Function.Arguments

	tc.Record(ctx, observability.StepToolCall, map[string]any{
		"id":        record.ID,
		"name":      record.Name,
		"arguments": record.Arguments,
	}, 0)

	start := time.Now()
	toolResult, err := l.registry.Execute(ctx, record.Name, tc.Buffer, json.RawMessage(record.Arguments))
	record.Duration = time.Since(start)

	if err != nil {
		tc.Record(ctx, observability.StepToolResult, map[string]any{
			"id":    record.ID,
			"name":  record.Name,
			"error": err.Error(),
		}, record.Duration)
		return record, openai.ChatCompletionMessageParamUnion{}, err
	}

	record.Result = toolResult.Content
	record.IsError = toolResult.IsError

	tc.Record(ctx, observability.StepToolResult, map[string]any{
		"id":            record.ID,
		"name":          record.Name,
		"result_length": len(record.Result),
		"is_error":      record.IsError,
	}, record.Duration)

	return record, openai.ToolMessage(record.Result, record.ID), nil
}

func toolDefinitions(registry *tools.Registry) []openai.ChatCompletionToolParam {
	list := registry.List()
	defs := make([]openai.ChatCompletionToolParam, 0, len(list))
	for _, t := range list {
		defs = append(defs, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  openai.FunctionParameters(t.Parameters),
			},
		})
	}
	return defs
}
