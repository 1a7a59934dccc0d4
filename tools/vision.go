package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tailored-agentic-units/percept/annotate"
	"github.com/tailored-agentic-units/percept/core/protocol"
	"github.com/tailored-agentic-units/percept/vision"
)

// VisionCompleter sends frames and an instruction to the external
// vision-completion service and returns the free-text completion.
type VisionCompleter interface {
	Complete(ctx context.Context, frames []vision.Frame, prompt string) (string, error)
}

// Localizer sends a frame to the external object-localization service and
// returns a mapping from object label to bounding boxes (x1,y1,x2,y2).
type Localizer interface {
	Localize(ctx context.Context, frame vision.Frame) (map[string][][4]float64, error)
}

const (
	captionPrompt = "Describe the image with rich details but in a concise manner."
	ocrPrompt     = "Extract all text from the image without missing anything."

	timeLayout = "2006-01-02 15:04:05"
)

// commonArgs covers the argument surface shared by the builtin tools.
// Log defaults to true: tools record a snapshot unless explicitly
// suppressed by the runtime.
type commonArgs struct {
	Log      *bool  `json:"log"`
	Question string `json:"question"`
	N        int    `json:"n"`
}

func parseArgs(raw json.RawMessage) (commonArgs, error) {
	var args commonArgs
	if len(raw) == 0 {
		return args, nil
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return args, fmt.Errorf("invalid tool arguments: %w", err)
	}
	return args, nil
}

func (a commonArgs) logEnabled() bool {
	return a.Log == nil || *a.Log
}

func logParameter() map[string]any {
	return map[string]any{
		"type":        "boolean",
		"description": "Whether to record the result as a snapshot in the chat history.",
	}
}

// RegisterVisionSet registers the builtin capability set against the given
// registry: caption, ocr, qa, localize, time, video_caption, and video_qa.
// The fps value is the assumed ingest frame rate used by the video tools'
// window sampling.
func RegisterVisionSet(r *Registry, completer VisionCompleter, localizer Localizer, fps int) error {
	builtins := []struct {
		tool    protocol.Tool
		handler Handler
	}{
		{
			tool: protocol.Tool{
				Name:        "caption",
				Description: "Generate a descriptive caption for the most recent frame.",
				Parameters: map[string]any{
					"type":       "object",
					"properties": map[string]any{"log": logParameter()},
				},
			},
			handler: singleFrameTool("caption", completer, captionPrompt),
		},
		{
			tool: protocol.Tool{
				Name:        "ocr",
				Description: "Extract all text visible in the most recent frame.",
				Parameters: map[string]any{
					"type":       "object",
					"properties": map[string]any{"log": logParameter()},
				},
			},
			handler: singleFrameTool("ocr", completer, ocrPrompt),
		},
		{
			tool: protocol.Tool{
				Name:        "qa",
				Description: "Answer a question based on the most recent frame.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"question": map[string]any{
							"type":        "string",
							"description": "The question to answer about the current view.",
						},
						"log": logParameter(),
					},
					"required": []string{"question"},
				},
			},
			handler: questionTool(completer),
		},
		{
			tool: protocol.Tool{
				Name:        "localize",
				Description: "Localize all objects in the most recent frame. Returns {label: list of bounding boxes}.",
				Parameters: map[string]any{
					"type":       "object",
					"properties": map[string]any{"log": logParameter()},
				},
			},
			handler: localizeTool(localizer),
		},
		{
			tool: protocol.Tool{
				Name:        "time",
				Description: "Get the current time.",
				Parameters: map[string]any{
					"type":       "object",
					"properties": map[string]any{"log": logParameter()},
				},
			},
			handler: timeTool(),
		},
		{
			tool: protocol.Tool{
				Name:        "video_caption",
				Description: "Describe what happened over the last n seconds of video.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"n": map[string]any{
							"type":        "integer",
							"description": "Seconds of video to look back over. Defaults to 2.",
						},
						"log": logParameter(),
					},
				},
			},
			handler: videoTool("video caption", completer, fps, videoCaptionPrompt),
		},
		{
			tool: protocol.Tool{
				Name:        "video_qa",
				Description: "Answer a question about the last n seconds of video.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"question": map[string]any{
							"type":        "string",
							"description": "The question to answer about the recent video.",
						},
						"n": map[string]any{
							"type":        "integer",
							"description": "Seconds of video to look back over. Defaults to 2.",
						},
						"log": logParameter(),
					},
					"required": []string{"question"},
				},
			},
			handler: videoTool("video qa", completer, fps, videoQAPrompt),
		},
	}

	for _, b := range builtins {
		if err := r.Register(b.tool, b.handler); err != nil {
			return err
		}
	}
	return nil
}

// singleFrameTool builds a handler that runs a fixed prompt against the
// latest frame and snapshots the result under sender.
func singleFrameTool(sender string, completer VisionCompleter, prompt string) Handler {
	return func(ctx context.Context, buf *vision.Buffer, raw json.RawMessage) (Result, error) {
		args, err := parseArgs(raw)
		if err != nil {
			return Result{}, err
		}

		frame, ok := buf.Latest()
		if !ok {
			return Result{}, ErrNoFrames
		}

		result, err := completer.Complete(ctx, []vision.Frame{frame}, prompt)
		if err != nil {
			return Result{}, err
		}

		if args.logEnabled() {
			buf.PushSnapshot(vision.TextSnapshot(sender, result))
		}
		return Result{Content: result}, nil
	}
}

func questionTool(completer VisionCompleter) Handler {
	return func(ctx context.Context, buf *vision.Buffer, raw json.RawMessage) (Result, error) {
		args, err := parseArgs(raw)
		if err != nil {
			return Result{}, err
		}
		if args.Question == "" {
			return Result{Content: "question is required", IsError: true}, nil
		}

		frame, ok := buf.Latest()
		if !ok {
			return Result{}, ErrNoFrames
		}

		prompt := fmt.Sprintf("Answer the question based on the image. Question: %s", args.Question)
		result, err := completer.Complete(ctx, []vision.Frame{frame}, prompt)
		if err != nil {
			return Result{}, err
		}

		if args.logEnabled() {
			buf.PushSnapshot(vision.TextSnapshot("qa", result))
		}
		return Result{Content: result}, nil
	}
}

func localizeTool(localizer Localizer) Handler {
	return func(ctx context.Context, buf *vision.Buffer, raw json.RawMessage) (Result, error) {
		args, err := parseArgs(raw)
		if err != nil {
			return Result{}, err
		}

		frame, ok := buf.Latest()
		if !ok {
			return Result{}, ErrNoFrames
		}

		boxes, err := localizer.Localize(ctx, frame)
		if err != nil {
			return Result{}, err
		}

		mapping, err := json.Marshal(boxes)
		if err != nil {
			return Result{}, fmt.Errorf("encode localization result: %w", err)
		}

		if args.logEnabled() {
			annotated, err := annotate.Draw(frame.Data, boxes)
			if err != nil {
				return Result{}, fmt.Errorf("annotate frame: %w", err)
			}
			buf.PushSnapshot(vision.ImageSnapshot("localize", annotated))
			buf.PushSnapshot(vision.TextSnapshot("objxbox", string(mapping)))
		}
		return Result{Content: string(mapping)}, nil
	}
}

func timeTool() Handler {
	return func(ctx context.Context, buf *vision.Buffer, raw json.RawMessage) (Result, error) {
		args, err := parseArgs(raw)
		if err != nil {
			return Result{}, err
		}

		result := time.Now().Format(timeLayout)
		if args.logEnabled() {
			buf.PushSnapshot(vision.TextSnapshot("time", result))
		}
		return Result{Content: result}, nil
	}
}
