package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tailored-agentic-units/percept/vision"
)

// NoFramesMessage is the defined short-circuit result for video tools on an
// empty frame buffer. It is not an error: the tool performs no external
// call and records no snapshot.
const NoFramesMessage = "no frames available"

// DefaultLookback is the video window in seconds when the runtime passes none.
const DefaultLookback = 2

func videoCaptionPrompt(seconds int, _ string) string {
	return fmt.Sprintf(
		"These frames were sampled from the last %d seconds of video, oldest first. "+
			"Describe what happens over the sequence with rich details but in a concise manner.",
		seconds,
	)
}

func videoQAPrompt(seconds int, question string) string {
	return fmt.Sprintf(
		"These frames were sampled from the last %d seconds of video, oldest first. "+
			"Answer the question based on the sequence. Question: %s",
		seconds, question,
	)
}

// videoTool builds a handler that samples a look-back window from the
// buffer and runs the prompt across the sampled frames.
func videoTool(sender string, completer VisionCompleter, fps int, prompt func(seconds int, question string) string) Handler {
	return func(ctx context.Context, buf *vision.Buffer, raw json.RawMessage) (Result, error) {
		args, err := parseArgs(raw)
		if err != nil {
			return Result{}, err
		}

		seconds := args.N
		if seconds <= 0 {
			seconds = DefaultLookback
		}

		frames := buf.Sample(seconds, fps)
		if len(frames) == 0 {
			return Result{Content: NoFramesMessage}, nil
		}

		result, err := completer.Complete(ctx, frames, prompt(seconds, args.Question))
		if err != nil {
			return Result{}, err
		}

		if args.logEnabled() {
			buf.PushSnapshot(vision.TextSnapshot(sender, result))
		}
		return Result{Content: result}, nil
	}
}
