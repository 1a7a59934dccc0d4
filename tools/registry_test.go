package tools_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/tailored-agentic-units/percept/core/protocol"
	"github.com/tailored-agentic-units/percept/tools"
	"github.com/tailored-agentic-units/percept/vision"
)

func testTool(name string) protocol.Tool {
	return protocol.Tool{
		Name:        name,
		Description: "test tool",
		Parameters:  map[string]any{"type": "object"},
	}
}

func echoHandler(content string) tools.Handler {
	return func(ctx context.Context, buf *vision.Buffer, args json.RawMessage) (tools.Result, error) {
		return tools.Result{Content: content}, nil
	}
}

func TestRegistry_Register(t *testing.T) {
	r := tools.NewRegistry()

	if err := r.Register(testTool("caption"), echoHandler("ok")); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, ok := r.Get("caption"); !ok {
		t.Error("registered tool should be retrievable")
	}
}

func TestRegistry_Register_Duplicate(t *testing.T) {
	r := tools.NewRegistry()
	_ = r.Register(testTool("caption"), echoHandler("a"))

	err := r.Register(testTool("caption"), echoHandler("b"))
	if !errors.Is(err, tools.ErrAlreadyExists) {
		t.Errorf("duplicate register error = %v, want ErrAlreadyExists", err)
	}
}

func TestRegistry_Register_EmptyName(t *testing.T) {
	r := tools.NewRegistry()

	if err := r.Register(protocol.Tool{}, echoHandler("x")); !errors.Is(err, tools.ErrEmptyName) {
		t.Errorf("empty name error = %v, want ErrEmptyName", err)
	}
}

func TestRegistry_Replace(t *testing.T) {
	r := tools.NewRegistry()
	_ = r.Register(testTool("qa"), echoHandler("old"))

	if err := r.Replace(testTool("qa"), echoHandler("new")); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	result, err := r.Execute(context.Background(), "qa", vision.NewBuffer(1), nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Content != "new" {
		t.Errorf("Content = %q, want %q", result.Content, "new")
	}

	if err := r.Replace(testTool("missing"), echoHandler("x")); !errors.Is(err, tools.ErrNotFound) {
		t.Errorf("replace missing error = %v, want ErrNotFound", err)
	}
}

func TestRegistry_List_Sorted(t *testing.T) {
	r := tools.NewRegistry()
	for _, name := range []string{"time", "caption", "ocr"} {
		_ = r.Register(testTool(name), echoHandler(name))
	}

	list := r.List()
	want := []string{"caption", "ocr", "time"}
	if len(list) != len(want) {
		t.Fatalf("got %d tools, want %d", len(list), len(want))
	}
	for i, w := range want {
		if list[i].Name != w {
			t.Errorf("list[%d].Name = %q, want %q", i, list[i].Name, w)
		}
	}
}

func TestRegistry_Execute_NotFound(t *testing.T) {
	r := tools.NewRegistry()

	_, err := r.Execute(context.Background(), "missing", vision.NewBuffer(1), nil)
	if !errors.Is(err, tools.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestRegistry_Execute_WrapsHandlerError(t *testing.T) {
	r := tools.NewRegistry()
	boom := errors.New("boom")
	_ = r.Register(testTool("failing"), func(ctx context.Context, buf *vision.Buffer, args json.RawMessage) (tools.Result, error) {
		return tools.Result{}, boom
	})

	_, err := r.Execute(context.Background(), "failing", vision.NewBuffer(1), nil)
	if !errors.Is(err, boom) {
		t.Errorf("error should wrap the handler error, got %v", err)
	}
}
