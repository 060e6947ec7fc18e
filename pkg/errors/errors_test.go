package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(CodeEmptyDataset, "no rows after cleaning")

	if err.Code != CodeEmptyDataset {
		t.Errorf("Expected code %s, got %s", CodeEmptyDataset, err.Code)
	}
	if !strings.Contains(err.Error(), "E104") {
		t.Errorf("Expected code in message, got %q", err.Error())
	}
	if !strings.Contains(err.Error(), "no rows after cleaning") {
		t.Errorf("Expected message in output, got %q", err.Error())
	}
}

func TestWrap(t *testing.T) {
	cause := fmt.Errorf("read: connection reset")
	err := Wrap(cause, CodeSourceFetch, "fetch dataset")

	if !stderrors.Is(err, cause) {
		t.Error("Expected wrapped cause reachable via errors.Is")
	}
	if CodeOf(err) != CodeSourceFetch {
		t.Errorf("Expected fetch code, got %s", CodeOf(err))
	}
}

func TestWrap_Nil(t *testing.T) {
	if Wrap(nil, CodeUnknown, "msg") != nil {
		t.Error("Expected nil for wrapping nil")
	}
}

func TestCodeOf(t *testing.T) {
	if CodeOf(fmt.Errorf("plain")) != CodeUnknown {
		t.Errorf("Expected unknown code for plain error, got %s", CodeOf(fmt.Errorf("plain")))
	}

	wrapped := fmt.Errorf("outer: %w", New(CodeChartRender, "render"))
	if CodeOf(wrapped) != CodeChartRender {
		t.Errorf("Expected code through wrapping, got %s", CodeOf(wrapped))
	}
}

func TestWithContext(t *testing.T) {
	err := New(CodeInvalidFormat, "parse input").
		WithContext("path", "a.csv").
		WithContext("line", 42)

	if err.Context["path"] != "a.csv" {
		t.Errorf("Expected path context, got %v", err.Context["path"])
	}
	if err.Context["line"] != 42 {
		t.Errorf("Expected line context, got %v", err.Context["line"])
	}
}

func TestIs_MatchesByCode(t *testing.T) {
	a := New(CodeCacheFailed, "put")
	b := New(CodeCacheFailed, "get")

	if !stderrors.Is(a, b) {
		t.Error("Expected same-code errors to match")
	}

	c := New(CodeChartRender, "render")
	if stderrors.Is(a, c) {
		t.Error("Expected different-code errors not to match")
	}
}
