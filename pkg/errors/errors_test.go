package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeDegenerateInput, "zero-length segment at (%.1f, %.1f)", 1.0, 2.0)
	if err.Code != ErrCodeDegenerateInput {
		t.Errorf("Code = %s, want %s", err.Code, ErrCodeDegenerateInput)
	}
	if !strings.Contains(err.Error(), "DEGENERATE_INPUT") {
		t.Errorf("Error() should contain the code, got %q", err.Error())
	}
	if !strings.Contains(err.Error(), "(1.0, 2.0)") {
		t.Errorf("Error() should contain coordinates, got %q", err.Error())
	}
}

func TestWrap(t *testing.T) {
	cause := stderrors.New("boom")
	err := Wrap(ErrCodeInvalidSVG, cause, "parse %s", "drawing.svg")
	if !stderrors.Is(err, cause) {
		t.Error("wrapped error should satisfy errors.Is for its cause")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("Error() should include the cause, got %q", err.Error())
	}
}

func TestIs(t *testing.T) {
	err := New(ErrCodeOversizedShape, "group 3 fits no page")
	if !Is(err, ErrCodeOversizedShape) {
		t.Error("Is() = false, want true for matching code")
	}
	if Is(err, ErrCodeOpenPath) {
		t.Error("Is() = true for non-matching code")
	}
	if Is(stderrors.New("plain"), ErrCodeOpenPath) {
		t.Error("Is() = true for non-structured error")
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(New(ErrCodeInvalidOffset, "group 1")); got != ErrCodeInvalidOffset {
		t.Errorf("GetCode = %s, want %s", got, ErrCodeInvalidOffset)
	}
	if got := GetCode(stderrors.New("plain")); got != "" {
		t.Errorf("GetCode of plain error = %q, want empty", got)
	}
}

func TestUserMessage(t *testing.T) {
	err := New(ErrCodeInvalidConfig, "page margin too large")
	if got := UserMessage(err); got != "page margin too large" {
		t.Errorf("UserMessage = %q, want message without code prefix", got)
	}
}

func TestDiagnostics(t *testing.T) {
	var d Diagnostics
	if d.Len() != 0 {
		t.Errorf("zero value Len = %d, want 0", d.Len())
	}
	d.Add(ErrCodeOpenPath, "dangling edge %d from (0,0) to (1,1)", 7)
	d.Add(ErrCodeInvalidOffset, "group %d", 2)
	if d.Len() != 2 {
		t.Fatalf("Len = %d, want 2", d.Len())
	}
	if !d.HasCode(ErrCodeOpenPath) {
		t.Error("HasCode(OPEN_PATH) = false, want true")
	}
	if d.HasCode(ErrCodeOversizedShape) {
		t.Error("HasCode(OVERSIZED_SHAPE) = true, want false")
	}
	if !strings.Contains(d.Summary(), "OPEN_PATH: dangling edge 7") {
		t.Errorf("Summary missing entry, got %q", d.Summary())
	}

	var other Diagnostics
	other.Add(ErrCodeDegenerateInput, "tiny patch")
	d.Merge(&other)
	if d.Len() != 3 {
		t.Errorf("Len after Merge = %d, want 3", d.Len())
	}
}
