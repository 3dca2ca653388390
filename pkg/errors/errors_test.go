package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeConfiguration, "test message: %s", "value")

	if err.Code != ErrCodeConfiguration {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeConfiguration)
	}

	if err.Message != "test message: value" {
		t.Errorf("Message = %v, want %v", err.Message, "test message: value")
	}

	expected := "CONFIGURATION: test message: value"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeFileNotFound, cause, "read mesh")

	if err.Code != ErrCodeFileNotFound {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeFileNotFound)
	}

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}

	unwrapped := errors.Unwrap(err)
	if unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestIs(t *testing.T) {
	evalErr := &EvaluationError{Field: "multiplier", Expr: "1/x"}

	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{
			name:     "matching code",
			err:      New(ErrCodeConfiguration, "test"),
			code:     ErrCodeConfiguration,
			expected: true,
		},
		{
			name:     "non-matching code",
			err:      New(ErrCodeConfiguration, "test"),
			code:     ErrCodeEvaluation,
			expected: false,
		},
		{
			name:     "wrapped error uses outermost code",
			err:      Wrap(ErrCodeConfiguration, New(ErrCodeInvalidInput, "inner"), "outer"),
			code:     ErrCodeConfiguration,
			expected: true,
		},
		{
			name:     "typed error",
			err:      evalErr,
			code:     ErrCodeEvaluation,
			expected: true,
		},
		{
			name:     "typed error behind fmt wrap",
			err:      fmt.Errorf("transform: %w", evalErr),
			code:     ErrCodeEvaluation,
			expected: true,
		},
		{
			name:     "source error forwards inner code",
			err:      &SourceError{Line: 3, Text: "G1 X1 E1", Err: &GeometryAmbiguityError{}},
			code:     ErrCodeGeometryAmbiguity,
			expected: true,
		},
		{
			name:     "non-Error type",
			err:      errors.New("plain error"),
			code:     ErrCodeInvalidInput,
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			code:     ErrCodeInvalidInput,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Code
	}{
		{
			name:     "Error type",
			err:      New(ErrCodePhysicalParameter, "test"),
			expected: ErrCodePhysicalParameter,
		},
		{
			name:     "source error around plain error",
			err:      &SourceError{Line: 1, Err: errors.New("boom")},
			expected: ErrCodeInternal,
		},
		{
			name:     "plain error",
			err:      errors.New("plain"),
			expected: "",
		},
		{
			name:     "nil",
			err:      nil,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.expected {
				t.Errorf("GetCode() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "Error type",
			err:      New(ErrCodeInvalidInput, "friendly message"),
			expected: "friendly message",
		},
		{
			name:     "plain error",
			err:      errors.New("plain error"),
			expected: "plain error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.expected {
				t.Errorf("UserMessage() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestEvaluationError(t *testing.T) {
	cause := errors.New("division by zero")
	err := &EvaluationError{
		Region: "core",
		Field:  "geometry",
		Expr:   "1/x",
		Point:  r3.Vec{X: 0, Y: 1, Z: 2},
		Cause:  cause,
	}

	msg := err.Error()
	for _, want := range []string{"core.geometry", `"1/x"`, "(0.0000, 1.0000, 2.0000)", "division by zero"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
	if err.Code() != ErrCodeEvaluation {
		t.Errorf("Code() = %v, want %v", err.Code(), ErrCodeEvaluation)
	}
}

func TestSourceError(t *testing.T) {
	inner := &GeometryAmbiguityError{Iterations: 64, Reason: "bisection cap"}
	err := &SourceError{Line: 12, Text: "G1 X10 E1", Err: inner}

	if !strings.HasPrefix(err.Error(), "line 12 (G1 X10 E1): ambiguous region boundary") {
		t.Errorf("Error() = %q", err.Error())
	}

	var target *GeometryAmbiguityError
	if !errors.As(err, &target) {
		t.Fatal("errors.As(*GeometryAmbiguityError) = false, want true")
	}
	if target.Iterations != 64 {
		t.Errorf("Iterations = %d, want 64", target.Iterations)
	}
}
