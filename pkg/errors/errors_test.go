package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestStageErrorUnwrap(t *testing.T) {
	err := Newf(ErrMalformedRecord, "record has %d fields", 2)

	if !errors.Is(err, ErrMalformedRecord) {
		t.Error("StageError should unwrap to its sentinel")
	}
	if errors.Is(err, ErrConfiguration) {
		t.Error("StageError matched the wrong sentinel")
	}
}

func TestStageErrorAtLine(t *testing.T) {
	err := New(ErrEmptyDocument, "no tokens").AtLine(42)

	want := "empty document: line 42: no tokens"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"configuration", New(ErrConfiguration, "bad corpus size"), ExitConfiguration},
		{"malformed", New(ErrMalformedRecord, "no separator"), ExitBadRecord},
		{"empty document", New(ErrEmptyDocument, "no tokens"), ExitBadRecord},
		{"wrapped configuration", fmt.Errorf("outer: %w", ErrConfiguration), ExitConfiguration},
		{"unknown", errors.New("disk on fire"), ExitBadRecord},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestIsRecordError(t *testing.T) {
	if !IsRecordError(New(ErrMalformedRecord, "x")) {
		t.Error("malformed record should be a record error")
	}
	if !IsRecordError(New(ErrEmptyDocument, "x")) {
		t.Error("empty document should be a record error")
	}
	if IsRecordError(New(ErrConfiguration, "x")) {
		t.Error("configuration errors are not record errors")
	}
	if IsRecordError(New(ErrInternal, "x")) {
		t.Error("internal errors are not record errors")
	}
}
