package service

import (
	"errors"
	"testing"
)

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *ValidationError
		want string
	}{
		{
			name: "field and message",
			err:  &ValidationError{Field: "question", Message: "cannot be empty"},
			want: "validation error on field question: cannot be empty",
		},
		{
			name: "empty field",
			err:  &ValidationError{Field: "", Message: "invalid"},
			want: "validation error on field : invalid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("ValidationError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidationError_IsInvalidInput(t *testing.T) {
	var err error = &ValidationError{Field: "k", Message: "must be positive"}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("ValidationError should match ErrInvalidInput")
	}
}

func TestDimensionMismatchError(t *testing.T) {
	err := WrapError(&DimensionMismatchError{Ordinal: 4, Want: 1024, Got: 768}, "build index")

	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatal("expected ErrDimensionMismatch in chain")
	}
	var dm *DimensionMismatchError
	if !errors.As(err, &dm) {
		t.Fatal("expected DimensionMismatchError in chain")
	}
	if dm.Ordinal != 4 || dm.Want != 1024 || dm.Got != 768 {
		t.Errorf("unexpected fields: %+v", dm)
	}
	want := "build index: vector 4 has dimension 768, expected 1024"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestWrapError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		msg     string
		wantNil bool
		wantMsg string
	}{
		{name: "nil error", err: nil, msg: "context", wantNil: true},
		{name: "wrapped error", err: errors.New("original error"), msg: "context", wantMsg: "context: original error"},
		{name: "empty message", err: errors.New("original error"), msg: "", wantMsg: ": original error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WrapError(tt.err, tt.msg)
			if tt.wantNil {
				if got != nil {
					t.Errorf("WrapError() = %v, want nil", got)
				}
				return
			}
			if got == nil {
				t.Fatal("WrapError() = nil, want error")
			}
			if got.Error() != tt.wantMsg {
				t.Errorf("WrapError() = %v, want %v", got.Error(), tt.wantMsg)
			}
			if !errors.Is(got, tt.err) {
				t.Errorf("WrapError() should wrap original error")
			}
		})
	}
}

func TestClassify(t *testing.T) {
	cause := errors.New("connection refused")

	got := Classify(ErrEmbeddingFailure, cause)
	if !errors.Is(got, ErrEmbeddingFailure) {
		t.Error("Classify() should add the kind")
	}
	if !errors.Is(got, cause) {
		t.Error("Classify() should keep the cause")
	}

	again := Classify(ErrEmbeddingFailure, got)
	if again != got {
		t.Error("Classify() should not wrap an error that already carries the kind")
	}

	if Classify(ErrEmbeddingFailure, nil) != nil {
		t.Error("Classify(nil) should be nil")
	}
}
