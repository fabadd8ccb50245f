package core

import (
	"errors"
	"log/slog"
	"testing"

	"subtrack/internal/types"
)

type loginRequest struct {
	Username string `json:"username" validate:"required"`
}

func TestValidateStruct_Valid(t *testing.T) {
	v := NewValidator(slog.Default())

	if err := v.ValidateStruct(loginRequest{Username: "alice"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateStruct_MissingRequiredField(t *testing.T) {
	v := NewValidator(slog.Default())

	err := v.ValidateStruct(loginRequest{})
	if err == nil {
		t.Fatal("expected a validation error")
	}

	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *types.AppError, got %T", err)
	}
	if appErr.Code != types.ErrCodeValidationMissingField {
		t.Errorf("expected code %s, got %s", types.ErrCodeValidationMissingField, appErr.Code)
	}
	if appErr.Code.Label() != "BadRequest" {
		t.Errorf("expected BadRequest label, got %q", appErr.Code.Label())
	}
	if tag, ok := appErr.Details["username"]; !ok || tag != "required" {
		t.Errorf("expected details to name the failing field, got %v", appErr.Details)
	}
}

func TestValidateStruct_NonStructTarget(t *testing.T) {
	v := NewValidator(slog.Default())

	err := v.ValidateStruct("not a struct")
	if err == nil {
		t.Fatal("expected an error")
	}

	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *types.AppError, got %T", err)
	}
	if appErr.Code != types.ErrCodeInternalUnexpected {
		t.Errorf("expected internal code for programming error, got %s", appErr.Code)
	}
}
