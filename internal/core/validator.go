package core

import (
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"subtrack/internal/types"
)

// Validator wraps go-playground/validator for request payload validation.
// A single instance is shared across handlers; the underlying validate
// struct caches struct metadata and is safe for concurrent use.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator creates a Validator with struct-level required semantics.
func NewValidator(logger *slog.Logger) *Validator {
	return &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// ValidateStruct validates a request payload against its `validate` tags.
// Failures return a *types.AppError with a validation code and per-field
// details, which the response layer renders as a 200 BadRequest.
func (v *Validator) ValidateStruct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		// InvalidValidationError means the handler passed a non-struct;
		// that is a programming error, not a client error.
		return types.NewAppError(types.ErrCodeInternalUnexpected, "invalid validation target", err)
	}

	details := make(map[string]any, len(validationErrs))
	for _, fe := range validationErrs {
		details[strings.ToLower(fe.Field())] = fe.Tag()
	}

	return types.NewAppErrorWithDetails(
		types.ErrCodeValidationMissingField,
		"request validation failed",
		err,
		details,
	)
}
