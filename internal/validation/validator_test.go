package validation_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	domainerrors "github.com/openshelf/openshelf-server/internal/errors"
	"github.com/openshelf/openshelf-server/internal/validation"
)

type registerRequest struct {
	Name           string `json:"name" validate:"required,min=1,max=200"`
	Email          string `json:"email" validate:"required,email"`
	BorrowingLimit int    `json:"borrowing_limit" validate:"gte=1,lte=50"`
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()

	req := registerRequest{
		Name:           "Ada Lovelace",
		Email:          "ada@example.com",
		BorrowingLimit: 5,
	}

	err := v.Validate(req)
	assert.NoError(t, err)
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name       string
		req        registerRequest
		wantErrMsg string
	}{
		{
			name: "missing required field",
			req: registerRequest{
				Name:           "", // Missing
				Email:          "ada@example.com",
				BorrowingLimit: 5,
			},
			wantErrMsg: "name",
		},
		{
			name: "invalid email",
			req: registerRequest{
				Name:           "Ada Lovelace",
				Email:          "not-an-email",
				BorrowingLimit: 5,
			},
			wantErrMsg: "email",
		},
		{
			name: "borrowing limit too low",
			req: registerRequest{
				Name:           "Ada Lovelace",
				Email:          "ada@example.com",
				BorrowingLimit: 0,
			},
			wantErrMsg: "borrowing_limit",
		},
		{
			name: "borrowing limit too high",
			req: registerRequest{
				Name:           "Ada Lovelace",
				Email:          "ada@example.com",
				BorrowingLimit: 51,
			},
			wantErrMsg: "borrowing_limit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			assert.Error(t, err)

			var domainErr *domainerrors.Error
			if assert.True(t, errors.As(err, &domainErr)) {
				assert.Equal(t, domainerrors.CodeValidation, domainErr.Code)
				details, ok := domainErr.Details.(map[string]string)
				if assert.True(t, ok) {
					assert.Contains(t, details, tt.wantErrMsg)
				}
			}
		})
	}
}

func TestValidator_JSONFieldNames(t *testing.T) {
	v := validation.New()

	req := registerRequest{
		Name:           "Ada Lovelace",
		Email:          "",
		BorrowingLimit: 5,
	}

	err := v.Validate(req)
	assert.Error(t, err)

	var domainErr *domainerrors.Error
	assert.True(t, errors.As(err, &domainErr))

	// Should use JSON tag name "email", not struct field name "Email"
	details, ok := domainErr.Details.(map[string]string)
	if assert.True(t, ok) {
		assert.Contains(t, details, "email")
		assert.NotContains(t, details, "Email")
	}
}
