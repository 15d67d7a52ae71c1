package validation

import (
	"strings"
	"testing"

	"campus-maintenance-system/pkg/apperror"

	"github.com/stretchr/testify/assert"
)

type registerInput struct {
	Username string `json:"username" validate:"required,min=3"`
	Email    string `json:"email" validate:"required,email"`
	Role     string `json:"role" validate:"omitempty,oneof=student staff"`
}

func TestStructReportsJSONFieldNames(t *testing.T) {
	err := Struct(registerInput{Username: "ab", Email: "a@b.io"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
	assert.EqualError(t, err, "username must be at least 3 characters")

	err = Struct(registerInput{Username: "alice", Email: "nope"})
	assert.EqualError(t, err, "Invalid email format")

	err = Struct(registerInput{Username: "alice", Email: "a@b.io", Role: "admin"})
	assert.EqualError(t, err, "role must be one of: student, staff")

	assert.NoError(t, Struct(registerInput{Username: "alice", Email: "a@b.io"}))
}

func TestDecodeJSONRejectsMalformedBody(t *testing.T) {
	var in registerInput
	err := DecodeJSON(strings.NewReader("{"), &in)
	assert.EqualError(t, err, "Invalid request payload")

	err = DecodeJSON(strings.NewReader(`{"username":"bob"}`), &in)
	assert.EqualError(t, err, "email is required")

	err = DecodeJSON(strings.NewReader(`{"username":42,"email":"a@b.io"}`), &in)
	assert.True(t, apperror.Is(err, apperror.KindValidation))
	assert.EqualError(t, err, "username must be a string")
}

type strictDate struct{}

func (*strictDate) UnmarshalJSON([]byte) error {
	return apperror.Validation("when must be a date")
}

func TestDecodeJSONKeepsDomainErrorsFromFields(t *testing.T) {
	var in struct {
		When strictDate `json:"when"`
	}
	err := DecodeJSON(strings.NewReader(`{"when":"soon"}`), &in)
	assert.True(t, apperror.Is(err, apperror.KindValidation))
	assert.EqualError(t, err, "when must be a date")
}
