package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/zatekoja/servicemarket/pkg/errors"
)

type profileInput struct {
	BusinessName string   `json:"business_name" validate:"required"`
	Years        int      `json:"years_experience" validate:"gte=0,max=80"`
	Categories   []string `json:"service_categories" validate:"required,min=1,dive,category"`
}

type signupInput struct {
	Email    string        `json:"email" validate:"required,email"`
	Role     string        `json:"role" validate:"required,role"`
	Provider *profileInput `json:"provider" validate:"omitempty"`
}

func newTestValidator(t *testing.T) *Validator {
	v := New()
	require.NoError(t, v.RegisterEnum("role", "customer", "provider"))
	require.NoError(t, v.RegisterEnum("category", "plumber", "electrician"))
	return v
}

func TestValidate_Valid(t *testing.T) {
	v := newTestValidator(t)

	err := v.Validate(signupInput{
		Email: "ada@example.com",
		Role:  "provider",
		Provider: &profileInput{
			BusinessName: "Ada Plumbing",
			Years:        4,
			Categories:   []string{"plumber"},
		},
	})
	assert.NoError(t, err)
}

func TestValidate_ReportsJSONFieldNames(t *testing.T) {
	v := newTestValidator(t)

	err := v.Validate(signupInput{Email: "not-an-email", Role: "admin"})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	assert.Contains(t, err.Error(), "email must be a valid email")
	assert.Contains(t, err.Error(), `role failed "role"`)
}

func TestValidate_NestedEnum(t *testing.T) {
	v := newTestValidator(t)

	err := v.Validate(signupInput{
		Email: "ada@example.com",
		Role:  "provider",
		Provider: &profileInput{
			BusinessName: "Ada",
			Categories:   []string{"astronaut"},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider.service_categories[0]")
}
