package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/orgkeeper/internal/apperr"
)

type input struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,oneof=admin member"`
	Note  string `json:"note" validate:"max=5"`
}

func TestStruct(t *testing.T) {
	v := New()

	require.NoError(t, v.Struct("test", input{Email: "a@x.com", Role: "admin"}))

	err := v.Struct("test", input{Email: "nope", Role: "owner", Note: "toolong"})
	require.Error(t, err)
	require.True(t, errors.Is(err, apperr.ErrInvalid))
	require.Contains(t, err.Error(), "email: invalid email format")
	require.Contains(t, err.Error(), "role: must be one of: admin member")
	require.Contains(t, err.Error(), "note: must be at most 5 characters")

	err = v.Struct("test", input{})
	require.Contains(t, err.Error(), "email: is required")
}

func TestNoControl(t *testing.T) {
	type named struct {
		Name string `json:"name" validate:"nocontrol"`
	}

	tests := []struct {
		name  string
		value string
		valid bool
	}{
		{name: "plain", value: "Acme Corp", valid: true},
		{name: "unicode letters", value: "Ünïcode Co", valid: true},
		{name: "empty", value: "", valid: true},
		{name: "carriage return line feed", value: "Acme\r\nBcc: x@evil.test", valid: false},
		{name: "line feed", value: "Acme\n", valid: false},
		{name: "nul", value: "Ac\x00me", valid: false},
		{name: "tab", value: "Ac\tme", valid: false},
	}

	v := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct("test", named{Name: tt.value})
			if tt.valid {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, apperr.ErrInvalid)
			require.Contains(t, err.Error(), "name: must not contain control characters")
		})
	}
}
