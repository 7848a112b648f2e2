package validation

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type registerForm struct {
	Email string `json:"email" validate:"required,email"`
	Pass  string `json:"password" validate:"required,min=8,max=100,password"`
}

func TestStrongPassword(t *testing.T) {
	cases := []struct {
		pass string
		want bool
	}{
		{"Passw0rd1", true},
		{"password1", false},
		{"PASSWORD1", false},
		{"Password", false},
		{"", false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, StrongPassword(tc.pass), tc.pass)
	}
}

func TestNew_UsesJSONFieldNames(t *testing.T) {
	v := New()

	err := v.Struct(registerForm{Email: "not-an-email", Pass: "weakpass"})
	require.Error(t, err)

	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))

	fields := map[string]string{}
	for _, e := range verrs {
		fields[e.Field()] = e.ActualTag()
	}

	assert.Equal(t, "email", fields["email"])
	assert.Equal(t, "password", fields["password"])
}

func TestNew_AcceptsValidForm(t *testing.T) {
	v := New()

	assert.NoError(t, v.Struct(registerForm{Email: "a@x.com", Pass: "Passw0rd1"}))
}
