package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry_ResolvesEveryMode(t *testing.T) {
	reg := DefaultRegistry()

	for _, mode := range Modes() {
		t.Run(string(mode), func(t *testing.T) {
			d, ok := reg.Resolve(mode)
			require.True(t, ok)
			assert.NotEmpty(t, d.Endpoint)
			assert.Equal(t, mode, d.Mode)
			assert.Equal(t, "/admin/"+d.Endpoint, d.Path())
		})
	}
}

func TestRegistry_ResolveUnknown(t *testing.T) {
	reg := DefaultRegistry()

	_, ok := reg.Resolve(Mode("sso"))
	assert.False(t, ok)

	_, ok = reg.ResolveRaw("")
	assert.False(t, ok)
}

func TestNewRegistry_ExtensionOverridesBase(t *testing.T) {
	ext := Forms{
		ModeLogin: {Endpoint: "login/sso", FieldsToOmit: []string{"provider"}},
		Mode("bogus"): {Endpoint: "bogus"},
	}
	reg := NewRegistry(DefaultForms(), ext)

	login, ok := reg.Resolve(ModeLogin)
	require.True(t, ok)
	assert.Equal(t, "login/sso", login.Endpoint)
	assert.Equal(t, []string{"provider"}, login.FieldsToOmit)
	assert.Empty(t, login.Schema.Fields, "override replaces the whole entry")

	register, ok := reg.Resolve(ModeRegister)
	require.True(t, ok)
	assert.Equal(t, "register", register.Endpoint)

	_, ok = reg.Resolve(Mode("bogus"))
	assert.False(t, ok)
}

func TestRegistry_ResolveReturnsCopy(t *testing.T) {
	reg := DefaultRegistry()

	d, _ := reg.Resolve(ModeLogin)
	d.FieldsToOmit[0] = "password"
	d.Endpoint = "changed"

	again, _ := reg.Resolve(ModeLogin)
	assert.Equal(t, "login", again.Endpoint)
	assert.Equal(t, []string{"rememberMe"}, again.FieldsToOmit)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("register-admin")
	require.NoError(t, err)
	assert.Equal(t, ModeRegisterAdmin, m)
	assert.True(t, m.IsRegistration())

	_, err = ParseMode("Login")
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestFlowDescriptor_Disabled(t *testing.T) {
	d, _ := DefaultRegistry().Resolve(ModeRegister)

	assert.True(t, d.Disabled("userInfo.email"))
	assert.True(t, d.Disabled("email"))
	assert.False(t, d.Disabled("userInfo.firstname"))
}
