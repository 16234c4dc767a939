package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/adminauth/internal/config"
	"github.com/mrlokans/adminauth/internal/crypto"
	"github.com/mrlokans/adminauth/internal/flow"
	"github.com/mrlokans/adminauth/internal/settingsstore"
)

func identityServer(t *testing.T, hasAdmin bool) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/admin/init" {
			_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"hasAdmin": hasAdmin, "uuid": "inst-1"}})
			return
		}

		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		switch r.URL.Path {
		case "/admin/login":
			if body["email"] == "kai@doe.com" && body["password"] == "Secret123" {
				_, _ = w.Write([]byte(`{"data":{"token":"cli-token","user":{"id":1,"email":"kai@doe.com"}}}`))
				return
			}
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"Invalid credentials"}}`))
		case "/admin/forgot-password":
			w.WriteHeader(http.StatusNoContent)
		case "/admin/register-admin":
			_, _ = w.Write([]byte(`{"data":{"token":"admin-token","user":{"id":1,"email":"kai@doe.com","roles":[{"id":1,"code":"strapi-super-admin"}]}}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

type cliRun struct {
	dbPath string
	url    string
}

func newCLIRun(t *testing.T, hasAdmin bool) cliRun {
	t.Setenv(settingsstore.EnvHasAdmin, "")
	return cliRun{
		dbPath: filepath.Join(t.TempDir(), "cli.db"),
		url:    identityServer(t, hasAdmin).URL,
	}
}

func (r cliRun) run(mode, input string, logout bool) (string, error) {
	var out bytes.Buffer
	cmd := &AuthCommand{
		Mode:         mode,
		DatabasePath: r.dbPath,
		IdentityURL:  r.url,
		Logout:       logout,
		In:           strings.NewReader(input),
		Out:          &out,
		cfg: &config.Config{
			Identity: config.Identity{InitRetries: 1},
			Auth:     config.Auth{RedirectLocalOnly: true},
		},
	}
	err := cmd.RunContext(context.Background())
	return out.String(), err
}

func TestAuthCommand_LoginRemembersSession(t *testing.T) {
	r := newCLIRun(t, true)

	out, err := r.run("login", "kai@doe.com\nSecret123\ny\n", false)
	require.NoError(t, err)
	assert.Contains(t, out, "LOGIN")
	assert.Contains(t, out, "Next: /")
	assert.Contains(t, out, "Signed in as kai@doe.com.")
	assert.FileExists(t, filepath.Join(filepath.Dir(r.dbPath), crypto.KeyFileName))

	out, err = r.run("login", "", false)
	require.NoError(t, err)
	assert.Contains(t, out, "Redirected to /")
	assert.NotContains(t, out, "LOGIN")

	out, err = r.run("login", "", true)
	require.NoError(t, err)
	assert.Contains(t, out, "Signed out.")

	out, err = r.run("login", "", false)
	require.Error(t, err, "the form is shown again and input runs out")
	assert.Contains(t, out, "LOGIN")
}

func TestAuthCommand_UnrememberedSessionIsNotKept(t *testing.T) {
	r := newCLIRun(t, true)

	_, err := r.run("login", "kai@doe.com\nSecret123\n\n", false)
	require.NoError(t, err)

	out, _ := r.run("login", "", false)
	assert.Contains(t, out, "LOGIN")
}

func TestAuthCommand_FollowsGuardToRegisterAdmin(t *testing.T) {
	r := newCLIRun(t, false)

	input := strings.Join([]string{"Kai", "Doe", "kai@doe.com", "Secret123", "Secret123", "y"}, "\n") + "\n"
	out, err := r.run("login", input, false)
	require.NoError(t, err)

	assert.Contains(t, out, "Redirected to /auth/register-admin")
	assert.Contains(t, out, "REGISTER-ADMIN")
	assert.Contains(t, out, "Next: /usecase?hasAdmin=false")
}

func TestAuthCommand_ValidationFailure(t *testing.T) {
	r := newCLIRun(t, true)

	out, err := r.run("login", "not-an-email\nx\n\n", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid login form")
	assert.Contains(t, out, "email:")
}

func TestAuthCommand_RejectedCredentials(t *testing.T) {
	r := newCLIRun(t, true)

	out, err := r.run("login", "kai@doe.com\nwrong\n\n", false)
	require.Error(t, err)
	assert.Contains(t, out, "Error: Invalid credentials")
}

func TestAuthCommand_OffersPasswordReset(t *testing.T) {
	r := newCLIRun(t, true)

	out, err := r.run("login", "kai@doe.com\nwrong\n\ny\nkai@doe.com\n", false)
	require.NoError(t, err)
	assert.Contains(t, out, "Error: Invalid credentials")
	assert.Contains(t, out, "FORGOT-PASSWORD")
	assert.Contains(t, out, "Next: /auth/forgot-password-success")
	assert.NotContains(t, out, "Signed in")
}

func TestAuthCommand_ParseFlags(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cmd := &AuthCommand{cfg: &config.Config{Identity: config.Identity{BaseURL: "http://id"}}}
		require.NoError(t, cmd.ParseFlags(nil))
		assert.Equal(t, "login", cmd.Mode)
		assert.Equal(t, "http://id", cmd.IdentityURL)
	})

	t.Run("unknown mode", func(t *testing.T) {
		cmd := &AuthCommand{cfg: &config.Config{Identity: config.Identity{BaseURL: "http://id"}}}
		assert.Error(t, cmd.ParseFlags([]string{"-mode", "signup"}))
	})

	t.Run("missing identity url", func(t *testing.T) {
		cmd := &AuthCommand{cfg: &config.Config{}}
		assert.Error(t, cmd.ParseFlags(nil))
	})
}

func TestAuthPage(t *testing.T) {
	tests := []struct {
		pathname string
		want     string
		ok       bool
	}{
		{"/auth/register-admin", "register-admin", true},
		{"/auth/oops", "", false},
		{"/usecase", "", false},
		{"/", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.pathname, func(t *testing.T) {
			got, ok := authPage(flow.Target{Pathname: tt.pathname})
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsSecret(t *testing.T) {
	assert.True(t, isSecret("password"))
	assert.True(t, isSecret("userInfo.confirmPassword"))
	assert.False(t, isSecret("email"))
}
