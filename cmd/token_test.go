package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/gmail-ai-agent/internal/session"
)

func runTokenCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newTokenCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return strings.TrimSpace(out.String()), err
}

func TestTokenCmd_Issue(t *testing.T) {
	out, err := runTokenCmd(t,
		"--secret-key", "s3cret",
		"--access-token", "ya29.a",
		"--refresh-token", "1//r",
		"--client-id", "cid",
		"--client-secret", "csecret",
	)
	require.NoError(t, err)

	creds, err := session.NewManager("s3cret").Verify(out)
	require.NoError(t, err)
	assert.Equal(t, "ya29.a", creds.AccessToken)
	assert.Equal(t, "csecret", creds.ClientSecret)
	assert.Equal(t, session.DefaultSubject, creds.Subject)
}

func TestTokenCmd_EnvFallback(t *testing.T) {
	t.Setenv("SECRET_KEY", "from-env")
	t.Setenv("GOOGLE_CLIENT_ID", "cid")
	t.Setenv("GOOGLE_CLIENT_SECRET", "csecret")
	t.Setenv("GOOGLE_ACCESS_TOKEN", "ya29.a")
	t.Setenv("GOOGLE_REFRESH_TOKEN", "1//r")

	out, err := runTokenCmd(t)
	require.NoError(t, err)

	_, err = session.NewManager("from-env").Verify(out)
	assert.NoError(t, err)
}

func TestTokenCmd_Verify(t *testing.T) {
	token, _, err := session.NewManager("s3cret").Issue(session.Credentials{
		AccessToken: "ya29.a", RefreshToken: "1//r", ClientID: "cid", ClientSecret: "csecret",
	})
	require.NoError(t, err)

	out, err := runTokenCmd(t, "--secret-key", "s3cret", "--verify", token)
	require.NoError(t, err)

	var claims map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &claims))
	assert.Equal(t, "cid", claims["client_id"])
	assert.Equal(t, "user", claims["subject"])
	assert.NotContains(t, out, "ya29.a")

	_, err = runTokenCmd(t, "--secret-key", "other", "--verify", token)
	assert.Error(t, err)
}

func TestTokenCmd_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing secret", []string{"--access-token", "a"}, "secret key is required"},
		{"missing credentials", []string{"--secret-key", "s", "--access-token", "a"}, "are all required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runTokenCmd(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
