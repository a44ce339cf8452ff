package session

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/gmail-ai-agent/internal/apperr"
)

func testCredentials() Credentials {
	return Credentials{
		AccessToken:  "ya29.access",
		RefreshToken: "1//refresh",
		ClientID:     "client.apps.googleusercontent.com",
		ClientSecret: "shh",
	}
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func TestIssueVerify_RoundTrip(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	m := NewManager("secret", WithClock(clock.Now))

	token, expiresIn, err := m.Issue(testCredentials())
	require.NoError(t, err)
	assert.Equal(t, DefaultTTL, expiresIn)

	creds, err := m.Verify(token)
	require.NoError(t, err)

	want := testCredentials()
	assert.Equal(t, DefaultSubject, creds.Subject)
	assert.Equal(t, want.AccessToken, creds.AccessToken)
	assert.Equal(t, want.RefreshToken, creds.RefreshToken)
	assert.Equal(t, want.ClientID, creds.ClientID)
	assert.Equal(t, want.ClientSecret, creds.ClientSecret)
	assert.WithinDuration(t, clock.t.Add(DefaultTTL), creds.ExpiresAt, time.Second)
}

func TestVerify_Expired(t *testing.T) {
	tests := []struct {
		name  string
		creds Credentials
	}{
		{name: "complete bundle", creds: testCredentials()},
		{name: "missing fields", creds: Credentials{AccessToken: "only"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
			m := NewManager("secret", WithClock(clock.Now))

			token, _, err := m.Issue(tt.creds)
			require.NoError(t, err)

			clock.t = clock.t.Add(DefaultTTL + time.Second)
			_, err = m.Verify(token)
			require.Error(t, err)
			assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
		})
	}
}

func TestVerify_MissingFields(t *testing.T) {
	m := NewManager("secret")

	for _, field := range []string{"access", "refresh", "client_id", "client_secret"} {
		t.Run(field, func(t *testing.T) {
			creds := testCredentials()
			switch field {
			case "access":
				creds.AccessToken = ""
			case "refresh":
				creds.RefreshToken = ""
			case "client_id":
				creds.ClientID = ""
			case "client_secret":
				creds.ClientSecret = ""
			}

			token, _, err := m.Issue(creds)
			require.NoError(t, err)

			_, err = m.Verify(token)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperr.ErrMalformedToken))
		})
	}
}

func TestVerify_Rejects(t *testing.T) {
	m := NewManager("secret")
	other := NewManager("other-secret")

	foreign, _, err := other.Issue(testCredentials())
	require.NoError(t, err)

	hs384, err := jwt.NewWithClaims(jwt.SigningMethodHS384, Claims{
		AccessToken:  "a",
		RefreshToken: "r",
		ClientID:     "c",
		ClientSecret: "s",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		AccessToken:  "a",
		RefreshToken: "r",
		ClientID:     "c",
		ClientSecret: "s",
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-jwt"},
		{"empty", ""},
		{"wrong secret", foreign},
		{"wrong algorithm", hs384},
		{"no expiry", noExpiry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Verify(tt.token)
			require.Error(t, err)
			assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
		})
	}
}

func TestRefresh_ExtendsExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	m := NewManager("secret", WithClock(clock.Now), WithTTL(10*time.Minute))

	token, _, err := m.Issue(testCredentials())
	require.NoError(t, err)

	clock.t = clock.t.Add(8 * time.Minute)
	creds, err := m.Verify(token)
	require.NoError(t, err)

	refreshed, expiresIn, err := m.Refresh(*creds)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, expiresIn)

	clock.t = clock.t.Add(5 * time.Minute)
	_, err = m.Verify(token)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	got, err := m.Verify(refreshed)
	require.NoError(t, err)
	assert.Equal(t, creds.AccessToken, got.AccessToken)
}

func TestNewManager_RandomSecret(t *testing.T) {
	a := NewManager("")
	b := NewManager("")

	token, _, err := a.Issue(testCredentials())
	require.NoError(t, err)

	_, err = a.Verify(token)
	require.NoError(t, err)

	_, err = b.Verify(token)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestCredentials_Complete(t *testing.T) {
	full := Credentials{AccessToken: "a", RefreshToken: "r", ClientID: "c", ClientSecret: "s"}

	tests := []struct {
		name  string
		strip func(*Credentials)
		want  bool
	}{
		{"all fields", func(*Credentials) {}, true},
		{"no access token", func(c *Credentials) { c.AccessToken = "" }, false},
		{"no refresh token", func(c *Credentials) { c.RefreshToken = "" }, false},
		{"no client id", func(c *Credentials) { c.ClientID = "" }, false},
		{"no client secret", func(c *Credentials) { c.ClientSecret = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := full
			tt.strip(&c)
			assert.Equal(t, tt.want, c.Complete())
		})
	}
}
