package server

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/teemow/gmail-ai-agent/internal/apperr"
	"github.com/teemow/gmail-ai-agent/internal/gmail"
	"github.com/teemow/gmail-ai-agent/internal/instrumentation"
	"github.com/teemow/gmail-ai-agent/internal/logging"
	"github.com/teemow/gmail-ai-agent/internal/session"
)

const credentialsKey = "session.credentials"

// callbackPath is appended to the frontend origin to form the OAuth redirect URI.
const callbackPath = "/auth/callback"

// requireSession rejects requests without a valid bearer session token
// before any handler logic runs.
func (s *HTTPServer) requireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := strings.CutPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			return apperr.Unauthorized("Token de autorização inválido", nil)
		}

		creds, err := s.sc.sessions.Verify(strings.TrimSpace(token))
		if err != nil {
			return err
		}

		c.Set(credentialsKey, *creds)
		return next(c)
	}
}

func credentials(c echo.Context) session.Credentials {
	creds, _ := c.Get(credentialsKey).(session.Credentials)
	return creds
}

// mailbox returns the mailbox for the request's session.
func (s *HTTPServer) mailbox(c echo.Context) (gmail.MessageService, error) {
	mb, err := s.sc.Mailbox(c.Request().Context(), credentials(c))
	if err != nil {
		return nil, apperr.Upstream("Falha ao conectar ao Gmail", err)
	}
	return mb, nil
}

type tokenRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
	ClientID     string `json:"client_id" validate:"required"`
	ClientSecret string `json:"client_secret" validate:"required"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func (s *HTTPServer) issue(creds session.Credentials) (tokenResponse, error) {
	token, ttl, err := s.sc.sessions.Issue(creds)
	if err != nil {
		return tokenResponse{}, err
	}
	return tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(ttl.Seconds()),
	}, nil
}

// googleAuth validates provider credentials with a one-message fetch and
// seals them into a session token.
func (s *HTTPServer) googleAuth(c echo.Context) error {
	ctx := c.Request().Context()

	var req tokenRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	creds := session.Credentials{
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
		ClientID:     req.ClientID,
		ClientSecret: req.ClientSecret,
	}

	mb, err := s.sc.Mailbox(ctx, creds)
	if err == nil {
		var emails []gmail.Email
		emails, err = mb.Fetch(ctx, 1)
		if err == nil && len(emails) == 0 {
			err = apperr.Unauthorized("Credenciais inválidas", nil)
		}
	}
	if err != nil {
		s.sc.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		s.sc.logger.Warn("google credential validation failed", logging.Err(err))
		return apperr.Unauthorized("Erro na autenticação: "+apperr.MessageOf(err), err)
	}

	resp, err := s.issue(creds)
	if err != nil {
		return fail("Erro na autenticação", err)
	}
	s.sc.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultSuccess)
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) redirectURI() string {
	return strings.TrimRight(s.sc.frontendOrigin, "/") + callbackPath
}

// authURL returns the Google consent page URL for the configured client.
func (s *HTTPServer) authURL(c echo.Context) error {
	if s.sc.exchanger == nil {
		return apperr.New(apperr.KindUpstream, "OAuth do Google não configurado")
	}
	state := uuid.NewString()
	return c.JSON(http.StatusOK, map[string]string{
		"url":   s.sc.exchanger.AuthCodeURL(s.redirectURI(), state),
		"state": state,
	})
}

var callbackPage = template.Must(template.New("callback").Parse(`<script>
    window.opener.postMessage({{.Message}}, {{.Origin}});
    window.close();
</script>
`))

type callbackData struct {
	Message map[string]string
	Origin  string
}

// authCallback exchanges the authorization code and hands a session token
// to the opener window.
func (s *HTTPServer) authCallback(c echo.Context) error {
	ctx := c.Request().Context()

	token, err := s.exchangeCode(c)
	if err != nil {
		s.sc.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		s.sc.logger.Warn("oauth callback failed", logging.Err(err))
		return s.renderCallback(c, http.StatusBadRequest, map[string]string{
			"type":  "auth_error",
			"error": "Falha na autenticação",
		})
	}

	s.sc.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultSuccess)
	return s.renderCallback(c, http.StatusOK, map[string]string{
		"type":  "auth_success",
		"token": token,
	})
}

func (s *HTTPServer) exchangeCode(c echo.Context) (string, error) {
	code := c.QueryParam("code")
	if code == "" {
		return "", apperr.InvalidRequest("code is required")
	}
	if s.sc.exchanger == nil {
		return "", apperr.New(apperr.KindUpstream, "google OAuth client is not configured")
	}

	creds, err := s.sc.exchanger.Exchange(c.Request().Context(), code, s.redirectURI())
	if err != nil {
		return "", err
	}
	// Google omits the refresh token when consent was granted earlier
	// without offline access.
	if creds == nil || !creds.Complete() {
		return "", apperr.New(apperr.KindUnauthorized, "incomplete credentials from code exchange")
	}

	resp, err := s.issue(*creds)
	if err != nil {
		return "", err
	}
	return resp.AccessToken, nil
}

func (s *HTTPServer) renderCallback(c echo.Context, code int, msg map[string]string) error {
	var b strings.Builder
	if err := callbackPage.Execute(&b, callbackData{Message: msg, Origin: s.sc.frontendOrigin}); err != nil {
		return err
	}
	return c.HTML(code, b.String())
}

func (s *HTTPServer) me(c echo.Context) error {
	mb, err := s.mailbox(c)
	if err != nil {
		return fail("Erro ao obter perfil", err)
	}
	profile, err := mb.Profile(c.Request().Context())
	if err != nil {
		return fail("Erro ao obter perfil", err)
	}
	return c.JSON(http.StatusOK, profile)
}

// refresh re-issues the session with a new expiry. The provider is not
// contacted.
func (s *HTTPServer) refresh(c echo.Context) error {
	ctx := c.Request().Context()

	token, ttl, err := s.sc.sessions.Refresh(credentials(c))
	if err != nil {
		s.sc.metrics.RecordSessionRefresh(ctx, instrumentation.OAuthResultFailure)
		return fail("Erro ao renovar token", err)
	}

	s.sc.metrics.RecordSessionRefresh(ctx, instrumentation.OAuthResultSuccess)
	return c.JSON(http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(ttl.Seconds()),
	})
}
