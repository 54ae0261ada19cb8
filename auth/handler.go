package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/upb/car-park/cognito"
	"github.com/upb/car-park/config"
	"github.com/upb/car-park/utils"
	"go.uber.org/zap"
)

const (
	// StateCookieName is the cookie name for OAuth state (CSRF)
	StateCookieName = "oauth_state"
	// SessionCookieName is the cookie name for the session token
	SessionCookieName   = "session"
	stateCookieMaxAge   = 600
	sessionCookieMaxAge = 86400 * 7 // 7 days

	// landingPath is where a freshly signed-in user ends up
	landingPath = "/profile"
)

// TokenExchanger exchanges OAuth2 authorization codes for tokens via the OAuth2 token endpoint.
type TokenExchanger interface {
	ExchangeCode(ctx context.Context, code, redirectURI, state string) (idToken string, err error)
}

// TokenValidator validates JWT tokens and returns parsed claims.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*cognito.ParsedClaims, error)
}

// Handler drives the hosted UI flows behind the login and register pages.
type Handler struct {
	cfg       *config.Config
	exchanger TokenExchanger
	validator TokenValidator
	logger    *zap.Logger
}

// NewHandler creates a new auth handler with the given config, token exchanger, and validator.
func NewHandler(cfg *config.Config, exchanger TokenExchanger, validator TokenValidator, logger *zap.Logger) *Handler {
	return &Handler{
		cfg:       cfg,
		exchanger: exchanger,
		validator: validator,
		logger:    logger,
	}
}

// HandleLogin redirects to the hosted UI sign-in page
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	h.startFlow(w, r, "/oauth2/authorize")
}

// HandleRegister redirects to the hosted UI sign-up page
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	h.startFlow(w, r, "/signup")
}

func (h *Handler) startFlow(w http.ResponseWriter, r *http.Request, endpoint string) {
	clientID := h.cfg.SDK.Auth.UserPoolWebClientID
	if h.cfg.Cognito.Domain == "" || clientID == "" {
		h.logger.Error("cognito not configured")
		_ = utils.WriteInternalServerError(w, "Authentication not configured")
		return
	}

	state, err := generateSecureState()
	if err != nil {
		h.logger.Error("failed to generate state", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Failed to initiate login")
		return
	}

	http.SetCookie(w, h.cookie(StateCookieName, state, stateCookieMaxAge))

	target := buildHostedUIURL(h.cfg.Cognito.Domain, endpoint, clientID, h.cfg.Cognito.RedirectURI, state)
	http.Redirect(w, r, target, http.StatusFound)
}

// HandleCallback exchanges the authorization code for tokens, validates the JWT, and sets the session cookie
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	if code == "" {
		_ = utils.WriteBadRequest(w, "Missing authorization code", nil)
		return
	}
	if state == "" {
		_ = utils.WriteBadRequest(w, "Missing state parameter", nil)
		return
	}

	stateCookie, err := r.Cookie(StateCookieName)
	if err != nil || stateCookie.Value != state {
		_ = utils.WriteBadRequest(w, "Invalid or expired state", nil)
		return
	}

	http.SetCookie(w, h.cookie(StateCookieName, "", -1))

	if h.exchanger == nil || h.validator == nil {
		h.logger.Error("token exchange not configured")
		_ = utils.WriteInternalServerError(w, "Authentication not configured")
		return
	}

	idToken, err := h.exchanger.ExchangeCode(r.Context(), code, h.cfg.Cognito.RedirectURI, state)
	if err != nil {
		h.logger.Warn("token exchange failed", zap.Error(err))
		_ = utils.WriteUnauthorized(w, "Authentication failed")
		return
	}

	claims, err := h.validator.ValidateToken(r.Context(), idToken)
	if err != nil {
		h.logger.Warn("token validation failed", zap.Error(err))
		_ = utils.WriteUnauthorized(w, "Invalid token")
		return
	}

	h.logger.Info("user signed in", zap.String("sub", claims.Sub))

	http.SetCookie(w, h.cookie(SessionCookieName, idToken, sessionCookieMaxAge))
	http.Redirect(w, r, h.sitePath(landingPath), http.StatusFound)
}

// HandleLogout clears the session cookie and redirects to the hosted UI logout
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.cookie(SessionCookieName, "", -1))

	if h.cfg.Cognito.Domain == "" {
		http.Redirect(w, r, h.sitePath("/"), http.StatusFound)
		return
	}

	logoutURL := buildLogoutURL(h.cfg.Cognito.Domain, h.cfg.SDK.Auth.UserPoolWebClientID, h.cfg.Cognito.RedirectURI, h.sitePath("/"))
	http.Redirect(w, r, logoutURL, http.StatusFound)
}

func (h *Handler) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   strings.HasPrefix(h.cfg.Cognito.RedirectURI, "https"),
		SameSite: http.SameSiteLaxMode,
	}
}

func (h *Handler) sitePath(p string) string {
	base := h.cfg.Server.BasePath
	if base == "" {
		base = "/"
	}
	return path.Join(base, p)
}

func buildHostedUIURL(domain, endpoint, clientID, redirectURI, state string) string {
	base := strings.TrimSuffix(domain, "/") + endpoint
	params := url.Values{
		"response_type": {"code"},
		"client_id":     {clientID},
		"redirect_uri":  {redirectURI},
		"state":         {state},
		"scope":         {"openid email profile"},
	}
	return base + "?" + params.Encode()
}

func buildLogoutURL(domain, clientID, redirectURI, sitePath string) string {
	logoutURI := redirectURI
	if parsed, err := url.Parse(redirectURI); err == nil {
		logoutURI = parsed.Scheme + "://" + parsed.Host + sitePath
	}
	base := strings.TrimSuffix(domain, "/") + "/logout"
	params := url.Values{
		"client_id":  {clientID},
		"logout_uri": {logoutURI},
	}
	return base + "?" + params.Encode()
}

func generateSecureState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
