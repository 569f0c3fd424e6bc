package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/justinas/alice"

	"github.com/authgate/authgate/pkg/apis/options"
	sessionsapi "github.com/authgate/authgate/pkg/apis/sessions"
	"github.com/authgate/authgate/pkg/authorization"
	"github.com/authgate/authgate/pkg/cookies"
	"github.com/authgate/authgate/pkg/ip"
	"github.com/authgate/authgate/pkg/logger"
	"github.com/authgate/authgate/pkg/metrics"
	"github.com/authgate/authgate/pkg/middleware"
	"github.com/authgate/authgate/pkg/providers/oidc"
	"github.com/authgate/authgate/pkg/sessions"
)

const (
	loginPath    = "/login"
	callbackPath = "/callback"
	validatePath = "/validate"
	logoutPath   = "/logout"
	healthPath   = "/health"

	// originalURIHeader is set by the ingress on validate subrequests and
	// carries the URI of the request actually being authorized.
	originalURIHeader = "X-Original-URI"
)

// Gateway is the authentication gateway: it answers the ingress's validate
// subrequests and drives the login round trip against the identity provider.
// All session state lives in the signed cookie, so any replica can answer
// any request.
type Gateway struct {
	opts     *options.Options
	codec    *sessions.Codec
	provider oidc.Client
	bypass   *authorization.BypassMatcher
	rules    *authorization.Rules
	realIP   *ip.Parser
	handler  http.Handler
}

// NewGateway assembles a Gateway from validated options and a provider
// client.
func NewGateway(opts *options.Options, provider oidc.Client) (*Gateway, error) {
	publicURL := opts.GetPublicURL()
	if publicURL == nil {
		return nil, errors.New("options must be validated before building the gateway")
	}

	bypass, err := authorization.NewBypassMatcher(opts.BypassCIDRs)
	if err != nil {
		return nil, err
	}
	rules, err := authorization.NewRules(opts.Customizations)
	if err != nil {
		return nil, err
	}

	g := &Gateway{
		opts:     opts,
		codec:    sessions.NewCodec(opts.JWTKey, publicURL.String(), opts.ClockSkew()),
		provider: provider,
		bypass:   bypass,
		rules:    rules,
		realIP:   ip.NewParser(opts.RealIPHeader),
	}

	router := mux.NewRouter()
	routes := router
	if prefix := strings.TrimSuffix(publicURL.Path, "/"); prefix != "" {
		routes = router.PathPrefix(prefix).Subrouter()
	}
	routes.HandleFunc(loginPath, g.Login).Methods(http.MethodGet)
	routes.HandleFunc(callbackPath, g.Callback).Methods(http.MethodGet)
	routes.HandleFunc(validatePath, g.Validate).Methods(http.MethodGet)
	routes.HandleFunc(logoutPath, g.Logout).Methods(http.MethodGet)
	routes.HandleFunc(healthPath, g.Health).Methods(http.MethodGet)

	g.handler = alice.New(
		middleware.NewRequestMetricsWithDefaultRegistry(),
		middleware.NewNoStore(),
	).Then(router)

	return g, nil
}

func (g *Gateway) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	g.handler.ServeHTTP(rw, req)
}

// Login starts the authorization code flow. The ingress sends the browser
// here with the original URL in the url parameter; we park it in the state
// cookie and redirect to the provider.
func (g *Gateway) Login(rw http.ResponseWriter, req *http.Request) {
	returnURL := req.URL.Query().Get("url")
	if returnURL == "" {
		http.Error(rw, "missing url parameter", http.StatusBadRequest)
		return
	}
	if err := g.checkReturnURL(returnURL); err != nil {
		logger.PrintAuthf("", req, logger.AuthError, "rejected login return URL %q: %v", returnURL, err)
		http.Error(rw, "invalid url parameter", http.StatusBadRequest)
		return
	}

	// Trusted networks never need a session; send them straight back.
	if label, ok := g.clientBypass(req); ok {
		logger.PrintAuthf("", req, logger.AuthSuccess, "skipping login for trusted network %q", label)
		http.Redirect(rw, req, returnURL, http.StatusFound)
		return
	}

	login, err := cookies.NewLoginState(returnURL, &g.opts.Cookie, g.opts.JWTKey, g.opts.StateTTL())
	if err != nil {
		g.serverError(rw, fmt.Errorf("error creating login state: %v", err))
		return
	}
	if err := login.SetCookie(rw, req); err != nil {
		g.serverError(rw, fmt.Errorf("error setting login state cookie: %v", err))
		return
	}

	http.Redirect(rw, req, g.provider.AuthCodeURL(login.State, login.Nonce), http.StatusFound)
}

// Callback finishes the authorization code flow: it checks the mirrored
// state against the state cookie, redeems the code and mints the session
// cookie.
func (g *Gateway) Callback(rw http.ResponseWriter, req *http.Request) {
	query := req.URL.Query()

	if errParam := query.Get("error"); errParam != "" {
		logger.PrintAuthf("", req, logger.AuthFailure, "provider returned error: %s (%s)", errParam, query.Get("error_description"))
		metrics.RecordLogin(metrics.OutcomeError)
		http.Error(rw, "Authentication failed", http.StatusUnauthorized)
		return
	}

	login, err := cookies.LoadLoginState(req, &g.opts.Cookie, g.opts.JWTKey, g.opts.StateTTL())
	if err != nil {
		logger.PrintAuthf("", req, logger.AuthFailure, "callback without a valid state cookie: %v", err)
		metrics.RecordLogin(metrics.OutcomeInvalid)
		http.Error(rw, "Invalid login state", http.StatusBadRequest)
		return
	}
	if !login.CheckState(query.Get("state")) {
		logger.PrintAuthf("", req, logger.AuthFailure, "state mismatch on callback, possible CSRF")
		metrics.RecordLogin(metrics.OutcomeInvalid)
		http.Error(rw, "Invalid login state", http.StatusBadRequest)
		return
	}
	code := query.Get("code")
	if code == "" {
		http.Error(rw, "missing code parameter", http.StatusBadRequest)
		return
	}

	session, err := g.provider.Redeem(req.Context(), code, login.Nonce)
	if err != nil {
		if errors.Is(err, oidc.ErrTransport) {
			logger.Errorf("code redemption failed: %v", err)
			metrics.RecordLogin(metrics.OutcomeError)
			http.Error(rw, "Identity provider unavailable", http.StatusBadGateway)
			return
		}
		logger.PrintAuthf("", req, logger.AuthFailure, "code redemption rejected: %v", err)
		metrics.RecordLogin(metrics.OutcomeInvalid)
		http.Error(rw, "Authentication failed", http.StatusUnauthorized)
		return
	}

	if missing := authorization.MissingRoles(g.opts.RequiredRoles, session.Roles); len(missing) > 0 {
		login.ClearCookie(rw, req)
		logger.PrintAuthf(session.Email, req, logger.AuthFailure, "login denied, missing required roles %v", missing)
		metrics.RecordLogin(metrics.OutcomeDenied)
		http.Error(rw, "Forbidden", http.StatusForbidden)
		return
	}

	encoded, err := g.codec.Encode(session)
	if err != nil {
		g.serverError(rw, fmt.Errorf("error encoding session: %v", err))
		return
	}
	cookies.SetSessionCookie(rw, req, &g.opts.Cookie, encoded, time.Until(session.ExpiresOn))
	login.ClearCookie(rw, req)

	logger.PrintAuthf(session.Email, req, logger.AuthSuccess, "login completed for subject %s", session.Subject)
	metrics.RecordLogin(metrics.OutcomeSuccess)
	http.Redirect(rw, req, login.ReturnURL, http.StatusFound)
}

// Validate answers the ingress subrequest for each proxied request: 200 lets
// the original request through, 401 sends the browser to login, 403 denies
// outright.
func (g *Gateway) Validate(rw http.ResponseWriter, req *http.Request) {
	host, path := g.originalEndpoint(req)

	required, endpointBypass := g.rules.Resolve(host, path, g.opts.RequiredRoles)
	if endpointBypass {
		g.allow(rw, nil)
		metrics.RecordValidation(metrics.OutcomeBypass)
		return
	}

	if label, ok := g.clientBypass(req); ok {
		logger.PrintAuthf("", req, logger.AuthSuccess, "allowing trusted network %q", label)
		g.allow(rw, nil)
		metrics.RecordValidation(metrics.OutcomeBypass)
		return
	}

	raw, err := cookies.LoadSessionCookie(req, &g.opts.Cookie)
	if err != nil {
		metrics.RecordValidation(metrics.OutcomeInvalid)
		http.Error(rw, "Unauthorized", http.StatusUnauthorized)
		return
	}

	session, err := g.codec.Decode(raw)
	if err != nil {
		cookies.ClearSessionCookie(rw, req, &g.opts.Cookie)
		logger.PrintAuthf("", req, logger.AuthFailure, "rejecting invalid session cookie")
		metrics.RecordValidation(metrics.OutcomeInvalid)
		http.Error(rw, "Unauthorized", http.StatusUnauthorized)
		return
	}

	session, ok := g.refreshIfNeeded(rw, req, session)
	if !ok {
		metrics.RecordValidation(metrics.OutcomeInvalid)
		http.Error(rw, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if missing := authorization.MissingRoles(required, session.Roles); len(missing) > 0 {
		// The session itself stays valid for endpoints with other
		// requirements, so the cookie is left untouched.
		logger.PrintAuthf(session.Email, req, logger.AuthFailure, "denied %s%s, missing required roles %v", host, path, missing)
		metrics.RecordValidation(metrics.OutcomeDenied)
		http.Error(rw, "Forbidden", http.StatusForbidden)
		return
	}

	g.allow(rw, session)
	metrics.RecordValidation(metrics.OutcomeSuccess)
}

// Logout clears the session cookie. When a valid url parameter is given the
// browser is redirected there afterwards.
func (g *Gateway) Logout(rw http.ResponseWriter, req *http.Request) {
	cookies.ClearSessionCookie(rw, req, &g.opts.Cookie)

	if returnURL := req.URL.Query().Get("url"); returnURL != "" {
		if err := g.checkReturnURL(returnURL); err == nil {
			http.Redirect(rw, req, returnURL, http.StatusFound)
			return
		}
	}

	rw.WriteHeader(http.StatusOK)
	fmt.Fprintln(rw, "Signed out")
}

// Health is the liveness endpoint for the ingress and orchestrator.
func (g *Gateway) Health(rw http.ResponseWriter, req *http.Request) {
	rw.WriteHeader(http.StatusOK)
	fmt.Fprintln(rw, "OK")
}

// refreshIfNeeded silently renews a session nearing expiry. The bool result
// reports whether the request may proceed: any failed refresh, whether the
// provider rejected the grant or was unreachable, terminates the session
// and forces a fresh login.
func (g *Gateway) refreshIfNeeded(rw http.ResponseWriter, req *http.Request, session *sessionsapi.SessionState) (*sessionsapi.SessionState, bool) {
	if !g.opts.RefreshTokens || session.RefreshToken == "" || !session.NearExpiry(g.opts.RefreshLead()) {
		return session, true
	}

	refreshed, err := g.provider.Refresh(req.Context(), session.RefreshToken)
	if err != nil {
		cookies.ClearSessionCookie(rw, req, &g.opts.Cookie)
		logger.PrintAuthf(session.Email, req, logger.AuthFailure, "session refresh failed: %v", err)
		if errors.Is(err, oidc.ErrTransport) {
			metrics.RecordRefresh(metrics.OutcomeError)
		} else {
			metrics.RecordRefresh(metrics.OutcomeInvalid)
		}
		return nil, false
	}

	encoded, err := g.codec.Encode(refreshed)
	if err != nil {
		logger.Errorf("error encoding refreshed session: %v", err)
		metrics.RecordRefresh(metrics.OutcomeError)
		return session, true
	}
	cookies.SetSessionCookie(rw, req, &g.opts.Cookie, encoded, time.Until(refreshed.ExpiresOn))
	metrics.RecordRefresh(metrics.OutcomeRefreshed)
	return refreshed, true
}

// allow writes the 200 that lets the ingress pass the original request
// through, with the success marker and any projected claim headers.
func (g *Gateway) allow(rw http.ResponseWriter, session *sessionsapi.SessionState) {
	if g.opts.SuccessHeader != "" {
		rw.Header().Set(g.opts.SuccessHeader, "true")
	}
	if session != nil {
		authorization.ProjectClaims(rw.Header(), g.opts.HeaderClaims, session.Claims)
	}
	rw.WriteHeader(http.StatusOK)
}

// checkReturnURL accepts a url parameter that is either a server-relative
// path or an absolute http(s) URL; the provider's own redirect allow-list is
// the authority on where logins may land. Protocol-relative values ("//host")
// and backslash variants are refused so a relative-looking URL cannot leave
// the site.
func (g *Gateway) checkReturnURL(raw string) error {
	if strings.HasPrefix(raw, "/") {
		if strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
			return fmt.Errorf("protocol-relative URL")
		}
		return nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("unparseable URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("neither a relative path nor an absolute http(s) URL")
	}
	return nil
}

// clientBypass resolves the end-user address and matches it against the
// trusted networks.
func (g *Gateway) clientBypass(req *http.Request) (string, bool) {
	addr, err := g.realIP.GetClientIP(req)
	if err != nil {
		return "", false
	}
	return g.bypass.Match(addr)
}

// originalEndpoint reconstructs the host and path of the request being
// authorized from the subrequest headers the ingress sets.
func (g *Gateway) originalEndpoint(req *http.Request) (string, string) {
	host := req.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = req.Host
	}

	path := req.Header.Get(originalURIHeader)
	if i := strings.IndexRune(path, '?'); i != -1 {
		path = path[:i]
	}
	if path == "" {
		path = "/"
	}
	return host, path
}

func (g *Gateway) serverError(rw http.ResponseWriter, err error) {
	logger.Errorf("%v", err)
	http.Error(rw, "Internal Server Error", http.StatusInternalServerError)
}
