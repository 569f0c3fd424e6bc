// Package oidc implements the OpenID Connect relying party side of the
// gateway: discovery, the authorization code exchange and refresh grants.
package oidc

import (
	"context"
	"crypto/hmac"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	sessionsapi "github.com/authgate/authgate/pkg/apis/sessions"
	"github.com/authgate/authgate/pkg/logger"
	"github.com/authgate/authgate/pkg/metrics"
	"github.com/authgate/authgate/pkg/requests"
)

var (
	// ErrTransport covers failures to reach the provider: DNS, connect and
	// timeout errors. The flow maps these to a 502.
	ErrTransport = errors.New("identity provider unreachable")

	// ErrTokenValidation covers everything the provider or verifier rejected:
	// a bad authorization code, a revoked refresh token, an ID token failing
	// signature, audience or nonce checks.
	ErrTokenValidation = errors.New("token validation failed")
)

// Client is the provider interface the flow controller depends on. The
// production implementation is ProviderClient; tests substitute a fake.
type Client interface {
	// AuthCodeURL builds the authorization endpoint redirect for a login.
	AuthCodeURL(state, nonce string) string

	// Redeem exchanges an authorization code for a verified session. The
	// ID token's nonce claim must match the given nonce.
	Redeem(ctx context.Context, code, nonce string) (*sessionsapi.SessionState, error)

	// Refresh obtains a new session from a refresh token grant.
	Refresh(ctx context.Context, refreshToken string) (*sessionsapi.SessionState, error)
}

// Config carries the relying party settings of a ProviderClient.
type Config struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	Scopes       []string
	RedirectURL  string

	// Timeout bounds each outbound provider call.
	Timeout time.Duration

	// SessionLifetime is the lifetime of newly minted sessions.
	SessionLifetime time.Duration

	// HonorTokenExpiry caps the session at the provider token expiry when
	// that comes sooner than SessionLifetime.
	HonorTokenExpiry bool

	// RefreshTokens stores the provider refresh token inside the session.
	RefreshTokens bool

	// RolesClaim is the ID token claim path holding the role list.
	RolesClaim string

	// HeaderClaims lists the claim paths captured into the session for
	// header projection.
	HeaderClaims []string
}

// ProviderClient talks to one OIDC provider. The discovery document is held
// in an atomic snapshot: request handlers only ever Load it, and the single
// background watcher is the only writer after construction.
type ProviderClient struct {
	cfg       Config
	discovery atomic.Pointer[discovery]
}

// discovery is one immutable snapshot of the provider metadata.
type discovery struct {
	endpoint oauth2.Endpoint
	verifier *gooidc.IDTokenVerifier
}

// NewProviderClient fetches the discovery document and returns a ready
// client. Startup fails if the provider cannot be reached, matching the
// fail-fast handling of config errors.
func NewProviderClient(ctx context.Context, cfg Config) (*ProviderClient, error) {
	p := &ProviderClient{cfg: cfg}
	if err := p.refreshDiscovery(ctx); err != nil {
		return nil, fmt.Errorf("initial provider discovery failed: %w", err)
	}
	return p, nil
}

// WatchDiscovery re-fetches the discovery document on the given interval
// until the context is cancelled. A failed fetch keeps the previous
// snapshot; signing key rotation at the provider is picked up on the next
// successful fetch.
func (p *ProviderClient) WatchDiscovery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.refreshDiscovery(ctx); err != nil {
				logger.Errorf("provider discovery refresh failed, keeping previous snapshot: %v", err)
				metrics.RecordDiscoveryRefresh(metrics.OutcomeError)
				continue
			}
			metrics.RecordDiscoveryRefresh(metrics.OutcomeSuccess)
		}
	}
}

func (p *ProviderClient) refreshDiscovery(ctx context.Context) error {
	ctx, cancel := p.callContext(ctx)
	defer cancel()

	provider, err := gooidc.NewProvider(ctx, p.cfg.Issuer)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}

	p.discovery.Store(&discovery{
		endpoint: provider.Endpoint(),
		verifier: provider.Verifier(&gooidc.Config{ClientID: p.cfg.ClientID}),
	})
	return nil
}

// AuthCodeURL builds the authorization redirect from the current discovery
// snapshot.
func (p *ProviderClient) AuthCodeURL(state, nonce string) string {
	return p.oauthConfig().AuthCodeURL(state, gooidc.Nonce(nonce))
}

// Redeem exchanges the authorization code, verifies the returned ID token
// and builds the session.
func (p *ProviderClient) Redeem(ctx context.Context, code, nonce string) (*sessionsapi.SessionState, error) {
	ctx, cancel := p.callContext(ctx)
	defer cancel()

	token, err := p.oauthConfig().Exchange(ctx, code)
	if err != nil {
		return nil, exchangeError("code exchange", err)
	}

	idToken, rawIDToken, err := p.verifyIDToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if !hmac.Equal([]byte(idToken.Nonce), []byte(nonce)) {
		return nil, fmt.Errorf("%w: nonce mismatch", ErrTokenValidation)
	}

	return p.buildSession(idToken, rawIDToken, token)
}

// Refresh runs a refresh token grant and builds a new session from the
// returned ID token. The nonce claim is not checked here: providers do not
// replay the original nonce into refreshed tokens.
func (p *ProviderClient) Refresh(ctx context.Context, refreshToken string) (*sessionsapi.SessionState, error) {
	ctx, cancel := p.callContext(ctx)
	defer cancel()

	// Expiry in the past forces the token source to run the refresh grant.
	ts := p.oauthConfig().TokenSource(ctx, &oauth2.Token{
		RefreshToken: refreshToken,
		Expiry:       time.Now().Add(-time.Hour),
	})
	token, err := ts.Token()
	if err != nil {
		return nil, exchangeError("refresh grant", err)
	}

	idToken, rawIDToken, err := p.verifyIDToken(ctx, token)
	if err != nil {
		return nil, err
	}

	session, err := p.buildSession(idToken, rawIDToken, token)
	if err != nil {
		return nil, err
	}

	// Providers may rotate the refresh token or omit it from the refresh
	// response; keep the old one when no replacement was issued.
	if p.cfg.RefreshTokens && session.RefreshToken == "" {
		session.RefreshToken = refreshToken
	}
	return session, nil
}

func (p *ProviderClient) verifyIDToken(ctx context.Context, token *oauth2.Token) (*gooidc.IDToken, string, error) {
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, "", fmt.Errorf("%w: token response did not contain an id_token", ErrTokenValidation)
	}

	idToken, err := p.discovery.Load().verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrTokenValidation, err)
	}
	return idToken, rawIDToken, nil
}

func (p *ProviderClient) buildSession(idToken *gooidc.IDToken, rawIDToken string, token *oauth2.Token) (*sessionsapi.SessionState, error) {
	extractor, err := NewClaimExtractor(rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenValidation, err)
	}

	now := time.Now()
	expiresOn := now.Add(p.cfg.SessionLifetime)
	if p.cfg.HonorTokenExpiry && !token.Expiry.IsZero() && token.Expiry.Before(expiresOn) {
		expiresOn = token.Expiry
	}

	session := &sessionsapi.SessionState{
		Subject:   idToken.Subject,
		CreatedAt: now,
		ExpiresOn: expiresOn,
	}
	session.Email, _ = extractor.StringClaim("email")
	session.Roles, _ = extractor.StringSliceClaim(p.cfg.RolesClaim)
	session.Claims = extractor.ProjectStrings(p.cfg.HeaderClaims)

	if p.cfg.RefreshTokens {
		session.RefreshToken = token.RefreshToken
	}
	return session, nil
}

func (p *ProviderClient) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     p.cfg.ClientID,
		ClientSecret: p.cfg.ClientSecret,
		Endpoint:     p.discovery.Load().endpoint,
		RedirectURL:  p.cfg.RedirectURL,
		Scopes:       p.cfg.Scopes,
	}
}

func (p *ProviderClient) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = gooidc.ClientContext(ctx, requests.DefaultHTTPClient)
	if p.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.cfg.Timeout)
}

// exchangeError classifies an oauth2 failure: a response the provider
// actually sent means the grant was rejected, anything else is transport.
func exchangeError(op string, err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return fmt.Errorf("%w: %s rejected: %v", ErrTokenValidation, op, err)
	}
	return fmt.Errorf("%w: %s failed: %v", ErrTransport, op, err)
}
