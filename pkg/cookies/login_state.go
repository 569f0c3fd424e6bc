package cookies

import (
	"crypto/hmac"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/authgate/authgate/pkg/apis/options"
	"github.com/authgate/authgate/pkg/encryption"
)

// LoginState carries the nonces and return URL of an in-flight login round
// trip. It lives in a short-lived signed cookie on the user agent, so the
// gateway itself stays stateless across the redirect to the identity
// provider and back.
type LoginState struct {
	// State is mirrored back by the identity provider in the callback
	// redirect and protects the callback against CSRF.
	State string `msgpack:"s,omitempty"`

	// Nonce is sent in the authorization request and must reappear as the
	// nonce claim of the returned ID token, which stops token replay.
	Nonce string `msgpack:"n,omitempty"`

	// ReturnURL is where the user agent is sent after a successful login.
	ReturnURL string `msgpack:"r,omitempty"`

	cookieOpts *options.Cookie
	secret     string
	ttl        time.Duration
}

// NewLoginState creates a LoginState with fresh random nonces.
func NewLoginState(returnURL string, opts *options.Cookie, secret string, ttl time.Duration) (*LoginState, error) {
	state, err := randomToken()
	if err != nil {
		return nil, err
	}
	nonce, err := randomToken()
	if err != nil {
		return nil, err
	}

	return &LoginState{
		State:      state,
		Nonce:      nonce,
		ReturnURL:  returnURL,
		cookieOpts: opts,
		secret:     secret,
		ttl:        ttl,
	}, nil
}

// LoadLoginState loads a LoginState from a request's state cookie.
func LoadLoginState(req *http.Request, opts *options.Cookie, secret string, ttl time.Duration) (*LoginState, error) {
	cookie, err := req.Cookie(stateCookieName(opts))
	if err != nil {
		// Don't wrap this error to allow `err == http.ErrNoCookie` checks
		return nil, err
	}

	return DecodeLoginState(cookie, opts, secret, ttl)
}

// CheckState compares state nonces in a constant time manner to protect
// against timing attacks.
func (l *LoginState) CheckState(other string) bool {
	return hmac.Equal([]byte(l.State), []byte(other))
}

// CheckNonce compares OIDC nonces in a constant time manner to protect
// against timing attacks.
func (l *LoginState) CheckNonce(other string) bool {
	return hmac.Equal([]byte(l.Nonce), []byte(other))
}

// SetCookie encodes the LoginState to a signed cookie and sets it on the
// ResponseWriter.
func (l *LoginState) SetCookie(rw http.ResponseWriter, req *http.Request) error {
	encoded, err := l.EncodeCookie()
	if err != nil {
		return err
	}

	http.SetCookie(rw, MakeCookieFromOptions(
		req,
		l.CookieName(),
		encoded,
		l.cookieOpts,
		l.ttl,
		now(),
	))

	return nil
}

// ClearCookie removes the state cookie.
func (l *LoginState) ClearCookie(rw http.ResponseWriter, req *http.Request) {
	http.SetCookie(rw, MakeCookieFromOptions(
		req,
		l.CookieName(),
		"",
		l.cookieOpts,
		time.Hour*-1,
		now(),
	))
}

// EncodeCookie MessagePack encodes the LoginState and then creates a signed
// cookie value.
func (l *LoginState) EncodeCookie() (string, error) {
	packed, err := msgpack.Marshal(l)
	if err != nil {
		return "", fmt.Errorf("error marshalling login state to msgpack: %v", err)
	}

	return encryption.SignedValue(l.secret, l.CookieName(), packed, now())
}

// DecodeLoginState validates the signature and decodes a state cookie into a
// LoginState.
func DecodeLoginState(cookie *http.Cookie, opts *options.Cookie, secret string, ttl time.Duration) (*LoginState, error) {
	val, _, ok := encryption.Validate(cookie, secret, ttl)
	if !ok {
		return nil, errors.New("state cookie failed validation")
	}

	state := &LoginState{cookieOpts: opts, secret: secret, ttl: ttl}
	if err := msgpack.Unmarshal(val, state); err != nil {
		return nil, fmt.Errorf("error unmarshalling data to login state: %v", err)
	}

	return state, nil
}

// CookieName returns the state cookie's name derived from the base session
// cookie name.
func (l *LoginState) CookieName() string {
	return stateCookieName(l.cookieOpts)
}

func stateCookieName(opts *options.Cookie) string {
	return fmt.Sprintf("%v_state", opts.Name)
}

func randomToken() (string, error) {
	b, err := encryption.Nonce(16)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
