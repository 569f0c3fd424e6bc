package cookies

import (
	"net/http"
	"time"

	"github.com/authgate/authgate/pkg/apis/options"
)

var now = time.Now

// SetSessionCookie stores an encoded session token in the session cookie.
// The value is already signed and compressed by the session codec, so it is
// set verbatim.
func SetSessionCookie(rw http.ResponseWriter, req *http.Request, opts *options.Cookie, value string, lifetime time.Duration) {
	http.SetCookie(rw, MakeCookieFromOptions(req, opts.Name, value, opts, lifetime, now()))
}

// ClearSessionCookie expires the session cookie on the client.
func ClearSessionCookie(rw http.ResponseWriter, req *http.Request, opts *options.Cookie) {
	http.SetCookie(rw, MakeCookieFromOptions(req, opts.Name, "", opts, time.Hour*-1, now()))
}

// LoadSessionCookie returns the raw session cookie value from the request.
func LoadSessionCookie(req *http.Request, opts *options.Cookie) (string, error) {
	cookie, err := req.Cookie(opts.Name)
	if err != nil {
		// Don't wrap this error to allow `err == http.ErrNoCookie` checks
		return "", err
	}
	return cookie.Value, nil
}
