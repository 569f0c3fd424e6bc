package cookies

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"time"

	"github.com/authgate/authgate/pkg/apis/options"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Cookie Tests", func() {
	var req *http.Request

	testNow := time.Unix(nowEpoch, 0)

	BeforeEach(func() {
		req = &http.Request{
			Method: http.MethodGet,
			Proto:  "HTTP/1.1",
			Host:   cookieDomain + ":443",
			URL: &url.URL{
				Scheme: "https",
				Host:   cookieDomain,
				Path:   "/",
			},
			Header: make(http.Header),
		}
	})

	Context("MakeCookieFromOptions", func() {
		It("applies the configured attributes", func() {
			opts := &options.Cookie{
				Name:     cookieName,
				Domain:   cookieDomain,
				SameSite: "lax",
			}

			cookie := MakeCookieFromOptions(req, opts.Name, "value", opts, time.Hour, testNow)

			Expect(cookie.Name).To(Equal(cookieName))
			Expect(cookie.Value).To(Equal("value"))
			Expect(cookie.Path).To(Equal("/"))
			Expect(cookie.Domain).To(Equal(cookieDomain))
			Expect(cookie.HttpOnly).To(BeTrue())
			Expect(cookie.Secure).To(BeTrue())
			Expect(cookie.SameSite).To(Equal(http.SameSiteLaxMode))
			Expect(cookie.Expires).To(Equal(testNow.Add(time.Hour)))
		})

		It("honours a disabled secure flag", func() {
			insecure := false
			opts := &options.Cookie{Name: cookieName, Secure: &insecure}

			cookie := MakeCookieFromOptions(req, opts.Name, "value", opts, time.Hour, testNow)
			Expect(cookie.Secure).To(BeFalse())
		})
	})

	Context("Session cookie helpers", func() {
		var opts *options.Cookie

		BeforeEach(func() {
			opts = &options.Cookie{Name: cookieName, Domain: cookieDomain}
		})

		It("sets and loads the session cookie", func() {
			rw := httptest.NewRecorder()
			SetSessionCookie(rw, req, opts, "session-token", time.Hour)

			header := rw.Header().Get("Set-Cookie")
			Expect(header).To(ContainSubstring(cookieName + "=session-token"))

			req.AddCookie(&http.Cookie{Name: cookieName, Value: "session-token"})
			value, err := LoadSessionCookie(req, opts)
			Expect(err).ToNot(HaveOccurred())
			Expect(value).To(Equal("session-token"))
		})

		It("returns ErrNoCookie when the session cookie is absent", func() {
			_, err := LoadSessionCookie(req, opts)
			Expect(err).To(Equal(http.ErrNoCookie))
		})

		It("clears with an expiry in the past", func() {
			rw := httptest.NewRecorder()
			ClearSessionCookie(rw, req, opts)

			cookies := rw.Result().Cookies()
			Expect(cookies).To(HaveLen(1))
			Expect(cookies[0].Value).To(BeEmpty())
			Expect(cookies[0].Expires.Before(time.Now())).To(BeTrue())
		})
	})

	Context("ParseSameSite", func() {
		It("maps config strings to SameSite modes", func() {
			Expect(ParseSameSite("")).To(Equal(http.SameSiteDefaultMode))
			Expect(ParseSameSite("lax")).To(Equal(http.SameSiteLaxMode))
			Expect(ParseSameSite("strict")).To(Equal(http.SameSiteStrictMode))
			Expect(ParseSameSite("none")).To(Equal(http.SameSiteNoneMode))
		})
	})
})
