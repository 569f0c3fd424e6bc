package cookies

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"time"

	"github.com/authgate/authgate/pkg/apis/options"
	"github.com/authgate/authgate/pkg/encryption"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Login State Cookie Tests", func() {
	const (
		testState  = "1234asdf1234asdf1234asdf"
		testNonce  = "0987lkjh0987lkjh0987lkjh"
		testReturn = "https://app.example.com/dashboard"
	)

	var (
		cookieOpts *options.Cookie
		login      *LoginState
	)

	BeforeEach(func() {
		cookieOpts = &options.Cookie{
			Name:   cookieName,
			Domain: cookieDomain,
		}

		var err error
		login, err = NewLoginState(testReturn, cookieOpts, cookieSecret, time.Hour)
		Expect(err).ToNot(HaveOccurred())
	})

	Context("NewLoginState", func() {
		It("makes distinct state and nonce values", func() {
			Expect(login.State).ToNot(BeEmpty())
			Expect(login.Nonce).ToNot(BeEmpty())
			Expect(login.State).ToNot(Equal(login.Nonce))
			Expect(login.ReturnURL).To(Equal(testReturn))
		})

		It("makes unique values between multiple login states", func() {
			other, err := NewLoginState(testReturn, cookieOpts, cookieSecret, time.Hour)
			Expect(err).ToNot(HaveOccurred())

			Expect(login.State).ToNot(Equal(other.State))
			Expect(login.Nonce).ToNot(Equal(other.Nonce))
		})
	})

	Context("CheckState and CheckNonce", func() {
		It("accepts only exact matches", func() {
			login.State = testState
			login.Nonce = testNonce

			Expect(login.CheckState(testState)).To(BeTrue())
			Expect(login.CheckNonce(testNonce)).To(BeTrue())

			Expect(login.CheckState(testNonce)).To(BeFalse())
			Expect(login.CheckNonce(testState)).To(BeFalse())
			Expect(login.CheckState(testState + testNonce)).To(BeFalse())
			Expect(login.CheckState("")).To(BeFalse())
			Expect(login.CheckNonce("")).To(BeFalse())
		})
	})

	Context("EncodeCookie and DecodeLoginState", func() {
		It("round trips the login state", func() {
			login.State = testState
			login.Nonce = testNonce

			encoded, err := login.EncodeCookie()
			Expect(err).ToNot(HaveOccurred())

			cookie := &http.Cookie{
				Name:  login.CookieName(),
				Value: encoded,
			}
			decoded, err := DecodeLoginState(cookie, cookieOpts, cookieSecret, time.Hour)
			Expect(err).ToNot(HaveOccurred())

			Expect(decoded.State).To(Equal(testState))
			Expect(decoded.Nonce).To(Equal(testNonce))
			Expect(decoded.ReturnURL).To(Equal(testReturn))
		})

		It("signs the encoded cookie value", func() {
			encoded, err := login.EncodeCookie()
			Expect(err).ToNot(HaveOccurred())

			cookie := &http.Cookie{
				Name:  login.CookieName(),
				Value: encoded,
			}

			_, _, valid := encryption.Validate(cookie, cookieSecret, time.Hour)
			Expect(valid).To(BeTrue())
		})

		It("rejects a cookie signed with another secret", func() {
			encoded, err := login.EncodeCookie()
			Expect(err).ToNot(HaveOccurred())

			cookie := &http.Cookie{
				Name:  login.CookieName(),
				Value: encoded,
			}
			_, err = DecodeLoginState(cookie, cookieOpts, "some-other-secret", time.Hour)
			Expect(err).To(HaveOccurred())
		})
	})

	Context("Cookie Management", func() {
		var req *http.Request

		testNow := time.Unix(nowEpoch, 0)

		BeforeEach(func() {
			now = func() time.Time { return testNow }

			req = &http.Request{
				Method: http.MethodGet,
				Proto:  "HTTP/1.1",
				Host:   cookieDomain,

				URL: &url.URL{
					Scheme: "https",
					Host:   cookieDomain,
					Path:   "/oauth/login",
				},
				Header: make(http.Header),
			}
		})

		AfterEach(func() {
			now = time.Now
		})

		Context("SetCookie", func() {
			It("adds the encoded state cookie to a ResponseWriter", func() {
				rw := httptest.NewRecorder()

				Expect(login.SetCookie(rw, req)).To(Succeed())

				header := rw.Header().Get("Set-Cookie")
				Expect(header).To(ContainSubstring(fmt.Sprintf("%s=", login.CookieName())))
				Expect(header).To(ContainSubstring(
					fmt.Sprintf(
						"; Path=/; Domain=%s; Expires=%s; HttpOnly; Secure",
						cookieDomain,
						testCookieExpires(testNow.Add(time.Hour)),
					),
				))
			})
		})

		Context("LoadLoginState", func() {
			BeforeEach(func() {
				now = time.Now
			})

			It("returns an error when no cookie is set", func() {
				loaded, err := LoadLoginState(req, cookieOpts, cookieSecret, time.Hour)
				Expect(err).To(Equal(http.ErrNoCookie))
				Expect(loaded).To(BeNil())
			})

			It("loads a valid cookie", func() {
				encoded, err := login.EncodeCookie()
				Expect(err).ToNot(HaveOccurred())

				req.AddCookie(&http.Cookie{
					Name:  login.CookieName(),
					Value: encoded,
				})

				loaded, err := LoadLoginState(req, cookieOpts, cookieSecret, time.Hour)
				Expect(err).ToNot(HaveOccurred())
				Expect(loaded.State).To(Equal(login.State))
			})

			It("returns an error for a mangled cookie", func() {
				req.AddCookie(&http.Cookie{
					Name:  login.CookieName(),
					Value: "invalid",
				})

				loaded, err := LoadLoginState(req, cookieOpts, cookieSecret, time.Hour)
				Expect(err).To(HaveOccurred())
				Expect(loaded).To(BeNil())
			})
		})

		Context("ClearCookie", func() {
			It("sets a cookie with an empty value in the past", func() {
				rw := httptest.NewRecorder()

				login.ClearCookie(rw, req)

				Expect(rw.Header().Get("Set-Cookie")).To(Equal(
					fmt.Sprintf(
						"%s=; Path=/; Domain=%s; Expires=%s; HttpOnly; Secure",
						login.CookieName(),
						cookieDomain,
						testCookieExpires(testNow.Add(time.Hour*-1)),
					),
				))
			})
		})

		Context("CookieName", func() {
			It("has the session cookie name as a base", func() {
				Expect(login.CookieName()).To(Equal(cookieName + "_state"))
			})
		})
	})
})
