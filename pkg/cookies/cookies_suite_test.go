package cookies

import (
	"net/http"
	"testing"
	"time"

	"github.com/authgate/authgate/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const (
	cookieName   = "cookie_test_12345"
	cookieSecret = "3q48hmFH30FJ2HfJF0239UFJCVcl3kj3"
	cookieDomain = "gateway.cookies.test"

	nowEpoch = 1609366421
)

func TestCookiesSuite(t *testing.T) {
	logger.SetOutput(GinkgoWriter)
	logger.SetErrOutput(GinkgoWriter)

	RegisterFailHandler(Fail)
	RunSpecs(t, "Cookies")
}

func testCookieExpires(exp time.Time) string {
	var buf [len(http.TimeFormat)]byte
	return string(exp.UTC().AppendFormat(buf[:0], http.TimeFormat))
}
