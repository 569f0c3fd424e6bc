package encryption

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Cookies are stored in a 3 part form (value + timestamp + signature) to
// enforce that the values are as originally set. The signature covers the
// cookie name so a value cannot be replayed under a different cookie.

// Validate ensures a cookie is properly signed and that its creation
// timestamp falls within the window (Now()-expiration, Now()+5min].
func Validate(cookie *http.Cookie, seed string, expiration time.Duration) (value []byte, t time.Time, ok bool) {
	// value, timestamp, sig
	parts := strings.Split(cookie.Value, "|")
	if len(parts) != 3 {
		return
	}
	if !checkSignature(parts[2], seed, cookie.Name, parts[0], parts[1]) {
		return
	}
	ts, err := strconv.Atoi(parts[1])
	if err != nil {
		return
	}
	// The expiration timestamp set when the cookie was created isn't sent
	// back by the browser, so the creation timestamp embedded in the value
	// is checked instead.
	t = time.Unix(int64(ts), 0)
	if t.After(time.Now().Add(expiration*-1)) && t.Before(time.Now().Add(time.Minute*5)) {
		rawValue, err := base64.URLEncoding.DecodeString(parts[0])
		if err == nil {
			value = rawValue
			ok = true
			return
		}
	}
	return
}

// SignedValue returns a cookie value that is signed and can later be checked
// with Validate
func SignedValue(seed string, key string, value []byte, now time.Time) (string, error) {
	encodedValue := base64.URLEncoding.EncodeToString(value)
	timeStr := fmt.Sprintf("%d", now.Unix())
	sig, err := cookieSignature(seed, key, encodedValue, timeStr)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s|%s|%s", encodedValue, timeStr, sig), nil
}

func cookieSignature(args ...string) (string, error) {
	h := hmac.New(sha256.New, []byte(args[0]))
	for _, arg := range args[1:] {
		if _, err := h.Write([]byte(arg)); err != nil {
			return "", err
		}
	}
	var b []byte
	b = h.Sum(b)
	return base64.URLEncoding.EncodeToString(b), nil
}

func checkSignature(signature string, args ...string) bool {
	checkSig, err := cookieSignature(args...)
	if err != nil {
		return false
	}
	return checkHmac(signature, checkSig)
}

func checkHmac(input, expected string) bool {
	inputMAC, err1 := base64.URLEncoding.DecodeString(input)
	if err1 == nil {
		expectedMAC, err2 := base64.URLEncoding.DecodeString(expected)
		if err2 == nil {
			return hmac.Equal(inputMAC, expectedMAC)
		}
	}
	return false
}
