package ip

import (
	"net"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParserReadsConfiguredHeader(t *testing.T) {
	parser := NewParser("X-Original-Forwarded-For")

	req := httptest.NewRequest("GET", "/validate", nil)
	req.RemoteAddr = "127.0.0.1:43822"
	req.Header.Set("X-Original-Forwarded-For", "10.1.2.3")

	ip, err := parser.GetClientIP(req)
	require.NoError(t, err)
	assert.Equal(t, net.ParseIP("10.1.2.3"), ip)
}

func TestParserTakesFirstForwardedEntry(t *testing.T) {
	parser := NewParser("X-Forwarded-For")

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.1, 10.0.0.2")

	ip, err := parser.GetClientIP(req)
	require.NoError(t, err)
	assert.Equal(t, net.ParseIP("198.51.100.7"), ip)
}

func TestParserStripsPort(t *testing.T) {
	parser := NewParser("X-Forwarded-For")

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Forwarded-For", "198.51.100.7:9999")

	ip, err := parser.GetClientIP(req)
	require.NoError(t, err)
	assert.Equal(t, net.ParseIP("198.51.100.7"), ip)

	req.Header.Set("X-Forwarded-For", "[2001:db8::1]:9999")
	ip, err = parser.GetClientIP(req)
	require.NoError(t, err)
	assert.Equal(t, net.ParseIP("2001:db8::1"), ip)
}

func TestParserFallsBackToRemoteAddr(t *testing.T) {
	parser := NewParser("X-Original-Forwarded-For")

	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.0.2.4:51334"

	ip, err := parser.GetClientIP(req)
	require.NoError(t, err)
	assert.Equal(t, net.ParseIP("192.0.2.4"), ip)
}

func TestParserRejectsGarbageHeader(t *testing.T) {
	parser := NewParser("X-Forwarded-For")

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Forwarded-For", "not-an-ip")

	_, err := parser.GetClientIP(req)
	assert.Error(t, err)
	assert.Equal(t, "", parser.GetClientString(req))
}
