package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractCookieToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"auth_token=abc", "abc"},
		{"theme=dark; auth_token=abc.def; lang=en", "abc.def"},
		{"theme=dark", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, extractCookieToken(tt.header, "auth_token"), tt.header)
	}
}

func TestRequestTokenPrefersQuery(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws?token=fromquery", nil)
	r.Header.Set("Cookie", "auth_token=fromcookie")
	assert.Equal(t, "fromquery", requestToken(r))

	r = httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.Header.Set("Cookie", "auth_token=fromcookie")
	assert.Equal(t, "fromcookie", requestToken(r))
}
