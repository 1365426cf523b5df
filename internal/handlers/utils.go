package handlers

import (
	"net/http"
	"strings"
)

// extractCookieToken extracts a named cookie value from "Cookie" header, or returns empty if not found.
func extractCookieToken(cookieHeader, cookieName string) string {
	parts := strings.Split(cookieHeader, cookieName+"=")
	if len(parts) < 2 {
		return ""
	}
	token := parts[1]
	if idx := strings.Index(token, ";"); idx != -1 {
		token = token[:idx]
	}
	return token
}

// requestToken returns the identity token from ?token= or the auth_token cookie.
func requestToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	return extractCookieToken(r.Header.Get("Cookie"), "auth_token")
}

// offeredSubprotocols reports whether the client sent any Sec-WebSocket-Protocol values.
func offeredSubprotocols(r *http.Request) bool {
	return strings.TrimSpace(r.Header.Get("Sec-WebSocket-Protocol")) != ""
}
