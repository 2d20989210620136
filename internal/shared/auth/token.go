package auth

import (
	"net/http"
	"strings"
)

// DefaultTokenParam is the query parameter browsers use, since they cannot set headers on a
// websocket handshake.
const DefaultTokenParam = "token"

// ExtractBearerToken returns the token of an "Authorization: Bearer" header, or "".
func ExtractBearerToken(r *http.Request) string {
	if r == nil {
		return ""
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// ExtractToken prefers the Authorization header and falls back to the query parameter.
func ExtractToken(r *http.Request, queryParam string) string {
	if token := ExtractBearerToken(r); token != "" {
		return token
	}
	if r == nil || r.URL == nil {
		return ""
	}
	if queryParam == "" {
		queryParam = DefaultTokenParam
	}
	return strings.TrimSpace(r.URL.Query().Get(queryParam))
}
