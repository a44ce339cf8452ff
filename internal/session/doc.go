// Package session issues and verifies the signed session tokens that carry a
// user's Google credentials between requests.
//
// The server keeps no session storage. Every token is an HS256 JWT with a
// short expiry whose claims hold the full provider credential bundle; a
// request is authorized only if its token verifies.
package session
