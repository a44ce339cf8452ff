// Package google turns the credential bundle carried in a session token into
// authenticated Google API access.
//
// The bundle holds an access token, a refresh token and the OAuth client that
// minted them. TokenSource refreshes the access token against the Google token
// endpoint when the provider rejects it as stale; nothing is written to disk.
package google
