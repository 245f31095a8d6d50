// Package google provides OAuth2 authentication and token management for Google APIs.
//
// Tokens are stored per account in the user cache directory and are written by
// the auth command. The TokenProvider interface allows different token sources
// to be plugged in, so the Calendar and Gmail clients never read files directly.
//
// Missing credentials are reported with ErrNoToken or ErrNoClientCredentials;
// GetAuthenticationErrorMessage turns them into instructions for the user.
package google
