// Package google handles the OAuth client registration and the persisted
// credential bundle used to reach the Google Calendar API.
//
// LoadClientRegistration reads the credentials file issued by the Google
// Cloud console. TokenStore loads, saves, validates and refreshes the
// CredentialBundle on disk; its TokenSource keeps the file current while a
// long-lived Calendar client refreshes tokens in the background.
package google
