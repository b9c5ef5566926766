// Package authflow obtains Google Calendar credentials through the OAuth 2.0
// authorization-code flow using a short-lived loopback HTTP listener.
//
// A run binds the first free port in host:basePort..basePort+portRange-1,
// logs the consent URL (and optionally opens it in a browser), waits for the
// provider to redirect to /oauth2callback, exchanges the code and stores the
// tokens through google.TokenStore. The listener is torn down when the run
// ends, whichever way it ends. Runs on one Flow are serialized.
package authflow
