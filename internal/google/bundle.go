package google

import (
	"time"

	"golang.org/x/oauth2"
)

// CredentialBundle is the token file persisted between runs.
// ExpiryDate is in epoch milliseconds; zero means unknown.
type CredentialBundle struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiryDate   int64  `json:"expiry_date,omitempty"`
	Scope        string `json:"scope,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
}

// BundleFromToken converts an oauth2 token into a bundle.
func BundleFromToken(tok *oauth2.Token) *CredentialBundle {
	if tok == nil {
		return nil
	}
	b := &CredentialBundle{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
	}
	if !tok.Expiry.IsZero() {
		b.ExpiryDate = tok.Expiry.UnixMilli()
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		b.Scope = scope
	}
	return b
}

// Token converts the bundle into an oauth2 token.
func (b *CredentialBundle) Token() *oauth2.Token {
	tokenType := b.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return &oauth2.Token{
		AccessToken:  b.AccessToken,
		RefreshToken: b.RefreshToken,
		TokenType:    tokenType,
		Expiry:       b.Expiry(),
	}
}

// Expiry returns the access token expiry, or the zero time when unknown.
func (b *CredentialBundle) Expiry() time.Time {
	if b.ExpiryDate == 0 {
		return time.Time{}
	}
	return time.UnixMilli(b.ExpiryDate)
}

// HasTokens reports whether both the access and refresh tokens are present.
func (b *CredentialBundle) HasTokens() bool {
	return b != nil && b.AccessToken != "" && b.RefreshToken != ""
}
