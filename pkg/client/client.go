// Package client builds authenticated HTTP clients for Google APIs.
package client

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// CredentialsFile is the default path to the Google credentials JSON file
// (a service account key or authorized-user credentials).
const CredentialsFile = "data/credentials.json"

// New creates an HTTP client authenticated with credentials read from the
// given file path.
func New(ctx context.Context, credentialsPath string, scopes ...string) (*http.Client, error) {
	b, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("reading credentials file: %w", err)
	}

	return NewFromJSON(ctx, b, scopes...)
}

// NewFromJSON creates an HTTP client authenticated with credentials from
// JSON content. Service account keys and authorized-user credentials are
// both accepted.
func NewFromJSON(ctx context.Context, credentialsJSON []byte, scopes ...string) (*http.Client, error) {
	creds, err := google.CredentialsFromJSON(ctx, credentialsJSON, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}

	return oauth2.NewClient(ctx, creds.TokenSource), nil
}
