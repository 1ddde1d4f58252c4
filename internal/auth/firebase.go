package auth

import (
	"context"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// Verifier validates Firebase ID tokens and resolves them to a principal
// identifier. It is optional: without one, the static principal from the
// configuration applies.
type Verifier struct {
	client *fbauth.Client
}

// NewVerifier builds a verifier for the given Firebase project.
// credentialsFile may be empty to use application default credentials.
func NewVerifier(ctx context.Context, projectID, credentialsFile string) (*Verifier, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase auth: %w", err)
	}
	return &Verifier{client: client}, nil
}

// Verify checks an ID token and returns the principal it identifies.
func (v *Verifier) Verify(ctx context.Context, idToken string) (string, error) {
	tok, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return "", fmt.Errorf("verify id token: %w", err)
	}
	return tok.UID, nil
}

// BearerToken extracts the token from an Authorization header value,
// empty string when the header is absent or not a bearer scheme.
func BearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
