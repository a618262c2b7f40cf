// ABOUTME: Google profile lookup for the authenticated user
// ABOUTME: Fetches email, google id, and display name from the userinfo endpoint
package auth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// Profile is the provider-reported identity of the token holder.
type Profile struct {
	Email       string
	GoogleID    string
	DisplayName string
}

// FetchProfile resolves the profile for a token.
func FetchProfile(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	if token == nil {
		return nil, fmt.Errorf("token cannot be nil")
	}

	config := NewOAuthConfig()
	service, err := oauth2api.NewService(ctx,
		option.WithTokenSource(config.TokenSource(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("failed to create userinfo service: %w", err)
	}

	info, err := service.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user profile: %w", err)
	}
	if info.Email == "" {
		return nil, fmt.Errorf("provider returned no email for token")
	}

	return &Profile{
		Email:       info.Email,
		GoogleID:    info.Id,
		DisplayName: info.Name,
	}, nil
}
