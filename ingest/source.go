// ABOUTME: Mailbox source abstraction and Gmail API adapter
// ABOUTME: Lists sent-mail ids and fetches full messages for hydration
package ingest

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/harperreed/skiff/auth"
)

// Source is the provider mailbox surface the pipeline depends on.
type Source interface {
	// ListSent returns up to pageSize sent-message ids starting at pageToken.
	// An empty next token means the listing is exhausted.
	ListSent(ctx context.Context, pageToken string, pageSize int64) (ids []string, next string, err error)

	// GetMessage fetches the full message, including the MIME payload tree.
	GetMessage(ctx context.Context, id string) (*gmail.Message, error)
}

// NewGmailService creates an authenticated Gmail API service.
func NewGmailService(ctx context.Context, token *oauth2.Token) (*gmail.Service, error) {
	if token == nil {
		return nil, fmt.Errorf("token cannot be nil")
	}

	config := auth.NewOAuthConfig()
	client := config.Client(ctx, token)

	service, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return service, nil
}

// gmailSource adapts *gmail.Service to Source.
type gmailSource struct {
	service *gmail.Service
}

func NewGmailSource(service *gmail.Service) Source {
	return &gmailSource{service: service}
}

func (s *gmailSource) ListSent(ctx context.Context, pageToken string, pageSize int64) ([]string, string, error) {
	call := s.service.Users.Messages.List("me").
		LabelIds("SENT").
		MaxResults(pageSize).
		Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	response, err := call.Do()
	if err != nil {
		return nil, "", fmt.Errorf("failed to list sent messages: %w", err)
	}
	if response == nil {
		return nil, "", nil
	}

	ids := make([]string, 0, len(response.Messages))
	for _, msg := range response.Messages {
		ids = append(ids, msg.Id)
	}

	return ids, response.NextPageToken, nil
}

func (s *gmailSource) GetMessage(ctx context.Context, id string) (*gmail.Message, error) {
	message, err := s.service.Users.Messages.Get("me", id).
		Format("full").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch message %s: %w", id, err)
	}
	return message, nil
}
