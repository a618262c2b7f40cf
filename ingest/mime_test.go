// ABOUTME: Unit tests for MIME body extraction
// ABOUTME: Tests text/plain preference over text/html at any nesting depth
package ingest

import (
	"encoding/base64"
	"testing"

	"google.golang.org/api/gmail/v1"
)

func b64(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func TestExtractBody(t *testing.T) {
	tests := []struct {
		name    string
		payload *gmail.MessagePart
		want    string
	}{
		{
			name:    "nil payload",
			payload: nil,
			want:    "",
		},
		{
			name: "top-level inline body wins",
			payload: &gmail.MessagePart{
				MimeType: "text/plain",
				Body:     &gmail.MessagePartBody{Data: b64("inline body")},
			},
			want: "inline body",
		},
		{
			name: "plain preferred over html",
			payload: &gmail.MessagePart{
				MimeType: "multipart/alternative",
				Parts: []*gmail.MessagePart{
					{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: b64("<p>html</p>")}},
					{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: b64("plain")}},
				},
			},
			want: "plain",
		},
		{
			name: "plain wins even when html is shallower",
			payload: &gmail.MessagePart{
				MimeType: "multipart/mixed",
				Parts: []*gmail.MessagePart{
					{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: b64("<p>outer html</p>")}},
					{
						MimeType: "multipart/alternative",
						Parts: []*gmail.MessagePart{
							{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: b64("nested plain")}},
						},
					},
				},
			},
			want: "nested plain",
		},
		{
			name: "html fallback when no plain anywhere",
			payload: &gmail.MessagePart{
				MimeType: "multipart/mixed",
				Parts: []*gmail.MessagePart{
					{
						MimeType: "multipart/alternative",
						Parts: []*gmail.MessagePart{
							{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: b64("<p>only html</p>")}},
						},
					},
				},
			},
			want: "<p>only html</p>",
		},
		{
			name: "deeply nested plain",
			payload: &gmail.MessagePart{
				MimeType: "multipart/mixed",
				Parts: []*gmail.MessagePart{
					{
						MimeType: "multipart/related",
						Parts: []*gmail.MessagePart{
							{
								MimeType: "multipart/alternative",
								Parts: []*gmail.MessagePart{
									{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: b64("html")}},
									{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: b64("deep plain")}},
								},
							},
						},
					},
				},
			},
			want: "deep plain",
		},
		{
			name: "attachment-only message has no body",
			payload: &gmail.MessagePart{
				MimeType: "multipart/mixed",
				Parts: []*gmail.MessagePart{
					{MimeType: "application/pdf", Body: &gmail.MessagePartBody{AttachmentId: "att-1"}},
				},
			},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractBody(tt.payload)
			if got != tt.want {
				t.Errorf("ExtractBody() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeBodyRawEncoding(t *testing.T) {
	// Gmail omits padding on some bodies
	unpadded := base64.RawURLEncoding.EncodeToString([]byte("no padding"))
	if got := decodeBody(unpadded); got != "no padding" {
		t.Errorf("decodeBody() = %q, want %q", got, "no padding")
	}

	if got := decodeBody("!!not base64!!"); got != "" {
		t.Errorf("decodeBody() on garbage = %q, want empty", got)
	}
}

func TestParseHeaders(t *testing.T) {
	payload := &gmail.MessagePart{
		Headers: []*gmail.MessagePartHeader{
			{Name: "Subject", Value: "hello"},
			{Name: "To", Value: "a@x.com"},
			{Name: "Cc", Value: "b@x.com"},
		},
	}

	headers := parseHeaders(payload)
	if headers["Subject"] != "hello" || headers["To"] != "a@x.com" || headers["Cc"] != "b@x.com" {
		t.Errorf("parseHeaders() = %v", headers)
	}

	if got := parseHeaders(nil); len(got) != 0 {
		t.Errorf("parseHeaders(nil) = %v, want empty", got)
	}
}
