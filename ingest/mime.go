// ABOUTME: MIME tree body extraction for Gmail messages
// ABOUTME: Prefers text/plain anywhere in the tree over text/html, depth-first
package ingest

import (
	"encoding/base64"
	"strings"

	"google.golang.org/api/gmail/v1"
)

// ExtractBody returns the best text body from a message payload. A top-level
// inline body wins outright; otherwise the part tree is walked depth-first
// looking for text/plain, and text/html is used only when no plain part
// exists anywhere in the tree.
func ExtractBody(payload *gmail.MessagePart) string {
	if payload == nil {
		return ""
	}

	if payload.Body != nil && payload.Body.Data != "" {
		return decodeBody(payload.Body.Data)
	}

	if plain := findPart(payload.Parts, "text/plain"); plain != "" {
		return plain
	}
	return findPart(payload.Parts, "text/html")
}

// findPart walks parts depth-first for the first body of the given MIME type.
func findPart(parts []*gmail.MessagePart, mimeType string) string {
	for _, part := range parts {
		if part == nil {
			continue
		}
		if part.MimeType == mimeType && part.Body != nil && part.Body.Data != "" {
			return decodeBody(part.Body.Data)
		}
		if len(part.Parts) > 0 || strings.HasPrefix(part.MimeType, "multipart/") {
			if body := findPart(part.Parts, mimeType); body != "" {
				return body
			}
		}
	}
	return ""
}

// decodeBody decodes Gmail's URL-safe base64 body data. Undecodable data is
// dropped rather than passed through raw.
func decodeBody(data string) string {
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		decoded, err = base64.RawURLEncoding.DecodeString(data)
		if err != nil {
			return ""
		}
	}
	return string(decoded)
}

// parseHeaders flattens message headers into a map.
func parseHeaders(payload *gmail.MessagePart) map[string]string {
	headers := make(map[string]string)
	if payload == nil {
		return headers
	}
	for _, header := range payload.Headers {
		if header != nil {
			headers[header.Name] = header.Value
		}
	}
	return headers
}
