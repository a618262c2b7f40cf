// ABOUTME: Mail ingestion pipeline with paginated listing and batched hydration
// ABOUTME: Rate-limited concurrent fetches, per-message error swallow, idempotent persistence
package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/api/gmail/v1"

	"github.com/harperreed/skiff/db"
	"github.com/harperreed/skiff/models"
)

const (
	// Gmail caps list pages at 100 ids.
	providerPageCeiling = 100

	// 5 concurrent fetches per batch with a short pause between batches
	// keeps us under the per-second quota without serializing everything.
	defaultBatchSize      = 5
	defaultInterBatchWait = 50 * time.Millisecond
)

// Progress is invoked after each hydration batch with the number of emails
// successfully fetched so far and the total planned.
type Progress func(fetched, total int)

// Pipeline ingests a user's sent mail into the durable store.
type Pipeline struct {
	database *sql.DB
	source   Source

	batchSize      int
	interBatchWait time.Duration
}

func New(database *sql.DB, source Source) *Pipeline {
	return &Pipeline{
		database:       database,
		source:         source,
		batchSize:      defaultBatchSize,
		interBatchWait: defaultInterBatchWait,
	}
}

// FetchAndPersist lists up to maxCount sent-message ids, hydrates them in
// rate-limited batches, and upserts them idempotently. Ingestion is a
// one-time operation per user: if the store already holds any emails for the
// user, the run is skipped and the existing count reported.
func (p *Pipeline) FetchAndPersist(ctx context.Context, userID uuid.UUID, maxCount int, onProgress Progress) (int, error) {
	existing, err := db.CountEmails(p.database, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to check existing emails: %w", err)
	}
	if existing > 0 {
		fmt.Printf("  ✓ %d emails already ingested, skipping fetch\n", existing)
		return existing, nil
	}

	ids, err := p.listMessageIDs(ctx, maxCount)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	emails := p.hydrate(ctx, userID, ids, onProgress)

	if _, err := db.SaveEmails(p.database, emails); err != nil {
		return 0, fmt.Errorf("failed to persist emails: %w", err)
	}

	return len(emails), nil
}

// listMessageIDs pages through the sent-mail listing until maxCount ids are
// collected or the provider runs out of pages.
func (p *Pipeline) listMessageIDs(ctx context.Context, maxCount int) ([]string, error) {
	var ids []string
	pageToken := ""

	for len(ids) < maxCount {
		remaining := int64(maxCount - len(ids))
		pageSize := remaining
		if pageSize > providerPageCeiling {
			pageSize = providerPageCeiling
		}

		pageIDs, next, err := p.source.ListSent(ctx, pageToken, pageSize)
		if err != nil {
			return nil, fmt.Errorf("failed to list messages: %w", err)
		}

		ids = append(ids, pageIDs...)

		if next == "" {
			break
		}
		pageToken = next
	}

	if len(ids) > maxCount {
		ids = ids[:maxCount]
	}

	return ids, nil
}

// hydrate fetches full messages in sequential batches of concurrent calls.
// A failed individual fetch drops that message; it never aborts the run.
func (p *Pipeline) hydrate(ctx context.Context, userID uuid.UUID, ids []string, onProgress Progress) []models.Email {
	var emails []models.Email
	total := len(ids)

	for start := 0; start < total; start += p.batchSize {
		end := start + p.batchSize
		if end > total {
			end = total
		}
		batch := ids[start:end]

		results := make([]*gmail.Message, len(batch))
		var wg sync.WaitGroup
		for i, id := range batch {
			wg.Add(1)
			go func(slot int, messageID string) {
				defer wg.Done()
				message, err := p.source.GetMessage(ctx, messageID)
				if err != nil {
					fmt.Printf("  ✗ Failed to fetch message %s: %v\n", messageID, err)
					return
				}
				results[slot] = message
			}(i, id)
		}
		wg.Wait()

		for _, message := range results {
			if message == nil {
				continue
			}
			emails = append(emails, buildEmail(userID, message))
		}

		if onProgress != nil {
			onProgress(len(emails), total)
		}

		// Pause between batches, not within them; no pause after the last
		if end < total {
			select {
			case <-ctx.Done():
				return emails
			case <-time.After(p.interBatchWait):
			}
		}
	}

	return emails
}

// buildEmail flattens a fetched message into a persistable row.
func buildEmail(userID uuid.UUID, message *gmail.Message) models.Email {
	headers := parseHeaders(message.Payload)

	return models.Email{
		UserID:    userID,
		MessageID: message.Id,
		ThreadID:  message.ThreadId,
		Subject:   headers["Subject"],
		To:        headers["To"],
		Cc:        headers["Cc"],
		Bcc:       headers["Bcc"],
		Body:      ExtractBody(message.Payload),
		SentAt:    messageSentAt(message, headers["Date"]),
	}
}

// messageSentAt resolves the send time, preferring the provider's internal
// timestamp over the Date header.
func messageSentAt(message *gmail.Message, dateHeader string) time.Time {
	if message.InternalDate > 0 {
		return time.UnixMilli(message.InternalDate)
	}
	if t, err := parseEmailDate(dateHeader); err == nil {
		return t
	}
	return time.Now()
}

// parseEmailDate parses RFC 2822 email date
func parseEmailDate(dateStr string) (time.Time, error) {
	if dateStr == "" {
		return time.Now(), nil
	}

	// Strip trailing timezone name like "(UTC)" or "(PST)"
	if idx := strings.Index(dateStr, " ("); idx > 0 {
		dateStr = dateStr[:idx]
	}

	formats := []string{
		time.RFC1123Z,                    // "Mon, 02 Jan 2006 15:04:05 -0700"
		"Mon, 2 Jan 2006 15:04:05 -0700", // Single digit day with timezone
		time.RFC1123,                     // "Mon, 02 Jan 2006 15:04:05 MST"
		"Mon, 2 Jan 2006 15:04:05 MST",   // Single digit day without numeric timezone
		time.RFC822Z,                     // "02 Jan 06 15:04 -0700"
		time.RFC822,                      // "02 Jan 06 15:04 MST"
		time.RFC3339,                     // "2006-01-02T15:04:05Z07:00"
	}

	for _, format := range formats {
		t, err := time.Parse(format, dateStr)
		if err == nil {
			return t, nil
		}
	}

	return time.Now(), fmt.Errorf("failed to parse date: %s", dateStr)
}
