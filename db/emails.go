// ABOUTME: Email database operations
// ABOUTME: Handles idempotent batch inserts keyed on (user_id, message_id)
package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/skiff/models"
)

// insertBatchSize caps multi-row inserts to keep statement size bounded.
const insertBatchSize = 50

// SaveEmails persists emails in batches with an ignore-duplicate conflict
// policy on (user_id, message_id). Re-running ingestion for a user who
// already has rows is a no-op per duplicate, not an error. Returns the
// number of rows actually written.
func SaveEmails(db *sql.DB, emails []models.Email) (int, error) {
	written := 0

	for start := 0; start < len(emails); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(emails) {
			end = len(emails)
		}
		batch := emails[start:end]

		placeholders := make([]string, 0, len(batch))
		args := make([]any, 0, len(batch)*10)
		for i := range batch {
			e := &batch[i]
			if e.ID == uuid.Nil {
				e.ID = uuid.New()
			}
			if e.CreatedAt.IsZero() {
				e.CreatedAt = time.Now()
			}
			placeholders = append(placeholders, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				e.ID.String(), e.UserID.String(), e.MessageID, e.ThreadID,
				e.Subject, e.To, e.Cc, e.Bcc, e.Body, e.SentAt)
		}

		result, err := db.Exec(`
			INSERT INTO emails (id, user_id, message_id, thread_id, subject, to_addrs, cc_addrs, bcc_addrs, body, sent_at)
			VALUES `+strings.Join(placeholders, ", ")+`
			ON CONFLICT(user_id, message_id) DO NOTHING
		`, args...)
		if err != nil {
			return written, fmt.Errorf("failed to save email batch: %w", err)
		}

		affected, err := result.RowsAffected()
		if err == nil {
			written += int(affected)
		}
	}

	return written, nil
}

// CountEmails returns the number of persisted emails for a user.
func CountEmails(db *sql.DB, userID uuid.UUID) (int, error) {
	var count int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM emails WHERE user_id = ?
	`, userID.String()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count emails: %w", err)
	}
	return count, nil
}

// FindEmails returns the most recent persisted emails for a user.
func FindEmails(db *sql.DB, userID uuid.UUID, limit int) ([]models.Email, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := db.Query(`
		SELECT id, user_id, message_id, thread_id, subject, to_addrs, cc_addrs, bcc_addrs, body, sent_at, created_at
		FROM emails
		WHERE user_id = ?
		ORDER BY sent_at DESC
		LIMIT ?
	`, userID.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query emails: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var emails []models.Email
	for rows.Next() {
		var e models.Email
		var sentAt sql.NullTime
		err := rows.Scan(
			&e.ID, &e.UserID, &e.MessageID, &e.ThreadID,
			&e.Subject, &e.To, &e.Cc, &e.Bcc, &e.Body,
			&sentAt, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan email: %w", err)
		}
		if sentAt.Valid {
			e.SentAt = sentAt.Time
		}
		emails = append(emails, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating emails: %w", err)
	}

	return emails, nil
}
