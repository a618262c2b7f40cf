// ABOUTME: Unit tests for the mail ingestion pipeline
// ABOUTME: Tests pagination, batch progress, error swallow, and the reingest short-circuit
package ingest

import (
	"context"
	"database/sql"
	"encoding/base64"
	"fmt"
	"sync"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/gmail/v1"

	"github.com/harperreed/skiff/db"
)

// fakeSource serves a fixed set of message ids with configurable page size
// behavior and per-id fetch failures.
type fakeSource struct {
	mu       sync.Mutex
	ids      []string
	failIDs  map[string]bool
	listErr  error
	fetches  int
	maxPages int64 // largest page size the pipeline ever requested
}

func (f *fakeSource) ListSent(_ context.Context, pageToken string, pageSize int64) ([]string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.listErr != nil {
		return nil, "", f.listErr
	}
	if pageSize > f.maxPages {
		f.maxPages = pageSize
	}

	start := 0
	if pageToken != "" {
		_, _ = fmt.Sscanf(pageToken, "%d", &start)
	}

	end := start + int(pageSize)
	if end > len(f.ids) {
		end = len(f.ids)
	}
	page := f.ids[start:end]

	next := ""
	if end < len(f.ids) {
		next = fmt.Sprintf("%d", end)
	}
	return page, next, nil
}

func (f *fakeSource) GetMessage(_ context.Context, id string) (*gmail.Message, error) {
	f.mu.Lock()
	f.fetches++
	fail := f.failIDs[id]
	f.mu.Unlock()

	if fail {
		return nil, fmt.Errorf("network error fetching %s", id)
	}

	return &gmail.Message{
		Id:           id,
		ThreadId:     "t-" + id,
		InternalDate: 1700000000000,
		Payload: &gmail.MessagePart{
			Headers: []*gmail.MessagePartHeader{
				{Name: "Subject", Value: "subject " + id},
				{Name: "To", Value: "someone@example.com"},
			},
			MimeType: "text/plain",
			Body: &gmail.MessagePartBody{
				Data: base64.URLEncoding.EncodeToString([]byte("body " + id)),
			},
		},
	}, nil
}

func makeIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("m%03d", i)
	}
	return ids
}

func setupPipelineDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	database.SetMaxOpenConns(1)
	require.NoError(t, db.InitSchema(database))
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func newTestPipeline(database *sql.DB, source Source) *Pipeline {
	p := New(database, source)
	p.interBatchWait = 0 // keep tests fast
	return p
}

func TestFetchAndPersist(t *testing.T) {
	database := setupPipelineDB(t)
	user, err := db.FindOrCreateUser(database, "alice@example.com", "", "")
	require.NoError(t, err)

	source := &fakeSource{ids: makeIDs(12)}
	pipeline := newTestPipeline(database, source)

	count, err := pipeline.FetchAndPersist(context.Background(), user.ID, 50, nil)
	require.NoError(t, err)
	assert.Equal(t, 12, count)

	persisted, err := db.CountEmails(database, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 12, persisted)

	emails, err := db.FindEmails(database, user.ID, 100)
	require.NoError(t, err)
	assert.Equal(t, "body m000", emails[0].Body)
	assert.Equal(t, "subject m000", emails[0].Subject)
}

func TestFetchAndPersistRespectsPageCeiling(t *testing.T) {
	database := setupPipelineDB(t)
	user, err := db.FindOrCreateUser(database, "bob@example.com", "", "")
	require.NoError(t, err)

	source := &fakeSource{ids: makeIDs(250)}
	pipeline := newTestPipeline(database, source)

	count, err := pipeline.FetchAndPersist(context.Background(), user.ID, 250, nil)
	require.NoError(t, err)
	assert.Equal(t, 250, count)

	// Never asks the provider for more than 100 ids per page
	assert.LessOrEqual(t, source.maxPages, int64(100))
}

func TestFetchAndPersistMaxCountTruncates(t *testing.T) {
	database := setupPipelineDB(t)
	user, err := db.FindOrCreateUser(database, "carol@example.com", "", "")
	require.NoError(t, err)

	source := &fakeSource{ids: makeIDs(40)}
	pipeline := newTestPipeline(database, source)

	count, err := pipeline.FetchAndPersist(context.Background(), user.ID, 25, nil)
	require.NoError(t, err)
	assert.Equal(t, 25, count)
}

func TestProgressPerBatch(t *testing.T) {
	database := setupPipelineDB(t)
	user, err := db.FindOrCreateUser(database, "dave@example.com", "", "")
	require.NoError(t, err)

	source := &fakeSource{ids: makeIDs(7)}
	pipeline := newTestPipeline(database, source)

	type call struct{ fetched, total int }
	var calls []call
	_, err = pipeline.FetchAndPersist(context.Background(), user.ID, 10, func(fetched, total int) {
		calls = append(calls, call{fetched, total})
	})
	require.NoError(t, err)

	// 7 ids, batch size 5 → ceil(7/5) = 2 progress calls
	require.Len(t, calls, 2)
	assert.Equal(t, call{5, 7}, calls[0])
	assert.Equal(t, call{7, 7}, calls[1])
}

func TestFailedFetchesAreSwallowed(t *testing.T) {
	database := setupPipelineDB(t)
	user, err := db.FindOrCreateUser(database, "erin@example.com", "", "")
	require.NoError(t, err)

	// 7 ids, the two in the second batch fail
	source := &fakeSource{
		ids:     makeIDs(7),
		failIDs: map[string]bool{"m005": true, "m006": true},
	}
	pipeline := newTestPipeline(database, source)

	type call struct{ fetched, total int }
	var calls []call
	count, err := pipeline.FetchAndPersist(context.Background(), user.ID, 10, func(fetched, total int) {
		calls = append(calls, call{fetched, total})
	})
	require.NoError(t, err)

	// Failures drop messages silently; the run itself succeeds
	assert.Equal(t, 5, count)
	require.Len(t, calls, 2)
	assert.Equal(t, call{5, 7}, calls[0])
	assert.Equal(t, call{5, 7}, calls[1])

	persisted, err := db.CountEmails(database, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, persisted)
}

func TestIngestionShortCircuit(t *testing.T) {
	database := setupPipelineDB(t)
	user, err := db.FindOrCreateUser(database, "frank@example.com", "", "")
	require.NoError(t, err)

	source := &fakeSource{ids: makeIDs(6)}
	pipeline := newTestPipeline(database, source)

	first, err := pipeline.FetchAndPersist(context.Background(), user.ID, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, 6, first)
	firstFetches := source.fetches

	// Second run skips the provider entirely and reports the existing count
	second, err := pipeline.FetchAndPersist(context.Background(), user.ID, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, 6, second)
	assert.Equal(t, firstFetches, source.fetches)
}

func TestListFailureIsFatal(t *testing.T) {
	database := setupPipelineDB(t)
	user, err := db.FindOrCreateUser(database, "grace@example.com", "", "")
	require.NoError(t, err)

	source := &fakeSource{ids: makeIDs(5), listErr: fmt.Errorf("quota exceeded")}
	pipeline := newTestPipeline(database, source)

	_, err = pipeline.FetchAndPersist(context.Background(), user.ID, 10, nil)
	assert.Error(t, err)
}

func TestEmptyMailbox(t *testing.T) {
	database := setupPipelineDB(t)
	user, err := db.FindOrCreateUser(database, "henry@example.com", "", "")
	require.NoError(t, err)

	source := &fakeSource{}
	pipeline := newTestPipeline(database, source)

	count, err := pipeline.FetchAndPersist(context.Background(), user.ID, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
