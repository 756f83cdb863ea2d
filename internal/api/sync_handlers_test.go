package api

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n1k0r/librenotes-server/internal/service"
)

func (ts *testServer) sync(t *testing.T, bearer string, body map[string]any) service.SyncResponse {
	t.Helper()
	resp := ts.api.Post("/api/v1/sync", bearer, body)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var out service.SyncResponse
	decode(t, resp, &out)
	return out
}

func TestSync_RoundTrip(t *testing.T) {
	ts := newTestServer(t)
	bearer := ts.register(t, "alice")
	tagUUID := uuid.NewString()
	noteUUID := uuid.NewString()

	first := ts.sync(t, bearer, map[string]any{
		"tags": []map[string]any{{"uuid": tagUUID, "name": "work"}},
		"notes": []map[string]any{{
			"uuid":    noteUUID,
			"text":    "hello",
			"tags":    []string{tagUUID},
			"created": "2024-01-15T10:30:00.250Z",
		}},
	})
	assert.NotEmpty(t, first.Time)
	require.Len(t, first.Tags, 1)
	assert.Equal(t, tagUUID, first.Tags[0].UUID.String())
	require.NotNil(t, first.Tags[0].Name)
	assert.Equal(t, "work", *first.Tags[0].Name)
	require.Len(t, first.Notes, 1)
	assert.Equal(t, "hello", *first.Notes[0].Text)
	assert.Equal(t, tagUUID, first.Notes[0].Tags[0].String())
	assert.Equal(t, "2024-01-15T10:30:00Z", *first.Notes[0].Created)

	second := ts.sync(t, bearer, map[string]any{"last_sync": first.Time})
	assert.Empty(t, second.Tags)
	assert.Empty(t, second.Notes)
}

func TestSync_ResponseShape(t *testing.T) {
	ts := newTestServer(t)
	bearer := ts.register(t, "alice")

	resp := ts.api.Post("/api/v1/sync", bearer, map[string]any{})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	// No envelope, no $schema link, empty lists rather than null.
	var raw map[string]any
	decode(t, resp, &raw)
	assert.ElementsMatch(t, []string{"time", "tags", "notes"}, keys(raw))
	assert.Equal(t, []any{}, raw["tags"])
	assert.Equal(t, []any{}, raw["notes"])
}

func TestSync_TombstoneShape(t *testing.T) {
	ts := newTestServer(t)
	bearer := ts.register(t, "alice")
	noteUUID := uuid.NewString()

	ts.sync(t, bearer, map[string]any{"notes": []map[string]any{{"uuid": noteUUID, "text": "gone soon"}}})
	ts.sync(t, bearer, map[string]any{"notes": []map[string]any{{"uuid": noteUUID, "deleted": true}}})

	resp := ts.api.Post("/api/v1/sync", bearer, map[string]any{})
	require.Equal(t, http.StatusOK, resp.Code)
	var raw struct {
		Notes []map[string]any `json:"notes"`
	}
	decode(t, resp, &raw)
	require.Len(t, raw.Notes, 1)
	assert.Equal(t, map[string]any{"uuid": noteUUID, "deleted": true}, raw.Notes[0])
}

func TestSync_AcceptsLooseInput(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.register(t, "alice")
	bob := ts.register(t, "bob")
	tagUUID := uuid.NewString()

	// A client-sent owner is ignored; the tag belongs to the caller.
	ts.sync(t, alice, map[string]any{
		"tags": []map[string]any{{"uuid": tagUUID, "name": "mine", "owner": "user-bob"}},
	})
	assert.Empty(t, ts.sync(t, bob, map[string]any{}).Tags)
	assert.Len(t, ts.sync(t, alice, map[string]any{}).Tags, 1)

	// Epoch milliseconds, as a number or a string.
	out := ts.sync(t, alice, map[string]any{"last_sync": 0})
	assert.Len(t, out.Tags, 1)
	out = ts.sync(t, alice, map[string]any{"last_sync": "4102444800000"})
	assert.Empty(t, out.Tags)
}

func TestSync_Errors(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.register(t, "alice")
	bob := ts.register(t, "bob")
	aliceTag := uuid.NewString()
	ts.sync(t, alice, map[string]any{"tags": []map[string]any{{"uuid": aliceTag, "name": "private"}}})

	tests := []struct {
		name   string
		bearer string
		body   map[string]any
		status int
		field  string
	}{
		{
			name:   "malformed last_sync",
			bearer: alice,
			body:   map[string]any{"last_sync": "last tuesday"},
			status: http.StatusBadRequest,
			field:  "last_sync",
		},
		{
			name:   "malformed uuid",
			bearer: alice,
			body:   map[string]any{"tags": []map[string]any{{"uuid": "nope", "name": "x"}}},
			status: http.StatusBadRequest,
			field:  "tags[0].uuid",
		},
		{
			name:   "name too long",
			bearer: alice,
			body:   map[string]any{"tags": []map[string]any{{"name": "0123456789012345678901234567890"}}},
			status: http.StatusBadRequest,
			field:  "tags[0].name",
		},
		{
			name:   "foreign tag reference",
			bearer: bob,
			body:   map[string]any{"notes": []map[string]any{{"text": "x", "tags": []string{aliceTag}}}},
			status: http.StatusBadRequest,
		},
		{
			name:   "wrong type",
			bearer: alice,
			body:   map[string]any{"tags": "work"},
			status: http.StatusBadRequest,
			field:  "tags",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.api.Post("/api/v1/sync", tt.bearer, tt.body)
			assert.Equal(t, tt.status, resp.Code, resp.Body.String())
			body := decodeError(t, resp)
			assert.Equal(t, "VALIDATION_ERROR", body.Code)
			if tt.field != "" {
				assert.Contains(t, body.Details, tt.field)
			}
		})
	}

	resp := ts.api.Post("/api/v1/sync", map[string]any{})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
