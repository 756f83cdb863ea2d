package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/n1k0r/librenotes-server/internal/service"
)

func (s *Server) registerSyncRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "sync",
		Method:      http.MethodPost,
		Path:        "/api/v1/sync",
		Summary:     "Sync tags and notes",
		Description: "Applies the client's tag changes, then its note changes, and returns " +
			"every tag and note of the caller modified after last_sync. Omit last_sync for a full resync. " +
			"Send the returned time as last_sync on the next call.",
		Tags:     []string{"Sync"},
		Security: []map[string][]string{{"bearer": {}}},
	}, s.handleSync)
}

// === DTOs ===

// TagChangeBody is one client-side tag change.
type TagChangeBody struct {
	_       struct{} `json:"-" additionalProperties:"true"`
	UUID    string   `json:"uuid,omitempty" doc:"Tag UUID, generated when omitted"`
	Name    *string  `json:"name,omitempty" doc:"New name"`
	Deleted bool     `json:"deleted,omitempty" doc:"Tombstone the tag"`
}

// NoteChangeBody is one client-side note change.
type NoteChangeBody struct {
	_       struct{}  `json:"-" additionalProperties:"true"`
	UUID    string    `json:"uuid,omitempty" doc:"Note UUID, generated when omitted"`
	Text    *string   `json:"text,omitempty" doc:"New text"`
	Tags    []string  `json:"tags,omitempty" doc:"Replacement set of tag UUIDs"`
	Created *FlexTime `json:"created,omitempty" doc:"Creation time, only used when the note is new"`
	Deleted bool      `json:"deleted,omitempty" doc:"Tombstone the note"`
}

// SyncRequest is the request body of a sync call.
type SyncRequest struct {
	_        struct{}         `json:"-" additionalProperties:"true"`
	LastSync *FlexTime        `json:"last_sync,omitempty" doc:"time returned by the previous sync"`
	Tags     []TagChangeBody  `json:"tags,omitempty" doc:"Tag changes, applied first"`
	Notes    []NoteChangeBody `json:"notes,omitempty" doc:"Note changes, applied after tags"`
}

// SyncInput wraps the sync request for Huma.
type SyncInput struct {
	Authorization string `header:"Authorization"`
	Body          SyncRequest
}

// SyncOutput wraps the sync response for Huma. The body is not enveloped.
type SyncOutput struct {
	Body service.SyncResponse
}

// === Handlers ===

func (s *Server) handleSync(ctx context.Context, input *SyncInput) (*SyncOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	resp, err := s.services.Sync.Sync(ctx, userID, input.Body.toService())
	if err != nil {
		return nil, err
	}
	return &SyncOutput{Body: *resp}, nil
}

func (r SyncRequest) toService() service.SyncRequest {
	req := service.SyncRequest{
		LastSync: r.LastSync.ptr(),
		Tags:     make([]service.TagChange, len(r.Tags)),
		Notes:    make([]service.NoteChange, len(r.Notes)),
	}
	for i, c := range r.Tags {
		req.Tags[i] = service.TagChange{UUID: c.UUID, Name: c.Name, Deleted: c.Deleted}
	}
	for i, c := range r.Notes {
		req.Notes[i] = service.NoteChange{
			UUID:    c.UUID,
			Text:    c.Text,
			Tags:    c.Tags,
			Created: c.Created.ptr(),
			Deleted: c.Deleted,
		}
	}
	return req
}
