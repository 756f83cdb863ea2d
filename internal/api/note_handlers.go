package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/n1k0r/librenotes-server/internal/domain"
	"github.com/n1k0r/librenotes-server/internal/service"
)

func (s *Server) registerNoteRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listNotes",
		Method:      http.MethodGet,
		Path:        "/api/v1/notes",
		Summary:     "List notes",
		Description: "Returns the caller's live notes, newest first, optionally filtered by tag",
		Tags:        []string{"Notes"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListNotes)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createNote",
		Method:        http.MethodPost,
		Path:          "/api/v1/notes",
		Summary:       "Create note",
		Description:   "Creates a note. Tags must be live tags of the caller.",
		Tags:          []string{"Notes"},
		Security:      []map[string][]string{{"bearer": {}}},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateNote)

	huma.Register(s.api, huma.Operation{
		OperationID: "getNote",
		Method:      http.MethodGet,
		Path:        "/api/v1/notes/{uuid}",
		Summary:     "Get note",
		Description: "Returns a live note",
		Tags:        []string{"Notes"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetNote)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateNote",
		Method:      http.MethodPatch,
		Path:        "/api/v1/notes/{uuid}",
		Summary:     "Update note",
		Description: "Changes text and/or replaces the tag set of a live note",
		Tags:        []string{"Notes"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateNote)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteNote",
		Method:        http.MethodDelete,
		Path:          "/api/v1/notes/{uuid}",
		Summary:       "Delete note",
		Description:   "Tombstones a note",
		Tags:          []string{"Notes"},
		Security:      []map[string][]string{{"bearer": {}}},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteNote)
}

// === DTOs ===

// ListNotesInput contains parameters for listing notes.
type ListNotesInput struct {
	Authorization string `header:"Authorization"`
	Tag           string `query:"tag" doc:"Only notes carrying this tag UUID"`
}

// NotePathInput addresses one note.
type NotePathInput struct {
	Authorization string `header:"Authorization"`
	UUID          string `path:"uuid" format:"uuid" doc:"Note UUID"`
}

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	UUID    string    `json:"uuid,omitempty" doc:"Client-assigned UUID"`
	Text    string    `json:"text,omitempty" doc:"Note text"`
	Tags    []string  `json:"tags,omitempty" doc:"Tag UUIDs"`
	Created *FlexTime `json:"created,omitempty" doc:"Creation time, defaults to now"`
}

// CreateNoteInput wraps the create note request for Huma.
type CreateNoteInput struct {
	Authorization string `header:"Authorization"`
	Body          CreateNoteRequest
}

// UpdateNoteRequest is the request body for updating a note.
type UpdateNoteRequest struct {
	Text *string  `json:"text,omitempty" doc:"New text"`
	Tags []string `json:"tags,omitempty" doc:"Replacement tag UUIDs; an empty list clears the tags"`
}

// UpdateNoteInput wraps the update note request for Huma.
type UpdateNoteInput struct {
	Authorization string `header:"Authorization"`
	UUID          string `path:"uuid" format:"uuid" doc:"Note UUID"`
	Body          UpdateNoteRequest
}

// NoteResponse contains note data in API responses.
type NoteResponse struct {
	UUID         string   `json:"uuid" doc:"Note UUID"`
	Text         string   `json:"text" doc:"Note text"`
	Tags         []string `json:"tags" doc:"Tag UUIDs"`
	Created      string   `json:"created" doc:"Creation time"`
	LastModified string   `json:"last_modified" doc:"Last server-side write"`
}

// NoteOutput wraps a single note for Huma.
type NoteOutput struct {
	Body NoteResponse
}

// ListNotesResponse contains a list of notes.
type ListNotesResponse struct {
	Notes []NoteResponse `json:"notes" doc:"Live notes"`
}

// ListNotesOutput wraps the list notes response for Huma.
type ListNotesOutput struct {
	Body ListNotesResponse
}

// === Handlers ===

func (s *Server) handleListNotes(ctx context.Context, input *ListNotesInput) (*ListNotesOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	notes, err := s.services.Note.ListNotes(ctx, userID, service.ListNotesRequest{Tag: input.Tag})
	if err != nil {
		return nil, err
	}

	resp := make([]NoteResponse, len(notes))
	for i, n := range notes {
		resp[i] = newNoteResponse(n)
	}
	return &ListNotesOutput{Body: ListNotesResponse{Notes: resp}}, nil
}

func (s *Server) handleCreateNote(ctx context.Context, input *CreateNoteInput) (*NoteOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	req := service.CreateNoteRequest{
		UUID: input.Body.UUID,
		Text: input.Body.Text,
		Tags: input.Body.Tags,
	}
	if created := input.Body.Created.ptr(); created != nil {
		req.Created = *created
	}

	n, err := s.services.Note.CreateNote(ctx, userID, req)
	if err != nil {
		return nil, err
	}
	return &NoteOutput{Body: newNoteResponse(n)}, nil
}

func (s *Server) handleGetNote(ctx context.Context, input *NotePathInput) (*NoteOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}
	noteUUID, err := parseUUIDParam(input.UUID)
	if err != nil {
		return nil, err
	}

	n, err := s.services.Note.GetNote(ctx, userID, noteUUID)
	if err != nil {
		return nil, err
	}
	return &NoteOutput{Body: newNoteResponse(n)}, nil
}

func (s *Server) handleUpdateNote(ctx context.Context, input *UpdateNoteInput) (*NoteOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}
	noteUUID, err := parseUUIDParam(input.UUID)
	if err != nil {
		return nil, err
	}

	n, err := s.services.Note.UpdateNote(ctx, userID, noteUUID, service.UpdateNoteRequest{
		Text: input.Body.Text,
		Tags: input.Body.Tags,
	})
	if err != nil {
		return nil, err
	}
	return &NoteOutput{Body: newNoteResponse(n)}, nil
}

func (s *Server) handleDeleteNote(ctx context.Context, input *NotePathInput) (*struct{}, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}
	noteUUID, err := parseUUIDParam(input.UUID)
	if err != nil {
		return nil, err
	}

	if err := s.services.Note.DeleteNote(ctx, userID, noteUUID); err != nil {
		return nil, err
	}
	return nil, nil
}

func newNoteResponse(n *domain.Note) NoteResponse {
	resp := NoteResponse{
		UUID:         n.UUID.String(),
		Tags:         []string{},
		LastModified: domain.FormatTimestamp(n.LastModified),
	}
	if n.Content != nil {
		resp.Text = n.Content.Text
		resp.Created = domain.FormatTimestamp(n.Content.Created)
		for _, id := range n.Content.TagUUIDs() {
			resp.Tags = append(resp.Tags, id.String())
		}
	}
	return resp
}
