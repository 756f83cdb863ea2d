package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/n1k0r/librenotes-server/internal/domain"
	"github.com/n1k0r/librenotes-server/internal/service"
)

func (s *Server) registerTagRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listTags",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags",
		Summary:     "List tags",
		Description: "Returns the caller's live tags ordered by name",
		Tags:        []string{"Tags"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListTags)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createTag",
		Method:        http.MethodPost,
		Path:          "/api/v1/tags",
		Summary:       "Create tag",
		Description:   "Creates a tag. The uuid is generated when omitted.",
		Tags:          []string{"Tags"},
		Security:      []map[string][]string{{"bearer": {}}},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "getTag",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags/{uuid}",
		Summary:     "Get tag",
		Description: "Returns a live tag",
		Tags:        []string{"Tags"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateTag",
		Method:      http.MethodPatch,
		Path:        "/api/v1/tags/{uuid}",
		Summary:     "Update tag",
		Description: "Renames a live tag",
		Tags:        []string{"Tags"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateTag)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteTag",
		Method:        http.MethodDelete,
		Path:          "/api/v1/tags/{uuid}",
		Summary:       "Delete tag",
		Description:   "Tombstones a tag. Notes keep their reference until they are next edited.",
		Tags:          []string{"Tags"},
		Security:      []map[string][]string{{"bearer": {}}},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteTag)
}

// === DTOs ===

// TagPathInput addresses one tag.
type TagPathInput struct {
	Authorization string `header:"Authorization"`
	UUID          string `path:"uuid" format:"uuid" doc:"Tag UUID"`
}

// CreateTagRequest is the request body for creating a tag.
type CreateTagRequest struct {
	UUID string `json:"uuid,omitempty" doc:"Client-assigned UUID"`
	Name string `json:"name" doc:"Tag name, at most 30 characters"`
}

// CreateTagInput wraps the create tag request for Huma.
type CreateTagInput struct {
	Authorization string `header:"Authorization"`
	Body          CreateTagRequest
}

// UpdateTagRequest is the request body for updating a tag.
type UpdateTagRequest struct {
	Name *string `json:"name,omitempty" doc:"New tag name"`
}

// UpdateTagInput wraps the update tag request for Huma.
type UpdateTagInput struct {
	Authorization string `header:"Authorization"`
	UUID          string `path:"uuid" format:"uuid" doc:"Tag UUID"`
	Body          UpdateTagRequest
}

// TagResponse contains tag data in API responses.
type TagResponse struct {
	UUID         string `json:"uuid" doc:"Tag UUID"`
	Name         string `json:"name" doc:"Tag name"`
	LastModified string `json:"last_modified" doc:"Last server-side write"`
}

// TagOutput wraps a single tag for Huma.
type TagOutput struct {
	Body TagResponse
}

// ListTagsResponse contains a list of tags.
type ListTagsResponse struct {
	Tags []TagResponse `json:"tags" doc:"Live tags"`
}

// ListTagsOutput wraps the list tags response for Huma.
type ListTagsOutput struct {
	Body ListTagsResponse
}

// === Handlers ===

func (s *Server) handleListTags(ctx context.Context, input *AuthenticatedInput) (*ListTagsOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	tags, err := s.services.Tag.ListTags(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := make([]TagResponse, len(tags))
	for i, t := range tags {
		resp[i] = newTagResponse(t)
	}
	return &ListTagsOutput{Body: ListTagsResponse{Tags: resp}}, nil
}

func (s *Server) handleCreateTag(ctx context.Context, input *CreateTagInput) (*TagOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	t, err := s.services.Tag.CreateTag(ctx, userID, service.CreateTagRequest{
		UUID: input.Body.UUID,
		Name: input.Body.Name,
	})
	if err != nil {
		return nil, err
	}
	return &TagOutput{Body: newTagResponse(t)}, nil
}

func (s *Server) handleGetTag(ctx context.Context, input *TagPathInput) (*TagOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}
	tagUUID, err := parseUUIDParam(input.UUID)
	if err != nil {
		return nil, err
	}

	t, err := s.services.Tag.GetTag(ctx, userID, tagUUID)
	if err != nil {
		return nil, err
	}
	return &TagOutput{Body: newTagResponse(t)}, nil
}

func (s *Server) handleUpdateTag(ctx context.Context, input *UpdateTagInput) (*TagOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}
	tagUUID, err := parseUUIDParam(input.UUID)
	if err != nil {
		return nil, err
	}

	t, err := s.services.Tag.UpdateTag(ctx, userID, tagUUID, service.UpdateTagRequest{
		Name: input.Body.Name,
	})
	if err != nil {
		return nil, err
	}
	return &TagOutput{Body: newTagResponse(t)}, nil
}

func (s *Server) handleDeleteTag(ctx context.Context, input *TagPathInput) (*struct{}, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}
	tagUUID, err := parseUUIDParam(input.UUID)
	if err != nil {
		return nil, err
	}

	if err := s.services.Tag.DeleteTag(ctx, userID, tagUUID); err != nil {
		return nil, err
	}
	return nil, nil
}

func newTagResponse(t *domain.Tag) TagResponse {
	resp := TagResponse{
		UUID:         t.UUID.String(),
		LastModified: domain.FormatTimestamp(t.LastModified),
	}
	if t.Content != nil {
		resp.Name = t.Content.Name
	}
	return resp
}
