package api

import "github.com/n1k0r/librenotes-server/internal/service"

// Services groups the business logic services used by the API server.
type Services struct {
	Auth   *service.AuthService
	Tag    *service.TagService
	Note   *service.NoteService
	Sync   *service.SyncService
	Search *service.SearchService
}
