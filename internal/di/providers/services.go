package providers

import (
	"github.com/samber/do/v2"

	"github.com/n1k0r/librenotes-server/internal/auth"
	"github.com/n1k0r/librenotes-server/internal/config"
	"github.com/n1k0r/librenotes-server/internal/service"
)

// ProvideSessionService provides the session management service.
func ProvideSessionService(i do.Injector) (*service.SessionService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	log := do.MustInvoke[*LoggerHandle](i)

	return service.NewSessionService(storeHandle.Store, tokenService, log.Logger.Logger), nil
}

// ProvideAuthService provides the authentication service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	sessionService := do.MustInvoke[*service.SessionService](i)
	log := do.MustInvoke[*LoggerHandle](i)

	return service.NewAuthService(storeHandle.Store, tokenService, sessionService, log.Logger.Logger, cfg.Auth.OpenRegistration), nil
}

// ProvideTagService provides the tag CRUD service.
func ProvideTagService(i do.Injector) (*service.TagService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*LoggerHandle](i)

	return service.NewTagService(storeHandle.Store, log.Logger.Logger), nil
}

// ProvideNoteService provides the note CRUD service.
func ProvideNoteService(i do.Injector) (*service.NoteService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*LoggerHandle](i)

	return service.NewNoteService(storeHandle.Store, log.Logger.Logger), nil
}

// ProvideSyncService provides the sync service.
func ProvideSyncService(i do.Injector) (*service.SyncService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*LoggerHandle](i)

	return service.NewSyncService(storeHandle.Store, log.Logger.Logger), nil
}
