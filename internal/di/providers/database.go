package providers

import (
	"fmt"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/n1k0r/librenotes-server/internal/config"
	"github.com/n1k0r/librenotes-server/internal/store"
	"github.com/n1k0r/librenotes-server/internal/store/kv"
	"github.com/n1k0r/librenotes-server/internal/store/sqlite"
)

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens the configured storage engine under the data path.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*LoggerHandle](i)

	var (
		st   store.Store
		path string
		err  error
	)
	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		path = filepath.Join(cfg.Storage.DataPath, "notes.db")
		st, err = sqlite.Open(path, log.Logger.Logger)
	case config.DriverBadger:
		path = filepath.Join(cfg.Storage.DataPath, "badger")
		st, err = kv.Open(path, log.Logger.Logger)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Storage.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Storage.Driver, err)
	}

	log.Info("Database initialized", "driver", cfg.Storage.Driver, "path", path)

	return &StoreHandle{Store: st}, nil
}
