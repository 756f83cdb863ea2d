package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/n1k0r/librenotes-server/internal/config"
	"github.com/n1k0r/librenotes-server/internal/search"
	"github.com/n1k0r/librenotes-server/internal/service"
)

// SearchIndexHandle wraps the search index with shutdown capability.
// Index is nil when search is disabled.
type SearchIndexHandle struct {
	*search.SearchIndex
	// created is set when the index was (re)created empty and needs a rebuild.
	created bool
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	if h.SearchIndex == nil {
		return nil
	}
	return h.Close()
}

// ProvideSearchIndex provides the Bleve search index, or an empty handle
// when SEARCH_ENABLED is false.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*LoggerHandle](i)

	if !cfg.Search.Enabled {
		log.Info("Search disabled by configuration")
		return &SearchIndexHandle{}, nil
	}

	index, created, err := search.NewSearchIndex(search.Options{
		DataPath: cfg.Storage.DataPath,
		Logger:   log.Logger.Logger,
	})
	if err != nil {
		return nil, err
	}

	docCount, _ := index.DocumentCount()
	log.Info("Search index initialized", "documents", docCount, "created", created)

	return &SearchIndexHandle{SearchIndex: index, created: created}, nil
}

// ProvideSearchService provides the search service and hooks the index into
// the store so every note write keeps it current.
func ProvideSearchService(i do.Injector) (*service.SearchService, error) {
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*LoggerHandle](i)

	if indexHandle.SearchIndex != nil {
		storeHandle.SetSearchIndexer(indexHandle.SearchIndex)
	}

	return service.NewSearchService(indexHandle.SearchIndex, storeHandle.Store, log.Logger.Logger), nil
}

// TriggerSearchReindexIfNeeded refills a freshly created index from the store
// in the background. Should be called after all services are wired.
func TriggerSearchReindexIfNeeded(i do.Injector) {
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	searchService := do.MustInvoke[*service.SearchService](i)
	log := do.MustInvoke[*LoggerHandle](i)

	if indexHandle.SearchIndex == nil || !indexHandle.created {
		return
	}

	go func() {
		count, err := searchService.Reindex(context.Background())
		if err != nil {
			log.Error("Initial search reindex failed", "error", err)
			return
		}
		log.Info("Initial search reindex completed", "documents", count)
	}()
}
