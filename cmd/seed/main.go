// Package main seeds a data directory with a demo account, tags and notes.
//
// It writes through the sync service, so the result is what a client
// uploading its local notes would produce.
//
// Usage:
//
//	DATA_PATH=~/LibreNotes/data go run ./cmd/seed
//	go run ./cmd/seed -username demo -password 'demo-password' -notes 200
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/n1k0r/librenotes-server/internal/auth"
	"github.com/n1k0r/librenotes-server/internal/config"
	domainerrors "github.com/n1k0r/librenotes-server/internal/errors"
	"github.com/n1k0r/librenotes-server/internal/service"
	"github.com/n1k0r/librenotes-server/internal/store"
	"github.com/n1k0r/librenotes-server/internal/store/kv"
	"github.com/n1k0r/librenotes-server/internal/store/sqlite"
)

var (
	username  = flag.String("username", "demo", "Account to create or reuse")
	password  = flag.String("password", "demo-password", "Password for a newly created account")
	noteCount = flag.Int("notes", 50, "Number of notes to create")
)

var tagNames = []string{"work", "home", "ideas", "reading", "groceries", "travel"}

var snippets = []string{
	"Call the plumber about the kitchen sink",
	"Finish the quarterly report draft",
	"Book recommendations from Sam",
	"Idea: offline-first grocery list",
	"Pack chargers and passport",
	"Refactor the sync batching",
	"Buy oat milk, coffee and bread",
	"Read chapter 4 before Thursday",
	"Plan weekend hike",
	"Renew the car insurance",
}

func main() {
	flag.Parse()

	// DATA_PATH, STORE_DRIVER and friends come from the environment or .env.
	cfg, err := config.Load(nil)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	st, err := openStore(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	ctx := context.Background()

	ownerID, err := ensureUser(ctx, cfg, st, logger)
	if err != nil {
		log.Fatalf("Failed to prepare user: %v", err)
	}

	sync := service.NewSyncService(st, logger)
	req := buildBatch(*noteCount)
	resp, err := sync.Sync(ctx, ownerID, req)
	if err != nil {
		log.Fatalf("Sync failed: %v", err)
	}

	fmt.Printf("Seeded %d tags and %d notes for %q (%s)\n", len(resp.Tags), len(resp.Notes), *username, ownerID)
	fmt.Printf("Sync watermark: %s\n", resp.Time)
}

func openStore(cfg *config.Config, logger *slog.Logger) (store.Store, error) {
	fmt.Printf("Opening %s store in %s\n", cfg.Storage.Driver, cfg.Storage.DataPath)
	switch cfg.Storage.Driver {
	case config.DriverBadger:
		return kv.Open(filepath.Join(cfg.Storage.DataPath, "badger"), logger)
	default:
		return sqlite.Open(filepath.Join(cfg.Storage.DataPath, "notes.db"), logger)
	}
}

// ensureUser registers the demo account, or reuses it when it already exists.
func ensureUser(ctx context.Context, cfg *config.Config, st store.Store, logger *slog.Logger) (string, error) {
	if existing, err := st.GetUserByUsername(ctx, *username); err == nil {
		fmt.Printf("Reusing existing user %q\n", existing.Username)
		return existing.ID, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return "", err
	}

	key, err := auth.LoadOrGenerateKey(cfg.Storage.DataPath)
	if err != nil {
		return "", err
	}
	tokens, err := auth.NewTokenService(key, cfg.Auth.AccessTokenDuration, cfg.Auth.RefreshTokenDuration)
	if err != nil {
		return "", err
	}
	sessions := service.NewSessionService(st, tokens, logger)
	authService := service.NewAuthService(st, tokens, sessions, logger, true)

	resp, err := authService.Register(ctx, service.RegisterRequest{
		Username:   *username,
		Password:   *password,
		DeviceInfo: auth.DeviceInfo{DeviceType: "cli", ClientName: "seed"},
	})
	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		return "", fmt.Errorf("%s: %v", domainErr.Message, domainErr.Details)
	}
	if err != nil {
		return "", err
	}

	fmt.Printf("Created user %q\n", resp.User.Username)
	return resp.User.ID, nil
}

func buildBatch(n int) service.SyncRequest {
	var req service.SyncRequest

	tagUUIDs := make([]string, len(tagNames))
	for i, name := range tagNames {
		tagUUIDs[i] = uuid.NewString()
		req.Tags = append(req.Tags, service.TagChange{UUID: tagUUIDs[i], Name: &name})
	}

	now := time.Now().UTC()
	for range n {
		text := snippets[rand.IntN(len(snippets))]
		created := now.Add(-time.Duration(rand.IntN(90*24)) * time.Hour).Format(time.RFC3339)

		tags := make([]string, 0, 2)
		for range rand.IntN(3) {
			tags = append(tags, tagUUIDs[rand.IntN(len(tagUUIDs))])
		}

		req.Notes = append(req.Notes, service.NoteChange{
			UUID:    uuid.NewString(),
			Text:    &text,
			Tags:    tags,
			Created: &created,
		})
	}
	return req
}
