// Package mdns advertises the server on the local network so clients can
// find it without configuration.
package mdns

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/hashicorp/mdns"
)

const (
	// ServiceType is the mDNS service type for LibreNotes servers.
	ServiceType = "_librenotes._tcp"

	// APIVersion is the API version advertised in TXT records.
	APIVersion = "v1"
)

// Advertisement is what the server announces about itself.
type Advertisement struct {
	Name    string // human-readable server name
	Version string
	Port    int
}

// TXTRecords returns the key=value TXT records for ad.
func (ad Advertisement) TXTRecords() []string {
	return []string{
		"name=" + ad.Name,
		"version=" + ad.Version,
		"api=" + APIVersion,
		"sync=/api/v1/sync",
	}
}

// Service manages the mDNS responder.
type Service struct {
	server *mdns.Server
	logger *slog.Logger
	mu     sync.Mutex
}

// NewService creates a new mDNS service.
func NewService(logger *slog.Logger) *Service {
	return &Service{logger: logger}
}

// Start begins advertising ad, replacing any running advertisement.
// Errors are typically non-fatal (multicast is often unavailable in containers).
func (s *Service) Start(ad Advertisement) error {
	if ad.Port <= 0 || ad.Port > 65535 {
		return fmt.Errorf("invalid port %d", ad.Port)
	}
	if ad.Name == "" {
		return errors.New("advertisement name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		_ = s.server.Shutdown()
		s.server = nil
	}

	host, err := os.Hostname()
	if err != nil {
		host = "librenotes-server"
	}

	zone, err := mdns.NewMDNSService(host, ServiceType, "", "", ad.Port, nil, ad.TXTRecords())
	if err != nil {
		return fmt.Errorf("create mDNS service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: zone})
	if err != nil {
		return fmt.Errorf("start mDNS server: %w", err)
	}
	s.server = server

	s.logger.Info("mDNS advertisement started",
		"service", ServiceType,
		"port", ad.Port,
		"name", ad.Name,
	)
	return nil
}

// Running reports whether an advertisement is active.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.server != nil
}

// Stop stops advertising. Safe to call multiple times or if not started.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		_ = s.server.Shutdown()
		s.server = nil
		s.logger.Info("mDNS advertisement stopped")
	}
}
