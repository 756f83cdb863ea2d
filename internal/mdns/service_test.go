package mdns

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAd() Advertisement {
	return Advertisement{Name: "Test Server", Version: "1.2.3", Port: 8080}
}

func TestTXTRecords(t *testing.T) {
	assert.Equal(t, []string{
		"name=Test Server",
		"version=1.2.3",
		"api=v1",
		"sync=/api/v1/sync",
	}, testAd().TXTRecords())
}

func TestStart_RejectsBadAdvertisement(t *testing.T) {
	service := NewService(slog.New(slog.DiscardHandler))

	ad := testAd()
	ad.Port = 0
	assert.Error(t, service.Start(ad))

	ad = testAd()
	ad.Name = ""
	assert.Error(t, service.Start(ad))

	assert.False(t, service.Running())
}

func TestServiceStop(t *testing.T) {
	service := NewService(slog.New(slog.DiscardHandler))

	// Stopping an idle service is a no-op, repeatedly.
	service.Stop()
	service.Stop()
	assert.False(t, service.Running())
}

// Multicast is often unavailable (containers, CI); these skip rather than fail.
func TestServiceLifecycle(t *testing.T) {
	var buf bytes.Buffer
	service := NewService(slog.New(slog.NewTextHandler(&buf, nil)))

	if err := service.Start(testAd()); err != nil {
		t.Skipf("mDNS not available: %v", err)
	}
	assert.True(t, service.Running())
	assert.Contains(t, buf.String(), "mDNS advertisement started")

	// A second start replaces the running responder.
	ad := testAd()
	ad.Port = 8081
	require.NoError(t, service.Start(ad))
	assert.True(t, service.Running())

	done := make(chan struct{})
	for range 5 {
		go func() {
			service.Stop()
			done <- struct{}{}
		}()
	}
	for range 5 {
		<-done
	}

	assert.False(t, service.Running())
	assert.Contains(t, buf.String(), "mDNS advertisement stopped")
}
