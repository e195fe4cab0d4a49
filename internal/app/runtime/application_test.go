package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/alphadesk/alphadesk/internal/config"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Auth.JWTSecret = "runtime-test-secret"
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Logging.Output = "stdout"
	return cfg
}

func TestApplicationLifecycle(t *testing.T) {
	application, err := NewApplicationWithConfig(testConfig())
	if err != nil {
		t.Fatalf("new application: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- application.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("run did not return after cancel")
	}

	if err := application.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestApplicationExposesServices(t *testing.T) {
	application, err := NewApplicationWithConfig(testConfig())
	if err != nil {
		t.Fatalf("new application: %v", err)
	}
	container := application.App()
	if container == nil || container.Accounts == nil || container.Trading == nil || container.Market == nil {
		t.Fatalf("expected wired service container")
	}
	if err := application.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
