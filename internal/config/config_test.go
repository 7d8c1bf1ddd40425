package config

import (
	"testing"
	"time"

	"quest-scheduler-go/pkg/logger"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AUTH_SKIP", "true")
	t.Setenv("STORAGE_DRIVER", "MEMORY")

	cfg, err := Load(logger.Nop())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StorageDriver != StorageDriverMemory {
		t.Fatalf("expected memory driver, got %s", cfg.StorageDriver)
	}
	if cfg.Scheduler.Spec != "@every 1m" {
		t.Fatalf("unexpected scheduler spec %q", cfg.Scheduler.Spec)
	}
	if cfg.RequestTimeout != 15*time.Second {
		t.Fatalf("unexpected request timeout %s", cfg.RequestTimeout)
	}
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("AUTH_SKIP", "false")
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(logger.Nop()); err == nil {
		t.Fatalf("expected error without JWT_SECRET")
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("AUTH_SKIP", "true")
	t.Setenv("STORAGE_DRIVER", "sqlite")

	if _, err := Load(logger.Nop()); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestGetEnvList(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", " a:9092, ,b:9092 ")

	got := getEnvList("KAFKA_BROKERS", nil)
	if len(got) != 2 || got[0] != "a:9092" || got[1] != "b:9092" {
		t.Fatalf("unexpected list %v", got)
	}
}
