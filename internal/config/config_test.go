package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"ACCESS_TOKEN_EXPIRE_MINUTES", "REFRESH_TOKEN_EXPIRE_DAYS", "EXPIRY_SWEEP_INTERVAL_SECONDS",
		"RANK_SYNC_INTERVAL_SECONDS", "NOTIFICATION_RETENTION_DAYS", "QUEUE_BACKEND", "METRICS_ENABLED",
		"DEADLINE_REMINDER_HOURS", "DEADLINE_REMINDER_INTERVAL_MINUTES",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.AccessExpiry != 15*time.Minute {
		t.Fatalf("AccessExpiry = %v, want 15m", cfg.AccessExpiry)
	}
	if cfg.RefreshExpiry != 7*24*time.Hour {
		t.Fatalf("RefreshExpiry = %v, want 168h", cfg.RefreshExpiry)
	}
	if cfg.ExpirySweepInterval != time.Minute {
		t.Fatalf("ExpirySweepInterval = %v, want 1m", cfg.ExpirySweepInterval)
	}
	if cfg.RankSyncInterval != 5*time.Minute {
		t.Fatalf("RankSyncInterval = %v, want 5m", cfg.RankSyncInterval)
	}
	if cfg.NotificationRetention != 30*24*time.Hour {
		t.Fatalf("NotificationRetention = %v, want 720h", cfg.NotificationRetention)
	}
	if cfg.DeadlineReminderWindow != 24*time.Hour || cfg.DeadlineReminderEvery != 15*time.Minute {
		t.Fatalf("deadline reminders = %v every %v, want 24h every 15m", cfg.DeadlineReminderWindow, cfg.DeadlineReminderEvery)
	}
	if cfg.QueueBackend != QueueBackendRedis {
		t.Fatalf("QueueBackend = %q, want redis", cfg.QueueBackend)
	}
	if !cfg.MetricsEnabled {
		t.Fatalf("MetricsEnabled should default to true")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("EXPIRY_SWEEP_INTERVAL_SECONDS", "5")
	t.Setenv("QUEUE_BACKEND", "AMQP")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("MAX_DB_CONNS", "not-a-number")

	cfg := Load()
	if cfg.ExpirySweepInterval != 5*time.Second {
		t.Fatalf("ExpirySweepInterval = %v, want 5s", cfg.ExpirySweepInterval)
	}
	if cfg.QueueBackend != QueueBackendAMQP {
		t.Fatalf("QueueBackend = %q, want amqp", cfg.QueueBackend)
	}
	if cfg.MetricsEnabled {
		t.Fatalf("MetricsEnabled should be false")
	}
	if cfg.MaxDBConns != 16 {
		t.Fatalf("MaxDBConns = %d, want fallback 16", cfg.MaxDBConns)
	}
}

func TestParseOrigins(t *testing.T) {
	if got := parseOrigins(""); got != nil {
		t.Fatalf("parseOrigins(\"\") = %v, want nil", got)
	}
	got := parseOrigins(" https://a.example , ,https://b.example")
	if len(got) != 2 || got[0] != "https://a.example" || got[1] != "https://b.example" {
		t.Fatalf("parseOrigins = %v", got)
	}
}
