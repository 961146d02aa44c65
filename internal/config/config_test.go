package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Bus.Servers[0] != "nats://localhost:4222" {
		t.Fatalf("expected default server, got %v", cfg.Bus.Servers)
	}
	if cfg.Narrator.MaxConcurrency != 3 {
		t.Fatalf("expected default concurrency 3, got %d", cfg.Narrator.MaxConcurrency)
	}
	if cfg.Narrator.MaxChunkLen != 1800 {
		t.Fatalf("expected default chunk length 1800, got %d", cfg.Narrator.MaxChunkLen)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("AUDIOMAX_BUS_SERVERS", "nats://one:4222, nats://two:4222")
	t.Setenv("AUDIOMAX_BUS_USERNAME", "alice")
	t.Setenv("AUDIOMAX_BUS_PASSWORD", "secret")
	t.Setenv("AUDIOMAX_SYNTHESIS_MODE", "edge")
	t.Setenv("AUDIOMAX_SYNTHESIS_VOICE", "en-GB-RyanNeural")
	t.Setenv("AUDIOMAX_SYNTHESIS_SPEED", "1.25")
	t.Setenv("AUDIOMAX_NARRATOR_MAX_CONCURRENCY", "5")
	t.Setenv("AUDIOMAX_NARRATOR_ALLOW_PARTIAL", "true")
	t.Setenv("AUDIOMAX_JOB_STORE_PATH", "./tmp.db")
	t.Setenv("AUDIOMAX_JOB_STORE_RETENTION_MODE", "persistent")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cfg.Bus.Servers) != 2 {
		t.Fatalf("expected 2 servers, got %v", cfg.Bus.Servers)
	}
	if cfg.Bus.Username != "alice" || cfg.Bus.Password != "secret" {
		t.Fatalf("expected credentials override")
	}
	if cfg.Synthesis.Mode != "edge" || cfg.Synthesis.Voice != "en-GB-RyanNeural" {
		t.Fatalf("expected synthesis override, got %+v", cfg.Synthesis)
	}
	if cfg.Synthesis.Speed != 1.25 {
		t.Fatalf("expected speed 1.25, got %v", cfg.Synthesis.Speed)
	}
	if cfg.Narrator.MaxConcurrency != 5 {
		t.Fatalf("expected concurrency override, got %d", cfg.Narrator.MaxConcurrency)
	}
	if !cfg.Narrator.AllowPartial {
		t.Fatal("expected allow_partial override true")
	}
	if cfg.JobStore.Path != "./tmp.db" || cfg.JobStore.RetentionMode != "persistent" {
		t.Fatalf("expected job store override, got %+v", cfg.JobStore)
	}
}

func TestValidateRejectsBadModes(t *testing.T) {
	t.Setenv("AUDIOMAX_SYNTHESIS_MODE", "polly")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for unknown synthesis mode")
	}
}

func TestValidateExecRequiresCommand(t *testing.T) {
	t.Setenv("AUDIOMAX_SYNTHESIS_MODE", "exec")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error when exec mode has no command")
	}
}
