package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel       string `yaml:"log_level"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	OTLPInsecure   bool   `yaml:"otlp_insecure"`
	PrometheusBind string `yaml:"prometheus_bind"`
}

type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type BusConfig struct {
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

type JobStoreConfig struct {
	Path          string `yaml:"path"`
	RetentionMode string `yaml:"retention_mode"`
	RetentionDays int    `yaml:"retention_days"`
	MaxJobs       int    `yaml:"max_jobs"`
	VacuumOnStart bool   `yaml:"vacuum_on_start"`
}

type TranscriptConfig struct {
	Mode        string  `yaml:"mode"` // passthrough, ollama
	Endpoint    string  `yaml:"endpoint"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

type SynthesisConfig struct {
	Mode      string  `yaml:"mode"` // mock, edge, exec
	Voice     string  `yaml:"voice"`
	Quality   string  `yaml:"quality"`
	Speed     float64 `yaml:"speed"`
	Command   string  `yaml:"command"`
	TimeoutMS int     `yaml:"timeout_ms"`
}

type NarratorConfig struct {
	Enabled        bool `yaml:"enabled"`
	MaxConcurrency int  `yaml:"max_concurrency"`
	MaxChunkLen    int  `yaml:"max_chunk_len"`
	AllowPartial   bool `yaml:"allow_partial"`
}

type Config struct {
	ServiceName string           `yaml:"service_name"`
	Environment string           `yaml:"environment"`
	HTTP        HTTPConfig       `yaml:"http"`
	Telemetry   TelemetryConfig  `yaml:"telemetry"`
	Bus         BusConfig        `yaml:"bus"`
	JobStore    JobStoreConfig   `yaml:"job_store"`
	Transcript  TranscriptConfig `yaml:"transcript"`
	Synthesis   SynthesisConfig  `yaml:"synthesis"`
	Narrator    NarratorConfig   `yaml:"narrator"`
}

func Default() Config {
	return Config{
		ServiceName: "audiomax",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind: "0.0.0.0",
			Port: 8080,
		},
		Telemetry: TelemetryConfig{
			LogLevel:       "info",
			OTLPEndpoint:   "",
			OTLPInsecure:   true,
			PrometheusBind: ":9091",
		},
		Bus: BusConfig{
			Embedded:       true,
			Port:           4222,
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		JobStore: JobStoreConfig{
			Path:          "./data/audiomax-jobs.db",
			RetentionMode: "session",
			RetentionDays: 30,
			MaxJobs:       10000,
		},
		Transcript: TranscriptConfig{
			Mode:        "passthrough",
			Endpoint:    "http://localhost:11434",
			Model:       "llama3.2:latest",
			MaxTokens:   2048,
			Temperature: 0.7,
		},
		Synthesis: SynthesisConfig{
			Mode:      "mock",
			Voice:     "en-US-AriaNeural",
			Speed:     1.0,
			TimeoutMS: 60000,
		},
		Narrator: NarratorConfig{
			Enabled:        true,
			MaxConcurrency: 3,
			MaxChunkLen:    1800,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.ServiceName, "AUDIOMAX_SERVICE_NAME")
	overrideString(&cfg.Environment, "AUDIOMAX_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "AUDIOMAX_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "AUDIOMAX_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "AUDIOMAX_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "AUDIOMAX_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "AUDIOMAX_TELEMETRY_OTLP_INSECURE")
	overrideString(&cfg.Telemetry.PrometheusBind, "AUDIOMAX_TELEMETRY_PROMETHEUS_BIND")
	overrideBool(&cfg.Bus.Embedded, "AUDIOMAX_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "AUDIOMAX_BUS_PORT")
	overrideStringSlice(&cfg.Bus.Servers, "AUDIOMAX_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "AUDIOMAX_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "AUDIOMAX_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "AUDIOMAX_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "AUDIOMAX_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "AUDIOMAX_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.JobStore.Path, "AUDIOMAX_JOB_STORE_PATH")
	overrideString(&cfg.JobStore.RetentionMode, "AUDIOMAX_JOB_STORE_RETENTION_MODE")
	overrideInt(&cfg.JobStore.RetentionDays, "AUDIOMAX_JOB_STORE_RETENTION_DAYS")
	overrideInt(&cfg.JobStore.MaxJobs, "AUDIOMAX_JOB_STORE_MAX_JOBS")
	overrideBool(&cfg.JobStore.VacuumOnStart, "AUDIOMAX_JOB_STORE_VACUUM_ON_START")
	overrideString(&cfg.Transcript.Mode, "AUDIOMAX_TRANSCRIPT_MODE")
	overrideString(&cfg.Transcript.Endpoint, "AUDIOMAX_TRANSCRIPT_ENDPOINT")
	overrideString(&cfg.Transcript.Model, "AUDIOMAX_TRANSCRIPT_MODEL")
	overrideInt(&cfg.Transcript.MaxTokens, "AUDIOMAX_TRANSCRIPT_MAX_TOKENS")
	overrideFloat(&cfg.Transcript.Temperature, "AUDIOMAX_TRANSCRIPT_TEMPERATURE")
	overrideString(&cfg.Synthesis.Mode, "AUDIOMAX_SYNTHESIS_MODE")
	overrideString(&cfg.Synthesis.Voice, "AUDIOMAX_SYNTHESIS_VOICE")
	overrideString(&cfg.Synthesis.Quality, "AUDIOMAX_SYNTHESIS_QUALITY")
	overrideFloat(&cfg.Synthesis.Speed, "AUDIOMAX_SYNTHESIS_SPEED")
	overrideString(&cfg.Synthesis.Command, "AUDIOMAX_SYNTHESIS_COMMAND")
	overrideInt(&cfg.Synthesis.TimeoutMS, "AUDIOMAX_SYNTHESIS_TIMEOUT_MS")
	overrideBool(&cfg.Narrator.Enabled, "AUDIOMAX_NARRATOR_ENABLED")
	overrideInt(&cfg.Narrator.MaxConcurrency, "AUDIOMAX_NARRATOR_MAX_CONCURRENCY")
	overrideInt(&cfg.Narrator.MaxChunkLen, "AUDIOMAX_NARRATOR_MAX_CHUNK_LEN")
	overrideBool(&cfg.Narrator.AllowPartial, "AUDIOMAX_NARRATOR_ALLOW_PARTIAL")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func validate(cfg Config) error {
	if cfg.ServiceName == "" {
		return errors.New("service_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.Bus.Embedded {
		if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
			return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
		}
	} else {
		if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}
	if cfg.JobStore.Path == "" {
		return errors.New("job_store.path must not be empty")
	}
	switch cfg.JobStore.RetentionMode {
	case "ephemeral", "session", "persistent":
		// ok
	default:
		return errors.New("job_store.retention_mode must be one of ephemeral|session|persistent")
	}
	if cfg.JobStore.RetentionDays < 0 {
		return errors.New("job_store.retention_days must be >= 0")
	}
	if cfg.Telemetry.PrometheusBind == "" {
		return errors.New("telemetry.prometheus_bind must not be empty")
	}
	switch cfg.Transcript.Mode {
	case "passthrough", "ollama":
	default:
		return errors.New("transcript.mode must be one of passthrough|ollama")
	}
	if cfg.Transcript.Mode == "ollama" && cfg.Transcript.Endpoint == "" {
		return errors.New("transcript.endpoint must be set when mode=ollama")
	}
	switch cfg.Synthesis.Mode {
	case "mock", "edge", "exec":
	default:
		return errors.New("synthesis.mode must be one of mock|edge|exec")
	}
	if cfg.Synthesis.Mode == "exec" && cfg.Synthesis.Command == "" {
		return errors.New("synthesis.command must be set when mode=exec")
	}
	if cfg.Synthesis.Mode == "edge" && cfg.Synthesis.Voice == "" {
		return errors.New("synthesis.voice must be set when mode=edge")
	}
	if cfg.Synthesis.TimeoutMS < 0 {
		return errors.New("synthesis.timeout_ms must be >= 0")
	}
	if cfg.Narrator.Enabled {
		if cfg.Narrator.MaxConcurrency < 1 {
			return errors.New("narrator.max_concurrency must be >= 1")
		}
		if cfg.Narrator.MaxChunkLen < 1 {
			return errors.New("narrator.max_chunk_len must be >= 1")
		}
	}
	return nil
}
