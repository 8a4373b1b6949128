package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Setenv("PORT", "9191")
	t.Setenv("REQUEST_TIMEOUT", "3s")
	t.Setenv("FORECAST_MIN_HISTORY_POINTS", "8")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9191" {
		t.Fatalf("port=%q", cfg.Port)
	}
	if cfg.RequestTimeout != 3*time.Second {
		t.Fatalf("request timeout=%v", cfg.RequestTimeout)
	}
	if cfg.MinHistoryPoints != 8 {
		t.Fatalf("min history=%d", cfg.MinHistoryPoints)
	}
	if cfg.KafkaForecastTopic != "forecasts.generated" || cfg.DefaultWindow != 7 || cfg.ShutdownTimeout != 5*time.Second {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "forecast.yaml")
	body := "log_level: debug\nforecast_default_window: 14\nkafka_brokers: a:9092,b:9092\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "debug" || cfg.DefaultWindow != 14 || cfg.KafkaBrokers != "a:9092,b:9092" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
}

func TestLoad_RejectsBadWindow(t *testing.T) {
	t.Setenv("FORECAST_DEFAULT_WINDOW", "0")
	if _, err := Load(""); err == nil {
		t.Fatalf("zero window should be rejected")
	}
}

func TestLogError_Fields(t *testing.T) {
	var buf bytes.Buffer
	logg := NewLogger("not-a-level", &buf)
	LogError(logg, "service", "GenerateForecast", "persist", map[string]int{"n": 1}, errors.New("boom"))

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	if line["module"] != "service" || line["funcName"] != "GenerateForecast" || line["msg"] != "boom" {
		t.Fatalf("unexpected fields: %v", line)
	}
}
