package otel_test

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/caarlos0/env/v11"

	adapter "github.com/neomorfeo/central/internal/adapter/otel"
)

func TestSetup_Exporters(t *testing.T) {
	for _, exporter := range []string{"stdout", "none"} {
		t.Run(exporter, func(t *testing.T) {
			providers, err := adapter.Setup(context.Background(), adapter.Config{
				ServiceName:    "test",
				ServiceVersion: "0.0.1",
				Environment:    "test",
				Exporter:       exporter,
			})
			if err != nil {
				t.Fatalf("Setup failed: %v", err)
			}
			if err := providers.Shutdown(context.Background()); err != nil {
				t.Fatalf("Shutdown failed: %v", err)
			}
		})
	}
}

func TestSetup_InvalidExporter(t *testing.T) {
	_, err := adapter.Setup(context.Background(), adapter.Config{
		ServiceName: "test",
		Exporter:    "invalid",
	})
	if err == nil {
		t.Fatal("expected error for invalid exporter")
	}
}

func TestSetup_RejectsSampleRatioOutOfRange(t *testing.T) {
	for _, ratio := range []float64{-0.1, 1.5} {
		_, err := adapter.Setup(context.Background(), adapter.Config{Exporter: "none", SampleRatio: ratio})
		if err == nil {
			t.Errorf("SampleRatio %v: expected error", ratio)
		}
	}
}

func TestNewResource_DescribesCentral(t *testing.T) {
	res, err := adapter.NewResource(context.Background(), adapter.Config{
		ServiceName: "central",
		Environment: "test",
		Component:   "worker",
	})
	if err != nil {
		t.Fatalf("NewResource failed: %v", err)
	}

	got := map[string]bool{}
	for _, kv := range res.Attributes() {
		switch kv.Key {
		case "central.component":
			if kv.Value.AsString() != "worker" {
				t.Errorf("central.component = %q, want worker", kv.Value.AsString())
			}
		case "central.entities":
			if !slices.Equal(kv.Value.AsStringSlice(), adapter.Entities) {
				t.Errorf("central.entities = %v, want %v", kv.Value.AsStringSlice(), adapter.Entities)
			}
		}
		got[string(kv.Key)] = true
	}
	for _, key := range []string{"service.name", "deployment.environment", "central.component", "central.entities"} {
		if !got[key] {
			t.Errorf("resource attribute %q missing", key)
		}
	}
}

func TestConfig_EnvTags(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "custom-service")
	t.Setenv("OTEL_ENVIRONMENT", "production")
	t.Setenv("OTEL_EXPORTER", "otlp")

	cfg, err := env.ParseAsWithOptions[adapter.Config](env.Options{Prefix: "OTEL_"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if cfg.ServiceName != "custom-service" {
		t.Errorf("ServiceName = %q, want %q", cfg.ServiceName, "custom-service")
	}
	if cfg.ServiceVersion != "0.1.0" {
		t.Errorf("ServiceVersion = %q, want default %q", cfg.ServiceVersion, "0.1.0")
	}
	if cfg.Environment != "production" {
		t.Errorf("Environment = %q, want %q", cfg.Environment, "production")
	}
	if cfg.Exporter != "otlp" {
		t.Errorf("Exporter = %q, want %q", cfg.Exporter, "otlp")
	}
	if cfg.Insecure {
		t.Error("Insecure should default to false")
	}
	if cfg.Component != "api" {
		t.Errorf("Component = %q, want default %q", cfg.Component, "api")
	}
	if cfg.SampleRatio != 1 {
		t.Errorf("SampleRatio = %v, want default 1", cfg.SampleRatio)
	}
	if cfg.MetricInterval != time.Minute {
		t.Errorf("MetricInterval = %v, want default 1m", cfg.MetricInterval)
	}
}
