package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsWhenMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "cli.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseURL != DefaultBaseURL || cfg.Timeout != DefaultTimeout || cfg.Transport != TransportHTTP {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.PrettyJSON == nil || !*cfg.PrettyJSON {
		t.Fatalf("pretty json should default to true")
	}
}

func TestLoadTransport(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr bool
	}{
		{name: "nats", content: "transport: NATS\nnatsURL: nats://127.0.0.1:4222\n"},
		{name: "nats without url", content: "transport: nats\n", wantErr: true},
		{name: "unknown", content: "transport: grpc\n", wantErr: true},
		{name: "malformed", content: "timeout: [\n", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "cli.yaml")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			cfg, err := Load(path)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if cfg.Transport != TransportNATS {
				t.Fatalf("unexpected transport %q", cfg.Transport)
			}
		})
	}
}
