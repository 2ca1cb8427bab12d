package backend

import (
	"context"
	"path/filepath"
	"testing"

	"divider/internal/config"
)

func TestBackendType_IsValid(t *testing.T) {
	tests := []struct {
		bt    BackendType
		valid bool
	}{
		{MemoryBackend, true},
		{JSONBackend, true},
		{SQLiteBackend, true},
		{BackendType("sheets"), false},
		{BackendType(""), false},
	}

	for _, tt := range tests {
		if got := tt.bt.IsValid(); got != tt.valid {
			t.Errorf("BackendType(%q).IsValid() = %v, want %v", tt.bt, got, tt.valid)
		}
	}
}

func TestFromAppConfig(t *testing.T) {
	appCfg := &config.Config{
		DataBackend:  "json",
		JSONDataDir:  "./data/ledgers",
		SQLiteDBPath: "./data/divider.db",
	}

	cfg, err := FromAppConfig(appCfg)
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Type != JSONBackend || cfg.JSONDataDir != "./data/ledgers" {
		t.Fatalf("FromAppConfig() = %+v", cfg)
	}

	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("FromAppConfig(nil) should fail")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "bogus"}); err == nil {
		t.Fatal("FromAppConfig with bogus backend should fail")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory needs nothing", Config{Type: MemoryBackend}, false},
		{"json needs data dir", Config{Type: JSONBackend}, true},
		{"json with data dir", Config{Type: JSONBackend, JSONDataDir: "./data"}, false},
		{"sqlite needs path", Config{Type: SQLiteBackend}, true},
		{"sqlite with path", Config{Type: SQLiteBackend, SQLiteDBPath: "./test.db"}, false},
		{"invalid type", Config{Type: BackendType("bogus")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFactory_CreateBackend(t *testing.T) {
	ctx := context.Background()
	factory := NewFactory(nil)
	tmpDir := t.TempDir()

	tests := []struct {
		name        string
		config      Config
		wantCleanup bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"json", Config{Type: JSONBackend, JSONDataDir: filepath.Join(tmpDir, "ledgers")}, false},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(tmpDir, "divider.db")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := factory.CreateBackend(ctx, tt.config)
			if err != nil {
				t.Fatalf("CreateBackend: %v", err)
			}
			if result.Store == nil {
				t.Fatal("CreateBackend returned nil store")
			}
			if (result.Cleanup != nil) != tt.wantCleanup {
				t.Errorf("Cleanup presence = %v, want %v", result.Cleanup != nil, tt.wantCleanup)
			}
			if result.Cleanup != nil {
				if err := result.Cleanup(); err != nil {
					t.Errorf("Cleanup: %v", err)
				}
			}
		})
	}

	if _, err := factory.CreateBackend(ctx, Config{Type: BackendType("bogus")}); err == nil {
		t.Fatal("CreateBackend with invalid type should fail")
	}
}
