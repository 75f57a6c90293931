package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAppConfigFillMissingDefaults(t *testing.T) {
	cfg := AppConfig{}
	cfg.FillMissingDefaults()

	if cfg.Connection.Connector != ConnectorSerial {
		t.Fatalf("expected default connector %q, got %q", ConnectorSerial, cfg.Connection.Connector)
	}
	if cfg.Connection.SerialBaud != DefaultSerialBaud {
		t.Fatalf("expected default serial baud %d, got %d", DefaultSerialBaud, cfg.Connection.SerialBaud)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("expected default log level info, got %q", cfg.Logging.Level)
	}
	if cfg.History.KeepLast != DefaultHistoryRetain {
		t.Fatalf("expected default history retention %d, got %d", DefaultHistoryRetain, cfg.History.KeepLast)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("load missing config: %v", err)
	}
	if cfg.Connection.Connector != ConnectorSerial {
		t.Fatalf("expected serial connector by default, got %q", cfg.Connection.Connector)
	}
	if !cfg.History.Enabled {
		t.Fatalf("expected history to be enabled by default")
	}
}

func TestLoadPartialConfigFillsGaps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	raw := `{
  "connection": {
    "connector": "serial",
    "serial_port": "/dev/ttyUSB0"
  },
  "crypto": {
    "key_seed": "local seed"
  }
}`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Connection.SerialBaud != DefaultSerialBaud {
		t.Fatalf("expected missing baud to fill to %d, got %d", DefaultSerialBaud, cfg.Connection.SerialBaud)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("expected missing log level to fill to info, got %q", cfg.Logging.Level)
	}
	if cfg.Crypto.KeySeed != "local seed" {
		t.Fatalf("expected key seed to round-trip, got %q", cfg.Crypto.KeySeed)
	}
	if cfg.History.KeepLast != DefaultHistoryRetain {
		t.Fatalf("expected missing retention to fill to %d, got %d", DefaultHistoryRetain, cfg.History.KeepLast)
	}
}

func TestValidateRejectsSerialWithoutPort(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation to fail without a serial port")
	}

	cfg.Connection.SerialPort = "/dev/ttyACM0"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid serial config, got %v", err)
	}
}

func TestValidateRejectsTCPWithoutHost(t *testing.T) {
	cfg := Default()
	cfg.Connection.Connector = ConnectorTCP
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation to fail without a tcp host")
	}

	cfg.Connection.Host = "127.0.0.1"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid tcp config, got %v", err)
	}
}

func TestValidateRejectsUnknownConnector(t *testing.T) {
	cfg := Default()
	cfg.Connection.Connector = ConnectorType("carrier-pigeon")
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation to fail for an unknown connector")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg := Default()
	cfg.Connection.SerialPort = "/dev/ttyUSB1"
	cfg.Connection.SerialBaud = 9600
	cfg.Crypto.KeySeed = "round trip seed"
	cfg.Logging.Level = "debug"
	cfg.History.KeepLast = 42

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save config: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if loaded != cfg {
		t.Fatalf("expected config to round-trip, got %+v", loaded)
	}
}

func TestSaveRefusesInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	if err := Save(path, Default()); err == nil {
		t.Fatalf("expected save to refuse an invalid config")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected no config file to be written, stat err %v", err)
	}
}
