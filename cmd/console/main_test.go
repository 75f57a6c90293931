package main

import (
	"testing"

	"sealink/internal/config"
	"sealink/internal/envelope"
	"sealink/internal/transport"
)

func TestApplyOverrides(t *testing.T) {
	tests := []struct {
		name          string
		connector     string
		serialPort    string
		host          string
		wantConnector config.ConnectorType
		wantPort      string
		wantHost      string
	}{
		{name: "no overrides keeps config", wantConnector: config.ConnectorSerial},
		{name: "port override", serialPort: "/dev/ttyACM0", wantConnector: config.ConnectorSerial, wantPort: "/dev/ttyACM0"},
		{name: "host override switches to tcp", host: "127.0.0.1", wantConnector: config.ConnectorTCP, wantHost: "127.0.0.1"},
		{name: "explicit connector wins", connector: "tcp", wantConnector: config.ConnectorTCP},
	}

	for _, tc := range tests {
		cfg := config.Default()
		applyOverrides(&cfg, tc.connector, tc.serialPort, tc.host)
		if cfg.Connection.Connector != tc.wantConnector {
			t.Fatalf("%s: expected connector %q, got %q", tc.name, tc.wantConnector, cfg.Connection.Connector)
		}
		if tc.wantPort != "" && cfg.Connection.SerialPort != tc.wantPort {
			t.Fatalf("%s: expected port %q, got %q", tc.name, tc.wantPort, cfg.Connection.SerialPort)
		}
		if tc.wantHost != "" && cfg.Connection.Host != tc.wantHost {
			t.Fatalf("%s: expected host %q, got %q", tc.name, tc.wantHost, cfg.Connection.Host)
		}
	}
}

func TestKeySeedFallsBackToDefault(t *testing.T) {
	cfg := config.Default()
	if got := keySeed(cfg); got != envelope.DefaultKeySeed {
		t.Fatalf("expected default seed, got %q", got)
	}

	cfg.Crypto.KeySeed = " custom seed "
	if got := keySeed(cfg); got != "custom seed" {
		t.Fatalf("expected trimmed configured seed, got %q", got)
	}
}

func TestBuildTransport(t *testing.T) {
	cfg := config.Default()
	cfg.Connection.SerialPort = "/dev/ttyUSB0"

	tr, err := buildTransport(cfg)
	if err != nil {
		t.Fatalf("build serial transport: %v", err)
	}
	if _, ok := tr.(*transport.SerialTransport); !ok {
		t.Fatalf("expected serial transport, got %T", tr)
	}

	cfg.Connection.Connector = config.ConnectorTCP
	cfg.Connection.Host = "127.0.0.1"
	tr, err = buildTransport(cfg)
	if err != nil {
		t.Fatalf("build tcp transport: %v", err)
	}
	if _, ok := tr.(*transport.TCPTransport); !ok {
		t.Fatalf("expected tcp transport, got %T", tr)
	}

	cfg.Connection.Connector = config.ConnectorType("bogus")
	if _, err := buildTransport(cfg); err == nil {
		t.Fatal("expected an error for an unknown connector")
	}
}
