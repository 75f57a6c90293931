package main

import (
	"testing"

	"sealink/internal/envelope"
)

func TestAgentSeedPrecedence(t *testing.T) {
	t.Setenv("SEALINK_KEY_SEED", "")
	if got := agentSeed(""); got != envelope.DefaultKeySeed {
		t.Fatalf("expected default seed, got %q", got)
	}

	t.Setenv("SEALINK_KEY_SEED", "env seed")
	if got := agentSeed(""); got != "env seed" {
		t.Fatalf("expected environment seed, got %q", got)
	}

	if got := agentSeed(" flag seed "); got != "flag seed" {
		t.Fatalf("expected flag seed to win, got %q", got)
	}
}

func TestMode(t *testing.T) {
	if got := mode(""); got != "stdio" {
		t.Fatalf("expected stdio mode, got %q", got)
	}
	if got := mode(":7600"); got != "tcp :7600" {
		t.Fatalf("expected tcp mode, got %q", got)
	}
}
