package idhash

import (
	"testing"
)

func TestComputeRunID(t *testing.T) {
	tests := []struct {
		name        string
		seriesID    string
		strategyID  string
		fingerprint string
		wantLen     int // hash length should be 64
	}{
		{
			name:        "basic run",
			seriesID:    "xauusd-60min-2024",
			strategyID:  "EMA_CROSS_fast5_slow21",
			fingerprint: "risk0.02_stop1.5_target3.0",
			wantLen:     64,
		},
		{
			name:        "challenge run",
			seriesID:    "xauusd-60min-2024",
			strategyID:  "COMPOSITE_v1",
			fingerprint: "risk0.01_challenge_ftmo",
			wantLen:     64,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeRunID(tt.seriesID, tt.strategyID, tt.fingerprint)

			if len(got) != tt.wantLen {
				t.Errorf("ComputeRunID() length = %d, want %d", len(got), tt.wantLen)
			}

			// Verify determinism: same inputs should produce same output
			got2 := ComputeRunID(tt.seriesID, tt.strategyID, tt.fingerprint)
			if got != got2 {
				t.Errorf("ComputeRunID() not deterministic: %s != %s", got, got2)
			}
		})
	}
}

func TestComputeRunID_DifferentInputs(t *testing.T) {
	base := ComputeRunID("series", "strategy", "cfg")

	variants := []string{
		ComputeRunID("series2", "strategy", "cfg"),
		ComputeRunID("series", "strategy2", "cfg"),
		ComputeRunID("series", "strategy", "cfg2"),
	}

	for i, v := range variants {
		if v == base {
			t.Errorf("variant %d collides with base ID", i)
		}
	}
}

func TestComputeTradeID(t *testing.T) {
	runID := ComputeRunID("series", "strategy", "cfg")

	got := ComputeTradeID(runID, 10, 42, "LONG")
	if len(got) != 64 {
		t.Errorf("ComputeTradeID() length = %d, want 64", len(got))
	}

	// Same inputs, same ID
	if got != ComputeTradeID(runID, 10, 42, "LONG") {
		t.Error("ComputeTradeID() not deterministic")
	}

	// Any differing component changes the ID
	if got == ComputeTradeID(runID, 11, 42, "LONG") {
		t.Error("entry bar not reflected in trade ID")
	}
	if got == ComputeTradeID(runID, 10, 43, "LONG") {
		t.Error("exit bar not reflected in trade ID")
	}
	if got == ComputeTradeID(runID, 10, 42, "SHORT") {
		t.Error("direction not reflected in trade ID")
	}
}
