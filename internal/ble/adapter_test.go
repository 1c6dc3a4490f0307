package ble

import "testing"

func TestNormalizeUUID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"DFB0", "0000dfb0-0000-1000-8000-00805f9b34fb"},
		{"dfb1", "0000dfb1-0000-1000-8000-00805f9b34fb"},
		{" DFB0 ", "0000dfb0-0000-1000-8000-00805f9b34fb"},
		{"0000DFB0", "0000dfb0-0000-1000-8000-00805f9b34fb"},
		{"19B10000-E8F2-537E-4F6C-D104768A1214", "19b10000-e8f2-537e-4f6c-d104768a1214"},
	}

	for _, tt := range tests {
		if got := NormalizeUUID(tt.in); got != tt.want {
			t.Errorf("NormalizeUUID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSameUUID(t *testing.T) {
	if !SameUUID("DFB0", "0000dfb0-0000-1000-8000-00805f9b34fb") {
		t.Error("short and long forms of DFB0 should match")
	}
	if SameUUID("DFB0", "DFB1") {
		t.Error("DFB0 and DFB1 should not match")
	}
}

func TestDeviceDisplayName(t *testing.T) {
	if got := (Device{ID: "AA:BB", Name: "Bluno"}).DisplayName(); got != "Bluno" {
		t.Errorf("DisplayName() = %q, want %q", got, "Bluno")
	}
	if got := (Device{ID: "AA:BB"}).DisplayName(); got != "AA:BB" {
		t.Errorf("DisplayName() = %q, want %q", got, "AA:BB")
	}
}

func TestPowerStateString(t *testing.T) {
	if PoweredOff.String() != "powered-off" {
		t.Errorf("PoweredOff.String() = %q", PoweredOff.String())
	}
	if PowerState(42).String() != "unknown" {
		t.Errorf("PowerState(42).String() = %q", PowerState(42).String())
	}
}

func TestTinyGoRadioImplementsInterface(t *testing.T) {
	var _ Radio = (*TinyGoRadio)(nil)
}
