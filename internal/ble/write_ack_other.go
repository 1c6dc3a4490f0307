//go:build !darwin && !windows

package ble

import (
	"log/slog"
	"sync"

	"tinygo.org/x/bluetooth"
)

var ackDowngradeOnce sync.Once

// writeWithAck falls back to a write command: tinygo-org/bluetooth only
// exposes acknowledged writes on macOS and Windows.
func writeWithAck(c bluetooth.DeviceCharacteristic, data []byte) error {
	ackDowngradeOnce.Do(func() {
		slog.Warn("[BLE] acknowledged writes unsupported on this platform, sending without response")
	})
	_, err := c.WriteWithoutResponse(data)
	return err
}
