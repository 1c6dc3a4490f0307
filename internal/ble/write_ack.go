//go:build darwin || windows

package ble

import "tinygo.org/x/bluetooth"

// writeWithAck performs an ATT write request and waits for the response.
func writeWithAck(c bluetooth.DeviceCharacteristic, data []byte) error {
	_, err := c.Write(data)
	return err
}
