package ble

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotPowered is returned when the adapter reports anything but PoweredOn.
var ErrNotPowered = errors.New("ble: adapter is not powered on")

// ScanForDevices enables the radio and collects every peripheral advertising
// serviceUUID until timeout or ctx expires. Other events are discarded.
func ScanForDevices(ctx context.Context, radio Radio, serviceUUID string, timeout time.Duration) ([]Device, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := radio.Enable(); err != nil {
		return nil, fmt.Errorf("ble: enable adapter: %w", err)
	}
	if err := waitPoweredOn(ctx, radio); err != nil {
		return nil, err
	}

	if err := radio.Scan(serviceUUID); err != nil {
		return nil, fmt.Errorf("ble: scan: %w", err)
	}
	defer func() { _ = radio.StopScan() }()

	var devices []Device
	seen := make(map[string]bool)
	for {
		select {
		case <-ctx.Done():
			return devices, nil
		case ev := <-radio.Events():
			switch ev := ev.(type) {
			case DeviceDiscovered:
				if seen[ev.Device.ID] {
					continue
				}
				seen[ev.Device.ID] = true
				devices = append(devices, ev.Device)
			case ScanStopped:
				if ev.Err != nil {
					return devices, ev.Err
				}
				return devices, nil
			case PowerStateChanged:
				if ev.State != PoweredOn {
					return devices, fmt.Errorf("%w (%s)", ErrNotPowered, ev.State)
				}
			}
		}
	}
}

func waitPoweredOn(ctx context.Context, radio Radio) error {
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("ble: waiting for adapter: %w", ctx.Err())
		case ev := <-radio.Events():
			ps, ok := ev.(PowerStateChanged)
			if !ok {
				continue
			}
			if ps.State != PoweredOn {
				return fmt.Errorf("%w (%s)", ErrNotPowered, ps.State)
			}
			return nil
		}
	}
}
