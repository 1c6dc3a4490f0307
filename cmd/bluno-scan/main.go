// Command bluno-scan lists nearby peripherals advertising the serial
// service, so a name_filter can be picked for the config.
//
// Usage:
//
//	go run ./cmd/bluno-scan [--service DFB0] [--timeout 10s]
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chaz8081/bluno-link/internal/ble"
)

func main() {
	service := flag.String("service", ble.ServiceUUID, "service UUID to filter on")
	timeout := flag.Duration("timeout", 10*time.Second, "how long to scan")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	radio := ble.NewTinyGoRadio()
	defer radio.Close()

	fmt.Printf("Scanning for %s peripherals for %s...\n", *service, *timeout)
	devices, err := ble.ScanForDevices(ctx, radio, *service, *timeout)
	if err != nil {
		log.Printf("scan: %v", err)
		if len(devices) == 0 {
			os.Exit(1)
		}
	}

	if len(devices) == 0 {
		fmt.Println("No devices found.")
		return
	}

	fmt.Printf("\n%-3s %-40s %-20s %s\n", "#", "ID", "NAME", "RSSI")
	for i, d := range devices {
		fmt.Printf("%-3d %-40s %-20s %d\n", i+1, d.ID, d.DisplayName(), d.RSSI)
	}
}
