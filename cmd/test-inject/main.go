// Command test-inject is a manual test for the keyboard wedge.
// It waits 3 seconds, then types or pastes a few fake readings.
// Focus a text editor before the countdown finishes.
//
// Usage:
//
//	go run ./cmd/test-inject [--method type|paste]
package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/chaz8081/bluno-link/internal/inject"
)

func main() {
	method := flag.String("method", "type", "inject method: type or paste")
	flag.Parse()

	readings := []uint16{1, 512, 65535}

	fmt.Printf("Will inject %v using %q method in 3 seconds...\n", readings, *method)
	fmt.Println("Focus a text editor now!")

	for i := 3; i > 0; i-- {
		fmt.Printf("%d...\n", i)
		time.Sleep(time.Second)
	}

	wedge := inject.NewWedge(inject.NewInjector(*method), len(readings))
	for _, v := range readings {
		wedge.Deliver(v)
	}
	// Give the worker time to drain before Close discards the queue.
	time.Sleep(time.Second)
	wedge.Close()

	fmt.Println("\nDone!")
}
