package ui

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/chaz8081/bluno-link/internal/session"
)

// Forward relays statuses into a running program via send (usually
// (*tea.Program).Send). When the stream closes it sends ClosedMsg.
func Forward(ctx context.Context, statuses <-chan session.Status, send func(tea.Msg)) {
	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-statuses:
			if !ok {
				send(ClosedMsg{})
				return
			}
			send(StatusMsg{Status: st})
		}
	}
}

// PrintStatuses writes one timestamped line per status to w until the
// stream closes. Used when running without a terminal UI.
func PrintStatuses(w io.Writer, statuses <-chan session.Status) {
	var last string
	for st := range statuses {
		text := st.Text()
		// Collapse duplicate non-reading lines.
		if text == last && !st.HasValue {
			continue
		}
		last = text
		if _, err := fmt.Fprintf(w, "%s %s\n", st.At.Format("15:04:05"), text); err != nil {
			slog.Warn("[UI] status write failed", "error", err)
		}
	}
}
