package ui

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/chaz8081/bluno-link/internal/ble"
	"github.com/chaz8081/bluno-link/internal/session"
)

type mockActions struct {
	sends, rescans int
	accept         bool
}

func (a *mockActions) Send() bool {
	a.sends++
	return a.accept
}

func (a *mockActions) Rescan() bool {
	a.rescans++
	return a.accept
}

func key(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	mm, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want ui.Model", next)
	}
	return mm, cmd
}

var sensor = ble.Device{ID: "AA:BB:CC:DD:EE:FF", Name: "Sensor1"}

func TestModelShowsStatus(t *testing.T) {
	m := NewModel("bluno-link", &mockActions{})

	m, _ = update(t, m, StatusMsg{Status: session.Status{State: session.Scanning}})
	if v := m.View(); !strings.Contains(v, "Scanning...") {
		t.Errorf("View() missing scanning status:\n%s", v)
	}

	m, _ = update(t, m, StatusMsg{Status: session.Status{State: session.Ready, Device: sensor, SessionID: "01ABC"}})
	v := m.View()
	if !strings.Contains(v, "Ready: Sensor1") {
		t.Errorf("View() missing ready status:\n%s", v)
	}
	if !strings.Contains(v, "01ABC") {
		t.Errorf("View() missing session id:\n%s", v)
	}
	if !strings.Contains(v, sensor.ID) {
		t.Errorf("View() missing device id:\n%s", v)
	}
}

func TestModelKeepsLastReading(t *testing.T) {
	m := NewModel("bluno-link", &mockActions{})

	m, _ = update(t, m, StatusMsg{Status: session.Status{State: session.Ready, Device: sensor, Value: 513, HasValue: true}})
	if v := m.View(); !strings.Contains(v, "513") {
		t.Errorf("View() missing reading:\n%s", v)
	}

	// A later status without a value keeps the reading on screen.
	m, _ = update(t, m, StatusMsg{Status: session.Status{State: session.Ready, Device: sensor}})
	if v := m.View(); !strings.Contains(v, "reading") {
		t.Errorf("View() dropped reading while still ready:\n%s", v)
	}

	m, _ = update(t, m, StatusMsg{Status: session.Status{State: session.Idle}})
	if v := m.View(); strings.Contains(v, "reading") {
		t.Errorf("View() kept reading after the session ended:\n%s", v)
	}
}

func TestModelSendKey(t *testing.T) {
	acts := &mockActions{accept: true}
	m := NewModel("bluno-link", acts)

	m, _ = update(t, m, key(" "))
	m, _ = update(t, m, key("s"))
	if acts.sends != 2 {
		t.Errorf("Send called %d times, want 2", acts.sends)
	}
	if !strings.Contains(m.View(), "2 sent") {
		t.Errorf("View() missing send counter:\n%s", m.View())
	}

	acts.accept = false
	m, _ = update(t, m, key("s"))
	if !strings.Contains(m.View(), "not queued") {
		t.Errorf("View() missing rejection notice:\n%s", m.View())
	}
}

func TestModelRescanKey(t *testing.T) {
	acts := &mockActions{accept: true}
	m := NewModel("bluno-link", acts)

	m, _ = update(t, m, key("r"))
	if acts.rescans != 1 {
		t.Errorf("Rescan called %d times, want 1", acts.rescans)
	}
	if !strings.Contains(m.View(), "rescan requested") {
		t.Errorf("View() missing rescan notice:\n%s", m.View())
	}
}

func TestModelQuit(t *testing.T) {
	for _, k := range []string{"q", "ctrl+c"} {
		t.Run(k, func(t *testing.T) {
			m := NewModel("bluno-link", nil)
			m, cmd := update(t, m, key(k))
			if cmd == nil {
				t.Fatal("quit key should return a command")
			}
			if _, ok := cmd().(tea.QuitMsg); !ok {
				t.Error("quit key should return tea.Quit")
			}
			if m.View() != "Goodbye!\n" {
				t.Errorf("View() after quit = %q", m.View())
			}
		})
	}
}

func TestModelClosedMsgQuits(t *testing.T) {
	m := NewModel("bluno-link", nil)
	_, cmd := update(t, m, ClosedMsg{})
	if cmd == nil {
		t.Fatal("ClosedMsg should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("ClosedMsg should quit the program")
	}
}

func TestModelNilActions(t *testing.T) {
	m := NewModel("bluno-link", nil)
	m, _ = update(t, m, key("s"))
	m, _ = update(t, m, key("r"))
	if strings.Contains(m.View(), "queued") {
		t.Errorf("View() should not show notices without actions:\n%s", m.View())
	}
}

func TestBusy(t *testing.T) {
	tests := []struct {
		state session.State
		want  bool
	}{
		{session.Idle, false},
		{session.Scanning, true},
		{session.Connecting, true},
		{session.SubscribingNotifications, true},
		{session.Ready, false},
		{session.Disconnected, false},
		{session.Unavailable, false},
	}
	for _, tt := range tests {
		if got := busy(tt.state); got != tt.want {
			t.Errorf("busy(%v) = %v, want %v", tt.state, got, tt.want)
		}
	}
}

func TestForward(t *testing.T) {
	statuses := make(chan session.Status, 2)
	statuses <- session.Status{State: session.Scanning}
	statuses <- session.Status{State: session.Ready}
	close(statuses)

	var got []tea.Msg
	Forward(context.Background(), statuses, func(msg tea.Msg) { got = append(got, msg) })

	if len(got) != 3 {
		t.Fatalf("sent %d messages, want 3", len(got))
	}
	if st, ok := got[0].(StatusMsg); !ok || st.Status.State != session.Scanning {
		t.Errorf("got[0] = %#v, want scanning StatusMsg", got[0])
	}
	if _, ok := got[2].(ClosedMsg); !ok {
		t.Errorf("got[2] = %#v, want ClosedMsg", got[2])
	}
}

func TestForwardStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := make(chan struct{})
	go func() {
		Forward(ctx, make(chan session.Status), func(tea.Msg) {})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Forward did not return after cancel")
	}
}

func TestPrintStatuses(t *testing.T) {
	at := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)
	statuses := make(chan session.Status, 5)
	statuses <- session.Status{State: session.Scanning, At: at}
	statuses <- session.Status{State: session.Scanning, At: at} // collapsed
	statuses <- session.Status{State: session.Ready, Device: sensor, Value: 9, HasValue: true, At: at}
	statuses <- session.Status{State: session.Ready, Device: sensor, Value: 9, HasValue: true, At: at}
	statuses <- session.Status{State: session.Idle, At: at}
	close(statuses)

	var buf bytes.Buffer
	PrintStatuses(&buf, statuses)

	want := "15:04:05 Scanning...\n" +
		"15:04:05 Received: 9\n" +
		"15:04:05 Received: 9\n" +
		"15:04:05 Idle\n"
	if buf.String() != want {
		t.Errorf("PrintStatuses output =\n%s\nwant\n%s", buf.String(), want)
	}
}
