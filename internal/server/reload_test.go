package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestReloaderBroadcastFanout(t *testing.T) {
	rl := newReloader(50 * time.Millisecond)

	a := make(chan struct{}, 1)
	b := make(chan struct{}, 1)
	rl.mu.Lock()
	rl.clients[a] = struct{}{}
	rl.clients[b] = struct{}{}
	rl.mu.Unlock()

	rl.wg.Add(1)
	go rl.broadcastLoop()
	defer func() {
		close(rl.done)
		rl.wg.Wait()
	}()

	rl.events <- struct{}{}

	for name, ch := range map[string]chan struct{}{"a": a, "b": b} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatalf("client %s never received the reload event", name)
		}
	}
}

func TestReloaderWatchesRoot(t *testing.T) {
	root := t.TempDir()

	rl := newReloader(50 * time.Millisecond)
	if err := rl.start(root); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer rl.stop()

	ch := make(chan struct{}, 1)
	rl.mu.Lock()
	rl.clients[ch] = struct{}{}
	rl.mu.Unlock()

	if err := os.WriteFile(filepath.Join(root, "main.wasm"), []byte("\x00asm"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case <-ch:
	case <-time.After(3 * time.Second):
		t.Fatal("no reload event after a file change")
	}
}

func TestReloaderDebounceCoalesces(t *testing.T) {
	root := t.TempDir()

	rl := newReloader(200 * time.Millisecond)
	if err := rl.start(root); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer rl.stop()

	ch := make(chan struct{}, 8)
	rl.mu.Lock()
	rl.clients[ch] = struct{}{}
	rl.mu.Unlock()

	// A burst of writes inside the debounce window is one reload, not five.
	target := filepath.Join(root, "f.txt")
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(target, []byte(fmt.Sprintf("rev %d", i)), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	count := 0
	deadline := time.After(2 * time.Second)
	for waiting := true; waiting; {
		select {
		case <-ch:
			count++
		case <-deadline:
			waiting = false
		}
	}
	if count != 1 {
		t.Errorf("got %d reload broadcasts for a rapid burst, want 1", count)
	}
}

func TestStopUnblocksClientsWithoutWatcher(t *testing.T) {
	rl := newReloader(50 * time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	rec := httptest.NewRecorder()
	finished := make(chan struct{})
	go func() {
		rl.ServeHTTP(rec, req)
		close(finished)
	}()

	for i := 0; i < 100; i++ {
		rl.mu.Lock()
		n := len(rl.clients)
		rl.mu.Unlock()
		if n == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	// stop must release the stream even when start was never called
	// (or failed), otherwise shutdown hangs on open event streams.
	rl.stop()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("event stream still blocked after stop")
	}
}

func TestReloaderStartMissingRoot(t *testing.T) {
	rl := newReloader(50 * time.Millisecond)
	if err := rl.start(filepath.Join(t.TempDir(), "does-not-exist")); err == nil {
		t.Fatal("expected an error for a missing root")
	}
}
