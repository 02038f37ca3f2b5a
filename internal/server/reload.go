package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloader watches the document root and pushes reload events to
// connected SSE clients. Rapid event bursts (builds, editor swap
// files) coalesce into one broadcast per debounce window.
type reloader struct {
	debounce time.Duration

	watcher   *fsnotify.Watcher
	events    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	mu      sync.Mutex
	clients map[chan struct{}]struct{}
}

func newReloader(debounce time.Duration) *reloader {
	return &reloader{
		debounce: debounce,
		events:   make(chan struct{}, 1),
		done:     make(chan struct{}),
		clients:  make(map[chan struct{}]struct{}),
	}
}

// start watches root recursively, skipping dot directories like .git.
func (rl *reloader) start(root string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if base := filepath.Base(path); path != root && strings.HasPrefix(base, ".") {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
	if err != nil {
		_ = w.Close()
		return fmt.Errorf("watch %s: %w", root, err)
	}

	rl.watcher = w
	rl.wg.Add(2)
	go rl.watchLoop()
	go rl.broadcastLoop()
	return nil
}

// close disconnects SSE clients. Safe to call whether or not the
// watcher ever started, and more than once; the server registers it as
// an OnShutdown hook so streams do not hold up the drain.
func (rl *reloader) close() {
	rl.closeOnce.Do(func() { close(rl.done) })
}

func (rl *reloader) stop() {
	if rl.watcher != nil {
		_ = rl.watcher.Close()
	}
	rl.close()
	rl.wg.Wait()
}

func (rl *reloader) watchLoop() {
	defer rl.wg.Done()
	var debounceTimer *time.Timer
	for {
		select {
		case event, ok := <-rl.watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Chmod != 0 {
				continue
			}
			// Newly created directories need a watch of their own.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = rl.watcher.Add(event.Name)
				}
			}
			if debounceTimer != nil {
				debounceTimer.Reset(rl.debounce)
			} else {
				debounceTimer = time.AfterFunc(rl.debounce, func() {
					select {
					case rl.events <- struct{}{}:
					default:
					}
				})
			}
		case err, ok := <-rl.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("watcher error", "error", err)
		}
	}
}

func (rl *reloader) broadcastLoop() {
	defer rl.wg.Done()
	for {
		select {
		case <-rl.done:
			return
		case <-rl.events:
			rl.mu.Lock()
			for ch := range rl.clients {
				select {
				case ch <- struct{}{}:
				default:
				}
			}
			rl.mu.Unlock()
		}
	}
}

// ServeHTTP streams reload events as SSE. The isolation headers are
// already on the response by the time this runs.
func (rl *reloader) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan struct{}, 1)
	rl.mu.Lock()
	rl.clients[ch] = struct{}{}
	rl.mu.Unlock()
	defer func() {
		rl.mu.Lock()
		delete(rl.clients, ch)
		rl.mu.Unlock()
	}()

	_, _ = fmt.Fprintf(w, "data: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-rl.done:
			return
		case <-ch:
			_, _ = fmt.Fprintf(w, "data: reload\n\n")
			flusher.Flush()
		}
	}
}
