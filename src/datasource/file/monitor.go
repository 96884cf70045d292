// monitor.go
package file

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Monitor watches the data directory and fires once per new or rewritten
// yield table. Editors and downloaders emit bursts of write events for one
// file, so events inside the debounce window are collapsed.
type Monitor struct {
	watchDir string
	watcher  *fsnotify.Watcher
	debounce time.Duration
	lastFile string
	lastMod  time.Time
	mu       sync.Mutex
}

func NewMonitor(dir string) (*Monitor, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}
	return &Monitor{
		watchDir: dir,
		watcher:  watcher,
		debounce: 2 * time.Second,
	}, nil
}

// Watch blocks, invoking handler with the path of each updated table.
// Returns when the underlying watcher is closed.
func (m *Monitor) Watch(handler func(string)) error {
	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !isYieldTable(event.Name) {
				continue
			}
			info, err := os.Stat(event.Name)
			if err != nil {
				continue
			}

			m.mu.Lock()
			fresh := event.Name != m.lastFile || info.ModTime().Sub(m.lastMod) > m.debounce
			if fresh {
				m.lastFile = event.Name
				m.lastMod = info.ModTime()
			}
			m.mu.Unlock()

			if fresh {
				handler(event.Name)
			}
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return nil
			}
			_ = err // transient watch errors are not fatal
		}
	}
}

func (m *Monitor) Close() error {
	return m.watcher.Close()
}

func isYieldTable(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".xlsx":
		return true
	}
	return false
}
