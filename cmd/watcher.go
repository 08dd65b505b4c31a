package cmd

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"

	"storeseo-cli/cmd/config"
	"storeseo-cli/cmd/utils"
)

// Wait for writes to settle; editors emit several events per save.
const configDebounce = 100 * time.Millisecond

// QuickActionWatcher reloads quick actions whenever the storeseo config file
// in a directory is created, edited or removed.
type QuickActionWatcher struct {
	dir      string
	watcher  *fsnotify.Watcher
	onChange func([]string)
	last     []string
	done     chan struct{}
}

// StartQuickActionWatcher watches dir and calls onChange with the new quick
// actions after each effective change. A removed config yields nil. An invalid
// config is reported and ignored. current is the list already in use.
func StartQuickActionWatcher(dir string, current []string, onChange func([]string)) (*QuickActionWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	// Watch the directory, not the file: editors often replace files on save
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	qw := &QuickActionWatcher{
		dir:      dir,
		watcher:  w,
		onChange: onChange,
		last:     slices.Clone(current),
		done:     make(chan struct{}),
	}
	go qw.run()
	utils.LogDebug(fmt.Sprintf("watching %s for config changes", dir))
	return qw, nil
}

// Stop ends the watch and waits for the event loop to exit.
func (qw *QuickActionWatcher) Stop() error {
	err := qw.watcher.Close()
	<-qw.done
	return err
}

func (qw *QuickActionWatcher) run() {
	defer close(qw.done)

	var settle <-chan time.Time
	for {
		select {
		case event, ok := <-qw.watcher.Events:
			if !ok {
				return
			}
			if !config.IsConfigFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			settle = time.After(configDebounce)

		case <-settle:
			settle = nil
			qw.reload()

		case err, ok := <-qw.watcher.Errors:
			if !ok {
				return
			}
			utils.LogDebug(fmt.Sprintf("config watcher error: %v", err))
		}
	}
}

func (qw *QuickActionWatcher) reload() {
	actions, err := loadQuickActions(qw.dir)
	if err != nil {
		utils.OutputWarning("Ignoring config change: %v", err)
		return
	}
	if slices.Equal(actions, qw.last) {
		return
	}
	qw.last = slices.Clone(actions)
	utils.LogDebug(fmt.Sprintf("quick actions reloaded (%d)", len(actions)))
	qw.onChange(actions)
}

func loadQuickActions(dir string) ([]string, error) {
	cfg, err := config.LoadConfig(dir)
	if errors.Is(err, config.ErrNoConfigFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return cfg.QuickActions, nil
}
