package research

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/inkforge/castmap/pkg/logging"
	"github.com/inkforge/castmap/pkg/pubsub"
	"github.com/inkforge/castmap/pkg/storage"
)

// quietPeriod is how long the vault must stay quiet before we reconcile.
// Editors and sync tools tend to emit bursts of events per save.
const quietPeriod = 500 * time.Millisecond

// VaultWatcher watches a project's research directory and keeps the
// research index in sync, publishing updates as they happen.
type VaultWatcher struct {
	watcher     *fsnotify.Watcher
	researchDir string
	pub         pubsub.Publisher
}

// NewVaultWatcher creates a watcher for the research directory of the
// project rooted at projectPath. The directory is created if missing.
func NewVaultWatcher(projectPath string, pub pubsub.Publisher) (*VaultWatcher, error) {
	researchDir := filepath.Join(projectPath, storage.ResearchDir)
	if err := os.MkdirAll(researchDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create research directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &VaultWatcher{
		watcher:     watcher,
		researchDir: researchDir,
		pub:         pub,
	}, nil
}

// Start reconciles the index once, then begins watching for changes.
// It returns after spawning the event loop; cancel ctx to stop.
func (vw *VaultWatcher) Start(ctx context.Context) error {
	if err := vw.watchTree(); err != nil {
		return err
	}

	// Initial reconcile so the index reflects the vault at startup
	if err := vw.reconcile(); err != nil {
		logging.Warn("initial research index reconcile failed", "error", err)
	}

	logging.Info("watching research vault", "path", vw.researchDir)
	go vw.processEvents(ctx)
	return nil
}

// watchTree adds the research directory and all its subdirectories
func (vw *VaultWatcher) watchTree() error {
	err := filepath.WalkDir(vw.researchDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip entries we can't access
		}
		if !d.IsDir() {
			return nil
		}
		if path != vw.researchDir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := vw.watcher.Add(path); err != nil {
			logging.Warn("failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk research directory: %w", err)
	}
	return nil
}

// processEvents debounces raw fsnotify events and reconciles on quiet
func (vw *VaultWatcher) processEvents(ctx context.Context) {
	flushTimer := time.NewTimer(quietPeriod)
	flushTimer.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			vw.watcher.Close()
			return

		case event, ok := <-vw.watcher.Events:
			if !ok {
				return
			}

			name := filepath.Base(event.Name)
			if strings.HasPrefix(name, ".") {
				// Ignore dotfiles, including our own index writes
				continue
			}

			// New subdirectories need their own watch
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := vw.watcher.Add(event.Name); err != nil {
						logging.Warn("failed to watch new directory", "path", event.Name, "error", err)
					}
				}
			}

			pending = true
			flushTimer.Reset(quietPeriod)

		case <-flushTimer.C:
			if !pending {
				continue
			}
			pending = false
			if err := vw.reconcile(); err != nil {
				logging.Warn("research index reconcile failed", "error", err)
			}

		case err, ok := <-vw.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("research watcher error", "error", err)
		}
	}
}

// reconcile updates the index against disk and publishes the changes
func (vw *VaultWatcher) reconcile() error {
	idx := LoadIndex(vw.researchDir)
	changes, err := idx.Reconcile(vw.researchDir)
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		return nil
	}

	if err := idx.Save(vw.researchDir); err != nil {
		return err
	}

	logging.Debug("research vault updated", "changes", len(changes))

	if vw.pub == nil {
		return nil
	}
	for _, c := range changes {
		update := pubsub.ResearchUpdate{Kind: c.Kind, Path: c.Path}
		if c.Kind != "file_removed" {
			update.Artifact = c.Artifact.String()
		}
		if err := vw.pub.Publish(pubsub.TopicResearchUpdate, c.Kind, update); err != nil {
			logging.Warn("failed to publish research update", "error", err)
		}
	}
	return nil
}

// Stop stops the watcher
func (vw *VaultWatcher) Stop() error {
	return vw.watcher.Close()
}
