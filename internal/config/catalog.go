package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/ShayCichocki/dispatch/internal/quality"
)

// catalogFile is the YAML shape of an agent catalog file. Every section
// is optional; omitted sections keep the built-in defaults.
type catalogFile struct {
	Thresholds struct {
		Pass        float64 `yaml:"pass"`
		Polish      float64 `yaml:"polish"`
		MaxRewrites int     `yaml:"max_rewrites"`
	} `yaml:"thresholds"`
	Agents []quality.AgentSpec `yaml:"agents"`
	Remap  []remapEntry        `yaml:"remap"`
}

type remapEntry struct {
	AgentType string `yaml:"agent_type"`
	Dimension string `yaml:"dimension"`
	Target    string `yaml:"target"`
}

// LoadAgentCatalog reads a YAML agent catalog and applies it on top of
// the built-in defaults. An empty path returns the defaults unchanged.
func LoadAgentCatalog(path string) (*quality.Catalog, error) {
	catalog := quality.DefaultCatalog()
	if path == "" {
		return catalog, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading agent catalog: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing agent catalog %s: %w", path, err)
	}

	catalog.SetThresholds(file.Thresholds.Pass, file.Thresholds.Polish, file.Thresholds.MaxRewrites)

	for _, spec := range file.Agents {
		if spec.Type == "" {
			return nil, fmt.Errorf("agent catalog %s: agent entry missing type", path)
		}
		if len(spec.Dimensions) != 3 {
			return nil, fmt.Errorf("agent catalog %s: agent %q needs exactly 3 dimensions, got %d",
				path, spec.Type, len(spec.Dimensions))
		}
		catalog.SetAgent(spec)
	}

	for _, entry := range file.Remap {
		if entry.AgentType == "" || entry.Dimension == "" || entry.Target == "" {
			return nil, fmt.Errorf("agent catalog %s: remap entry needs agent_type, dimension, and target", path)
		}
		catalog.SetRemap(entry.AgentType, entry.Dimension, entry.Target)
	}

	return catalog, nil
}

// CatalogWatcher reloads the agent catalog when its file changes.
type CatalogWatcher struct {
	path    string
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// WatchAgentCatalog starts watching path and invokes onReload with each
// successfully reloaded catalog. Files that fail to parse are skipped and
// reported through logf; the previous catalog stays in effect.
func WatchAgentCatalog(path string, onReload func(*quality.Catalog), logf func(format string, args ...interface{})) (*CatalogWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating catalog watcher: %w", err)
	}

	// Watch the directory, not the file: editors replace files on save
	// and a file-level watch dies with the old inode.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching catalog directory: %w", err)
	}

	cw := &CatalogWatcher{
		path:    path,
		watcher: watcher,
		done:    make(chan struct{}),
	}
	go cw.watch(onReload, logf)
	return cw, nil
}

func (cw *CatalogWatcher) watch(onReload func(*quality.Catalog), logf func(format string, args ...interface{})) {
	for {
		select {
		case <-cw.done:
			return
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(cw.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			catalog, err := LoadAgentCatalog(cw.path)
			if err != nil {
				if logf != nil {
					logf("agent catalog reload failed: %v", err)
				}
				continue
			}
			onReload(catalog)
		case <-cw.watcher.Errors:
			// Keep watching.
		}
	}
}

// Close stops the watcher.
func (cw *CatalogWatcher) Close() {
	close(cw.done)
	cw.watcher.Close()
}
