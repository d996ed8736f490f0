package config

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"claramesh/internal/models"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// LoadTuning reads heuristic overrides from a YAML file.
// Keys missing from the file keep their defaults.
func LoadTuning(filePath string) (*models.Tuning, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read tuning file: %w", err)
	}
	return ParseTuning(data)
}

// ParseTuning decodes YAML over the default tuning
func ParseTuning(data []byte) (*models.Tuning, error) {
	tuning := models.DefaultTuning()
	if err := yaml.Unmarshal(data, tuning); err != nil {
		return nil, fmt.Errorf("failed to parse tuning YAML: %w", err)
	}
	if err := validateTuning(tuning); err != nil {
		return nil, err
	}
	return tuning, nil
}

func validateTuning(t *models.Tuning) error {
	r := t.Resolver
	if r.ScoreThreshold < 0 || r.ScoreThreshold > 1 {
		return fmt.Errorf("resolver.score_threshold must be within [0,1]")
	}
	if r.ConfidenceThreshold < 0 || r.ConfidenceThreshold > 1 {
		return fmt.Errorf("resolver.confidence_threshold must be within [0,1]")
	}
	if r.MaxContextDepth <= 0 {
		return fmt.Errorf("resolver.max_context_depth must be positive")
	}
	if t.Pattern.RecentLimit <= 0 {
		return fmt.Errorf("pattern.recent_limit must be positive")
	}
	if t.Pattern.FocusRatio <= 0 {
		return fmt.Errorf("pattern.focus_ratio must be positive")
	}
	if t.Synthesis.MinContributors < 2 {
		return fmt.Errorf("synthesis.min_contributors must be at least 2")
	}
	return nil
}

// WatchTuning watches filePath and calls onChange with every successfully
// parsed revision. It blocks until ctx is done.
func WatchTuning(ctx context.Context, filePath string, onChange func(*models.Tuning)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for %s: %w", filePath, err)
	}

	// Watch the directory; editors replace files rather than writing in place
	dir := filepath.Dir(absPath)
	filename := filepath.Base(absPath)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}

	log.Printf("👁️  [TUNING] Watching %s for changes", filePath)

	var debounceTimer *time.Timer
	debounceDuration := 500 * time.Millisecond
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounceDuration, func() {
					tuning, err := LoadTuning(absPath)
					if err != nil {
						log.Printf("❌ [TUNING] Ignoring invalid revision of %s: %v", filePath, err)
						return
					}
					log.Printf("🔄 [TUNING] Reloaded %s", filePath)
					onChange(tuning)
				})
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("⚠️  [TUNING] Watcher error: %v", err)
		}
	}
}
