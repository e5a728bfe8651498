package config

import (
	"context"
	"fmt"
	"os"
	"time"
)

// WatchFile polls path for modifications and calls onUpdate with the new
// contents. The modification time at call time is the baseline: the
// current contents are not delivered, only later changes.
func WatchFile(ctx context.Context, path string, interval time.Duration, onUpdate func([]byte)) error {
	if path == "" {
		return fmt.Errorf("watch: empty path")
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	lastMod := info.ModTime()

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				info, err := os.Stat(path)
				if err != nil {
					continue // transient errors
				}
				if !info.ModTime().After(lastMod) {
					continue
				}
				data, err := os.ReadFile(path)
				if err != nil {
					continue
				}
				lastMod = info.ModTime()
				if onUpdate != nil {
					onUpdate(data)
				}
			}
		}
	}()

	return nil
}
