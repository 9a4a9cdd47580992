package dataset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// CollectLogs reads every regular file directly inside dir, in name order.
// A missing directory yields no entries.
func CollectLogs(dir string) ([]LogEntry, error) {
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat logs: %w", err)
	}
	if !info.IsDir() {
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read logs: %w", err)
	}

	var logs []LogEntry
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read log %s: %w", e.Name(), err)
		}
		logs = append(logs, LogEntry{FileName: e.Name(), Content: string(data)})
	}
	return logs, nil
}
