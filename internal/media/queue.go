package media

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Skipped explains why a path was not queued.
type Skipped struct {
	Path   string
	Reason string
}

// Queue is an ordered list of files with no duplicates.
type Queue struct {
	items []string
	seen  map[string]struct{}
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{seen: make(map[string]struct{})}
}

// Add queues files and, recursively, the supported files inside directories.
// It returns how many paths were actually added and why the rest were not.
func (queue *Queue) Add(paths ...string) (int, []Skipped) {
	added := 0
	var skipped []Skipped
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			skipped = append(skipped, Skipped{Path: path, Reason: "file not found"})
			continue
		}
		if info.IsDir() {
			files, walkErr := CollectFiles(path)
			if walkErr != nil {
				skipped = append(skipped, Skipped{Path: path, Reason: walkErr.Error()})
				continue
			}
			for _, file := range files {
				if queue.insert(file) {
					added++
				}
			}
			continue
		}
		if !IsSupported(path) {
			skipped = append(skipped, Skipped{Path: path, Reason: fmt.Sprintf("unsupported file type %q", filepath.Ext(path))})
			continue
		}
		if queue.insert(path) {
			added++
		} else {
			skipped = append(skipped, Skipped{Path: path, Reason: "already queued"})
		}
	}
	return added, skipped
}

func (queue *Queue) insert(path string) bool {
	key := path
	if resolved, err := filepath.Abs(path); err == nil {
		key = resolved
	}
	if _, exists := queue.seen[key]; exists {
		return false
	}
	queue.seen[key] = struct{}{}
	queue.items = append(queue.items, key)
	return true
}

// Remove drops path from the queue and reports whether it was present.
func (queue *Queue) Remove(path string) bool {
	key := path
	if resolved, err := filepath.Abs(path); err == nil {
		key = resolved
	}
	if _, exists := queue.seen[key]; !exists {
		return false
	}
	delete(queue.seen, key)
	for index, item := range queue.items {
		if item == key {
			queue.items = append(queue.items[:index], queue.items[index+1:]...)
			break
		}
	}
	return true
}

// Clear empties the queue.
func (queue *Queue) Clear() {
	queue.items = nil
	queue.seen = make(map[string]struct{})
}

func (queue *Queue) Len() int { return len(queue.items) }

// Items returns a copy of the queued absolute paths in insertion order.
func (queue *Queue) Items() []string {
	return append([]string(nil), queue.items...)
}

// CollectFiles walks dir recursively and returns its supported files in
// lexical order.
func CollectFiles(dir string) ([]string, error) {
	var files []string
	walkErr := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() && IsSupported(path) {
			files = append(files, path)
		}
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, walkErr)
	}
	sort.Strings(files)
	return files, nil
}
