// Package workspace manages the temporary directories that hold extracted and
// upscaled video frames.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/multierr"
)

const (
	// SessionPrefix marks directories owned by this application.
	SessionPrefix    = "ssupscaler_"
	framesDirName    = "frames"
	upscaledDirName  = "upscaled"
	audioFileName    = "audio.mka"
	bytesPerGigabyte = 1024 * 1024 * 1024
)

// ErrInsufficientDiskSpace is returned by CheckDiskSpace.
var ErrInsufficientDiskSpace = errors.New("insufficient disk space")

// Manager creates frame sessions under a root directory.
type Manager struct {
	root string
}

// NewManager creates a manager rooted at root, or the system temp directory
// when root is empty.
func NewManager(root string) *Manager {
	if root == "" {
		root = os.TempDir()
	}
	return &Manager{root: root}
}

// Root returns the directory sessions are created in.
func (manager *Manager) Root() string {
	return manager.root
}

// Session is one job's scratch directory.
type Session struct {
	Dir         string
	FramesDir   string
	UpscaledDir string
}

// AudioPath is where the copied audio track is written.
func (session Session) AudioPath() string {
	return filepath.Join(session.Dir, audioFileName)
}

// FramePattern is the printf-style frame name pattern inside dir.
func FramePattern(dir string) string {
	return filepath.Join(dir, "frame_%06d.png")
}

// CreateSession makes a fresh session directory with frames/ and upscaled/.
func (manager *Manager) CreateSession() (Session, error) {
	if err := os.MkdirAll(manager.root, 0o755); err != nil {
		return Session{}, fmt.Errorf("failed to create temp root: %w", err)
	}
	dir, err := os.MkdirTemp(manager.root, SessionPrefix)
	if err != nil {
		return Session{}, fmt.Errorf("failed to create session directory: %w", err)
	}
	session := Session{
		Dir:         dir,
		FramesDir:   filepath.Join(dir, framesDirName),
		UpscaledDir: filepath.Join(dir, upscaledDirName),
	}
	for _, subdir := range []string{session.FramesDir, session.UpscaledDir} {
		if err := os.MkdirAll(subdir, 0o755); err != nil {
			os.RemoveAll(dir)
			return Session{}, fmt.Errorf("failed to create %s: %w", filepath.Base(subdir), err)
		}
	}
	return session, nil
}

// Cleanup removes the session directory and everything in it.
func (session Session) Cleanup() error {
	if session.Dir == "" {
		return nil
	}
	return os.RemoveAll(session.Dir)
}

// Frames lists the PNG frames in dir in sequence order.
func Frames(dir string) ([]string, error) {
	frames, err := filepath.Glob(filepath.Join(dir, "frame_*.png"))
	if err != nil {
		return nil, err
	}
	sort.Strings(frames)
	return frames, nil
}

// EstimateFrameStorage estimates, in bytes, the space needed to hold
// frameCount source frames plus their upscaled copies as PNG.
func EstimateFrameStorage(width, height, frameCount, scale int) uint64 {
	const (
		bytesPerPixel    = 3
		compressionRatio = 0.7
		overhead         = 1.2
	)
	sourceFrame := float64(width*height*bytesPerPixel) * compressionRatio
	upscaledFrame := sourceFrame * float64(scale*scale)
	return uint64((sourceFrame + upscaledFrame) * float64(frameCount) * overhead)
}

// CheckDiskSpace fails with ErrInsufficientDiskSpace when the temp root has
// less than required bytes available. The root is created when missing.
// Platforms without a free-space query always pass.
func (manager *Manager) CheckDiskSpace(required uint64) error {
	if err := os.MkdirAll(manager.root, 0o755); err != nil {
		return fmt.Errorf("failed to create temp root: %w", err)
	}
	available, supported, err := availableBytes(manager.root)
	if err != nil {
		return fmt.Errorf("failed to query disk space: %w", err)
	}
	if !supported || required <= available {
		return nil
	}
	return fmt.Errorf("%w: need %.1fGB, available %.1fGB", ErrInsufficientDiskSpace,
		float64(required)/bytesPerGigabyte, float64(available)/bytesPerGigabyte)
}

// StaleSessions lists sessions under the root with no file modified since
// now minus olderThan. A missing root has no sessions.
func (manager *Manager) StaleSessions(olderThan time.Duration, now time.Time) ([]string, error) {
	cutoff := now.Add(-olderThan)
	entries, err := os.ReadDir(manager.root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read temp root: %w", err)
	}
	var stale []string
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), SessionPrefix) {
			continue
		}
		dir := filepath.Join(manager.root, entry.Name())
		lastModified, activityErr := lastActivity(dir)
		if activityErr != nil {
			continue
		}
		if lastModified.Before(cutoff) {
			stale = append(stale, dir)
		}
	}
	sort.Strings(stale)
	return stale, nil
}

// lastActivity is the newest modification time of dir or anything below it.
// Frames land in subdirectories, so the session directory's own mtime stays at
// creation time while a job runs.
func lastActivity(dir string) (time.Time, error) {
	var newest time.Time
	err := filepath.WalkDir(dir, func(_ string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
		return nil
	})
	return newest, err
}

// SweepStale removes stale sessions left behind by crashed runs and returns
// the directories it removed.
func (manager *Manager) SweepStale(olderThan time.Duration, now time.Time) ([]string, error) {
	stale, err := manager.StaleSessions(olderThan, now)
	if err != nil {
		return nil, err
	}
	var removed []string
	var removeErrors error
	for _, dir := range stale {
		if err := os.RemoveAll(dir); err != nil {
			removeErrors = multierr.Append(removeErrors, err)
			continue
		}
		removed = append(removed, dir)
	}
	return removed, removeErrors
}
