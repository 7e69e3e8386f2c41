package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// DefaultSoundDir holds the ALSA device nodes.
const DefaultSoundDir = "/dev/snd"

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckWritableTarget verifies that a file can be created at path. Missing
// parent directories are fine as long as the nearest existing ancestor is
// writable.
func CheckWritableTarget(name, path string) Result {
	if path == "" {
		return Result{Name: name, Detail: "no output path configured"}
	}
	if info, err := os.Stat(path); err == nil {
		if info.IsDir() {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
		}
		if err := unix.Access(path, unix.W_OK); err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: not writable: %v)", path, err)}
		}
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be overwritten)", path)}
	}

	dir := filepath.Dir(path)
	for {
		info, err := os.Stat(dir)
		if err == nil {
			if !info.IsDir() {
				return Result{Name: name, Detail: fmt.Sprintf("%s (error: %s is not a directory)", path, dir)}
			}
			break
		}
		if !errors.Is(err, os.ErrNotExist) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat %s: %v)", path, dir, err)}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: no existing ancestor)", path)}
		}
		dir = parent
	}
	if err := unix.Access(dir, unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %s not writable: %v)", path, dir, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (writable)", path)}
}

// CheckSoundDevices verifies that at least one ALSA playback device under
// dir can be opened for writing.
func CheckSoundDevices(ctx context.Context, dir string) Result {
	const name = "Sound output"

	if err := ctx.Err(); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: no sound devices; try backend = \"wav\")", dir)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", dir, err)}
	}

	var playback, denied []string
	for _, entry := range entries {
		devName := entry.Name()
		if !isPlaybackDevice(devName) {
			continue
		}
		playback = append(playback, devName)
		if err := unix.Access(filepath.Join(dir, devName), unix.W_OK); err != nil {
			denied = append(denied, devName)
			continue
		}
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d playback device(s))", dir, len(playbackDevices(entries)))}
	}
	if len(playback) == 0 {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: no playback devices)", dir)}
	}
	return Result{Name: name, Detail: fmt.Sprintf("%s (error: permission denied on %s; add the user to the audio group)", dir, strings.Join(denied, ", "))}
}

// isPlaybackDevice matches ALSA PCM playback nodes such as pcmC0D0p.
func isPlaybackDevice(name string) bool {
	return strings.HasPrefix(name, "pcmC") && strings.HasSuffix(name, "p")
}

func playbackDevices(entries []os.DirEntry) []string {
	var out []string
	for _, entry := range entries {
		if isPlaybackDevice(entry.Name()) {
			out = append(out, entry.Name())
		}
	}
	return out
}
