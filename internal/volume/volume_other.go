//go:build !windows

package volume

import "fmt"

// Open always fails on non-Windows hosts: \\.\<letter>: and the
// FSCTL_ENUM_USN_DATA / FSCTL_GET_NTFS_FILE_RECORD controls this engine
// drives are Windows-only kernel entry points (§6). This stub exists so
// the rest of the module — the run-list codec, the MFT parser, the
// merger, the recovery engine — builds and tests on any host, the same
// split fsnotify-fsnotify uses between windows.go and backend_other.go.
func Open(driveLetter byte) (Device, error) {
	return nil, fmt.Errorf("volume: opening drive %c: %w (not running on Windows)", driveLetter, ErrUnavailable)
}
