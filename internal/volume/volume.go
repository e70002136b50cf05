// Package volume implements raw access to an NTFS volume device (C1):
// opening "\\.\<letter>:" read-only with full sharing, positioned reads,
// kernel device-control calls, and volume geometry — plus the platform
// glue each of those requires on Windows, the only OS that exposes the
// FSCTL_ENUM_USN_DATA / FSCTL_GET_NTFS_FILE_RECORD controls this engine
// drives.
package volume

import (
	"errors"
	"fmt"
)

// ErrUnavailable is returned when the device cannot be opened, typically
// because the caller lacks administrator privilege (§7 VolumeUnavailable).
var ErrUnavailable = errors.New("volume: unavailable")

// IoctlError wraps a failed DeviceIoControl call with the control code
// that failed, satisfying §7's IoctlFailed(code, osError) taxonomy entry.
type IoctlError struct {
	Code uint32
	Err  error
}

func (e *IoctlError) Error() string {
	return fmt.Sprintf("volume: ioctl 0x%X failed: %v", e.Code, e.Err)
}

func (e *IoctlError) Unwrap() error { return e.Err }

// Geometry is the per-volume cluster layout C1 reports from the
// free-space query (§4.1).
type Geometry struct {
	BytesPerSector    uint32
	SectorsPerCluster uint32
}

// ClusterSize returns BytesPerSector * SectorsPerCluster.
func (g Geometry) ClusterSize() uint64 {
	return uint64(g.BytesPerSector) * uint64(g.SectorsPerCluster)
}

// Device is the raw volume handle C5 and C8 drive. Implementations must
// release the underlying handle on every exit path of Open.
type Device interface {
	// ReadAt performs an absolute positioned read, like io.ReaderAt.
	ReadAt(buf []byte, offset int64) (int, error)
	// Ioctl issues a kernel device-control call with separate input and
	// output buffers, returning the number of output bytes written.
	Ioctl(code uint32, in []byte, out []byte) (uint32, error)
	// Geometry reports the volume's sector/cluster layout.
	Geometry() (Geometry, error)
	// Close releases the handle. Safe to call once.
	Close() error
}

// Opener opens a Device for a canonicalized drive letter. Exactly one
// non-stub implementation of this exists per OS; only the Windows one is
// ever functional, since the FSCTL codes this engine relies on are
// Windows-only kernel entry points.
type Opener func(driveLetter byte) (Device, error)

// Control codes this engine drives via Device.Ioctl (§6, bit-exact with
// the Windows DeviceIoControl values). Kept here rather than pulled from
// golang.org/x/sys/windows so that callers built against the Device
// interface stay portable to non-Windows hosts for testing.
const (
	FSCTLEnumUsnData       = 0x000900B3
	FSCTLGetNTFSFileRecord = 0x00090068
)
