//go:build windows

package volume

import (
	"fmt"
	"os"

	"golang.org/x/sys/windows"
)

// windowsDevice is the production Device backed by a raw handle to
// "\\.\<letter>:", opened read-only with full sharing so the live
// filesystem driver is left undisturbed while this engine reads it.
type windowsDevice struct {
	handle windows.Handle
	letter byte
}

// Open opens the given drive letter's volume device. It is the only
// functional Opener; every other OS gets the stub in volume_other.go.
func Open(driveLetter byte) (Device, error) {
	path := fmt.Sprintf(`\\.\%c:`, driveLetter)
	pathPtr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, fmt.Errorf("volume: %w: %v", ErrUnavailable, err)
	}

	h, err := windows.CreateFile(
		pathPtr,
		windows.GENERIC_READ,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE|windows.FILE_SHARE_DELETE,
		nil,
		windows.OPEN_EXISTING,
		windows.FILE_FLAG_BACKUP_SEMANTICS,
		0,
	)
	if err != nil {
		return nil, fmt.Errorf("volume: open %s: %w: %v", path, ErrUnavailable, err)
	}

	return &windowsDevice{handle: h, letter: driveLetter}, nil
}

func (d *windowsDevice) ReadAt(buf []byte, offset int64) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}

	var overlapped windows.Overlapped
	overlapped.Offset = uint32(offset)
	overlapped.OffsetHigh = uint32(offset >> 32)

	var n uint32
	err := windows.ReadFile(d.handle, buf, &n, &overlapped)
	if err != nil {
		return int(n), os.NewSyscallError("ReadFile", err)
	}
	return int(n), nil
}

func (d *windowsDevice) Ioctl(code uint32, in []byte, out []byte) (uint32, error) {
	var inPtr *byte
	if len(in) > 0 {
		inPtr = &in[0]
	}
	var outPtr *byte
	if len(out) > 0 {
		outPtr = &out[0]
	}

	var bytesReturned uint32
	err := windows.DeviceIoControl(d.handle, code, inPtr, uint32(len(in)), outPtr, uint32(len(out)), &bytesReturned, nil)
	if err != nil {
		return 0, &IoctlError{Code: code, Err: err}
	}
	return bytesReturned, nil
}

func (d *windowsDevice) Geometry() (Geometry, error) {
	rootPath := fmt.Sprintf(`%c:\`, d.letter)
	rootPtr, err := windows.UTF16PtrFromString(rootPath)
	if err != nil {
		return Geometry{}, err
	}

	var sectorsPerCluster, bytesPerSector, freeClusters, totalClusters uint32
	err = windows.GetDiskFreeSpace(rootPtr, &sectorsPerCluster, &bytesPerSector, &freeClusters, &totalClusters)
	if err != nil {
		return Geometry{}, os.NewSyscallError("GetDiskFreeSpace", err)
	}

	return Geometry{BytesPerSector: bytesPerSector, SectorsPerCluster: sectorsPerCluster}, nil
}

func (d *windowsDevice) Close() error {
	if d.handle == windows.InvalidHandle || d.handle == 0 {
		return nil
	}
	err := windows.CloseHandle(d.handle)
	d.handle = windows.InvalidHandle
	return err
}
