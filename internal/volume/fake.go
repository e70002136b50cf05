package volume

import (
	"errors"
	"io"
)

// FakeDevice is an in-memory Device for exercising C5/C8 logic without a
// real Windows volume handle. Responses is consulted by Ioctl in order,
// one entry per call; Disk backs ReadAt as a flat byte array addressed by
// absolute offset.
type FakeDevice struct {
	Disk      []byte
	Geom      Geometry
	Responses []FakeIoctlResponse
	calls     int
	closed    bool
}

// FakeIoctlResponse is one scripted reply to an Ioctl call.
type FakeIoctlResponse struct {
	Out []byte
	Err error
}

func (d *FakeDevice) ReadAt(buf []byte, offset int64) (int, error) {
	if offset < 0 || offset >= int64(len(d.Disk)) {
		return 0, io.EOF
	}
	n := copy(buf, d.Disk[offset:])
	if n < len(buf) {
		return n, io.EOF
	}
	return n, nil
}

func (d *FakeDevice) Ioctl(code uint32, in []byte, out []byte) (uint32, error) {
	if d.calls >= len(d.Responses) {
		return 0, errors.New("fake device: no scripted response remaining")
	}
	resp := d.Responses[d.calls]
	d.calls++
	if resp.Err != nil {
		return 0, resp.Err
	}
	n := copy(out, resp.Out)
	return uint32(n), nil
}

func (d *FakeDevice) Geometry() (Geometry, error) {
	if d.Geom.BytesPerSector == 0 {
		return Geometry{BytesPerSector: 512, SectorsPerCluster: 8}, nil
	}
	return d.Geom, nil
}

func (d *FakeDevice) Close() error {
	d.closed = true
	return nil
}

// Closed reports whether Close has been called, for tests that assert
// the recovery engine releases its handle on every exit path.
func (d *FakeDevice) Closed() bool { return d.closed }
