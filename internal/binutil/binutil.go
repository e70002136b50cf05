// Package binutil holds the pure, allocation-light binary decoders shared
// by the MFT parser, the run-list codec and the USN scanner: little-endian
// integer reads, UTF-16LE to UTF-8 decoding, FILETIME conversion and
// base64 encoding for resident attribute payloads crossing the language
// boundary.
package binutil

import (
	"encoding/base64"
	"encoding/binary"
	"unicode/utf16"
)

// filetimeUnixDiffMs is the number of milliseconds between the FILETIME
// epoch (1601-01-01) and the Unix epoch (1970-01-01).
const filetimeUnixDiffMs = 11_644_473_600_000

// Uint16LE reads a little-endian uint16 at offset 0 of b. Caller must
// ensure len(b) >= 2.
func Uint16LE(b []byte) uint16 { return binary.LittleEndian.Uint16(b) }

// Uint32LE reads a little-endian uint32 at offset 0 of b.
func Uint32LE(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }

// Uint64LE reads a little-endian uint64 at offset 0 of b.
func Uint64LE(b []byte) uint64 { return binary.LittleEndian.Uint64(b) }

// Int64LE reinterprets Uint64LE as signed.
func Int64LE(b []byte) int64 { return int64(binary.LittleEndian.Uint64(b)) }

// UTF16LEToString decodes a UTF-16LE byte run into a Go string. An odd
// trailing byte is dropped rather than treated as an error, matching
// the tolerant decoding §4.2 requires.
func UTF16LEToString(b []byte) string {
	if len(b)%2 != 0 {
		b = b[:len(b)-1]
	}
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(b[i*2:])
	}
	return string(utf16.Decode(units))
}

// FiletimeToUnixMs converts a Windows FILETIME (100-ns ticks since
// 1601-01-01 UTC) to milliseconds since the Unix epoch.
func FiletimeToUnixMs(filetime int64) int64 {
	return filetime/10_000 - filetimeUnixDiffMs
}

// UnixMsToFiletime is the inverse of FiletimeToUnixMs.
func UnixMsToFiletime(unixMs int64) int64 {
	return (unixMs + filetimeUnixDiffMs) * 10_000
}

// EncodeBase64 encodes bytes using the standard alphabet with padding,
// for resident attribute payloads crossing the language boundary.
func EncodeBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// DecodeBase64 is the inverse of EncodeBase64.
func DecodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
