// Package mft decodes the on-disk layout of a single NTFS MFT file
// record (§4.4): the fixed-size record header, the attribute stream,
// resident vs non-resident $DATA, and named streams. It does not apply
// update-sequence fix-ups — the caller is expected to hand it a record
// already fixed up by the kernel's GET_NTFS_FILE_RECORD control, exactly
// as the teacher's own GET_NTFS_FILE_RECORD caller would receive it.
package mft

import (
	"errors"
	"fmt"

	"github.com/archivekit/ntfsrevive/internal/binutil"
	"github.com/archivekit/ntfsrevive/internal/runlist"
)

const (
	RecordMagic = "FILE"

	flagInUse       = 1 << 0
	flagIsDirectory = 1 << 1

	attrEnd = 0xFFFFFFFF

	// AttrData is the attribute type for $DATA, the only stream C8
	// recovers from.
	AttrData = 0x80
)

// ErrNotAFileRecord is returned when the first four bytes of a record
// buffer are not the "FILE" magic.
var ErrNotAFileRecord = errors.New("mft: not a file record")

// attributeTypeNames resolves the standard NTFS attribute types to the
// human-readable names FileRecordDetails surfaces for inspection — a
// superset of what the teacher ever named, since C4 is documented as an
// inspection surface ("surfaces all attributes"), not just recovery
// plumbing restricted to $FILE_NAME/$DATA.
var attributeTypeNames = map[uint32]string{
	0x10: "$STANDARD_INFORMATION",
	0x20: "$ATTRIBUTE_LIST",
	0x30: "$FILE_NAME",
	0x40: "$OBJECT_ID",
	0x50: "$SECURITY_DESCRIPTOR",
	0x60: "$VOLUME_NAME",
	0x70: "$VOLUME_INFORMATION",
	0x80: "$DATA",
	0x90: "$INDEX_ROOT",
	0xA0: "$INDEX_ALLOCATION",
	0xB0: "$BITMAP",
	0xC0: "$REPARSE_POINT",
	0xD0: "$EA_INFORMATION",
	0xE0: "$EA",
	0x100: "$LOGGED_UTILITY_STREAM",
}

// Attribute is one decoded attribute record.
type Attribute struct {
	Type          uint32
	TypeName      string
	Name          string // empty for the unnamed stream
	NonResident   bool
	DataSize      uint64 // RealSize for non-resident, ValueLength for resident
	AllocatedSize uint64 // 0 for resident attributes
	ResidentBytes []byte // nil when NonResident
	Runs          []runlist.Segment
	Flags         uint16 // attribute header flags: compressed/encrypted/sparse bits
}

// IsUnnamedData reports whether this is the unnamed $DATA stream C8
// selects for recovery.
func (a Attribute) IsUnnamedData() bool { return a.Type == AttrData && a.Name == "" }

// Record is the fully decoded representation of one MFT file record
// (FileRecordDetails in the spec's boundary vocabulary).
type Record struct {
	InUse         bool
	IsDirectory   bool
	BaseReference uint64
	HardLinkCount uint16
	Flags         uint16
	Attributes    []Attribute
}

// DataAttribute returns the attribute C8 should recover from: the first
// unnamed $DATA attribute, falling back to the first named $DATA
// attribute if no unnamed stream exists, per §4.8 step 3.
func (r Record) DataAttribute() (Attribute, bool) {
	var firstNamed *Attribute
	for i := range r.Attributes {
		a := &r.Attributes[i]
		if a.Type != AttrData {
			continue
		}
		if a.Name == "" {
			return *a, true
		}
		if firstNamed == nil {
			firstNamed = a
		}
	}
	if firstNamed != nil {
		return *firstNamed, true
	}
	return Attribute{}, false
}

// Parse decodes one MFT file record from buf. buf is expected to already
// have update-sequence fix-ups applied (§4.4).
func Parse(buf []byte) (Record, error) {
	if len(buf) < 4 || string(buf[0:4]) != RecordMagic {
		return Record{}, ErrNotAFileRecord
	}
	if len(buf) < 56 {
		return Record{}, fmt.Errorf("mft: record too short (%d bytes): %w", len(buf), ErrNotAFileRecord)
	}

	flags := binutil.Uint16LE(buf[22:24])
	attrOffset := binutil.Uint16LE(buf[20:22])
	linkCount := binutil.Uint16LE(buf[18:20])
	baseRef := binutil.Uint64LE(buf[32:40])

	rec := Record{
		InUse:         flags&flagInUse != 0,
		IsDirectory:   flags&flagIsDirectory != 0,
		BaseReference: baseRef & 0x0000FFFFFFFFFFFF,
		HardLinkCount: linkCount,
		Flags:         flags,
	}

	offset := int(attrOffset)
	for offset+16 <= len(buf) {
		attrType := binutil.Uint32LE(buf[offset:])
		if attrType == attrEnd || attrType == 0 {
			break
		}

		attrLen := binutil.Uint32LE(buf[offset+4:])
		if attrLen == 0 || int(attrLen) > len(buf)-offset {
			break
		}

		attr, ok := parseAttribute(buf[offset : offset+int(attrLen)])
		if ok {
			rec.Attributes = append(rec.Attributes, attr)
		}

		offset += int(attrLen)
	}

	return rec, nil
}

func parseAttribute(raw []byte) (Attribute, bool) {
	if len(raw) < 16 {
		return Attribute{}, false
	}

	attrType := binutil.Uint32LE(raw[0:4])
	nonResident := raw[8] != 0
	nameLength := raw[9]
	nameOffset := binutil.Uint16LE(raw[10:12])
	attrFlags := binutil.Uint16LE(raw[12:14])

	attr := Attribute{
		Type:        attrType,
		TypeName:    attributeTypeNames[attrType],
		NonResident: nonResident,
		Flags:       attrFlags,
	}

	if nameLength > 0 {
		start := int(nameOffset)
		end := start + int(nameLength)*2
		if start >= 0 && end <= len(raw) {
			attr.Name = binutil.UTF16LEToString(raw[start:end])
		}
	}

	if nonResident {
		if len(raw) < 64 {
			return attr, true
		}
		attr.AllocatedSize = binutil.Uint64LE(raw[40:48])
		attr.DataSize = binutil.Uint64LE(raw[48:56])
		runOffset := binutil.Uint16LE(raw[32:34])
		if int(runOffset) < len(raw) {
			attr.Runs = runlist.Decode(raw[runOffset:])
		}
	} else {
		if len(raw) < 24 {
			return attr, true
		}
		valueLength := binutil.Uint32LE(raw[16:20])
		valueOffset := binutil.Uint16LE(raw[20:22])
		attr.DataSize = uint64(valueLength)

		start := int(valueOffset)
		end := start + int(valueLength)
		if start >= 0 && end >= start && end <= len(raw) {
			attr.ResidentBytes = append([]byte(nil), raw[start:end]...)
		}
	}

	return attr, true
}
