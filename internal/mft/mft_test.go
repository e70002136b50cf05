package mft

import (
	"encoding/binary"
	"testing"
)

// buildRecord assembles a minimal but structurally valid MFT record with
// the given attributes appended back to back starting at offset 56 (the
// fixed header size used by this package), terminated by the 0xFFFFFFFF
// end marker.
func buildRecord(size int, flags uint16, attrs [][]byte) []byte {
	buf := make([]byte, size)
	copy(buf[0:4], "FILE")
	binary.LittleEndian.PutUint16(buf[4:6], 42)  // update seq offset, unused
	binary.LittleEndian.PutUint16(buf[6:8], 3)   // update seq size, unused
	binary.LittleEndian.PutUint16(buf[18:20], 1) // link count
	binary.LittleEndian.PutUint16(buf[20:22], 56)
	binary.LittleEndian.PutUint16(buf[22:24], flags)

	offset := 56
	for _, a := range attrs {
		copy(buf[offset:], a)
		offset += len(a)
	}
	binary.LittleEndian.PutUint32(buf[offset:], attrEnd)
	return buf
}

func residentAttribute(attrType uint32, name string, value []byte) []byte {
	nameUTF16 := utf16Encode(name)
	nameOffset := 24
	valueOffset := nameOffset + len(nameUTF16)
	length := valueOffset + len(value)
	length = (length + 7) &^ 7 // quadword align, as real records do

	buf := make([]byte, length)
	binary.LittleEndian.PutUint32(buf[0:4], attrType)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(length))
	buf[8] = 0 // resident
	buf[9] = byte(len(name))
	binary.LittleEndian.PutUint16(buf[10:12], uint16(nameOffset))
	binary.LittleEndian.PutUint32(buf[16:20], uint32(len(value)))
	binary.LittleEndian.PutUint16(buf[20:22], uint16(valueOffset))
	copy(buf[nameOffset:], nameUTF16)
	copy(buf[valueOffset:], value)
	return buf
}

func nonResidentAttribute(attrType uint32, dataSize, allocSize uint64, runBytes []byte) []byte {
	runOffset := 64
	length := runOffset + len(runBytes)
	length = (length + 7) &^ 7

	buf := make([]byte, length)
	binary.LittleEndian.PutUint32(buf[0:4], attrType)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(length))
	buf[8] = 1 // non-resident
	binary.LittleEndian.PutUint16(buf[32:34], uint16(runOffset))
	binary.LittleEndian.PutUint64(buf[40:48], allocSize)
	binary.LittleEndian.PutUint64(buf[48:56], dataSize)
	copy(buf[runOffset:], runBytes)
	return buf
}

func utf16Encode(s string) []byte {
	out := make([]byte, 0, len(s)*2)
	for _, r := range s {
		out = append(out, byte(r), 0)
	}
	return out
}

func TestParseRejectsBadMagic(t *testing.T) {
	buf := make([]byte, 1024)
	copy(buf, "NOPE")
	_, err := Parse(buf)
	if err == nil {
		t.Fatal("expected an error for a bad magic")
	}
}

func TestParseResidentData(t *testing.T) {
	attr := residentAttribute(AttrData, "", []byte("Hello"))
	buf := buildRecord(1024, 0x01, [][]byte{attr})

	rec, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !rec.InUse {
		t.Error("expected in-use flag set")
	}

	data, ok := rec.DataAttribute()
	if !ok {
		t.Fatal("expected a $DATA attribute")
	}
	if data.NonResident {
		t.Error("expected resident attribute")
	}
	if string(data.ResidentBytes) != "Hello" {
		t.Errorf("resident bytes = %q, want %q", data.ResidentBytes, "Hello")
	}
	if data.DataSize != 5 {
		t.Errorf("DataSize = %d, want 5", data.DataSize)
	}
}

func TestParseNonResidentDataWithRuns(t *testing.T) {
	runBytes := []byte{0x11, 0x10, 0x64, 0x00} // len=16, delta=+100, end marker
	attr := nonResidentAttribute(AttrData, 10000, 16*4096, runBytes)
	buf := buildRecord(1024, 0x01|0x02, [][]byte{attr})

	rec, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !rec.IsDirectory {
		t.Error("expected directory flag set")
	}

	data, ok := rec.DataAttribute()
	if !ok {
		t.Fatal("expected a $DATA attribute")
	}
	if !data.NonResident {
		t.Error("expected non-resident attribute")
	}
	if data.DataSize != 10000 {
		t.Errorf("DataSize = %d, want 10000", data.DataSize)
	}
	if len(data.Runs) != 1 || data.Runs[0].Length != 16 || data.Runs[0].LCN != 100 {
		t.Errorf("Runs = %+v, want one run of length 16 at LCN 100", data.Runs)
	}
}

func TestDataAttributePrefersUnnamedStream(t *testing.T) {
	named := residentAttribute(AttrData, "ads", []byte("named"))
	unnamed := residentAttribute(AttrData, "", []byte("unnamed"))
	buf := buildRecord(1024, 0x01, [][]byte{named, unnamed})

	rec, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	data, ok := rec.DataAttribute()
	if !ok {
		t.Fatal("expected a $DATA attribute")
	}
	if string(data.ResidentBytes) != "unnamed" {
		t.Errorf("expected the unnamed stream to win, got %q", data.ResidentBytes)
	}
}

func TestDataAttributeFallsBackToNamedStream(t *testing.T) {
	named := residentAttribute(AttrData, "ads", []byte("named"))
	buf := buildRecord(1024, 0x01, [][]byte{named})

	rec, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	data, ok := rec.DataAttribute()
	if !ok {
		t.Fatal("expected a $DATA attribute")
	}
	if string(data.ResidentBytes) != "named" {
		t.Errorf("expected fallback to the named stream, got %q", data.ResidentBytes)
	}
}

func TestParseStopsOnOverrunningAttribute(t *testing.T) {
	attr := residentAttribute(AttrData, "", []byte("Hello"))
	// Corrupt the length so it claims to run past the end of the buffer.
	binary.LittleEndian.PutUint32(attr[4:8], 0xFFFFFF00)
	buf := buildRecord(1024, 0x01, [][]byte{attr})

	rec, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(rec.Attributes) != 0 {
		t.Errorf("expected parsing to stop cleanly, got %d attributes", len(rec.Attributes))
	}
}

func TestAttributeTypeNameResolved(t *testing.T) {
	attr := residentAttribute(0x10, "", []byte{1, 2, 3})
	buf := buildRecord(1024, 0x01, [][]byte{attr})

	rec, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(rec.Attributes) != 1 || rec.Attributes[0].TypeName != "$STANDARD_INFORMATION" {
		t.Errorf("Attributes = %+v, want $STANDARD_INFORMATION", rec.Attributes)
	}
}
