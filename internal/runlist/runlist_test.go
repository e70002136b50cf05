package runlist

import (
	"math/rand"
	"reflect"
	"testing"
)

func TestDecodeSingleRun(t *testing.T) {
	// header 0x21 -> Lsz=1, Osz=2; length 0x18=24; offset bytes 0x34 0x56
	// little-endian unsigned: 0x34 + 0x56*256 = 0x5634 = 22068, positive
	// (top bit of the 16-bit offset is clear). A trailing 0x78 header
	// claims Lsz=8, Osz=7 but the buffer is exhausted, so decoding stops
	// cleanly after the first segment.
	data := []byte{0x21, 0x18, 0x34, 0x56, 0x78}
	got := Decode(data)
	want := []Segment{{VCNStart: 0, LCN: 22068, Length: 24, Sparse: false}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Decode(%x) = %+v, want %+v", data, got, want)
	}
}

func TestDecodeSparseRun(t *testing.T) {
	data := []byte{0x01, 0x05}
	got := Decode(data)
	want := []Segment{{VCNStart: 0, LCN: 0, Length: 5, Sparse: true}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Decode(%x) = %+v, want %+v", data, got, want)
	}
}

func TestDecodeNegativeDelta(t *testing.T) {
	// header 0x11 -> Lsz=1, Osz=1; length 0x0A=10; offset byte 0xFF = -1
	data := []byte{0x11, 0x0A, 0xFF}
	got := Decode(data)
	want := []Segment{{VCNStart: 0, LCN: -1, Length: 10, Sparse: false}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Decode(%x) = %+v, want %+v", data, got, want)
	}
}

func TestDecodeMultipleRunsAdvanceVCNAndLCN(t *testing.T) {
	// run 1: length 16, delta +100; run 2: length 32, delta -50
	data := []byte{
		0x11, 0x10, 0x64, // Lsz=1,Osz=1; len=16; delta=+100
		0x11, 0x20, 0xCE, // Lsz=1,Osz=1; len=32; delta=-50 (0xCE = -50 signed)
		0x00,
	}
	got := Decode(data)
	want := []Segment{
		{VCNStart: 0, LCN: 100, Length: 16, Sparse: false},
		{VCNStart: 16, LCN: 50, Length: 32, Sparse: false},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Decode(%x) = %+v, want %+v", data, got, want)
	}
}

func TestDecodeTerminatesOnZeroHeader(t *testing.T) {
	data := []byte{0x11, 0x05, 0x01, 0x00, 0x11, 0x05, 0x01}
	got := Decode(data)
	if len(got) != 1 {
		t.Fatalf("expected decoding to stop at the zero header, got %d segments", len(got))
	}
}

func TestDecodeInvalidLengthSizeTerminatesCleanly(t *testing.T) {
	// header 0x10 -> Lsz=0, Osz=1. Lsz=0 is invalid (must be 1..8);
	// decoding must stop without panicking.
	data := []byte{0x10, 0x05}
	got := Decode(data)
	if got != nil {
		t.Errorf("expected no segments, got %+v", got)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := [][]Segment{
		nil,
		{{VCNStart: 0, LCN: 100, Length: 1, Sparse: false}},
		{{VCNStart: 0, LCN: 0, Length: 5, Sparse: true}},
		{
			{VCNStart: 0, LCN: 1000, Length: 16, Sparse: false},
			{VCNStart: 16, LCN: 0, Length: 4, Sparse: true},
			{VCNStart: 20, LCN: 1008, Length: 8, Sparse: false},
		},
		{{VCNStart: 0, LCN: -1 << 40, Length: 1 << 40, Sparse: false}},
	}

	for _, segs := range cases {
		encoded := Encode(segs)
		decoded := Decode(encoded)
		if !reflect.DeepEqual(decoded, segs) && !(len(decoded) == 0 && len(segs) == 0) {
			t.Errorf("round trip mismatch: in=%+v encoded=%x out=%+v", segs, encoded, decoded)
		}
	}
}

func TestEncodeDecodeRoundTripRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 200; trial++ {
		n := rng.Intn(8)
		segs := make([]Segment, 0, n)
		vcn := int64(0)
		for i := 0; i < n; i++ {
			length := int64(rng.Int63n(1<<40) + 1)
			sparse := rng.Intn(4) == 0
			seg := Segment{VCNStart: vcn, Length: length, Sparse: sparse}
			if !sparse {
				// LCN is an absolute value; the delta is reconstructed by Encode.
				seg.LCN = rng.Int63n(1<<41) - (1 << 40)
			}
			segs = append(segs, seg)
			vcn += length
		}

		encoded := Encode(segs)
		decoded := Decode(encoded)
		if len(segs) == 0 {
			segs = nil
		}
		if !reflect.DeepEqual(decoded, segs) {
			t.Fatalf("trial %d: round trip mismatch: in=%+v out=%+v", trial, segs, decoded)
		}
	}
}
