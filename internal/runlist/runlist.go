// Package runlist implements the NTFS run-list codec (§4.3): the
// delta-encoded sequence of (length, lcn-delta) pairs that describes a
// non-resident attribute's extents on disk.
package runlist

// Segment is one decoded run: a contiguous span of a file's virtual
// cluster numbers mapped to a contiguous span of the volume's logical
// cluster numbers, or a sparse hole.
type Segment struct {
	VCNStart int64 // first virtual cluster number covered by this run
	LCN      int64 // first logical cluster number, 0 when Sparse
	Length   int64 // number of clusters covered, always > 0
	Sparse   bool
}

// Decode walks an NTFS run list starting at data[0] and returns every
// segment it can parse. Per §4.3: terminate cleanly (returning the
// prefix decoded so far) on a zero header byte, on buffer exhaustion, or
// on a structurally invalid length/offset byte count — never return a
// partial segment or an error, since the parser keeps whatever it found.
func Decode(data []byte) []Segment {
	var segments []Segment
	var cursor int64
	var runningLCN int64

	i := 0
	for i < len(data) {
		header := data[i]
		if header == 0 {
			break
		}

		lengthSize := int(header & 0x0F)
		offsetSize := int((header >> 4) & 0x0F)
		if lengthSize < 1 || lengthSize > 8 || offsetSize > 8 {
			break
		}

		need := 1 + lengthSize + offsetSize
		if i+need > len(data) {
			break
		}

		length := readUintLE(data[i+1 : i+1+lengthSize])
		if length == 0 {
			break
		}

		sparse := offsetSize == 0
		var delta int64
		if !sparse {
			delta = readIntLE(data[i+1+lengthSize : i+1+lengthSize+offsetSize])
			runningLCN += delta
		}

		lcn := runningLCN
		if sparse {
			lcn = 0
		}
		segments = append(segments, Segment{
			VCNStart: cursor,
			LCN:      lcn,
			Length:   int64(length),
			Sparse:   sparse,
		})

		cursor += int64(length)
		i += need
	}

	return segments
}

// Encode re-serializes segments into the same delta-encoded wire format
// Decode reads, preserving enough information to round-trip
// decode(encode(segments)) == segments for any list Decode can produce.
// It does not attempt minimal byte-width packing beyond what's needed to
// hold each value; it always picks the smallest size that fits.
func Encode(segments []Segment) []byte {
	var out []byte
	var runningLCN int64

	for _, s := range segments {
		lengthBytes := minBytesUnsigned(uint64(s.Length))
		if lengthBytes == 0 {
			lengthBytes = 1
		}

		var offsetBytes int
		var delta int64
		if !s.Sparse {
			delta = s.LCN - runningLCN
			offsetBytes = minBytesSigned(delta)
			runningLCN = s.LCN
		}

		header := byte(lengthBytes) | byte(offsetBytes<<4)
		out = append(out, header)
		out = append(out, uintLEBytes(uint64(s.Length), lengthBytes)...)
		if offsetBytes > 0 {
			out = append(out, intLEBytes(delta, offsetBytes)...)
		}
	}

	out = append(out, 0)
	return out
}

func readUintLE(b []byte) uint64 {
	var v uint64
	for j, byteVal := range b {
		v |= uint64(byteVal) << (8 * j)
	}
	return v
}

func readIntLE(b []byte) int64 {
	v := readUintLE(b)
	bits := uint(len(b)) * 8
	if bits < 64 && v&(1<<(bits-1)) != 0 {
		v |= ^uint64(0) << bits
	}
	return int64(v)
}

func uintLEBytes(v uint64, n int) []byte {
	out := make([]byte, n)
	for j := 0; j < n; j++ {
		out[j] = byte(v >> (8 * j))
	}
	return out
}

func intLEBytes(v int64, n int) []byte {
	return uintLEBytes(uint64(v), n)
}

// minBytesUnsigned returns the fewest bytes needed to hold v, 1..8.
func minBytesUnsigned(v uint64) int {
	n := 0
	for v != 0 {
		n++
		v >>= 8
	}
	if n == 0 {
		n = 1
	}
	return n
}

// minBytesSigned returns the fewest bytes needed to hold v as a
// sign-extended two's-complement value, 1..8. A zero delta still takes
// one byte, since zero offset bytes would mark the run as sparse.
func minBytesSigned(v int64) int {
	if v == 0 {
		return 1
	}
	n := 1
	for {
		lo := -(int64(1) << (8*n - 1))
		hi := (int64(1) << (8*n - 1)) - 1
		if v >= lo && v <= hi {
			return n
		}
		n++
		if n > 8 {
			return 8
		}
	}
}
