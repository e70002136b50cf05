// Package ntfsrevive is the engine's language-neutral boundary (§6):
// drive-letter canonicalization, decimal-string 64-bit integers, and the
// candidate/run-segment shapes that cross it, plus the async entry points
// (scan, getFileRecord, recoverDataRuns, recoverRecycleBin) built on top
// of the internal packages.
package ntfsrevive

import (
	"fmt"
	"strconv"

	"github.com/archivekit/ntfsrevive/internal/model"
	"github.com/archivekit/ntfsrevive/internal/runlist"
)

// CanonicalizeDrive validates and upper-cases a drive letter (§3).
func CanonicalizeDrive(s string) (byte, error) {
	if len(s) != 1 {
		return 0, fmt.Errorf("%w: drive letter must be a single character, got %q", ErrInvalidArgument, s)
	}
	c := s[0]
	switch {
	case c >= 'a' && c <= 'z':
		c -= 'a' - 'A'
	case c >= 'A' && c <= 'Z':
	default:
		return 0, fmt.Errorf("%w: drive letter must be A-Z, got %q", ErrInvalidArgument, s)
	}
	return c, nil
}

// ParseU64 parses a decimal-string 64-bit integer crossing the boundary
// (§6, §9).
func ParseU64(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return v, nil
}

// FormatU64 renders a 64-bit integer as the decimal string the boundary
// expects.
func FormatU64(v uint64) string {
	return strconv.FormatUint(v, 10)
}

// RunSegment is the boundary shape of one run-list segment (§3).
type RunSegment struct {
	VCNStart string `json:"vcnStart"`
	LCN      string `json:"lcn"`
	Length   string `json:"length"`
	Sparse   bool   `json:"sparse"`
}

func toBoundaryRun(s runlist.Segment) RunSegment {
	return RunSegment{
		VCNStart: strconv.FormatInt(s.VCNStart, 10),
		LCN:      strconv.FormatInt(s.LCN, 10),
		Length:   strconv.FormatInt(s.Length, 10),
		Sparse:   s.Sparse,
	}
}

func fromBoundaryRun(r RunSegment) (runlist.Segment, error) {
	vcn, err := strconv.ParseInt(r.VCNStart, 10, 64)
	if err != nil {
		return runlist.Segment{}, fmt.Errorf("%w: vcnStart: %v", ErrInvalidArgument, err)
	}
	lcn, err := strconv.ParseInt(r.LCN, 10, 64)
	if err != nil {
		return runlist.Segment{}, fmt.Errorf("%w: lcn: %v", ErrInvalidArgument, err)
	}
	length, err := strconv.ParseInt(r.Length, 10, 64)
	if err != nil {
		return runlist.Segment{}, fmt.Errorf("%w: length: %v", ErrInvalidArgument, err)
	}
	return runlist.Segment{VCNStart: vcn, LCN: lcn, Length: length, Sparse: r.Sparse}, nil
}

// AttributeInfo is the boundary shape of one decoded attribute (§3).
type AttributeInfo struct {
	Type          uint32       `json:"type"`
	TypeName      string       `json:"typeName"`
	Name          string       `json:"name"`
	NonResident   bool         `json:"nonResident"`
	DataSize      string       `json:"dataSize"`
	AllocatedSize string       `json:"allocatedSize"`
	Runs          []RunSegment `json:"runs,omitempty"`
	ResidentBytes string       `json:"residentBytes,omitempty"` // base64
}

// FileRecordDetails is the boundary shape of one parsed MFT record (§3).
type FileRecordDetails struct {
	InUse         bool            `json:"inUse"`
	IsDirectory   bool            `json:"isDirectory"`
	BaseReference string          `json:"baseReference"`
	HardLinkCount uint16          `json:"hardLinkCount"`
	Flags         uint16          `json:"flags"`
	Attributes    []AttributeInfo `json:"attributes"`
	ClusterSize   string          `json:"clusterSize"`
}

// ProgressEvent reports Scan progress proportional to bytes enumerated,
// per §9's open question: the source's 0-65/70-100 weighting is not
// replicated here. TotalBytes is 0 when the total is not known yet.
type ProgressEvent struct {
	Stage           string // "usn" or "recyclebin"
	BytesEnumerated uint64
	TotalBytes      uint64
}

// Candidate is the boundary shape of one scan result (§3).
type Candidate struct {
	Source          string `json:"source"` // "USN" or "RecycleBin"
	Name            string `json:"name"`
	ParentPath      string `json:"parentPath"`
	FullPath        string `json:"fullPath"`
	Size            string `json:"size,omitempty"`
	DeletedTimeMs   string `json:"deletedTimeMs,omitempty"`
	Confidence      int    `json:"confidence"`
	Drive           string `json:"drive,omitempty"`
	FileRef         string `json:"fileRef,omitempty"`
	RecycleDataPath string `json:"recycleDataPath,omitempty"`
}

func toBoundaryCandidate(c model.DeletedCandidate) Candidate {
	out := Candidate{
		Source:          c.Source.String(),
		Name:            c.Name,
		ParentPath:      c.ParentPath,
		FullPath:        c.FullPath,
		Confidence:      c.Confidence,
		RecycleDataPath: c.RecycleDataPath,
	}
	if c.SizeKnown {
		out.Size = FormatU64(c.Size)
	}
	if c.DeletedTimeKnown {
		out.DeletedTimeMs = strconv.FormatInt(c.DeletedTimeMs, 10)
	}
	if c.USNHandle != nil {
		out.Drive = string(c.USNHandle.Drive)
		out.FileRef = FormatU64(c.USNHandle.FileRef)
	}
	return out
}
