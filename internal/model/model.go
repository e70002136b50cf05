// Package model holds the data types shared across the scanner, the
// recycle-bin walker, the merger and the recovery engine — split out so
// none of those packages has to import another just to talk about a
// DeletedCandidate (§3).
package model

// Source identifies which subsystem produced a DeletedCandidate.
type Source int

const (
	SourceUSN Source = iota
	SourceRecycleBin
)

func (s Source) String() string {
	if s == SourceRecycleBin {
		return "RecycleBin"
	}
	return "USN"
}

// USNHandle is the recoveryHandle shape for a USN-sourced candidate.
type USNHandle struct {
	Drive   byte
	FileRef uint64
}

// DeletedCandidate is one engine scan result (§3).
type DeletedCandidate struct {
	Source     Source
	Name       string
	ParentPath string
	FullPath   string

	// SizeKnown is false for USN candidates, since the journal carries
	// no size; Size is meaningless when it is false.
	SizeKnown bool
	Size      uint64

	// DeletedTimeKnown is false when no timestamp could be attached; per
	// §4.7, candidates without a timestamp compare equal when sorting.
	DeletedTimeKnown bool
	DeletedTimeMs    int64

	Confidence int

	// At most one of these is populated, matching Source.
	USNHandle *USNHandle
	// RecycleDataPath is the absolute path of the paired $R file, or
	// empty if it is missing (recoveryHandle=null, confidence=10).
	RecycleDataPath string
}
