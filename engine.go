package ntfsrevive

import (
	"fmt"

	"github.com/spf13/afero"

	"github.com/archivekit/ntfsrevive/internal/binutil"
	"github.com/archivekit/ntfsrevive/internal/merge"
	"github.com/archivekit/ntfsrevive/internal/mft"
	"github.com/archivekit/ntfsrevive/internal/recovery"
	"github.com/archivekit/ntfsrevive/internal/recyclebin"
	"github.com/archivekit/ntfsrevive/internal/runlist"
	"github.com/archivekit/ntfsrevive/internal/usn"
	"github.com/archivekit/ntfsrevive/internal/volume"
)

// Engine exposes §6's entry points as single-shot background tasks
// (§5, §9). Its two seams — Open and RecycleBinFS — let tests
// substitute volume.FakeDevice and an afero.MemMapFs for the real
// Windows volume and filesystem.
type Engine struct {
	Open         volume.Opener
	RecycleBinFS func(drive byte) afero.Fs
}

// NewEngine builds an Engine wired to the real Windows volume and the
// OS filesystem.
func NewEngine() *Engine {
	return &Engine{
		Open:         volume.Open,
		RecycleBinFS: defaultRecycleBinFS,
	}
}

func defaultRecycleBinFS(drive byte) afero.Fs {
	return afero.NewBasePathFs(afero.NewOsFs(), fmt.Sprintf(`%c:\`, drive))
}

// Scan enumerates the USN journal and the recycle bin of one drive and
// returns the merged, time-sorted candidate list (§6). onProgress, if
// given, receives one ProgressEvent per USN buffer and per recycle-bin
// entry enumerated.
func (e *Engine) Scan(drive string, onProgress ...func(ProgressEvent)) *Task[[]Candidate] {
	var progress func(ProgressEvent)
	if len(onProgress) > 0 {
		progress = onProgress[0]
	}

	return runTask(func() ([]Candidate, error) {
		d, err := CanonicalizeDrive(drive)
		if err != nil {
			return nil, err
		}

		dev, err := e.Open(d)
		if err != nil {
			return nil, err
		}
		defer dev.Close()

		usnScanner := usn.NewScanner(d, dev)
		if progress != nil {
			usnScanner.OnProgress = func(n uint64) {
				progress(ProgressEvent{Stage: "usn", BytesEnumerated: n})
			}
		}
		usnCandidates, err := usnScanner.Scan()
		if err != nil {
			return nil, err
		}

		recycleBinScanner := recyclebin.NewScanner(e.RecycleBinFS(d), d)
		if progress != nil {
			recycleBinScanner.OnProgress = func(n uint64) {
				progress(ProgressEvent{Stage: "recyclebin", BytesEnumerated: n})
			}
		}
		recycleBinCandidates, err := recycleBinScanner.Scan()
		if err != nil {
			return nil, err
		}

		merged := merge.Merge(usnCandidates, recycleBinCandidates)
		out := make([]Candidate, len(merged))
		for i, c := range merged {
			out[i] = toBoundaryCandidate(c)
		}
		return out, nil
	})
}

// GetFileRecord fetches and parses the MFT record for fileRef (§6).
func (e *Engine) GetFileRecord(drive, fileRef string) *Task[FileRecordDetails] {
	return runTask(func() (FileRecordDetails, error) {
		d, err := CanonicalizeDrive(drive)
		if err != nil {
			return FileRecordDetails{}, err
		}
		ref, err := ParseU64(fileRef)
		if err != nil {
			return FileRecordDetails{}, err
		}

		dev, err := e.Open(d)
		if err != nil {
			return FileRecordDetails{}, err
		}
		defer dev.Close()

		geom, err := dev.Geometry()
		if err != nil {
			return FileRecordDetails{}, err
		}

		rec, err := recovery.FetchRecord(dev, ref)
		if err != nil {
			return FileRecordDetails{}, err
		}

		return toBoundaryRecord(rec, geom.ClusterSize()), nil
	})
}

// RecoverDataRuns reconstructs a non-resident $DATA stream from an
// already-parsed run list (§6). Callers that already hold resident
// bytes from GetFileRecord do not call this; they decode the base64
// payload directly.
func (e *Engine) RecoverDataRuns(drive string, runs []RunSegment, clusterSize, fileSize, outputPath string) *Task[struct{}] {
	return runTask(func() (struct{}, error) {
		d, err := CanonicalizeDrive(drive)
		if err != nil {
			return struct{}{}, err
		}
		cs, err := ParseU64(clusterSize)
		if err != nil {
			return struct{}{}, err
		}
		size, err := ParseU64(fileSize)
		if err != nil {
			return struct{}{}, err
		}
		if outputPath == "" {
			return struct{}{}, fmt.Errorf("%w: outputPath is required", ErrInvalidArgument)
		}

		segments := make([]runlist.Segment, len(runs))
		for i, r := range runs {
			seg, err := fromBoundaryRun(r)
			if err != nil {
				return struct{}{}, err
			}
			segments[i] = seg
		}

		dev, err := e.Open(d)
		if err != nil {
			return struct{}{}, err
		}
		defer dev.Close()

		return struct{}{}, recovery.RecoverRuns(dev, segments, cs, size, outputPath)
	})
}

// RecoverRecycleBin byte-copies a recycle-bin data file to outputPath
// (§4.8's recycle-bin case: the candidates Scan emits with
// RecycleDataPath set instead of a USN fileRef). It needs no volume
// handle; it is a plain file copy truncated to fileSize.
func (e *Engine) RecoverRecycleBin(recycleDataPath, fileSize, outputPath string) *Task[struct{}] {
	return runTask(func() (struct{}, error) {
		if recycleDataPath == "" {
			return struct{}{}, fmt.Errorf("%w: recycleDataPath is required", ErrInvalidArgument)
		}
		if outputPath == "" {
			return struct{}{}, fmt.Errorf("%w: outputPath is required", ErrInvalidArgument)
		}
		size, err := ParseU64(fileSize)
		if err != nil {
			return struct{}{}, err
		}
		return struct{}{}, recovery.RecoverFromRecycleBin(recycleDataPath, outputPath, size)
	})
}

func toBoundaryRecord(rec mft.Record, clusterSize uint64) FileRecordDetails {
	attrs := make([]AttributeInfo, len(rec.Attributes))
	for i, a := range rec.Attributes {
		info := AttributeInfo{
			Type:          a.Type,
			TypeName:      a.TypeName,
			Name:          a.Name,
			NonResident:   a.NonResident,
			DataSize:      FormatU64(a.DataSize),
			AllocatedSize: FormatU64(a.AllocatedSize),
		}
		if a.NonResident {
			info.Runs = make([]RunSegment, len(a.Runs))
			for j, r := range a.Runs {
				info.Runs[j] = toBoundaryRun(r)
			}
		} else {
			info.ResidentBytes = binutil.EncodeBase64(a.ResidentBytes)
		}
		attrs[i] = info
	}

	return FileRecordDetails{
		InUse:         rec.InUse,
		IsDirectory:   rec.IsDirectory,
		BaseReference: FormatU64(rec.BaseReference),
		HardLinkCount: rec.HardLinkCount,
		Flags:         rec.Flags,
		Attributes:    attrs,
		ClusterSize:   FormatU64(clusterSize),
	}
}
