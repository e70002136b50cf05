// Package recovery implements the recovery engine (C8): given a file
// identifier or a recycle-bin data path, it produces the reconstructed
// file on disk, driving C1 by a parsed run list for the non-resident
// case. Grounded on the teacher's Parser.RecoverFile/Recover in
// shubham030-recovery/internal/ntfs/ntfs.go, generalized to the
// abstract volume.Device this module tests against.
package recovery

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/archivekit/ntfsrevive/internal/mft"
	"github.com/archivekit/ntfsrevive/internal/runlist"
	"github.com/archivekit/ntfsrevive/internal/volume"
)

// Error taxonomy entries owned by this package (§7).
var (
	ErrNoDataAttribute      = errors.New("recovery: no $DATA attribute")
	ErrUnexpectedVolumeEnd  = errors.New("recovery: unexpected end of volume")
	ErrSourceMissing        = errors.New("recovery: recycle-bin data file missing")
	ErrUnsupportedAttribute = errors.New("recovery: compressed or encrypted attribute not supported")
	ErrWriteFailed          = errors.New("recovery: write failed")
)

// readChunkClusters is the chunk size C8 reads non-resident runs in,
// per §4.8 step 6.
const readChunkClusters = 16

// attrFlagCompressed and attrFlagEncrypted mirror the standard NTFS
// attribute-flag bits (§9): refuse instead of emitting garbled output.
const (
	attrFlagCompressed = 0x0001
	attrFlagEncrypted  = 0x4000
)

// FetchRecord issues GET_NTFS_FILE_RECORD for fileRef and parses the
// result via the mft package (§4.8 step 2).
func FetchRecord(dev volume.Device, fileRef uint64) (mft.Record, error) {
	in := make([]byte, 8)
	binary.LittleEndian.PutUint64(in, fileRef)

	const outBufferSize = 1 << 16
	out := make([]byte, outBufferSize)

	n, err := dev.Ioctl(volume.FSCTLGetNTFSFileRecord, in, out)
	if err != nil {
		return mft.Record{}, fmt.Errorf("recovery: get ntfs file record: %w", err)
	}
	if n < 12 {
		return mft.Record{}, fmt.Errorf("recovery: get ntfs file record: short output")
	}

	recordLength := binary.LittleEndian.Uint32(out[8:12])
	if 12+int(recordLength) > int(n) {
		return mft.Record{}, fmt.Errorf("recovery: get ntfs file record: record length overruns output")
	}

	return mft.Parse(out[12 : 12+int(recordLength)])
}

// RecoverFromRecord recovers the $DATA attribute that rec.DataAttribute
// selects (the unnamed stream, else the first named one) to
// outputPath, reading non-resident runs from dev at the given cluster
// size (§4.8 steps 3-7).
func RecoverFromRecord(dev volume.Device, rec mft.Record, clusterSize uint64, outputPath string) error {
	data, ok := rec.DataAttribute()
	if !ok {
		return ErrNoDataAttribute
	}
	if data.Flags&(attrFlagCompressed|attrFlagEncrypted) != 0 {
		return ErrUnsupportedAttribute
	}

	if !data.NonResident {
		out, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("recovery: create %s: %w", outputPath, err)
		}
		defer out.Close()

		payload := data.ResidentBytes
		if uint64(len(payload)) > data.DataSize {
			payload = payload[:data.DataSize]
		}
		if _, err := out.Write(payload); err != nil {
			return fmt.Errorf("%w: %v", ErrWriteFailed, err)
		}
		return nil
	}

	return RecoverRuns(dev, data.Runs, clusterSize, data.DataSize, outputPath)
}

// RecoverRuns drives dev by runs to reconstruct a non-resident $DATA
// stream of exactly dataSize bytes at outputPath (§6's recoverDataRuns
// entry point, and §4.8 steps 6-7). It is the direct target of the
// engine's recoverDataRuns boundary call, used when the caller already
// holds a parsed run list from a prior getFileRecord.
func RecoverRuns(dev volume.Device, runs []runlist.Segment, clusterSize, dataSize uint64, outputPath string) error {
	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("recovery: create %s: %w", outputPath, err)
	}
	defer out.Close()

	return streamRuns(dev, runs, clusterSize, dataSize, out)
}

// streamRuns walks runs writing bytesThisRun per run to out, per §4.8
// step 6-7: zero-filling sparse runs, reading real runs in
// readChunkClusters-cluster chunks, and zero-padding any tail the runs
// didn't cover.
func streamRuns(dev volume.Device, runs []runlist.Segment, clusterSize, remaining uint64, out io.Writer) error {
	chunkSize := clusterSize * readChunkClusters

	for _, run := range runs {
		if remaining == 0 {
			break
		}

		runBytes := uint64(run.Length) * clusterSize
		if runBytes > remaining {
			runBytes = remaining
		}

		if run.Sparse || run.LCN <= 0 {
			if err := writeZeros(out, runBytes); err != nil {
				return err
			}
			remaining -= runBytes
			continue
		}

		offset := run.LCN * int64(clusterSize)
		written, err := streamFromVolume(dev, offset, runBytes, chunkSize, out)
		if err != nil {
			return err
		}
		remaining -= written
	}

	if remaining > 0 {
		if err := writeZeros(out, remaining); err != nil {
			return err
		}
	}

	return nil
}

func streamFromVolume(dev volume.Device, offset int64, total, chunkSize uint64, out io.Writer) (uint64, error) {
	var written uint64
	buf := make([]byte, chunkSize)

	for written < total {
		want := chunkSize
		if remain := total - written; remain < want {
			want = remain
		}

		n, err := dev.ReadAt(buf[:want], offset+int64(written))
		if n == 0 && err != nil {
			return written, fmt.Errorf("%w: %v", ErrUnexpectedVolumeEnd, err)
		}
		if n == 0 {
			return written, ErrUnexpectedVolumeEnd
		}
		if _, werr := out.Write(buf[:n]); werr != nil {
			return written, fmt.Errorf("%w: %v", ErrWriteFailed, werr)
		}
		written += uint64(n)
	}
	return written, nil
}

func writeZeros(out io.Writer, n uint64) error {
	const zeroChunk = 64 * 1024
	zeros := make([]byte, zeroChunk)
	for n > 0 {
		want := uint64(zeroChunk)
		if n < want {
			want = n
		}
		if _, err := out.Write(zeros[:want]); err != nil {
			return fmt.Errorf("%w: %v", ErrWriteFailed, err)
		}
		n -= want
	}
	return nil
}

// RecoverFromRecycleBin byte-copies src to dst, truncating to size bytes
// if src is larger (§4.8 recycle-bin case).
func RecoverFromRecycleBin(src, dst string, size uint64) error {
	in, err := os.Open(src)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrSourceMissing
		}
		return fmt.Errorf("recovery: open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("recovery: create %s: %w", dst, err)
	}
	defer out.Close()

	_, err = io.CopyN(out, in, int64(size))
	if err != nil && err != io.EOF {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}
