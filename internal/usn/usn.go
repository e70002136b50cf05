// Package usn implements the USN change-journal scanner (C5): paging
// through FSCTL_ENUM_USN_DATA, building the fileRef -> (parent, name,
// isDirectory) identifier table, and resolving deleted entries to full
// paths by climbing that table. Grounded on fsnotify-fsnotify's
// backend_usn.go, the only example in the retrieval pack that drives
// this exact control code.
package usn

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"syscall"

	"github.com/archivekit/ntfsrevive/internal/binutil"
	"github.com/archivekit/ntfsrevive/internal/model"
	"github.com/archivekit/ntfsrevive/internal/volume"
)

// enumBufferSize is the response buffer size for FSCTL_ENUM_USN_DATA, as
// specified in §4.5.
const enumBufferSize = 1 << 20

// fileDelete is the USN_REASON_FILE_DELETE bit.
const fileDelete = 0x00000200

// maxPathDepth bounds the parent-chain walk (§4.5, §8 scenario 6).
const maxPathDepth = 1024

// errHandleEOF mirrors ERROR_HANDLE_EOF (38), the normal termination
// signal for FSCTL_ENUM_USN_DATA once the journal is exhausted.
const errHandleEOF = syscall.Errno(38)

type fileEntry struct {
	parentRef   uint64
	name        string
	isDirectory bool
}

type deletionEvent struct {
	fileRef        uint64
	parentRef      uint64
	timestampMs    int64
	timestampKnown bool
}

// Scanner walks one volume's USN journal.
type Scanner struct {
	drive byte
	dev   volume.Device

	// OnProgress, when set, is invoked with the cumulative number of
	// response bytes enumerated so far after each ENUM_USN_DATA call
	// (§9: progress proportional to bytes enumerated).
	OnProgress func(bytesEnumerated uint64)
}

// NewScanner builds a Scanner bound to an already-opened device.
func NewScanner(drive byte, dev volume.Device) *Scanner {
	return &Scanner{drive: drive, dev: dev}
}

// Scan enumerates the whole journal once and returns every deletion it
// observed as a resolved DeletedCandidate (§4.5). Per §7, a malformed
// individual record does not fail the scan; it is skipped.
func (s *Scanner) Scan() ([]model.DeletedCandidate, error) {
	table := make(map[uint64]fileEntry)
	var deletions []deletionEvent

	startFileRef := uint64(0)
	out := make([]byte, enumBufferSize)
	var bytesEnumerated uint64

	for {
		in := make([]byte, 24)
		binary.LittleEndian.PutUint64(in[0:8], startFileRef)
		binary.LittleEndian.PutUint64(in[8:16], 0)
		binary.LittleEndian.PutUint64(in[16:24], uint64(1<<63-1))

		n, err := s.dev.Ioctl(volume.FSCTLEnumUsnData, in, out)
		if err != nil {
			if errors.Is(err, errHandleEOF) {
				break
			}
			return nil, fmt.Errorf("usn: enum usn data: %w", err)
		}
		if n < 8 {
			break
		}

		bytesEnumerated += uint64(n)
		if s.OnProgress != nil {
			s.OnProgress(bytesEnumerated)
		}

		resp := out[:n]
		nextStart := binary.LittleEndian.Uint64(resp[0:8])

		offset := 8
		for offset+60 <= len(resp) {
			recordLength := int(binary.LittleEndian.Uint32(resp[offset : offset+4]))
			if recordLength == 0 || offset+recordLength > len(resp) {
				break
			}
			rec := resp[offset : offset+recordLength]
			offset += recordLength

			entry, event, ok := parseRecord(rec)
			if !ok {
				continue
			}
			table[entry.fileRef] = fileEntry{
				parentRef:   entry.parentRef,
				name:        entry.name,
				isDirectory: entry.isDirectory,
			}
			if event != nil {
				deletions = append(deletions, *event)
			}
		}

		if nextStart <= startFileRef {
			break
		}
		startFileRef = nextStart
	}

	candidates := make([]model.DeletedCandidate, 0, len(deletions))
	for _, d := range deletions {
		fullPath, parentPath, name := resolvePath(table, d.fileRef, d.parentRef, s.drive)
		c := model.DeletedCandidate{
			Source:     model.SourceUSN,
			Name:       name,
			ParentPath: parentPath,
			FullPath:   fullPath,
			Confidence: 25,
			USNHandle:  &model.USNHandle{Drive: s.drive, FileRef: d.fileRef},
		}
		if d.timestampKnown {
			c.DeletedTimeKnown = true
			c.DeletedTimeMs = d.timestampMs
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

type parsedRecord struct {
	fileRef     uint64
	parentRef   uint64
	name        string
	isDirectory bool
}

// parseRecord decodes one USN_RECORD_V2 and reports whether it carries a
// deletion reason.
func parseRecord(rec []byte) (parsedRecord, *deletionEvent, bool) {
	if len(rec) < 60 {
		return parsedRecord{}, nil, false
	}

	fileRef := binary.LittleEndian.Uint64(rec[8:16])
	parentRef := binary.LittleEndian.Uint64(rec[16:24])
	timestamp := int64(binary.LittleEndian.Uint64(rec[32:40]))
	reason := binary.LittleEndian.Uint32(rec[40:44])
	fileAttributes := binary.LittleEndian.Uint32(rec[52:56])
	nameLength := int(binary.LittleEndian.Uint16(rec[56:58]))
	nameOffset := int(binary.LittleEndian.Uint16(rec[58:60]))

	if nameOffset < 0 || nameOffset+nameLength > len(rec) {
		return parsedRecord{}, nil, false
	}
	name := binutil.UTF16LEToString(rec[nameOffset : nameOffset+nameLength])

	const fileAttributeDirectory = 0x10
	p := parsedRecord{
		fileRef:     fileRef,
		parentRef:   parentRef,
		name:        name,
		isDirectory: fileAttributes&fileAttributeDirectory != 0,
	}

	if reason&fileDelete == 0 {
		return p, nil, true
	}
	return p, &deletionEvent{
		fileRef:        fileRef,
		parentRef:      parentRef,
		timestampMs:    binutil.FiletimeToUnixMs(timestamp),
		timestampKnown: true,
	}, true
}

// resolvePath climbs the identifier table from parentRef up to the
// volume root, per §4.5's path-resolution algorithm and §8 scenarios 5
// and 6 (straight-line resolution and the self-parent cycle guard).
func resolvePath(table map[uint64]fileEntry, fileRef, parentRef uint64, drive byte) (fullPath, parentPath, name string) {
	if entry, ok := table[fileRef]; ok {
		name = entry.name
	}

	var segments []string
	current := parentRef
	for depth := 0; depth < maxPathDepth; depth++ {
		if current == 0 {
			break
		}
		entry, ok := table[current]
		if !ok {
			break
		}
		if entry.parentRef == current {
			break // self-parent cycle guard (§8 scenario 6): stop before adding
		}
		if entry.name != "" {
			segments = append(segments, entry.name)
		}
		current = entry.parentRef
	}

	// segments were collected innermost-first; reverse for root-first order.
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}

	parentPath = fmt.Sprintf(`%c:\%s`, drive, strings.Join(segments, `\`))
	full := append(append([]string{}, segments...), name)
	var nonEmpty []string
	for _, seg := range full {
		if seg != "" {
			nonEmpty = append(nonEmpty, seg)
		}
	}
	fullPath = fmt.Sprintf(`%c:\%s`, drive, strings.Join(nonEmpty, `\`))
	return fullPath, parentPath, name
}
