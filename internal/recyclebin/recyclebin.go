// Package recyclebin implements the recycle-bin scanner (C6): walking
// "<letter>:\$Recycle.Bin\<SID>\$I*" metadata files, pairing each with
// its sibling "$R*" data file, and emitting candidates. Filesystem
// access goes through afero.Fs so tests run against an in-memory tree
// instead of a real Windows volume, the same dependency gcsfuse pulls
// in (via viper) for its own fake-filesystem test fixtures.
package recyclebin

import (
	"fmt"
	"path"
	"strings"

	"github.com/spf13/afero"

	"github.com/archivekit/ntfsrevive/internal/binutil"
	"github.com/archivekit/ntfsrevive/internal/model"
)

const headerSize = 24

// Scanner walks the recycle bin of one drive through an afero.Fs.
type Scanner struct {
	fs    afero.Fs
	drive byte

	// OnProgress, when set, is invoked with the cumulative number of
	// $I file bytes read so far (§9: progress proportional to bytes
	// enumerated).
	OnProgress func(bytesEnumerated uint64)

	bytesEnumerated uint64
}

// NewScanner builds a Scanner. fs is rooted at the volume root, i.e.
// fs.Open("$Recycle.Bin/...") reaches "<drive>:\$Recycle.Bin\...".
func NewScanner(fs afero.Fs, drive byte) *Scanner {
	return &Scanner{fs: fs, drive: drive}
}

// Scan walks every SID subdirectory under $Recycle.Bin and emits one
// candidate per $I file found, per §4.6. A malformed $I file is skipped,
// not fatal, per §7's per-entry error policy.
func (s *Scanner) Scan() ([]model.DeletedCandidate, error) {
	root := "$Recycle.Bin"
	sids, err := afero.ReadDir(s.fs, root)
	if err != nil {
		return nil, fmt.Errorf("recyclebin: read %s: %w", root, err)
	}

	var candidates []model.DeletedCandidate
	for _, sid := range sids {
		if !sid.IsDir() {
			continue
		}
		sidDir := path.Join(root, sid.Name())
		entries, err := afero.ReadDir(s.fs, sidDir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasPrefix(entry.Name(), "$I") {
				continue
			}
			c, ok := s.parseEntry(sidDir, entry.Name())
			if !ok {
				continue
			}
			candidates = append(candidates, c)
		}
	}
	return candidates, nil
}

func (s *Scanner) parseEntry(dir, iName string) (model.DeletedCandidate, bool) {
	iPath := path.Join(dir, iName)
	raw, err := afero.ReadFile(s.fs, iPath)
	if err != nil || len(raw) < headerSize {
		return model.DeletedCandidate{}, false
	}
	s.bytesEnumerated += uint64(len(raw))
	if s.OnProgress != nil {
		s.OnProgress(s.bytesEnumerated)
	}

	version := raw[0]
	if version != 1 && version != 2 {
		return model.DeletedCandidate{}, false
	}

	size := binutil.Uint64LE(raw[8:16])
	filetime := binutil.Int64LE(raw[16:24])
	originalPath := binutil.UTF16LEToString(trimNulPadding(raw[headerSize:]))

	prefix := fmt.Sprintf(`%c:\`, s.drive)
	if !strings.HasPrefix(originalPath, prefix) {
		return model.DeletedCandidate{}, false
	}

	rName := "$R" + strings.TrimPrefix(iName, "$I")
	rPath := path.Join(dir, rName)

	confidence := 10
	recoveryPath := ""
	if exists, _ := afero.Exists(s.fs, rPath); exists {
		confidence = 94
		recoveryPath = rPath
	}

	name := originalPath
	parentPath := ""
	if idx := strings.LastIndex(originalPath, `\`); idx >= 0 {
		name = originalPath[idx+1:]
		parentPath = originalPath[:idx]
	}

	return model.DeletedCandidate{
		Source:           model.SourceRecycleBin,
		Name:             name,
		ParentPath:       parentPath,
		FullPath:         originalPath,
		SizeKnown:        true,
		Size:             size,
		DeletedTimeKnown: true,
		DeletedTimeMs:    binutil.FiletimeToUnixMs(filetime),
		Confidence:       confidence,
		RecycleDataPath:  recoveryPath,
	}, true
}

// trimNulPadding drops trailing UTF-16LE NUL code units.
func trimNulPadding(b []byte) []byte {
	end := len(b)
	for end >= 2 && b[end-2] == 0 && b[end-1] == 0 {
		end -= 2
	}
	return b[:end]
}
