package ntfsrevive

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/spf13/afero"

	"github.com/archivekit/ntfsrevive/internal/volume"
)

func buildIFile(version byte, size uint64, path string) []byte {
	buf := make([]byte, 24)
	buf[0] = version
	binary.LittleEndian.PutUint64(buf[8:16], size)
	for _, r := range path {
		buf = append(buf, byte(r), 0)
	}
	return append(buf, 0, 0)
}

func TestEngineScanMergesUSNAndRecycleBin(t *testing.T) {
	fs := afero.NewMemMapFs()
	iData := buildIFile(2, 1024, `D:\a.txt`)
	if err := afero.WriteFile(fs, `$Recycle.Bin/S-1-5-21/$IABC.txt`, iData, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fs, `$Recycle.Bin/S-1-5-21/$RABC.txt`, []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}

	dev := &volume.FakeDevice{
		Responses: []volume.FakeIoctlResponse{
			{Err: syscall.Errno(38)}, // immediate ERROR_HANDLE_EOF: empty journal
		},
	}

	e := &Engine{
		Open:         func(byte) (volume.Device, error) { return dev, nil },
		RecycleBinFS: func(byte) afero.Fs { return fs },
	}

	candidates, err := e.Scan("d").Wait()
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(candidates))
	}
	if candidates[0].FullPath != `D:\a.txt` {
		t.Errorf("FullPath = %q, want %q", candidates[0].FullPath, `D:\a.txt`)
	}
	if !dev.Closed() {
		t.Error("expected the device to be closed after Scan")
	}
}

func TestEngineRecoverDataRunsWritesExactSize(t *testing.T) {
	clusterSize := uint64(4096)
	disk := make([]byte, 10*int(clusterSize))
	dev := &volume.FakeDevice{Disk: disk}

	e := &Engine{Open: func(byte) (volume.Device, error) { return dev, nil }}

	outPath := filepath.Join(t.TempDir(), "out.bin")
	runs := []RunSegment{{VCNStart: "0", LCN: "1", Length: "1", Sparse: false}}

	_, err := e.RecoverDataRuns("D", runs, FormatU64(clusterSize), "4096", outPath).Wait()
	if err != nil {
		t.Fatalf("RecoverDataRuns: %v", err)
	}

	info, err := os.Stat(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 4096 {
		t.Errorf("output size = %d, want 4096", info.Size())
	}
}

func TestEngineScanReportsProgress(t *testing.T) {
	fs := afero.NewMemMapFs()
	iData := buildIFile(2, 1024, `D:\a.txt`)
	if err := afero.WriteFile(fs, `$Recycle.Bin/S-1-5-21/$IABC.txt`, iData, 0o644); err != nil {
		t.Fatal(err)
	}

	dev := &volume.FakeDevice{
		Responses: []volume.FakeIoctlResponse{
			{Err: syscall.Errno(38)},
		},
	}
	e := &Engine{
		Open:         func(byte) (volume.Device, error) { return dev, nil },
		RecycleBinFS: func(byte) afero.Fs { return fs },
	}

	var stages []string
	_, err := e.Scan("D", func(ev ProgressEvent) {
		stages = append(stages, ev.Stage)
	}).Wait()
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	found := false
	for _, s := range stages {
		if s == "recyclebin" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected at least one recyclebin progress event, got %v", stages)
	}
}

func TestEngineRecoverRecycleBinCopiesExactSize(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "$RABC.txt")
	if err := os.WriteFile(src, []byte("hello world"), 0o644); err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(dir, "out.txt")

	e := &Engine{}
	if _, err := e.RecoverRecycleBin(src, "5", dst).Wait(); err != nil {
		t.Fatalf("RecoverRecycleBin: %v", err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello" {
		t.Errorf("recovered content = %q, want %q", got, "hello")
	}
}

func TestEngineRecoverRecycleBinMissingSourceReturnsErrSourceMissing(t *testing.T) {
	dir := t.TempDir()
	e := &Engine{}
	_, err := e.RecoverRecycleBin(filepath.Join(dir, "missing"), "10", filepath.Join(dir, "out")).Wait()
	if !errors.Is(err, ErrSourceMissing) {
		t.Errorf("err = %v, want ErrSourceMissing", err)
	}
}

func TestCanonicalizeDriveRejectsMultiCharacter(t *testing.T) {
	if _, err := CanonicalizeDrive("DD"); err == nil {
		t.Fatal("expected an error")
	}
}

func TestCanonicalizeDriveUppercases(t *testing.T) {
	d, err := CanonicalizeDrive("d")
	if err != nil {
		t.Fatal(err)
	}
	if d != 'D' {
		t.Errorf("got %q, want 'D'", d)
	}
}
