package safeunzip

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func buildZIP(t *testing.T, write func(w *zip.Writer)) *bytes.Reader {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	write(w)
	if err := w.Close(); err != nil {
		t.Fatalf("zip.Writer.Close() = %v", err)
	}
	return bytes.NewReader(buf.Bytes())
}

func buildTAR(t *testing.T, write func(w *tar.Writer)) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := tar.NewWriter(&buf)
	write(w)
	if err := w.Close(); err != nil {
		t.Fatalf("tar.Writer.Close() = %v", err)
	}
	return buf.Bytes()
}

// Scenario 1: Zip Slip.
func TestScenario_ZipSlip(t *testing.T) {
	dest := t.TempDir()
	r := buildZIP(t, func(w *zip.Writer) {
		fw, err := w.Create("../../etc/cron.d/pwned")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte("x")); err != nil {
			t.Fatal(err)
		}
	})

	d, err := New(dest)
	if err != nil {
		t.Fatal(err)
	}

	_, err = d.ExtractZipReader(r, r.Size())
	if GetKind(err) != KindPathEscape {
		t.Fatalf("kind = %v, want KindPathEscape", GetKind(err))
	}

	entries, _ := os.ReadDir(dest)
	if len(entries) != 0 {
		t.Errorf("destination has %d entries, want 0", len(entries))
	}
}

// Scenario 2: bomb by count.
func TestScenario_BombByCount(t *testing.T) {
	dest := t.TempDir()
	r := buildZIP(t, func(w *zip.Writer) {
		for i := 0; i < 10001; i++ {
			if _, err := w.Create(fmt.Sprintf("f%d", i)); err != nil {
				t.Fatal(err)
			}
		}
	})

	d, err := New(dest, WithExtractionMode(ModeValidateFirst))
	if err != nil {
		t.Fatal(err)
	}

	_, err = d.ExtractZipReader(r, r.Size())
	if GetKind(err) != KindFileCountExceeded {
		t.Fatalf("kind = %v, want KindFileCountExceeded", GetKind(err))
	}

	entries, _ := os.ReadDir(dest)
	if len(entries) != 0 {
		t.Errorf("destination has %d entries, want 0 (ValidateFirst must not write)", len(entries))
	}
}

// Scenario 3: bomb by lying size.
func TestScenario_BombByLyingSize(t *testing.T) {
	dest := t.TempDir()
	payload := bytes.Repeat([]byte("a"), 10*1024*1024) // 10 MiB actual

	// zip.Writer.CreateHeader recomputes the declared sizes from what is
	// actually written, so it cannot produce a lying header - exactly the
	// attack this scenario needs. CreateRaw writes the sizes given in the
	// FileHeader as-is, which is what lets a real archive understate an
	// entry's uncompressed size while still decompressing to far more.
	r := buildZIP(t, func(w *zip.Writer) {
		fh := &zip.FileHeader{
			Name:               "big",
			Method:             zip.Store,
			CRC32:              crc32.ChecksumIEEE(payload),
			CompressedSize64:   uint64(len(payload)),
			UncompressedSize64: 1024, // the lie: real payload is 10 MiB
		}
		fw, err := w.CreateRaw(fh)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write(payload); err != nil {
			t.Fatal(err)
		}
	})

	d, err := New(dest, WithLimits(Limits{
		MaxTotalBytes: 1 << 30,
		MaxFileCount:  10000,
		MaxSingleFile: 5 * 1024 * 1024, // 5 MiB
		MaxPathDepth:  50,
	}))
	if err != nil {
		t.Fatal(err)
	}

	_, err = d.ExtractZipReader(r, r.Size())
	if GetKind(err) != KindSizeMismatch {
		t.Fatalf("kind = %v, want KindSizeMismatch", GetKind(err))
	}
}

// Scenario 4: symlink overwrite.
func TestScenario_SymlinkOverwrite(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation requires elevated privileges on windows")
	}

	dest := t.TempDir()
	outsideTarget := filepath.Join(t.TempDir(), "passwd")
	if err := os.WriteFile(outsideTarget, []byte("root:x:0:0"), 0o644); err != nil {
		t.Fatal(err)
	}
	logPath := filepath.Join(dest, "log")
	if err := os.Symlink(outsideTarget, logPath); err != nil {
		t.Fatal(err)
	}

	r := buildZIP(t, func(w *zip.Writer) {
		fw, err := w.Create("log")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte("hello")); err != nil {
			t.Fatal(err)
		}
	})

	d, err := New(dest, WithOverwriteMode(OverwriteReplace))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := d.ExtractZipReader(r, r.Size()); err != nil {
		t.Fatalf("ExtractZipReader() = %v", err)
	}

	info, err := os.Lstat(logPath)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		t.Fatal("log is still a symlink after OverwriteReplace")
	}

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "hello" {
		t.Errorf("log content = %q, want %q", content, "hello")
	}

	outsideContent, err := os.ReadFile(outsideTarget)
	if err != nil {
		t.Fatal(err)
	}
	if string(outsideContent) != "root:x:0:0" {
		t.Error("symlink target outside destination was modified")
	}
}

// Scenario 5: TAR device rejection.
func TestScenario_TarDeviceRejection(t *testing.T) {
	dest := t.TempDir()
	raw := buildTAR(t, func(w *tar.Writer) {
		hdr := &tar.Header{Name: "dev/null", Typeflag: tar.TypeChar}
		if err := w.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
	})

	d, err := New(dest)
	if err != nil {
		t.Fatal(err)
	}

	_, err = d.ExtractTarReader(bytes.NewReader(raw))
	if GetKind(err) != KindUnsupportedEntryType {
		t.Fatalf("kind = %v, want KindUnsupportedEntryType", GetKind(err))
	}
}

// Scenario 6: encrypted ZIP.
func TestScenario_EncryptedZip(t *testing.T) {
	dest := t.TempDir()
	r := buildZIP(t, func(w *zip.Writer) {
		fh := &zip.FileHeader{Name: "secret.bin"}
		fh.Flags |= 0x1
		if _, err := w.CreateHeader(fh); err != nil {
			t.Fatal(err)
		}
	})

	d, err := New(dest)
	if err != nil {
		t.Fatal(err)
	}

	_, err = d.ExtractZipReader(r, r.Size())
	if GetKind(err) != KindEncryptedEntry {
		t.Fatalf("kind = %v, want KindEncryptedEntry", GetKind(err))
	}
}

// TestInvariant_NoFileOutsideRoot extends scenario 1 across several
// traversal shapes.
func TestInvariant_NoFileOutsideRoot(t *testing.T) {
	names := []string{
		"../escape.txt",
		"../../escape.txt",
		"a/../../escape.txt",
		"a/b/../../../escape.txt",
	}

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			dest := t.TempDir()
			r := buildZIP(t, func(w *zip.Writer) {
				fw, err := w.Create(name)
				if err != nil {
					t.Fatal(err)
				}
				if _, err := fw.Write([]byte("x")); err != nil {
					t.Fatal(err)
				}
			})

			d, err := New(dest)
			if err != nil {
				t.Fatal(err)
			}

			if _, err := d.ExtractZipReader(r, r.Size()); GetKind(err) != KindPathEscape {
				t.Fatalf("kind = %v, want KindPathEscape", GetKind(err))
			}
		})
	}
}

// TestInvariant_FileCountEnforcedInStreamingMode ensures MaxFileCount is
// enforced on the default streaming path too, not just under
// ModeValidateFirst: FilesExtracted must never exceed the configured cap
// regardless of extraction mode.
func TestInvariant_FileCountEnforcedInStreamingMode(t *testing.T) {
	dest := t.TempDir()
	r := buildZIP(t, func(w *zip.Writer) {
		for i := 0; i < 5; i++ {
			if _, err := w.Create(fmt.Sprintf("f%d", i)); err != nil {
				t.Fatal(err)
			}
		}
	})

	d, err := New(dest, WithLimits(Limits{
		MaxTotalBytes: 1 << 30,
		MaxFileCount:  3,
		MaxSingleFile: 1 << 20,
		MaxPathDepth:  50,
	}))
	if err != nil {
		t.Fatal(err)
	}

	report, err := d.ExtractZipReader(r, r.Size())
	if GetKind(err) != KindFileCountExceeded {
		t.Fatalf("kind = %v, want KindFileCountExceeded", GetKind(err))
	}
	if report.FilesExtracted > 3 {
		t.Errorf("FilesExtracted = %d, want <= 3", report.FilesExtracted)
	}
}

// TestInvariant_OverwriteErrorLeavesFileUnchanged.
func TestInvariant_OverwriteErrorLeavesFileUnchanged(t *testing.T) {
	dest := t.TempDir()
	existing := filepath.Join(dest, "file.txt")
	if err := os.WriteFile(existing, []byte("original"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := buildZIP(t, func(w *zip.Writer) {
		fw, err := w.Create("file.txt")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte("overwritten")); err != nil {
			t.Fatal(err)
		}
	})

	d, err := New(dest)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := d.ExtractZipReader(r, r.Size()); GetKind(err) != KindAlreadyExists {
		t.Fatalf("kind = %v, want KindAlreadyExists", GetKind(err))
	}

	content, err := os.ReadFile(existing)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "original" {
		t.Errorf("content = %q, want %q (unchanged)", content, "original")
	}
}

// TestInvariant_OverwriteSkip verifies existing files are left untouched
// and counted as skipped.
func TestInvariant_OverwriteSkip(t *testing.T) {
	dest := t.TempDir()
	existing := filepath.Join(dest, "file.txt")
	if err := os.WriteFile(existing, []byte("original"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := buildZIP(t, func(w *zip.Writer) {
		fw, err := w.Create("file.txt")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte("overwritten")); err != nil {
			t.Fatal(err)
		}
	})

	d, err := New(dest, WithOverwriteMode(OverwriteSkip))
	if err != nil {
		t.Fatal(err)
	}

	report, err := d.ExtractZipReader(r, r.Size())
	if err != nil {
		t.Fatalf("ExtractZipReader() = %v", err)
	}
	if report.EntriesSkipped != 1 {
		t.Errorf("EntriesSkipped = %d, want 1", report.EntriesSkipped)
	}

	content, err := os.ReadFile(existing)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "original" {
		t.Errorf("content = %q, want %q (unchanged)", content, "original")
	}
}

// TestRoundTrip_IdenticalTrees extracts the same well-formed archive
// twice into fresh destinations and compares the resulting trees.
func TestRoundTrip_IdenticalTrees(t *testing.T) {
	build := func() *bytes.Reader {
		return buildZIP(t, func(w *zip.Writer) {
			fw, err := w.Create("dir/file.txt")
			if err != nil {
				t.Fatal(err)
			}
			if _, err := fw.Write([]byte("content")); err != nil {
				t.Fatal(err)
			}
		})
	}

	var trees [2][]string
	for i := range trees {
		dest := t.TempDir()
		d, err := New(dest)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := d.ExtractZipReader(build(), build().Size()); err != nil {
			t.Fatalf("ExtractZipReader() = %v", err)
		}

		var names []string
		_ = filepath.Walk(dest, func(path string, info os.FileInfo, err error) error {
			rel, _ := filepath.Rel(dest, path)
			names = append(names, rel)
			return nil
		})
		trees[i] = names
	}

	if len(trees[0]) != len(trees[1]) {
		t.Fatalf("tree sizes differ: %v vs %v", trees[0], trees[1])
	}
	for i := range trees[0] {
		if trees[0][i] != trees[1][i] {
			t.Errorf("tree entry %d differs: %q vs %q", i, trees[0][i], trees[1][i])
		}
	}
}

func TestExtractZipReader_Basic(t *testing.T) {
	dest := t.TempDir()
	r := buildZIP(t, func(w *zip.Writer) {
		fw, err := w.Create("a/b/file.txt")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte("payload")); err != nil {
			t.Fatal(err)
		}
	})

	d, err := New(dest)
	if err != nil {
		t.Fatal(err)
	}

	report, err := d.ExtractZipReader(r, r.Size())
	if err != nil {
		t.Fatalf("ExtractZipReader() = %v", err)
	}
	if report.FilesExtracted != 1 {
		t.Errorf("FilesExtracted = %d, want 1", report.FilesExtracted)
	}
	if report.BytesWritten != uint64(len("payload")) {
		t.Errorf("BytesWritten = %d", report.BytesWritten)
	}

	content, err := os.ReadFile(filepath.Join(dest, "a", "b", "file.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "payload" {
		t.Errorf("content = %q", content)
	}
}

func TestExtractTarReader_ValidateFirst(t *testing.T) {
	dest := t.TempDir()
	raw := buildTAR(t, func(w *tar.Writer) {
		content := []byte("hello")
		hdr := &tar.Header{Name: "a.txt", Typeflag: tar.TypeReg, Size: int64(len(content))}
		if err := w.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write(content); err != nil {
			t.Fatal(err)
		}
	})

	d, err := New(dest, WithExtractionMode(ModeValidateFirst))
	if err != nil {
		t.Fatal(err)
	}

	report, err := d.ExtractTarReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("ExtractTarReader() = %v", err)
	}
	if report.FilesExtracted != 1 {
		t.Errorf("FilesExtracted = %d, want 1", report.FilesExtracted)
	}
}

func TestExtractZipFile(t *testing.T) {
	dest := t.TempDir()
	zipPath := filepath.Join(t.TempDir(), "archive.zip")

	r := buildZIP(t, func(w *zip.Writer) {
		fw, err := w.Create("a.txt")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte("x")); err != nil {
			t.Fatal(err)
		}
	})
	raw := make([]byte, r.Size())
	if _, err := r.ReadAt(raw, 0); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(zipPath, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	d, err := New(dest)
	if err != nil {
		t.Fatal(err)
	}

	report, err := d.ExtractZipFile(zipPath)
	if err != nil {
		t.Fatalf("ExtractZipFile() = %v", err)
	}
	if report.FilesExtracted != 1 {
		t.Errorf("FilesExtracted = %d, want 1", report.FilesExtracted)
	}
}
