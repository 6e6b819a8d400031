package fileops_test

import (
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/gomega" //nolint:revive // Gomega convention

	"github.com/joe/offloader/pkg/fileops"
)

// writeRandomFile creates a file of the given size with random content.
func writeRandomFile(t *testing.T, path string, size int) {
	t.Helper()

	data := make([]byte, size)

	_, err := rand.Read(data)
	if err != nil {
		t.Fatalf("failed to generate random data: %v", err)
	}

	err = os.WriteFile(path, data, 0o600)
	if err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
}

func TestCopyFileChunkedCompleteness(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		size int
	}{
		{name: "empty file", size: 0},
		{name: "smaller than one chunk", size: 100},
		{name: "exactly one chunk", size: fileops.ChunkSize},
		{name: "multiple chunks with remainder", size: fileops.ChunkSize*2 + 12345},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			gomega := NewWithT(t)

			dir := t.TempDir()
			src := filepath.Join(dir, "src.bin")
			dst := filepath.Join(dir, "out", "dst.bin")
			writeRandomFile(t, src, testCase.size)

			var lastReported int64

			written, err := fileops.CopyFileChunked(src, dst, func(done int64) {
				lastReported = done
			}, nil)

			gomega.Expect(err).ToNot(HaveOccurred())
			gomega.Expect(written).To(Equal(int64(testCase.size)))

			dstInfo, err := os.Stat(dst)
			gomega.Expect(err).ToNot(HaveOccurred())
			gomega.Expect(dstInfo.Size()).To(Equal(int64(testCase.size)))

			if testCase.size > 0 {
				gomega.Expect(lastReported).To(Equal(int64(testCase.size)))
			}

			srcSum, err := fileops.MD5File(src)
			gomega.Expect(err).ToNot(HaveOccurred())
			dstSum, err := fileops.MD5File(dst)
			gomega.Expect(err).ToNot(HaveOccurred())
			gomega.Expect(dstSum).To(Equal(srcSum))
		})
	}
}

func TestCopyFileChunkedPreservesModTime(t *testing.T) {
	t.Parallel()

	gomega := NewWithT(t)

	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")
	writeRandomFile(t, src, 64)

	modTime := time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)
	gomega.Expect(os.Chtimes(src, modTime, modTime)).To(Succeed())

	_, err := fileops.CopyFileChunked(src, dst, nil, nil)
	gomega.Expect(err).ToNot(HaveOccurred())

	info, err := os.Stat(dst)
	gomega.Expect(err).ToNot(HaveOccurred())
	gomega.Expect(info.ModTime().UTC()).To(Equal(modTime))
}

func TestCopyFileChunkedCancellation(t *testing.T) {
	t.Parallel()

	gomega := NewWithT(t)

	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")
	writeRandomFile(t, src, 256)

	cancelChan := make(chan struct{})
	close(cancelChan)

	_, err := fileops.CopyFileChunked(src, dst, nil, cancelChan)
	gomega.Expect(err).To(MatchError(fileops.ErrCopyCancelled))

	// Partial destination must be cleaned up
	_, statErr := os.Stat(dst)
	gomega.Expect(os.IsNotExist(statErr)).To(BeTrue())
}

func TestCopyFileChunkedMissingSource(t *testing.T) {
	t.Parallel()

	gomega := NewWithT(t)

	dir := t.TempDir()

	_, err := fileops.CopyFileChunked(
		filepath.Join(dir, "missing.bin"), filepath.Join(dir, "dst.bin"), nil, nil)
	gomega.Expect(err).To(HaveOccurred())
}

func TestMD5FileMatchesKnownDigest(t *testing.T) {
	t.Parallel()

	gomega := NewWithT(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "known.txt")
	gomega.Expect(os.WriteFile(path, []byte("hello world"), 0o600)).To(Succeed())

	sum, err := fileops.MD5File(path)
	gomega.Expect(err).ToNot(HaveOccurred())
	gomega.Expect(sum).To(Equal("5eb63bbbe01eeed093cb22bb8f5acdc3"))
}
