// Package fileops provides file operation utilities for chunked copying,
// content digests, and source-volume scanning.
package fileops

import (
	"crypto/md5" //nolint:gosec // Corruption detection, not security
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Exported constants.
const (
	// ChunkSize is the copy chunk size (4 MiB, sized for large footage files).
	ChunkSize = 4 * 1024 * 1024
	// DefaultDirPermissions is the default permission mode for created directories.
	DefaultDirPermissions = 0o750
)

// Exported variables.
var (
	ErrCopyCancelled = errors.New("copy cancelled")
)

// ProgressCallback is called after every chunk with the cumulative bytes
// written for the current file.
type ProgressCallback func(bytesCopied int64)

// CopyFileChunked copies src to dst in ChunkSize chunks, invoking progress
// after each chunk. The cancellation channel is checked before every chunk
// read; on cancellation (or any error) the partially written destination file
// is removed. On success the source's modification time is preserved on the
// destination.
func CopyFileChunked(src, dst string, progress ProgressCallback, cancelChan <-chan struct{}) (int64, error) {
	sourceFile, err := os.Open(src) // #nosec G304 - file path is controlled by caller
	if err != nil {
		return 0, fmt.Errorf("failed to open source file %s: %w", src, err)
	}

	defer func() {
		_ = sourceFile.Close()
	}()

	sourceInfo, err := sourceFile.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat source file %s: %w", src, err)
	}

	err = os.MkdirAll(filepath.Dir(dst), DefaultDirPermissions)
	if err != nil {
		return 0, fmt.Errorf("failed to create destination directory for %s: %w", dst, err)
	}

	destFile, err := os.Create(dst) // #nosec G304 - file path is controlled by caller
	if err != nil {
		return 0, fmt.Errorf("failed to create destination file %s: %w", dst, err)
	}

	copyCompleted := false

	defer func() {
		_ = destFile.Close()
		// Cancelled or failed copies must not leave a partial file behind
		if !copyCompleted {
			_ = os.Remove(dst)
		}
	}()

	written, err := chunkedCopyLoop(sourceFile, destFile, progress, cancelChan)
	if err != nil {
		return written, fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}

	// Close before touching times; some network filesystems only flush on close
	err = destFile.Close()
	if err != nil {
		return written, fmt.Errorf("failed to close destination file %s: %w", dst, err)
	}

	err = os.Chtimes(dst, sourceInfo.ModTime(), sourceInfo.ModTime())
	if err != nil {
		return written, fmt.Errorf("failed to preserve modification time for %s: %w", dst, err)
	}

	copyCompleted = true

	return written, nil
}

// MD5File computes the MD5 digest of a file's contents, reading in ChunkSize
// chunks. MD5 is used for corruption detection where speed matters more than
// cryptographic strength.
func MD5File(path string) (string, error) {
	file, err := os.Open(path) // #nosec G304 - file path is controlled by caller
	if err != nil {
		return "", fmt.Errorf("failed to open file %s: %w", path, err)
	}

	defer func() {
		_ = file.Close()
	}()

	hash := md5.New() //nolint:gosec // Corruption detection, not security

	_, err = io.CopyBuffer(hash, file, make([]byte, ChunkSize))
	if err != nil {
		return "", fmt.Errorf("failed to read file %s for hashing: %w", path, err)
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}

// checkCancellation checks if the copy operation has been cancelled.
func checkCancellation(cancelChan <-chan struct{}) error {
	if cancelChan == nil {
		return nil
	}

	select {
	case <-cancelChan:
		return ErrCopyCancelled
	default:
		return nil
	}
}

// chunkedCopyLoop performs the chunked copy with cancellation and progress.
func chunkedCopyLoop(sourceFile, destFile *os.File, progress ProgressCallback, cancelChan <-chan struct{}) (int64, error) {
	var written int64

	buf := make([]byte, ChunkSize)

	for {
		err := checkCancellation(cancelChan)
		if err != nil {
			return written, err
		}

		nr, err := sourceFile.Read(buf) //nolint:varnamelen // nr is idiomatic for bytes read
		if nr > 0 {
			nw, werr := destFile.Write(buf[0:nr]) //nolint:varnamelen // nw is idiomatic for bytes written
			if werr != nil {
				return written, fmt.Errorf("failed to write to destination: %w", werr)
			}

			if nr != nw {
				return written, fmt.Errorf("short write: %w", io.ErrShortWrite)
			}

			written += int64(nw)

			if progress != nil {
				progress(written)
			}
		}

		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return written, fmt.Errorf("failed to read from source: %w", err)
		}
	}

	return written, nil
}
