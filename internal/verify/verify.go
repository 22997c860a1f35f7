package verify

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	pipeerrors "bnvision/internal/errors"
)

// Checksum computes the SHA-256 digest of the archive at archivePath and
// compares it, case-insensitively, against the first whitespace-delimited
// token of the checksum file. The archive is streamed, never loaded whole.
//
// A mismatch is returned as CHECKSUM_MISMATCH; both files are left untouched
// so the corrupt download can be inspected.
func Checksum(archivePath, checksumPath string) error {
	expected, err := readExpectedDigest(checksumPath)
	if err != nil {
		return pipeerrors.Wrap(pipeerrors.CodeFileSystem, "verify", archivePath, err)
	}

	actual, err := fileDigest(archivePath)
	if err != nil {
		return pipeerrors.Wrap(pipeerrors.CodeFileSystem, "verify", archivePath, err)
	}

	if !strings.EqualFold(expected, actual) {
		return pipeerrors.Wrap(pipeerrors.CodeChecksumMismatch, "verify", archivePath,
			fmt.Errorf("expected %s, got %s", expected, actual))
	}

	return nil
}

// readExpectedDigest extracts the hex digest token from a vendor .CHECKSUM
// file (format: "<digest>  <filename>").
func readExpectedDigest(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open checksum file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Split(bufio.ScanWords)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("failed to read checksum file: %w", err)
		}
		return "", fmt.Errorf("checksum file %s is empty", path)
	}

	return scanner.Text(), nil
}

// fileDigest streams the file through SHA-256.
func fileDigest(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open archive: %w", err)
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", fmt.Errorf("failed to hash archive: %w", err)
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}
