package files

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Manager provides the logged filesystem operations shared by the fetch and
// conversion pipelines. Callers pass full paths; the manager never resolves
// against a root of its own.
type Manager struct {
	logger *slog.Logger
}

// NewManager creates a file manager.
func NewManager(logger *slog.Logger) *Manager {
	return &Manager{logger: logger}
}

// EnsureDirectory creates a directory if it doesn't exist.
func (m *Manager) EnsureDirectory(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		m.logger.Debug("Creating directory", slog.String("path", path))
		return os.MkdirAll(path, 0755)
	}
	return nil
}

// DeleteFile deletes a file.
func (m *Manager) DeleteFile(path string) error {
	m.logger.Debug("Deleting file", slog.String("path", path))

	return os.Remove(path)
}

// MoveFile moves a file, falling back to copy and delete across filesystems.
func (m *Manager) MoveFile(src, dst string) error {
	m.logger.Debug("Moving file",
		slog.String("src", src),
		slog.String("dst", dst))

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	if err := m.CopyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

// CopyFile copies a file from source to destination.
func (m *Manager) CopyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dstFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return fmt.Errorf("failed to copy file content: %w", err)
	}

	return dstFile.Sync()
}

// GetFileSize returns the size of a file in bytes.
func (m *Manager) GetFileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
