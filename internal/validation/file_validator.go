package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"finops/internal/errors"
)

// FileValidator checks pipeline inputs and outputs before a run starts, so a
// bad path fails fast instead of after the generator or cleaner has run.
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// ValidateFile checks that path exists, is a regular file and can be opened.
// A missing file is a NOT_FOUND error.
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist", slog.String("file", path))
		return errors.NewNotFoundError("file " + path)
	}
	if err != nil {
		v.logger.Error("Failed to stat file",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return errors.NewStorageError("failed to stat "+path, err)
	}
	if info.IsDir() {
		v.logger.Error("Path is a directory, not a file", slog.String("path", path))
		return errors.NewAppValidationError(fmt.Sprintf("%s is a directory, not a file", path))
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return errors.NewStorageError(path+" is not readable", err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateCSVFile checks an input table
func (v *FileValidator) ValidateCSVFile(path string) error {
	if err := v.checkExtension(path, ".csv"); err != nil {
		return err
	}
	return v.ValidateFile(path)
}

// ValidateOutputDirectory ensures dir exists or can be created, and is
// writable
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return errors.NewStorageError("failed to create output directory "+dir, err)
	}

	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return errors.NewStorageError("output directory "+dir+" is not writable", err)
	}
	file.Close()
	os.Remove(testFile)

	v.logger.Debug("Output directory validated", slog.String("directory", dir))
	return nil
}

// ValidateOutputFile checks that path has one of exts and that its directory
// is writable
func (v *FileValidator) ValidateOutputFile(path string, exts ...string) error {
	if err := v.checkExtension(path, exts...); err != nil {
		return err
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return errors.NewAppValidationError(fmt.Sprintf("%s is a directory, not a file", path))
	}
	return v.ValidateOutputDirectory(filepath.Dir(path))
}

func (v *FileValidator) checkExtension(path string, exts ...string) error {
	if len(exts) == 0 {
		return nil
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, want := range exts {
		if ext == want {
			return nil
		}
	}
	v.logger.Error("Unexpected file extension",
		slog.String("file", path),
		slog.String("extension", ext))
	return errors.NewAppValidationError(fmt.Sprintf("%s must have extension %s", path, strings.Join(exts, " or ")))
}
