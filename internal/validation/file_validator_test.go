package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finops/internal/errors"
	"finops/internal/shared/testutil"
)

func TestFileValidator_ValidateCSVFile(t *testing.T) {
	dir := t.TempDir()
	csvFile := filepath.Join(dir, "sample_sales_data.csv")
	require.NoError(t, os.WriteFile(csvFile, []byte("date,region\n"), 0o644))
	txtFile := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txtFile, []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "folder.csv"), 0o755))

	tests := []struct {
		name     string
		path     string
		wantType errors.ErrorType
		contains string
	}{
		{name: "valid csv", path: csvFile},
		{name: "missing file", path: filepath.Join(dir, "missing.csv"), wantType: errors.ErrTypeNotFound},
		{name: "wrong extension", path: txtFile, wantType: errors.ErrTypeValidation, contains: "must have extension .csv"},
		{name: "directory", path: filepath.Join(dir, "folder.csv"), wantType: errors.ErrTypeValidation, contains: "is a directory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := testutil.NewTestLogger(t)
			err := NewFileValidator(logger).ValidateCSVFile(tt.path)
			if tt.wantType == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsType(err, tt.wantType), err.Error())
			if tt.contains != "" {
				assert.Contains(t, err.Error(), tt.contains)
			}
		})
	}
}

func TestFileValidator_ValidateOutputDirectory(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	v := NewFileValidator(logger)

	dir := filepath.Join(t.TempDir(), "nested", "reports")
	require.NoError(t, v.ValidateOutputDirectory(dir))
	assert.DirExists(t, dir)
	assert.NoFileExists(t, filepath.Join(dir, ".write_test"))
	assert.True(t, logs.ContainsMessage("Output directory validated"))

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	err := v.ValidateOutputDirectory(filepath.Join(blocker, "sub"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeStorage))
}

func TestFileValidator_ValidateOutputFile(t *testing.T) {
	v := NewFileValidator(nil)
	dir := t.TempDir()

	require.NoError(t, v.ValidateOutputFile(filepath.Join(dir, "out", "report.xlsx"), ".xlsx"))
	assert.DirExists(t, filepath.Join(dir, "out"))

	require.NoError(t, v.ValidateOutputFile(filepath.Join(dir, "REPORT.XLSX"), ".xlsx"), "extensions compare case-insensitively")
	require.NoError(t, v.ValidateOutputFile(filepath.Join(dir, "any.bin")))

	err := v.ValidateOutputFile(filepath.Join(dir, "report.csv"), ".xlsx")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))

	err = v.ValidateOutputFile(dir+string(filepath.Separator)+"out.csv", ".csv")
	assert.NoError(t, err)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "taken.csv"), 0o755))
	err = v.ValidateOutputFile(filepath.Join(dir, "taken.csv"), ".csv")
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
}
