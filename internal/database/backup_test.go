package database

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"fonteyn/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerformBackup(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "source.db")
	require.NoError(t, os.WriteFile(dbPath, []byte("sqlite payload"), 0o644))

	logger := zerolog.Nop()
	svc := NewBackupService(dbPath, config.BackupConfig{
		Enabled:     true,
		StoragePath: filepath.Join(tempDir, "backups"),
	}, &logger)

	require.NoError(t, svc.PerformBackup())

	entries, err := os.ReadDir(filepath.Join(tempDir, "backups"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Name(), "backup_")

	data, err := os.ReadFile(filepath.Join(tempDir, "backups", entries[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, "sqlite payload", string(data))
}

func TestPerformBackup_MissingSource(t *testing.T) {
	logger := zerolog.Nop()
	svc := NewBackupService(filepath.Join(t.TempDir(), "missing.db"), config.BackupConfig{
		StoragePath: t.TempDir(),
	}, &logger)

	assert.Error(t, svc.PerformBackup())
}

func TestCleanupOldBackups(t *testing.T) {
	tempDir := t.TempDir()
	storage := filepath.Join(tempDir, "backups")
	require.NoError(t, os.MkdirAll(storage, 0o755))

	oldPath := filepath.Join(storage, "backup_old.db")
	newPath := filepath.Join(storage, "backup_new.db")
	require.NoError(t, os.WriteFile(oldPath, []byte("old"), 0o644))
	require.NoError(t, os.WriteFile(newPath, []byte("new"), 0o644))

	stale := time.Now().AddDate(0, 0, -30)
	require.NoError(t, os.Chtimes(oldPath, stale, stale))

	logger := zerolog.Nop()
	svc := NewBackupService("", config.BackupConfig{
		StoragePath:   storage,
		RetentionDays: 14,
	}, &logger)

	svc.CleanupOldBackups()

	assert.NoFileExists(t, oldPath)
	assert.FileExists(t, newPath)
}
