package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthops/internal/config"
)

func TestBackupService(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	logger := zerolog.Nop()

	st, err := NewSQLiteStore(filepath.Join(dir, "docs.db"), &logger)
	require.NoError(t, err)
	defer st.Close()

	id, err := st.Push(ctx, "camps", Document{"campCode": "CMP-20260110-ABC123"})
	require.NoError(t, err)

	backupDir := filepath.Join(dir, "backups")
	s := NewBackupService(st, config.BackupConfig{Enabled: true, Dir: backupDir, RetentionDays: 1}, &logger)

	t.Run("PerformBackup", func(t *testing.T) {
		path, err := s.PerformBackup(ctx)
		require.NoError(t, err)
		assert.Equal(t, backupDir, filepath.Dir(path))

		restored, err := NewSQLiteStore(path, &logger)
		require.NoError(t, err)
		defer restored.Close()

		doc, err := restored.Get(ctx, Path("camps", id))
		require.NoError(t, err)
		assert.Equal(t, "CMP-20260110-ABC123", doc["campCode"])

		_, err = s.PerformBackup(ctx)
		if err == nil {
			// the clock moved to the next second
			return
		}
		assert.Contains(t, err.Error(), "already exists")
	})

	t.Run("CleanupOldBackups", func(t *testing.T) {
		old := filepath.Join(backupDir, backupPrefix+"20200101_000000.db")
		foreign := filepath.Join(backupDir, "notes.db")
		for _, f := range []string{old, foreign} {
			require.NoError(t, os.WriteFile(f, []byte("old"), 0o644))
			past := time.Now().AddDate(0, 0, -3)
			require.NoError(t, os.Chtimes(f, past, past))
		}

		assert.Equal(t, 1, s.CleanupOldBackups())
		assert.NoFileExists(t, old)
		assert.FileExists(t, foreign)

		files, err := os.ReadDir(backupDir)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(files), 2, "fresh backup and foreign file remain")
	})

	t.Run("Disabled", func(t *testing.T) {
		off := NewBackupService(st, config.BackupConfig{}, &logger)
		done := make(chan struct{})
		go func() {
			off.Start(ctx)
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("disabled backup service did not return")
		}
	})
}
