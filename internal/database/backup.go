package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// BackupService periodically snapshots the database into a directory and
// removes snapshots older than the retention window.
type BackupService struct {
	db            *DB
	dir           string
	interval      time.Duration
	retentionDays int
	logger        *zerolog.Logger
	now           func() time.Time
}

func NewBackupService(db *DB, dir string, interval time.Duration, retentionDays int, logger *zerolog.Logger) *BackupService {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &BackupService{
		db:            db,
		dir:           dir,
		interval:      interval,
		retentionDays: retentionDays,
		logger:        logger,
		now:           time.Now,
	}
}

// Start runs a backup immediately and then on every interval until ctx ends.
func (s *BackupService) Start(ctx context.Context) {
	s.logger.Info().Str("dir", s.dir).Dur("interval", s.interval).Msg("Backup service started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	if _, err := s.PerformBackup(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Initial backup failed")
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.PerformBackup(ctx); err != nil {
				s.logger.Error().Err(err).Msg("Scheduled backup failed")
			}
			s.CleanupOldBackups()
		}
	}
}

// PerformBackup writes a consistent snapshot and returns its path.
func (s *BackupService) PerformBackup(ctx context.Context) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}

	name := fmt.Sprintf("backup_%s.db", s.now().Format("20060102_150405"))
	path := filepath.Join(s.dir, name)

	s.logger.Info().Str("path", path).Msg("Performing database backup")

	// VACUUM INTO refuses to overwrite an existing file.
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("backup %s already exists", path)
	}
	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", path); err != nil {
		return "", fmt.Errorf("vacuum into %s: %w", path, err)
	}

	s.logger.Info().Msg("Backup completed successfully")
	return path, nil
}

// CleanupOldBackups removes snapshots past the retention window.
func (s *BackupService) CleanupOldBackups() int {
	if s.retentionDays <= 0 {
		return 0
	}

	files, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read backup directory for cleanup")
		return 0
	}

	cutoff := s.now().AddDate(0, 0, -s.retentionDays)
	removed := 0
	for _, file := range files {
		if file.IsDir() || !strings.HasPrefix(file.Name(), "backup_") {
			continue
		}
		info, err := file.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			s.logger.Info().Str("file", file.Name()).Msg("Deleting old backup")
			if err := os.Remove(filepath.Join(s.dir, file.Name())); err == nil {
				removed++
			}
		}
	}
	return removed
}
