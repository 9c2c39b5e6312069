package store

import (
	"io"
	"time"

	"github.com/readalong/readalong-server/internal/errors"
)

// Backup streams a full snapshot of the database to w in Badger's
// backup format. The snapshot is consistent: writes that land while the
// backup runs are not included.
func (s *Store) Backup(w io.Writer) (uint64, error) {
	start := time.Now()

	since, err := s.db.Backup(w, 0)
	if err != nil {
		return 0, errors.Wrap(err, errors.CodePersistence, "backup database")
	}

	if s.logger != nil {
		s.logger.Info("backup complete",
			"version", since,
			"duration", time.Since(start))
	}
	return since, nil
}

// Restore loads a Badger backup stream into the database. Existing keys
// present in the stream are overwritten; keys absent from the stream are
// left alone.
func (s *Store) Restore(r io.Reader) error {
	start := time.Now()

	// maxPendingWrites per badger's recommended default.
	if err := s.db.Load(r, 256); err != nil {
		return errors.Wrap(err, errors.CodePersistence, "restore database")
	}

	if s.logger != nil {
		s.logger.Info("restore complete", "duration", time.Since(start))
	}
	return nil
}
