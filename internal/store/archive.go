package store

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	apperrors "github.com/planboard/planboard/internal/errors"
	"github.com/planboard/planboard/internal/model"
)

// ExportArchive writes a zip containing the three collection files as they
// currently stand in memory.
func (s *Store) ExportArchive(w io.Writer) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	zw := zip.NewWriter(w)
	entries := []struct {
		kind Kind
		data interface{}
	}{
		{KindPersonnel, s.personnel},
		{KindTasks, s.tasks},
		{KindLogs, s.logs},
	}
	for _, e := range entries {
		f, err := zw.Create(e.kind.filename())
		if err != nil {
			return fmt.Errorf("creating archive entry %s: %w", e.kind, err)
		}
		data, err := json.MarshalIndent(e.data, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding %s: %w", e.kind, err)
		}
		if _, err := f.Write(data); err != nil {
			return fmt.Errorf("writing archive entry %s: %w", e.kind, err)
		}
	}
	return zw.Close()
}

// ImportArchive replaces all three collections from a backup zip. The
// archive is fully parsed and validated before anything is persisted;
// entries absent from the archive become empty collections.
func (s *Store) ImportArchive(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading archive: %w", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}

	var (
		personnel []model.Person
		tasks     []model.Task
		logs      []model.LogEntry
	)
	for _, f := range zr.File {
		var dst interface{}
		switch f.Name {
		case KindPersonnel.filename():
			dst = &personnel
		case KindTasks.filename():
			dst = &tasks
		case KindLogs.filename():
			dst = &logs
		default:
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("opening archive entry %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return fmt.Errorf("reading archive entry %s: %w", f.Name, err)
		}
		if len(data) == 0 {
			continue
		}
		if err := json.Unmarshal(data, dst); err != nil {
			return fmt.Errorf("parsing archive entry %s: %w", f.Name, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeFile(s.path(KindPersonnel), personnel); err != nil {
		return apperrors.NewPersistenceError(string(KindPersonnel), "save", err)
	}
	if err := writeFile(s.path(KindTasks), tasks); err != nil {
		return apperrors.NewPersistenceError(string(KindTasks), "save", err)
	}
	if err := writeFile(s.path(KindLogs), logs); err != nil {
		return apperrors.NewPersistenceError(string(KindLogs), "save", err)
	}
	s.personnel = personnel
	s.tasks = tasks
	s.logs = logs

	s.logger.Info().
		Int("personnel", len(personnel)).
		Int("tasks", len(tasks)).
		Int("logs", len(logs)).
		Msg("collections restored from archive")
	return nil
}
