package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrCorrupt marks an unreadable state file. This aborts the whole run:
// guessing at progress risks re-uploading or skipping chapters.
var ErrCorrupt = errors.New("corrupt state file")

// SeriesState is the persisted progress record for one series.
// LastProcessedChapter is the high-water mark: the largest chapter number
// whose full pipeline completed successfully. It only ever increases.
type SeriesState struct {
	LastProcessedChapter int    `json:"last_processed_chapter"`
	LastProcessed        string `json:"last_processed"`
	ChapterTitle         string `json:"chapter_title"`
	UploadSuccess        bool   `json:"upload_success"`
}

// Store holds the whole state document, loaded once at run start and
// rewritten after every recorded outcome. Not safe for concurrent
// invocations against the same file; the scheduler must not overlap runs.
type Store struct {
	path    string
	entries map[string]SeriesState
	now     func() time.Time
}

const timeLayout = "2006-01-02 15:04:05"

// Load reads the state file. A missing file means nothing has been
// processed yet; unparseable content is ErrCorrupt.
func Load(path string) (*Store, error) {
	s := &Store{
		path:    path,
		entries: map[string]SeriesState{},
		now:     time.Now,
	}

	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}

	if err := json.Unmarshal(b, &s.entries); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}

	return s, nil
}

// Get returns the state for a series, zero-valued when the series has never
// been processed.
func (s *Store) Get(seriesID string) SeriesState {
	return s.entries[seriesID]
}

// RecordSuccess advances the high-water mark for a series and persists.
// The mark is strictly increasing; a stale chapter number is rejected.
func (s *Store) RecordSuccess(seriesID string, chapterNumber int, chapterTitle string) error {
	cur := s.entries[seriesID]
	if chapterNumber <= cur.LastProcessedChapter {
		return fmt.Errorf("chapter %d does not advance past %d for %s",
			chapterNumber, cur.LastProcessedChapter, seriesID)
	}

	s.entries[seriesID] = SeriesState{
		LastProcessedChapter: chapterNumber,
		LastProcessed:        s.now().Format(timeLayout),
		ChapterTitle:         chapterTitle,
		UploadSuccess:        true,
	}

	return s.save()
}

// RecordFailure notes a failed attempt without advancing the high-water
// mark, so the chapter stays pending for the next invocation.
func (s *Store) RecordFailure(seriesID string) error {
	cur := s.entries[seriesID]
	cur.LastProcessed = s.now().Format(timeLayout)
	cur.UploadSuccess = false
	s.entries[seriesID] = cur

	return s.save()
}

// Reset drops a series from the state file so its whole history is pending
// again. A missing entry is not an error.
func (s *Store) Reset(seriesID string) error {
	if _, ok := s.entries[seriesID]; !ok {
		return nil
	}
	delete(s.entries, seriesID)
	return s.save()
}

// All returns a copy of every persisted entry, for display.
func (s *Store) All() map[string]SeriesState {
	out := make(map[string]SeriesState, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out
}

// save writes the whole document through a temp file and rename so a crash
// mid-write never leaves a truncated state file behind.
func (s *Store) save() error {
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".state-*.tmp")
	if err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write state file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write state file: %w", err)
	}

	return nil
}
