package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

const metaSuffix = ".meta.json"

// Entry describes one file found by FindAll.
type Entry struct {
	Path      string
	Name      string
	Timestamp string // empty for bare or unparseable names
	ModTime   time.Time
}

// Store manages the per-user artifact directory tree. All writes are
// append-only: a new timestamped file per store, never an in-place update.
type Store struct {
	root  string
	clock *Clock
}

// NewStore creates a store rooted at the given user data directory.
func NewStore(root string) *Store {
	return &Store{root: root, clock: NewClock()}
}

// Root returns the store's base directory.
func (s *Store) Root() string { return s.root }

// Clock returns the store's timestamp source.
func (s *Store) Clock() *Clock { return s.clock }

// AnalysisDir returns the analysis artifact directory for a company.
func (s *Store) AnalysisDir(company string) string {
	return filepath.Join(s.root, "cv-analysis", company)
}

// OriginalCVDir returns the directory holding original CV files.
func (s *Store) OriginalCVDir() string {
	return filepath.Join(s.root, "cvs", "original")
}

// TailoredCVDir returns the directory holding tailored CV files.
func (s *Store) TailoredCVDir() string {
	return filepath.Join(s.root, "cvs", "tailored")
}

// FindAll scans a directory for files matching {prefix}_{timestamp}.{ext} or
// the bare {prefix}.{ext}, sorted newest first. Bare and unparseable names
// sort below all timestamped files, ordered by modification time among
// themselves. A missing directory yields an empty result.
func FindAll(dir, prefix, ext string) []Entry {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var entries []Entry
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		name := de.Name()
		if len(name) > len(metaSuffix) && name[len(name)-len(metaSuffix):] == metaSuffix {
			continue
		}
		ts, matched := timestampFromName(name, prefix, ext)
		if !matched {
			continue
		}
		info, err := de.Info()
		var mod time.Time
		if err == nil {
			mod = info.ModTime()
		}
		entries = append(entries, Entry{
			Path:      filepath.Join(dir, name),
			Name:      name,
			Timestamp: ts,
			ModTime:   mod,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Timestamp != entries[j].Timestamp {
			return entries[i].Timestamp > entries[j].Timestamp
		}
		return entries[i].ModTime.After(entries[j].ModTime)
	})
	return entries
}

// FindLatest returns the most recent file matching the prefix and extension,
// falling back to the bare {prefix}.{ext} when no timestamped file exists.
// The second return is false when nothing matches.
func FindLatest(dir, prefix, ext string) (string, bool) {
	entries := FindAll(dir, prefix, ext)
	if len(entries) == 0 {
		return "", false
	}
	return entries[0].Path, true
}

// WriteFileAtomic writes data to path via a temporary file and rename, so a
// concurrent reader never observes a partially written artifact.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to rename temp file into place: %w", err)
	}
	return nil
}

// Write persists a new timestamped artifact plus its metadata sidecar and
// returns the resulting artifact. Prior artifacts are never touched.
func (s *Store) Write(company string, stage Stage, payload []byte, contentHash string) (*Artifact, error) {
	dir := s.dirFor(company, stage)
	ts := s.clock.Timestamp()
	name := fmt.Sprintf("%s_%s.%s", stage.FilePrefix(company), ts, stage.Ext())
	path := filepath.Join(dir, name)

	if err := WriteFileAtomic(path, payload); err != nil {
		return nil, err
	}

	meta := &Meta{
		ContentHash: contentHash,
		Stage:       stage,
		Company:     company,
		CreatedAt:   time.Now().UTC(),
	}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal artifact metadata: %w", err)
	}
	if err := WriteFileAtomic(path+metaSuffix, metaBytes); err != nil {
		return nil, err
	}

	return &Artifact{
		Company:   company,
		Stage:     stage,
		Path:      path,
		Timestamp: ts,
		Payload:   payload,
		Meta:      meta,
	}, nil
}

// Load reads the artifact at path along with its sidecar, if present.
func (s *Store) Load(company string, stage Stage, path, ts string) (*Artifact, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %s: %w", path, err)
	}
	art := &Artifact{
		Company:   company,
		Stage:     stage,
		Path:      path,
		Timestamp: ts,
		Payload:   payload,
	}
	art.Meta = readMeta(path)
	return art, nil
}

// Latest returns the most recent artifact for (company, stage), or nil when
// none exists.
func (s *Store) Latest(company string, stage Stage) (*Artifact, error) {
	dir := s.dirFor(company, stage)
	entries := FindAll(dir, stage.FilePrefix(company), stage.Ext())
	if len(entries) == 0 {
		return nil, nil
	}
	return s.Load(company, stage, entries[0].Path, entries[0].Timestamp)
}

// All returns every artifact entry for (company, stage), newest first.
func (s *Store) All(company string, stage Stage) []Entry {
	dir := s.dirFor(company, stage)
	return FindAll(dir, stage.FilePrefix(company), stage.Ext())
}

// dirFor maps a stage to its directory. Tailored CVs live outside the
// analysis tree so the CV selector can resolve them as CV variants.
func (s *Store) dirFor(company string, stage Stage) string {
	if stage == StageTailoredCV {
		return s.TailoredCVDir()
	}
	return s.AnalysisDir(company)
}

// readMeta loads the metadata sidecar next to an artifact. A missing or
// unreadable sidecar marks the artifact as legacy.
func readMeta(artifactPath string) *Meta {
	data, err := os.ReadFile(artifactPath + metaSuffix)
	if err != nil {
		return nil
	}
	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil
	}
	return &meta
}
