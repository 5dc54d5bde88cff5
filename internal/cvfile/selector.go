package cvfile

import (
	"fmt"
	"os"
	"strings"

	"github.com/jonathan/cv-match/internal/artifact"
)

// CVType distinguishes the two CV variants a run can read.
type CVType string

const (
	TypeOriginal CVType = "original"
	TypeTailored CVType = "tailored"
)

// Selection is the resolved choice of CV file for one pipeline invocation.
// It is derived from current directory contents and never persisted; Version
// in particular is recomputed on every resolution and changes as tailored CVs
// accumulate.
type Selection struct {
	CVType     CVType
	Version    string
	SourcePath string
	Timestamp  string
	Exists     bool
	Reason     string
}

// Text reads the selected CV file. Callers must check Exists first.
func (s *Selection) Text() (string, error) {
	if !s.Exists {
		return "", fmt.Errorf("no CV file resolved: %s", s.Reason)
	}
	data, err := os.ReadFile(s.SourcePath)
	if err != nil {
		return "", fmt.Errorf("failed to read CV file %s: %w", s.SourcePath, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Selector resolves CV files against an artifact store.
type Selector struct {
	store *artifact.Store
}

// NewSelector creates a selector over the given store.
func NewSelector(store *artifact.Store) *Selector {
	return &Selector{store: store}
}

// Resolve picks the CV file for a run.
//
// A rerun requires the latest tailored CV for the company; its absence is a
// hard error, never a fallback to the original. A fresh run always uses the
// latest original CV (a bare original_cv.txt serves as the static fallback),
// ignoring tailored variants entirely.
func (s *Selector) Resolve(company string, isRerun bool) (*Selection, error) {
	if isRerun {
		entries := s.tailoredEntries(company)
		if len(entries) == 0 {
			return nil, &TailoredNotFoundError{Company: company}
		}
		return &Selection{
			CVType:     TypeTailored,
			Version:    fmt.Sprintf("%d.0", len(entries)),
			SourcePath: entries[0].Path,
			Timestamp:  entries[0].Timestamp,
			Exists:     true,
		}, nil
	}

	entries := artifact.FindAll(s.store.OriginalCVDir(), "original_cv", "txt")
	if len(entries) == 0 {
		return &Selection{
			CVType: TypeOriginal,
			Exists: false,
			Reason: "no original CV found",
		}, nil
	}
	return &Selection{
		CVType:     TypeOriginal,
		Version:    "1.0",
		SourcePath: entries[0].Path,
		Timestamp:  entries[0].Timestamp,
		Exists:     true,
	}, nil
}

// ResolveLatestOverall ignores the rerun distinction and picks whichever of
// the original and tailored CVs carries the greatest timestamp, breaking ties
// by file modification time.
//
// This is an alternate selection policy kept as a distinct operation: some
// callers define "the right CV" as the newest one regardless of variant.
// Whether the two policies should converge is pending product clarification.
func (s *Selector) ResolveLatestOverall(company string) (*Selection, error) {
	original := artifact.FindAll(s.store.OriginalCVDir(), "original_cv", "txt")
	tailored := s.tailoredEntries(company)

	var (
		best     *artifact.Entry
		bestType CVType
	)
	if len(original) > 0 {
		best = &original[0]
		bestType = TypeOriginal
	}
	if len(tailored) > 0 {
		t := &tailored[0]
		if best == nil || newer(t, best) {
			best = t
			bestType = TypeTailored
		}
	}

	if best == nil {
		return &Selection{
			Exists: false,
			Reason: fmt.Sprintf("no original or tailored CV found for company %s", company),
		}, nil
	}

	sel := &Selection{
		CVType:     bestType,
		Version:    "1.0",
		SourcePath: best.Path,
		Timestamp:  best.Timestamp,
		Exists:     true,
	}
	if bestType == TypeTailored {
		sel.Version = fmt.Sprintf("%d.0", len(tailored))
	}
	return sel, nil
}

func (s *Selector) tailoredEntries(company string) []artifact.Entry {
	prefix := artifact.StageTailoredCV.FilePrefix(company)
	return artifact.FindAll(s.store.TailoredCVDir(), prefix, "txt")
}

// newer reports whether a sorts after b by embedded timestamp, falling back
// to file modification time when timestamps tie or are absent.
func newer(a, b *artifact.Entry) bool {
	if a.Timestamp != b.Timestamp {
		return a.Timestamp > b.Timestamp
	}
	return a.ModTime.After(b.ModTime)
}
