// Package ingestion acquires job description text for analysis, either from
// a local file or by fetching and extracting a job posting URL.
package ingestion

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// JobDescription is the normalized input handed to the analysis pipeline.
type JobDescription struct {
	Source   string
	Text     string
	Platform Platform
}

// Error represents a failure to acquire job description text.
type Error struct {
	Source  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("ingestion error for %s: %s: %v", e.Source, e.Message, e.Cause)
	}
	return fmt.Sprintf("ingestion error for %s: %s", e.Source, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// FromFile reads job description text from a local file.
func FromFile(path string) (*JobDescription, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Source: path, Message: "failed to read file", Cause: err}
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, &Error{Source: path, Message: "file contains no text"}
	}
	return &JobDescription{Source: path, Text: text}, nil
}

// FromText wraps already-acquired text, trimming surrounding whitespace.
func FromText(text string) (*JobDescription, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &Error{Source: "inline", Message: "empty job description text"}
	}
	return &JobDescription{Source: "inline", Text: text}, nil
}

// FromURL fetches a job posting page and extracts its description text.
// Pages that come back nearly empty over plain HTTP are assumed to be
// JavaScript-rendered and are retried through a headless browser when
// opts.AllowBrowser is set.
func FromURL(ctx context.Context, urlStr string, opts *FetchOptions) (*JobDescription, error) {
	if opts == nil {
		opts = DefaultFetchOptions()
	}

	platform := DetectPlatform(urlStr)

	result, err := fetchHTTP(ctx, urlStr, opts)
	if err != nil {
		return nil, err
	}

	text, err := extractJobText(result.HTML, platform)
	if err != nil {
		return nil, &Error{Source: urlStr, Message: "failed to extract text", Cause: err}
	}

	if ShouldUseBrowser(text) && opts.AllowBrowser {
		html, berr := renderWithBrowser(ctx, urlStr, opts.BrowserTimeout)
		if berr != nil {
			// Browser rendering is best effort; keep whatever the plain
			// fetch produced unless it was empty.
			if text == "" {
				return nil, &Error{Source: urlStr, Message: "browser rendering failed", Cause: berr}
			}
		} else {
			rendered, rerr := extractJobText(html, platform)
			if rerr == nil && len(rendered) > len(text) {
				text = rendered
			}
		}
	}

	if text == "" {
		return nil, &Error{Source: urlStr, Message: "page contains no extractable text"}
	}

	return &JobDescription{Source: urlStr, Text: text, Platform: platform}, nil
}
