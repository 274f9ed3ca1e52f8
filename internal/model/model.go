// Package model defines the data structures shared by the pipeline stages: Source describes a configured feed,
// Item is a raw entry produced by a source and News is the record kept in the store.
package model

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

var ErrInvalidRecord = errors.New("invalid news record")

// Column widths of news_items.
const (
	MaxURLLen      = 500
	MaxSourceLen   = 100
	MaxProviderLen = 50
)

type SourceKind string

const (
	KindRSS  SourceKind = "rss"
	KindHTML SourceKind = "html"
)

type Source struct {
	Name string     `yaml:"name" json:"name"`
	URL  string     `yaml:"url" json:"url"`
	Kind SourceKind `yaml:"kind" json:"kind"`

	// HTML sources only.
	ItemSelector    string `yaml:"item_selector" json:"item_selector,omitempty"`
	TitleSelector   string `yaml:"title_selector" json:"title_selector,omitempty"`
	ExcerptSelector string `yaml:"excerpt_selector" json:"excerpt_selector,omitempty"`
	DateSelector    string `yaml:"date_selector" json:"date_selector,omitempty"`
}

type Item struct {
	Title      string
	Categories []string
	Link       string
	Date       time.Time
	RawDate    string
	Summary    string
	Content    string
	SourceName string
	Provider   string
}

type News struct {
	ID          int64      `json:"id"`
	URL         string     `json:"url"`
	Title       string     `json:"title"`
	Source      string     `json:"source,omitempty"`
	Provider    string     `json:"provider,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Excerpt     string     `json:"excerpt,omitempty"`
	Content     string     `json:"content,omitempty"`
	Summary     string     `json:"summary,omitempty"`
	Tags        []string   `json:"tags"`
	Symbols     []string   `json:"symbols"`
	Hash        string     `json:"hash,omitempty"`
	Published   bool       `json:"published"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Stage is derived from which optional fields are populated; it is never stored.
type Stage string

const (
	StageNew        Stage = "new"
	StageSummarized Stage = "summarized"
	StageTagged     Stage = "tagged"
	StagePublished  Stage = "published"
)

func (n News) Stage() Stage {
	switch {
	case n.Published:
		return StagePublished
	case len(n.Tags) > 0 && len(n.Symbols) > 0:
		return StageTagged
	case strings.TrimSpace(n.Summary) != "":
		return StageSummarized
	default:
		return StageNew
	}
}

func (n News) NeedsSummary() bool {
	return strings.TrimSpace(n.Summary) == ""
}

func (n News) NeedsTags() bool {
	return len(n.Tags) == 0 || len(n.Symbols) == 0
}

// Validate checks the fields required at the ingestion boundary.
func (n News) Validate() error {
	if strings.TrimSpace(n.Title) == "" {
		return fmt.Errorf("%w: empty title", ErrInvalidRecord)
	}
	if !ValidURL(n.URL) {
		return fmt.Errorf("%w: bad url %q", ErrInvalidRecord, n.URL)
	}
	if len(n.URL) > MaxURLLen {
		return fmt.Errorf("%w: url longer than %d bytes", ErrInvalidRecord, MaxURLLen)
	}
	if len(n.Source) > MaxSourceLen {
		return fmt.Errorf("%w: source longer than %d bytes", ErrInvalidRecord, MaxSourceLen)
	}
	if len(n.Provider) > MaxProviderLen {
		return fmt.Errorf("%w: provider longer than %d bytes", ErrInvalidRecord, MaxProviderLen)
	}
	return nil
}

// ValidURL reports whether raw is an absolute http(s) URL.
func ValidURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "none") {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Tagging is the tagger's write-back for one record.
type Tagging struct {
	ID      int64
	Symbols []string
	Tags    []string
}
