package models

import (
	"fmt"
	"math"
	"time"
)

// Flow selects which query the user submitted and, with it, the matching rule.
type Flow int

const (
	CoverFlow Flow = iota // matched by image reference equality
	SoundFlow             // matched by audio reference substring
)

func (f Flow) String() string {
	switch f {
	case CoverFlow:
		return "cover"
	case SoundFlow:
		return "sound"
	default:
		return ""
	}
}

// ParseFlow converts "cover" or "sound" into a [Flow].
func ParseFlow(s string) (Flow, error) {
	switch s {
	case "cover":
		return CoverFlow, nil
	case "sound":
		return SoundFlow, nil
	default:
		return 0, fmt.Errorf("unknown search flow %q", s)
	}
}

// QueryKind is the upload kind used to submit a query for this flow.
func (f Flow) QueryKind() FileKind {
	if f == SoundFlow {
		return SingleAudio
	}
	return SingleImage
}

// ResultEndpoint is the backend path, relative to the API prefix, holding the latest result for this flow.
func (f Flow) ResultEndpoint() string {
	if f == SoundFlow {
		return "audio-search-result/"
	}
	return "cover-search-result/"
}

// SearchResult is the backend's answer to the last query plus the client-measured latency.
type SearchResult struct {
	MatchedRef string
	Similarity float64       // 0-100
	Elapsed    time.Duration // wall clock of the result fetch, success or failure
}

// ElapsedSeconds is Elapsed rounded to two decimals.
func (r SearchResult) ElapsedSeconds() float64 {
	return math.Round(r.Elapsed.Seconds()*100) / 100
}

// SearchRecord is a settled search kept in local history.
type SearchRecord struct {
	id          string
	flow        Flow
	matchedRef  string
	similarity  float64
	elapsed     time.Duration
	entryName   string
	entrySinger string
	errMessage  string
	createdAt   time.Time
}

// NewSearchRecord builds a history record from a session outcome. match may be nil, err may be nil.
func NewSearchRecord(flow Flow, result *SearchResult, match *CatalogEntry, err error) *SearchRecord {
	r := &SearchRecord{flow: flow, createdAt: time.Now().UTC()}
	if result != nil {
		r.matchedRef = result.MatchedRef
		r.similarity = result.Similarity
		r.elapsed = result.Elapsed
	}
	if match != nil {
		r.entryName = match.Name
		r.entrySinger = match.Singer
	}
	if err != nil {
		r.errMessage = err.Error()
	}
	return r
}

// RestoreSearchRecord rebuilds a record read from storage.
func RestoreSearchRecord(id string, flow Flow, matchedRef string, similarity float64, elapsed time.Duration, entryName, entrySinger, errMessage string, createdAt time.Time) *SearchRecord {
	return &SearchRecord{
		id:          id,
		flow:        flow,
		matchedRef:  matchedRef,
		similarity:  similarity,
		elapsed:     elapsed,
		entryName:   entryName,
		entrySinger: entrySinger,
		errMessage:  errMessage,
		createdAt:   createdAt,
	}
}

func (r *SearchRecord) ID() string             { return r.id }
func (r *SearchRecord) SetID(id string)        { r.id = id }
func (r *SearchRecord) CreatedAt() time.Time   { return r.createdAt }
func (r *SearchRecord) Flow() Flow             { return r.flow }
func (r *SearchRecord) MatchedRef() string     { return r.matchedRef }
func (r *SearchRecord) Similarity() float64    { return r.similarity }
func (r *SearchRecord) Elapsed() time.Duration { return r.elapsed }
func (r *SearchRecord) EntryName() string      { return r.entryName }
func (r *SearchRecord) EntrySinger() string    { return r.entrySinger }
func (r *SearchRecord) ErrorMessage() string   { return r.errMessage }
func (r *SearchRecord) Failed() bool           { return r.errMessage != "" }
func (r *SearchRecord) Matched() bool          { return r.entryName != "" }

// Validate checks the record before it is stored.
func (r *SearchRecord) Validate() error {
	if r.flow != CoverFlow && r.flow != SoundFlow {
		return fmt.Errorf("invalid flow %d", r.flow)
	}
	if r.similarity < 0 || r.similarity > 100 {
		return fmt.Errorf("similarity %.2f out of range", r.similarity)
	}
	if r.createdAt.IsZero() {
		return fmt.Errorf("created_at is required")
	}
	return nil
}
