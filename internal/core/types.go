package core

import (
	"time"

	"github.com/JonMunkholm/catalog/internal/catalog"
)

// Phase indicates where the current record set came from.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseReady   Phase = "ready"
	PhaseFailed  Phase = "failed"
)

// Snapshot is the state of the catalog at one point in time. Records is
// shared between snapshots and must not be modified.
type Snapshot struct {
	FetchID   string           `json:"fetchId,omitempty"`
	Phase     Phase            `json:"phase"`
	Records   []catalog.Record `json:"-"`
	Header    []string         `json:"header,omitempty"`
	Error     *UserMessage     `json:"error,omitempty"`
	FetchedAt time.Time        `json:"fetchedAt,omitzero"`
	Duration  time.Duration    `json:"-"`

	// Byte-based progress while loading. BytesTotal is 0 when the server sent
	// no Content-Length.
	BytesRead  int64 `json:"bytesRead"`
	BytesTotal int64 `json:"bytesTotal"`

	// Parse statistics of a ready snapshot.
	Delimiter      string `json:"delimiter,omitempty"`
	RowsSkipped    int    `json:"rowsSkipped"`
	RecordsDropped int    `json:"recordsDropped"`

	err error
}

// Err returns the technical error of a failed snapshot.
func (s Snapshot) Err() error { return s.err }

// Count is the number of records.
func (s Snapshot) Count() int { return len(s.Records) }

// Percent returns byte progress as a percentage (0-100), 0 when unknown.
func (s Snapshot) Percent() int {
	if s.BytesTotal <= 0 {
		return 0
	}
	p := int(s.BytesRead * 100 / s.BytesTotal)
	if p > 100 {
		p = 100
	}
	return p
}

// Done reports whether the snapshot is final for its fetch.
func (s Snapshot) Done() bool {
	return s.Phase == PhaseReady || s.Phase == PhaseFailed
}

// FetchReport summarizes one fetch attempt for observers.
type FetchReport struct {
	FetchID        string
	Trigger        string
	Duration       time.Duration
	Bytes          int64
	Records        int
	RowsSkipped    int
	RecordsDropped int
	Err            error
	Kind           Kind
}

// Observer receives a report after every fetch attempt.
type Observer interface {
	ObserveFetch(FetchReport)
}
