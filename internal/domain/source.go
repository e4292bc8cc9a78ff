package domain

import "time"

// SyncKind identifies one entity class reconciled by the sync engine.
type SyncKind string

// Sync kinds in phase order.
const (
	SyncPlatforms SyncKind = "platforms"
	SyncTags      SyncKind = "tags"
	SyncGames     SyncKind = "games"
)

// SyncKinds lists every kind in the order phases run.
var SyncKinds = []SyncKind{SyncPlatforms, SyncTags, SyncGames}

// Valid reports whether k is a known kind.
func (k SyncKind) Valid() bool {
	switch k {
	case SyncPlatforms, SyncTags, SyncGames:
		return true
	}
	return false
}

// Epoch is the watermark used for a full resync.
var Epoch = time.Unix(0, 0).UTC()

// Watermark is the resume cursor for one (source, kind) pair.
// LatestUpdateTime is the newest remote modification merged; ActualUpdateTime is the
// wall-clock time the last successful phase completed.
type Watermark struct {
	LatestUpdateTime time.Time `json:"latest_update_time"`
	ActualUpdateTime time.Time `json:"actual_update_time"`
}

// MetadataSource describes a remote metadata authority and its per-kind watermarks.
type MetadataSource struct {
	Name       string                 `json:"name"`
	BaseURL    string                 `json:"base_url"`
	Watermarks map[SyncKind]Watermark `json:"watermarks"`
}

// Watermark returns the stored watermark for kind, or the epoch when none exists.
func (s *MetadataSource) Watermark(kind SyncKind) Watermark {
	if w, ok := s.Watermarks[kind]; ok {
		return w
	}
	return Watermark{LatestUpdateTime: Epoch, ActualUpdateTime: Epoch}
}
