package domain

import "time"

// Source is a configured catalog source.
type Source struct {
	ID         string
	Type       SourceType
	Name       string
	LastScanAt *time.Time
}

// LibraryInfo is a library as listed by a source.
type LibraryInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// ScanResult is the outcome of one library scan.
type ScanResult struct {
	ScanID       string   `json:"scan_id"`
	SourceID     string   `json:"source_id"`
	LibraryID    string   `json:"library_id"`
	Incremental  bool     `json:"incremental"`
	Success      bool     `json:"success"`
	ItemsScanned int      `json:"items_scanned"`
	ItemsAdded   int      `json:"items_added"`
	ItemsUpdated int      `json:"items_updated"`
	ItemsRemoved int      `json:"items_removed"`
	Errors       []string `json:"errors"`
	DurationMs   int64    `json:"duration_ms"`
	Cancelled    bool     `json:"cancelled"`
}

// ScanProgress is emitted to the caller's progress callback.
type ScanProgress struct {
	Current          int     `json:"current"`
	Total            int     `json:"total"`
	Phase            string  `json:"phase"`
	CurrentItemLabel string  `json:"current_item_label"`
	Percentage       float64 `json:"percentage"`
}

// Progress phases.
const (
	PhaseFetching    = "fetching"
	PhaseProcessing  = "processing"
	PhaseReconciling = "reconciling"
	PhaseComplete    = "complete"
)
