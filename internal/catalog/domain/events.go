package domain

import "time"

// Event types published by the sync engine.
const (
	EventScanCompleted = "catalog.scan.completed"
	EventScanFailed    = "catalog.scan.failed"
	EventScanCancelled = "catalog.scan.cancelled"
	EventItemRemoved   = "catalog.item.removed"
)

// ScanFinishedEvent is published once per scan with the final result. Its
// type depends on the outcome.
type ScanFinishedEvent struct {
	Result    ScanResult `json:"result"`
	timestamp int64
}

func NewScanFinishedEvent(result ScanResult) *ScanFinishedEvent {
	return &ScanFinishedEvent{Result: result, timestamp: time.Now().UnixNano()}
}

func (e *ScanFinishedEvent) EventType() string {
	switch {
	case e.Result.Cancelled:
		return EventScanCancelled
	case e.Result.Success:
		return EventScanCompleted
	default:
		return EventScanFailed
	}
}

func (e *ScanFinishedEvent) Timestamp() int64 {
	return e.timestamp
}

func (e *ScanFinishedEvent) AggregateID() string {
	return e.Result.SourceID + "/" + e.Result.LibraryID
}

// ItemRemovedEvent is published for every record pruned by a full scan.
type ItemRemovedEvent struct {
	ItemID         string `json:"item_id"`
	SourceID       string `json:"source_id"`
	LibraryID      string `json:"library_id"`
	ProviderItemID string `json:"provider_item_id"`
	timestamp      int64
}

func NewItemRemovedEvent(item *MediaItem) *ItemRemovedEvent {
	return &ItemRemovedEvent{
		ItemID:         item.ID,
		SourceID:       item.SourceID,
		LibraryID:      item.LibraryID,
		ProviderItemID: item.ProviderItemID,
		timestamp:      time.Now().UnixNano(),
	}
}

func (e *ItemRemovedEvent) EventType() string {
	return EventItemRemoved
}

func (e *ItemRemovedEvent) Timestamp() int64 {
	return e.timestamp
}

func (e *ItemRemovedEvent) AggregateID() string {
	return e.ItemID
}
