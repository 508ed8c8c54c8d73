package entity

import "time"

// RenderRequested asks the render service to render one gallery image.
// An empty Resolution means the configured default.
type RenderRequested struct {
	ImageID     string    `json:"image_id"`
	Resolution  string    `json:"resolution,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// RenderCompleted is published once per finished render. Stale is set when a
// newer render of the same image had already committed, in which case Result
// was discarded.
type RenderCompleted struct {
	ImageID string       `json:"image_id"`
	Seq     uint64       `json:"seq"`
	Result  RenderResult `json:"result"`
	Stale   bool         `json:"stale"`
}
