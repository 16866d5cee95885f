package config

// WindowOptions is the host window layout a caller may persist between runs:
// toolbar visibility and splitter ratios. The playback engine itself holds
// none of this — it is the host's responsibility to load/save it as JSON.
type WindowOptions struct {
	ShowToolbar    bool    `json:"showToolbar"`
	ShowTimeline   bool    `json:"showTimeline"`
	ShowInspector  bool    `json:"showInspector"`
	SplitterRatio  float64 `json:"splitterRatio"`
}

// ItemOptions is the per-timeline-item display state a host may persist:
// thumbnail visibility/height and which editorial markers are shown.
type ItemOptions struct {
	ShowThumbnails   bool `json:"showThumbnails"`
	ThumbnailHeight  int  `json:"thumbnailHeight"`
	ShowTransitions  bool `json:"showTransitions"`
	ShowMarkers      bool `json:"showMarkers"`
	EditableMarkers  bool `json:"editableMarkers"`
}

// TimeUnits selects how times are displayed in a host UI.
type TimeUnits int

const (
	TimeUnitsFrames TimeUnits = iota
	TimeUnitsTimecode
	TimeUnitsSeconds
)
