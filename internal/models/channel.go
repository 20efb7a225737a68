package models

import "time"

// ResolutionStatus tracks the lifecycle of a user-supplied channel reference.
type ResolutionStatus string

const (
	ResolutionUnresolved ResolutionStatus = "unresolved"
	ResolutionResolved   ResolutionStatus = "resolved"
	ResolutionFailed     ResolutionStatus = "failed"
)

// ChannelRequest pairs a user-supplied channel reference (handle, custom URL
// or literal ID) with its resolved canonical channel ID. Immutable once
// resolved.
type ChannelRequest struct {
	Reference string           `json:"reference"`
	ChannelID string           `json:"channel_id,omitempty"`
	Status    ResolutionStatus `json:"status"`
}

// ChannelStatus is the per-channel scrape outcome.
type ChannelStatus string

const (
	ChannelSuccess   ChannelStatus = "success"
	ChannelNoVideos  ChannelStatus = "no-videos"
	ChannelNotFound  ChannelStatus = "not-found"
	ChannelTransient ChannelStatus = "transient-error"
)

// ChannelOutcome records what happened to one channel during a scrape. A
// failed channel never aborts the run; its outcome is reported alongside the
// successful ones.
type ChannelOutcome struct {
	Reference   string        `json:"reference"`
	ChannelID   string        `json:"channel_id,omitempty"`
	Status      ChannelStatus `json:"status"`
	Error       string        `json:"error,omitempty"`
	Videos      int           `json:"videos"`
	Transcripts int           `json:"transcripts"`
}

// Failed reports whether the channel contributed nothing due to an error.
func (o ChannelOutcome) Failed() bool {
	return o.Status == ChannelNotFound || o.Status == ChannelTransient
}

// DateRange is an inclusive publish-date window.
type DateRange struct {
	Since time.Time `json:"since"`
	Until time.Time `json:"until"`
}

// Contains reports whether t falls inside the inclusive range.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Since) && !t.After(r.Until)
}

// LastDays returns a range covering the past n days up to now.
func LastDays(n int) DateRange {
	now := time.Now().UTC()
	return DateRange{Since: now.AddDate(0, 0, -n), Until: now}
}
