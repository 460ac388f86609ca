// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared by watch list spans.
const (
	RefreshRunIDKey      = "watchlist.run_id"
	RefreshTriggerKey    = "watchlist.trigger"
	RefreshCandidatesKey = "watchlist.candidates"
	RefreshEntriesKey    = "watchlist.entries"
	RefreshExcludedKey   = "watchlist.excluded"

	RecordingChanIDKey = "recording.chanid"
	RecordingStartKey  = "recording.starttime"

	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// RefreshAttributes describes one ranking pass.
func RefreshAttributes(runID, trigger string, candidates, entries, excluded int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(RefreshRunIDKey, runID),
		attribute.Int(RefreshCandidatesKey, candidates),
		attribute.Int(RefreshEntriesKey, entries),
		attribute.Int(RefreshExcludedKey, excluded),
	}
	if trigger != "" {
		attrs = append(attrs, attribute.String(RefreshTriggerKey, trigger))
	}
	return attrs
}

// RecordingAttributes identifies a recording.
func RecordingAttributes(chanID int, start string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(RecordingChanIDKey, chanID),
		attribute.String(RecordingStartKey, start),
	}
}

// ErrorAttributes marks a span as failed with a coarse error class.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
