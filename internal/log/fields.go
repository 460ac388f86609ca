// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRunID     = "run_id"
	FieldRequestID = "request_id"
	FieldRuleID    = "rule_id"
	FieldChanID    = "chanid"
	FieldStartTime = "starttime"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldTrigger   = "trigger"

	// Watch list fields
	FieldTitle      = "title"
	FieldScore      = "score"
	FieldReason     = "reason"
	FieldCandidates = "candidates"
	FieldEntries    = "entries"
	FieldExcluded   = "excluded"

	// Path fields
	FieldPath = "path"
)
