// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package dvr models recording rules as stored by the scheduler backend.
package dvr

import (
	"fmt"
	"strconv"
	"strings"
)

// RecordingType is the raw schedule type code stored with a recording rule.
// The numeric values are persisted and must not be renumbered.
type RecordingType int

const (
	NotRecording   RecordingType = 0
	SingleRecord   RecordingType = 1
	TimeslotRecord RecordingType = 2 // same time every day
	ChannelRecord  RecordingType = 3
	AllRecord      RecordingType = 4
	WeekslotRecord RecordingType = 5 // same time every week
	FindOneRecord  RecordingType = 6
	OverrideRecord RecordingType = 7
	DontRecord     RecordingType = 8
	FindDaily      RecordingType = 9
	FindWeekly     RecordingType = 10
)

var recordingTypeNames = map[RecordingType]string{
	NotRecording:   "not_recording",
	SingleRecord:   "single",
	TimeslotRecord: "timeslot",
	ChannelRecord:  "channel",
	AllRecord:      "all",
	WeekslotRecord: "weekslot",
	FindOneRecord:  "find_one",
	OverrideRecord: "override",
	DontRecord:     "dont_record",
	FindDaily:      "find_daily",
	FindWeekly:     "find_weekly",
}

// String returns the snake_case name of the type, or "unknown(N)".
func (t RecordingType) String() string {
	if name, ok := recordingTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(t))
}

// ParseRecordingType accepts either a name as returned by String or a decimal code.
func ParseRecordingType(s string) (RecordingType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, name := range recordingTypeNames {
		if name == s {
			return t, nil
		}
	}
	if code, err := strconv.Atoi(s); err == nil {
		return RecordingType(code), nil
	}
	return NotRecording, fmt.Errorf("unknown recording type %q", s)
}

// Recurrence classifies a rule by how often it records.
type Recurrence int

const (
	RecurrenceOther Recurrence = iota
	RecurrenceDaily
	RecurrenceWeekly
)

func (r Recurrence) String() string {
	switch r {
	case RecurrenceDaily:
		return "daily"
	case RecurrenceWeekly:
		return "weekly"
	default:
		return "other"
	}
}

// Recurrence derives the explicit recurrence of a schedule type.
// Only the slot and find-daily/weekly types carry a recurrence of their own;
// everything else is classified by its observed recording interval.
func (t RecordingType) Recurrence() Recurrence {
	switch t {
	case TimeslotRecord, FindDaily:
		return RecurrenceDaily
	case WeekslotRecord, FindWeekly:
		return RecurrenceWeekly
	default:
		return RecurrenceOther
	}
}
