// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package library persists recordings and recording rules, and supplies the
// watch list with candidates and rule history.
package library

import (
	"errors"
	"time"

	"github.com/ManuGH/watchlist/internal/dvr"
)

// Recording groups with special meaning.
const (
	RecGroupDefault = "Default"
	RecGroupDeleted = "Deleted"
	RecGroupLiveTV  = "LiveTV"
)

// Delete delays are clamped to this range (hours) before being averaged into a rule.
const (
	minDeleteDelayHours = 1
	maxDeleteDelayHours = 200
)

var (
	ErrRecordingNotFound = errors.New("recording not found")
	ErrRuleNotFound      = errors.New("recording rule not found")
)

// Rule is a row of the record table.
type Rule struct {
	ID          int               `json:"id"`
	Type        dvr.RecordingType `json:"type"`
	Title       string            `json:"title"`
	MaxEpisodes int               `json:"max_episodes"`
	AvgDelay    int               `json:"avg_delay"` // hours
	NextRecord  *time.Time        `json:"next_record,omitempty"`
	LastRecord  *time.Time        `json:"last_record,omitempty"`
	LastDelete  *time.Time        `json:"last_delete,omitempty"`
}

// Recording is a row of the recorded table.
type Recording struct {
	ChanID        int       `json:"chanid"`
	StartTime     time.Time `json:"starttime"`
	EndTime       time.Time `json:"endtime"`
	Title         string    `json:"title"`
	RuleID        int       `json:"rule_id"`
	RecGroup      string    `json:"recgroup"`
	Watched       bool      `json:"watched"`
	AutoExpire    bool      `json:"autoexpire"`
	DeletePending bool      `json:"delete_pending"`
}
