// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/watchlist/internal/library"
	"github.com/ManuGH/watchlist/internal/log"
	"github.com/ManuGH/watchlist/internal/watchlist"
)

const compactStartLayout = "20060102150405"

// EntryView is one ranked recording in API responses.
type EntryView struct {
	Position  int       `json:"position"`
	Key       string    `json:"key"`
	ChanID    int       `json:"chanid"`
	StartTime time.Time `json:"starttime"`
	Title     string    `json:"title"`
	RuleID    int       `json:"rule_id"`
	Score     int       `json:"score"`
}

// WatchListView is the response of the watch list endpoints.
type WatchListView struct {
	RunID       string         `json:"run_id"`
	GeneratedAt time.Time      `json:"generated_at"`
	Entries     []EntryView    `json:"entries"`
	Excluded    map[string]int `json:"excluded"`
}

func newWatchListView(snap *watchlist.Snapshot) WatchListView {
	v := WatchListView{
		RunID:       snap.RunID,
		GeneratedAt: snap.GeneratedAt,
		Entries:     make([]EntryView, 0, len(snap.Entries)),
		Excluded:    snap.Excluded,
	}
	for i, e := range snap.Entries {
		v.Entries = append(v.Entries, EntryView{
			Position:  i + 1,
			Key:       e.Candidate.Key.String(),
			ChanID:    e.Candidate.Key.ChanID,
			StartTime: e.Candidate.Key.StartTime,
			Title:     e.Candidate.Title,
			RuleID:    e.Candidate.RuleID,
			Score:     e.Score,
		})
	}
	return v
}

func (s *Server) handleGetWatchList(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.deps.Snapshots.Latest(r.Context())
	if !ok {
		writeServiceUnavailable(w, "watch list not ready")
		return
	}
	writeJSON(w, http.StatusOK, newWatchListView(snap))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	snap, err := s.deps.Refresher.Refresh(r.Context(), "api")
	if err != nil {
		logger := log.WithContext(r.Context(), s.logger)
		logger.Error().Err(err).Msg("on-demand refresh failed")
		writeInternal(w)
		return
	}
	writeJSON(w, http.StatusOK, newWatchListView(snap))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	force := false
	if raw := r.URL.Query().Get("force"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeBadRequest(w, fmt.Errorf("invalid force value %q", raw))
			return
		}
		force = v
	}
	s.mutate(w, r, "recording_deleted", func(ctx context.Context, key watchlist.RecordingKey) error {
		return s.deps.Recordings.DeleteRecording(ctx, key, force)
	})
}

func (s *Server) handleUndelete(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, "recording_undeleted", s.deps.Recordings.UndeleteRecording)
}

func (s *Server) handleSetWatched(w http.ResponseWriter, r *http.Request) {
	value, ok := decodeFlag(w, r)
	if !ok {
		return
	}
	s.mutate(w, r, "watched_changed", func(ctx context.Context, key watchlist.RecordingKey) error {
		return s.deps.Recordings.SetWatched(ctx, key, value)
	})
}

func (s *Server) handleSetAutoExpire(w http.ResponseWriter, r *http.Request) {
	value, ok := decodeFlag(w, r)
	if !ok {
		return
	}
	s.mutate(w, r, "autoexpire_changed", func(ctx context.Context, key watchlist.RecordingKey) error {
		return s.deps.Recordings.SetAutoExpire(ctx, key, value)
	})
}

// mutate parses the recording key, applies op and schedules a refresh.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, reason string, op func(context.Context, watchlist.RecordingKey) error) {
	key, err := parseRecordingKey(chi.URLParam(r, "chanid"), chi.URLParam(r, "starttime"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	if err := op(r.Context(), key); err != nil {
		if errors.Is(err, library.ErrRecordingNotFound) {
			writeNotFound(w)
			return
		}
		logger := log.WithContext(r.Context(), s.logger)
		logger.Error().
			Err(err).
			Int(log.FieldChanID, key.ChanID).
			Time(log.FieldStartTime, key.StartTime).
			Str(log.FieldTrigger, reason).
			Msg("recording update failed")
		writeInternal(w)
		return
	}

	if s.deps.Trigger != nil {
		s.deps.Trigger.Trigger(reason)
	}
	w.WriteHeader(http.StatusNoContent)
}

type flagBody struct {
	Value *bool `json:"value"`
}

func decodeFlag(w http.ResponseWriter, r *http.Request) (bool, bool) {
	var body flagBody
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1024))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeBadRequest(w, fmt.Errorf("invalid body: %w", err))
		return false, false
	}
	if body.Value == nil {
		writeBadRequest(w, errors.New(`body must be {"value": true|false}`))
		return false, false
	}
	return *body.Value, true
}

// parseRecordingKey accepts the start time as RFC 3339 or YYYYMMDDhhmmss (UTC).
func parseRecordingKey(chanID, start string) (watchlist.RecordingKey, error) {
	id, err := strconv.Atoi(chanID)
	if err != nil || id <= 0 {
		return watchlist.RecordingKey{}, fmt.Errorf("invalid chanid %q", chanID)
	}

	t, err := time.Parse(time.RFC3339, start)
	if err != nil {
		t, err = time.ParseInLocation(compactStartLayout, start, time.UTC)
		if err != nil {
			return watchlist.RecordingKey{}, fmt.Errorf("invalid starttime %q", start)
		}
	}
	return watchlist.RecordingKey{ChanID: id, StartTime: t.UTC()}, nil
}
