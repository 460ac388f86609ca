// SPDX-License-Identifier: MIT
package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func attrMap(attrs []attribute.KeyValue) map[string]attribute.Value {
	m := make(map[string]attribute.Value, len(attrs))
	for _, a := range attrs {
		m[string(a.Key)] = a.Value
	}
	return m
}

func TestRefreshAttributes(t *testing.T) {
	m := attrMap(RefreshAttributes("run-1", "schedule", 10, 7, 3))
	assert.Len(t, m, 5)
	assert.Equal(t, "run-1", m[RefreshRunIDKey].AsString())
	assert.Equal(t, "schedule", m[RefreshTriggerKey].AsString())
	assert.Equal(t, int64(10), m[RefreshCandidatesKey].AsInt64())
	assert.Equal(t, int64(7), m[RefreshEntriesKey].AsInt64())
	assert.Equal(t, int64(3), m[RefreshExcludedKey].AsInt64())

	m = attrMap(RefreshAttributes("run-2", "", 0, 0, 0))
	assert.Len(t, m, 4)
	_, ok := m[RefreshTriggerKey]
	assert.False(t, ok)
}

func TestRecordingAttributes(t *testing.T) {
	m := attrMap(RecordingAttributes(1001, "2026-10-17T20:00:00Z"))
	assert.Equal(t, int64(1001), m[RecordingChanIDKey].AsInt64())
	assert.Equal(t, "2026-10-17T20:00:00Z", m[RecordingStartKey].AsString())
}

func TestErrorAttributes(t *testing.T) {
	m := attrMap(ErrorAttributes("store"))
	assert.True(t, m[ErrorKey].AsBool())
	assert.Equal(t, "store", m[ErrorTypeKey].AsString())
}
