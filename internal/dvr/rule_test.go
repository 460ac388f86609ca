package dvr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordingType_Recurrence(t *testing.T) {
	tests := []struct {
		typ  RecordingType
		want Recurrence
	}{
		{TimeslotRecord, RecurrenceDaily},
		{FindDaily, RecurrenceDaily},
		{WeekslotRecord, RecurrenceWeekly},
		{FindWeekly, RecurrenceWeekly},
		{SingleRecord, RecurrenceOther},
		{AllRecord, RecurrenceOther},
		{ChannelRecord, RecurrenceOther},
		{NotRecording, RecurrenceOther},
		{RecordingType(42), RecurrenceOther},
	}

	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.typ.Recurrence())
		})
	}
}

func TestParseRecordingType(t *testing.T) {
	got, err := ParseRecordingType("weekslot")
	require.NoError(t, err)
	assert.Equal(t, WeekslotRecord, got)

	got, err = ParseRecordingType(" 9 ")
	require.NoError(t, err)
	assert.Equal(t, FindDaily, got)

	_, err = ParseRecordingType("fortnightly")
	assert.Error(t, err)
}

func TestRecordingType_StringUnknown(t *testing.T) {
	assert.Equal(t, "unknown(99)", RecordingType(99).String())
	assert.Equal(t, "other", RecurrenceOther.String())
}
