package session

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cruisesync/pkg/models"
)

var t0 = time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusIdle, StatusNotAuthenticated, true},
		{StatusNotAuthenticated, StatusAuthenticated, true},
		{StatusAuthenticated, RunningStep(1), true},
		{RunningStep(1), RunningStep(2), true},
		{RunningStep(2), RunningStep(1), false},
		{RunningStep(3), BounceTo(2), true},
		{BounceTo(2), BounceRunning(2), true},
		{BounceRunning(2), BounceTo(1), true},
		{BounceRunning(1), StatusAwaitingConfirmation, true},
		{RunningStep(3), StatusAwaitingConfirmation, true},
		{StatusAwaitingConfirmation, StatusSyncing, true},
		{StatusSyncing, StatusComplete, true},
		{StatusSyncing, StatusError, true},
		{StatusComplete, StatusNotAuthenticated, true},
		{StatusComplete, RunningStep(1), false},
		{StatusError, StatusNotAuthenticated, true},
		{StatusAwaitingConfirmation, RunningStep(1), false},
		{RunningStep(2), StatusIdle, true},
		{RunningStep(4), StatusIdle, false},
		{Status("bogus"), StatusError, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s->%s", tt.from, tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestStatus_Step(t *testing.T) {
	n, ok := BounceRunning(3).Step()
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	_, ok = StatusSyncing.Step()
	assert.False(t, ok)

	assert.True(t, BounceTo(1).IsBounce())
	assert.False(t, RunningStep(1).IsBounce())
	assert.True(t, RunningStep(1).Active())
	assert.False(t, StatusComplete.Active())
	assert.Equal(t, models.RecordBookings, StepKind(2))
}

func TestSession_Transition(t *testing.T) {
	s := New(t0)
	require.NoError(t, s.Transition(StatusNotAuthenticated, t0))
	require.NoError(t, s.Transition(StatusNotAuthenticated, t0), "staying put is not a move")

	err := s.Transition(StatusComplete, t0.Add(time.Second))
	require.NoError(t, err)

	err = s.Transition(RunningStep(1), t0)
	var te *TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, StatusComplete, te.From)
	assert.Equal(t, StatusComplete, s.Status)
}

func TestSession_LogIsCapped(t *testing.T) {
	s := New(t0)
	for i := 0; i < MaxLogs+5; i++ {
		s.Log(t0, LevelInfo, 0, fmt.Sprintf("line %d", i))
	}
	require.Len(t, s.Logs, MaxLogs)
	assert.Equal(t, "line 5", s.Logs[0].Message)
	assert.Equal(t, fmt.Sprintf("line %d", MaxLogs+4), s.Logs[MaxLogs-1].Message)
}

func TestSession_BuffersAndMissing(t *testing.T) {
	s := New(t0)
	assert.Equal(t, []models.RecordKind{models.RecordOffers, models.RecordBookings, models.RecordLoyalty}, s.Missing())

	assert.Equal(t, 1, s.Append(models.RecordOffers, []models.RawRecord{{"offerCode": "A"}}))
	assert.Equal(t, 3, s.Append(models.RecordOffers, []models.RawRecord{{"offerCode": "B"}, {"offerCode": "C"}}))
	assert.Equal(t, "A", s.Buffers[models.RecordOffers][0]["offerCode"])

	s.Loyalty = &models.LoyaltyStatus{Programs: map[string]models.ProgramStatus{"Club Royale": {Program: "Club Royale"}}}
	assert.Equal(t, []models.RecordKind{models.RecordBookings}, s.Missing())

	assert.False(t, s.Seen("abc"))
	assert.True(t, s.Seen("abc"))
}

func TestSession_ResetKeepsHistory(t *testing.T) {
	s := New(t0)
	s.Status = RunningStep(2)
	s.Append(models.RecordBookings, []models.RawRecord{{"bookingId": "1"}})
	s.Seen("fp")
	s.Bounces = 1
	s.LastError = "boom"
	s.LastSync = t0.Add(-time.Hour)
	s.Log(t0, LevelWarn, 2, "something")

	s.Reset(t0.Add(time.Minute))

	assert.Equal(t, StatusIdle, s.Status)
	assert.Empty(t, s.Buffers)
	assert.Empty(t, s.SeenPayloads)
	assert.Zero(t, s.Bounces)
	assert.Equal(t, "boom", s.LastError)
	assert.Equal(t, t0.Add(-time.Hour), s.LastSync)
	assert.Len(t, s.Logs, 1)
}

func TestSession_Snapshot(t *testing.T) {
	s := New(t0)
	for i := 0; i < 10; i++ {
		s.Log(t0, LevelInfo, 1, fmt.Sprintf("line %d", i))
	}
	s.Append(models.RecordOffers, []models.RawRecord{{"offerCode": "A"}, {"offerCode": "B"}})
	s.Loyalty = &models.LoyaltyStatus{Programs: map[string]models.ProgramStatus{
		"A": {Program: "A"}, "B": {Program: "B"}, "C": {Program: "C"},
	}}

	snap := s.Snapshot(3)
	require.Len(t, snap.Logs, 3)
	assert.Equal(t, "line 7", snap.Logs[0].Message)
	assert.Equal(t, 2, snap.Buffered[models.RecordOffers])
	assert.Equal(t, 3, snap.Buffered[models.RecordLoyalty])
	assert.Nil(t, snap.LastSync)
	assert.False(t, snap.HasPreview)

	// the snapshot does not alias the session
	snap.Logs[0].Message = "changed"
	assert.Equal(t, "line 7", s.Logs[7].Message)

	assert.Len(t, s.Snapshot(0).Logs, 10)
}
