package handlers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studytrack/models"
)

func TestSessionRequestToSession(t *testing.T) {
	req := SessionRequest{
		SubjectID: "math",
		Type:      models.SessionQuestions,
		Minutes:   45,
		Correct:   20,
		Wrong:     5,
		Date:      "2026-03-10",
	}

	s, err := req.toSession(7)
	require.NoError(t, err)
	assert.Equal(t, uint(7), s.UserID)
	assert.Equal(t, "math", s.SubjectID)
	assert.Equal(t, 45, s.Minutes)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), s.Date)
}

func TestSessionRequestRejectsUnknownType(t *testing.T) {
	req := SessionRequest{Type: "cardio"}
	_, err := req.toSession(1)
	assert.Error(t, err)
}

func TestSessionRequestRejectsBadDate(t *testing.T) {
	req := SessionRequest{Type: models.SessionTheory, Date: "10/03/2026"}
	_, err := req.toSession(1)
	assert.Error(t, err)
}

func TestSessionRequestDefaultsDateToToday(t *testing.T) {
	req := SessionRequest{Type: models.SessionTheory}
	s, err := req.toSession(1)
	require.NoError(t, err)
	assert.Equal(t, time.Now().UTC().Format("2006-01-02"), s.Date.Format("2006-01-02"))
}

func TestSessionRequestClampsNegatives(t *testing.T) {
	req := SessionRequest{Type: models.SessionTheory, Minutes: -5, Pages: -10, Correct: 3}
	s, err := req.toSession(1)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Minutes)
	assert.Equal(t, 0, s.Pages)
	assert.Equal(t, 3, s.Correct)
}
