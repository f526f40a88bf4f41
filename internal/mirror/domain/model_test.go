package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPriorityFromGraph(t *testing.T) {
	cases := []struct {
		graph int
		want  TaskPriority
	}{
		{10, PriorityUrgent},
		{9, PriorityUrgent},
		{8, PriorityHigh},
		{7, PriorityHigh},
		{6, PriorityMedium},
		{5, PriorityMedium},
		{4, PriorityMedium},
		{3, PriorityLow},
		{1, PriorityLow},
		{0, PriorityLow},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, PriorityFromGraph(tc.graph), "graph priority %d", tc.graph)
	}
}

func TestDeriveStatus(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-48 * time.Hour)
	future := now.Add(48 * time.Hour)

	t.Run("completed timestamp wins", func(t *testing.T) {
		status, overdue := DeriveStatus(40, &past, &past, now)
		assert.Equal(t, StatusCompleted, status)
		assert.False(t, overdue)
	})

	t.Run("hundred percent means completed", func(t *testing.T) {
		status, overdue := DeriveStatus(100, nil, &past, now)
		assert.Equal(t, StatusCompleted, status)
		assert.False(t, overdue)
	})

	t.Run("progress means in progress", func(t *testing.T) {
		status, overdue := DeriveStatus(30, nil, &future, now)
		assert.Equal(t, StatusInProgress, status)
		assert.False(t, overdue)
	})

	t.Run("no progress no due date", func(t *testing.T) {
		status, overdue := DeriveStatus(0, nil, nil, now)
		assert.Equal(t, StatusNotStarted, status)
		assert.False(t, overdue)
	})

	t.Run("past due and not completed is overdue", func(t *testing.T) {
		status, overdue := DeriveStatus(50, nil, &past, now)
		assert.Equal(t, StatusOverdue, status)
		assert.True(t, overdue)

		status, overdue = DeriveStatus(0, nil, &past, now)
		assert.Equal(t, StatusOverdue, status)
		assert.True(t, overdue)
	})
}

func TestPlannerRates(t *testing.T) {
	p := Planner{TotalTasks: 8, CompletedTasks: 2, OverdueTasks: 4}
	assert.InDelta(t, 25.0, p.CompletionRate(), 0.001)
	assert.InDelta(t, 50.0, p.OverdueRate(), 0.001)

	empty := Planner{}
	assert.Zero(t, empty.CompletionRate())
	assert.Zero(t, empty.OverdueRate())
}
