package session_test

import (
	"testing"

	"github.com/baras-go/combatlog/internal/session"
	"github.com/stretchr/testify/require"
)

func TestRingEvictsOldest(t *testing.T) {
	c := session.New()
	first := c.Current()
	c.Push()
	c.Push()
	c.Push() // 4th encounter overall, ring size 3

	history := c.History()
	require.Len(t, history, 3)
	for _, e := range history {
		require.NotEqual(t, first.ID, e.ID)
	}
}

func TestRegisterNpcInstanceOnlyFirstTime(t *testing.T) {
	c := session.New()
	require.True(t, c.RegisterNpcInstance(42))
	require.False(t, c.RegisterNpcInstance(42))
	require.True(t, c.RegisterNpcInstance(43))
}

func TestSetAreaIgnoresZeroDifficultyOverwrite(t *testing.T) {
	c := session.New()
	c.SetArea(1, "Foundry", 2, "Veteran")
	c.SetArea(1, "Foundry", 0, "")
	require.EqualValues(t, 2, c.CurrentDifficultyID)
	require.Equal(t, "Veteran", c.CurrentDifficultyName)
}

func TestTargetMap(t *testing.T) {
	c := session.New()
	c.SetTarget(1, 2)
	target, ok := c.Target(1)
	require.True(t, ok)
	require.EqualValues(t, 2, target)

	c.ClearTarget(1)
	_, ok = c.Target(1)
	require.False(t, ok)
}
