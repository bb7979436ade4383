package intern_test

import (
	"testing"

	"github.com/baras-go/combatlog/internal/intern"
	"github.com/stretchr/testify/require"
)

func TestInternDeduplicates(t *testing.T) {
	a := intern.Intern("Darth Malgus")
	b := intern.Intern("Darth Malgus")
	require.Equal(t, a, b)
	require.Equal(t, "Darth Malgus", intern.Resolve(a))
}

func TestInternDistinctStrings(t *testing.T) {
	a := intern.Intern("Trooper")
	b := intern.Intern("Bounty Hunter")
	require.NotEqual(t, a, b)
}

func TestZeroValueIsEmpty(t *testing.T) {
	var id intern.IStr
	require.True(t, id.Empty())
	require.Equal(t, "", intern.Resolve(id))
}
