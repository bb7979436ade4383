package trigger_test

import (
	"testing"

	"github.com/baras-go/combatlog/internal/trigger"
	"github.com/stretchr/testify/require"
)

func TestScopeCombatStartIsUniversal(t *testing.T) {
	tr := trigger.Trigger{Kind: trigger.KindCombatStart}
	require.True(t, tr.ValidForTimer())
	require.True(t, tr.ValidForPhase())
	require.True(t, tr.ValidForCounter())
}

func TestScopeTimerExpiresIsTimerOnly(t *testing.T) {
	tr := trigger.Trigger{Kind: trigger.KindTimerExpires, TimerID: "enrage"}
	require.True(t, tr.ValidForTimer())
	require.False(t, tr.ValidForPhase())
	require.False(t, tr.ValidForCounter())
}

func TestScopeCombatEndIsCounterOnly(t *testing.T) {
	tr := trigger.Trigger{Kind: trigger.KindCombatEnd}
	require.False(t, tr.ValidForTimer())
	require.False(t, tr.ValidForPhase())
	require.True(t, tr.ValidForCounter())
}

func TestScopeBossHpAboveIsPhaseOnly(t *testing.T) {
	tr := trigger.Trigger{Kind: trigger.KindBossHpAbove, HPPercent: 50}
	require.False(t, tr.ValidForTimer())
	require.True(t, tr.ValidForPhase())
	require.False(t, tr.ValidForCounter())
}

func TestContainsCombatStartNested(t *testing.T) {
	tr := trigger.Trigger{
		Kind: trigger.KindAnyOf,
		Conditions: []trigger.Trigger{
			{Kind: trigger.KindAbilityCast, Abilities: []trigger.AbilitySelector{{ID: 123}}},
			{Kind: trigger.KindCombatStart},
		},
	}
	require.True(t, tr.ContainsCombatStart())
}

func TestMatchesAbilityRequiresExplicitSelector(t *testing.T) {
	empty := trigger.Trigger{Kind: trigger.KindAbilityCast}
	require.False(t, empty.MatchesAbility(123, "Force Scream"))

	byID := trigger.Trigger{Kind: trigger.KindAbilityCast, Abilities: []trigger.AbilitySelector{{ID: 123}}}
	require.True(t, byID.MatchesAbility(123, "Force Scream"))
	require.False(t, byID.MatchesAbility(456, "Other"))

	byName := trigger.Trigger{Kind: trigger.KindAbilityCast, Abilities: []trigger.AbilitySelector{{Name: "force scream"}}}
	require.True(t, byName.MatchesAbility(999, "Force Scream"))
}

func TestMatchesBossHpBelowCrossing(t *testing.T) {
	tr := trigger.Trigger{Kind: trigger.KindBossHpBelow, HPPercent: 0.5}
	require.True(t, tr.MatchesBossHpBelow(1, "Dread Master", 0.6, 0.4))
	require.False(t, tr.MatchesBossHpBelow(1, "Dread Master", 0.4, 0.3), "already below threshold, no new crossing")
	require.False(t, tr.MatchesBossHpBelow(1, "Dread Master", 0.6, 0.55), "didn't cross")
}

func TestEntityDeathEmptySelectorMatchesAny(t *testing.T) {
	tr := trigger.Trigger{Kind: trigger.KindEntityDeath}
	require.True(t, tr.MatchesEntityDeath(1, "Trash Mob"))
}

func TestNpcAppearsEmptySelectorMatchesNothing(t *testing.T) {
	tr := trigger.Trigger{Kind: trigger.KindNpcAppears}
	require.False(t, tr.MatchesNpcAppears(1, "Trash Mob"))
}

func TestEntityFilterBossOnly(t *testing.T) {
	f := trigger.EntityFilter{Kind: trigger.FilterBoss}
	require.True(t, f.Matches(trigger.Ctx{IsBoss: true}))
	require.False(t, f.Matches(trigger.Ctx{IsPlayer: true}))
}

func TestAnyOfComposesCounterReaches(t *testing.T) {
	tr := trigger.Trigger{
		Kind: trigger.KindAnyOf,
		Conditions: []trigger.Trigger{
			{Kind: trigger.KindCounterReaches, CounterID: "adds", CounterValue: 3},
		},
	}
	require.True(t, tr.MatchesCounterReaches("adds", 2, 3))
	require.False(t, tr.MatchesCounterReaches("other", 2, 3))
}
