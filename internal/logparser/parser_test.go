package logparser_test

import (
	"testing"
	"time"

	"github.com/baras-go/combatlog/internal/intern"
	"github.com/baras-go/combatlog/internal/logparser"
	"github.com/baras-go/combatlog/internal/model"
	"github.com/stretchr/testify/require"
)

func sessionAnchor(t *testing.T) time.Time {
	t.Helper()
	return time.Date(2026, 7, 31, 18, 0, 0, 0, time.UTC)
}

func TestParseLineDamageWithPartialAbsorb(t *testing.T) {
	p := logparser.New(sessionAnchor(t))

	line := "[18:15:03.123][Vekk'tah#112233|1,2,3|(100000/100000)]" +
		"[Dread Master {445566}/778899|4,5,6|(95000/100000)]" +
		"[Force Scream {123456}]" +
		"[ApplyEffect {836045448187904}: Damage {836045448945569}]" +
		" (8500~8000 Kinetic {654321} (300 absorbed {836045448945511})) <100.0>"

	ev, ok := p.ParseLine(1, line)
	require.True(t, ok)

	require.Equal(t, int64(1), ev.LineNumber)
	require.Equal(t, model.EntityPlayer, ev.Source.Type)
	require.Equal(t, "Vekk'tah", intern.Resolve(ev.Source.Name))
	require.Equal(t, int64(112233), ev.Source.LogID)
	require.Equal(t, int32(100000), ev.Source.CurrentHP)

	require.Equal(t, model.EntityNpc, ev.Target.Type)
	require.Equal(t, "Dread Master", intern.Resolve(ev.Target.Name))
	require.Equal(t, int64(445566), ev.Target.ClassID)
	require.Equal(t, int64(778899), ev.Target.LogID)

	require.Equal(t, "Force Scream", intern.Resolve(ev.Action.Name))
	require.Equal(t, int64(123456), ev.Action.ID)

	require.Equal(t, model.EffectTypeIDApplyEffect, ev.Effect.TypeID)
	require.Equal(t, model.EffectIDDamage, ev.Effect.EffectID)

	require.Equal(t, int32(8500), ev.Details.DmgAmount)
	require.Equal(t, int32(8000), ev.Details.DmgEffective)
	require.Equal(t, "Kinetic", intern.Resolve(ev.Details.DmgTypeName))
	require.Equal(t, int64(654321), ev.Details.DmgTypeID)
	require.Equal(t, int32(300), ev.Details.DmgAbsorbed)
	require.False(t, ev.Details.IsCrit)
	require.InDelta(t, float32(100.0), ev.Details.Threat, 0.001)
}

func TestParseLineSelfReferenceTargetBecomesSource(t *testing.T) {
	p := logparser.New(sessionAnchor(t))

	line := "[18:15:04.000][Vekk'tah#112233|1,2,3|(100000/100000)]" +
		"[=]" +
		"[Heroic Moment {1}]" +
		"[ApplyEffect {836045448187904}: Heal {836045448945570}]" +
		" (2500)"

	ev, ok := p.ParseLine(2, line)
	require.True(t, ok)
	require.Equal(t, model.EntityPlayer, ev.Target.Type)
	require.Equal(t, ev.Source.Name, ev.Target.Name)
}

func TestParseLineRejectsMalformedBracketCount(t *testing.T) {
	p := logparser.New(sessionAnchor(t))
	_, ok := p.ParseLine(3, "not a combat log line")
	require.False(t, ok)
}

func TestParseLineMidnightRollover(t *testing.T) {
	anchor := time.Date(2026, 7, 31, 23, 59, 0, 0, time.UTC)
	p := logparser.New(anchor)

	line := "[00:00:30.000][]" +
		"[]" +
		"[]" +
		"[AreaEntered {836045448187910}: Foundry {1} Veteran {2}]" +
		""

	ev, ok := p.ParseLine(4, line)
	require.True(t, ok)
	require.Equal(t, 2026, ev.Timestamp.Year())
	require.Equal(t, time.August, ev.Timestamp.Month())
	require.Equal(t, 1, ev.Timestamp.Day())
}

func TestParseLineTauntThreat(t *testing.T) {
	p := logparser.New(sessionAnchor(t))
	line := "[18:16:00.500][Vekk'tah#112233|1,2,3|(100000/100000)]" +
		"[Dread Master {445566}/778899|4,5,6|(95000/100000)]" +
		"[Provoke {222}]" +
		"[ApplyEffect {836045448187904}: Taunt {836045448945580}]" +
		" <500.0>"

	ev, ok := p.ParseLine(5, line)
	require.True(t, ok)
	require.InDelta(t, float32(500.0), ev.Details.Threat, 0.001)
}
