package overlay_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/baras-go/combatlog/internal/overlay"
	"github.com/baras-go/combatlog/internal/platform/logger"
	"github.com/baras-go/combatlog/internal/signalbus"
)

func TestHubImplementsSignalHandler(t *testing.T) {
	var _ signalbus.SignalHandler = (*overlay.Hub)(nil)
}

func TestHubBroadcastDoesNotBlockWithoutRunningLoop(t *testing.T) {
	h := overlay.NewHub(logger.NewNop())

	require.NotPanics(t, func() {
		h.OnEncounterStart(1)
		h.HandleSignal(signalbus.Signal{Kind: signalbus.KindCombatStarted}, signalbus.EncounterContext{})
		h.OnEncounterEnd(1)
	})
}
