// Package cliout formats the signal stream as colored terminal output,
// the historical-replay report cmd/baras-validate prints and the
// optional live console trace cmd/combatlogd can enable alongside the
// overlay.
package cliout

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/baras-go/combatlog/internal/signalbus"
)

// Level controls how much of the signal stream gets printed.
type Level uint8

const (
	// Quiet prints only the boss-encounter line and, once a boss has
	// been detected, the combat-ended line; those two print at every
	// level.
	Quiet Level = iota
	// Normal additionally prints phase changes and deaths once a boss
	// has been detected.
	Normal
	// Verbose additionally prints boss HP changes and counter changes
	// once a boss has been detected. Other signal kinds (timers, area
	// transitions, discipline changes, target changes) are not printed
	// at any level.
	Verbose
)

// CliOutput prints a colorized, human-readable trace of the signal
// stream to an io.Writer, and implements signalbus.SignalHandler so it
// can be registered on the bus directly.
type CliOutput struct {
	w           io.Writer
	level       Level
	useColors   bool
	combatStart time.Time

	bossDetected bool
}

// New builds a CliOutput writing to w. Color is auto-detected from
// w being a terminal; there is no option to force it on or off.
func New(w io.Writer, level Level) *CliOutput {
	useColors := false
	if f, ok := w.(*os.File); ok {
		useColors = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &CliOutput{
		w:         w,
		level:     level,
		useColors: useColors,
	}
}

func (c *CliOutput) color(code, text string) string {
	if !c.useColors {
		return text
	}
	return "\x1b[" + code + "m" + text + "\x1b[0m"
}

func (c *CliOutput) green(s string) string   { return c.color("32", s) }
func (c *CliOutput) yellow(s string) string  { return c.color("33", s) }
func (c *CliOutput) red(s string) string     { return c.color("31", s) }
func (c *CliOutput) cyan(s string) string    { return c.color("36", s) }
func (c *CliOutput) magenta(s string) string { return c.color("35", s) }
func (c *CliOutput) dim(s string) string     { return c.color("2", s) }
func (c *CliOutput) bold(s string) string    { return c.color("1", s) }

func (c *CliOutput) formatTime(t time.Time) string {
	if c.combatStart.IsZero() {
		return t.Format("15:04:05.000")
	}
	delta := t.Sub(c.combatStart)
	mins := int(delta.Minutes())
	secs := delta.Seconds() - float64(mins)*60
	return fmt.Sprintf("%02d:%05.2f", mins, secs)
}

func (c *CliOutput) shouldPrint(min Level) bool {
	return c.level >= min && (c.bossDetected || min == Quiet)
}

// HandleSignal implements signalbus.SignalHandler.
func (c *CliOutput) HandleSignal(sig signalbus.Signal, ctx signalbus.EncounterContext) {
	switch sig.Kind {
	case signalbus.KindCombatStarted:
		c.combatStart = sig.Timestamp
		c.bossDetected = false

	case signalbus.KindBossEncounterDetected:
		c.bossDetected = true
		fmt.Fprintf(c.w, "[%s] %s %s %q\n",
			c.formatTime(sig.Timestamp), c.bold(">>>"), c.bold("BOSS ENCOUNTER:"), sig.BossName)

	case signalbus.KindPhaseChanged:
		if !c.shouldPrint(Normal) {
			return
		}
		fmt.Fprintf(c.w, "[%s] %s %s %q -> %q\n",
			c.formatTime(sig.Timestamp), c.cyan("=="), c.cyan("PHASE:"), sig.OldPhase, sig.NewPhase)

	case signalbus.KindBossHpChanged:
		if !c.shouldPrint(Verbose) {
			return
		}
		fmt.Fprintf(c.w, "[%s] %s boss hp %.1f%% -> %.1f%%\n",
			c.formatTime(sig.Timestamp), c.dim(sig.EntityName), sig.OldHPPercent*100, sig.NewHPPercent*100)

	case signalbus.KindEntityDeath:
		if !c.shouldPrint(Normal) {
			return
		}
		fmt.Fprintf(c.w, "[%s] %s %s %q\n",
			c.formatTime(sig.Timestamp), c.red("XXX"), c.red("DEATH:"), sig.EntityName)

	case signalbus.KindCounterChanged:
		if !c.shouldPrint(Verbose) {
			return
		}
		fmt.Fprintf(c.w, "[%s] %s counter %q: %d -> %d\n",
			c.formatTime(sig.Timestamp), c.magenta("#"), sig.CounterID, sig.OldValue, sig.NewValue)

	case signalbus.KindCombatEnded:
		if c.bossDetected {
			fmt.Fprintf(c.w, "[%s] %s %s\n",
				c.formatTime(sig.Timestamp), c.yellow("<<<"), c.yellow("COMBAT ENDED"))
		}
	}
}

// OnEncounterStart implements signalbus.SignalHandler.
func (c *CliOutput) OnEncounterStart(encounterID uint64) {}

// OnEncounterEnd implements signalbus.SignalHandler.
func (c *CliOutput) OnEncounterEnd(encounterID uint64) {}

// Summary prints the final report line for one closed encounter: boss
// name, duration, and per-player damage/healing totals, using
// humanize for readable large numbers and durations.
func (c *CliOutput) Summary(bossName string, duration time.Duration, playerDamage, playerHealing map[string]int64) {
	fmt.Fprintf(c.w, "\n%s %s (%s)\n", c.bold("Encounter summary:"), bossName, humanize.RelTime(time.Now().Add(-duration), time.Now(), "", ""))
	for name, dmg := range playerDamage {
		dps := float64(dmg) / duration.Seconds()
		fmt.Fprintf(c.w, "  %-20s %s dmg (%s dps)\n", name, humanize.Comma(dmg), humanize.Comma(int64(dps)))
	}
	for name, heal := range playerHealing {
		hps := float64(heal) / duration.Seconds()
		fmt.Fprintf(c.w, "  %-20s %s heal (%s hps)\n", name, humanize.Comma(heal), humanize.Comma(int64(hps)))
	}
}
