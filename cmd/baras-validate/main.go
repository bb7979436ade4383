// Command baras-validate replays a combat log file in historical mode
// and prints a colorized trace plus a closing line with the number of
// events parsed and lines skipped (no per-encounter totals), without
// opening a network socket or persisting anything. It exists
// to validate a combat log and a definitions directory against each
// other offline.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/baras-go/combatlog/internal/boss"
	"github.com/baras-go/combatlog/internal/cliout"
	"github.com/baras-go/combatlog/internal/config"
	"github.com/baras-go/combatlog/internal/effects"
	"github.com/baras-go/combatlog/internal/logparser"
	"github.com/baras-go/combatlog/internal/processor"
	"github.com/baras-go/combatlog/internal/reader"
	"github.com/baras-go/combatlog/internal/session"
	"github.com/baras-go/combatlog/internal/signalbus"
	"github.com/baras-go/combatlog/internal/timers"
)

func main() {
	bundledDefs := flag.String("bundled-definitions", "definitions/bundled", "directory of bundled boss/effect/timer/challenge YAML")
	customDefs := flag.String("custom-definitions", "", "directory of custom overrides, merged over the bundled set")
	verbose := flag.Bool("verbose", false, "also print boss HP and counter changes, not just boss/phase/death events")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: baras-validate [flags] <combat-log-file>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	defs, err := config.LoadDefinitions(*bundledDefs, *customDefs)
	if err != nil {
		fmt.Fprintln(os.Stderr, "baras-validate:", err)
		os.Exit(1)
	}

	bossSet := boss.NewSet(defs.Bosses)

	effectDefs := effects.NewDefinitionSet()
	effectDefs.AddDefinitions(defs.Effects, false)
	effectTracker := effects.NewTracker(effectDefs)
	effectTracker.SetLiveMode(false)

	timerMgr := timers.NewManager()
	timerMgr.LoadDefinitions(defs.Timers)
	timerMgr.SetLiveMode(false)

	level := cliout.Normal
	if *verbose {
		level = cliout.Verbose
	}
	trace := cliout.New(os.Stdout, level)

	bus := signalbus.NewBus()
	bus.Register(effectTracker)
	bus.Register(timerMgr)
	bus.Register(trace)

	cache := session.New()
	parser := logparser.New(time.Now())
	proc := processor.New(cache, bossSet, bus)

	started := time.Now()
	result, err := reader.ReadAll(path, parser, proc.Process)
	if err != nil {
		fmt.Fprintln(os.Stderr, "baras-validate:", err)
		os.Exit(1)
	}
	elapsed := time.Since(started)

	fmt.Printf("\nparsed %d events (%d lines skipped) from %s in %s\n",
		result.EventsParsed, result.LinesSkipped, path, elapsed.Round(time.Millisecond))
}
