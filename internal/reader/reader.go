// Package reader loads a combat log's historical contents in one pass
// and then tails it for new lines, handing each parsed line to a
// callback. It also watches a directory of logs and auto-switches to
// the newest file as it's created, the way the live client rotates to
// a fresh combat_*.txt at the start of every session.
package reader

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/baras-go/combatlog/internal/logparser"
	"github.com/baras-go/combatlog/internal/model"
)

// LineHandler is called once per successfully parsed line. The event's
// LineNumber is 1-based and counts every line read in that pass,
// including ones that failed to parse as a combat event: ReadAll
// counts from the start of the file, Tail from its startOffset.
type LineHandler func(ev model.CombatEvent)

// HistoricalResult summarizes a ReadAll pass.
type HistoricalResult struct {
	EventsParsed int
	LinesSkipped int
	EndOffset    int64
}

// ReadAll parses every line of the file at path from the start, in
// order, invoking handle for each line that parses as a combat event.
// It returns the byte offset of the end of the file, for a caller that
// wants to Tail from exactly where this pass left off.
func ReadAll(path string, parser *logparser.Parser, handle LineHandler) (HistoricalResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return HistoricalResult{}, fmt.Errorf("reader: opening %s: %w", path, err)
	}
	defer f.Close()

	var result HistoricalResult
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lineNumber int64
	for scanner.Scan() {
		lineNumber++
		result.EndOffset += int64(len(scanner.Bytes())) + 1
		ev, ok := parser.ParseLine(lineNumber, scanner.Text())
		if !ok {
			result.LinesSkipped++
			continue
		}
		result.EventsParsed++
		handle(ev)
	}
	if err := scanner.Err(); err != nil {
		return result, fmt.Errorf("reader: scanning %s: %w", path, err)
	}

	if fi, err := f.Stat(); err == nil {
		result.EndOffset = fi.Size()
	}
	return result, nil
}

// Tail opens the file at path, seeks to startOffset, and polls for new
// lines until stop is closed, invoking handle for each combat event
// line as it's written. A short sleep between polls stands in for the
// OS-level file-change notification the log writer doesn't emit.
func Tail(path string, startOffset int64, parser *logparser.Parser, handle LineHandler, stop <-chan struct{}) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("reader: opening %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Seek(startOffset, io.SeekStart); err != nil {
		return fmt.Errorf("reader: seeking %s: %w", path, err)
	}

	reader := bufio.NewReader(f)
	var lineNumber int64
	var partial strings.Builder

	const pollInterval = 100 * time.Millisecond
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return nil
		default:
		}

		line, err := reader.ReadString('\n')
		if err != nil {
			if err != io.EOF {
				return fmt.Errorf("reader: reading %s: %w", path, err)
			}
			// Partial line (no trailing newline yet): buffer it and
			// prepend it to the rest of the line once more data has
			// been appended.
			partial.WriteString(line)
			select {
			case <-stop:
				return nil
			case <-ticker.C:
			}
			continue
		}

		full := partial.String() + line
		partial.Reset()
		lineNumber++

		ev, ok := parser.ParseLine(lineNumber, strings.TrimRight(full, "\r\n"))
		if ok {
			handle(ev)
		}
	}
}

// IsCombatLog reports whether name matches the game client's combat
// log naming convention.
func IsCombatLog(name string) bool {
	name = filepath.Base(name)
	return strings.HasPrefix(name, "combat_") && strings.HasSuffix(strings.ToLower(name), ".txt")
}

// NewestCombatLog returns the most recently modified combat_*.txt file
// directly under dir, or ok=false if none exist.
func NewestCombatLog(dir string) (path string, ok bool, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false, fmt.Errorf("reader: reading directory %s: %w", dir, err)
	}

	type candidate struct {
		path    string
		modTime time.Time
	}
	var candidates []candidate
	for _, e := range entries {
		if e.IsDir() || !IsCombatLog(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate{filepath.Join(dir, e.Name()), info.ModTime()})
	}
	if len(candidates) == 0 {
		return "", false, nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].modTime.After(candidates[j].modTime)
	})
	return candidates[0].path, true, nil
}
