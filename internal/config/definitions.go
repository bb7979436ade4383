package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/baras-go/combatlog/internal/boss"
	"github.com/baras-go/combatlog/internal/challenge"
	"github.com/baras-go/combatlog/internal/effects"
	"github.com/baras-go/combatlog/internal/timers"
)

// DefinitionDocument is the on-disk shape of one YAML definitions
// file: any subset of the four definition kinds, all optional.
type DefinitionDocument struct {
	Bosses     []boss.Definition      `yaml:"bosses"`
	Effects    []effects.Definition   `yaml:"effects"`
	Timers     []timers.Definition    `yaml:"timers"`
	Challenges []challenge.Definition `yaml:"challenges"`
}

// Definitions is the fully merged, ready-to-use set of definitions a
// daemon or validator needs at startup.
type Definitions struct {
	Bosses     []boss.Definition
	Effects    []effects.Definition
	Timers     []timers.Definition
	Challenges []challenge.Definition
}

// LoadDefinitions reads every *.yaml/*.yml file in customDir (if
// non-empty), then every one in bundledDir, and merges them in that
// order. Within each definition kind, a later id that collides with an
// earlier one is logged and the earlier definition wins. Because the
// custom documents come first, a custom override directory can add new
// definitions and replace bundled ones by reusing an id; within one
// directory, a file that reuses an id by accident doesn't clobber the
// definition from the file sorted before it.
func LoadDefinitions(bundledDir, customDir string) (*Definitions, error) {
	docs, err := readDocuments(bundledDir)
	if err != nil {
		return nil, fmt.Errorf("config: reading bundled definitions: %w", err)
	}
	if customDir != "" {
		customDocs, err := readDocuments(customDir)
		if err != nil {
			return nil, fmt.Errorf("config: reading custom definitions: %w", err)
		}
		docs = append(customDocs, docs...)
	}

	defs := &Definitions{}
	seenBoss := map[string]bool{}
	seenEffect := map[string]bool{}
	seenTimer := map[string]bool{}
	seenChallenge := map[string]bool{}
	var dupBoss, dupEffect, dupTimer, dupChallenge int

	for _, doc := range docs {
		for _, d := range doc.Bosses {
			if seenBoss[d.ID] {
				log.Printf("config: duplicate boss id %q, keeping first", d.ID)
				dupBoss++
				continue
			}
			seenBoss[d.ID] = true
			defs.Bosses = append(defs.Bosses, d)
		}
		for _, d := range doc.Effects {
			if seenEffect[d.ID] {
				log.Printf("config: duplicate effect id %q, keeping first", d.ID)
				dupEffect++
				continue
			}
			seenEffect[d.ID] = true
			defs.Effects = append(defs.Effects, d)
		}
		for _, d := range doc.Timers {
			if seenTimer[d.ID] {
				log.Printf("config: duplicate timer id %q, keeping first", d.ID)
				dupTimer++
				continue
			}
			seenTimer[d.ID] = true
			defs.Timers = append(defs.Timers, d)
		}
		for _, d := range doc.Challenges {
			if seenChallenge[d.ID] {
				log.Printf("config: duplicate challenge id %q, keeping first", d.ID)
				dupChallenge++
				continue
			}
			seenChallenge[d.ID] = true
			defs.Challenges = append(defs.Challenges, d)
		}
	}

	log.Printf("config: loaded %d bosses (%d dup), %d effects (%d dup), %d timers (%d dup), %d challenges (%d dup)",
		len(defs.Bosses), dupBoss, len(defs.Effects), dupEffect, len(defs.Timers), dupTimer, len(defs.Challenges), dupChallenge)

	return defs, nil
}

// readDocuments reads and unmarshals every YAML file directly under
// dir, in filename order, so a numbered prefix (00-core.yaml,
// 10-nim.yaml) controls precedence within a directory. A file that
// fails to parse is logged and skipped.
func readDocuments(dir string) ([]DefinitionDocument, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var docs []DefinitionDocument
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		var doc DefinitionDocument
		if err := yaml.Unmarshal(data, &doc); err != nil {
			log.Printf("config: skipping %s: %v", name, err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
