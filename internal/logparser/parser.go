// Package logparser turns raw combat log lines into model.CombatEvent
// values. The grammar is five bracket-delimited fields followed by a
// trailing details segment:
//
//	[HH:MM:SS.mmm][source][target][action][effect] details
//
// A line that doesn't have exactly five `[`/`]` pairs is not a combat
// event (commentary, blank lines, truncated writes) and is skipped
// rather than treated as an error.
package logparser

import (
	"strconv"
	"strings"
	"time"

	"github.com/baras-go/combatlog/internal/intern"
	"github.com/baras-go/combatlog/internal/model"
)

// Parser holds the session's anchor date, used to resolve the
// time-only timestamps the log emits into absolute instants, including
// the midnight rollover a long session runs past.
type Parser struct {
	sessionDate time.Time
}

// New builds a Parser anchored to sessionDate, normally derived from
// the log file's name or its first line's calendar date.
func New(sessionDate time.Time) *Parser {
	return &Parser{sessionDate: sessionDate}
}

// ParseLine parses one line of the combat log. It returns false when
// the line isn't a well-formed combat event; callers should skip it
// and move on rather than treat it as fatal.
func (p *Parser) ParseLine(lineNumber int64, line string) (model.CombatEvent, bool) {
	var zero model.CombatEvent

	openBrackets := indexAllByte(line, '[')
	closeBrackets := indexAllByte(line, ']')
	if len(openBrackets) != 5 || len(closeBrackets) != 5 {
		return zero, false
	}

	timeSeg := line[openBrackets[0]+1 : closeBrackets[0]]
	sourceSeg := line[openBrackets[1]+1 : closeBrackets[1]]
	targetSeg := line[openBrackets[2]+1 : closeBrackets[2]]
	actionSeg := line[openBrackets[3]+1 : closeBrackets[3]]
	effectSeg := line[openBrackets[4]+1 : closeBrackets[4]]
	detailsSeg := line[closeBrackets[4]+1:]

	ts, ok := p.parseTimestamp(timeSeg)
	if !ok {
		return zero, false
	}

	source, ok := parseEntity(sourceSeg)
	if !ok {
		return zero, false
	}
	target, ok := parseEntity(targetSeg)
	if !ok {
		return zero, false
	}
	if target.Type == model.EntitySelfReference {
		target = source
	}

	action, ok := parseAction(actionSeg)
	if !ok {
		return zero, false
	}

	effect := parseEffect(effectSeg)
	details := parseDetails(detailsSeg, effect.EffectID, effect.TypeID)

	return model.CombatEvent{
		LineNumber: lineNumber,
		Timestamp:  ts,
		Source:     source,
		Target:     target,
		Action:     action,
		Effect:     effect,
		Details:    details,
	}, true
}

// parseTimestamp reads "HH:MM:SS.mmm" and resolves it against the
// session's anchor date, rolling over to the next calendar day if the
// time-of-day has gone backwards since the anchor (a session that runs
// past midnight).
func (p *Parser) parseTimestamp(segment string) (time.Time, bool) {
	if len(segment) != 12 || segment[2] != ':' || segment[5] != ':' || segment[8] != '.' {
		return time.Time{}, false
	}
	b := segment
	hour := int(b[0]-'0')*10 + int(b[1]-'0')
	minute := int(b[3]-'0')*10 + int(b[4]-'0')
	second := int(b[6]-'0')*10 + int(b[7]-'0')
	millis := int(b[9]-'0')*100 + int(b[10]-'0')*10 + int(b[11]-'0')

	anchor := p.sessionDate
	candidate := time.Date(anchor.Year(), anchor.Month(), anchor.Day(), hour, minute, second, millis*int(time.Millisecond), anchor.Location())

	if candidate.Before(anchor) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate, true
}

func parseEntity(segment string) (model.Entity, bool) {
	if strings.IndexByte(segment, '=') >= 0 {
		return model.Entity{Type: model.EntitySelfReference}, true
	}
	if segment == "" {
		return model.Entity{Type: model.EntityEmpty}, true
	}

	pipes := indexAllByte(segment, '|')
	if len(pipes) < 2 {
		return model.Entity{}, false
	}
	nameSeg := segment[:pipes[0]]
	healthSeg := segment[pipes[1]:]

	name, classID, logID, entityType, ok := parseEntityNameID(nameSeg)
	if !ok {
		return model.Entity{}, false
	}
	curHP, maxHP, ok := parseEntityHealth(healthSeg)
	if !ok {
		return model.Entity{}, false
	}

	return model.Entity{
		Type:      entityType,
		Name:      intern.Intern(name),
		ClassID:   classID,
		LogID:     logID,
		CurrentHP: curHP,
		MaxHP:     maxHP,
	}, true
}

func parseEntityHealth(segment string) (int32, int32, bool) {
	paren := strings.IndexByte(segment, '(')
	slash := strings.IndexByte(segment, '/')
	parenEnd := strings.IndexByte(segment, ')')
	if paren < 0 || slash < 0 || parenEnd < 0 {
		return 0, 0, false
	}
	current := parseI32(segment[paren+1 : slash])
	max := parseI32(segment[slash+1 : parenEnd])
	return current, max, true
}

func parseEntityNameID(segment string) (name string, classID, logID int64, entityType model.EntityType, ok bool) {
	brace := strings.IndexByte(segment, '{')
	endBrace := strings.IndexByte(segment, '}')
	hashtag := strings.IndexByte(segment, '#')
	slash := strings.IndexByte(segment, '/')

	if hashtag >= 0 {
		playerName := strings.TrimPrefix(segment[:hashtag], "@")
		if slash < 0 {
			playerID := parseI64(segment[hashtag+1:])
			return playerName, 0, playerID, model.EntityPlayer, true
		}
		if brace < 0 || endBrace < 0 {
			return "", 0, 0, 0, false
		}
		companionName := segment[slash+1 : brace-1]
		companionCharID := parseI64(segment[brace+1 : endBrace])
		companionLogID := parseI64(segment[endBrace+2:])
		return companionName, companionCharID, companionLogID, model.EntityCompanion, true
	}

	if brace < 0 || endBrace < 0 {
		return "", 0, 0, 0, false
	}
	npcName := strings.TrimSpace(segment[:brace])
	npcCharID := parseI64(segment[brace+1 : endBrace])
	npcLogID := parseI64(segment[endBrace+2:])
	return npcName, npcCharID, npcLogID, model.EntityNpc, true
}

func parseAction(segment string) (model.Action, bool) {
	if segment == "" {
		return model.Action{}, true
	}
	brace := strings.IndexByte(segment, '{')
	endBrace := strings.IndexByte(segment, '}')
	if brace < 0 || endBrace < 0 {
		return model.Action{}, false
	}
	name := strings.TrimSpace(segment[:brace])
	id := parseI64(segment[brace+1 : endBrace])
	return model.Action{Name: intern.Intern(name), ID: id}, true
}

func parseEffect(segment string) model.Effect {
	braces := indexAllByte(segment, '{')
	endBraces := indexAllByte(segment, '}')
	slash := strings.IndexByte(segment, '/')

	if len(braces) < 2 || len(endBraces) < 2 {
		return model.Effect{}
	}

	typeName := strings.TrimSpace(segment[:braces[0]])
	typeID := parseI64(segment[braces[0]+1 : endBraces[0]])
	effectName := strings.TrimSpace(segment[endBraces[0]+2 : braces[1]-1])
	effectID := parseI64(segment[braces[1]+1 : endBraces[1]])

	effect := model.Effect{
		TypeName:   intern.Intern(typeName),
		TypeID:     typeID,
		EffectName: intern.Intern(effectName),
		EffectID:   effectID,
	}

	if typeID == model.EffectTypeIDAreaEntered && len(braces) == 3 {
		effect.DifficultyName = intern.Intern(strings.TrimSpace(segment[endBraces[1]+1 : braces[2]]))
		effect.DifficultyID = parseI64(segment[braces[2]+1 : endBraces[2]])
	}

	if typeID == model.EffectTypeIDDisciplineChanged && slash >= 0 && len(braces) == 3 {
		effect.DisciplineName = intern.Intern(strings.TrimSpace(segment[slash+1 : braces[2]]))
		effect.DisciplineID = parseI64(segment[braces[2]+1 : endBraces[2]])
	}

	return effect
}

func parseDetails(segment string, effectID, effectTypeID int64) model.Details {
	switch effectID {
	case model.EffectIDDamage:
		return parseDmgDetails(segment)
	case model.EffectIDHeal:
		return parseHealDetails(segment)
	case model.EffectIDTaunt:
		angle := strings.IndexByte(segment, '<')
		angleEnd := strings.IndexByte(segment, '>')
		return model.Details{Threat: parseThreat(segment, angle, angleEnd)}
	default:
		if (effectTypeID == model.EffectTypeIDApplyEffect || effectTypeID == model.EffectTypeIDModifyCharges) &&
			strings.IndexByte(segment, '(') >= 0 {
			return parseCharges(segment)
		}
		return model.Details{}
	}
}

func parseThreat(segment string, angle, angleEnd int) float32 {
	if angle < 0 || angleEnd < 0 || angleEnd <= angle {
		return 0
	}
	v, err := strconv.ParseFloat(segment[angle+1:angleEnd], 32)
	if err != nil {
		return 0
	}
	return float32(v)
}

func parseDmgDetails(segment string) model.Details {
	paren := strings.IndexByte(segment, '(')
	if paren < 0 {
		return model.Details{}
	}
	parenEnd := rfindMatchingParen(segment, paren)
	if parenEnd < 0 {
		return model.Details{}
	}
	angle := strings.IndexByte(segment, '<')
	angleEnd := strings.IndexByte(segment, '>')
	threat := parseThreat(segment, angle, angleEnd)

	inner := segment[paren+1 : parenEnd]

	if strings.TrimSpace(inner) == "0 -" {
		return model.Details{
			DmgAmount:     0,
			DefenseTypeID: model.DefenseTypeReflected,
			IsReflect:     true,
			Threat:        threat,
		}
	}

	isCrit := strings.IndexByte(inner, '*') >= 0

	defenseTypeID := int64(0)
	if dash := strings.IndexByte(inner, '-'); dash >= 0 {
		after := inner[dash+1:]
		b, be := strings.IndexByte(after, '{'), strings.IndexByte(after, '}')
		if b >= 0 && be >= 0 {
			defenseTypeID = parseI64(after[b+1 : be])
		}
	}

	isReflect := strings.Contains(inner, "}(")

	amountEnd := firstNonDigit(inner)
	dmgAmount := parseI32(inner[:amountEnd])

	dmgEffective := dmgAmount
	if tilde := strings.IndexByte(inner, '~'); tilde >= 0 {
		start := tilde + 1
		end := start + firstNonDigit(inner[start:])
		dmgEffective = parseI32(inner[start:end])
	}

	var dmgTypeName intern.IStr
	var dmgTypeID int64
	if brace, braceEnd := strings.IndexByte(inner, '{'), strings.IndexByte(inner, '}'); brace >= 0 && braceEnd >= 0 {
		typeStart := 0
		if ws := strings.LastIndexFunc(strings.TrimRight(inner[:brace], " \t"), func(r rune) bool {
			return r == ' ' || r == '\t'
		}); ws >= 0 {
			typeStart = ws + 1
		}
		dmgType := strings.TrimSpace(inner[typeStart:brace])
		dmgTypeIDCandidate := parseI64(inner[brace+1 : braceEnd])
		if !strings.Contains(dmgType, "-") {
			dmgTypeName = intern.Intern(dmgType)
			dmgTypeID = dmgTypeIDCandidate
		}
	}

	dmgAbsorbed := int32(0)
	if absorbedPos := strings.Index(inner, model.EffectAbsorbedMarker); absorbedPos >= 0 {
		before := inner[:absorbedPos]
		if nestedParen := strings.LastIndexByte(before, '('); nestedParen >= 0 {
			numSection := strings.TrimLeft(before[nestedParen+1:], " \t")
			numEnd := firstNonDigit(numSection)
			dmgAbsorbed = parseI32(numSection[:numEnd])
		}
	}

	return model.Details{
		DmgAmount:     dmgAmount,
		DmgEffective:  dmgEffective,
		DmgTypeID:     dmgTypeID,
		DmgTypeName:   dmgTypeName,
		DmgAbsorbed:   dmgAbsorbed,
		IsCrit:        isCrit,
		IsReflect:     isReflect,
		DefenseTypeID: defenseTypeID,
		Threat:        threat,
	}
}

func parseHealDetails(segment string) model.Details {
	paren := strings.IndexByte(segment, '(')
	parenEnd := strings.IndexByte(segment, ')')
	if paren < 0 || parenEnd < 0 {
		return model.Details{}
	}
	angle := strings.IndexByte(segment, '<')
	angleEnd := strings.IndexByte(segment, '>')
	threat := parseThreat(segment, angle, angleEnd)

	inner := segment[paren+1 : parenEnd]
	isCrit := strings.IndexByte(inner, '*') >= 0

	amountEnd := firstNonDigit(inner)
	healAmount := parseI32(inner[:amountEnd])

	healEffective := healAmount
	if tilde := strings.IndexByte(inner, '~'); tilde >= 0 {
		start := tilde + 1
		end := start + firstNonDigit(inner[start:])
		healEffective = parseI32(inner[start:end])
	}

	return model.Details{
		HealAmount:    healAmount,
		HealEffective: healEffective,
		IsHealCrit:    isCrit,
		Threat:        threat,
	}
}

func parseCharges(segment string) model.Details {
	paren := strings.IndexByte(segment, '(')
	parenEnd := strings.IndexByte(segment, ')')
	brace := strings.IndexByte(segment, '{')
	braceEnd := strings.IndexByte(segment, '}')
	if paren < 0 || parenEnd < 0 || brace < 0 || braceEnd < 0 {
		return model.Details{}
	}

	inner := segment[paren+1 : parenEnd]
	countEnd := firstNonDigit(inner)
	charges := parseI32(inner[:countEnd])
	abilityID := parseI64(segment[brace+1 : braceEnd])

	return model.Details{Charges: charges, AbilityID: abilityID}
}

// rfindMatchingParen returns the index of the `)` matching the `(` at
// start, accounting for nesting (damage details can contain a nested
// absorbed-amount parenthetical).
func rfindMatchingParen(s string, start int) int {
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func firstNonDigit(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return i
		}
	}
	return len(s)
}

func indexAllByte(s string, c byte) []int {
	var out []int
	for i := 0; ; {
		j := strings.IndexByte(s[i:], c)
		if j < 0 {
			return out
		}
		out = append(out, i+j)
		i += j + 1
	}
}

func parseI64(s string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseI32(s string) int32 {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0
	}
	return int32(v)
}
