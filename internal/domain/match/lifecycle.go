package match

import (
	"strings"
	"unicode"
)

// State is the lifecycle classification of a match.
type State string

const (
	StateScheduled State = "scheduled"
	StateLive      State = "live"
	StateHalftime  State = "halftime"
	StateFinished  State = "finished"
	StateUnknown   State = "unknown"
)

const (
	minuteMark   = "'"
	halftimeWord = "descanso"
)

var finishedStageKeywords = []string{
	"preview", "finalizado", "final", "terminado", "penaltis", "postergado", "aplazado", "cancelado",
}

var liveStageKeywords = []string{
	"descanso", "en directo", "en curso", "juego", "gol", "parte", "tiempo", "prórroga", "extra",
}

type lifecycleInput struct {
	time  string
	stage string
}

// LifecycleRule is one entry of the prioritized classification table.
type LifecycleRule struct {
	Name  string
	State State
	match func(in lifecycleInput) bool
}

// LifecycleRules is evaluated top to bottom; the first matching rule wins.
// "descanso" must be caught by live-stage before minute-mark is considered,
// and finished-stage must short-circuit any live looking clock text.
var LifecycleRules = []LifecycleRule{
	{Name: "finished-stage", State: StateFinished, match: func(in lifecycleInput) bool {
		return containsAny(in.stage, finishedStageKeywords)
	}},
	{Name: "live-stage", State: StateLive, match: func(in lifecycleInput) bool {
		return containsAny(in.stage, liveStageKeywords)
	}},
	{Name: "minute-mark", State: StateLive, match: func(in lifecycleInput) bool {
		return strings.Contains(in.stage, minuteMark) || strings.Contains(in.time, minuteMark)
	}},
	{Name: "running-minute", State: StateLive, match: func(in lifecycleInput) bool {
		return startsWithDigit(in.time) && !strings.ContainsAny(in.time, ":.")
	}},
}

// Classify runs the rule table over free-text clock and stage values and
// reports whether the clock should blink.
func Classify(rawTime, rawStage string) (State, bool) {
	in := lifecycleInput{
		time:  normalizeText(rawTime),
		stage: normalizeText(rawStage),
	}

	state := StateScheduled
	if in.time == "" && in.stage == "" {
		state = StateUnknown
	}
	for _, rule := range LifecycleRules {
		if rule.match(in) {
			state = rule.State
			break
		}
	}

	blinking := (strings.Contains(rawTime, minuteMark) || strings.Contains(rawStage, minuteMark)) &&
		!IsHalftimeLabel(DisplayStage(rawTime, rawStage))
	return state, blinking
}

// SplitDisplayTime splits raw clock text at its first letter into a leading
// numeric-ish segment and a trailing label.
func SplitDisplayTime(raw string) (numeric, label string) {
	raw = strings.TrimSpace(raw)
	for i, r := range raw {
		if unicode.IsLetter(r) {
			return strings.TrimSpace(raw[:i]), strings.TrimSpace(raw[i:])
		}
	}
	return raw, ""
}

// DisplayStage is the stage text shown to the viewer: the stage itself, or the
// label split off the clock text when the stage is blank.
func DisplayStage(rawTime, rawStage string) string {
	if stage := strings.TrimSpace(rawStage); stage != "" {
		return stage
	}
	_, label := SplitDisplayTime(rawTime)
	return label
}

func IsHalftimeLabel(stage string) bool {
	return strings.Contains(normalizeText(stage), halftimeWord)
}

// Classification is the full per-match presentation decision.
type Classification struct {
	State        State
	DisplayState State
	DisplayTime  string
	DisplayStage string
	Blinking     bool
	Halftime     bool
}

func (c Classification) IsLive() bool {
	return c.State == StateLive
}

func (c Classification) IsFinished() bool {
	return c.State == StateFinished
}

// Describe classifies a match using its display stage, so a label carried in
// the clock text (e.g. "90' Final") counts when the stage itself is blank.
func Describe(rawTime, rawStage string) Classification {
	displayTime, _ := SplitDisplayTime(rawTime)
	displayStage := DisplayStage(rawTime, rawStage)

	state, blinking := Classify(rawTime, displayStage)
	out := Classification{
		State:        state,
		DisplayState: state,
		DisplayTime:  displayTime,
		DisplayStage: displayStage,
		Blinking:     blinking,
	}
	if state == StateLive && IsHalftimeLabel(displayStage) {
		out.Halftime = true
		out.DisplayState = StateHalftime
	}
	return out
}

func normalizeText(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

func containsAny(text string, keywords []string) bool {
	if text == "" {
		return false
	}
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

func startsWithDigit(text string) bool {
	if text == "" {
		return false
	}
	return text[0] >= '0' && text[0] <= '9'
}
