// Package guardrails screens incoming questions and outgoing answers against
// policy: input length, encoded-content heuristics, a prompt-injection
// pattern catalog, and PII detection. Blocking is reserved for length
// violations and injection matches; PII and output findings are advisory
// flags surfaced to the caller.
package guardrails

import (
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"
)

// Flags outside the pattern catalog.
const (
	FlagExcessiveLength = "excessive_input_length"
	FlagEncodedContent  = "encoded_content"
	FlagExcessiveOutput = "excessive_output_length"
	FlagHallucination   = "possible_hallucination"
)

// Config holds the guardrail policy knobs.
type Config struct {
	// MaxInputChars blocks longer inputs as a stuffing defense.
	MaxInputChars int
	// MaxOutputChars flags (not blocks) longer answers.
	MaxOutputChars int
	// MaxControlChars flags inputs with more non-printable runes than this.
	MaxControlChars int
}

// DefaultConfig returns the policy defaults.
func DefaultConfig() Config {
	return Config{
		MaxInputChars:   5000,
		MaxOutputChars:  3000,
		MaxControlChars: 4,
	}
}

// InputResult is the outcome of screening a question.
type InputResult struct {
	Blocked bool
	Flags   []string
}

// OutputResult is the outcome of screening a generated answer.
type OutputResult struct {
	Flags []string
}

// Engine applies the guardrail policy.
type Engine struct {
	cfg    Config
	logger *logrus.Logger
}

// NewEngine creates a guardrail engine with the given policy.
func NewEngine(cfg Config, logger *logrus.Logger) *Engine {
	if cfg.MaxInputChars <= 0 {
		cfg.MaxInputChars = 5000
	}
	if cfg.MaxOutputChars <= 0 {
		cfg.MaxOutputChars = 3000
	}
	if cfg.MaxControlChars <= 0 {
		cfg.MaxControlChars = 4
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Engine{cfg: cfg, logger: logger}
}

// ScreenInput runs the input checks in order, accumulating all flags. The
// length check blocks immediately; injection matches block but later checks
// still run so the caller sees every finding.
func (e *Engine) ScreenInput(text string) InputResult {
	var res InputResult

	if len(text) > e.cfg.MaxInputChars {
		res.Blocked = true
		res.Flags = append(res.Flags, FlagExcessiveLength)
		e.logger.WithField("length", len(text)).Warn("input blocked: length limit")
		return res
	}

	if e.looksEncoded(text) {
		res.Flags = append(res.Flags, FlagEncodedContent)
	}

	matched := make(map[string]struct{})
	for _, p := range injectionCatalog {
		if p.Matcher.MatchString(text) {
			res.Blocked = true
			if _, dup := matched[p.Category]; !dup {
				matched[p.Category] = struct{}{}
				res.Flags = append(res.Flags, p.Category)
			}
		}
	}

	res.Flags = append(res.Flags, DetectPII(text)...)

	if res.Blocked {
		e.logger.WithField("flags", res.Flags).Warn("input blocked by guardrails")
	}
	return res
}

// ScreenOutput re-runs PII detection on the generated answer (the model may
// echo or fabricate PII) and adds output-quality flags. Grounding is scored
// separately by the grounding validator; its flag is appended by the caller.
func (e *Engine) ScreenOutput(answer string) OutputResult {
	var res OutputResult

	res.Flags = append(res.Flags, DetectPII(answer)...)

	lower := strings.ToLower(answer)
	for _, phrase := range hallucinationPhrases {
		if strings.Contains(lower, phrase) {
			res.Flags = append(res.Flags, FlagHallucination)
			break
		}
	}

	if len(answer) > e.cfg.MaxOutputChars {
		res.Flags = append(res.Flags, FlagExcessiveOutput)
	}

	if len(res.Flags) > 0 {
		e.logger.WithField("flags", res.Flags).Warn("output guardrail flags")
	}
	return res
}

// DetectPII returns one flag per PII category found. PII never blocks; the
// user's own documents may legitimately contain it.
func DetectPII(text string) []string {
	var flags []string
	for _, p := range piiCatalog {
		if p.Matcher.MatchString(text) {
			flags = append(flags, p.Flag)
		}
	}
	return flags
}

// looksEncoded applies the evasion heuristics: long base64-like runs,
// literal escape sequences, or an excess of control characters.
func (e *Engine) looksEncoded(text string) bool {
	if base64Run.MatchString(text) {
		return true
	}
	if strings.Contains(text, `\x`) || strings.Contains(text, `\u`) {
		return true
	}
	control := 0
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			control++
			if control > e.cfg.MaxControlChars {
				return true
			}
		}
	}
	return false
}

// Catalog exposes the injection catalog for tests and policy listings.
func Catalog() []InjectionPattern {
	out := make([]InjectionPattern, len(injectionCatalog))
	copy(out, injectionCatalog)
	return out
}
