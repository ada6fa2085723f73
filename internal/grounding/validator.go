// Package grounding scores whether a candidate answer is supported by the
// retrieved evidence. The score is advisory: a low value flags the answer as
// ungrounded but never suppresses it, since hard-blocking on a heuristic
// overlap produces unacceptable false refusals.
package grounding

import (
	"github.com/sirupsen/logrus"

	"github.com/documind-ai/documind-go/internal/domain/entities"
	"github.com/documind-ai/documind-go/internal/tokenize"
)

// FlagUngrounded marks an answer whose confidence fell below the threshold.
const FlagUngrounded = "ungrounded"

// Config tunes the validator.
type Config struct {
	// Threshold below which the ungrounded flag is set.
	Threshold float64
	// WeightByScore credits overlap with top-ranked evidence more than
	// overlap with marginal evidence.
	WeightByScore bool
}

// DefaultConfig returns the validator defaults.
func DefaultConfig() Config {
	return Config{Threshold: 0.3, WeightByScore: true}
}

// Evidence is a retrieved chunk with its fused score.
type Evidence struct {
	Text       string
	FusedScore float64
}

// Validator computes grounding confidence.
type Validator struct {
	cfg    Config
	logger *logrus.Logger
}

// NewValidator creates a grounding validator.
func NewValidator(cfg Config, logger *logrus.Logger) *Validator {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 0.3
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Validator{cfg: cfg, logger: logger}
}

// Validate returns a confidence in [0, 1] and the advisory flags (at most
// the ungrounded flag). Confidence is the fraction of the answer's content
// words that appear in the evidence, each occurrence weighted by the best
// normalized fused score among the chunks containing it.
func (v *Validator) Validate(answer string, evidence []Evidence) (float64, []string) {
	words := tokenize.ContentWords(answer)
	if len(words) == 0 || len(evidence) == 0 {
		return 0, []string{FlagUngrounded}
	}

	maxScore := 0.0
	for _, ev := range evidence {
		if ev.FusedScore > maxScore {
			maxScore = ev.FusedScore
		}
	}

	// term -> best weight among chunks containing it
	support := make(map[string]float64)
	for _, ev := range evidence {
		weight := 1.0
		if v.cfg.WeightByScore && maxScore > 0 {
			// Marginal evidence still counts, at half credit.
			weight = 0.5 + 0.5*ev.FusedScore/maxScore
		}
		for _, tok := range tokenize.ContentWords(ev.Text) {
			if weight > support[tok] {
				support[tok] = weight
			}
		}
	}

	total := 0.0
	for _, w := range words {
		total += support[w]
	}
	confidence := total / float64(len(words))
	if confidence > 1 {
		confidence = 1
	}

	if confidence < v.cfg.Threshold {
		v.logger.WithField("confidence", confidence).Debug("answer flagged ungrounded")
		return confidence, []string{FlagUngrounded}
	}
	return confidence, nil
}

// EvidenceFromHits pairs fused hits with their chunk texts.
func EvidenceFromHits(hits []entities.RetrievalHit, texts map[string]string) []Evidence {
	out := make([]Evidence, 0, len(hits))
	for _, h := range hits {
		out = append(out, Evidence{Text: texts[h.ChunkID], FusedScore: h.FusedScore})
	}
	return out
}
