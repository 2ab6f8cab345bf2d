package sentiment

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrMalformed is returned when a classifier answer cannot be mapped.
var ErrMalformed = errors.New("sentiment: malformed classifier output")

// MapClassification maps a classifier answer onto the label set. Accepted
// label spaces: POSITIVE/NEGATIVE/NEUTRAL, POS/NEG/NEU, LABEL_0..LABEL_2
// (negative, neutral, positive) and "1 star".."5 stars". A polar label with
// a confidence below threshold becomes NEUTRAL.
func MapClassification(c Classification, threshold float64) (Verdict, error) {
	if math.IsNaN(c.Confidence) || c.Confidence < 0 || c.Confidence > 1 {
		return Verdict{}, fmt.Errorf("%w: confidence %v out of range", ErrMalformed, c.Confidence)
	}
	label, ok := normalizeLabel(c.Label)
	if !ok {
		return Verdict{}, fmt.Errorf("%w: unknown label %q", ErrMalformed, c.Label)
	}

	switch {
	case label == Neutral:
		return Verdict{Label: Neutral, Score: c.Confidence, Source: SourceModel}, nil
	case c.Confidence < threshold:
		return Verdict{Label: Neutral, Score: 0.5, Source: SourceModel}, nil
	case label == Positive:
		return Verdict{Label: Positive, Score: c.Confidence, Polarity: c.Confidence, Source: SourceModel}, nil
	default:
		return Verdict{Label: Negative, Score: c.Confidence, Polarity: -c.Confidence, Source: SourceModel}, nil
	}
}

func normalizeLabel(raw string) (Label, bool) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	switch s {
	case "POSITIVE", "POS", "LABEL_2":
		return Positive, true
	case "NEGATIVE", "NEG", "LABEL_0":
		return Negative, true
	case "NEUTRAL", "NEU", "LABEL_1":
		return Neutral, true
	}

	// Star ratings: "4 stars", "1 star".
	fields := strings.Fields(s)
	if len(fields) != 2 || (fields[1] != "STAR" && fields[1] != "STARS") {
		return "", false
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return "", false
	}
	switch {
	case n == 1 || n == 2:
		return Negative, true
	case n == 3:
		return Neutral, true
	case n == 4 || n == 5:
		return Positive, true
	}
	return "", false
}
