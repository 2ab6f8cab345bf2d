package analysis

import (
	"github.com/brunobiangulo/gonarrate/sentiment"
	"github.com/brunobiangulo/gonarrate/setting"
	"github.com/brunobiangulo/gonarrate/tone"
)

// VectorDim is the length of Result.Vector: emotions, tones, periods,
// places and themes, each in canonical order.
var VectorDim = len(sentiment.Emotions) + len(tone.Tones) + len(setting.Periods) +
	len(setting.Places) + len(setting.Themes)

// Vector flattens the bounded facet scores of r into a fixed-length vector
// for similarity search. Every component is in [0, 1].
func (r *Result) Vector() []float32 {
	v := make([]float32, 0, VectorDim)
	for _, k := range sentiment.Emotions {
		v = append(v, float32(r.Sentiment.Emotions[k]))
	}
	for _, k := range tone.Tones {
		v = append(v, float32(r.Tone.ToneScores[k]))
	}
	for _, k := range setting.Periods {
		v = append(v, float32(r.Context.TemporalContext.PeriodScores[k]))
	}
	for _, k := range setting.Places {
		v = append(v, float32(r.Context.SpatialContext.SettingScores[k]))
	}
	for _, k := range setting.Themes {
		v = append(v, float32(r.Context.Themes[k]))
	}
	return v
}

// IsZero reports whether v carries no signal. Such vectors have no cosine
// direction and are kept out of similarity indexes.
func IsZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
