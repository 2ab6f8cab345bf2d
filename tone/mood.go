package tone

import "github.com/brunobiangulo/gonarrate/sentiment"

// Mood is the categorical mood derived from the primary tone and polarity.
type Mood string

const (
	MoodNeutral      Mood = "neutral"
	MoodProfessional Mood = "professional"
	MoodAustere      Mood = "austere"
	MoodCheerful     Mood = "cheerful"
	MoodCasual       Mood = "casual"
	MoodIrritable    Mood = "irritable"
	MoodExhilarating Mood = "exhilarating"
	MoodIntense      Mood = "intense"
	MoodTense        Mood = "tense"
	MoodLighthearted Mood = "lighthearted"
	MoodPlayful      Mood = "playful"
	MoodSardonic     Mood = "sardonic"
	MoodEarnest      Mood = "earnest"
	MoodSomber       Mood = "somber"
	MoodGrim         Mood = "grim"
	MoodUplifting    Mood = "uplifting"
	MoodHopeful      Mood = "hopeful"
	MoodBittersweet  Mood = "bittersweet"
	MoodMelancholic  Mood = "melancholic"
	MoodDark         Mood = "dark"
)

// Moods lists every mood the engine can produce.
var Moods = []Mood{
	MoodNeutral, MoodProfessional, MoodAustere, MoodCheerful, MoodCasual,
	MoodIrritable, MoodExhilarating, MoodIntense, MoodTense, MoodLighthearted,
	MoodPlayful, MoodSardonic, MoodEarnest, MoodSomber, MoodGrim, MoodUplifting,
	MoodHopeful, MoodBittersweet, MoodMelancholic, MoodDark,
}

type moodKey struct {
	tone     Tone
	polarity sentiment.Label
}

var moodTable = map[moodKey]Mood{
	{Formal, sentiment.Positive}: MoodProfessional,
	{Formal, sentiment.Neutral}:  MoodProfessional,
	{Formal, sentiment.Negative}: MoodAustere,

	{Informal, sentiment.Positive}: MoodCheerful,
	{Informal, sentiment.Neutral}:  MoodCasual,
	{Informal, sentiment.Negative}: MoodIrritable,

	{Dramatic, sentiment.Positive}: MoodExhilarating,
	{Dramatic, sentiment.Neutral}:  MoodIntense,
	{Dramatic, sentiment.Negative}: MoodTense,

	{Humorous, sentiment.Positive}: MoodLighthearted,
	{Humorous, sentiment.Neutral}:  MoodPlayful,
	{Humorous, sentiment.Negative}: MoodSardonic,

	{Serious, sentiment.Positive}: MoodEarnest,
	{Serious, sentiment.Neutral}:  MoodSomber,
	{Serious, sentiment.Negative}: MoodGrim,

	{Optimistic, sentiment.Positive}: MoodUplifting,
	{Optimistic, sentiment.Neutral}:  MoodHopeful,
	{Optimistic, sentiment.Negative}: MoodBittersweet,

	{Pessimistic, sentiment.Positive}: MoodBittersweet,
	{Pessimistic, sentiment.Neutral}:  MoodMelancholic,
	{Pessimistic, sentiment.Negative}: MoodDark,
}

// MoodFor looks up the mood of a primary tone under a polarity label.
// Unknown combinations are neutral.
func MoodFor(t Tone, polarity sentiment.Label) Mood {
	if m, ok := moodTable[moodKey{t, polarity}]; ok {
		return m
	}
	return MoodNeutral
}
