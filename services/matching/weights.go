package matching

// Weights holds every tier score, weighting rule and bonus the scorer uses.
type Weights struct {
	TitleExactOriginal     float64
	TitleExactProcessed    float64
	TitleCloseOriginal     float64
	TitleCloseProcessed    float64
	TitleRomanized         float64
	TitleContainsOriginal  float64
	TitleInOriginal        float64
	TitleContainsProcessed float64
	TitleInProcessed       float64
	TitleFuzzy             float64
	FuzzyThreshold         float64 // Jaro-Winkler similarity needed for TitleFuzzy
	MinContainedLength     int     // Containment tiers need the contained side to be longer than this (runes)

	ArtistExactOriginal     float64
	ArtistExactProcessed    float64
	ArtistContainsOriginal  float64
	ArtistContainsProcessed float64
	ArtistCeiling           float64

	// Title weight; the artist weight is the remainder.
	TitleWeight          float64
	ArtistLedTitleWeight float64
	TitleLedTitleWeight  float64
	ArtistLedArtistMin   float64
	ArtistLedTitleMin    float64
	TitleLedTitleMin     float64
	TitleLedArtistMin    float64

	ExactTitleFloor        float64
	CorroborationTitleMin  float64
	CorroborationArtistMin float64
	CorroborationBonus     float64
	TrustedArtistTitleMin  float64
	TrustedArtistBonus     float64
	ExactMatchScore        float64
}

// DefaultWeights returns the tuned defaults.
func DefaultWeights() Weights {
	return Weights{
		TitleExactOriginal:     100,
		TitleExactProcessed:    90,
		TitleCloseOriginal:     80,
		TitleCloseProcessed:    70,
		TitleRomanized:         65,
		TitleContainsOriginal:  60,
		TitleInOriginal:        50,
		TitleContainsProcessed: 40,
		TitleInProcessed:       30,
		TitleFuzzy:             20,
		FuzzyThreshold:         0.9,
		MinContainedLength:     3,

		ArtistExactOriginal:     100,
		ArtistExactProcessed:    80,
		ArtistContainsOriginal:  60,
		ArtistContainsProcessed: 40,
		ArtistCeiling:           100,

		TitleWeight:          0.6,
		ArtistLedTitleWeight: 0.4,
		TitleLedTitleWeight:  0.8,
		ArtistLedArtistMin:   80,
		ArtistLedTitleMin:    40,
		TitleLedTitleMin:     90,
		TitleLedArtistMin:    40,

		ExactTitleFloor:        95,
		CorroborationTitleMin:  70,
		CorroborationArtistMin: 80,
		CorroborationBonus:     15,
		TrustedArtistTitleMin:  40,
		TrustedArtistBonus:     10,
		ExactMatchScore:        200,
	}
}

// titleWeight picks the title share of the combined score.
func (w Weights) titleWeight(title, artist float64) float64 {
	switch {
	case artist >= w.ArtistLedArtistMin && title >= w.ArtistLedTitleMin:
		return w.ArtistLedTitleWeight
	case title >= w.TitleLedTitleMin && artist >= w.TitleLedArtistMin:
		return w.TitleLedTitleWeight
	default:
		return w.TitleWeight
	}
}
