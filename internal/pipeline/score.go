package pipeline

import "github.com/bhvbhushan/card-capture-api/internal/model"

// clarityBase is the base confidence contributed by text legibility.
var clarityBase = map[model.TextClarity]float64{
	model.ClarityClear:       0.95,
	model.ClarityMostlyClear: 0.85,
	model.ClarityUnclear:     0.40,
	model.ClarityUnreadable:  0.10,
}

// certaintyModifier scales confidence by the model's stated certainty.
var certaintyModifier = map[model.Certainty]float64{
	model.Certain:       1.0,
	model.MostlyCertain: 0.9,
	model.Uncertain:     0.5,
}

// editModifier scales confidence by the kind of edit the model made.
// Obvious mechanical fixes carry no penalty; edits born of unclear text do.
var editModifier = map[model.EditType]float64{
	model.EditNone:               1.0,
	model.EditFormatCorrection:   1.0,
	model.EditOCRCorrection:      0.95,
	model.EditTypoFix:            0.9,
	model.EditCrossValidationFix: 1.0,
	model.EditMissingData:        0.75,
	model.EditUnclearText:        0.3,
}

// obviousCorrection edit types get the certainty boost in Score when the text
// itself was legible.
var obviousCorrection = map[model.EditType]bool{
	model.EditTypoFix:            true,
	model.EditFormatCorrection:   true,
	model.EditCrossValidationFix: true,
}

// Score converts a field's quality indicators into a confidence value in
// [0, 1]. The factors multiply rather than average so a single strong negative
// signal dominates the result: unreadable text yields low confidence no matter
// how certain the model claims to be.
//
// Two adjustments apply before the tables: empty values floor at 0.1, and an
// obvious correction (typo/format/cross-validation fix) on legible text treats
// mostly_certain as certain, since the model's hedging on a mechanical fix
// says little about the value itself.
//
// Score is a pure function; identical input always yields the identical float.
func Score(f model.ExtractedField) float64 {
	if f.Empty() {
		return 0.1
	}

	base := clarityBase[f.TextClarity]
	certaintyMod := certaintyModifier[f.Certainty]
	editMod := editModifier[f.EditType]

	legible := f.TextClarity == model.ClarityClear || f.TextClarity == model.ClarityMostlyClear
	if obviousCorrection[f.EditType] && legible && f.Certainty == model.MostlyCertain {
		certaintyMod = 1.0
	}

	score := base * certaintyMod * editMod
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
