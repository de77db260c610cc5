package helpers

import "unicode/utf8"

// Suggests a valid word for a word that is off by one character: one missing,
// one extra, or one wrong
type TypoDetector struct {
	valid        map[string]bool
	oneCharTypos map[string]string
}

func MakeTypoDetector(valid []string) TypoDetector {
	detector := TypoDetector{
		valid:        make(map[string]bool),
		oneCharTypos: make(map[string]string),
	}

	// Add all combinations of each valid word with one character missing
	for _, correct := range valid {
		detector.valid[correct] = true
		if len(correct) > 3 {
			for i, ch := range correct {
				detector.oneCharTypos[correct[:i]+correct[i+utf8.RuneLen(ch):]] = correct
			}
		}
	}

	return detector
}

func (detector TypoDetector) MaybeCorrectTypo(typo string) (string, bool) {
	// Check for a single deleted character
	if corrected, ok := detector.oneCharTypos[typo]; ok {
		return corrected, true
	}

	for i, ch := range typo {
		without := typo[:i] + typo[i+utf8.RuneLen(ch):]

		// Check for a single inserted character
		if len(without) > 3 && detector.valid[without] {
			return without, true
		}

		// Check for a single misplaced character
		if corrected, ok := detector.oneCharTypos[without]; ok {
			return corrected, true
		}
	}

	return "", false
}
