package normalizer

import "strings"

// asciiPunctuation is every ASCII punctuation character.
const asciiPunctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// FragmentSeparator joins cleaned fragments in the normalized text stream.
const FragmentSeparator = " | "

var punctuationStripper = strings.NewReplacer(punctuationPairs()...)

func punctuationPairs() []string {
	pairs := make([]string, 0, 2*len(asciiPunctuation))
	for _, r := range asciiPunctuation {
		pairs = append(pairs, string(r), "")
	}
	return pairs
}

// Clean lowercases s, strips ASCII punctuation, splits on whitespace, drops English
// stopwords and rejoins the surviving tokens with single spaces.
// Stripping is lossy by nature: "cs@gmu.edu" becomes "csgmuedu".
func Clean(s string) string {
	s = punctuationStripper.Replace(strings.ToLower(s))

	tokens := strings.Fields(s)
	kept := tokens[:0]
	for _, tok := range tokens {
		if !IsStopword(tok) {
			kept = append(kept, tok)
		}
	}
	return strings.Join(kept, " ")
}

// CleanFragment cleans label and value separately and joins them with ": ".
// When either side cleans to nothing the other is returned alone, so a key
// survives even if its value was all stopwords.
func CleanFragment(f Fragment) string {
	value := Clean(f.Value)
	label := Clean(f.Label)
	switch {
	case label == "":
		return value
	case value == "":
		return label
	default:
		return label + ": " + value
	}
}

// CleanText renders fragments as one cleaned text stream separated by FragmentSeparator.
func CleanText(fragments []Fragment) string {
	parts := make([]string, 0, len(fragments))
	for _, f := range fragments {
		if c := CleanFragment(f); c != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, FragmentSeparator)
}
