package search

import "strings"

// ContrastScorer estimates how strongly a candidate passage pushes against a
// claim, in [0, 1]. Implementations must be deterministic; the engine blends
// the score with vector similarity, it never acts on it alone.
type ContrastScorer interface {
	Score(claim, candidate string) float64
}

// MarkerScorer is a lexical contrast heuristic. It only fires when claim and
// candidate share content words, then looks for three signals: negation
// present on one side but not the other, stance verbs from opposite sides of
// an antonym pair, and contrastive discourse cues in the candidate.
type MarkerScorer struct {
	negators  map[string]bool
	cues      map[string]bool
	stopwords map[string]bool
	antonyms  map[string]string
}

// NewMarkerScorer returns the default marker-based scorer.
func NewMarkerScorer() *MarkerScorer {
	s := &MarkerScorer{
		negators:  wordSet("not", "no", "never", "cannot", "without", "neither", "nor"),
		cues:      wordSet("however", "contrary", "contrast", "contradicts", "contradict", "refutes", "refute", "disputes", "dispute", "challenges", "challenge", "unlike", "whereas"),
		stopwords: wordSet("a", "an", "the", "of", "in", "on", "to", "for", "and", "or", "is", "are", "was", "were", "be", "been", "that", "this", "these", "those", "with", "by", "as", "at", "it", "its", "we", "our", "their"),
		antonyms:  map[string]string{},
	}
	pairs := [][2]string{
		{"improve", "worsen"},
		{"improve", "degrade"},
		{"increase", "decrease"},
		{"increase", "reduce"},
		{"effective", "ineffective"},
		{"outperform", "underperform"},
		{"positive", "negative"},
		{"significant", "insignificant"},
		{"support", "refute"},
		{"confirm", "contradict"},
		{"benefit", "harm"},
		{"succeed", "fail"},
	}
	for _, p := range pairs {
		a, b := stem(p[0]), stem(p[1])
		s.antonyms[a] = b
		s.antonyms[b] = a
	}
	return s
}

// Score implements ContrastScorer. Topically unrelated text scores zero no
// matter how many markers it carries.
func (s *MarkerScorer) Score(claim, candidate string) float64 {
	claimWords := tokenize(claim)
	candWords := tokenize(candidate)

	overlap := s.contentOverlap(claimWords, candWords)
	if overlap == 0 {
		return 0
	}

	var signal float64
	if s.hasNegation(claimWords) != s.hasNegation(candWords) {
		signal += 0.6
	}
	if s.hasAntonymFlip(claimWords, candWords) {
		signal += 0.6
	}
	for _, w := range candWords {
		if s.cues[w] {
			signal += 0.3
			break
		}
	}
	if signal > 1 {
		signal = 1
	}
	return overlap * signal
}

// contentOverlap is the Jaccard overlap of stemmed content words.
func (s *MarkerScorer) contentOverlap(a, b []string) float64 {
	setA := s.contentSet(a)
	setB := s.contentSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	inter := 0
	for w := range setA {
		if setB[w] {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	return float64(inter) / float64(union)
}

func (s *MarkerScorer) contentSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		if s.stopwords[w] || s.negators[w] || s.cues[w] {
			continue
		}
		set[stem(w)] = true
	}
	return set
}

func (s *MarkerScorer) hasNegation(words []string) bool {
	for _, w := range words {
		if s.negators[w] {
			return true
		}
	}
	return false
}

func (s *MarkerScorer) hasAntonymFlip(claim, candidate []string) bool {
	candSet := make(map[string]bool, len(candidate))
	for _, w := range candidate {
		candSet[stem(w)] = true
	}
	for _, w := range claim {
		if opposite, ok := s.antonyms[stem(w)]; ok && candSet[opposite] {
			return true
		}
	}
	return false
}

// wordSet builds a membership set from its arguments.
func wordSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// tokenize lowercases and splits on non-letter, non-digit runes.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
}

// stem strips common verb and plural suffixes so "improves", "improved" and
// "improve" compare equal. Deliberately crude; it only needs to agree with
// itself.
func stem(w string) string {
	for _, suffix := range []string{"ing", "ed"} {
		if strings.HasSuffix(w, suffix) && len(w)-len(suffix) >= 3 {
			w = w[:len(w)-len(suffix)]
			break
		}
	}
	if strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss") && len(w) > 3 {
		w = w[:len(w)-1]
	}
	if strings.HasSuffix(w, "e") && len(w) > 3 {
		w = w[:len(w)-1]
	}
	return w
}
