package detect

import (
	"strings"
	"unicode"

	"github.com/ctxslim/ctxslim/internal/contextdoc"
)

// shingleSize is the word n-gram width used for similarity. Three-word
// shingles keep short reorderings from scoring as duplicates.
const shingleSize = 3

// Similarity computes the Jaccard overlap of word shingles between two
// normalized texts, in [0, 1].
func Similarity(a, b string) float64 {
	sa := shingles(normalize(a))
	sb := shingles(normalize(b))
	if len(sa) == 0 || len(sb) == 0 {
		return 0
	}
	inter := 0
	for s := range sa {
		if sb[s] {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	return float64(inter) / float64(union)
}

// normalize lowercases, strips punctuation, and collapses whitespace so the
// comparison sees wording, not formatting.
func normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func shingles(normalized string) map[string]bool {
	words := strings.Fields(normalized)
	out := make(map[string]bool)
	if len(words) == 0 {
		return out
	}
	if len(words) < shingleSize {
		out[strings.Join(words, " ")] = true
		return out
	}
	for i := 0; i+shingleSize <= len(words); i++ {
		out[strings.Join(words[i:i+shingleSize], " ")] = true
	}
	return out
}

// sectionBody strips the heading line so two sections with different names
// but identical bodies still compare as duplicates.
func sectionBody(sec contextdoc.Section) string {
	if sec.Level == 0 {
		return sec.Raw
	}
	if i := strings.IndexByte(sec.Raw, '\n'); i >= 0 {
		return sec.Raw[i+1:]
	}
	return ""
}

var fillerPhrases = []string{
	"in order to",
	"it should be noted",
	"it is important to",
	"as mentioned above",
	"as mentioned earlier",
	"note that",
	"please note",
	"basically",
	"essentially",
	"obviously",
	"of course",
	"needless to say",
	"at the end of the day",
	"for all intents and purposes",
}

// fillerDensity returns filler-phrase occurrences per sentence.
func fillerDensity(text string) float64 {
	lower := strings.ToLower(text)
	hits := 0
	for _, p := range fillerPhrases {
		hits += strings.Count(lower, p)
	}
	sentences := countSentences(lower)
	if sentences == 0 {
		return 0
	}
	return float64(hits) / float64(sentences)
}

func countSentences(text string) int {
	n := 0
	for _, r := range text {
		if r == '.' || r == '!' || r == '?' {
			n++
		}
	}
	if n == 0 && strings.TrimSpace(text) != "" {
		return 1
	}
	return n
}
