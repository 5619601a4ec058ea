package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/nkarpov/newsflow/internal/model"
)

// shingleSize is the word n-gram length used for content comparison.
const shingleSize = 3

var nonAlnum = regexp.MustCompile(`[^a-z0-9 ]+`)

// features are the precomputed similarity inputs for one article, cached by
// a content hash so repeated passes over overlapping batches reuse them.
type features struct {
	normTitle   string
	titleTokens map[string]struct{}
	shingles    map[string]struct{}
	normURL     string
	domain      string
	pathTokens  map[string]struct{}
	hasContent  bool
}

// featureKey hashes the similarity inputs themselves. The dedup fingerprint
// is URL-derived, so two articles sharing a URL with different text would
// collide under it and read each other's cached tokens.
func featureKey(a *model.Article) string {
	h := sha256.New()
	h.Write([]byte(a.Title))
	h.Write([]byte{0})
	h.Write([]byte(a.Content))
	h.Write([]byte{0})
	h.Write([]byte(a.URL))
	return hex.EncodeToString(h.Sum(nil))
}

func (d *Detector) featuresFor(a *model.Article) *features {
	key := featureKey(a)

	d.mu.RLock()
	cached, ok := d.cache[key]
	d.mu.RUnlock()
	if ok {
		return cached
	}

	f := buildFeatures(a)

	d.mu.Lock()
	d.cache[key] = f
	d.mu.Unlock()
	return f
}

func buildFeatures(a *model.Article) *features {
	normTitle := normalizeText(a.Title)
	normURL := model.NormalizeURL(a.URL)

	pathTokens := make(map[string]struct{})
	if idx := strings.IndexAny(normURL, "/?"); idx >= 0 {
		for _, tok := range strings.FieldsFunc(normURL[idx:], func(r rune) bool {
			return r == '/' || r == '-' || r == '_' || r == '?' || r == '&' || r == '='
		}) {
			pathTokens[tok] = struct{}{}
		}
	}

	return &features{
		normTitle:   normTitle,
		titleTokens: tokenSet(normTitle),
		shingles:    shingleSet(normalizeText(a.Content), shingleSize),
		normURL:     normURL,
		domain:      a.Domain,
		pathTokens:  pathTokens,
		hasContent:  strings.TrimSpace(a.Content) != "",
	}
}

// similarity computes the weighted similarity of two articles. Exact
// normalized-URL matches are short-circuited by the caller.
func (d *Detector) similarity(a, b *features, w Weights) float64 {
	titleSim := titleSimilarity(a, b)

	titleWeight := w.Title
	contentWeight := w.Content

	var contentSim float64
	if a.hasContent && b.hasContent {
		contentSim = jaccard(a.shingles, b.shingles)
	} else {
		// Content is unavailable on at least one side: fold its weight
		// into the title comparison instead of diluting the score.
		titleWeight += contentWeight
		contentWeight = 0
	}

	urlSim := urlSimilarity(a, b)

	return titleWeight*titleSim + contentWeight*contentSim + w.URL*urlSim
}

// titleSimilarity blends token overlap with edit distance so both reordered
// and lightly edited titles score high.
func titleSimilarity(a, b *features) float64 {
	if a.normTitle == "" || b.normTitle == "" {
		return 0
	}
	if a.normTitle == b.normTitle {
		return 1
	}
	token := jaccard(a.titleTokens, b.titleTokens)
	edit := editSimilarity(a.normTitle, b.normTitle)
	return 0.5*token + 0.5*edit
}

func urlSimilarity(a, b *features) float64 {
	if a.normURL == "" || b.normURL == "" {
		return 0
	}
	if a.normURL == b.normURL {
		return 1
	}
	if a.domain != b.domain {
		return 0
	}
	return 0.3 + 0.7*jaccard(a.pathTokens, b.pathTokens)
}

// normalizeText lowercases and strips punctuation for comparison.
func normalizeText(text string) string {
	lowered := strings.ToLower(text)
	lowered = nonAlnum.ReplaceAllString(lowered, " ")
	return strings.Join(strings.Fields(lowered), " ")
}

func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(text) {
		set[tok] = struct{}{}
	}
	return set
}

// shingleSet builds overlapping word n-grams from normalized text.
func shingleSet(text string, n int) map[string]struct{} {
	words := strings.Fields(text)
	set := make(map[string]struct{})
	if len(words) < n {
		if len(words) > 0 {
			set[strings.Join(words, " ")] = struct{}{}
		}
		return set
	}
	for i := 0; i+n <= len(words); i++ {
		set[strings.Join(words[i:i+n], " ")] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// editSimilarity is 1 - normalized Levenshtein distance.
func editSimilarity(a, b string) float64 {
	longer := len(a)
	if len(b) > longer {
		longer = len(b)
	}
	if longer == 0 {
		return 1
	}
	return 1 - float64(levenshtein(a, b))/float64(longer)
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
