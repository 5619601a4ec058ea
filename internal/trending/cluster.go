package trending

import (
	"strings"

	"github.com/nkarpov/newsflow/internal/model"
)

// KeywordSimilarity scores lexical relatedness of two keywords in [0,1].
// Identical keywords score 1; containment ("tech" in "technology") scores
// above any unrelated pair; everything else falls back to edit distance
// capped below the containment band.
func KeywordSimilarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	shorter, longer := a, b
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if strings.Contains(longer, shorter) {
		return 0.75 + 0.25*float64(len(shorter))/float64(len(longer))
	}

	return 0.7 * editSimilarity(a, b)
}

// clusterTopics greedily groups scored topics by keyword similarity. Topics
// arrive sorted by trend score descending, so the first member of each
// cluster is its main topic.
func (a *Analyzer) clusterTopics(topics []model.TrendingTopic, threshold float64, maxSize int) []model.TopicCluster {
	if maxSize <= 0 {
		maxSize = 1
	}

	var clusters []model.TopicCluster
	scoreSums := make([]float64, 0)

	for _, topic := range topics {
		placed := false
		for i := range clusters {
			if len(clusters[i].Keywords) >= maxSize {
				continue
			}
			if KeywordSimilarity(topic.Keyword, clusters[i].MainTopic) >= threshold {
				clusters[i].Keywords = append(clusters[i].Keywords, topic.Keyword)
				clusters[i].TotalMentions += topic.Mentions
				scoreSums[i] += topic.TrendScore
				placed = true
				break
			}
		}
		if !placed {
			clusters = append(clusters, model.TopicCluster{
				MainTopic:     topic.Keyword,
				Keywords:      []string{topic.Keyword},
				TotalMentions: topic.Mentions,
			})
			scoreSums = append(scoreSums, topic.TrendScore)
		}
	}

	for i := range clusters {
		clusters[i].AvgTrendScore = scoreSums[i] / float64(len(clusters[i].Keywords))
	}

	return clusters
}

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
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			m := curr[j-1] + 1
			if prev[j]+1 < m {
				m = prev[j] + 1
			}
			if prev[j-1]+cost < m {
				m = prev[j-1] + cost
			}
			curr[j] = m
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
