package model

// Completeness measures how fully populated an article record is, in [0,1].
// Each signal contributes equally: title length, content length, author,
// image, publication date.
func (a *Article) Completeness() float64 {
	var score float64

	switch {
	case len(a.Title) >= 40:
		score += 0.2
	case len(a.Title) >= 15:
		score += 0.1
	}

	switch {
	case len(a.Content) >= 600:
		score += 0.2
	case len(a.Content) >= 150:
		score += 0.1
	}

	if a.Author != "" {
		score += 0.2
	}
	if a.Image != "" {
		score += 0.2
	}
	if a.PublishedAt != nil {
		score += 0.2
	}

	return score
}

// SourceCredibility returns the best available credibility estimate for the
// article's source: the computed score when the pipeline has run, the
// adapter-declared value otherwise, and a neutral 0.5 when neither exists.
func (a *Article) SourceCredibility() float64 {
	if a.Credibility != nil {
		return a.Credibility.Score
	}
	if a.Source.Credibility != nil {
		return *a.Source.Credibility
	}
	return 0.5
}
