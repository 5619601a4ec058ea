package trending

import (
	"testing"
	"time"

	"github.com/nkarpov/newsflow/internal/model"
)

func articleAt(t *testing.T, title string, at time.Time, credibility float64) model.Article {
	t.Helper()
	art, err := model.Normalize(model.RawArticle{
		Title:       title,
		URL:         "https://example.com/" + model.Fingerprint(title, title, "example.com"),
		PublishedAt: at.Format(time.RFC3339),
		Source:      model.SourceRef{Name: "test", Credibility: &credibility},
	})
	if err != nil {
		t.Fatalf("normalize %q: %v", title, err)
	}
	return art
}

func testConfig() model.TrendingConfig {
	return model.DefaultConfig().Trending
}

func TestExtractKeywords(t *testing.T) {
	tests := []struct {
		title string
		want  []string
	}{
		{"The OpenAI Model and the GPU Cluster", []string{"openai", "model", "gpu", "cluster"}},
		{"Bitcoin bitcoin BITCOIN rally", []string{"bitcoin", "rally"}},
		{"News: AI is up", nil}, // stopwords and short tokens only
		{"", nil},
	}

	for _, tt := range tests {
		got := ExtractKeywords(tt.title)
		if len(got) != len(tt.want) {
			t.Errorf("%q: expected %v, got %v", tt.title, tt.want, got)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("%q: expected %v, got %v", tt.title, tt.want, got)
				break
			}
		}
	}
}

func TestMentionVelocity_BurstOutscoresSpread(t *testing.T) {
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

	var burst, spread []mention
	for i := 0; i < 6; i++ {
		burst = append(burst, mention{at: now.Add(-time.Duration(i*8) * time.Minute)})
		spread = append(spread, mention{at: now.Add(-time.Duration(2+i*4) * time.Hour)})
	}

	burstV := mentionVelocity(burst, now)
	spreadV := mentionVelocity(spread, now)
	if burstV <= spreadV {
		t.Errorf("burst in the last hour must outscore the same count over a day: burst %.3f, spread %.3f", burstV, spreadV)
	}
}

func TestAnalyzer_Analyze_MinMentionsGate(t *testing.T) {
	a := NewAnalyzer(testConfig())
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	a.SetNow(func() time.Time { return now })

	articles := []model.Article{
		articleAt(t, "Semiconductor exports restricted again", now.Add(-30*time.Minute), 0.9),
		articleAt(t, "Semiconductor industry reacts to restrictions", now.Add(-20*time.Minute), 0.9),
		articleAt(t, "Obscure village fair announced", now.Add(-10*time.Minute), 0.9),
	}

	result := a.Analyze(articles, Options{})
	for _, topic := range result.Trending {
		if topic.Mentions < 2 {
			t.Errorf("topic %q with %d mentions should have been gated out", topic.Keyword, topic.Mentions)
		}
	}

	found := false
	for _, topic := range result.Trending {
		if topic.Keyword == "semiconductor" {
			found = true
			if topic.Mentions != 2 {
				t.Errorf("expected 2 mentions for semiconductor, got %d", topic.Mentions)
			}
		}
	}
	if !found {
		t.Errorf("expected semiconductor to trend, got %v", keywordList(result.Trending))
	}
}

func TestAnalyzer_Analyze_RankedByTrendScore(t *testing.T) {
	a := NewAnalyzer(testConfig())
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	a.SetNow(func() time.Time { return now })

	// "wildfire" bursts in the last hour, "budget" trickles over the day.
	wildfireTitles := []string{
		"Wildfire spreads north",
		"Wildfire threatens homes",
		"Wildfire smoke blankets city",
		"Wildfire crews deployed",
		"Wildfire grows overnight",
	}
	budgetTitles := []string{
		"Budget talks continue",
		"Budget vote delayed",
		"Budget deficit widens",
	}

	var articles []model.Article
	for i, title := range wildfireTitles {
		articles = append(articles, articleAt(t, title, now.Add(-time.Duration(i*10)*time.Minute), 0.9))
	}
	for i, title := range budgetTitles {
		articles = append(articles, articleAt(t, title, now.Add(-time.Duration(5+i*6)*time.Hour), 0.9))
	}

	result := a.Analyze(articles, Options{})
	if len(result.Trending) < 2 {
		t.Fatalf("expected at least 2 topics, got %d", len(result.Trending))
	}
	for i := 1; i < len(result.Trending); i++ {
		if result.Trending[i].TrendScore > result.Trending[i-1].TrendScore {
			t.Errorf("topics not sorted by trend score at %d", i)
		}
	}
	if result.Trending[0].Keyword != "wildfire" {
		t.Errorf("expected the bursting topic first, got %q", result.Trending[0].Keyword)
	}
}

func TestAnalyzer_Analyze_NewTopicsEmerge(t *testing.T) {
	a := NewAnalyzer(testConfig())
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	a.SetNow(func() time.Time { return now })

	articles := []model.Article{
		articleAt(t, "Volcano eruption disrupts flights", now.Add(-30*time.Minute), 0.9),
		articleAt(t, "Volcano ash cloud grounds planes", now.Add(-15*time.Minute), 0.9),
	}

	result := a.Analyze(articles, Options{IncludeLifecycle: true})
	for _, topic := range result.Trending {
		if topic.Lifecycle.Stage != model.StageEmerging {
			t.Errorf("first sighting of %q should be emerging, got %s", topic.Keyword, topic.Lifecycle.Stage)
		}
		if topic.Lifecycle.Confidence != 0.5 {
			t.Errorf("emerging confidence should be 0.5, got %.2f", topic.Lifecycle.Confidence)
		}
	}
}

func TestAnalyzer_Analyze_LifecycleAcrossPasses(t *testing.T) {
	a := NewAnalyzer(testConfig())
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	a.SetNow(func() time.Time { return now })

	// Pass 1: modest activity.
	first := []model.Article{
		articleAt(t, "Heatwave warning issued", now.Add(-50*time.Minute), 0.9),
		articleAt(t, "Heatwave grips the south", now.Add(-45*time.Minute), 0.9),
	}
	a.Analyze(first, Options{IncludeLifecycle: true})

	// Pass 2: velocity jumps, the topic should enter the rising stage.
	var second []model.Article
	for i := 0; i < 6; i++ {
		second = append(second, articleAt(t, "Heatwave intensifies further", now.Add(-time.Duration(i*5)*time.Minute), 0.9))
	}
	result := a.Analyze(second, Options{IncludeLifecycle: true})

	var heatwave *model.TrendingTopic
	for i := range result.Trending {
		if result.Trending[i].Keyword == "heatwave" {
			heatwave = &result.Trending[i]
		}
	}
	if heatwave == nil {
		t.Fatalf("expected heatwave topic, got %v", keywordList(result.Trending))
	}
	if heatwave.Lifecycle.Stage != model.StageRising {
		t.Errorf("expected rising stage after velocity jump, got %s", heatwave.Lifecycle.Stage)
	}
}

func TestTransition(t *testing.T) {
	tests := []struct {
		name          string
		prev          model.LifecycleStage
		scoreDelta    float64
		velocityDelta float64
		want          model.LifecycleStage
	}{
		{"emerging accelerates", model.StageEmerging, 0.05, 0.5, model.StageRising},
		{"rising keeps climbing", model.StageRising, 0.2, 0.5, model.StagePeak},
		{"rising without score growth", model.StageRising, 0.01, 0.5, model.StageRising},
		{"peak slows", model.StagePeak, -0.1, -0.5, model.StageDeclining},
		{"declining continues", model.StageDeclining, -0.1, -0.5, model.StageFading},
		{"fading revives", model.StageFading, 0.1, 0.5, model.StageRising},
		{"rising plateaus", model.StageRising, 0.0, 0.0, model.StagePeak},
		{"declining plateaus", model.StageDeclining, 0.0, 0.0, model.StageFading},
		{"emerging plateaus", model.StageEmerging, 0.0, 0.0, model.StageEmerging},
	}

	for _, tt := range tests {
		got, conf := transition(tt.prev, tt.scoreDelta, tt.velocityDelta)
		if got != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.name, tt.want, got)
		}
		if conf < 0 || conf > 0.95 {
			t.Errorf("%s: confidence %.3f outside [0, 0.95]", tt.name, conf)
		}
	}
}

func TestKeywordSimilarity(t *testing.T) {
	if sim := KeywordSimilarity("bitcoin", "bitcoin"); sim != 1.0 {
		t.Errorf("identical keywords must score 1, got %.3f", sim)
	}
	if sim := KeywordSimilarity("", "bitcoin"); sim != 0 {
		t.Errorf("empty keyword must score 0, got %.3f", sim)
	}

	containment := KeywordSimilarity("tech", "technology")
	unrelated := KeywordSimilarity("tech", "election")
	if containment <= unrelated {
		t.Errorf("containment %.3f should outscore unrelated %.3f", containment, unrelated)
	}
	if containment < 0.75 || containment >= 1.0 {
		t.Errorf("containment should land in [0.75, 1), got %.3f", containment)
	}
	if unrelated < 0 || unrelated > 0.7 {
		t.Errorf("non-containment similarity must stay below the containment band, got %.3f", unrelated)
	}
}

func TestClusterTopics(t *testing.T) {
	a := NewAnalyzer(testConfig())

	topics := []model.TrendingTopic{
		{Keyword: "bitcoin", Mentions: 8, TrendScore: 0.9},
		{Keyword: "bitcoins", Mentions: 3, TrendScore: 0.7},
		{Keyword: "election", Mentions: 5, TrendScore: 0.6},
	}

	clusters := a.clusterTopics(topics, 0.6, 8)
	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(clusters))
	}
	if clusters[0].MainTopic != "bitcoin" {
		t.Errorf("highest scored topic should lead its cluster, got %q", clusters[0].MainTopic)
	}
	if clusters[0].TotalMentions != 11 {
		t.Errorf("expected 11 total mentions in the bitcoin cluster, got %d", clusters[0].TotalMentions)
	}
}

func TestClusterTopics_BoundedSize(t *testing.T) {
	a := NewAnalyzer(testConfig())

	topics := []model.TrendingTopic{
		{Keyword: "market", TrendScore: 0.9},
		{Keyword: "markets", TrendScore: 0.8},
		{Keyword: "marketing", TrendScore: 0.7},
	}

	clusters := a.clusterTopics(topics, 0.6, 2)
	for _, c := range clusters {
		if len(c.Keywords) > 2 {
			t.Errorf("cluster %q exceeds max size: %v", c.MainTopic, c.Keywords)
		}
	}
}

func TestAnalyzer_StaleTopicsEvicted(t *testing.T) {
	cfg := testConfig()
	cfg.TopicStaleness = 24 * time.Hour
	a := NewAnalyzer(cfg)

	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	a.SetNow(func() time.Time { return now })

	first := []model.Article{
		articleAt(t, "Comet sighting tonight", now.Add(-30*time.Minute), 0.9),
		articleAt(t, "Comet visible across the region", now.Add(-20*time.Minute), 0.9),
	}
	a.Analyze(first, Options{})
	if a.GetStats().TrackedTopics == 0 {
		t.Fatalf("expected tracked topics after first pass")
	}

	// Three days later the comet is old news.
	later := now.Add(72 * time.Hour)
	a.SetNow(func() time.Time { return later })
	second := []model.Article{
		articleAt(t, "Storm front approaches coast", later.Add(-30*time.Minute), 0.9),
		articleAt(t, "Storm warnings extended", later.Add(-20*time.Minute), 0.9),
	}
	a.Analyze(second, Options{})

	stats := a.GetStats()
	for kw := range a.history {
		if kw == "comet" {
			t.Errorf("stale topic should have been evicted")
		}
	}
	if stats.TrackedTopics == 0 {
		t.Errorf("current topics should remain tracked")
	}
}

func TestAnalyzer_SetWeights(t *testing.T) {
	a := NewAnalyzer(testConfig())

	valid := Weights{Velocity: 0.4, Volume: 0.3, Recency: 0.2, Credibility: 0.1}
	if err := a.SetWeights(valid); err != nil {
		t.Errorf("valid weights rejected: %v", err)
	}
	if a.GetWeights() != valid {
		t.Errorf("weights not applied")
	}

	if err := a.SetWeights(Weights{Velocity: 0.9, Volume: 0.9}); err == nil {
		t.Errorf("expected error for weights not summing to 1")
	}
	if a.GetWeights() != valid {
		t.Errorf("rejected weights must not replace the active ones")
	}
}

func keywordList(topics []model.TrendingTopic) []string {
	out := make([]string, 0, len(topics))
	for _, topic := range topics {
		out = append(out, topic.Keyword)
	}
	return out
}
