package service

import (
	"testing"

	"github.com/tubelens/tubelens-go/internal/model"
)

// mkVideo builds a test video with the engagement implied by likes/comments.
func mkVideo(id string, views, likes, comments int64) model.Video {
	return model.Video{
		VideoID:      id,
		ChannelID:    "UCtest",
		Title:        id,
		ViewCount:    views,
		LikeCount:    likes,
		CommentCount: comments,
		Type:         model.VideoTypeLong,
	}
}

func TestCategorize_QuadrantAssignment(t *testing.T) {
	// Five baseline videos at 1000 views / 5% engagement, plus one outlier
	// per quadrant. Medians over the full set stay near the baseline.
	videos := []model.Video{
		mkVideo("base1", 1000, 40, 10),
		mkVideo("base2", 1000, 40, 10),
		mkVideo("base3", 1000, 40, 10),
		mkVideo("base4", 1000, 40, 10),
		mkVideo("base5", 1000, 40, 10),
		// 10x reach, baseline engagement rate → breakout
		mkVideo("viral", 10_000, 400, 100),
		// 10x reach, engagement far below 60% of median → investigate
		mkVideo("hollow", 10_000, 10, 0),
		// baseline reach, baseline engagement → hidden_gem
		mkVideo("steady", 900, 36, 9),
		// baseline reach, near-zero engagement → underperformer
		mkVideo("flat", 800, 1, 0),
	}

	result := Categorize(videos, CategorizeOptions{})

	if len(result.Videos) != len(videos) {
		t.Fatalf("categorized %d videos, want %d", len(result.Videos), len(videos))
	}

	byID := make(map[string]model.CategorizedVideo)
	for _, cv := range result.Videos {
		byID[cv.VideoID] = cv
	}

	wantQuadrants := map[string]model.PerformanceQuadrant{
		"viral":  model.QuadrantBreakout,
		"hollow": model.QuadrantInvestigate,
		"steady": model.QuadrantHiddenGem,
		"flat":   model.QuadrantUnderperformer,
	}
	for id, want := range wantQuadrants {
		if got := byID[id].Quadrant; got != want {
			t.Errorf("video %s quadrant = %s, want %s", id, got, want)
		}
	}

	if byID["hollow"].Diagnostic == "" {
		t.Error("investigate video should carry a diagnostic")
	}
	if byID["viral"].Diagnostic != "" {
		t.Errorf("breakout video has unexpected diagnostic %q", byID["viral"].Diagnostic)
	}
}

func TestCategorize_EveryVideoGetsExactlyOneQuadrant(t *testing.T) {
	videos := []model.Video{
		mkVideo("a", 100, 5, 1),
		mkVideo("b", 5000, 10, 0),
		mkVideo("c", 50, 20, 5),
		mkVideo("d", 0, 0, 0),
	}

	result := Categorize(videos, CategorizeOptions{})

	valid := map[model.PerformanceQuadrant]bool{
		model.QuadrantBreakout:       true,
		model.QuadrantHiddenGem:      true,
		model.QuadrantInvestigate:    true,
		model.QuadrantUnderperformer: true,
	}
	for _, cv := range result.Videos {
		if !valid[cv.Quadrant] {
			t.Errorf("video %s has invalid quadrant %q", cv.VideoID, cv.Quadrant)
		}
	}
}

func TestCategorize_Deterministic(t *testing.T) {
	videos := []model.Video{
		mkVideo("a", 1200, 80, 20),
		mkVideo("b", 300, 2, 0),
		mkVideo("c", 9000, 50, 5),
	}

	first := Categorize(videos, CategorizeOptions{})
	second := Categorize(videos, CategorizeOptions{})

	for i := range first.Videos {
		if first.Videos[i] != second.Videos[i] {
			t.Errorf("video %s: repeated categorization diverged: %+v vs %+v",
				first.Videos[i].VideoID, first.Videos[i], second.Videos[i])
		}
	}
	if first.MedianViews != second.MedianViews || first.MedianEngagement != second.MedianEngagement {
		t.Error("medians changed between identical runs")
	}
}

func TestCategorize_SingleVideoIsItsOwnBaseline(t *testing.T) {
	result := Categorize([]model.Video{mkVideo("only", 500, 25, 5)}, CategorizeOptions{})

	cv := result.Videos[0]
	if cv.ViewsRatio != 1.0 {
		t.Errorf("views ratio = %.2f, want 1.00", cv.ViewsRatio)
	}
	if cv.EngagementRatio != 1.0 {
		t.Errorf("engagement ratio = %.2f, want 1.00", cv.EngagementRatio)
	}
	// Equality with the median trips neither flag.
	if cv.IsHighReach || cv.IsLowEngagement {
		t.Errorf("single video flagged: highReach=%v lowEngagement=%v", cv.IsHighReach, cv.IsLowEngagement)
	}
	if cv.Quadrant != model.QuadrantHiddenGem {
		t.Errorf("single video quadrant = %s, want %s", cv.Quadrant, model.QuadrantHiddenGem)
	}
}

func TestCategorize_ZeroViewVideosExcludedFromBaseline(t *testing.T) {
	// Two unreleased uploads must not drag the view median down.
	videos := []model.Video{
		mkVideo("a", 1000, 50, 10),
		mkVideo("b", 1000, 50, 10),
		mkVideo("c", 1000, 50, 10),
		mkVideo("unreleased1", 0, 0, 0),
		mkVideo("unreleased2", 0, 0, 0),
	}

	result := Categorize(videos, CategorizeOptions{})

	if result.MedianViews != 1000 {
		t.Errorf("median views = %.0f, want 1000 (zero-view videos excluded)", result.MedianViews)
	}

	// A zero-view video cannot be low-engagement: there is nothing to engage with.
	for _, cv := range result.Videos {
		if cv.ViewCount == 0 && cv.IsLowEngagement {
			t.Errorf("zero-view video %s flagged low engagement", cv.VideoID)
		}
	}
}

func TestCategorize_EmptyInput(t *testing.T) {
	result := Categorize(nil, CategorizeOptions{})

	if len(result.Videos) != 0 {
		t.Errorf("empty input produced %d videos", len(result.Videos))
	}
	if result.MedianViews != 0 || result.MedianEngagement != 0 {
		t.Errorf("empty input medians = %.2f/%.2f, want 0/0", result.MedianViews, result.MedianEngagement)
	}
}

func TestCategorize_CustomMultipliers(t *testing.T) {
	videos := []model.Video{
		mkVideo("a", 1000, 50, 0),
		mkVideo("b", 1000, 50, 0),
		mkVideo("c", 1000, 50, 0),
		mkVideo("d", 1100, 55, 0),
	}

	// With a 1.05 high-reach multiplier, 1100 views clears 1000 * 1.05.
	result := Categorize(videos, CategorizeOptions{HighReachMultiplier: 1.05})

	var d model.CategorizedVideo
	for _, cv := range result.Videos {
		if cv.VideoID == "d" {
			d = cv
		}
	}
	if !d.IsHighReach {
		t.Error("video d should be high reach under the 1.05 multiplier")
	}
}
