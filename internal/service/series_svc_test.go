package service

import (
	"testing"

	"github.com/tubelens/tubelens-go/internal/model"
)

func titled(id, title string, views int64) model.Video {
	return model.Video{VideoID: id, ChannelID: "UCtest", Title: title, ViewCount: views}
}

func TestSeriesDetect_GroupsEpisodeMarkers(t *testing.T) {
	svc := NewSeriesService()

	videos := []model.Video{
		titled("a1", "Kitchen Basics Ep. 1", 1000),
		titled("a2", "Kitchen Basics Ep. 2", 1200),
		titled("a3", "Kitchen Basics Episode 3", 800),
		titled("b1", "My Trip to Norway", 500),
		titled("b2", "Unboxing a Synth", 400),
	}

	summary := svc.Detect(videos)

	if summary.SeriesCount != 1 {
		t.Fatalf("series count = %d, want 1", summary.SeriesCount)
	}
	s := summary.Series[0]
	if s.Name != "Kitchen Basics" {
		t.Errorf("series name = %q, want %q", s.Name, "Kitchen Basics")
	}
	if s.EpisodeCount != 3 {
		t.Errorf("episode count = %d, want 3", s.EpisodeCount)
	}
	// (1000 + 1200 + 800) / 3 = 1000
	if s.AvgViews != 1000 {
		t.Errorf("avg views = %.2f, want 1000", s.AvgViews)
	}
	if summary.VideosInSeries != 3 || summary.StandaloneCount != 2 {
		t.Errorf("in-series/standalone = %d/%d, want 3/2", summary.VideosInSeries, summary.StandaloneCount)
	}
}

func TestSeriesDetect_SeparatorStems(t *testing.T) {
	svc := NewSeriesService()

	videos := []model.Video{
		titled("a1", "Deep Dive | Kubernetes Networking", 100),
		titled("a2", "Deep Dive | Postgres Internals", 200),
		titled("a3", "Deep Dive | Raft Explained", 300),
		titled("a4", "Deep Dive | BGP From Scratch", 400),
	}

	summary := svc.Detect(videos)

	if summary.SeriesCount != 1 {
		t.Fatalf("series count = %d, want 1", summary.SeriesCount)
	}
	if summary.Series[0].Name != "Deep Dive" {
		t.Errorf("series name = %q, want %q", summary.Series[0].Name, "Deep Dive")
	}
	if summary.Series[0].EpisodeCount != 4 {
		t.Errorf("episode count = %d, want 4", summary.Series[0].EpisodeCount)
	}
}

func TestSeriesDetect_TwoEpisodesIsNotASeries(t *testing.T) {
	svc := NewSeriesService()

	videos := []model.Video{
		titled("a1", "Morning Routine Ep. 1", 100),
		titled("a2", "Morning Routine Ep. 2", 100),
	}

	summary := svc.Detect(videos)

	if summary.SeriesCount != 0 {
		t.Errorf("series count = %d, want 0 (below minimum episodes)", summary.SeriesCount)
	}
	if summary.StandaloneCount != 2 {
		t.Errorf("standalone count = %d, want 2", summary.StandaloneCount)
	}
}

func TestSeriesDetect_CaseInsensitiveGrouping(t *testing.T) {
	svc := NewSeriesService()

	videos := []model.Video{
		titled("a1", "studio vlog 1", 100),
		titled("a2", "Studio Vlog 2", 100),
		titled("a3", "STUDIO VLOG 3", 100),
	}

	summary := svc.Detect(videos)

	if summary.SeriesCount != 1 {
		t.Fatalf("series count = %d, want 1", summary.SeriesCount)
	}
	// First occurrence wins the display name.
	if summary.Series[0].Name != "studio vlog" {
		t.Errorf("series name = %q, want %q", summary.Series[0].Name, "studio vlog")
	}
}

func TestSeriesDetect_DeterministicOrder(t *testing.T) {
	svc := NewSeriesService()

	videos := []model.Video{
		titled("a1", "Alpha Series Ep. 1", 10),
		titled("a2", "Alpha Series Ep. 2", 10),
		titled("a3", "Alpha Series Ep. 3", 10),
		titled("b1", "Beta Builds Ep. 1", 10),
		titled("b2", "Beta Builds Ep. 2", 10),
		titled("b3", "Beta Builds Ep. 3", 10),
		titled("b4", "Beta Builds Ep. 4", 10),
	}

	summary := svc.Detect(videos)

	if summary.SeriesCount != 2 {
		t.Fatalf("series count = %d, want 2", summary.SeriesCount)
	}
	// Largest series first.
	if summary.Series[0].Name != "Beta Builds" || summary.Series[1].Name != "Alpha Series" {
		t.Errorf("series order = [%q, %q], want [Beta Builds, Alpha Series]",
			summary.Series[0].Name, summary.Series[1].Name)
	}
	// Video ids sorted within a series.
	ids := summary.Series[0].VideoIDs
	for i := 1; i < len(ids); i++ {
		if ids[i-1] > ids[i] {
			t.Errorf("video ids not sorted: %v", ids)
		}
	}
}

func TestSeriesDetect_EmptyAndNoSeries(t *testing.T) {
	svc := NewSeriesService()

	empty := svc.Detect(nil)
	if empty.SeriesCount != 0 || empty.Series == nil {
		t.Errorf("empty input: got %+v, want empty well-formed summary", empty)
	}

	standalone := svc.Detect([]model.Video{
		titled("a", "A Day in Lisbon", 100),
		titled("b", "Why I Quit My Job", 100),
	})
	if standalone.SeriesCount != 0 || standalone.StandaloneCount != 2 {
		t.Errorf("standalone-only input: got %+v", standalone)
	}
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Kitchen Basics Ep. 4", "Kitchen Basics"},
		{"Kitchen Basics Episode 12", "Kitchen Basics"},
		{"Kitchen Basics Part 2", "Kitchen Basics"},
		{"Kitchen Basics #7", "Kitchen Basics"},
		{"Deep Dive | Raft", "Deep Dive"},
		{"Deep Dive: Raft", "Deep Dive"},
		{"Studio Vlog 14", "Studio Vlog"},
		{"Q&A", ""},   // too short to be a format stem
		{"ep 3", ""},  // nothing left after stripping the marker
	}

	for _, tt := range tests {
		if got := normalizeTitle(tt.title); got != tt.want {
			t.Errorf("normalizeTitle(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}
