package service

import (
	"regexp"
	"sort"
	"strings"

	"github.com/tubelens/tubelens-go/internal/model"
	"github.com/tubelens/tubelens-go/pkg/stats"
)

// minEpisodes is how many videos must share a normalized title stem before
// they count as a series.
const minEpisodes = 3

var (
	episodeRe   = regexp.MustCompile(`(?i)(?:\b(?:ep\.?|episode|part|pt\.?)|#)\s*\d+\b`)
	trailingNum = regexp.MustCompile(`\s*\d+\s*$`)
	separators  = []string{"|", " - ", " – ", " — ", ":"}
)

// SeriesService detects recurring content formats from video titles alone.
// No I/O; the pipeline feeds it the ingested video set.
type SeriesService struct{}

func NewSeriesService() *SeriesService {
	return &SeriesService{}
}

// Detect groups videos by normalized title stem. Channels with no recurring
// formats yield an empty but well-formed summary, never an error.
func (s *SeriesService) Detect(videos []model.Video) *model.SeriesSummary {
	groups := make(map[string][]model.Video)
	names := make(map[string]string)

	for _, v := range videos {
		stem := normalizeTitle(v.Title)
		if stem == "" {
			continue
		}
		key := strings.ToLower(stem)
		groups[key] = append(groups[key], v)
		if _, ok := names[key]; !ok {
			names[key] = stem
		}
	}

	summary := &model.SeriesSummary{Series: []model.Series{}}
	inSeries := make(map[string]bool)

	for key, members := range groups {
		if len(members) < minEpisodes {
			continue
		}

		views := make([]float64, 0, len(members))
		ids := make([]string, 0, len(members))
		for _, v := range members {
			views = append(views, float64(v.ViewCount))
			ids = append(ids, v.VideoID)
			inSeries[v.VideoID] = true
		}
		sort.Strings(ids)

		summary.Series = append(summary.Series, model.Series{
			Name:         names[key],
			EpisodeCount: len(members),
			AvgViews:     stats.Round2(stats.Mean(views)),
			VideoIDs:     ids,
		})
	}

	// Deterministic output order: largest series first, name as tiebreak.
	sort.Slice(summary.Series, func(i, j int) bool {
		if summary.Series[i].EpisodeCount != summary.Series[j].EpisodeCount {
			return summary.Series[i].EpisodeCount > summary.Series[j].EpisodeCount
		}
		return summary.Series[i].Name < summary.Series[j].Name
	})

	summary.SeriesCount = len(summary.Series)
	summary.VideosInSeries = len(inSeries)
	summary.StandaloneCount = len(videos) - len(inSeries)

	return summary
}

// normalizeTitle reduces a video title to its series stem: the segment before
// the first separator, with episode markers and trailing numbers stripped.
func normalizeTitle(title string) string {
	stem := title
	for _, sep := range separators {
		if idx := strings.Index(stem, sep); idx > 0 {
			stem = stem[:idx]
			break
		}
	}

	stem = episodeRe.ReplaceAllString(stem, "")
	stem = trailingNum.ReplaceAllString(stem, "")
	stem = strings.TrimSpace(stem)

	// A stem that is too short to name a format matches too aggressively.
	if len(stem) < 4 {
		return ""
	}
	return stem
}
