package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "https://www.googleapis.com/youtube/v3"

// Videos at or under this duration count as Shorts. The Data API has no
// explicit flag, so duration is the usual proxy.
const shortMaxSeconds = 183

// DataAPIClient talks to the YouTube Data API v3.
type DataAPIClient struct {
	http    *http.Client
	apiKey  string
	baseURL string
}

func NewDataAPIClient(apiKey string) *DataAPIClient {
	return &DataAPIClient{
		http:    &http.Client{Timeout: 15 * time.Second},
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
	}
}

// ResolveChannel turns a URL, @handle, or raw channel id into a canonical
// channel id.
func (c *DataAPIClient) ResolveChannel(ctx context.Context, reference string) (string, error) {
	ref := strings.TrimSpace(reference)
	if ref == "" {
		return "", ErrChannelNotFound
	}

	// Pull the interesting path segment out of a full URL.
	if strings.Contains(ref, "youtube.com/") {
		ref = extractURLSegment(ref)
		if ref == "" {
			return "", ErrChannelNotFound
		}
	}

	// Raw channel ids pass through untouched.
	if strings.HasPrefix(ref, "UC") && len(ref) == 24 {
		return ref, nil
	}

	params := url.Values{"part": {"id"}}
	if strings.HasPrefix(ref, "@") {
		params.Set("forHandle", ref)
	} else {
		params.Set("forUsername", ref)
	}

	var resp channelListResponse
	if err := c.get(ctx, "/channels", params, &resp); err != nil {
		return "", err
	}
	if len(resp.Items) == 0 {
		return "", ErrChannelNotFound
	}
	return resp.Items[0].ID, nil
}

// FetchChannelDetails returns current statistics and metadata for a channel.
func (c *DataAPIClient) FetchChannelDetails(ctx context.Context, channelID string) (*ChannelDetails, error) {
	params := url.Values{
		"part": {"snippet,statistics,contentDetails,topicDetails"},
		"id":   {channelID},
	}

	var resp channelListResponse
	if err := c.get(ctx, "/channels", params, &resp); err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, ErrChannelNotFound
	}

	item := resp.Items[0]
	return &ChannelDetails{
		ChannelID:       item.ID,
		Title:           item.Snippet.Title,
		SubscriberCount: parseCount(item.Statistics.SubscriberCount),
		TotalViewCount:  parseCount(item.Statistics.ViewCount),
		VideoCount:      int(parseCount(item.Statistics.VideoCount)),
		ThumbnailURL:    item.Snippet.Thumbnails.High.URL,
		Category:        categoryFromTopics(item.TopicDetails.TopicCategories),
		UploadsSource:   item.ContentDetails.RelatedPlaylists.Uploads,
	}, nil
}

// FetchChannelVideos lists up to maxCount videos from the uploads playlist,
// most recent first.
func (c *DataAPIClient) FetchChannelVideos(ctx context.Context, uploadsSource string, maxCount int) ([]VideoDetails, error) {
	if uploadsSource == "" {
		return nil, fmt.Errorf("youtube: empty uploads source")
	}

	ids := make([]string, 0, maxCount)
	pageToken := ""
	for len(ids) < maxCount {
		params := url.Values{
			"part":       {"contentDetails"},
			"playlistId": {uploadsSource},
			"maxResults": {"50"},
		}
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		var page playlistItemsResponse
		if err := c.get(ctx, "/playlistItems", params, &page); err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			ids = append(ids, item.ContentDetails.VideoID)
			if len(ids) == maxCount {
				break
			}
		}
		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	// videos.list accepts at most 50 ids per call.
	videos := make([]VideoDetails, 0, len(ids))
	for start := 0; start < len(ids); start += 50 {
		end := start + 50
		if end > len(ids) {
			end = len(ids)
		}

		params := url.Values{
			"part": {"snippet,statistics,contentDetails"},
			"id":   {strings.Join(ids[start:end], ",")},
		}
		var resp videoListResponse
		if err := c.get(ctx, "/videos", params, &resp); err != nil {
			return nil, err
		}

		for _, item := range resp.Items {
			published, _ := time.Parse(time.RFC3339, item.Snippet.PublishedAt)
			duration := parseISODuration(item.ContentDetails.Duration)
			videos = append(videos, VideoDetails{
				VideoID:      item.ID,
				Title:        item.Snippet.Title,
				ViewCount:    parseCount(item.Statistics.ViewCount),
				LikeCount:    parseCount(item.Statistics.LikeCount),
				CommentCount: parseCount(item.Statistics.CommentCount),
				Duration:     duration,
				IsShort:      duration > 0 && duration <= shortMaxSeconds,
				PublishedAt:  published,
			})
		}
	}

	return videos, nil
}

func (c *DataAPIClient) get(ctx context.Context, path string, params url.Values, out any) error {
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("youtube: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("youtube: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrChannelNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("youtube: %s returned status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("youtube: decode %s response: %w", path, err)
	}
	return nil
}

// extractURLSegment pulls the channel reference out of a youtube.com URL:
// /channel/UC..., /@handle, /c/name, or /user/name.
func extractURLSegment(ref string) string {
	idx := strings.Index(ref, "youtube.com/")
	path := strings.Trim(ref[idx+len("youtube.com/"):], "/")
	if q := strings.IndexByte(path, '?'); q >= 0 {
		path = path[:q]
	}

	parts := strings.Split(path, "/")
	switch {
	case len(parts) >= 2 && (parts[0] == "channel" || parts[0] == "c" || parts[0] == "user"):
		return parts[1]
	case len(parts) >= 1 && strings.HasPrefix(parts[0], "@"):
		return parts[0]
	}
	return ""
}

// maxCategoryLen matches the channels.category column width.
const maxCategoryLen = 40

// categoryFromTopics derives a peer-scope category id from the channel's
// topic category URLs (Wikipedia article links). The first resolvable topic
// wins; the id form is lowercase with underscores, matching what the API
// accepts as peerCategories input.
func categoryFromTopics(topicURLs []string) string {
	for _, u := range topicURLs {
		seg := u[strings.LastIndexByte(u, '/')+1:]
		if decoded, err := url.PathUnescape(seg); err == nil {
			seg = decoded
		}
		seg = strings.ToLower(seg)

		var b strings.Builder
		pendingSep := false
		for _, r := range seg {
			switch {
			case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
				if pendingSep && b.Len() > 0 {
					b.WriteByte('_')
				}
				pendingSep = false
				b.WriteRune(r)
			default:
				pendingSep = true
			}
		}

		id := b.String()
		if len(id) > maxCategoryLen {
			id = strings.TrimSuffix(id[:maxCategoryLen], "_")
		}
		if id != "" {
			return id
		}
	}
	return ""
}

// parseCount handles the Data API's string-typed numeric fields. Missing or
// malformed counts read as zero (the API omits hidden subscriber counts).
func parseCount(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

// parseISODuration converts an ISO-8601 duration (PT1H2M3S) into seconds.
func parseISODuration(s string) float64 {
	s = strings.TrimPrefix(s, "PT")
	var total, num float64
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			num = num*10 + float64(r-'0')
		case r == 'H':
			total += num * 3600
			num = 0
		case r == 'M':
			total += num * 60
			num = 0
		case r == 'S':
			total += num
			num = 0
		default:
			num = 0
		}
	}
	return total
}

// Data API response shapes, reduced to the fields we read.

type channelListResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title      string `json:"title"`
			Thumbnails struct {
				High struct {
					URL string `json:"url"`
				} `json:"high"`
			} `json:"thumbnails"`
		} `json:"snippet"`
		Statistics struct {
			ViewCount       string `json:"viewCount"`
			SubscriberCount string `json:"subscriberCount"`
			VideoCount      string `json:"videoCount"`
		} `json:"statistics"`
		ContentDetails struct {
			RelatedPlaylists struct {
				Uploads string `json:"uploads"`
			} `json:"relatedPlaylists"`
		} `json:"contentDetails"`
		TopicDetails struct {
			TopicCategories []string `json:"topicCategories"`
		} `json:"topicDetails"`
	} `json:"items"`
}

type playlistItemsResponse struct {
	NextPageToken string `json:"nextPageToken"`
	Items         []struct {
		ContentDetails struct {
			VideoID string `json:"videoId"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type videoListResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title       string `json:"title"`
			PublishedAt string `json:"publishedAt"`
		} `json:"snippet"`
		Statistics struct {
			ViewCount    string `json:"viewCount"`
			LikeCount    string `json:"likeCount"`
			CommentCount string `json:"commentCount"`
		} `json:"statistics"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
	} `json:"items"`
}
