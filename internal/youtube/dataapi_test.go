package youtube

import "testing"

func TestExtractURLSegment(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.youtube.com/channel/UCBJycsmduvYEL83R_U4JriQ", "UCBJycsmduvYEL83R_U4JriQ"},
		{"https://youtube.com/@mkbhd", "@mkbhd"},
		{"youtube.com/@mkbhd/videos", "@mkbhd"},
		{"https://www.youtube.com/c/veritasium", "veritasium"},
		{"https://www.youtube.com/user/oldschoolname", "oldschoolname"},
		{"https://www.youtube.com/@handle?si=tracking", "@handle"},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", ""},
		{"https://www.youtube.com/", ""},
	}

	for _, tt := range tests {
		if got := extractURLSegment(tt.url); got != tt.want {
			t.Errorf("extractURLSegment(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestParseISODuration(t *testing.T) {
	tests := []struct {
		iso  string
		want float64
	}{
		{"PT15S", 15},
		{"PT4M13S", 253},
		{"PT1H2M3S", 3723},
		{"PT1H", 3600},
		{"PT10M", 600},
		{"", 0},
		{"P0D", 0},
	}

	for _, tt := range tests {
		if got := parseISODuration(tt.iso); got != tt.want {
			t.Errorf("parseISODuration(%q) = %v, want %v", tt.iso, got, tt.want)
		}
	}
}

func TestCategoryFromTopics(t *testing.T) {
	tests := []struct {
		name   string
		topics []string
		want   string
	}{
		{
			"single topic",
			[]string{"https://en.wikipedia.org/wiki/Gaming"},
			"gaming",
		},
		{
			"multi-word topic keeps underscores",
			[]string{"https://en.wikipedia.org/wiki/Video_game_culture"},
			"video_game_culture",
		},
		{
			"hyphens become underscores",
			[]string{"https://en.wikipedia.org/wiki/Role-playing_video_game"},
			"role_playing_video_game",
		},
		{
			"percent-encoded punctuation",
			[]string{"https://en.wikipedia.org/wiki/Children%27s_music"},
			"children_s_music",
		},
		{
			"first topic wins",
			[]string{
				"https://en.wikipedia.org/wiki/Music",
				"https://en.wikipedia.org/wiki/Entertainment",
			},
			"music",
		},
		{
			"empty segment falls through to the next topic",
			[]string{"https://en.wikipedia.org/wiki/", "https://en.wikipedia.org/wiki/Cooking"},
			"cooking",
		},
		{"no topics", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := categoryFromTopics(tt.topics); got != tt.want {
				t.Errorf("categoryFromTopics(%v) = %q, want %q", tt.topics, got, tt.want)
			}
		})
	}
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"12345", 12345},
		{"0", 0},
		// hidden subscriber counts arrive as an absent field
		{"", 0},
		{"not-a-number", 0},
	}

	for _, tt := range tests {
		if got := parseCount(tt.in); got != tt.want {
			t.Errorf("parseCount(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
