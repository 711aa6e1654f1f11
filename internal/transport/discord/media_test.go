package discord

import (
	"testing"

	"github.com/bwmarrin/discordgo"
)

func TestExtractMedia(t *testing.T) {
	tests := []struct {
		name     string
		embed    *discordgo.MessageEmbed
		wantKind MediaKind
		wantURL  string
		wantOK   bool
	}{
		{
			name: "image_beats_everything",
			embed: &discordgo.MessageEmbed{
				URL:       "https://link",
				Image:     &discordgo.MessageEmbedImage{URL: "https://img"},
				Video:     &discordgo.MessageEmbedVideo{URL: "https://vid"},
				Thumbnail: &discordgo.MessageEmbedThumbnail{URL: "https://thumb"},
			},
			wantKind: MediaImage,
			wantURL:  "https://img",
			wantOK:   true,
		},
		{
			name: "video_beats_thumbnail",
			embed: &discordgo.MessageEmbed{
				Video:     &discordgo.MessageEmbedVideo{URL: "https://vid"},
				Thumbnail: &discordgo.MessageEmbedThumbnail{URL: "https://thumb"},
			},
			wantKind: MediaVideo,
			wantURL:  "https://vid",
			wantOK:   true,
		},
		{
			name: "thumbnail_beats_link",
			embed: &discordgo.MessageEmbed{
				URL:       "https://link",
				Thumbnail: &discordgo.MessageEmbedThumbnail{URL: "https://thumb"},
			},
			wantKind: MediaThumbnail,
			wantURL:  "https://thumb",
			wantOK:   true,
		},
		{
			name:     "bare_link",
			embed:    &discordgo.MessageEmbed{URL: "https://link"},
			wantKind: MediaRichLink,
			wantURL:  "https://link",
			wantOK:   true,
		},
		{
			name:  "empty_embed",
			embed: &discordgo.MessageEmbed{},
		},
		{
			name: "empty_url_fields_skipped",
			embed: &discordgo.MessageEmbed{
				Image: &discordgo.MessageEmbedImage{},
				Video: &discordgo.MessageEmbedVideo{URL: "https://vid"},
			},
			wantKind: MediaVideo,
			wantURL:  "https://vid",
			wantOK:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractMedia(tt.embed)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if got.Kind != tt.wantKind || got.URL != tt.wantURL {
				t.Errorf("media = %+v, want %s %s", got, tt.wantKind, tt.wantURL)
			}
		})
	}
}

func TestIsSupportedImage(t *testing.T) {
	tests := []struct {
		url         string
		contentType string
		want        bool
	}{
		{url: "https://cdn/x.PNG", want: true},
		{url: "https://cdn/x.jpeg", want: true},
		{url: "https://cdn/x.gif", want: false},
		{url: "https://cdn/blob", contentType: "image/webp", want: true},
		{url: "https://cdn/blob", contentType: "image/gif", want: false},
	}

	for _, tt := range tests {
		if got := isSupportedImage(tt.url, tt.contentType); got != tt.want {
			t.Errorf("isSupportedImage(%q, %q) = %v, want %v", tt.url, tt.contentType, got, tt.want)
		}
	}
}
