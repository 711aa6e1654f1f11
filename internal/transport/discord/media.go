package discord

import (
	"strings"

	"github.com/bwmarrin/discordgo"
)

// MediaKind tags which embed field a media URL came from.
type MediaKind string

const (
	MediaImage     MediaKind = "image"
	MediaVideo     MediaKind = "video"
	MediaThumbnail MediaKind = "thumbnail"
	MediaRichLink  MediaKind = "rich-link"
)

// Media is one media reference extracted from an embed.
type Media struct {
	Kind MediaKind
	URL  string
}

// ExtractMedia returns the single best media reference for an embed. The
// priority is fixed: image beats video beats thumbnail beats the bare link.
// Embeds carrying none of those yield ok=false.
func ExtractMedia(e *discordgo.MessageEmbed) (Media, bool) {
	switch {
	case e == nil:
		return Media{}, false
	case e.Image != nil && e.Image.URL != "":
		return Media{Kind: MediaImage, URL: e.Image.URL}, true
	case e.Video != nil && e.Video.URL != "":
		return Media{Kind: MediaVideo, URL: e.Video.URL}, true
	case e.Thumbnail != nil && e.Thumbnail.URL != "":
		return Media{Kind: MediaThumbnail, URL: e.Thumbnail.URL}, true
	case e.URL != "":
		return Media{Kind: MediaRichLink, URL: e.URL}, true
	default:
		return Media{}, false
	}
}

// embedMediaURLs collects one URL per embed, best field first.
func embedMediaURLs(embeds []*discordgo.MessageEmbed) []string {
	var urls []string
	for _, e := range embeds {
		if m, ok := ExtractMedia(e); ok {
			urls = append(urls, m.URL)
		}
	}
	return urls
}

// isSupportedImage reports whether an attachment looks like an image the
// completion backend accepts.
func isSupportedImage(url, contentType string) bool {
	switch contentType {
	case "image/jpeg", "image/jpg", "image/png", "image/webp":
		return true
	}
	lower := strings.ToLower(url)
	for _, ext := range []string{".jpg", ".jpeg", ".png", ".webp"} {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
