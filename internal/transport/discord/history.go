package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/sandevgo/gronkbot/internal/core"
)

const historyPageSize = 100

// messagesFetcher is the slice of discordgo.Session the history stream
// needs. Narrowed for tests.
type messagesFetcher interface {
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
}

// History opens newest-first streams over a channel's messages, paging
// through the REST API in batches. Implements core.HistoryOpener.
type History struct {
	fetch messagesFetcher
}

func NewHistory(fetch messagesFetcher) *History {
	return &History{fetch: fetch}
}

func (h *History) OpenHistory(channelID string, max int) core.HistoryStream {
	return &historyStream{
		fetch:     h.fetch,
		channelID: channelID,
		max:       max,
	}
}

// historyStream is lazy, finite and single-pass: each Next call serves from
// the current page and fetches the next one behind the last served ID when
// the page runs out.
type historyStream struct {
	fetch     messagesFetcher
	channelID string
	max       int

	served   int
	buf      []*discordgo.Message
	bufPos   int
	beforeID string
	done     bool
}

func (s *historyStream) Next(_ context.Context) (core.HistoryMessage, bool, error) {
	if s.served >= s.max {
		return core.HistoryMessage{}, false, nil
	}

	if s.bufPos >= len(s.buf) {
		if s.done {
			return core.HistoryMessage{}, false, nil
		}
		size := historyPageSize
		if remaining := s.max - s.served; remaining < size {
			size = remaining
		}
		page, err := s.fetch.ChannelMessages(s.channelID, size, s.beforeID, "", "")
		if err != nil {
			return core.HistoryMessage{}, false, err
		}
		if len(page) == 0 {
			s.done = true
			return core.HistoryMessage{}, false, nil
		}
		if len(page) < size {
			// Short page: the channel has no older messages.
			s.done = true
		}
		s.buf = page
		s.bufPos = 0
		s.beforeID = page[len(page)-1].ID
	}

	msg := s.buf[s.bufPos]
	s.bufPos++
	s.served++
	return toHistoryMessage(s.channelID, msg), true, nil
}

func toHistoryMessage(channelID string, m *discordgo.Message) core.HistoryMessage {
	out := core.HistoryMessage{
		ID:             m.ID,
		ChannelID:      channelID,
		Content:        m.Content,
		CreatedAt:      m.Timestamp,
		EmbedMediaURLs: embedMediaURLs(m.Embeds),
	}
	if m.Author != nil {
		out.AuthorID = m.Author.ID
		out.AuthorName = m.Author.Username
		out.AuthorIsBot = m.Author.Bot
	}
	for _, a := range m.Attachments {
		if isSupportedImage(a.URL, a.ContentType) {
			out.AttachmentURLs = append(out.AttachmentURLs, a.URL)
		}
	}
	return out
}
