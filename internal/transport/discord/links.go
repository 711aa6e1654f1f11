// Package discord is the chat-platform transport: it owns the gateway
// session, turns incoming mentions and replies into pipeline requests, and
// renders pipeline results back into Discord messages.
package discord

import (
	"fmt"

	"github.com/sandevgo/gronkbot/internal/core"
)

// BuildLink renders the deep link for a message. DMs have no guild; Discord
// uses the "@me" placeholder there.
func BuildLink(guildID, channelID, messageID string) string {
	if guildID == "" {
		guildID = "@me"
	}
	return fmt.Sprintf("https://discord.com/channels/%s/%s/%s", guildID, channelID, messageID)
}

// RequestLink binds the triggering message's guild into a LinkBuilder.
// Messages fetched over REST do not carry their guild ID, but every message
// in a scan lives in the same guild as the trigger.
func RequestLink(guildID string) core.LinkBuilder {
	return func(m core.HistoryMessage) string {
		return BuildLink(guildID, m.ChannelID, m.ID)
	}
}
