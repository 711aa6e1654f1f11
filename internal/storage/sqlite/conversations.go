package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sandevgo/gronkbot/internal/core"
)

// Conversations persists one exchange per bot reply, keyed by the reply's
// message ID, so reply-chain follow-ups survive restarts.
type Conversations struct {
	db *sql.DB
}

func NewConversations(db *sql.DB) *Conversations {
	return &Conversations{db: db}
}

func (c *Conversations) Store(ctx context.Context, conv core.Conversation) error {
	query := `INSERT OR REPLACE INTO conversations (message_id, channel_id, author_id, user_query, response, model, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := c.db.ExecContext(ctx, query,
		conv.MessageID, conv.ChannelID, conv.AuthorID, conv.UserQuery, conv.Response, conv.Model,
		time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to insert conversation: %w", err)
	}
	return nil
}

func (c *Conversations) Get(ctx context.Context, messageID string) (core.Conversation, bool, error) {
	query := `SELECT message_id, channel_id, author_id, user_query, response, model
		FROM conversations WHERE message_id = ?`

	var conv core.Conversation
	err := c.db.QueryRowContext(ctx, query, messageID).Scan(
		&conv.MessageID, &conv.ChannelID, &conv.AuthorID, &conv.UserQuery, &conv.Response, &conv.Model)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Conversation{}, false, nil
	}
	if err != nil {
		return core.Conversation{}, false, fmt.Errorf("failed to query conversation: %w", err)
	}
	return conv, true, nil
}

// DeleteOlderThan drops conversations created before cutoff and reports how
// many were removed.
func (c *Conversations) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM conversations WHERE created_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete old conversations: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}
