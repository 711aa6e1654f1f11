package search

import (
	"context"
	"strings"

	"github.com/sandevgo/gronkbot/internal/core"
	"github.com/sandevgo/gronkbot/pkg/log"
)

// ProgressFunc receives (scanned, matched) at a fixed cadence during a scan.
// Purely advisory: it may race with the scan and its failures are swallowed.
type ProgressFunc func(scanned, matched int)

// Scanner streams a channel's history newest-first and applies the request's
// filter chain under a message budget.
type Scanner struct {
	opener         core.HistoryOpener
	maxKeywordScan int
	progressEvery  int
}

func NewScanner(opener core.HistoryOpener, maxKeywordScan, progressEvery int) *Scanner {
	return &Scanner{
		opener:         opener,
		maxKeywordScan: maxKeywordScan,
		progressEvery:  progressEvery,
	}
}

// Scan consumes the channel's history under the request's budget.
//
// In keyword mode the budget means "how deep to search": the scan runs until
// the stream ends or min(budget, maxKeywordScan) messages have been examined,
// however few match. In unfiltered mode the budget means "how many results":
// the scan stops as soon as that many messages have matched.
//
// A mid-scan stream failure returns the partial result together with a
// StreamError; partial results are still usable if non-empty. An empty result
// with a nil error is a normal terminal state.
func (s *Scanner) Scan(ctx context.Context, channelID string, req core.SearchRequest, progress ProgressFunc) (core.ScanResult, error) {
	logger := log.FromCtx(ctx)

	maxScan := req.Budget
	if req.Filtered() {
		maxScan = min(req.Budget, s.maxKeywordScan)
	}

	logger.Debug().
		Str("channel_id", channelID).
		Int("max_scan", maxScan).
		Str("keyword", req.Keyword).
		Str("target_user", req.TargetUserID).
		Msg("starting history scan")

	var result core.ScanResult
	stream := s.opener.OpenHistory(channelID, maxScan)

	for result.Scanned < maxScan {
		msg, ok, err := stream.Next(ctx)
		if err != nil {
			logger.Warn().Err(err).Int("scanned", result.Scanned).Msg("history stream failed mid-scan")
			return result, &core.StreamError{Err: err}
		}
		if !ok {
			break
		}

		// The triggering message itself is not history.
		if msg.ID == req.TriggerID {
			continue
		}
		result.Scanned++

		if s.matches(msg, req) {
			result.Messages = append(result.Messages, msg)
			result.Matched++

			// Unfiltered mode only needs enough messages for the model.
			if !req.Filtered() && result.Matched >= req.Budget {
				break
			}
		}

		if s.progressEvery > 0 && result.Scanned%s.progressEvery == 0 {
			notify(progress, result.Scanned, result.Matched)
		}
	}

	logger.Debug().
		Int("scanned", result.Scanned).
		Int("matched", result.Matched).
		Msg("history scan finished")
	return result, nil
}

// matches applies the per-message filter chain, cheapest check first.
func (s *Scanner) matches(msg core.HistoryMessage, req core.SearchRequest) bool {
	if req.TargetUserID != "" {
		if msg.AuthorID != req.TargetUserID {
			return false
		}
	} else if msg.AuthorIsBot {
		return false
	}
	if req.Filtered() && !strings.Contains(strings.ToLower(msg.Content), req.Keyword) {
		return false
	}
	return strings.TrimSpace(msg.Content) != ""
}

// notify calls the progress callback, swallowing panics: UI feedback must
// never abort a scan.
func notify(progress ProgressFunc, scanned, matched int) {
	if progress == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	progress(scanned, matched)
}
