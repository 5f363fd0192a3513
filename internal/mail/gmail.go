package mail

import (
	"context"
	"encoding/base64"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/Veraticus/spendmail/internal/common"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// maxPageSize is the largest page the Gmail API returns for thread listings.
const maxPageSize = 500

var (
	lineBreakTags = regexp.MustCompile(`(?i)<br\s*/?>|</p>|</div>|</tr>`)
	blankLines    = regexp.MustCompile(`\n\s*\n+`)
)

// GmailConfig configures the Gmail searcher.
type GmailConfig struct {
	User          string
	RetryAttempts int
	RetryDelay    time.Duration
}

// GmailClient implements Searcher on top of the Gmail REST API.
type GmailClient struct {
	service *gmail.Service
	logger  *slog.Logger
	config  GmailConfig
}

// NewGmailClient creates a Gmail searcher using an authorized HTTP client.
func NewGmailClient(ctx context.Context, httpClient *http.Client, config GmailConfig, logger *slog.Logger) (*GmailClient, error) {
	if config.User == "" {
		config.User = "me"
	}

	srv, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create gmail service: %w", err)
	}

	return &GmailClient{
		service: srv,
		logger:  logger,
		config:  config,
	}, nil
}

func (c *GmailClient) retryOptions() common.RetryOptions {
	return common.NewRetryOptions(c.config.RetryAttempts, c.config.RetryDelay, c.logger)
}

// Search implements Searcher.
func (c *GmailClient) Search(ctx context.Context, query string, limit int) ([]Thread, error) {
	var threads []Thread
	pageToken := ""

	for {
		pageSize := int64(maxPageSize)
		if limit > 0 {
			pageSize = int64(min(limit-len(threads), maxPageSize))
		}

		var resp *gmail.ListThreadsResponse
		err := common.WithRetry(ctx, func() error {
			call := c.service.Users.Threads.List(c.config.User).
				Q(query).
				MaxResults(pageSize).
				Context(ctx)
			if pageToken != "" {
				call = call.PageToken(pageToken)
			}
			var callErr error
			resp, callErr = call.Do()
			return callErr
		}, c.retryOptions())
		if err != nil {
			return nil, fmt.Errorf("failed to search mail %q: %w", query, err)
		}

		for _, t := range resp.Threads {
			threads = append(threads, Thread{ID: t.Id})
		}

		if resp.NextPageToken == "" || (limit > 0 && len(threads) >= limit) {
			break
		}
		pageToken = resp.NextPageToken
	}

	c.logger.Debug("mail search complete", "query", query, "threads", len(threads))
	return threads, nil
}

// FetchMessages implements Searcher.
func (c *GmailClient) FetchMessages(ctx context.Context, threads []Thread) ([][]Message, error) {
	out := make([][]Message, 0, len(threads))

	for _, t := range threads {
		var thread *gmail.Thread
		err := common.WithRetry(ctx, func() error {
			var callErr error
			thread, callErr = c.service.Users.Threads.Get(c.config.User, t.ID).
				Format("full").
				Context(ctx).
				Do()
			return callErr
		}, c.retryOptions())
		if err != nil {
			return nil, fmt.Errorf("failed to fetch thread %s: %w", t.ID, err)
		}

		msgs := make([]Message, 0, len(thread.Messages))
		for _, m := range thread.Messages {
			msgs = append(msgs, convertMessage(m))
		}
		out = append(out, msgs)
	}

	return out, nil
}

// convertMessage flattens a Gmail API message into a Message.
func convertMessage(m *gmail.Message) Message {
	msg := Message{
		ID:   m.Id,
		Date: time.UnixMilli(m.InternalDate),
	}

	if m.Payload == nil {
		return msg
	}

	for _, h := range m.Payload.Headers {
		switch strings.ToLower(h.Name) {
		case "subject":
			msg.Subject = h.Value
		case "from":
			msg.From = h.Value
		}
	}

	walkParts(m.Payload, &msg)

	if msg.PlainBody == "" && msg.HTMLBody != "" {
		msg.PlainBody = htmlToText(msg.HTMLBody)
	}
	return msg
}

// walkParts collects the first text/plain and text/html bodies of a MIME tree.
func walkParts(part *gmail.MessagePart, msg *Message) {
	if part == nil {
		return
	}

	if part.Body != nil && part.Body.Data != "" {
		body := decodeBody(part.Body.Data)
		switch {
		case strings.HasPrefix(part.MimeType, "text/plain") && msg.PlainBody == "":
			msg.PlainBody = body
		case strings.HasPrefix(part.MimeType, "text/html") && msg.HTMLBody == "":
			msg.HTMLBody = body
		}
	}

	for _, p := range part.Parts {
		walkParts(p, msg)
	}
}

func decodeBody(data string) string {
	if b, err := base64.URLEncoding.DecodeString(data); err == nil {
		return string(b)
	}
	if b, err := base64.RawURLEncoding.DecodeString(data); err == nil {
		return string(b)
	}
	return ""
}

// htmlToText approximates the plain rendering of an HTML-only message.
func htmlToText(s string) string {
	s = lineBreakTags.ReplaceAllString(s, "\n")
	s = html.UnescapeString(common.StripTags(s))
	s = blankLines.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}
