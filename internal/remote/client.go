// Package remote consumes the read-only HTTP JSON source the cache is
// primed from. Writes never touch it; mutations are local-only.
package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
)

// FetchError is returned for a non-2xx response.
type FetchError struct {
	Path   string
	Status int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: status %d", e.Path, e.Status)
}

// Client fetches collections from the remote source.
type Client struct {
	base string
	hc   *fasthttp.Client
}

// New creates a client for the given base URL (no trailing slash needed).
func New(baseURL string) *Client {
	return &Client{
		base: baseURL,
		hc: &fasthttp.Client{
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// Fetch performs a GET against base/path and returns the raw body.
// Non-2xx responses surface as *FetchError. The context deadline, when
// set, bounds the whole exchange.
func (c *Client) Fetch(ctx context.Context, path string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.base + "/" + path)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	var err error
	if deadline, ok := ctx.Deadline(); ok {
		err = c.hc.DoDeadline(req, resp, deadline)
	} else {
		err = c.hc.Do(req, resp)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", path, err)
	}

	status := resp.StatusCode()
	if status < 200 || status > 299 {
		return nil, &FetchError{Path: path, Status: status}
	}

	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return body, nil
}

// Remote paths per collection.
const (
	PathChats   = "chats"
	PathTasks   = "tasks"
	PathProfile = "profile"
)

// MessagesPath returns the chat-scoped message collection path.
func MessagesPath(chatID int64) string {
	return fmt.Sprintf("messages?chatId=%d", chatID)
}
