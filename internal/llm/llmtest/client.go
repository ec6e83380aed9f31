// Package llmtest provides a scripted llm.Client for tests.
package llmtest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/jonathan/cv-tailor/internal/llm"
)

// Prompt markers identifying each prompt template
const (
	JobRequirementsPrompt = "precise job description analyst"
	CVFactsPrompt         = "precise CV parser"
	SummaryPrompt         = "Write a professional summary"
	BulletRewritesPrompt  = "Rewrite the experience bullets"
	CoverLetterPrompt     = "Write a cover letter"
	CorrectivePrompt      = "your previous response was rejected"
)

// Reply is one scripted response
type Reply struct {
	Text string
	Err  error
}

// Call records one request the client received
type Call struct {
	Prompt string
	Tier   llm.ModelTier
	JSON   bool
}

// Client replies to prompts containing a registered marker. When several markers match,
// the longest wins. Each marker's replies are consumed in order; the last one repeats.
type Client struct {
	mu      sync.Mutex
	replies map[string][]Reply
	calls   []Call
	closed  bool
}

var _ llm.Client = (*Client)(nil)

// New returns an empty scripted client
func New() *Client {
	return &Client{replies: make(map[string][]Reply)}
}

// On scripts replies for prompts containing marker
func (c *Client) On(marker string, replies ...Reply) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies[marker] = append(c.replies[marker], replies...)
	return c
}

// OnText scripts raw text replies
func (c *Client) OnText(marker string, texts ...string) *Client {
	replies := make([]Reply, len(texts))
	for i, t := range texts {
		replies[i] = Reply{Text: t}
	}
	return c.On(marker, replies...)
}

// OnJSON scripts a reply that is v marshaled to JSON
func (c *Client) OnJSON(marker string, v any) *Client {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("llmtest: marshal reply: %v", err))
	}
	return c.OnText(marker, string(data))
}

// OnError scripts an error reply
func (c *Client) OnError(marker string, err error) *Client {
	return c.On(marker, Reply{Err: err})
}

// GenerateContent implements llm.Client
func (c *Client) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	return c.reply(ctx, prompt, tier, false)
}

// GenerateJSON implements llm.Client
func (c *Client) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	return c.reply(ctx, prompt, tier, true)
}

// GetModel implements llm.Client
func (c *Client) GetModel(tier llm.ModelTier) string {
	return "fake-" + string(tier)
}

// Close implements llm.Client
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

// Calls returns a copy of the recorded calls
func (c *Client) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.calls...)
}

// CallsMatching counts recorded calls whose prompt contains marker
func (c *Client) CallsMatching(marker string) int {
	n := 0
	for _, call := range c.Calls() {
		if strings.Contains(call.Prompt, marker) {
			n++
		}
	}
	return n
}

func (c *Client) reply(ctx context.Context, prompt string, tier llm.ModelTier, jsonMode bool) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, Call{Prompt: prompt, Tier: tier, JSON: jsonMode})

	best := ""
	for marker := range c.replies {
		if strings.Contains(prompt, marker) && len(marker) > len(best) {
			best = marker
		}
	}
	queue := c.replies[best]
	if best == "" || len(queue) == 0 {
		return "", fmt.Errorf("llmtest: no scripted reply for prompt %.60q", prompt)
	}

	r := queue[0]
	if len(queue) > 1 {
		c.replies[best] = queue[1:]
	}
	return r.Text, r.Err
}
