// Package llm provides the Anthropic-backed implementations of the two
// opaque model collaborators: event extraction over recent messages and
// retrieval adjudication over candidate memories.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/GaraRoyal/memoryvault/extract"
	"github.com/GaraRoyal/memoryvault/vault"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-sonnet-4-20250514"

// Client calls the Anthropic API for extraction and adjudication.
type Client struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
}

// Option configures a Client.
type Option func(*Client)

// WithModel overrides the model.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithMaxTokens overrides the response token cap.
func WithMaxTokens(n int64) Option {
	return func(c *Client) { c.maxTokens = n }
}

// New creates a client wrapping an Anthropic API client.
func New(api *anthropic.Client, opts ...Option) *Client {
	c := &Client{
		client:    api,
		model:     DefaultModel,
		maxTokens: 2048,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Extract asks the model to extract structured events from the message
// window. The raw text response is returned as-is; the extract package
// owns the lenient parsing.
func (c *Client) Extract(ctx context.Context, req extract.Request) (string, error) {
	var b strings.Builder
	for _, m := range req.Messages {
		speaker := m.Name
		if speaker == "" {
			if m.IsUser {
				speaker = req.UserName
			} else {
				speaker = req.CharacterName
			}
		}
		fmt.Fprintf(&b, "[#%d] %s: %s\n", m.Index, speaker, m.Text)
	}

	prompt := fmt.Sprintf(extractionPromptFormat, req.CharacterName, req.UserName, b.String())
	text, err := c.complete(ctx, extractionSystemPrompt, prompt)
	if err != nil {
		return "", fmt.Errorf("extraction call: %w", err)
	}
	return text, nil
}

// Adjudicate asks the model which candidate memories are actually
// relevant to the query, returning their ids in preference order.
func (c *Client) Adjudicate(ctx context.Context, candidates []*vault.Memory, queryText string) ([]string, error) {
	var b strings.Builder
	for _, m := range candidates {
		fmt.Fprintf(&b, "- id=%s: %s\n", m.ID, m.Summary)
	}
	prompt := fmt.Sprintf(adjudicationPromptFormat, queryText, b.String())

	text, err := c.complete(ctx, adjudicationSystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("adjudication call: %w", err)
	}

	ids, err := parseIDList(text)
	if err != nil {
		return nil, fmt.Errorf("adjudication response: %w", err)
	}
	return ids, nil
}

// complete runs one non-streaming message call and concatenates the
// text blocks of the response.
func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("claude API error: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return text, nil
}

// parseIDList decodes the adjudicator's id array, tolerating fences and
// surrounding prose the same way event parsing does.
func parseIDList(raw string) ([]string, error) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array in %q", truncate(raw, 120))
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw[start:end+1]), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// LogUsage records token consumption from a response for debugging.
func LogUsage(tag string, resp *anthropic.Message) {
	if resp == nil {
		return
	}
	log.Printf("[%s] Tokens: in=%d out=%d", tag, resp.Usage.InputTokens, resp.Usage.OutputTokens)
}

const extractionSystemPrompt = `You extract structured memory events from role-play chat transcripts.
Respond with a JSON array of event objects and nothing else. Each event has:
summary, event_type (action|revelation|emotion_shift|relationship_change),
characters_involved, witnesses, location, is_secret, known_by, importance (1-5),
emotional_tone, emotional_valence (-1..1), emotional_impact (map of character to emotion),
relationship_impact (map of "A->B" to either a free-text description or an object of
dimension deltas), message_ids (the [#N] indexes the event is drawn from).
Only record events worth remembering. An empty array is a valid answer.`

const extractionPromptFormat = `Character: %s
User: %s

Transcript:
%s`

const adjudicationSystemPrompt = `You judge which stored memories are relevant to the current scene.
Respond with a JSON array of memory ids, most relevant first, and nothing else.
Only use ids from the candidate list. An empty array means none are relevant.`

const adjudicationPromptFormat = `Current scene:
%s

Candidate memories:
%s`
