package tasks

import (
	"context"

	"github.com/chatrelay/chatrelay/internal/shared/llmtext"
)

// Title asks for a conversation title. Missing or malformed structure decodes
// to "".
func (c *Client) Title(ctx context.Context, token, model string, messages []Message, chatID string) (string, error) {
	content, err := c.Complete(ctx, "title", token, contextPayload(model, messages, chatID))
	if err != nil {
		return "", err
	}
	if obj, ok := llmtext.ExtractObject(content); ok {
		if title, ok := obj["title"].(string); ok {
			return title, nil
		}
	}
	return "", nil
}

// FollowUps asks for follow-up prompts. Anything but a proper list decodes to
// an empty slice.
func (c *Client) FollowUps(ctx context.Context, token, model string, messages []Message, chatID string) ([]string, error) {
	content, err := c.Complete(ctx, "follow_ups", token, contextPayload(model, messages, chatID))
	if err != nil {
		return nil, err
	}
	if obj, ok := llmtext.ExtractObject(content); ok {
		return stringList(obj["follow_ups"]), nil
	}
	return []string{}, nil
}

// Tags asks for topic tags. Anything but a proper list decodes to an empty
// slice.
func (c *Client) Tags(ctx context.Context, token, model string, messages []Message, chatID string) ([]string, error) {
	content, err := c.Complete(ctx, "tags", token, contextPayload(model, messages, chatID))
	if err != nil {
		return nil, err
	}
	if obj, ok := llmtext.ExtractObject(content); ok {
		return stringList(obj["tags"]), nil
	}
	return []string{}, nil
}

// Queries asks for search queries derived from the conversation. When the
// model ignored the JSON instruction entirely, the raw completion text is
// itself a usable query and comes back as a single-element slice. When an
// object was extracted but carries no usable queries list, the result is
// empty.
func (c *Client) Queries(ctx context.Context, token, model string, messages []Message, prompt string) ([]string, error) {
	payload := map[string]any{
		"model":    model,
		"messages": messages,
		"prompt":   prompt,
		"type":     "web_search",
	}
	content, err := c.Complete(ctx, "queries", token, payload)
	if err != nil {
		return nil, err
	}
	obj, ok := llmtext.ExtractObject(content)
	if !ok {
		return []string{content}, nil
	}
	return stringList(obj["queries"]), nil
}

// AutoComplete asks for an inline continuation of prompt. No extractable
// object means the raw text is the completion; an object without a text field
// means there is none.
func (c *Client) AutoComplete(ctx context.Context, token, model, prompt string, messages []Message) (string, error) {
	payload := map[string]any{
		"model":  model,
		"prompt": prompt,
		"type":   "search query",
	}
	if messages != nil {
		payload["messages"] = messages
	}
	content, err := c.Complete(ctx, "auto", token, payload)
	if err != nil {
		return "", err
	}
	obj, ok := llmtext.ExtractObject(content)
	if !ok {
		return content, nil
	}
	if text, ok := obj["text"].(string); ok {
		return text, nil
	}
	return "", nil
}

// Emoji asks for a single emoji for prompt. This is the one decoder that does
// not look for JSON: quotes are stripped from the raw content and the first
// extended-pictographic code point wins, else "".
func (c *Client) Emoji(ctx context.Context, token, model, prompt, chatID string) (string, error) {
	payload := map[string]any{
		"model":  model,
		"prompt": prompt,
	}
	if chatID != "" {
		payload["chat_id"] = chatID
	}
	content, err := c.Complete(ctx, "emoji", token, payload)
	if err != nil {
		return "", err
	}
	return llmtext.FirstPictograph(llmtext.StripQuotes(content)), nil
}

// contextPayload is the shared request body for the conversation-context
// tasks.
func contextPayload(model string, messages []Message, chatID string) map[string]any {
	payload := map[string]any{
		"model":    model,
		"messages": messages,
	}
	if chatID != "" {
		payload["chat_id"] = chatID
	}
	return payload
}

// stringList coerces a decoded JSON value into a string slice. Non-list
// values and non-string elements are dropped.
func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
