// Package catalog aggregates the model catalog a chat UI can offer: the
// backend's base list merged with the model lists of every directly
// configured provider connection.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Model is one catalog entry. Identity is ID; merging is id-keyed with later
// entries overwriting earlier ones.
type Model struct {
	ID              string   `json:"id"`
	Name            string   `json:"name,omitempty"`
	OwnedBy         string   `json:"owned_by,omitempty"`
	Direct          bool     `json:"direct,omitempty"`
	ConnectionIndex *int     `json:"connection_index,omitempty"`
	Tags            []string `json:"tags,omitempty"`
}

// Connection is one externally configured OpenAI-compatible provider,
// identified by its position in the configured list.
type Connection struct {
	BaseURL  string
	APIKey   string
	Enabled  bool
	ModelIDs []string // optional allow-list; non-empty skips discovery entirely
	IDPrefix string
	Tags     []string
}

// decodeModelList accepts both listing shapes seen in the wild: the wrapped
// {"data": [...]} form and a bare JSON array.
func decodeModelList(body []byte) ([]Model, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var models []Model
		if err := json.Unmarshal(trimmed, &models); err != nil {
			return nil, fmt.Errorf("decode model list: %w", err)
		}
		return models, nil
	}
	var wrapped struct {
		Data []Model `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, fmt.Errorf("decode model list: %w", err)
	}
	return wrapped.Data, nil
}

// synthesize builds descriptors for an allow-list without any discovery call.
func synthesize(ids []string) []Model {
	models := make([]Model, 0, len(ids))
	for _, id := range ids {
		models = append(models, Model{ID: id, Name: id, OwnedBy: "openai"})
	}
	return models
}

// mergeByID deduplicates by model id. The first occurrence fixes the position,
// the last occurrence wins the slot, so connection models replace base models
// with the same id without reordering the catalog.
func mergeByID(models []Model) []Model {
	out := make([]Model, 0, len(models))
	index := make(map[string]int, len(models))
	for _, m := range models {
		if at, ok := index[m.ID]; ok {
			out[at] = m
			continue
		}
		index[m.ID] = len(out)
		out = append(out, m)
	}
	return out
}
