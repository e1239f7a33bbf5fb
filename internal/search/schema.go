package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// field is one index schema field definition.
type field struct {
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Key        bool    `json:"key,omitempty"`
	Searchable *bool   `json:"searchable,omitempty"`
	Filterable *bool   `json:"filterable,omitempty"`
	Sortable   *bool   `json:"sortable,omitempty"`
	Facetable  *bool   `json:"facetable,omitempty"`
	Fields     []field `json:"fields,omitempty"`
}

func flag(v bool) *bool { return &v }

// indexSchema returns the video-insights index definition. The keywords,
// topics, faces and labels fields are plain strings, not collections: the
// deployed index was provisioned that way after collection-typed fields broke
// document uploads, and the mapper flattens to match.
func indexSchema(name string) map[string]any {
	off := flag(false)
	fields := []field{
		{Name: "id", Type: "Edm.String", Key: true, Searchable: off},
		{Name: "videoId", Type: "Edm.String", Searchable: off, Filterable: flag(true)},
		{Name: "name", Type: "Edm.String", Searchable: flag(true)},
		{Name: "transcript", Type: "Edm.String", Searchable: flag(true)},
		{Name: "transcriptEntries", Type: "Collection(Edm.ComplexType)", Fields: []field{
			{Name: "text", Type: "Edm.String", Searchable: flag(true)},
			{Name: "startSeconds", Type: "Edm.Double", Filterable: flag(true)},
			{Name: "endSeconds", Type: "Edm.Double", Filterable: flag(true)},
			{Name: "speakerId", Type: "Edm.Int32", Filterable: flag(true)},
			{Name: "confidence", Type: "Edm.Double", Filterable: flag(true)},
		}},
		{Name: "keywords", Type: "Edm.String", Searchable: flag(true), Filterable: flag(true), Facetable: flag(true)},
		{Name: "topics", Type: "Edm.String", Searchable: flag(true), Filterable: flag(true), Facetable: flag(true)},
		{Name: "faces", Type: "Edm.String", Searchable: flag(true), Filterable: flag(true)},
		{Name: "labels", Type: "Edm.String", Searchable: flag(true), Filterable: flag(true), Facetable: flag(true)},
		{Name: "ocr", Type: "Edm.String", Searchable: flag(true)},
		{Name: "duration", Type: "Edm.Double", Searchable: off, Filterable: flag(true), Sortable: flag(true)},
		{Name: "created", Type: "Edm.DateTimeOffset", Searchable: off, Filterable: flag(true), Sortable: flag(true)},
		{Name: "language", Type: "Edm.String", Searchable: off, Filterable: flag(true)},
		{Name: "speakerCount", Type: "Edm.Int32", Searchable: off, Filterable: flag(true)},
		{Name: "publishedUrl", Type: "Edm.String", Searchable: off},
		{Name: "thumbnailId", Type: "Edm.String", Searchable: off},
		{Name: "indexedAt", Type: "Edm.DateTimeOffset", Searchable: off, Filterable: flag(true), Sortable: flag(true)},
	}
	return map[string]any{"name": name, "fields": fields}
}

// EnsureIndex creates or updates the index definition. Safe to call on every
// boot; the store treats the PUT as an upsert of the schema.
func (p *Publisher) EnsureIndex(ctx context.Context) error {
	body, err := json.Marshal(indexSchema(p.cfg.IndexName))
	if err != nil {
		return fmt.Errorf("marshal index schema: %w", err)
	}

	u := fmt.Sprintf("%s/indexes/%s?api-version=%s",
		strings.TrimRight(p.cfg.Endpoint, "/"), p.cfg.IndexName, p.cfg.APIVersion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build index schema request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", p.cfg.APIKey)

	resp, err := p.http.Do(req)
	if err != nil {
		return fmt.Errorf("ensure index %s: %w", p.cfg.IndexName, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return nil
	default:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("ensure index %s: store returned %d: %s", p.cfg.IndexName, resp.StatusCode, strings.TrimSpace(string(detail)))
	}
}
