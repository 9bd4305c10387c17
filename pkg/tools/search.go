package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"starbroker/pkg/ai"
	"starbroker/pkg/domain"
	"starbroker/pkg/store"
)

const (
	searchDefaultLimit = 5
	searchMaxLimit     = 10
)

var searchSpec = ai.Tool{
	Name:        "search",
	Description: "Search the star catalog. Matches the query against star names, constellations, and descriptions and returns the matching stars with their details.",
	Parameters: ai.Schema{
		Type: "object",
		Properties: map[string]ai.Schema{
			"query": {
				Type:        "string",
				Description: "Text to match, e.g. a star name, a constellation, or a phrase from a description.",
			},
			"limit": {
				Type:        "number",
				Description: "Maximum number of stars to return, between 1 and 10. Defaults to 5.",
			},
		},
		Required: []string{"query"},
	},
}

// SearchResult is the payload returned to the model for catalog searches.
// An empty match set is still a success.
type SearchResult struct {
	Success bool          `json:"success"`
	Count   int           `json:"count"`
	Stars   []domain.Star `json:"stars"`
	Message string        `json:"message"`
}

func newSearchHandler(catalog store.Store) Handler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		args := map[string]any{}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &args); err != nil {
				return Failure{Error: "search requires a JSON object with a query string"}, nil
			}
		}
		query, ok := args["query"].(string)
		if !ok || strings.TrimSpace(query) == "" {
			return Failure{Error: "search requires a non-empty query string"}, nil
		}
		query = strings.TrimSpace(query)

		limit := searchDefaultLimit
		if rawLimit, present := args["limit"]; present {
			if f, isNumber := rawLimit.(float64); isNumber {
				limit = clampLimit(int(f))
			}
		}

		stars, err := catalog.SearchStars(query, limit)
		if err != nil {
			return nil, fmt.Errorf("search stars: %w", err)
		}
		message := fmt.Sprintf("Found %d star(s) matching %q.", len(stars), query)
		if len(stars) == 0 {
			message = fmt.Sprintf("No stars found matching %q.", query)
		}
		return SearchResult{
			Success: true,
			Count:   len(stars),
			Stars:   stars,
			Message: message,
		}, nil
	}
}

func clampLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > searchMaxLimit {
		return searchMaxLimit
	}
	return limit
}
