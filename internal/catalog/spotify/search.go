package spotify

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"net/url"
	"strconv"

	"github.com/chaptifyapp/chaptify/internal/identity"
)

// Search queries the audiobook catalog for works matching the identity
// key. Results preserve provider-relevance order; an empty slice is not an
// error (the matcher reports it as a no-match with context).
func (c *Client) Search(ctx context.Context, key identity.Key, limit int) ([]Work, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	query := url.Values{}
	query.Set("q", key.Title+" "+key.Author)
	query.Set("type", "audiobook")
	query.Set("limit", strconv.Itoa(limit))

	body, err := c.doRequest(ctx, "/search", query)
	if err != nil {
		return nil, wrapError("search", "", err)
	}

	var resp rawSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, wrapError("search", "", fmt.Errorf("parse response: %w", err))
	}

	works := make([]Work, 0, len(resp.Audiobooks.Items))
	for i := range resp.Audiobooks.Items {
		item := &resp.Audiobooks.Items[i]
		if item.ID == "" {
			// Malformed entry; skip rather than propagate a useless candidate.
			continue
		}

		authors := make([]string, 0, len(item.Authors))
		for _, a := range item.Authors {
			if a.Name != "" {
				authors = append(authors, a.Name)
			}
		}

		works = append(works, Work{
			ID:            item.ID,
			Title:         item.Name,
			Authors:       authors,
			Edition:       item.Edition,
			TotalChapters: item.TotalChapters,
		})
	}

	return works, nil
}
