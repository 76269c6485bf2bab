package spotify

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"net/url"
	"strconv"
)

// Chapter listings are paginated; pageLimit is the provider maximum.
// maxChapterPages bounds the next-URL walk against a misbehaving server.
const (
	pageLimit       = 50
	maxChapterPages = 100
)

// Chapters retrieves the full ordered chapter listing for a work,
// following pagination until exhausted.
func (c *Client) Chapters(ctx context.Context, workID string) ([]Track, error) {
	if workID == "" {
		return nil, wrapError("chapters", workID, ErrBadRequest.WithCause(fmt.Errorf("empty work ID")))
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(pageLimit))

	body, err := c.doRequest(ctx, "/audiobooks/"+workID+"/chapters", query)
	if err != nil {
		return nil, wrapError("chapters", workID, err)
	}

	var tracks []Track
	for page := 0; ; page++ {
		if page >= maxChapterPages {
			return nil, wrapError("chapters", workID, fmt.Errorf("pagination did not terminate after %d pages", maxChapterPages))
		}

		var resp rawChapterPage
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, wrapError("chapters", workID, fmt.Errorf("parse response: %w", err))
		}

		for _, ch := range resp.Items {
			index := ch.ChapterNumber
			if index == 0 {
				// Some listings omit chapter_number; fall back to arrival order.
				index = len(tracks)
			}
			tracks = append(tracks, Track{
				Index:      index,
				Name:       ch.Name,
				DurationMs: ch.DurationMs,
			})
		}

		if resp.Next == "" {
			break
		}

		c.logger.Debug("fetching next chapter page",
			"work_id", workID,
			"next", resp.Next,
		)
		body, err = c.doURL(ctx, resp.Next)
		if err != nil {
			return nil, wrapError("chapters", workID, err)
		}
	}

	if len(tracks) == 0 {
		return nil, wrapError("chapters", workID, ErrNotFound.WithCause(fmt.Errorf("work has no chapter listing")))
	}

	return tracks, nil
}
