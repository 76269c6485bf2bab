// Package spotify provides a client for the Spotify audiobook catalog.
//
// The Web API is the only widely available catalog that exposes audiobook
// chapter listings with per-chapter durations, which is exactly the track
// data the timecode resolver needs.
package spotify

// Credentials holds catalog authorization material. Either a ready
// AccessToken, or a ClientID/ClientSecret pair for the client-credentials
// token exchange.
type Credentials struct {
	ClientID     string
	ClientSecret string
	AccessToken  string
}

// Configured reports whether the credentials can produce an authorized
// client at all.
func (c Credentials) Configured() bool {
	return c.AccessToken != "" || (c.ClientID != "" && c.ClientSecret != "")
}

// Work is one audiobook candidate from a catalog search, in
// provider-relevance order. Immutable once fetched.
type Work struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Authors []string `json:"authors"`
	Edition string   `json:"edition,omitempty"`

	// TotalChapters is the catalog's advertised chapter count.
	TotalChapters int `json:"total_chapters"`

	// TotalDurationMs is the summed nominal duration when the provider
	// reports it in search results; 0 when unknown. The matcher treats 0
	// as "no duration signal".
	TotalDurationMs int64 `json:"total_duration_ms,omitempty"`
}

// Track is one chapter entry of a work, in catalog order. The catalog
// order is the chapter order.
type Track struct {
	Index      int    `json:"index"`
	Name       string `json:"name"`
	DurationMs int64  `json:"duration_ms"`
}

// Raw API response types (internal).

type rawSearchResponse struct {
	Audiobooks struct {
		Items []rawAudiobook `json:"items"`
	} `json:"audiobooks"`
}

type rawAudiobook struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Authors       []rawAuthor `json:"authors"`
	Edition       string      `json:"edition"`
	TotalChapters int         `json:"total_chapters"`
}

type rawAuthor struct {
	Name string `json:"name"`
}

type rawChapterPage struct {
	Items []rawChapter `json:"items"`
	Next  string       `json:"next"`
	Total int          `json:"total"`
}

type rawChapter struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ChapterNumber int    `json:"chapter_number"`
	DurationMs    int64  `json:"duration_ms"`
}

type rawTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}
