package providers

import (
	"github.com/samber/do/v2"

	"github.com/chaptifyapp/chaptify/internal/catalog/spotify"
	"github.com/chaptifyapp/chaptify/internal/config"
	"github.com/chaptifyapp/chaptify/internal/logger"
)

// SpotifyClientHandle wraps the catalog client with shutdown capability.
type SpotifyClientHandle struct {
	*spotify.Client
}

// Shutdown implements do.Shutdownable.
func (h *SpotifyClientHandle) Shutdown() error {
	h.Client.Close()
	return nil
}

// ProvideSpotifyClient provides the shared Spotify catalog client.
func ProvideSpotifyClient(i do.Injector) (*SpotifyClientHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	client := spotify.New(spotify.Credentials{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		AccessToken:  cfg.Spotify.AccessToken,
	}, log.Logger)
	client.SetRateLimit(cfg.Spotify.RequestsPerSecond, cfg.Spotify.Burst)

	log.Debug("spotify client initialized",
		"rps", cfg.Spotify.RequestsPerSecond,
		"burst", cfg.Spotify.Burst,
	)

	return &SpotifyClientHandle{Client: client}, nil
}
