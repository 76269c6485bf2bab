package providers

import (
	"github.com/samber/do/v2"

	"github.com/chaptifyapp/chaptify/internal/config"
	"github.com/chaptifyapp/chaptify/internal/logger"
	"github.com/chaptifyapp/chaptify/internal/media"
)

// ProvideProber provides the ffprobe duration prober.
func ProvideProber(i do.Injector) (*media.Prober, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return media.NewProber(cfg.Tools.FFprobePath, nil, log.Logger), nil
}

// ProvideRemuxer provides the ffmpeg remuxer.
func ProvideRemuxer(i do.Injector) (*media.Remuxer, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	prober := do.MustInvoke[*media.Prober](i)

	remuxer := media.NewRemuxer(cfg.Tools.FFmpegPath, prober, nil, log.Logger)
	remuxer.SetTimeout(cfg.Tools.RemuxTimeout)
	return remuxer, nil
}
