package providers

import (
	"github.com/samber/do/v2"

	"github.com/chaptifyapp/chaptify/internal/config"
	"github.com/chaptifyapp/chaptify/internal/identity"
	"github.com/chaptifyapp/chaptify/internal/logger"
	"github.com/chaptifyapp/chaptify/internal/match"
	"github.com/chaptifyapp/chaptify/internal/media"
	"github.com/chaptifyapp/chaptify/internal/pipeline"
)

// ProvideIdentityExtractor provides the tag/filename identity extractor.
func ProvideIdentityExtractor(i do.Injector) (*identity.Extractor, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return identity.NewExtractor(log.Logger), nil
}

// ProvideMatcher provides the work matcher.
func ProvideMatcher(i do.Injector) (*match.Matcher, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return match.New(log.Logger), nil
}

// ProvidePipeline assembles the per-file processing pipeline.
func ProvidePipeline(i do.Injector) (*pipeline.Pipeline, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	extractor := do.MustInvoke[*identity.Extractor](i)
	catalog := do.MustInvoke[*SpotifyClientHandle](i)
	matcher := do.MustInvoke[*match.Matcher](i)
	prober := do.MustInvoke[*media.Prober](i)
	remuxer := do.MustInvoke[*media.Remuxer](i)

	return pipeline.New(extractor, catalog.Client, matcher, prober, remuxer, log.Logger, pipeline.Options{
		SearchLimit:    cfg.Pipeline.SearchLimit,
		DriftTolerance: cfg.Pipeline.DriftTolerance,
		DryRun:         cfg.Run.DryRun,
		KeepOriginal:   cfg.Run.KeepOriginal,
		OutputPath:     cfg.Run.Output,
		OutDir:         cfg.Run.OutDir,
		Retries:        cfg.Pipeline.Retries,
		RetryBase:      cfg.Pipeline.RetryBase,
	}), nil
}
