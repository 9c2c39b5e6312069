package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/readalong/readalong-server/internal/config"
	"github.com/readalong/readalong-server/internal/logger"
	"github.com/readalong/readalong-server/internal/watcher"
)

// WatcherHandle wraps the artifact watcher with its context for lifecycle management.
type WatcherHandle struct {
	*watcher.Watcher
	cancel context.CancelFunc
	// Enabled is false when artifact watching is disabled by configuration.
	Enabled bool
}

// Shutdown implements do.Shutdownable.
func (h *WatcherHandle) Shutdown() error {
	if !h.Enabled {
		return nil
	}
	h.cancel()
	return h.Stop()
}

// ProvideWatcher provides the artifact directory watcher.
// Watching is started during Bootstrap, after stored content is loaded.
func ProvideWatcher(i do.Injector) (*WatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	contentHandle := do.MustInvoke[*ContentServiceHandle](i)

	if !cfg.Artifacts.Watch || cfg.Artifacts.Path == "" {
		log.Info("Artifact watching disabled by configuration")
		return &WatcherHandle{Enabled: false}, nil
	}

	w, err := watcher.New(cfg.Artifacts.Path, contentHandle.ContentService, log.Logger)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := w.Start(ctx); err != nil {
		cancel()
		return nil, err
	}

	return &WatcherHandle{
		Watcher: w,
		cancel:  cancel,
		Enabled: true,
	}, nil
}
