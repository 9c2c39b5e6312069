package providers

import (
	"github.com/samber/do/v2"

	"github.com/readalong/readalong-server/internal/channel"
	"github.com/readalong/readalong-server/internal/config"
	"github.com/readalong/readalong-server/internal/logger"
	"github.com/readalong/readalong-server/internal/service"
)

// ProvideChannel provides the highlight update channel.
func ProvideChannel(i do.Injector) (*channel.Channel, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	ch := channel.New(cfg.Sync.EmitInterval, log.Logger)

	log.Info("Update channel initialized", "emit_interval", cfg.Sync.EmitInterval)

	return ch, nil
}

// ContentServiceHandle wraps the content service with shutdown capability.
type ContentServiceHandle struct {
	*service.ContentService
}

// Shutdown implements do.Shutdownable.
func (h *ContentServiceHandle) Shutdown() error {
	h.ContentService.Shutdown()
	return nil
}

// ProvideContentService provides the content service.
func ProvideContentService(i do.Injector) (*ContentServiceHandle, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	ch := do.MustInvoke[*channel.Channel](i)
	searchHandle := do.MustInvoke[*SearchIndexHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	svc := service.NewContentService(
		storeHandle.Store,
		ch,
		searchHandle.SearchIndex,
		sseHandle.Manager,
		log.Logger,
	)

	return &ContentServiceHandle{ContentService: svc}, nil
}
