package providers

import (
	"strconv"

	"github.com/samber/do/v2"

	"github.com/readalong/readalong-server/internal/config"
	"github.com/readalong/readalong-server/internal/logger"
	"github.com/readalong/readalong-server/internal/mdns"
)

// MDNSHandle wraps the mDNS service with Shutdownable.
type MDNSHandle struct {
	Service *mdns.Service
	Enabled bool
}

// Shutdown implements do.Shutdownable.
func (h *MDNSHandle) Shutdown() error {
	if h.Enabled {
		h.Service.Stop()
	}
	return nil
}

// ProvideMDNS provides mDNS advertisement. Advertisement failure is
// logged and ignored; multicast is often unavailable in containers.
func ProvideMDNS(i do.Injector) (*MDNSHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	svc := mdns.NewService(log.Logger)
	handle := &MDNSHandle{Service: svc, Enabled: cfg.Server.MDNS}

	if !cfg.Server.MDNS {
		log.Info("mDNS advertisement disabled")
		return handle, nil
	}

	port, err := strconv.Atoi(cfg.Server.Port)
	if err != nil {
		log.Warn("mDNS disabled: port is not numeric", "port", cfg.Server.Port)
		handle.Enabled = false
		return handle, nil
	}

	if err := svc.Start(cfg.App.Name, port); err != nil {
		log.Warn("mDNS advertisement failed", "error", err)
		handle.Enabled = false
	}

	return handle, nil
}
