package discovery

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// AdvertiserConfig configures an Advertiser.
type AdvertiserConfig struct {
	// Interface restricts advertisement to one network interface.
	// Empty means all interfaces.
	Interface string

	// TTL overrides the record TTL. Zero uses the zeroconf default.
	TTL time.Duration

	// Logger is the optional logger for debug output.
	Logger *slog.Logger
}

// Advertiser publishes a fixture over mDNS until stopped.
// It is safe for concurrent use.
type Advertiser struct {
	config AdvertiserConfig
	logger *slog.Logger

	mu     sync.Mutex
	server *zeroconf.Server
	info   Info
}

// NewAdvertiser creates an Advertiser. Nothing is published until Advertise.
func NewAdvertiser(config AdvertiserConfig) *Advertiser {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Advertiser{config: config, logger: logger}
}

// interfaces returns the interfaces to advertise on, nil meaning all.
func (a *Advertiser) interfaces() []net.Interface {
	if a.config.Interface == "" {
		return nil
	}
	iface, err := net.InterfaceByName(a.config.Interface)
	if err != nil {
		a.logger.Warn("unknown interface, advertising on all", "interface", a.config.Interface, "error", err)
		return nil
	}
	return []net.Interface{*iface}
}

// Advertise publishes info, replacing any previous advertisement. A
// restarted fixture keeps its instance name and gets a new pid record.
func (a *Advertiser) Advertise(info Info) error {
	if info.Port <= 0 || info.Port > 65535 {
		return fmt.Errorf("invalid port %d", info.Port)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	var opts []zeroconf.ServerOption
	if a.config.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(a.config.TTL.Seconds())))
	}

	server, err := zeroconf.Register(
		info.InstanceName(),
		ServiceType,
		Domain,
		info.Port,
		EncodeTXT(&info),
		a.interfaces(),
		opts...,
	)
	if err != nil {
		return fmt.Errorf("failed to register fixture service: %w", err)
	}

	a.server = server
	a.info = info
	a.logger.Info("fixture advertised", "instance", info.InstanceName(), "port", info.Port, "pid", info.PID)
	return nil
}

// Advertised returns the current advertisement and whether one is active.
func (a *Advertiser) Advertised() (Info, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.info, a.server != nil
}

// Stop withdraws the advertisement. It is safe to call Stop multiple times.
func (a *Advertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server == nil {
		return
	}
	a.server.Shutdown()
	a.server = nil
	a.logger.Debug("fixture advertisement stopped", "instance", a.info.InstanceName())
}
