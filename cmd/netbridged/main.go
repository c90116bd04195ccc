package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/veesix-networks/netbridge/internal/binder"
	"github.com/veesix-networks/netbridge/internal/fwmarkd"
	"github.com/veesix-networks/netbridge/internal/lease"
	"github.com/veesix-networks/netbridge/pkg/component"
	"github.com/veesix-networks/netbridge/pkg/config"
	"github.com/veesix-networks/netbridge/pkg/config/system"
	"github.com/veesix-networks/netbridge/pkg/dhcp4"
	"github.com/veesix-networks/netbridge/pkg/dhcp6"
	"github.com/veesix-networks/netbridge/pkg/events"
	"github.com/veesix-networks/netbridge/pkg/events/local"
	"github.com/veesix-networks/netbridge/pkg/logger"
	"github.com/veesix-networks/netbridge/pkg/netd/kernel"
	"github.com/veesix-networks/netbridge/pkg/opdb"
	"github.com/veesix-networks/netbridge/pkg/opdb/bolt"
	"github.com/veesix-networks/netbridge/pkg/opdb/sqlite"
	"github.com/veesix-networks/netbridge/pkg/version"
	_ "github.com/veesix-networks/netbridge/plugins/all"
)

func main() {
	configPath := flag.String("config", "/etc/netbridge/config.yaml", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Full())
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	levels := make(map[string]logger.LogLevel, len(cfg.Logging.Components))
	for name, lvl := range cfg.Logging.Components {
		levels[name] = logger.LogLevel(lvl)
	}
	logger.Configure(cfg.Logging.Format, logger.LogLevel(cfg.Logging.Level), levels)

	mainLog := logger.Get(logger.Main)
	mainLog.Info("Starting netbridge",
		"version", version.Version,
		"dhcp4", cfg.Lease.DHCP4.Backend,
		"dhcp6", cfg.Lease.DHCP6.Backend,
		"pd", cfg.Lease.PD.Backend,
		"networks", len(cfg.Netd.Networks))

	v4, err := dhcp4.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create DHCPv4 client: %v", err)
	}
	v6, err := dhcp6.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create DHCPv6 client: %v", err)
	}
	pd, err := dhcp6.NewPD(cfg)
	if err != nil {
		log.Fatalf("Failed to create DHCPv6-PD client: %v", err)
	}

	store, err := openStore(cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	bus := local.NewBus()
	defer bus.Close()

	nd, err := kernel.New(cfg.Netd)
	if err != nil {
		log.Fatalf("Failed to create network daemon: %v", err)
	}
	defer nd.Close()

	leaseOpts := []lease.Option{lease.WithEventBus(bus)}
	if cfg.Lease.PersistSessions {
		leaseOpts = append(leaseOpts, lease.WithStore(store))
	}
	if cfg.Netd.Netns != "" {
		leaseOpts = append(leaseOpts, lease.WithInterfaceResolver(nd.LookupInterface))
	}
	adapter := lease.New(lease.ConfigFrom(cfg.Lease), v4, v6, pd, leaseOpts...)

	providers := opdb.NewProviderRegistry()
	providers.Register(adapter)
	ctx := context.Background()
	if cfg.Lease.PersistSessions {
		if err := providers.RestoreAll(ctx, store); err != nil {
			mainLog.Warn("Failed to restore sessions", "error", err)
		}
		mainLog.Info("Sessions restored", "count", len(adapter.Sessions()))
	} else if err := providers.ClearAll(ctx, store); err != nil {
		mainLog.Warn("Failed to clear stale sessions", "error", err)
	}

	b := binder.New(nd)
	b.AddObserver(func(op string, netID uint32, fd int, code int) {
		bus.Publish(events.TopicBinding, events.Event{
			Source: logger.Binder,
			Data:   events.BindingEvent{Op: op, NetID: netID, FD: fd, Code: code},
		})
	})

	orch := component.NewOrchestrator()
	orch.Register(nd)
	if cfg.Fwmarkd.Enabled {
		orch.Register(fwmarkd.NewServer(cfg.Fwmarkd.Socket, b, nd))
	}

	pluginComponents, err := component.LoadAll(component.Dependencies{
		EventBus: bus,
		Config:   cfg,
		Store:    store,
		Lease:    adapter,
		Binder:   b,
		Dialer:   nd.Dialer(),
	})
	if err != nil {
		log.Fatalf("Failed to load plugin components: %v", err)
	}
	for _, comp := range pluginComponents {
		mainLog.Info("Loaded plugin component", "name", comp.Name())
		orch.Register(comp)
	}

	if err := orch.Start(ctx); err != nil {
		log.Fatalf("Failed to start components: %v", err)
	}

	mainLog.Info("netbridge started successfully")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	mainLog.Info("Shutting down netbridge...")

	if err := orch.Stop(ctx); err != nil {
		mainLog.Error("Error stopping components", "error", err)
	}

	mainLog.Info("netbridge stopped")
}

func openStore(cfg system.StorageConfig) (opdb.Store, error) {
	if cfg.Driver == system.StorageDriverBolt {
		return bolt.Open(cfg.Path)
	}
	return sqlite.Open(cfg.Path)
}
