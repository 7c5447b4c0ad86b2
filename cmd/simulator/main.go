package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/charging-platform/charge-point-simulator/internal/broadcast"
	"github.com/charging-platform/charge-point-simulator/internal/certs"
	"github.com/charging-platform/charge-point-simulator/internal/config"
	"github.com/charging-platform/charge-point-simulator/internal/logger"
	"github.com/charging-platform/charge-point-simulator/internal/metrics"
	"github.com/charging-platform/charge-point-simulator/internal/station"
	"github.com/charging-platform/charge-point-simulator/internal/station/auth"
	"github.com/charging-platform/charge-point-simulator/internal/station/configstore"
	"github.com/charging-platform/charge-point-simulator/internal/storage"
	"github.com/charging-platform/charge-point-simulator/internal/template"
	"github.com/charging-platform/charge-point-simulator/internal/transport/session"
	"github.com/charging-platform/charge-point-simulator/internal/uiserver"
	"github.com/charging-platform/charge-point-simulator/internal/worker"
)

func main() {
	// 1. load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(2)
	}

	// 2. initialize logging
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: time.RFC3339,
		Caller:     true,
		Async:      cfg.Log.Async,
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	log.Info("logger initialized")

	// 3. load station templates
	templates, err := template.LoadDir(cfg.Simulator.TemplatesDir)
	if err != nil {
		log.Fatalf("failed to load templates: %v", err)
	}
	log.Infof("loaded %d station templates from %s", len(templates), cfg.Simulator.TemplatesDir)

	globalIdTags, err := template.IdTags(cfg.Simulator.IdTagsFile)
	if err != nil {
		log.Fatalf("failed to load global id tags: %v", err)
	}

	// 4. initialize the certificate store (C15)
	certMgr, err := certs.New(cfg.Persistence.CertsDir)
	if err != nil {
		log.Fatalf("failed to initialize certificate store: %v", err)
	}
	log.Info("certificate store initialized")

	// 5. optionally connect the station-ownership registry
	var registry worker.Registry
	if cfg.Registry.Enabled {
		redisRegistry, err := storage.NewRedisStorage(cfg.Registry)
		if err != nil {
			log.Fatalf("failed to connect station registry: %v", err)
		}
		registry = redisRegistry
		log.Infof("station registry connected at %s", cfg.Registry.Addr)
	}

	// 6. initialize the broadcast bus (C14)
	bus, err := newBus(cfg.Broadcast, log)
	if err != nil {
		log.Fatalf("failed to initialize broadcast bus: %v", err)
	}
	log.Infof("broadcast bus initialized (mode=%s)", cfg.Broadcast.Mode)

	// 7. build the worker pool (C12), wiring its Factory to the rest of
	// the per-station machinery (C2-C7, C9-C11, C15)
	factory := newStationFactory(cfg, log, certMgr, globalIdTags)
	pool, err := newPool(cfg.Simulator, factory, log, registry)
	if err != nil {
		log.Fatalf("failed to build worker pool: %v", err)
	}
	pool.OnMessage(func(ev worker.Event) {
		_ = bus.Publish(broadcast.Event{
			Type:      "station.message",
			StationID: ev.StationID,
			Payload:   ev.Payload,
			Timestamp: time.Now(),
		})
	})

	// 8. assemble the fleet and start the UI control plane (C13)
	fl := newFleet(log, pool, bus, templates, cfg.UIServer.BroadcastTimeout)
	uiSrv := uiserver.New(cfg.UIServer, fl, log)

	ctx, cancelCtx := context.WithCancel(context.Background())
	defer cancelCtx()

	if err := uiSrv.Start(ctx); err != nil {
		log.Fatalf("failed to start UI control-plane server: %v", err)
	}
	log.Infof("UI control-plane server listening on %s", cfg.GetUIServerAddr())

	// 9. optionally auto-start one station per template
	if cfg.Simulator.AutoStart {
		for name := range templates {
			if _, err := fl.AddStations(ctx, name, 1); err != nil {
				log.Errorf("auto-start: failed to add station for template %s: %v", name, err)
				continue
			}
		}
		if err := fl.StartSimulator(ctx); err != nil {
			log.Errorf("auto-start: failed to start fleet: %v", err)
		}
		log.Info("auto-start: fleet started")
	}

	// 10. optionally serve metrics
	if cfg.Monitoring.MetricsAddr != "" {
		metrics.RegisterMetrics()
		go startMetricsServer(cfg.Monitoring.MetricsAddr, log)
		log.Infof("metrics server starting on %s", cfg.Monitoring.MetricsAddr)
	}

	log.Info("charge point simulator started successfully")

	// 11. wait for termination, then shut down in reverse dependency order
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down simulator...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := uiSrv.Stop(); err != nil {
		log.Errorf("error stopping UI control-plane server: %v", err)
	}
	log.Info("UI control-plane server stopped")

	if err := fl.StopSimulator(shutdownCtx); err != nil {
		log.Errorf("error stopping fleet: %v", err)
	}
	log.Info("fleet stopped")

	if err := bus.Close(); err != nil {
		log.Errorf("error closing broadcast bus: %v", err)
	}
	log.Info("broadcast bus closed")

	if registry != nil {
		if err := registry.Close(); err != nil {
			log.Errorf("error closing station registry: %v", err)
		}
		log.Info("station registry closed")
	}

	log.Info("simulator gracefully stopped")
}

func newBus(cfg config.BroadcastConfig, log *logger.Logger) (broadcast.Bus, error) {
	switch cfg.Mode {
	case "kafka":
		return broadcast.NewKafkaBus(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroup, log)
	default:
		return broadcast.NewHub(log), nil
	}
}

func newPool(cfg config.SimulatorConfig, factory worker.Factory, log *logger.Logger, registry worker.Registry) (worker.Pool, error) {
	switch cfg.WorkerPoolModel {
	case "dynamic":
		return worker.NewDynamicPool(cfg.DynamicMaxWorkers, cfg.DynamicQueueDepth, cfg.DynamicIdleTTL, factory, log, registry, registryTTL), nil
	case "worker-set":
		return worker.NewWorkerSetPool(cfg.WorkerSetCapacity, factory, log, registry, registryTTL), nil
	case "fixed", "":
		return worker.NewFixedPool(cfg.FixedWorkerCount, factory, log, registry, registryTTL), nil
	default:
		return nil, fmt.Errorf("unknown worker pool model %q", cfg.WorkerPoolModel)
	}
}

const registryTTL = 30 * time.Second

// newStationFactory builds the worker.Factory that assembles one Station
// (and its C2-C7/C15 dependencies) from a template and instance index,
// everything worker.Pool itself has no business constructing.
func newStationFactory(cfg *config.Config, log *logger.Logger, certMgr *certs.Manager, globalIdTags []string) worker.Factory {
	return func(tmpl *template.Template, index int) (worker.Station, error) {
		hashID := template.HashID(tmpl.BaseName, index)

		version := station.OCPP16
		subprotocols := []string{"ocpp1.6"}
		if tmpl.OCPPVersion == "2.0.1" || tmpl.OCPPVersion == "2.0" {
			version = station.OCPP201
			subprotocols = []string{"ocpp2.0.1"}
		}

		sessCfg := session.DefaultConfig()
		sessCfg.URL = tmpl.SupervisionURL(index)
		sessCfg.Subprotocols = subprotocols
		sessCfg.HandshakeTimeout = cfg.WebSocket.HandshakeTimeout
		sessCfg.PingInterval = cfg.WebSocket.PingInterval
		sessCfg.PongTimeout = cfg.WebSocket.PongTimeout
		sessCfg.MaxMessageSize = cfg.WebSocket.MaxMessageSize
		sessCfg.EnableCompression = cfg.WebSocket.EnableCompression
		sessCfg.BackoffInitial = cfg.WebSocket.BackoffInitial
		sessCfg.BackoffMax = cfg.WebSocket.BackoffMax
		sessCfg.TLSEnabled = cfg.Security.TLSEnabled
		sessCfg.TLSInsecureSkipCA = cfg.Security.TLSInsecureSkipCA
		sessCfg.CACertFile = cfg.Security.CACertFile

		defaults := make([]configstore.Key, 0, len(tmpl.Configuration))
		for _, c := range tmpl.Configuration {
			defaults = append(defaults, configstore.Key{Name: c.Key, Value: c.Value, ReadOnly: c.ReadOnly})
		}
		configPath := filepath.Join(cfg.Persistence.ConfigDir, hashID+".json")
		cfgStore, err := configstore.New(configPath, defaults)
		if err != nil {
			return nil, fmt.Errorf("factory: configstore for %s: %w", hashID, err)
		}

		idTags := globalIdTags
		if tmpl.IdTagsFile != "" {
			tmplTags, err := template.IdTags(tmpl.IdTagsFile)
			if err != nil {
				return nil, fmt.Errorf("factory: id tags for %s: %w", hashID, err)
			}
			if len(tmplTags) > 0 {
				idTags = tmplTags
			}
		}

		authCache := auth.NewCache(cfg.Cache.MaxSize)
		localList := auth.NewLocalList()
		remote := &lazyRemoteAuthorizer{}
		certVerifier := certMgr.Verifier(hashID)
		pipeline := auth.NewPipeline(auth.Config{
			AuthorizationTimeout:        cfg.Auth.AuthorizationTimeout,
			AuthorizationCacheLifetime:  cfg.Auth.AuthorizationCacheLifetime,
			CacheEnabled:                cfg.Auth.CacheEnabled,
			LocalPreAuthorize:           cfg.Auth.LocalPreAuthorize,
			OfflineAuthorizationEnabled: cfg.Auth.OfflineAuthorizationEnabled,
		}, localList, authCache, remote, certVerifier)

		st := station.New(station.Config{
			Identity: station.Identity{
				ID:              hashID,
				Vendor:          tmpl.ChargePointVendor,
				Model:           tmpl.ChargePointModel,
				SerialNumber:    hashID,
				FirmwareVersion: tmpl.FirmwareVersion,
				NumConnectors:   tmpl.ConnectorCount(),
			},
			Version:        version,
			SessionConfig:  sessCfg,
			ConfigStore:    cfgStore,
			AuthCache:      authCache,
			LocalList:      localList,
			AuthPipeline:   pipeline,
			Certs:          certMgr,
			Logger:         log,
			RequestTimeout: cfg.WebSocket.RequestTimeout,
		})
		remote.station = st

		minDelay, maxDelay, minDuration, maxDuration, stopAfter := tmpl.AutomaticTransactionGen.ATGDuration()
		atgCfg := station.ATGConfig{
			Enabled:                        tmpl.AutomaticTransactionGen.Enable,
			MinDelayBetweenTwoTransactions: minDelay,
			MaxDelayBetweenTwoTransactions: maxDelay,
			ProbabilityOfStart:             tmpl.AutomaticTransactionGen.ProbabilityOfStart,
			MinDuration:                    minDuration,
			MaxDuration:                    maxDuration,
			StopAfter:                      stopAfter,
			IdTags:                         idTags,
		}

		return &hostedStation{
			Station:      st,
			hashID:       hashID,
			templateName: tmpl.BaseName,
			index:        index,
			atgCfg:       atgCfg,
		}, nil
	}
}

func startMetricsServer(addr string, log *logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Infof("metrics server listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Errorf("metrics server failed: %v", err)
	}
}
