package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"poi_router/pkg/api"
	"poi_router/pkg/config"
	"poi_router/pkg/logging"
	"poi_router/pkg/routing"
	"poi_router/pkg/store"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	graphDir := flag.String("graph", "", "Graph directory written by import (overrides graph.dir)")
	port := flag.Int("port", 0, "HTTP port (overrides server.addr)")
	corsOrigin := flag.String("cors-origin", "", "CORS allowed origin (empty = same-origin)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Read(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if *graphDir != "" {
		cfg.Graph.Dir = *graphDir
	}
	if *port != 0 {
		cfg.Server.Addr = fmt.Sprintf(":%d", *port)
	}
	if *corsOrigin != "" {
		cfg.Server.CORSOrigin = *corsOrigin
	}

	var logger *logging.Logger
	if cfg.Log.Format == "json" {
		logger = logging.NewJSONLogger(logging.ParseLevel(cfg.Log.Level))
	} else {
		logger = logging.NewTextLogger(logging.ParseLevel(cfg.Log.Level))
	}

	if err := run(context.Background(), cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *logging.Logger) error {
	start := time.Now()

	g, err := store.Open(ctx, cfg.Graph.Dir, cfg.Graph.StoreOptions, func(o *store.Options) { o.Logger = logger.WithGraph(cfg.Graph.Dir) })
	if err != nil {
		return err
	}

	engine, err := routing.NewEngine(ctx, g, routing.EngineConfig{
		MaxSnapMeters: cfg.Server.MaxSnapMeters,
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	logger.Info("ready", "elapsed", time.Since(start).Round(time.Millisecond))

	srvCfg := api.DefaultConfig(cfg.Server.Addr)
	srvCfg.CORSOrigin = cfg.Server.CORSOrigin
	srvCfg.Logger = logger
	if cfg.Server.ReadTimeout > 0 {
		srvCfg.ReadTimeout = cfg.Server.ReadTimeout
	}
	if cfg.Server.WriteTimeout > 0 {
		srvCfg.WriteTimeout = cfg.Server.WriteTimeout
		srvCfg.RequestTimeout = cfg.Server.WriteTimeout
	}
	if cfg.Server.MaxConcurrent > 0 {
		srvCfg.MaxConcurrent = cfg.Server.MaxConcurrent
	}

	st := engine.Stats()
	stats := api.StatsResponse{
		NumNodes:      st.NumNodes,
		NumEdges:      st.NumEdges,
		NumPOIs:       st.NumPOIs,
		NumCategories: st.NumCategories,
		TimeUnit:      g.Options().TimeUnit.String(),
	}

	srv := api.NewServer(srvCfg, api.NewHandlers(engine, stats))
	return api.ListenAndServe(ctx, srv, logger)
}
