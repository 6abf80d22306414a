package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"time"

	"github.com/paulmach/orb"

	"poi_router/pkg/codec"
	"poi_router/pkg/config"
	"poi_router/pkg/importer"
	"poi_router/pkg/logging"
	"poi_router/pkg/store"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	input := flag.String("input", "", "Path to .osm.pbf file (overrides import.osm)")
	pois := flag.String("pois", "", "Path to POI file category;externalId;lat;lon;label (overrides import.pois)")
	output := flag.String("output", "", "Output graph directory (overrides graph.dir)")
	bbox := flag.String("bbox", "", "Bounding box filter: minLat,minLng,maxLat,maxLng (e.g. 1.15,103.6,1.48,104.1)")
	singapore := flag.Bool("singapore", false, "Shortcut for --bbox 1.15,103.6,1.48,104.1 (Singapore bounding box)")
	kl := flag.Bool("kl", false, "Shortcut for --bbox 2.75,101.2,3.5,102.0 (Selangor + Kuala Lumpur bounding box)")
	largest := flag.Bool("largest-component", false, "Keep only the largest connected component")
	codecName := flag.String("codec", "", "Block codec: none, lz4, zstd or gzip (overrides graph.codec)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Read(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if *input != "" {
		cfg.Import.OSM = *input
	}
	if *pois != "" {
		cfg.Import.POIs = *pois
	}
	if *output != "" {
		cfg.Graph.Dir = *output
	}
	if *largest {
		cfg.Import.LargestComponent = true
	}
	if *codecName != "" {
		c, err := codec.ParseType(*codecName)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		cfg.Graph.Codec = c
	}
	switch {
	case *kl:
		cfg.Import.BBox = []float64{2.75, 101.2, 3.5, 102.0}
	case *singapore:
		cfg.Import.BBox = []float64{1.15, 103.6, 1.48, 104.1}
	case *bbox != "":
		b := make([]float64, 4)
		if _, err := fmt.Sscanf(*bbox, "%f,%f,%f,%f", &b[0], &b[1], &b[2], &b[3]); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid bbox format (expected minLat,minLng,maxLat,maxLng): %v\n", err)
			os.Exit(1)
		}
		cfg.Import.BBox = b
	}

	if cfg.Import.OSM == "" {
		fmt.Fprintln(os.Stderr, "Usage: import --input <file.osm.pbf> [--pois pois.csv] [--output dir] [--config file.yml] [--singapore | --kl | --bbox minLat,minLng,maxLat,maxLng]")
		os.Exit(1)
	}

	logger := newLogger(cfg.Log)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("import failed", "error", err)
		os.Exit(1)
	}
}

func newLogger(c config.LogOptions) *logging.Logger {
	if c.Format == "json" {
		return logging.NewJSONLogger(logging.ParseLevel(c.Level))
	}
	return logging.NewTextLogger(logging.ParseLevel(c.Level))
}

func run(ctx context.Context, cfg config.Config, logger *logging.Logger) error {
	start := time.Now()

	if err := os.MkdirAll(cfg.Graph.Dir, 0o755); err != nil {
		return fmt.Errorf("create graph dir: %w", err)
	}
	g, err := store.New(cfg.Graph.Dir, cfg.Graph.StoreOptions, func(o *store.Options) { o.Logger = logger.WithGraph(cfg.Graph.Dir) })
	if err != nil {
		return err
	}

	opts := importer.DefaultOSMOptions()
	opts.Logger = logger
	opts.LargestComponent = cfg.Import.LargestComponent
	opts.Buckets = cfg.Import.Buckets
	if b := cfg.Import.BBox; len(b) == 4 {
		opts.Bound = orb.Bound{Min: orb.Point{b[1], b[0]}, Max: orb.Point{b[3], b[2]}}
		logger.Info("using bounding box filter", "minLat", b[0], "minLng", b[1], "maxLat", b[2], "maxLng", b[3])
	}

	f, err := os.Open(cfg.Import.OSM)
	if err != nil {
		return fmt.Errorf("open input file: %w", err)
	}
	defer f.Close()

	stats, err := importer.ImportOSM(ctx, g, f, opts)
	if err != nil {
		return fmt.Errorf("import OSM: %w", err)
	}
	logger.Info("road network imported", "ways", stats.Ways, "nodes", stats.Nodes, "edges", stats.Edges)

	if cfg.Import.POIs != "" {
		pf, err := os.Open(cfg.Import.POIs)
		if err != nil {
			return fmt.Errorf("open POI file: %w", err)
		}
		defer pf.Close()
		sc := cfg.Import.ServiceCost
		costs := importer.RandomServiceCosts(rand.New(rand.NewPCG(sc.Seed, sc.Seed)), importer.ServiceCostBuckets, sc.Min, sc.Max)
		if _, err := importer.ImportPOIs(ctx, g, pf, importer.POIOptions{Costs: costs, Logger: logger}); err != nil {
			return fmt.Errorf("import POIs: %w", err)
		}
	}

	if err := g.Save(ctx); err != nil {
		return err
	}
	logger.Info("done", "elapsed", time.Since(start).Round(time.Second), "dir", cfg.Graph.Dir)
	return nil
}
