// Package main implements the parqstat-index binary.
// It walks a parquet path and registers each file's row count, column
// statistics, and zone maps in the catalog.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/parqstat/parqstat/internal/catalog"
	"github.com/parqstat/parqstat/internal/config"
	"github.com/parqstat/parqstat/internal/store"
)

func main() {
	var (
		configFile  string
		catalogPath string
		path        string
	)

	flag.StringVar(&configFile, "config", "", "Path to configuration file (YAML or JSON)")
	flag.StringVar(&catalogPath, "catalog", "", "Path to catalog database")
	flag.StringVar(&path, "path", "", "Parquet file, directory, or s3:// prefix to index")
	flag.Parse()

	if path == "" {
		log.Printf("-path is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if catalogPath != "" {
		cfg.Catalog.Path = catalogPath
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("Failed to create data directories: %v", err)
	}

	storeCfg := store.Config{ScratchDir: cfg.Store.ScratchDir}
	if cfg.Store.S3.Enabled {
		storeCfg.S3 = &store.S3Config{
			Region:       cfg.Store.S3.Region,
			Endpoint:     cfg.Store.S3.Endpoint,
			UsePathStyle: cfg.Store.S3.UsePathStyle,
		}
	}
	st := store.NewStore(storeCfg)

	cat, err := catalog.NewCatalog(cfg.Catalog.Path)
	if err != nil {
		log.Fatalf("Failed to open catalog: %v", err)
	}
	defer cat.Close()

	indexer := catalog.NewIndexer(st, cat)
	n, err := indexer.IndexPath(context.Background(), path)
	if err != nil {
		log.Fatalf("Indexing failed after %d files: %v", n, err)
	}
	log.Printf("Indexed %d files from %s into %s", n, path, cfg.Catalog.Path)
}
