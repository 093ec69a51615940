// Command stviewer loads a spatial-omics dataset directory, prints the
// resulting scene layers, and optionally writes an HTML attribute report.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/stviewer-data/stviewer/internal/config"
	"github.com/stviewer-data/stviewer/internal/engine"
	"github.com/stviewer-data/stviewer/internal/fsutil"
	"github.com/stviewer-data/stviewer/internal/presets"
	"github.com/stviewer-data/stviewer/internal/report"
	"github.com/stviewer-data/stviewer/internal/version"
)

func main() {
	var (
		dataRoot   = flag.String("data", "", "dataset root directory (required)")
		configPath = flag.String("config", "", "viewer config JSON file")
		presetDB   = flag.String("db", "", "preset database path (overrides config)")
		reportPath = flag.String("report", "", "write an HTML attribute report to this file")
		showVer    = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVer {
		fmt.Println("stviewer", version.String())
		return
	}
	if *dataRoot == "" {
		flag.Usage()
		os.Exit(2)
	}
	if err := run(*dataRoot, *configPath, *presetDB, *reportPath); err != nil {
		log.Fatal(err)
	}
}

func run(dataRoot, configPath, presetDB, reportPath string) error {
	cfg := config.Empty()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	dbPath := cfg.GetPresetDB()
	if presetDB != "" {
		dbPath = presetDB
	}
	var ps *presets.Store
	if dbPath != "" {
		var err error
		ps, err = presets.Open(dbPath)
		if err != nil {
			return err
		}
		defer ps.Close()
	}

	eng, err := engine.New(fsutil.OSFileSystem{}, cfg.SceneDefaults(), ps)
	if err != nil {
		return err
	}

	res, err := eng.Handle(context.Background(), engine.ReloadDataset{Root: dataRoot})
	if err != nil {
		return err
	}
	for _, w := range res.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	if res.LoadID != "" {
		fmt.Printf("load %s recorded\n", res.LoadID)
	}

	fmt.Printf("%d layers in draw order:\n", len(res.Scene.Layers))
	for _, l := range res.Scene.Layers {
		fmt.Printf("  %-14s %-20s %d elements\n", l.ID, l.DisplayName, l.Model.ElementCount())
	}

	if reportPath != "" {
		f, err := os.Create(reportPath)
		if err != nil {
			return fmt.Errorf("create report file: %w", err)
		}
		defer f.Close()
		if err := report.WriteHTML(eng.Store().Current(), f); err != nil {
			return err
		}
		fmt.Printf("report written to %s\n", reportPath)
	}
	return nil
}
