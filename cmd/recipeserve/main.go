// Copyright 2025 The RecipeServe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements the recipe search server and CLI [DBG] application.

Note: This is a BETA release. APIs and functionality may rapidly change.

RecipeServe finds recipes by name with typo-tolerant prefix search, matches
names and ingredients with a stemmed fuzzy search, filters the collection by
structured queries (ingredients, tags, diet, duration, price, servings) and
recommends recipes close to what a user picked before. It runs as a
MessagePack IPC server for integration with other applications, or as a CLI
for testing and debugging.

# Usage

Start the server with default settings:

	recipeserve

Use a custom corpus and enable debug mode:

	recipeserve -corpus ./recipes/ -d

Run in CLI mode for interactive testing:

	recipeserve -c -limit 5 -mode fuzzy

Expose Prometheus metrics and a health check while serving:

	recipeserve -metrics :9464

The corpus is a JSON or YAML file holding a list of recipes, or a directory of
such files. Relative paths are looked up in the working directory, next to the
executable and in the config directory.

# Configuration

Runtime configuration is managed through a TOML file with engine, server, CLI
and store sections:

	[engine]
	search_mode = "prefix"
	min_distance_threshold = 2
	quota = 10
	learning_rate = 0.1
	max_iterations = 100

	[server]
	max_limit = 64
	min_query = 1
	max_query = 120

	[store]
	corpus_path = "recipes.json"
	history_path = "history.db"

The config file is automatically created with defaults if it doesn't exist.
A damaged file is recovered section by section where possible.

# IPC Protocol

The server communicates via MessagePack over stdin/stdout. Requests carry an
id and an op:

	{"id": "req1", "op": "search", "q": "tomato sou"}
	{"id": "req2", "op": "suggest", "query": {"items": [{"name": "tomato"}]}}
	{"id": "req3", "op": "recommend", "user": "kim"}
	{"id": "req4", "op": "select", "user": "kim", "recipe": "tomato-soup"}

See package server for the full message set.

# Selection History

Selections are stored per user in an SQLite database next to the config file.
The median duration of a user's selections is the target for recommendations.
Pass -no-history to run without a store.

# Command Line Flags

	-config string
	    Path to a config.toml (default: user config dir)
	-corpus string
	    Recipe file or directory (default from config)
	-history string
	    SQLite history database (default from config)
	-no-history
	    Run without a selection history
	-user string
	    User for CLI selections (default from config)
	-d  Enable debug mode with detailed logging
	-c  Run CLI instead of the IPC server
	-limit int
	    Number of results to show in CLI mode
	-mode string
	    Search mode, "prefix" or "fuzzy"
	-metrics string
	    Address for /metrics and /healthz, empty to disable
	-reset-config
	    Rewrite the default config.toml with default values
	-version
	    Show current version
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bastiangx/recipeserve/internal/cli"
	"github.com/bastiangx/recipeserve/internal/history"
	"github.com/bastiangx/recipeserve/internal/logger"
	"github.com/bastiangx/recipeserve/internal/metrics"
	"github.com/bastiangx/recipeserve/internal/utils"
	"github.com/bastiangx/recipeserve/pkg/config"
	"github.com/bastiangx/recipeserve/pkg/corpus"
	"github.com/bastiangx/recipeserve/pkg/recipe"
	"github.com/bastiangx/recipeserve/pkg/server"
	"github.com/bastiangx/recipeserve/pkg/suggest"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	Version = "0.3.0-beta"
	gh      = "https://github.com/bastiangx/recipeserve"
)

// sigHandler cancels the root context on SIGINT/SIGTERM and exits, since the
// IPC loop blocks on stdin.
func sigHandler(cancel context.CancelFunc, cleanup func()) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		cancel()
		cleanup()
		os.Exit(0)
	}()
}

// main wires config, corpus, engine and the chosen front end.
// It does not implement logic for them and only manages the flow.
func main() {
	showVersion := flag.Bool("version", false, "Show current version")
	configPath := flag.String("config", "", "Path to config.toml")
	corpusPath := flag.String("corpus", "", "Recipe file or directory (default from config)")
	historyPath := flag.String("history", "", "SQLite history database (default from config)")
	noHistory := flag.Bool("no-history", false, "Run without a selection history")
	user := flag.String("user", "", "User for CLI selections (default from config)")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	cliMode := flag.Bool("c", false, "Run CLI -- useful for testing and debugging")
	limit := flag.Int("limit", 0, "Number of results to show in CLI mode")
	mode := flag.String("mode", "", "Search mode: prefix or fuzzy")
	metricsAddr := flag.String("metrics", "", "Address for /metrics and /healthz")
	resetConfig := flag.Bool("reset-config", false, "Rewrite the default config.toml")

	flag.Parse()

	if *showVersion {
		banner := logger.Banner(os.Stderr)
		banner.Print("")
		banner.Print("[ RecipeServe ] Finds recipes by name, ingredients and taste!")
		banner.Print("", "version", Version)
		banner.Print("")
		banner.Print("use -h or --help to see available options")
		banner.Print("Github Repo", "gh", gh)
		os.Exit(0)
	}

	if *debugMode {
		log.SetLevel(log.DebugLevel)
		log.SetReportTimestamp(true)
	} else {
		log.SetLevel(log.WarnLevel)
	}

	if *resetConfig {
		if err := config.RebuildConfigFile(); err != nil {
			log.Fatalf("Failed to rebuild config: %v", err)
		}
		path, _ := config.GetDefaultConfigPath()
		log.Printf("Config rebuilt at %s", path)
		os.Exit(0)
	}

	pathResolver, err := utils.NewPathResolver()
	if err != nil {
		log.Fatalf("Failed to initialize path resolver: %v", err)
	}

	appConfig, activeConfig, err := config.LoadConfigWithPriority(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Debugf("Using config file: (%s)", config.GetActiveConfigPath(activeConfig))

	if *corpusPath == "" {
		*corpusPath = appConfig.Store.CorpusPath
	}
	if *historyPath == "" {
		*historyPath = appConfig.Store.HistoryPath
	}
	if *user == "" {
		*user = appConfig.Store.DefaultUser
	}
	if *metricsAddr == "" {
		*metricsAddr = appConfig.Server.MetricsAddr
	}
	if *limit < 1 {
		*limit = appConfig.CLI.DefaultLimit
	}
	if *mode == "" {
		*mode = appConfig.CLI.DefaultMode
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := appConfig.Engine.Options()
	reg := prometheus.NewRegistry()
	collector := metrics.New(reg)
	opts.Observer = collector
	engine := suggest.NewEngine(opts)

	resolvedCorpus, found := pathResolver.ResolveCorpus(*corpusPath)
	loadCorpus := func(context.Context) ([]*recipe.Recipe, error) {
		recipes, stats, err := corpus.Load(resolvedCorpus)
		if err != nil {
			return nil, err
		}
		log.Debugf("Corpus: %d files, %d recipes in %v", stats.Files, stats.Recipes, stats.Duration)
		return recipes, nil
	}

	if found {
		recipes, err := loadCorpus(ctx)
		if err != nil {
			log.Fatalf("Failed to load corpus: %v", err)
		}
		if err := engine.Rebuild(ctx, recipes); err != nil {
			log.Fatalf("Failed to build index: %v", err)
		}
	} else {
		log.Warnf("No corpus found at %s, running with an empty collection...", resolvedCorpus)
	}

	var store *history.Store
	if !*noHistory && *historyPath != "" {
		store, err = history.Open(pathResolver.ResolveDataFile(*historyPath))
		if err != nil {
			log.Fatalf("Failed to open history: %v", err)
		}
	}
	closeStore := func() {
		if store != nil {
			store.Close()
		}
	}
	defer closeStore()
	sigHandler(cancel, closeStore)

	if *metricsAddr != "" {
		mlog := logger.New("metrics")
		go func() {
			mlog.Debugf("listening on %s", *metricsAddr)
			if err := metrics.Serve(ctx, *metricsAddr, metrics.Router(reg, engine.Stats)); err != nil {
				mlog.Errorf("server stopped: %v", err)
			}
		}()
	}

	// CLI would be mainly used for testing and dbg purposes.
	// Any new features or changes should be tested in CLI mode first.
	if *cliMode {
		log.SetReportTimestamp(false)
		log.Debug("Input info:", "mode", *mode, "limit", *limit, "user", *user)

		cliOpts := cli.Options{
			Limit:  *limit,
			Mode:   suggest.Mode(*mode),
			User:   *user,
			MinLen: appConfig.Server.MinQuery,
			MaxLen: appConfig.Server.MaxQuery,
		}
		if store != nil {
			cliOpts.Store = store
		}
		if err := cli.NewInputHandler(engine, cliOpts).Start(ctx); err != nil {
			log.Fatalf("CLI error: %v", err)
		}
		return
	}

	log.Debug("spawning IPC")
	srvOpts := []server.Option{
		server.WithLoader(loadCorpus),
		server.WithObserver(collector),
	}
	if store != nil {
		srvOpts = append(srvOpts, server.WithHistory(store))
	}
	srv := server.NewServer(engine, appConfig, srvOpts...)

	showStartupInfo(resolvedCorpus, engine.Stats())

	if err := srv.Start(ctx); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// showStartupInfo displays some basic info about the init process on stderr.
func showStartupInfo(corpusPath string, stats map[string]int) {
	pid := os.Getpid()
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)

	banner := logger.Banner(os.Stderr)
	banner.Print("=============")
	banner.Print(" RecipeServe ")
	banner.Print("=============")
	log.Infof("Version: %s", Version)
	log.Infof("Process ID: [ %d ]", pid)
	log.Info("init: OK")
	log.Infof("corpus: ( %s )", corpusPath)
	banner.Print("", "recipes", humanize.Comma(int64(stats["recipes"])))
	log.Info("status: ready")
	banner.Print("=============")
	banner.Print("Press Ctrl+C to exit")

	log.SetLevel(currentLevel)
}
