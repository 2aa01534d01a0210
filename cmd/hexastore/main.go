package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aleksaelezovic/hexastore/internal/config"
	"github.com/aleksaelezovic/hexastore/internal/logging"
	"github.com/aleksaelezovic/hexastore/internal/metrics"
	"github.com/aleksaelezovic/hexastore/internal/server"
	"github.com/aleksaelezovic/hexastore/internal/snapshot"
	"github.com/aleksaelezovic/hexastore/pkg/hexastore"
	"github.com/aleksaelezovic/hexastore/pkg/rdf"
	"github.com/aleksaelezovic/hexastore/pkg/store"
	"go.uber.org/zap"
)

func usage() {
	fmt.Println("Usage: hexastore [-config file] <command> [args]")
	fmt.Println("Commands:")
	fmt.Println("  load <file|->          - Load N-Triples into the store")
	fmt.Println("  query <s> <p> <o>      - Match a triple pattern (?name or _ for unbound)")
	fmt.Println("  stats                  - Print store statistics")
	fmt.Println("  dump [file]            - Write all triples as N-Triples")
	fmt.Println("  export-index <file>    - Write the index to a snapshot file")
	fmt.Println("  verify-index <file>    - Check a snapshot file")
	fmt.Println("  verify                 - Check the store's index and term dictionary")
	fmt.Println("  serve [addr]           - Serve metrics (default: metrics_addr from config)")
}

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	command := args[0]

	switch command {
	case "load":
		if len(args) < 2 {
			fmt.Println("Usage: hexastore load <file|->")
			os.Exit(1)
		}
		err = runLoad(cfg, logger, args[1])
	case "query":
		if len(args) < 4 {
			fmt.Println("Usage: hexastore query <subject> <predicate> <object>")
			os.Exit(1)
		}
		err = runQuery(cfg, logger, args[1], args[2], args[3])
	case "stats":
		err = runStats(cfg, logger)
	case "dump":
		path := ""
		if len(args) >= 2 {
			path = args[1]
		}
		err = runDump(cfg, logger, path)
	case "export-index":
		if len(args) < 2 {
			fmt.Println("Usage: hexastore export-index <file>")
			os.Exit(1)
		}
		err = runExportIndex(cfg, logger, args[1])
	case "verify-index":
		if len(args) < 2 {
			fmt.Println("Usage: hexastore verify-index <file>")
			os.Exit(1)
		}
		err = runVerifyIndex(args[1], cfg.BufferSlack)
	case "verify":
		err = runVerify(cfg, logger)
	case "serve":
		addr := cfg.MetricsAddr
		if len(args) >= 2 {
			addr = args[1]
		}
		err = runServe(cfg, logger, addr)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}

	if err != nil {
		logger.Error("command failed", zap.String("command", command), zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func runLoad(cfg *config.Config, logger *zap.Logger, path string) (err error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	s, err := store.Open(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer closeStore(s, &err)

	start := time.Now()
	read, added, err := s.Load(r)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	if !cfg.SaveOnClose {
		if _, err := s.Save(); err != nil {
			return err
		}
	}

	fmt.Printf("Read %d triples, %d new, in %s\n", read, added, time.Since(start).Round(time.Millisecond))
	fmt.Printf("Store holds %d triples\n", s.Count())
	return nil
}

// parsePatternTerm reads one query argument: ?name is a variable, _ a
// wildcard, anything else an N-Triples term
func parsePatternTerm(arg string) (any, error) {
	switch {
	case arg == "_" || arg == "?":
		return nil, nil
	case strings.HasPrefix(arg, "?"):
		return store.NewVariable(arg[1:]), nil
	default:
		return rdf.ParseTerm(arg)
	}
}

func runQuery(cfg *config.Config, logger *zap.Logger, subject, predicate, object string) (err error) {
	var positions [3]any
	for i, arg := range []string{subject, predicate, object} {
		term, err := parsePatternTerm(arg)
		if err != nil {
			return fmt.Errorf("invalid pattern term %q: %w", arg, err)
		}
		positions[i] = term
	}

	s, err := store.Open(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer closeStore(s, &err)

	it, err := s.Query(&store.Pattern{Subject: positions[0], Predicate: positions[1], Object: positions[2]})
	if err != nil {
		return err
	}
	defer it.Close()

	count := 0
	for it.Next() {
		t, err := it.Triple()
		if err != nil {
			return err
		}
		fmt.Println(t)
		count++
	}
	fmt.Fprintf(os.Stderr, "Found %d results\n", count)
	return nil
}

func runStats(cfg *config.Config, logger *zap.Logger) (err error) {
	s, err := store.Open(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer closeStore(s, &err)

	stats, err := s.Stats()
	if err != nil {
		return err
	}

	fmt.Printf("Triples: %d\n", stats.Triples)
	fmt.Printf("Terms:   %d\n", stats.Terms)
	fmt.Println("Orderings:")
	for o := hexastore.OrderSPO; o < hexastore.OrderCount; o++ {
		st := stats.Orderings[o]
		fmt.Printf("  %s  keys=%d capacity=%d memory=%d bytes\n", o, st.Keys, st.Capacity, st.MemoryBytes)
	}
	if info := stats.Snapshot; info != nil {
		fmt.Println("Snapshot:")
		fmt.Printf("  id:         %s\n", info.ID)
		fmt.Printf("  created:    %s\n", info.CreatedAt.Format(time.RFC3339))
		fmt.Printf("  triples:    %d\n", info.Triples)
		fmt.Printf("  raw:        %d bytes\n", info.RawBytes)
		fmt.Printf("  compressed: %d bytes\n", info.CompressedBytes)
	} else {
		fmt.Println("Snapshot: none")
	}
	return nil
}

func runDump(cfg *config.Config, logger *zap.Logger, path string) (err error) {
	var w io.Writer = os.Stdout
	if path != "" && path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	s, err := store.Open(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer closeStore(s, &err)

	n, err := s.Export(w)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Wrote %d triples\n", n)
	return nil
}

func runExportIndex(cfg *config.Config, logger *zap.Logger, path string) (err error) {
	s, err := store.Open(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer closeStore(s, &err)

	n, err := s.ExportIndex(path)
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %d triples (%d bytes) to %s\n", s.Count(), n, path)
	return nil
}

// closeStore closes s, keeping the first error seen by the command
func closeStore(s *store.TripleStore, err *error) {
	if cerr := s.Close(); *err == nil {
		*err = cerr
	}
}

func runVerifyIndex(path string, buffer bool) error {
	h, err := snapshot.ReadFile(path, buffer)
	if err != nil {
		return err
	}
	if err := h.Verify(); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	fmt.Printf("%s: OK, %d triples in %d orderings\n", path, h.TripleCount(), hexastore.OrderCount)
	return nil
}

func runVerify(cfg *config.Config, logger *zap.Logger) (err error) {
	s, err := store.Open(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer closeStore(s, &err)

	if err := s.Verify(); err != nil {
		return err
	}
	fmt.Printf("OK: %d triples, %d terms\n", s.Count(), s.Dictionary().Count())
	return nil
}

func runServe(cfg *config.Config, logger *zap.Logger, addr string) (err error) {
	reg := metrics.NewRegistry()
	s, err := store.Open(cfg, logger, reg)
	if err != nil {
		return err
	}
	defer closeStore(s, &err)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Store loaded with %d triples\n", s.Count())
	fmt.Printf("   Metrics: http://%s/metrics\n", addr)
	fmt.Printf("   Stats:   http://%s/stats\n\n", addr)
	fmt.Printf("Press Ctrl+C to stop\n\n")

	return server.NewServer(s, reg, addr, logger).Start(ctx)
}
