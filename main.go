package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/UnitVectorY-Labs/buildbadges/internal/blobstore"
	"github.com/UnitVectorY-Labs/buildbadges/internal/crawler"
	"github.com/UnitVectorY-Labs/buildbadges/internal/extractor"
	"github.com/UnitVectorY-Labs/buildbadges/internal/logging"
	"github.com/UnitVectorY-Labs/buildbadges/internal/metrics"
	"github.com/UnitVectorY-Labs/buildbadges/internal/relocator"
	"github.com/UnitVectorY-Labs/buildbadges/internal/trigger"
)

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string     { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error { *s = append(*s, v); return nil }

func main() {
	extractMode := flag.Bool("extract", false, "Extract entries from a build archive")
	relocateMode := flag.Bool("relocate", false, "Handle one build event read from -event or stdin")
	serveMode := flag.Bool("serve", false, "Serve the HTTP push trigger (and Kafka when KAFKA_BROKERS is set)")
	auditMode := flag.Bool("audit", false, "Audit organization READMEs for relocated badges")

	jar := flag.String("jar", "", "Archive to read (extract)")
	out := flag.String("out", "", "Output path for the mandatory entry (extract)")
	outPattern := flag.String("out_pattern", "", "Pattern of the mandatory entry (extract)")
	var aux, auxPatterns stringList
	flag.Var(&aux, "aux", "Output path for an optional entry, repeatable (extract)")
	flag.Var(&auxPatterns, "aux_patterns", "Pattern of an optional entry, parallel to -aux (extract)")

	configPath := flag.String("config", "", "Optional YAML config overlay (relocate, serve, audit)")
	eventPath := flag.String("event", "", "Event file, stdin when empty (relocate)")
	addr := flag.String("addr", ":8080", "Listen address (serve)")

	orgName := flag.String("org", "", "GitHub Organization name (required for audit)")
	includePrivate := flag.Bool("private", false, "Include private repositories (default: public only)")
	outputDir := flag.String("output", "audit", "Directory for audit output")

	flag.Parse()

	modes := 0
	for _, m := range []bool{*extractMode, *relocateMode, *serveMode, *auditMode} {
		if m {
			modes++
		}
	}
	if modes != 1 {
		fmt.Println("Usage: buildbadges [-extract | -relocate | -serve | -audit] [options]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	log := logging.FromEnv()
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch {
	case *extractMode:
		targets, err := extractor.Targets(aux, auxPatterns)
		if err != nil {
			fail("Error: %v", err)
		}
		req := extractor.Request{
			Jar:  *jar,
			Main: extractor.Target{Out: *out, Pattern: *outPattern},
			Aux:  targets,
		}
		if err := extractor.Run(req, log); err != nil {
			fail("Extraction failed: %v", err)
		}

	case *relocateMode:
		cfg, store := loadRelocator(*configPath)
		defer store.Close()
		raw, err := readEvent(*eventPath)
		if err != nil {
			fail("Error: %v", err)
		}
		r := relocator.New(cfg, store, metrics.Noop{}, log)
		res, err := r.HandleEnvelope(ctx, raw)
		if err != nil {
			fail("Relocation failed: %v", err)
		}
		if err := writeResult(os.Stdout, res); err != nil {
			fail("Error: %v", err)
		}

	case *serveMode:
		cfg, store := loadRelocator(*configPath)
		defer store.Close()
		prom := metrics.NewProm("buildbadges")
		r := relocator.New(cfg, store, prom, log)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return trigger.Serve(gctx, trigger.NewHTTPServer(r, prom.Handler(), log), *addr, log)
		})
		if kcfg, ok := trigger.KafkaConfigFromEnv(); ok {
			consumer, err := trigger.NewKafkaConsumer(kcfg, r, log)
			if err != nil {
				fail("Failed to create Kafka consumer: %v", err)
			}
			defer consumer.Close()
			g.Go(func() error { return consumer.Run(gctx) })
		}
		if err := g.Wait(); err != nil {
			fail("Serve failed: %v", err)
		}

	case *auditMode:
		if *orgName == "" {
			fail("Error: -org is required for audit mode.")
		}
		token := os.Getenv("GITHUB_TOKEN")
		if token == "" {
			fail("Error: GITHUB_TOKEN environment variable is required for audit mode.")
		}
		cfg, err := relocator.LoadConfig(*configPath)
		if err != nil {
			fail("Error: %v", err)
		}
		_, err = crawler.Run(ctx, crawler.Options{
			Org:            *orgName,
			OutputDir:      *outputDir,
			Token:          token,
			IncludePrivate: *includePrivate,
			Badges:         cfg,
			BaseURL:        os.Getenv("GITHUB_API_URL"),
		})
		if err != nil {
			fail("Audit failed: %v", err)
		}
	}
}

func loadRelocator(configPath string) (relocator.Config, blobstore.Store) {
	cfg, err := relocator.LoadConfig(configPath)
	if err != nil {
		fail("Error: %v", err)
	}
	store, err := blobstore.OpenURL(cfg.StoreURL)
	if err != nil {
		fail("Error: %v", err)
	}
	return cfg, store
}

func readEvent(path string) ([]byte, error) {
	if path == "" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func writeResult(w io.Writer, res relocator.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	return nil
}

func fail(format string, args ...any) {
	fmt.Printf(format+"\n", args...)
	os.Exit(1)
}
