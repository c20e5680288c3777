package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/briangreenhill/poewatch/internal/app"
	"github.com/briangreenhill/poewatch/internal/config"
	"github.com/briangreenhill/poewatch/internal/kinds"
	"github.com/briangreenhill/poewatch/poewatch"
	"github.com/briangreenhill/poewatch/query"
)

const version = "v0.1.0"

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	logger = logger.Level(cfg.Level())
	// the CLI keeps its cache on disk unless told otherwise
	if os.Getenv("POEWATCH_STORE") == "" {
		cfg.Store = config.StoreFile
	}

	ctx := context.Background()
	store, closeStore, err := app.OpenStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("open cache store")
	}
	defer closeStore()

	svc, err := app.NewService(cfg, store, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("controller error")
	}

	if err := runCLI(ctx, svc, os.Args[1:], os.Stdout); err != nil {
		logger.Error().Err(err).Msg("command failed")
		closeStore()
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: poewatch <command> [args]")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  <kind> [field=value ...]        List items, leagues or categories matching every pair")
	fmt.Fprintln(w, "  <kind> find [field=value ...]   First match only")
	fmt.Fprintln(w, "  <kind> count                    Number of records")
	fmt.Fprintln(w, "  prices <item id> [league]       Item prices, optionally for one league")
	fmt.Fprintln(w, "  refresh [ttl]                   Refresh the cache if any dataset is missing")
	fmt.Fprintln(w, "  clear                           Delete the cached datasets")
	fmt.Fprintln(w, "  footprint                       Cached dataset sizes in KB")
	fmt.Fprintln(w, "Values starting with ~ are regular expressions, e.g. name=~(?i)metamorph")
	fmt.Fprintln(w, "Numbers, true, false and null match JSON values; quote to match a string, e.g. variation=\"1\"")
}

func runCLI(ctx context.Context, svc *poewatch.Service, args []string, out io.Writer) error {
	if len(args) == 0 {
		usage(out)
		return nil
	}

	switch args[0] {
	case "help", "--help", "-h":
		usage(out)
		return nil
	case "version", "--version", "-v":
		fmt.Fprintln(out, "poewatch", version)
		return nil
	case "refresh":
		var ttl time.Duration
		if len(args) > 1 {
			d, err := time.ParseDuration(args[1])
			if err != nil {
				return fmt.Errorf("invalid ttl %q: %w", args[1], err)
			}
			ttl = d
		}
		refreshed, err := svc.Controller.RefreshTTL(ctx, ttl)
		if err != nil {
			return err
		}
		return printJSON(out, map[string]bool{"refreshed": refreshed})
	case "clear":
		return svc.Controller.Clear(ctx)
	case "footprint":
		footprint, err := svc.Controller.MemoryFootprint(ctx)
		if err != nil {
			return err
		}
		return printJSON(out, footprint)
	case "prices":
		return runPrices(ctx, svc, args[1:], out)
	}

	registry := kinds.FromService(svc)
	k, ok := registry.Get(args[0])
	if !ok {
		return fmt.Errorf("unknown command: %s (kinds: %s)", args[0], strings.Join(registry.List(), ", "))
	}
	return runKind(ctx, k, args[1:], out)
}

func runKind(ctx context.Context, k kinds.Kind, args []string, out io.Writer) error {
	mode := "where"
	if len(args) > 0 && (args[0] == "find" || args[0] == "count") {
		mode, args = args[0], args[1:]
	}

	if mode == "count" {
		n, err := k.Count(ctx)
		if err != nil {
			return err
		}
		return printJSON(out, map[string]int{"count": n})
	}

	values := url.Values{}
	for _, arg := range args {
		field, value, ok := strings.Cut(arg, "=")
		if !ok || field == "" {
			return fmt.Errorf("invalid predicate %q, want field=value", arg)
		}
		values.Set(field, value)
	}
	p, err := kinds.ParsePredicates(values)
	if err != nil {
		return err
	}

	if mode == "find" {
		found, ok, err := k.Find(ctx, p)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no %s matching %v", k.Name(), args)
		}
		return printJSON(out, found)
	}

	found, err := k.Where(ctx, p)
	if err != nil {
		return err
	}
	return printJSON(out, found)
}

func runPrices(ctx context.Context, svc *poewatch.Service, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New("prices needs an item id")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid item id %q", args[0])
	}

	item, ok, err := svc.Items.Find(ctx, query.Predicates{"id": query.Exact(id)})
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("item %d not found", id)
	}

	if len(args) > 1 {
		price, ok, err := item.PriceForLeague(ctx, args[1])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s has no price in league %s", item.Name, args[1])
		}
		return printJSON(out, price.Map())
	}

	prices, err := item.Prices(ctx)
	if err != nil {
		return err
	}
	rows := make([]map[string]any, len(prices))
	for i, p := range prices {
		rows[i] = p.Map()
	}
	return printJSON(out, rows)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
