// Command feasibility runs feasibility checks and inspects the searches
// behind them from the command line.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ignite/audience-feasibility/internal/config"
	"github.com/ignite/audience-feasibility/internal/elastic"
	"github.com/ignite/audience-feasibility/internal/pkg/logger"
	"github.com/ignite/audience-feasibility/internal/search"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Logs go to stderr so command output stays machine readable.
	logger.SetOutput(os.Stderr)

	root := newRootCmd(&app{newSearcher: newElasticSearcher})
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

func newElasticSearcher(cfg *config.Config) (search.Searcher, error) {
	client, err := elastic.NewClient(cfg.Elasticsearch)
	if err != nil {
		return nil, err
	}
	return client, nil
}
