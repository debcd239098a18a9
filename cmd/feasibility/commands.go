package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ignite/audience-feasibility/internal/config"
	"github.com/ignite/audience-feasibility/internal/feasibility"
	"github.com/ignite/audience-feasibility/internal/pkg/logger"
	"github.com/ignite/audience-feasibility/internal/search"
)

// app holds what the commands share. newSearcher is swapped in tests.
type app struct {
	configPath  string
	newSearcher func(cfg *config.Config) (search.Searcher, error)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "feasibility",
		Short:         "Audience feasibility checks against the monthly user indices",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "",
		"Path to the YAML config file (env overrides still apply)")

	root.AddCommand(newCheckCmd(a))
	root.AddCommand(newResolveCmd(a))
	root.AddCommand(newIndicesCmd())
	root.AddCommand(newPlanCmd())
	return root
}

func (a *app) service() (*feasibility.Service, error) {
	cfg, err := config.LoadFromEnv(a.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if level, err := logger.ParseLevel(cfg.Logging.Level); err == nil {
		logger.SetLevel(level)
	}
	logger.SetRedactIDs(cfg.Logging.ShouldRedact())

	searcher, err := a.newSearcher(cfg)
	if err != nil {
		return nil, fmt.Errorf("create search client: %w", err)
	}
	return feasibility.NewServiceFromConfig(searcher, cfg.Feasibility)
}

func newCheckCmd(a *app) *cobra.Command {
	var (
		file   string
		strict bool
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run a feasibility check for a study request",
		Long: `Run a feasibility check for a study request read from a JSON file
("-" reads stdin) and print the verdict.

An insertion order without delivery yields the neutral verdict unless
--strict is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := readRequest(cmd, file)
			if err != nil {
				return err
			}
			svc, err := a.service()
			if err != nil {
				return err
			}

			check := svc.CheckOrNeutral
			if strict {
				check = svc.Check
			}
			result, err := check(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Study request JSON file")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail instead of answering neutral for an unknown insertion order")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newResolveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve-io <io>",
		Short: "Show the countries and monthly indices an insertion order delivered on",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			resolution, err := svc.ResolveByIO(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), resolution)
		},
	}
}

func newIndicesCmd() *cobra.Command {
	var start, end string
	cmd := &cobra.Command{
		Use:   "indices",
		Short: "List the monthly indices a date range covers",
		RunE: func(cmd *cobra.Command, args []string) error {
			indices, err := indicesFor(start, end)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.Join(indices, "\n"))
			return err
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "End date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func newPlanCmd() *cobra.Command {
	var (
		file    string
		explain bool
	)
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the search a date-range study request runs, without running it",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := readRequest(cmd, file)
			if err != nil {
				return err
			}
			scope, ok := req.Scope.(feasibility.DateRangeScope)
			if !ok {
				return fmt.Errorf("%w: plan needs a date range request, got %q", feasibility.ErrInvalidRequest, req.ReportType)
			}

			indices, err := indicesFor(scope.StartDate, scope.EndDate)
			if err != nil {
				return err
			}
			plan, err := feasibility.PlanBatch(indices, scope.CountryList, []feasibility.Segment{scope.Segment}, "")
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !explain {
				return writeJSON(out, plan)
			}
			return explainPlan(out, plan)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Study request JSON file")
	cmd.Flags().BoolVar(&explain, "explain", false, "Summarize the segment filter instead of printing the body")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// explainPlan reads segment "0" back from its wire form and prints what it
// selects.
func explainPlan(w io.Writer, plan search.Request) error {
	raw, err := json.Marshal(plan.Aggregations["0"].Source())
	if err != nil {
		return err
	}
	parsed, err := feasibility.ParseSegmentFilter(raw)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%-9s %s\n", "indices:", strings.Join(plan.Indices, ", "))
	fmt.Fprintf(w, "%-9s %s\n", "age:", strings.Join(parsed.Age, ", "))
	fmt.Fprintf(w, "%-9s %s\n", "gender:", strings.Join(parsed.Gender, ", "))
	for _, item := range parsed.Included {
		fmt.Fprintf(w, "%-9s apps=[%s] sites=[%s]\n", "include:", strings.Join(item.App, " "), strings.Join(item.Site, " "))
	}
	for _, item := range parsed.Excluded {
		fmt.Fprintf(w, "%-9s apps=[%s] sites=[%s]\n", "exclude:", strings.Join(item.App, " "), strings.Join(item.Site, " "))
	}
	return nil
}

func indicesFor(start, end string) ([]string, error) {
	from, err := feasibility.ParseDate(start)
	if err != nil {
		return nil, err
	}
	to, err := feasibility.ParseDate(end)
	if err != nil {
		return nil, err
	}
	return feasibility.MonthlyIndices(from, to)
}

func readRequest(cmd *cobra.Command, file string) (feasibility.Request, error) {
	var (
		data []byte
		err  error
	)
	if file == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return feasibility.Request{}, fmt.Errorf("read request: %w", err)
	}

	var req feasibility.Request
	if err := json.Unmarshal(data, &req); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return feasibility.Request{}, fmt.Errorf("%w: %v", feasibility.ErrInvalidRequest, err)
		}
		return feasibility.Request{}, err
	}
	return req, req.Validate()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
