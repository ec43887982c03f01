package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pankaj-dahiya-devops/aws-mcp/internal/automation"
	"github.com/pankaj-dahiya-devops/aws-mcp/internal/client"
	"github.com/pankaj-dahiya-devops/aws-mcp/internal/config"
	"github.com/pankaj-dahiya-devops/aws-mcp/internal/logging"
	"github.com/pankaj-dahiya-devops/aws-mcp/internal/models"
	"github.com/pankaj-dahiya-devops/aws-mcp/internal/output"
	"github.com/pankaj-dahiya-devops/aws-mcp/internal/providers/aws/common"
	"github.com/pankaj-dahiya-devops/aws-mcp/internal/server"
	"github.com/pankaj-dahiya-devops/aws-mcp/internal/version"
)

const shutdownTimeout = 10 * time.Second

// globalOptions holds the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	logLevel   string
	logFile    string
	logJSON    bool
	profile    string
	region     string
	noColor    bool
}

func (o *globalOptions) logger() (*logrus.Logger, io.Closer, error) {
	return logging.New(logging.Options{Level: o.logLevel, File: o.logFile, JSON: o.logJSON})
}

func (o *globalOptions) awsClients(ctx context.Context) (*common.ClientCache, error) {
	cfg, err := common.LoadConfig(ctx, common.LoadOptions{Profile: o.profile, Region: o.region})
	if err != nil {
		return nil, err
	}
	return common.NewClientCache(cfg), nil
}

// tableOptions enables color only when stdout is a terminal and --no-color
// is unset.
func (o *globalOptions) tableOptions() output.TableOptions {
	return output.TableOptions{Colored: !o.noColor && !color.NoColor}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           "awsmcp",
		Short:         "AWS cost and usage dispatcher with scheduled automation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", config.DefaultPath, "Automation config file (JSON, or YAML by extension)")
	pf.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	pf.StringVar(&opts.logFile, "log-file", "", "Write logs to this rotated file instead of stderr")
	pf.BoolVar(&opts.logJSON, "log-json", false, "Emit logs as JSON")
	pf.StringVar(&opts.profile, "profile", "", "AWS profile name (default: credential chain)")
	pf.StringVar(&opts.region, "region", "", "AWS region (default: from profile)")
	pf.BoolVar(&opts.noColor, "no-color", false, "Disable colored tables")

	root.AddCommand(
		newServeCmd(opts),
		newLocalCmd(opts),
		newCallCmd(opts),
		newCostCmd(opts),
		newRunOnceCmd(opts),
		newScheduleCmd(opts),
		newAIAnalysisCmd(opts),
		newHistoryCmd(opts),
		newDeployCmd(opts),
		newDoctorCmd(opts),
		newVersionCmd(),
	)
	return root
}

// ---------------------------------------------------------------------------
// Dispatcher
// ---------------------------------------------------------------------------

func newServeCmd(opts *globalOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dispatcher over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, closer, err := opts.logger()
			if err != nil {
				return err
			}
			defer closer.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			clients, err := opts.awsClients(ctx)
			if err != nil {
				return err
			}
			srv := server.New(clients, server.WithLogger(logger))
			httpSrv := &http.Server{
				Addr:              addr,
				Handler:           server.NewRouter(srv, logger),
				ReadHeaderTimeout: 10 * time.Second,
			}
			return serveUntilDone(ctx, httpSrv, logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	return cmd
}

// serveUntilDone runs httpSrv until ctx is cancelled, then shuts it down
// gracefully.
func serveUntilDone(ctx context.Context, httpSrv *http.Server, logger logrus.FieldLogger) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithField("addr", httpSrv.Addr).Info("dispatcher listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down dispatcher")
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newLocalCmd(opts *globalOptions) *cobra.Command {
	var params string
	cmd := &cobra.Command{
		Use:   "local <method>",
		Short: "Dispatch one request in-process without a network hop",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parseParams(params)
			if err != nil {
				return err
			}
			logger, closer, err := opts.logger()
			if err != nil {
				return err
			}
			defer closer.Close()

			clients, err := opts.awsClients(cmd.Context())
			if err != nil {
				return err
			}
			srv := server.New(clients, server.WithLogger(logger))
			resp := srv.HandleRequest(cmd.Context(), models.Request{Method: args[0], Params: p})
			return printResponse(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().StringVar(&params, "params", "", "Request params as a JSON object")
	return cmd
}

func newCallCmd(opts *globalOptions) *cobra.Command {
	var (
		params    string
		serverURL string
		timeout   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "call <method>",
		Short: "Send one request to a remote dispatcher",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parseParams(params)
			if err != nil {
				return err
			}
			c, closer, err := opts.remoteClient(serverURL, timeout)
			if err != nil {
				return err
			}
			defer closer.Close()
			return printResponse(cmd.OutOrStdout(), c.Send(cmd.Context(), args[0], p))
		},
	}
	cmd.Flags().StringVar(&params, "params", "", "Request params as a JSON object")
	cmd.Flags().StringVar(&serverURL, "url", "", "Dispatcher URL (default: server_url from --config)")
	cmd.Flags().DurationVar(&timeout, "timeout", client.DefaultTimeout, "Request timeout")
	return cmd
}

func newCostCmd(opts *globalOptions) *cobra.Command {
	var (
		serverURL string
		days      int
	)
	cmd := &cobra.Command{
		Use:   "cost",
		Short: "Fetch cost data and print per-service totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, closer, err := opts.remoteClient(serverURL, client.DefaultTimeout)
			if err != nil {
				return err
			}
			defer closer.Close()
			resp := c.GetCostAnalysis(cmd.Context(), days)
			if resp.Failed() {
				return errors.New(resp.Error)
			}
			var data models.CostData
			if err := resp.Decode(&data); err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			output.RenderCostTable(w, &data, opts.tableOptions())
			return nil
		},
	}
	cmd.Flags().StringVar(&serverURL, "url", "", "Dispatcher URL (default: server_url from --config)")
	cmd.Flags().IntVar(&days, "days", client.DefaultCostDays, "Lookback window in days")
	return cmd
}

// remoteClient builds a client for serverURL, falling back to the config
// file's server_url. The caller closes the returned log sink.
func (o *globalOptions) remoteClient(serverURL string, timeout time.Duration) (*client.Client, io.Closer, error) {
	if serverURL == "" {
		cfg, err := config.Load(o.configPath)
		if err != nil {
			return nil, nil, err
		}
		serverURL = cfg.ServerURL
	}
	logger, closer, err := o.logger()
	if err != nil {
		return nil, nil, err
	}
	return client.New(serverURL, client.WithTimeout(timeout), client.WithLogger(logger)), closer, nil
}

// ---------------------------------------------------------------------------
// Automation
// ---------------------------------------------------------------------------

// newDriver loads the config file and builds a driver logging through logger.
func (o *globalOptions) newDriver(logger logrus.FieldLogger) (*automation.Driver, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	return automation.New(cfg, automation.WithLogger(logger))
}

func newRunOnceCmd(opts *globalOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "run-once",
		Short: "Run cost analysis, usage monitoring and the service audit once",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, closer, err := opts.logger()
			if err != nil {
				return err
			}
			defer closer.Close()

			d, err := opts.newDriver(logger)
			if err != nil {
				return err
			}
			defer d.Close()

			result := d.RunOnce(cmd.Context())
			w := cmd.OutOrStdout()
			if asJSON {
				return printJSON(w, result)
			}
			output.RenderRunSummary(w, summaryRows(result), opts.tableOptions())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the combined result as JSON")
	return cmd
}

// summaryRows flattens a run-once result into table rows, one per usage
// descriptor.
func summaryRows(r automation.RunOnceResult) []output.SummaryRow {
	rows := []output.SummaryRow{{Operation: models.OperationCostAnalysis, Response: r.CostAnalysis}}
	for _, resp := range r.UsageMonitoring {
		rows = append(rows, output.SummaryRow{Operation: models.OperationUsageMonitoring, Response: resp})
	}
	return append(rows, output.SummaryRow{Operation: models.OperationServiceAudit, Response: r.ServiceAudit})
}

func newScheduleCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run the automation jobs on their configured schedules until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, closer, err := opts.logger()
			if err != nil {
				return err
			}
			defer closer.Close()

			d, err := opts.newDriver(logger)
			if err != nil {
				return err
			}
			defer d.Close()

			s, err := d.Scheduler()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := s.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}

func newAIAnalysisCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ai-analysis",
		Short: "Fetch the last 7 days of cost data and ask the model for recommendations",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, closer, err := opts.logger()
			if err != nil {
				return err
			}
			defer closer.Close()

			d, err := opts.newDriver(logger)
			if err != nil {
				return err
			}
			defer d.Close()

			resp := d.RunAIAnalysis(cmd.Context())
			if resp.Failed() {
				return errors.New(resp.Error)
			}
			var analysis models.Analysis
			if err := resp.Decode(&analysis); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), analysis.Analysis)
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), version.Info())
		},
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// parseParams decodes a JSON object flag. An empty string yields nil params.
func parseParams(s string) (map[string]any, error) {
	if s == "" {
		return nil, nil
	}
	var p map[string]any
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return nil, fmt.Errorf("--params must be a JSON object: %w", err)
	}
	return p, nil
}

// printResponse writes resp as indented JSON. An error envelope is printed
// like any other; it is not a command failure.
func printResponse(w io.Writer, resp models.Response) error {
	return printJSON(w, resp)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
