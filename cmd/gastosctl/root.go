package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"gastos/internal/backend"
	"gastos/internal/cli"
	"gastos/internal/config"
	"gastos/internal/log"
)

const (
	formatTable = "tabela"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

type rootOptions struct {
	apiURL  string
	timeout time.Duration
	output  string
	noColor bool
	verbose bool

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "gastosctl",
		Short: "Consulta e cadastra gastos no backend",
		Long: `gastosctl talks to the same expense backend as the web front-end.

Settings come from the environment (and .env): GASTOS_API_URL,
GASTOS_API_TIMEOUT, AMQP_URL, AMQP_EXCHANGE. Flags override them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.complete(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.apiURL, "api", "", "Backend base URL (default $GASTOS_API_URL)")
	flags.DurationVar(&opts.timeout, "timeout", 0, "Request timeout (default $GASTOS_API_TIMEOUT)")
	flags.StringVarP(&opts.output, "output", "o", formatTable, "Output format: tabela, json, yaml")
	flags.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log backend requests to stderr")

	cmd.AddCommand(
		newSummaryCmd(opts),
		newExpensesCmd(opts),
		newGroupsCmd(opts),
		newCreateExpenseCmd(opts),
		newCreateGroupCmd(opts),
		newEventsCmd(opts),
	)
	return cmd
}

// complete merges environment configuration with flags.
func (o *rootOptions) complete(cmd *cobra.Command) error {
	_ = cli.LoadEnvFile()
	cfg := config.Load()
	if o.apiURL != "" {
		cfg.APIBaseURL = strings.TrimRight(o.apiURL, "/")
	}
	if o.timeout > 0 {
		cfg.RequestTimeout = o.timeout
	}
	// The CLI makes one call per invocation; a breaker would never trip.
	cfg.BreakerFailures = 0

	switch o.output {
	case formatTable, formatJSON, formatYAML:
	default:
		return fmt.Errorf("formato de saída desconhecido %q (use tabela, json ou yaml)", o.output)
	}
	if o.noColor {
		color.NoColor = true
	}
	o.cfg = cfg
	return nil
}

func (o *rootOptions) client(cmd *cobra.Command) (*backend.Client, error) {
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}
	level := "error"
	if o.verbose {
		level = "debug"
	}
	logger := log.New(log.Config{
		Level:     log.ParseLevel(level),
		Component: log.ComponentCLI,
		Output:    cmd.ErrOrStderr(),
	})
	return backend.FromAppConfig(o.cfg, logger, nil)
}
