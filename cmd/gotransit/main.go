package main

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/kristinelam/gotransit/pkg/config"
)

var (
	cfg    = config.DefaultConfig()
	srvCfg = config.DefaultServerConfig()
	logger hclog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "gotransit",
	Short: "Transit light curve evaluation",
	Long: `gotransit evaluates planetary transit and secondary eclipse light curves.

It runs single evaluations from the command line, serves them over HTTP
and manages the interpolation tables the interpolated quadratic model uses.

Settings are read from GOTRANSIT_* environment variables (and a .env file)
before flags are applied.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = hclog.New(&hclog.LoggerOptions{
			Name:       "gotransit",
			Level:      hclog.LevelFromString(srvCfg.LogLevel),
			JSONFormat: srvCfg.LogJSON,
			Output:     os.Stderr,
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&srvCfg.LogLevel, "log-level", srvCfg.LogLevel, "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&srvCfg.LogJSON, "log-json", srvCfg.LogJSON, "log in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Quiet, "quiet", "q", cfg.Quiet, "quiet mode")

	rootCmd.AddCommand(evalCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tableCmd)
}

func main() {
	// environment first so explicit flags win
	config.LoadEnv(cfg, srvCfg)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
