// Command bankloan runs the personal-loan boosted-tree analysis.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/YuminosukeSato/bankloan/config"
	"github.com/YuminosukeSato/bankloan/pkg/log"
)

// Set by the linker: -ldflags "-X main.version=..."
var version = "dev"

// app holds state shared by the subcommands.
type app struct {
	v          *viper.Viper
	configFile string
	cfg        *config.Config
	logger     log.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "bankloan",
		Short: "Gradient-boosted personal-loan classifier for bank customers",
		Long: `bankloan fits a boosted-tree model that predicts whether a bank customer
accepts a personal loan. Hyperparameters are tuned on a Latin-hypercube grid
with bootstrap resampling; the best candidate is refit and evaluated on a
stratified holdout.

Settings come from flags, BANKLOAN_* environment variables and an optional
YAML file (--config), flags taking precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.BindFlags(a.v, cmd.Flags()); err != nil {
				return err
			}
			cfg, err := config.Load(a.v, a.configFile)
			if err != nil {
				return err
			}
			if err := log.SetupLogger(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr()); err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = log.GetLoggerWithName("bankloan")
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "YAML configuration file")
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		newAnalyzeCmd(a),
		newGridCmd(a),
		newRunsCmd(a),
		newVersionCmd(),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.GetLoggerWithName("bankloan").Error("Command failed", err)
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
