// Package cli implements the deploycert command line interface.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/deploycert/deploycert/config"
	"github.com/deploycert/deploycert/deploy"
	"github.com/deploycert/deploycert/svcmgr"
)

var cfgFile string
var debug, dryRun bool

// environment contract shared with certbot's deploy hook invocation
const (
	domainsEnv = "RENEWED_DOMAINS"
	lineageEnv = "RENEWED_LINEAGE"
)

func requireEnv(name string) string {
	value := viper.GetString(name)
	if value == "" {
		fmt.Fprintf(os.Stderr, "Environment variable %s not set!\n", name)
		os.Exit(1)
	}
	return value
}

func root(cmd *cobra.Command, args []string) {
	domains := strings.Fields(requireEnv(domainsEnv))
	lineage := requireEnv(lineageEnv)

	cfg, err := config.Load(viper.GetString("config"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "deploycert: %s\n", err)
		os.Exit(1)
	}

	var runner svcmgr.Runner = svcmgr.ExecRunner{}
	if viper.GetBool("dry_run") {
		runner = svcmgr.DryRunner{}
	}

	log.Info().Strs("domains", domains).Str("lineage", lineage).Msg("deploying renewed certificates")

	routes, final := cfg.Build(lineage, runner)
	jobs := deploy.Resolve(domains, routes, final)
	failures := deploy.Execute(jobs)

	if len(failures) > 0 {
		for _, failure := range failures {
			color.Red("%s failed: %s", failure.Subject, failure.Err)
		}
		os.Exit(1)
	}
	color.Green("Success")
}

// RootCmd is the command processor for CLI interactions.
var RootCmd = &cobra.Command{
	Use:   "deploycert",
	Short: "Deploy renewed certificates to the services that use them",
	Long: `deploycert is a certbot deploy hook.  It reads the renewed domains and
lineage path from the environment, maps each domain to the services
depending on its certificate, and restarts or reloads exactly the
services that need it, merging key and chain into a single bundle
where a service requires one.`,
	Run: root,
}

// Execute runs the root command.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initLogging)

	RootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "f", "/etc/deploycert/deploycert.yaml", "route config file mapping domains to services")
	RootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	RootCmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "log service commands instead of executing them")

	viper.BindPFlag("config", RootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("debug", RootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("dry_run", RootCmd.Flags().Lookup("dry-run"))

	viper.SetEnvPrefix("DEPLOYCERT")
	viper.AutomaticEnv()

	// certbot exports these without a prefix
	viper.BindEnv(domainsEnv, domainsEnv)
	viper.BindEnv(lineageEnv, lineageEnv)
}

// initLogging configures the process-wide zerolog sink.  The hook's stdout
// belongs to certbot's log, so structured output goes to stderr and stays
// quiet unless --debug is passed.
func initLogging() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	if viper.GetBool("debug") {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Debug().Msg("debug mode enabled")
	}
}
