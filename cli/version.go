package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var currentVersion = "1.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information.",
	Long:  `deploycert version will return the current version of deploycert.`,
	Run:   version,
}

func version(cmd *cobra.Command, args []string) {
	fmt.Println("deploycert version", currentVersion)
	fmt.Println("	built with Go", runtime.Version())
	fmt.Printf(`
	Configuration:
	--------------
	route config:	%s
`, viper.GetString("config"))
}

func init() {
	RootCmd.AddCommand(versionCmd)
}
