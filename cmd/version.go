package cmd

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

const unknownVersion = "unknown"

// version is set at build time:
//
//	go build -ldflags "-X github.com/spigell/prospectiq/cmd.version=v0.3.0"
var version = unknownVersion

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), versionString())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// versionString falls back to the module version recorded by go install.
func versionString() string {
	v := version
	if v == unknownVersion {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
			v = info.Main.Version
		}
	}
	return fmt.Sprintf("%s version: %s", app, v)
}
