// Package commands implements the mapper command line.
package commands

import (
	"fmt"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// Version information, set at build time.
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	var noColor bool

	rootCmd := &cobra.Command{
		Use:   "mapper",
		Short: "Aggregate upstream JSON APIs and map them through schemas",
		Long: color.CyanString(`mapper - declarative model mapping

mapper fetches documents from upstream APIs, navigates them with a query
cursor and maps the result through schemas that rename, default, copy,
coerce and format attributes.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
		},
	}
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(NewServeCommand())
	rootCmd.AddCommand(NewBuildCommand())
	rootCmd.AddCommand(NewCheckCommand())
	rootCmd.AddCommand(NewRoutesCommand())
	rootCmd.AddCommand(NewFetchCommand())

	return rootCmd
}

// NewVersionCommand creates the version command.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			out := cmd.OutOrStdout()
			title := color.New(color.FgCyan, color.Bold)
			for _, row := range [][2]string{
				{"mapper version: ", Version},
				{"Git commit: ", GitCommit},
				{"Build date: ", BuildDate},
				{"Go version: ", goVer},
			} {
				title.Fprint(out, row[0])
				fmt.Fprintln(out, row[1])
			}
		},
	}
}
