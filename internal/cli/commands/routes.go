package commands

import (
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/mapper/internal/cli/ui"
	"github.com/conduit-lang/mapper/internal/config"
	"github.com/conduit-lang/mapper/internal/mapper/fetch"
)

// NewRoutesCommand creates the routes command.
func NewRoutesCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List the configured endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			table := ui.NewTable(cmd.OutOrStdout(), color.NoColor, "METHOD", "PATH", "SCHEMA", "REQUESTS", "SELECT")
			for _, e := range cfg.Endpoints {
				method := strings.ToUpper(e.Method)
				if method == "" {
					method = "GET"
				}
				requests, err := fetch.Flatten(e.Fetch)
				if err != nil {
					return err
				}
				table.AddRow(method, e.Path, e.Schema, strconv.Itoa(len(requests)), e.Select)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Configuration file (default ./mapper.yaml)")
	return cmd
}
