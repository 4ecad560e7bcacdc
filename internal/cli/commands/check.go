package commands

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/mapper/internal/cli/ui"
	"github.com/conduit-lang/mapper/internal/config"
	"github.com/conduit-lang/mapper/internal/gateway"
	"github.com/conduit-lang/mapper/internal/mapper/fetch"
	"github.com/conduit-lang/mapper/internal/mapper/model"
	"github.com/conduit-lang/mapper/internal/mapper/schemafile"
)

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	var (
		schemas    []string
		configPath string
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate schema files and the endpoint configuration",
		Long: `Compile the schema files and list the schemas they declare. With --config
the endpoints are checked as well, and the schema files listed in the
configuration are used when --schemas is not given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg *config.Config
			if configPath != "" {
				var err error
				if cfg, err = config.Load(configPath); err != nil {
					return err
				}
				if len(schemas) == 0 {
					schemas = cfg.Schemas
				}
			}
			if len(schemas) == 0 {
				return fmt.Errorf("no schema files: pass --schemas or --config")
			}

			reg, err := schemafile.Load(schemas...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			table := ui.NewTable(out, color.NoColor, "SCHEMA", "ATTRIBUTES", "SOURCE")
			for _, name := range reg.Names() {
				s, _ := reg.Get(name)
				table.AddRow(name, strconv.Itoa(s.Len()), reg.Source(name))
			}
			table.Render()

			if verbose {
				for _, name := range reg.Names() {
					s, _ := reg.Get(name)
					describe(out, name, s)
				}
			}

			if cfg != nil {
				gw := gateway.New(fetch.Func(nil), reg, nil)
				for _, e := range cfg.Endpoints {
					if _, err := gw.Endpoint(e); err != nil {
						if e.Schema != "" {
							if _, ok := reg.Get(e.Schema); !ok {
								ui.UnknownSchema(e.Schema, reg.Names(), color.NoColor).Write(cmd.ErrOrStderr())
							}
						}
						return err
					}
				}
				ui.WriteSuccess(out, fmt.Sprintf("%d endpoints", len(cfg.Endpoints)), color.NoColor)
			}

			ui.WriteSuccess(out, fmt.Sprintf("%d schemas", reg.Len()), color.NoColor)
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&schemas, "schemas", "s", nil, "Schema files (.yaml, .yml or .toml)")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Service configuration file")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "List the attributes of every schema")

	return cmd
}

func describe(w io.Writer, name string, s *model.Schema) {
	fmt.Fprintf(w, "\n%s\n", color.New(color.Bold).Sprint(name))
	for _, path := range s.Paths() {
		a, _ := s.Lookup(path)
		line := "  " + path
		if !a.Required() {
			line += " (optional)"
		}
		if a.Kind() != model.KindScalar {
			line += fmt.Sprintf(" %s", a.Kind())
		}
		var mods []string
		for _, m := range a.Modifiers() {
			mods = append(mods, modifierName(m))
		}
		if len(mods) > 0 {
			line += " [" + strings.Join(mods, ", ") + "]"
		}
		fmt.Fprintln(w, line)
	}
}

func modifierName(m model.Modifier) string {
	switch m := m.(type) {
	case model.Rename:
		return "as " + m.To
	case model.Default:
		return "default"
	case model.Copy:
		return "copy " + m.From
	case model.Coerce:
		return "type"
	case model.Format:
		return "format"
	default:
		return fmt.Sprintf("%T", m)
	}
}
