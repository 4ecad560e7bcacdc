package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/ohler55/ojg"
	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/mapper/internal/cli/ui"
	"github.com/conduit-lang/mapper/internal/mapper/model"
	"github.com/conduit-lang/mapper/internal/mapper/schemafile"
)

type buildOptions struct {
	schemas  []string
	schema   string
	input    string
	previous string
	one      bool
	lenient  bool
}

// NewBuildCommand creates the build command.
func NewBuildCommand() *cobra.Command {
	var opts buildOptions

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Map a JSON document through a schema",
		Long: `Read a JSON document (or a list of documents) and print the result of
mapping it through a schema declared in the schema files.

  mapper build --schemas schemas.yaml --schema store --input store.json
  curl -s http://api/stores | mapper build --schemas schemas.yaml --schema store`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.schemas, "schemas", "s", nil, "Schema files (.yaml, .yml or .toml)")
	cmd.Flags().StringVar(&opts.schema, "schema", "", "Name of the schema to build with")
	cmd.Flags().StringVarP(&opts.input, "input", "i", "-", "Input JSON file, - for stdin")
	cmd.Flags().StringVar(&opts.previous, "previous", "", "JSON file with a previous record to merge into")
	cmd.Flags().BoolVar(&opts.one, "one", false, "Return only the first document of a list")
	cmd.Flags().BoolVar(&opts.lenient, "lenient", false, "Skip missing required attributes instead of failing")
	_ = cmd.MarkFlagRequired("schemas")
	_ = cmd.MarkFlagRequired("schema")

	return cmd
}

func runBuild(cmd *cobra.Command, opts buildOptions) error {
	reg, err := schemafile.Load(opts.schemas...)
	if err != nil {
		return err
	}
	schema, ok := reg.Get(opts.schema)
	if !ok {
		ui.UnknownSchema(opts.schema, reg.Names(), color.NoColor).Write(cmd.ErrOrStderr())
		return fmt.Errorf("unknown schema %q", opts.schema)
	}

	input, err := readJSON(opts.input, cmd.InOrStdin())
	if err != nil {
		return err
	}

	var buildOpts []model.BuildOption
	if opts.lenient {
		buildOpts = append(buildOpts, model.WithFailOnMissing(false))
	}
	if opts.previous != "" {
		prev, err := readJSON(opts.previous, nil)
		if err != nil {
			return err
		}
		m, ok := prev.(map[string]any)
		if !ok {
			return errors.New("previous record must be a JSON object")
		}
		buildOpts = append(buildOpts, model.WithPrevious(m))
	}

	var out any
	if opts.one {
		out, err = schema.BuildOne(cmd.Context(), input, buildOpts...)
	} else {
		out, err = schema.Build(cmd.Context(), input, buildOpts...)
	}
	if err != nil {
		return err
	}

	writeJSON(cmd.OutOrStdout(), out)
	return nil
}

// readJSON decodes the file at path, or stdin when path is "-".
func readJSON(path string, stdin io.Reader) (any, error) {
	var data []byte
	var err error
	if path == "-" {
		if stdin == nil {
			stdin = os.Stdin
		}
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	v, err := oj.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return v, nil
}

func writeJSON(w io.Writer, v any) {
	fmt.Fprintln(w, oj.JSON(v, &ojg.Options{Indent: 2, Sort: true}))
}
