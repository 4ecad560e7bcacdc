package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/mapper/internal/mapper/fetch"
	"github.com/conduit-lang/mapper/internal/mapper/mediator"
)

// NewFetchCommand creates the fetch command.
func NewFetchCommand() *cobra.Command {
	var (
		headers []string
		path    string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "fetch <name=uri|uri>...",
		Short: "Fetch upstream documents and print them",
		Long: `Fetch one URI, or several named URIs concurrently, and print the combined
document. --select narrows the output to a path.

  mapper fetch http://api/stores/1
  mapper fetch store=http://api/stores/1 rates=http://api/rates --select rates.EUR`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []fetch.Option{fetch.WithTimeout(timeout)}
			for _, h := range headers {
				k, v, ok := strings.Cut(h, ":")
				if !ok {
					return fmt.Errorf("header %q: want Key: Value", h)
				}
				opts = append(opts, fetch.WithHeader(strings.TrimSpace(k), strings.TrimSpace(v)))
			}

			start := time.Now()
			m, err := mediator.Fetch(cmd.Context(), fetch.NewClient(opts...), fetchPlan(args))
			if err != nil {
				return err
			}
			v, err := m.Select(path).Value()
			if err != nil {
				return err
			}

			body := oj.JSON(v, 2)
			fmt.Fprintln(cmd.OutOrStdout(), body)
			color.New(color.FgHiBlack).Fprintf(cmd.ErrOrStderr(), "%d request(s), %s in %s\n",
				len(args), humanize.Bytes(uint64(len(body))), time.Since(start).Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "Request header, Key: Value")
	cmd.Flags().StringVar(&path, "select", "", "Path to print")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")

	return cmd
}

// fetchPlan reads name=uri arguments into a plan. A single bare URI is
// fetched as the root document.
func fetchPlan(args []string) any {
	if len(args) == 1 && !strings.Contains(strings.SplitN(args[0], "://", 2)[0], "=") {
		return args[0]
	}

	plan := fetch.Plan{}
	for i, arg := range args {
		name, uri, ok := strings.Cut(arg, "=")
		if !ok || strings.Contains(name, "://") {
			name, uri = fmt.Sprintf("doc%d", i), arg
		}
		plan[name] = uri
	}
	return plan
}
