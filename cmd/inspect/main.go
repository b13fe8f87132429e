// Command inspect runs the ingestion pipeline on files from disk and prints
// what the server would load from them.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/nexus/internal/ingest"
	"github.com/JonMunkholm/nexus/internal/logging"
)

type options struct {
	entry     string
	format    string
	rows      int
	out       string
	rolesFile string
	logLevel  string
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "inspect [files...]",
		Short: "Ingest files from disk and describe the resulting table",
		Long: `Runs the same classification, extraction, decoding and type inference the
server runs on uploads. Files are treated as one batch, so the preferred file
wins exactly as it would in a multi-file upload.`,
		Example: `  # Summarize the first CSV of an archive
  inspect notas.zip

  # Pick another entry and print JSON
  inspect notas.zip --entry vendas_2024.csv --format json

  # Convert a workbook to parquet
  inspect relatorio.xlsx --out relatorio.parquet`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), stdout, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.entry, "entry", "", "archive entry to load instead of the first CSV")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "output format: text or json")
	cmd.Flags().IntVarP(&opts.rows, "rows", "n", 10, "number of preview rows")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "write the table to a .csv or .parquet file")
	cmd.Flags().StringVar(&opts.rolesFile, "roles", "", "YAML file overriding the column role candidates")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	return cmd
}

func run(ctx context.Context, stdout io.Writer, paths []string, opts *options) error {
	if opts.format != "text" && opts.format != "json" {
		return fmt.Errorf("unsupported format %q: use 'text' or 'json'", opts.format)
	}
	if opts.rows < 0 {
		return fmt.Errorf("rows must be non-negative, got %d", opts.rows)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	logger := logging.New(os.Stderr, opts.logLevel, "text")

	roles := ingest.DefaultRoleConfig()
	if opts.rolesFile != "" {
		var err error
		if roles, err = ingest.LoadRoleConfig(opts.rolesFile); err != nil {
			return err
		}
	}

	b := ingest.Batch{Entry: opts.entry}
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		b.Files = append(b.Files, ingest.File{Name: filepath.Base(p), Data: data})
	}

	res := ingest.NewIngester(roles, ingest.WithLogger(logger)).Ingest(ctx, b)
	if !res.OK() {
		msg := ingest.MapError(res.Err)
		return fmt.Errorf("%s (%s): %w", msg.Message, msg.Code, res.Err)
	}

	if opts.out != "" {
		if err := writeTable(opts.out, res.Table); err != nil {
			return err
		}
	}

	sum := ingest.Summarize(res.Table, res.Name, res.Roles, opts.rows)
	if opts.format == "json" {
		return printJSON(stdout, report{Summary: sum, Kind: res.Kind, Source: res.Source, Candidates: res.Candidates})
	}
	return printText(stdout, res, sum)
}

// report is the JSON output.
type report struct {
	ingest.Summary
	Kind       ingest.ContainerKind `json:"kind"`
	Source     string               `json:"source"`
	Candidates []string             `json:"candidates,omitempty"`
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printText(w io.Writer, res ingest.Result, sum ingest.Summary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Table:\t%s\n", sum.Name)
	fmt.Fprintf(tw, "Source:\t%s (%s)\n", res.Source, res.Kind)
	if len(res.Candidates) > 1 {
		fmt.Fprintf(tw, "Entries:\t%s\n", strings.Join(res.Candidates, ", "))
	}
	fmt.Fprintf(tw, "Rows:\t%d\n", sum.Rows)
	for _, role := range ingest.Roles(sum.Roles).Sorted() {
		fmt.Fprintf(tw, "Role %s:\t%s\n", role, sum.Roles[role])
	}
	if m := sum.Metrics; m.TotalAmount != nil {
		fmt.Fprintf(tw, "Total:\t%.2f\n", *m.TotalAmount)
	}
	if m := sum.Metrics; m.TopCustomer != "" {
		fmt.Fprintf(tw, "Top customer:\t%s\n", m.TopCustomer)
	}

	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "COLUMN\tTYPE\tVALUES\tMISSING\tDISTINCT")
	for _, c := range sum.Columns {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\n", c.Name, c.Type, c.NonNull, c.Missing, c.Distinct)
	}

	if len(sum.Preview) > 0 {
		fmt.Fprintln(tw)
		names := make([]string, len(sum.Columns))
		for i, c := range sum.Columns {
			names[i] = c.Name
		}
		fmt.Fprintln(tw, strings.Join(names, "\t"))
		for _, row := range sum.Preview {
			fmt.Fprintln(tw, strings.Join(row, "\t"))
		}
	}
	return tw.Flush()
}

// writeTable exports t to path, choosing the format from the extension.
func writeTable(path string, t *ingest.Table) (err error) {
	var write func(io.Writer, *ingest.Table) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		write = ingest.WriteCSV
	case ".parquet":
		write = ingest.WriteParquet
	default:
		return fmt.Errorf("unsupported output file %q: use .csv or .parquet", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	return write(f, t)
}
