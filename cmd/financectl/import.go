package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"finance/internal/backend"
	"finance/internal/importer"
	"finance/internal/services"
)

type importOptions struct {
	userID     string
	accountID  string
	file       string
	format     string
	mapSpec    string
	sheetRange string
}

func importCmd(a *app) *cobra.Command {
	var opts importOptions
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a CSV/OFX export or a spreadsheet range into an account",
		Long: `Import maps the columns of a bank export to transactions and stores them
in one batch. Any invalid row rejects the whole batch and every failing row
is listed.

  financectl import --user alice --account <id> --file bank.csv --map 0=date,1=payee,2=amount
  financectl import --user alice --account <id> --file bank.ofx
  financectl import --user alice --account <id> --sheet-range 'Bank!A1:D200' --map 0=date,1=payee,2=amount`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runImport(cmd, a, opts)
		},
	}
	cmd.Flags().StringVar(&opts.userID, "user", "", "owner of the account (required)")
	cmd.Flags().StringVar(&opts.accountID, "account", "", "account id to import into (required)")
	cmd.Flags().StringVar(&opts.file, "file", "", "CSV or OFX file to import")
	cmd.Flags().StringVar(&opts.format, "format", "", "file format: csv or ofx (default: from extension)")
	cmd.Flags().StringVar(&opts.mapSpec, "map", "", "column mapping, e.g. 0=date,1=payee,2=amount (optional for OFX)")
	cmd.Flags().StringVar(&opts.sheetRange, "sheet-range", "", "read rows from this A1 range of the configured spreadsheet")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("account")
	cmd.MarkFlagsMutuallyExclusive("file", "sheet-range")
	cmd.MarkFlagsOneRequired("file", "sheet-range")
	return cmd
}

func runImport(cmd *cobra.Command, a *app, opts importOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	b, err := backend.New(ctx, a.cfg, backend.Options{Publish: true, Sheets: opts.sheetRange != ""}, a.logger)
	if err != nil {
		return err
	}
	defer b.Close()

	var (
		grid   importer.RawGrid
		format string
	)
	if opts.sheetRange != "" {
		reader := b.GridReader()
		if reader == nil {
			return errors.New("--sheet-range needs GOOGLE_SPREADSHEET_ID")
		}
		format = "sheets"
		if grid, err = reader.ReadGrid(ctx, opts.sheetRange); err != nil {
			return fmt.Errorf("read %s: %w", opts.sheetRange, err)
		}
	} else {
		if grid, format, err = readFile(opts.file, opts.format); err != nil {
			return err
		}
	}

	assignment, err := resolveAssignment(opts.mapSpec, format)
	if err != nil {
		return err
	}

	stages := []services.ImportStage{services.StageMapping, services.StageNormalize, services.StagePersist}
	bar := progressbar.NewOptions(len(stages),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionSetDescription("importing"),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	created, err := b.Imports.Import(ctx, opts.userID, services.ImportRequest{
		AccountID:  opts.accountID,
		Grid:       grid,
		Assignment: assignment,
		Source:     format,
		OnStage: func(st services.ImportStage) {
			bar.Describe(string(st))
			_ = bar.Add(1)
		},
	})
	_ = bar.Finish()
	if err != nil {
		printImportError(out, err)
		return fmt.Errorf("import rejected, nothing was saved")
	}

	fmt.Fprintf(out, "Imported %d transactions into account %s\n", len(created), opts.accountID)
	return nil
}

// readFile parses path as CSV or OFX. The format flag wins over the file
// extension.
func readFile(path, format string) (importer.RawGrid, string, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".ofx", ".qfx":
			format = "ofx"
		default:
			format = "csv"
		}
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open import file: %w", err)
	}
	defer f.Close()

	var grid importer.RawGrid
	switch format {
	case "csv":
		grid, err = importer.ReadCSV(f)
	case "ofx":
		grid, err = importer.ReadOFX(f)
	default:
		return nil, "", fmt.Errorf("unsupported format %q, expected csv or ofx", format)
	}
	if err != nil {
		return nil, "", err
	}
	return grid, format, nil
}

// resolveAssignment parses --map. OFX grids have a fixed layout and map
// themselves when --map is omitted.
func resolveAssignment(spec, format string) (*importer.Assignment, error) {
	if strings.TrimSpace(spec) == "" {
		if format == "ofx" {
			return importer.OFXAssignment(), nil
		}
		return nil, errors.New("--map is required for csv and spreadsheet imports")
	}
	a, err := importer.ParseMapSpec(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid --map: %w", err)
	}
	return a, nil
}

func printImportError(w io.Writer, err error) {
	var ie *importer.ImportError
	if errors.As(err, &ie) {
		fmt.Fprintf(w, "%d invalid rows:\n", len(ie.Rows))
		for _, d := range ie.Details() {
			fmt.Fprintf(w, "  %s\n", d)
		}
		return
	}
	fmt.Fprintf(w, "error: %v\n", err)
}
