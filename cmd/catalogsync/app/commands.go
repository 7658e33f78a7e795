package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/agentstation/catalogsync/internal/cmd/output"
	"github.com/agentstation/catalogsync/internal/feed"
	"github.com/agentstation/catalogsync/pkg/catalog"
	"github.com/agentstation/catalogsync/pkg/constants"
	"github.com/agentstation/catalogsync/pkg/discounts"
	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/export"
	"github.com/agentstation/catalogsync/pkg/importer"
	"github.com/agentstation/catalogsync/pkg/logging"
	"github.com/agentstation/catalogsync/pkg/prices"
	"github.com/agentstation/catalogsync/pkg/report"
)

// NewImportCommand creates the import command and its subcommands.
func (a *App) NewImportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "import",
		GroupID: "core",
		Short:   "Import a feed of products, prices or product discounts",
		Long: `Import reads a feed file ("-" for standard input) holding either a JSON
array or one JSON object per line, and reconciles it batch by batch.`,
	}

	flags := cmd.PersistentFlags()
	flags.Int("batch-size", constants.DefaultBatchSize, "records reconciled per batch")
	flags.String("error-dir", constants.DefaultErrorDir, "directory for failed record reports (empty disables them)")
	flags.Int("error-limit", constants.DefaultErrorLimit, "failures logged in full; 0 logs all")
	flags.Int("error-file-limit", 0, "failures written to the error directory; 0 writes all")
	flags.StringSlice("blacklist", nil, "action groups never sent (e.g. prices,images)")
	flags.StringSlice("filter-actions", nil, "action names never sent")
	flags.Bool("ensure-enums", false, "add unknown enum values to product types")
	flags.Bool("filter-unknown-attributes", false, "drop attributes the product type does not define")
	flags.Bool("ignore-slug-updates", false, "keep the remote slug of existing products")
	flags.Bool("fail-on-duplicate-attr", false, "fail records with repeated attribute names")
	flags.Bool("log-on-duplicate-attr", true, "log repeated attribute names")
	flags.String("publishing-strategy", "", "publish updated products: always, stagedAndPublishedOnly, notStagedAndPublishedOnly")
	flags.Bool("prevent-remove-actions", false, "never remove prices missing from a price feed")
	flags.String("language", constants.DefaultLanguage, "locale product discounts are matched by")

	cmd.AddCommand(
		a.newImportSubcommand("products", "Import products and their variants", a.importProducts),
		a.newImportSubcommand("prices", "Import variant prices", a.importPrices),
		a.newImportSubcommand("discounts", "Import product discounts", a.importDiscounts),
	)
	return cmd
}

type importFunc func(ctx context.Context, path string) (report.Report, error)

func (a *App) newImportSubcommand(name, short string, run importFunc) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <file>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := output.ParseFormat(a.config.Format)
			if err != nil {
				return errors.NewValidationError("format", a.config.Format, err.Error())
			}

			ctx := a.runContext(cmd.Context(), name)
			rep, runErr := run(ctx, args[0])
			if err := output.FormatReport(a.out, output.DetectFormat(string(format)), rep); err != nil {
				return err
			}
			return runErr
		},
	}
}

// runContext tags the logger of one run with a fresh run id.
func (a *App) runContext(ctx context.Context, importerName string) context.Context {
	ctx = logging.WithLogger(ctx, a.logger)
	ctx = logging.WithRunID(ctx, uuid.NewString())
	return logging.WithImporter(ctx, importerName)
}

func (a *App) importProducts(ctx context.Context, path string) (report.Report, error) {
	store, err := a.Store()
	if err != nil {
		return report.Report{}, err
	}
	cfg := a.config
	imp, err := importer.New(store,
		importer.WithBatchSize(cfg.BatchSize),
		importer.WithErrorDir(cfg.ErrorDir),
		importer.WithErrorLimit(cfg.ErrorLimit),
		importer.WithErrorFileLimit(cfg.ErrorFileLimit),
		importer.WithBlacklist(cfg.Blacklist...),
		importer.WithFilterActions(cfg.FilterActions...),
		importer.WithEnsureEnums(cfg.EnsureEnums),
		importer.WithFilterUnknownAttributes(cfg.FilterUnknownAttributes),
		importer.WithIgnoreSlugUpdates(cfg.IgnoreSlugUpdates),
		importer.WithDuplicateAttributePolicy(cfg.FailOnDuplicateAttr, cfg.LogOnDuplicateAttr),
		importer.WithPublishingStrategy(cfg.PublishingStrategy),
		importer.WithCache(a.Cache()),
	)
	if err != nil {
		return report.Report{}, err
	}

	err = runFeed[catalog.Product](ctx, path, cfg.BatchSize, imp)
	return imp.SummaryReport(filepath.Base(path)), err
}

func (a *App) importPrices(ctx context.Context, path string) (report.Report, error) {
	store, err := a.Store()
	if err != nil {
		return report.Report{}, err
	}
	cfg := a.config
	imp, err := prices.New(store,
		prices.WithBatchSize(cfg.BatchSize),
		prices.WithErrorDir(cfg.ErrorDir),
		prices.WithErrorLimit(cfg.ErrorLimit),
		prices.WithErrorFileLimit(cfg.ErrorFileLimit),
		prices.WithPreventRemoveActions(cfg.PreventRemoveActions),
		prices.WithPublishingStrategy(cfg.PublishingStrategy),
		prices.WithCache(a.Cache()),
	)
	if err != nil {
		return report.Report{}, err
	}

	err = runFeed[catalog.PriceRecord](ctx, path, cfg.BatchSize, imp)
	return imp.SummaryReport(), err
}

func (a *App) importDiscounts(ctx context.Context, path string) (report.Report, error) {
	store, err := a.Store()
	if err != nil {
		return report.Report{}, err
	}
	imp, err := discounts.New(store,
		discounts.WithBatchSize(a.config.BatchSize),
		discounts.WithLanguage(a.config.Language),
	)
	if err != nil {
		return report.Report{}, err
	}

	err = runFeed[catalog.ProductDiscount](ctx, path, a.config.BatchSize, imp)
	return imp.SummaryReport(), err
}

// batchProcessor is the part of an importer the feed drives.
type batchProcessor[T any] interface {
	ProcessBatch(ctx context.Context, records []T) error
}

// runFeed decodes the feed at path and hands every chunk to p.
func runFeed[T any](ctx context.Context, path string, size int, p batchProcessor[T]) error {
	src, err := feed.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	r := &feed.Reader[T]{Name: path}
	return r.Chunks(ctx, src, size, func(records []T) error {
		return p.ProcessBatch(ctx, records)
	})
}

// NewExportCommand creates the export command.
func (a *App) NewExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "export",
		GroupID: "core",
		Short:   "Export catalog entities",
	}

	var (
		outPath   string
		where     string
		perPage   int
		published bool
	)
	products := &cobra.Command{
		Use:   "products",
		Short: "Write product projections as one JSON document per line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.Store()
			if err != nil {
				return err
			}

			w := a.out
			if outPath != "" && outPath != "-" {
				f, err := os.Create(outPath)
				if err != nil {
					return errors.WrapIO("create", outPath, err)
				}
				defer f.Close()
				w = f
			}

			exp := export.New(store)
			exp.Where = where
			exp.PerPage = perPage
			exp.Staged = !published

			ctx := a.runContext(cmd.Context(), "export")
			return exp.Stream(ctx, ndjsonWriter(w))
		},
	}
	products.Flags().StringVarP(&outPath, "out", "f", "", "output file (default standard output)")
	products.Flags().StringVar(&where, "where", "", "predicate selecting the products")
	products.Flags().IntVar(&perPage, "per-page", constants.DefaultPerPage, "products fetched per request")
	products.Flags().BoolVar(&published, "published", false, "export the current instead of the staged projection")

	cmd.AddCommand(products)
	return cmd
}

// ndjsonWriter encodes every exported product on its own line.
func ndjsonWriter(w io.Writer) export.PageHandler {
	enc := json.NewEncoder(w)
	return func(_ context.Context, products []catalog.Product) error {
		for i := range products {
			if err := enc.Encode(&products[i]); err != nil {
				return errors.WrapIO("write", "export", err)
			}
		}
		return nil
	}
}

// NewVersionCommand creates the version command.
func (a *App) NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(a.out, "catalogsync %s\n", a.version)
			fmt.Fprintf(a.out, "  commit:   %s\n", a.commit)
			fmt.Fprintf(a.out, "  built:    %s\n", a.date)
			fmt.Fprintf(a.out, "  built by: %s\n", a.builtBy)
		},
	}
}
