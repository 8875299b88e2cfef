package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/gabay/core/internal/adapters/codec"
	"github.com/gabay/core/internal/adapters/filestore"
	"github.com/gabay/core/internal/adapters/repository"
	"github.com/gabay/core/internal/application/services"
	"github.com/gabay/core/internal/domain/entities"
	"github.com/gabay/core/internal/infrastructure/config"
	"github.com/gabay/core/internal/infrastructure/logger"
	"github.com/gabay/core/internal/infrastructure/server"
	"github.com/gabay/core/internal/ports"
)

// Build information, set with -ldflags at release time
var (
	Version   = "1.0.0"
	BuildDate = "unknown"
	GitCommit = "development"
)

// app bundles what every data command needs
type app struct {
	cfg     *config.Config
	logger  *logger.Logger
	files   *filestore.FileStore
	store   *repository.CandidateStore
	service *services.CandidateService
}

// NewRootCommand creates the gabay command tree
func NewRootCommand() *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "gabay",
		Short:         "Gabáy candidate data manager",
		Long:          `Gabáy keeps a flat-file collection of political candidate profiles and serves it to voters and administrators.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (yaml, json or toml)")

	cfgPath := func() string { return configFile }

	rootCmd.AddCommand(NewServeCommand(cfgPath))
	rootCmd.AddCommand(NewListCommand(cfgPath))
	rootCmd.AddCommand(NewSearchCommand(cfgPath))
	rootCmd.AddCommand(NewShowCommand(cfgPath))
	rootCmd.AddCommand(NewDeleteCommand(cfgPath))
	rootCmd.AddCommand(NewImportCommand(cfgPath))
	rootCmd.AddCommand(NewExportCommand(cfgPath))
	rootCmd.AddCommand(NewCheckCommand(cfgPath))
	rootCmd.AddCommand(NewHashPasswordCommand())
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}

// NewServeCommand creates the serve command
func NewServeCommand(cfgPath func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the Gabáy API server",
		Long:  "Load the candidate file and serve it over HTTP with admin endpoints behind JWT login",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), cfgPath())
		},
	}
}

// NewListCommand creates the list command
func NewListCommand(cfgPath func() string) *cobra.Command {
	var filter ports.CandidateFilter

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List candidates in file order",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), cfgPath())
			if err != nil {
				return err
			}
			defer a.close()

			candidates, err := a.service.ListCandidates(cmd.Context(), filter)
			if err != nil {
				return err
			}
			renderCandidates(cmd.OutOrStdout(), candidates)
			return nil
		},
	}

	cmd.Flags().StringVar(&filter.Position, "position", "", "only candidates running for this position")
	cmd.Flags().StringVar(&filter.Party, "party", "", "only candidates of this party")
	cmd.Flags().StringVar(&filter.Region, "region", "", "only candidates from this region")
	return cmd
}

// NewSearchCommand creates the search command
func NewSearchCommand(cfgPath func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search candidates by any text field",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), cfgPath())
			if err != nil {
				return err
			}
			defer a.close()

			candidates, err := a.service.SearchCandidates(cmd.Context(), strings.Join(args, " "))
			if errors.Is(err, services.ErrSearchQueryTooShort) {
				return fmt.Errorf("search query must be at least %d characters", services.MinSearchQueryLength)
			}
			if err != nil {
				return err
			}

			if len(candidates) == 0 {
				color.New(color.FgYellow).Fprintln(cmd.OutOrStdout(), "No candidates found.")
				return nil
			}
			renderCandidates(cmd.OutOrStdout(), candidates)
			return nil
		},
	}
}

// NewShowCommand creates the show command
func NewShowCommand(cfgPath func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id|index>",
		Short: "Show one candidate's full profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), cfgPath())
			if err != nil {
				return err
			}
			defer a.close()

			c, err := a.resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			renderProfile(cmd.OutOrStdout(), c)
			return nil
		},
	}
}

// NewDeleteCommand creates the delete command
func NewDeleteCommand(cfgPath func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id|index>",
		Short: "Delete a candidate and rewrite the data file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), cfgPath())
			if err != nil {
				return err
			}
			defer a.close()

			c, err := a.resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := a.service.DeleteCandidate(cmd.Context(), c.ID); err != nil {
				return err
			}

			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "Deleted %s (%s)\n", c.Name, c.ID)
			return nil
		},
	}
}

// NewImportCommand creates the import command
func NewImportCommand(cfgPath func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Append the records of a pipe-delimited export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), cfgPath())
			if err != nil {
				return err
			}
			defer a.close()

			data, err := a.files.ReadAll(args[0])
			if err != nil {
				return err
			}

			report, err := a.service.ImportLegacy(cmd.Context(), data)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			color.New(color.FgGreen).Fprintf(out, "Imported %d candidate(s)\n", report.Imported)
			warn := color.New(color.FgYellow)
			for _, issue := range report.Skipped {
				warn.Fprintf(out, "  skipped line %d: %s\n", issue.Line, issue.Reason)
			}
			for _, reason := range report.Rejected {
				warn.Fprintf(out, "  rejected %s\n", reason)
			}
			return nil
		},
	}
}

// NewExportCommand creates the export command
func NewExportCommand(cfgPath func() string) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the collection in the pipe-delimited grammar",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), cfgPath())
			if err != nil {
				return err
			}
			defer a.close()

			data, err := a.service.ExportLegacy(cmd.Context())
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if err := a.files.WriteAll(output, data); err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "Exported %d candidate(s) to %s\n", a.store.Len(cmd.Context()), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "destination file (default stdout)")
	return cmd
}

// NewCheckCommand creates the check command
func NewCheckCommand(cfgPath func() string) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Parse the data file and report malformed records",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), cfgPath())
			if err != nil {
				return err
			}
			defer a.close()

			out := cmd.OutOrStdout()
			stats := a.store.Stats()
			fmt.Fprintf(out, "%s: %d candidate(s) loaded\n", a.store.Path(), stats.Loaded)

			invalid := 0
			for _, c := range a.store.GetAll(cmd.Context()) {
				if err := entities.Validate(c); err != nil {
					invalid++
					color.New(color.FgYellow).Fprintf(out, "  invalid %q: %v\n", c.Name, err)
				}
			}

			if len(stats.Skipped) == 0 && invalid == 0 {
				color.New(color.FgGreen).Fprintln(out, "OK")
				return nil
			}

			table := tablewriter.NewWriter(out)
			table.SetHeader([]string{"Line", "Reason"})
			for _, issue := range stats.Skipped {
				table.Append([]string{strconv.Itoa(issue.Line), issue.Reason})
			}
			if len(stats.Skipped) > 0 {
				table.Render()
			}

			if strict {
				return fmt.Errorf("%d skipped and %d invalid record(s)", len(stats.Skipped), invalid)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when any record is skipped or invalid")
	return cmd
}

// NewHashPasswordCommand creates the hash-password command
func NewHashPasswordCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print a bcrypt hash for ADMIN_PASSWORD_HASH",
		Long:  "Hash the given password, or the first line of stdin when no argument is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var password string
			if len(args) == 1 {
				password = args[0]
			} else {
				data, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), 4096))
				if err != nil {
					return fmt.Errorf("failed to read password: %w", err)
				}
				password, _, _ = strings.Cut(string(data), "\n")
				password = strings.TrimRight(password, "\r")
			}

			hash, err := services.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print Gabáy version",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Gabáy Core v%s\n", Version)
			fmt.Fprintf(out, "Build Date: %s\n", BuildDate)
			fmt.Fprintf(out, "Git Commit: %s\n", GitCommit)
		},
	}
}

func runServer(ctx context.Context, configFile string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	store, err := newStore(cfg, filestore.New(afero.NewOsFs()), appLogger)
	if err != nil {
		return err
	}
	if err := store.Load(ctx); err != nil {
		return fmt.Errorf("failed to load candidates: %w", err)
	}

	srv, err := server.New(cfg, store, appLogger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		appLogger.Infow("Starting Gabáy API server",
			"address", cfg.Server.Addr(),
			"environment", cfg.App.Environment,
			"data_file", cfg.Storage.DataFile,
		)
		errCh <- srv.Start(cfg.Server.Addr())
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	appLogger.Info("Server stopped")
	return nil
}

// openApp loads config and the candidate store for a one-shot command.
// Logs go to stderr so stdout stays clean for tables and exports.
func openApp(ctx context.Context, configFile string) (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logCfg := cfg.Logger
	logCfg.Format = "console"
	if logCfg.Output != "file" {
		logCfg.Output = "stderr"
	}
	if logCfg.Level == "info" || logCfg.Level == "debug" {
		logCfg.Level = "warn"
	}
	appLogger, err := logger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	files := filestore.New(afero.NewOsFs())
	store, err := newStore(cfg, files, appLogger)
	if err != nil {
		return nil, err
	}
	if err := store.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load candidates: %w", err)
	}

	return &app{
		cfg:     cfg,
		logger:  appLogger,
		files:   files,
		store:   store,
		service: services.NewCandidateService(store, appLogger),
	}, nil
}

func newStore(cfg *config.Config, files *filestore.FileStore, appLogger *logger.Logger) (*repository.CandidateStore, error) {
	cc, err := codec.ForFormat(cfg.Storage.Format)
	if err != nil {
		return nil, err
	}
	return repository.NewCandidateStore(files, cfg.Storage.DataFile, cc, appLogger), nil
}

func (a *app) close() {
	_ = a.logger.Close()
}

// resolve finds a candidate by UUID or by zero-based position
func (a *app) resolve(ctx context.Context, ref string) (*entities.Candidate, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return a.store.GetByID(ctx, id)
	}
	index, err := strconv.Atoi(ref)
	if err != nil {
		return nil, fmt.Errorf("%q is neither a candidate id nor an index", ref)
	}
	return a.store.Get(ctx, index)
}

func renderCandidates(w io.Writer, candidates []*entities.Candidate) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "ID", "Name", "Age", "Position", "Party", "Region"})
	for i, c := range candidates {
		table.Append([]string{
			strconv.Itoa(i),
			c.ID.String()[:8],
			c.Name,
			strconv.Itoa(c.Age),
			c.Position,
			c.PartyAffiliation,
			c.Region,
		})
	}
	table.Render()
	fmt.Fprintf(w, "%d candidate(s)\n", len(candidates))
}

func renderProfile(w io.Writer, c *entities.Candidate) {
	color.New(color.FgCyan, color.Bold).Fprintf(w, "%s\n", c.Name)
	fields := [][2]string{
		{"ID", c.ID.String()},
		{"Age", strconv.Itoa(c.Age)},
		{"Position", c.Position},
		{"Party", c.PartyAffiliation},
		{"Region", c.Region},
		{"Experience", fmt.Sprintf("%d year(s)", c.YearsOfExperience)},
		{"Slogan", c.CampaignSlogan},
		{"Platforms", strings.Join(c.Platforms, "; ")},
		{"Supports", strings.Join(c.SupportedIssues, "; ")},
		{"Opposes", strings.Join(c.OpposedIssues, "; ")},
		{"Notable laws", strings.Join(c.NotableLaws, "; ")},
		{"Image", c.ImagePath},
	}
	for _, f := range fields {
		fmt.Fprintf(w, "%-13s %s\n", f[0]+":", f[1])
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Social issue", "Stance"})
	for _, issue := range entities.SocialIssues {
		table.Append([]string{string(issue), string(c.StanceOn(issue))})
	}
	table.Render()
}
