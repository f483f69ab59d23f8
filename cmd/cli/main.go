package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kurihiro0119/github-portfolio/internal/aggregator"
	"github.com/kurihiro0119/github-portfolio/internal/collector"
	"github.com/kurihiro0119/github-portfolio/internal/config"
	"github.com/kurihiro0119/github-portfolio/internal/domain"
	"github.com/kurihiro0119/github-portfolio/internal/logging"
	"github.com/kurihiro0119/github-portfolio/internal/portfolio"
	"github.com/kurihiro0119/github-portfolio/internal/readme"
	"github.com/kurihiro0119/github-portfolio/internal/site"
	"github.com/kurihiro0119/github-portfolio/internal/storage"
	"github.com/kurihiro0119/github-portfolio/internal/storage/postgres"
	"github.com/kurihiro0119/github-portfolio/internal/storage/sqlite"
	"github.com/kurihiro0119/github-portfolio/pkg/client"
)

type options struct {
	cfgFile    string
	outputJSON bool
	outputDir  string
	techs      []string
	useAPI     bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "portfolio",
		Short: "GitHub portfolio site generator",
		Long: `A CLI tool for building a static portfolio site from a GitHub user's repositories.

Each repository becomes a project. Its title, technologies and extra links are
read from the README, either from YAML front matter or from elements with the
ids tjidtitle, tjidtechs and tjidlinks.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "env file to load (default is .env)")
	rootCmd.PersistentFlags().BoolVar(&opts.outputJSON, "json", false, "output in JSON format")

	buildCmd := &cobra.Command{
		Use:   "build [user]",
		Short: "Fetch repositories and export the portfolio site",
		Long:  `Fetch the user's repositories and READMEs from GitHub, store the snapshot and write the static site.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, opts, args)
		},
	}
	buildCmd.Flags().StringVarP(&opts.outputDir, "output", "o", "", "output directory (default is OUTPUT_DIR)")

	listCmd := &cobra.Command{
		Use:   "list [user]",
		Short: "List the stored projects",
		Long:  `List the projects of the last build, split into the ones matching any --tech and the rest.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, opts, args)
		},
	}
	listCmd.Flags().StringArrayVar(&opts.techs, "tech", nil, "technology to filter by (repeatable or comma-separated)")
	listCmd.Flags().BoolVar(&opts.useAPI, "api", false, "read from the preview server at API_ENDPOINT")

	techsCmd := &cobra.Command{
		Use:   "techs [user]",
		Short: "Show technologies with their project counts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTechs(cmd, opts, args)
		},
	}
	techsCmd.Flags().BoolVar(&opts.useAPI, "api", false, "read from the preview server at API_ENDPOINT")

	rootCmd.AddCommand(buildCmd, listCmd, techsCmd)
	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func loadConfig(opts *options, args []string) (*config.Config, error) {
	var files []string
	if opts.cfgFile != "" {
		files = append(files, opts.cfgFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if len(args) > 0 {
		cfg.GitHubUser = args[0]
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func getStorage(cfg *config.Config) (storage.Storage, error) {
	switch cfg.StorageType {
	case "postgres":
		return postgres.NewPostgresStorage(cfg.PostgresURL)
	default:
		return sqlite.NewSQLiteStorage(cfg.SQLitePath)
	}
}

// withAggregator opens storage and hands a read-only aggregator to fn
func withAggregator(cfg *config.Config, fn func(aggregator.Aggregator) error) error {
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	store, err := getStorage(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	return fn(aggregator.NewAggregator(nil, store, logger, aggregator.Options{}))
}

func runBuild(cmd *cobra.Command, opts *options, args []string) error {
	cfg, err := loadConfig(opts, args)
	if err != nil {
		return err
	}
	outputDir := cfg.OutputDir
	if opts.outputDir != "" {
		outputDir = opts.outputDir
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	store, err := getStorage(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	coll, err := collector.NewGitHubCollector(collector.Options{
		Token:        cfg.GitHubToken,
		BaseURL:      cfg.GitHubAPIURL,
		RawURL:       cfg.GitHubRawURL,
		ReadmeBranch: cfg.ReadmeBranch,
		ReadmePath:   cfg.ReadmePath,
		ListRetries:  cfg.ListRetries,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize GitHub client: %w", err)
	}

	out := cmd.OutOrStdout()
	agg := aggregator.NewAggregator(coll, store, logger, aggregator.Options{
		IncludeForks:    cfg.IncludeForks,
		IncludeArchived: cfg.IncludeArchived,
		OnProgress: func(repo string, progress float64) {
			if !opts.outputJSON {
				fmt.Fprintf(out, "\rProgress: %.1f%% (%s)", progress*100, repo)
			}
		},
	})

	if !opts.outputJSON {
		fmt.Fprintf(out, "Building portfolio for user: %s\n", cfg.GitHubUser)
	}
	build, projects, err := agg.Build(cmd.Context(), cfg.GitHubUser)
	if err != nil {
		return fmt.Errorf("failed to build portfolio: %w", err)
	}

	if err := site.Export(outputDir, cfg.GitHubUser, projects, site.Options{Title: cfg.SiteTitle}); err != nil {
		return fmt.Errorf("failed to export site: %w", err)
	}
	logger.Info("Site exported", zap.String("dir", outputDir), zap.Int("projects", len(projects)))

	if opts.outputJSON {
		return writeJSON(out, build)
	}

	fmt.Fprintf(out, "\nBuild %s complete!\n\n", build.ID)
	table := newTable(out)
	table.SetHeader([]string{"Metric", "Value"})
	table.Append([]string{"Projects", fmt.Sprintf("%d", build.ProjectCount)})
	table.Append([]string{"Without README metadata", fmt.Sprintf("%d", build.DegradedCount)})
	table.Append([]string{"Technologies", fmt.Sprintf("%d", len(portfolio.TechSet(projects)))})
	table.Append([]string{"Output", outputDir})
	table.Render()

	return nil
}

func runList(cmd *cobra.Command, opts *options, args []string) error {
	cfg, err := loadConfig(opts, args)
	if err != nil {
		return err
	}

	var techs []string
	for _, flag := range opts.techs {
		techs = append(techs, readme.SplitTechnologies(flag)...)
	}

	var view *portfolio.View
	if opts.useAPI {
		view, err = client.NewClient(cfg.APIEndpoint).GetProjects(cmd.Context(), cfg.GitHubUser, techs)
	} else {
		err = withAggregator(cfg, func(agg aggregator.Aggregator) error {
			view, err = agg.GetView(cmd.Context(), cfg.GitHubUser, techs)
			return err
		})
	}
	if err != nil {
		return fmt.Errorf("failed to get projects: %w", err)
	}

	out := cmd.OutOrStdout()
	if opts.outputJSON {
		return writeJSON(out, view)
	}
	renderView(out, cfg.GitHubUser, view)
	return nil
}

func runTechs(cmd *cobra.Command, opts *options, args []string) error {
	cfg, err := loadConfig(opts, args)
	if err != nil {
		return err
	}

	var techs []domain.TechnologyCount
	if opts.useAPI {
		techs, err = client.NewClient(cfg.APIEndpoint).GetTechnologies(cmd.Context(), cfg.GitHubUser)
	} else {
		err = withAggregator(cfg, func(agg aggregator.Aggregator) error {
			techs, err = agg.GetTechnologies(cmd.Context(), cfg.GitHubUser)
			return err
		})
	}
	if err != nil {
		return fmt.Errorf("failed to get technologies: %w", err)
	}

	out := cmd.OutOrStdout()
	if opts.outputJSON {
		return writeJSON(out, techs)
	}

	fmt.Fprintf(out, "\nTechnologies: %s\n\n", cfg.GitHubUser)
	table := newTable(out)
	table.SetHeader([]string{"Technology", "Projects"})
	for _, tc := range techs {
		table.Append([]string{tc.Name, fmt.Sprintf("%d", tc.Count)})
	}
	table.Render()
	return nil
}

func renderView(out io.Writer, user string, view *portfolio.View) {
	fmt.Fprintf(out, "\nPortfolio: %s\n", user)

	if view.ShowFiltered {
		fmt.Fprintf(out, "\nFiltered Projects (%d): %s\n\n", len(view.Filtered), strings.Join(view.Selected, ", "))
		if len(view.Filtered) == 0 {
			fmt.Fprintln(out, "No projects match the selected technology.")
		} else {
			renderProjects(out, view.Filtered)
		}
	}

	fmt.Fprintf(out, "\n%s (%d)\n\n", view.OthersHeading, len(view.Others))
	renderProjects(out, view.Others)
}

func renderProjects(out io.Writer, projects []*domain.Project) {
	table := newTable(out)
	table.SetHeader([]string{"Title", "Technologies", "Description", "Links"})
	for _, p := range projects {
		table.Append([]string{
			p.Title,
			strings.Join(p.Technologies, ", "),
			p.DescriptionText(),
			strings.Join(p.Links, "\n"),
		})
	}
	table.Render()
}

func newTable(out io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(out)
	table.SetAutoWrapText(false)
	return table
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
