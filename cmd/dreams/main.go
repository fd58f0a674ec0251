package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/pbaille/dreams/internal/config"
	"github.com/pbaille/dreams/internal/domain"
	"github.com/pbaille/dreams/internal/importer"
	"github.com/pbaille/dreams/internal/journal"
	"github.com/pbaille/dreams/internal/store"
	"github.com/pbaille/dreams/internal/theme"
	"github.com/pbaille/dreams/internal/view"
	"github.com/pbaille/dreams/internal/web"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var (
	dbPath     string
	configPath string
	verbose    bool
	format     string

	cfg    = config.DefaultConfig()
	logger = zap.NewNop()
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "dreams",
		Short:        "Dream journal with sentiment and nightmare scoring",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != "json" {
				return fmt.Errorf("invalid format %q: must be text or json", format)
			}

			c, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if dbPath != "" {
				c.DatabasePath = dbPath
			}
			cfg = c

			logger, err = cfg.BuildLogger(verbose)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (overrides config)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&format, "format", "text", "output format (text|json)")

	rootCmd.AddCommand(addCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(themeCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(configCmd())

	return rootCmd
}

func getStore(ctx context.Context) (*store.Store, error) {
	s, err := store.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	logger.Debug("store ready", zap.String("path", s.Path()))
	return s, nil
}

func addCmd() *cobra.Command {
	var title, tags, htmlPath string

	cmd := &cobra.Command{
		Use:   "add [text...]",
		Short: "Record a new dream",
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if htmlPath != "" {
				imported, err := importer.File(htmlPath)
				if err != nil {
					return err
				}
				text = strings.TrimSpace(text + " " + imported)
			}

			s, err := getStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			svc := journal.New(s, journal.WithLogger(logger))
			entry, all, err := svc.Record(cmd.Context(), title, text, tags)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if format == "json" {
				return writeJSON(out, entry)
			}

			fmt.Fprintf(out, "Added entry %d (nightmare %d, sentiment %s)\n\n",
				entry.ID, entry.NI, view.FormatSentiment(entry.Sent))
			return view.RenderText(out, view.Cards(all))
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "entry title")
	cmd.Flags().StringVar(&tags, "tags", "", "free-form tags")
	cmd.Flags().StringVar(&htmlPath, "html", "", "read dream text from an HTML file (- for stdin)")
	return cmd
}

func listCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entries, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			entries, err := s.ListEntries(cmd.Context())
			if err != nil {
				return err
			}
			if limit > 0 && len(entries) > limit {
				entries = entries[:limit]
			}

			return printEntries(cmd.OutOrStdout(), entries)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "number of entries to show (0 for all)")
	return cmd
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show entry details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid entry id: %s", args[0])
			}

			s, err := getStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			entry, err := s.GetEntry(cmd.Context(), id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if format == "json" {
				return writeJSON(out, entry)
			}

			fmt.Fprintf(out, "ID:        %d\n", entry.ID)
			fmt.Fprintf(out, "Created:   %s\n", entry.DT)
			fmt.Fprintf(out, "Title:     %s\n", entry.Title)
			if entry.Tags != "" {
				fmt.Fprintf(out, "Tags:      %s\n", entry.Tags)
			}
			fmt.Fprintf(out, "Nightmare: %d\n", entry.NI)
			fmt.Fprintf(out, "Sentiment: %s\n", view.FormatSentiment(entry.Sent))
			fmt.Fprintf(out, "\n%s\n", entry.Text)
			return nil
		},
	}
}

func searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search [query]",
		Short: "Search titles, text and tags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			entries, err := s.SearchEntries(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if len(entries) == 0 && format == "text" {
				fmt.Fprintln(cmd.OutOrStdout(), "No matching entries found.")
				return nil
			}
			return printEntries(cmd.OutOrStdout(), entries)
		},
	}
}

func themeCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "theme [day|night|toggle|auto]",
		Short:     "Show or change the day/night theme",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"day", "night", "toggle", "auto"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			s, err := getStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			tm := newThemeManager(s)
			if _, err := tm.Apply(ctx); err != nil {
				return err
			}

			if len(args) == 1 {
				switch args[0] {
				case "toggle":
					_, err = tm.Toggle(ctx)
				case "auto":
					_, err = tm.Clear(ctx)
				default:
					err = tm.Set(ctx, domain.Theme(args[0]))
				}
				if err != nil {
					return err
				}
			}

			explicit, err := tm.Explicit(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if format == "json" {
				return writeJSON(out, map[string]interface{}{"theme": tm.Current(), "explicit": explicit})
			}

			source := "from clock"
			if explicit {
				source = "saved"
			}
			fmt.Fprintf(out, "%s (%s)\n", tm.Current(), source)
			return nil
		},
	}
}

func newThemeManager(s *store.Store) *theme.Manager {
	return theme.NewManager(s,
		theme.WithPrefersDark(cfg.Theme.PrefersDark),
		theme.WithLogger(logger),
	)
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the journal in a browser",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			s, err := getStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			tm := newThemeManager(s)
			if _, err := tm.Apply(ctx); err != nil {
				return err
			}
			refreshCtx, stop := context.WithCancel(ctx)
			defer stop()
			go tm.Run(refreshCtx, cfg.GetRefreshInterval())

			if addr == "" {
				addr = cfg.Server.Addr
			}

			server := web.New(journal.New(s, journal.WithLogger(logger)), s, tm, logger)
			return server.Run(ctx, addr, cfg.GetShutdownTimeout())
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "server address (overrides config)")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(configPath); err == nil && !force {
				return fmt.Errorf("config file %s already exists (use --force to overwrite)", configPath)
			}

			c := config.DefaultConfig()
			if dbPath != "" {
				c.DatabasePath = dbPath
			}
			if err := c.Save(configPath); err != nil {
				return err
			}
			logger.Debug("config written", zap.String("path", configPath))

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", configPath)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	printCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if format == "json" {
				return writeJSON(out, cfg)
			}
			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	}

	cmd.AddCommand(initCmd, printCmd)
	return cmd
}

func printEntries(out io.Writer, entries []domain.Entry) error {
	if format == "json" {
		return writeJSON(out, entries)
	}
	return view.RenderText(out, view.Cards(entries))
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
