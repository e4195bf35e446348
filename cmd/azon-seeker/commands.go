// cmd/azon-seeker/commands.go
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/primedigitaltech/azon-seeker/internal/api"
	"github.com/primedigitaltech/azon-seeker/internal/config"
	"github.com/primedigitaltech/azon-seeker/internal/engine"
	"github.com/primedigitaltech/azon-seeker/internal/utils"
)

type globalFlags struct {
	configFile string
	debug      bool
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "azon-seeker",
		Short:         "Collect product listings, details and reviews from a live browser",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "", "configuration file (defaults apply when empty)")
	root.PersistentFlags().BoolVar(&flags.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newServeCommand(flags),
		newRunCommand(flags),
		newValidateCommand(),
		newConfigCommand(),
		newVersionCommand(),
	)
	return root
}

func loadConfig(flags *globalFlags) (*config.Config, error) {
	cfg := config.Default()
	if flags.configFile != "" {
		loaded, err := config.LoadFromFile(flags.configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if flags.debug {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

func newServeCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Attach to the browser and serve the control API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			logger, err := utils.NewLogger(cfg.Logging)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			e, err := engine.Open(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer e.Close(context.WithoutCancel(ctx))

			if flags.configFile != "" {
				watcher, err := config.NewConfigWatcher(flags.configFile, logger)
				if err != nil {
					logger.Warnf("config reload disabled: %v", err)
				} else {
					defer watcher.Close()
					watcher.OnChange(e.ApplyConfig)
				}
			}

			return api.NewServer(e).ListenAndServe(ctx)
		},
	}
}

type runOptions struct {
	inputFile  string
	aplus      bool
	extra      bool
	topReviews bool
	recent     bool
	review     bool
}

func newRunCommand(flags *globalFlags) *cobra.Command {
	opts := &runOptions{}
	run := &cobra.Command{
		Use:   "run",
		Short: "Run one traversal and wait for it to finish",
	}
	run.PersistentFlags().StringVarP(&opts.inputFile, "file", "f", "", "read inputs from a file, one per line")

	jobs := []struct {
		use   string
		short string
		build func(e *engine.Engine, inputs []string) (engine.Job, error)
	}{
		{"amazon-search [keywords...]", "List Amazon search results for keywords", func(e *engine.Engine, in []string) (engine.Job, error) {
			return e.AmazonSearch(in)
		}},
		{"amazon-detail [asin|url...]", "Collect Amazon product details", func(e *engine.Engine, in []string) (engine.Job, error) {
			return e.AmazonDetail(in, engine.AmazonDetailOptions{APlus: opts.aplus, Extra: opts.extra, TopReviews: opts.topReviews})
		}},
		{"amazon-review [asin|url...]", "Collect Amazon reviews", func(e *engine.Engine, in []string) (engine.Job, error) {
			return e.AmazonReview(in, opts.recent)
		}},
		{"homedepot-detail [osmid...]", "Collect Home Depot product details", func(e *engine.Engine, in []string) (engine.Job, error) {
			return e.HomedepotDetail(in, opts.review)
		}},
		{"lowes-detail [url...]", "Collect Lowe's product details", func(e *engine.Engine, in []string) (engine.Job, error) {
			return e.LowesDetail(in)
		}},
	}

	for _, j := range jobs {
		build := j.build
		sub := &cobra.Command{
			Use:   j.use,
			Short: j.short,
			RunE: func(cmd *cobra.Command, args []string) error {
				inputs, err := collectInputs(args, opts.inputFile)
				if err != nil {
					return err
				}
				return runJob(cmd, flags, inputs, build)
			},
		}
		switch {
		case strings.HasPrefix(j.use, "amazon-detail"):
			sub.Flags().BoolVar(&opts.aplus, "aplus", false, "capture the A+ content")
			sub.Flags().BoolVar(&opts.extra, "extra", false, "collect extra product fields")
			sub.Flags().BoolVar(&opts.topReviews, "top-reviews", false, "collect the reviews shown on the product page")
		case strings.HasPrefix(j.use, "amazon-review"):
			sub.Flags().BoolVar(&opts.recent, "recent", false, "sort reviews by most recent")
		case strings.HasPrefix(j.use, "homedepot-detail"):
			sub.Flags().BoolVar(&opts.review, "review", false, "collect reviews as well")
		}
		run.AddCommand(sub)
	}
	return run
}

func runJob(cmd *cobra.Command, flags *globalFlags, inputs []string, build func(*engine.Engine, []string) (engine.Job, error)) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	logger, err := utils.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := engine.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer e.Close(context.WithoutCancel(ctx))

	job, err := build(e, inputs)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		e.Workers.StopAll()
	}()

	status, err := e.Submit(context.WithoutCancel(ctx), job)
	if encErr := printJSON(cmd.OutOrStdout(), status); encErr != nil {
		return encErr
	}
	return err
}

// collectInputs joins positional args with the lines of file. Blank lines
// and lines starting with # are skipped.
func collectInputs(args []string, file string) ([]string, error) {
	inputs := append([]string(nil), args...)
	if file == "" {
		return inputs, nil
	}
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()
	lines, err := readInputs(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}
	return append(inputs, lines...), nil
}

func readInputs(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config.yaml>",
		Short: "Validate a configuration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.LoadFromFile(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", args[0])
			return nil
		},
	}
}

func newConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the default configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.SaveToWriter(config.Default(), cmd.OutOrStdout())
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "azon-seeker %s\n", version)
	fmt.Fprintf(w, "Build time: %s\n", buildTime)
	fmt.Fprintf(w, "Git commit: %s\n", gitCommit)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
