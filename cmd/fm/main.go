package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/kr/pretty"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/Xuexl-Mack/Formality/pkg/core"
	"github.com/Xuexl-Mack/Formality/pkg/inet"
	"github.com/Xuexl-Mack/Formality/pkg/ioctx"
	"github.com/Xuexl-Mack/Formality/pkg/runtime"
)

// Config holds the application configuration.
type Config struct {
	Debug bool
	Lazy  bool
}

func main() {
	var cfg Config

	rootCmd := &cobra.Command{
		Use:   "fm",
		Short: "Formality kernel",
		Long: `fm drives the proof-assistant kernel: type-check definitions,
normalize them with the term reducer, or run their erased form on the
graph and interaction-net runtimes.`,
		Example: `  # Type-check a definition
  fm check defs.fm main

  # Normalize with the term reducer
  fm norm defs.fm main

  # Run on the graph runtime
  fm run defs.fm main

  # Run on the interaction-net runtime, lazily
  fm inet --lazy defs.fm main`,
	}

	rootCmd.PersistentFlags().BoolVarP(&cfg.Debug, "debug", "d", false, "Enable debug logging")

	checkCmd := &cobra.Command{
		Use:   "check <file> <name>",
		Short: "Type-check a definition and print its type",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), cfg, args[0], args[1])
		},
	}

	normCmd := &cobra.Command{
		Use:   "norm <file> <name>",
		Short: "Normalize a definition with the term reducer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNorm(cmd.Context(), cfg, args[0], args[1])
		},
	}

	runCmd := &cobra.Command{
		Use:   "run <file> <name>",
		Short: "Reduce a definition's erased form on the graph runtime",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(cmd.Context(), cfg, args[0], args[1])
		},
	}

	inetCmd := &cobra.Command{
		Use:   "inet <file> <name>",
		Short: "Reduce a definition's erased form on the interaction-net runtime",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNet(cmd.Context(), cfg, args[0], args[1])
		},
	}
	inetCmd.Flags().BoolVar(&cfg.Lazy, "lazy", false, "Use the lazy scheduler")

	rootCmd.AddCommand(checkCmd, normCmd, runCmd, inetCmd)

	ctx := context.Background()
	ctx = ioctx.StdoutToContext(ctx, os.Stdout)
	ctx = ioctx.StderrToContext(ctx, os.Stderr)
	ctx = ioctx.SinkToContext(ctx, ioctx.WriterSink{W: os.Stderr})
	if err := fang.Execute(ctx, rootCmd,
		fang.WithErrorHandler(func(w io.Writer, styles fang.Styles, err error) {
			_, _ = fmt.Fprintln(w, err.Error())
		}),
	); err != nil {
		os.Exit(1)
	}
}

func setupLogging(cfg Config) {
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level}))
	slog.SetDefault(logger)
}

func loadFile(path string) (*core.Book, string, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	book, err := LoadBook(path, string(src))
	if err != nil {
		return nil, "", err
	}
	return book, string(src), nil
}

func runCheck(ctx context.Context, cfg Config, path, name string) error {
	setupLogging(cfg)
	book, src, err := loadFile(path)
	if err != nil {
		return err
	}
	if cfg.Debug {
		slog.Debug("loaded book", "defs", len(book.Defs))
		pretty.Fprintf(os.Stderr, "%# v\n", book.Defs[name])
	}

	typ, err := book.Check(ctx, name)
	if err != nil {
		if te, ok := err.(*core.TypeError); ok {
			fmt.Fprint(os.Stderr, te.FormatWithSource(src))
			return fmt.Errorf("%s does not check", name)
		}
		return err
	}
	fmt.Fprintf(ioctx.StdoutFromContext(ctx), "%s : %s\n", name, core.Show(typ))

	if !core.IsAffine(book.Defs[name], book.Defs) {
		slog.Warn("definition is not affine", "name", name)
	}
	if !core.IsTerminating(book.Defs[name], book.Defs) {
		slog.Warn("definition recurses through its references", "name", name)
	}
	return nil
}

func runNorm(ctx context.Context, cfg Config, path, name string) error {
	setupLogging(cfg)
	book, _, err := loadFile(path)
	if err != nil {
		return err
	}
	body, ok := book.Defs[name]
	if !ok {
		return fmt.Errorf("undefined reference %s", name)
	}
	norm, err := book.Normalize(ctx, body)
	if err != nil {
		return err
	}
	fmt.Fprintln(ioctx.StdoutFromContext(ctx), core.Show(norm))
	return nil
}

func runGraph(ctx context.Context, cfg Config, path, name string) error {
	setupLogging(cfg)
	book, _, err := loadFile(path)
	if err != nil {
		return err
	}
	m, err := runtime.Compile(book, name)
	if err != nil {
		return err
	}
	if err := m.Normalize(); err != nil {
		return err
	}
	out, err := m.Decompile()
	if err != nil {
		return err
	}
	fmt.Fprintln(ioctx.StdoutFromContext(ctx), core.Show(out))
	slog.Info("graph runtime stats",
		"beta", m.Stats.Beta, "copy", m.Stats.Copy, "max_len", m.Stats.MaxLen)
	return nil
}

func runNet(ctx context.Context, cfg Config, path, name string) error {
	setupLogging(cfg)
	book, _, err := loadFile(path)
	if err != nil {
		return err
	}
	net, err := inet.Compile(book, name)
	if err != nil {
		return err
	}
	if cfg.Lazy {
		err = net.ReduceLazy()
	} else {
		err = net.Reduce()
	}
	if err != nil {
		return err
	}
	out, err := net.Decompile()
	if err != nil {
		return err
	}
	fmt.Fprintln(ioctx.StdoutFromContext(ctx), core.Show(out))
	slog.Info("net runtime stats",
		"rewrites", net.Stats.Rewrites, "loops", net.Stats.Loops, "max_len", net.Stats.MaxLen)
	return nil
}
