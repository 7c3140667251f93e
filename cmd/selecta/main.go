// selecta is an interactive fuzzy picker for command pipelines: items
// come from stdin, a re-runnable source command, or the recents store;
// the selection goes to stdout.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/runger/selecta/internal/config"
	"github.com/runger/selecta/internal/filter"
	"github.com/runger/selecta/internal/history"
	"github.com/runger/selecta/internal/item"
	"github.com/runger/selecta/internal/picker"
	"github.com/runger/selecta/internal/source"
	"github.com/runger/selecta/internal/tui"
)

// Version information (set via ldflags during build).
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Exit codes, matching what wrapping shell scripts expect:
//
//	0 = selection made (use the result)
//	1 = cancelled by user
//	2 = fallback (no TTY, error, etc.)
const (
	exitSuccess   = 0
	exitCancelled = 1
	exitFallback  = 2
)

// runOpts holds the parsed command-line options.
type runOpts struct {
	multi         bool
	max           int
	prompt        string
	query         string
	autoSelect    bool
	preserveOrder bool
	hierarchical  bool
	kinded        bool
	sourceTmpl    string
	recents       bool
	filters       []string
}

func main() {
	os.Exit(run(os.Args[1:]))
}

// run builds the cobra command tree and returns an exit code. It is
// separated from main() to enable testing.
func run(args []string) int {
	opts := &runOpts{}
	code := exitSuccess

	root := &cobra.Command{
		Use:           "selecta",
		Short:         "interactive fuzzy selection for command pipelines",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			code = pick(opts)
			return nil
		},
	}

	flags := root.Flags()
	flags.BoolVarP(&opts.multi, "multi", "m", false, "enable multi-selection")
	flags.IntVar(&opts.max, "max", 0, "maximum number of selected items (0 = unlimited)")
	flags.StringVarP(&opts.prompt, "prompt", "p", "", "query line prompt")
	flags.StringVarP(&opts.query, "query", "q", "", "initial query")
	flags.BoolVar(&opts.autoSelect, "auto-select", false, "confirm automatically when one match remains")
	flags.BoolVar(&opts.preserveOrder, "preserve-order", false, "keep original item order instead of ranking by score")
	flags.BoolVar(&opts.hierarchical, "hierarchical", false, "treat tab-indented input as a tree and keep ancestors visible")
	flags.BoolVar(&opts.kinded, "kinded", false, "read a kind<TAB> prefix on each input line")
	flags.StringVar(&opts.sourceTmpl, "source", "", "command run per query to produce items ({q} = query)")
	flags.BoolVar(&opts.recents, "recents", false, "pick from previously confirmed selections")
	flags.StringArrayVar(&opts.filters, "filter", nil, "prefix filter token=kind[,kind...] (repeatable)")

	root.AddCommand(versionCmd())

	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "selecta: %v\n", err)
		return exitFallback
	}
	return code
}

// pick runs one picker session end to end.
func pick(opts *runOpts) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "selecta: failed to load config: %v\n", err)
		return exitFallback
	}

	for _, check := range []func() error{checkTTY, checkTERM, checkTermWidth} {
		if err := check(); err != nil {
			fmt.Fprintf(os.Stderr, "selecta: %v\n", err)
			return exitFallback
		}
	}

	paths := config.DefaultPaths()
	if err := os.MkdirAll(paths.CacheDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "selecta: failed to create cache directory: %v\n", err)
		return exitFallback
	}
	lockFd, err := acquireLock(paths.LockFile())
	if err != nil {
		fmt.Fprintf(os.Stderr, "selecta: %v\n", err)
		return exitFallback
	}
	defer releaseLock(lockFd)

	logger := newLogger()
	coll := item.NewCollection(logger)

	var store *history.Store
	if cfg.History.Enabled || opts.recents {
		dbPath := cfg.History.DBPath
		if dbPath == "" {
			dbPath = paths.HistoryDB()
		}
		store, err = history.NewStore(dbPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "selecta: failed to open recents store: %v\n", err)
			return exitFallback
		}
		defer store.Close()
	}

	adapter, code := buildSource(opts, cfg, coll, store, logger)
	if code != exitSuccess {
		return code
	}
	if adapter != nil {
		defer adapter.Close()
	}

	vocab, err := parseFilterFlags(filter.Vocabulary(cfg.Filters).Normalize(), opts.filters)
	if err != nil {
		fmt.Fprintf(os.Stderr, "selecta: %v\n", err)
		return exitFallback
	}

	session := picker.New(coll, picker.Options{
		Multiselect:    opts.multi,
		MultiselectMax: firstNonZero(opts.max, cfg.Picker.MultiselectMax),
		Hierarchical:   opts.hierarchical,
		AutoSelect:     opts.autoSelect || cfg.Picker.AutoSelect,
		PreserveOrder:  opts.preserveOrder || cfg.Picker.PreserveOrder,
		Prompt:         firstNonEmpty(opts.prompt, cfg.Picker.Prompt),
		InitialQuery:   opts.query,
		Vocabulary:     vocab,
	})

	model := tui.NewModel(session, coll, adapter,
		time.Duration(cfg.Picker.DebounceMs)*time.Millisecond)

	// Open /dev/tty for TUI input/output since stdin/stdout carry data.
	tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "selecta: cannot open /dev/tty: %v\n", err)
		return exitFallback
	}
	defer tty.Close()

	// Detect the color profile from the real tty: stdout is usually a
	// pipe here, which would otherwise force lipgloss to Ascii.
	lipgloss.SetColorProfile(termenv.NewOutput(tty).ColorProfile())

	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithInput(tty),
		tea.WithOutput(tty),
	)

	finalModel, err := p.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "selecta: TUI error: %v\n", err)
		return exitFallback
	}

	m, ok := finalModel.(tui.Model)
	if !ok {
		fmt.Fprintln(os.Stderr, "selecta: unexpected model type")
		return exitFallback
	}
	if m.Cancelled() {
		return exitCancelled
	}

	return emitOutcome(m.Outcome(), cfg, store)
}

// buildSource wires the item source chosen by flags: stdin batch,
// per-query source command, or the recents producer.
func buildSource(opts *runOpts, cfg *config.Config, coll *item.Collection, store *history.Store, logger *slog.Logger) (*source.Adapter, int) {
	srcCfg := source.Config{
		Timeout: time.Duration(cfg.Source.TimeoutMs) * time.Millisecond,
		Gate:    source.ProcessGate(cfg.Source.MaxInflight),
		Logger:  logger,
	}

	switch {
	case opts.recents:
		if store == nil {
			fmt.Fprintln(os.Stderr, "selecta: --recents requires the history store")
			return nil, exitFallback
		}
		producer := history.NewRecentsProducer(store, cfg.History.Limit)
		return source.NewAdapter(producer, srcCfg), exitSuccess

	case opts.sourceTmpl != "":
		producer, err := NewCommandProducer(opts.sourceTmpl, opts.kinded)
		if err != nil {
			fmt.Fprintf(os.Stderr, "selecta: %v\n", err)
			return nil, exitFallback
		}
		return source.NewAdapter(producer, srcCfg), exitSuccess

	default:
		items, err := readItems(os.Stdin, opts.kinded)
		if err != nil {
			fmt.Fprintf(os.Stderr, "selecta: %v\n", err)
			return nil, exitFallback
		}
		coll.Append(items)
		return nil, exitSuccess
	}
}

// emitOutcome prints the picked payloads and records them in the
// recents store.
func emitOutcome(outcome picker.Outcome, cfg *config.Config, store *history.Store) int {
	var picked []item.Item
	switch outcome.Kind {
	case picker.OutcomeSelected:
		picked = []item.Item{outcome.Item}
	case picker.OutcomeMultiSelected:
		picked = outcome.Items
	default:
		return exitCancelled
	}

	for _, it := range picked {
		fmt.Fprintln(os.Stdout, payloadString(it))
	}

	if cfg.History.Enabled && store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := store.Record(ctx, picked); err != nil {
			fmt.Fprintf(os.Stderr, "selecta: failed to record selection: %v\n", err)
		}
	}
	return exitSuccess
}

// payloadString renders an item's payload for stdout.
func payloadString(it item.Item) string {
	if s, ok := it.Payload.(string); ok {
		return s
	}
	if it.Payload != nil {
		return fmt.Sprint(it.Payload)
	}
	return it.Display
}

// newLogger discards diagnostics unless SELECTA_DEBUG=1.
func newLogger() *slog.Logger {
	if os.Getenv("SELECTA_DEBUG") == "1" {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Printf("selecta %s\n", Version)
			fmt.Printf("  commit: %s\n", GitCommit)
			fmt.Printf("  built:  %s\n", BuildDate)
		},
	}
}

func firstNonZero(vals ...int) int {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
