// Package cli implements posctl, the cashier and kitchen terminal.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tablepos/api/internal/config"
	"github.com/tablepos/api/internal/logging"
	"github.com/tablepos/api/internal/posclient"
	"github.com/tablepos/api/internal/session"
	"github.com/tablepos/api/internal/sessionstore"
	"golang.org/x/term"
)

// App holds what every command needs. Out, Err and In default to the
// process streams; Store overrides the configured session store.
type App struct {
	Out   io.Writer
	Err   io.Writer
	In    io.Reader
	Store sessionstore.Store

	configPath string
	flags      config.ClientConfig
	plain      bool

	cfg     config.ClientConfig
	log     *slog.Logger
	client  *posclient.Client
	store   sessionstore.Store
	manager *session.Manager
	render  renderer
	input   *bufio.Reader
}

// Execute runs posctl with args and returns the process exit code. Any
// failure is printed as a single line on stderr.
func Execute(ctx context.Context, args []string) int {
	app := &App{Out: os.Stdout, Err: os.Stderr, In: os.Stdin}
	return app.Run(ctx, args)
}

func (a *App) Run(ctx context.Context, args []string) int {
	root := NewRootCmd(a)
	root.SetArgs(args)
	root.SetOut(a.Out)
	root.SetErr(a.Err)
	err := root.ExecuteContext(ctx)
	if c, ok := a.store.(io.Closer); ok && a.Store == nil {
		c.Close()
	}
	if err != nil {
		fmt.Fprintln(a.Err, "error: "+err.Error())
		return 1
	}
	return 0
}

// NewRootCmd builds the command tree around a.
func NewRootCmd(a *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "posctl",
		Short:         "Table POS terminal",
		Long:          `posctl drives table orders, kitchen tickets and checkout against the table POS API.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.save(cmd.Context())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "posctl.yaml", "Path to the YAML config file")
	pf.StringVar(&a.flags.BaseURL, "base-url", "", "API base URL, e.g. http://localhost:8081/api/v1")
	pf.StringVar(&a.flags.Token, "token", "", "Bearer token (overrides the stored login)")
	pf.StringVar(&a.flags.Terminal, "terminal", "", "Terminal name used to keep the session")
	pf.StringVar(&a.flags.SessionDir, "session-dir", "", "Directory for the file session store")
	pf.StringVar(&a.flags.RedisAddr, "redis", "", "Keep the session in Redis at this address instead of a file")
	pf.StringVar(&a.flags.LogLevel, "log-level", "", "debug, info, warn or error")
	pf.BoolVar(&a.plain, "plain", false, "Print markdown without terminal styling")

	root.AddCommand(
		newLoginCmd(a),
		newTablesCmd(a),
		newMenuCmd(a),
		newSelectCmd(a),
		newShowCmd(a),
		newAddCmd(a),
		newQtyCmd(a),
		newNoteCmd(a),
		newRmCmd(a),
		newSendCmd(a),
		newPayCmd(a),
		newChangeCmd(a),
		newMergeCmd(a),
		newSplitCmd(a),
		newKitchenCmd(a),
		newLogoutCmd(a),
	)
	return root
}

func (a *App) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadClient(a.configPath)
	if err != nil {
		return err
	}
	overlay(&cfg, a.flags)
	a.cfg = cfg

	a.log = logging.New(logging.ParseLevel(cfg.LogLevel))
	a.render = newRenderer(a.plain)
	if a.In != nil {
		a.input = bufio.NewReader(a.In)
	}

	switch {
	case a.Store != nil:
		a.store = a.Store
	case cfg.RedisAddr != "":
		a.store = sessionstore.NewRedisStore(cfg.RedisAddr,
			sessionstore.WithPrefix(cfg.RedisPrefix),
			sessionstore.WithTTL(cfg.SessionTTL),
		)
	default:
		a.store = sessionstore.NewFileStore(cfg.SessionDir)
	}

	state, err := a.store.Load(cmd.Context(), cfg.Terminal)
	if err != nil && !errors.Is(err, sessionstore.ErrNotFound) {
		return fmt.Errorf("failed to load session: %w", err)
	}
	if cfg.Token != "" {
		state.Token = cfg.Token
	}

	a.client = posclient.New(cfg.BaseURL, posclient.WithToken(state.Token))
	a.manager = session.NewManager(a.client, a.log)
	a.manager.Restore(state)
	a.log.Debug("session loaded", "terminal", cfg.Terminal, "base_url", cfg.BaseURL)
	return nil
}

func (a *App) save(ctx context.Context) error {
	if a.manager == nil {
		return nil
	}
	if err := a.store.Save(ctx, a.cfg.Terminal, a.manager.Snapshot()); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func overlay(cfg *config.ClientConfig, flags config.ClientConfig) {
	if flags.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(flags.BaseURL, "/")
	}
	if flags.Token != "" {
		cfg.Token = flags.Token
	}
	if flags.Terminal != "" {
		cfg.Terminal = flags.Terminal
	}
	if flags.SessionDir != "" {
		cfg.SessionDir = flags.SessionDir
	}
	if flags.RedisAddr != "" {
		cfg.RedisAddr = flags.RedisAddr
	}
	if flags.LogLevel != "" {
		cfg.LogLevel = flags.LogLevel
	}
}

// print renders markdown to Out.
func (a *App) print(markdown string) error {
	out, err := a.render(markdown)
	if err != nil {
		return err
	}
	_, err = io.WriteString(a.Out, out)
	return err
}

// confirm asks a yes/no question on Out and reads the answer from In.
// Anything but y or yes is a no.
func (a *App) confirm(prompt string) bool {
	fmt.Fprintf(a.Out, "%s [y/N] ", prompt)
	if a.input == nil {
		return false
	}
	answer, _ := a.input.ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func (a *App) readLine(prompt string) string {
	fmt.Fprint(a.Out, prompt)
	if a.input == nil {
		return ""
	}
	line, _ := a.input.ReadString('\n')
	return strings.TrimSpace(line)
}

// readPassword reads without echo when In is a terminal.
func (a *App) readPassword(prompt string) string {
	f, ok := a.In.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return a.readLine(prompt)
	}
	fmt.Fprint(a.Out, prompt)
	pw, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(a.Out)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(pw))
}
