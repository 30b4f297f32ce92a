// Package chatcmder provides the chat command for interactive prompt
// generation.
package chatcmder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/promptsmith/cmd/promptsmith/wiring"
	"github.com/papercomputeco/promptsmith/pkg/chat"
	"github.com/papercomputeco/promptsmith/pkg/cliui"
	"github.com/papercomputeco/promptsmith/pkg/config"
	"github.com/papercomputeco/promptsmith/pkg/conversation"
	"github.com/papercomputeco/promptsmith/pkg/dotdir"
	"github.com/papercomputeco/promptsmith/pkg/eventstream"
	"github.com/papercomputeco/promptsmith/pkg/gateway"
	"github.com/papercomputeco/promptsmith/pkg/llm"
	"github.com/papercomputeco/promptsmith/pkg/prompts"
	"github.com/papercomputeco/promptsmith/pkg/stream"
	"github.com/papercomputeco/promptsmith/pkg/utils"
	"github.com/papercomputeco/promptsmith/proxy/worker"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("assistant> ")
)

const (
	cmdExit = "/exit"
	cmdNew  = "/new"
	cmdSave = "/save"
)

type chatCommander struct {
	flags chatFlags
	cfg   *config.Config

	in     io.Reader
	out    io.Writer
	logger *slog.Logger
}

type chatFlags struct {
	baseURL, apiKey, model, timeout string
	proxyTarget, promptsDir         string
	render                          bool
	maxPendingBytes                 uint
	maxPendingLines                 uint
	sqlitePath, postgresDSN         string
	esProvider, esBrokers, esTopic  string
}

var chatFlagKeys = []string{
	config.FlagBaseURL,
	config.FlagAPIKey,
	config.FlagModel,
	config.FlagTimeout,
	config.FlagProxyTarget,
	config.FlagPromptsDir,
	config.FlagRender,
	config.FlagMaxPendingBytes,
	config.FlagMaxPendingLines,
	config.FlagSQLite,
	config.FlagPostgres,
	config.FlagEventStreamProv,
	config.FlagEventStreamBroks,
	config.FlagEventStreamTopic,
}

const chatLongDesc string = `Start an interactive prompt generation session.

Describe the prompt you need and refine it over several turns. Replies
stream as they arrive. Press Ctrl+C to stop a reply early; the text received
so far is kept.

Messages go straight to the configured gateway with the generate-prompt
system prompt, or through a running "promptsmith serve" when --proxy-target
is set.

If a checkout exists (from "promptsmith history checkout"), the conversation
resumes from it. Finished turns are stored in the configured history store.

Commands inside the session:
  /new    Start a new conversation
  /save   Check out the current conversation for the next session
  /exit   Quit (Ctrl+D also works)

Examples:
  promptsmith chat --model gpt-4o-mini
  promptsmith chat --proxy-target http://localhost:8080
  promptsmith chat --render`

const chatShortDesc string = "Interactive prompt generation"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := wiring.LoadConfig(cmd, chatFlagKeys...)
			if err != nil {
				return err
			}
			cmder.cfg = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()
			cmder.logger = wiring.NewCLILogger(cmd)
			configDir, _ := cmd.Flags().GetString("config-dir")
			return cmder.run(cmd.Context(), configDir)
		},
	}

	f := &cmder.flags
	config.AddStringFlag(cmd, config.Flags, config.FlagBaseURL, &f.baseURL)
	config.AddStringFlag(cmd, config.Flags, config.FlagAPIKey, &f.apiKey)
	config.AddStringFlag(cmd, config.Flags, config.FlagModel, &f.model)
	config.AddStringFlag(cmd, config.Flags, config.FlagTimeout, &f.timeout)
	config.AddStringFlag(cmd, config.Flags, config.FlagProxyTarget, &f.proxyTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagPromptsDir, &f.promptsDir)
	config.AddBoolFlag(cmd, config.Flags, config.FlagRender, &f.render)
	config.AddUintFlag(cmd, config.Flags, config.FlagMaxPendingBytes, &f.maxPendingBytes)
	config.AddUintFlag(cmd, config.Flags, config.FlagMaxPendingLines, &f.maxPendingLines)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &f.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgres, &f.postgresDSN)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventStreamProv, &f.esProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventStreamBroks, &f.esBrokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventStreamTopic, &f.esTopic)

	return cmd
}

func (c *chatCommander) run(ctx context.Context, configDir string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := c.cfg
	viaProxy := cfg.Client.ProxyTarget != ""

	driver, err := wiring.NewStorageDriver(ctx, cfg, c.logger)
	if err != nil {
		return err
	}
	defer driver.Close()

	publisher, err := wiring.NewPublisher(cfg, c.logger)
	if err != nil {
		return err
	}

	pool, err := worker.NewPool(&worker.Config{
		Driver:     driver,
		Publisher:  publisher,
		NumWorkers: 1,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}
	defer pool.Close()

	client, err := wiring.NewGatewayClient(cfg, viaProxy, c.logger)
	if err != nil {
		return err
	}

	// The proxy adds the system prompt itself.
	var system string
	if !viaProxy {
		library, err := prompts.New(cfg.Proxy.PromptsDir, c.logger)
		if err != nil {
			return fmt.Errorf("loading prompts: %w", err)
		}
		system, err = library.Get(prompts.GeneratePrompt)
		if err != nil {
			return err
		}
	}

	s := &session{
		in:         c.in,
		out:        c.out,
		render:     cfg.Client.Render,
		model:      cfg.Gateway.Model,
		configDir:  configDir,
		checkouts:  dotdir.NewManager(),
		logger:     c.logger,
		turnSource: eventstream.EventSource{Service: "promptsmith-cli", Path: "chat", Model: cfg.Gateway.Model},
		enqueue:    pool.Enqueue,
	}

	svc, err := chat.New(chat.Config{
		Opener:             client,
		Model:              cfg.Gateway.Model,
		System:             system,
		Temperature:        llm.Float64(cfg.Gateway.Temperature),
		SendConversationID: viaProxy,
		StreamOptions:      wiring.StreamOptions(cfg),
		OnTurn:             s.onTurn,
		Logger:             c.logger,
	})
	if err != nil {
		return err
	}
	s.svc = svc

	return s.loop(ctx)
}

// session is one interactive chat. It owns the current conversation and
// prints replies as they stream in.
type session struct {
	svc *chat.Service

	in        io.Reader
	out       io.Writer
	render    bool
	model     string
	configDir string
	checkouts *dotdir.Manager
	logger    *slog.Logger

	turnSource eventstream.EventSource
	turnStart  time.Time
	enqueue    func(worker.Job) bool

	conv *conversation.State
}

func (s *session) loop(ctx context.Context) error {
	if err := s.resume(); err != nil {
		return err
	}

	fmt.Fprintf(s.out, "  %s %s\n\n",
		cliui.KeyStyle.Render("Model:"),
		cliui.NameStyle.Render(s.model),
	)
	fmt.Fprintf(s.out, "  %s\n\n", cliui.DimStyle.Render("Describe the prompt you need. /new, /save, /exit or Ctrl+D to quit."))

	scanner := bufio.NewScanner(s.in)
	for {
		fmt.Fprint(s.out, userPrompt)
		if !scanner.Scan() {
			// EOF or error
			break
		}

		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case cmdExit:
			fmt.Fprintln(s.out)
			return nil
		case cmdNew:
			s.start(conversation.New())
			fmt.Fprintf(s.out, "  %s New conversation\n\n", cliui.DimStyle.Render("●"))
			continue
		case cmdSave:
			if err := s.save(); err != nil {
				fmt.Fprintf(s.out, "  %s %v\n\n", cliui.FailMark, err)
			}
			continue
		}

		s.send(ctx, input)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintln(s.out)
	return nil
}

// resume starts from the checked out conversation when there is one.
func (s *session) resume() error {
	checkout, err := s.checkouts.LoadCheckoutState(s.configDir)
	if err != nil {
		return fmt.Errorf("loading checkout state: %w", err)
	}

	fmt.Fprintln(s.out)
	if checkout == nil {
		s.start(conversation.New())
		fmt.Fprintf(s.out, "  %s New conversation\n", cliui.DimStyle.Render("●"))
		return nil
	}

	s.start(conversation.Restore(checkout.Conversation))
	fmt.Fprintf(s.out, "  %s Resuming %s %s\n",
		cliui.SuccessMark,
		cliui.IDStyle.Render(utils.Truncate(s.conv.Title(), 40)),
		cliui.DimStyle.Render(fmt.Sprintf("(%d messages)", s.conv.Len())),
	)
	return nil
}

func (s *session) start(conv *conversation.State) {
	s.conv = conv
	if s.render {
		return
	}
	conv.Observe(func(ch conversation.Change) {
		if ch.Message.Role != llm.RoleAssistant {
			return
		}
		if ch.Kind == conversation.ChangeAppend {
			fmt.Fprint(s.out, assistantPrompt)
		}
		fmt.Fprint(s.out, ch.Delta)
	})
}

// send runs one turn. Ctrl+C cancels the reply, not the session.
func (s *session) send(ctx context.Context, input string) {
	turnCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	s.turnStart = time.Now()
	res, err := s.svc.Send(turnCtx, s.conv, llm.NewTextMessage(llm.RoleUser, input))
	fmt.Fprintln(s.out)

	if res != nil && s.render && res.Content != "" {
		rendered, rerr := cliui.RenderMarkdown(res.Content)
		if rerr != nil {
			s.logger.Debug("rendering markdown", "error", rerr)
		}
		fmt.Fprint(s.out, rendered)
	}

	if err != nil {
		s.printError(err)
		return
	}
	if res.DroppedFragments > 0 {
		fmt.Fprintf(s.out, "  %s\n", cliui.DimStyle.Render(fmt.Sprintf("(%d malformed frames skipped)", res.DroppedFragments)))
	}
	fmt.Fprintln(s.out)
}

func (s *session) printError(err error) {
	var se *gateway.StatusError
	switch {
	case errors.As(err, &se):
		fmt.Fprintf(s.out, "  %s %s\n", cliui.FailMark, se.Message)
		if se.Fallback != "" {
			fmt.Fprintf(s.out, "  %s\n", cliui.DimStyle.Render(se.Fallback))
		}
	case errors.Is(err, context.Canceled):
		fmt.Fprintf(s.out, "  %s\n", cliui.DimStyle.Render("(stopped)"))
	default:
		fmt.Fprintf(s.out, "  %s %v\n", cliui.FailMark, err)
	}
	fmt.Fprintln(s.out)
}

// onTurn hands every turn that produced text to the history worker pool.
func (s *session) onTurn(_ context.Context, conv *conversation.State, res *stream.Result) {
	if res.State != stream.Completed && res.Deltas == 0 {
		return
	}
	s.enqueue(worker.NewJob(s.turnSource, conv, res, time.Since(s.turnStart)))
}

func (s *session) save() error {
	state := &dotdir.CheckoutState{Conversation: s.conv.Snapshot()}
	if err := s.checkouts.SaveCheckout(state, s.configDir); err != nil {
		return fmt.Errorf("saving checkout: %w", err)
	}
	fmt.Fprintf(s.out, "  %s Checked out %s\n\n", cliui.SuccessMark, cliui.IDStyle.Render(s.conv.ID()))
	return nil
}
