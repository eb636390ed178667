// Package chatcmder provides the chat command for interactive conversations
// with NathIA through the backend gateway.
package chatcmder

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nossamaternidade/nathia/gateway"
	"github.com/nossamaternidade/nathia/pkg/apperr"
	"github.com/nossamaternidade/nathia/pkg/classify"
	"github.com/nossamaternidade/nathia/pkg/cliui"
	"github.com/nossamaternidade/nathia/pkg/config"
	"github.com/nossamaternidade/nathia/pkg/history"
	historysqlite "github.com/nossamaternidade/nathia/pkg/history/sqlite"
	"github.com/nossamaternidade/nathia/pkg/llm"
	"github.com/nossamaternidade/nathia/pkg/llm/provider"
	"github.com/nossamaternidade/nathia/pkg/logger"
	"github.com/nossamaternidade/nathia/pkg/ratelimit"
	"github.com/nossamaternidade/nathia/pkg/session"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("nathia> ")
)

type chatCommander struct {
	baseURL    string
	endpoint   string
	token      string
	sqlitePath string
	provider   string
	onDevice   bool
	debug      bool

	// cfg carries the non-flag settings (timeouts, rate limits, minimum
	// response length) resolved through the same viper chain.
	cfg *config.Config

	logger *slog.Logger

	// streamed counts the bytes already printed by the chunk callback so
	// post-processed suffixes can be printed once the send returns.
	streamed int
}

const chatLongDesc string = `Start an interactive chat session with NathIA.

Messages go through the local safety gate and rate limiter before
reaching the backend. Crisis, medical-emergency, and identity questions
are answered locally with fixed guidance; everything else is routed to
the best provider and streamed token by token.

Ctrl+C cancels the in-flight response without leaving the session.
Use /exit or Ctrl+D to quit.

Examples:
  nathia chat
  nathia chat --base-url https://myproject.functions.supabase.co
  nathia chat --provider claude --sqlite ~/.nathia/history.db`

const chatShortDesc string = "Interactive chat with NathIA"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.ChatFlags, []string{
				config.FlagBaseURL,
				config.FlagEndpoint,
				config.FlagToken,
				config.FlagSQLite,
				config.FlagProvider,
				config.FlagOnDevice,
			})

			cmder.baseURL = v.GetString("backend.base_url")
			cmder.endpoint = v.GetString("backend.chat_endpoint")
			cmder.token = v.GetString("auth.token")
			cmder.sqlitePath = v.GetString("history.sqlite_path")
			cmder.provider = v.GetString("chat.preferred_provider")
			cmder.onDevice = v.GetBool("chat.on_device")

			cmder.cfg, err = config.FromViper(v)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, config.ChatFlags, config.FlagBaseURL, &cmder.baseURL)
	config.AddStringFlag(cmd, config.ChatFlags, config.FlagEndpoint, &cmder.endpoint)
	config.AddStringFlag(cmd, config.ChatFlags, config.FlagToken, &cmder.token)
	config.AddStringFlag(cmd, config.ChatFlags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.ChatFlags, config.FlagProvider, &cmder.provider)
	config.AddBoolFlag(cmd, config.ChatFlags, config.FlagOnDevice, &cmder.onDevice)

	return cmd
}

func (c *chatCommander) run() error {
	debug := c.debug || c.cfg.Log.Level == "debug"
	c.logger = logger.New(
		logger.WithPretty(c.cfg.Log.Format == "pretty"),
		logger.WithJSON(c.cfg.Log.Format == "json"),
		logger.WithWriter(os.Stderr),
		logger.WithDebug(debug),
		logger.WithSource(debug),
	)

	if c.baseURL == "" {
		return fmt.Errorf("no backend base URL configured (set backend.base_url or NATHIA_BACKEND_BASE_URL)")
	}
	if c.token == "" {
		return fmt.Errorf("no session token configured (set NATHIA_AUTH_TOKEN)")
	}

	var store history.Store = history.Nop{}
	if c.sqlitePath != "" {
		var s *historysqlite.Store
		if err := cliui.Step(os.Stdout, "Opening history store", func() error {
			var err error
			s, err = historysqlite.New(c.sqlitePath)
			return err
		}); err != nil {
			return fmt.Errorf("opening history store: %w", err)
		}
		defer s.Close()
		store = s
	}

	limiter := ratelimit.New()
	limiter.SetConfig(ratelimit.KeyChat, ratelimit.Config{
		MaxRequests: c.cfg.RateLimit.ChatMaxRequests,
		Window:      time.Duration(c.cfg.RateLimit.ChatWindowSeconds) * time.Second,
	})
	limiter.SetConfig(ratelimit.KeyChatBurst, ratelimit.Config{
		MaxRequests: c.cfg.RateLimit.BurstMaxRequests,
		Window:      time.Duration(c.cfg.RateLimit.BurstWindowSeconds) * time.Second,
	})

	gw, err := gateway.New(gateway.Config{
		BaseURL:          c.baseURL,
		ChatEndpoint:     c.endpoint,
		Session:          session.Static(c.token),
		Capability:       provider.FixedCapability(c.onDevice),
		Limiter:          limiter,
		History:          store,
		Logger:           c.logger,
		Timeout:          time.Duration(c.cfg.Backend.TimeoutSeconds) * time.Second,
		StreamTimeout:    time.Duration(c.cfg.Backend.StreamTimeoutSeconds) * time.Second,
		MinResponseChars: c.cfg.Chat.MinResponseChars,
		OnChunk: func(text string) {
			fmt.Print(text)
			c.streamed += len(text)
		},
		OnStreaming: func(active bool) {
			if active {
				fmt.Print(assistantPrompt)
			}
		},
	})
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}

	// Ctrl+C cancels the in-flight response; it does not end the session.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		for range sigs {
			gw.Cancel()
		}
	}()

	conversationID := uuid.NewString()
	var messages []llm.Message

	fmt.Println()
	fmt.Printf("  %s New conversation\n", cliui.DimStyle.Render("●"))
	fmt.Printf("  %s %s\n\n",
		cliui.KeyStyle.Render("Backend:"),
		cliui.NameStyle.Render(c.baseURL),
	)
	fmt.Printf("  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. Ctrl+C cancels a response. /exit or Ctrl+D to quit."))

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print(userPrompt)
		if !scanner.Scan() {
			// EOF or error
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/exit" {
			break
		}

		messages = append(messages, llm.UserMessage(input))

		sendCtx := llm.Context{
			RequiresGrounding: classify.DetectMedicalQuestion(input),
			EstimatedTokens:   classify.EstimateTokens(messages),
			ConversationID:    conversationID,
			PreferredProvider: c.provider,
		}

		c.streamed = 0
		resp, err := gw.Send(context.Background(), messages, sendCtx)
		if err != nil {
			// Remove the failed user message so it can be retried.
			messages = messages[:len(messages)-1]

			if apperr.IsCode(err, apperr.RequestCancelled) {
				fmt.Printf("\n  %s\n\n", cliui.DimStyle.Render("(resposta cancelada)"))
				continue
			}

			userMsg := apperr.UserMessage(apperr.Unknown)
			if typed, ok := apperr.As(err); ok {
				userMsg = typed.UserMsg
			}
			mark := cliui.FailMark
			if apperr.IsCode(err, apperr.RateLimited) {
				mark = cliui.WarnMark
			}
			c.logger.Debug("send failed", "error", err)
			fmt.Fprintf(os.Stderr, "\n  %s %s\n\n", mark, userMsg)
			continue
		}

		c.printResponse(resp)
		messages = append(messages, llm.AssistantMessage(resp.Content))
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Println()
	return nil
}

// printResponse prints whatever the chunk callback has not already shown.
// Streamed sends only need their post-processed suffix; non-streamed and
// blocked sends are rendered as markdown in full.
func (c *chatCommander) printResponse(resp *llm.Response) {
	footer := cliui.DimStyle.Render(fmt.Sprintf("(%s · %s)", cliui.FormatDuration(resp.Latency), resp.Provider))

	if resp.WasStreamed || c.streamed > 0 {
		if c.streamed < len(resp.Content) {
			fmt.Print(resp.Content[c.streamed:])
		}
		fmt.Printf("\n  %s\n\n", footer)
		return
	}

	fmt.Print(assistantPrompt)
	rendered, err := cliui.RenderMarkdown(resp.Content)
	if err != nil {
		rendered = resp.Content + "\n"
	}
	fmt.Println()
	fmt.Print(rendered)
	fmt.Printf("  %s\n\n", footer)
}
