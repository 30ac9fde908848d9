// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot question handling for the ember CLI.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/ember-tui/internal/config"
	"github.com/jeranaias/ember-tui/internal/engine"
	"github.com/jeranaias/ember-tui/internal/ingest"
	"github.com/jeranaias/ember-tui/internal/model"
	"github.com/jeranaias/ember-tui/internal/provider"
	"github.com/jeranaias/ember-tui/internal/provider/gemini"
	"github.com/jeranaias/ember-tui/internal/provider/pollinations"
	"github.com/jeranaias/ember-tui/internal/think"
	"github.com/jeranaias/ember-tui/internal/ui/styles"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	thoughtStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			Italic(true)

	sourceStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan)

	errorStyle = lipgloss.NewStyle().
			Foreground(styles.Red)
)

// =============================================================================
// ENGINE CONSTRUCTION
// =============================================================================

// BuildEngine assembles the two drivers and an engine from configuration.
// onUpdate and onPersist may be nil for callers that only want the settled
// reply.
func BuildEngine(cfg *config.Config, providerOverride string, onUpdate func(messageID string), onPersist func(*model.ChatSession)) (*engine.Engine, error) {
	geminiClient := gemini.New(&gemini.Config{
		APIKey:         cfg.Gemini.APIKey,
		Model:          cfg.Gemini.Model,
		ThinkingBudget: cfg.Gemini.ThinkingBudget,
	})
	pollinationsClient := pollinations.New(&pollinations.Config{
		Endpoint: cfg.Pollinations.Endpoint,
		APIKey:   cfg.Pollinations.APIKey,
		Model:    cfg.Pollinations.Model,
		Seed:     cfg.Pollinations.Seed,
	})

	providers := []provider.Provider{geminiClient, pollinationsClient}
	if cfg.DefaultProvider == "pollinations" {
		providers = []provider.Provider{pollinationsClient, geminiClient}
	}

	eng := engine.New(engine.Config{
		Providers:         providers,
		RequestsPerMinute: cfg.Limits.RequestsPerMinute,
		OnUpdate:          onUpdate,
		OnPersist:         onPersist,
	})

	if providerOverride != "" {
		if err := eng.SetActiveProvider(provider.Name(providerOverride)); err != nil {
			return nil, fmt.Errorf("unknown provider %q", providerOverride)
		}
	}
	return eng, nil
}

// resolveFlags merges configured defaults with command-line toggles.
func resolveFlags(cfg *config.Config, args Args) provider.Flags {
	return provider.Flags{
		UseSearch:    cfg.Defaults.Search || args.Search,
		UseDeepThink: cfg.Defaults.DeepThink || args.Think,
	}
}

// ingestFiles attaches the named files, reporting per-file failures on
// stderr without aborting the request.
func ingestFiles(paths []string) []model.Attachment {
	if len(paths) == 0 {
		return nil
	}
	attachments, errs := ingest.IngestAll(paths)
	for _, err := range errs {
		fmt.Fprintln(os.Stderr, errorStyle.Render("attach: "+err.Error()))
	}
	return attachments
}

// interruptContext returns a context cancelled by Ctrl-C or SIGTERM.
func interruptContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-interrupts:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(interrupts)
	}()
	return ctx, cancel
}

// =============================================================================
// ASK COMMAND
// =============================================================================

// HandleAskCommand answers a single question and exits. A terminal gets the
// settled reply rendered as markdown; piped output streams raw answer tokens
// as they arrive so the command composes with other tools.
func HandleAskCommand(args Args) error {
	if args.Query == "" {
		return errors.New("usage: ember ask \"question\"")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	sess := model.NewChatSession()
	printed := 0
	interactive := IsStdoutTTY() && !args.Quiet

	var onUpdate func(messageID string)
	if !interactive {
		// Stream the answer segment verbatim. Reasoning inside the think
		// block is withheld so piped output stays clean.
		onUpdate = func(messageID string) {
			msg := sess.MessageByID(messageID)
			if msg == nil || msg.Role != model.RoleModel {
				return
			}
			raw := msg.DisplayText()
			if think.IsPending(raw, true) {
				return
			}
			result := think.Classify(raw, true)
			if len(result.Answer) > printed {
				fmt.Print(result.Answer[printed:])
				printed = len(result.Answer)
			}
		}
	}

	eng, err := BuildEngine(cfg, args.Provider, onUpdate, nil)
	if err != nil {
		return err
	}

	flags := resolveFlags(cfg, args)
	attachments := ingestFiles(args.Files)

	ctx, cancel := interruptContext()
	defer cancel()

	if _, err := eng.Send(ctx, sess, args.Query, attachments, flags); err != nil && !provider.IsCancelled(err) {
		return err
	}

	reply := sess.LastMessage()
	if reply == nil || reply.Role != model.RoleModel {
		return nil
	}

	if !interactive {
		// Flush anything the stream callback had not printed yet.
		result := think.Classify(reply.DisplayText(), false)
		if len(result.Answer) > printed {
			fmt.Print(result.Answer[printed:])
		}
		fmt.Println()
		return nil
	}

	result := think.Classify(reply.DisplayText(), false)
	if result.Thought != "" && flags.UseDeepThink {
		fmt.Println(thoughtStyle.Render(result.Thought))
		fmt.Println()
	}
	fmt.Print(renderMarkdown(result.Answer))
	printSources(reply.Grounding)
	return nil
}

// renderMarkdown renders markdown for terminal display, falling back to the
// raw text on error.
func renderMarkdown(content string) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(GetTerminalWidth()),
	)
	if err != nil {
		return content
	}
	rendered, err := renderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// printSources lists grounding sources under an answered question.
func printSources(g *model.GroundingMetadata) {
	if g == nil || g.IsEmpty() {
		return
	}
	fmt.Println()
	fmt.Println(sourceStyle.Render("Sources:"))
	for _, chunk := range g.Chunks {
		if chunk.Web == nil {
			continue
		}
		title := chunk.Web.Title
		if title == "" {
			title = chunk.Web.URI
		}
		fmt.Println(sourceStyle.Render("  • " + title + " (" + chunk.Web.URI + ")"))
	}
}
