// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive line-mode chat for terminals where the full-screen
// interface is unwanted (ssh sessions, screen readers, minimal terminals).
package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/ember-tui/internal/config"
	"github.com/jeranaias/ember-tui/internal/engine"
	"github.com/jeranaias/ember-tui/internal/model"
	"github.com/jeranaias/ember-tui/internal/provider"
	"github.com/jeranaias/ember-tui/internal/storage"
	"github.com/jeranaias/ember-tui/internal/think"
)

// =============================================================================
// LINE EDITOR
// =============================================================================

// ChatCLI wraps the line editor with persistent history.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a line editor with history at ~/.ember/history.
func NewChatCLI() (*ChatCLI, error) {
	if err := config.EnsureConfigDir(); err != nil {
		return nil, err
	}
	dir, err := config.ConfigDir()
	if err != nil {
		return nil, err
	}

	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	c := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(dir, "history"),
	}
	c.loadHistory()
	return c, nil
}

func (c *ChatCLI) loadHistory() {
	f, err := os.Open(c.historyFile)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.ReadHistory(f)
}

// SaveHistory writes command history back to disk.
func (c *ChatCLI) SaveHistory() error {
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = c.line.WriteHistory(f)
	return err
}

// ReadInput prompts for one line, recording non-empty input in history.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// Close restores the terminal state.
func (c *ChatCLI) Close() error {
	return c.line.Close()
}

// =============================================================================
// CHAT COMMAND
// =============================================================================

// HandleChatCommand runs the line-mode chat loop.
func HandleChatCommand(args Args) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	sessionsPath, err := cfg.SessionsPath()
	if err != nil {
		return err
	}
	store, err := storage.NewFileStoreWithPath(sessionsPath)
	if err != nil {
		return err
	}
	if cfg.Storage.MaxSessions > 0 {
		store.MaxSessions = cfg.Storage.MaxSessions
	}

	sess := model.NewChatSession()
	printed := 0
	streamAnswer := func(messageID string) {
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

	eng, err := BuildEngine(cfg, args.Provider, streamAnswer, func(s *model.ChatSession) {
		store.Save(s)
	})
	if err != nil {
		return err
	}

	flags := resolveFlags(cfg, args)

	cli, err := NewChatCLI()
	if err != nil {
		return err
	}
	defer func() {
		cli.SaveHistory()
		cli.Close()
	}()

	printWelcome(eng, flags)

	for {
		input, err := cli.ReadInput("you> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, liner.ErrInvalidPrompt) {
				fmt.Println()
				return nil
			}
			// EOF (Ctrl-D) ends the session cleanly.
			fmt.Println()
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			done, newSess := handleChatSlash(input, eng, &flags, sess)
			if done {
				return nil
			}
			if newSess != nil {
				sess = newSess
			}
			continue
		}

		ctx, cancel := interruptContext()
		printed = 0
		fmt.Print("\nember> ")
		_, sendErr := eng.Send(ctx, sess, input, nil, flags)
		cancel()

		reply := sess.LastMessage()
		if reply != nil && reply.Role == model.RoleModel {
			// Flush the unstreamed tail and any thought-only replies.
			result := think.Classify(reply.DisplayText(), false)
			if len(result.Answer) > printed {
				fmt.Print(result.Answer[printed:])
			}
			fmt.Println()
			printSources(reply.Grounding)
		}
		fmt.Println()

		if sendErr != nil && !provider.IsCancelled(sendErr) {
			fmt.Fprintln(os.Stderr, errorStyle.Render(sendErr.Error()))
		}
	}
}

// handleChatSlash processes a slash command. It reports whether the loop
// should exit, and returns a replacement session when one was started.
func handleChatSlash(input string, eng *engine.Engine, flags *provider.Flags, sess *model.ChatSession) (bool, *model.ChatSession) {
	fields := strings.Fields(input)
	cmd := fields[0]

	switch cmd {
	case "/quit", "/exit", "/q":
		return true, nil

	case "/new":
		fmt.Println("started a new conversation")
		return false, model.NewChatSession()

	case "/search":
		flags.UseSearch = !flags.UseSearch
		fmt.Printf("web search: %s\n", onOff(flags.UseSearch))

	case "/think":
		flags.UseDeepThink = !flags.UseDeepThink
		fmt.Printf("deep think: %s\n", onOff(flags.UseDeepThink))

	case "/provider":
		if len(fields) > 1 {
			if err := eng.SetActiveProvider(provider.Name(fields[1])); err != nil {
				fmt.Fprintln(os.Stderr, errorStyle.Render("unknown provider: "+fields[1]))
				return false, nil
			}
		} else {
			names := eng.ProviderNames()
			if len(names) > 1 {
				eng.SetActiveProvider(names[1])
			}
		}
		fmt.Printf("provider: %s\n", eng.ActiveProvider())

	case "/help":
		printChatHelp()

	default:
		fmt.Fprintln(os.Stderr, errorStyle.Render("unknown command: "+cmd+" (try /help)"))
	}
	return false, nil
}

func printWelcome(eng *engine.Engine, flags provider.Flags) {
	fmt.Println("ember chat. /help for commands, /quit to leave.")
	fmt.Printf("provider: %s  search: %s  think: %s\n\n",
		eng.ActiveProvider(), onOff(flags.UseSearch), onOff(flags.UseDeepThink))
}

func printChatHelp() {
	fmt.Println(`commands:
  /new              start a new conversation
  /search           toggle web search
  /think            toggle deep think
  /provider [name]  switch or cycle the active provider
  /help             show this help
  /quit             leave`)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
