// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"reflect"
	"testing"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name     string
		argv     []string
		wantCmd  Command
		wantArgs Args
	}{
		{
			name:    "no args starts the TUI",
			argv:    nil,
			wantCmd: CmdTUI,
		},
		{
			name:     "ask with query",
			argv:     []string{"ask", "what", "is", "Go"},
			wantCmd:  CmdAsk,
			wantArgs: Args{Query: "what is Go", Raw: []string{"what", "is", "Go"}},
		},
		{
			name:     "bare words become an ask query with case preserved",
			argv:     []string{"Explain", "io.Reader"},
			wantCmd:  CmdAsk,
			wantArgs: Args{Query: "Explain io.Reader", Raw: []string{"io.Reader"}},
		},
		{
			name:     "ask with flags and files",
			argv:     []string{"ask", "--think", "-f", "main.go", "--file", "go.mod", "review"},
			wantCmd:  CmdAsk,
			wantArgs: Args{Think: true, Files: []string{"main.go", "go.mod"}, Query: "review", Raw: []string{"review"}},
		},
		{
			name:     "chat with provider override",
			argv:     []string{"chat", "--provider", "pollinations"},
			wantCmd:  CmdChat,
			wantArgs: Args{Provider: "pollinations"},
		},
		{
			name:     "sessions clear",
			argv:     []string{"sessions", "clear"},
			wantCmd:  CmdSessions,
			wantArgs: Args{Subcommand: "clear", Raw: []string{"clear"}},
		},
		{
			name:     "config path",
			argv:     []string{"config", "path"},
			wantCmd:  CmdConfig,
			wantArgs: Args{Subcommand: "path", Raw: []string{"path"}},
		},
		{
			name:    "version flag",
			argv:    []string{"--version"},
			wantCmd: CmdVersion,
		},
		{
			name:    "help flag wins immediately",
			argv:    []string{"--help", "ask", "question"},
			wantCmd: CmdHelp,
		},
		{
			name:     "search and quiet shorthands",
			argv:     []string{"-s", "-q", "ask", "news"},
			wantCmd:  CmdAsk,
			wantArgs: Args{Search: true, Quiet: true, Query: "news", Raw: []string{"news"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotCmd, gotArgs := parseArgs(tt.argv)
			if gotCmd != tt.wantCmd {
				t.Errorf("command = %v, want %v", gotCmd, tt.wantCmd)
			}
			if !reflect.DeepEqual(gotArgs, tt.wantArgs) {
				t.Errorf("args = %+v, want %+v", gotArgs, tt.wantArgs)
			}
		})
	}
}
