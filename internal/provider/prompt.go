// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import "strings"

// =============================================================================
// SYSTEM INSTRUCTION
// =============================================================================

// Persona is the fixed assistant identity sent with every turn.
const Persona = `You are Ember, a helpful and precise AI assistant running in a terminal chat client. Answer clearly and concisely. Use Markdown formatting where it genuinely helps readability.`

// thinkDirective instructs the model to wrap its reasoning in the <think>
// delimiter pair before producing the final answer. The exemplar transcripts
// show the expected structure; models follow the shape far more reliably
// than they follow a bare description of it.
const thinkDirective = `When answering, first reason through the problem step by step inside a <think>...</think> block, then write the final answer after the block. The think block is your private scratchpad: it is shown to the user separately from the answer, so the answer must stand on its own and must not refer to the block.

Example:

User: Is 97 prime?
Assistant: <think>97 is odd, not divisible by 3 (9+7=16), not by 5, not by 7 (7*13=91, 7*14=98). sqrt(97) < 10, so checking 2, 3, 5, 7 suffices.</think>Yes, 97 is prime.

Example:

User: Summarize the attached report.
Assistant: <think>The report covers Q3 revenue, the two main cost drivers, and a hiring pause. The user likely wants the headline numbers plus the decision.</think>The report shows Q3 revenue up 12%, driven mainly by renewals, with cloud spend and contractor costs flagged as the main cost drivers. Hiring is paused until Q1.

Always close the think block before starting the answer.`

// searchDirective is added only for providers with a search capability.
const searchDirective = `You have access to a web search tool. Use it whenever the answer depends on current events, specific facts, or anything you are not certain about. Perform verification during your reasoning phase and cite the sources you relied on.`

// BuildSystemInstruction assembles the per-turn system instruction from the
// persona and the directives selected by the active flags. searchCapable
// gates the search directive so providers without the capability never
// advertise one to the model.
func BuildSystemInstruction(flags Flags, searchCapable bool) string {
	parts := []string{Persona}

	if flags.UseDeepThink {
		parts = append(parts, thinkDirective)
	}
	if flags.UseSearch && searchCapable {
		parts = append(parts, searchDirective)
	}

	return strings.Join(parts, "\n\n")
}
