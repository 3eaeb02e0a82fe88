/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"prime-risk-engine/persistence"
)

func Repl(c *Console) {
	completer := readline.NewPrefixCompleter(
		readline.PcItem("stats"),
		readline.PcItem("rules"),
		readline.PcItem("replace-rules"),
		readline.PcItem("snapshot"),
		readline.PcItem("restore"),
		readline.PcItem("tail"),
		readline.PcItem("help"),
		readline.PcItem("exit"),
	)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "riskctl> ",
		HistoryFile:     "/tmp/riskctl_history",
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		log.Printf("riskctl: failed to create readline: %v", err)
		return
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			break
		}

		parts := strings.Fields(strings.TrimSpace(line))
		if len(parts) == 0 {
			continue
		}

		cmd := strings.ToLower(parts[0])
		switch cmd {
		case "stats":
			c.handleStats()
		case "rules":
			c.handleRules()
		case "replace-rules":
			c.handleReplaceRules(parts)
		case "snapshot":
			c.handleSnapshot(parts)
		case "restore":
			c.handleRestore(parts)
		case "tail":
			c.handleTail()
		case "help":
			displayHelp()
		case "exit":
			return
		default:
			fmt.Println("Unknown command. Type 'help' for available commands.")
		}
	}
}

// handleStats prints the counter store's current snapshot, one row per
// (dimension key, day, metric).
func (c *Console) handleStats() {
	entries := c.Engine.Store().Snapshot()
	if len(entries) == 0 {
		fmt.Println("No counter entries")
		return
	}

	fmt.Printf("%-48s %-10s %-18s %-12s\n", "Dimension Key", "Day", "Metric", "Value")
	for _, e := range entries {
		value := fmt.Sprintf("%d", e.IntVal)
		if e.IsFloat {
			value = fmt.Sprintf("%.4f", e.FltVal)
		}
		fmt.Printf("%-48s %-10d %-18s %-12s\n", e.Key.String(), e.DayID, e.Metric.String(), value)
	}
}

// handleRules lists the active rule list in registration order.
func (c *Console) handleRules() {
	rules := c.Engine.Rules()
	if len(rules) == 0 {
		fmt.Println("No active rules")
		return
	}
	for _, r := range rules {
		fmt.Printf("%-24s %T\n", r.RuleID(), r)
	}
}

// handleReplaceRules loads a JSON rule-list description and atomically
// swaps it in for the active list.
// Usage: replace-rules <file>
func (c *Console) handleReplaceRules(parts []string) {
	if len(parts) < 2 {
		fmt.Println("Usage: replace-rules <file>")
		return
	}
	rules, err := loadRuleList(parts[1])
	if err != nil {
		fmt.Printf("replace-rules failed: %v\n", err)
		return
	}
	c.Engine.ReplaceRules(rules)
	fmt.Printf("Replaced active rule list with %d rule(s) from %s\n", len(rules), parts[1])
}

// handleSnapshot writes the engine's current state to a fresh SQLite
// database at path, independent of whatever store the process was
// started against.
// Usage: snapshot <path>
func (c *Console) handleSnapshot(parts []string) {
	if len(parts) < 2 {
		fmt.Println("Usage: snapshot <path>")
		return
	}
	store, err := persistence.Open(parts[1])
	if err != nil {
		fmt.Printf("snapshot failed: %v\n", err)
		return
	}
	defer store.Close()

	if err := store.SaveSnapshot(c.Engine.Snapshot()); err != nil {
		fmt.Printf("snapshot failed: %v\n", err)
		return
	}
	fmt.Printf("Snapshot written to %s\n", parts[1])
}

// handleRestore loads a previously saved snapshot from path and applies
// it to the running engine. It does not touch the active rule list; load
// rules with replace-rules first for a RateLimit rule's suspended/window
// state to find a home.
// Usage: restore <path>
func (c *Console) handleRestore(parts []string) {
	if len(parts) < 2 {
		fmt.Println("Usage: restore <path>")
		return
	}
	store, err := persistence.Open(parts[1])
	if err != nil {
		fmt.Printf("restore failed: %v\n", err)
		return
	}
	defer store.Close()

	snap, err := store.LoadSnapshot()
	if err != nil {
		fmt.Printf("restore failed: %v\n", err)
		return
	}
	c.Engine.Restore(snap)
	fmt.Printf("Restored snapshot (schema v%d, %d counter entries, %d rule states) from %s\n",
		snap.SchemaVersion, len(snap.Counters), len(snap.Rules), parts[1])
}

// handleTail prints the actions buffered in the console's ring buffer
// since the last time it was drained. Because the REPL's read loop is
// synchronous, this is a point-in-time drain rather than a live stream:
// run it again to see what has arrived since.
func (c *Console) handleTail() {
	actions := c.drainRecentActions()
	if len(actions) == 0 {
		fmt.Println("No actions recorded yet")
		return
	}
	for _, a := range actions {
		ts := time.Unix(0, int64(a.TimestampNs)).UTC().Format("15:04:05.000")
		fmt.Printf("[%s] %-24s rule=%-20s subject=%s reason=%s\n", ts, a.Action, a.RuleID, a.Subject, a.Reason)
	}
}

func displayHelp() {
	fmt.Print(`Available commands:
  stats                    - Print the counter store's current snapshot
  rules                    - List the active rule list
  replace-rules <file>     - Hot-swap the active rule list from a JSON file
  snapshot <path>          - Write the engine's current state to a SQLite file
  restore <path>           - Load a previously written snapshot into the engine
  tail                     - Print actions emitted since the last tail
  help                     - Show this message
  exit                     - Quit riskctl

Rule file format (JSON, "kind" is "cumulative_limit" or "rate_limit"):
  {"rules": [
    {"kind": "cumulative_limit", "id": "acct-notional", "metric": "trade_notional",
     "threshold": 1000000, "dims": ["account_id"], "actions": ["alert"]},
    {"kind": "rate_limit", "id": "order-burst", "threshold": 50, "window_seconds": 10,
     "counted": "orders", "dims": ["account_id"],
     "suspend_actions": ["suspend_ordering"], "resume_actions": ["resume_ordering"]}
  ]}
`)
}
