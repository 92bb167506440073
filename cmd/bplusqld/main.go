// Command bplusqld is the REPL/script-runner front end for the index
// store: it wires Config, logging, a Catalog and the command interpreter
// together, reading commands from stdin through readline (line editing
// and history, whether or not stdin is a terminal) or, given a path
// argument, from that file one
// line at a time — exactly as the original tool's argv[1] script mode did.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/icza/backscanner"

	"github.com/nodepage/bplusdb/catalog"
	"github.com/nodepage/bplusdb/command"
	"github.com/nodepage/bplusdb/config"
	"github.com/nodepage/bplusdb/obslog"
)

func main() {
	cfg, err := config.Load(configPath())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := obslog.NewSession(obslog.New(cfg.Verbosity))
	cat := catalog.New(cfg.DataDir, cfg.CacheCapacity, logger)
	defer cat.CloseAll(context.Background())

	exec := command.NewExecutor(cat, logger)

	if len(os.Args) > 1 {
		if err := runScript(os.Args[1], exec); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if err := runREPL(exec); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func configPath() string {
	if v := os.Getenv("BPLUSQLD_CONFIG"); v != "" {
		return v
	}
	return "bplusqld.yaml"
}

// runScript reads path one line at a time, executing each as a command.
func runScript(path string, exec *command.Executor) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("bplusqld: open script %q: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if !runOneLine(scanner.Text(), exec) {
			return nil
		}
	}
	return scanner.Err()
}

const historyFile = ".bplusqld_history"

// runREPL drives an interactive session with line editing and history via
// chzyer/readline, plus a "history" meta-command that tails the history
// file with icza/backscanner.
func runREPL(exec *command.Executor) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "bplusql> ",
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("bplusqld: readline init: %w", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil { // io.EOF or readline.ErrInterrupt
			return nil
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(line), "history") {
			printHistory(historyFile)
			continue
		}
		if !runOneLine(line, exec) {
			return nil
		}
	}
}

// runOneLine executes one command line, printing its result or error.
// Returns false when the command was "exit" and the caller's loop should
// stop.
func runOneLine(line string, exec *command.Executor) bool {
	if strings.TrimSpace(line) == "" {
		return true
	}
	cmd := command.Parse(line)
	if cmd.Op == command.Exit {
		return false
	}
	out, err := exec.Execute(cmd)
	if err != nil {
		fmt.Println(err)
		return true
	}
	if out != "" {
		fmt.Println(out)
	}
	return true
}

// printHistory tails the last few lines of the readline history file using
// icza/backscanner, for operators who want a quick look without leaving
// the REPL.
func printHistory(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return
	}

	const maxLines = 20
	var lines []string
	scanner := backscanner.New(f, int(fi.Size()))
	for len(lines) < maxLines {
		line, _, err := scanner.Line()
		if err != nil {
			break
		}
		lines = append(lines, line)
	}
	for i := len(lines) - 1; i >= 0; i-- {
		fmt.Println(lines[i])
	}
}
