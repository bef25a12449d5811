package main

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
)

// console reads operator commands and keeps log output from tearing the prompt.
type console struct {
	rl *readline.Instance
}

func newConsole() (*console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:      "> ",
		HistoryFile: historyFile(),
	})
	if err != nil {
		return nil, err
	}
	log.SetOutput(&consoleWriter{rl: rl})
	return &console{rl: rl}, nil
}

// Stdout returns a writer that prints above the prompt.
func (c *console) Stdout() io.Writer { return c.rl.Stdout() }

// Close restores plain log output.
func (c *console) Close() error {
	log.SetOutput(os.Stderr)
	return c.rl.Close()
}

// Run forwards non-empty lines to input until ctx is done, Ctrl+C is
// pressed or stdin closes. The last two cancel the program.
func (c *console) Run(ctx context.Context, cancel context.CancelFunc, input chan<- string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			cancel()
			return
		}
		if err != nil {
			log.Printf("console: %v", err)
			cancel()
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		select {
		case input <- line:
		case <-ctx.Done():
			return
		}
	}
}

// consoleWriter routes log output around the readline prompt.
type consoleWriter struct {
	rl *readline.Instance
}

func (w *consoleWriter) Write(p []byte) (int, error) {
	w.rl.Clean()
	n, err := os.Stderr.Write(p)
	w.rl.Refresh()
	return n, err
}

func historyFile() string {
	cacheDir := os.Getenv("XDG_CACHE_HOME")
	if cacheDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		cacheDir = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(cacheDir, "pseudobend")
	_ = os.MkdirAll(dir, 0750)
	return filepath.Join(dir, "history")
}
