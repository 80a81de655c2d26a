package dropbox

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

// promptText is shown by every code provider.
const promptText = "Insert here the received authorization code"

// dialogTitle is the window title of the dialog prompt.
const dialogTitle = "Dropbox"

// CodeProvider obtains the authorization code the user received after
// visiting authURL.
type CodeProvider interface {
	AuthCode(ctx context.Context, authURL string) (string, error)
}

// ConsolePrompt reads the code as one line from its input after printing
// the URL and a prompt. One background reader serves every AuthCode call, so
// input buffered past a line is kept for the next call, and a read left
// pending by a canceled call is delivered to the next one instead of being
// lost. That reader may stay blocked on input until the process exits.
type ConsolePrompt struct {
	in  io.Reader
	out io.Writer

	once  sync.Once
	lines chan lineResult
	err   error // terminal read error, set before lines is closed
}

type lineResult struct {
	line string
	err  error
}

// NewConsolePrompt returns a prompt reading from in and writing to out.
// A nil out discards the prompt text.
func NewConsolePrompt(in io.Reader, out io.Writer) *ConsolePrompt {
	if out == nil {
		out = io.Discard
	}

	return &ConsolePrompt{in: in, out: out}
}

// AuthCode blocks until a line is read or ctx is done.
func (p *ConsolePrompt) AuthCode(ctx context.Context, authURL string) (string, error) {
	p.once.Do(p.startReader)

	fmt.Fprintf(p.out, "Open this URL in your browser:\n%s\n%s: ", authURL, promptText)

	select {
	case r, ok := <-p.lines:
		if !ok {
			r.err = p.err
		}

		if r.err != nil {
			return "", fmt.Errorf("dropbox: reading authorization code: %w", r.err)
		}

		return r.line, nil
	case <-ctx.Done():
		return "", fmt.Errorf("dropbox: authorization canceled: %w", ctx.Err())
	}
}

// startReader reads lines until the first error. Sends are unbuffered, so
// at most one line is read ahead of the callers.
func (p *ConsolePrompt) startReader() {
	p.lines = make(chan lineResult)

	go func() {
		r := bufio.NewReader(p.in)

		for {
			line, err := r.ReadString('\n')
			if errors.Is(err, io.EOF) && line != "" {
				err = nil
			}

			if err != nil {
				p.err = err
				close(p.lines)

				return
			}

			p.lines <- lineResult{line: strings.TrimSpace(line)}
		}
	}()
}

// DialogPrompt shows a single-line input dialog through a desktop helper
// program (zenity, kdialog, or osascript).
type DialogPrompt struct {
	Program string

	// run executes the helper and returns its stdout. Tests replace it.
	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// AuthCode blocks until the dialog is closed. Cancelling the dialog is an error.
func (p DialogPrompt) AuthCode(ctx context.Context, _ string) (string, error) {
	args, err := dialogArgs(p.Program)
	if err != nil {
		return "", err
	}

	run := p.run
	if run == nil {
		run = runCommand
	}

	out, err := run(ctx, p.Program, args...)
	if err != nil {
		return "", fmt.Errorf("dropbox: %s dialog: %w", p.Program, err)
	}

	return strings.TrimSpace(string(out)), nil
}

func dialogArgs(program string) ([]string, error) {
	switch program {
	case "zenity":
		return []string{"--entry", "--title", dialogTitle, "--text", promptText}, nil
	case "kdialog":
		return []string{"--title", dialogTitle, "--inputbox", promptText}, nil
	case "osascript":
		script := fmt.Sprintf(
			"text returned of (display dialog %q default answer \"\" with title %q)",
			promptText, dialogTitle)

		return []string{"-e", script}, nil
	default:
		return nil, fmt.Errorf("dropbox: unsupported dialog program %q", program)
	}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil && stderr.Len() > 0 {
		return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}

	return out, err
}

// ProviderFor picks a code provider for the current environment: a dialog
// when a graphical session is available and in is not a terminal, the
// console otherwise.
func ProviderFor(in *os.File, out io.Writer) CodeProvider {
	terminal := isatty.IsTerminal(in.Fd()) || isatty.IsCygwinTerminal(in.Fd())

	return chooseProvider(hasDisplay(runtime.GOOS, os.Getenv), terminal, findDialog(runtime.GOOS), in, out)
}

func chooseProvider(display, terminal bool, dialog string, in io.Reader, out io.Writer) CodeProvider {
	if display && !terminal && dialog != "" {
		return DialogPrompt{Program: dialog}
	}

	return NewConsolePrompt(in, out)
}

// hasDisplay reports whether a graphical session is likely available.
func hasDisplay(goos string, getenv func(string) string) bool {
	switch goos {
	case "darwin", "windows":
		return true
	default:
		return getenv("DISPLAY") != "" || getenv("WAYLAND_DISPLAY") != ""
	}
}

// findDialog returns the first dialog helper on PATH, or "".
func findDialog(goos string) string {
	candidates := []string{"zenity", "kdialog"}
	if goos == "darwin" {
		candidates = []string{"osascript"}
	}

	for _, c := range candidates {
		if _, err := exec.LookPath(c); err == nil {
			return c
		}
	}

	return ""
}

// OpenBrowser opens url in the platform's default browser without waiting
// for it to exit.
func OpenBrowser(url string) error {
	name, args := browserCommand(runtime.GOOS, url)

	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("dropbox: launching browser: %w", err)
	}

	// Reap the child in the background.
	go func() { _ = cmd.Wait() }()

	return nil
}

func browserCommand(goos, url string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{url}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}
	default:
		return "xdg-open", []string{url}
	}
}
