package player

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"

	"reelwatch/internal/httputil"
)

// Launcher opens embed URLs. Every implementation runs exec.Command with an
// explicit argument slice; URLs never pass through a shell.
type Launcher interface {
	// Open hands url to the browser (or prints it).
	Open(url string) error

	// Name returns the launcher name.
	Name() string

	// Available checks if the launcher binary exists in PATH.
	Available() bool
}

// NewLauncher creates a launcher by name. An empty name picks the platform
// opener; "print" only writes the URL to stdout.
func NewLauncher(name string) Launcher {
	switch name {
	case "":
		return &System{}
	case "print", "none":
		return &Print{W: os.Stdout}
	default:
		return &Browser{name: name}
	}
}

// System uses the platform's default URL handler.
type System struct{}

func (s *System) command() (string, []string) {
	switch runtime.GOOS {
	case "darwin":
		return "open", nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler"}
	default:
		return "xdg-open", nil
	}
}

func (s *System) Name() string {
	name, _ := s.command()
	return name
}

func (s *System) Available() bool {
	name, _ := s.command()
	_, err := exec.LookPath(name)
	return err == nil
}

func (s *System) Open(url string) error {
	name, args := s.command()
	return start(name, append(args, url), url)
}

// Browser runs a configured browser binary (firefox, chromium, ...).
type Browser struct {
	name string
}

func (b *Browser) Name() string { return b.name }

func (b *Browser) Available() bool {
	_, err := exec.LookPath(b.name)
	return err == nil
}

func (b *Browser) Open(url string) error {
	return start(b.name, []string{url}, url)
}

// Print writes the URL instead of opening it, for headless sessions.
type Print struct {
	W io.Writer
}

func (p *Print) Name() string    { return "print" }
func (p *Print) Available() bool { return true }

func (p *Print) Open(url string) error {
	if err := httputil.ValidateURL(url); err != nil {
		return err
	}
	_, err := fmt.Fprintln(p.W, url)
	return err
}

// start launches name detached; browsers keep running after we exit.
func start(name string, args []string, url string) error {
	if err := httputil.ValidateURL(url); err != nil {
		return fmt.Errorf("refusing to open: %w", err)
	}
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("running %s: %w", name, err)
	}
	// Reap the opener without blocking the caller.
	go cmd.Wait()
	return nil
}
