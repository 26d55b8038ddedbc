package main

import (
	"io"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"vidrelay/internal/proto"
)

// Renderer is the out-of-scope ASCII-rendering-and-terminal-redraw
// collaborator. The spec defines only the bytes it consumes (reconstructed
// peer frames); drawing is left to a concrete implementation.
type Renderer interface {
	// EnableRawMode puts the controlling terminal into raw mode for the
	// duration of a call. Restore must be safe to call even if EnableRawMode
	// was never called or already failed.
	EnableRawMode() error
	Restore() error
	DrawFrame(peer proto.StreamID, frame []byte) error
}

// rawModeGuard is the supplemented raw-mode-restoration contract: a
// terminal left in raw mode after a crash is a real defect class, so
// Restore is safe to call unconditionally and is always deferred by the
// caller immediately after a successful EnableRawMode.
type rawModeGuard struct {
	enabled bool
}

func (g *rawModeGuard) enable() error {
	// A concrete terminal implementation would call into golang.org/x/term
	// here; left as a no-op stub since terminal redraw is out of scope.
	g.enabled = true
	return nil
}

func (g *rawModeGuard) restore() error {
	if !g.enabled {
		return nil
	}
	g.enabled = false
	return nil
}

// termRenderer is a minimal stand-in renderer: it tracks color-mode
// detection and raw-mode state, and otherwise discards frames, since ASCII
// rendering itself is out of scope.
type termRenderer struct {
	rawModeGuard
	out       io.Writer
	colorMode bool
}

// NewTermRenderer picks a color mode from the terminal and environment,
// matching the teacher's indirect use of go-isatty/go-colorable for the
// same purpose.
func NewTermRenderer(forceColor bool) *termRenderer {
	colorMode := forceColor || detectColorSupport()
	var out io.Writer = os.Stdout
	if colorMode {
		out = colorable.NewColorableStdout()
	}
	return &termRenderer{out: out, colorMode: colorMode}
}

func detectColorSupport() bool {
	if os.Getenv("COLORTERM") != "" {
		return true
	}
	if os.Getenv("TERM_PROGRAM") != "" {
		return true
	}
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (r *termRenderer) EnableRawMode() error { return r.enable() }
func (r *termRenderer) Restore() error       { return r.restore() }

func (r *termRenderer) DrawFrame(peer proto.StreamID, frame []byte) error {
	// ASCII rendering/terminal redraw is out of scope; a full
	// implementation would downscale and draw frame here.
	return nil
}
