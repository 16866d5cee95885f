package renderer

import (
	"fmt"
	"log"
	"time"

	gl "github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/oddlab/reeltime/iodata"
	"github.com/oddlab/reeltime/player"
)

// Window owns a GLFW window/GL context plus the Renderer and Compositor
// drawing into it. Adapted from the teacher's single GLFW-owning context
// package, generalized from "the one package allowed to import glfw" into
// the one real caller that constructs a Compositor outside of tests.
type Window struct {
	win        *glfw.Window
	renderer   *Renderer
	compositor *Compositor
}

// OpenWindow creates a resizable window of size w x h, makes its GL context
// current on the calling thread (the caller must have called
// runtime.LockOSThread, mirroring the teacher's cmd/main.go init()), and
// builds the Renderer/Compositor pair that draws into it.
func OpenWindow(w, h int, title string, fullscreen bool) (*Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("renderer: glfw init: %w", err)
	}

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	var monitor *glfw.Monitor
	if fullscreen {
		monitor = glfw.GetPrimaryMonitor()
	}

	win, err := glfw.CreateWindow(w, h, title, monitor, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("renderer: creating window: %w", err)
	}
	win.MakeContextCurrent()

	if err := gl.Init(); err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("renderer: gl init: %w", err)
	}
	log.Printf("renderer: OpenGL version %s", gl.GoStr(gl.GetString(gl.VERSION)))

	r, err := NewRenderer()
	if err != nil {
		glfw.Terminate()
		return nil, err
	}

	return &Window{
		win:        win,
		renderer:   r,
		compositor: NewCompositor(r, BuildDisplayProgram),
	}, nil
}

// openHiddenContext builds the same GL context OpenWindow does, but with the
// backing GLFW window hidden, for offscreen rendering (Exporter) where
// nothing is ever shown on screen.
func openHiddenContext(w, h int) (*Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("renderer: glfw init: %w", err)
	}

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Visible, glfw.False)

	win, err := glfw.CreateWindow(w, h, "reeltime-export", nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("renderer: creating hidden context: %w", err)
	}
	win.MakeContextCurrent()

	if err := gl.Init(); err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("renderer: gl init: %w", err)
	}

	r, err := NewRenderer()
	if err != nil {
		glfw.Terminate()
		return nil, err
	}

	return &Window{
		win:        win,
		renderer:   r,
		compositor: NewCompositor(r, BuildDisplayProgram),
	}, nil
}

// Close terminates the owning GL context and its window. Safe to call once.
func (w *Window) Close() {
	w.renderer.Shutdown()
	glfw.Terminate()
}

// Size returns the window's current framebuffer size in pixels, which may
// differ from the size passed to OpenWindow on a HiDPI display.
func (w *Window) Size() Size {
	fw, fh := w.win.GetFramebufferSize()
	return Size{W: fw, H: fh}
}

// RunUntilClosed drives pl's clock at a fixed tick rate, drawing pl's
// current video frame through the compositor every tick, until the window
// is closed or pl reaches player.Stop. imageOpts/displayOpts/compareOpts/
// backgroundOpts are held constant for the run; a host wanting to change
// them live (e.g. from a HUD) would replace this loop with its own,
// reusing w.compositor directly.
func (w *Window) RunUntilClosed(pl *player.Player, imageOpts []ImageOptions, displayOpts DisplayOptions, compareOpts CompareOptions, backgroundOpts BackgroundOptions) error {
	const tickInterval = time.Second / 60
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for range ticker.C {
		if w.win.ShouldClose() {
			return nil
		}
		pl.Tick(tickInterval)
		if pl.Playback().Get() == player.Stop {
			return nil
		}

		video := pl.CurrentVideo().Get()
		videos := []*iodata.VideoData{}
		if video != nil {
			videos = append(videos, video)
		}

		size := w.Size()
		if err := w.compositor.Begin(size); err != nil {
			return err
		}
		err := w.compositor.DrawVideo(videos, imageOpts, displayOpts, compareOpts, backgroundOpts)
		w.compositor.End()
		if err != nil {
			log.Printf("renderer: draw failed, keeping last frame on screen: %v", err)
		}

		w.win.SwapBuffers()
		glfw.PollEvents()
	}
	return nil
}
