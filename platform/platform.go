// Package platform is the SDL2 host for the emulator core: window and pixel
// rendering, keyboard input, the sound-timer beep and the run loop that paces
// instruction execution against the 60Hz timers.
package platform

import (
	"time"
	"unsafe"

	"github.com/retroenv/retrogolib/log"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/dcrofts/go-chip8/emulator"
)

// 60 frames per second: the rate the machine timers are specified at. The
// instruction rate is decoupled from it (see Run).
const frameRate = 60

/*
Key mappings:

	Keypad       Keyboard
	+-+-+-+-+    +-+-+-+-+
	|1|2|3|C|    |1|2|3|4|
	+-+-+-+-+    +-+-+-+-+
	|4|5|6|D|    |Q|W|E|R|
	+-+-+-+-+ => +-+-+-+-+
	|7|8|9|E|    |A|S|D|F|
	+-+-+-+-+    +-+-+-+-+
	|A|0|B|F|    |Z|X|C|V|
	+-+-+-+-+    +-+-+-+-+
*/
var keyMap = map[sdl.Keycode]byte{
	sdl.K_x: 0x0,
	sdl.K_1: 0x1,
	sdl.K_2: 0x2,
	sdl.K_3: 0x3,
	sdl.K_q: 0x4,
	sdl.K_w: 0x5,
	sdl.K_e: 0x6,
	sdl.K_a: 0x7,
	sdl.K_s: 0x8,
	sdl.K_d: 0x9,
	sdl.K_z: 0xA,
	sdl.K_c: 0xB,
	sdl.K_4: 0xC,
	sdl.K_r: 0xD,
	sdl.K_f: 0xE,
	sdl.K_v: 0xF,
}

// Colors for the RGBA8888 streaming texture.
const pixelOn uint32 = 0xFFFFFFFF
const pixelOff uint32 = 0x000000FF

// Platform owns all SDL2 state. The emulator core knows nothing about it; the
// platform reads the core's display and timers and writes its input state.
type Platform struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture
	beeper   *beeper
	logger   *log.Logger

	// staging buffer the logical framebuffer is expanded into before the
	// texture upload
	pixels [emulator.VIDEO_HEIGHT][emulator.VIDEO_WIDTH]uint32
}

// New initialises SDL and creates the window, renderer, streaming texture and
// audio device. The window is scaled up from the 64x32 logical resolution by
// the given factor.
func New(title string, scale int32, logger *log.Logger) (*Platform, error) {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_AUDIO | sdl.INIT_EVENTS); err != nil {
		return nil, err
	}

	p := &Platform{logger: logger}

	winWidth := emulator.VIDEO_WIDTH * scale
	winHeight := emulator.VIDEO_HEIGHT * scale

	window, err := sdl.CreateWindow(title, sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED,
		winWidth, winHeight, sdl.WINDOW_SHOWN)
	if err != nil {
		p.Destroy()
		return nil, err
	}
	p.window = window

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		p.Destroy()
		return nil, err
	}
	p.renderer = renderer

	texture, err := renderer.CreateTexture(sdl.PIXELFORMAT_RGBA8888, sdl.TEXTUREACCESS_STREAMING,
		emulator.VIDEO_WIDTH, emulator.VIDEO_HEIGHT)
	if err != nil {
		p.Destroy()
		return nil, err
	}
	p.texture = texture

	bpr, err := newBeeper()
	if err != nil {
		p.Destroy()
		return nil, err
	}
	p.beeper = bpr

	return p, nil
}

// Destroy releases all SDL resources. Safe to call on a partially
// constructed Platform.
func (p *Platform) Destroy() {
	if p.beeper != nil {
		p.beeper.close()
	}
	if p.texture != nil {
		_ = p.texture.Destroy()
	}
	if p.renderer != nil {
		_ = p.renderer.Destroy()
	}
	if p.window != nil {
		_ = p.window.Destroy()
	}
	sdl.Quit()
}

/*
Run drives the machine until the window is closed, Escape is pressed or the
emulated program faults.

Each 60Hz frame: input events are forwarded to the machine, up to
stepsPerFrame instructions are executed, the timers are ticked exactly once,
the beeper is matched to the sound timer and the screen is redrawn if any
instruction asked for it. Batching several instruction steps per timer tick is
what the core's decoupled Step/TickTimers contract is for.
*/
func (p *Platform) Run(c8 *emulator.Chip8, stepsPerFrame int) error {
	p.logger.Debug("run loop started")

	frame := time.NewTicker(time.Second / frameRate)
	defer frame.Stop()

	for {
		if p.processInput(c8) {
			p.logger.Info("quit requested")
			return nil
		}

		redraw := false

		for i := 0; i < stepsPerFrame; i++ {
			res, err := c8.Step()
			if err != nil {
				return err
			}

			if res.Redraw {
				redraw = true
			}

			if res.WaitingForKey {
				// no forward progress until a key arrives, so
				// don't burn the rest of the frame re-fetching
				// the key-wait
				break
			}
		}

		c8.TickTimers()
		p.beeper.setPlaying(c8.SoundTimer() > 0)

		if redraw {
			if err := p.render(c8); err != nil {
				return err
			}
		}

		<-frame.C
	}
}

// processInput drains the SDL event queue, forwarding keypad transitions to
// the machine. Returns true when the host asked to quit.
func (p *Platform) processInput(c8 *emulator.Chip8) bool {
	quit := false

	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch t := event.(type) {
		case *sdl.QuitEvent:
			quit = true
		case *sdl.KeyboardEvent:
			pressed := t.Type == sdl.KEYDOWN

			if t.Keysym.Sym == sdl.K_ESCAPE {
				if pressed {
					quit = true
				}
				continue
			}

			if key, ok := keyMap[t.Keysym.Sym]; ok {
				c8.SetKey(key, pressed)
			}
		}
	}

	return quit
}

// render expands the logical framebuffer into the staging buffer and uploads
// it to the streaming texture. SDL scales it to the window size.
func (p *Platform) render(c8 *emulator.Chip8) error {
	display := c8.Display()

	for y := range display {
		for x := range display[y] {
			if display[y][x] {
				p.pixels[y][x] = pixelOn
			} else {
				p.pixels[y][x] = pixelOff
			}
		}
	}

	pitch := emulator.VIDEO_WIDTH * 4
	if err := p.texture.Update(nil, unsafe.Pointer(&p.pixels), pitch); err != nil {
		return err
	}

	if err := p.renderer.Clear(); err != nil {
		return err
	}
	if err := p.renderer.Copy(p.texture, nil, nil); err != nil {
		return err
	}
	p.renderer.Present()

	return nil
}
