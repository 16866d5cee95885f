package renderer

import (
	"fmt"
	"reflect"
	"time"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/oddlab/reeltime/encoder"
	"github.com/oddlab/reeltime/iodata"
	"github.com/oddlab/reeltime/options"
	"github.com/oddlab/reeltime/player"
	"github.com/oddlab/reeltime/timeline"
)

type OffscreenRenderer struct {
	fbo       uint32
	textureID uint32
	width     int
	height    int
	pbos      [2]uint32 // For double-buffering PBOs
	pboIndex  int       // To track the current PBO
}

func NewOffscreenRenderer(width, height int) (*OffscreenRenderer, error) {
	or := &OffscreenRenderer{
		width:  width,
		height: height,
	}

	gl.GenFramebuffers(1, &or.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, or.fbo)

	gl.GenTextures(1, &or.textureID)
	gl.BindTexture(gl.TEXTURE_2D, or.textureID)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA32F, int32(width), int32(height), 0, gl.RGBA, gl.FLOAT, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, or.textureID, 0)

	// PBO INITIALIZATION
	gl.GenBuffers(2, &or.pbos[0])
	bufferSize := width * height * 4 // RGBA, 8 bits per channel (or 32 for RGBA32F)
	gl.BindBuffer(gl.PIXEL_PACK_BUFFER, or.pbos[0])
	gl.BufferData(gl.PIXEL_PACK_BUFFER, bufferSize, nil, gl.STREAM_READ)
	gl.BindBuffer(gl.PIXEL_PACK_BUFFER, or.pbos[1])
	gl.BufferData(gl.PIXEL_PACK_BUFFER, bufferSize, nil, gl.STREAM_READ)
	gl.BindBuffer(gl.PIXEL_PACK_BUFFER, 0)

	if gl.CheckFramebufferStatus(gl.FRAMEBUFFER) != gl.FRAMEBUFFER_COMPLETE {
		return nil, fmt.Errorf("offscreen framebuffer is not complete")
	}

	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	return or, nil
}

func (or *OffscreenRenderer) Destroy() {
	gl.DeleteFramebuffers(1, &or.fbo)
	gl.DeleteTextures(1, &or.textureID)
	gl.DeleteBuffers(2, &or.pbos[0]) // Clean up the PBOs
}

// readPixelsAsync handles the asynchronous pixel transfer using two PBOs.
// It initiates the transfer for the current frame and reads the data from the previous frame.
func (or *OffscreenRenderer) readPixelsAsync(width, height int) ([]byte, error) {
	currentPboIndex := or.pboIndex
	nextPboIndex := (or.pboIndex + 1) % 2
	bufferSize := int32(width * height * 4)

	// Initiate the transfer for the CURRENT frame
	gl.BindFramebuffer(gl.FRAMEBUFFER, or.fbo)
	gl.BindBuffer(gl.PIXEL_PACK_BUFFER, or.pbos[currentPboIndex])
	gl.ReadPixels(0, 0, int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, nil)

	// Read the data from the PREVIOUS frame's transfer
	gl.BindBuffer(gl.PIXEL_PACK_BUFFER, or.pbos[nextPboIndex])
	ptr := gl.MapBufferRange(gl.PIXEL_PACK_BUFFER, 0, int(bufferSize), gl.MAP_READ_BIT)
	if ptr == nil {
		return nil, fmt.Errorf("failed to map PBO")
	}

	// Create a byte slice that points to the mapped buffer
	var pixelData []byte
	header := (*reflect.SliceHeader)(unsafe.Pointer(&pixelData))
	header.Data = uintptr(ptr)
	header.Len = int(bufferSize)
	header.Cap = int(bufferSize)

	// Unmap the buffer now that we have the slice
	gl.UnmapBuffer(gl.PIXEL_PACK_BUFFER)

	// 3. Clean up and update state
	gl.BindBuffer(gl.PIXEL_PACK_BUFFER, 0)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)

	// Update the index for the next frame
	or.pboIndex = nextPboIndex

	return pixelData, nil
}

// Exporter drives a Player through an offscreen-rendered timeline range and
// hands each composited frame to an FFmpegEncoder, replacing the teacher's
// pipe-to-ffmpeg-binary RunOffscreen with the in-process cgo encoder path
// (see encoder.FFmpegEncoder). It owns the hidden GL context the offscreen
// FBO lives in.
type Exporter struct {
	win       *Window
	offscreen *OffscreenRenderer
	encoder   *encoder.FFmpegEncoder
	width     int
	height    int
}

// OpenExporter builds a hidden-window GL context, an OffscreenRenderer FBO of
// opts.Width x opts.Height, and the FFmpegEncoder that opts.OutputFile is
// written through.
func OpenExporter(opts options.ExportOptions) (*Exporter, error) {
	win, err := openHiddenContext(opts.Width, opts.Height)
	if err != nil {
		return nil, err
	}

	off, err := NewOffscreenRenderer(opts.Width, opts.Height)
	if err != nil {
		win.Close()
		return nil, fmt.Errorf("renderer: offscreen FBO: %w", err)
	}

	enc, err := encoder.NewFFmpegEncoder(opts)
	if err != nil {
		off.Destroy()
		win.Close()
		return nil, fmt.Errorf("renderer: opening encoder: %w", err)
	}
	go enc.Run()

	return &Exporter{win: win, offscreen: off, encoder: enc, width: opts.Width, height: opts.Height}, nil
}

// Close releases the encoder, the offscreen FBO and the hidden GL context,
// in that order. Safe to call once, after Run returns.
func (ex *Exporter) Close() error {
	err := ex.encoder.Close()
	ex.offscreen.Destroy()
	ex.win.Close()
	return err
}

// Run ticks pl one video frame at a time across r (inclusive of both ends),
// drawing each frame into the offscreen FBO through the Exporter's
// Compositor and feeding the result to the encoder, until pl's current time
// passes r.End(). videoRate sets both the Player's per-tick advance and the
// encoder's output frame rate.
func (ex *Exporter) Run(pl *player.Player, videoRate int64, imageOpts []ImageOptions, displayOpts DisplayOptions, compareOpts CompareOptions, backgroundOpts BackgroundOptions, r timeline.TimeRange) error {
	frameStep := time.Duration(float64(time.Second) / float64(videoRate))
	end := r.End()

	var havePending bool
	var pendingPTS int64
	frameIndex := int64(0)

	for {
		current := pl.CurrentTime().Get()
		if current.Rescale(videoRate).Value > end.Rescale(videoRate).Value {
			break
		}

		video := pl.CurrentVideo().Get()
		videos := []*iodata.VideoData{}
		if video != nil {
			videos = append(videos, video)
		}

		gl.BindFramebuffer(gl.FRAMEBUFFER, ex.offscreen.fbo)
		if err := ex.win.compositor.Begin(Size{W: ex.width, H: ex.height}); err != nil {
			return err
		}
		drawErr := ex.win.compositor.DrawVideo(videos, imageOpts, displayOpts, compareOpts, backgroundOpts)
		ex.win.compositor.End()
		if drawErr != nil {
			return fmt.Errorf("renderer: exporting frame %d: %w", frameIndex, drawErr)
		}

		pixels, err := ex.offscreen.readPixelsAsync(ex.width, ex.height)
		if err != nil {
			return fmt.Errorf("renderer: reading back frame %d: %w", frameIndex, err)
		}

		// readPixelsAsync returns the PREVIOUS call's transfer, so the very
		// first readback is of an unrendered buffer and is discarded; it
		// catches up on the next call.
		if havePending {
			ex.encoder.SendVideo(&encoder.Frame{Pixels: rgbaToYUV444P(pixels, ex.width, ex.height), PTS: pendingPTS})
		}
		havePending = true
		pendingPTS = frameIndex
		frameIndex++

		if current.Rescale(videoRate).Value == end.Rescale(videoRate).Value {
			break
		}
		pl.Tick(frameStep)
	}

	// Flush the last FBO transfer queued by the final loop iteration.
	pixels, err := ex.offscreen.readPixelsAsync(ex.width, ex.height)
	if err == nil && havePending {
		ex.encoder.SendVideo(&encoder.Frame{Pixels: rgbaToYUV444P(pixels, ex.width, ex.height), PTS: pendingPTS})
	}

	return nil
}

// rgbaToYUV444P converts an 8-bit RGBA framebuffer readback (bottom-up, as
// glReadPixels returns it) into top-down planar YUV444P using the full-range
// BT.709 matrix, matching the BT709/FullRange color pipeline stage video
// sources are normalized to before display. FFmpegEncoder's sws_scale input
// is declared AV_PIX_FMT_YUV444P for 8-bit output (see encoder.openVideo),
// so no subsampling is done here.
func rgbaToYUV444P(rgba []byte, width, height int) []byte {
	planeSize := width * height
	out := make([]byte, planeSize*3)
	y := out[0:planeSize]
	u := out[planeSize : 2*planeSize]
	v := out[2*planeSize : 3*planeSize]

	for row := 0; row < height; row++ {
		srcRow := height - 1 - row // glReadPixels is bottom-up
		srcOff := srcRow * width * 4
		dstOff := row * width
		for col := 0; col < width; col++ {
			r := float64(rgba[srcOff+col*4+0])
			g := float64(rgba[srcOff+col*4+1])
			b := float64(rgba[srcOff+col*4+2])

			y[dstOff+col] = clampByte(0.2126*r + 0.7152*g + 0.0722*b)
			u[dstOff+col] = clampByte(-0.114572*r - 0.385428*g + 0.5*b + 128)
			v[dstOff+col] = clampByte(0.5*r - 0.454153*g - 0.045847*b + 128)
		}
	}
	return out
}

func clampByte(v float64) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v + 0.5)
}
