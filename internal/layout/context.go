// Package layout is the compositing engine shared by live previews,
// thumbnails, poster exports and every recorded reel frame.
//
// Rendering is a pure function of its inputs: the only state lives in the
// RenderContext, and that state (parsed fonts, cached faces, pooled
// surfaces) never changes the pixels produced.
package layout

import (
	"image"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
)

// RenderContext carries the engine's reusable resources. It is passed
// explicitly into every render call and is safe for concurrent use.
type RenderContext struct {
	font *opentype.Font

	mu    sync.Mutex
	faces map[int]*faceEntry
	pools map[image.Point]*sync.Pool
}

// opentype faces keep scratch buffers, so each one is used under its own lock.
type faceEntry struct {
	mu   sync.Mutex
	face font.Face
}

// NewRenderContext parses the bundled Go Bold font.
func NewRenderContext() (*RenderContext, error) {
	f, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, errors.Wrap(err, "parse bundled font")
	}
	return &RenderContext{
		font:  f,
		faces: make(map[int]*faceEntry),
		pools: make(map[image.Point]*sync.Pool),
	}, nil
}

// MustRenderContext is NewRenderContext for callers that cannot recover; the
// bundled font always parses.
func MustRenderContext() *RenderContext {
	rc, err := NewRenderContext()
	if err != nil {
		panic(err)
	}
	return rc
}

func (rc *RenderContext) faceFor(px int) (*faceEntry, error) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if fe, ok := rc.faces[px]; ok {
		return fe, nil
	}
	face, err := opentype.NewFace(rc.font, &opentype.FaceOptions{
		Size:    float64(px),
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "build %dpx face", px)
	}
	fe := &faceEntry{face: face}
	rc.faces[px] = fe
	return fe, nil
}

// AcquireSurface returns a w×h RGBA surface from the pool. Its contents are
// undefined; every render path paints the full canvas before compositing.
func (rc *RenderContext) AcquireSurface(w, h int) *image.RGBA {
	if img, ok := rc.pool(w, h).Get().(*image.RGBA); ok {
		return img
	}
	return image.NewRGBA(image.Rect(0, 0, w, h))
}

// ReleaseSurface hands a surface back for reuse. The caller must not touch
// it afterwards.
func (rc *RenderContext) ReleaseSurface(img *image.RGBA) {
	if img == nil {
		return
	}
	b := img.Bounds()
	if b.Min != (image.Point{}) {
		return
	}
	rc.pool(b.Dx(), b.Dy()).Put(img)
}

func (rc *RenderContext) pool(w, h int) *sync.Pool {
	key := image.Pt(w, h)
	rc.mu.Lock()
	defer rc.mu.Unlock()
	p, ok := rc.pools[key]
	if !ok {
		p = &sync.Pool{}
		rc.pools[key] = p
	}
	return p
}
