package imagestyle_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-cms/pkg/simplecms/configstore"
	configmemory "github.com/tendant/simple-cms/pkg/simplecms/configstore/memory"
	"github.com/tendant/simple-cms/pkg/simplecms/imagestyle"
	"github.com/tendant/simple-cms/pkg/simplecms/storage"
	"github.com/tendant/simple-cms/pkg/simplecms/storage/memory"
)

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 30, B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newService(t *testing.T, opts ...imagestyle.Option) (*imagestyle.Service, *storage.Wrappers) {
	t.Helper()
	w := storage.NewWrappers()
	w.Register(storage.SchemePublic, memory.New())
	w.Register(storage.SchemePrivate, memory.New())
	opts = append(opts, imagestyle.WithTempDir(t.TempDir()))
	return imagestyle.NewService(w, opts...), w
}

func TestCreateDerivative(t *testing.T) {
	ctx := context.Background()
	svc, w := newService(t)
	require.NoError(t, w.Write(ctx, "private://photos/cat.png", bytes.NewReader(pngBytes(t, 400, 200)), "image/png"))

	style := thumbnail()
	dest, err := style.DerivativeURI("private://photos/cat.png")
	require.NoError(t, err)
	require.NoError(t, svc.CreateDerivative(ctx, style, "private://photos/cat.png", dest))

	meta, err := w.Stat(ctx, dest)
	require.NoError(t, err)
	assert.Equal(t, "image/png", meta.ContentType)

	rc, err := w.Open(ctx, dest)
	require.NoError(t, err)
	defer rc.Close()
	decoded, err := png.Decode(rc)
	require.NoError(t, err)
	assert.Equal(t, 100, decoded.Bounds().Dx())
	assert.Equal(t, 50, decoded.Bounds().Dy())

	r, g, b, _ := decoded.At(10, 10).RGBA()
	assert.Equal(t, r, g)
	assert.Equal(t, g, b)
}

func TestCreateDerivative_Convert(t *testing.T) {
	ctx := context.Background()
	svc, w := newService(t)
	require.NoError(t, w.Write(ctx, "public://a.png", bytes.NewReader(pngBytes(t, 20, 20)), "image/png"))

	style := imagestyle.NewStyle("jpeg", "JPEG").AddEffect("convert", map[string]any{"extension": "jpg"})
	dest, err := style.DerivativeURI("public://a.png")
	require.NoError(t, err)
	require.NoError(t, svc.CreateDerivative(ctx, style, "public://a.png", dest))

	rc, err := w.Open(ctx, dest)
	require.NoError(t, err)
	defer rc.Close()
	_, err = jpeg.Decode(rc)
	assert.NoError(t, err)
}

func TestCreateDerivative_EffectFailure(t *testing.T) {
	ctx := context.Background()
	svc, w := newService(t)
	require.NoError(t, w.Write(ctx, "public://a.png", bytes.NewReader(pngBytes(t, 20, 20)), "image/png"))

	style := imagestyle.NewStyle("bad", "Bad").
		AddEffect("crop", map[string]any{"x": 0, "y": 0, "width": 0, "height": 10}).
		AddEffect("desaturate", nil)
	err := svc.CreateDerivative(ctx, style, "public://a.png", "public://styles/bad/public/a.png")
	require.Error(t, err)
	assert.ErrorIs(t, err, imagestyle.ErrEffectFailed)
	assert.Contains(t, err.Error(), "crop")

	_, err = w.Stat(ctx, "public://styles/bad/public/a.png")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCreateDerivative_InvalidSource(t *testing.T) {
	ctx := context.Background()
	svc, w := newService(t)
	require.NoError(t, w.Write(ctx, "public://notes.png", strings.NewReader("not an image"), "image/png"))

	err := svc.CreateDerivative(ctx, thumbnail(), "public://notes.png", "public://styles/thumbnail/public/notes.png")
	assert.ErrorIs(t, err, imagestyle.ErrInvalidSource)

	err = svc.CreateDerivative(ctx, thumbnail(), "public://missing.png", "public://styles/thumbnail/public/missing.png")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLoadStyle(t *testing.T) {
	ctx := context.Background()
	factory := configstore.NewFactory(configmemory.New())
	require.NoError(t, factory.Save(ctx, "image.style.thumbnail", thumbnail().ToConfig()))

	svc, _ := newService(t, imagestyle.WithConfig(factory))
	style, err := svc.LoadStyle(ctx, "thumbnail")
	require.NoError(t, err)
	assert.Len(t, style.Effects, 2)

	_, err = svc.LoadStyle(ctx, "missing")
	assert.ErrorIs(t, err, imagestyle.ErrStyleNotFound)
}

