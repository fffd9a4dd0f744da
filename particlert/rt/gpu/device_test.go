package gpu

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTexture struct{ label string }

func (t *fakeTexture) Label() string         { return t.label }
func (t *fakeTexture) Size() (int, int)      { return 1, 1 }
func (t *fakeTexture) Format() TextureFormat { return FormatRGBA32Float }

type fakeFramebuffer struct{ tex Texture }

func (f *fakeFramebuffer) Label() string    { return "fb" }
func (f *fakeFramebuffer) Texture() Texture { return f.tex }

func TestCheckFeedback(t *testing.T) {
	a, b := &fakeTexture{"a"}, &fakeTexture{"b"}
	fb := &fakeFramebuffer{tex: a}

	assert.NoError(t, CheckFeedback(fb, b))
	assert.NoError(t, CheckFeedback(nil, a), "display passes never alias a state texture")
	assert.True(t, errors.Is(CheckFeedback(fb, a), ErrFeedbackLoop))
}

func TestValidateTextureDesc(t *testing.T) {
	caps := Capabilities{FloatRenderTargets: true, MaxTextureDimension: 1024}
	ok := TextureDesc{Label: "pos", Width: 4, Height: 2, Format: FormatRGBA32Float, RenderTarget: true, Float: make([]float32, 32)}
	require.NoError(t, ValidateTextureDesc(ok, caps))

	cases := []struct {
		name string
		edit func(*TextureDesc, *Capabilities)
		is   error
	}{
		{"zero width", func(d *TextureDesc, _ *Capabilities) { d.Width = 0 }, nil},
		{"too large", func(d *TextureDesc, _ *Capabilities) { d.Width = 2048 }, ErrTooLarge},
		{"no float targets", func(_ *TextureDesc, c *Capabilities) { c.FloatRenderTargets = false }, ErrFloatTargetsUnsupported},
		{"short payload", func(d *TextureDesc, _ *Capabilities) { d.Float = d.Float[:30] }, nil},
		{"rgba8 payload", func(d *TextureDesc, _ *Capabilities) {
			d.Format, d.RenderTarget, d.Float, d.Pixels = FormatRGBA8UnormSrgb, false, nil, make([]byte, 7)
		}, nil},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			d, cp := ok, caps
			d.Float = append([]float32(nil), ok.Float...)
			c.edit(&d, &cp)
			err := ValidateTextureDesc(d, cp)
			require.Error(t, err)

			var ae *AllocationError
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, d.Width, ae.Width)
			assert.Equal(t, d.Height, ae.Height)
			if c.is != nil {
				assert.True(t, errors.Is(err, c.is))
			}
		})
	}
}

func TestPreviewViewports(t *testing.T) {
	vps := PreviewViewports(FullViewport(800, 600), 3)
	require.Len(t, vps, 3)
	for i, vp := range vps {
		assert.Equal(t, float32(80), vp.Width)
		assert.Equal(t, float32(80), vp.Height)
		assert.Equal(t, float32(i*80), vp.X)
		assert.Equal(t, float32(520), vp.Y)
	}
}
