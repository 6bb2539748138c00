package image_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	simage "github.com/tendant/simple-cms/pkg/simplecms/image"
)

// MockToolkit is a mock implementation of simage.Toolkit.
type MockToolkit struct {
	mock.Mock
	img *simage.Image
}

func (m *MockToolkit) ID() string                 { return "mock" }
func (m *MockToolkit) SetImage(img *simage.Image) { m.img = img }
func (m *MockToolkit) Image() *simage.Image       { return m.img }

func (m *MockToolkit) ParseFile() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockToolkit) Width() int {
	args := m.Called()
	return args.Int(0)
}

func (m *MockToolkit) Height() int {
	args := m.Called()
	return args.Int(0)
}

func (m *MockToolkit) MimeType() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockToolkit) Apply(operation string, a simage.Arguments) bool {
	args := m.Called(operation, a)
	return args.Bool(0)
}

func (m *MockToolkit) Save(destination string) bool {
	args := m.Called(destination)
	return args.Bool(0)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNew_ParsesSource(t *testing.T) {
	source := writeFile(t, "image.png", "12345")
	tk := new(MockToolkit)
	tk.On("ParseFile").Return(true)
	tk.On("Width").Return(40)
	tk.On("Height").Return(20)
	tk.On("MimeType").Return("image/png")

	img := simage.New(tk, source)

	assert.True(t, img.IsValid())
	assert.Equal(t, int64(5), img.FileSize())
	assert.Equal(t, 40, img.Width())
	assert.Equal(t, 20, img.Height())
	assert.Equal(t, "image/png", img.MimeType())
	assert.Equal(t, source, img.Source())
	assert.Same(t, img, tk.Image())
	tk.AssertExpectations(t)
}

func TestNew_InvalidSource(t *testing.T) {
	tk := new(MockToolkit)
	tk.On("ParseFile").Return(false)

	img := simage.New(tk, filepath.Join(t.TempDir(), "missing.png"))

	assert.False(t, img.IsValid())
	assert.Zero(t, img.FileSize())
}

func TestNew_NoSource(t *testing.T) {
	tk := new(MockToolkit)
	img := simage.New(tk, "")
	assert.False(t, img.IsValid())
	tk.AssertNotCalled(t, "ParseFile")
}

func TestSave_InvalidImage(t *testing.T) {
	tk := new(MockToolkit)
	tk.On("ParseFile").Return(false)
	chmodCalled := false
	img := simage.New(tk, "missing.png", simage.WithChmod(func(string, os.FileMode) error {
		chmodCalled = true
		return nil
	}))

	dest := filepath.Join(t.TempDir(), "out.png")
	assert.False(t, img.Save(dest))
	assert.False(t, chmodCalled)
	tk.AssertNotCalled(t, "Save", mock.Anything)
	_, err := os.Stat(dest)
	assert.True(t, os.IsNotExist(err))
}

func TestSave(t *testing.T) {
	source := writeFile(t, "image.png", "abc")
	dest := filepath.Join(filepath.Dir(source), "copy.png")

	tk := new(MockToolkit)
	tk.On("ParseFile").Return(true)
	tk.On("Save", dest).Run(func(args mock.Arguments) {
		require.NoError(t, os.WriteFile(dest, []byte("abcdefg"), 0o600))
	}).Return(true)

	var gotMode os.FileMode
	img := simage.New(tk, source, simage.WithChmod(func(path string, mode os.FileMode) error {
		assert.Equal(t, dest, path)
		gotMode = mode
		return nil
	}))

	require.True(t, img.Save(dest))
	assert.Equal(t, dest, img.Source())
	assert.Equal(t, int64(7), img.FileSize())
	assert.Equal(t, simage.DefaultFileMode, gotMode)
}

func TestSave_DefaultsToSource(t *testing.T) {
	source := writeFile(t, "image.png", "abc")
	tk := new(MockToolkit)
	tk.On("ParseFile").Return(true)
	tk.On("Save", source).Return(true)

	img := simage.New(tk, source, simage.WithChmod(func(string, os.FileMode) error { return nil }))
	assert.True(t, img.Save(""))
	tk.AssertExpectations(t)
}

func TestSave_ChmodFailure(t *testing.T) {
	source := writeFile(t, "image.png", "abc")
	tk := new(MockToolkit)
	tk.On("ParseFile").Return(true)
	tk.On("Save", source).Return(true)

	img := simage.New(tk, source, simage.WithChmod(func(string, os.FileMode) error {
		return errors.New("permission denied")
	}))
	assert.False(t, img.Save(source))
}

func TestSave_ToolkitFailure(t *testing.T) {
	source := writeFile(t, "image.png", "abc")
	tk := new(MockToolkit)
	tk.On("ParseFile").Return(true)
	tk.On("Save", "elsewhere.png").Return(false)

	img := simage.New(tk, source)
	assert.False(t, img.Save("elsewhere.png"))
	assert.Equal(t, source, img.Source())
}

func TestOperations_ForwardArguments(t *testing.T) {
	tk := new(MockToolkit)
	img := simage.New(tk, "")

	tk.On("Apply", "crop", simage.Arguments{"x": 1.0, "y": 2.0, "width": 30.0, "height": 0.0}).Return(false)
	tk.On("Apply", "crop", simage.Arguments{"x": 1.0, "y": 2.0, "width": 30.0, "height": nil}).Return(true)
	tk.On("Apply", "crop", simage.Arguments{"x": 0.0, "y": 0.0, "width": nil, "height": 40.0}).Return(true)
	tk.On("Apply", "scale", simage.Arguments{"width": nil, "height": 50.0, "upscale": true}).Return(true)
	tk.On("Apply", "rotate", simage.Arguments{"degrees": 90.0, "background": "#ffffff"}).Return(false)
	tk.On("Apply", "desaturate", simage.Arguments{}).Return(true)
	tk.On("Apply", "resize", simage.Arguments{"width": 10, "height": 20}).Return(true)
	tk.On("Apply", "scale_and_crop", simage.Arguments{"width": 10, "height": 20}).Return(true)
	tk.On("Apply", "convert", simage.Arguments{"extension": "jpg"}).Return(true)

	assert.False(t, img.Crop(1, 2, 30, 0))
	assert.True(t, img.CropWidth(1, 2, 30))
	assert.True(t, img.CropHeight(0, 0, 40))
	assert.True(t, img.Scale(0, 50, true))
	assert.False(t, img.Rotate(90, "#ffffff"))
	assert.True(t, img.Desaturate())
	assert.True(t, img.Resize(10, 20))
	assert.True(t, img.ScaleAndCrop(10, 20))
	assert.True(t, img.Convert("jpg"))
	tk.AssertExpectations(t)
}

type fakeOp struct {
	validated simage.Arguments
	executed  bool
	err       error
}

func (o *fakeOp) Arguments() map[string]simage.ArgumentSpec {
	return map[string]simage.ArgumentSpec{
		"a": {Required: true},
		"b": {Default: "x"},
	}
}

func (o *fakeOp) Validate(args simage.Arguments) (simage.Arguments, error) {
	o.validated = args
	return args, o.err
}

func (o *fakeOp) Execute(simage.Arguments) bool {
	o.executed = true
	return true
}

func TestPrepare(t *testing.T) {
	op := &fakeOp{}
	args, err := simage.Prepare("fake", op, simage.Arguments{"a": 1, "unknown": 2})
	require.NoError(t, err)
	assert.Equal(t, simage.Arguments{"a": 1, "b": "x"}, args)

	_, err = simage.Prepare("fake", op, simage.Arguments{"b": 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, simage.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "Argument 'a' expected by plugin 'fake'")
}

func TestRun_RejectedArguments(t *testing.T) {
	op := &fakeOp{err: simage.NewArgumentError("fake", "nope")}
	assert.False(t, simage.Run(nil, "mock", "fake", op, simage.Arguments{"a": 1}))
	assert.False(t, op.executed)

	op = &fakeOp{}
	assert.True(t, simage.Run(nil, "mock", "fake", op, simage.Arguments{"a": 1}))
	assert.True(t, op.executed)
}
