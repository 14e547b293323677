package scene

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"defview/internal/gpu"
	"defview/internal/gpu/soft"
)

const jsonScene = `{
  "name": "test",
  "model": "cube",
  "shininess": 12,
  "dirlights": [
    { "dir": { "x": 0, "y": 1, "z": 0 }, "color": { "r": 1, "g": 1, "b": 1 } },
    { "color": { "r": 1, "g": 0, "b": 0 } }
  ],
  "pointlights": [
    { "pos": { "x": 1, "y": 2, "z": 3 }, "color": { "r": 1, "g": 0.5, "b": 0 } },
    { "pos": { "x": 0, "y": 0, "z": 0 }, "color": { "r": 1, "g": 1, "b": 1 }, "linear": 0.5 },
    { "pos": { "x": 0, "y": 0, "z": 0 } }
  ]
}`

func TestParseWarnsOnUnknownKeys(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	desc, err := Parse([]byte(jsonScene), zap.New(core))
	require.NoError(t, err)
	assert.Equal(t, "cube", desc.Model)

	unknown := logs.FilterMessage("unsupported scene key").All()
	require.Len(t, unknown, 1)
	assert.Equal(t, "shininess", unknown[0].ContextMap()["key"])
}

func TestParseRequiresModel(t *testing.T) {
	_, err := Parse([]byte(`{"name": "empty"}`), nil)
	assert.True(t, errors.Is(err, ErrNoModel))

	_, err = Parse([]byte(`{"model": [`), nil)
	assert.Error(t, err)
}

func TestLightsSkipIncompleteEntries(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	log := zap.New(core)
	desc, err := Parse([]byte(jsonScene), log)
	require.NoError(t, err)

	points, dirs := desc.Lights(log)
	require.Len(t, dirs, 1)
	require.Len(t, points, 2)
	assert.Len(t, logs.FilterMessage("missing property in dirlight").All(), 1)
	assert.Len(t, logs.FilterMessage("missing property in pointlight").All(), 1)

	p := points[0]
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, p.Position)
	assert.InDelta(t, 0.2, p.Ambient[0], 1e-6)
	assert.InDelta(t, 0.35, p.Diffuse[1], 1e-6)
	assert.Equal(t, mgl32.Vec3{1, 0.5, 0}, p.Specular)
	assert.Equal(t, float32(DefaultConstant), p.Constant)
	assert.Equal(t, float32(DefaultLinear), p.Linear)
	assert.Equal(t, float32(DefaultQuadratic), p.Quadratic)

	assert.Equal(t, float32(0.5), points[1].Linear)
	assert.Equal(t, float32(DefaultQuadratic), points[1].Quadratic)
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, dirs[0].Direction)
}

func TestParseYAML(t *testing.T) {
	desc, err := Parse([]byte("model: plane\npointlights:\n  - pos: {x: 0, y: 1, z: 0}\n    color: {r: 1, g: 1, b: 1}\n"), nil)
	require.NoError(t, err)
	points, dirs := desc.Lights(nil)
	assert.Len(t, points, 1)
	assert.Empty(t, dirs)
}

func TestBuildAndDelete(t *testing.T) {
	dev := soft.NewDevice(4, 4)
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.json")
	require.NoError(t, os.WriteFile(path, []byte(jsonScene), 0o644))

	desc, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, dir, desc.Dir)

	s, err := Build(dev, desc, nil)
	require.NoError(t, err)
	assert.Equal(t, "test", s.Name)
	require.NotNil(t, s.DirLight())
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, s.DirLight().Direction)
	assert.Equal(t, 1, dev.Stats().Meshes)

	s.Delete()
	assert.Zero(t, dev.Stats().Meshes)
}

func TestBuildMissingTexture(t *testing.T) {
	dev := soft.NewDevice(4, 4)
	desc := &Description{Model: "plane", Texture: "nope.png", Dir: t.TempDir()}
	_, err := Build(dev, desc, nil)
	require.Error(t, err)
	assert.Zero(t, dev.Stats().Meshes)
}

func TestLoadModel(t *testing.T) {
	dev := soft.NewDevice(4, 4)
	for _, name := range Builtin {
		m, err := LoadModel(dev, name)
		require.NoError(t, err, name)
		assert.NotEmpty(t, m.meshes, name)
		m.Delete()
	}
	assert.Zero(t, dev.Stats().Meshes)
	assert.Zero(t, dev.Stats().Textures)

	_, err := LoadModel(dev, "teapot")
	assert.True(t, errors.Is(err, ErrUnknownModel))
}

func TestFromModelHasNoLights(t *testing.T) {
	dev := soft.NewDevice(4, 4)
	s, err := FromModel(dev, "cube")
	require.NoError(t, err)
	defer s.Delete()
	assert.Nil(t, s.DirLight())
	assert.Empty(t, s.PointLights)
	assert.Equal(t, "cube#0", dev.LabelOf(gpu.KindMesh, uint32(s.Model.meshes[0].handle)))
}
