package graphics

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"defview/internal/gpu"
	"defview/internal/gpu/soft"
)

const (
	postVert = "#version 410 core\n#pragma soft postProcess\nvoid main() {}\n"
	postFrag = "#version 410 core\n#pragma soft postProcess\nout vec4 o_color;\nvoid main() {}\n"
	badFrag  = "#version 410 core\n\n#error missing semicolon\n"
)

func postFS() fstest.MapFS {
	return fstest.MapFS{
		"post/post.vert": {Data: []byte(postVert)},
		"post/post.frag": {Data: []byte(postFrag)},
	}
}

func TestPassSourceLayout(t *testing.T) {
	src := PassSource("shaders", "model", gpu.StageVertex, gpu.StageTessControl, gpu.StageTessEval, gpu.StageFragment)
	assert.Equal(t, "model", src.Label)
	require.Len(t, src.Files, 4)
	assert.Equal(t, "shaders/model/model.vert", src.Files[0].Path)
	assert.Equal(t, "shaders/model/model.tesc", src.Files[1].Path)
	assert.Equal(t, "shaders/model/model.tese", src.Files[2].Path)
	assert.Equal(t, "shaders/model/model.frag", src.Files[3].Path)
}

func TestCompileAndUniformCache(t *testing.T) {
	dev := soft.NewDevice(4, 4)
	p, err := Compile(dev, postFS(), PassSource(".", "post", gpu.StageVertex, gpu.StageFragment))
	require.NoError(t, err)
	defer p.Delete()

	assert.Equal(t, "post", p.Label())
	assert.False(t, p.HasTessellation())
	assert.Zero(t, dev.Stats().Shaders, "shader objects are released after linking")

	p.Use()
	queries := dev.Stats().UniformQueries

	loc, ok := p.Location("u_exposure")
	assert.True(t, ok)
	assert.GreaterOrEqual(t, loc, int32(0))
	_, ok = p.Location("u_doesNotExist")
	assert.False(t, ok)
	assert.Equal(t, queries+2, dev.Stats().UniformQueries)

	// known and unknown names are both answered from the cache
	for i := 0; i < 5; i++ {
		p.SetFloat("u_exposure", 2)
		p.SetFloat("u_doesNotExist", 2)
		p.SetVec3("u_doesNotExist", mgl32.Vec3{1, 2, 3})
	}
	assert.Equal(t, queries+2, dev.Stats().UniformQueries)
}

func TestCompileFailureReportsFileAndLog(t *testing.T) {
	dev := soft.NewDevice(4, 4)
	fsys := postFS()
	fsys["post/post.frag"] = &fstest.MapFile{Data: []byte(badFrag)}

	p, err := Compile(dev, fsys, PassSource(".", "post", gpu.StageVertex, gpu.StageFragment))
	require.Error(t, err)
	assert.Nil(t, p)
	assert.True(t, errors.Is(err, ErrCompile))

	var se *ShaderError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "post/post.frag", se.File)
	assert.Equal(t, gpu.StageFragment, se.Stage)
	assert.Contains(t, se.Log, "0:3")
	assert.Contains(t, err.Error(), "post/post.frag")

	st := dev.Stats()
	assert.Zero(t, st.Shaders, "the compiled vertex shader must be released")
	assert.Zero(t, st.Programs)
}

func TestLinkFailure(t *testing.T) {
	dev := soft.NewDevice(4, 4)
	fsys := postFS()
	fsys["post/post.frag"] = &fstest.MapFile{Data: []byte("#version 410 core\n#pragma soft dirShadow\nvoid main() {}\n")}

	_, err := Compile(dev, fsys, PassSource(".", "post", gpu.StageVertex, gpu.StageFragment))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLink))
	assert.Contains(t, err.Error(), "failed to link program post")
	var se *ShaderError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "post/post.vert, post/post.frag", se.File)
	assert.Contains(t, err.Error(), "post/post.frag")
	assert.Zero(t, dev.Stats().Shaders)
}

func TestCompileMissingFile(t *testing.T) {
	dev := soft.NewDevice(4, 4)
	fsys := postFS()
	delete(fsys, "post/post.frag")

	_, err := Compile(dev, fsys, PassSource(".", "post", gpu.StageVertex, gpu.StageFragment))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrCompile))
	assert.Zero(t, dev.Stats().Shaders)
}

func TestProgramCacheReload(t *testing.T) {
	dev := soft.NewDevice(4, 4)
	fsys := postFS()
	fsys["shadow/shadow.vert"] = &fstest.MapFile{Data: []byte("#version 410 core\n#pragma soft dirShadow\n")}
	fsys["shadow/shadow.frag"] = &fstest.MapFile{Data: []byte("#version 410 core\n#pragma soft dirShadow\n")}

	core, logs := observer.New(zapcore.InfoLevel)
	cache := NewProgramCache(dev, fsys, zap.New(core))
	cache.Register("post", PassSource(".", "post", gpu.StageVertex, gpu.StageFragment))
	cache.Register("shadow", PassSource(".", "shadow", gpu.StageVertex, gpu.StageFragment))
	defer cache.Dispose()

	require.NoError(t, cache.LoadAll())
	assert.Equal(t, []string{"post", "shadow"}, cache.Names())
	assert.Equal(t, 1, cache.Generation())
	shadowProg := cache.Get("shadow")
	require.NotNil(t, shadowProg)

	fsys["post/post.frag"] = &fstest.MapFile{Data: []byte(badFrag)}
	err := cache.ReloadAll()
	require.Error(t, err)
	assert.Equal(t, 2, cache.Generation())
	assert.Nil(t, cache.Get("post"))

	// the other program was rebuilt and works
	fresh := cache.Get("shadow")
	require.NotNil(t, fresh)
	fresh.Use()
	fresh.SetMat4("u_lightSpaceMatrix", mgl32.Ident4())
	assert.Equal(t, 1, dev.Stats().Programs)

	entries := logs.FilterMessage("shader program unavailable").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "post", entries[0].ContextMap()["program"])
	assert.Equal(t, "post/post.frag", entries[0].ContextMap()["file"])
	assert.Len(t, logs.FilterMessage("shaders reloaded").All(), 1)

	cache.Dispose()
	assert.Zero(t, dev.Stats().Programs)
	assert.Nil(t, cache.Get("shadow"))
}

func TestProgramCacheLoadAllKeepsBuiltPrograms(t *testing.T) {
	dev := soft.NewDevice(4, 4)
	cache := NewProgramCache(dev, postFS(), nil)
	cache.Register("post", PassSource(".", "post", gpu.StageVertex, gpu.StageFragment))
	require.NoError(t, cache.LoadAll())
	first := cache.Get("post")

	require.NoError(t, cache.LoadAll())
	assert.Same(t, first, cache.Get("post"))
	assert.Equal(t, 1, dev.Stats().Programs)
	cache.Dispose()
}
