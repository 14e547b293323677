package glbackend

import (
	"testing"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/stretchr/testify/assert"

	"defview/internal/gpu"
)

func TestHasExtension(t *testing.T) {
	exts := []string{"GL_ARB_debug_output", "GL_KHR_debug", "GL_KHR_no_error"}
	assert.True(t, hasExtension(exts, "GL_KHR_debug"))
	assert.False(t, hasExtension(exts, "GL_KHR_debu"))
	assert.False(t, hasExtension(nil, "GL_KHR_debug"))
}

func TestIdentifierOf(t *testing.T) {
	tests := []struct {
		kind gpu.ObjectKind
		want uint32
	}{
		{gpu.KindTexture, gl.TEXTURE},
		{gpu.KindRenderbuffer, gl.RENDERBUFFER},
		{gpu.KindFramebuffer, gl.FRAMEBUFFER},
		{gpu.KindShader, gl.SHADER},
		{gpu.KindProgram, gl.PROGRAM},
		{gpu.KindMesh, gl.VERTEX_ARRAY},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, identifierOf(tt.kind), "kind %d", tt.kind)
	}
	assert.Panics(t, func() { identifierOf(gpu.ObjectKind(99)) })
}
