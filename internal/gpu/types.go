package gpu

import "fmt"

// Handles for device objects. Zero is never a valid object, except for
// DefaultFramebuffer which names the window surface.
type (
	Texture      uint32
	Renderbuffer uint32
	Framebuffer  uint32
	Shader       uint32
	Program      uint32
	Mesh         uint32
)

const DefaultFramebuffer Framebuffer = 0

// NoAttachment disables the read buffer of the bound read framebuffer.
const NoAttachment = -1

// MaxColorAttachments is the number of color attachment points a framebuffer offers.
const MaxColorAttachments = 8

// Format describes the storage of a texture or renderbuffer.
type Format int

const (
	FormatRGB32F Format = iota + 1
	FormatRGBA32F
	FormatRGBA16F
	FormatRGBA8
	FormatDepth32F
	FormatDepth32FStencil8
)

func (f Format) String() string {
	switch f {
	case FormatRGB32F:
		return "RGB32F"
	case FormatRGBA32F:
		return "RGBA32F"
	case FormatRGBA16F:
		return "RGBA16F"
	case FormatRGBA8:
		return "RGBA8"
	case FormatDepth32F:
		return "DEPTH32F"
	case FormatDepth32FStencil8:
		return "DEPTH32F_STENCIL8"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// IsDepth reports whether the format stores depth.
func (f Format) IsDepth() bool {
	return f == FormatDepth32F || f == FormatDepth32FStencil8
}

// HasAlpha reports whether the format stores an alpha channel.
func (f Format) HasAlpha() bool {
	return f == FormatRGBA32F || f == FormatRGBA16F || f == FormatRGBA8
}

type Filter int

const (
	FilterNearest Filter = iota
	FilterLinear
)

type Wrap int

const (
	WrapClampToEdge Wrap = iota
	WrapClampToBorder
	WrapRepeat
)

// TextureDesc describes a 2D texture. Pixels, when set, holds tightly packed
// RGBA8 rows starting at the bottom row.
type TextureDesc struct {
	Width, Height int
	Format        Format
	Filter        Filter
	Wrap          Wrap
	Border        [4]float32
	Pixels        []uint8
}

// Target selects which framebuffer binding point an operation affects.
type Target int

const (
	TargetBoth Target = iota
	TargetDraw
	TargetRead
)

// Status is the completeness of a framebuffer.
type Status int

const (
	StatusComplete Status = iota
	StatusIncompleteAttachment
	StatusMissingAttachment
	StatusUnsupported
	StatusUnknown
)

func (s Status) String() string {
	switch s {
	case StatusComplete:
		return "complete"
	case StatusIncompleteAttachment:
		return "incomplete attachment"
	case StatusMissingAttachment:
		return "missing attachments"
	case StatusUnsupported:
		return "framebuffer unsupported"
	default:
		return "unknown"
	}
}

// StatusError reports an incomplete framebuffer.
type StatusError struct {
	Label  string
	Status Status
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("framebuffer %q not complete: %s", e.Label, e.Status)
}

type ClearMask uint32

const (
	ClearColor ClearMask = 1 << iota
	ClearDepth
	ClearStencil
)

// Stage is a programmable pipeline stage.
type Stage int

const (
	StageVertex Stage = iota
	StageTessControl
	StageTessEval
	StageFragment
)

func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageTessControl:
		return "tessellation control"
	case StageTessEval:
		return "tessellation evaluation"
	case StageFragment:
		return "fragment"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

type BlendMode int

const (
	BlendNone BlendMode = iota
	// BlendAdditive is ONE, ONE with FUNC_ADD.
	BlendAdditive
)

type Primitive int

const (
	PrimitiveTriangles Primitive = iota
	PrimitiveTriangleStrip
)

// MeshDesc describes interleaved float vertex data. Layout lists the
// component count of each attribute in location order.
type MeshDesc struct {
	Vertices  []float32
	Indices   []uint32
	Layout    []int
	Primitive Primitive
}

// Stride returns the number of floats per vertex.
func (m MeshDesc) Stride() int {
	n := 0
	for _, c := range m.Layout {
		n += c
	}
	return n
}

// Rect is a viewport or read-back region in pixels, origin bottom-left.
type Rect struct {
	X, Y, W, H int
}

// Bounds is a blit region with exclusive upper corner, like glBlitFramebuffer.
type Bounds struct {
	X0, Y0, X1, Y1 int
}

// ObjectKind classifies objects for debug labels.
type ObjectKind int

const (
	KindTexture ObjectKind = iota
	KindRenderbuffer
	KindFramebuffer
	KindShader
	KindProgram
	KindMesh
)
