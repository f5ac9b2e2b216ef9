// Package rlgpu implements the engine3D GPU interfaces on raylib. Every call
// must happen on the thread that opened the raylib window.
package rlgpu

import (
	"errors"
	"fmt"
	"image"
	"sort"
	"unsafe"

	"duo-cards/internal/engine3D"
	"duo-cards/internal/utils"

	"cogentcore.org/core/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// Device creates raylib render-texture contexts. The window must be open.
type Device struct{}

func NewDevice() *Device { return &Device{} }

func (d *Device) NewContext(size image.Point) (engine3D.Context, error) {
	if !rl.IsWindowReady() {
		return nil, errors.New("raylib window not ready")
	}

	shader := rl.LoadShaderFromMemory(cardVertexShader, cardFragmentShader)
	if shader.ID == 0 {
		return nil, errors.New("compile card shader")
	}

	target := rl.LoadRenderTexture(int32(size.X), int32(size.Y))
	if target.ID == 0 {
		rl.UnloadShader(shader)
		return nil, fmt.Errorf("create %dx%d render target", size.X, size.Y)
	}
	rl.SetTextureFilter(target.Texture, rl.FilterBilinear)

	material := rl.LoadMaterialDefault()
	material.Shader = shader

	img := rl.GenImageColor(1, 1, rl.White)
	placeholder := rl.LoadTextureFromImage(img)
	rl.UnloadImage(img)

	c := &Context{
		shader:      shader,
		material:    material,
		placeholder: placeholder,
		target:      target,
		size:        size,
		opacityLoc:  rl.GetShaderLocation(shader, "opacity"),
		clear:       rl.NewColor(0x0b, 0x0f, 0x19, 0xff),
	}
	utils.Debug("RLGPU: context created, target %dx%d", size.X, size.Y)
	return c, nil
}

// Context draws into its own render texture and presents it into a window region.
type Context struct {
	shader      rl.Shader
	material    rl.Material
	placeholder rl.Texture2D
	target      rl.RenderTexture2D
	size        image.Point
	opacityLoc  int32
	clear       rl.Color
	released    bool
}

type texture struct {
	tex      rl.Texture2D
	released bool
}

func (t *texture) Size() image.Point { return image.Pt(int(t.tex.Width), int(t.tex.Height)) }

func (t *texture) Release() error {
	if t.released {
		return errors.New("texture already released")
	}
	t.released = true
	rl.UnloadTexture(t.tex)
	return nil
}

// material is one card's binding of front and back textures. The shader
// itself is shared by every card of the context.
type material struct {
	front, back *texture
	released    bool
}

func (m *material) Bind(front, back engine3D.Texture) {
	m.front, _ = front.(*texture)
	m.back, _ = back.(*texture)
}

func (m *material) Release() error {
	if m.released {
		return errors.New("material already released")
	}
	m.released = true
	m.front, m.back = nil, nil
	return nil
}

type geometry struct {
	mesh     rl.Mesh
	released bool
}

func (g *geometry) Release() error {
	if g.released {
		return errors.New("geometry already released")
	}
	g.released = true
	rl.UnloadMesh(&g.mesh)
	return nil
}

func (c *Context) UploadTexture(img *image.RGBA) (engine3D.Texture, error) {
	if c.released {
		return nil, engine3D.ErrContextLost
	}
	if img.Rect.Empty() {
		return nil, fmt.Errorf("upload %v texture", img.Rect.Size())
	}
	var tex rl.Texture2D
	withImage(img, func(rimg *rl.Image) { tex = rl.LoadTextureFromImage(rimg) })
	if tex.ID == 0 {
		return nil, fmt.Errorf("upload %v texture", img.Rect.Size())
	}
	rl.GenTextureMipmaps(&tex)
	rl.SetTextureFilter(tex, rl.FilterTrilinear)
	return &texture{tex: tex}, nil
}

// withImage copies img into a raylib-owned image, hands it to fn and unloads it.
func withImage(img *image.RGBA, fn func(*rl.Image)) {
	size := img.Rect.Size()
	rimg := rl.GenImageColor(size.X, size.Y, rl.Blank)
	defer rl.UnloadImage(rimg)

	row := size.X * 4
	dst := unsafe.Slice((*byte)(rimg.Data), row*size.Y)
	for y := 0; y < size.Y; y++ {
		src := img.Pix[img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y):]
		copy(dst[y*row:(y+1)*row], src[:row])
	}
	fn(rimg)
}

func (c *Context) NewMaterial(front, back engine3D.Texture) (engine3D.Material, error) {
	if c.released {
		return nil, engine3D.ErrContextLost
	}
	m := &material{}
	m.Bind(front, back)
	if m.front == nil || m.back == nil {
		return nil, errors.New("material needs raylib textures")
	}
	return m, nil
}

// NewQuad builds a width x height plane in the XZ plane. Draw turns it to face +Z.
func (c *Context) NewQuad(width, height float32) (engine3D.Geometry, error) {
	if c.released {
		return nil, engine3D.ErrContextLost
	}
	mesh := rl.GenMeshPlane(width, height, 1, 1)
	if mesh.VaoID == 0 {
		return nil, errors.New("upload quad mesh")
	}
	return &geometry{mesh: mesh}, nil
}

func (c *Context) Resize(size image.Point) error {
	if c.released {
		return engine3D.ErrContextLost
	}
	if size == c.size {
		return nil
	}
	target := rl.LoadRenderTexture(int32(size.X), int32(size.Y))
	if target.ID == 0 {
		return fmt.Errorf("create %dx%d render target", size.X, size.Y)
	}
	rl.SetTextureFilter(target.Texture, rl.FilterBilinear)
	rl.UnloadRenderTexture(c.target)
	c.target = target
	c.size = size
	return nil
}

func (c *Context) Lost() bool {
	return c.released || c.target.ID == 0 || !rl.IsWindowReady()
}

var faceUp = math32.NewQuatAxisAngle(math32.Vec3(1, 0, 0), math32.Pi/2)

// Draw renders visible cards back to front.
func (c *Context) Draw(scene *engine3D.Scene, camera *engine3D.Camera) error {
	if c.Lost() {
		return engine3D.ErrContextLost
	}

	placed := scene.Visible()
	sort.SliceStable(placed, func(i, j int) bool { return placed[i].World.Z < placed[j].World.Z })

	rl.BeginTextureMode(c.target)
	rl.ClearBackground(c.clear)
	rl.BeginMode3D(rl.Camera3D{
		Position:   vec(camera.Position),
		Target:     vec(camera.Target),
		Up:         vec(camera.Up),
		Fovy:       camera.FovY,
		Projection: rl.CameraPerspective,
	})
	rl.DisableBackfaceCulling()
	rl.BeginBlendMode(rl.BlendAlpha)

	for _, p := range placed {
		mat, ok := p.Mesh.Material().(*material)
		if !ok || mat.released || mat.front == nil || mat.back == nil {
			continue
		}
		geo, ok := p.Mesh.Geometry().(*geometry)
		if !ok || geo.released {
			continue
		}

		rl.SetMaterialTexture(&c.material, int32(rl.MapDiffuse), mat.back.tex)
		rl.SetMaterialTexture(&c.material, int32(rl.MapSpecular), mat.front.tex)
		if c.opacityLoc != -1 {
			rl.SetShaderValue(c.shader, c.opacityLoc, []float32{p.Mesh.Opacity}, rl.ShaderUniformFloat)
		}

		q := engine3D.Rotation(p.Mesh.Rotation)
		q.SetMul(faceUp)
		rl.DrawMesh(geo.mesh, c.material, matrix(engine3D.Transform(p.World, q)))
	}

	rl.EndBlendMode()
	rl.EnableBackfaceCulling()
	rl.EndMode3D()
	rl.EndTextureMode()
	return nil
}

// Present draws the render target into dst. Render textures are stored
// upside down, hence the negative source height.
func (c *Context) Present(dst image.Rectangle) {
	if c.released || c.target.ID == 0 || dst.Empty() {
		return
	}
	w, h := float32(c.target.Texture.Width), float32(c.target.Texture.Height)
	rl.DrawTexturePro(
		c.target.Texture,
		rl.NewRectangle(0, 0, w, -h),
		rl.NewRectangle(float32(dst.Min.X), float32(dst.Min.Y), float32(dst.Dx()), float32(dst.Dy())),
		rl.NewVector2(0, 0),
		0,
		rl.White,
	)
}

// Release frees the render target, the shared material and the shader.
// Card textures and meshes belong to their CardMesh and must be released first.
func (c *Context) Release() error {
	if c.released {
		return nil
	}
	c.released = true

	rl.UnloadRenderTexture(c.target)
	c.target = rl.RenderTexture2D{}

	// UnloadMaterial frees every bound map texture and the shader. Point the
	// maps at our placeholder so card textures are left alone.
	rl.SetMaterialTexture(&c.material, int32(rl.MapDiffuse), c.placeholder)
	rl.SetMaterialTexture(&c.material, int32(rl.MapSpecular), rl.Texture2D{})
	rl.UnloadMaterial(c.material)
	utils.Debug("RLGPU: context released")
	return nil
}

func vec(v engine3D.Vec3) rl.Vector3 { return rl.NewVector3(v.X, v.Y, v.Z) }

func matrix(m *engine3D.Mat4) rl.Matrix {
	return rl.Matrix{
		M0: m[0], M1: m[1], M2: m[2], M3: m[3],
		M4: m[4], M5: m[5], M6: m[6], M7: m[7],
		M8: m[8], M9: m[9], M10: m[10], M11: m[11],
		M12: m[12], M13: m[13], M14: m[14], M15: m[15],
	}
}
