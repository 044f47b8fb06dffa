package gui

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/san-kum/metaballs/internal/field"
	"github.com/san-kum/metaballs/internal/raymarch"
)

var ErrShader = errors.New("gui: shader compile failed")

// uniformNames are the fragment shader inputs, in upload order.
var uniformNames = []string{
	"ballPositions", "ballRadii", "ballColors", "numBalls", "time",
	"camPos", "camForward", "camRight", "camUp", "tanHalfFov",
	"resolution", "threshold", "maxDistance", "minStep", "maxStep", "reach",
}

type gpuView struct {
	shader rl.Shader
	locs   map[string]int32
}

func newGPUView(maxSteps int) (*gpuView, error) {
	shader := rl.LoadShaderFromMemory("", raymarch.FragmentShader(maxSteps))
	v := &gpuView{shader: shader, locs: make(map[string]int32, len(uniformNames))}
	for _, name := range uniformNames {
		v.locs[name] = rl.GetShaderLocation(shader, name)
	}
	// raylib swaps in its default shader on failure, which has none of ours.
	if v.locs["numBalls"] < 0 {
		rl.UnloadShader(shader)
		return nil, fmt.Errorf("%w: numBalls not found", ErrShader)
	}
	return v, nil
}

func (v *gpuView) setFloat(name string, f float32) {
	rl.SetShaderValue(v.shader, v.locs[name], []float32{f}, rl.ShaderUniformFloat)
}

func (v *gpuView) setVec3(name string, vec [3]float32) {
	rl.SetShaderValue(v.shader, v.locs[name], vec[:], rl.ShaderUniformVec3)
}

func (v *gpuView) upload(u raymarch.Uniforms, width, height int) {
	rl.SetShaderValueV(v.shader, v.locs["ballPositions"], u.Positions, rl.ShaderUniformVec3, field.MaxBalls)
	rl.SetShaderValueV(v.shader, v.locs["ballRadii"], u.Radii, rl.ShaderUniformFloat, field.MaxBalls)
	rl.SetShaderValueV(v.shader, v.locs["ballColors"], u.Colors, rl.ShaderUniformVec3, field.MaxBalls)
	v.setFloat("numBalls", u.NumBalls)
	v.setFloat("time", u.Time)
	v.setVec3("camPos", u.CamPos)
	v.setVec3("camForward", u.CamForward)
	v.setVec3("camRight", u.CamRight)
	v.setVec3("camUp", u.CamUp)
	v.setFloat("tanHalfFov", u.TanHalfFOV)
	rl.SetShaderValue(v.shader, v.locs["resolution"], []float32{float32(width), float32(height)}, rl.ShaderUniformVec2)
	v.setFloat("threshold", u.Threshold)
	v.setFloat("maxDistance", u.MaxDist)
	v.setFloat("minStep", u.MinStep)
	v.setFloat("maxStep", u.MaxStep)
	v.setFloat("reach", u.Reach)
}

// draw covers the window with one rectangle so every pixel runs the kernel.
func (v *gpuView) draw(snap *field.Snapshot, cam raymarch.Camera, set raymarch.Settings, t float64, width, height int) error {
	u, err := raymarch.NewUniforms(snap, cam, set, t)
	if err != nil {
		return err
	}
	v.upload(u, width, height)
	rl.BeginShaderMode(v.shader)
	rl.DrawRectangle(0, 0, int32(width), int32(height), rl.White)
	rl.EndShaderMode()
	return nil
}

func (v *gpuView) close() { rl.UnloadShader(v.shader) }

// cpuView streams Go-rendered frames into a texture.
type cpuView struct {
	tex    rl.Texture2D
	img    *image.RGBA
	pixels []color.RGBA
	w, h   int
}

func newCPUView(width, height int) *cpuView {
	im := rl.GenImageColor(width, height, rl.Blank)
	tex := rl.LoadTextureFromImage(im)
	rl.UnloadImage(im)
	rl.SetTextureFilter(tex, rl.FilterBilinear)
	return &cpuView{
		tex:    tex,
		img:    image.NewRGBA(image.Rect(0, 0, width, height)),
		pixels: make([]color.RGBA, width*height),
		w:      width,
		h:      height,
	}
}

func (v *cpuView) fits(f *raymarch.Frame) bool { return f.Width == v.w && f.Height == v.h }

func (v *cpuView) upload(f *raymarch.Frame, bg color.Color) {
	f.CompositeInto(v.img, bg)
	copyPixels(v.pixels, v.img)
	rl.UpdateTexture(v.tex, v.pixels)
}

func (v *cpuView) draw(width, height int) {
	src := rl.NewRectangle(0, 0, float32(v.w), float32(v.h))
	dst := rl.NewRectangle(0, 0, float32(width), float32(height))
	rl.DrawTexturePro(v.tex, src, dst, rl.NewVector2(0, 0), 0, rl.White)
}

func (v *cpuView) close() { rl.UnloadTexture(v.tex) }
