package main

import (
	"flag"
	"log"
	"os"
	"runtime"
	"strings"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/vulkan-go/vulkan"
	"github.com/xlab/closer"

	"helix/src/asset"
	"helix/src/render"
	"helix/src/scene"
)

func init() {
	// GLFW event handling and surface creation must stay on one thread.
	runtime.LockOSThread()
}

var (
	flagDebug   = flag.Bool("debug", false, "enable the validation layer")
	flagWidth   = flag.Int("width", 1280, "initial window width")
	flagHeight  = flag.Int("height", 720, "initial window height")
	flagVert    = flag.String("vert", "shaders/scene.vert.spv", "compiled vertex shader")
	flagFrag    = flag.String("frag", "shaders/scene.frag.spv", "compiled fragment shader")
	flagTexture = flag.String("texture", "", "texture image (png or jpeg); checkerboard if empty")
)

// windowSurface adapts a GLFW window to the renderer's surface provider.
type windowSurface struct {
	window *glfw.Window
}

func (w windowSurface) DrawableExtent() (uint32, uint32) {
	width, height := w.window.GetFramebufferSize()
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return uint32(width), uint32(height)
}

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	defer closer.Close()

	orExit(glfw.Init())
	closer.Bind(glfw.Terminate)

	vulkan.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	orExit(vulkan.Init())

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	window, err := glfw.CreateWindow(*flagWidth, *flagHeight, "helix", nil, nil)
	orExit(err)
	closer.Bind(window.Destroy)

	extensions := window.GetRequiredInstanceExtensions()
	for i, ext := range extensions {
		if !strings.HasSuffix(ext, "\x00") {
			extensions[i] = ext + "\x00"
		}
	}

	instance, dbg, err := render.CreateInstance(render.InstanceConfig{
		AppName:    "helix",
		Extensions: extensions,
		Debug:      *flagDebug,
	})
	orExit(err)

	surfacePtr, err := window.CreateWindowSurface(instance, nil)
	orExit(err)
	surface := vulkan.SurfaceFromPointer(surfacePtr)

	ctx, err := render.NewContext(instance, surface, dbg, *flagDebug)
	orExit(err)
	closer.Bind(ctx.Destroy)

	vertSPV, err := os.ReadFile(*flagVert)
	orExit(err)
	fragSPV, err := os.ReadFile(*flagFrag)
	orExit(err)

	texture := loadTexture(*flagTexture)
	cube := asset.Cube()
	entities := []scene.Entity{
		{Position: [3]float32{0, 0, 0}},
		{Position: [3]float32{1.5, 0, -0.25}, Yaw: 0.7, Scale: 0.5},
		{Position: [3]float32{-1.5, 0.5, -0.25}, Yaw: -0.4, Scale: 0.5},
	}

	meshes := make([]render.MeshData, 0, len(entities))
	for i := range entities {
		meshes = append(meshes, render.MeshData{
			Vertices:   cube.VertexBytes(),
			Indices:    cube.IndexBytes(),
			IndexCount: cube.IndexCount(),
			Model:      entities[i].ModelMatrix(),
		})
	}

	renderer, err := render.NewRenderer(ctx, render.RendererConfig{
		Surface:          windowSurface{window},
		Camera:           scene.NewCamera(),
		Meshes:           meshes,
		TexturePixels:    texture.Pixels,
		TextureWidth:     texture.Width,
		TextureHeight:    texture.Height,
		VertexSPV:        vertSPV,
		FragmentSPV:      fragSPV,
		VertexBinding:    asset.VertexBinding(),
		VertexAttributes: asset.VertexAttributes(),
		PushConstantSize: 16 * 4, // one mat4
	})
	orExit(err)
	closer.Bind(func() {
		if err := ctx.WaitIdle(); err != nil {
			log.Printf("WARNING: device idle wait on shutdown: %s", err)
		}
		renderer.Destroy()
	})

	loop := render.NewFrameLoop(renderer)
	window.SetFramebufferSizeCallback(func(_ *glfw.Window, _, _ int) {
		loop.ScheduleRebuild()
	})

	for !window.ShouldClose() {
		glfw.PollEvents()

		// A minimized window has no drawable area; sleep on events
		// instead of spinning rebuilds against a zero extent.
		if w, h := windowSurface{window}.DrawableExtent(); w == 0 || h == 0 {
			glfw.WaitEvents()
			continue
		}

		if err := loop.Tick(); err != nil {
			log.Printf("frame failed: %s", err)
			break
		}
	}
}

func loadTexture(path string) *asset.TextureData {
	if path == "" {
		return asset.Checkerboard(256, 8)
	}
	texture, err := asset.LoadTexture(path)
	if err != nil {
		log.Printf("WARNING: %s, falling back to checkerboard", err)
		return asset.Checkerboard(256, 8)
	}
	return texture
}

func orExit(err error) {
	if err != nil {
		closer.Fatalln(err)
	}
}
