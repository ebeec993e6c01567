package memgpu

import (
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/vkngwrapper/gpuexamples/gpu"
)

type commandBuffer struct {
	dev   *Device
	state gpu.CommandState
	sub   *Submission

	vertexUniforms   map[int][]byte
	fragmentUniforms map[int][]byte
}

func newCommandBuffer(d *Device) *commandBuffer {
	return &commandBuffer{
		dev:              d,
		sub:              &Submission{refs: make(map[uuid.UUID]struct{})},
		vertexUniforms:   make(map[int][]byte),
		fragmentUniforms: make(map[int][]byte),
	}
}

func (cb *commandBuffer) ref(r *resource) bool {
	if r.released {
		cb.state.Fail(errors.Wrapf(gpu.ErrReleased, "%s %s", r.kind, r.id))
		return false
	}
	cb.sub.refs[r.id] = struct{}{}
	return true
}

func (cb *commandBuffer) push(c Command) {
	cb.sub.Commands = append(cb.sub.Commands, c)
}

func cloneUniforms(src map[int][]byte) map[int][]byte {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[int][]byte, len(src))
	for slot, data := range src {
		dst[slot] = data
	}
	return dst
}

func (cb *commandBuffer) PushVertexUniformData(slot int, data []byte) {
	if !cb.state.PushUniform("push vertex uniform") {
		return
	}
	cp := append([]byte(nil), data...)
	cb.vertexUniforms[slot] = cp
	cb.push(Command{Op: OpPushVertexData, Bytes: len(cp), VertexUniforms: map[int][]byte{slot: cp}})
}

func (cb *commandBuffer) PushFragmentUniformData(slot int, data []byte) {
	if !cb.state.PushUniform("push fragment uniform") {
		return
	}
	cp := append([]byte(nil), data...)
	cb.fragmentUniforms[slot] = cp
	cb.push(Command{Op: OpPushFragmentData, Bytes: len(cp), FragmentUniforms: map[int][]byte{slot: cp}})
}

func (cb *commandBuffer) WaitAndAcquireSwapchainTexture(w gpu.Window) (gpu.Texture, error) {
	if !cb.state.AcquireSwapchain() {
		return nil, cb.state.Err()
	}
	tex, err := cb.dev.acquire(w)
	if err != nil {
		return nil, err
	}
	if tex == nil {
		return nil, nil
	}
	cb.sub.Presents = true
	return tex, nil
}

func (cb *commandBuffer) Submit() error {
	if err := cb.state.Finish(true); err != nil {
		cb.dev.logf("rejected submission: %v", err)
		return err
	}
	return cb.dev.submit(cb)
}

func (cb *commandBuffer) Cancel() error {
	if cb.sub.Presents {
		return errors.Wrap(gpu.ErrInvalidCommandOrder, "cancel after acquiring a swapchain texture")
	}
	return cb.state.Finish(false)
}

func (cb *commandBuffer) BeginCopyPass() gpu.CopyPass {
	cb.state.BeginCopyPass()
	return &copyPass{cb: cb}
}

func (cb *commandBuffer) BeginRenderPass(colorTargets []gpu.ColorTargetInfo, depthStencilTarget *gpu.DepthStencilTargetInfo) gpu.RenderPass {
	rp := &renderPass{cb: cb, vertexBuffers: make(map[int]*buffer)}
	if !cb.state.BeginRenderPass() {
		return rp
	}
	if len(colorTargets) == 0 {
		cb.state.Fail(errors.New("memgpu: render pass without color targets"))
		return rp
	}

	cmd := Command{Op: OpBeginRenderPass, ClearColor: colorTargets[0].ClearColor}
	for i, target := range colorTargets {
		tex, ok := target.Texture.(*texture)
		if !ok {
			cb.state.Fail(errors.Errorf("memgpu: color target %d is not a memgpu texture", i))
			return rp
		}
		if !cb.ref(&tex.resource) {
			return rp
		}
		cmd.Resources = append(cmd.Resources, tex.id)
		if i == 0 {
			rp.width, rp.height = tex.info.Width, tex.info.Height
		}
	}

	if depthStencilTarget != nil {
		tex, ok := depthStencilTarget.Texture.(*texture)
		if !ok || !tex.info.Format.IsDepth() {
			cb.state.Fail(errors.Wrap(gpu.ErrUnsupportedFormat, "depth target"))
			return rp
		}
		if !cb.ref(&tex.resource) {
			return rp
		}
		if tex.info.Width < rp.width || tex.info.Height < rp.height {
			cb.state.Fail(errors.Errorf("memgpu: depth target %dx%d smaller than color target %dx%d",
				tex.info.Width, tex.info.Height, rp.width, rp.height))
			return rp
		}
		cmd.Resources = append(cmd.Resources, tex.id)
		cmd.HasDepth = true
		cmd.ClearDepth = depthStencilTarget.ClearDepth
	}

	rp.viewport = gpu.Viewport{W: float32(rp.width), H: float32(rp.height), MaxDepth: 1}
	cmd.Viewport = rp.viewport
	cb.push(cmd)
	return rp
}

type copyPass struct {
	cb *commandBuffer
}

func (p *copyPass) UploadToBuffer(src gpu.TransferBufferLocation, dst gpu.BufferRegion, cycle bool) {
	cb := p.cb
	if !cb.state.Copy("upload to buffer") {
		return
	}
	tb, ok := src.TransferBuffer.(*transferBuffer)
	buf, ok2 := dst.Buffer.(*buffer)
	if !ok || !ok2 {
		cb.state.Fail(errors.New("memgpu: foreign resource in buffer upload"))
		return
	}
	if tb.info.Usage != gpu.TransferBufferUsageUpload {
		cb.state.Fail(errors.New("memgpu: upload from a download transfer buffer"))
		return
	}
	if src.Offset < 0 || src.Offset+dst.Size > len(tb.data) || dst.Offset < 0 || dst.Offset+dst.Size > len(buf.data) {
		cb.state.Fail(errors.Errorf("memgpu: buffer upload of %d bytes out of range", dst.Size))
		return
	}
	if !cb.ref(&tb.resource) || !cb.ref(&buf.resource) {
		return
	}

	data := tb.data
	cb.sub.ops = append(cb.sub.ops, func() {
		copy(buf.data[dst.Offset:dst.Offset+dst.Size], data[src.Offset:src.Offset+dst.Size])
	})
	cb.push(Command{Op: OpUploadBuffer, Resources: []uuid.UUID{tb.id, buf.id}, Bytes: dst.Size})
}

func (p *copyPass) UploadToTexture(src gpu.TextureTransferInfo, dst gpu.TextureRegion, cycle bool) {
	cb := p.cb
	if !cb.state.Copy("upload to texture") {
		return
	}
	tb, ok := src.TransferBuffer.(*transferBuffer)
	tex, ok2 := dst.Texture.(*texture)
	if !ok || !ok2 {
		cb.state.Fail(errors.New("memgpu: foreign resource in texture upload"))
		return
	}

	bpp := tex.info.Format.BytesPerTexel()
	rowPixels := src.PixelsPerRow
	if rowPixels == 0 {
		rowPixels = dst.W
	}
	depth := dst.D
	if depth == 0 {
		depth = 1
	}
	if dst.X < 0 || dst.Y < 0 || dst.X+dst.W > tex.info.Width || dst.Y+dst.H > tex.info.Height || rowPixels < dst.W {
		cb.state.Fail(errors.Errorf("memgpu: texture region %dx%d+%d+%d out of range", dst.W, dst.H, dst.X, dst.Y))
		return
	}
	need := src.Offset + ((dst.H-1)*rowPixels+dst.W)*bpp
	if depth != 1 || need > len(tb.data) {
		cb.state.Fail(errors.Errorf("memgpu: texture upload needs %d bytes, transfer buffer has %d", need, len(tb.data)))
		return
	}
	if !cb.ref(&tb.resource) || !cb.ref(&tex.resource) {
		return
	}

	data := tb.data
	cb.sub.ops = append(cb.sub.ops, func() {
		rowBytes := dst.W * bpp
		for y := 0; y < dst.H; y++ {
			from := src.Offset + y*rowPixels*bpp
			to := ((dst.Y+y)*tex.info.Width + dst.X) * bpp
			copy(tex.data[to:to+rowBytes], data[from:from+rowBytes])
		}
	})
	cb.push(Command{Op: OpUploadTexture, Resources: []uuid.UUID{tb.id, tex.id}, Bytes: dst.W * dst.H * bpp})
}

func (p *copyPass) DownloadFromBuffer(src gpu.BufferRegion, dst gpu.TransferBufferLocation) {
	cb := p.cb
	if !cb.state.Copy("download from buffer") {
		return
	}
	buf, ok := src.Buffer.(*buffer)
	tb, ok2 := dst.TransferBuffer.(*transferBuffer)
	if !ok || !ok2 {
		cb.state.Fail(errors.New("memgpu: foreign resource in buffer download"))
		return
	}
	if tb.info.Usage != gpu.TransferBufferUsageDownload {
		cb.state.Fail(errors.New("memgpu: download into an upload transfer buffer"))
		return
	}
	if src.Offset < 0 || src.Offset+src.Size > len(buf.data) || dst.Offset < 0 || dst.Offset+src.Size > len(tb.data) {
		cb.state.Fail(errors.Errorf("memgpu: buffer download of %d bytes out of range", src.Size))
		return
	}
	if !cb.ref(&buf.resource) || !cb.ref(&tb.resource) {
		return
	}

	cb.sub.ops = append(cb.sub.ops, func() {
		copy(tb.data[dst.Offset:dst.Offset+src.Size], buf.data[src.Offset:src.Offset+src.Size])
	})
	cb.push(Command{Op: OpDownloadBuffer, Resources: []uuid.UUID{buf.id, tb.id}, Bytes: src.Size})
}

func (p *copyPass) End() {
	p.cb.state.EndCopyPass()
}

type renderPass struct {
	cb            *commandBuffer
	width, height int

	pipeline      *pipeline
	vertexBuffers map[int]*buffer
	index         *buffer
	indexSize     gpu.IndexElementSize
	samplers      []uuid.UUID
	viewport      gpu.Viewport
	scissor       gpu.Rect
}

func (rp *renderPass) BindGraphicsPipeline(p gpu.GraphicsPipeline) {
	cb := rp.cb
	if !cb.state.BindPipeline() {
		return
	}
	pl, ok := p.(*pipeline)
	if !ok {
		cb.state.Fail(errors.New("memgpu: foreign pipeline"))
		return
	}
	if !cb.ref(&pl.resource) {
		return
	}
	rp.pipeline = pl
	cb.push(Command{Op: OpBindPipeline, Resources: []uuid.UUID{pl.id}})
}

func (rp *renderPass) SetViewport(v gpu.Viewport) {
	if !rp.cb.state.Bind("set viewport") {
		return
	}
	rp.viewport = v
	rp.cb.push(Command{Op: OpSetViewport, Viewport: v})
}

func (rp *renderPass) SetScissor(r gpu.Rect) {
	if !rp.cb.state.Bind("set scissor") {
		return
	}
	rp.scissor = r
	rp.cb.push(Command{Op: OpSetScissor, Scissor: r})
}

func (rp *renderPass) BindVertexBuffers(firstSlot int, bindings ...gpu.BufferBinding) {
	cb := rp.cb
	if !cb.state.Bind("bind vertex buffers") {
		return
	}
	cmd := Command{Op: OpBindVertex}
	for i, binding := range bindings {
		buf, ok := binding.Buffer.(*buffer)
		if !ok || buf.info.Usage&gpu.BufferUsageVertex == 0 {
			cb.state.Fail(errors.Errorf("memgpu: slot %d is not bound to a vertex buffer", firstSlot+i))
			return
		}
		if !cb.ref(&buf.resource) {
			return
		}
		rp.vertexBuffers[firstSlot+i] = buf
		cmd.Resources = append(cmd.Resources, buf.id)
	}
	cb.push(cmd)
}

func (rp *renderPass) BindIndexBuffer(binding gpu.BufferBinding, size gpu.IndexElementSize) {
	cb := rp.cb
	if !cb.state.Bind("bind index buffer") {
		return
	}
	buf, ok := binding.Buffer.(*buffer)
	if !ok || buf.info.Usage&gpu.BufferUsageIndex == 0 {
		cb.state.Fail(errors.New("memgpu: index binding is not an index buffer"))
		return
	}
	if !cb.ref(&buf.resource) {
		return
	}
	rp.index = buf
	rp.indexSize = size
	cb.push(Command{Op: OpBindIndex, Resources: []uuid.UUID{buf.id}, Bytes: size.Bytes()})
}

func (rp *renderPass) BindFragmentSamplers(firstSlot int, bindings ...gpu.TextureSamplerBinding) {
	cb := rp.cb
	if !cb.state.Bind("bind fragment samplers") {
		return
	}
	cmd := Command{Op: OpBindSamplers}
	for i, binding := range bindings {
		tex, ok := binding.Texture.(*texture)
		smp, ok2 := binding.Sampler.(*sampler)
		if !ok || !ok2 {
			cb.state.Fail(errors.Errorf("memgpu: sampler slot %d has foreign resources", firstSlot+i))
			return
		}
		if !cb.ref(&tex.resource) || !cb.ref(&smp.resource) {
			return
		}
		cmd.Resources = append(cmd.Resources, tex.id, smp.id)
	}
	rp.samplers = cmd.Resources
	cb.push(cmd)
}

func (rp *renderPass) checkVertexInput(op string) bool {
	if rp.pipeline == nil {
		// The bind itself failed and already recorded why.
		return false
	}
	for _, desc := range rp.pipeline.info.VertexInputState.VertexBufferDescriptions {
		if _, ok := rp.vertexBuffers[desc.Slot]; !ok {
			rp.cb.state.Fail(errors.Wrapf(gpu.ErrInvalidCommandOrder, "%s with vertex buffer slot %d unbound", op, desc.Slot))
			return false
		}
	}
	return true
}

func (rp *renderPass) drawCommand(op Op) Command {
	return Command{
		Op:               op,
		Resources:        append([]uuid.UUID{rp.pipeline.id}, rp.samplers...),
		Viewport:         rp.viewport,
		Scissor:          rp.scissor,
		VertexUniforms:   cloneUniforms(rp.cb.vertexUniforms),
		FragmentUniforms: cloneUniforms(rp.cb.fragmentUniforms),
	}
}

func (rp *renderPass) DrawPrimitives(numVertices, numInstances, firstVertex, firstInstance int) {
	if !rp.cb.state.Draw("draw") || !rp.checkVertexInput("draw") {
		return
	}
	cmd := rp.drawCommand(OpDraw)
	cmd.Count, cmd.Instances, cmd.First = numVertices, numInstances, firstVertex
	rp.cb.push(cmd)
}

func (rp *renderPass) DrawIndexedPrimitives(numIndices, numInstances, firstIndex, vertexOffset, firstInstance int) {
	if !rp.cb.state.Draw("draw indexed") || !rp.checkVertexInput("draw indexed") {
		return
	}
	if rp.index == nil {
		rp.cb.state.Fail(errors.Wrap(gpu.ErrInvalidCommandOrder, "draw indexed without an index buffer"))
		return
	}
	if (firstIndex+numIndices)*rp.indexSize.Bytes() > rp.index.info.Size {
		rp.cb.state.Fail(errors.Errorf("memgpu: %d indices from %d overrun index buffer of %d bytes",
			numIndices, firstIndex, rp.index.info.Size))
		return
	}
	cmd := rp.drawCommand(OpDrawIndexed)
	cmd.Count, cmd.Instances, cmd.First, cmd.VertexOffset = numIndices, numInstances, firstIndex, vertexOffset
	rp.cb.push(cmd)
}

func (rp *renderPass) End() {
	if rp.cb.state.EndRenderPass() {
		rp.cb.push(Command{Op: OpEndRenderPass})
	}
}
