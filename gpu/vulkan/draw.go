package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"

	"github.com/vkngwrapper/gpuexamples/gpu"
)

func (cb *commandBuffer) BeginCopyPass() gpu.CopyPass {
	if cb.state.BeginCopyPass() {
		cb.memoryBarrier(
			core1_0.PipelineStageAllCommands, core1_0.PipelineStageTransfer,
			core1_0.AccessMemoryRead|core1_0.AccessMemoryWrite, core1_0.AccessTransferRead|core1_0.AccessTransferWrite,
		)
	}
	return &copyPass{cb: cb}
}

type copyPass struct {
	cb *commandBuffer
}

func (cb *commandBuffer) refTransfer(tb *transferBuffer) bool {
	if tb.released || tb.alloc == nil {
		cb.state.Fail(errors.Wrap(gpu.ErrReleased, "transfer buffer"))
		return false
	}
	return cb.ref(&tb.alloc.resource)
}

// UploadToBuffer copies from a transfer buffer. Cycling is not needed here:
// the copy is ordered against earlier reads of dst by the copy pass barrier.
func (p *copyPass) UploadToBuffer(src gpu.TransferBufferLocation, dst gpu.BufferRegion, cycle bool) {
	cb := p.cb
	if !cb.state.Copy("upload to buffer") {
		return
	}
	tb, ok := src.TransferBuffer.(*transferBuffer)
	buf, ok2 := dst.Buffer.(*buffer)
	if !ok || !ok2 {
		cb.state.Fail(errors.New("vulkan: foreign resource in buffer upload"))
		return
	}
	if tb.info.Usage != gpu.TransferBufferUsageUpload {
		cb.state.Fail(errors.New("vulkan: upload from a download transfer buffer"))
		return
	}
	if src.Offset < 0 || src.Offset+dst.Size > tb.info.Size || dst.Offset < 0 || dst.Offset+dst.Size > buf.info.Size {
		cb.state.Fail(errors.Errorf("vulkan: buffer upload of %d bytes out of range", dst.Size))
		return
	}
	if dst.Size == 0 || !cb.refTransfer(tb) || !cb.ref(&buf.resource) {
		return
	}

	err := cb.dev.deviceDriver.CmdCopyBuffer(cb.cmd, tb.alloc.buffer, buf.buffer, core1_0.BufferCopy{
		SrcOffset: src.Offset,
		DstOffset: dst.Offset,
		Size:      dst.Size,
	})
	if err != nil {
		cb.state.Fail(errors.Wrap(err, "copy buffer"))
	}
}

func (p *copyPass) DownloadFromBuffer(src gpu.BufferRegion, dst gpu.TransferBufferLocation) {
	cb := p.cb
	if !cb.state.Copy("download from buffer") {
		return
	}
	buf, ok := src.Buffer.(*buffer)
	tb, ok2 := dst.TransferBuffer.(*transferBuffer)
	if !ok || !ok2 {
		cb.state.Fail(errors.New("vulkan: foreign resource in buffer download"))
		return
	}
	if tb.info.Usage != gpu.TransferBufferUsageDownload {
		cb.state.Fail(errors.New("vulkan: download into an upload transfer buffer"))
		return
	}
	if src.Offset < 0 || src.Offset+src.Size > buf.info.Size || dst.Offset < 0 || dst.Offset+src.Size > tb.info.Size {
		cb.state.Fail(errors.Errorf("vulkan: buffer download of %d bytes out of range", src.Size))
		return
	}
	if src.Size == 0 || !cb.ref(&buf.resource) || !cb.refTransfer(tb) {
		return
	}

	err := cb.dev.deviceDriver.CmdCopyBuffer(cb.cmd, buf.buffer, tb.alloc.buffer, core1_0.BufferCopy{
		SrcOffset: src.Offset,
		DstOffset: dst.Offset,
		Size:      src.Size,
	})
	if err != nil {
		cb.state.Fail(errors.Wrap(err, "copy buffer"))
	}
}

func (p *copyPass) UploadToTexture(src gpu.TextureTransferInfo, dst gpu.TextureRegion, cycle bool) {
	cb := p.cb
	if !cb.state.Copy("upload to texture") {
		return
	}
	tb, ok := src.TransferBuffer.(*transferBuffer)
	tex, ok2 := dst.Texture.(*texture)
	if !ok || !ok2 || tex.swapchain {
		cb.state.Fail(errors.New("vulkan: foreign resource in texture upload"))
		return
	}
	if tb.info.Usage != gpu.TransferBufferUsageUpload {
		cb.state.Fail(errors.New("vulkan: upload from a download transfer buffer"))
		return
	}

	bpp := tex.info.Format.BytesPerTexel()
	rowPixels := src.PixelsPerRow
	if rowPixels == 0 {
		rowPixels = dst.W
	}
	rows := src.RowsPerLayer
	if rows == 0 {
		rows = dst.H
	}
	depth := dst.D
	if depth == 0 {
		depth = 1
	}
	if dst.X < 0 || dst.Y < 0 || dst.X+dst.W > tex.info.Width || dst.Y+dst.H > tex.info.Height || rowPixels < dst.W || rows < dst.H {
		cb.state.Fail(errors.Errorf("vulkan: texture region %dx%d+%d+%d out of range", dst.W, dst.H, dst.X, dst.Y))
		return
	}
	if dst.MipLevel < 0 || dst.MipLevel >= tex.levels() || dst.Layer != 0 || depth != 1 {
		cb.state.Fail(errors.Errorf("vulkan: texture upload to level %d layer %d unsupported", dst.MipLevel, dst.Layer))
		return
	}
	need := src.Offset + ((dst.H-1)*rowPixels+dst.W)*bpp
	if need > tb.info.Size {
		cb.state.Fail(errors.Errorf("vulkan: texture upload needs %d bytes, transfer buffer has %d", need, tb.info.Size))
		return
	}
	if !cb.refTransfer(tb) || !cb.ref(&tex.resource) {
		return
	}

	// A full overwrite of a single-level texture need not preserve contents.
	whole := dst.X == 0 && dst.Y == 0 && dst.W == tex.info.Width && dst.H == tex.info.Height && tex.levels() == 1
	cb.transition(tex, core1_0.ImageLayoutTransferDstOptimal, whole)

	err := cb.dev.deviceDriver.CmdCopyBufferToImage(cb.cmd, tb.alloc.buffer, tex.image, core1_0.ImageLayoutTransferDstOptimal, core1_0.BufferImageCopy{
		BufferOffset:      src.Offset,
		BufferRowLength:   rowPixels,
		BufferImageHeight: rows,
		ImageSubresource: core1_0.ImageSubresourceLayers{
			AspectMask:     tex.aspect,
			MipLevel:       dst.MipLevel,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		ImageOffset: core1_0.Offset3D{X: dst.X, Y: dst.Y, Z: 0},
		ImageExtent: core1_0.Extent3D{Width: dst.W, Height: dst.H, Depth: 1},
	})
	if err != nil {
		cb.state.Fail(errors.Wrap(err, "copy buffer to image"))
		return
	}

	if tex.info.Usage&gpu.TextureUsageSampler != 0 {
		cb.transition(tex, core1_0.ImageLayoutShaderReadOnlyOptimal, false)
	}
}

func (p *copyPass) End() {
	cb := p.cb
	if cb.state.EndCopyPass() {
		cb.memoryBarrier(
			core1_0.PipelineStageTransfer,
			core1_0.PipelineStageVertexInput|core1_0.PipelineStageVertexShader|core1_0.PipelineStageFragmentShader|core1_0.PipelineStageHost,
			core1_0.AccessTransferWrite,
			core1_0.AccessVertexAttributeRead|core1_0.AccessIndexRead|core1_0.AccessUniformRead|core1_0.AccessShaderRead|core1_0.AccessHostRead,
		)
	}
}

type renderPass struct {
	cb            *commandBuffer
	width, height int
	colors        []*texture

	pipeline      *pipeline
	vertexBuffers [maxVertexSlots]bool
	index         *buffer
	indexSize     gpu.IndexElementSize
	samplers      [maxSamplerSlots]gpu.TextureSamplerBinding
	bound         [maxSamplerSlots]bool
}

const maxVertexSlots = 16

// recording reports whether a render pass command may be recorded. Once an
// error is set nothing more reaches the Vulkan command buffer.
func (rp *renderPass) recording(allowed bool) bool {
	return allowed && rp.cb.state.Err() == nil
}

func (cb *commandBuffer) BeginRenderPass(colorTargets []gpu.ColorTargetInfo, depthStencilTarget *gpu.DepthStencilTargetInfo) gpu.RenderPass {
	rp := &renderPass{cb: cb}
	if !cb.state.BeginRenderPass() {
		return rp
	}
	if len(colorTargets) == 0 || len(colorTargets) > maxColorTargets {
		cb.state.Fail(errors.Errorf("vulkan: render pass with %d color targets", len(colorTargets)))
		return rp
	}

	var key framebufferKey
	var clears []core1_0.ClearValue
	key.renderPass.numColors = len(colorTargets)
	for i, target := range colorTargets {
		tex, ok := target.Texture.(*texture)
		if !ok || tex.info.Format.IsDepth() {
			cb.state.Fail(errors.Errorf("vulkan: color target %d is not a color texture", i))
			return rp
		}
		if !cb.ref(&tex.resource) {
			return rp
		}
		if i == 0 {
			rp.width, rp.height = tex.info.Width, tex.info.Height
		} else if tex.info.Width != rp.width || tex.info.Height != rp.height {
			cb.state.Fail(errors.Errorf("vulkan: color target %d is %dx%d, want %dx%d", i, tex.info.Width, tex.info.Height, rp.width, rp.height))
			return rp
		}

		cb.transition(tex, core1_0.ImageLayoutColorAttachmentOptimal, target.LoadOp != gpu.LoadOpLoad)
		rp.colors = append(rp.colors, tex)
		key.targets[i] = tex
		key.renderPass.colors[i] = attachmentKey{
			format: tex.format,
			load:   convLoadOp(target.LoadOp),
			store:  convStoreOp(target.StoreOp),
		}
		c := target.ClearColor
		clears = append(clears, core1_0.ClearValueFloat{c.R, c.G, c.B, c.A})
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
			cb.state.Fail(errors.Errorf("vulkan: depth target %dx%d smaller than color target %dx%d",
				tex.info.Width, tex.info.Height, rp.width, rp.height))
			return rp
		}

		keep := depthStencilTarget.LoadOp == gpu.LoadOpLoad || depthStencilTarget.StencilLoadOp == gpu.LoadOpLoad
		cb.transition(tex, core1_0.ImageLayoutDepthStencilAttachmentOptimal, !keep)
		key.targets[len(colorTargets)] = tex
		key.renderPass.hasDepth = true
		key.renderPass.depth = attachmentKey{
			format: tex.format,
			load:   convLoadOp(depthStencilTarget.LoadOp),
			store:  convStoreOp(depthStencilTarget.StoreOp),
		}
		key.renderPass.stencilLoad = convLoadOp(depthStencilTarget.StencilLoadOp)
		key.renderPass.stencilStore = convStoreOp(depthStencilTarget.StencilStoreOp)
		clears = append(clears, core1_0.ClearValueDepthStencil{
			Depth:   depthStencilTarget.ClearDepth,
			Stencil: uint32(depthStencilTarget.ClearStencil),
		})
	}
	if cb.state.Err() != nil {
		return rp
	}

	d := cb.dev
	renderPass, err := d.renderPass(key.renderPass)
	if err != nil {
		cb.state.Fail(err)
		return rp
	}
	key.width, key.height = rp.width, rp.height
	framebuffer, err := d.framebuffer(key, renderPass)
	if err != nil {
		cb.state.Fail(err)
		return rp
	}

	extent := core1_0.Extent2D{Width: rp.width, Height: rp.height}
	err = d.deviceDriver.CmdBeginRenderPass(cb.cmd, core1_0.SubpassContentsInline, core1_0.RenderPassBeginInfo{
		RenderPass:  renderPass,
		Framebuffer: framebuffer,
		RenderArea: core1_0.Rect2D{
			Offset: core1_0.Offset2D{X: 0, Y: 0},
			Extent: extent,
		},
		ClearValues: clears,
	})
	if err != nil {
		cb.state.Fail(errors.Wrap(err, "begin render pass"))
		return rp
	}

	rp.setViewport(gpu.Viewport{W: float32(rp.width), H: float32(rp.height), MaxDepth: 1})
	rp.setScissor(gpu.Rect{W: rp.width, H: rp.height})
	return rp
}

// setViewport flips Y so clip space matches the other backends: +Y up.
func (rp *renderPass) setViewport(v gpu.Viewport) {
	rp.cb.dev.deviceDriver.CmdSetViewport(rp.cb.cmd, core1_0.Viewport{
		X:        v.X,
		Y:        v.Y + v.H,
		Width:    v.W,
		Height:   -v.H,
		MinDepth: v.MinDepth,
		MaxDepth: v.MaxDepth,
	})
}

func (rp *renderPass) setScissor(r gpu.Rect) {
	rp.cb.dev.deviceDriver.CmdSetScissor(rp.cb.cmd, core1_0.Rect2D{
		Offset: core1_0.Offset2D{X: r.X, Y: r.Y},
		Extent: core1_0.Extent2D{Width: r.W, Height: r.H},
	})
}

func (rp *renderPass) SetViewport(v gpu.Viewport) {
	if rp.recording(rp.cb.state.Bind("set viewport")) {
		rp.setViewport(v)
	}
}

func (rp *renderPass) SetScissor(r gpu.Rect) {
	if !rp.recording(rp.cb.state.Bind("set scissor")) {
		return
	}
	if r.X < 0 || r.Y < 0 || r.W < 0 || r.H < 0 {
		rp.cb.state.Fail(errors.Errorf("vulkan: scissor %dx%d+%d+%d is negative", r.W, r.H, r.X, r.Y))
		return
	}
	rp.setScissor(r)
}

func (rp *renderPass) BindGraphicsPipeline(p gpu.GraphicsPipeline) {
	cb := rp.cb
	if !rp.recording(cb.state.BindPipeline()) {
		return
	}
	pl, ok := p.(*pipeline)
	if !ok {
		cb.state.Fail(errors.New("vulkan: foreign pipeline"))
		return
	}
	if !cb.ref(&pl.resource) {
		return
	}
	if pl.colorCount != len(rp.colors) {
		cb.state.Fail(errors.Errorf("vulkan: pipeline has %d color targets, render pass has %d", pl.colorCount, len(rp.colors)))
		return
	}
	cb.dev.deviceDriver.CmdBindPipeline(cb.cmd, core1_0.PipelineBindPointGraphics, pl.pipeline)
	rp.pipeline = pl
}

func (rp *renderPass) BindVertexBuffers(firstSlot int, bindings ...gpu.BufferBinding) {
	cb := rp.cb
	if !rp.recording(cb.state.Bind("bind vertex buffers")) {
		return
	}
	if firstSlot < 0 || firstSlot+len(bindings) > maxVertexSlots {
		cb.state.Fail(errors.Errorf("vulkan: vertex slots %d..%d out of range", firstSlot, firstSlot+len(bindings)))
		return
	}

	var buffers []core1_0.Buffer
	var offsets []int
	for i, binding := range bindings {
		buf, ok := binding.Buffer.(*buffer)
		if !ok || buf.info.Usage&gpu.BufferUsageVertex == 0 {
			cb.state.Fail(errors.Errorf("vulkan: slot %d is not bound to a vertex buffer", firstSlot+i))
			return
		}
		if !cb.ref(&buf.resource) {
			return
		}
		buffers = append(buffers, buf.buffer)
		offsets = append(offsets, binding.Offset)
	}
	if len(buffers) == 0 {
		return
	}
	cb.dev.deviceDriver.CmdBindVertexBuffers(cb.cmd, firstSlot, buffers, offsets)
	for i := range bindings {
		rp.vertexBuffers[firstSlot+i] = true
	}
}

func (rp *renderPass) BindIndexBuffer(binding gpu.BufferBinding, size gpu.IndexElementSize) {
	cb := rp.cb
	if !rp.recording(cb.state.Bind("bind index buffer")) {
		return
	}
	buf, ok := binding.Buffer.(*buffer)
	if !ok || buf.info.Usage&gpu.BufferUsageIndex == 0 {
		cb.state.Fail(errors.New("vulkan: index binding is not an index buffer"))
		return
	}
	if !cb.ref(&buf.resource) {
		return
	}
	cb.dev.deviceDriver.CmdBindIndexBuffer(cb.cmd, buf.buffer, binding.Offset, convIndexType(size))
	rp.index = buf
	rp.indexSize = size
}

func (rp *renderPass) BindFragmentSamplers(firstSlot int, bindings ...gpu.TextureSamplerBinding) {
	cb := rp.cb
	if !rp.recording(cb.state.Bind("bind fragment samplers")) {
		return
	}
	if firstSlot < 0 || firstSlot+len(bindings) > maxSamplerSlots {
		cb.state.Fail(errors.Errorf("vulkan: sampler slots %d..%d out of range", firstSlot, firstSlot+len(bindings)))
		return
	}
	for i, binding := range bindings {
		tex, ok := binding.Texture.(*texture)
		smp, ok2 := binding.Sampler.(*sampler)
		if !ok || !ok2 || tex.info.Usage&gpu.TextureUsageSampler == 0 {
			cb.state.Fail(errors.Errorf("vulkan: sampler slot %d has foreign resources", firstSlot+i))
			return
		}
		if !cb.ref(&tex.resource) || !cb.ref(&smp.resource) {
			return
		}
		rp.samplers[firstSlot+i] = binding
		rp.bound[firstSlot+i] = true
	}
}

func (rp *renderPass) checkVertexInput(op string) bool {
	if rp.pipeline == nil {
		// The bind itself failed and already recorded why.
		return false
	}
	for _, desc := range rp.pipeline.vertexInput.VertexBufferDescriptions {
		if desc.Slot < 0 || desc.Slot >= maxVertexSlots || !rp.vertexBuffers[desc.Slot] {
			rp.cb.state.Fail(errors.Wrapf(gpu.ErrInvalidCommandOrder, "%s with vertex buffer slot %d unbound", op, desc.Slot))
			return false
		}
	}
	return true
}

// bindDescriptors writes and binds fresh descriptor sets for the next draw.
// Sets are cheap to allocate from the per command buffer pools, and a new
// set per draw keeps every recorded draw pointing at the uniforms pushed
// before it.
func (rp *renderPass) bindDescriptors(op string) bool {
	cb := rp.cb
	d := cb.dev
	p := rp.pipeline

	for set := 0; set < numSets; set++ {
		key := p.sets[set]
		if key.count == 0 {
			continue
		}
		ds, err := cb.allocateSet(p.setLayouts[set])
		if err != nil {
			cb.state.Fail(err)
			return false
		}

		var writes []core1_0.WriteDescriptorSet
		var dynamicOffsets []int
		for slot := 0; slot < key.count; slot++ {
			if key.kind == kindSampler {
				if key.stage != gpu.ShaderStageFragment || !rp.bound[slot] {
					cb.state.Fail(errors.Wrapf(gpu.ErrInvalidCommandOrder, "%s with sampler slot %d unbound", op, slot))
					return false
				}
				binding := rp.samplers[slot]
				tex := binding.Texture.(*texture)
				writes = append(writes, core1_0.WriteDescriptorSet{
					DstSet:          ds,
					DstBinding:      slot,
					DstArrayElement: 0,
					DescriptorType:  core1_0.DescriptorTypeCombinedImageSampler,
					ImageInfo: []core1_0.DescriptorImageInfo{
						{
							ImageView:   tex.view,
							Sampler:     binding.Sampler.(*sampler).sampler,
							ImageLayout: core1_0.ImageLayoutShaderReadOnlyOptimal,
						},
					},
				})
				continue
			}

			si := stageIndex(key.stage)
			if !cb.pushed[si][slot] {
				// Unpushed slots read zeros.
				cb.pushUniform(key.stage, slot, nil)
				if cb.state.Err() != nil {
					return false
				}
			}
			u := cb.uniforms[si][slot]
			writes = append(writes, core1_0.WriteDescriptorSet{
				DstSet:          ds,
				DstBinding:      slot,
				DstArrayElement: 0,
				DescriptorType:  core1_0.DescriptorTypeUniformBufferDynamic,
				BufferInfo: []core1_0.DescriptorBufferInfo{
					{
						Buffer: u.ring.buffer,
						Offset: 0,
						Range:  uniformBlockSize,
					},
				},
			})
			dynamicOffsets = append(dynamicOffsets, u.offset)
		}

		if err := d.deviceDriver.UpdateDescriptorSets(writes, nil); err != nil {
			cb.state.Fail(errors.Wrap(err, "update descriptor sets"))
			return false
		}
		d.deviceDriver.CmdBindDescriptorSets(cb.cmd, core1_0.PipelineBindPointGraphics, p.layout, set,
			[]core1_0.DescriptorSet{ds}, dynamicOffsets)
	}
	return true
}

func (rp *renderPass) DrawPrimitives(numVertices, numInstances, firstVertex, firstInstance int) {
	if !rp.recording(rp.cb.state.Draw("draw")) || !rp.checkVertexInput("draw") || !rp.bindDescriptors("draw") {
		return
	}
	rp.cb.dev.deviceDriver.CmdDraw(rp.cb.cmd, numVertices, numInstances, uint32(firstVertex), uint32(firstInstance))
}

func (rp *renderPass) DrawIndexedPrimitives(numIndices, numInstances, firstIndex, vertexOffset, firstInstance int) {
	if !rp.recording(rp.cb.state.Draw("draw indexed")) || !rp.checkVertexInput("draw indexed") {
		return
	}
	if rp.index == nil {
		rp.cb.state.Fail(errors.Wrap(gpu.ErrInvalidCommandOrder, "draw indexed without an index buffer"))
		return
	}
	if (firstIndex+numIndices)*rp.indexSize.Bytes() > rp.index.info.Size {
		rp.cb.state.Fail(errors.Errorf("vulkan: %d indices from %d overrun index buffer of %d bytes",
			numIndices, firstIndex, rp.index.info.Size))
		return
	}
	if !rp.bindDescriptors("draw indexed") {
		return
	}
	rp.cb.dev.deviceDriver.CmdDrawIndexed(rp.cb.cmd, numIndices, numInstances, uint32(firstIndex), vertexOffset, uint32(firstInstance))
}

func (rp *renderPass) End() {
	cb := rp.cb
	if !cb.state.EndRenderPass() {
		return
	}
	if cb.state.Err() != nil {
		return
	}
	cb.dev.deviceDriver.CmdEndRenderPass(cb.cmd)
	for _, tex := range rp.colors {
		if tex.info.Usage&gpu.TextureUsageSampler != 0 {
			cb.transition(tex, core1_0.ImageLayoutShaderReadOnlyOptimal, false)
		}
	}
}
