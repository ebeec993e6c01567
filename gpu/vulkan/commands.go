package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"

	"github.com/vkngwrapper/gpuexamples/gpu"
)

const (
	// uniformBlockSize is the most data one uniform push may carry.
	uniformBlockSize = 1024
	uniformRingSize  = 32 * uniformBlockSize

	descriptorPoolSets = 256
)

type uniformBinding struct {
	ring   *hostBuffer
	offset int
}

type commandBuffer struct {
	dev   *Device
	state gpu.CommandState

	cmd     core1_0.CommandBuffer
	fence   core1_0.Fence
	serial  uint64
	pending bool

	refs     []*resource
	layouts  map[*texture]core1_0.ImageLayout
	presents []presentation

	rings      []*hostBuffer
	ringIndex  int
	ringOffset int
	uniforms   [2][maxUniformSlots]uniformBinding
	pushed     [2][maxUniformSlots]bool

	descriptorPools []core1_0.DescriptorPool
	poolIndex       int
}

func (d *Device) newCommandBuffer() (*commandBuffer, error) {
	buffers, _, err := d.deviceDriver.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        d.commandPool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to allocate command buffer")
	}

	fence, _, err := d.deviceDriver.CreateFence(nil, core1_0.FenceCreateInfo{})
	if err != nil {
		d.deviceDriver.FreeCommandBuffers(buffers...)
		return nil, errors.Wrap(err, "failed to create fence")
	}

	cb := &commandBuffer{
		dev:     d,
		cmd:     buffers[0],
		fence:   fence,
		layouts: make(map[*texture]core1_0.ImageLayout),
	}
	d.all = append(d.all, cb)
	return cb, nil
}

func (cb *commandBuffer) begin() error {
	_, err := cb.dev.deviceDriver.BeginCommandBuffer(cb.cmd, core1_0.CommandBufferBeginInfo{
		Flags: core1_0.CommandBufferUsageOneTimeSubmit,
	})
	if err != nil {
		return errors.Wrap(err, "failed to begin command buffer")
	}
	return nil
}

// recycle drops everything cb references and returns it to the free list.
// cb must not be pending on the GPU.
func (d *Device) recycle(cb *commandBuffer) {
	for _, r := range cb.refs {
		r.unref()
	}
	cb.refs = cb.refs[:0]
	for tex := range cb.layouts {
		delete(cb.layouts, tex)
	}
	cb.presents = cb.presents[:0]
	cb.ringIndex, cb.ringOffset = 0, 0
	cb.uniforms = [2][maxUniformSlots]uniformBinding{}
	cb.pushed = [2][maxUniformSlots]bool{}

	if _, err := d.deviceDriver.ResetCommandBuffer(cb.cmd, 0); err != nil {
		d.logf("reset command buffer: %v", err)
	}
	for _, pool := range cb.descriptorPools {
		if _, err := d.deviceDriver.ResetDescriptorPool(pool, 0); err != nil {
			d.logf("reset descriptor pool: %v", err)
		}
	}
	cb.poolIndex = 0

	if cb.pending {
		if _, err := d.deviceDriver.ResetFences(cb.fence); err != nil {
			d.logf("reset fence: %v", err)
		}
		cb.pending = false
	}
	d.free = append(d.free, cb)
}

func (cb *commandBuffer) destroy() {
	d := cb.dev
	for _, ring := range cb.rings {
		ring.release()
	}
	cb.rings = nil
	for _, pool := range cb.descriptorPools {
		d.deviceDriver.DestroyDescriptorPool(pool, nil)
	}
	cb.descriptorPools = nil
	d.deviceDriver.DestroyFence(cb.fence, nil)
	d.deviceDriver.FreeCommandBuffers(cb.cmd)
}

func (cb *commandBuffer) ref(r *resource) bool {
	if r.released {
		cb.state.Fail(errors.Wrapf(gpu.ErrReleased, "%s", r.kind))
		return false
	}
	r.refs++
	cb.refs = append(cb.refs, r)
	return true
}

func (cb *commandBuffer) layout(t *texture) core1_0.ImageLayout {
	if l, ok := cb.layouts[t]; ok {
		return l
	}
	return t.layout
}

// transition records a barrier moving t into layout to. With discard set
// the contents are not preserved.
func (cb *commandBuffer) transition(t *texture, to core1_0.ImageLayout, discard bool) {
	from := cb.layout(t)
	if from == to && to != core1_0.ImageLayoutTransferDstOptimal {
		return
	}
	if discard {
		from = core1_0.ImageLayoutUndefined
	}

	srcStage, srcAccess := layoutAccess(from)
	dstStage, dstAccess := layoutAccess(to)
	err := cb.dev.deviceDriver.CmdPipelineBarrier(cb.cmd, srcStage, dstStage, 0, nil, nil, []core1_0.ImageMemoryBarrier{
		{
			OldLayout:           from,
			NewLayout:           to,
			SrcQueueFamilyIndex: -1,
			DstQueueFamilyIndex: -1,
			Image:               t.image,
			SubresourceRange: core1_0.ImageSubresourceRange{
				AspectMask:     t.aspect,
				BaseMipLevel:   0,
				LevelCount:     t.levels(),
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
			SrcAccessMask: srcAccess,
			DstAccessMask: dstAccess,
		},
	})
	if err != nil {
		cb.state.Fail(errors.Wrap(err, "image barrier"))
		return
	}
	cb.layouts[t] = to
}

func (cb *commandBuffer) memoryBarrier(srcStage, dstStage core1_0.PipelineStageFlags, srcAccess, dstAccess core1_0.AccessFlags) {
	err := cb.dev.deviceDriver.CmdPipelineBarrier(cb.cmd, srcStage, dstStage, 0, []core1_0.MemoryBarrier{
		{
			SrcAccessMask: srcAccess,
			DstAccessMask: dstAccess,
		},
	}, nil, nil)
	if err != nil {
		cb.state.Fail(errors.Wrap(err, "memory barrier"))
	}
}

func stageIndex(s gpu.ShaderStage) int {
	if s == gpu.ShaderStageFragment {
		return 1
	}
	return 0
}

// pushUniform copies data into the uniform ring. Each push occupies its own
// aligned block so draws recorded earlier keep the data they saw.
func (cb *commandBuffer) pushUniform(stage gpu.ShaderStage, slot int, data []byte) {
	if slot < 0 || slot >= maxUniformSlots {
		cb.state.Fail(errors.Errorf("vulkan: uniform slot %d out of range", slot))
		return
	}
	if len(data) > uniformBlockSize {
		cb.state.Fail(errors.Errorf("vulkan: uniform push of %d bytes exceeds %d", len(data), uniformBlockSize))
		return
	}

	binding, err := cb.allocUniform()
	if err != nil {
		cb.state.Fail(err)
		return
	}
	block := binding.ring.data[binding.offset : binding.offset+uniformBlockSize]
	n := copy(block, data)
	for i := n; i < len(block); i++ {
		block[i] = 0
	}

	si := stageIndex(stage)
	cb.uniforms[si][slot] = binding
	cb.pushed[si][slot] = true
}

func (cb *commandBuffer) allocUniform() (uniformBinding, error) {
	d := cb.dev
	align := d.properties.Limits.MinUniformBufferOffsetAlignment
	if align <= 0 {
		align = 1
	}
	offset := (cb.ringOffset + align - 1) / align * align

	if cb.ringIndex < len(cb.rings) && offset+uniformBlockSize > uniformRingSize {
		cb.ringIndex++
		offset = 0
	}
	if cb.ringIndex >= len(cb.rings) {
		ring, err := d.createHostBuffer("uniform-ring", uniformRingSize, core1_0.BufferUsageUniformBuffer)
		if err != nil {
			return uniformBinding{}, err
		}
		cb.rings = append(cb.rings, ring)
		offset = 0
	}

	cb.ringOffset = offset + uniformBlockSize
	return uniformBinding{ring: cb.rings[cb.ringIndex], offset: offset}, nil
}

func (cb *commandBuffer) PushVertexUniformData(slot int, data []byte) {
	if cb.state.PushUniform("push vertex uniform") {
		cb.pushUniform(gpu.ShaderStageVertex, slot, data)
	}
}

func (cb *commandBuffer) PushFragmentUniformData(slot int, data []byte) {
	if cb.state.PushUniform("push fragment uniform") {
		cb.pushUniform(gpu.ShaderStageFragment, slot, data)
	}
}

// allocateSet takes a descriptor set from the command buffer's pools,
// growing them when the current one is exhausted.
func (cb *commandBuffer) allocateSet(layout core1_0.DescriptorSetLayout) (core1_0.DescriptorSet, error) {
	d := cb.dev
	for {
		fresh := cb.poolIndex >= len(cb.descriptorPools)
		if fresh {
			pool, _, err := d.deviceDriver.CreateDescriptorPool(nil, core1_0.DescriptorPoolCreateInfo{
				MaxSets: descriptorPoolSets,
				PoolSizes: []core1_0.DescriptorPoolSize{
					{
						Type:            core1_0.DescriptorTypeUniformBufferDynamic,
						DescriptorCount: descriptorPoolSets * maxUniformSlots,
					},
					{
						Type:            core1_0.DescriptorTypeCombinedImageSampler,
						DescriptorCount: descriptorPoolSets * maxSamplerSlots,
					},
				},
			})
			if err != nil {
				return core1_0.DescriptorSet{}, errors.Wrap(err, "failed to create descriptor pool")
			}
			cb.descriptorPools = append(cb.descriptorPools, pool)
		}

		sets, _, err := d.deviceDriver.AllocateDescriptorSets(core1_0.DescriptorSetAllocateInfo{
			DescriptorPool: cb.descriptorPools[cb.poolIndex],
			SetLayouts:     []core1_0.DescriptorSetLayout{layout},
		})
		if err == nil {
			return sets[0], nil
		}
		if fresh {
			return core1_0.DescriptorSet{}, errors.Wrap(err, "failed to allocate descriptor set")
		}
		cb.poolIndex++
	}
}

func (cb *commandBuffer) WaitAndAcquireSwapchainTexture(w gpu.Window) (gpu.Texture, error) {
	if !cb.state.AcquireSwapchain() {
		return nil, cb.state.Err()
	}
	tex, err := cb.dev.acquire(cb, w)
	if err != nil {
		return nil, err
	}
	if tex == nil {
		return nil, nil
	}
	return tex, nil
}

func (cb *commandBuffer) Submit() error {
	switch cb.state.Phase() {
	case gpu.PhaseSubmitted, gpu.PhaseCancelled:
		return cb.state.Finish(true)
	}
	if err := cb.state.Finish(true); err != nil {
		cb.dev.logf("rejected submission: %v", err)
		return cb.abandon(err)
	}
	return cb.dev.submit(cb)
}

func (cb *commandBuffer) Cancel() error {
	switch cb.state.Phase() {
	case gpu.PhaseSubmitted, gpu.PhaseCancelled:
		return cb.state.Finish(false)
	}
	if len(cb.presents) > 0 {
		cb.state.Finish(false)
		return cb.abandon(errors.Wrap(gpu.ErrInvalidCommandOrder, "cancel after acquiring a swapchain texture"))
	}
	if err := cb.state.Finish(false); err != nil {
		return err
	}
	cb.dev.recycle(cb)
	return nil
}

// abandon discards what was recorded on cb. Swapchain images it acquired
// still have to be presented, so they are handed back unrendered through
// a submission that only moves them to the present layout.
func (cb *commandBuffer) abandon(cause error) error {
	d := cb.dev
	if len(cb.presents) == 0 {
		d.recycle(cb)
		return cause
	}

	giveUp := func(err error) error {
		for _, p := range cb.presents {
			p.sc.outOfDate = true
		}
		d.recycle(cb)
		return errors.CombineErrors(cause, err)
	}

	if _, err := d.deviceDriver.ResetCommandBuffer(cb.cmd, 0); err != nil {
		return giveUp(errors.Wrap(err, "failed to reset command buffer"))
	}
	for tex := range cb.layouts {
		delete(cb.layouts, tex)
	}
	if err := cb.begin(); err != nil {
		return giveUp(err)
	}

	// Only the present transitions are recorded; the sticky error is
	// cleared so they can be checked on their own.
	cb.state = gpu.CommandState{}
	for _, p := range cb.presents {
		cb.transition(p.sc.textures[p.imageIndex], khr_swapchain.ImageLayoutPresentSrc, true)
	}
	if err := cb.state.Finish(true); err != nil {
		return giveUp(err)
	}
	if err := d.submit(cb); err != nil {
		return errors.CombineErrors(cause, err)
	}
	return cause
}

func (d *Device) submit(cb *commandBuffer) error {
	for _, p := range cb.presents {
		cb.transition(p.sc.textures[p.imageIndex], khr_swapchain.ImageLayoutPresentSrc, false)
	}
	if err := cb.state.Err(); err != nil {
		return cb.abandon(err)
	}

	if _, err := d.deviceDriver.EndCommandBuffer(cb.cmd); err != nil {
		d.recycle(cb)
		return errors.Wrap(err, "failed to end command buffer")
	}

	info := core1_0.SubmitInfo{
		CommandBuffers: []core1_0.CommandBuffer{cb.cmd},
	}
	for _, p := range cb.presents {
		info.WaitSemaphores = append(info.WaitSemaphores, p.sc.imageAvailable[p.frame])
		info.WaitDstStageMask = append(info.WaitDstStageMask, core1_0.PipelineStageColorAttachmentOutput)
		info.SignalSemaphores = append(info.SignalSemaphores, p.sc.renderFinished[p.imageIndex])
	}

	_, err := d.deviceDriver.QueueSubmit(d.queue, &cb.fence, info)
	if err != nil {
		for _, p := range cb.presents {
			p.sc.outOfDate = true
		}
		d.recycle(cb)
		return errors.Wrap(err, "failed to submit command buffer")
	}

	for tex, layout := range cb.layouts {
		tex.layout = layout
	}
	d.serial++
	cb.serial = d.serial
	cb.pending = true
	d.submitted = append(d.submitted, cb)

	s := submission{cb: cb, serial: cb.serial}
	for _, p := range cb.presents {
		p.sc.frames[p.frame] = s
		p.sc.imagesInFlight[p.imageIndex] = s
	}
	return d.present(cb)
}
