package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
)

type attachmentKey struct {
	format core1_0.Format
	load   core1_0.AttachmentLoadOp
	store  core1_0.AttachmentStoreOp
}

type renderPassKey struct {
	colors    [maxColorTargets]attachmentKey
	numColors int

	depth        attachmentKey
	hasDepth     bool
	stencilLoad  core1_0.AttachmentLoadOp
	stencilStore core1_0.AttachmentStoreOp
}

type framebufferKey struct {
	renderPass    renderPassKey
	targets       [maxColorTargets + 1]*texture
	width, height int
}

// renderPass returns a cached render pass. Attachments stay in their
// attachment layouts across the pass; command buffers transition them
// explicitly before and after.
func (d *Device) renderPass(key renderPassKey) (core1_0.RenderPass, error) {
	if renderPass, ok := d.renderPasses[key]; ok {
		return renderPass, nil
	}

	var attachments []core1_0.AttachmentDescription
	var colorRefs []core1_0.AttachmentReference
	for i := 0; i < key.numColors; i++ {
		attachments = append(attachments, core1_0.AttachmentDescription{
			Format:         key.colors[i].format,
			Samples:        core1_0.Samples1,
			LoadOp:         key.colors[i].load,
			StoreOp:        key.colors[i].store,
			StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
			StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
			InitialLayout:  core1_0.ImageLayoutColorAttachmentOptimal,
			FinalLayout:    core1_0.ImageLayoutColorAttachmentOptimal,
		})
		colorRefs = append(colorRefs, core1_0.AttachmentReference{
			Attachment: i,
			Layout:     core1_0.ImageLayoutColorAttachmentOptimal,
		})
	}

	subpass := core1_0.SubpassDescription{
		PipelineBindPoint: core1_0.PipelineBindPointGraphics,
		ColorAttachments:  colorRefs,
	}
	if key.hasDepth {
		attachments = append(attachments, core1_0.AttachmentDescription{
			Format:         key.depth.format,
			Samples:        core1_0.Samples1,
			LoadOp:         key.depth.load,
			StoreOp:        key.depth.store,
			StencilLoadOp:  key.stencilLoad,
			StencilStoreOp: key.stencilStore,
			InitialLayout:  core1_0.ImageLayoutDepthStencilAttachmentOptimal,
			FinalLayout:    core1_0.ImageLayoutDepthStencilAttachmentOptimal,
		})
		subpass.DepthStencilAttachment = &core1_0.AttachmentReference{
			Attachment: key.numColors,
			Layout:     core1_0.ImageLayoutDepthStencilAttachmentOptimal,
		}
	}

	renderPass, _, err := d.deviceDriver.CreateRenderPass(nil, core1_0.RenderPassCreateInfo{
		Attachments: attachments,
		Subpasses:   []core1_0.SubpassDescription{subpass},
		SubpassDependencies: []core1_0.SubpassDependency{
			{
				SrcSubpass: core1_0.SubpassExternal,
				DstSubpass: 0,

				SrcStageMask:  core1_0.PipelineStageColorAttachmentOutput | core1_0.PipelineStageEarlyFragmentTests | core1_0.PipelineStageLateFragmentTests,
				SrcAccessMask: core1_0.AccessColorAttachmentWrite | core1_0.AccessDepthStencilAttachmentWrite,

				DstStageMask:  core1_0.PipelineStageColorAttachmentOutput | core1_0.PipelineStageEarlyFragmentTests,
				DstAccessMask: core1_0.AccessColorAttachmentRead | core1_0.AccessColorAttachmentWrite | core1_0.AccessDepthStencilAttachmentRead | core1_0.AccessDepthStencilAttachmentWrite,
			},
		},
	})
	if err != nil {
		return core1_0.RenderPass{}, errors.Wrap(err, "failed to create render pass")
	}

	d.renderPasses[key] = renderPass
	return renderPass, nil
}

func (d *Device) framebuffer(key framebufferKey, renderPass core1_0.RenderPass) (core1_0.Framebuffer, error) {
	if framebuffer, ok := d.framebuffers[key]; ok {
		return framebuffer, nil
	}

	var views []core1_0.ImageView
	for _, target := range key.targets {
		if target != nil {
			views = append(views, target.view)
		}
	}

	framebuffer, _, err := d.deviceDriver.CreateFramebuffer(nil, core1_0.FramebufferCreateInfo{
		RenderPass:  renderPass,
		Layers:      1,
		Attachments: views,
		Width:       key.width,
		Height:      key.height,
	})
	if err != nil {
		return core1_0.Framebuffer{}, errors.Wrap(err, "failed to create framebuffer")
	}

	d.framebuffers[key] = framebuffer
	return framebuffer, nil
}

// dropFramebuffers destroys every framebuffer built on t. Callers ensure
// no pending work still uses them.
func (d *Device) dropFramebuffers(t *texture) {
	for key, framebuffer := range d.framebuffers {
		for _, target := range key.targets {
			if target == t {
				d.deviceDriver.DestroyFramebuffer(framebuffer, nil)
				delete(d.framebuffers, key)
				break
			}
		}
	}
}
