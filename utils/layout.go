package utils

import (
	"reflect"

	"github.com/cockroachdb/errors"

	"github.com/vkngwrapper/gpuexamples/gpu"
)

var (
	float32Type = reflect.TypeOf(float32(0))
	uint32Type  = reflect.TypeOf(uint32(0))
	uint8Type   = reflect.TypeOf(uint8(0))
)

func elementFormat(t reflect.Type) (gpu.VertexElementFormat, bool) {
	switch {
	case t == float32Type:
		return gpu.VertexElementFormatFloat, true
	case t == uint32Type:
		return gpu.VertexElementFormatUint, true
	case t.Kind() == reflect.Array && t.Elem() == float32Type:
		switch t.Len() {
		case 2:
			return gpu.VertexElementFormatFloat2, true
		case 3:
			return gpu.VertexElementFormatFloat3, true
		case 4:
			return gpu.VertexElementFormatFloat4, true
		}
	case t.Kind() == reflect.Array && t.Elem() == uint8Type && t.Len() == 4:
		return gpu.VertexElementFormatUbyte4Norm, true
	}
	return gpu.VertexElementFormatInvalid, false
}

// LayoutOf describes the vertex struct T bound at slot: one attribute per
// field, located in field order at the field's offset, with the struct
// size as pitch. Fields may be float32, uint32, [2|3|4]float32 (which
// includes mgl32.Vec2/3/4) or [4]uint8. Consecutive float32 fields
// tagged with the same `vertex:"name"` are merged into one attribute.
func LayoutOf[T any](slot int) (gpu.VertexInputState, error) {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil || t.Kind() != reflect.Struct {
		return gpu.VertexInputState{}, errors.Newf("vertex type %T is not a struct", zero)
	}

	state := gpu.VertexInputState{
		VertexBufferDescriptions: []gpu.VertexBufferDescription{{
			Slot:      slot,
			Pitch:     int(t.Size()),
			InputRate: gpu.VertexInputRateVertex,
		}},
	}

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		format, ok := elementFormat(f.Type)
		if !ok {
			return gpu.VertexInputState{}, errors.Newf("field %s.%s has unsupported vertex type %s", t.Name(), f.Name, f.Type)
		}

		group := f.Tag.Get("vertex")
		n := len(state.VertexAttributes)
		if group != "" && f.Type == float32Type && n > 0 && i > 0 {
			prev := t.Field(i - 1)
			last := &state.VertexAttributes[n-1]
			if prev.Tag.Get("vertex") == group && prev.Type == float32Type &&
				int(prev.Offset)+4 == int(f.Offset) && last.Format < gpu.VertexElementFormatFloat4 {
				last.Format++
				continue
			}
		}

		state.VertexAttributes = append(state.VertexAttributes, gpu.VertexAttribute{
			Location:   n,
			BufferSlot: slot,
			Format:     format,
			Offset:     int(f.Offset),
		})
	}

	if len(state.VertexAttributes) == 0 {
		return gpu.VertexInputState{}, errors.Newf("vertex type %s has no fields", t.Name())
	}
	return state, nil
}

// MustLayoutOf is LayoutOf for vertex types fixed at compile time.
func MustLayoutOf[T any](slot int) gpu.VertexInputState {
	state, err := LayoutOf[T](slot)
	if err != nil {
		panic(err)
	}
	return state
}
