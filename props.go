package demreader

import (
	"errors"
	"fmt"
	"math/bits"
)

const (
	stringPropLengthBits = 9
	entitySerialBits     = 10
	maxEdictBits         = 11
)

var errNoArrayElement = errors.New("demreader: array prop without element")

// PropValue is a decoded property. Value holds int64, float32, Vector, Vector2,
// string or []any for arrays.
type PropValue struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Value any    `json:"value"`
}

type Vector2 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

// ReadProps reads changed property indices until the end marker and decodes each value
// with its flattened description.
func ReadProps(r *BitReader, props []FlattenedProp, newProtocol bool) ([]PropValue, error) {
	newWay := false
	if newProtocol {
		var err error
		if newWay, err = r.ReadBool(); err != nil {
			return nil, err
		}
	}
	var out []PropValue
	index := -1
	for {
		var err error
		index, err = r.ReadFieldIndex(index, newWay)
		if err != nil {
			return out, err
		}
		if index == -1 {
			return out, nil
		}
		if index >= len(props) {
			return out, &DecodeError{Op: "prop index", Offset: r.Position(), Err: &UnknownVariantError{Layer: "prop index", Tag: index}}
		}
		v, err := decodeProp(r, props[index].Prop, props[index].Element)
		if err != nil {
			return out, fmt.Errorf("%s: %w", props[index].Name, err)
		}
		out = append(out, PropValue{Index: index, Name: props[index].Name, Value: v})
	}
}

func decodeProp(r *BitReader, p, element *SendProp) (any, error) {
	switch p.Type {
	case DPT_INT:
		return decodeInt(r, p)
	case DPT_FLOAT:
		return decodeFloat(r, p)
	case DPT_VECTOR:
		return decodeVector(r, p)
	case DPT_VECTORXY:
		x, err := decodeFloat(r, p)
		if err != nil {
			return nil, err
		}
		y, err := decodeFloat(r, p)
		return Vector2{X: x, Y: y}, err
	case DPT_STRING:
		n, err := r.ReadUint(stringPropLengthBits)
		if err != nil {
			return nil, err
		}
		b, err := r.ReadBytes(uint(n))
		return string(b), err
	case DPT_ARRAY:
		if element == nil {
			return nil, errNoArrayElement
		}
		n, err := r.ReadUint(uint(bits.Len(p.NumElements)))
		if err != nil {
			return nil, err
		}
		values := make([]any, 0, n)
		for i := 0; i < int(n); i++ {
			v, err := decodeProp(r, element, nil)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			values = append(values, v)
		}
		return values, nil
	}
	return nil, &UnknownVariantError{Layer: "send prop type", Tag: int(p.Type)}
}

func decodeInt(r *BitReader, p *SendProp) (int64, error) {
	if p.Flags.Has(SPROP_UNSIGNED) {
		v, err := r.ReadUint(p.NumBits)
		return int64(v), err
	}
	return r.ReadSignedInt(p.NumBits)
}

func decodeFloat(r *BitReader, p *SendProp) (float32, error) {
	switch {
	case p.Flags.Has(SPROP_COORD):
		return r.ReadBitCoord()
	case p.Flags.Has(SPROP_COORD_MP):
		return r.ReadBitCoordMP(false, false)
	case p.Flags.Has(SPROP_COORD_MP_LOWPREC):
		return r.ReadBitCoordMP(false, true)
	case p.Flags.Has(SPROP_COORD_MP_INTEGRAL):
		return r.ReadBitCoordMP(true, false)
	case p.Flags.Has(SPROP_NOSCALE):
		return r.ReadFloatExact()
	case p.Flags.Has(SPROP_NORMAL):
		return r.ReadBitNormal()
	}
	if p.NumBits == 0 {
		return p.Low, nil
	}
	raw, err := r.ReadUint(p.NumBits)
	if err != nil {
		return 0, err
	}
	frac := float32(raw) / float32(uint64(1)<<p.NumBits-1)
	return p.Low + (p.High-p.Low)*frac, nil
}

func decodeVector(r *BitReader, p *SendProp) (Vector, error) {
	var v Vector
	var err error
	if v.X, err = decodeFloat(r, p); err != nil {
		return v, err
	}
	if v.Y, err = decodeFloat(r, p); err != nil {
		return v, err
	}
	if !p.Flags.Has(SPROP_NORMAL) {
		v.Z, err = decodeFloat(r, p)
		return v, err
	}
	negative, err := r.ReadBool()
	if err != nil {
		return v, err
	}
	v.Z = thirdComponent(v.X, v.Y, negative)
	return v, nil
}

type ENTITY_UPDATE uint8

const (
	ENTITY_DELTA ENTITY_UPDATE = iota
	ENTITY_ENTER_PVS
	ENTITY_LEAVE_PVS
	ENTITY_DELETE
)

var entityUpdateNames = [...]string{"Delta", "EnterPvs", "LeavePvs", "Delete"}

func (u ENTITY_UPDATE) String() string {
	if int(u) < len(entityUpdateNames) {
		return entityUpdateNames[u]
	}
	return fmt.Sprintf("ENTITY_UPDATE(%d)", uint8(u))
}

type EntityUpdate struct {
	Kind    ENTITY_UPDATE `json:"kind"`
	Index   int           `json:"index"`
	ClassID int           `json:"class_id"`
	Serial  uint32        `json:"serial,omitempty"`
	Props   []PropValue   `json:"props,omitempty"`
}

// readEntityUpdates decodes the body of a packet entities message. Only the index to
// class mapping is kept between messages; property values are returned, not applied.
func readEntityUpdates(r *BitReader, ctx *ProtocolContext, m *SvcPacketEntities) ([]EntityUpdate, error) {
	var updates []EntityUpdate
	index := -1
	for i := 0; i < int(m.UpdatedEntries); i++ {
		var step uint32
		var err error
		if ctx.newDemoProtocol() {
			step, err = r.ReadUBitInt()
		} else {
			step, err = r.ReadUBitVar()
		}
		if err != nil {
			return updates, err
		}
		index += 1 + int(step)

		leave, err := r.ReadBool()
		if err != nil {
			return updates, err
		}
		if leave {
			del, err := r.ReadBool()
			if err != nil {
				return updates, err
			}
			u := EntityUpdate{Kind: ENTITY_LEAVE_PVS, Index: index, ClassID: ctx.entityClasses[index]}
			if del {
				u.Kind = ENTITY_DELETE
				delete(ctx.entityClasses, index)
			}
			updates = append(updates, u)
			continue
		}
		enter, err := r.ReadBool()
		if err != nil {
			return updates, err
		}
		u := EntityUpdate{Kind: ENTITY_DELTA, Index: index}
		if enter {
			u.Kind = ENTITY_ENTER_PVS
			class, err := r.ReadUint(ctx.ServerClassBits)
			if err != nil {
				return updates, err
			}
			serial, err := r.ReadUint(entitySerialBits)
			if err != nil {
				return updates, err
			}
			u.ClassID, u.Serial = int(class), uint32(serial)
			ctx.entityClasses[index] = u.ClassID
		} else {
			class, ok := ctx.entityClasses[index]
			if !ok {
				return updates, &UnknownVariantError{Layer: "entity", Tag: index}
			}
			u.ClassID = class
		}
		props, err := ctx.FlattenedClass(u.ClassID)
		if err != nil {
			return updates, err
		}
		if u.Props, err = ReadProps(r, props, ctx.newDemoProtocol()); err != nil {
			return updates, fmt.Errorf("entity %d: %w", index, err)
		}
		updates = append(updates, u)
	}
	if m.IsDelta {
		for {
			more, err := r.ReadBool()
			if err != nil {
				return updates, err
			}
			if !more {
				break
			}
			idx, err := r.ReadUint(maxEdictBits)
			if err != nil {
				return updates, err
			}
			updates = append(updates, EntityUpdate{Kind: ENTITY_DELETE, Index: int(idx), ClassID: ctx.entityClasses[int(idx)]})
			delete(ctx.entityClasses, int(idx))
		}
	}
	return updates, nil
}
