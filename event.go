package demreader

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

const (
	gameEventIDBits      = 9
	gameEventKeyTypeBits = 3
)

type GameEventKeyDesc struct {
	Name string         `json:"name"`
	Type EVENT_KEY_TYPE `json:"type"`
}

// GameEventDescriptor declares the keys of one game event, in wire order.
type GameEventDescriptor struct {
	ID   int                `json:"id"`
	Name string             `json:"name"`
	Keys []GameEventKeyDesc `json:"keys"`
}

func readGameEventDescriptor(r *BitReader) (*GameEventDescriptor, error) {
	id, err := r.ReadUint(gameEventIDBits)
	if err != nil {
		return nil, err
	}
	d := &GameEventDescriptor{ID: int(id)}
	if d.Name, err = r.ReadString(); err != nil {
		return nil, err
	}
	for {
		t, err := r.ReadUint(gameEventKeyTypeBits)
		if err != nil {
			return nil, err
		}
		if EVENT_KEY_TYPE(t) == EVENT_KEY_NONE {
			return d, nil
		}
		name, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		d.Keys = append(d.Keys, GameEventKeyDesc{Name: name, Type: EVENT_KEY_TYPE(t)})
	}
}

type GameEventKey struct {
	Name  string         `json:"name"`
	Type  EVENT_KEY_TYPE `json:"type"`
	Value any            `json:"value"`
}

// GameEvent is a decoded game event. An event whose id was never declared by a game
// event list carries only its id.
type GameEvent struct {
	ID   int            `json:"id"`
	Name string         `json:"name,omitempty"`
	Keys []GameEventKey `json:"keys,omitempty"`
}

func (e *GameEvent) Get(name string) (any, bool) {
	for _, k := range e.Keys {
		if k.Name == name {
			return k.Value, true
		}
	}
	return nil, false
}

func (e *GameEvent) Map() map[string]any {
	m := make(map[string]any, len(e.Keys))
	for _, k := range e.Keys {
		m[k.Name] = k.Value
	}
	return m
}

// Decode copies the key values into out, a pointer to a struct whose fields are
// matched by their `event` tag.
func (e *GameEvent) Decode(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "event",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(e.Map()); err != nil {
		return fmt.Errorf("game event %s: %w", e.Name, err)
	}
	return nil
}

func readGameEvent(r *BitReader, ctx *ProtocolContext) (*GameEvent, error) {
	id, err := r.ReadUint(gameEventIDBits)
	if err != nil {
		return nil, err
	}
	e := &GameEvent{ID: int(id)}
	d, ok := ctx.EventDescriptors[e.ID]
	if !ok {
		return e, nil
	}
	e.Name = d.Name
	e.Keys = make([]GameEventKey, 0, len(d.Keys))
	for _, k := range d.Keys {
		v, err := readGameEventValue(r, k.Type)
		if err != nil {
			return e, fmt.Errorf("%s.%s: %w", d.Name, k.Name, err)
		}
		e.Keys = append(e.Keys, GameEventKey{Name: k.Name, Type: k.Type, Value: v})
	}
	return e, nil
}

func readGameEventValue(r *BitReader, t EVENT_KEY_TYPE) (any, error) {
	switch t {
	case EVENT_KEY_STRING:
		return r.ReadString()
	case EVENT_KEY_FLOAT:
		return r.ReadFloat()
	case EVENT_KEY_LONG:
		return r.ReadInt32()
	case EVENT_KEY_SHORT:
		return r.ReadInt16()
	case EVENT_KEY_BYTE:
		return r.ReadByte()
	case EVENT_KEY_BOOL:
		return r.ReadBool()
	case EVENT_KEY_UINT64:
		return r.ReadUint(64)
	}
	return nil, &UnknownVariantError{Layer: "event key type", Tag: int(t)}
}
