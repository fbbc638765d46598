package demreader

import "fmt"

const (
	weaponSelectBits  = 11
	weaponSubtypeBits = 6
)

// UserCmdInfo is a delta compressed user command. Every field is optional except the
// weapon subtype, which is present exactly when the weapon select is.
type UserCmdInfo struct {
	CommandNumber *uint32        `json:"command_number,omitempty"`
	TickCount     *uint32        `json:"tick_count,omitempty"`
	ViewAngles    OptionalVector `json:"view_angles"`
	ForwardMove   *float32       `json:"forward_move,omitempty"`
	SideMove      *float32       `json:"side_move,omitempty"`
	UpMove        *float32       `json:"up_move,omitempty"`
	Buttons       *BUTTON        `json:"buttons,omitempty"`
	Impulse       *uint8         `json:"impulse,omitempty"`
	WeaponSelect  *uint16        `json:"weapon_select,omitempty"`
	WeaponSubtype *uint8         `json:"weapon_subtype,omitempty"`
	MouseDx       *int16         `json:"mouse_dx,omitempty"`
	MouseDy       *int16         `json:"mouse_dy,omitempty"`
}

type UserCmdBody struct {
	Cmd     int32        `json:"cmd"`
	Size    int32        `json:"size"`
	Info    *UserCmdInfo `json:"info,omitempty"`
	Skipped bool         `json:"skipped,omitempty"`
}

func (*UserCmdBody) packetKind() PACKET_TYPE { return DEM_USERCMD }

func optional[T any, V any](r *BitReader, read func(*BitReader) (V, error), conv func(V) T) (*T, error) {
	v, err := ReadOptional(r, read)
	if err != nil || v == nil {
		return nil, err
	}
	out := conv(*v)
	return &out, nil
}

func ReadUserCmdInfo(r *BitReader) (*UserCmdInfo, error) {
	u := &UserCmdInfo{}
	var err error
	fail := func(field string, err error) (*UserCmdInfo, error) {
		return nil, fmt.Errorf("user cmd %s: %w", field, err)
	}
	if u.CommandNumber, err = optional(r, uintReader(32), func(v uint64) uint32 { return uint32(v) }); err != nil {
		return fail("command number", err)
	}
	if u.TickCount, err = optional(r, uintReader(32), func(v uint64) uint32 { return uint32(v) }); err != nil {
		return fail("tick count", err)
	}
	for i, dst := range []**float32{&u.ViewAngles.X, &u.ViewAngles.Y, &u.ViewAngles.Z} {
		if *dst, err = ReadOptional(r, floatReader); err != nil {
			return fail(fmt.Sprintf("view angle %d", i), err)
		}
	}
	for _, f := range []struct {
		name string
		dst  **float32
	}{{"forward move", &u.ForwardMove}, {"side move", &u.SideMove}, {"up move", &u.UpMove}} {
		if *f.dst, err = ReadOptional(r, floatReader); err != nil {
			return fail(f.name, err)
		}
	}
	if u.Buttons, err = optional(r, uintReader(32), func(v uint64) BUTTON { return BUTTON(v) }); err != nil {
		return fail("buttons", err)
	}
	if u.Impulse, err = optional(r, uintReader(8), func(v uint64) uint8 { return uint8(v) }); err != nil {
		return fail("impulse", err)
	}
	if u.WeaponSelect, err = optional(r, uintReader(weaponSelectBits), func(v uint64) uint16 { return uint16(v) }); err != nil {
		return fail("weapon select", err)
	}
	if u.WeaponSelect != nil {
		v, err := r.ReadUint(weaponSubtypeBits)
		if err != nil {
			return fail("weapon subtype", err)
		}
		subtype := uint8(v)
		u.WeaponSubtype = &subtype
	}
	if u.MouseDx, err = optional(r, intReader(16), func(v int64) int16 { return int16(v) }); err != nil {
		return fail("mouse dx", err)
	}
	if u.MouseDy, err = optional(r, intReader(16), func(v int64) int16 { return int16(v) }); err != nil {
		return fail("mouse dy", err)
	}
	return u, nil
}
