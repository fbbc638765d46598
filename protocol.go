package demreader

import "fmt"

// top level packet kinds
type PACKET_TYPE uint8

const (
	DEM_SIGNON       PACKET_TYPE = 1
	DEM_PACKET       PACKET_TYPE = 2
	DEM_SYNCTICK     PACKET_TYPE = 3
	DEM_CONSOLECMD   PACKET_TYPE = 4
	DEM_USERCMD      PACKET_TYPE = 5
	DEM_DATATABLES   PACKET_TYPE = 6
	DEM_STOP         PACKET_TYPE = 7
	DEM_STRINGTABLES PACKET_TYPE = 8
)

var packetTypeNames = map[PACKET_TYPE]string{
	DEM_SIGNON:       "SignOn",
	DEM_PACKET:       "Packet",
	DEM_SYNCTICK:     "SyncTick",
	DEM_CONSOLECMD:   "ConsoleCmd",
	DEM_USERCMD:      "UserCmd",
	DEM_DATATABLES:   "DataTables",
	DEM_STOP:         "Stop",
	DEM_STRINGTABLES: "StringTables",
}

func (t PACKET_TYPE) String() string {
	if s, ok := packetTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("PACKET_TYPE(%d)", uint8(t))
}

// network and server message tags inside SignOn/Packet bodies
type NET_SVC_TYPE uint8

const (
	NET_NOP                  NET_SVC_TYPE = 0
	NET_DISCONNECT           NET_SVC_TYPE = 1  // [string] reason
	NET_FILE                 NET_SVC_TYPE = 2  // [long] transfer id [string] file [bit] requested
	NET_TICK                 NET_SVC_TYPE = 3  // [long] tick [short] frame time [short] std dev
	NET_STRINGCMD            NET_SVC_TYPE = 4  // [string] command
	NET_SETCONVAR            NET_SVC_TYPE = 5  // [byte] count, [string] [string] pairs
	NET_SIGNONSTATE          NET_SVC_TYPE = 6  // [byte] state [long] spawn count
	SVC_PRINT                NET_SVC_TYPE = 7  // [string]
	SVC_SERVERINFO           NET_SVC_TYPE = 8  // <see code>
	SVC_SENDTABLE            NET_SVC_TYPE = 9  // [bit] needs decoder [short] length, data
	SVC_CLASSINFO            NET_SVC_TYPE = 10 // [short] count [bit] create on client, classes
	SVC_SETPAUSE             NET_SVC_TYPE = 11 // [bit]
	SVC_CREATESTRINGTABLE    NET_SVC_TYPE = 12 // <see code>
	SVC_UPDATESTRINGTABLE    NET_SVC_TYPE = 13 // [5] id [opt short] changed [20] length, data
	SVC_VOICEINIT            NET_SVC_TYPE = 14 // [string] codec [byte] quality
	SVC_VOICEDATA            NET_SVC_TYPE = 15 // [byte] client [byte] proximity [short] length, data
	SVC_PRINT_ALIAS          NET_SVC_TYPE = 16 // svc_print again on demo protocol 4
	SVC_SOUNDS               NET_SVC_TYPE = 17 // [bit] reliable, count, length, data
	SVC_SETVIEW              NET_SVC_TYPE = 18 // [11] entity
	SVC_FIXANGLE             NET_SVC_TYPE = 19 // [bit] relative [angle16 x3]
	SVC_CROSSHAIRANGLE       NET_SVC_TYPE = 20 // [angle16 x3]
	SVC_BSPDECAL             NET_SVC_TYPE = 21 // <see code>
	SVC_SPLITSCREEN          NET_SVC_TYPE = 22 // [1] type [11] length, data
	SVC_USERMESSAGE          NET_SVC_TYPE = 23 // [byte] type [11] length, data
	SVC_ENTITYMESSAGE        NET_SVC_TYPE = 24 // [11] entity [9] class [11] length, data
	SVC_GAMEEVENT            NET_SVC_TYPE = 25 // [11] length, event
	SVC_PACKETENTITIES       NET_SVC_TYPE = 26 // <see code>
	SVC_TEMPENTITIES         NET_SVC_TYPE = 27 // [byte] count [17] length, data
	SVC_PREFETCH             NET_SVC_TYPE = 28 // [13/14] sound index
	SVC_MENU                 NET_SVC_TYPE = 29 // [short] type [long] length, data
	SVC_GAMEEVENTLIST        NET_SVC_TYPE = 30 // [9] count [20] length, descriptors
	SVC_GETCVARVALUE         NET_SVC_TYPE = 31 // [long] cookie [string] cvar
	SVC_CMDKEYVALUES         NET_SVC_TYPE = 32 // [long] length, data
	SVC_PAINTMAPDATA         NET_SVC_TYPE = 33 // [long] length in bits, data
	net_svc_type_known_count                   = 34
)

var netSvcTypeNames = [net_svc_type_known_count]string{
	"NetNop", "NetDisconnect", "NetFile", "NetTick", "NetStringCmd", "NetSetConVar",
	"NetSignonState", "SvcPrint", "SvcServerInfo", "SvcSendTable", "SvcClassInfo",
	"SvcSetPause", "SvcCreateStringTable", "SvcUpdateStringTable", "SvcVoiceInit",
	"SvcVoiceData", "SvcPrint", "SvcSounds", "SvcSetView", "SvcFixAngle",
	"SvcCrosshairAngle", "SvcBspDecal", "SvcSplitScreen", "SvcUserMessage",
	"SvcEntityMessage", "SvcGameEvent", "SvcPacketEntities", "SvcTempEntities",
	"SvcPrefetch", "SvcMenu", "SvcGameEventList", "SvcGetCvarValue", "SvcCmdKeyValues",
	"SvcPaintmapData",
}

func (t NET_SVC_TYPE) String() string {
	if int(t) < len(netSvcTypeNames) {
		return netSvcTypeNames[t]
	}
	return fmt.Sprintf("NET_SVC_TYPE(%d)", uint8(t))
}

// send prop types, in wire order for the newest layout
type SEND_PROP_TYPE uint8

const (
	DPT_INT SEND_PROP_TYPE = iota
	DPT_FLOAT
	DPT_VECTOR
	DPT_VECTORXY
	DPT_STRING
	DPT_ARRAY
	DPT_DATATABLE
)

var sendPropTypeNames = [...]string{"Int", "Float", "Vector3", "Vector2", "String", "Array", "DataTable"}

func (t SEND_PROP_TYPE) String() string {
	if int(t) < len(sendPropTypeNames) {
		return sendPropTypeNames[t]
	}
	return fmt.Sprintf("SEND_PROP_TYPE(%d)", uint8(t))
}

type PROP_FLAG uint32

const (
	SPROP_UNSIGNED          PROP_FLAG = 1 << 0
	SPROP_COORD             PROP_FLAG = 1 << 1
	SPROP_NOSCALE           PROP_FLAG = 1 << 2
	SPROP_ROUNDDOWN         PROP_FLAG = 1 << 3
	SPROP_ROUNDUP           PROP_FLAG = 1 << 4
	SPROP_NORMAL            PROP_FLAG = 1 << 5
	SPROP_EXCLUDE           PROP_FLAG = 1 << 6
	SPROP_XYZE              PROP_FLAG = 1 << 7
	SPROP_INSIDEARRAY       PROP_FLAG = 1 << 8
	SPROP_PROXY_ALWAYS_YES  PROP_FLAG = 1 << 9
	SPROP_CHANGES_OFTEN     PROP_FLAG = 1 << 10
	SPROP_IS_A_VECTOR_ELEM  PROP_FLAG = 1 << 11
	SPROP_COLLAPSIBLE       PROP_FLAG = 1 << 12
	SPROP_COORD_MP          PROP_FLAG = 1 << 13
	SPROP_COORD_MP_LOWPREC  PROP_FLAG = 1 << 14
	SPROP_COORD_MP_INTEGRAL PROP_FLAG = 1 << 15
)

var propFlagNames = [...]string{
	"Unsigned", "Coord", "NoScale", "RoundDown", "RoundUp", "Normal", "Exclude", "Xyze",
	"InsideArray", "ProxyAlwaysYes", "ChangesOften", "IsVectorElem", "Collapsible",
	"CoordMp", "CoordMpLp", "CoordMpInt",
}

func (f PROP_FLAG) Has(flag PROP_FLAG) bool {
	return f&flag == flag
}

func (f PROP_FLAG) String() string {
	if f == 0 {
		return "None"
	}
	s := ""
	for i, name := range propFlagNames {
		if f&(1<<i) == 0 {
			continue
		}
		if s != "" {
			s += " | "
		}
		s += name
	}
	if rest := f &^ (1<<len(propFlagNames) - 1); rest != 0 {
		if s != "" {
			s += " | "
		}
		s += fmt.Sprintf("%#x", uint32(rest))
	}
	return s
}

// GAME is the build family a demo was recorded with, resolved from the network protocol.
type GAME uint8

const (
	GAME_UNKNOWN GAME = iota
	GAME_PORTAL_3420
	GAME_PORTAL_5135
	GAME_PORTAL_STEAMPIPE
)

var gameNames = [...]string{"Unknown", "Portal 3420", "Portal 5135", "Portal Steampipe"}

func (g GAME) String() string {
	if int(g) < len(gameNames) {
		return gameNames[g]
	}
	return fmt.Sprintf("GAME(%d)", uint8(g))
}

func gameFromNetworkProtocol(proto int32) GAME {
	switch {
	case proto == 24:
		return GAME_PORTAL_STEAMPIPE
	case proto == 15:
		return GAME_PORTAL_5135
	case proto == 14:
		return GAME_PORTAL_3420
	}
	return GAME_UNKNOWN
}

type CMDINFO_FLAG int32

const (
	FDEMO_NORMAL      CMDINFO_FLAG = 0
	FDEMO_USE_ORIGIN2 CMDINFO_FLAG = 1 << 0
	FDEMO_USE_ANGLES2 CMDINFO_FLAG = 1 << 1
	FDEMO_NOINTERP    CMDINFO_FLAG = 1 << 2
)

func (f CMDINFO_FLAG) String() string {
	if f == FDEMO_NORMAL {
		return "None"
	}
	s := ""
	for _, v := range []struct {
		flag CMDINFO_FLAG
		name string
	}{{FDEMO_USE_ORIGIN2, "UseOrigin2"}, {FDEMO_USE_ANGLES2, "UseAngles2"}, {FDEMO_NOINTERP, "NoInterp"}} {
		if f&v.flag != 0 {
			if s != "" {
				s += " | "
			}
			s += v.name
		}
	}
	return s
}

// BUTTON is the user command button mask.
type BUTTON uint32

const (
	IN_ATTACK BUTTON = 1 << iota
	IN_JUMP
	IN_DUCK
	IN_FORWARD
	IN_BACK
	IN_USE
	IN_CANCEL
	IN_LEFT
	IN_RIGHT
	IN_MOVELEFT
	IN_MOVERIGHT
	IN_ATTACK2
	IN_RUN
	IN_RELOAD
	IN_ALT1
	IN_ALT2
	IN_SCORE
	IN_SPEED
	IN_WALK
	IN_ZOOM
	IN_WEAPON1
	IN_WEAPON2
	IN_BULLRUSH
	IN_GRENADE1
	IN_GRENADE2
	IN_LOOKSPIN
	IN_CURRENT_ABILITY
	IN_PREVIOUS_ABILITY
	IN_ABILITY1
	IN_ABILITY2
	IN_ABILITY3
	IN_ABILITY4
)

var buttonNames = [...]string{
	"Attack", "Jump", "Duck", "Forward", "Back", "Use", "Cancel", "Left", "Right",
	"MoveLeft", "MoveRight", "Attack2", "Run", "Reload", "Alt1", "Alt2", "Score", "Speed",
	"Walk", "Zoom", "Weapon1", "Weapon2", "BullRush", "Grenade1", "Grenade2", "LookSpin",
	"CurrentAbility", "PreviousAbility", "Ability1", "Ability2", "Ability3", "Ability4",
}

func (b BUTTON) String() string {
	if b == 0 {
		return "None"
	}
	s := ""
	for i, name := range buttonNames {
		if b&(1<<i) == 0 {
			continue
		}
		if s != "" {
			s += " | "
		}
		s += name
	}
	return s
}

// game event key types
type EVENT_KEY_TYPE uint8

const (
	EVENT_KEY_NONE   EVENT_KEY_TYPE = 0
	EVENT_KEY_STRING EVENT_KEY_TYPE = 1
	EVENT_KEY_FLOAT  EVENT_KEY_TYPE = 2
	EVENT_KEY_LONG   EVENT_KEY_TYPE = 3
	EVENT_KEY_SHORT  EVENT_KEY_TYPE = 4
	EVENT_KEY_BYTE   EVENT_KEY_TYPE = 5
	EVENT_KEY_BOOL   EVENT_KEY_TYPE = 6
	EVENT_KEY_UINT64 EVENT_KEY_TYPE = 7
)

var eventKeyTypeNames = [...]string{"None", "String", "Float", "Long", "Short", "Byte", "Bool", "Uint64"}

func (t EVENT_KEY_TYPE) String() string {
	if int(t) < len(eventKeyTypeNames) {
		return eventKeyTypeNames[t]
	}
	return fmt.Sprintf("EVENT_KEY_TYPE(%d)", uint8(t))
}

type PRECACHE_FLAG uint8

const (
	PRECACHE_FATAL_IF_MISSING PRECACHE_FLAG = 1 << 0
	PRECACHE_PRELOAD          PRECACHE_FLAG = 1 << 1
)

// SIGNON_STATE values carried by NetSignonState.
type SIGNON_STATE uint8

const (
	SIGNONSTATE_NONE SIGNON_STATE = iota
	SIGNONSTATE_CHALLENGE
	SIGNONSTATE_CONNECTED
	SIGNONSTATE_NEW
	SIGNONSTATE_PRESPAWN
	SIGNONSTATE_SPAWN
	SIGNONSTATE_FULL
	SIGNONSTATE_CHANGELEVEL
)

var signonStateNames = [...]string{"None", "Challenge", "Connected", "New", "Prespawn", "Spawn", "Full", "ChangeLevel"}

func (s SIGNON_STATE) String() string {
	if int(s) < len(signonStateNames) {
		return signonStateNames[s]
	}
	return fmt.Sprintf("SIGNON_STATE(%d)", uint8(s))
}
