package demreader

// NetworkMessage is one message of a SignOn or Packet body. Offset and Bits locate the
// message, tag included, in the file.
type NetworkMessage struct {
	Type   NET_SVC_TYPE `json:"type"`
	Offset uint         `json:"offset"`
	Bits   uint         `json:"bits"`
	Data   MessageData  `json:"data"`
}

// MessageData is implemented by the payload type of every message kind.
type MessageData interface {
	isMessageData()
}

type NetNop struct{}

type NetDisconnect struct {
	Reason string `json:"reason"`
}

type NetFile struct {
	TransferID uint32 `json:"transfer_id"`
	FileName   string `json:"file_name"`
	Requested  bool   `json:"requested"`
}

// NetTick frame times are stored in units of 1e-5 seconds and converted.
type NetTick struct {
	Tick                int32   `json:"tick"`
	HostFrameTime       float32 `json:"host_frame_time"`
	HostFrameTimeStdDev float32 `json:"host_frame_time_std_dev"`
}

type NetStringCmd struct {
	Command string `json:"command"`
}

type ConVar struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type NetSetConVar struct {
	ConVars []ConVar `json:"convars"`
}

type NetSignonState struct {
	State      SIGNON_STATE `json:"state"`
	SpawnCount int32        `json:"spawn_count"`
}

type SvcPrint struct {
	Message string `json:"message"`
}

type SvcServerInfo struct {
	NetworkProtocol uint16  `json:"network_protocol"`
	ServerCount     uint32  `json:"server_count"`
	IsHLTV          bool    `json:"is_hltv"`
	IsDedicated     bool    `json:"is_dedicated"`
	ClientCRC       int32   `json:"client_crc"`
	MaxClasses      uint16  `json:"max_classes"`
	MapCRC          uint32  `json:"map_crc,omitempty"`
	MapMD5          []byte  `json:"map_md5,omitempty"`
	PlayerSlot      uint8   `json:"player_slot"`
	MaxClients      uint8   `json:"max_clients"`
	TickInterval    float32 `json:"tick_interval"`
	Platform        string  `json:"platform"`
	GameDir         string  `json:"game_dir"`
	MapName         string  `json:"map_name"`
	SkyName         string  `json:"sky_name"`
	HostName        string  `json:"host_name"`
	HasReplay       bool    `json:"has_replay,omitempty"`
}

type SvcSendTable struct {
	NeedsDecoder bool   `json:"needs_decoder"`
	DataBits     uint16 `json:"data_bits"`
}

type SvcClassInfo struct {
	Count          uint16        `json:"count"`
	CreateOnClient bool          `json:"create_on_client"`
	Classes        []ServerClass `json:"classes,omitempty"`
}

type SvcSetPause struct {
	Paused bool `json:"paused"`
}

type SvcCreateStringTable struct {
	Name              string `json:"name"`
	MaxEntries        uint16 `json:"max_entries"`
	NumEntries        uint32 `json:"num_entries"`
	DataBits          uint32 `json:"data_bits"`
	UserDataFixedSize bool   `json:"user_data_fixed_size"`
	UserDataSize      uint16 `json:"user_data_size,omitempty"`
	UserDataSizeBits  uint8  `json:"user_data_size_bits,omitempty"`
	Flags             uint8  `json:"flags"`
}

type SvcUpdateStringTable struct {
	TableID        uint8  `json:"table_id"`
	TableName      string `json:"table_name"`
	ChangedEntries uint16 `json:"changed_entries"`
	DataBits       uint32 `json:"data_bits"`
}

type SvcVoiceInit struct {
	Codec      string `json:"codec"`
	Quality    uint8  `json:"quality"`
	SampleRate uint32 `json:"sample_rate,omitempty"`
}

type SvcVoiceData struct {
	Client    uint8  `json:"client"`
	Proximity uint8  `json:"proximity"`
	DataBits  uint16 `json:"data_bits"`
	Audible   bool   `json:"audible"`
}

type SvcSounds struct {
	Reliable bool   `json:"reliable"`
	Count    uint8  `json:"count"`
	DataBits uint16 `json:"data_bits"`
}

type SvcSetView struct {
	EntityIndex uint16 `json:"entity_index"`
}

type SvcFixAngle struct {
	Relative bool   `json:"relative"`
	Angle    Vector `json:"angle"`
}

type SvcCrosshairAngle struct {
	Angle Vector `json:"angle"`
}

type SvcBspDecal struct {
	Position          OptionalVector `json:"position"`
	DecalTextureIndex uint16         `json:"decal_texture_index"`
	EntityIndex       *uint16        `json:"entity_index,omitempty"`
	ModelIndex        *uint16        `json:"model_index,omitempty"`
	LowPriority       bool           `json:"low_priority"`
}

type SvcSplitScreen struct {
	Type     uint8  `json:"type"`
	DataBits uint16 `json:"data_bits"`
}

type SvcUserMessage struct {
	MessageType uint8       `json:"message_type"`
	Name        string      `json:"name"`
	DataBits    uint16      `json:"data_bits"`
	Message     UserMessage `json:"message"`
}

type SvcEntityMessage struct {
	EntityIndex uint16 `json:"entity_index"`
	ClassID     uint16 `json:"class_id"`
	DataBits    uint16 `json:"data_bits"`
}

type SvcGameEvent struct {
	DataBits uint16     `json:"data_bits"`
	Event    *GameEvent `json:"event"`
}

type SvcPacketEntities struct {
	MaxEntries     uint16         `json:"max_entries"`
	IsDelta        bool           `json:"is_delta"`
	DeltaFrom      int32          `json:"delta_from"`
	Baseline       bool           `json:"baseline"`
	UpdatedEntries uint16         `json:"updated_entries"`
	DataBits       uint32         `json:"data_bits"`
	UpdateBaseline bool           `json:"update_baseline"`
	Updates        []EntityUpdate `json:"updates,omitempty"`
}

type SvcTempEntities struct {
	Count    uint8  `json:"count"`
	DataBits uint32 `json:"data_bits"`
}

type SvcPrefetch struct {
	SoundIndex uint16 `json:"sound_index"`
	SoundName  string `json:"sound_name,omitempty"`
}

type SvcMenu struct {
	MenuType  uint16 `json:"menu_type"`
	DataBytes uint32 `json:"data_bytes"`
}

type SvcGameEventList struct {
	Count       uint16                 `json:"count"`
	DataBits    uint32                 `json:"data_bits"`
	Descriptors []*GameEventDescriptor `json:"descriptors"`
}

type SvcGetCvarValue struct {
	Cookie   int32  `json:"cookie"`
	CvarName string `json:"cvar_name"`
}

type SvcCmdKeyValues struct {
	DataBytes uint32 `json:"data_bytes"`
}

type SvcPaintmapData struct {
	DataBits uint32 `json:"data_bits"`
}

// UnknownMessage stands in for a tag without a decoder. Its body is skipped using a
// 20-bit bit length read after the tag.
type UnknownMessage struct {
	Tag      uint8  `json:"tag"`
	DataBits uint32 `json:"data_bits"`
}

func (*NetNop) isMessageData()               {}
func (*NetDisconnect) isMessageData()        {}
func (*NetFile) isMessageData()              {}
func (*NetTick) isMessageData()              {}
func (*NetStringCmd) isMessageData()         {}
func (*NetSetConVar) isMessageData()         {}
func (*NetSignonState) isMessageData()       {}
func (*SvcPrint) isMessageData()             {}
func (*SvcServerInfo) isMessageData()        {}
func (*SvcSendTable) isMessageData()         {}
func (*SvcClassInfo) isMessageData()         {}
func (*SvcSetPause) isMessageData()          {}
func (*SvcCreateStringTable) isMessageData() {}
func (*SvcUpdateStringTable) isMessageData() {}
func (*SvcVoiceInit) isMessageData()         {}
func (*SvcVoiceData) isMessageData()         {}
func (*SvcSounds) isMessageData()            {}
func (*SvcSetView) isMessageData()           {}
func (*SvcFixAngle) isMessageData()          {}
func (*SvcCrosshairAngle) isMessageData()    {}
func (*SvcBspDecal) isMessageData()          {}
func (*SvcSplitScreen) isMessageData()       {}
func (*SvcUserMessage) isMessageData()       {}
func (*SvcEntityMessage) isMessageData()     {}
func (*SvcGameEvent) isMessageData()         {}
func (*SvcPacketEntities) isMessageData()    {}
func (*SvcTempEntities) isMessageData()      {}
func (*SvcPrefetch) isMessageData()          {}
func (*SvcMenu) isMessageData()              {}
func (*SvcGameEventList) isMessageData()     {}
func (*SvcGetCvarValue) isMessageData()      {}
func (*SvcCmdKeyValues) isMessageData()      {}
func (*SvcPaintmapData) isMessageData()      {}
func (*UnknownMessage) isMessageData()       {}
