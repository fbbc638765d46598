package demreader

import (
	"fmt"
	"math/bits"

	"github.com/rs/zerolog"
)

const (
	// the message loop stops once no more than this many bits are left
	minMessageBits = 6

	unknownMessageLengthBits = 20
	entityIndexBits          = 11
	classIndexBits           = 9
	decalIndexBits           = 9
	modelIndexBits           = 11
	userMessageLengthBits    = 11
	gameEventLengthBits      = 11
	stringTableIDBits        = 5
)

type messageDecoder func(*Demo, *BitReader) (MessageData, error)

var messageDecoders = [net_svc_type_known_count]messageDecoder{
	NET_NOP:               (*Demo).readNetNop,
	NET_DISCONNECT:        (*Demo).readNetDisconnect,
	NET_FILE:              (*Demo).readNetFile,
	NET_TICK:              (*Demo).readNetTick,
	NET_STRINGCMD:         (*Demo).readNetStringCmd,
	NET_SETCONVAR:         (*Demo).readNetSetConVar,
	NET_SIGNONSTATE:       (*Demo).readNetSignonState,
	SVC_PRINT:             (*Demo).readSvcPrint,
	SVC_SERVERINFO:        (*Demo).readSvcServerInfo,
	SVC_SENDTABLE:         (*Demo).readSvcSendTable,
	SVC_CLASSINFO:         (*Demo).readSvcClassInfo,
	SVC_SETPAUSE:          (*Demo).readSvcSetPause,
	SVC_CREATESTRINGTABLE: (*Demo).readSvcCreateStringTable,
	SVC_UPDATESTRINGTABLE: (*Demo).readSvcUpdateStringTable,
	SVC_VOICEINIT:         (*Demo).readSvcVoiceInit,
	SVC_VOICEDATA:         (*Demo).readSvcVoiceData,
	SVC_PRINT_ALIAS:       (*Demo).readSvcPrint,
	SVC_SOUNDS:            (*Demo).readSvcSounds,
	SVC_SETVIEW:           (*Demo).readSvcSetView,
	SVC_FIXANGLE:          (*Demo).readSvcFixAngle,
	SVC_CROSSHAIRANGLE:    (*Demo).readSvcCrosshairAngle,
	SVC_BSPDECAL:          (*Demo).readSvcBspDecal,
	SVC_SPLITSCREEN:       (*Demo).readSvcSplitScreen,
	SVC_USERMESSAGE:       (*Demo).readSvcUserMessage,
	SVC_ENTITYMESSAGE:     (*Demo).readSvcEntityMessage,
	SVC_GAMEEVENT:         (*Demo).readSvcGameEvent,
	SVC_PACKETENTITIES:    (*Demo).readSvcPacketEntities,
	SVC_TEMPENTITIES:      (*Demo).readSvcTempEntities,
	SVC_PREFETCH:          (*Demo).readSvcPrefetch,
	SVC_MENU:              (*Demo).readSvcMenu,
	SVC_GAMEEVENTLIST:     (*Demo).readSvcGameEventList,
	SVC_GETCVARVALUE:      (*Demo).readSvcGetCvarValue,
	SVC_CMDKEYVALUES:      (*Demo).readSvcCmdKeyValues,
	SVC_PAINTMAPDATA:      (*Demo).readSvcPaintmapData,
}

func (demo *Demo) messageDecoder(t NET_SVC_TYPE) messageDecoder {
	if t == SVC_PRINT_ALIAS && !demo.ctx.newDemoProtocol() {
		return nil
	}
	if int(t) < len(messageDecoders) {
		return messageDecoders[t]
	}
	return nil
}

// readMessages decodes the messages of a SignOn or Packet body.
func (demo *Demo) readMessages(r *BitReader) ([]NetworkMessage, error) {
	var messages []NetworkMessage
	for r.Remaining() > minMessageBits {
		start := r.Position()
		tag, err := r.ReadUint(demo.ctx.MessageTypeBits)
		if err != nil {
			return messages, fmt.Errorf("message tag: %w", err)
		}
		t := NET_SVC_TYPE(tag)
		var data MessageData
		if decode := demo.messageDecoder(t); decode != nil {
			data, err = decode(demo, r)
		} else {
			data, err = demo.readUnknownMessage(r, uint8(tag))
		}
		if err != nil {
			return messages, fmt.Errorf("%s: %w", t, err)
		}
		m := NetworkMessage{Type: t, Offset: start, Bits: r.Position() - start, Data: data}
		messages = append(messages, m)
		demo.traceMessage(&m)
		if demo.log.GetLevel() <= zerolog.DebugLevel {
			demo.log.Debug().Stringer("type", t).Uint("bits", m.Bits).Int32("tick", demo.tick).Msg("message")
		}
	}
	return messages, nil
}

// stickyReader keeps the first error and turns later reads into no-ops, so a message
// layout can be read field by field and checked once.
type stickyReader struct {
	r   *BitReader
	err error
}

func (s *stickyReader) uint(n uint) uint64 {
	if s.err != nil {
		return 0
	}
	v, err := s.r.ReadUint(n)
	s.err = err
	return v
}

func (s *stickyReader) int32() int32 {
	return int32(s.uint(32))
}

func (s *stickyReader) bool() bool {
	return s.uint(1) == 1
}

func (s *stickyReader) float() float32 {
	if s.err != nil {
		return 0
	}
	v, err := s.r.ReadFloat()
	s.err = err
	return v
}

func (s *stickyReader) string() string {
	if s.err != nil {
		return ""
	}
	v, err := s.r.ReadString()
	s.err = err
	return v
}

func (s *stickyReader) bytes(n uint) []byte {
	if s.err != nil {
		return nil
	}
	v, err := s.r.ReadBytes(n)
	s.err = err
	return v
}

func (s *stickyReader) angles(n uint) Vector {
	if s.err != nil {
		return Vector{}
	}
	v, err := s.r.ReadAngles(n)
	s.err = err
	return v
}

func (s *stickyReader) vector() Vector {
	if s.err != nil {
		return Vector{}
	}
	v, err := s.r.ReadVector()
	s.err = err
	return v
}

func (s *stickyReader) skip(n uint) {
	if s.err != nil {
		return
	}
	s.err = s.r.Skip(n)
}

func (s *stickyReader) split(n uint) *BitReader {
	if s.err != nil {
		return nil
	}
	sub, err := s.r.SplitAndSkip(n)
	s.err = err
	return sub
}

func (demo *Demo) readNetNop(r *BitReader) (MessageData, error) {
	return &NetNop{}, nil
}

func (demo *Demo) readNetDisconnect(r *BitReader) (MessageData, error) {
	reason, err := r.ReadString()
	return &NetDisconnect{Reason: reason}, err
}

func (demo *Demo) readNetFile(r *BitReader) (MessageData, error) {
	s := &stickyReader{r: r}
	m := &NetFile{}
	m.TransferID = uint32(s.uint(32))
	m.FileName = s.string()
	m.Requested = s.bool()
	return m, s.err
}

func (demo *Demo) readNetTick(r *BitReader) (MessageData, error) {
	s := &stickyReader{r: r}
	m := &NetTick{}
	m.Tick = s.int32()
	m.HostFrameTime = float32(s.uint(16)) / 1e5
	m.HostFrameTimeStdDev = float32(s.uint(16)) / 1e5
	return m, s.err
}

func (demo *Demo) readNetStringCmd(r *BitReader) (MessageData, error) {
	cmd, err := r.ReadString()
	return &NetStringCmd{Command: cmd}, err
}

func (demo *Demo) readNetSetConVar(r *BitReader) (MessageData, error) {
	s := &stickyReader{r: r}
	count := int(s.uint(8))
	m := &NetSetConVar{ConVars: make([]ConVar, 0, count)}
	for i := 0; i < count && s.err == nil; i++ {
		var cv ConVar
		cv.Name = s.string()
		cv.Value = s.string()
		m.ConVars = append(m.ConVars, cv)
	}
	return m, s.err
}

func (demo *Demo) readNetSignonState(r *BitReader) (MessageData, error) {
	s := &stickyReader{r: r}
	m := &NetSignonState{}
	m.State = SIGNON_STATE(s.uint(8))
	m.SpawnCount = s.int32()
	return m, s.err
}

func (demo *Demo) readSvcPrint(r *BitReader) (MessageData, error) {
	msg, err := r.ReadString()
	return &SvcPrint{Message: msg}, err
}

func (demo *Demo) readSvcServerInfo(r *BitReader) (MessageData, error) {
	s := &stickyReader{r: r}
	m := &SvcServerInfo{}
	steampipe := demo.ctx.Game == GAME_PORTAL_STEAMPIPE
	m.NetworkProtocol = uint16(s.uint(16))
	m.ServerCount = uint32(s.uint(32))
	m.IsHLTV = s.bool()
	m.IsDedicated = s.bool()
	m.ClientCRC = s.int32()
	m.MaxClasses = uint16(s.uint(16))
	if steampipe {
		m.MapMD5 = s.bytes(16)
	} else {
		m.MapCRC = uint32(s.uint(32))
	}
	m.PlayerSlot = uint8(s.uint(8))
	m.MaxClients = uint8(s.uint(8))
	m.TickInterval = s.float()
	m.Platform = string(rune(s.uint(8)))
	m.GameDir = s.string()
	m.MapName = s.string()
	m.SkyName = s.string()
	m.HostName = s.string()
	if steampipe {
		m.HasReplay = s.bool()
	}
	if s.err == nil {
		demo.ctx.ServerInfo = m
	}
	return m, s.err
}

func (demo *Demo) readSvcSendTable(r *BitReader) (MessageData, error) {
	s := &stickyReader{r: r}
	m := &SvcSendTable{}
	m.NeedsDecoder = s.bool()
	m.DataBits = uint16(s.uint(16))
	s.skip(uint(m.DataBits))
	return m, s.err
}

func (demo *Demo) readSvcClassInfo(r *BitReader) (MessageData, error) {
	s := &stickyReader{r: r}
	m := &SvcClassInfo{}
	m.Count = uint16(s.uint(16))
	m.CreateOnClient = s.bool()
	if m.CreateOnClient {
		return m, s.err
	}
	idBits := uint(bits.Len16(m.Count))
	for i := 0; i < int(m.Count) && s.err == nil; i++ {
		var c ServerClass
		c.ID = int(s.uint(idBits))
		c.Name = s.string()
		c.Table = s.string()
		m.Classes = append(m.Classes, c)
	}
	return m, s.err
}

func (demo *Demo) readSvcSetPause(r *BitReader) (MessageData, error) {
	paused, err := r.ReadBool()
	if err != nil {
		return nil, err
	}
	demo.ctx.Paused = paused
	return &SvcSetPause{Paused: paused}, nil
}

func (demo *Demo) readSvcCreateStringTable(r *BitReader) (MessageData, error) {
	s := &stickyReader{r: r}
	m := &SvcCreateStringTable{}
	m.Name = s.string()
	m.MaxEntries = uint16(s.uint(16))
	m.NumEntries = uint32(s.uint(uint(bits.Len16(m.MaxEntries))))
	if demo.ctx.Game == GAME_PORTAL_STEAMPIPE {
		if s.err == nil {
			m.DataBits, s.err = r.ReadVarUint32()
		}
	} else {
		m.DataBits = uint32(s.uint(20))
	}
	m.UserDataFixedSize = s.bool()
	if m.UserDataFixedSize {
		m.UserDataSize = uint16(s.uint(12))
		m.UserDataSizeBits = uint8(s.uint(4))
	}
	if demo.ctx.newDemoProtocol() {
		m.Flags = uint8(s.uint(2))
	} else {
		m.Flags = uint8(s.uint(1))
	}
	s.skip(uint(m.DataBits))
	if s.err == nil {
		demo.ctx.createdTables = append(demo.ctx.createdTables, m.Name)
	}
	return m, s.err
}

func (demo *Demo) readSvcUpdateStringTable(r *BitReader) (MessageData, error) {
	s := &stickyReader{r: r}
	m := &SvcUpdateStringTable{ChangedEntries: 1}
	m.TableID = uint8(s.uint(stringTableIDBits))
	if s.bool() {
		m.ChangedEntries = uint16(s.uint(16))
	}
	m.DataBits = uint32(s.uint(20))
	s.skip(uint(m.DataBits))
	m.TableName = demo.ctx.createdTableName(int(m.TableID))
	return m, s.err
}

func (demo *Demo) readSvcVoiceInit(r *BitReader) (MessageData, error) {
	s := &stickyReader{r: r}
	m := &SvcVoiceInit{}
	m.Codec = s.string()
	m.Quality = uint8(s.uint(8))
	if m.Quality == 255 {
		m.SampleRate = uint32(s.uint(32))
	}
	return m, s.err
}

func (demo *Demo) readSvcVoiceData(r *BitReader) (MessageData, error) {
	s := &stickyReader{r: r}
	m := &SvcVoiceData{}
	m.Client = uint8(s.uint(8))
	m.Proximity = uint8(s.uint(8))
	m.DataBits = uint16(s.uint(16))
	if demo.ctx.newDemoProtocol() {
		m.Audible = s.bool()
	}
	s.skip(uint(m.DataBits))
	return m, s.err
}

func (demo *Demo) readSvcSounds(r *BitReader) (MessageData, error) {
	s := &stickyReader{r: r}
	m := &SvcSounds{}
	m.Reliable = s.bool()
	if m.Reliable {
		m.Count = 1
		m.DataBits = uint16(s.uint(8))
	} else {
		m.Count = uint8(s.uint(8))
		m.DataBits = uint16(s.uint(16))
	}
	s.skip(uint(m.DataBits))
	return m, s.err
}

func (demo *Demo) readSvcSetView(r *BitReader) (MessageData, error) {
	v, err := r.ReadUint(entityIndexBits)
	return &SvcSetView{EntityIndex: uint16(v)}, err
}

func (demo *Demo) readSvcFixAngle(r *BitReader) (MessageData, error) {
	s := &stickyReader{r: r}
	m := &SvcFixAngle{}
	m.Relative = s.bool()
	m.Angle = s.angles(16)
	return m, s.err
}

func (demo *Demo) readSvcCrosshairAngle(r *BitReader) (MessageData, error) {
	s := &stickyReader{r: r}
	m := &SvcCrosshairAngle{Angle: s.angles(16)}
	return m, s.err
}

func (demo *Demo) readSvcBspDecal(r *BitReader) (MessageData, error) {
	m := &SvcBspDecal{}
	var err error
	if m.Position, err = r.ReadVectorCoord(); err != nil {
		return m, err
	}
	s := &stickyReader{r: r}
	m.DecalTextureIndex = uint16(s.uint(decalIndexBits))
	if s.bool() {
		entity := uint16(s.uint(entityIndexBits))
		model := uint16(s.uint(modelIndexBits))
		m.EntityIndex, m.ModelIndex = &entity, &model
	}
	m.LowPriority = s.bool()
	return m, s.err
}

func (demo *Demo) readSvcSplitScreen(r *BitReader) (MessageData, error) {
	s := &stickyReader{r: r}
	m := &SvcSplitScreen{}
	m.Type = uint8(s.uint(1))
	m.DataBits = uint16(s.uint(11))
	s.skip(uint(m.DataBits))
	return m, s.err
}

func (demo *Demo) readSvcUserMessage(r *BitReader) (MessageData, error) {
	s := &stickyReader{r: r}
	m := &SvcUserMessage{}
	m.MessageType = uint8(s.uint(8))
	m.DataBits = uint16(s.uint(userMessageLengthBits))
	sub := s.split(uint(m.DataBits))
	if s.err != nil {
		return m, s.err
	}
	m.Name = demo.ctx.UserMessageName(int(m.MessageType))
	if demo.mode == ModeFull {
		m.Message = demo.readUserMessage(sub, m.Name)
	}
	return m, nil
}

func (demo *Demo) readSvcEntityMessage(r *BitReader) (MessageData, error) {
	s := &stickyReader{r: r}
	m := &SvcEntityMessage{}
	m.EntityIndex = uint16(s.uint(entityIndexBits))
	m.ClassID = uint16(s.uint(classIndexBits))
	m.DataBits = uint16(s.uint(11))
	s.skip(uint(m.DataBits))
	return m, s.err
}

func (demo *Demo) readSvcGameEvent(r *BitReader) (MessageData, error) {
	s := &stickyReader{r: r}
	m := &SvcGameEvent{}
	m.DataBits = uint16(s.uint(gameEventLengthBits))
	sub := s.split(uint(m.DataBits))
	if s.err != nil {
		return m, s.err
	}
	event, err := readGameEvent(sub, demo.ctx)
	if err != nil {
		demo.log.Warn().Err(err).Int32("tick", demo.tick).Msg("game event not decoded")
		demo.traceAdditionalInfo("game event", err.Error())
	}
	m.Event = event
	return m, nil
}

func (demo *Demo) readSvcPacketEntities(r *BitReader) (MessageData, error) {
	s := &stickyReader{r: r}
	m := &SvcPacketEntities{DeltaFrom: -1}
	m.MaxEntries = uint16(s.uint(entityIndexBits))
	m.IsDelta = s.bool()
	if m.IsDelta {
		m.DeltaFrom = s.int32()
	}
	m.Baseline = s.bool()
	m.UpdatedEntries = uint16(s.uint(entityIndexBits))
	m.DataBits = uint32(s.uint(20))
	m.UpdateBaseline = s.bool()
	sub := s.split(uint(m.DataBits))
	if s.err != nil {
		return m, s.err
	}
	if demo.mode != ModeFull || len(demo.ctx.Classes) == 0 {
		return m, nil
	}
	updates, err := readEntityUpdates(sub, demo.ctx, m)
	if err != nil {
		demo.log.Warn().Err(err).Int32("tick", demo.tick).Int("decoded", len(updates)).Msg("packet entities not fully decoded")
		demo.traceAdditionalInfo("packet entities", err.Error())
	}
	m.Updates = updates
	return m, nil
}

func (demo *Demo) readSvcTempEntities(r *BitReader) (MessageData, error) {
	s := &stickyReader{r: r}
	m := &SvcTempEntities{}
	m.Count = uint8(s.uint(8))
	if demo.ctx.newDemoProtocol() {
		if s.err == nil {
			m.DataBits, s.err = r.ReadVarUint32()
		}
	} else {
		m.DataBits = uint32(s.uint(17))
	}
	s.skip(uint(m.DataBits))
	return m, s.err
}

func (demo *Demo) readSvcPrefetch(r *BitReader) (MessageData, error) {
	width := uint(14)
	if demo.ctx.Game == GAME_PORTAL_3420 {
		width = 13
	}
	v, err := r.ReadUint(width)
	if err != nil {
		return nil, err
	}
	m := &SvcPrefetch{SoundIndex: uint16(v)}
	if t, ok := demo.ctx.StringTable("soundprecache"); ok && int(v) < len(t.Entries) {
		m.SoundName = t.Entries[v].Name
	}
	return m, nil
}

func (demo *Demo) readSvcMenu(r *BitReader) (MessageData, error) {
	s := &stickyReader{r: r}
	m := &SvcMenu{}
	m.MenuType = uint16(s.uint(16))
	m.DataBytes = uint32(s.uint(32))
	s.skip(uint(m.DataBytes) * 8)
	return m, s.err
}

func (demo *Demo) readSvcGameEventList(r *BitReader) (MessageData, error) {
	s := &stickyReader{r: r}
	m := &SvcGameEventList{}
	m.Count = uint16(s.uint(9))
	m.DataBits = uint32(s.uint(20))
	sub := s.split(uint(m.DataBits))
	if s.err != nil {
		return m, s.err
	}
	for i := 0; i < int(m.Count); i++ {
		d, err := readGameEventDescriptor(sub)
		if err != nil {
			return m, fmt.Errorf("event descriptor %d: %w", i, err)
		}
		m.Descriptors = append(m.Descriptors, d)
	}
	demo.ctx.addEventDescriptors(m.Descriptors)
	return m, nil
}

func (demo *Demo) readSvcGetCvarValue(r *BitReader) (MessageData, error) {
	s := &stickyReader{r: r}
	m := &SvcGetCvarValue{}
	m.Cookie = s.int32()
	m.CvarName = s.string()
	return m, s.err
}

func (demo *Demo) readSvcCmdKeyValues(r *BitReader) (MessageData, error) {
	s := &stickyReader{r: r}
	m := &SvcCmdKeyValues{}
	m.DataBytes = uint32(s.uint(32))
	s.skip(uint(m.DataBytes) * 8)
	return m, s.err
}

func (demo *Demo) readSvcPaintmapData(r *BitReader) (MessageData, error) {
	s := &stickyReader{r: r}
	m := &SvcPaintmapData{}
	m.DataBits = uint32(s.uint(32))
	s.skip(uint(m.DataBits))
	return m, s.err
}

func (demo *Demo) readUnknownMessage(r *BitReader, tag uint8) (MessageData, error) {
	s := &stickyReader{r: r}
	m := &UnknownMessage{Tag: tag}
	m.DataBits = uint32(s.uint(unknownMessageLengthBits))
	s.skip(uint(m.DataBits))
	if s.err == nil {
		demo.log.Warn().Uint8("tag", tag).Uint32("bits", m.DataBits).Int32("tick", demo.tick).Msg("unknown message skipped")
		demo.traceAdditionalInfo("unknown message", tag)
	}
	return m, s.err
}
