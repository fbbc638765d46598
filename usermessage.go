package demreader

// UserMessage is implemented by the decoded body of every user message kind.
type UserMessage interface {
	isUserMessage()
}

var userMessagesPortal3420 = []string{
	"Geiger", "Train", "HudText", "SayText", "SayText2", "TextMsg", "HudMsg", "ResetHUD",
	"GameTitle", "ItemPickup", "ShowMenu", "Shake", "Fade", "VGUIMenu", "Rumble", "Battery",
	"Damage", "VoiceMask", "RequestState", "CloseCaption", "HintText", "KeyHintText",
	"SquadMemberDied", "AmmoDenied", "CreditsMsg", "LogoTimeMsg", "AchievementEvent",
	"UpdateJalopyRadar", "EntityPortalled", "KillCam",
}

var userMessagesPortal5135 = append(userMessagesPortal3420[:len(userMessagesPortal3420):len(userMessagesPortal3420)],
	"CreditsPortalMsg", "ScoreboardTempUpdate", "TransitionFade",
)

var userMessagesSteampipe = append(userMessagesPortal5135[:len(userMessagesPortal5135):len(userMessagesPortal5135)],
	"MPMapCompleted", "MPMapIncomplete", "MPMapCompletedData", "MPTauntEarned",
	"MPTauntUnlocked", "MPTauntLocked", "MPAllTauntsLocked", "PortalFX_Surface",
	"PaintWorld", "PaintEntity", "ChangePaintColor", "PaintBombExplode", "RemoveAllPaint",
	"PaintAllSurfaces", "RemovePaint", "StartSurvey", "ApplyHitBoxDamageEffect",
	"SetMixLayerTriggerFactor",
)

// userMessageCatalog maps user message type numbers to names. A newer game only ever
// appends to the list of an older one; unrecognised games use the 5135 list.
func userMessageCatalog(game GAME) []string {
	switch game {
	case GAME_PORTAL_3420:
		return userMessagesPortal3420
	case GAME_PORTAL_STEAMPIPE:
		return userMessagesSteampipe
	}
	return userMessagesPortal5135
}

type Geiger struct {
	Range uint8 `json:"range"`
}

type Train struct {
	Position uint8 `json:"position"`
}

type HudText struct {
	Text string `json:"text"`
}

type SayText struct {
	Client      uint8  `json:"client"`
	Text        string `json:"text"`
	WantsToChat bool   `json:"wants_to_chat"`
}

type SayText2 struct {
	Client      uint8     `json:"client"`
	WantsToChat bool      `json:"wants_to_chat"`
	MsgName     string    `json:"msg_name"`
	Params      [4]string `json:"params"`
}

type TextMsg struct {
	Destination uint8     `json:"destination"`
	Params      [5]string `json:"params"`
}

type ResetHUD struct {
	Reset uint8 `json:"reset"`
}

type Shake struct {
	Command   uint8   `json:"command"`
	Amplitude float32 `json:"amplitude"`
	Frequency float32 `json:"frequency"`
	Duration  float32 `json:"duration"`
}

// Fade durations are sent as fixed point with 9 fraction bits.
type Fade struct {
	Duration float32 `json:"duration"`
	HoldTime uint16  `json:"hold_time"`
	Flags    uint16  `json:"flags"`
	R        uint8   `json:"r"`
	G        uint8   `json:"g"`
	B        uint8   `json:"b"`
	A        uint8   `json:"a"`
}

type VGUIMenu struct {
	Message string            `json:"message"`
	Show    bool              `json:"show"`
	Keys    map[string]string `json:"keys,omitempty"`
}

type Rumble struct {
	Index int8    `json:"index"`
	Data  float32 `json:"data"`
	Flags uint8   `json:"flags"`
}

type Battery struct {
	Count uint16 `json:"count"`
}

type Damage struct {
	Armor      uint8  `json:"armor"`
	DamageTake uint8  `json:"damage_take"`
	BitsDamage int32  `json:"bits_damage"`
	Origin     Vector `json:"origin"`
}

type CloseCaption struct {
	TokenName string  `json:"token_name"`
	Duration  float32 `json:"duration"`
	Flags     uint8   `json:"flags"`
}

type KeyHintText struct {
	Count uint8  `json:"count"`
	Text  string `json:"text"`
}

type LogoTimeMsg struct {
	Time float32 `json:"time"`
}

type AchievementEvent struct {
	AchievementID int32 `json:"achievement_id"`
}

type EntityPortalled struct {
	Portal       uint32 `json:"portal"`
	PortalledEnt uint32 `json:"portalled_ent"`
	NewPosition  Vector `json:"new_position"`
	NewAngles    Vector `json:"new_angles"`
}

type KillCam struct {
	SpecMode uint8 `json:"spec_mode"`
	Target1  uint8 `json:"target1"`
	Target2  uint8 `json:"target2"`
	Unknown  uint8 `json:"unknown"`
}

type MPMapCompleted struct {
	Branch uint8 `json:"branch"`
	Level  uint8 `json:"level"`
}

type MPTauntEarned struct {
	TauntName     string `json:"taunt_name"`
	AwardSilently bool   `json:"award_silently"`
}

type MPTauntLocked struct {
	TauntName string `json:"taunt_name"`
}

type ScoreboardTempUpdate struct {
	NumPortals int32 `json:"num_portals"`
	TimeTaken  int32 `json:"time_taken"`
}

type TransitionFade struct {
	Seconds float32 `json:"seconds"`
}

// RawUserMessage keeps the body of a user message that has no decoder or failed to decode.
type RawUserMessage struct {
	Data []byte `json:"data"`
}

func (*Geiger) isUserMessage()               {}
func (*Train) isUserMessage()                {}
func (*HudText) isUserMessage()              {}
func (*SayText) isUserMessage()              {}
func (*SayText2) isUserMessage()             {}
func (*TextMsg) isUserMessage()              {}
func (*ResetHUD) isUserMessage()             {}
func (*Shake) isUserMessage()                {}
func (*Fade) isUserMessage()                 {}
func (*VGUIMenu) isUserMessage()             {}
func (*Rumble) isUserMessage()               {}
func (*Battery) isUserMessage()              {}
func (*Damage) isUserMessage()               {}
func (*CloseCaption) isUserMessage()         {}
func (*KeyHintText) isUserMessage()          {}
func (*LogoTimeMsg) isUserMessage()          {}
func (*AchievementEvent) isUserMessage()     {}
func (*EntityPortalled) isUserMessage()      {}
func (*KillCam) isUserMessage()              {}
func (*MPMapCompleted) isUserMessage()       {}
func (*MPTauntEarned) isUserMessage()        {}
func (*MPTauntLocked) isUserMessage()        {}
func (*ScoreboardTempUpdate) isUserMessage() {}
func (*TransitionFade) isUserMessage()       {}
func (*RawUserMessage) isUserMessage()       {}

type userMessageDecoder func(s *stickyReader) UserMessage

var userMessageDecoders = map[string]userMessageDecoder{
	"Geiger": func(s *stickyReader) UserMessage {
		return &Geiger{Range: uint8(s.uint(8))}
	},
	"Train": func(s *stickyReader) UserMessage {
		return &Train{Position: uint8(s.uint(8))}
	},
	"HudText": func(s *stickyReader) UserMessage {
		return &HudText{Text: s.string()}
	},
	"SayText": func(s *stickyReader) UserMessage {
		m := &SayText{}
		m.Client = uint8(s.uint(8))
		m.Text = s.string()
		m.WantsToChat = s.uint(8) != 0
		return m
	},
	"SayText2": func(s *stickyReader) UserMessage {
		m := &SayText2{}
		m.Client = uint8(s.uint(8))
		m.WantsToChat = s.uint(8) != 0
		m.MsgName = s.string()
		for i := range m.Params {
			m.Params[i] = s.string()
		}
		return m
	},
	"TextMsg": func(s *stickyReader) UserMessage {
		m := &TextMsg{}
		m.Destination = uint8(s.uint(8))
		for i := range m.Params {
			m.Params[i] = s.string()
		}
		return m
	},
	"ResetHUD": func(s *stickyReader) UserMessage {
		return &ResetHUD{Reset: uint8(s.uint(8))}
	},
	"Shake": func(s *stickyReader) UserMessage {
		m := &Shake{}
		m.Command = uint8(s.uint(8))
		m.Amplitude = s.float()
		m.Frequency = s.float()
		m.Duration = s.float()
		return m
	},
	"Fade": func(s *stickyReader) UserMessage {
		m := &Fade{}
		m.Duration = float32(s.uint(16)) / (1 << 9)
		m.HoldTime = uint16(s.uint(16))
		m.Flags = uint16(s.uint(16))
		m.R = uint8(s.uint(8))
		m.G = uint8(s.uint(8))
		m.B = uint8(s.uint(8))
		m.A = uint8(s.uint(8))
		return m
	},
	"VGUIMenu": func(s *stickyReader) UserMessage {
		m := &VGUIMenu{}
		m.Message = s.string()
		m.Show = s.uint(8) != 0
		count := int(s.uint(8))
		for i := 0; i < count && s.err == nil; i++ {
			if m.Keys == nil {
				m.Keys = make(map[string]string, count)
			}
			key := s.string()
			m.Keys[key] = s.string()
		}
		return m
	},
	"Rumble": func(s *stickyReader) UserMessage {
		m := &Rumble{}
		m.Index = int8(s.uint(8))
		m.Data = float32(s.uint(8)) / 100
		m.Flags = uint8(s.uint(8))
		return m
	},
	"Battery": func(s *stickyReader) UserMessage {
		return &Battery{Count: uint16(s.uint(16))}
	},
	"Damage": func(s *stickyReader) UserMessage {
		m := &Damage{}
		m.Armor = uint8(s.uint(8))
		m.DamageTake = uint8(s.uint(8))
		m.BitsDamage = s.int32()
		m.Origin = s.vector()
		return m
	},
	"CloseCaption": func(s *stickyReader) UserMessage {
		m := &CloseCaption{}
		m.TokenName = s.string()
		m.Duration = float32(s.uint(16)) * 0.1
		m.Flags = uint8(s.uint(8))
		return m
	},
	"KeyHintText": func(s *stickyReader) UserMessage {
		m := &KeyHintText{}
		m.Count = uint8(s.uint(8))
		m.Text = s.string()
		return m
	},
	"LogoTimeMsg": func(s *stickyReader) UserMessage {
		return &LogoTimeMsg{Time: s.float()}
	},
	"AchievementEvent": func(s *stickyReader) UserMessage {
		return &AchievementEvent{AchievementID: s.int32()}
	},
	"EntityPortalled": func(s *stickyReader) UserMessage {
		m := &EntityPortalled{}
		m.Portal = uint32(s.uint(32))
		m.PortalledEnt = uint32(s.uint(32))
		m.NewPosition = s.vector()
		m.NewAngles = s.vector()
		return m
	},
	"KillCam": func(s *stickyReader) UserMessage {
		m := &KillCam{}
		m.SpecMode = uint8(s.uint(8))
		m.Target1 = uint8(s.uint(8))
		m.Target2 = uint8(s.uint(8))
		m.Unknown = uint8(s.uint(8))
		return m
	},
	"MPMapCompleted": func(s *stickyReader) UserMessage {
		m := &MPMapCompleted{}
		m.Branch = uint8(s.uint(8))
		m.Level = uint8(s.uint(8))
		return m
	},
	"MPTauntEarned": func(s *stickyReader) UserMessage {
		m := &MPTauntEarned{}
		m.TauntName = s.string()
		m.AwardSilently = s.bool()
		return m
	},
	"MPTauntLocked": func(s *stickyReader) UserMessage {
		return &MPTauntLocked{TauntName: s.string()}
	},
	"ScoreboardTempUpdate": func(s *stickyReader) UserMessage {
		m := &ScoreboardTempUpdate{}
		m.NumPortals = s.int32()
		m.TimeTaken = s.int32()
		return m
	},
	"TransitionFade": func(s *stickyReader) UserMessage {
		return &TransitionFade{Seconds: s.float()}
	},
}

// readUserMessage decodes the body of a user message. r holds exactly the body, so a
// failed decode never disturbs the enclosing message stream; the body is then kept raw.
func (demo *Demo) readUserMessage(r *BitReader, name string) UserMessage {
	raw := *r
	if decode, ok := userMessageDecoders[name]; ok {
		s := &stickyReader{r: r}
		m := decode(s)
		if s.err == nil {
			return m
		}
		demo.log.Warn().Err(s.err).Str("user_message", name).Int32("tick", demo.tick).Msg("user message kept raw")
		demo.traceAdditionalInfo("user message", name)
	}
	data, _ := raw.ReadRemaining()
	return &RawUserMessage{Data: data}
}
