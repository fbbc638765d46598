package demotest

// Message tags used by the sample, for 6 bit tag demos.
const (
	tagNetTick  = 3
	tagSvcPrint = 7
	tagFixAngle = 19
)

// WakeupYaw is the 16 bit angle of the testchmb_a_00 wakeup view snap.
const WakeupYaw = 34588

// Message starts a message with a 6 bit tag.
func Message(w *BitWriter, tag uint8) *BitWriter {
	return w.Uint(uint64(tag), 6)
}

// FixAngle is a body holding one absolute FixAngle message.
func FixAngle(yaw uint64) *BitWriter {
	return Message(NewBitWriter(), tagFixAngle).Bool(false).Uint(0, 16).Uint(yaw, 16).Uint(0, 16)
}

// SampleDataTables declares DT_Player with an unsigned 8 bit m_iHealth and the class
// CPlayer (id 0) sent with it.
func SampleDataTables() *BitWriter {
	w := NewBitWriter()
	w.Bool(true).Bool(false).String("DT_Player").Uint(1, 10)
	w.Uint(0, 5).String("m_iHealth").Uint(1, 16).Float(0).Float(0).Uint(8, 7)
	w.Bool(false).Uint16(1)
	w.Uint16(0).String("CPlayer").String("DT_Player")
	return w
}

// SampleRun is a short Portal 5135 demo of a run: a sign on packet, data tables, the
// wakeup at tick 5, the GLaDOS escape at tick 20 and a stop at tick 30.
func SampleRun() *DemoBuilder {
	signon := NewBitWriter()
	Message(signon, tagNetTick).Int32(0).Uint16(1500).Uint16(10)
	Message(signon, tagSvcPrint).String("Portal")

	return NewDemoBuilder(DefaultHeader()).
		FullUpdate(SignOn, 0, signon).
		Sized(DataTables, 0, SampleDataTables()).
		SyncTick(0).
		FullUpdate(Packet, 5, FixAngle(WakeupYaw)).
		ConsoleCmd(20, "startneurotoxins 99999").
		Stop(30)
}
