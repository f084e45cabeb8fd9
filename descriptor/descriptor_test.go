package descriptor

import "testing"

func TestAddControlMediaReturnsPositionalIndex(t *testing.T) {
	s := NewSession("switchboard", "127.0.0.1")
	idx := s.AddControlMedia(ControlMedia{
		Proto:        ProtoTCP,
		Setup:        SetupActive,
		ResourceName: "speechsynth",
	})
	if idx != 0 {
		t.Fatalf("expected first control-media at index 0, got %d", idx)
	}
	idx2 := s.AddControlMedia(ControlMedia{ResourceName: "speechrecog"})
	if idx2 != 1 {
		t.Fatalf("expected second control-media at index 1, got %d", idx2)
	}
}

func TestAddAudioMediaPreservesCodec(t *testing.T) {
	s := NewSession("switchboard", "127.0.0.1")
	s.AddAudioMedia(AudioMedia{Port: 4000, Codec: "PCMU/8000"})
	if len(s.AudioMedia) != 1 || s.AudioMedia[0].Port != 4000 || s.AudioMedia[0].Codec != "PCMU/8000" {
		t.Fatalf("unexpected audio media: %+v", s.AudioMedia)
	}
}

func TestRemoveControlMediaPreservesPositionButClears(t *testing.T) {
	s := NewSession("switchboard", "127.0.0.1")
	s.AddControlMedia(ControlMedia{ResourceName: "speechsynth"})
	s.AddControlMedia(ControlMedia{ResourceName: "speechrecog"})

	s.RemoveControlMedia(0)
	if len(s.ControlMedia) != 2 {
		t.Fatalf("expected removal to preserve slot count, got %d", len(s.ControlMedia))
	}
	if s.ControlMedia[0].ResourceName != "" {
		t.Fatalf("expected removed entry cleared, got %+v", s.ControlMedia[0])
	}
	if s.ControlMedia[1].ResourceName != "speechrecog" {
		t.Fatalf("expected untouched sibling entry preserved, got %+v", s.ControlMedia[1])
	}
}

func TestRemoveControlMediaOutOfRangeIsNoop(t *testing.T) {
	s := NewSession("switchboard", "127.0.0.1")
	s.AddControlMedia(ControlMedia{ResourceName: "speechsynth"})
	s.RemoveControlMedia(5)
	if s.ControlMedia[0].ResourceName != "speechsynth" {
		t.Fatalf("expected out-of-range removal to be a no-op, got %+v", s.ControlMedia[0])
	}
}

func TestSetupTypeString(t *testing.T) {
	if SetupActive.String() != "active" || SetupPassive.String() != "passive" {
		t.Fatalf("unexpected setup type strings: %q %q", SetupActive.String(), SetupPassive.String())
	}
}

func TestTransportProtoString(t *testing.T) {
	if ProtoTCP.String() != "TCP" || ProtoTCPTLS.String() != "TCP/TLS" {
		t.Fatalf("unexpected transport proto strings: %q %q", ProtoTCP.String(), ProtoTCPTLS.String())
	}
}
