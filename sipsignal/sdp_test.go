package sipsignal

import (
	"strings"
	"testing"

	"github.com/unimrcp-go/core/descriptor"
)

const sampleOffer = "v=0\r\n" +
	"o=- 123 456 IN IP4 192.168.1.10\r\n" +
	"s=-\r\n" +
	"c=IN IP4 192.168.1.10\r\n" +
	"t=0 0\r\n" +
	"m=application 9 TCP/MRCPv2 *\r\n" +
	"a=setup:active\r\n" +
	"a=connection:new\r\n" +
	"a=resource:speechsynth\r\n" +
	"a=cmid:1\r\n" +
	"m=audio 4000 RTP/AVP 0\r\n" +
	"a=rtpmap:0 PCMU/8000\r\n" +
	"a=sendrecv\r\n"

func TestDecodeOfferExtractsControlAndAudioMedia(t *testing.T) {
	sess, err := decodeOffer([]byte(sampleOffer))
	if err != nil {
		t.Fatalf("decodeOffer: %v", err)
	}
	if sess.IP != "192.168.1.10" {
		t.Fatalf("IP = %q, want 192.168.1.10", sess.IP)
	}
	if len(sess.ControlMedia) != 1 {
		t.Fatalf("expected 1 control-media entry, got %d", len(sess.ControlMedia))
	}
	cm := sess.ControlMedia[0]
	if cm.ResourceName != "speechsynth" {
		t.Fatalf("resource = %q, want speechsynth", cm.ResourceName)
	}
	if cm.Setup != descriptor.SetupActive {
		t.Fatalf("setup = %v, want active", cm.Setup)
	}
	if cm.ConnectionType != descriptor.ConnectionNew {
		t.Fatalf("connection type = %v, want new", cm.ConnectionType)
	}
	if cm.CMID != 1 {
		t.Fatalf("cmid = %d, want 1", cm.CMID)
	}
	if len(sess.AudioMedia) != 1 || sess.AudioMedia[0].Port != 4000 || sess.AudioMedia[0].Codec != "PCMU" {
		t.Fatalf("unexpected audio media: %+v", sess.AudioMedia)
	}
}

func TestDecodeOfferDefaultsSetupActiveAndConnectionNew(t *testing.T) {
	body := "v=0\r\no=- 1 1 IN IP4 10.0.0.1\r\ns=-\r\nc=IN IP4 10.0.0.1\r\nt=0 0\r\n" +
		"m=application 9 TCP/MRCPv2 *\r\na=resource:speechrecog\r\n"
	sess, err := decodeOffer([]byte(body))
	if err != nil {
		t.Fatalf("decodeOffer: %v", err)
	}
	cm := sess.ControlMedia[0]
	if cm.Setup != descriptor.SetupActive {
		t.Fatalf("expected default setup active, got %v", cm.Setup)
	}
	if cm.ConnectionType != descriptor.ConnectionNew {
		t.Fatalf("expected default connection new, got %v", cm.ConnectionType)
	}
}

func TestDecodeOfferRejectsGarbage(t *testing.T) {
	if _, err := decodeOffer([]byte("not sdp at all")); err == nil {
		t.Fatal("expected an error parsing non-SDP body")
	}
}

func TestEncodeAnswerRoundTripsResourceAndCodec(t *testing.T) {
	sess := descriptor.NewSession("mrcp-server", "10.0.0.5")
	sess.AddControlMedia(descriptor.ControlMedia{
		ResourceName:   "speechsynth",
		Setup:          descriptor.SetupPassive,
		ConnectionType: descriptor.ConnectionExisting,
		SessionID:      "sess-1",
	})
	sess.AddAudioMedia(descriptor.AudioMedia{Port: 5000, Codec: "PCMU"})

	body, err := encodeAnswer(sess)
	if err != nil {
		t.Fatalf("encodeAnswer: %v", err)
	}
	text := string(body)
	if !strings.Contains(text, "m=application") || !strings.Contains(text, "a=resource:speechsynth") {
		t.Fatalf("answer missing control-media line: %s", text)
	}
	if !strings.Contains(text, "a=setup:passive") || !strings.Contains(text, "a=connection:existing") {
		t.Fatalf("answer missing setup/connection attributes: %s", text)
	}
	if !strings.Contains(text, "m=audio 5000") || !strings.Contains(text, "rtpmap:0 PCMU/8000") {
		t.Fatalf("answer missing audio media line: %s", text)
	}

	decoded, err := decodeOffer(body)
	if err != nil {
		t.Fatalf("re-parsing our own answer failed: %v", err)
	}
	if len(decoded.ControlMedia) != 1 || decoded.ControlMedia[0].ResourceName != "speechsynth" {
		t.Fatalf("round trip lost the control-media entry: %+v", decoded.ControlMedia)
	}
	if len(decoded.AudioMedia) != 1 || decoded.AudioMedia[0].Port != 5000 {
		t.Fatalf("round trip lost the audio-media entry: %+v", decoded.AudioMedia)
	}
}

func TestEncodeAnswerDefaultsUnknownCodecToPCMU(t *testing.T) {
	sess := descriptor.NewSession("mrcp-server", "10.0.0.5")
	sess.AddAudioMedia(descriptor.AudioMedia{Port: 6000, Codec: "G729"})

	body, err := encodeAnswer(sess)
	if err != nil {
		t.Fatalf("encodeAnswer: %v", err)
	}
	if !strings.Contains(string(body), "m=audio 6000 RTP/AVP 0") {
		t.Fatalf("expected fallback payload type 0, got: %s", body)
	}
}
