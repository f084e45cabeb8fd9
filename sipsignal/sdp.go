// Package sipsignal is the reference signaling agent (spec.md §6): a SIP
// user agent, using SDP to carry descriptor.Session, that calls into
// mrcpserver.Server on inbound offers/terminations and implements
// mrcpserver.SignalingEventHandler to relay the orchestrator's answers and
// terminations back onto the wire. The core package itself never parses
// or generates SDP (descriptor's own doc comment states that non-goal
// explicitly) — this package is where that translation lives. Grounded on
// internal/signaling/routing/invite.go's SDP extraction and
// services/rtpmanager/sdp/builder.go's SDP construction.
package sipsignal

import (
	"fmt"
	"strconv"
	"strings"

	psdp "github.com/pion/sdp/v3"

	"github.com/unimrcp-go/core/descriptor"
)

var payloadTypeByCodec = map[string]string{
	"PCMU": "0",
	"PCMA": "8",
}

var codecByPayloadType = map[string]string{
	"0": "PCMU",
	"8": "PCMA",
}

// decodeOffer parses an inbound SDP body into a descriptor.Session,
// mirroring routing/invite.go's extractSDPInfo but walking every media
// line instead of only the first, since an MRCPv2 offer carries one
// application (control) line per channel plus one audio line.
func decodeOffer(body []byte) (*descriptor.Session, error) {
	var doc psdp.SessionDescription
	if err := doc.Unmarshal(body); err != nil {
		return nil, fmt.Errorf("sipsignal: parse SDP: %w", err)
	}

	sess := descriptor.NewSession(originString(doc.Origin), connectionAddress(doc.ConnectionInformation))

	for _, md := range doc.MediaDescriptions {
		addr := connectionAddress(md.ConnectionInformation)
		if addr != "" {
			sess.IP = addr
		}
		switch md.MediaName.Media {
		case "application":
			cm := descriptor.ControlMedia{
				ResourceName:   attrValue(md, "resource"),
				ConnectionType: descriptor.ConnectionNew,
			}
			if attrValue(md, "connection") == "existing" {
				cm.ConnectionType = descriptor.ConnectionExisting
			}
			if attrValue(md, "setup") == "passive" {
				cm.Setup = descriptor.SetupPassive
			}
			if n, err := strconv.Atoi(attrValue(md, "cmid")); err == nil {
				cm.CMID = n
			}
			for _, proto := range md.MediaName.Protos {
				if proto == "TCP/TLS" {
					cm.Proto = descriptor.ProtoTCPTLS
				}
			}
			sess.AddControlMedia(cm)
		case "audio":
			codec := "PCMU"
			if len(md.MediaName.Formats) > 0 {
				if name, ok := codecByPayloadType[md.MediaName.Formats[0]]; ok {
					codec = name
				}
			}
			sess.AddAudioMedia(descriptor.AudioMedia{Port: md.MediaName.Port.Value, Codec: codec})
		}
	}
	return sess, nil
}

// encodeAnswer renders sess as the SDP body for a 200 OK, mirroring
// services/rtpmanager/sdp/builder.go's direct field-by-field
// SessionDescription construction.
func encodeAnswer(sess *descriptor.Session) ([]byte, error) {
	doc := &psdp.SessionDescription{
		Origin: psdp.Origin{
			Username: "mrcp-server", SessionID: 1, SessionVersion: 1,
			NetworkType: "IN", AddressType: "IP4", UnicastAddress: sess.IP,
		},
		SessionName: psdp.SessionName("mrcp"),
		ConnectionInformation: &psdp.ConnectionInformation{
			NetworkType: "IN", AddressType: "IP4",
			Address: &psdp.Address{Address: sess.IP},
		},
		TimeDescriptions: []psdp.TimeDescription{{Timing: psdp.Timing{StartTime: 0, StopTime: 0}}},
	}

	for _, cm := range sess.ControlMedia {
		proto := "TCP/MRCPv2"
		if cm.Proto == descriptor.ProtoTCPTLS {
			proto = "TCP/TLS/MRCPv2"
		}
		port := 9
		if cm.ConnectionType == descriptor.ConnectionNew {
			port = 0 // the caller fills the real port in via setApplicationPort before Marshal
		}
		attrs := []psdp.Attribute{
			{Key: "setup", Value: cm.Setup.String()},
			{Key: "connection", Value: cm.ConnectionType.String()},
			{Key: "resource", Value: cm.ResourceName},
		}
		if cm.SessionID != "" {
			attrs = append(attrs, psdp.Attribute{Key: "channel", Value: cm.SessionID + "@" + cm.ResourceName})
		}
		if cm.CMID != 0 {
			attrs = append(attrs, psdp.Attribute{Key: "cmid", Value: strconv.Itoa(cm.CMID)})
		}
		doc.MediaDescriptions = append(doc.MediaDescriptions, &psdp.MediaDescription{
			MediaName: psdp.MediaName{Media: "application", Port: psdp.RangedPort{Value: port}, Protos: []string{proto}, Formats: []string{"*"}},
			Attributes: attrs,
		})
	}

	for _, am := range sess.AudioMedia {
		codec := am.Codec
		pt := payloadTypeByCodec[codec]
		if pt == "" {
			pt, codec = "0", "PCMU"
		}
		doc.MediaDescriptions = append(doc.MediaDescriptions, &psdp.MediaDescription{
			MediaName: psdp.MediaName{
				Media: "audio", Port: psdp.RangedPort{Value: am.Port},
				Protos: []string{"RTP", "AVP"}, Formats: []string{pt},
			},
			Attributes: []psdp.Attribute{
				{Key: "rtpmap", Value: pt + " " + codec + "/8000"},
				{Key: "sendrecv"},
			},
		})
	}

	return doc.Marshal()
}

func originString(o psdp.Origin) string {
	if o.UnicastAddress == "" {
		return ""
	}
	return fmt.Sprintf("%s %d %d", o.Username, o.SessionID, o.SessionVersion)
}

func connectionAddress(ci *psdp.ConnectionInformation) string {
	if ci == nil || ci.Address == nil {
		return ""
	}
	return ci.Address.Address
}

func attrValue(md *psdp.MediaDescription, key string) string {
	for _, a := range md.Attributes {
		if strings.EqualFold(a.Key, key) {
			return a.Value
		}
	}
	return ""
}
