package et

import (
	"encoding/binary"
	"fmt"

	"cloudproto/pkg/cloudproto/framing"
)

// EvtHdrLen is the size of an Event's own header (raw_event_id), not
// counting the txid that the session socket strips off transparently.
const EvtHdrLen = 4

// EventID names a well-known raw_event_id value. The catalog only
// documents values observed on the wire; it is not exhaustive, and values
// internal to the sensor that never leave on the wire are not listed.
// Names containing "Unk" are known to exist but their purpose hasn't been
// identified.
type EventID uint32

const (
	EventUnkClient0x310000EF           EventID = 0x310000EF
	EventConfigurationLoaded           EventID = 0x308000AA
	EventLfoDownloadFromManifestRecord EventID = 0x308000AD
	EventChannelDownloadComplete       EventID = 0x308001D2
	EventUnkServer0x30800207           EventID = 0x30800207 // sent by server, no search results
	EventCurrentSystemTags             EventID = 0x30800208
	EventUnkRunningProcessInfo         EventID = 0x3080020D // lists a running process w/ cmdline and attributes
	EventCloudRequestReceived          EventID = 0x3080028E
	EventUnk0x30800296                 EventID = 0x30800296
	EventKernelModuleSyntheticLoadImage EventID = 0x308002A2 // loaded kernel module name + dependencies, like lsmod
	EventVarRunUtmpUsers1              EventID = 0x308002DC
	EventVarRunUtmpUsers2              EventID = 0x308002DD
	EventIPAddressAddedForFamily2      EventID = 0x308002E5 // IPv4?
	EventIPAddressAdded                EventID = 0x308002E6 // IPv6?
	EventNetworkNeighborList1          EventID = 0x308002F1
	EventHostnameChanged               EventID = 0x3080034D
	EventUnk0x3080037C                 EventID = 0x3080037C
	EventCurrentUninstallTokenInfo     EventID = 0x30800457
	EventChannelRundown                EventID = 0x30800550
	EventChannelDiffDownload           EventID = 0x3080064E
	EventResourceUtilization           EventID = 0x30800682
	EventDiskCapacity                  EventID = 0x3080069F
	EventDiskUtilization               EventID = 0x30800850
	EventUnk0x31000002                 EventID = 0x31000002
	EventChannelVersionRequired        EventID = 0x310001D1
	EventUnk0x3100053F                 EventID = 0x3100053F
	EventSystemCapacity                EventID = 0x310005AB
	EventUpdateCloudEvent              EventID = 0x318002B1
	EventIPAddressAddedForFamily2_318  EventID = 0x318002E5
	EventIPAddressAdded_318            EventID = 0x318002E6
	EventUnkProcessInfo0x318004BB      EventID = 0x318004BB // cmdline of a process, purpose unidentified
	EventOsVersionInfo                 EventID = 0x3200014E
	EventUnk0x32000220                 EventID = 0x32000220
	EventUnk0x320002CF                 EventID = 0x320002CF
	EventIPAddressAddedForFamily2_320  EventID = 0x320002E5
	EventIPAddressAdded_320            EventID = 0x320002E6
	EventIndicateConnectionStatus328   EventID = 0x32800139
	EventOsVersionInfo328              EventID = 0x3280014E
	EventIndicateConnectionStatus330   EventID = 0x33000139
	EventAgentOnline                   EventID = 0x338000AC
	EventUnkProcessInfo0x340000EE      EventID = 0x340000EE
)

var eventIDNames = map[EventID]string{
	EventUnkClient0x310000EF:            "UnkClient0x310000EF",
	EventConfigurationLoaded:            "ConfigurationLoaded",
	EventLfoDownloadFromManifestRecord:  "LfoDownloadFromManifestRecord",
	EventChannelDownloadComplete:        "ChannelDownloadComplete",
	EventUnkServer0x30800207:            "UnkServer0x30800207",
	EventCurrentSystemTags:              "CurrentSystemTags",
	EventUnkRunningProcessInfo:          "UnkRunningProcessInfo",
	EventCloudRequestReceived:           "CloudRequestReceived",
	EventUnk0x30800296:                  "Unk0x30800296",
	EventKernelModuleSyntheticLoadImage: "KernelModuleSyntheticLoadImage",
	EventVarRunUtmpUsers1:               "VarRunUtmpUsers1",
	EventVarRunUtmpUsers2:               "VarRunUtmpUsers2",
	EventIPAddressAddedForFamily2:       "IpAddressAddedForFamily2",
	EventIPAddressAdded:                 "IpAddressAdded",
	EventNetworkNeighborList1:           "NetworkNeighborList1",
	EventHostnameChanged:                "HostnameChanged",
	EventUnk0x3080037C:                  "Unk0x3080037C",
	EventCurrentUninstallTokenInfo:      "CurrentUninstallTokenInfo",
	EventChannelRundown:                 "ChannelRundown",
	EventChannelDiffDownload:            "ChannelDiffDownload",
	EventResourceUtilization:            "ResourceUtilization",
	EventDiskCapacity:                   "DiskCapacity",
	EventDiskUtilization:                "DiskUtilization",
	EventUnk0x31000002:                  "Unk0x31000002",
	EventChannelVersionRequired:         "ChannelVersionRequired",
	EventUnk0x3100053F:                  "Unk0x3100053F",
	EventSystemCapacity:                 "SystemCapacity",
	EventUpdateCloudEvent:               "UpdateCloudEvent",
	EventIPAddressAddedForFamily2_318:   "IpAddressAddedForFamily2_318",
	EventIPAddressAdded_318:             "IpAddressAdded_318",
	EventUnkProcessInfo0x318004BB:       "UnkProcessInfo_0x318004BB",
	EventOsVersionInfo:                  "OsVersionInfo",
	EventUnk0x32000220:                  "Unk0x32000220",
	EventUnk0x320002CF:                  "Unk0x320002cf",
	EventIPAddressAddedForFamily2_320:   "IpAddressAddedForFamily2_320",
	EventIPAddressAdded_320:             "IpAddressAdded_320",
	EventIndicateConnectionStatus328:    "IndicateConnectionStatus328",
	EventOsVersionInfo328:               "OsVersionInfo328",
	EventIndicateConnectionStatus330:    "IndicateConnectionStatus330",
	EventAgentOnline:                    "AgentOnline",
	EventUnkProcessInfo0x340000EE:       "UnkProcessInfo_0x340000ee",
}

// Event is an ET application-data payload. Data usually holds a serialized
// protobuf structure whose schema depends entirely on RawEventID; this
// package does not attempt to deserialize it. A few event IDs carry other
// simple binary formats instead of protobuf.
type Event struct {
	RawEventID uint32
	// EventID is the catalog entry for RawEventID, if any is known.
	EventID EventID
	// HasEventID reports whether EventID is meaningful. It's false when
	// RawEventID doesn't match a cataloged value.
	HasEventID bool
	Data       []byte
}

// NewEvent builds an Event from a known EventID.
func NewEvent(id EventID, data []byte) Event {
	return Event{RawEventID: uint32(id), EventID: id, HasEventID: true, Data: data}
}

// NewRawEvent builds an Event from a raw ID not necessarily in the
// catalog.
func NewRawEvent(rawEventID uint32, data []byte) Event {
	id, known := EventID(rawEventID), eventIDKnown(rawEventID)
	return Event{RawEventID: rawEventID, EventID: id, HasEventID: known, Data: data}
}

func eventIDKnown(raw uint32) bool {
	_, ok := eventIDNames[EventID(raw)]
	return ok
}

// IDString gives a best-effort text representation of the event ID, using
// known EventID names when possible and a hex literal otherwise.
func (e Event) IDString() string {
	if e.HasEventID {
		if name, ok := eventIDNames[e.EventID]; ok {
			return name
		}
	}
	return fmt.Sprintf("0x%X", e.RawEventID)
}

func decodeEvent(payload []byte) (Event, error) {
	if len(payload) < EvtHdrLen {
		return Event{}, &framing.PayloadTooShortError{Got: len(payload), Min: EvtHdrLen}
	}
	raw := binary.BigEndian.Uint32(payload[:EvtHdrLen])
	data := make([]byte, len(payload)-EvtHdrLen)
	copy(data, payload[EvtHdrLen:])
	return NewRawEvent(raw, data), nil
}

func (e Event) encode() []byte {
	buf := make([]byte, EvtHdrLen+len(e.Data))
	binary.BigEndian.PutUint32(buf[:EvtHdrLen], e.RawEventID)
	copy(buf[EvtHdrLen:], e.Data)
	return buf
}
