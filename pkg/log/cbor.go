package log

import (
	"io"

	"github.com/fxamacker/cbor/v2"
)

// An event log is a plain sequence of CBOR maps, one per Event, with no
// header. Appending to an existing file therefore needs no rewrite.
var (
	encMode = mustEncMode()
	decMode = mustDecMode()
)

// mustEncMode uses core deterministic encoding so that identical runs
// produce identical bytes, with RFC 3339 timestamps that keep nanoseconds.
func mustEncMode() cbor.EncMode {
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	em, err := opts.EncMode()
	if err != nil {
		panic("log: event encoder: " + err.Error())
	}
	return em
}

// mustDecMode rejects duplicate keys and bounds container sizes; a setup
// event never carries more than a command line.
func mustDecMode() cbor.DecMode {
	dm, err := cbor.DecOptions{
		DupMapKey:        cbor.DupMapKeyEnforcedAPF,
		MaxArrayElements: 4096,
		MaxMapPairs:      64,
	}.DecMode()
	if err != nil {
		panic("log: event decoder: " + err.Error())
	}
	return dm
}

// EncodeEvent returns the CBOR form of event.
func EncodeEvent(event Event) ([]byte, error) {
	return encMode.Marshal(event)
}

// DecodeEvent parses one CBOR-encoded event.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	err := decMode.Unmarshal(data, &event)
	return event, err
}

func newEventEncoder(w io.Writer) *cbor.Encoder { return encMode.NewEncoder(w) }

func newEventDecoder(r io.Reader) *cbor.Decoder { return decMode.NewDecoder(r) }
