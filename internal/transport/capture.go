package transport

import (
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// CapturedCommand is one recorded command/result pair, grounded on the
// teacher's pkg/log Event encoding (canonical CBOR, RFC3339Nano
// timestamps) but scoped to this CLI's own domain instead of wire-layer
// protocol events.
type CapturedCommand struct {
	Timestamp time.Time       `cbor:"1,keyasint"`
	Command   string          `cbor:"2,keyasint"`
	Params    map[string]any  `cbor:"3,keyasint"`
	Result    []byte          `cbor:"4,keyasint"`
}

var captureEncMode cbor.EncMode
var captureDecMode cbor.DecMode

func init() {
	encOpts := cbor.EncOptions{
		Sort:        cbor.SortCanonical,
		IndefLength: cbor.IndefLengthForbidden,
		Time:        cbor.TimeRFC3339Nano,
	}
	var err error
	captureEncMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("transport: building capture encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyQuiet,
		IndefLength: cbor.IndefLengthAllowed,
	}
	captureDecMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("transport: building capture decoder mode: %v", err))
	}
}

// CaptureWriter appends CapturedCommand records to an underlying stream
// as a sequence of CBOR-encoded items (not a single array), so a capture
// file can be appended to incrementally during a run.
type CaptureWriter struct {
	enc *cbor.Encoder
	now func() time.Time
}

// NewCaptureWriter wraps w for recording. nowFn lets tests and replay
// fixtures supply a deterministic clock; production callers pass
// time.Now.
func NewCaptureWriter(w io.Writer, nowFn func() time.Time) *CaptureWriter {
	return &CaptureWriter{enc: captureEncMode.NewEncoder(w), now: nowFn}
}

// Record appends one command/result pair.
func (c *CaptureWriter) Record(command string, params map[string]any, result []byte) error {
	return c.enc.Encode(CapturedCommand{
		Timestamp: c.now(),
		Command:   command,
		Params:    params,
		Result:    result,
	})
}

// ReadCapture decodes every CapturedCommand in r, in recorded order.
func ReadCapture(r io.Reader) ([]CapturedCommand, error) {
	dec := captureDecMode.NewDecoder(r)
	var out []CapturedCommand
	for {
		var rec CapturedCommand
		if err := dec.Decode(&rec); err != nil {
			if err == io.EOF {
				break
			}
			return out, fmt.Errorf("transport: decoding capture record %d: %w", len(out), err)
		}
		out = append(out, rec)
	}
	return out, nil
}
