// Package nsys decodes the line-delimited JSON export of Nsight Systems.
//
// Each line carries at most one record the tool cares about: a string table
// fragment, a CUDA kernel execution or an NVTX range. Everything else is
// reported as KindNone.
package nsys

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/getsentry/kernelplot/internal/errorutil"
)

// NVTXPrefix is prepended to NVTX range names so they can't collide with kernels.
const NVTXPrefix = "[NVTX]"

type (
	Kind   int
	Source int

	// Record is the result of decoding one line.
	Record struct {
		Kind    Kind
		Strings []string
		Event   Event
	}

	// Event is an execution interval with timestamps in microseconds. Name may
	// still be a numeric string table reference.
	Event struct {
		Name    string
		Source  Source
		StartUS float64
		EndUS   float64
	}

	cudaEvent struct {
		Kernel *struct {
			ShortName *nameRef `json:"shortName"`
		} `json:"kernel"`
		StartNs Number `json:"startNs"`
		EndNs   Number `json:"endNs"`
	}

	nvtxEvent struct {
		Text         *nameRef `json:"Text"`
		Timestamp    Number   `json:"Timestamp"`
		EndTimestamp Number   `json:"EndTimestamp"`
	}
)

const (
	KindNone Kind = iota
	KindStringTable
	KindEvent
)

const (
	SourceCUDA Source = iota
	SourceNVTX
)

func (k Kind) String() string {
	switch k {
	case KindStringTable:
		return "string_table"
	case KindEvent:
		return "event"
	default:
		return "none"
	}
}

func (s Source) String() string {
	if s == SourceNVTX {
		return "nvtx"
	}
	return "cuda"
}

func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// HasName reports whether the event carries a name at all.
func (e Event) HasName() bool {
	return e.Name != ""
}

// DecodeLine decodes a single line of the trace. Lines that aren't valid JSON
// return an error wrapping errorutil.ErrDataIntegrity; lines that are valid
// but not interesting return a KindNone record and no error.
func DecodeLine(line []byte) (Record, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return Record{}, nil
	}
	if line[0] != '{' {
		if !json.Valid(line) {
			return Record{}, fmt.Errorf("%w: invalid json", errorutil.ErrDataIntegrity)
		}
		return Record{}, nil
	}

	var content map[string]json.RawMessage
	if err := json.Unmarshal(line, &content); err != nil {
		return Record{}, fmt.Errorf("%w: %s", errorutil.ErrDataIntegrity, err.Error())
	}

	if raw, ok := content["data"]; ok {
		return decodeStringTable(raw)
	}
	if raw, ok := content["CudaEvent"]; ok {
		return decodeCudaEvent(raw)
	}
	if raw, ok := content["NvtxEvent"]; ok {
		return decodeNvtxEvent(raw)
	}
	return Record{}, nil
}

func decodeStringTable(raw json.RawMessage) (Record, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return Record{}, nil
	}
	var refs []nameRef
	if err := json.Unmarshal(raw, &refs); err != nil {
		return Record{}, fmt.Errorf("%w: data: %s", errorutil.ErrDataIntegrity, err.Error())
	}
	names := make([]string, 0, len(refs))
	for _, r := range refs {
		names = append(names, r.String())
	}
	return Record{Kind: KindStringTable, Strings: names}, nil
}

func decodeCudaEvent(raw json.RawMessage) (Record, error) {
	if isNull(raw) {
		return Record{}, nil
	}
	var e cudaEvent
	if err := json.Unmarshal(raw, &e); err != nil {
		return Record{}, fmt.Errorf("%w: CudaEvent: %s", errorutil.ErrDataIntegrity, err.Error())
	}
	var name string
	if e.Kernel != nil && e.Kernel.ShortName != nil {
		name = e.Kernel.ShortName.String()
	}
	return Record{
		Kind: KindEvent,
		Event: Event{
			Name:    name,
			Source:  SourceCUDA,
			StartUS: e.StartNs.Microseconds(),
			EndUS:   e.EndNs.Microseconds(),
		},
	}, nil
}

func decodeNvtxEvent(raw json.RawMessage) (Record, error) {
	if isNull(raw) {
		return Record{}, nil
	}
	var e nvtxEvent
	if err := json.Unmarshal(raw, &e); err != nil {
		return Record{}, fmt.Errorf("%w: NvtxEvent: %s", errorutil.ErrDataIntegrity, err.Error())
	}
	var name string
	if e.Text != nil && e.Text.set {
		name = NVTXPrefix + e.Text.String()
	}
	return Record{
		Kind: KindEvent,
		Event: Event{
			Name:    name,
			Source:  SourceNVTX,
			StartUS: e.Timestamp.Microseconds(),
			EndUS:   e.EndTimestamp.Microseconds(),
		},
	}, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
