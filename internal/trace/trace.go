package trace

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/getsentry/kernelplot/internal/nsys"
)

type (
	// Event is an execution interval whose name has been resolved against the
	// string table. Times are in microseconds.
	Event struct {
		Name   string      `json:"name"`
		Source nsys.Source `json:"source"`
		Start  float64     `json:"start"`
		End    float64     `json:"end"`
	}

	Stats struct {
		Lines             int `json:"lines"`
		Blank             int `json:"blank"`
		Malformed         int `json:"malformed"`
		Unrecognized      int `json:"unrecognized"`
		Fragments         int `json:"fragments"`
		Strings           int `json:"strings"`
		Events            int `json:"events"`
		Unnamed           int `json:"unnamed"`
		NegativeDurations int `json:"negative_durations"`
	}

	Trace struct {
		Events  []Event
		Strings *StringTable
		Stats   Stats
	}

	Options struct {
		// StringTableBase is the index of the first entry of every fragment.
		StringTableBase int
	}
)

// Duration can be negative when the exporter wrote inconsistent timestamps.
func (e Event) Duration() float64 {
	return e.End - e.Start
}

// Read loads a whole trace in memory. Lines are processed in order so an
// event only resolves against the string table fragments preceding it.
// Malformed lines are logged and skipped; only read failures are returned.
func Read(r io.Reader, opts Options) (*Trace, error) {
	t := &Trace{
		Strings: NewStringTable(opts.StringTableBase),
	}
	br := bufio.NewReaderSize(r, 1024*1024)
	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			t.ingest(line)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("reading line %d: %w", t.Stats.Lines+1, err)
		}
	}
	t.Stats.Strings = t.Strings.Len()
	if t.Stats.NegativeDurations > 0 {
		log.Warn().
			Int("events", t.Stats.NegativeDurations).
			Msg("trace contains events ending before they start")
	}
	return t, nil
}

func (t *Trace) ingest(line []byte) {
	t.Stats.Lines++
	record, err := nsys.DecodeLine(line)
	if err != nil {
		t.Stats.Malformed++
		log.Warn().Err(err).Int("line", t.Stats.Lines).Msg("skipping malformed trace line")
		return
	}
	switch record.Kind {
	case nsys.KindStringTable:
		t.Stats.Fragments++
		t.Strings.Load(record.Strings)
	case nsys.KindEvent:
		t.add(record.Event)
	default:
		if isBlank(line) {
			t.Stats.Blank++
		} else {
			t.Stats.Unrecognized++
		}
	}
}

func (t *Trace) add(e nsys.Event) {
	t.Stats.Events++
	if !e.HasName() {
		t.Stats.Unnamed++
	}
	event := Event{
		Name:   t.Strings.Resolve(e.Name),
		Source: e.Source,
		Start:  e.StartUS,
		End:    e.EndUS,
	}
	if event.Duration() < 0 {
		t.Stats.NegativeDurations++
	}
	t.Events = append(t.Events, event)
}

func isBlank(line []byte) bool {
	for _, c := range line {
		switch c {
		case ' ', '\t', '\r', '\n':
		default:
			return false
		}
	}
	return true
}
