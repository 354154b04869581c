package cleaning

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/chingu-voyages/member-demographics/pkg/models"
)

// ReadRaw decodes a raw survey export. Both a single JSON array of records
// and newline-delimited JSON records are accepted.
func ReadRaw(r io.Reader) ([]models.RawMember, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err == io.EOF {
		return []models.RawMember{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read raw export: %w", err)
	}

	dec := json.NewDecoder(br)
	out := []models.RawMember{}

	if first == '[' {
		if _, err := dec.Token(); err != nil {
			return nil, fmt.Errorf("read raw export: %w", err)
		}
		for dec.More() {
			var rec models.RawMember
			if err := dec.Decode(&rec); err != nil {
				return nil, fmt.Errorf("read raw export: record %d: %w", len(out)+1, err)
			}
			out = append(out, rec)
		}
		if _, err := dec.Token(); err != nil {
			return nil, fmt.Errorf("read raw export: %w", err)
		}
		return out, nil
	}

	for {
		var rec models.RawMember
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read raw export: line record %d: %w", len(out)+1, err)
		}
		out = append(out, rec)
	}
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.Peek(1)
		if err != nil {
			return 0, err
		}
		switch b[0] {
		case ' ', '\t', '\r', '\n':
			_, _ = br.Discard(1)
			continue
		case 0xEF:
			// UTF-8 byte order mark written by spreadsheet exports
			if bom, err := br.Peek(3); err == nil && bom[1] == 0xBB && bom[2] == 0xBF {
				_, _ = br.Discard(3)
				continue
			}
		}
		return b[0], nil
	}
}

// WriteNDJSON writes one JSON object per member per line. Timestamps are
// ISO-8601 in UTC; list columns are always arrays.
func WriteNDJSON(w io.Writer, members []models.Member) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	for i := range members {
		m := members[i]
		if m.VoyageSignupIDs == nil {
			m.VoyageSignupIDs = []int64{}
		}
		if m.VoyageTiers == nil {
			m.VoyageTiers = []string{}
		}
		if err := enc.Encode(&m); err != nil {
			return fmt.Errorf("write member %d: %w", m.ID, err)
		}
	}
	return bw.Flush()
}
