// Package loader moves documents between NDJSON streams and a store.
//
// Each line is one object: {"id":1,"data":"..."}. Payloads that are not valid
// UTF-8 travel base64 encoded as {"id":1,"data_b64":"..."} instead. Dumped
// lines also carry "deleted":true for tombstoned records.
package loader

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"unicode/utf8"

	"github.com/ssargent/lunadb/pkg/codec"
)

// Line is the NDJSON shape of one document.
type Line struct {
	ID      int32  `json:"id"`
	Data    string `json:"data"`
	Binary  []byte `json:"data_b64,omitempty"`
	Deleted bool   `json:"deleted,omitempty"`
}

// Payload returns the document bytes the line carries.
func (l Line) Payload() ([]byte, error) {
	if l.Binary != nil {
		if l.Data != "" {
			return nil, errors.New("both data and data_b64 set")
		}
		return l.Binary, nil
	}
	return []byte(l.Data), nil
}

// Putter stores a document under an identifier. *store.Writer satisfies it.
type Putter interface {
	Put(id int32, data []byte) (int64, error)
}

// Result summarizes a load.
type Result struct {
	Documents int
	Bytes     int64
}

// Load reads NDJSON from r and puts every line through p. It stops at the
// first malformed line or failed put and reports the line number.
func Load(ctx context.Context, r io.Reader, p Putter) (Result, error) {
	var res Result
	dec := json.NewDecoder(bufio.NewReader(r))

	for line := 1; ; line++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		var l Line
		err := dec.Decode(&l)
		if errors.Is(err, io.EOF) {
			return res, nil
		}
		if err != nil {
			return res, fmt.Errorf("line %d: %w", line, err)
		}
		if l.Deleted {
			continue
		}

		payload, err := l.Payload()
		if err != nil {
			return res, fmt.Errorf("line %d: %w", line, err)
		}
		if _, err := p.Put(l.ID, payload); err != nil {
			return res, fmt.Errorf("line %d: put %d: %w", line, l.ID, err)
		}
		res.Documents++
		res.Bytes += int64(len(payload))
	}
}

// Dump writes every document from docs to w as NDJSON and returns how many
// lines were written.
func Dump(w io.Writer, docs iter.Seq2[codec.Document, error]) (int, error) {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)

	n := 0
	for doc, err := range docs {
		if err != nil {
			bw.Flush()
			return n, err
		}
		if err := enc.Encode(FromDocument(doc)); err != nil {
			return n, err
		}
		n++
	}
	return n, bw.Flush()
}

// FromDocument converts a decoded record to its NDJSON line. Text payloads
// stay readable; anything else is base64 encoded so it survives the JSON
// round trip byte for byte.
func FromDocument(doc codec.Document) Line {
	l := Line{ID: doc.ID, Deleted: doc.Deleted()}
	if utf8.Valid(doc.Data) {
		l.Data = string(doc.Data)
	} else {
		l.Binary = doc.Data
	}
	return l
}
