package spellbook

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

// DomainResult prefixes compiled statement fingerprints.
// Version suffix enables future encoding changes.
const DomainResult = "spellbook/result/v1"

// Result is a compiled statement. Values[i] binds the i-th ? of SQL, left
// to right.
type Result struct {
	SQL    string
	Values []any
}

// Fingerprint returns a content hash of the statement and its values.
// Format: hex(SHA256(domain + 0x00 + encoding)), where strings are NFC
// normalized and every item is tagged with its type and length, so equal
// statements hash equally across runs and processes.
func (r *Result) Fingerprint() string {
	h := sha256.New()
	h.Write([]byte(DomainResult))
	h.Write([]byte{0x00})

	writeItem(h, 's', []byte(norm.NFC.String(r.SQL)))
	for _, v := range r.Values {
		writeValue(h, v)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeItem(h hash.Hash, tag byte, data []byte) {
	var size [8]byte
	binary.BigEndian.PutUint64(size[:], uint64(len(data)))
	h.Write([]byte{tag})
	h.Write(size[:])
	h.Write(data)
}

func writeValue(h hash.Hash, value any) {
	switch v := value.(type) {
	case nil:
		writeItem(h, 'n', nil)
	case bool:
		writeItem(h, 'b', []byte(strconv.FormatBool(v)))
	case string:
		writeItem(h, 's', []byte(norm.NFC.String(v)))
	case []byte:
		writeItem(h, 'x', v)
	case time.Time:
		writeItem(h, 't', []byte(v.UTC().Format(time.RFC3339Nano)))
	case decimal.Decimal:
		writeItem(h, 'd', []byte(v.String()))
	case float32:
		writeItem(h, 'f', []byte(strconv.FormatFloat(float64(v), 'g', -1, 32)))
	case float64:
		writeItem(h, 'f', []byte(strconv.FormatFloat(v, 'g', -1, 64)))
	default:
		rv := reflect.ValueOf(value)
		switch {
		case rv.CanInt():
			writeItem(h, 'i', []byte(strconv.FormatInt(rv.Int(), 10)))
		case rv.CanUint():
			writeItem(h, 'i', []byte(strconv.FormatUint(rv.Uint(), 10)))
		default:
			writeItem(h, 'v', []byte(norm.NFC.String(fmt.Sprintf("%T:%v", value, value))))
		}
	}
}

// Inline substitutes every placeholder with its value quoted by d. The
// result is meant for logs and display; never execute it.
//
// Placeholders inside quoted strings and identifiers are left alone.
func (r *Result) Inline(d Dialect) string {
	var b strings.Builder
	b.Grow(len(r.SQL))

	next := 0
	var quote rune
	for _, c := range r.SQL {
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
		case c == '?' && next < len(r.Values):
			b.WriteString(d.Quote(r.Values[next]))
			next++
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}
