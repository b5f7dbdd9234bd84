package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"beebuild/internal/fileutil"
)

const (
	// KeyManifestVersion is the manifest schema revision field.
	KeyManifestVersion = "manifest_version"
	// KeyVersion is the extension version field.
	KeyVersion = "version"

	indent = "  "
)

// ErrNotObject is returned when the manifest's top-level value is not a JSON object.
var ErrNotObject = errors.New("manifest is not a JSON object")

type member struct {
	key string
	raw json.RawMessage
}

// Document is an order-preserving view of a manifest object.
type Document struct {
	members         []member
	trailingNewline bool
}

// Load reads and parses the manifest at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return doc, nil
}

// Parse decodes a manifest object. Duplicate keys collapse into the first
// position with the last value, matching common JSON decoders.
func Parse(data []byte) (*Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty document")
	}
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, ErrNotObject
	}

	doc := &Document{trailingNewline: bytes.HasSuffix(data, []byte("\n"))}
	index := make(map[string]int)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", keyTok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("value for %q: %w", key, err)
		}
		if pos, seen := index[key]; seen {
			doc.members[pos].raw = raw
			continue
		}
		index[key] = len(doc.members)
		doc.members = append(doc.members, member{key: key, raw: raw})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after top-level object")
	}
	return doc, nil
}

// Keys returns the member names in document order.
func (d *Document) Keys() []string {
	keys := make([]string, 0, len(d.members))
	for _, m := range d.members {
		keys = append(keys, m.key)
	}
	return keys
}

// Raw returns the undecoded value stored under key.
func (d *Document) Raw(key string) (json.RawMessage, bool) {
	for _, m := range d.members {
		if m.key == key {
			return m.raw, true
		}
	}
	return nil, false
}

// ManifestVersion returns the schema revision when present and integral.
func (d *Document) ManifestVersion() (int, bool) {
	raw, ok := d.Raw(KeyManifestVersion)
	if !ok {
		return 0, false
	}
	var value int
	if err := json.Unmarshal(raw, &value); err != nil {
		return 0, false
	}
	return value, true
}

// Version returns the extension version when present and a string.
func (d *Document) Version() (string, bool) {
	raw, ok := d.Raw(KeyVersion)
	if !ok {
		return "", false
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", false
	}
	return value, true
}

// SetManifestVersion overwrites (or appends) the schema revision.
func (d *Document) SetManifestVersion(value int) {
	d.set(KeyManifestVersion, json.RawMessage(strconv.Itoa(value)))
}

// SetVersion overwrites (or appends) the extension version.
func (d *Document) SetVersion(value string) error {
	raw, err := encodeString(value)
	if err != nil {
		return fmt.Errorf("encode version: %w", err)
	}
	d.set(KeyVersion, raw)
	return nil
}

func (d *Document) set(key string, raw json.RawMessage) {
	for i := range d.members {
		if d.members[i].key == key {
			d.members[i].raw = raw
			return
		}
	}
	d.members = append(d.members, member{key: key, raw: raw})
}

// Marshal renders the document with two-space indentation. Member values are
// re-indented but otherwise emitted exactly as they were read.
func (d *Document) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range d.members {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
		buf.WriteString(indent)
		key, err := encodeString(m.key)
		if err != nil {
			return nil, fmt.Errorf("encode key %q: %w", m.key, err)
		}
		buf.Write(key)
		buf.WriteString(": ")
		if err := json.Indent(&buf, m.raw, indent, indent); err != nil {
			return nil, fmt.Errorf("indent %q: %w", m.key, err)
		}
	}
	if len(d.members) > 0 {
		buf.WriteByte('\n')
	}
	buf.WriteByte('}')
	if d.trailingNewline {
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// Save writes the document back to path, keeping the existing file mode.
func Save(path string, doc *Document) error {
	data, err := doc.Marshal()
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, data, fileutil.FileMode(path, 0o644)); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

func encodeString(value string) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(value); err != nil {
		return nil, err
	}
	return json.RawMessage(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
