package iiod

import (
	"context"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// Context is the parsed form of the daemon's XML context description as
// returned by PRINT. The schema follows PlutoSDR firmware output
// (v0.25 through v0.38).
type Context struct {
	XMLName     xml.Name      `xml:"context" json:"-"`
	Name        string        `xml:"name,attr" json:"name"`
	Description string        `xml:"description,attr" json:"description"`
	Attrs       []ContextAttr `xml:"context-attribute" json:"attrs,omitempty"`
	Devices     []Device      `xml:"device" json:"devices"`
}

// ContextAttr is a context-level name/value pair (fw_version, uri, ...).
type ContextAttr struct {
	Name  string `xml:"name,attr" json:"name"`
	Value string `xml:"value,attr" json:"value"`
}

// Device describes one IIO device in the context.
type Device struct {
	ID       string     `xml:"id,attr" json:"id"`
	Name     string     `xml:"name,attr" json:"name"`
	Channels []Channel  `xml:"channel" json:"channels,omitempty"`
	Attrs    []NamedRef `xml:"attribute" json:"attrs,omitempty"`
	Debug    []NamedRef `xml:"debug-attribute" json:"debug,omitempty"`
	Buffer   []NamedRef `xml:"buffer-attribute" json:"buffer,omitempty"`
}

// Channel describes one channel of a device. Type is "input" or "output".
type Channel struct {
	ID    string       `xml:"id,attr" json:"id"`
	Name  string       `xml:"name,attr" json:"name,omitempty"`
	Type  string       `xml:"type,attr" json:"type"`
	Attrs []NamedRef   `xml:"attribute" json:"attrs,omitempty"`
	Scan  *ScanElement `xml:"scan-element" json:"scan,omitempty"`
}

// NamedRef is an attribute reference by name.
type NamedRef struct {
	Name     string `xml:"name,attr" json:"name"`
	Filename string `xml:"filename,attr" json:"filename,omitempty"`
}

// ScanElement is the buffer layout entry of a scan channel.
type ScanElement struct {
	Index  int    `xml:"index,attr" json:"index"`
	Format string `xml:"format,attr" json:"format"`
}

// FindDevice returns the device with the given name.
func (c *Context) FindDevice(name string) (*Device, bool) {
	for i := range c.Devices {
		if c.Devices[i].Name == name {
			return &c.Devices[i], true
		}
	}
	return nil, false
}

// ScanChannels returns the buffer-capable channels of the device sorted by
// scan index order as they appear in the XML.
func (d *Device) ScanChannels() []Channel {
	out := make([]Channel, 0, len(d.Channels))
	for _, ch := range d.Channels {
		if ch.Scan != nil {
			out = append(out, ch)
		}
	}
	return out
}

// Context fetches and parses the daemon's XML context. The raw XML is
// cached on the client after the first call.
func (c *Client) Context(ctx context.Context) (*Context, error) {
	raw, err := c.XMLContext(ctx)
	if err != nil {
		return nil, err
	}
	return ParseContextXML(raw)
}

// XMLContext returns the raw XML context description, fetching it with
// PRINT on first use.
func (c *Client) XMLContext(ctx context.Context) (string, error) {
	c.mu.Lock()
	cached := c.xmlContext
	c.mu.Unlock()
	if cached != "" {
		return cached, nil
	}

	payload, err := c.sendCommandString(ctx, "PRINT")
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(payload) == "" {
		return "", fmt.Errorf("iiod: empty XML context")
	}

	c.mu.Lock()
	c.xmlContext = payload
	c.mu.Unlock()
	return payload, nil
}

// ParseContextXML parses a PRINT payload. The DOCTYPE line some firmware
// versions emit is skipped by the decoder.
func ParseContextXML(raw string) (*Context, error) {
	var parsed Context
	if err := xml.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("iiod: parse XML context: %w", err)
	}
	return &parsed, nil
}

// ScanFormat is a decoded scan-element format such as "le:S12/16>>0": a
// 12-bit signed value in 16 bits of little-endian storage, shifted by 0.
type ScanFormat struct {
	BigEndian bool
	Signed    bool
	Bits      uint
	Storage   uint
	Shift     uint
	Repeat    uint
}

// ParseScanFormat decodes the textual scan-element format grammar
// [be|le]:[su]BITS/STORAGE[Xrepeat][>>shift].
func ParseScanFormat(s string) (ScanFormat, error) {
	var f ScanFormat
	f.Repeat = 1

	endian, rest, ok := strings.Cut(s, ":")
	if !ok {
		return ScanFormat{}, fmt.Errorf("iiod: scan format %q missing endianness", s)
	}
	switch endian {
	case "be":
		f.BigEndian = true
	case "le":
	default:
		return ScanFormat{}, fmt.Errorf("iiod: scan format %q has unknown endianness %q", s, endian)
	}

	if rest == "" {
		return ScanFormat{}, fmt.Errorf("iiod: scan format %q is truncated", s)
	}
	switch rest[0] {
	case 's', 'S':
		f.Signed = true
	case 'u', 'U':
	default:
		return ScanFormat{}, fmt.Errorf("iiod: scan format %q has unknown sign marker %q", s, rest[0])
	}
	rest = rest[1:]

	if i := strings.Index(rest, ">>"); i >= 0 {
		shift, err := strconv.ParseUint(rest[i+2:], 10, 8)
		if err != nil {
			return ScanFormat{}, fmt.Errorf("iiod: scan format %q has malformed shift: %w", s, err)
		}
		f.Shift = uint(shift)
		rest = rest[:i]
	}

	bitsStr, storageStr, ok := strings.Cut(rest, "/")
	if !ok {
		return ScanFormat{}, fmt.Errorf("iiod: scan format %q missing storage size", s)
	}
	if i := strings.IndexByte(storageStr, 'X'); i >= 0 {
		repeat, err := strconv.ParseUint(storageStr[i+1:], 10, 8)
		if err != nil || repeat == 0 {
			return ScanFormat{}, fmt.Errorf("iiod: scan format %q has malformed repeat", s)
		}
		f.Repeat = uint(repeat)
		storageStr = storageStr[:i]
	}

	bits, err := strconv.ParseUint(bitsStr, 10, 8)
	if err != nil || bits == 0 {
		return ScanFormat{}, fmt.Errorf("iiod: scan format %q has malformed bit count", s)
	}
	storage, err := strconv.ParseUint(storageStr, 10, 8)
	if err != nil || storage == 0 {
		return ScanFormat{}, fmt.Errorf("iiod: scan format %q has malformed storage size", s)
	}
	if bits+uint64(f.Shift) > storage {
		return ScanFormat{}, fmt.Errorf("iiod: scan format %q: %d bits shifted by %d exceed %d storage bits", s, bits, f.Shift, storage)
	}

	f.Bits = uint(bits)
	f.Storage = uint(storage)
	return f, nil
}

// Decode extracts the value from one stored element, applying shift, mask
// and sign extension. raw must hold Storage/8 bytes.
func (f ScanFormat) Decode(raw []byte) (int64, error) {
	if uint(len(raw))*8 != f.Storage {
		return 0, fmt.Errorf("iiod: scan decode needs %d bytes, got %d", f.Storage/8, len(raw))
	}

	var u uint64
	if f.BigEndian {
		for _, b := range raw {
			u = u<<8 | uint64(b)
		}
	} else {
		for i := len(raw) - 1; i >= 0; i-- {
			u = u<<8 | uint64(raw[i])
		}
	}

	u >>= f.Shift
	if f.Bits < 64 {
		u &= (1 << f.Bits) - 1
	}
	if f.Signed && f.Bits < 64 && u&(1<<(f.Bits-1)) != 0 {
		return int64(u) - (1 << f.Bits), nil
	}
	return int64(u), nil
}
