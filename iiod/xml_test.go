package iiod

import (
	"encoding/hex"
	"testing"
)

const plutoContextXML = `<?xml version="1.0" encoding="utf-8"?>
<!DOCTYPE context [
<!ELEMENT context (device | context-attribute)*>
]>
<context name="network" description="192.168.2.1 Linux pluto 5.10.0-v0.35" >
<context-attribute name="fw_version" value="v0.35" />
<device id="iio:device1" name="ad9361-phy" >
<channel id="altvoltage1" name="TX_LO" type="output" >
<attribute name="frequency" filename="out_altvoltage1_TX_LO_frequency" />
</channel>
<channel id="voltage0" type="input" >
<attribute name="hardwaregain" filename="in_voltage0_hardwaregain" />
<attribute name="sampling_frequency" filename="in_voltage0_sampling_frequency" />
</channel>
<attribute name="filter_fir_config" />
<attribute name="tx_path_rates" />
<debug-attribute name="loopback" />
</device>
<device id="iio:device3" name="cf-ad9361-lpc" >
<channel id="voltage0" type="input" >
<scan-element index="0" format="le:S12/16&gt;&gt;0" />
</channel>
<channel id="voltage1" type="input" >
<scan-element index="1" format="le:S12/16&gt;&gt;0" />
</channel>
<buffer-attribute name="watermark" />
</device>
</context>`

func TestParseContextXML(t *testing.T) {
	parsed, err := ParseContextXML(plutoContextXML)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if parsed.Name != "network" {
		t.Fatalf("unexpected context name %q", parsed.Name)
	}
	if len(parsed.Devices) != 2 {
		t.Fatalf("expected 2 devices, got %d", len(parsed.Devices))
	}

	phy, ok := parsed.FindDevice("ad9361-phy")
	if !ok {
		t.Fatalf("ad9361-phy not found")
	}
	if len(phy.Attrs) != 2 || phy.Attrs[0].Name != "filter_fir_config" {
		t.Fatalf("unexpected phy device attrs: %+v", phy.Attrs)
	}
	if len(phy.Debug) != 1 || phy.Debug[0].Name != "loopback" {
		t.Fatalf("unexpected phy debug attrs: %+v", phy.Debug)
	}

	lpc, ok := parsed.FindDevice("cf-ad9361-lpc")
	if !ok {
		t.Fatalf("cf-ad9361-lpc not found")
	}
	scan := lpc.ScanChannels()
	if len(scan) != 2 {
		t.Fatalf("expected 2 scan channels, got %d", len(scan))
	}
	if scan[0].Scan.Format != "le:S12/16>>0" {
		t.Fatalf("unexpected scan format %q", scan[0].Scan.Format)
	}

	if _, ok := parsed.FindDevice("missing"); ok {
		t.Fatalf("expected missing device to be absent")
	}
}

func TestParseScanFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    ScanFormat
		wantErr bool
	}{
		{in: "le:S12/16>>0", want: ScanFormat{Signed: true, Bits: 12, Storage: 16, Repeat: 1}},
		{in: "le:s12/16>>4", want: ScanFormat{Signed: true, Bits: 12, Storage: 16, Shift: 4, Repeat: 1}},
		{in: "be:u10/16>>2", want: ScanFormat{BigEndian: true, Bits: 10, Storage: 16, Shift: 2, Repeat: 1}},
		{in: "le:u8/8X2>>0", want: ScanFormat{Bits: 8, Storage: 8, Repeat: 2}},
		{in: "le:S64/64>>0", want: ScanFormat{Signed: true, Bits: 64, Storage: 64, Repeat: 1}},
		{in: "S12/16", wantErr: true},
		{in: "xx:S12/16", wantErr: true},
		{in: "le:q12/16", wantErr: true},
		{in: "le:S12", wantErr: true},
		{in: "le:S14/16>>4", wantErr: true},
	}

	for _, tc := range tests {
		got, err := ParseScanFormat(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%s: expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("%s: got %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestScanFormatDecode(t *testing.T) {
	decode := func(f ScanFormat, rawHex string) int64 {
		raw, err := hex.DecodeString(rawHex)
		if err != nil {
			t.Fatalf("bad hex %q: %v", rawHex, err)
		}
		v, err := f.Decode(raw)
		if err != nil {
			t.Fatalf("decode %q: %v", rawHex, err)
		}
		return v
	}

	s12le := ScanFormat{Signed: true, Bits: 12, Storage: 16, Repeat: 1}
	if v := decode(s12le, "FF07"); v != 2047 {
		t.Fatalf("s12 max = %d, want 2047", v)
	}
	if v := decode(s12le, "0008"); v != -2048 {
		t.Fatalf("s12 min = %d, want -2048", v)
	}
	if v := decode(s12le, "FFFF"); v != -1 {
		t.Fatalf("s12 all-ones = %d, want -1", v)
	}

	u16be := ScanFormat{BigEndian: true, Bits: 16, Storage: 16, Repeat: 1}
	if v := decode(u16be, "1234"); v != 0x1234 {
		t.Fatalf("u16be = %#x, want 0x1234", v)
	}

	shifted := ScanFormat{Signed: true, Bits: 12, Storage: 16, Shift: 4, Repeat: 1}
	if v := decode(shifted, "F07F"); v != 2047 {
		t.Fatalf("shifted s12 = %d, want 2047", v)
	}

	if _, err := s12le.Decode([]byte{0x00}); err == nil {
		t.Fatalf("expected storage size mismatch error")
	}
}
