package frame

import (
	"testing"
)

const sampleLine = `{ "SINSTS": { "data": 469, "horodate": "2026-02-11T10:40:12+01:00" },` +
	` "NTARF": { "data": 2 },` +
	` "MSG1": { "data": "PAS DE MESSAGE", "desc": "Message court" },` +
	` "STGE": { "data": 58720256, "unit": "" },` +
	` "_tvalide": 1 }`

func TestDecodeValidFrame(t *testing.T) {
	f, err := Decode([]byte(sampleLine))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !f.Valid() {
		t.Error("expected frame to be valid")
	}

	va, ok := f.Int("SINSTS")
	if !ok || va != 469 {
		t.Errorf("SINSTS: expected 469, got %d (ok=%v)", va, ok)
	}

	msg, ok := f.Str("MSG1")
	if !ok || msg != "PAS DE MESSAGE" {
		t.Errorf("MSG1: expected message, got %q (ok=%v)", msg, ok)
	}

	fl, ok := f.Field("SINSTS")
	if !ok {
		t.Fatal("SINSTS: expected field present")
	}
	if fl.Horodate != "2026-02-11T10:40:12+01:00" {
		t.Errorf("SINSTS horodate: got %q", fl.Horodate)
	}
}

func TestDecodeInvalidMarker(t *testing.T) {
	f, err := Decode([]byte(`{ "SINSTS": { "data": 469 }, "_tvalide": 0 }`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if f.Valid() {
		t.Error("expected frame with _tvalide=0 to be invalid")
	}
}

func TestDecodeMissingMarker(t *testing.T) {
	f, err := Decode([]byte(`{ "SINSTS": { "data": 469 } }`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if f.Valid() {
		t.Error("expected frame without validity marker to be invalid")
	}
}

func TestDecodeMalformedLine(t *testing.T) {
	lines := []string{
		``,
		`not json`,
		`[1, 2, 3]`,
		`{ "SINSTS": { "data": 469 `,
		`{ "_tvalide": "yes" }`,
	}
	for _, line := range lines {
		if _, err := Decode([]byte(line)); err == nil {
			t.Errorf("expected decode error for %q", line)
		}
	}
}

func TestUnparseableDataSkipsField(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"nested object", `{ "tempo_demain": "blanc" }`},
		{"array", `[1, 2]`},
		{"fractional", `4.5`},
	}
	for _, c := range cases {
		line := `{ "SINSTS": { "data": 469 }, "STGE": { "data": ` + c.data + ` }, "_tvalide": 1 }`
		f, err := Decode([]byte(line))
		if err != nil {
			t.Fatalf("%s: decode: %v", c.name, err)
		}
		if !f.Valid() {
			t.Errorf("%s: expected frame to stay valid", c.name)
		}
		if va, ok := f.Int("SINSTS"); !ok || va != 469 {
			t.Errorf("%s: sibling field lost: got %d (ok=%v)", c.name, va, ok)
		}
		if _, ok := f.Field("STGE"); ok {
			t.Errorf("%s: expected unparseable field dropped", c.name)
		}
	}
}

func TestFieldAbsent(t *testing.T) {
	f, err := Decode([]byte(sampleLine))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if _, ok := f.Int("PAPP"); ok {
		t.Error("expected absent field to report ok=false")
	}
	if _, ok := f.Str("MSG2"); ok {
		t.Error("expected absent field to report ok=false")
	}
	if _, ok := f.Field("EAST"); ok {
		t.Error("expected absent field to report ok=false")
	}
}

func TestTypedAccessorMismatch(t *testing.T) {
	f, err := Decode([]byte(sampleLine))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if _, ok := f.Int("MSG1"); ok {
		t.Error("Int on textual field: expected ok=false")
	}
	if _, ok := f.Str("SINSTS"); ok {
		t.Error("Str on numeric field: expected ok=false")
	}
}

func TestNullData(t *testing.T) {
	f, err := Decode([]byte(`{ "DATE": { "data": null, "horodate": "2026-02-11T10:40:12+01:00" }, "_tvalide": 1 }`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	fl, ok := f.Field("DATE")
	if !ok {
		t.Fatal("expected DATE field present")
	}
	if fl.IsNum {
		t.Error("expected null data to not be numeric")
	}
	if fl.Horodate == "" {
		t.Error("expected horodate preserved")
	}
	if _, ok := f.Int("DATE"); ok {
		t.Error("Int on empty data: expected ok=false")
	}
}
