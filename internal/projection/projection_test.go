package projection

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/mohammed-shakir/crsfinder/internal/catalog/catalogtest"
	"github.com/mohammed-shakir/crsfinder/internal/core/model"
)

func fixture() []model.CrsBBox {
	return []model.CrsBBox{
		catalogtest.Row("projected_crs", catalogtest.GeorgiaWest, "NAD83 / Georgia West (ftUS)", 30.62, 35.01, -85.61, -82.99, "US survey foot"),
		catalogtest.WithPlanar(
			catalogtest.Row("projected_crs", catalogtest.UTM17N, "WGS 84 / UTM zone 17N", 0, 84, -84, -78, "metre"),
			0, 9329005.18, 166021.44, 833978.56),
	}
}

func TestSeparator(t *testing.T) {
	cases := map[string]string{"": "|", "pipe": "|", "comma": ",", "space": " ", "tab": "\t", "newline": "\n", ";": ";"}
	for in, want := range cases {
		if got := Separator(in); got != want {
			t.Fatalf("Separator(%q)=%q want %q", in, got, want)
		}
	}
}

func TestWritePlain_HeaderAndSeparator(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePlain(&buf, fixture(), Options{Separator: "pipe", Header: true}); err != nil {
		t.Fatalf("WritePlain: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("want header + 2 rows, got %q", buf.String())
	}
	if lines[0] != strings.Join(Columns, "|") {
		t.Fatalf("header=%q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "projected_crs|NAD83 / Georgia West (ftUS)|EPSG|2240|") {
		t.Fatalf("row=%q", lines[1])
	}
	if !strings.Contains(lines[1], "|||||US survey foot|") && !strings.Contains(lines[1], "-82.99||||") {
		t.Fatalf("missing planar extent must render empty: %q", lines[1])
	}

	buf.Reset()
	if err := WritePlain(&buf, nil, Options{Header: true}); err != nil || buf.Len() != 0 {
		t.Fatalf("no rows must write nothing, got %q err=%v", buf.String(), err)
	}
}

func TestWriteCSV_QuotesNames(t *testing.T) {
	rows := fixture()
	rows[0].CrsName = "a, b"
	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows, true); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	recs, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(recs) != 3 || recs[1][1] != "a, b" || len(recs[1]) != len(Columns) {
		t.Fatalf("records=%v", recs)
	}
	if recs[2][13] != "9329005.18" {
		t.Fatalf("top=%q", recs[2][13])
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, fixture()); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	var got []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got) != 2 || got[0]["crs_code"] != "2240" || got[0]["bottom"] != nil {
		t.Fatalf("got %v", got)
	}

	buf.Reset()
	_ = WriteJSON(&buf, nil)
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Fatalf("empty=%q", buf.String())
	}
}

func TestWriteSRIDs_KeepsRepeats(t *testing.T) {
	rows := append(fixture(), fixture()[0])
	var buf bytes.Buffer
	_ = WriteSRIDs(&buf, rows)
	if buf.String() != "EPSG:2240\nEPSG:32617\nEPSG:2240\n" {
		t.Fatalf("srids=%q", buf.String())
	}
}

func TestWriteGeoJSON_SplitsAntimeridian(t *testing.T) {
	fiji := catalogtest.Row("projected_crs", catalogtest.FijiStrip, "Fiji", 0, 20, 170, -170, "metre")
	var buf bytes.Buffer
	if err := WriteGeoJSON(&buf, []model.CrsBBox{fiji}); err != nil {
		t.Fatalf("WriteGeoJSON: %v", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(buf.Bytes())
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(fc.Features) != 1 {
		t.Fatalf("features=%d", len(fc.Features))
	}
	mp, ok := fc.Features[0].Geometry.(orb.MultiPolygon)
	if !ok || len(mp) != 2 {
		t.Fatalf("want 2-part MultiPolygon, got %T", fc.Features[0].Geometry)
	}
	if b := mp[0].Bound(); b.Min[0] != 170 || b.Max[0] != 180 {
		t.Fatalf("east part=%v", b)
	}
	if fc.Features[0].Properties.MustString("srid", "") != catalogtest.FijiStrip {
		t.Fatalf("srid property missing")
	}
}

func TestNegotiateFormat(t *testing.T) {
	f, err := NegotiateFormat(NegotiationInput{OutputFormat: "csv", AcceptHeader: "application/json"})
	if err != nil || f != FormatCSV {
		t.Fatalf("explicit format must win: %v %v", f, err)
	}
	f, _ = NegotiateFormat(NegotiationInput{AcceptHeader: "text/plain;q=0.4, application/geo+json;q=0.9"})
	if f != FormatGeoJSON {
		t.Fatalf("highest q must win, got %v", f)
	}
	f, _ = NegotiateFormat(NegotiationInput{AcceptHeader: "image/png", DefaultFormat: FormatSRID})
	if f != FormatSRID {
		t.Fatalf("unsupported Accept must fall back to default, got %v", f)
	}
	if _, err := NegotiateFormat(NegotiationInput{OutputFormat: "xml"}); !errors.Is(err, model.ErrInvalidMode) {
		t.Fatalf("unknown format must be ErrInvalidMode, got %v", err)
	}
}
