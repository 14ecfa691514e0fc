package main

import (
	"bytes"
	"context"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/mohammed-shakir/crsfinder/internal/catalog/catalogtest"
	"github.com/mohammed-shakir/crsfinder/internal/catalog/sqlitedb"
)

func writeDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "projpicker.db")
	if err := sqlitedb.Write(context.Background(), path, catalogtest.Rows(), false); err != nil {
		t.Fatalf("write db: %v", err)
	}
	return path
}

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var out, errb bytes.Buffer
	code := run(context.Background(), args, strings.NewReader(stdin), &out, &errb)
	return code, out.String(), errb.String()
}

func TestRun_PointArgs(t *testing.T) {
	db := writeDB(t)
	code, out, stderr := runCLI(t, "", "-db", db, "-format", "srid", "34.2348,-83.8677")
	if code != 0 {
		t.Fatalf("code=%d stderr=%s", code, stderr)
	}
	got := strings.Fields(out)
	if len(got) != 7 || !slices.Contains(got, catalogtest.GeorgiaWest) {
		t.Fatalf("srids=%v", got)
	}
}

func TestRun_StdinSkipsComments(t *testing.T) {
	db := writeDB(t)
	in := "# Honolulu\n\n21.3069,-157.8583  # downtown\n"
	code, out, stderr := runCLI(t, in, "-db", db, "-format", "srid", "-unit", "US survey foot")
	if code != 0 {
		t.Fatalf("code=%d stderr=%s", code, stderr)
	}
	if strings.TrimSpace(out) != catalogtest.HawaiiZone3 {
		t.Fatalf("out=%q", out)
	}
	if strings.Contains(stderr, "skipping") {
		t.Fatalf("comment or blank line parsed as geometry: %s", stderr)
	}
}

func TestRun_AllWithUnit(t *testing.T) {
	db := writeDB(t)
	code, out, _ := runCLI(t, "", "-db", db, "-format", "srid", "-all", "-unit", "degree")
	got := strings.Fields(out)
	slices.Sort(got)
	if code != 0 || !slices.Equal(got, []string{catalogtest.NAD83, catalogtest.WGS84}) {
		t.Fatalf("code=%d srids=%v", code, got)
	}
}

func TestRun_Mixed(t *testing.T) {
	db := writeDB(t)
	code, out, stderr := runCLI(t, "or 34.2348,-83.8677\n21.3069,-157.8583\n", "-db", db, "-format", "srid", "-mixed")
	if code != 0 {
		t.Fatalf("code=%d stderr=%s", code, stderr)
	}
	got := strings.Fields(out)
	if !slices.Contains(got, catalogtest.GeorgiaWest) || !slices.Contains(got, catalogtest.HawaiiZone3) {
		t.Fatalf("srids=%v", got)
	}
}

func TestRun_BadInput(t *testing.T) {
	db := writeDB(t)
	if code, _, _ := runCLI(t, "", "-db", db, "-format", "xml", "-all"); code != 2 {
		t.Fatalf("bad format code=%d", code)
	}
	if code, _, _ := runCLI(t, "", "-db", db, "-op", "nand", "34,-83"); code != 1 {
		t.Fatalf("bad op code=%d", code)
	}
	if code, _, _ := runCLI(t, "", "-db", filepath.Join(t.TempDir(), "missing.db"), "-all"); code != 1 {
		t.Fatalf("missing db code=%d", code)
	}
}

func TestReadLines_PolyKeepsBlankSeparators(t *testing.T) {
	in := "1,2\n3,4\n\n# next\n5,6\n"
	got, err := readLines(strings.NewReader(in), true)
	if err != nil {
		t.Fatalf("readLines: %v", err)
	}
	want := []string{"1,2", "3,4", "", "", "5,6"}
	if !slices.Equal(got, want) {
		t.Fatalf("got %q want %q", got, want)
	}
}
