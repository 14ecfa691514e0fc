// Command crsfinder lists the coordinate reference systems whose area of use
// contains the given geometries.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/mohammed-shakir/crsfinder/internal/catalog"
	"github.com/mohammed-shakir/crsfinder/internal/catalog/sqlitedb"
	"github.com/mohammed-shakir/crsfinder/internal/core/executor"
	"github.com/mohammed-shakir/crsfinder/internal/core/model"
	"github.com/mohammed-shakir/crsfinder/internal/geometry"
	"github.com/mohammed-shakir/crsfinder/internal/logger"
	"github.com/mohammed-shakir/crsfinder/internal/projection"
)

func main() {
	_ = godotenv.Load(".env")
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type options struct {
	db        string
	kind      string
	op        string
	coords    string
	unit      string
	format    string
	separator string
	noHeader  bool
	mixed     bool
	all       bool
	input     string
	logLevel  string
}

func parseFlags(args []string, stderr io.Writer) (options, []string, error) {
	var o options
	fs := flag.NewFlagSet("crsfinder", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.db, "db", envOr("CATALOG_PATH", "projpicker.db"), "projpicker database")
	fs.StringVar(&o.kind, "type", "point", "geometry type: point, poly or bbox")
	fs.StringVar(&o.op, "op", "and", "combinator: and, or or xor")
	fs.StringVar(&o.coords, "coords", "latlon", "coordinate system: latlon or xy")
	fs.StringVar(&o.unit, "unit", model.UnitAny, "only list CRSs in this unit")
	fs.StringVar(&o.format, "format", "plain", "output format: plain, csv, json, geojson or srid")
	fs.StringVar(&o.separator, "separator", "pipe", "plain column separator name or literal")
	fs.BoolVar(&o.noHeader, "no-header", false, "omit the header line")
	fs.BoolVar(&o.mixed, "mixed", false, "treat input as a mixed or postfix query")
	fs.BoolVar(&o.all, "all", false, "list every CRS")
	fs.StringVar(&o.input, "i", "", "read geometries from file, - for stdin")
	fs.StringVar(&o.logLevel, "log-level", envOr("LOG_LEVEL", "warn"), "log level")
	if err := fs.Parse(args); err != nil {
		return options{}, nil, err
	}
	return o, fs.Args(), nil
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	o, rest, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	zl := logger.Build(logger.Config{Level: o.logLevel, Console: true, Component: "crsfinder"}, stderr)
	log := logger.NewSlog(&zl)

	format, err := projection.ParseFormat(o.format)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	words := rest
	if o.input != "" || (len(rest) == 0 && !o.all) {
		in := stdin
		if o.input != "" && o.input != "-" {
			f, err := os.Open(o.input)
			if err != nil {
				fmt.Fprintln(stderr, err)
				return 1
			}
			defer f.Close()
			in = f
		}
		lines, err := readLines(in, o.kind == string(model.KindPoly) && !o.mixed)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		words = append(words, lines...)
	}

	rows, err := sqlitedb.New(o.db).Load(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "load %s: %v\n", o.db, err)
		return 1
	}
	snap, err := catalog.NewSnapshot(rows, catalog.WithSource("sqlite"), catalog.WithIndex(true))
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	exec := executor.New(log)
	var res executor.Result
	switch {
	case o.all:
		res = exec.All(snap, o.unit)
	case o.mixed:
		res, err = exec.ExecuteMixed(ctx, snap, splitWords(words))
	default:
		res, err = query(ctx, exec, snap, o, words)
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	for _, w := range res.Warnings {
		log.Warn(w)
	}

	opts := projection.Options{Separator: o.separator, Header: !o.noHeader}
	if err := projection.Write(stdout, format, res.Rows, opts); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

func query(ctx context.Context, exec *executor.Executor, src executor.Source, o options, words []string) (executor.Result, error) {
	kind, err := model.ParseGeomKind(o.kind)
	if err != nil {
		return executor.Result{}, err
	}
	op, err := model.ParseOp(o.op)
	if err != nil {
		return executor.Result{}, err
	}
	coords, err := model.ParseCoordSys(o.coords)
	if err != nil {
		return executor.Result{}, err
	}
	geoms, warns, err := geometry.ParseGeometries(kind, coords, geometry.Texts(words...))
	if err != nil {
		return executor.Result{}, err
	}
	res, err := exec.Execute(ctx, src, model.Query{Kind: kind, Op: op, Coords: coords, Unit: o.unit, Geometries: geoms})
	res.Warnings = append(warns, res.Warnings...)
	return res, err
}

// readLines returns the trimmed input lines without # comments. Blank lines
// are kept only when keepBlank is set, where they end a polygon.
func readLines(r io.Reader, keepBlank bool) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4<<20)
	for sc.Scan() {
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" && !keepBlank {
			continue
		}
		out = append(out, line)
	}
	return out, sc.Err()
}

// splitWords breaks lines into whitespace separated words for mixed queries.
func splitWords(lines []string) []string {
	var out []string
	for _, l := range lines {
		out = append(out, strings.Fields(l)...)
	}
	return out
}

func envOr(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}
