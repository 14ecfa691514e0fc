package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/mohammed-shakir/crsfinder/internal/core/model"
	"github.com/mohammed-shakir/crsfinder/internal/geometry"
	"github.com/mohammed-shakir/crsfinder/internal/projection"
)

const maxBodyBytes = 4 << 20

// ErrBadRequest marks malformed request input.
var ErrBadRequest = errors.New("bad request")

// QueryRequest is a parsed /query request.
type QueryRequest struct {
	Query    model.Query
	Format   projection.Format
	Output   projection.Options
	Warnings []string
}

type queryBody struct {
	Type       string           `json:"type"`
	Op         string           `json:"op"`
	Coords     string           `json:"coords"`
	Unit       string           `json:"unit"`
	Geometries []geometry.Token `json:"geometries"`
	GeoJSON    json.RawMessage  `json:"geojson"`
	Format     string           `json:"format"`
	Separator  string           `json:"separator"`
	Header     *bool            `json:"header"`
}

// ParseQueryRequest reads a GET query string or a POST JSON body. Geometries
// that do not parse are dropped with a warning; an unknown type, combinator,
// coordinate system or format is an error.
func ParseQueryRequest(r *http.Request) (QueryRequest, error) {
	var body queryBody
	if r.Method == http.MethodPost {
		dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
		if err := dec.Decode(&body); err != nil {
			return QueryRequest{}, fmt.Errorf("%w: decode body: %v", ErrBadRequest, err)
		}
	} else {
		v := r.URL.Query()
		body.Type = v.Get("type")
		body.Op = v.Get("op")
		body.Coords = v.Get("coords")
		body.Unit = v.Get("unit")
		body.Format = v.Get("format")
		body.Separator = v.Get("separator")
		for _, g := range v["geom"] {
			body.Geometries = append(body.Geometries, geometry.Text(g))
		}
		if h := v.Get("header"); h != "" {
			b, err := strconv.ParseBool(h)
			if err != nil {
				return QueryRequest{}, fmt.Errorf("%w: header: %v", ErrBadRequest, err)
			}
			body.Header = &b
		}
	}

	kind, err := model.ParseGeomKind(body.Type)
	if err != nil {
		return QueryRequest{}, err
	}
	op, err := model.ParseOp(body.Op)
	if err != nil {
		return QueryRequest{}, err
	}
	coords, err := model.ParseCoordSys(body.Coords)
	if err != nil {
		return QueryRequest{}, err
	}

	geoms, warns, err := geometry.ParseGeometries(kind, coords, body.Geometries)
	if err != nil {
		return QueryRequest{}, err
	}
	if len(body.GeoJSON) > 0 && string(body.GeoJSON) != "null" {
		gj, err := geometry.FromGeoJSON(body.GeoJSON, coords)
		if err != nil {
			return QueryRequest{}, err
		}
		geoms = append(geoms, gj...)
	}
	if len(geoms) == 0 && len(warns) == 0 {
		return QueryRequest{}, fmt.Errorf("%w: no geometries given", ErrBadRequest)
	}

	format, err := projection.NegotiateFormat(projection.NegotiationInput{
		AcceptHeader:  r.Header.Get("Accept"),
		OutputFormat:  body.Format,
		DefaultFormat: projection.FormatJSON,
	})
	if err != nil {
		return QueryRequest{}, err
	}
	header := true
	if body.Header != nil {
		header = *body.Header
	}

	return QueryRequest{
		Query: model.Query{
			Kind:       kind,
			Op:         op,
			Coords:     coords,
			Unit:       strings.TrimSpace(body.Unit),
			Geometries: geoms,
		},
		Format:   format,
		Output:   projection.Options{Separator: projection.Separator(body.Separator), Header: header},
		Warnings: warns,
	}, nil
}

// outputFor negotiates the format of endpoints that take no body.
func outputFor(r *http.Request) (projection.Format, projection.Options, error) {
	v := r.URL.Query()
	f, err := projection.NegotiateFormat(projection.NegotiationInput{
		AcceptHeader:  r.Header.Get("Accept"),
		OutputFormat:  v.Get("format"),
		DefaultFormat: projection.FormatJSON,
	})
	if err != nil {
		return 0, projection.Options{}, err
	}
	header := true
	if h := v.Get("header"); h != "" {
		if b, err := strconv.ParseBool(h); err == nil {
			header = b
		}
	}
	return f, projection.Options{Separator: projection.Separator(v.Get("separator")), Header: header}, nil
}
