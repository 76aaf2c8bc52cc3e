// utils/metros.go
package utils

import (
	"bytes"
	"encoding/csv"
	_ "embed"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/jszwec/csvutil"

	"github.com/cheapflightsfrom/backend/models"
)

//go:embed metros.csv
var metrosCSV []byte

// MetroTable is the static metro configuration with its lookup indexes.
type MetroTable struct {
	metros    []models.Metro
	bySlug    map[string]models.Metro
	byAirport map[string]models.Metro
	domestic  map[string]struct{}
}

// ParseMetrosCsv reads metro rows (name, display_name, slug, airports, region) where
// airports is a space separated list of IATA codes.
func ParseMetrosCsv(reader io.Reader) (*MetroTable, error) {
	decoder, err := csvutil.NewDecoder(csv.NewReader(reader))
	if err != nil {
		return nil, fmt.Errorf("failed to create CSV decoder for metros: %w", err)
	}

	var metros []models.Metro
	if err := decoder.Decode(&metros); err != nil {
		return nil, fmt.Errorf("failed to decode metros CSV data: %w", err)
	}

	t := &MetroTable{
		bySlug:    make(map[string]models.Metro, len(metros)),
		byAirport: make(map[string]models.Metro),
		domestic:  make(map[string]struct{}),
	}
	for _, m := range metros {
		for _, code := range strings.Fields(m.AirportList) {
			m.Airports = append(m.Airports, NormalizeAirportCode(code))
		}
		if m.Slug == "" || len(m.Airports) == 0 {
			return nil, fmt.Errorf("metro %q has no slug or airports", m.Name)
		}
		if _, dup := t.bySlug[m.Slug]; dup {
			return nil, fmt.Errorf("duplicate metro slug %q", m.Slug)
		}
		t.metros = append(t.metros, m)
		t.bySlug[m.Slug] = m
		for _, a := range m.Airports {
			t.byAirport[a] = m
			t.domestic[a] = struct{}{}
		}
	}
	return t, nil
}

var (
	defaultOnce   sync.Once
	defaultTable  *MetroTable
	defaultErrVal error
)

// DefaultMetros returns the table built from the embedded metros.csv.
func DefaultMetros() (*MetroTable, error) {
	defaultOnce.Do(func() {
		defaultTable, defaultErrVal = ParseMetrosCsv(bytes.NewReader(metrosCSV))
	})
	return defaultTable, defaultErrVal
}

// All returns the metros in file order.
func (t *MetroTable) All() []models.Metro {
	out := make([]models.Metro, len(t.metros))
	copy(out, t.metros)
	return out
}

// BySlug looks a metro up by its URL slug.
func (t *MetroTable) BySlug(slug string) (models.Metro, bool) {
	m, ok := t.bySlug[strings.ToLower(strings.TrimSpace(slug))]
	return m, ok
}

// ByAirport returns the metro an origin airport belongs to.
func (t *MetroTable) ByAirport(code string) (models.Metro, bool) {
	m, ok := t.byAirport[NormalizeAirportCode(code)]
	return m, ok
}

// IsDomestic reports whether code is one of the tracked US airports.
func (t *MetroTable) IsDomestic(code string) bool {
	_, ok := t.domestic[NormalizeAirportCode(code)]
	return ok
}

// DomesticCodes returns every tracked US airport code.
func (t *MetroTable) DomesticCodes() []string {
	out := make([]string, 0, len(t.domestic))
	for c := range t.domestic {
		out = append(out, c)
	}
	return NormalizeAirportCodes(out)
}
