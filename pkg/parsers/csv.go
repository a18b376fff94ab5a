package parsers

import (
	"context"
	"embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"strings"

	"github.com/Sternrassler/overfast-proxy/pkg/cache"
	"github.com/Sternrassler/overfast-proxy/pkg/upstream"
)

//go:embed data/*.csv
var bundledData embed.FS

// readCSV loads a CSV file and returns its rows as header-keyed maps.
func readCSV(fsys fs.FS, name string) ([]map[string]string, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []map[string]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make(map[string]string, len(header))
		for i, col := range header {
			row[col] = strings.TrimSpace(record[i])
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func csvURL(name string) string {
	return "csv://" + name
}

// HeroesStatsParser reads hero hitpoints from the bundled heroes CSV into a
// map keyed by hero key.
type HeroesStatsParser struct {
	// FS overrides the bundled data (for testing).
	FS fs.FS
}

// Parse implements upstream.Parser. The locator is ignored.
func (p *HeroesStatsParser) Parse(ctx context.Context, _ cache.Locator) (cache.Record, error) {
	const name = "data/heroes.csv"
	rows, err := readCSV(dataFS(p.FS), name)
	if err != nil {
		return nil, upstream.NewParsingError(csvURL(name), err)
	}

	stats := make(map[string]HeroStats, len(rows))
	for i, row := range rows {
		var hp Hitpoints
		for _, f := range []struct {
			col string
			dst *int
		}{{"health", &hp.Health}, {"armor", &hp.Armor}, {"shields", &hp.Shields}} {
			v, err := strconv.Atoi(row[f.col])
			if err != nil {
				return nil, upstream.Parsingf(csvURL(name), "row %d: %s %q: %v", i+1, f.col, row[f.col], err)
			}
			*f.dst = v
		}
		hp.Total = hp.Health + hp.Armor + hp.Shields

		key := row["key"]
		if key == "" {
			return nil, upstream.Parsingf(csvURL(name), "row %d: empty key", i+1)
		}
		stats[key] = HeroStats{Hitpoints: hp}
	}
	return marshalRecord(csvURL(name), stats)
}

// dataFS returns override when set and the bundled data otherwise.
func dataFS(override fs.FS) fs.FS {
	if override != nil {
		return override
	}
	return bundledData
}

// MapsParser reads maps from the bundled maps CSV.
type MapsParser struct {
	// AssetsURL prefixes map screenshot paths.
	AssetsURL string

	// FS overrides the bundled data (for testing).
	FS fs.FS
}

// Parse implements upstream.Parser. The locator is ignored.
func (p *MapsParser) Parse(ctx context.Context, _ cache.Locator) (cache.Record, error) {
	const name = "data/maps.csv"
	rows, err := readCSV(dataFS(p.FS), name)
	if err != nil {
		return nil, upstream.NewParsingError(csvURL(name), err)
	}

	maps := make([]Map, 0, len(rows))
	for i, row := range rows {
		if row["key"] == "" || row["name"] == "" {
			return nil, upstream.Parsingf(csvURL(name), "row %d: key and name are required", i+1)
		}
		m := Map{
			Key:        row["key"],
			Name:       row["name"],
			Screenshot: fmt.Sprintf("%s/maps/%s.jpg", strings.TrimRight(p.AssetsURL, "/"), row["key"]),
			Gamemodes:  []string{},
			Location:   row["location"],
		}
		for _, mode := range strings.Split(row["gamemodes"], ";") {
			if mode = strings.TrimSpace(mode); mode != "" {
				m.Gamemodes = append(m.Gamemodes, mode)
			}
		}
		if cc := row["country_code"]; cc != "" {
			m.CountryCode = &cc
		}
		maps = append(maps, m)
	}
	return marshalRecord(csvURL(name), maps)
}
