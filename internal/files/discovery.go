package files

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"bnvision/pkg/contracts/domain"
)

// RawFile is one discovered canonical raw CSV file.
type RawFile struct {
	Path     string
	Stem     string // file name without the .csv suffix, e.g. BTCUSDT-1d
	Symbol   string // leading symbol token of the stem
	DataType domain.DataType
	Date     time.Time
}

// Pair identifies one conversion series: every raw file with the same stem
// and data type belongs to the same pair. Interval-bearing stems keep their
// interval, so BTCUSDT-1d and BTCUSDT-4h are distinct pairs.
type Pair struct {
	Stem     string
	DataType domain.DataType
}

func (p Pair) String() string {
	return p.Stem + "/" + p.DataType.String()
}

// Discovery walks the dated destination layout
// {root}/{source}/{YYYY}/{MM}/{DD}/{dataType}/ for raw files.
type Discovery struct {
	root   string
	source domain.Source
}

// NewDiscovery creates a discovery instance rooted at the destination
// directory.
func NewDiscovery(root string, source domain.Source) *Discovery {
	return &Discovery{root: root, source: source}
}

// FindRawFiles returns every raw CSV of the given data type whose directory
// date falls inside [start, end]. Files come back in ascending date order,
// then by name, so repeated runs see the same sequence.
func (d *Discovery) FindRawFiles(dataType domain.DataType, start, end time.Time) ([]RawFile, error) {
	sourceDir := filepath.Join(d.root, d.source.String())

	var found []RawFile
	err := d.walkDates(sourceDir, start, end, func(date time.Time, dayDir string) error {
		typeDir := filepath.Join(dayDir, dataType.String())
		entries, err := os.ReadDir(typeDir)
		if os.IsNotExist(err) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", typeDir, err)
		}

		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".csv") {
				continue
			}
			stem := strings.TrimSuffix(entry.Name(), ".csv")
			found = append(found, RawFile{
				Path:     filepath.Join(typeDir, entry.Name()),
				Stem:     stem,
				Symbol:   domain.BaseSymbol(stem),
				DataType: dataType,
				Date:     date,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(found, func(i, j int) bool {
		if !found[i].Date.Equal(found[j].Date) {
			return found[i].Date.Before(found[j].Date)
		}
		return found[i].Stem < found[j].Stem
	})
	return found, nil
}

// FindPairs groups the raw files of the given data types into conversion
// pairs. The returned slice of pairs is sorted by stem then data type.
func (d *Discovery) FindPairs(dataTypes []domain.DataType, start, end time.Time) (map[Pair][]RawFile, []Pair, error) {
	grouped := make(map[Pair][]RawFile)
	for _, dataType := range dataTypes {
		rawFiles, err := d.FindRawFiles(dataType, start, end)
		if err != nil {
			return nil, nil, err
		}
		for _, rf := range rawFiles {
			key := Pair{Stem: rf.Stem, DataType: rf.DataType}
			grouped[key] = append(grouped[key], rf)
		}
	}

	pairs := make([]Pair, 0, len(grouped))
	for p := range grouped {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Stem != pairs[j].Stem {
			return pairs[i].Stem < pairs[j].Stem
		}
		return pairs[i].DataType < pairs[j].DataType
	})
	return grouped, pairs, nil
}

// walkDates visits every {YYYY}/{MM}/{DD} day directory whose date falls
// inside [start, end]. Directory names that are not date components are
// skipped silently; foreign files in the tree are tolerated.
func (d *Discovery) walkDates(sourceDir string, start, end time.Time, visit func(date time.Time, dayDir string) error) error {
	years, err := os.ReadDir(sourceDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", sourceDir, err)
	}

	startDay := start.UTC().Truncate(24 * time.Hour)
	endDay := end.UTC().Truncate(24 * time.Hour)

	for _, year := range years {
		if !year.IsDir() {
			continue
		}
		yearDir := filepath.Join(sourceDir, year.Name())
		months, err := os.ReadDir(yearDir)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", yearDir, err)
		}
		for _, month := range months {
			if !month.IsDir() {
				continue
			}
			monthDir := filepath.Join(yearDir, month.Name())
			days, err := os.ReadDir(monthDir)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", monthDir, err)
			}
			for _, day := range days {
				if !day.IsDir() {
					continue
				}
				date, err := time.ParseInLocation("2006/01/02",
					year.Name()+"/"+month.Name()+"/"+day.Name(), time.UTC)
				if err != nil {
					continue
				}
				if date.Before(startDay) || date.After(endDay) {
					continue
				}
				if err := visit(date, filepath.Join(monthDir, day.Name())); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// FindParquetFiles walks root recursively for .parquet files, in
// deterministic lexical order.
func FindParquetFiles(root string) ([]string, error) {
	var found []string
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".parquet") {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	return found, nil
}
