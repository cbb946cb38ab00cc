package contact

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Column names shared with the conference attendance datasets.
const (
	ColTime     = "time"
	ColID1      = "id_1"
	ColID2      = "id_2"
	ColDuration = "contact_duration"
	ColStart    = "start_moment"
	ColEnd      = "end_moment"
)

// ReadSamplesCSV reads raw samples with columns time, id_1, id_2 and
// contact_duration (any order, extra columns ignored).
func ReadSamplesCSV(r io.Reader) ([]Sample, error) {
	var samples []Sample
	err := readCSV(r, []string{ColTime, ColID1, ColID2, ColDuration}, func(f fields) error {
		t, err := f.float(ColTime)
		if err != nil {
			return err
		}
		d, err := f.float(ColDuration)
		if err != nil {
			return err
		}
		samples = append(samples, Sample{
			Time:     t,
			A:        NormalizeID(f.get(ColID1)),
			B:        NormalizeID(f.get(ColID2)),
			Duration: d,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read samples: %w", err)
	}
	return samples, nil
}

// ReadTableCSV reads an already normalized table with columns id_1, id_2,
// start_moment and end_moment. Row order is preserved; callers validate.
func ReadTableCSV(r io.Reader) (Table, error) {
	var table Table
	err := readCSV(r, []string{ColID1, ColID2, ColStart, ColEnd}, func(f fields) error {
		start, err := f.float(ColStart)
		if err != nil {
			return err
		}
		end, err := f.float(ColEnd)
		if err != nil {
			return err
		}
		table = append(table, Contact{
			A:     NormalizeID(f.get(ColID1)),
			B:     NormalizeID(f.get(ColID2)),
			Start: start,
			End:   end,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read table: %w", err)
	}
	return table, nil
}

// WriteTableCSV writes t with a header row, including the derived
// contact_duration column.
func WriteTableCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{ColID1, ColID2, ColStart, ColEnd, ColDuration}); err != nil {
		return fmt.Errorf("write table: %w", err)
	}
	for _, c := range t {
		row := []string{
			string(c.A),
			string(c.B),
			formatMoment(c.Start),
			formatMoment(c.End),
			formatMoment(c.Duration()),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write table: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write table: %w", err)
	}
	return nil
}

type fields struct {
	line  int
	index map[string]int
	row   []string
}

func (f fields) get(col string) string {
	return f.row[f.index[col]]
}

func (f fields) float(col string) (float64, error) {
	v, err := strconv.ParseFloat(f.get(col), 64)
	if err != nil {
		return 0, fmt.Errorf("line %d: column %s: %w", f.line, col, err)
	}
	return v, nil
}

func readCSV(r io.Reader, required []string, fn func(f fields) error) error {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("missing header row")
	}
	if err != nil {
		return err
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}
	for _, col := range required {
		if _, ok := index[col]; !ok {
			return fmt.Errorf("missing column %q", col)
		}
	}

	line := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		line++
		if err := fn(fields{line: line, index: index, row: row}); err != nil {
			return err
		}
	}
}

func formatMoment(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
