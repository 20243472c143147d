// Package store writes the per-run CSV files: the raw encoder and IRIG
// records as they arrive, and the derived angle series at the end of a run.
//
// Each packet occupies a block of rows separated from the next by a blank
// row, so the files can be read back packet by packet.
package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/banshee-data/encoderdaq/internal/angle"
	"github.com/banshee-data/encoderdaq/internal/daq"
	"github.com/banshee-data/encoderdaq/internal/fsutil"
)

var (
	encoderHeader = []string{"1: Quad readout", "2-152: capt_cnt/clk_cnt"}
	irigHeader    = []string{"1: IRIG_time/clk_cnt", "3-13: synch_pulse/clk_cnt"}
	angleHeader   = []string{"time", "angle"}

	blank = []string{}
)

func EncoderFileName(run string) string { return "Encoder_Data_" + run + ".csv" }
func IrigFileName(run string) string    { return "IRIG_Data_" + run + ".csv" }
func AngleFileName(run string) string   { return "Angle_Data_" + run + ".csv" }

// table is one CSV file.
type table struct {
	f io.WriteCloser
	w *csv.Writer
}

func createTable(fsys fsutil.FileSystem, path string, header []string) (*table, error) {
	f, err := fsys.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	t := &table{f: f, w: csv.NewWriter(f)}
	t.w.UseCRLF = true
	if err := t.write(header, blank); err != nil {
		f.Close()
		return nil, err
	}
	return t, nil
}

// write appends rows and flushes them.
func (t *table) write(rows ...[]string) error {
	for _, r := range rows {
		if err := t.w.Write(r); err != nil {
			return err
		}
	}
	t.w.Flush()
	return t.w.Error()
}

func (t *table) close() error {
	t.w.Flush()
	werr := t.w.Error()
	cerr := t.f.Close()
	if werr != nil {
		return werr
	}
	return cerr
}

// CSVSink persists records to Encoder_Data_<run>.csv and IRIG_Data_<run>.csv.
// It implements daq.Sink.
type CSVSink struct {
	encoder *table
	irig    *table
	row     []string
}

// OpenCSVSink creates both files in dir, truncating existing ones, and
// writes their header rows.
func OpenCSVSink(fsys fsutil.FileSystem, dir, run string) (*CSVSink, error) {
	enc, err := createTable(fsys, filepath.Join(dir, EncoderFileName(run)), encoderHeader)
	if err != nil {
		return nil, err
	}
	irig, err := createTable(fsys, filepath.Join(dir, IrigFileName(run)), irigHeader)
	if err != nil {
		enc.close()
		return nil, err
	}
	return &CSVSink{encoder: enc, irig: irig}, nil
}

func u64(v uint64) string { return strconv.FormatUint(v, 10) }
func u32(v uint32) string { return strconv.FormatUint(uint64(v), 10) }

// WriteEncoder appends the quadrature row and the 150 (index, clock) rows of
// one packet.
func (s *CSVSink) WriteEncoder(rec *daq.EncoderRecord) error {
	w := s.encoder.w
	q := rec.Quadrature
	if err := w.Write([]string{u32(q[0]), u32(q[1]), u32(q[2])}); err != nil {
		return err
	}
	if err := w.Write(blank); err != nil {
		return err
	}
	for i := range rec.ClockCounts {
		s.row = append(s.row[:0], u32(rec.AbsoluteIndex[i]), u64(rec.ClockCounts[i]))
		if err := w.Write(s.row); err != nil {
			return err
		}
	}
	return s.encoder.write(blank)
}

// WriteIrig appends the time row and the ten sync pulse rows of one packet.
func (s *CSVSink) WriteIrig(rec *daq.IrigRecord) error {
	w := s.irig.w
	if err := w.Write([]string{strconv.FormatInt(rec.UTCSeconds, 10), u64(rec.RisingEdgeClock)}); err != nil {
		return err
	}
	if err := w.Write(blank); err != nil {
		return err
	}
	for i, c := range rec.SyncClocks {
		if err := w.Write([]string{strconv.Itoa(i), u64(c)}); err != nil {
			return err
		}
	}
	return s.irig.write(blank)
}

// Close flushes and closes both files.
func (s *CSVSink) Close() error {
	eerr := s.encoder.close()
	ierr := s.irig.close()
	if eerr != nil {
		return eerr
	}
	return ierr
}

// WriteAngles writes Angle_Data_<run>.csv with one [time, angle] row per
// sample.
func WriteAngles(fsys fsutil.FileSystem, dir, run string, samples []angle.Sample) (err error) {
	path := filepath.Join(dir, AngleFileName(run))
	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	t := &table{f: f, w: csv.NewWriter(f)}
	t.w.UseCRLF = true
	defer func() {
		if cerr := t.close(); err == nil {
			err = cerr
		}
	}()

	if err := t.w.Write(angleHeader); err != nil {
		return err
	}
	for _, s := range samples {
		row := []string{
			strconv.FormatFloat(s.Time, 'g', -1, 64),
			strconv.FormatFloat(s.Angle, 'g', -1, 64),
		}
		if err := t.w.Write(row); err != nil {
			return err
		}
	}
	return nil
}
