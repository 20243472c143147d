// Package rundir lays out the directory for one acquisition run:
// <master>/<run>/rawData/.
package rundir

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/banshee-data/encoderdaq/internal/fsutil"
	"github.com/banshee-data/encoderdaq/internal/monitoring"
)

// RawDataDir is the subdirectory that receives the CSV files.
const RawDataDir = "rawData"

var (
	ErrMasterDirMissing  = errors.New("master data directory does not exist")
	ErrOverwriteDeclined = errors.New("existing run data will not be overwritten")
)

// Confirmer asks the operator a yes/no question.
type Confirmer interface {
	Confirm(question string) (bool, error)
}

// Layout names the directories of a prepared run.
type Layout struct {
	Master string
	Run    string
	Raw    string
}

// Prepare checks master, asks before reusing an existing run directory and
// creates the raw data directory. A nil confirm accepts every overwrite.
func Prepare(fsys fsutil.FileSystem, master, run string, confirm Confirmer) (Layout, error) {
	if run == "" || strings.ContainsRune(run, filepath.Separator) || run == "." || run == ".." {
		return Layout{}, fmt.Errorf("invalid run name %q", run)
	}
	if !fsutil.IsDir(fsys, master) {
		return Layout{}, fmt.Errorf("%w: %s", ErrMasterDirMissing, master)
	}
	l := Layout{
		Master: master,
		Run:    filepath.Join(master, run),
	}
	l.Raw = filepath.Join(l.Run, RawDataDir)

	if fsutil.Exists(fsys, l.Run) && confirm != nil {
		q := fmt.Sprintf("CAUTION: Run name %s already exists at location %s. Overwrite existing data? Y/N [Y]: ", run, master)
		ok, err := confirm.Confirm(q)
		if err != nil {
			return Layout{}, fmt.Errorf("overwrite confirmation: %w", err)
		}
		if !ok {
			return Layout{}, fmt.Errorf("%w: %s", ErrOverwriteDeclined, l.Run)
		}
	}

	if !fsutil.IsDir(fsys, l.Raw) {
		monitoring.Logf("Creating directory %s...", l.Raw)
		if err := fsys.MkdirAll(l.Raw, 0o755); err != nil {
			return Layout{}, fmt.Errorf("create %s: %w", l.Raw, err)
		}
	}
	return l, nil
}

// PromptConfirmer asks on Out and reads answers line by line from In. An
// empty answer means yes. Answers it cannot classify are asked again.
type PromptConfirmer struct {
	In  io.Reader
	Out io.Writer

	scanner *bufio.Scanner
}

func (p *PromptConfirmer) Confirm(question string) (bool, error) {
	if p.scanner == nil {
		p.scanner = bufio.NewScanner(p.In)
	}
	for {
		fmt.Fprint(p.Out, question)
		if !p.scanner.Scan() {
			if err := p.scanner.Err(); err != nil {
				return false, err
			}
			return false, io.ErrUnexpectedEOF
		}
		answer := strings.TrimSpace(p.scanner.Text())
		switch {
		case answer == "", strings.ContainsAny(answer, "yY"):
			return true, nil
		case strings.ContainsAny(answer, "nN"):
			return false, nil
		}
		fmt.Fprintf(p.Out, "Did not understand input %s...\n", answer)
	}
}
