package telemetry

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/slime/config"
)

// FPSRecord is one FPS callback emission.
type FPSRecord struct {
	Frame   uint64  `csv:"frame"`
	Elapsed float64 `csv:"elapsed_sec"`
	FPS     int     `csv:"fps"`
}

// csvLog is an append-only CSV file that writes its header once.
type csvLog struct {
	file          *os.File
	headerWritten bool
}

func openCSV(dir, name string) (*csvLog, error) {
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", name, err)
	}
	return &csvLog{file: f}, nil
}

func (c *csvLog) write(records any) error {
	if !c.headerWritten {
		if err := gocsv.Marshal(records, c.file); err != nil {
			return err
		}
		c.headerWritten = true
		return nil
	}
	return gocsv.MarshalWithoutHeaders(records, c.file)
}

// OutputManager handles run output: CSV logs, the config snapshot and
// PNG frame captures.
type OutputManager struct {
	dir   string
	perf  *csvLog
	fps   *csvLog
	field *csvLog
}

// NewOutputManager creates a new output manager and initializes the output directory.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "frames"), 0755); err != nil {
		return nil, fmt.Errorf("creating frames directory: %w", err)
	}

	om := &OutputManager{dir: dir}
	var err error
	if om.perf, err = openCSV(dir, "perf.csv"); err != nil {
		return nil, err
	}
	if om.fps, err = openCSV(dir, "fps.csv"); err != nil {
		om.Close()
		return nil, err
	}
	if om.field, err = openCSV(dir, "field.csv"); err != nil {
		om.Close()
		return nil, err
	}
	return om, nil
}

// WriteConfig saves the current configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WritePerf writes a performance stats record to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, frame uint64) error {
	if om == nil {
		return nil
	}
	if err := om.perf.write([]PerfStatsCSV{stats.ToCSV(frame)}); err != nil {
		return fmt.Errorf("writing perf: %w", err)
	}
	return nil
}

// WriteFPS writes an FPS record to fps.csv.
func (om *OutputManager) WriteFPS(r FPSRecord) error {
	if om == nil {
		return nil
	}
	if err := om.fps.write([]FPSRecord{r}); err != nil {
		return fmt.Errorf("writing fps: %w", err)
	}
	return nil
}

// WriteFieldStats writes a field statistics record to field.csv.
func (om *OutputManager) WriteFieldStats(s FieldStats) error {
	if om == nil {
		return nil
	}
	if err := om.field.write([]FieldStats{s}); err != nil {
		return fmt.Errorf("writing field stats: %w", err)
	}
	return nil
}

// WriteFrame saves img as frames/frame_<n>.png.
func (om *OutputManager) WriteFrame(frame uint64, img image.Image) error {
	if om == nil || img == nil {
		return nil
	}
	path := filepath.Join(om.dir, "frames", fmt.Sprintf("frame_%06d.png", frame))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating frame: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encoding frame: %w", err)
	}
	return f.Close()
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	var firstErr error
	for _, c := range []*csvLog{om.perf, om.fps, om.field} {
		if c == nil {
			continue
		}
		if err := c.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
