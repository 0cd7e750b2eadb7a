package streamdna

import (
	"io"
	"os"
	"runtime"

	"github.com/himanishpuri/StreamDNA/pkg/streamdna/evaluate"
)

// DefaultVideos is the number of videos in the reference dataset.
const DefaultVideos = 100

type Config struct {
	DBPath    string
	Videos    int
	Start     int
	End       int
	Loose     bool
	Verbose   bool
	Workers   int
	KeepGoing bool
	Output    io.Writer
	Logger    Logger
	Storage   Storage
}

type Option func(*Config)

func WithDBPath(path string) Option {
	return func(c *Config) {
		c.DBPath = path
	}
}

func WithStorage(storage Storage) Option {
	return func(c *Config) {
		c.Storage = storage
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

// WithWindow sets the eavesdropping interval in seconds before the end of
// each trace.
func WithWindow(start, end int) Option {
	return func(c *Config) {
		c.Start = start
		c.End = end
	}
}

func WithLoose(loose bool) Option {
	return func(c *Config) {
		c.Loose = loose
	}
}

func WithVerbose(verbose bool) Option {
	return func(c *Config) {
		c.Verbose = verbose
	}
}

func WithWorkers(n int) Option {
	return func(c *Config) {
		c.Workers = n
	}
}

// WithVideos sets how many videos Setup reads from the dataset.
func WithVideos(n int) Option {
	return func(c *Config) {
		c.Videos = n
	}
}

func WithKeepGoing(keep bool) Option {
	return func(c *Config) {
		c.KeepGoing = keep
	}
}

// WithOutput sets where Attack writes its report.
func WithOutput(w io.Writer) Option {
	return func(c *Config) {
		c.Output = w
	}
}

func defaultConfig() *Config {
	return &Config{
		DBPath:  "fingerprints.txt",
		Videos:  DefaultVideos,
		Start:   evaluate.DefaultStart,
		End:     evaluate.DefaultEnd,
		Workers: runtime.NumCPU(),
		Output:  os.Stdout,
	}
}
