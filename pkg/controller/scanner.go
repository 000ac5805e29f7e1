package controller

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Conventions describes how descriptor modules are recognised on disk.
type Conventions struct {
	// FileSuffix marks a single-file descriptor module.
	FileSuffix string
	// DirSuffix marks a descriptor package directory.
	DirSuffix string
	// EntryPoint is the file loaded from a descriptor package.
	EntryPoint string
}

var (
	// DefaultConventions match declarative descriptor files.
	DefaultConventions = Conventions{
		FileSuffix: ".controller.yaml",
		DirSuffix:  ".controller",
		EntryPoint: "index.yaml",
	}

	// PluginConventions match compiled Go plugins.
	PluginConventions = Conventions{
		FileSuffix: ".controller.so",
		DirSuffix:  ".controller",
		EntryPoint: "index.so",
	}
)

// Scanner discovers descriptor modules under a set of root directories and
// registers what they describe.
type Scanner struct {
	loader      Loader
	conventions Conventions
	recursive   bool
	logger      logrus.FieldLogger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithRecursive controls whether plain subdirectories are scanned.
func WithRecursive(recursive bool) Option {
	return func(s *Scanner) { s.recursive = recursive }
}

// WithConventions replaces the default naming conventions.
func WithConventions(c Conventions) Option {
	return func(s *Scanner) { s.conventions = c }
}

// WithLogger sets the logger for load failures and invalid handlers.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Scanner) { s.logger = l }
}

// WrapLoader decorates the scanner's loader, e.g. for instrumentation.
func WrapLoader(wrap func(Loader) Loader) Option {
	return func(s *Scanner) { s.loader = wrap(s.loader) }
}

// NewScanner creates a recursive scanner using DefaultConventions.
func NewScanner(loader Loader, opts ...Option) *Scanner {
	s := &Scanner{
		loader:      loader,
		conventions: DefaultConventions,
		recursive:   true,
		logger:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan walks roots depth-first, loads every descriptor module it finds and
// parses the collected descriptors against r.
//
// Roots are pushed onto a stack in the given order, so the last root is
// visited first. A module that fails to load is logged and skipped. A
// directory that cannot be read aborts the scan before anything is
// registered.
func (s *Scanner) Scan(r Router, roots ...string) error {
	descriptors, err := s.Collect(r, roots...)
	if err != nil {
		return err
	}
	p := &Parser{Logger: s.logger}
	return p.Parse(r, descriptors...)
}

// Collect performs the discovery half of Scan and returns the descriptors
// in load order without registering them.
func (s *Scanner) Collect(r Router, roots ...string) ([]Descriptor, error) {
	frontier := append([]string(nil), roots...)
	var descriptors []Descriptor

	for len(frontier) > 0 {
		dir := frontier[len(frontier)-1]
		frontier = frontier[:len(frontier)-1]

		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("reading controller directory %s: %w", dir, err)
		}

		for _, entry := range entries {
			name := entry.Name()
			full := filepath.Join(dir, name)

			switch {
			case strings.HasSuffix(name, s.conventions.FileSuffix):
				if d := s.load(r, full); len(d) > 0 {
					descriptors = append(descriptors, d)
				}
			case strings.HasSuffix(name, s.conventions.DirSuffix) && entry.IsDir() && exists(filepath.Join(full, s.conventions.EntryPoint)):
				if d := s.load(r, filepath.Join(full, s.conventions.EntryPoint)); len(d) > 0 {
					descriptors = append(descriptors, d)
				}
			case s.recursive && entry.IsDir():
				frontier = append(frontier, full)
			}
		}
	}

	return descriptors, nil
}

// load never fails: errors and panics are logged and yield no descriptor.
func (s *Scanner) load(r Router, path string) Descriptor {
	d, err := s.invoke(r, path)
	if err != nil {
		s.logger.WithField("path", path).Errorf("%+v", &LoadError{Path: path, Err: err})
		return nil
	}
	return d
}

func (s *Scanner) invoke(r Router, path string) (d Descriptor, err error) {
	defer func() {
		if p := recover(); p != nil {
			d, err = nil, errors.Errorf("panic: %v", p)
		}
	}()

	factory, err := s.loader.Load(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if factory == nil {
		return nil, errors.New("loader returned no factory")
	}
	d, err = factory(r)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return d, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
