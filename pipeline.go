package maptiles

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/lvnav/maptiles/tile"
)

// Converter turns an OSM-style pyramid of {zoom}/{x}/{y}.png tiles into
// the binary format the grid engine loads.
type Converter struct {
	format int
	force  bool
	logger *log.Logger
}

// NewConverter returns a converter producing tiles in the given color
// format, tile.FormatRGB565 or tile.FormatI8. Existing output files are
// skipped unless force is set. A nil logger discards all output.
func NewConverter(format int, force bool, logger *log.Logger) *Converter {
	if logger == nil {
		logger = log.New(ioutil.Discard, "", 0)
	}
	return &Converter{
		format: format,
		force:  force,
		logger: logger,
	}
}

type conversion struct {
	src  string
	dest string
}

func parsePyramidPath(rel string) (zoom, x, y int, err error) {
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 3 {
		return 0, 0, 0, errors.New("maptiles: not a tile path")
	}
	if zoom, err = strconv.Atoi(parts[0]); err != nil {
		return 0, 0, 0, err
	}
	if x, err = strconv.Atoi(parts[1]); err != nil {
		return 0, 0, 0, err
	}
	name := parts[2]
	if y, err = strconv.Atoi(strings.TrimSuffix(name, filepath.Ext(name))); err != nil {
		return 0, 0, 0, err
	}
	return zoom, x, y, nil
}

func (c *Converter) findTiles(ctx context.Context, src, dest string) (<-chan conversion, <-chan error, error) {
	out := make(chan conversion)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		errc <- filepath.Walk(src, func(file string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			// Ignore any hidden files or directories.
			if info.Name()[0] == '.' {
				if info.Mode().IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			if !info.Mode().IsRegular() {
				return nil
			}

			switch strings.ToLower(filepath.Ext(file)) {
			case ".png", ".jpg", ".jpeg":
			default:
				return nil
			}

			rel, err := filepath.Rel(src, file)
			if err != nil {
				return err
			}
			zoom, x, y, perr := parsePyramidPath(rel)
			if perr != nil {
				// Not part of a tile pyramid.
				return nil
			}

			bin := filepath.Join(dest, strconv.Itoa(zoom), strconv.Itoa(x), strconv.Itoa(y)+".bin")

			select {
			case out <- conversion{src: file, dest: bin}:
			case <-ctx.Done():
				return errors.New("walk cancelled")
			}

			return nil
		})
	}()
	return out, errc, nil
}

func (c *Converter) tileWorker(ctx context.Context, in <-chan conversion) (<-chan error, error) {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		for job := range in {
			if !c.force {
				if _, err := os.Stat(job.dest); err == nil {
					continue
				}
			}

			if err := c.convert(job); err != nil {
				errc <- err
				return
			}

			select {
			case <-ctx.Done():
				return
			default:
			}
		}
	}()
	return errc, nil
}

func (c *Converter) convert(job conversion) error {
	f, err := os.Open(job.src)
	if err != nil {
		return err
	}
	m, _, err := image.Decode(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("maptiles: decoding %s: %w", job.src, err)
	}

	if err := os.MkdirAll(filepath.Dir(job.dest), 0755); err != nil {
		return err
	}

	out, err := os.Create(job.dest)
	if err != nil {
		return err
	}

	if err := tile.Encode(out, m, c.format); err != nil {
		out.Close()
		return fmt.Errorf("maptiles: encoding %s: %w", job.dest, err)
	}

	c.logger.Printf("Converted %s", job.dest)

	return out.Close()
}

// Convert walks the pyramid rooted at src and writes converted tiles
// beneath dest, preserving the {zoom}/{x}/{y} layout. Up to jobs tiles
// are converted in parallel.
func (c *Converter) Convert(src, dest string, jobs int) error {
	srcDir, err := filepath.Abs(src)
	if err != nil {
		return err
	}
	destDir, err := filepath.Abs(dest)
	if err != nil {
		return err
	}
	if jobs < 1 {
		jobs = 1
	}

	ctx, cancelFunc := context.WithCancel(context.Background())
	defer cancelFunc()

	var errcList []<-chan error

	tiles, errc, err := c.findTiles(ctx, srcDir, destDir)
	if err != nil {
		return err
	}
	errcList = append(errcList, errc)

	for i := 0; i < jobs; i++ {
		errc, err := c.tileWorker(ctx, tiles)
		if err != nil {
			return err
		}
		errcList = append(errcList, errc)
	}

	return waitForPipeline(errcList...)
}

func waitForPipeline(errs ...<-chan error) error {
	errc := mergeErrors(errs...)
	for err := range errc {
		if err != nil {
			return err
		}
	}
	return nil
}

func mergeErrors(cs ...<-chan error) <-chan error {
	var wg sync.WaitGroup
	out := make(chan error, len(cs))
	wg.Add(len(cs))
	for _, c := range cs {
		go func(c <-chan error) {
			for n := range c {
				out <- n
			}
			wg.Done()
		}(c)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}
