// Package deck composes the three-slide PPTX report for a processed session.
package deck

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"backend-trpreport/internal/dataset"
	"backend-trpreport/internal/shared/optional"

	"go.uber.org/zap"
)

const (
	Extension  = ".pptx"
	notPresent = "N/A"
	maxSuffix  = 10000
)

// Content is what goes on the slides.
type Content struct {
	ArchiveName string
	Metadata    optional.Value[dataset.Metadata]
	PointCount  int
	EventCount  int
	DistanceKm  float64
	MapImage    string
}

type Composer struct {
	outputDir string
	log       *zap.Logger
}

func NewComposer(outputDir string, log *zap.Logger) *Composer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Composer{outputDir: outputDir, log: log}
}

// Compose writes the deck and returns its path. The file name comes from the
// archive name; when taken, "-2", "-3", ... are tried so earlier reports are
// never overwritten.
func (c *Composer) Compose(ctx context.Context, content Content) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(c.outputDir, 0o755); err != nil {
		return "", &ArtifactWriteError{Path: c.outputDir, Err: err}
	}

	image, err := os.ReadFile(content.MapImage)
	if err != nil {
		return "", &ArtifactWriteError{Path: content.MapImage, Err: err}
	}

	f, path, err := c.reserve(BaseName(content.ArchiveName))
	if err != nil {
		return "", err
	}
	if err := writePackage(f, slidesFor(content), image); err != nil {
		f.Close()
		os.Remove(path)
		return "", &ArtifactWriteError{Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", &ArtifactWriteError{Path: path, Err: err}
	}

	c.log.Info("report composed", zap.String("path", path), zap.Int("points", content.PointCount))
	return path, nil
}

// BaseName strips directories and the archive extension.
func BaseName(archiveName string) string {
	name := filepath.Base(strings.ReplaceAll(archiveName, "\\", "/"))
	name = strings.TrimSuffix(name, filepath.Ext(name))
	if name == "" || name == "." || name == "/" {
		return "report"
	}
	return name
}

func (c *Composer) reserve(base string) (*os.File, string, error) {
	for i := 1; i <= maxSuffix; i++ {
		name := base + Extension
		if i > 1 {
			name = base + "-" + strconv.Itoa(i) + Extension
		}
		path := filepath.Join(c.outputDir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", &ArtifactWriteError{Path: path, Err: err}
		}
	}
	return nil, "", &ArtifactWriteError{Path: base, Err: fmt.Errorf("no free file name after %d attempts", maxSuffix)}
}

type slide struct {
	Title string
	Lines []string
	Image bool
}

func slidesFor(content Content) []slide {
	meta, _ := content.Metadata.Get()
	return []slide{
		{Title: "Report for " + content.ArchiveName},
		{Title: "Metadata", Lines: []string{
			"User: " + meta.UserName.Or(notPresent),
			"Start Time: " + meta.StartTime.Or(notPresent),
			"End Time: " + meta.StopTime.Or(notPresent),
			"Route Points: " + strconv.Itoa(content.PointCount),
			"Events: " + strconv.Itoa(content.EventCount),
			fmt.Sprintf("Route Distance: %.2f km", content.DistanceKm),
		}},
		{Title: "Route Map", Image: true},
	}
}
