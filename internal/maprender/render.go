// Package maprender turns an ordered track into a static map image.
package maprender

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"backend-trpreport/internal/dataset"

	"github.com/zeebo/blake3"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	PlaceholderFile   = "no_coordinates.png"
	ErrorResponseFile = "error_response.html"

	imageWidth  = 800
	imageHeight = 600
	zoom        = 16

	maxResponseBytes = 8 << 20
)

var errResponseTooLarge = errors.New("map service response exceeds 8 MiB")

type Config struct {
	BaseURL      string
	APIKey       string
	Timeout      time.Duration
	GeneratedDir string
}

type Renderer struct {
	cfg    Config
	client *http.Client
	log    *zap.Logger
	group  singleflight.Group
}

func New(cfg Config, client *http.Client, log *zap.Logger) *Renderer {
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Renderer{cfg: cfg, client: client, log: log}
}

// Render returns the path of a PNG showing the track. Tracks without points
// get the shared placeholder and never reach the map service.
func (r *Renderer) Render(ctx context.Context, points []dataset.RoutePoint) (string, error) {
	if len(points) == 0 {
		return r.placeholder()
	}

	fp := Fingerprint(points)
	target := filepath.Join(r.cfg.GeneratedDir, "maps", fp+".png")
	// The fetch outlives any single caller; each caller still stops waiting
	// when its own context ends.
	fetchCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(fp, func() (any, error) {
		if fileExists(target) {
			r.log.Debug("map cache hit", zap.String("fingerprint", fp))
			return target, nil
		}
		if err := r.fetch(fetchCtx, points, target); err != nil {
			return "", err
		}
		return target, nil
	})

	select {
	case <-ctx.Done():
		err := ctx.Err()
		return "", &MapRenderError{Timeout: errors.Is(err, context.DeadlineExceeded), Err: err}
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		if res.Shared {
			r.log.Debug("map render shared", zap.String("fingerprint", fp))
		}
		return res.Val.(string), nil
	}
}

// Fingerprint is the BLAKE3 digest of the ordered coordinate list.
func Fingerprint(points []dataset.RoutePoint) string {
	h := blake3.New()
	for _, p := range points {
		fmt.Fprintf(h, "%s,%s;", formatCoord(p.Latitude), formatCoord(p.Longitude))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// RequestURL builds the static-map query: first point as center, every
// point as a red marker.
func (r *Renderer) RequestURL(points []dataset.RoutePoint) string {
	markers := make([]string, 0, len(points)+1)
	markers = append(markers, "color:red")
	for _, p := range points {
		markers = append(markers, formatCoord(p.Latitude)+","+formatCoord(p.Longitude))
	}

	q := url.Values{}
	q.Set("size", fmt.Sprintf("%dx%d", imageWidth, imageHeight))
	q.Set("maptype", "roadmap")
	q.Set("zoom", strconv.Itoa(zoom))
	q.Set("center", formatCoord(points[0].Latitude)+","+formatCoord(points[0].Longitude))
	q.Set("markers", strings.Join(markers, "|"))
	q.Set("key", r.cfg.APIKey)
	return r.cfg.BaseURL + "?" + q.Encode()
}

func (r *Renderer) fetch(ctx context.Context, points []dataset.RoutePoint, target string) error {
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.RequestURL(points), nil)
	if err != nil {
		return &MapRenderError{Err: err}
	}
	started := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			r.log.Warn("map service timeout", zap.Duration("timeout", r.cfg.Timeout))
			return &MapRenderError{Timeout: true, Err: err}
		}
		return &MapRenderError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		if isTimeout(err) {
			return &MapRenderError{Timeout: true, Err: err}
		}
		return &MapRenderError{Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		dump := filepath.Join(r.cfg.GeneratedDir, ErrorResponseFile)
		if werr := writeAtomic(dump, body); werr != nil {
			r.log.Warn("could not save map error response", zap.Error(werr))
		}
		r.log.Warn("map service rejected request", zap.Int("status", resp.StatusCode), zap.String("dump", dump))
		return &MapRenderError{Status: resp.StatusCode}
	}

	if len(body) > maxResponseBytes {
		return &MapRenderError{Err: errResponseTooLarge}
	}
	if err := writeAtomic(target, body); err != nil {
		return fmt.Errorf("save map image: %w", err)
	}
	r.log.Info("map rendered",
		zap.Int("points", len(points)),
		zap.Int("bytes", len(body)),
		zap.Duration("took", time.Since(started)))
	return nil
}

func (r *Renderer) placeholder() (string, error) {
	path := filepath.Join(r.cfg.GeneratedDir, PlaceholderFile)
	v, err, _ := r.group.Do("placeholder", func() (any, error) {
		if fileExists(path) {
			return path, nil
		}
		img := image.NewRGBA(image.Rect(0, 0, imageWidth, imageHeight))
		draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{R: 0xee, G: 0xee, B: 0xee, A: 0xff}}, image.Point{}, draw.Src)
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return "", err
		}
		if err := writeAtomic(path, buf.Bytes()); err != nil {
			return "", fmt.Errorf("save placeholder image: %w", err)
		}
		return path, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
