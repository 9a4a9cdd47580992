package report

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"backend-trpreport/internal/auth"
	"backend-trpreport/internal/pipeline"
	"backend-trpreport/internal/shared/apperr"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	downloadPrefix = "/api/reports/download/"

	msgGenerated = "Report generated successfully"
	msgListed    = "List of .pptx files retrieved successfully"
	msgNotFound  = "File not found."
	msgNoFile    = "No file uploaded."
)

type Runner interface {
	Run(ctx context.Context, in pipeline.Input) (pipeline.Result, error)
}

type Handler struct {
	runner    Runner
	uploadDir string
	outputDir string
	log       *zap.Logger
}

func NewHandler(runner Runner, uploadDir, outputDir string, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{runner: runner, uploadDir: uploadDir, outputDir: outputDir, log: log}
}

// RegisterRoutes mounts the report endpoints on the /api group.
func RegisterRoutes(api fiber.Router, h *Handler, authMiddleware fiber.Handler) {
	api.Post("/rtp/upload", authMiddleware, auth.RequirePermission(auth.PermUploadFile), h.upload)
	api.Get("/rtp/reports/list", authMiddleware, auth.RequirePermission(auth.PermViewFiles), h.list)
	api.Get("/reports/download/:name", h.download)
}

func (h *Handler) upload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return &apperr.InputError{Msg: msgNoFile}
	}

	runID := c.FormValue("run_id")
	if _, err := uuid.Parse(runID); err != nil {
		runID = uuid.NewString()
	}

	name := cleanUploadName(fh.Filename)
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	tmp, err := os.CreateTemp(h.uploadDir, "*-"+strings.ReplaceAll(name, "*", "_"))
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	dst := tmp.Name()
	tmp.Close()
	defer os.Remove(dst)
	if err := c.SaveFile(fh, dst); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	fp, err := Fingerprint(dst)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	h.log.Info("upload received",
		zap.String("run_id", runID),
		zap.String("archive", name),
		zap.Int64("bytes", fh.Size),
		zap.String("user_id", auth.UserID(c)))

	res, err := h.runner.Run(c.UserContext(), pipeline.Input{
		RunID:       runID,
		ArchivePath: dst,
		ArchiveName: name,
		Fingerprint: fp,
	})
	if err != nil {
		return fiber.NewError(apperr.StatusCode(err), err.Error())
	}

	return c.JSON(fiber.Map{
		"message":     msgGenerated,
		"downloadUrl": downloadPrefix + filepath.Base(res.ArtifactPath),
		"sessionId":   res.Session.ID,
		"runId":       res.RunID,
	})
}

func (h *Handler) download(c *fiber.Ctx) error {
	path, err := ResolveDeck(h.outputDir, c.Params("name"))
	if err != nil || !isFile(path) {
		return fiber.NewError(fiber.StatusNotFound, msgNotFound)
	}
	return c.Download(path, filepath.Base(path))
}

func (h *Handler) list(c *fiber.Ctx) error {
	files, err := ListDecks(h.outputDir)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{
		"message": msgListed,
		"files":   files,
	})
}
