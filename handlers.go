package main

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"taller-ocr/models"
	"taller-ocr/pkg/ocr"
)

// User-facing messages.
const (
	msgNoImage       = "No se envió imagen"
	msgBadFormat     = "Formato de imagen no permitido (usa jpg/png/webp/heic)"
	msgTooLarge      = "Imagen demasiado grande (máx 6MB)"
	msgNoText        = "No se detectó texto en la imagen."
	msgTimeout       = "Tiempo de espera agotado"
	msgInternal      = "Error interno del servidor"
	msgNoHistory     = "historial de escaneos deshabilitado"
	recentScansLimit = 100
)

// server carries the dependencies of the HTTP handlers.
type server struct {
	cfg    Config
	svc    *ocr.Service
	engine string
	db     *gorm.DB
	log    logrus.FieldLogger
}

func setupRoutes(r *gin.Engine, s *server) {
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "OK") })

	api := r.Group("")
	if s.cfg.JWTSecret != "" {
		api.Use(jwtAuthMiddleware([]byte(s.cfg.JWTSecret)))
	}
	api.POST("/detectar-texto", s.detectarTextoHandler)
	api.GET("/escaneos", s.listEscaneosHandler)
}

// detectarTextoHandler runs the OCR pipeline on the "imagen" upload.
func (s *server) detectarTextoHandler(c *gin.Context) {
	// Multipart overhead is small; the file itself is checked against MaxUploadBytes below.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadBytes+64<<10)
	file, err := c.FormFile("imagen")
	if c.Request.MultipartForm != nil {
		defer c.Request.MultipartForm.RemoveAll()
	}
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": msgTooLarge})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": msgNoImage})
		return
	}
	if file.Size > s.cfg.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": msgTooLarge})
		return
	}

	data, err := readUpload(file)
	if err != nil {
		s.log.WithError(err).Error("read upload")
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
		return
	}
	mediaType := uploadMediaType(file, data)
	if !ocr.IsAllowedMediaType(mediaType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgBadFormat})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.requestTimeout(c))
	defer cancel()

	scan := &models.Escaneo{FileName: file.Filename, ContentType: mediaType, SizeBytes: file.Size, Engine: s.engine}
	out, err := s.svc.Process(ctx, ocr.RawImage{Data: data, MediaType: mediaType})
	scan.Orientation, scan.Score, scan.DurationMS = out.Best.Orientation, out.Best.Score, out.Elapsed.Milliseconds()
	log := s.log.WithFields(logrus.Fields{"file": file.Filename, "size": file.Size, "media_type": mediaType})

	switch {
	case err == nil:
		scan.Status = models.StatusOK
		applyRecord(scan, out.Record)
		recordScan(s.db, log, scan)
		c.JSON(http.StatusOK, out.Record)
	case errors.Is(err, ocr.ErrNoText):
		scan.Status = models.StatusNoText
		recordScan(s.db, log, scan)
		c.JSON(http.StatusOK, gin.H{"error": msgNoText})
	default:
		scan.Status, scan.FailedReason = models.StatusError, err.Error()
		recordScan(s.db, log, scan)
		status, msg := errorResponse(err)
		log.WithError(err).WithField("status", status).Error("detectar-texto failed")
		c.JSON(status, gin.H{"error": msg})
	}
}

// listEscaneosHandler returns the latest stored scans.
func (s *server) listEscaneosHandler(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": msgNoHistory})
		return
	}
	items, err := recentScans(s.db, recentScansLimit)
	if err != nil {
		s.log.WithError(err).Error("list escaneos")
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
		return
	}
	c.JSON(http.StatusOK, items)
}

// requestTimeout is OCR_TIMEOUT, shortened by a positive X-Request-Timeout header in seconds.
func (s *server) requestTimeout(c *gin.Context) time.Duration {
	timeout := s.cfg.Timeout
	if v := c.GetHeader("X-Request-Timeout"); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
			if d := time.Duration(secs * float64(time.Second)); d < timeout {
				timeout = d
			}
		}
	}
	return timeout
}

// errorResponse maps pipeline errors to a status and a message without internal detail.
func errorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, ocr.ErrUnsupportedFormat):
		return http.StatusBadRequest, msgBadFormat
	case errors.Is(err, ocr.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, msgTimeout
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// uploadMediaType prefers the declared part type and sniffs the bytes when it is missing or generic.
func uploadMediaType(fh *multipart.FileHeader, data []byte) string {
	ct := strings.TrimSpace(fh.Header.Get("Content-Type"))
	if ct == "" || strings.HasPrefix(ct, "application/octet-stream") {
		ct = mimetype.Detect(data).String()
	}
	return ct
}

func applyRecord(scan *models.Escaneo, rec ocr.VehicleRecord) {
	scan.Chasis, scan.Motor, scan.Marca, scan.Modelo = rec.Chassis, rec.Engine, rec.Brand, rec.Model
	scan.Anio, scan.Cilindrada, scan.Matricula, scan.Titulares = rec.Year, rec.Displacement, rec.Plate, rec.Titleholders
}
