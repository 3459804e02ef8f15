package models

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Scan status values.
const (
	StatusOK     = "ok"
	StatusNoText = "no_text"
	StatusError  = "error"
)

// Escaneo is one processed registration document photo. Extracted fields are nullable.
type Escaneo struct {
	ID          uint `gorm:"primaryKey"`
	CreatedAt   time.Time
	FileName    string `gorm:"size:255"`
	ContentType string `gorm:"size:128"`
	SizeBytes   int64
	Engine      string `gorm:"size:32"`
	Status      string `gorm:"size:16;index;not null"`
	Orientation int
	Score       int
	DurationMS  int64
	// FailedReason is only set when Status is StatusError; never returned to clients.
	FailedReason string  `gorm:"size:255" json:"-"`
	Chasis       *string `gorm:"size:32"`
	Motor        *string `gorm:"size:64"`
	Marca        *string `gorm:"size:64"`
	Modelo       *string `gorm:"size:64"`
	Anio         *string `gorm:"size:8"`
	Cilindrada   *string `gorm:"size:8"`
	Matricula    *string `gorm:"size:16"`
	Titulares    *string `gorm:"size:512"`
}

// Column sizes, in characters, of the bounded escaneos columns.
const (
	sizeFileName     = 255
	sizeContentType  = 128
	sizeEngine       = 32
	sizeFailedReason = 255
	sizeChasis       = 32
	sizeMotor        = 64
	sizeMarca        = 64
	sizeModelo       = 64
	sizeAnio         = 8
	sizeCilindrada   = 8
	sizeMatricula    = 16
	sizeTitulares    = 512
)

// Clamp cuts every bounded column to its size on rune boundaries and drops invalid UTF-8,
// so Create never fails on an oversized OCR capture.
func (e *Escaneo) Clamp() {
	e.FileName = clampString(e.FileName, sizeFileName)
	e.ContentType = clampString(e.ContentType, sizeContentType)
	e.Engine = clampString(e.Engine, sizeEngine)
	e.FailedReason = clampString(e.FailedReason, sizeFailedReason)
	e.Chasis = clampPtr(e.Chasis, sizeChasis)
	e.Motor = clampPtr(e.Motor, sizeMotor)
	e.Marca = clampPtr(e.Marca, sizeMarca)
	e.Modelo = clampPtr(e.Modelo, sizeModelo)
	e.Anio = clampPtr(e.Anio, sizeAnio)
	e.Cilindrada = clampPtr(e.Cilindrada, sizeCilindrada)
	e.Matricula = clampPtr(e.Matricula, sizeMatricula)
	e.Titulares = clampPtr(e.Titulares, sizeTitulares)
}

func clampString(s string, n int) string {
	s = strings.ToValidUTF8(s, "")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func clampPtr(p *string, n int) *string {
	if p == nil {
		return nil
	}
	v := clampString(*p, n)
	return &v
}
