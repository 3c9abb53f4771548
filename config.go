// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdfview

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sassoftware/viya-pdf-view/logger"
)

// ParsingMode selects how a page failure affects the rest of a run.
type ParsingMode string

const (
	// Strict stops at the first page that fails.
	Strict ParsingMode = "strict"
	// BestEffort records the failure on the page's result and goes on.
	BestEffort ParsingMode = "best-effort"
)

// Config controls a Processor.
//
// MaxThumbnailBytes bounds a decoded thumbnail; 0 means math.MaxInt32.
// DPI is the resolution used for page sizes in pixels. DebugOn passes
// debug-level messages on to Logger; without it only warnings and errors
// get there.
type Config struct {
	MaxConcurrentPDFs int           `validate:"min=1,max=10"`
	MaxWorkersPerPDF  int           `validate:"min=1,max=10"`
	WorkerTimeout     time.Duration `validate:"required"`
	ParsingMode       ParsingMode   `validate:"oneof=strict best-effort"`
	MaxRetries        int           `validate:"min=0,max=3"`
	MaxThumbnailBytes int64         `validate:"min=0"`
	DPI               float64       `validate:"gt=0"`
	DebugOn           bool
	Logger            logger.LogFunc
}

var validate = validator.New()

func NewDefaultConfig() *Config {
	return &Config{
		MaxConcurrentPDFs: 5,
		MaxWorkersPerPDF:  1,
		WorkerTimeout:     5 * time.Second,
		ParsingMode:       BestEffort,
		MaxRetries:        3,
		MaxThumbnailBytes: 0,
		DPI:               72,
		DebugOn:           false,
	}
}

func (cfg *Config) Validate() error {
	logger.Debug("Validating Config Object")
	return validate.Struct(cfg)
}

// logFunc returns Logger, filtered by DebugOn. It is nil when Logger is.
func (cfg *Config) logFunc() logger.LogFunc {
	f := cfg.Logger
	if f == nil || cfg.DebugOn {
		return f
	}
	return func(level logger.LogLevel, msg string, keyvals ...interface{}) {
		if level == logger.DebugLevel {
			return
		}
		f(level, msg, keyvals...)
	}
}

func (cfg *Config) thumbnailOptions() []ThumbnailOption {
	return []ThumbnailOption{WithMaxBytes(cfg.MaxThumbnailBytes)}
}
