// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdfview

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/sassoftware/viya-pdf-view/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, NewDefaultConfig().Validate())

	tests := []struct {
		field  string
		mutate func(cfg *Config)
	}{
		{"MaxConcurrentPDFs", func(cfg *Config) { cfg.MaxConcurrentPDFs = 0 }},
		{"MaxConcurrentPDFs", func(cfg *Config) { cfg.MaxConcurrentPDFs = 11 }},
		{"MaxWorkersPerPDF", func(cfg *Config) { cfg.MaxWorkersPerPDF = 0 }},
		{"WorkerTimeout", func(cfg *Config) { cfg.WorkerTimeout = 0 }},
		{"ParsingMode", func(cfg *Config) { cfg.ParsingMode = "lenient" }},
		{"MaxRetries", func(cfg *Config) { cfg.MaxRetries = 4 }},
		{"MaxThumbnailBytes", func(cfg *Config) { cfg.MaxThumbnailBytes = -1 }},
		{"DPI", func(cfg *Config) { cfg.DPI = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)

			var verrs validator.ValidationErrors
			require.True(t, errors.As(err, &verrs))
			require.Len(t, verrs, 1)
			assert.Equal(t, tt.field, verrs[0].Field())
		})
	}
}

func TestConfig_LogFunc(t *testing.T) {
	assert.Nil(t, (&Config{}).logFunc())

	var got []logger.LogLevel
	record := func(level logger.LogLevel, msg string, keyvals ...interface{}) {
		got = append(got, level)
	}
	emitAll := func(f logger.LogFunc) {
		f(logger.DebugLevel, "d")
		f(logger.WarnLevel, "w")
		f(logger.ErrorLevel, "e")
	}

	emitAll((&Config{Logger: record}).logFunc())
	assert.Equal(t, []logger.LogLevel{logger.WarnLevel, logger.ErrorLevel}, got)

	got = nil
	emitAll((&Config{Logger: record, DebugOn: true}).logFunc())
	assert.Equal(t, []logger.LogLevel{logger.DebugLevel, logger.WarnLevel, logger.ErrorLevel}, got)
}

func TestConfig_ThumbnailOptions(t *testing.T) {
	strm := grayThumb(2, 2, []byte{0, 1, 2, 3})

	cfg := NewDefaultConfig()
	th, err := DecodeThumbnail(nil, strm, cfg.thumbnailOptions()...)
	require.NoError(t, err)
	assert.Len(t, th.Pix, 12)

	cfg.MaxThumbnailBytes = 11
	_, err = DecodeThumbnail(nil, strm, cfg.thumbnailOptions()...)
	assert.ErrorIs(t, err, ErrThumbnailTooLarge)
}
