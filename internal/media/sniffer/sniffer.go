// Package sniffer detects the real type of an uploaded image from its magic
// bytes. Only raster formats the delivery layer can serve are accepted.
package sniffer

import (
	"bytes"
	"errors"
	"net/http"
	"strings"
)

type MediaType string

const (
	TypeJPEG MediaType = "jpeg"
	TypePNG  MediaType = "png"
	TypeGIF  MediaType = "gif"
	TypeWEBP MediaType = "webp"
)

var ErrUnknownType = errors.New("unknown media type")

type Result struct {
	Type MediaType
	MIME string
}

var signatures = []struct {
	result Result
	match  func([]byte) bool
}{
	{Result{TypeJPEG, "image/jpeg"}, func(b []byte) bool {
		return len(b) > 3 && b[0] == 0xff && b[1] == 0xd8 && b[2] == 0xff
	}},
	{Result{TypePNG, "image/png"}, func(b []byte) bool {
		magic := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
		return len(b) >= len(magic) && bytes.Equal(b[:len(magic)], magic)
	}},
	{Result{TypeGIF, "image/gif"}, func(b []byte) bool {
		return len(b) >= 6 && (bytes.Equal(b[:6], []byte("GIF87a")) || bytes.Equal(b[:6], []byte("GIF89a")))
	}},
	{Result{TypeWEBP, "image/webp"}, func(b []byte) bool {
		return len(b) >= 12 && bytes.Equal(b[:4], []byte("RIFF")) && bytes.Equal(b[8:12], []byte("WEBP"))
	}},
}

func Detect(data []byte) (Result, error) {
	if len(data) == 0 {
		return Result{}, ErrUnknownType
	}
	for _, sig := range signatures {
		if sig.match(data) {
			return sig.result, nil
		}
	}
	return Result{}, ErrUnknownType
}

func MimeTypeFromHTTP(header http.Header) string {
	contentType := header.Get("Content-Type")
	if contentType == "" {
		return ""
	}
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		return strings.TrimSpace(contentType[:idx])
	}
	return strings.TrimSpace(contentType)
}
