// Package textutil holds masking and compression helpers for payloads that
// leave the process through logs or brokers.
package textutil

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

var (
	cardNumberPattern = regexp.MustCompile(`(CardNumber=")(\d+)(\d{4}")`)
	seriesCodePattern = regexp.MustCompile(`(SeriesCode=")(\d+)(")`)
)

// MaskGroup replaces the given capture group of every match of re with '*'
// characters of the same length. Text outside the group is kept.
func MaskGroup(text string, re *regexp.Regexp, group int) string {
	matches := re.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, m := range matches {
		if 2*group+1 >= len(m) {
			continue
		}
		start, end := m[2*group], m[2*group+1]
		if start < 0 {
			continue
		}
		b.WriteString(text[last:start])
		b.WriteString(strings.Repeat("*", end-start))
		last = end
	}
	b.WriteString(text[last:])
	return b.String()
}

// MaskPattern replaces every full match of re with '*' characters.
func MaskPattern(text string, re *regexp.Regexp) string {
	return MaskGroup(text, re, 0)
}

// MaskCardNumber masks every digit but the last four inside CardNumber="...".
func MaskCardNumber(text string) string {
	return MaskGroup(text, cardNumberPattern, 2)
}

// MaskSeriesCode masks every digit inside SeriesCode="...".
func MaskSeriesCode(text string) string {
	return MaskGroup(text, seriesCodePattern, 2)
}

// CompressAndEncode zlib-compresses text and encodes it with standard base64.
func CompressAndEncode(text string) (string, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write([]byte(text)); err != nil {
		return "", fmt.Errorf("compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("compress: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// MaxDecompressedSize bounds the text DecodeAndDecompress will inflate.
const MaxDecompressedSize = 16 << 20

// ErrTooLarge is returned when decompressed text exceeds MaxDecompressedSize.
var ErrTooLarge = errors.New("decompressed text too large")

// DecodeAndDecompress reverses CompressAndEncode.
func DecodeAndDecompress(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	r, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("decompress: %w", err)
	}
	defer r.Close()
	out, err := io.ReadAll(io.LimitReader(r, MaxDecompressedSize+1))
	if err != nil {
		return "", fmt.Errorf("decompress: %w", err)
	}
	if len(out) > MaxDecompressedSize {
		return "", fmt.Errorf("decompress: %w", ErrTooLarge)
	}
	return string(out), nil
}
