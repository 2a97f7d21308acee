package core

// streaming.go provides the byte-level readers the extractor wraps around
// each raw file before CSV parsing:
//
//   - utf8Sanitizer: replaces invalid UTF-8 bytes with '?'
//   - bomSkipper: drops a leading UTF-8 BOM (0xEF 0xBB 0xBF)
//   - countingReader: records bytes consumed for the extract log line
//
// Use wrapForExtract to apply them in the right order.

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// utf8Sanitizer replaces invalid UTF-8 sequences on the fly. Bytes that may
// begin a multi-byte rune split across reads are held back until the next
// fill. Sanitized output is queued in ready, so callers may read with buffers
// of any size.
type utf8Sanitizer struct {
	reader  io.Reader
	buf     []byte
	pending []byte
	ready   []byte
	err     error
}

func newUTF8Sanitizer(r io.Reader) *utf8Sanitizer {
	return &utf8Sanitizer{
		reader:  r,
		buf:     make([]byte, 4096+utf8.UTFMax),
		pending: make([]byte, 0, utf8.UTFMax),
	}
}

func (s *utf8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	for len(s.ready) == 0 {
		if s.err != nil {
			return 0, s.err
		}
		s.fill()
	}

	n := copy(p, s.ready)
	s.ready = s.ready[n:]
	return n, nil
}

// fill reads the next chunk behind any held-back bytes and sanitizes it into
// ready. Any read error ends the stream, so held-back bytes are flushed.
func (s *utf8Sanitizer) fill() {
	held := copy(s.buf, s.pending)
	s.pending = s.pending[:0]

	n, err := s.reader.Read(s.buf[held:])
	s.err = err

	data := s.buf[:held+n]
	s.ready = data[:s.sanitize(data, err != nil)]
}

// sanitize rewrites data in place and returns the number of bytes ready for
// the caller. Invalid bytes become '?' so the output never grows.
func (s *utf8Sanitizer) sanitize(data []byte, atEOF bool) int {
	if utf8.Valid(data) {
		if !atEOF {
			if trailing := incompleteTrailingBytes(data); trailing > 0 {
				s.pending = append(s.pending, data[len(data)-trailing:]...)
				return len(data) - trailing
			}
		}
		return len(data)
	}

	write := 0
	for read := 0; read < len(data); {
		if !atEOF && !utf8.FullRune(data[read:]) {
			s.pending = append(s.pending, data[read:]...)
			return write
		}

		r, size := utf8.DecodeRune(data[read:])
		if r == utf8.RuneError && size == 1 {
			data[write] = '?'
			write++
			read++
			continue
		}
		copy(data[write:], data[read:read+size])
		write += size
		read += size
	}
	return write
}

// incompleteTrailingBytes reports how many bytes at the end of data start a
// rune that is not yet complete.
func incompleteTrailingBytes(data []byte) int {
	for i := 1; i <= utf8.UTFMax-1 && i <= len(data); i++ {
		b := data[len(data)-i]
		if utf8.RuneStart(b) {
			if b >= 0xC0 && !utf8.FullRune(data[len(data)-i:]) {
				return i
			}
			return 0
		}
	}
	return 0
}

// bomSkipper drops a UTF-8 BOM at the start of the stream, if present.
type bomSkipper struct {
	reader  *bufio.Reader
	checked bool
}

func newBOMSkipper(r io.Reader) *bomSkipper {
	return &bomSkipper{reader: bufio.NewReader(r)}
}

func (b *bomSkipper) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true
		head, err := b.reader.Peek(len(utf8BOM))
		if err != nil && err != io.EOF {
			return 0, err
		}
		if bytes.Equal(head, utf8BOM) {
			if _, err := b.reader.Discard(len(utf8BOM)); err != nil {
				return 0, err
			}
		}
	}
	return b.reader.Read(p)
}

// countingReader tracks bytes read through it.
type countingReader struct {
	reader    io.Reader
	BytesRead int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.reader.Read(p)
	c.BytesRead += int64(n)
	return n, err
}

// wrapForExtract strips the BOM first, then sanitizes, then counts what the
// CSV reader actually sees.
func wrapForExtract(r io.Reader) *countingReader {
	return &countingReader{reader: newUTF8Sanitizer(newBOMSkipper(r))}
}
