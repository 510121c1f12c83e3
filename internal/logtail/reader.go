// Package logtail reads the trailing lines of a growing log file without
// loading it whole.
package logtail

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"strings"
)

const defaultChunkSize = 4096

// ReadTail returns up to maxLines of the file's trailing lines, oldest first.
// The file is read backward in fixed-size chunks until enough newlines are
// seen or the start of the file is reached. A missing file is a normal
// condition and yields an empty slice; invalid byte sequences are decoded
// lossily rather than failing.
func ReadTail(path string, maxLines int) []string {
	return readTail(path, maxLines, defaultChunkSize)
}

func readTail(path string, maxLines, chunkSize int) []string {
	if maxLines <= 0 {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) && !errors.Is(err, fs.ErrPermission) {
			// Unexpected open failures still degrade to empty output.
			return nil
		}
		return nil
	}
	defer f.Close()

	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return nil
	}

	var data []byte
	remaining := size
	for remaining > 0 && bytes.Count(data, []byte{'\n'}) <= maxLines {
		readSize := int64(chunkSize)
		if remaining < readSize {
			readSize = remaining
		}
		remaining -= readSize
		chunk := make([]byte, readSize)
		if _, err := f.ReadAt(chunk, remaining); err != nil {
			return nil
		}
		data = append(chunk, data...)
	}

	lines := splitLines(data)
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	return lines
}

// splitLines splits on newlines, tolerating CRLF and a missing trailing
// terminator, and never fails on malformed UTF-8.
func splitLines(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
