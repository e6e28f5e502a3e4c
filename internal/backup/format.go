package backup

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Format version constants. V1 is a plain JSON document, V2 a header line
// followed by a gzip-compressed JSON payload.
const (
	FormatV1 = 1
	FormatV2 = 2
)

// MaxDecompressedSize is the maximum allowed size of decompressed backup data (200MB).
const MaxDecompressedSize = 200 * 1024 * 1024

// ErrChecksumMismatch is returned when a V2 payload does not match its header.
var ErrChecksumMismatch = errors.New("checksum mismatch")

// Header is the plain-text first line of a V2 backup file.
type Header struct {
	Version     int               `json:"version"`
	CreatedAt   time.Time         `json:"created_at"`
	Checksum    string            `json:"checksum"`
	NodeCount   int               `json:"node_count"`
	EdgeCount   int               `json:"edge_count"`
	KineticRows int               `json:"kinetic_rows"`
	Compressed  bool              `json:"compressed"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// DetectFormat reads the first line of a file to determine V1 vs V2.
func DetectFormat(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("reading first line: %w", err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return 0, fmt.Errorf("file is empty")
	}

	var h Header
	if json.Unmarshal([]byte(line), &h) == nil && h.Version == FormatV2 {
		return FormatV2, nil
	}
	if line[0] == '{' {
		return FormatV1, nil
	}
	return 0, fmt.Errorf("unrecognized backup format")
}

// checksum returns the "sha256:<hex>" digest of data.
func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}

// WriteV2 writes b as a header line plus gzip-compressed payload with 0600
// permissions, creating parent directories as needed.
func WriteV2(path string, b *Format) error {
	payload, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(payload); err != nil {
		return fmt.Errorf("compressing payload: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return fmt.Errorf("closing gzip writer: %w", err)
	}

	header, err := json.Marshal(Header{
		Version:     FormatV2,
		CreatedAt:   b.CreatedAt,
		Checksum:    checksum(compressed.Bytes()),
		NodeCount:   len(b.Graph.Nodes),
		EdgeCount:   len(b.Graph.Edges),
		KineticRows: len(b.Graph.Kinetics),
		Compressed:  true,
		Metadata:    b.Metadata,
	})
	if err != nil {
		return fmt.Errorf("marshaling header: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	w.Write(header)
	w.WriteByte('\n')
	w.Write(compressed.Bytes())
	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing backup: %w", err)
	}
	return f.Sync()
}

// openV2 opens path, parses its header, and returns the raw compressed payload.
func openV2(path string) (*Header, []byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	line, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, nil, fmt.Errorf("reading header line: %w", err)
	}

	var h Header
	if err := json.Unmarshal(bytes.TrimSpace(line), &h); err != nil {
		return nil, nil, fmt.Errorf("parsing header: %w", err)
	}
	if h.Version != FormatV2 {
		return nil, nil, fmt.Errorf("expected V2 format, got version %d", h.Version)
	}

	payload, err := io.ReadAll(reader)
	if err != nil {
		return nil, nil, fmt.Errorf("reading compressed payload: %w", err)
	}
	return &h, payload, nil
}

// ReadV2Header reads only the header line of a V2 file.
func ReadV2Header(path string) (*Header, error) {
	h, _, err := openV2(path)
	return h, err
}

// VerifyChecksum checks a V2 file's payload against its header digest
// without decompressing it.
func VerifyChecksum(path string) error {
	h, payload, err := openV2(path)
	if err != nil {
		return err
	}
	if got := checksum(payload); got != h.Checksum {
		return fmt.Errorf("%w: expected %s, got %s", ErrChecksumMismatch, h.Checksum, got)
	}
	return nil
}

// ReadV2 verifies and decompresses a V2 backup file.
func ReadV2(path string) (*Format, error) {
	h, payload, err := openV2(path)
	if err != nil {
		return nil, err
	}
	if got := checksum(payload); got != h.Checksum {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrChecksumMismatch, h.Checksum, got)
	}

	gzr, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating gzip reader: %w", err)
	}
	defer gzr.Close()

	decompressed, err := io.ReadAll(io.LimitReader(gzr, MaxDecompressedSize+1))
	if err != nil {
		return nil, fmt.Errorf("decompressing payload: %w", err)
	}
	if int64(len(decompressed)) > MaxDecompressedSize {
		return nil, fmt.Errorf("decompressed payload exceeds maximum size of %d bytes", MaxDecompressedSize)
	}

	var b Format
	if err := json.Unmarshal(decompressed, &b); err != nil {
		return nil, fmt.Errorf("parsing backup data: %w", err)
	}
	return &b, nil
}

// readV1 decodes a plain JSON backup, bounded by MaxDecompressedSize.
func readV1(path string) (*Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	var b Format
	dec := json.NewDecoder(io.LimitReader(f, MaxDecompressedSize))
	if err := dec.Decode(&b); err != nil {
		return nil, fmt.Errorf("failed to decode backup: %w", err)
	}
	if b.Version != FormatV1 {
		return nil, fmt.Errorf("unsupported backup version: %d", b.Version)
	}
	return &b, nil
}

// Read loads a backup file of either format.
func Read(path string) (*Format, error) {
	version, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	if version == FormatV2 {
		return ReadV2(path)
	}
	return readV1(path)
}
