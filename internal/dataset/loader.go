package dataset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// LoadResult is the outcome of reading a labels file.
type LoadResult struct {
	// Records holds the well-formed entries in file order.
	Records []LabelRecord
	// Total is the length of the JSON array.
	Total int
	// Invalid counts entries skipped for missing or malformed fields.
	Invalid int
	// Transcoded is set when the file was not UTF-8 and went through the
	// fallback decoder.
	Transcoded bool
}

// Load reads a labels file from disk. See Decode for the format.
func Load(path string, logger *zap.Logger) (*LoadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: labels file %s", ErrInputNotFound, path)
		}
		return nil, fmt.Errorf("%w: read labels file %s: %v", ErrInputNotFound, path, err)
	}
	res, err := Decode(data, logger)
	if err != nil {
		return nil, fmt.Errorf("labels file %s: %w", path, err)
	}
	return res, nil
}

// Decode parses a JSON array of {text, image_path} objects.
//
// UTF-8 is expected and a leading BOM is dropped. Input that is not valid
// UTF-8 is transcoded once: UTF-16 if a BOM says so, Windows-1252
// otherwise. Entries that are not objects, lack either field, carry
// non-string values, or have a blank or multi-line label are skipped
// and logged with their index.
func Decode(data []byte, logger *zap.Logger) (*LoadResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	res := &LoadResult{}
	data, res.Transcoded = normalizeEncoding(data)
	if res.Transcoded {
		logger.Warn("labels file is not UTF-8, decoded with fallback charset")
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		var serr *json.SyntaxError
		if errors.As(err, &serr) {
			return nil, fmt.Errorf("%w: offset %d: %v", ErrInputCorrupt, serr.Offset, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInputCorrupt, err)
	}

	res.Total = len(raw)
	res.Records = make([]LabelRecord, 0, len(raw))
	for i, msg := range raw {
		rec, err := decodeRecord(msg)
		if err != nil {
			res.Invalid++
			logger.Warn("skipping invalid record",
				zap.Int("index", i),
				zap.String("reason", err.Error()),
				zap.ByteString("record", truncate(msg, 200)))
			continue
		}
		rec.Index = i
		res.Records = append(res.Records, rec)
	}
	return res, nil
}

type rawRecord struct {
	Text      *string `json:"text"`
	ImagePath *string `json:"image_path"`
}

func decodeRecord(msg json.RawMessage) (LabelRecord, error) {
	var r rawRecord
	if err := json.Unmarshal(msg, &r); err != nil {
		return LabelRecord{}, fmt.Errorf("malformed record: %v", err)
	}
	if r.Text == nil {
		return LabelRecord{}, errors.New("missing text")
	}
	if r.ImagePath == nil {
		return LabelRecord{}, errors.New("missing image_path")
	}
	text := strings.TrimSpace(*r.Text)
	if text == "" {
		return LabelRecord{}, errors.New("empty text")
	}
	if strings.ContainsAny(text, "\r\n") {
		return LabelRecord{}, errors.New("text spans multiple lines")
	}
	if strings.TrimSpace(*r.ImagePath) == "" {
		return LabelRecord{}, errors.New("empty image_path")
	}
	return LabelRecord{Text: text, ImagePath: *r.ImagePath}, nil
}

// normalizeEncoding returns UTF-8 bytes and whether a transcode happened.
func normalizeEncoding(data []byte) ([]byte, bool) {
	if bytes.HasPrefix(data, utf8BOM) {
		data = data[len(utf8BOM):]
	}
	if utf8.Valid(data) {
		return data, false
	}
	dec := xunicode.BOMOverride(charmap.Windows1252.NewDecoder())
	out, _, err := transform.Bytes(dec, data)
	if err != nil {
		return data, false
	}
	return out, true
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
