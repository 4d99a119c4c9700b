package dataset

import (
	"bytes"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/KaramelBytes/crosstab-cli/internal/core"
	"golang.org/x/text/encoding/japanese"
)

// ErrDecode is returned when an upload is neither UTF-8 nor cp932.
var ErrDecode = fmt.Errorf("%w: undecodable text (tried utf-8, cp932)", core.ErrInput)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Encoding names reported on Table.Encoding.
const (
	EncodingUTF8  = "utf-8"
	EncodingCP932 = "cp932"
	EncodingXLSX  = "xlsx"
)

// Decode returns b as a Go string. UTF-8 (with or without BOM) is tried
// first, then cp932 (Shift_JIS as written by Windows spreadsheet tools).
func Decode(b []byte) (string, string, error) {
	b = bytes.TrimPrefix(b, utf8BOM)
	if utf8.Valid(b) {
		return string(b), EncodingUTF8, nil
	}
	out, err := japanese.ShiftJIS.NewDecoder().Bytes(b)
	if err != nil {
		return "", "", errors.Join(ErrDecode, err)
	}
	if bytes.ContainsRune(out, utf8.RuneError) {
		return "", "", ErrDecode
	}
	return string(out), EncodingCP932, nil
}
