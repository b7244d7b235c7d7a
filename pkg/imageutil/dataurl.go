package imageutil

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/dixieflatline76/ProductScene/pkg/record"
)

const base64Marker = ";base64,"

// EncodeDataURL renders img as a base64 data URL.
func EncodeDataURL(img record.Image) string {
	mimeType := img.MIMEType
	if mimeType == "" {
		mimeType = DetectMIME(img.Data, "")
	}
	return "data:" + mimeType + base64Marker + base64.StdEncoding.EncodeToString(img.Data)
}

// DecodeDataURL parses a base64 data URL.
func DecodeDataURL(dataURL string) (record.Image, error) {
	if !strings.HasPrefix(dataURL, "data:") {
		return record.Image{}, fmt.Errorf("%w: invalid data URL prefix", ErrDecode)
	}
	idx := strings.Index(dataURL, base64Marker)
	if idx < 0 {
		return record.Image{}, fmt.Errorf("%w: data URL missing base64 marker", ErrDecode)
	}

	meta := strings.TrimPrefix(dataURL[:idx], "data:")
	raw, err := base64.StdEncoding.DecodeString(dataURL[idx+len(base64Marker):])
	if err != nil {
		return record.Image{}, fmt.Errorf("%w: base64: %v", ErrDecode, err)
	}
	return record.Image{Data: raw, MIMEType: DetectMIME(raw, meta)}, nil
}
