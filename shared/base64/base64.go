package base64

import (
	stdBase64 "encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const dataMarker = ";base64,"

var ErrInvalidDataURL = errors.New("invalid base64 data URL")

// GetContentType returns the media type of a data URL such as "data:image/png;base64,...".
func GetContentType(file string) string {
	rest, ok := strings.CutPrefix(file, "data:")
	if !ok {
		return ""
	}

	contentType, _, found := strings.Cut(rest, dataMarker)
	if !found {
		return ""
	}

	return contentType
}

func payload(file string) string {
	_, data, found := strings.Cut(file, dataMarker)
	if !found {
		return file
	}

	return data
}

// DecodedLen reports the size in bytes of the data carried by a data URL.
func DecodedLen(file string) int {
	return stdBase64.StdEncoding.DecodedLen(len(payload(file))) - strings.Count(payload(file), "=")
}

// Decode returns the bytes and media type carried by a data URL.
func Decode(file string) (data []byte, contentType string, err error) {
	contentType = GetContentType(file)
	if contentType == "" {
		return nil, "", ErrInvalidDataURL
	}

	data, err = stdBase64.StdEncoding.DecodeString(payload(file))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrInvalidDataURL, err)
	}

	return data, contentType, nil
}
