package base64_test

import (
	"testing"

	"studio/shared/base64"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 1x1 transparent png.
const pixel = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII="

func TestGetContentType(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "png", in: pixel, want: "image/png"},
		{name: "webp", in: "data:image/webp;base64,AAAA", want: "image/webp"},
		{name: "missing marker", in: "data:image/png,AAAA", want: ""},
		{name: "bare payload", in: "AAAA", want: ""},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, base64.GetContentType(tt.in))
		})
	}
}

func TestDecode(t *testing.T) {
	data, contentType, err := base64.Decode(pixel)

	require.NoError(t, err)
	assert.Equal(t, "image/png", contentType)
	assert.Equal(t, []byte("\x89PNG"), data[:4])
	assert.Equal(t, len(data), base64.DecodedLen(pixel))
}

func TestDecode_Invalid(t *testing.T) {
	for _, in := range []string{"aGVsbG8=", "data:image/png;base64,***", ""} {
		_, _, err := base64.Decode(in)

		assert.ErrorIs(t, err, base64.ErrInvalidDataURL, in)
	}
}

func TestDecodedLen_Padding(t *testing.T) {
	assert.Equal(t, len("Hello World"), base64.DecodedLen("data:text/plain;base64,SGVsbG8gV29ybGQ="))
	assert.Equal(t, len("Hi"), base64.DecodedLen("data:text/plain;base64,SGk="))
}

func TestGetContentType_RequiresDataScheme(t *testing.T) {
	assert.Empty(t, base64.GetContentType("image/png;base64,AAAA"))
}
