package util

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jpegHeader = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}

func TestSplitDataURL(t *testing.T) {
	payload, mime := SplitDataURL("data:image/png;base64,AAAA")
	assert.Equal(t, "AAAA", payload)
	assert.Equal(t, "image/png", mime)

	payload, mime = SplitDataURL("  AAAA ")
	assert.Equal(t, "AAAA", payload)
	assert.Empty(t, mime)
}

func TestDecodeBase64MaybeDataURL(t *testing.T) {
	b64 := base64.StdEncoding.EncodeToString(jpegHeader)

	data, mime, err := DecodeBase64MaybeDataURL(MakeDataURL("image/jpeg", b64))
	require.NoError(t, err)
	assert.Equal(t, jpegHeader, data)
	assert.Equal(t, "image/jpeg", mime)

	data, mime, err = DecodeBase64MaybeDataURL(base64.RawStdEncoding.EncodeToString(jpegHeader))
	require.NoError(t, err)
	assert.Equal(t, jpegHeader, data)
	assert.Empty(t, mime)

	_, _, err = DecodeBase64MaybeDataURL("data:image/png;base64,")
	assert.ErrorIs(t, err, ErrEmptyImage)

	_, _, err = DecodeBase64MaybeDataURL("!!not base64!!")
	assert.Error(t, err)
}

func TestPickMIME(t *testing.T) {
	assert.Equal(t, "image/webp", PickMIME("image/webp", "image/png", jpegHeader))
	assert.Equal(t, "image/png", PickMIME("", "image/png", jpegHeader))
	assert.Equal(t, "image/jpeg", PickMIME("", "", jpegHeader))
	assert.Equal(t, "image/jpeg", PickMIME("", "", []byte("plain text")))
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `[{"a":1}]`, StripCodeFences("```json\n[{\"a\":1}]\n```"))
	assert.Equal(t, `[]`, StripCodeFences("  []  "))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 3))
	assert.Equal(t, "ab…", Truncate("abc", 2))
	assert.Equal(t, "жё…", Truncate("жёлтый", 2))
}

func TestLoadPrompt(t *testing.T) {
	s, err := LoadPrompt("", "ewc.system", "builtin")
	require.NoError(t, err)
	assert.Equal(t, "builtin", s)

	dir := t.TempDir()
	s, err = LoadPrompt(dir, "ewc.system", "builtin")
	require.NoError(t, err)
	assert.Equal(t, "builtin", s)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "ewc.system.txt"), []byte("  custom\n"), 0o644))
	s, err = LoadPrompt(dir, "ewc.system", "builtin")
	require.NoError(t, err)
	assert.Equal(t, "custom", s)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.txt"), []byte(" \n"), 0o644))
	_, err = LoadPrompt(dir, "empty", "builtin")
	assert.Error(t, err)
}
