package textenc_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirbelkuyu/sqlanymig/internal/textenc"
)

func TestWindows1252RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w, err := textenc.NewWriter(&buf, "windows-1252")
	require.NoError(t, err)

	_, err = io.WriteString(w, "Müller,Straße")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.Equal(t, []byte{'M', 0xfc, 'l', 'l', 'e', 'r', ',', 'S', 't', 'r', 'a', 0xdf, 'e'}, buf.Bytes())

	decoded, err := textenc.DecodeBytes(buf.Bytes(), "windows-1252")
	require.NoError(t, err)
	assert.Equal(t, "Müller,Straße", decoded)

	r, err := textenc.NewReader(bytes.NewReader(buf.Bytes()), "windows-1252")
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "Müller,Straße", string(data))
}

func TestUTF8IsPassthrough(t *testing.T) {
	var buf bytes.Buffer
	w, err := textenc.NewWriter(&buf, "")
	require.NoError(t, err)
	_, err = io.WriteString(w, "ä")
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.Equal(t, "ä", buf.String())
}

func TestLookupUnknown(t *testing.T) {
	_, err := textenc.Lookup("klingon-8")
	assert.Error(t, err)
}

func TestPostgresName(t *testing.T) {
	assert.Equal(t, "UTF8", textenc.PostgresName("UTF-8"))
	assert.Equal(t, "WIN1252", textenc.PostgresName("windows-1252"))
	assert.Equal(t, "LATIN1", textenc.PostgresName("ISO-8859-1"))
	assert.Equal(t, "EUC_JP", textenc.PostgresName("euc_jp"))
}
