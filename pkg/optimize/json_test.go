package optimize

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type document struct {
	Name  string `json:"name"`
	Coins int64  `json:"coins"`
}

func TestEncodeJSON_MatchesMarshal(t *testing.T) {
	doc := document{Name: "Corona 👑", Coins: 1000}

	got, err := EncodeJSON(doc)
	require.NoError(t, err)

	want, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestEncodeJSON_ResultIsNotShared(t *testing.T) {
	first, err := EncodeJSON(document{Name: "a"})
	require.NoError(t, err)
	snapshot := string(first)

	for i := 0; i < 50; i++ {
		_, err := EncodeJSON(document{Name: "bbbbbbbbbbbbbbbbbbbbbbbbb", Coins: int64(i)})
		require.NoError(t, err)
	}
	assert.Equal(t, snapshot, string(first))
}

func TestEncodeJSON_Error(t *testing.T) {
	_, err := EncodeJSON(map[string]interface{}{"bad": make(chan int)})
	assert.Error(t, err)
}

type failingWriter struct{ writes int }

func (w *failingWriter) Write(p []byte) (int, error) {
	w.writes++
	return 0, errors.New("closed")
}

func TestWriteJSON(t *testing.T) {
	var out bytes.Buffer
	n, err := WriteJSON(&out, document{Name: "rosa", Coins: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(out.Len()), n)
	assert.JSONEq(t, `{"name":"rosa","coins":10}`, out.String())

	w := &failingWriter{}
	_, err = WriteJSON(w, map[string]interface{}{"bad": func() {}})
	assert.Error(t, err)
	assert.Zero(t, w.writes, "nothing is written when encoding fails")
}

func BenchmarkEncodeJSON(b *testing.B) {
	doc := document{Name: "estrella", Coins: 100}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = EncodeJSON(doc)
	}
}

func BenchmarkMarshal(b *testing.B) {
	doc := document{Name: "estrella", Coins: 100}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = json.Marshal(doc)
	}
}
