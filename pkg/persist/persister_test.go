package persist

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type persisterState struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

func TestPersister_SaveLoad(t *testing.T) {
	t.Parallel()

	for _, codec := range []Codec{NewJSONCodec(), NewGobCodec()} {
		dir := t.TempDir()
		p := NewPersister[persisterState]("mystate", codec)

		original := persisterState{Label: "hello", Value: 42}

		require.NoError(t, p.Save(dir, &original))
		assert.Equal(t, filepath.Join(dir, "mystate"+codec.Extension()), p.Path(dir))

		restored, err := p.Load(dir)
		require.NoError(t, err)
		assert.Equal(t, original, *restored)
	}
}

func TestPersister_LoadMissing(t *testing.T) {
	t.Parallel()

	p := NewPersister[persisterState]("absent", NewJSONCodec())

	_, err := p.Load(t.TempDir())
	require.Error(t, err)
}
