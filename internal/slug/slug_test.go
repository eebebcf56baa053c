package slug

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromName(t *testing.T) {
	cases := map[string]string{
		"Black Lotus":                "black-lotus",
		"  Jace, the Mind Sculptor ": "jace-the-mind-sculptor",
		"Pikachu V (Full Art)":       "pikachu-v-full-art",
		"Blue-Eyes White Dragon":     "blue-eyes-white-dragon",
		"Pokémon Center":             "pok-mon-center",
		"--Already--Slugged--":       "already-slugged",
		"!!!":                        Fallback,
		"":                           Fallback,
	}

	for in, want := range cases {
		assert.Equal(t, want, FromName(in), "input %q", in)
	}
}

func TestUnique(t *testing.T) {
	taken := map[string]bool{"black-lotus": true, "black-lotus-1": true}
	exists := func(s string) (bool, error) { return taken[s], nil }

	got, err := Unique("black-lotus", exists)
	require.NoError(t, err)
	assert.Equal(t, "black-lotus-2", got)

	got, err = Unique("mox-pearl", exists)
	require.NoError(t, err)
	assert.Equal(t, "mox-pearl", got)
}

func TestUniquePropagatesLookupError(t *testing.T) {
	boom := errors.New("db closed")

	_, err := Unique("anything", func(string) (bool, error) { return false, boom })

	assert.ErrorIs(t, err, boom)
}
