package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cheap parameters keep the tests fast
func testHasher() *Argon2Hasher {
	return &Argon2Hasher{Time: 1, Memory: 1024, Threads: 1}
}

func TestArgon2Hasher_RoundTrip(t *testing.T) {
	h := testHasher()

	encoded, err := h.Hash("hunter2")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=1024,t=1,p=1$"))
	assert.NotContains(t, encoded, "hunter2")

	ok, err := h.Verify("hunter2", encoded)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("hunter3", encoded)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestArgon2Hasher_SaltedPerHash(t *testing.T) {
	h := testHasher()
	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestArgon2Hasher_ParamsTravelWithHash(t *testing.T) {
	encoded, err := testHasher().Hash("pw")
	require.NoError(t, err)

	// a hasher with different defaults still verifies old hashes
	ok, err := NewArgon2Hasher().Verify("pw", encoded)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestArgon2Hasher_InvalidHash(t *testing.T) {
	h := testHasher()
	for _, bad := range []string{"", "plaintext", "$bcrypt$x$y$z$w", "$argon2id$v=19$m=x$salt$hash"} {
		_, err := h.Verify("pw", bad)
		assert.ErrorIs(t, err, ErrInvalidHash, bad)
	}
}

func TestArgon2Hasher_RejectsUnsafeParams(t *testing.T) {
	h := testHasher()
	const tail = "$c2FsdHNhbHRzYWx0c2FsdA$a2V5a2V5a2V5a2V5a2V5a2V5a2V5a2V5a2V5a2U"
	cases := map[string]string{
		"zero threads":   "$argon2id$v=19$m=1024,t=1,p=0" + tail,
		"zero time":      "$argon2id$v=19$m=1024,t=0,p=1" + tail,
		"memory too low": "$argon2id$v=19$m=4,t=1,p=1" + tail,
		"memory huge":    "$argon2id$v=19$m=4294967295,t=1,p=1" + tail,
		"time huge":      "$argon2id$v=19$m=1024,t=100000,p=1" + tail,
		"empty key":      "$argon2id$v=19$m=1024,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$",
	}
	for name, encoded := range cases {
		t.Run(name, func(t *testing.T) {
			var err error
			assert.NotPanics(t, func() { _, err = h.Verify("pw", encoded) })
			assert.ErrorIs(t, err, ErrInvalidHash)
		})
	}
}
