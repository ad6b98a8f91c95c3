package escrow

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIdentity(t *testing.T) {
	valid := IdentityPrefix + strings.Repeat("ab", 32)

	tests := []struct {
		name    string
		input   string
		want    Identity
		wantErr bool
	}{
		{"canonical", valid, Identity(valid), false},
		{"uppercase hex is normalized", IdentityPrefix + strings.Repeat("AB", 32), Identity(valid), false},
		{"surrounding whitespace", "  " + valid + "\n", Identity(valid), false},
		{"missing prefix", strings.Repeat("ab", 32), "", true},
		{"short", IdentityPrefix + "abcd", "", true},
		{"not hex", IdentityPrefix + strings.Repeat("zz", 32), "", true},
		{"zero hash", IdentityPrefix + strings.Repeat("00", 32), "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIdentity(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.Valid())
		})
	}
}

func TestDeriveIdentityDeterministic(t *testing.T) {
	a := DeriveIdentity(AlgorithmEd25519, []byte("alice"))
	b := DeriveIdentity(AlgorithmEd25519, []byte("alice"))
	c := DeriveIdentity(AlgorithmSecp256k1, []byte("alice"))
	d := DeriveIdentity(AlgorithmEd25519, []byte("bob"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c, "algorithm tag must separate key schemes")
	assert.NotEqual(t, a, d)
	assert.True(t, a.Valid())
	assert.Len(t, a.Bytes(), 32)
}

func TestIdentityValidRejectsNonCanonical(t *testing.T) {
	upper := Identity(IdentityPrefix + strings.Repeat("AB", 32))
	assert.False(t, upper.Valid())
	assert.Nil(t, upper.Bytes())
	assert.False(t, Identity("").Valid())
}

func TestIdentityShort(t *testing.T) {
	id := Identity(IdentityPrefix + "1a2b" + strings.Repeat("0", 56) + "9f0e")
	assert.Equal(t, "account-hash-1a2b…9f0e", id.Short())
	assert.Equal(t, "tiny", Identity("tiny").Short())
}

func TestMustParseIdentityPanics(t *testing.T) {
	assert.Panics(t, func() { MustParseIdentity("nope") })
}
