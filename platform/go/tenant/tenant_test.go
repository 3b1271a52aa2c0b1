package tenant

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		raw     string
		want    Key
		wantErr bool
	}{
		{name: "simple", raw: "acme", want: "acme"},
		{name: "upper case folded", raw: "AcMe", want: "acme"},
		{name: "dashes allowed", raw: "acme-co", want: "acme-co"},
		{name: "digits allowed", raw: "acme42", want: "acme42"},
		{name: "surrounding space trimmed", raw: " acme ", want: "acme"},
		{name: "empty", raw: "", wantErr: true},
		{name: "space only", raw: "   ", wantErr: true},
		{name: "leading dash", raw: "-acme", wantErr: true},
		{name: "trailing dash", raw: "acme-", wantErr: true},
		{name: "underscore rejected", raw: "acme_co", wantErr: true},
		{name: "dot rejected", raw: "acme.co", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			key, err := Normalize(tc.raw)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrInvalidKey)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, key)
		})
	}
}

func TestEnvSegment(t *testing.T) {
	t.Parallel()

	require.Equal(t, "ACME", Key("acme").EnvSegment())
	require.Equal(t, "ACME_CO", Key("acme-co").EnvSegment())
}

func TestRequireKeyUnset(t *testing.T) {
	t.Parallel()

	_, err := RequireKey(context.Background())
	require.True(t, errors.Is(err, ErrNoTenant))
}

func TestKeyRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := WithKey(context.Background(), Key("acme"))

	key, err := RequireKey(ctx)
	require.NoError(t, err)
	require.Equal(t, Key("acme"), key)
}

func TestReferenceRoundTrip(t *testing.T) {
	t.Parallel()

	_, err := RequireReference(context.Background())
	require.ErrorIs(t, err, ErrNoTenant)

	ctx := WithReference(context.Background(), "ref-1234")
	ref, ok := ReferenceFromContext(ctx)
	require.True(t, ok)
	require.Equal(t, "ref-1234", ref)
}
