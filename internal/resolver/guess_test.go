package resolver_test

import (
	"testing"

	"github.com/Brieuc-fav/scrapping-naf-domains-v2/internal/resolver"

	"github.com/stretchr/testify/require"
)

func TestGuessCandidates(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "two words",
			in:   "ACME CONSEIL",
			want: []string{"acmeconseil.fr", "acmeconseil.com", "acme-conseil.fr", "acme-conseil.com"},
		},
		{
			name: "legal form stripped",
			in:   "ACME CONSEIL SARL",
			want: []string{"acmeconseil.fr", "acmeconseil.com", "acme-conseil.fr", "acme-conseil.com"},
		},
		{
			name: "accents folded",
			in:   "Ingénierie Générale SAS",
			want: []string{"ingenieriegenerale.fr", "ingenieriegenerale.com", "ingenierie-generale.fr", "ingenierie-generale.com"},
		},
		{
			name: "single word",
			in:   "Acme",
			want: []string{"acme.fr", "acme.com"},
		},
		{
			name: "three words keeps two-word variant",
			in:   "Bureau Etudes Dupont",
			want: []string{
				"bureauetudesdupont.fr", "bureauetudesdupont.com", "bureauetudes.fr",
				"bureau-etudes-dupont.fr", "bureau-etudes-dupont.com",
			},
		},
		{
			name: "nothing usable",
			in:   "A & !",
			want: nil,
		},
		{
			name: "empty",
			in:   "",
			want: nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, resolver.GuessCandidates(tc.in))
		})
	}
}

func TestGuessCandidatesDeduplicated(t *testing.T) {
	got := resolver.GuessCandidates("Acme Conseil")
	seen := map[string]bool{}
	for _, c := range got {
		require.False(t, seen[c], "duplicate candidate %q", c)
		seen[c] = true
	}
}
