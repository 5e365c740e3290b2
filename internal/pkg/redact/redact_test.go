package redact

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmail_Table(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "ascii_local_gt_2", in: "researcher@lab.org", want: "re***@lab.org"},
		{name: "ascii_local_len_2", in: "ab@ex.com", want: "***@ex.com"},
		{name: "invalid_no_at", in: "no-at-here", want: "***"},
		{name: "invalid_multiple_at", in: "a@b@c", want: "***"},
		{name: "empty_string", in: "", want: "***"},
		{name: "unicode_local", in: "юзер@пример.рф", want: "юз***@пример.рф"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, Email(tt.in))
		})
	}
}

func TestToken_StableFingerprint(t *testing.T) {
	t.Parallel()

	a := Token("access-token-1")
	require.Equal(t, a, Token("access-token-1"))
	require.NotEqual(t, a, Token("access-token-2"))
	require.True(t, strings.HasPrefix(a, "tok:"))
	require.Len(t, a, len("tok:")+8)
	require.NotContains(t, a, "access")
}

func TestToken_Empty(t *testing.T) {
	t.Parallel()
	require.Equal(t, "tok:-", Token(""))
}
