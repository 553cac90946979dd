package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateProfileURL_Accepts(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "https://www.linkedin.com/in/john-doe-123/", "https://www.linkedin.com/in/john-doe-123/"},
		{"no www", "https://linkedin.com/in/jdoe", "https://linkedin.com/in/jdoe"},
		{"http", "http://www.linkedin.com/in/jdoe", "http://www.linkedin.com/in/jdoe"},
		{"query string", "https://www.linkedin.com/in/jdoe?ref=search", "https://www.linkedin.com/in/jdoe?ref=search"},
		{"surrounding whitespace", "  https://www.linkedin.com/in/jdoe/  ", "https://www.linkedin.com/in/jdoe/"},
		{"percent-encoded handle", "https://www.linkedin.com/in/j%C3%B8rgen", "https://www.linkedin.com/in/j%C3%B8rgen"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateProfileURL(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateProfileURL_Rejects(t *testing.T) {
	tests := []string{
		"",
		"not-a-url",
		"https://linkedin.com/company/acme",
		"https://linkedin.com/jobs/view/123",
		"https://example.com/in/john",
		"https://www.linkedin.com/in/",
	}

	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			_, err := ValidateProfileURL(in)
			assert.ErrorIs(t, err, ErrInvalidProfileURL)
		})
	}
}

func TestResolveEmail_Precedence(t *testing.T) {
	explicit := "jane@acme.com"
	inferred := "jane.doe@acme.com"

	t.Run("explicit wins", func(t *testing.T) {
		ins := ProfileInsights{EmailExplicit: &explicit, EmailInferred: &inferred}
		ins.ResolveEmail()
		require.NotNil(t, ins.Email)
		assert.Equal(t, explicit, *ins.Email)
	})

	t.Run("inferred fallback", func(t *testing.T) {
		ins := ProfileInsights{EmailInferred: &inferred}
		ins.ResolveEmail()
		require.NotNil(t, ins.Email)
		assert.Equal(t, inferred, *ins.Email)
	})

	t.Run("nil when neither set", func(t *testing.T) {
		stale := "stale@acme.com"
		ins := ProfileInsights{Email: &stale}
		ins.ResolveEmail()
		assert.Nil(t, ins.Email)
	})

	t.Run("empty strings treated as unset", func(t *testing.T) {
		empty := ""
		ins := ProfileInsights{EmailExplicit: &empty, EmailInferred: &inferred}
		ins.ResolveEmail()
		require.NotNil(t, ins.Email)
		assert.Equal(t, inferred, *ins.Email)
	})
}
