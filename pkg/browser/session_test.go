package browser

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSessionState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"cookies": [
			{"name": "li_at", "value": "secret", "domain": ".linkedin.com", "path": "/", "expires": 1893456000.5, "httpOnly": true, "secure": true}
		]
	}`), 0o600))

	state, err := LoadSessionState(path)
	require.NoError(t, err)
	require.Len(t, state.Cookies, 1)

	c := state.Cookies[0]
	assert.Equal(t, "li_at", c.Name)
	assert.Equal(t, ".linkedin.com", c.Domain)
	assert.True(t, c.HTTPOnly)
	assert.True(t, c.Secure)
}

func TestLoadSessionState_Missing(t *testing.T) {
	_, err := LoadSessionState(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoadSessionState_BadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))
	_, err := LoadSessionState(path)
	assert.Error(t, err)
}

func TestTimeFromEpoch(t *testing.T) {
	got := timeFromEpoch(1893456000.5)
	assert.Equal(t, time.Unix(1893456000, int64(500*time.Millisecond)).Unix(), got.Unix())
}
