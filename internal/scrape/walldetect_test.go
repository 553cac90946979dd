package scrape

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectWall(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		wantWall bool
	}{
		{
			name:     "sign-in wall",
			html:     "<html><body>Sign in to LinkedIn</body></html>",
			wantWall: true,
		},
		{
			name:     "security verification",
			html:     "<html><body>Security verification</body></html>",
			wantWall: true,
		},
		{
			name:     "auth wall marker in boilerplate",
			html:     `<html><head><meta content="https://www.linkedin.com/authwall?x"></head><body></body></html>`,
			wantWall: true,
		},
		{
			name:     "checkpoint challenge",
			html:     `<html><body><form action="/checkpoint/challenge/v2"></form></body></html>`,
			wantWall: true,
		},
		{
			name:     "unusual activity",
			html:     "<html><body>We&#39;ve noticed some unusual activity from your network</body></html>",
			wantWall: true,
		},
		{
			name:     "captcha page caught by missing profile tokens",
			html:     "<html><body>captcha</body></html>",
			wantWall: true,
		},
		{
			name:     "rendered profile",
			html:     "<html><body><div class='pv-top-card'>Profile</div><div>Experience</div></body></html>",
			wantWall: false,
		},
		{
			name:     "profile with only positive words",
			html:     "<html><body><section>About</section><section>Education</section></body></html>",
			wantWall: false,
		},
		{
			name:     "unrelated page",
			html:     "<html><body><h1>Welcome to our store</h1></body></html>",
			wantWall: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := DetectWall(tt.html)
			assert.Equal(t, tt.wantWall, v.IsWall)
			if tt.wantWall {
				assert.NotEmpty(t, v.Reason)
			} else {
				assert.Empty(t, v.Reason)
			}
		})
	}
}

func TestDetectWall_EmptyContent(t *testing.T) {
	assert.Equal(t, Verdict{IsWall: true, Reason: "empty content"}, DetectWall(""))
	assert.Equal(t, Verdict{IsWall: true, Reason: "empty content"}, DetectWall("   \n\t"))
}

func TestDetectWall_Deterministic(t *testing.T) {
	html := "<html><body>Sign in to LinkedIn</body></html>"
	assert.Equal(t, DetectWall(html), DetectWall(html))
}

func TestDetectWall_CaseInsensitive(t *testing.T) {
	v := DetectWall("<html><body>SIGN IN TO LINKEDIN</body></html>")
	assert.True(t, v.IsWall)
	assert.Equal(t, "sign-in wall", v.Reason)
}
