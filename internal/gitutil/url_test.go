package gitutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePullRequestURL(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		wantOwner string
		wantRepo  string
		wantID    int
		wantErr   bool
	}{
		{
			name:      "Valid HTTPS URL",
			url:       "https://github.com/acme/widgets/pull/123",
			wantOwner: "acme",
			wantRepo:  "widgets",
			wantID:    123,
		},
		{
			name:      "Valid URL without scheme",
			url:       "github.com/acme/widgets/pull/456",
			wantOwner: "acme",
			wantRepo:  "widgets",
			wantID:    456,
		},
		{
			name:      "URL with trailing slash",
			url:       "https://github.com/acme/widgets/pull/789/",
			wantOwner: "acme",
			wantRepo:  "widgets",
			wantID:    789,
		},
		{
			name:      "Files tab",
			url:       "https://github.com/acme/widgets/pull/12/files",
			wantOwner: "acme",
			wantRepo:  "widgets",
			wantID:    12,
		},
		{
			name:      "Fragment and query are ignored",
			url:       "https://github.com/acme/widgets/pull/12?w=1#discussion_r1",
			wantOwner: "acme",
			wantRepo:  "widgets",
			wantID:    12,
		},
		{
			name:    "Invalid PR ID",
			url:     "https://github.com/acme/widgets/pull/abc",
			wantErr: true,
		},
		{
			name:    "Zero PR ID",
			url:     "https://github.com/acme/widgets/pull/0",
			wantErr: true,
		},
		{
			name:    "Invalid format (missing pull)",
			url:     "https://github.com/acme/widgets/issues/123",
			wantErr: true,
		},
		{
			name:    "Invalid format (unknown tab)",
			url:     "https://github.com/acme/widgets/pull/123/blame",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner, repo, id, err := ParsePullRequestURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.wantOwner, owner)
				assert.Equal(t, tt.wantRepo, repo)
				assert.Equal(t, tt.wantID, id)
			}
		})
	}
}

func TestParseRepository(t *testing.T) {
	owner, repo, err := ParseRepository("acme/widgets")
	assert.NoError(t, err)
	assert.Equal(t, "acme", owner)
	assert.Equal(t, "widgets", repo)

	for _, bad := range []string{"", "acme", "acme/", "/widgets", "acme/widgets/extra"} {
		_, _, err := ParseRepository(bad)
		assert.Error(t, err, bad)
	}
}
