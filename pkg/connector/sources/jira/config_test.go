package jira

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixdata/helix/pkg/config"
)

func baseConfigWithCreds(creds map[string]string) *config.BaseConfig {
	cfg := config.NewBaseConfig("test-jira", "source")
	cfg.Security.Credentials = creds
	return cfg
}

func TestNewSourceConfig(t *testing.T) {
	t.Run("basic auth", func(t *testing.T) {
		cfg := baseConfigWithCreds(map[string]string{
			"domain":     "example.atlassian.net",
			"email":      "dev@example.com",
			"api_token":  "secret",
			"start_date": "2024-01-01",
		})

		sc, err := newSourceConfig(cfg)
		require.NoError(t, err)
		assert.Equal(t, authTypeBasic, sc.AuthType)
		assert.Equal(t, "2024-01-01", sc.StartDate)
		assert.Equal(t, "https://example.atlassian.net/rest/api/3", sc.coreBaseURL())
		assert.Equal(t, "https://example.atlassian.net/rest/agile/1.0", sc.agileBaseURL())
	})

	t.Run("bearer auth", func(t *testing.T) {
		cfg := baseConfigWithCreds(map[string]string{
			"domain":       "example.atlassian.net",
			"auth_type":    "bearer",
			"access_token": "tok",
		})

		sc, err := newSourceConfig(cfg)
		require.NoError(t, err)
		assert.Equal(t, authTypeBearer, sc.AuthType)
	})

	t.Run("explicit origin keeps scheme", func(t *testing.T) {
		cfg := baseConfigWithCreds(map[string]string{
			"domain":    "http://localhost:8080",
			"email":     "dev@example.com",
			"api_token": "secret",
		})

		sc, err := newSourceConfig(cfg)
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:8080/rest/api/3", sc.coreBaseURL())
	})

	t.Run("stream selection parses csv", func(t *testing.T) {
		cfg := baseConfigWithCreds(map[string]string{
			"domain":    "example.atlassian.net",
			"email":     "dev@example.com",
			"api_token": "secret",
			"streams":   "issues, boards ,sprints",
		})

		sc, err := newSourceConfig(cfg)
		require.NoError(t, err)
		assert.Equal(t, []string{"issues", "boards", "sprints"}, sc.Streams)
		assert.True(t, sc.selected("issues"))
		assert.False(t, sc.selected("users"))
	})

	t.Run("empty selection selects everything", func(t *testing.T) {
		cfg := baseConfigWithCreds(map[string]string{
			"domain":    "example.atlassian.net",
			"email":     "dev@example.com",
			"api_token": "secret",
		})

		sc, err := newSourceConfig(cfg)
		require.NoError(t, err)
		assert.True(t, sc.selected("anything"))
	})

	t.Run("validation failures", func(t *testing.T) {
		tests := []struct {
			name  string
			creds map[string]string
		}{
			{"missing domain", map[string]string{"email": "e", "api_token": "t"}},
			{"basic without token", map[string]string{"domain": "d", "email": "e"}},
			{"bearer without token", map[string]string{"domain": "d", "auth_type": "bearer"}},
			{"unknown auth type", map[string]string{"domain": "d", "auth_type": "kerberos"}},
			{"bad issues page size", map[string]string{
				"domain": "d", "email": "e", "api_token": "t", "issues_page_size": "lots",
			}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := newSourceConfig(baseConfigWithCreds(tt.creds))
				assert.Error(t, err)
			})
		}
	})

	t.Run("nil config", func(t *testing.T) {
		_, err := newSourceConfig(nil)
		assert.Error(t, err)
	})
}

func TestStreamTable(t *testing.T) {
	table := streamTable()
	byName := make(map[string]*StreamDescriptor, len(table))
	for _, desc := range table {
		byName[desc.Name] = desc
	}

	t.Run("names are unique", func(t *testing.T) {
		assert.Len(t, byName, len(table))
	})

	t.Run("parents precede children", func(t *testing.T) {
		seen := make(map[string]bool)
		for _, desc := range table {
			if desc.Parent != "" {
				assert.Truef(t, seen[desc.Parent], "parent %s of %s must come first", desc.Parent, desc.Name)
			}
			seen[desc.Name] = true
		}
	})

	t.Run("child paths reference context keys", func(t *testing.T) {
		for _, desc := range table {
			if desc.Parent == "" {
				continue
			}
			parent := byName[desc.Parent]
			require.NotNil(t, parent, desc.Name)
			require.NotNil(t, parent.ChildContext, desc.Parent)

			ctx := parent.ChildContext(map[string]interface{}{"id": "1"})
			_, err := bindPath(desc.Path, ctx)
			assert.NoErrorf(t, err, "path %s must bind from %s context", desc.Path, desc.Parent)
		}
	})

	t.Run("fan-out references existing streams", func(t *testing.T) {
		desc := byName["project_role_actors"]
		require.NotNil(t, desc)
		require.NotNil(t, desc.FanOut)
		assert.Contains(t, byName, desc.FanOut.Left)
		assert.Contains(t, byName, desc.FanOut.Right)

		path := desc.FanOut.Path(
			map[string]interface{}{"id": "10001"},
			map[string]interface{}{"id": float64(10100)},
		)
		assert.Equal(t, "/project/10001/role/10100", path)
	})

	t.Run("incremental streams declare a replication key", func(t *testing.T) {
		for _, desc := range table {
			if desc.Mode == ReplicationIncremental {
				assert.NotEmptyf(t, desc.ReplicationKey, "stream %s", desc.Name)
			} else {
				assert.Emptyf(t, desc.ReplicationKey, "stream %s", desc.Name)
			}
		}
	})
}
