package jira

import (
	"github.com/helixdata/helix/pkg/config"
	"github.com/helixdata/helix/pkg/connector/core"
	"github.com/helixdata/helix/pkg/connector/registry"
)

func init() {
	registry.RegisterSource("jira", func(cfg *config.BaseConfig) (core.Source, error) {
		return NewJiraSource("jira", cfg)
	})
}
