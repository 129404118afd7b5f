package jsonl

import (
	"github.com/helixdata/helix/pkg/config"
	"github.com/helixdata/helix/pkg/connector/core"
	"github.com/helixdata/helix/pkg/connector/registry"
)

func init() {
	registry.RegisterDestination("jsonl", func(cfg *config.BaseConfig) (core.Destination, error) {
		return NewJSONLDestination(cfg)
	})
}
