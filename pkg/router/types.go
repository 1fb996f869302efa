package router

import (
	"mercator-hq/ccrelay/pkg/config"
	"mercator-hq/ccrelay/pkg/match"
	"mercator-hq/ccrelay/pkg/modelmap"
)

// Provider is the runtime form of config.ProviderConfig, with its model
// maps held as modelmap entries. Block-rule globs are compiled on the
// Router, not here.
type Provider struct {
	ID           string
	Name         string
	BaseURL      string
	Mode         string
	ProviderType string
	APIKey       string
	AuthHeader   string
	ModelMap     []modelmap.Entry
	VLModelMap   []modelmap.Entry
	Headers      map[string]string
	Enabled      bool
}

// IsOpenAI reports whether requests to this provider must be translated
// per pkg/convert before being forwarded.
func (p *Provider) IsOpenAI() bool {
	return p.ProviderType == "openai"
}

func providerFromConfig(id string, pc config.ProviderConfig) *Provider {
	name := pc.Name
	if name == "" {
		name = id
	}
	entries := func(es []config.ModelMapEntry) []modelmap.Entry {
		if len(es) == 0 {
			return nil
		}
		out := make([]modelmap.Entry, len(es))
		for i, e := range es {
			out[i] = modelmap.Entry{Pattern: e.Pattern, Model: e.Model}
		}
		return out
	}
	return &Provider{
		ID:           id,
		Name:         name,
		BaseURL:      pc.BaseURL,
		Mode:         pc.Mode,
		ProviderType: pc.ProviderType,
		APIKey:       pc.APIKey,
		AuthHeader:   pc.AuthHeader,
		ModelMap:     entries(pc.ModelMap),
		VLModelMap:   entries(pc.VLModelMap),
		Headers:      pc.Headers,
		Enabled:      pc.Enabled,
	}
}

// compiledBlock pairs a block rule with its precompiled glob matcher.
type compiledBlock struct {
	glob     *match.Glob
	response string
	code     int
}

func compileBlocks(rules []config.BlockRule) []compiledBlock {
	out := make([]compiledBlock, len(rules))
	for i, r := range rules {
		out[i] = compiledBlock{glob: match.CompileGlob(r.Path), response: r.Response, code: r.Code}
	}
	return out
}
