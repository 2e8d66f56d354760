// Package models resolves which backend model an agent step should use.
package models

import (
	"github.com/sirupsen/logrus"

	"github.com/uiforge/uiforge/internal/config"
	"github.com/uiforge/uiforge/internal/tcc"
)

// Hardcoded last-resort model. Selecting it means the catalog has no entry
// for the agent, which is a configuration problem, not a normal path.
const (
	DefaultProvider = "ollama"
	DefaultModel    = "llama3.1"
)

// Choice is a resolved (provider, model) pair.
type Choice struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// Selector resolves models through a priority chain. It never fails: step
// execution must not be blocked by configuration gaps.
type Selector struct {
	catalog config.ModelsConfig
	// byModel maps model id -> provider name, built once at construction.
	byModel map[string]string
	log     *logrus.Entry
}

// NewSelector builds a Selector over a static catalog.
func NewSelector(catalog config.ModelsConfig, log *logrus.Entry) *Selector {
	byModel := make(map[string]string)
	for name, p := range catalog.Providers {
		for _, m := range p.Models {
			byModel[m] = name
		}
	}
	return &Selector{catalog: catalog, byModel: byModel, log: log}
}

// Select resolves the model for an agent. Resolution order, first match wins:
//
//  1. caller-supplied model id, if the catalog maps it to a provider
//  2. the context's AgentModelMapping entry for the agent
//  3. the configured primary model for the agent
//  4. the configured fallback model for the agent
//  5. the hardcoded default, logged as a configuration problem
func (s *Selector) Select(agent string, callerModel string, t *tcc.ToolConstructionContext) Choice {
	if c, ok := s.resolve(callerModel); ok {
		return c
	}
	if callerModel != "" {
		s.log.WithFields(logrus.Fields{"agent": agent, "model": callerModel}).
			Debug("caller-supplied model not in catalog, falling through")
	}

	if t != nil {
		if c, ok := s.resolve(t.AgentModelMapping[agent]); ok {
			return c
		}
	}

	agentCfg := s.catalog.Agents[agent]
	if c, ok := s.resolve(agentCfg.Primary); ok {
		return c
	}
	if c, ok := s.resolve(agentCfg.Fallback); ok {
		s.log.WithFields(logrus.Fields{"agent": agent, "model": agentCfg.Fallback}).
			Info("primary model unavailable, using configured fallback")
		return c
	}

	s.log.WithFields(logrus.Fields{
		"agent":    agent,
		"provider": DefaultProvider,
		"model":    DefaultModel,
	}).Warn("no model configured for agent, using hardcoded default")
	return Choice{Provider: DefaultProvider, Model: DefaultModel}
}

// resolve maps a model id to a Choice if the catalog declares it.
func (s *Selector) resolve(model string) (Choice, bool) {
	if model == "" {
		return Choice{}, false
	}
	provider, ok := s.byModel[model]
	if !ok {
		return Choice{}, false
	}
	return Choice{Provider: provider, Model: model}, true
}
