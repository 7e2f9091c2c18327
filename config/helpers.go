package config

import (
	"github.com/input-output-hk/catalyst-forge-delivery/domain"
	"github.com/input-output-hk/catalyst-forge-delivery/errors"
	"github.com/input-output-hk/catalyst-forge-delivery/rollout"
)

// Routes returns one route per pipeline, in configuration order.
func (c *DeliveryConfig) Routes() []domain.PipelineRoute {
	routes := make([]domain.PipelineRoute, 0, len(c.Pipelines))
	for _, p := range c.Pipelines {
		routes = append(routes, domain.PipelineRoute{
			PipelineName:        p.Name,
			WatchedPathPrefixes: append([]string(nil), p.WatchedPaths...),
		})
	}
	return routes
}

// ListPipelines returns the pipeline names in configuration order.
func (c *DeliveryConfig) ListPipelines() []string {
	names := make([]string, 0, len(c.Pipelines))
	for _, p := range c.Pipelines {
		names = append(names, p.Name)
	}
	return names
}

// Pipeline returns the named pipeline definition.
func (c *DeliveryConfig) Pipeline(name string) (domain.PipelineDefinition, bool) {
	for _, p := range c.Pipelines {
		if p.Name == name {
			return p, true
		}
	}
	return domain.PipelineDefinition{}, false
}

// StageGraph builds the stage graph of the named pipeline.
func (c *DeliveryConfig) StageGraph(name string, policy rollout.AccountPolicy) ([]domain.StageDefinition, error) {
	p, ok := c.Pipeline(name)
	if !ok {
		return nil, errors.Newf(errors.CodeNotFound, "pipeline %q is not configured", name)
	}
	return rollout.BuildStageGraph(p, policy)
}

// StageGraphs builds the stage graph of every pipeline. It fails on the
// first pipeline whose graph cannot be built.
func (c *DeliveryConfig) StageGraphs(policy rollout.AccountPolicy) (map[string][]domain.StageDefinition, error) {
	graphs := make(map[string][]domain.StageDefinition, len(c.Pipelines))
	for _, p := range c.Pipelines {
		g, err := rollout.BuildStageGraph(p, policy)
		if err != nil {
			return nil, err
		}
		graphs[p.Name] = g
	}
	return graphs, nil
}
