package rollout

import (
	"gopkg.in/yaml.v3"

	"github.com/input-output-hk/catalyst-forge-delivery/domain"
	ferrors "github.com/input-output-hk/catalyst-forge-delivery/errors"
)

// BuildSpecVersion is the CodeBuild buildspec syntax version rendered.
const BuildSpecVersion = "0.2"

// BuildSpec is a CodeBuild buildspec.
type BuildSpec struct {
	Version   string    `yaml:"version"`
	Phases    Phases    `yaml:"phases"`
	Artifacts Artifacts `yaml:"artifacts"`
}

// Phases lists the buildspec phases. CodeBuild runs them in the order
// install, pre_build, build, post_build regardless of their order here.
type Phases struct {
	PreBuild  *Phase `yaml:"pre_build,omitempty"`
	Install   *Phase `yaml:"install,omitempty"`
	Build     *Phase `yaml:"build,omitempty"`
	PostBuild *Phase `yaml:"post_build,omitempty"`
}

// Phase is one buildspec phase.
type Phase struct {
	Commands []string `yaml:"commands"`
}

// Artifacts describes what a build exports.
type Artifacts struct {
	BaseDirectory string   `yaml:"base-directory"`
	Files         []string `yaml:"files"`
}

// NewBuildSpec returns the buildspec of cmds, exporting the whole working
// directory.
func NewBuildSpec(cmds domain.Commands) BuildSpec {
	phase := func(c []string) *Phase {
		if len(c) == 0 {
			return nil
		}
		return &Phase{Commands: append([]string(nil), c...)}
	}
	return BuildSpec{
		Version: BuildSpecVersion,
		Phases: Phases{
			PreBuild:  phase(cmds.PreBuild),
			Install:   phase(cmds.Install),
			Build:     phase(cmds.Build),
			PostBuild: phase(cmds.PostBuild),
		},
		Artifacts: Artifacts{BaseDirectory: ".", Files: []string{"**/*"}},
	}
}

// RenderBuildSpec renders the buildspec of cmds as YAML.
func RenderBuildSpec(cmds domain.Commands) ([]byte, error) {
	out, err := yaml.Marshal(NewBuildSpec(cmds))
	if err != nil {
		return nil, ferrors.Wrap(err, ferrors.CodeInternal, "failed to render buildspec")
	}
	return out, nil
}

// ParseBuildSpec decodes a buildspec and returns its phase commands.
func ParseBuildSpec(data []byte) (domain.Commands, error) {
	var spec BuildSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return domain.Commands{}, ferrors.Wrap(err, ferrors.CodeInvalidConfig, "failed to parse buildspec")
	}
	if spec.Version != BuildSpecVersion {
		return domain.Commands{}, ferrors.Newf(ferrors.CodeInvalidConfig, "unsupported buildspec version %q", spec.Version)
	}
	commands := func(p *Phase) []string {
		if p == nil {
			return nil
		}
		return p.Commands
	}
	return domain.Commands{
		PreBuild:  commands(spec.Phases.PreBuild),
		Install:   commands(spec.Phases.Install),
		Build:     commands(spec.Phases.Build),
		PostBuild: commands(spec.Phases.PostBuild),
	}, nil
}
