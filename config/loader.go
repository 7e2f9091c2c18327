package config

import (
	"context"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	gobilly "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/input-output-hk/catalyst-forge-delivery/domain"
	"github.com/input-output-hk/catalyst-forge-delivery/errors"
)

func load(ctx context.Context, fs gobilly.Filesystem, path string, opts LoadOptions) (*DeliveryConfig, error) {
	if fs == nil {
		return nil, errors.New(errors.CodeInvalidInput, "filesystem is nil")
	}

	data, err := util.ReadFile(fs, path)
	if err != nil {
		return nil, errors.WrapWithContext(
			err,
			errors.CodeConfigLoadFailed,
			"failed to read delivery configuration",
			map[string]any{"path": path},
		)
	}
	return parse(ctx, path, data, opts)
}

// parse compiles src, unifies it with the schema, decodes it and applies
// inherited defaults.
func parse(ctx context.Context, name string, src []byte, opts LoadOptions) (*DeliveryConfig, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cueCtx := cuecontext.New()
	schema := cueCtx.CompileString(schemaSource, cue.Filename("schema.cue")).LookupPath(cue.ParsePath("#Delivery"))
	if schema.Err() != nil {
		return nil, errors.Wrap(schema.Err(), errors.CodeInternal, "invalid embedded schema")
	}

	value := cueCtx.CompileBytes(src, cue.Filename(name))
	if value.Err() != nil {
		return nil, errors.WrapWithContext(
			value.Err(),
			errors.CodeConfigLoadFailed,
			"failed to compile delivery configuration",
			map[string]any{"path": name},
		)
	}

	unified := schema.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, errors.WrapWithContext(
			err,
			errors.CodeInvalidConfig,
			"delivery configuration does not match schema: "+describe(err),
			map[string]any{"path": name},
		)
	}

	var cfg DeliveryConfig
	if err := unified.Decode(&cfg); err != nil {
		return nil, errors.WrapWithContext(
			err,
			errors.CodeConfigDecodeFailed,
			"failed to decode delivery configuration",
			map[string]any{"path": name},
		)
	}
	cfg.applyDefaults()

	if !opts.SkipValidation {
		if err := validate(&cfg); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// describe lists every CUE error on one line.
func describe(err error) string {
	var msgs []string
	for _, e := range cueerrors.Errors(err) {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

func (c *DeliveryConfig) applyDefaults() {
	if c.Branch == "" {
		c.Branch = domain.DefaultBranch
	}
	for i := range c.Pipelines {
		p := &c.Pipelines[i]
		if p.Repository == "" {
			p.Repository = c.Repository
		}
		if p.Branch == "" {
			p.Branch = c.Branch
		}
		if len(p.Accounts) == 0 {
			p.Accounts = append([]domain.Account(nil), c.Accounts...)
		}
	}
}
