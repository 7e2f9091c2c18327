package config

import (
	"fmt"
	"strings"

	"github.com/input-output-hk/catalyst-forge-delivery/dispatch"
	"github.com/input-output-hk/catalyst-forge-delivery/errors"
	"github.com/input-output-hk/catalyst-forge-delivery/rollout"
)

// validate checks what the schema cannot: unique pipeline names, route
// invariants and every pipeline's account sequence.
//
// All problems are collected into one INVALID_CONFIGURATION error.
func validate(cfg *DeliveryConfig) error {
	if cfg == nil {
		return errors.New(errors.CodeInvalidInput, "delivery configuration is nil")
	}

	var validationErrors []string

	if len(cfg.Pipelines) == 0 {
		validationErrors = append(validationErrors, "no pipelines configured")
	}

	if err := dispatch.ValidateRoutes(cfg.Routes()); err != nil {
		validationErrors = append(validationErrors, flatten(err)...)
	}

	for _, p := range cfg.Pipelines {
		if err := rollout.ValidateDefinition(p); err != nil {
			for _, msg := range flatten(err) {
				validationErrors = append(validationErrors, fmt.Sprintf("pipeline %q: %s", p.Name, msg))
			}
		}
	}

	if len(validationErrors) > 0 {
		return errors.New(
			errors.CodeInvalidConfig,
			fmt.Sprintf("delivery configuration validation failed: %s", strings.Join(validationErrors, "; ")),
		)
	}
	return nil
}

// flatten returns the messages of the problems joined under a taxonomy error.
func flatten(err error) []string {
	var e *errors.Error
	if errors.As(err, &e) && e.Cause != nil {
		err = e.Cause
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var msgs []string
		for _, inner := range joined.Unwrap() {
			msgs = append(msgs, inner.Error())
		}
		return msgs
	}
	return []string{err.Error()}
}
