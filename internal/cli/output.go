package cli

import (
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/input-output-hk/catalyst-forge-delivery/errors"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

func render(w io.Writer, format string, v any) error {
	switch format {
	case "", formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return errors.Newf(errors.CodeInvalidInput, "unknown output format %q", format)
	}
}
