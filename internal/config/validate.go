package config

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed config.cue
var schemaSource string

// Validate checks the effective configuration against the embedded CUE
// schema. It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("config.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	schema = schema.LookupPath(cue.ParsePath("#Config"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("schema: %w", err)
	}

	unified := schema.Unify(ctx.Encode(c))
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return err
	}
	return nil
}
