package config

import (
	errs "amplifier/internal/errors"
	"amplifier/internal/utils"
)

var logger = utils.NewComponentLogger("Config")

// ValidateAgentConfig checks the structural requirements of an agent
// configuration: a name must be present either at the top level or under
// "meta". A "system" section without an "instruction" subfield is legal but
// logged as a warning.
func ValidateAgentConfig(cfg map[string]any) error {
	_, hasName := cfg["name"]

	meta, _ := cfg["meta"].(map[string]any)
	_, hasMetaName := meta["name"]

	if !hasName && !hasMetaName {
		return errs.NewValidation("agent config",
			"must have 'name' (either at top level or in 'meta' section)")
	}

	if system, ok := cfg["system"].(map[string]any); ok {
		if _, ok := system["instruction"]; !ok {
			logger.Warn("Agent has 'system' section but no 'instruction'")
		}
	}

	return nil
}
