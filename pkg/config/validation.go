package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags plus custom
// rules that cannot be expressed in tags.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	return validateCustomRules(cfg)
}

// validateCustomRules performs validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	// A credential pair is all-or-nothing: a username without a
	// password (or vice versa) is a misconfiguration, not anonymous
	// access.
	if (cfg.Server.Username == "") != (cfg.Server.Password == "") {
		return fmt.Errorf("server: username and password must be provided together")
	}

	// The badger store needs a database location unless it is running
	// in memory (tests).
	if cfg.Registry.Type == "badger" {
		path, _ := cfg.Registry.Badger["path"].(string)
		inMemory, _ := cfg.Registry.Badger["in_memory"].(bool)
		if path == "" && !inMemory {
			return fmt.Errorf("registry: badger store requires a path")
		}
	}

	return nil
}

// formatValidationError converts validator errors into readable
// messages naming the offending field.
func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	for _, fieldErr := range verrs {
		switch fieldErr.Tag() {
		case "required":
			return fmt.Errorf("%s: value is required", fieldErr.Namespace())
		case "oneof":
			return fmt.Errorf("%s: must be one of [%s], got %q",
				fieldErr.Namespace(), fieldErr.Param(), fieldErr.Value())
		case "url":
			return fmt.Errorf("%s: must be a valid URL, got %q",
				fieldErr.Namespace(), fieldErr.Value())
		case "gt", "gte", "lte":
			return fmt.Errorf("%s: value %v out of range (%s %s)",
				fieldErr.Namespace(), fieldErr.Value(), fieldErr.Tag(), fieldErr.Param())
		default:
			return fmt.Errorf("%s: failed %q validation", fieldErr.Namespace(), fieldErr.Tag())
		}
	}
	return err
}
