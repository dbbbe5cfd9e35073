package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/josephgoksu/ngbuild/internal/errs"
)

// ScriptTargets lists the supported script targets in ascending order.
var ScriptTargets = []string{"es5", "es2015", "es2016", "es2017", "es2018", "es2019", "es2020", "esnext"}

// validate is a singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()

	// Report json field names so errors match manifest paths.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation("script_target", func(fl validator.FieldLevel) bool {
		return IsScriptTarget(fl.Field().String())
	})
}

// IsScriptTarget reports whether t is a supported script target.
func IsScriptTarget(t string) bool {
	t = strings.ToLower(t)
	for _, known := range ScriptTargets {
		if t == known {
			return true
		}
	}
	return false
}

// ValidateSchema checks enum and range constraints of every project of the
// manifest. The first violation is returned as an InvalidConfigError.
func ValidateSchema(cfg *AngularBuildConfig) error {
	for i, app := range cfg.Apps {
		if err := ValidateProject(app, ProjectTypeApp, fmt.Sprintf("apps[%d]", i)); err != nil {
			return err
		}
	}
	for i, lib := range cfg.Libs {
		if err := ValidateProject(lib, ProjectTypeLib, fmt.Sprintf("libs[%d]", i)); err != nil {
			return err
		}
	}
	return nil
}

// ValidateProject checks the schema constraints of one declared project,
// including its environment override blocks. path prefixes error paths.
func ValidateProject(cfg ProjectConfig, kind ProjectType, path string) error {
	if kind == ProjectTypeApp && (len(cfg.TsTranspilations) > 0 || len(cfg.BundleTargets) > 0) {
		return errs.InvalidConfig(path, "tsTranspilations and bundleTargets are only supported for libs")
	}

	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validate %s: %w", path, err)
	}
	first := verrs[0]
	return errs.InvalidConfig(path+"."+fieldPath(first), "%s", formatValidationError(first))
}

// ValidateBuildOptions checks the merged build options.
func ValidateBuildOptions(opts *BuildOptions) error {
	err := validate.Struct(opts)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validate build options: %w", err)
	}
	return errs.InvalidConfig("buildOptions."+verrs[0].Field(), "%s", formatValidationError(verrs[0]))
}

// fieldPath strips the root struct name from the validator namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

// formatValidationError creates a human-readable error message
func formatValidationError(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", err.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s (got %q)", err.Field(), err.Param(), err.Value())
	case "script_target":
		return fmt.Sprintf("%s must be one of: %s (got %q)", err.Field(), strings.Join(ScriptTargets, " "), err.Value())
	case "min":
		return fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", err.Field(), err.Tag())
	}
}
