package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ListDef is one mailing list in the YAML registry. Name is the URL slug
// the archive serves the list under.
type ListDef struct {
	Name        string `yaml:"name" validate:"required,hostname_rfc1123,max=64"`
	Address     string `yaml:"address" validate:"required,email"`
	Description string `yaml:"description" validate:"max=500"`
	Hidden      bool   `yaml:"hidden"`
}

type listRegistry struct {
	Lists []ListDef `yaml:"lists" validate:"required,min=1,dive"`
}

// reservedListNames collide with the route namespace and can never be
// used as list slugs.
var reservedListNames = map[string]bool{
	"-":      true,
	"static": true,
}

// LoadLists reads and validates the YAML list registry, e.g.
//
//	lists:
//	  - name: gopherlist-dev
//	    address: dev@lists.example.org
//	    description: Development discussion
func LoadLists(path string) ([]ListDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading lists file: %w", err)
	}

	var reg listRegistry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parsing lists file: %w", err)
	}

	if err := validateLists(&reg); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(reg.Lists))
	for _, l := range reg.Lists {
		if reservedListNames[l.Name] {
			return nil, fmt.Errorf("lists file: list name %q is reserved", l.Name)
		}
		if seen[l.Name] {
			return nil, fmt.Errorf("lists file: duplicate list name %q", l.Name)
		}
		seen[l.Name] = true
	}

	return reg.Lists, nil
}

// ValidateList checks a single list definition, for lists created outside
// the registry file (e.g. through the admin UI).
func ValidateList(def ListDef) error {
	if reservedListNames[def.Name] {
		return fmt.Errorf("list name %q is reserved", def.Name)
	}

	validate := validator.New()
	err := validate.Struct(def)
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		msgs := make([]string, 0, len(errs))
		for _, e := range errs {
			msgs = append(msgs, fmt.Sprintf("%s failed rule '%s'", strings.ToLower(e.Field()), e.Tag()))
		}
		return fmt.Errorf("invalid list: %s", strings.Join(msgs, "; "))
	}
	return err
}

func validateLists(reg *listRegistry) error {
	validate := validator.New()
	err := validate.Struct(reg)
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		msgs := make([]string, 0, len(errs))
		for _, e := range errs {
			msg := fmt.Sprintf("%s failed rule '%s'", e.StructNamespace(), e.Tag())
			if e.Param() != "" {
				msg += fmt.Sprintf(" (expected: %s)", e.Param())
			}
			msgs = append(msgs, msg)
		}
		return fmt.Errorf("lists file validation failed:\n  %s", strings.Join(msgs, "\n  "))
	}
	return fmt.Errorf("lists file validation error: %w", err)
}
