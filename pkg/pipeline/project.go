package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/directional-star/diggit/pkg/gitlib"
	"github.com/directional-star/diggit/pkg/reporter"
)

// ProjectConfigFile is the per-project configuration document, read from the
// root of the analysed head.
const ProjectConfigFile = ".diggit.yml"

// ErrInvalidProjectConfig is returned when the project configuration is not a
// mapping of reporter names to mappings.
var ErrInvalidProjectConfig = errors.New("invalid project config")

const projectSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": {
    "type": ["object", "null"]
  }
}`

var projectSchemaLoader = gojsonschema.NewStringLoader(projectSchema)

// ProjectConfig maps reporter names to their configuration.
type ProjectConfig map[string]reporter.Config

// For returns the configuration of the named reporter, empty when absent.
func (p ProjectConfig) For(name string) reporter.Config {
	if cfg, ok := p[name]; ok && cfg != nil {
		return cfg
	}

	return reporter.Config{}
}

// LoadProjectConfig reads [ProjectConfigFile] from head. A missing file
// yields an empty configuration.
func LoadProjectConfig(ctx context.Context, repo *gitlib.Repository, head gitlib.Hash) (ProjectConfig, error) {
	commit, err := repo.LookupCommit(ctx, head)
	if err != nil {
		return nil, err
	}
	defer commit.Free()

	data, _, err := commit.FileContents(ProjectConfigFile)
	if errors.Is(err, gitlib.ErrFileNotFound) {
		return ProjectConfig{}, nil
	}

	if err != nil {
		return nil, err
	}

	return ParseProjectConfig(data)
}

// ParseProjectConfig decodes and validates a project configuration document.
func ParseProjectConfig(data []byte) (ProjectConfig, error) {
	var doc map[string]any

	err := yaml.Unmarshal(data, &doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidProjectConfig, err)
	}

	if doc == nil {
		return ProjectConfig{}, nil
	}

	result, err := gojsonschema.Validate(projectSchemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidProjectConfig, err)
	}

	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, verr := range result.Errors() {
			problems = append(problems, verr.String())
		}

		return nil, fmt.Errorf("%w: %s", ErrInvalidProjectConfig, strings.Join(problems, "; "))
	}

	cfg := make(ProjectConfig, len(doc))

	for name, section := range doc {
		values, _ := section.(map[string]any)
		cfg[name] = reporter.Config(values)
	}

	return cfg, nil
}
