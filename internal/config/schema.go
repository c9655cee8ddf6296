package config

import (
	"encoding/json"
	"strings"

	cferrors "github.com/systmms/credfresh/internal/errors"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// configSchema is the structural contract for credfresh.yaml. Semantic rules
// (threshold ordering, positive ages) live in Definition.validate; the schema
// catches shape mistakes with field-level messages before decoding.
const configSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "version": {"type": "integer"},
    "check_interval_hours": {"type": "integer", "minimum": 1},
    "expiration_warning_days": {"type": "integer", "minimum": 1},
    "expiration_critical_days": {"type": "integer", "minimum": 1},
    "store": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "type": {"type": "string", "enum": ["file", "keyring", "aws-secretsmanager"]},
        "path": {"type": "string"},
        "region": {"type": "string"},
        "prefix": {"type": "string"}
      }
    },
    "services": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "additionalProperties": false,
        "properties": {
          "expiration_days": {"type": "integer"},
          "critical": {"type": "boolean"},
          "accounts": {"type": "array", "items": {"type": "string"}},
          "refresh": {
            "type": "object",
            "additionalProperties": false,
            "properties": {
              "strategy": {"type": "string", "enum": ["command", "interactive"]},
              "command": {"type": "array", "items": {"type": "string"}, "minItems": 1},
              "timeout_ms": {"type": "integer", "minimum": 1}
            }
          }
        },
        "required": ["expiration_days"]
      }
    },
    "notifications": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "webhook": {
          "type": "object",
          "additionalProperties": false,
          "properties": {
            "url": {"type": "string"},
            "timeout_ms": {"type": "integer", "minimum": 1}
          },
          "required": ["url"]
        }
      }
    }
  }
}`

// validateSchema checks the raw YAML document against the embedded schema.
func validateSchema(data []byte) error {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return cferrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters. Use a YAML validator",
		}
	}

	// gojsonschema validates JSON documents, so round-trip through JSON
	jsonData, err := json.Marshal(doc)
	if err != nil {
		return cferrors.ConfigError{
			Message:    "configuration could not be converted for validation",
			Suggestion: "Remove non-string map keys from credfresh.yaml",
		}
	}

	schemaLoader := gojsonschema.NewStringLoader(configSchema)
	documentLoader := gojsonschema.NewBytesLoader(jsonData)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return cferrors.ConfigError{
			Message:    "schema validation error: " + err.Error(),
			Suggestion: "Check credfresh.yaml against the documented configuration surface",
		}
	}

	if !result.Valid() {
		var msgs []string
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return cferrors.ConfigError{
			Message:    "configuration does not match the expected structure:\n  - " + strings.Join(msgs, "\n  - "),
			Suggestion: "Fix the listed fields in credfresh.yaml",
		}
	}

	return nil
}
