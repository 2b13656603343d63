package models

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// planSchema is the authoritative JSON shape for persisted plan snapshots.
// Semantic rules (reachable targets, duration grammar, duplicate event rules)
// live in CampaignPlan.Validate.
const planSchema = `{
	"type": "object",
	"required": ["version", "timezone", "startNodeId", "nodes"],
	"properties": {
		"version": {"type": "integer", "minimum": 1},
		"timezone": {"type": "string", "minLength": 1},
		"quietHours": {
			"type": "object",
			"required": ["start", "end"],
			"properties": {
				"start": {"type": "string", "pattern": "^[0-2][0-9]:[0-5][0-9]$"},
				"end": {"type": "string", "pattern": "^[0-2][0-9]:[0-5][0-9]$"}
			}
		},
		"defaults": {
			"type": "object",
			"properties": {
				"timers": {
					"type": "object",
					"properties": {
						"no_open_after": {"type": "string"},
						"no_click_after": {"type": "string"}
					}
				}
			}
		},
		"startNodeId": {"type": "string", "minLength": 1},
		"nodes": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["id", "action"],
				"properties": {
					"id": {"type": "string", "minLength": 1},
					"action": {"type": "string", "enum": ["send", "wait", "stop"]},
					"channel": {"type": "string"},
					"subject": {"type": "string"},
					"body": {"type": "string"},
					"schedule": {
						"type": "object",
						"required": ["delay"],
						"properties": {"delay": {"type": "string"}}
					},
					"transitions": {
						"type": "array",
						"items": {
							"type": "object",
							"required": ["on", "to"],
							"properties": {
								"id": {"type": "string"},
								"on": {"type": "string", "minLength": 1},
								"to": {"type": "string", "minLength": 1},
								"within": {"type": "string"},
								"after": {"type": "string"}
							}
						}
					}
				}
			}
		}
	}
}`

// ValidatePlanJSON validates a raw plan snapshot against the plan schema.
func ValidatePlanJSON(raw []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(planSchema)
	dataLoader := gojsonschema.NewBytesLoader(raw)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}

		return fmt.Errorf("%w: %s", ErrInvalidPlan, strings.Join(details, "; "))
	}

	return nil
}
