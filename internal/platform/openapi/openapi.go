package openapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Generator builds the OpenAPI 3.0 document for the public API.
type Generator struct {
	version string
	baseURL string
}

func NewGenerator(version, baseURL string) *Generator {
	return &Generator{version: version, baseURL: baseURL}
}

// GenerateSpec produces the OpenAPI 3.0 document as a map.
func (g *Generator) GenerateSpec() map[string]interface{} {
	return map[string]interface{}{
		"openapi": "3.0.3",
		"info": map[string]interface{}{
			"title":       "MedConnect Symptom Checker API",
			"version":     g.version,
			"description": "Ranks likely conditions for a set of reported symptoms. Informational only.",
		},
		"servers": []map[string]string{{"url": g.baseURL + "/api/v1"}},
		"paths": map[string]interface{}{
			"/symptoms": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Search the symptom vocabulary",
					"operationId": "searchSymptoms",
					"tags":        []string{"catalog"},
					"parameters": append([]map[string]interface{}{
						queryParam("q", "Case-insensitive substring", "string"),
					}, pageParams()...),
					"responses": map[string]interface{}{
						"200": jsonResponse("Matching labels", pageSchema(map[string]interface{}{"type": "string"})),
						"304": map[string]interface{}{"description": "Not modified"},
					},
				},
			},
			"/conditions": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "List knowledge-base conditions",
					"operationId": "listConditions",
					"tags":        []string{"catalog"},
					"parameters":  pageParams(),
					"responses": map[string]interface{}{
						"200": jsonResponse("Conditions in knowledge-base order", pageSchema(ref("Condition"))),
						"304": map[string]interface{}{"description": "Not modified"},
					},
				},
			},
			"/conditions/{name}": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Get one condition by exact name",
					"operationId": "getCondition",
					"tags":        []string{"catalog"},
					"parameters": []map[string]interface{}{{
						"name":     "name",
						"in":       "path",
						"required": true,
						"schema":   map[string]string{"type": "string"},
					}},
					"responses": map[string]interface{}{
						"200": jsonResponse("The condition", ref("Condition")),
						"404": jsonResponse("Unknown condition", ref("Error")),
					},
				},
			},
			"/assessments": map[string]interface{}{
				"post": map[string]interface{}{
					"summary":     "Rank conditions for selected symptoms",
					"operationId": "createAssessment",
					"tags":        []string{"assessment"},
					"requestBody": map[string]interface{}{
						"required": true,
						"content": map[string]interface{}{
							"application/json": map[string]interface{}{"schema": ref("AssessRequest")},
						},
					},
					"responses": map[string]interface{}{
						"200": jsonResponse("Up to the configured number of ranked conditions", ref("Assessment")),
						"400": jsonResponse("Malformed body or empty selection", ref("Error")),
						"422": jsonResponse("Labels outside the vocabulary", ref("UnknownSymptoms")),
						"429": jsonResponse("Rate limited", ref("Error")),
					},
				},
			},
		},
		"components": map[string]interface{}{
			"schemas": componentSchemas(),
		},
	}
}

func ref(name string) map[string]interface{} {
	return map[string]interface{}{"$ref": "#/components/schemas/" + name}
}

func queryParam(name, description, typ string) map[string]interface{} {
	return map[string]interface{}{
		"name":        name,
		"in":          "query",
		"description": description,
		"schema":      map[string]string{"type": typ},
	}
}

func pageParams() []map[string]interface{} {
	return []map[string]interface{}{
		queryParam("limit", "Page size (default 20, max 100)", "integer"),
		queryParam("offset", "Items to skip", "integer"),
	}
}

func pageSchema(items map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"data":     map[string]interface{}{"type": "array", "items": items},
			"total":    map[string]string{"type": "integer"},
			"limit":    map[string]string{"type": "integer"},
			"offset":   map[string]string{"type": "integer"},
			"has_more": map[string]string{"type": "boolean"},
		},
	}
}

func jsonResponse(description string, schema map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"description": description,
		"content": map[string]interface{}{
			"application/json": map[string]interface{}{"schema": schema},
		},
	}
}

func stringArray() map[string]interface{} {
	return map[string]interface{}{"type": "array", "items": map[string]string{"type": "string"}}
}

func enum(values ...string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "enum": values}
}

func componentSchemas() map[string]interface{} {
	condition := map[string]interface{}{
		"name":            map[string]string{"type": "string"},
		"symptoms":        stringArray(),
		"severity":        enum("mild", "moderate", "severe", "varies"),
		"urgency":         enum("low", "medium", "high", "varies"),
		"description":     map[string]string{"type": "string"},
		"recommendations": stringArray(),
	}
	assessed := map[string]interface{}{
		"confidence":         map[string]interface{}{"type": "number", "minimum": 0, "maximum": 100},
		"confidence_percent": map[string]string{"type": "integer"},
		"matched_symptoms":   stringArray(),
		"severity_style":     enum("success", "warning", "danger", "neutral"),
		"urgent_care":        map[string]string{"type": "boolean"},
	}
	for k, v := range condition {
		assessed[k] = v
	}

	return map[string]interface{}{
		"Condition": map[string]interface{}{
			"type":       "object",
			"required":   []string{"name", "symptoms", "severity", "urgency"},
			"properties": condition,
		},
		"AssessedCondition": map[string]interface{}{
			"type":       "object",
			"properties": assessed,
		},
		"AssessRequest": map[string]interface{}{
			"type":     "object",
			"required": []string{"symptoms"},
			"properties": map[string]interface{}{
				"symptoms": stringArray(),
			},
		},
		"Assessment": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"selected_symptoms":    stringArray(),
				"predictions":          map[string]interface{}{"type": "array", "items": ref("AssessedCondition")},
				"requires_urgent_care": map[string]string{"type": "boolean"},
				"advisory":             map[string]string{"type": "string"},
				"message":              map[string]string{"type": "string"},
				"disclaimer":           map[string]string{"type": "string"},
			},
		},
		"Error": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"message": map[string]string{"type": "string"},
			},
		},
		"UnknownSymptoms": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"message": map[string]string{"type": "string"},
				"unknown": stringArray(),
			},
		},
	}
}

// RegisterRoutes serves the document at /openapi.json on g.
func (g *Generator) RegisterRoutes(group *echo.Group) {
	spec := g.GenerateSpec()
	group.GET("/openapi.json", func(c echo.Context) error {
		return c.JSON(http.StatusOK, spec)
	})
}
