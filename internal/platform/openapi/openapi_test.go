package openapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestGenerateSpec_Info(t *testing.T) {
	spec := NewGenerator("1.2.3", "https://example.test").GenerateSpec()

	if spec["openapi"] != "3.0.3" {
		t.Errorf("openapi = %v, want 3.0.3", spec["openapi"])
	}
	info := spec["info"].(map[string]interface{})
	if info["version"] != "1.2.3" {
		t.Errorf("version = %v, want 1.2.3", info["version"])
	}
	servers := spec["servers"].([]map[string]string)
	if len(servers) != 1 || servers[0]["url"] != "https://example.test/api/v1" {
		t.Errorf("servers = %v", servers)
	}
}

func TestGenerateSpec_Paths(t *testing.T) {
	spec := NewGenerator("dev", "").GenerateSpec()
	paths := spec["paths"].(map[string]interface{})

	want := map[string]string{
		"/symptoms":          "get",
		"/conditions":        "get",
		"/conditions/{name}": "get",
		"/assessments":       "post",
	}
	if len(paths) != len(want) {
		t.Errorf("got %d paths, want %d", len(paths), len(want))
	}
	for path, method := range want {
		item, ok := paths[path].(map[string]interface{})
		if !ok {
			t.Errorf("missing path %s", path)
			continue
		}
		if _, ok := item[method]; !ok {
			t.Errorf("%s: missing %s operation", path, method)
		}
	}
}

func TestGenerateSpec_AssessmentResponses(t *testing.T) {
	spec := NewGenerator("dev", "").GenerateSpec()
	post := spec["paths"].(map[string]interface{})["/assessments"].(map[string]interface{})["post"].(map[string]interface{})
	responses := post["responses"].(map[string]interface{})

	for _, code := range []string{"200", "400", "422", "429"} {
		if _, ok := responses[code]; !ok {
			t.Errorf("missing %s response", code)
		}
	}
}

func TestGenerateSpec_RefsResolve(t *testing.T) {
	spec := NewGenerator("dev", "").GenerateSpec()
	data, err := json.Marshal(spec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var doc struct {
		Components struct {
			Schemas map[string]json.RawMessage `json:"schemas"`
		} `json:"components"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	var walk func(v interface{})
	walk = func(v interface{}) {
		switch x := v.(type) {
		case map[string]interface{}:
			if r, ok := x["$ref"].(string); ok {
				const prefix = "#/components/schemas/"
				name := r[len(prefix):]
				if _, ok := doc.Components.Schemas[name]; !ok {
					t.Errorf("dangling ref %s", r)
				}
			}
			for _, child := range x {
				walk(child)
			}
		case []interface{}:
			for _, child := range x {
				walk(child)
			}
		}
	}
	var generic interface{}
	if err := json.Unmarshal(data, &generic); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	walk(generic)
}

func TestRegisterRoutes(t *testing.T) {
	e := echo.New()
	NewGenerator("dev", "").RegisterRoutes(e.Group("/api/v1"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/openapi.json", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["openapi"] != "3.0.3" {
		t.Errorf("openapi = %v", body["openapi"])
	}
}
