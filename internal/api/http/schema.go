package http

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const schemaBase = "https://mindengage.ai/schemas/"

var (
	gradeSchema       = mustSchema("grade.json")
	batchSchema       = mustSchema("batch.json")
	submissionSchema  = mustSchema("submission.json")
	manualGradeSchema = mustSchema("manual_grade.json")
)

func mustSchema(name string) *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		panic(err)
	}
	for _, e := range entries {
		b, err := schemaFS.ReadFile(path.Join("schemas", e.Name()))
		if err != nil {
			panic(err)
		}
		if err := c.AddResource(schemaBase+e.Name(), bytes.NewReader(b)); err != nil {
			panic(fmt.Sprintf("schema %s: %v", e.Name(), err))
		}
	}
	return c.MustCompile(schemaBase + name)
}

// decodeValid reads a JSON body of at most limit bytes, validates it against
// schema and decodes it into dst.
func decodeValid(w http.ResponseWriter, r *http.Request, schema *jsonschema.Schema, limit int64, dst any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("bad json: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("bad json: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
