package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/engagement-analyzer/constants"
)

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	schema, err := compileSchema(schemaMap)
	if err != nil {
		return err
	}
	return validateWith(schema, data)
}

func compileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

func validateWith(schema *jsonschema.Schema, data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

var (
	schemaOnce  sync.Once
	schemaCache map[constants.AnalysisMode]*jsonschema.Schema
	schemaErr   error
)

func analysisSchema(mode constants.AnalysisMode) (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schemaCache = map[constants.AnalysisMode]*jsonschema.Schema{}
		for _, m := range []constants.AnalysisMode{constants.ModeFull, constants.ModeQuick} {
			s, err := compileSchema(BuildAnalysisSchema(m))
			if err != nil {
				schemaErr = err
				return
			}
			schemaCache[m] = s
		}
	})
	if schemaErr != nil {
		return nil, schemaErr
	}
	if s, ok := schemaCache[mode]; ok {
		return s, nil
	}
	return schemaCache[constants.ModeFull], nil
}

// ValidateRecord checks the types of a structured record's sections.
// Fallback records have nothing to check. The result is diagnostic only.
func ValidateRecord(rec AnalysisRecord, mode constants.AnalysisMode) error {
	if rec.IsFallback() {
		return nil
	}
	schema, err := analysisSchema(mode)
	if err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	return validateWith(schema, data)
}
