package formspec

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/askflow/internal/model"
)

// templateSchema constrains a form template file. Unknown field types
// and empty labels are rejected by CUE itself before any Go-side checks
// run.
const templateSchema = `
name: string & !=""
fields: [...{
	label:    string & !=""
	type:     "TEXT" | "NUMBER" | "CHOICE" | "FILE"
	required: bool | *false
	options:  [...string] | *[]
}]
`

// Field is one declared field of a form template.
type Field struct {
	Label    string
	Type     model.FieldType
	Required bool
	Options  []string
}

// Template is a validated answer-form template.
type Template struct {
	Name   string
	Fields []Field
}

// Load reads, validates, and decodes a CUE form template file.
//
// Returns an error if the file does not exist, is not valid CUE, or
// does not satisfy the template schema (unknown field type, empty
// label, choice field without options).
func Load(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}
	return Parse(data, path)
}

// Parse validates and decodes CUE template source. The filename is used
// only for error positions.
func Parse(data []byte, filename string) (*Template, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(templateSchema)
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("internal schema error: %w", err)
	}

	value := ctx.CompileBytes(data, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}

	unified := schema.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("invalid template: %w", err)
	}

	var raw struct {
		Name   string `json:"name"`
		Fields []struct {
			Label    string   `json:"label"`
			Type     string   `json:"type"`
			Required bool     `json:"required"`
			Options  []string `json:"options"`
		} `json:"fields"`
	}
	if err := unified.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode template: %w", err)
	}

	if len(raw.Fields) == 0 {
		return nil, fmt.Errorf("invalid template: at least one field is required")
	}

	tmpl := &Template{Name: raw.Name}
	for i, f := range raw.Fields {
		fieldType := model.FieldType(f.Type)
		if fieldType == model.FieldChoice && len(f.Options) == 0 {
			return nil, fmt.Errorf("invalid template: field %d (%s): choice field needs options", i, f.Label)
		}
		tmpl.Fields = append(tmpl.Fields, Field{
			Label:    f.Label,
			Type:     fieldType,
			Required: f.Required,
			Options:  f.Options,
		})
	}

	return tmpl, nil
}
