// Command schema writes one JSON Schema document per wire message tag, for
// client authors.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"

	"github.com/invopop/jsonschema"

	"icefire/game"
	"icefire/protocol"
)

func main() {
	var outDir string
	flag.StringVar(&outDir, "out", "", "directory to write the JSON schemas into")
	flag.Parse()

	if outDir == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}

	tags := protocol.Tags()
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	for _, tag := range tags {
		msg, _ := protocol.New(tag)
		schema := buildSchema(tag, msg)
		path := filepath.Join(outDir, string(tag)+".schema.json")
		if err := writeSchema(path, schema); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write schema for %s: %v\n", tag, err)
			os.Exit(1)
		}
	}
}

var (
	roleType   = reflect.TypeOf(game.Role(0))
	actionType = reflect.TypeOf(game.Action(0))
	gridType   = reflect.TypeOf(game.Map{})
)

// mapType 覆盖自定义 JSON 编码的类型
func mapType(t reflect.Type) *jsonschema.Schema {
	switch t {
	case roleType:
		return &jsonschema.Schema{Type: "string", Enum: []interface{}{game.Cold.String(), game.Hot.String()}}
	case actionType:
		return &jsonschema.Schema{
			Type:        "integer",
			Description: "bit set: 1 move-left, 2 move-right, 4 jump, 8 use",
		}
	case gridType:
		return &jsonschema.Schema{
			Type:        "object",
			Description: "name, width, height, gems and tilesData (row-major tile codes, width*height entries)",
		}
	}
	return nil
}

func buildSchema(tag protocol.Tag, msg protocol.Message) *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
		Mapper:                    mapType,
	}
	schema := reflector.Reflect(msg)
	schema.Title = string(tag)
	schema.Description = fmt.Sprintf("JSON body of a %q frame", tag)
	return schema
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}
	return os.Rename(tmpPath, outPath)
}
