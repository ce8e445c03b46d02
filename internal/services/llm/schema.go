package llm

import "github.com/invopop/jsonschema"

// GenerateSchema reflects a strict JSON schema for T: every property is
// required, no additional properties, definitions inlined.
func GenerateSchema[T any]() any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}
