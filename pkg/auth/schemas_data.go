package auth

// descriptorSchemas holds one JSON Schema document per
// {interface}-{method} pair, validated against the flattened view
// descriptorView builds. They check shape, not business rules: the
// lifecycle and protocol engines own everything beyond "is this the
// right set of fields".
var descriptorSchemas = map[string]string{
	"Records-Write": `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"required": ["interface", "method", "recordId", "dataCid", "dataSize", "dataFormat", "dateCreated"],
		"properties": {
			"interface": {"const": "Records"},
			"method": {"const": "Write"},
			"recordId": {"type": "string", "minLength": 1},
			"dataCid": {"type": "string", "minLength": 1},
			"dataSize": {"type": "integer", "minimum": 0},
			"dataFormat": {"type": "string", "minLength": 1}
		}
	}`,
	"Records-Delete": `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"required": ["interface", "method", "recordId"],
		"properties": {
			"interface": {"const": "Records"},
			"method": {"const": "Delete"},
			"recordId": {"type": "string", "minLength": 1},
			"prune": {"type": "boolean"}
		}
	}`,
	"Records-Read": `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"required": ["interface", "method", "filter"],
		"properties": {
			"interface": {"const": "Records"},
			"method": {"const": "Read"},
			"filter": {"type": "object"}
		}
	}`,
	"Records-Query": `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"required": ["interface", "method", "filter"],
		"properties": {
			"interface": {"const": "Records"},
			"method": {"const": "Query"},
			"filter": {"type": "object"}
		}
	}`,
	"Records-Subscribe": `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"required": ["interface", "method", "filter"],
		"properties": {
			"interface": {"const": "Records"},
			"method": {"const": "Subscribe"},
			"filter": {"type": "object"}
		}
	}`,
	"Protocols-Configure": `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"required": ["interface", "method", "definition"],
		"properties": {
			"interface": {"const": "Protocols"},
			"method": {"const": "Configure"},
			"definition": {
				"type": "object",
				"required": ["protocol", "types", "structure"]
			}
		}
	}`,
	"Protocols-Query": `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"required": ["interface", "method"],
		"properties": {
			"interface": {"const": "Protocols"},
			"method": {"const": "Query"},
			"filter": {"type": "object"}
		}
	}`,
	"Messages-Query": `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"required": ["interface", "method", "filter"],
		"properties": {
			"interface": {"const": "Messages"},
			"method": {"const": "Query"},
			"filter": {"type": "object"}
		}
	}`,
	"Messages-Read": `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"required": ["interface", "method", "messageCid"],
		"properties": {
			"interface": {"const": "Messages"},
			"method": {"const": "Read"},
			"messageCid": {"type": "string", "minLength": 1}
		}
	}`,
	"Messages-Subscribe": `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"required": ["interface", "method", "filter"],
		"properties": {
			"interface": {"const": "Messages"},
			"method": {"const": "Subscribe"},
			"filter": {"type": "object"}
		}
	}`,
}
