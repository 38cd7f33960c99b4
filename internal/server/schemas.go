package server

var schemaJSON = map[string]string{
	"echo.in": `{
		"type": "object",
		"properties": {"message": {"type": "string"}},
		"required": ["message"]
	}`,
	"echo.out": `{
		"type": "object",
		"properties": {"message": {"type": "string"}},
		"required": ["message"]
	}`,
	"template.list.in": `{
		"type": "object",
		"properties": {
			"name": {"type": "string"},
			"constraint": {"type": "string"}
		},
		"required": ["name"]
	}`,
	"template.list.out": `{
		"type": "object",
		"properties": {"versions": {"type": "array", "items": {"type": "string"}}},
		"required": ["versions"]
	}`,
	"template.apply.in": `{
		"type": "object",
		"properties": {
			"name": {"type": "string"},
			"version": {"type": "string"},
			"target": {"type": "string"},
			"forceRefresh": {"type": "boolean"},
			"variables": {"type": "object", "additionalProperties": {"type": "string"}}
		},
		"required": ["name", "target"]
	}`,
	"template.apply.out": `{
		"type": "object",
		"properties": {
			"version": {"type": "string"},
			"files": {"type": "array", "items": {"type": "string"}},
			"stale": {"type": "boolean"},
			"warnings": {"type": "array", "items": {"type": "string"}}
		},
		"required": ["version", "files"]
	}`,
	"flutter.doctor.in": `{
		"type": "object",
		"properties": {}
	}`,
	"flutter.create.in": `{
		"type": "object",
		"properties": {
			"projectName": {"type": "string"},
			"targetDir": {"type": "string"}
		},
		"required": ["projectName"]
	}`,
	"flutter.run.in": `{
		"type": "object",
		"properties": {
			"targetDir": {"type": "string"},
			"device": {"type": "string"}
		}
	}`,
	"flutter.build.in": `{
		"type": "object",
		"properties": {
			"targetDir": {"type": "string"},
			"platform": {"type": "string"}
		},
		"required": ["platform"]
	}`,
	"flutter.cmd.out": `{
		"type": "object",
		"properties": {
			"exitCode": {"type": "integer"},
			"logUri": {"type": "string"}
		},
		"required": ["exitCode", "logUri"]
	}`,
	"deps.health.in": `{
		"type": "object",
		"properties": {"packages": {"type": "array", "items": {"type": "string"}}},
		"required": ["packages"]
	}`,
	"deps.health.out": `{
		"type": "object",
		"properties": {
			"results": {
				"type": "array",
				"items": {
					"type": "object",
					"properties": {
						"name": {"type": "string"},
						"health_score": {"type": "integer"},
						"vulnerabilities": {"type": "array", "items": {"type": "string"}},
						"license": {"type": "string"},
						"is_maintained": {"type": "boolean"},
						"popularity": {"type": "integer"}
					},
					"required": ["name", "health_score", "license", "is_maintained", "popularity"]
				}
			}
		},
		"required": ["results"]
	}`,
}
