package sessionlog

import "github.com/abhisek/mathadapt/internal/schema"

var levelEnum = []string{"Easy", "Medium", "Hard", "easy", "medium", "hard"}

var recordSchema = map[string]any{
	"type":     "object",
	"required": []string{"puzzle", "is_correct", "response_time"},
	"properties": map[string]any{
		"question_number": map[string]any{"type": "integer", "minimum": 1},
		"puzzle": map[string]any{
			"type":     "object",
			"required": []string{"difficulty"},
			"properties": map[string]any{
				"question":   map[string]any{"type": "string"},
				"operand1":   map[string]any{"type": "number"},
				"operand2":   map[string]any{"type": "number"},
				"operation":  map[string]any{"type": "string"},
				"answer":     map[string]any{"type": "number"},
				"difficulty": map[string]any{"type": "string", "enum": levelEnum},
			},
		},
		"user_answer":   map[string]any{"type": "number"},
		"is_correct":    map[string]any{"type": "boolean"},
		"response_time": map[string]any{"type": "number", "minimum": 0},
		"difficulty":    map[string]any{"type": "string", "enum": levelEnum},
		"timestamp":     map[string]any{"type": "string"},
	},
}

var sessionSchema = map[string]any{
	"type":     "object",
	"required": []string{"responses"},
	"properties": map[string]any{
		"id":                 map[string]any{"type": "string"},
		"timestamp":          map[string]any{"type": "string"},
		"user_name":          map[string]any{"type": "string"},
		"adaptation_mode":    map[string]any{"type": "string"},
		"initial_difficulty": map[string]any{"type": "string", "enum": levelEnum},
		"final_difficulty":   map[string]any{"type": "string", "enum": levelEnum},
		"total_questions":    map[string]any{"type": "integer", "minimum": 0},
		"responses": map[string]any{
			"type":  "array",
			"items": recordSchema,
		},
	},
}

// LogFileSchema validates a whole log file: a JSON array of sessions.
var LogFileSchema = schema.Definition{
	Name: "session-log-file",
	Doc: map[string]any{
		"type":  "array",
		"items": sessionSchema,
	},
}
