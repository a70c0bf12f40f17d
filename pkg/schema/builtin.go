package schema

// Tool names exposed by the neurosiphon server.
const (
	ToolRepoMap       = "neurosiphon_repo_map"
	ToolCallHierarchy = "neurosiphon_call_hierarchy"
	ToolFindUsages    = "neurosiphon_find_usages"
	ToolDiagnostics   = "neurosiphon_diagnostics"
)

var builtinSchemas = map[string]string{
	ToolRepoMap: `{
		"type": "object",
		"properties": {
			"repoPath":   {"type": "string", "minLength": 1},
			"target_dir": {"type": "string", "minLength": 1}
		},
		"required": ["repoPath", "target_dir"]
	}`,
	ToolCallHierarchy: `{
		"type": "object",
		"properties": {
			"repoPath":    {"type": "string", "minLength": 1},
			"target_dir":  {"type": "string", "minLength": 1},
			"symbol_name": {"type": "string", "minLength": 1}
		},
		"required": ["repoPath", "target_dir", "symbol_name"]
	}`,
	ToolFindUsages: `{
		"type": "object",
		"properties": {
			"repoPath":    {"type": "string", "minLength": 1},
			"target_dir":  {"type": "string", "minLength": 1},
			"symbol_name": {"type": "string", "minLength": 1}
		},
		"required": ["repoPath", "target_dir", "symbol_name"]
	}`,
	ToolDiagnostics: `{
		"type": "object",
		"properties": {
			"repoPath": {"type": "string", "minLength": 1}
		},
		"required": ["repoPath"]
	}`,
}

// Builtin returns a registry preloaded with the neurosiphon tool schemas.
func Builtin() *Registry {
	r := NewRegistry()
	for tool, schemaJSON := range builtinSchemas {
		if err := r.Register(tool, schemaJSON); err != nil {
			// builtin schemas are constants; a compile failure is a programming error
			panic(err)
		}
	}
	return r
}
