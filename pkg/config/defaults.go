package config

import (
	"github.com/ajitpratap0/mcp-probe/pkg/protocol"
	"github.com/ajitpratap0/mcp-probe/pkg/schema"
)

// DefaultProbes is the self-test table run when no configuration file lists
// probes. It exercises every tool against a multi-language fixture
// repository.
func DefaultProbes() []ProbeConfig {
	return []ProbeConfig{
		{
			Title: "TEST 1: repo_map — Rust (apps/desktop/src)",
			Tool:  schema.ToolRepoMap,
			Arguments: protocol.NewArguments().
				Set("repoPath", "${repo}").
				Set("target_dir", "apps/desktop/src"),
		},
		{
			Title: "TEST 1b: repo_map — Python (services/py-mlx-bridge)",
			Tool:  schema.ToolRepoMap,
			Arguments: protocol.NewArguments().
				Set("repoPath", "${repo}").
				Set("target_dir", "services/py-mlx-bridge/src"),
		},
		{
			// repoPath is left out on purpose: the server must either
			// auto-detect the root or say why it cannot.
			Title: "TEST 1c: repo_map — WITHOUT repoPath (should error or auto-detect)",
			Tool:  schema.ToolRepoMap,
			Arguments: protocol.NewArguments().
				Set("target_dir", "${repo}/apps/desktop/src"),
		},
		{
			Title: "TEST 2: call_hierarchy — Rust `run_convert` in rs-smelter",
			Tool:  schema.ToolCallHierarchy,
			Arguments: protocol.NewArguments().
				Set("repoPath", "${repo}").
				Set("target_dir", "services/rs-smelter/src").
				Set("symbol_name", "run_convert"),
			MaxLines: 60,
		},
		{
			Title: "TEST 3: call_hierarchy — Python `_copy_tokenizer_extras` (KNOWN SILENT BUG)",
			Tool:  schema.ToolCallHierarchy,
			Arguments: protocol.NewArguments().
				Set("repoPath", "${repo}").
				Set("target_dir", "services/py-mlx-bridge/src").
				Set("symbol_name", "_copy_tokenizer_extras"),
			MaxLines: 60,
		},
		{
			Title: "TEST 4: find_usages — Python `_copy_tokenizer_extras` (should find 4)",
			Tool:  schema.ToolFindUsages,
			Arguments: protocol.NewArguments().
				Set("repoPath", "${repo}").
				Set("target_dir", "services/py-mlx-bridge/src").
				Set("symbol_name", "_copy_tokenizer_extras"),
			MaxLines: 40,
		},
		{
			Title: "TEST 5: diagnostics — rs-smelter (Rust)",
			Tool:  schema.ToolDiagnostics,
			Arguments: protocol.NewArguments().
				Set("repoPath", "${repo}/services/rs-smelter"),
			MaxLines: 20,
		},
	}
}
