package fancy

import (
	"fmt"
	"strings"

	"github.com/replbox/replbox/internal/compiler"
)

// CompileReport renders a one-shot compile outcome as a styled tree.
func CompileReport(presets []string, outcome *compiler.Outcome) string {
	root := Tree().Root(RootStyle.Render("replbox compile"))

	presetsNode := BranchNode("presets", fmt.Sprintf("(%d)", len(presets)))
	if len(presets) == 0 {
		presetsNode.Child(InfoStyle.Render("none (passthrough)"))
	}
	for _, key := range presets {
		presetsNode.Child(PresetText(key))
	}
	root.Child(presetsNode)

	if outcome.Failed() {
		errNode := BranchNode("error", "")
		errNode.Child(ErrorText(outcome.CompileError))
		root.Child(errNode)
		return root.String()
	}

	outNode := BranchNode("output", StatStyle.Render(
		fmt.Sprintf("(%.2fms)", outcome.TransformTimeMs)))
	for _, line := range strings.Split(strings.TrimRight(outcome.Compiled, "\n"), "\n") {
		outNode.Child(CodeStyle.Render(line))
	}
	root.Child(outNode)

	if outcome.EnvPresetDebug != "" {
		dbgNode := BranchNode("env debug", "")
		for _, line := range strings.Split(strings.TrimRight(outcome.EnvPresetDebug, "\n"), "\n") {
			dbgNode.Child(DebugStyle.Render(line))
		}
		root.Child(dbgNode)
	}

	return root.String()
}
