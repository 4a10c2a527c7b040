package toolbox

import "fmt"

// DefaultOutputLimits caps tool output characters before the output is fed
// back to the model.
var DefaultOutputLimits = map[string]int{
	"read_file":    50000,
	"run_commands": 30000,
}

// TruncateOutput applies head/tail truncation, keeping the start and end of
// the output and noting how much was removed from the middle.
func TruncateOutput(output string, maxChars int) string {
	if maxChars <= 0 || len(output) <= maxChars {
		return output
	}
	half := maxChars / 2
	removed := len(output) - maxChars
	return output[:half] +
		fmt.Sprintf("\n\n[Output truncated: %d characters removed from the middle. "+
			"Re-run the tool with more targeted parameters to see specific parts.]\n\n", removed) +
		output[len(output)-half:]
}
