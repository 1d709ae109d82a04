package snapshot

import "github.com/pmezard/go-difflib/difflib"

// Changed reports whether any line of current differs from previous.
func Changed(previous, current string) bool {
	m := difflib.NewMatcher(splitLines(previous), splitLines(current))
	for _, op := range m.GetOpCodes() {
		if op.Tag != 'e' {
			return true
		}
	}
	return false
}

// Diff returns a unified diff turning previous into current, headed by
// fromLabel and toLabel. It is empty when no line changed.
func Diff(previous, current, fromLabel, toLabel string) (string, error) {
	if !Changed(previous, current) {
		return "", nil
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        splitLines(previous),
		B:        splitLines(current),
		FromFile: fromLabel,
		ToFile:   toLabel,
		Context:  3,
	})
}

// splitLines keeps "" as zero lines; difflib.SplitLines would yield one
// empty line.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return difflib.SplitLines(s)
}
