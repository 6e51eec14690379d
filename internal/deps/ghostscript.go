package deps

// Ghostscript describes the binary both pipelines invoke.
func Ghostscript(binary string) Tool {
	return Tool{
		Name:    "Ghostscript",
		Binary:  binary,
		Purpose: "PDF compression and merging",
		Hint:    "install ghostscript or pass its path as the second watch argument",
	}
}

// CheckGhostscript reports whether the configured Ghostscript binary can be
// executed.
func CheckGhostscript(binary string) Status {
	return Check(Ghostscript(binary))
}
