package compiler

// ExitCodes maps common process exit statuses to their descriptions
var ExitCodes = map[int]string{
	-1:  "Process did not exit normally",
	0:   "Success",
	1:   "General failure",
	2:   "Invalid usage",
	126: "Command cannot execute",
	127: "Command not found",
	130: "Interrupted (SIGINT)",
	134: "Aborted (SIGABRT)",
	137: "Killed (SIGKILL)",
	139: "Segmentation fault (SIGSEGV)",
	141: "Broken pipe (SIGPIPE)",
	143: "Terminated (SIGTERM)",
}

// IsSuccess reports whether a compiler run produced usable output.
// Compilers must write the artifact to stdout only, so any stderr output is a failure even with a zero exit code.
func IsSuccess(code int, stderr []byte) bool {
	return code == 0 && len(stderr) == 0
}

// GetErrorMessage returns the description for a given exit code, or a generic message if unknown
func GetErrorMessage(code int) string {
	if msg, ok := ExitCodes[code]; ok {
		return msg
	}

	return "Unknown error"
}
