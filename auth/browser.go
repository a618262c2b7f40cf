// ABOUTME: Browser launching helper for the interactive OAuth flow
// ABOUTME: Opens the authorization URL in the platform default browser
package auth

import (
	"os/exec"
	"runtime"
)

// openBrowser attempts to open URL in default browser
func openBrowser(url string) error {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
		args = []string{url}
	case "windows":
		cmd = "cmd"
		args = []string{"/c", "start", url}
	default:
		cmd = "xdg-open"
		args = []string{url}
	}

	command := exec.Command(cmd, args...)
	return command.Start()
}
