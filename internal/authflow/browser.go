package authflow

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
)

// BrowserOpener opens url in the user's browser.
type BrowserOpener func(ctx context.Context, url string) error

// OpenBrowser launches the platform URL handler. It returns once the
// handler has been started; the process is reaped in the background.
func OpenBrowser(_ context.Context, url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "darwin":
		cmd = exec.Command("open", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
