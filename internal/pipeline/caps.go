package pipeline

import "fmt"

// buildVideoCaps builds the caps string pinning the appsink output format.
// The surface wants BGRA at exactly the configured size; a positive fps cap
// adds a framerate so the upstream videorate can drop to it.
//
// Format: "video/x-raw,format=BGRA,width=W,height=H[,framerate=N/1]"
func buildVideoCaps(width, height, fpsCap int) string {
	if fpsCap > 0 {
		return fmt.Sprintf(
			"video/x-raw,format=BGRA,width=%d,height=%d,framerate=%d/1",
			width, height, fpsCap,
		)
	}
	return fmt.Sprintf("video/x-raw,format=BGRA,width=%d,height=%d", width, height)
}
