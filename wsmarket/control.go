package wsmarket

import "fmt"

// Info codes the server uses to steer the connection.
const (
	InfoCodeReconnect = 20051
	InfoCodePause     = 20060
	InfoCodeResume    = 20061
)

func (w *WSMarket) handleControl(code int) {
	switch code {
	case InfoCodeReconnect:
		w.debugf("info %d: server requested reconnect", code)
		w.restart()
	case InfoCodePause:
		w.debugf("info %d: server paused the feed", code)
		w.pause()
	case InfoCodeResume:
		w.debugf("info %d: server resumed the feed", code)
		w.resume()
	default:
		w.debugf("info %d: unrecognized code", code)
	}
}

func fmtVersionMismatch(got int, allowed []int) string {
	return fmt.Sprintf("server version %d, allowed %v", got, allowed)
}
