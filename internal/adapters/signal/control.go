package signal

func (ctl *SignalWSController) handlePing(conn *wsSignalConn) {
	ctl.sendEvent(conn, "pong", nil)
}
