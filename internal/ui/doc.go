// Package ui provides terminal output for the mdcctl CLI.
//
// Two kinds of output are offered. Printer renders one-shot results for
// commands such as "mdcctl status": a bordered state table, success boxes
// and error boxes with a troubleshooting hint. PanelModel is an interactive
// Bubble Tea program that mirrors a live session and maps keys to actions.
//
// # Panel
//
// The panel never updates its state from the keys it handles. A key press
// invokes an action on the Controller; the mirrored state only changes
// when the display acknowledges, delivered as StateMsg through
// Program.Send:
//
//	m := ui.NewPanelModel(sess, "lobby", cfg.Addr(), sess.DeviceID())
//	if err := ui.RunPanel(m); err != nil {
//	    return err
//	}
//
// # Logging Integration
//
// Logging is controlled via the MDCCTL_LOG_LEVEL environment variable.
// When unset, zap logging is silent so the panel owns the terminal.
package ui
