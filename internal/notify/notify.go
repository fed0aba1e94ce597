package notify

import "github.com/gen2brain/beeep"

const appTitle = "Chelouizer"

// Desktop raises native notifications through beeep.
type Desktop struct {
	send func(title, message, icon string) error
}

func NewDesktop() *Desktop {
	return &Desktop{send: func(title, message, icon string) error {
		return beeep.Notify(title, message, icon)
	}}
}

// Notify shows a desktop notification. An empty title falls back to the app name.
func (d *Desktop) Notify(title, message string) error {
	if title == "" {
		title = appTitle
	}
	return d.send(title, message, "")
}

// Noop drops every notification.
type Noop struct{}

func (Noop) Notify(string, string) error { return nil }
