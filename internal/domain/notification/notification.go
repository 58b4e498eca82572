// internal/domain/notification/notification.go
package notification

import "context"

// Notification is the payload handed to the notification surface.
type Notification struct {
	Title string
	Body  string
	// OfferPlayback asks the surface to attach play/stop controls.
	OfferPlayback bool
}

// Notifier is the platform surface that displays notifications. The core only
// asks whether it may notify and, if not, asks the platform to prompt the user.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
	PermissionGranted() bool
	RequestPermission(ctx context.Context) error
}
