package logger

import (
	"context"

	"github.com/sirupsen/logrus"

	"mawakit/internal/domain/notification"
)

// Notifier writes notifications to the log. It is used when no chat surface
// is configured and always has permission.
type Notifier struct {
	log *logrus.Entry
}

func NewNotifier(log *logrus.Entry) *Notifier {
	return &Notifier{log: log}
}

func (n *Notifier) Send(_ context.Context, msg notification.Notification) error {
	n.log.WithFields(logrus.Fields{"title": msg.Title, "body": msg.Body}).Info("Notification")
	return nil
}

func (n *Notifier) PermissionGranted() bool { return true }

func (n *Notifier) RequestPermission(context.Context) error { return nil }
